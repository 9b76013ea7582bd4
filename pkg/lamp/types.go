package lamp

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Lamprichauns/lamp-os/internal/errors"
)

// Timing windows used to classify peers relative to now.
const (
	// ArrivalTimeout is how long after first being seen a lamp counts as freshly arrived
	ArrivalTimeout = 5 * time.Second

	// VisibleTimeout is how long after last being seen a lamp still counts as visible
	VisibleTimeout = 15 * time.Second

	// StaleTimeout is how long after last being seen a lamp is considered departed
	StaleTimeout = 30 * time.Second

	// TTLTick is the wall-clock time that consumes one unit of broadcast ttl
	TTLTick = time.Second

	// MonitorInterval is the delay between monitor loop iterations
	MonitorInterval = 50 * time.Millisecond

	// AdvertiseInterval is the delay between advertisement refreshes
	AdvertiseInterval = time.Second
)

// Broadcast defaults.
const (
	// DefaultBroadcastTTL is the ttl given to locally sent broadcasts
	DefaultBroadcastTTL = 4

	// DefaultTTLAdjustment is the ttl discount applied to every message received from a peer
	DefaultTTLAdjustment = 1

	// DefaultMagicNumber tags this application's vendor section in advertisements
	DefaultMagicNumber uint16 = 42069
)

// Clock supplies the current time. Values returned by time.Now carry a
// monotonic reading, so durations computed with Sub are not affected by
// wall-clock adjustments.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to the Clock interface.
type ClockFunc func() time.Time

// Now returns the current time.
func (f ClockFunc) Now() time.Time { return f() }

// SystemClock is the default clock.
var SystemClock Clock = ClockFunc(time.Now)

// PeerID identifies a peer lamp. It is derived from the radio address and is
// stable for as long as the peer keeps the same address.
type PeerID uint64

// String formats the ID as a 48-bit hex address.
func (id PeerID) String() string {
	return fmt.Sprintf("%012x", uint64(id))
}

// ParsePeerID parses the 12 hex digit form produced by String. Colon or dash
// separators, as in a MAC address, are ignored.
func ParsePeerID(s string) (PeerID, error) {
	clean := strings.NewReplacer(":", "", "-", "").Replace(strings.TrimSpace(s))
	if len(clean) != 12 {
		return 0, errors.InvalidInputf("lamp id %q is not 12 hex digits", s)
	}
	n, err := strconv.ParseUint(clean, 16, 48)
	if err != nil {
		return 0, errors.InvalidInputf("lamp id %q is not 12 hex digits", s)
	}
	return PeerID(n), nil
}

// Observer receives notifications from a Network. All methods are advisory;
// embed BaseObserver to only implement the ones you need.
//
// Observers are compared with == when added and removed, so implementations
// should be pointer types.
type Observer interface {
	NewLampAppeared(lamp Peer)
	LampChanged(lamp Peer)
	LampAttributeChanged(lamp Peer, attribute Attribute)
	LampsDeparted(lamps []Peer)
	MessageObserved(message BroadcastMessage)
	MessageStopped(code Code)
}

// BaseObserver implements Observer with no-ops.
type BaseObserver struct{}

func (BaseObserver) NewLampAppeared(Peer) {}
func (BaseObserver) LampChanged(Peer) {}
func (BaseObserver) LampAttributeChanged(Peer, Attribute) {}
func (BaseObserver) LampsDeparted([]Peer) {}
func (BaseObserver) MessageObserved(BroadcastMessage) {}
func (BaseObserver) MessageStopped(Code) {}

// Delegate is the component that encodes and transmits this lamp's state.
// It is pushed the full sets whenever local state changes.
type Delegate interface {
	// AnnounceAttributes is called with every attribute this lamp announces
	AnnounceAttributes(attributes []Attribute)

	// BroadcastMessages is called with every broadcast message this lamp holds.
	// Their ttl keeps decaying, so read it with TTLAt when encoding.
	BroadcastMessages(messages []DecayingBroadcastMessage)
}
