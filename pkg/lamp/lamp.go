package lamp

import (
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/Lamprichauns/lamp-os/internal/errors"
)

// Color is an RGBW colour as carried by the colour attributes.
type Color struct {
	R, G, B, W uint8
}

// White is the colour a pure #ffffff maps to: the dedicated white channel.
var White = Color{W: 0xff}

// ParseColor parses "#rrggbb" or "#rrggbbww". An RGB value of pure white is
// mapped to the white channel.
func ParseColor(s string) (Color, error) {
	raw, err := hex.DecodeString(strings.TrimPrefix(strings.TrimSpace(s), "#"))
	if err != nil || (len(raw) != 3 && len(raw) != 4) {
		return Color{}, errors.InvalidInputf("colour %q is not #rrggbb or #rrggbbww", s)
	}
	if len(raw) == 4 {
		return Color{R: raw[0], G: raw[1], B: raw[2], W: raw[3]}, nil
	}
	if raw[0] == 0xff && raw[1] == 0xff && raw[2] == 0xff {
		return White, nil
	}
	return Color{R: raw[0], G: raw[1], B: raw[2]}, nil
}

// ColorFromBytes reads a colour attribute value or override payload.
// Missing channels are zero.
func ColorFromBytes(b []byte) Color {
	var c [4]uint8
	copy(c[:], b)
	return Color{R: c[0], G: c[1], B: c[2], W: c[3]}
}

// Bytes returns the wire form r, g, b, w.
func (c Color) Bytes() []byte {
	return []byte{c.R, c.G, c.B, c.W}
}

// String returns the colour as #rrggbbww.
func (c Color) String() string {
	return fmt.Sprintf("#%02x%02x%02x%02x", c.R, c.G, c.B, c.W)
}

// Identity is the configured, persistent state a lamp announces.
type Identity struct {
	Name       string
	Version    uint16
	BaseColor  Color
	ShadeColor Color
}

// Lamp ties a Network to this lamp's identity. It announces the identity's
// attributes and tracks the colours to show, applying BASE_OVERRIDE and
// SHADE_OVERRIDE broadcasts while they are live.
type Lamp struct {
	BaseObserver

	network *Network
	logger  *slog.Logger

	mu       sync.RWMutex
	identity Identity
	base     Color
	shade    Color
}

// NewLamp creates a lamp, announces its identity on network and starts
// observing it.
func NewLamp(network *Network, identity Identity, logger *slog.Logger) *Lamp {
	if logger == nil {
		logger = slog.Default()
	}
	l := &Lamp{
		network: network,
		logger:  logger,
	}
	l.SetIdentity(identity)
	network.AddObserver(l)
	return l
}

// SetIdentity replaces the announced identity, keeping any live override.
func (l *Lamp) SetIdentity(identity Identity) {
	l.mu.Lock()
	l.identity = identity
	if _, ok := l.network.Message(CodeBaseOverride); !ok {
		l.base = identity.BaseColor
	}
	if _, ok := l.network.Message(CodeShadeOverride); !ok {
		l.shade = identity.ShadeColor
	}
	l.mu.Unlock()

	l.network.AnnounceAttribute(NewVersionAttribute(identity.Version))
	l.network.AnnounceAttribute(NewAttribute(CodeBaseColor, identity.BaseColor.Bytes()...))
	l.network.AnnounceAttribute(NewAttribute(CodeShadeColor, identity.ShadeColor.Bytes()...))
}

// Identity returns the announced identity.
func (l *Lamp) Identity() Identity {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.identity
}

// Colors returns the base and shade colours currently in effect.
func (l *Lamp) Colors() (base, shade Color) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.base, l.shade
}

// Network returns the network the lamp is attached to.
func (l *Lamp) Network() *Network {
	return l.network
}

// MessageObserved applies colour overrides.
func (l *Lamp) MessageObserved(message BroadcastMessage) {
	if len(message.Payload) == 0 {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	switch message.Code {
	case CodeBaseOverride:
		l.base = ColorFromBytes(message.Payload)
		l.logger.Debug("base colour overridden", "color", l.base)
	case CodeShadeOverride:
		l.shade = ColorFromBytes(message.Payload)
		l.logger.Debug("shade colour overridden", "color", l.shade)
	}
}

// MessageStopped reverts an expired override to the configured colour.
func (l *Lamp) MessageStopped(code Code) {
	l.mu.Lock()
	defer l.mu.Unlock()

	switch code {
	case CodeBaseOverride:
		l.base = l.identity.BaseColor
		l.logger.Debug("base colour override stopped")
	case CodeShadeOverride:
		l.shade = l.identity.ShadeColor
		l.logger.Debug("shade colour override stopped")
	}
}
