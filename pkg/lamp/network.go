package lamp

import (
	"context"
	"log/slog"
	"maps"
	"slices"
	"sync"
	"time"
)

// NetworkOptions configures a Network. Zero values select the defaults.
type NetworkOptions struct {
	// Name is the name this lamp advertises
	Name string

	// Magic tags this application's vendor section in advertisements
	Magic uint16

	// TTLAdjustment is subtracted from the ttl of every received broadcast
	TTLAdjustment int

	// MonitorInterval is the delay between monitor ticks
	MonitorInterval time.Duration

	Clock  Clock
	Logger *slog.Logger
}

// Network is the gossip coordinator. It turns scan results into peer and
// broadcast state, notifies observers, and pushes local state to a Delegate
// for transmission.
//
// Scan handling and monitor ticks are serialised so each runs to completion
// before the other starts. Observers and the delegate are called without any
// state lock held, so they may call AnnounceAttribute, SendBroadcast and the
// read accessors, but must not call ObservedLamp, HandleScanResult, Tick or
// StopMonitoring. StopMonitoring waits for the running tick, so calling it
// from that tick's callback never returns.
type Network struct {
	name            string
	magic           uint16
	ttlAdjustment   int
	monitorInterval time.Duration
	clock           Clock
	logger          *slog.Logger

	// runMu serialises scan handling with monitor ticks
	runMu sync.Mutex

	// pushMu keeps delegate pushes in the order their snapshots were taken
	pushMu sync.Mutex

	mu         sync.Mutex
	registry   *PeerRegistry
	messages   *BroadcastMessageStore
	attributes map[Code]Attribute
	observers  []Observer
	delegate   Delegate

	monitorMu sync.Mutex
	cancel    context.CancelFunc
	done      chan struct{}
}

// NewNetwork creates a coordinator.
func NewNetwork(opts NetworkOptions) *Network {
	if opts.Magic == 0 {
		opts.Magic = DefaultMagicNumber
	}
	if opts.TTLAdjustment <= 0 {
		opts.TTLAdjustment = DefaultTTLAdjustment
	}
	if opts.MonitorInterval <= 0 {
		opts.MonitorInterval = MonitorInterval
	}
	if opts.Clock == nil {
		opts.Clock = SystemClock
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	return &Network{
		name:            opts.Name,
		magic:           opts.Magic,
		ttlAdjustment:   opts.TTLAdjustment,
		monitorInterval: opts.MonitorInterval,
		clock:           opts.Clock,
		logger:          opts.Logger,
		registry:        NewPeerRegistry(opts.Clock),
		messages:        NewBroadcastMessageStore(opts.Clock),
		attributes:      make(map[Code]Attribute),
	}
}

// Name returns the name this lamp advertises.
func (n *Network) Name() string {
	return n.name
}

// Magic returns the magic number used to recognise peers' vendor sections.
func (n *Network) Magic() uint16 {
	return n.magic
}

// Clock returns the clock the network reads time from.
func (n *Network) Clock() Clock {
	return n.clock
}

// SetDelegate attaches the component that transmits local state and pushes
// the current state to it. A nil delegate detaches.
func (n *Network) SetDelegate(delegate Delegate) {
	n.mu.Lock()
	n.delegate = delegate
	n.mu.Unlock()

	if delegate != nil {
		n.pushAttributes()
		n.pushMessages()
	}
}

// AddObserver registers an observer. Adding the same observer twice has no
// effect.
func (n *Network) AddObserver(observer Observer) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if slices.Contains(n.observers, observer) {
		return
	}
	n.observers = append(n.observers, observer)
}

// RemoveObserver unregisters an observer.
func (n *Network) RemoveObserver(observer Observer) {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.observers = slices.DeleteFunc(n.observers, func(o Observer) bool { return o == observer })
}

// AnnounceAttribute sets an attribute of this lamp and pushes the full
// attribute set to the delegate.
func (n *Network) AnnounceAttribute(attribute Attribute) {
	n.mu.Lock()
	n.attributes[attribute.Code] = NewAttribute(attribute.Code, attribute.Value...)
	n.mu.Unlock()

	n.logger.Debug("announcing attribute", "code", attribute.Code, "value", attribute.Value)
	n.pushAttributes()
}

// SendBroadcast starts a broadcast from this lamp, replacing any message
// held under the same code, and pushes the messages to the delegate.
func (n *Network) SendBroadcast(code Code, payload []byte, ttl uint8) {
	n.mu.Lock()
	n.messages.SetMessage(NewBroadcastMessage(code, ttl, payload))
	n.mu.Unlock()

	n.logger.Debug("sending broadcast", "code", code, "ttl", ttl)
	n.pushMessages()
}

// Attributes returns this lamp's announced attributes ordered by code.
func (n *Network) Attributes() []Attribute {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.sortedAttributesLocked()
}

func (n *Network) sortedAttributesLocked() []Attribute {
	attrs := make([]Attribute, 0, len(n.attributes))
	for _, code := range slices.Sorted(maps.Keys(n.attributes)) {
		attrs = append(attrs, n.attributes[code])
	}
	return attrs
}

// Messages returns the live broadcast messages with their effective ttl.
func (n *Network) Messages() []BroadcastMessage {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.messages.Messages()
}

// Message returns the live broadcast held under code.
func (n *Network) Message(code Code) (BroadcastMessage, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.messages.Get(code)
}

// Lamps returns every known peer ordered by ID.
func (n *Network) Lamps() []Peer {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.registry.Peers()
}

// Lamp returns the peer with the given ID.
func (n *Network) Lamp(id PeerID) (Peer, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.registry.Get(id)
}

// VisibleLamps returns peers seen within VisibleTimeout.
func (n *Network) VisibleLamps() []Peer {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.registry.Visible()
}

// ArrivedLamps returns peers first seen within ArrivalTimeout.
func (n *Network) ArrivedLamps() []Peer {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.registry.Arrived()
}

// DepartedLamps returns peers not seen for StaleTimeout that have not been
// pruned yet.
func (n *Network) DepartedLamps() []Peer {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.registry.Departed()
}

// HandleScanResult parses a raw advertisement and feeds it to ObservedLamp.
// Advertisements without records tagged with this network's magic number
// are ignored.
func (n *Network) HandleScanResult(result ScanResult) {
	decoded := ParsePayload(result.Address, result.Data, n.magic)
	if !decoded.HasMessages() {
		return
	}
	n.ObservedLamp(decoded.Address, decoded.Name, result.RSSI, decoded.Messages)
}

// ObservedLamp handles one decoded advertisement from a peer. Records that
// fail to decode are dropped.
func (n *Network) ObservedLamp(id PeerID, name string, rssi int, records [][]byte) {
	attributes, messages, skipped := SplitRecords(records)
	if skipped > 0 {
		n.logger.Debug("dropped malformed records", "lamp", id, "count", skipped)
	}

	n.runMu.Lock()
	defer n.runMu.Unlock()

	n.mu.Lock()
	obs := n.registry.ObservedLamp(id, name, rssi, attributes)
	messagesChanged := n.messages.UpdateMessages(messages, n.ttlAdjustment)
	var held []BroadcastMessage
	if messagesChanged {
		held = n.messages.Messages()
	}
	observers := slices.Clone(n.observers)
	n.mu.Unlock()

	switch {
	case obs.New:
		n.logger.Info("lamp appeared", "lamp", id, "name", name, "rssi", rssi)
		for _, o := range observers {
			o.NewLampAppeared(obs.Peer)
		}
		publishAttributeChanges(observers, obs)
	case obs.Changed:
		n.logger.Debug("lamp changed", "lamp", id, "codes", obs.Codes)
		for _, o := range observers {
			o.LampChanged(obs.Peer)
		}
		publishAttributeChanges(observers, obs)
	}

	if messagesChanged {
		n.pushMessages()
		for _, o := range observers {
			for _, msg := range held {
				o.MessageObserved(msg)
			}
		}
	}
}

func publishAttributeChanges(observers []Observer, obs Observation) {
	for _, o := range observers {
		for _, code := range obs.Codes {
			o.LampAttributeChanged(obs.Peer, obs.Peer.Attributes[code])
		}
	}
}

// Tick runs one monitor iteration: departed peers are announced and then
// pruned, and expired broadcasts are removed and announced.
func (n *Network) Tick() {
	n.runMu.Lock()
	defer n.runMu.Unlock()

	n.mu.Lock()
	now := n.clock.Now()
	departed := n.registry.DepartedAt(now)
	observers := slices.Clone(n.observers)
	n.mu.Unlock()

	if len(departed) > 0 {
		n.logger.Info("lamps departed", "count", len(departed))
		for _, o := range observers {
			o.LampsDeparted(departed)
		}
		n.mu.Lock()
		n.registry.PruneStaleLampsAt(now)
		n.mu.Unlock()
	}

	n.mu.Lock()
	expired := n.messages.PruneExpiredMessagesAt(now)
	n.mu.Unlock()

	if len(expired) > 0 {
		n.logger.Debug("broadcasts expired", "codes", expired)
		n.pushMessages()
		for _, o := range observers {
			for _, code := range expired {
				o.MessageStopped(code)
			}
		}
	}
}

// StartMonitoring starts the monitor loop in the background. It is a no-op
// when the loop is already running.
func (n *Network) StartMonitoring() {
	n.monitorMu.Lock()
	defer n.monitorMu.Unlock()

	if n.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	n.cancel = cancel
	n.done = done

	go n.monitor(ctx, done)
	n.logger.Debug("monitoring started", "interval", n.monitorInterval)
}

// StopMonitoring stops the monitor loop and waits for the current tick to
// finish. It is a no-op when the loop is not running.
func (n *Network) StopMonitoring() {
	n.monitorMu.Lock()
	defer n.monitorMu.Unlock()

	if n.cancel == nil {
		return
	}

	n.cancel()
	<-n.done
	n.cancel = nil
	n.done = nil
	n.logger.Debug("monitoring stopped")
}

// Monitoring reports whether the monitor loop is running.
func (n *Network) Monitoring() bool {
	n.monitorMu.Lock()
	defer n.monitorMu.Unlock()
	return n.cancel != nil
}

func (n *Network) monitor(ctx context.Context, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(n.monitorInterval)
	defer ticker.Stop()

	for {
		n.Tick()

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (n *Network) pushAttributes() {
	n.pushMu.Lock()
	defer n.pushMu.Unlock()

	n.mu.Lock()
	delegate := n.delegate
	attrs := n.sortedAttributesLocked()
	n.mu.Unlock()

	if delegate != nil {
		delegate.AnnounceAttributes(attrs)
	}
}

func (n *Network) pushMessages() {
	n.pushMu.Lock()
	defer n.pushMu.Unlock()

	n.mu.Lock()
	delegate := n.delegate
	msgs := n.messages.Decaying()
	n.mu.Unlock()

	if delegate != nil {
		delegate.BroadcastMessages(msgs)
	}
}
