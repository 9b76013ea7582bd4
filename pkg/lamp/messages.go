package lamp

import (
	"maps"
	"slices"
	"time"
)

// DecayingBroadcastMessage is a held broadcast whose ttl drops by one every
// TTLTick since CreatedAt. The embedded TTL is the value at creation.
type DecayingBroadcastMessage struct {
	BroadcastMessage
	CreatedAt time.Time
}

// TTLAt returns the effective ttl at now, never below zero. A now before
// CreatedAt yields the stored ttl.
func (m DecayingBroadcastMessage) TTLAt(now time.Time) uint8 {
	elapsed := now.Sub(m.CreatedAt)
	if elapsed <= 0 {
		return m.TTL
	}
	ticks := elapsed / TTLTick
	if ticks >= time.Duration(m.TTL) {
		return 0
	}
	return m.TTL - uint8(ticks)
}

// At returns a copy of the message carrying its effective ttl at now.
func (m DecayingBroadcastMessage) At(now time.Time) BroadcastMessage {
	msg := m.BroadcastMessage
	msg.TTL = m.TTLAt(now)
	return msg
}

// BroadcastMessageStore holds at most one message per broadcast code. It is
// not safe for concurrent use.
type BroadcastMessageStore struct {
	clock    Clock
	messages map[Code]DecayingBroadcastMessage
}

// NewBroadcastMessageStore creates an empty store. A nil clock uses
// SystemClock.
func NewBroadcastMessageStore(clock Clock) *BroadcastMessageStore {
	if clock == nil {
		clock = SystemClock
	}
	return &BroadcastMessageStore{
		clock:    clock,
		messages: make(map[Code]DecayingBroadcastMessage),
	}
}

// SetMessage stores msg under its code, replacing any existing message, and
// starts its decay from now.
func (s *BroadcastMessageStore) SetMessage(msg BroadcastMessage) {
	s.messages[msg.Code] = DecayingBroadcastMessage{
		BroadcastMessage: NewBroadcastMessage(msg.Code, msg.TTL, msg.Payload),
		CreatedAt:        s.clock.Now(),
	}
}

// UpdateMessages merges messages received from a peer. Each incoming ttl is
// reduced by ttlAdjustment first; results of 1 or less are dropped. A message
// replaces the held one only when its adjusted ttl is strictly greater than
// the held message's effective ttl. It reports whether anything was stored.
func (s *BroadcastMessageStore) UpdateMessages(incoming []BroadcastMessage, ttlAdjustment int) bool {
	now := s.clock.Now()
	changed := false

	for _, msg := range incoming {
		adjusted := int(msg.TTL) - ttlAdjustment
		if adjusted <= 1 {
			continue
		}
		if held, ok := s.messages[msg.Code]; ok && int(held.TTLAt(now)) >= adjusted {
			continue
		}
		s.messages[msg.Code] = DecayingBroadcastMessage{
			BroadcastMessage: NewBroadcastMessage(msg.Code, uint8(min(adjusted, 0xff)), msg.Payload),
			CreatedAt:        now,
		}
		changed = true
	}
	return changed
}

// PruneExpiredMessages removes every message whose effective ttl reached zero
// and returns their codes in ascending order.
func (s *BroadcastMessageStore) PruneExpiredMessages() []Code {
	return s.PruneExpiredMessagesAt(s.clock.Now())
}

// PruneExpiredMessagesAt is PruneExpiredMessages evaluated at now.
func (s *BroadcastMessageStore) PruneExpiredMessagesAt(now time.Time) []Code {
	var expired []Code
	for code, msg := range s.messages {
		if msg.TTLAt(now) == 0 {
			expired = append(expired, code)
		}
	}
	for _, code := range expired {
		delete(s.messages, code)
	}
	slices.Sort(expired)
	return expired
}

// Messages returns the live messages, ordered by code, each carrying its
// effective ttl. Expired messages awaiting pruning are left out.
func (s *BroadcastMessageStore) Messages() []BroadcastMessage {
	now := s.clock.Now()
	msgs := make([]BroadcastMessage, 0, len(s.messages))
	for _, code := range slices.Sorted(maps.Keys(s.messages)) {
		msg := s.messages[code].At(now)
		if msg.TTL == 0 {
			continue
		}
		msgs = append(msgs, msg)
	}
	return msgs
}

// Decaying returns every held message as stored, ordered by code.
func (s *BroadcastMessageStore) Decaying() []DecayingBroadcastMessage {
	msgs := make([]DecayingBroadcastMessage, 0, len(s.messages))
	for _, code := range slices.Sorted(maps.Keys(s.messages)) {
		msgs = append(msgs, s.messages[code])
	}
	return msgs
}

// Get returns the live message held under code with its effective ttl.
func (s *BroadcastMessageStore) Get(code Code) (BroadcastMessage, bool) {
	held, ok := s.messages[code]
	if !ok {
		return BroadcastMessage{}, false
	}
	msg := held.At(s.clock.Now())
	if msg.TTL == 0 {
		return BroadcastMessage{}, false
	}
	return msg, true
}

// Len returns the number of held messages, including expired ones not yet
// pruned.
func (s *BroadcastMessageStore) Len() int {
	return len(s.messages)
}
