package lamp

import (
	"cmp"
	"maps"
	"slices"
	"time"
)

// Peer is the last known state of another lamp.
type Peer struct {
	ID         PeerID
	Name       string
	RSSI       int
	FirstSeen  time.Time
	LastSeen   time.Time
	Attributes map[Code]Attribute
}

func newPeer(id PeerID, name string, rssi int, attributes []Attribute, now time.Time) *Peer {
	peer := &Peer{
		ID:         id,
		Name:       name,
		RSSI:       rssi,
		FirstSeen:  now,
		LastSeen:   now,
		Attributes: make(map[Code]Attribute, len(attributes)),
	}
	for _, attr := range attributes {
		peer.Attributes[attr.Code] = attr
	}
	return peer
}

// Update records a new observation of the peer. LastSeen is always bumped.
// It returns the codes of attributes whose value differs from what was
// stored, in the order they were given, and false when name, RSSI and every
// attribute were identical to before. Attributes absent from the observation
// are kept.
func (p *Peer) Update(name string, rssi int, attributes []Attribute, now time.Time) ([]Code, bool) {
	p.LastSeen = now

	var changed []Code
	for _, attr := range attributes {
		if existing, ok := p.Attributes[attr.Code]; ok && existing.Equal(attr) {
			continue
		}
		if !slices.Contains(changed, attr.Code) {
			changed = append(changed, attr.Code)
		}
	}

	if name == p.Name && rssi == p.RSSI && len(changed) == 0 {
		return nil, false
	}

	p.Name = name
	p.RSSI = rssi
	for _, attr := range attributes {
		p.Attributes[attr.Code] = attr
	}
	return changed, true
}

// Attribute returns the attribute stored under code.
func (p Peer) Attribute(code Code) (Attribute, bool) {
	attr, ok := p.Attributes[code]
	return attr, ok
}

// SortedAttributes returns the peer's attributes ordered by code.
func (p Peer) SortedAttributes() []Attribute {
	codes := slices.Sorted(maps.Keys(p.Attributes))
	attrs := make([]Attribute, 0, len(codes))
	for _, code := range codes {
		attrs = append(attrs, p.Attributes[code])
	}
	return attrs
}

// VisibleAt reports whether the peer was last seen within VisibleTimeout of now.
func (p Peer) VisibleAt(now time.Time) bool {
	return now.Sub(p.LastSeen) < VisibleTimeout
}

// ArrivedAt reports whether the peer was first seen within ArrivalTimeout of now.
func (p Peer) ArrivedAt(now time.Time) bool {
	return now.Sub(p.FirstSeen) < ArrivalTimeout
}

// DepartedAt reports whether the peer has gone unseen for StaleTimeout.
func (p Peer) DepartedAt(now time.Time) bool {
	return now.Sub(p.LastSeen) >= StaleTimeout
}

// Clone returns a copy that does not share the attribute map.
func (p Peer) Clone() Peer {
	p.Attributes = maps.Clone(p.Attributes)
	if p.Attributes == nil {
		p.Attributes = map[Code]Attribute{}
	}
	return p
}

// Observation is the outcome of PeerRegistry.ObservedLamp.
type Observation struct {
	// Peer is a snapshot of the peer after the observation was applied
	Peer Peer

	// New is set when the peer was not known before
	New bool

	// Changed is false when the observation matched the stored state exactly
	Changed bool

	// Codes lists the attributes to report as changed. For a new peer it
	// holds every attribute it announced.
	Codes []Code
}

// PeerRegistry tracks every peer seen and classifies them by how recently
// they were observed. It is not safe for concurrent use.
type PeerRegistry struct {
	clock Clock
	lamps map[PeerID]*Peer
}

// NewPeerRegistry creates an empty registry. A nil clock uses SystemClock.
func NewPeerRegistry(clock Clock) *PeerRegistry {
	if clock == nil {
		clock = SystemClock
	}
	return &PeerRegistry{
		clock: clock,
		lamps: make(map[PeerID]*Peer),
	}
}

// ObservedLamp records a scan of the peer with the given id, creating it if
// it is unknown.
func (r *PeerRegistry) ObservedLamp(id PeerID, name string, rssi int, attributes []Attribute) Observation {
	now := r.clock.Now()

	peer, ok := r.lamps[id]
	if !ok {
		peer = newPeer(id, name, rssi, attributes, now)
		r.lamps[id] = peer

		codes := make([]Code, 0, len(attributes))
		for _, attr := range attributes {
			if !slices.Contains(codes, attr.Code) {
				codes = append(codes, attr.Code)
			}
		}
		return Observation{Peer: peer.Clone(), New: true, Changed: true, Codes: codes}
	}

	codes, changed := peer.Update(name, rssi, attributes, now)
	return Observation{Peer: peer.Clone(), Changed: changed, Codes: codes}
}

// Get returns a snapshot of the peer with the given id.
func (r *PeerRegistry) Get(id PeerID) (Peer, bool) {
	peer, ok := r.lamps[id]
	if !ok {
		return Peer{}, false
	}
	return peer.Clone(), true
}

// Contains reports whether the peer is known.
func (r *PeerRegistry) Contains(id PeerID) bool {
	_, ok := r.lamps[id]
	return ok
}

// Len returns the number of known peers, including stale ones.
func (r *PeerRegistry) Len() int {
	return len(r.lamps)
}

// Peers returns snapshots of all known peers ordered by ID.
func (r *PeerRegistry) Peers() []Peer {
	return r.filter(func(*Peer) bool { return true })
}

// Visible returns peers last seen within VisibleTimeout.
func (r *PeerRegistry) Visible() []Peer {
	return r.VisibleAt(r.clock.Now())
}

// VisibleAt is Visible evaluated at now.
func (r *PeerRegistry) VisibleAt(now time.Time) []Peer {
	return r.filter(func(p *Peer) bool { return p.VisibleAt(now) })
}

// Arrived returns peers first seen within ArrivalTimeout.
func (r *PeerRegistry) Arrived() []Peer {
	return r.ArrivedAt(r.clock.Now())
}

// ArrivedAt is Arrived evaluated at now.
func (r *PeerRegistry) ArrivedAt(now time.Time) []Peer {
	return r.filter(func(p *Peer) bool { return p.ArrivedAt(now) })
}

// Departed returns peers not seen for at least StaleTimeout.
func (r *PeerRegistry) Departed() []Peer {
	return r.DepartedAt(r.clock.Now())
}

// DepartedAt is Departed evaluated at now.
func (r *PeerRegistry) DepartedAt(now time.Time) []Peer {
	return r.filter(func(p *Peer) bool { return p.DepartedAt(now) })
}

// PruneStaleLamps removes the departed peers and returns their IDs.
func (r *PeerRegistry) PruneStaleLamps() []PeerID {
	return r.PruneStaleLampsAt(r.clock.Now())
}

// PruneStaleLampsAt removes exactly the peers DepartedAt(now) would return.
func (r *PeerRegistry) PruneStaleLampsAt(now time.Time) []PeerID {
	var removed []PeerID
	for id, peer := range r.lamps {
		if peer.DepartedAt(now) {
			removed = append(removed, id)
		}
	}
	for _, id := range removed {
		delete(r.lamps, id)
	}
	slices.Sort(removed)
	return removed
}

func (r *PeerRegistry) filter(keep func(*Peer) bool) []Peer {
	peers := make([]Peer, 0, len(r.lamps))
	for _, peer := range r.lamps {
		if keep(peer) {
			peers = append(peers, peer.Clone())
		}
	}
	slices.SortFunc(peers, func(a, b Peer) int { return cmp.Compare(a.ID, b.ID) })
	return peers
}
