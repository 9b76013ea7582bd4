package events

import (
	"encoding/hex"
	"time"

	"github.com/Lamprichauns/lamp-os/pkg/lamp"
)

// LampData is the event payload describing a peer lamp.
type LampData struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	RSSI      int       `json:"rssi"`
	FirstSeen time.Time `json:"first_seen"`
	LastSeen  time.Time `json:"last_seen"`
}

// AttributeData is the event payload describing an attribute.
type AttributeData struct {
	Lamp  string `json:"lamp,omitempty"`
	Code  uint8  `json:"code"`
	Name  string `json:"name"`
	Value string `json:"value"`
}

// MessageData is the event payload describing a broadcast message.
type MessageData struct {
	Code    uint8  `json:"code"`
	Name    string `json:"name"`
	TTL     uint8  `json:"ttl"`
	Payload string `json:"payload"`
}

// NewLampData converts a peer to its event payload.
func NewLampData(p lamp.Peer) LampData {
	return LampData{
		ID:        p.ID.String(),
		Name:      p.Name,
		RSSI:      p.RSSI,
		FirstSeen: p.FirstSeen,
		LastSeen:  p.LastSeen,
	}
}

// NewAttributeData converts an attribute to its event payload.
func NewAttributeData(owner string, a lamp.Attribute) AttributeData {
	return AttributeData{
		Lamp:  owner,
		Code:  uint8(a.Code),
		Name:  a.Code.String(),
		Value: hex.EncodeToString(a.Value),
	}
}

// NewMessageData converts a broadcast message to its event payload.
func NewMessageData(m lamp.BroadcastMessage) MessageData {
	return MessageData{
		Code:    uint8(m.Code),
		Name:    m.Code.String(),
		TTL:     m.TTL,
		Payload: hex.EncodeToString(m.Payload),
	}
}

// BusObserver publishes network notifications on a Bus.
type BusObserver struct {
	bus *Bus
}

// NewBusObserver creates an observer publishing to bus.
func NewBusObserver(bus *Bus) *BusObserver {
	return &BusObserver{bus: bus}
}

var _ lamp.Observer = (*BusObserver)(nil)

func (o *BusObserver) NewLampAppeared(p lamp.Peer) {
	o.bus.Publish(NewEvent(LampAppeared, NewLampData(p)))
}

func (o *BusObserver) LampChanged(p lamp.Peer) {
	o.bus.Publish(NewEvent(LampChanged, NewLampData(p)))
}

func (o *BusObserver) LampAttributeChanged(p lamp.Peer, a lamp.Attribute) {
	o.bus.Publish(NewEvent(LampAttributeChanged, NewAttributeData(p.ID.String(), a)))
}

func (o *BusObserver) LampsDeparted(peers []lamp.Peer) {
	data := make([]LampData, len(peers))
	for i, p := range peers {
		data[i] = NewLampData(p)
	}
	o.bus.Publish(NewEvent(LampsDeparted, data))
}

func (o *BusObserver) MessageObserved(m lamp.BroadcastMessage) {
	o.bus.Publish(NewEvent(MessageObserved, NewMessageData(m)))
}

func (o *BusObserver) MessageStopped(code lamp.Code) {
	o.bus.Publish(NewEvent(MessageStopped, MessageData{Code: uint8(code), Name: code.String()}))
}
