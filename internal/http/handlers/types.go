// Package handlers provides typed Huma request/response structs and handler
// implementations for the lampd HTTP API.
package handlers

import (
	"encoding/binary"
	"encoding/hex"
	"strconv"
	"strings"
	"time"

	"github.com/Lamprichauns/lamp-os/internal/errors"
	"github.com/Lamprichauns/lamp-os/pkg/lamp"
)

// Gossip is the part of a lamp network the API reads and writes.
// *lamp.Network satisfies it.
type Gossip interface {
	Name() string
	Magic() uint16
	Clock() lamp.Clock
	Lamps() []lamp.Peer
	Lamp(id lamp.PeerID) (lamp.Peer, bool)
	Attributes() []lamp.Attribute
	Messages() []lamp.BroadcastMessage
	AnnounceAttribute(attribute lamp.Attribute)
	SendBroadcast(code lamp.Code, payload []byte, ttl uint8)
}

// Identity exposes this lamp's configured identity and effective colours.
// *lamp.Lamp satisfies it.
type Identity interface {
	Identity() lamp.Identity
	Colors() (base, shade lamp.Color)
}

var (
	_ Gossip   = (*lamp.Network)(nil)
	_ Identity = (*lamp.Lamp)(nil)
)

// --- Attribute and message types ---

// AttributeResponse is the API representation of an attribute.
type AttributeResponse struct {
	Code  uint8  `json:"code" doc:"Wire code"`
	Name  string `json:"name" doc:"Registered code name, or the hex code"`
	Value string `json:"value" doc:"Raw value, hex encoded"`
	Text  string `json:"text,omitempty" doc:"Decoded value for registered codes"`
}

// AttributeFromLamp converts a lamp attribute.
func AttributeFromLamp(a lamp.Attribute) AttributeResponse {
	return AttributeResponse{
		Code:  uint8(a.Code),
		Name:  a.Code.String(),
		Value: hex.EncodeToString(a.Value),
		Text:  describeValue(a.Code, a.Value),
	}
}

// AttributesFromLamp converts a list of attributes, keeping order.
func AttributesFromLamp(attrs []lamp.Attribute) []AttributeResponse {
	out := make([]AttributeResponse, len(attrs))
	for i, a := range attrs {
		out[i] = AttributeFromLamp(a)
	}
	return out
}

// MessageResponse is the API representation of a broadcast message.
type MessageResponse struct {
	Code    uint8  `json:"code" doc:"Wire code"`
	Name    string `json:"name" doc:"Registered code name, or the hex code"`
	TTL     uint8  `json:"ttl" doc:"Remaining time to live in seconds"`
	Payload string `json:"payload" doc:"Raw payload, hex encoded"`
	Text    string `json:"text,omitempty" doc:"Decoded payload for registered codes"`
}

// MessageFromLamp converts a broadcast message.
func MessageFromLamp(m lamp.BroadcastMessage) MessageResponse {
	return MessageResponse{
		Code:    uint8(m.Code),
		Name:    m.Code.String(),
		TTL:     m.TTL,
		Payload: hex.EncodeToString(m.Payload),
		Text:    describeValue(m.Code, m.Payload),
	}
}

// MessagesFromLamp converts a list of messages, keeping order.
func MessagesFromLamp(msgs []lamp.BroadcastMessage) []MessageResponse {
	out := make([]MessageResponse, len(msgs))
	for i, m := range msgs {
		out[i] = MessageFromLamp(m)
	}
	return out
}

func describeValue(code lamp.Code, value []byte) string {
	switch code {
	case lamp.CodeVersion:
		if len(value) < 2 {
			return ""
		}
		return strconv.Itoa(int(binary.BigEndian.Uint16(value)))
	case lamp.CodeBaseColor, lamp.CodeShadeColor, lamp.CodeBaseOverride, lamp.CodeShadeOverride:
		if len(value) == 0 {
			return ""
		}
		return lamp.ColorFromBytes(value).String()
	}
	return ""
}

// --- Lamp types ---

// LampResponse is the API representation of a peer lamp.
type LampResponse struct {
	ID         string              `json:"id" doc:"Peer identifier derived from the radio address"`
	Name       string              `json:"name" doc:"Advertised name"`
	RSSI       int                 `json:"rssi" doc:"Last received signal strength in dBm"`
	FirstSeen  time.Time           `json:"first_seen" doc:"When the lamp was first heard"`
	LastSeen   time.Time           `json:"last_seen" doc:"When the lamp was last heard"`
	Visible    bool                `json:"visible" doc:"Heard within the visibility window"`
	Arrived    bool                `json:"arrived" doc:"First heard within the arrival window"`
	Attributes []AttributeResponse `json:"attributes" doc:"Attributes ordered by code"`
}

// LampFromPeer converts a peer, classifying it relative to now.
func LampFromPeer(p lamp.Peer, now time.Time) LampResponse {
	return LampResponse{
		ID:         p.ID.String(),
		Name:       p.Name,
		RSSI:       p.RSSI,
		FirstSeen:  p.FirstSeen,
		LastSeen:   p.LastSeen,
		Visible:    p.VisibleAt(now),
		Arrived:    p.ArrivedAt(now),
		Attributes: AttributesFromLamp(p.SortedAttributes()),
	}
}

// LampsFromPeers converts a list of peers.
func LampsFromPeers(peers []lamp.Peer, now time.Time) []LampResponse {
	out := make([]LampResponse, len(peers))
	for i, p := range peers {
		out[i] = LampFromPeer(p, now)
	}
	return out
}

// --- Local state ---

// StatusResponse is the API representation of this lamp.
type StatusResponse struct {
	Name         string              `json:"name" doc:"Advertised name"`
	Magic        uint16              `json:"magic" doc:"Network magic number"`
	Version      uint16              `json:"version" doc:"Announced firmware version"`
	BaseColor    string              `json:"base_color" doc:"Configured base colour"`
	ShadeColor   string              `json:"shade_color" doc:"Configured shade colour"`
	CurrentBase  string              `json:"current_base" doc:"Base colour in effect, including overrides"`
	CurrentShade string              `json:"current_shade" doc:"Shade colour in effect, including overrides"`
	Attributes   []AttributeResponse `json:"attributes" doc:"Announced attributes"`
	Messages     []MessageResponse   `json:"messages" doc:"Live broadcast messages"`
	Lamps        int                 `json:"lamps" doc:"Known peer lamps"`
	Visible      int                 `json:"visible" doc:"Visible peer lamps"`
}

// NewStatusResponse describes this lamp and its view of the network.
func NewStatusResponse(network Gossip, self Identity) StatusResponse {
	id := self.Identity()
	base, shade := self.Colors()
	now := network.Clock().Now()

	lamps := network.Lamps()
	visible := 0
	for _, p := range lamps {
		if p.VisibleAt(now) {
			visible++
		}
	}

	return StatusResponse{
		Name:         network.Name(),
		Magic:        network.Magic(),
		Version:      id.Version,
		BaseColor:    id.BaseColor.String(),
		ShadeColor:   id.ShadeColor.String(),
		CurrentBase:  base.String(),
		CurrentShade: shade.String(),
		Attributes:   AttributesFromLamp(network.Attributes()),
		Messages:     MessagesFromLamp(network.Messages()),
		Lamps:        len(lamps),
		Visible:      visible,
	}
}

// --- Request parsing shared with the socket server ---

// ParseAttribute builds an attribute from an API request. The value is
// either raw hex or, for colour codes, a colour like #ff8800.
func ParseAttribute(code, value, color string) (lamp.Attribute, error) {
	c, err := lamp.ParseCode(code)
	if err != nil {
		return lamp.Attribute{}, err
	}
	if c.IsBroadcast() {
		return lamp.Attribute{}, errors.InvalidInputf("code %s is a broadcast code", c)
	}
	raw, err := parseValue(value, color)
	if err != nil {
		return lamp.Attribute{}, err
	}
	if c == lamp.CodeVersion && len(raw) != 2 {
		return lamp.Attribute{}, errors.InvalidInputf("VERSION needs 2 bytes, got %d", len(raw))
	}
	if 1+len(raw) > lamp.MaxRecordLen {
		return lamp.Attribute{}, errors.InvalidInputf("value of %d bytes does not fit in an advertisement", len(raw))
	}
	return lamp.NewAttribute(c, raw...), nil
}

// ParseBroadcast builds a broadcast message from an API request. A ttl of
// zero selects defaultTTL.
func ParseBroadcast(code, payload, color string, ttl int, defaultTTL uint8) (lamp.BroadcastMessage, error) {
	c, err := lamp.ParseCode(code)
	if err != nil {
		return lamp.BroadcastMessage{}, err
	}
	if !c.IsBroadcast() {
		return lamp.BroadcastMessage{}, errors.InvalidInputf("code %s is an attribute code", c)
	}
	if ttl < 0 || ttl > 255 {
		return lamp.BroadcastMessage{}, errors.InvalidInputf("ttl %d out of range 0-255", ttl)
	}
	if ttl == 0 {
		ttl = int(defaultTTL)
	}
	var raw []byte
	if payload != "" || color != "" {
		if raw, err = parseValue(payload, color); err != nil {
			return lamp.BroadcastMessage{}, err
		}
	}
	if 2+len(raw) > lamp.MaxRecordLen {
		return lamp.BroadcastMessage{}, errors.InvalidInputf("payload of %d bytes does not fit in an advertisement", len(raw))
	}
	return lamp.NewBroadcastMessage(c, uint8(ttl), raw), nil
}

func parseValue(value, color string) ([]byte, error) {
	switch {
	case color != "" && value != "":
		return nil, errors.InvalidInputf("give either a value or a colour, not both")
	case color != "":
		c, err := lamp.ParseColor(color)
		if err != nil {
			return nil, err
		}
		return c.Bytes(), nil
	case value == "":
		return nil, errors.InvalidInputf("value is required")
	}
	raw, err := hex.DecodeString(strings.TrimPrefix(value, "0x"))
	if err != nil {
		return nil, errors.InvalidInputf("value %q is not hex", value)
	}
	return raw, nil
}
