package lamp

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"

	"github.com/Lamprichauns/lamp-os/internal/errors"
)

// Code identifies an attribute or broadcast message on the wire.
type Code uint8

// Attribute codes
const (
	CodeVersion    Code = 0x00 // 16-bit version
	CodeBaseColor  Code = 0x01 // r, g, b, w
	CodeShadeColor Code = 0x02 // r, g, b, w
)

// Broadcast codes
const (
	CodeBaseOverride  Code = 0x91
	CodeShadeOverride Code = 0x92
)

// FirstBroadcastCode is the lowest code that denotes a broadcast message.
// Anything below it is a persistent attribute.
const FirstBroadcastCode Code = 0x90

// IsBroadcast reports whether the code denotes an ephemeral broadcast message.
func (c Code) IsBroadcast() bool {
	return c >= FirstBroadcastCode
}

// String returns the registered name of the code, or its hex value.
func (c Code) String() string {
	switch c {
	case CodeVersion:
		return "VERSION"
	case CodeBaseColor:
		return "BASE_COLOR"
	case CodeShadeColor:
		return "SHADE_COLOR"
	case CodeBaseOverride:
		return "BASE_OVERRIDE"
	case CodeShadeOverride:
		return "SHADE_OVERRIDE"
	default:
		return fmt.Sprintf("0x%02x", uint8(c))
	}
}

var registeredCodes = []Code{CodeVersion, CodeBaseColor, CodeShadeColor, CodeBaseOverride, CodeShadeOverride}

// ParseCode accepts a registered code name such as "shade_override", or a
// number in decimal or 0x hex.
func ParseCode(s string) (Code, error) {
	s = strings.TrimSpace(s)
	for _, c := range registeredCodes {
		if strings.EqualFold(s, c.String()) {
			return c, nil
		}
	}
	n, err := strconv.ParseUint(s, 0, 8)
	if err != nil {
		return 0, errors.InvalidInputf("unknown code %q", s)
	}
	return Code(n), nil
}

// Attribute is a piece of persistent lamp state announced on every
// advertisement. Value holds one byte per element, except for CodeVersion
// which holds a big-endian uint16. Attributes are not modified after
// construction.
type Attribute struct {
	Code  Code
	Value []byte
}

// NewAttribute creates an attribute, copying value.
func NewAttribute(code Code, value ...byte) Attribute {
	return Attribute{Code: code, Value: bytes.Clone(value)}
}

// NewVersionAttribute creates a VERSION attribute.
func NewVersionAttribute(version uint16) Attribute {
	return Attribute{Code: CodeVersion, Value: binary.BigEndian.AppendUint16(nil, version)}
}

// Version returns the value of a VERSION attribute.
func (a Attribute) Version() uint16 {
	if len(a.Value) < 2 {
		return 0
	}
	return binary.BigEndian.Uint16(a.Value)
}

// Equal reports whether both attributes have the same code and value.
func (a Attribute) Equal(other Attribute) bool {
	return a.Code == other.Code && bytes.Equal(a.Value, other.Value)
}

// Encode returns the wire form: the code followed by the value bytes.
func (a Attribute) Encode() []byte {
	out := make([]byte, 0, 1+len(a.Value))
	out = append(out, byte(a.Code))
	return append(out, a.Value...)
}

// DecodeAttribute is the inverse of Attribute.Encode.
func DecodeAttribute(data []byte) (Attribute, error) {
	if len(data) == 0 {
		return Attribute{}, errors.Malformedf("empty attribute record")
	}
	code := Code(data[0])
	if code == CodeVersion {
		if len(data) < 3 {
			return Attribute{}, errors.Malformedf("version attribute has %d bytes, need 3", len(data))
		}
		return Attribute{Code: code, Value: bytes.Clone(data[1:3])}, nil
	}
	return Attribute{Code: code, Value: bytes.Clone(data[1:])}, nil
}

// BroadcastMessage is an ephemeral mesh-wide event. TTL is the remaining
// hop/time budget; a nil Payload is omitted on the wire.
type BroadcastMessage struct {
	Code    Code
	TTL     uint8
	Payload []byte
}

// NewBroadcastMessage creates a message, copying payload. A nil payload
// stays nil.
func NewBroadcastMessage(code Code, ttl uint8, payload []byte) BroadcastMessage {
	return BroadcastMessage{Code: code, TTL: ttl, Payload: bytes.Clone(payload)}
}

// Equal reports whether both messages have the same code, ttl and payload.
func (m BroadcastMessage) Equal(other BroadcastMessage) bool {
	return m.Code == other.Code && m.TTL == other.TTL && bytes.Equal(m.Payload, other.Payload)
}

// Encode returns the wire form: code, ttl, then the payload bytes.
func (m BroadcastMessage) Encode() []byte {
	out := make([]byte, 0, 2+len(m.Payload))
	out = append(out, byte(m.Code), m.TTL)
	return append(out, m.Payload...)
}

// DecodeBroadcastMessage is the inverse of BroadcastMessage.Encode. A
// two-byte record decodes with a nil payload.
func DecodeBroadcastMessage(data []byte) (BroadcastMessage, error) {
	if len(data) < 2 {
		return BroadcastMessage{}, errors.Malformedf("broadcast record has %d bytes, need 2", len(data))
	}
	msg := BroadcastMessage{Code: Code(data[0]), TTL: data[1]}
	if len(data) > 2 {
		msg.Payload = bytes.Clone(data[2:])
	}
	return msg, nil
}

// SplitRecords decodes raw records into attributes and broadcast messages,
// preserving their order. Records that fail to decode are returned in skipped
// and otherwise ignored.
func SplitRecords(records [][]byte) (attributes []Attribute, messages []BroadcastMessage, skipped int) {
	for _, record := range records {
		if len(record) == 0 {
			skipped++
			continue
		}
		if Code(record[0]).IsBroadcast() {
			msg, err := DecodeBroadcastMessage(record)
			if err != nil {
				skipped++
				continue
			}
			messages = append(messages, msg)
			continue
		}
		attr, err := DecodeAttribute(record)
		if err != nil {
			skipped++
			continue
		}
		attributes = append(attributes, attr)
	}
	return attributes, messages, skipped
}
