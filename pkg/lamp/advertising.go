package lamp

import (
	"bytes"
	"encoding/binary"
	"log/slog"
	"strings"
	"unicode/utf8"
)

// Advertisement field types
const (
	advTypeFlags                = 0x01
	advTypeName                 = 0x09
	advTypeManufacturerSpecific = 0xff

	// LE general discoverable, BR/EDR not supported
	advFlagsValue = 0x06
)

const (
	// NameMaxLen is the longest name carried in an advertisement
	NameMaxLen = 6

	// AdvDataMaxLen is the radio-defined maximum advertisement size
	AdvDataMaxLen = 31

	// flags field (3) + name field header (2) + vendor field header with magic (4)
	advHeaderOverhead = 9

	// the record length prefix counts itself and must fit in one byte
	maxRecordSize = 0xff

	// MaxRecordLen is the longest encoded record that still fits in a frame
	// beside a full-length name
	MaxRecordLen = AdvDataMaxLen - advHeaderOverhead - NameMaxLen - 2
)

// PayloadPacker builds advertisement frames for a fixed name and magic number.
type PayloadPacker struct {
	name             string
	magic            uint16
	maxMessageLength int
}

// NewPayloadPacker creates a packer. maxMessageLength bounds the packed
// record section of the vendor field.
func NewPayloadPacker(name string, magic uint16, maxMessageLength int) *PayloadPacker {
	return &PayloadPacker{
		name:             name,
		magic:            magic,
		maxMessageLength: maxMessageLength,
	}
}

// packRecords length-prefixes records greedily, in order, stopping at the
// first one that does not fit.
func (p *PayloadPacker) packRecords(records [][]byte) ([]byte, int) {
	packed := make([]byte, 0, max(p.maxMessageLength, 0))
	count := 0
	for _, record := range records {
		size := len(record) + 1
		if size > maxRecordSize || len(packed)+size >= p.maxMessageLength {
			break
		}
		packed = append(packed, byte(size))
		packed = append(packed, record...)
		count++
	}
	return packed, count
}

// BuildPayload returns an advertisement frame holding the flags, the name and,
// when records is non-empty, a vendor field tagged with the magic number
// containing as many records as fit. The second result is how many records
// were packed.
func (p *PayloadPacker) BuildPayload(records [][]byte) ([]byte, int) {
	frame := make([]byte, 0, AdvDataMaxLen)
	frame = appendField(frame, advTypeFlags, []byte{advFlagsValue})
	frame = appendField(frame, advTypeName, []byte(p.name))

	count := 0
	if len(records) > 0 {
		var packed []byte
		packed, count = p.packRecords(records)
		frame = append(frame, byte(len(packed)+3), advTypeManufacturerSpecific)
		frame = binary.LittleEndian.AppendUint16(frame, p.magic)
		frame = append(frame, packed...)
	}
	return frame, count
}

func appendField(frame []byte, advType byte, value []byte) []byte {
	frame = append(frame, byte(len(value)+1), advType)
	return append(frame, value...)
}

// DecodedPayload is the result of parsing a peer's advertisement.
type DecodedPayload struct {
	Name     string
	Address  PeerID
	Messages [][]byte
}

// HasMessages reports whether at least one record was recovered.
func (d DecodedPayload) HasMessages() bool {
	return len(d.Messages) > 0
}

type advField struct {
	advType byte
	data    []byte
}

// advFields walks the length/type/value fields of a frame. A field whose
// length runs past the end of the frame is cut at the end and is the last
// one returned.
func advFields(frame []byte) []advField {
	var fields []advField
	for i := 0; i+1 < len(frame); {
		length := int(frame[i])
		if length == 0 {
			i++
			continue
		}
		end := min(i+1+length, len(frame))
		fields = append(fields, advField{advType: frame[i+1], data: frame[i+2 : end]})
		i = end
	}
	return fields
}

// unpackRecords splits a packed record section. Empty records are skipped;
// a zero or overrunning length prefix ends the section since nothing after
// it can be trusted.
func unpackRecords(packed []byte) [][]byte {
	var records [][]byte
	for i := 0; i < len(packed); {
		size := int(packed[i])
		if size == 0 || i+size > len(packed) {
			break
		}
		if size > 1 {
			records = append(records, bytes.Clone(packed[i+1:i+size]))
		}
		i += size
	}
	return records
}

// ParsePayload decodes a raw advertisement from address. Records are taken
// from every vendor field tagged with magic. Malformed fields and records are
// skipped; ParsePayload never panics on arbitrary input.
func ParsePayload(address []byte, frame []byte, magic uint16) DecodedPayload {
	decoded := DecodedPayload{Address: PeerIDFromAddress(address)}
	nameFound := false

	for _, field := range advFields(frame) {
		switch field.advType {
		case advTypeName:
			if !nameFound {
				decoded.Name = strings.ToValidUTF8(string(field.data), "")
				nameFound = true
			}
		case advTypeManufacturerSpecific:
			if len(field.data) < 2 || binary.LittleEndian.Uint16(field.data) != magic {
				continue
			}
			decoded.Messages = append(decoded.Messages, unpackRecords(field.data[2:])...)
		}
	}
	return decoded
}

// PeerIDFromAddress derives a peer ID from a 6-byte radio address: the first
// two bytes (little endian) form the high 16 bits and the next four (little
// endian) the low 32 bits. Shorter addresses are folded big endian.
func PeerIDFromAddress(address []byte) PeerID {
	if len(address) >= 6 {
		hi := uint64(binary.LittleEndian.Uint16(address[0:2]))
		lo := uint64(binary.LittleEndian.Uint32(address[2:6]))
		return PeerID(hi<<32 | lo)
	}
	var id uint64
	for _, b := range address {
		id = id<<8 | uint64(b)
	}
	return PeerID(id)
}

// Address is the inverse of PeerIDFromAddress for 48-bit IDs.
func (id PeerID) Address() []byte {
	address := make([]byte, 6)
	binary.LittleEndian.PutUint16(address[0:2], uint16(uint64(id)>>32))
	binary.LittleEndian.PutUint32(address[2:6], uint32(id))
	return address
}

// PayloadCycler rotates through a record list across successive frames so
// every record is eventually advertised even when they do not all fit in one.
// It is not safe for concurrent use.
type PayloadCycler struct {
	packer  *PayloadPacker
	logger  *slog.Logger
	records [][]byte
	index   int
}

// NewPayloadCycler creates a cycler. Names longer than NameMaxLen bytes are
// truncated with a warning.
func NewPayloadCycler(name string, magic uint16, logger *slog.Logger) *PayloadCycler {
	if logger == nil {
		logger = slog.Default()
	}
	if len(name) > NameMaxLen {
		truncated := truncateName(name, NameMaxLen)
		logger.Warn("advertised name truncated", "name", name, "truncated", truncated)
		name = truncated
	}

	maxMessageLength := AdvDataMaxLen - (len(name) + advHeaderOverhead)
	return &PayloadCycler{
		packer: NewPayloadPacker(name, magic, maxMessageLength),
		logger: logger,
	}
}

// truncateName cuts name to at most n bytes without splitting a rune.
func truncateName(name string, n int) string {
	if len(name) <= n {
		return name
	}
	cut := n
	for cut > 0 && !utf8.RuneStart(name[cut]) {
		cut--
	}
	return name[:cut]
}

// Name returns the name placed in every frame.
func (c *PayloadCycler) Name() string {
	return c.packer.name
}

// SetRecords replaces the records to cycle through. The rotation position is
// kept.
func (c *PayloadCycler) SetRecords(records [][]byte) {
	c.records = records
}

// Len returns the number of records being cycled.
func (c *PayloadCycler) Len() int {
	return len(c.records)
}

// NextPayload builds the next frame, starting from the first record that was
// not packed last time.
func (c *PayloadCycler) NextPayload() []byte {
	if len(c.records) == 0 {
		frame, _ := c.packer.BuildPayload(nil)
		return frame
	}

	c.index %= len(c.records)
	rotated := make([][]byte, 0, len(c.records))
	rotated = append(rotated, c.records[c.index:]...)
	rotated = append(rotated, c.records[:c.index]...)

	frame, packed := c.packer.BuildPayload(rotated)
	switch {
	case packed == 0:
		// A record that can never fit would otherwise stall the rotation.
		c.logger.Warn("record too large to advertise, skipping", "code", rotated[0][0], "size", len(rotated[0]))
		packed = 1
	case packed < len(rotated):
		c.logger.Debug("advertisement packed partially", "packed", packed, "total", len(rotated))
	}
	c.index += packed
	return frame
}
