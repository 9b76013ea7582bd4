package lamp

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func colorRecords() [][]byte {
	return [][]byte{
		NewAttribute(CodeBaseColor, 5, 6, 7, 8).Encode(),
		NewAttribute(CodeShadeColor, 1, 2, 3, 4).Encode(),
		NewBroadcastMessage(CodeBaseOverride, 11, []byte{99, 88, 77, 66}).Encode(),
	}
}

// testAddress is the little-endian encoding of 0xffeeddccbbaa truncated to 6 bytes.
var testAddress = []byte{0xaa, 0xbb, 0xcc, 0xdd, 0xee, 0xff}

func TestPackRecordsAddsSizes(t *testing.T) {
	packer := NewPayloadPacker("test", 0x1234, 20)

	packed, count := packer.packRecords(colorRecords())

	assert.Len(t, packed, 19)
	assert.Equal(t, 3, count)
	assert.Equal(t, byte(6), packed[0])
	assert.Equal(t, byte(7), packed[12])
}

func TestPackRecordsStopsAtCapacity(t *testing.T) {
	packer := NewPayloadPacker("test", 0x1234, 16)
	records := append(colorRecords(), NewBroadcastMessage(CodeShadeOverride, 11, []byte{1, 2, 3, 4}).Encode())

	packed, count := packer.packRecords(records)

	assert.Len(t, packed, 12)
	assert.Equal(t, 2, count)
}

func TestPackRecordsKeepsOrder(t *testing.T) {
	// The third record would fit on its own, but packing never skips ahead.
	packer := NewPayloadPacker("test", 0x1234, 16)
	records := [][]byte{
		{0x01, 1, 2, 3, 4},
		{0x02, 1, 2, 3, 4, 5, 6, 7, 8, 9},
		{0x03},
	}

	packed, count := packer.packRecords(records)

	assert.Equal(t, 1, count)
	assert.Equal(t, []byte{6, 0x01, 1, 2, 3, 4}, packed)
}

func TestBuildPayloadEncodesNameAndMagic(t *testing.T) {
	packer := NewPayloadPacker("test", 0x1234, 20)

	frame, count := packer.BuildPayload(colorRecords()[:1])

	require.Equal(t, 1, count)
	assert.Equal(t, []byte{2, advTypeFlags, advFlagsValue}, frame[0:3])
	assert.Equal(t, []byte{5, advTypeName}, frame[3:5])
	assert.Equal(t, []byte("test"), frame[5:9])
	assert.Equal(t, byte(advTypeManufacturerSpecific), frame[10])
	assert.Equal(t, byte(0x34), frame[11])
	assert.Equal(t, byte(0x12), frame[12])
	assert.Equal(t, byte(len(frame)-10), frame[9], "vendor length covers type, magic and records")
}

func TestBuildPayloadWithoutRecordsOmitsVendorField(t *testing.T) {
	packer := NewPayloadPacker("test", 0x1234, 20)

	frame, count := packer.BuildPayload(nil)

	assert.Equal(t, 0, count)
	assert.Len(t, frame, 9)
	decoded := ParsePayload(testAddress, frame, 0x1234)
	assert.Equal(t, "test", decoded.Name)
	assert.False(t, decoded.HasMessages())
}

func TestBuildPayloadFitsAdvertisementLimit(t *testing.T) {
	cycler := NewPayloadCycler("Tester", DefaultMagicNumber, nil)
	records := make([][]byte, 0, 20)
	for i := range 20 {
		records = append(records, NewBroadcastMessage(FirstBroadcastCode+Code(i), 9, []byte{byte(i)}).Encode())
	}
	cycler.SetRecords(records)

	for range 10 {
		assert.LessOrEqual(t, len(cycler.NextPayload()), AdvDataMaxLen)
	}
}

func TestParsePayload(t *testing.T) {
	packer := NewPayloadPacker("test", 0x1234, 20)
	frame, _ := packer.BuildPayload(colorRecords())

	decoded := ParsePayload(testAddress, frame, 0x1234)

	assert.Equal(t, "test", decoded.Name)
	assert.Equal(t, PeerID(0xbbaaffeeddcc), decoded.Address)
	require.Len(t, decoded.Messages, 3)
	assert.Equal(t, byte(CodeBaseColor), decoded.Messages[0][0])
	assert.Equal(t, byte(CodeBaseOverride), decoded.Messages[2][0])
	assert.True(t, decoded.HasMessages())
}

func TestParsePayloadCorruptedRecords(t *testing.T) {
	packer := NewPayloadPacker("test", 0x1234, 20)
	frame, _ := packer.BuildPayload(colorRecords())

	for i := range 10 {
		frame[16+i] = 0xfe
	}

	decoded := ParsePayload(testAddress, frame, 0x1234)

	assert.Equal(t, "test", decoded.Name)
	require.Len(t, decoded.Messages, 1)
	assert.Equal(t, byte(CodeBaseColor), decoded.Messages[0][0])
}

func TestParsePayloadTruncatedFrameKeepsLeadingRecords(t *testing.T) {
	packer := NewPayloadPacker("test", 0x1234, 20)
	frame, count := packer.BuildPayload(colorRecords())
	require.Equal(t, 3, count)

	decoded := ParsePayload(testAddress, frame[:len(frame)-1], 0x1234)

	assert.Equal(t, "test", decoded.Name)
	assert.True(t, decoded.HasMessages())
	assert.Equal(t, colorRecords()[:2], decoded.Messages)

	attrs, msgs, skipped := SplitRecords(decoded.Messages)
	require.Len(t, attrs, 2)
	assert.True(t, attrs[0].Equal(NewAttribute(CodeBaseColor, 5, 6, 7, 8)))
	assert.True(t, attrs[1].Equal(NewAttribute(CodeShadeColor, 1, 2, 3, 4)))
	assert.Empty(t, msgs)
	assert.Zero(t, skipped)
}

func TestParsePayloadIgnoresForeignMagic(t *testing.T) {
	packer := NewPayloadPacker("test", 0x4321, 20)
	frame, _ := packer.BuildPayload(colorRecords())

	decoded := ParsePayload(testAddress, frame, 0x1234)

	assert.Equal(t, "test", decoded.Name)
	assert.False(t, decoded.HasMessages())
}

func TestParsePayloadMultipleVendorFields(t *testing.T) {
	frame := []byte{
		2, advTypeFlags, advFlagsValue,
		4, advTypeName, 'a', 'b', 'c',
		5, advTypeManufacturerSpecific, 0x34, 0x12, 2, 0x01,
		5, advTypeManufacturerSpecific, 0x00, 0x00, 2, 0x02,
		5, advTypeManufacturerSpecific, 0x34, 0x12, 2, 0x03,
	}

	decoded := ParsePayload(testAddress, frame, 0x1234)

	assert.Equal(t, "abc", decoded.Name)
	assert.Equal(t, [][]byte{{0x01}, {0x03}}, decoded.Messages)
}

func TestParsePayloadArbitraryInput(t *testing.T) {
	tests := []struct {
		name  string
		frame []byte
	}{
		{name: "nil", frame: nil},
		{name: "single byte", frame: []byte{0x05}},
		{name: "zero lengths", frame: []byte{0, 0, 0, 0}},
		{name: "field overruns frame", frame: []byte{30, advTypeName, 'a'}},
		{name: "vendor without magic", frame: []byte{2, advTypeManufacturerSpecific, 0x34}},
		{name: "record overruns section", frame: []byte{5, advTypeManufacturerSpecific, 0x34, 0x12, 9}},
		{name: "zero record size", frame: []byte{6, advTypeManufacturerSpecific, 0x34, 0x12, 0, 3, 0x01}},
		{name: "invalid utf8 name", frame: []byte{3, advTypeName, 0xff, 'x'}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotPanics(t, func() {
				decoded := ParsePayload(testAddress, tt.frame, 0x1234)
				assert.False(t, decoded.HasMessages())
			})
		})
	}
}

func TestParsePayloadSkipsEmptyRecords(t *testing.T) {
	frame := []byte{6, advTypeManufacturerSpecific, 0x34, 0x12, 1, 2, 0x01}

	decoded := ParsePayload(testAddress, frame, 0x1234)

	assert.Equal(t, [][]byte{{0x01}}, decoded.Messages)
}

func TestPeerIDFromAddress(t *testing.T) {
	id := PeerIDFromAddress(testAddress)

	assert.Equal(t, PeerID(0xbbaaffeeddcc), id)
	assert.Equal(t, "bbaaffeeddcc", id.String())
	assert.Equal(t, testAddress, id.Address())
	assert.Equal(t, PeerID(0x0102), PeerIDFromAddress([]byte{0x01, 0x02}))
}

func TestCyclerMovesThroughRecords(t *testing.T) {
	cycler := NewPayloadCycler("Tester", 0x1234, nil)
	cycler.SetRecords([][]byte{
		NewAttribute(CodeBaseColor, 5, 6, 7, 8).Encode(),
		NewAttribute(CodeShadeColor, 1, 2, 3, 4).Encode(),
		NewBroadcastMessage(CodeBaseOverride, 11, []byte{99, 88, 77, 66}).Encode(),
		NewBroadcastMessage(CodeShadeOverride, 11, []byte{1, 2, 3, 4}).Encode(),
		NewBroadcastMessage(0x99, 11, []byte{6, 7, 8, 9}).Encode(),
	})

	payloadStart := 15

	payload := cycler.NextPayload()
	assert.Len(t, payload, 27)
	assert.Equal(t, byte(CodeBaseColor), payload[payloadStart+1])
	assert.Equal(t, byte(CodeShadeColor), payload[payloadStart+7])

	payload = cycler.NextPayload()
	assert.Len(t, payload, 29)
	assert.Equal(t, byte(CodeBaseOverride), payload[payloadStart+1])
	assert.Equal(t, byte(CodeShadeOverride), payload[payloadStart+8])

	payload = cycler.NextPayload()
	assert.Len(t, payload, 28)
	assert.Equal(t, byte(0x99), payload[payloadStart+1])
	assert.Equal(t, byte(CodeBaseColor), payload[payloadStart+8])
}

func TestCyclerTruncatesName(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	cycler := NewPayloadCycler("Lamplighter", 0x1234, logger)

	assert.Equal(t, "Lampli", cycler.Name())
	assert.Contains(t, buf.String(), "advertised name truncated")

	decoded := ParsePayload(testAddress, cycler.NextPayload(), 0x1234)
	assert.Equal(t, "Lampli", decoded.Name)
}

func TestCyclerTruncatesNameOnRuneBoundary(t *testing.T) {
	cycler := NewPayloadCycler("abcdeé", 0x1234, slog.New(slog.DiscardHandler))

	assert.Equal(t, "abcde", cycler.Name())
}

func TestMaxRecordLenFitsBesideLongestName(t *testing.T) {
	packer := NewPayloadPacker("abcdef", DefaultMagicNumber, AdvDataMaxLen-(NameMaxLen+advHeaderOverhead))
	record := make([]byte, MaxRecordLen)
	frame, packed := packer.BuildPayload([][]byte{record})
	assert.Equal(t, 1, packed)
	assert.LessOrEqual(t, len(frame), AdvDataMaxLen)

	_, packed = packer.BuildPayload([][]byte{make([]byte, MaxRecordLen+1)})
	assert.Equal(t, 0, packed)
}

func TestCyclerEmptyRecords(t *testing.T) {
	cycler := NewPayloadCycler("abc", 0x1234, nil)

	frame := cycler.NextPayload()

	decoded := ParsePayload(testAddress, frame, 0x1234)
	assert.Equal(t, "abc", decoded.Name)
	assert.False(t, decoded.HasMessages())
	assert.Equal(t, 0, cycler.Len())
}

func TestCyclerSkipsOversizedRecord(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	cycler := NewPayloadCycler("abc", 0x1234, logger)

	oversized := append([]byte{0x91, 4}, bytes.Repeat([]byte{1}, 18)...)
	small := NewAttribute(CodeBaseColor, 1, 2, 3, 4).Encode()
	cycler.SetRecords([][]byte{oversized, small})

	first := ParsePayload(testAddress, cycler.NextPayload(), 0x1234)
	assert.False(t, first.HasMessages())
	assert.Contains(t, buf.String(), "record too large to advertise")

	second := ParsePayload(testAddress, cycler.NextPayload(), 0x1234)
	assert.Equal(t, [][]byte{small}, second.Messages)
}

func TestCyclerShrinkingRecordsWraps(t *testing.T) {
	cycler := NewPayloadCycler("Tester", 0x1234, nil)
	records := [][]byte{
		{0x01, 1, 2, 3, 4},
		{0x02, 1, 2, 3, 4},
		{0x91, 3, 1},
		{0x92, 3, 1},
	}
	cycler.SetRecords(records)
	cycler.NextPayload()
	cycler.NextPayload()

	cycler.SetRecords(records[:1])

	decoded := ParsePayload(testAddress, cycler.NextPayload(), 0x1234)
	assert.Equal(t, [][]byte{records[0]}, decoded.Messages)
}
