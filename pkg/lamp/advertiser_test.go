package lamp

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRadio records advertised frames and lets tests inject scan results.
type fakeRadio struct {
	address []byte

	mu       sync.Mutex
	frames   [][]byte
	err      error
	handler  func(ScanResult)
	scanning chan struct{}
}

func newFakeRadio(address ...byte) *fakeRadio {
	return &fakeRadio{address: address, scanning: make(chan struct{})}
}

func (r *fakeRadio) Address() []byte { return r.address }

func (r *fakeRadio) Advertise(_ context.Context, frame []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.frames = append(r.frames, frame)
	return nil
}

func (r *fakeRadio) Scan(ctx context.Context, handler func(ScanResult)) error {
	r.mu.Lock()
	r.handler = handler
	r.mu.Unlock()
	close(r.scanning)
	<-ctx.Done()
	return ctx.Err()
}

func (r *fakeRadio) Close() error { return nil }

func (r *fakeRadio) Frames() [][]byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([][]byte(nil), r.frames...)
}

func (r *fakeRadio) SetErr(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.err = err
}

func (r *fakeRadio) Hear(result ScanResult) {
	r.mu.Lock()
	handler := r.handler
	r.mu.Unlock()
	handler(result)
}

type testLamp struct {
	radio      *fakeRadio
	network    *Network
	advertiser *Advertiser
}

func newTestLamp(clock Clock, name string, address ...byte) *testLamp {
	radio := newFakeRadio(address...)
	network := NewNetwork(NetworkOptions{Name: name, Clock: clock, Logger: slog.New(slog.DiscardHandler)})
	return &testLamp{
		radio:      radio,
		network:    network,
		advertiser: NewAdvertiser(network, radio, AdvertiserOptions{Logger: slog.New(slog.DiscardHandler)}),
	}
}

// transmit refreshes the lamp's advertisement and returns it as heard by a peer.
func (l *testLamp) transmit(t *testing.T, rssi int) ScanResult {
	t.Helper()
	require.NoError(t, l.advertiser.Refresh(context.Background()))
	return ScanResult{Address: l.radio.address, RSSI: rssi, Data: l.advertiser.Frame()}
}

func TestAdvertiserRefreshOnlyWhenNeeded(t *testing.T) {
	lamp := newTestLamp(newManualClock(), "solo", 1, 2, 3, 4, 5, 6)
	ctx := context.Background()

	require.NoError(t, lamp.advertiser.Refresh(ctx))
	require.Len(t, lamp.radio.Frames(), 1, "first refresh always advertises")

	require.NoError(t, lamp.advertiser.Refresh(ctx))
	assert.Len(t, lamp.radio.Frames(), 1)

	lamp.network.AnnounceAttribute(NewVersionAttribute(415))
	require.NoError(t, lamp.advertiser.Refresh(ctx))
	require.NoError(t, lamp.advertiser.Refresh(ctx))
	require.Len(t, lamp.radio.Frames(), 2, "a single record is not re-advertised")

	decoded := ParsePayload(lamp.radio.address, lamp.radio.Frames()[1], DefaultMagicNumber)
	assert.Equal(t, "solo", decoded.Name)
	assert.Equal(t, [][]byte{{0x00, 0x01, 0x9f}}, decoded.Messages)

	lamp.network.AnnounceAttribute(NewAttribute(CodeBaseColor, 1, 2, 3, 4))
	require.NoError(t, lamp.advertiser.Refresh(ctx))
	require.NoError(t, lamp.advertiser.Refresh(ctx))
	assert.Len(t, lamp.radio.Frames(), 4, "several records keep cycling")
}

func TestAdvertiserEncodesDecayedTTL(t *testing.T) {
	clock := newManualClock()
	lamp := newTestLamp(clock, "ttl", 1, 2, 3, 4, 5, 6)
	lamp.network.SendBroadcast(CodeShadeOverride, []byte{1, 2, 3, 4}, 6)
	lamp.network.SendBroadcast(CodeBaseOverride, nil, 2)

	clock.Advance(2 * time.Second)
	result := lamp.transmit(t, -40)

	decoded := ParsePayload(result.Address, result.Data, DefaultMagicNumber)
	assert.Equal(t, [][]byte{{0x92, 4, 1, 2, 3, 4}}, decoded.Messages)
}

func TestAdvertiserRetriesAfterError(t *testing.T) {
	lamp := newTestLamp(newManualClock(), "err", 1, 2, 3, 4, 5, 6)
	ctx := context.Background()
	lamp.radio.SetErr(errors.New("radio busy"))

	err := lamp.advertiser.Refresh(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "radio busy")

	lamp.radio.SetErr(nil)
	require.NoError(t, lamp.advertiser.Refresh(ctx))
	assert.Len(t, lamp.radio.Frames(), 1)
}

func TestAdvertiserRunForwardsScanResults(t *testing.T) {
	clock := newManualClock()
	lamp := newTestLamp(clock, "run", 1, 2, 3, 4, 5, 6)
	peer := newTestLamp(clock, "peer", 6, 5, 4, 3, 2, 1)
	peer.network.AnnounceAttribute(NewAttribute(CodeBaseColor, 1, 2, 3, 4))

	ctx, cancel := context.WithCancel(context.Background())
	runErr := make(chan error, 1)
	go func() { runErr <- lamp.advertiser.Run(ctx) }()

	<-lamp.radio.scanning
	lamp.radio.Hear(peer.transmit(t, -42))

	observed, ok := lamp.network.Lamp(PeerIDFromAddress(peer.radio.address))
	require.True(t, ok)
	assert.Equal(t, "peer", observed.Name)
	assert.Equal(t, -42, observed.RSSI)

	cancel()
	select {
	case err := <-runErr:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
	assert.NotEmpty(t, lamp.radio.Frames())
}

func TestGossipPropagatesThroughLamps(t *testing.T) {
	clock := newManualClock()
	a := newTestLamp(clock, "A", 0x0a, 0, 0, 0, 0, 0)
	b := newTestLamp(clock, "B", 0x0b, 0, 0, 0, 0, 0)
	c := newTestLamp(clock, "C", 0x0c, 0, 0, 0, 0, 0)
	observerB := &recordingObserver{}
	observerC := &recordingObserver{}
	b.network.AddObserver(observerB)
	c.network.AddObserver(observerC)

	a.network.AnnounceAttribute(NewAttribute(CodeBaseColor, 5, 6, 7, 8))
	a.network.AnnounceAttribute(NewAttribute(CodeShadeColor, 1, 2, 3, 4))
	a.network.SendBroadcast(CodeBaseOverride, []byte{99, 88, 77, 66}, 11)

	b.network.HandleScanResult(a.transmit(t, -50))

	idA := PeerIDFromAddress(a.radio.address)
	assert.Equal(t, []observedEvent{
		{kind: "appeared", lamp: idA},
		{kind: "attribute", lamp: idA, code: CodeBaseColor},
		{kind: "attribute", lamp: idA, code: CodeShadeColor},
		{kind: "message", code: CodeBaseOverride, ttl: 10},
	}, observerB.Events())

	c.network.HandleScanResult(b.transmit(t, -60))

	msg, ok := c.network.Message(CodeBaseOverride)
	require.True(t, ok)
	assert.Equal(t, uint8(9), msg.TTL)
	assert.Equal(t, []byte{99, 88, 77, 66}, msg.Payload)
	assert.Contains(t, observerC.Events(), observedEvent{kind: "message", code: CodeBaseOverride, ttl: 9})

	// B hearing C's echo does not displace its fresher copy
	observerB.Reset()
	b.network.HandleScanResult(c.transmit(t, -60))
	held, _ := b.network.Message(CodeBaseOverride)
	assert.Equal(t, uint8(10), held.TTL)
	assert.NotContains(t, observerB.Kinds(), "message")
}
