package lamp

import (
	"bytes"
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/Lamprichauns/lamp-os/internal/errors"
)

// AdvertiserOptions configures an Advertiser.
type AdvertiserOptions struct {
	// Interval is the delay between advertisement refreshes
	Interval time.Duration

	Logger *slog.Logger
}

// Advertiser is the Delegate that turns a Network's local state into
// advertisement frames for a Radio, and feeds what the radio hears back into
// the Network.
type Advertiser struct {
	network  *Network
	radio    Radio
	interval time.Duration
	logger   *slog.Logger

	mu         sync.Mutex
	cycler     *PayloadCycler
	attributes []Attribute
	messages   []DecayingBroadcastMessage
	dirty      bool
	frame      []byte
}

// NewAdvertiser creates an advertiser and attaches it to network as its
// delegate.
func NewAdvertiser(network *Network, radio Radio, opts AdvertiserOptions) *Advertiser {
	if opts.Interval <= 0 {
		opts.Interval = AdvertiseInterval
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	a := &Advertiser{
		network:  network,
		radio:    radio,
		interval: opts.Interval,
		logger:   opts.Logger,
		cycler:   NewPayloadCycler(network.Name(), network.Magic(), opts.Logger),
		dirty:    true,
	}
	network.SetDelegate(a)
	return a
}

// AnnounceAttributes implements Delegate.
func (a *Advertiser) AnnounceAttributes(attributes []Attribute) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.attributes = attributes
	a.dirty = true
}

// BroadcastMessages implements Delegate.
func (a *Advertiser) BroadcastMessages(messages []DecayingBroadcastMessage) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.messages = messages
	a.dirty = true
}

// Frame returns the last frame handed to the radio.
func (a *Advertiser) Frame() []byte {
	a.mu.Lock()
	defer a.mu.Unlock()
	return bytes.Clone(a.frame)
}

// recordsLocked encodes attributes followed by the messages that have not
// expired, each with its ttl as of now.
func (a *Advertiser) recordsLocked(now time.Time) [][]byte {
	records := make([][]byte, 0, len(a.attributes)+len(a.messages))
	for _, attr := range a.attributes {
		records = append(records, attr.Encode())
	}
	for _, msg := range a.messages {
		current := msg.At(now)
		if current.TTL == 0 {
			continue
		}
		records = append(records, current.Encode())
	}
	return records
}

// Refresh hands the radio a new frame when local state changed since the
// last one, or when there is more than one record so the cycler keeps
// rotating through them.
func (a *Advertiser) Refresh(ctx context.Context) error {
	a.mu.Lock()
	if !a.dirty && len(a.attributes)+len(a.messages) <= 1 {
		a.mu.Unlock()
		return nil
	}
	a.cycler.SetRecords(a.recordsLocked(a.network.Clock().Now()))
	frame := a.cycler.NextPayload()
	a.frame = frame
	a.dirty = false
	a.mu.Unlock()

	if err := a.radio.Advertise(ctx, frame); err != nil {
		a.mu.Lock()
		a.dirty = true
		a.mu.Unlock()
		return errors.WrapErrorf(err, "failed to advertise")
	}
	return nil
}

// Run scans and advertises until ctx is done. Scan results are passed to
// the network's HandleScanResult.
func (a *Advertiser) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	scanErr := make(chan error, 1)
	go func() {
		scanErr <- a.radio.Scan(ctx, a.network.HandleScanResult)
	}()

	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	a.logger.Info("advertising", "name", a.cycler.Name(), "interval", a.interval)
	for {
		if err := a.Refresh(ctx); err != nil {
			a.logger.Warn("advertisement refresh failed", "error", err)
		}

		select {
		case <-ctx.Done():
			<-scanErr
			return nil
		case err := <-scanErr:
			if ctx.Err() != nil {
				return nil
			}
			if err == nil {
				return errors.Internalf("radio scan ended unexpectedly")
			}
			return errors.WrapErrorf(err, "radio scan failed")
		case <-ticker.C:
		}
	}
}
