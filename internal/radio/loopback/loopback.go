// Package loopback is an in-process radio medium. Radios created on the same
// Air hear each other's advertisements whenever the air is pulsed.
package loopback

import (
	"bytes"
	"context"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/Lamprichauns/lamp-os/pkg/lamp"
)

// DefaultRSSI is the signal strength reported between linked radios
const DefaultRSSI = -50

type link struct {
	from, to *Radio
}

// Air connects loopback radios.
type Air struct {
	logger *slog.Logger

	mu     sync.Mutex
	radios []*Radio
	rssi   map[link]int
	cut    map[link]bool

	stopOnce sync.Once
	stop     chan struct{}
}

// NewAir creates an empty medium.
func NewAir(logger *slog.Logger) *Air {
	if logger == nil {
		logger = slog.Default()
	}
	return &Air{
		logger: logger,
		rssi:   make(map[link]int),
		cut:    make(map[link]bool),
		stop:   make(chan struct{}),
	}
}

// NewRadio adds a radio with the given address to the air.
func (a *Air) NewRadio(address []byte) *Radio {
	r := &Radio{air: a, address: bytes.Clone(address)}
	a.mu.Lock()
	a.radios = append(a.radios, r)
	a.mu.Unlock()
	return r
}

// SetRSSI sets the signal strength at which radio to hears radio from.
func (a *Air) SetRSSI(from, to *Radio, rssi int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.rssi[link{from, to}] = rssi
	delete(a.cut, link{from, to})
}

// Cut stops radio to from hearing radio from.
func (a *Air) Cut(from, to *Radio) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.cut[link{from, to}] = true
}

type delivery struct {
	handler func(lamp.ScanResult)
	result  lamp.ScanResult
}

// Pulse delivers every radio's current advertisement to every other scanning
// radio once. Handlers run on the calling goroutine.
func (a *Air) Pulse() {
	a.mu.Lock()
	var deliveries []delivery
	for _, from := range a.radios {
		frame := from.currentFrame()
		if frame == nil {
			continue
		}
		for _, to := range a.radios {
			if to == from || a.cut[link{from, to}] {
				continue
			}
			handler := to.currentHandler()
			if handler == nil {
				continue
			}
			rssi, ok := a.rssi[link{from, to}]
			if !ok {
				rssi = DefaultRSSI
			}
			deliveries = append(deliveries, delivery{
				handler: handler,
				result:  lamp.ScanResult{Address: bytes.Clone(from.address), RSSI: rssi, Data: bytes.Clone(frame)},
			})
		}
	}
	a.mu.Unlock()

	if len(deliveries) > 0 {
		a.logger.Debug("air pulse", "deliveries", len(deliveries))
	}
	for _, d := range deliveries {
		d.handler(d.result)
	}
}

// Run pulses the air every interval until Stop is called.
func (a *Air) Run(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-a.stop:
			return
		case <-ticker.C:
			a.Pulse()
		}
	}
}

// Stop ends Run.
func (a *Air) Stop() {
	a.stopOnce.Do(func() { close(a.stop) })
}

func (a *Air) remove(r *Radio) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for i, other := range a.radios {
		if other == r {
			a.radios = append(a.radios[:i], a.radios[i+1:]...)
			break
		}
	}
}

// Radio is a lamp.Radio on an Air.
type Radio struct {
	air     *Air
	address []byte

	mu      sync.Mutex
	frame   []byte
	handler func(lamp.ScanResult)
	closed  bool
}

var _ lamp.Radio = (*Radio)(nil)

// Address implements lamp.Radio.
func (r *Radio) Address() []byte {
	return bytes.Clone(r.address)
}

// Advertise implements lamp.Radio.
func (r *Radio) Advertise(_ context.Context, frame []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return net.ErrClosed
	}
	r.frame = bytes.Clone(frame)
	return nil
}

// Scan implements lamp.Radio. Only one scan may be active per radio; a new
// scan replaces the handler of the previous one.
func (r *Radio) Scan(ctx context.Context, handler func(lamp.ScanResult)) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return net.ErrClosed
	}
	r.handler = handler
	r.mu.Unlock()

	<-ctx.Done()

	r.mu.Lock()
	r.handler = nil
	r.mu.Unlock()
	return ctx.Err()
}

// Close removes the radio from the air.
func (r *Radio) Close() error {
	r.mu.Lock()
	r.closed = true
	r.frame = nil
	r.handler = nil
	r.mu.Unlock()
	r.air.remove(r)
	return nil
}

func (r *Radio) currentFrame() []byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.frame
}

func (r *Radio) currentHandler() func(lamp.ScanResult) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.handler
}
