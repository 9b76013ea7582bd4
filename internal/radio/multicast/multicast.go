// Package multicast carries lamp advertisements over UDP multicast so lamps
// on one LAN segment see each other the way they would over BLE.
//
// Each datagram is the sender's 6-byte address followed by the raw
// advertisement frame. Receivers synthesise an RSSI from how many hops the
// datagram travelled.
package multicast

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"sync"
	"time"

	"golang.org/x/net/ipv4"
	"golang.org/x/sys/unix"

	"github.com/Lamprichauns/lamp-os/pkg/lamp"
)

const (
	// AddressLen is the size of the sender address prefix
	AddressLen = 6

	// MaxDatagramSize bounds what is read per datagram
	MaxDatagramSize = AddressLen + 255

	// DefaultRepeatInterval is how often the current frame is re-sent
	DefaultRepeatInterval = 200 * time.Millisecond

	// BaseRSSI is reported for datagrams that did not cross a router
	BaseRSSI = -45

	// HopPenalty is subtracted from BaseRSSI for every hop travelled
	HopPenalty = 20

	// MinRSSI is the weakest signal ever reported
	MinRSSI = -100
)

// Options configures a multicast radio.
type Options struct {
	Group     string
	Port      int
	Interface string // empty joins on every multicast-capable interface
	Hops      int    // multicast TTL
	Address   []byte

	// RepeatInterval is how often the current frame is re-sent
	RepeatInterval time.Duration

	Logger *slog.Logger
}

// Radio is a lamp.Radio over UDP multicast.
type Radio struct {
	address  []byte
	group    *net.UDPAddr
	hops     int
	interval time.Duration
	logger   *slog.Logger

	conn *net.UDPConn
	pc   *ipv4.PacketConn

	mu     sync.Mutex
	frame  []byte
	closed bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

var _ lamp.Radio = (*Radio)(nil)

// New opens the multicast socket and joins the group.
func New(opts Options) (*Radio, error) {
	if len(opts.Address) != AddressLen {
		return nil, fmt.Errorf("radio address must be %d bytes, got %d", AddressLen, len(opts.Address))
	}
	if opts.Hops <= 0 {
		opts.Hops = 1
	}
	if opts.RepeatInterval <= 0 {
		opts.RepeatInterval = DefaultRepeatInterval
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	group, err := net.ResolveUDPAddr("udp4", fmt.Sprintf("%s:%d", opts.Group, opts.Port))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve multicast group: %w", err)
	}
	if !group.IP.IsMulticast() {
		return nil, fmt.Errorf("%s is not a multicast address", opts.Group)
	}

	conn, err := listenReusable(opts.Port, opts.Logger)
	if err != nil {
		return nil, err
	}

	pc := ipv4.NewPacketConn(conn)
	ifaces, err := joinInterfaces(opts.Interface)
	if err != nil {
		conn.Close()
		return nil, err
	}
	joined := 0
	for _, iface := range ifaces {
		if err := pc.JoinGroup(&iface, group); err != nil {
			opts.Logger.Debug("Failed to join multicast group", "interface", iface.Name, "error", err)
			continue
		}
		joined++
		opts.Logger.Debug("Joined multicast group", "interface", iface.Name, "group", group)
	}
	if joined == 0 {
		conn.Close()
		return nil, fmt.Errorf("could not join %s on any interface", group)
	}

	if opts.Interface != "" {
		if err := pc.SetMulticastInterface(&ifaces[0]); err != nil {
			opts.Logger.Warn("Failed to select multicast interface", "interface", opts.Interface, "error", err)
		}
	}
	// Other lamps on this host must hear us too
	if err := pc.SetMulticastLoopback(true); err != nil {
		opts.Logger.Warn("Failed to enable multicast loopback", "error", err)
	}
	if err := pc.SetMulticastTTL(opts.Hops); err != nil {
		opts.Logger.Warn("Failed to set multicast TTL", "hops", opts.Hops, "error", err)
	}
	if err := pc.SetControlMessage(ipv4.FlagTTL, true); err != nil {
		opts.Logger.Debug("TTL control messages unavailable, RSSI will be fixed", "error", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	r := &Radio{
		address:  bytes.Clone(opts.Address),
		group:    group,
		hops:     opts.Hops,
		interval: opts.RepeatInterval,
		logger:   opts.Logger,
		conn:     conn,
		pc:       pc,
		ctx:      ctx,
		cancel:   cancel,
	}
	r.wg.Go(r.repeatLoop)

	opts.Logger.Info("Multicast radio ready", "group", group, "hops", opts.Hops, "address", lamp.PeerIDFromAddress(r.address))
	return r, nil
}

// listenReusable binds the group port with SO_REUSEPORT so several lamps can
// run on one host.
func listenReusable(port int, logger *slog.Logger) (*net.UDPConn, error) {
	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_DGRAM, unix.IPPROTO_UDP)
	if err != nil {
		return nil, fmt.Errorf("failed to create socket: %w", err)
	}
	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("failed to set SO_REUSEADDR: %w", err)
	}
	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEPORT, 1); err != nil {
		logger.Warn("Failed to enable SO_REUSEPORT, only one lamp per host", "error", err)
	}
	if err := unix.Bind(fd, &unix.SockaddrInet4{Port: port}); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("failed to bind port %d: %w", port, err)
	}

	file := os.NewFile(uintptr(fd), "lamp-multicast")
	defer file.Close()
	conn, err := net.FilePacketConn(file)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection from socket: %w", err)
	}
	udp, ok := conn.(*net.UDPConn)
	if !ok {
		conn.Close()
		return nil, fmt.Errorf("socket is not a UDP connection")
	}
	return udp, nil
}

func joinInterfaces(name string) ([]net.Interface, error) {
	if name != "" {
		iface, err := net.InterfaceByName(name)
		if err != nil {
			return nil, fmt.Errorf("unknown interface %q: %w", name, err)
		}
		return []net.Interface{*iface}, nil
	}
	all, err := net.Interfaces()
	if err != nil {
		return nil, fmt.Errorf("failed to list interfaces: %w", err)
	}
	var out []net.Interface
	for _, iface := range all {
		if iface.Flags&net.FlagUp != 0 && iface.Flags&net.FlagMulticast != 0 {
			out = append(out, iface)
		}
	}
	return out, nil
}

// Address implements lamp.Radio.
func (r *Radio) Address() []byte {
	return bytes.Clone(r.address)
}

// Advertise implements lamp.Radio. The frame is sent right away and then
// repeated until replaced.
func (r *Radio) Advertise(_ context.Context, frame []byte) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return net.ErrClosed
	}
	r.frame = bytes.Clone(frame)
	r.mu.Unlock()
	return r.send(frame)
}

func (r *Radio) send(frame []byte) error {
	datagram := EncodeDatagram(r.address, frame)
	if _, err := r.pc.WriteTo(datagram, nil, r.group); err != nil {
		return fmt.Errorf("failed to send advertisement: %w", err)
	}
	return nil
}

func (r *Radio) repeatLoop() {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-r.ctx.Done():
			return
		case <-ticker.C:
			r.mu.Lock()
			frame := r.frame
			r.mu.Unlock()
			if frame == nil {
				continue
			}
			if err := r.send(frame); err != nil && !errors.Is(err, net.ErrClosed) {
				r.logger.Debug("Repeat send failed", "error", err)
			}
		}
	}
}

// Scan implements lamp.Radio.
func (r *Radio) Scan(ctx context.Context, handler func(lamp.ScanResult)) error {
	buf := make([]byte, MaxDatagramSize)
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := r.pc.SetReadDeadline(time.Now().Add(time.Second)); err != nil {
			return err
		}
		n, cm, _, err := r.pc.ReadFrom(buf)
		if err != nil {
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("multicast read failed: %w", err)
		}

		address, frame, ok := DecodeDatagram(buf[:n])
		if !ok || bytes.Equal(address, r.address) {
			continue
		}
		ttl := -1
		if cm != nil {
			ttl = cm.TTL
		}
		handler(lamp.ScanResult{
			Address: address,
			RSSI:    RSSIFromTTL(ttl, r.hops),
			Data:    frame,
		})
	}
}

// Close stops repeating and closes the socket.
func (r *Radio) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	r.mu.Unlock()

	r.cancel()
	r.wg.Wait()
	return r.conn.Close()
}

// EncodeDatagram prefixes frame with the sender address.
func EncodeDatagram(address, frame []byte) []byte {
	out := make([]byte, 0, AddressLen+len(frame))
	out = append(out, address[:AddressLen]...)
	return append(out, frame...)
}

// DecodeDatagram splits a datagram into sender address and frame. Both are
// copies.
func DecodeDatagram(datagram []byte) (address, frame []byte, ok bool) {
	if len(datagram) < AddressLen {
		return nil, nil, false
	}
	return bytes.Clone(datagram[:AddressLen]), bytes.Clone(datagram[AddressLen:]), true
}

// RSSIFromTTL maps the TTL a datagram arrived with to a signal strength: the
// more hops it crossed the weaker it reads. A negative ttl means unknown and
// reads as if no hop was crossed.
func RSSIFromTTL(ttl, hops int) int {
	travelled := 0
	if ttl >= 0 && ttl < hops {
		travelled = hops - ttl
	}
	return max(BaseRSSI-travelled*HopPenalty, MinRSSI)
}
