// Package radio builds the lamp.Radio lampd advertises through, and derives
// the 6-byte address a lamp is known by.
package radio

import (
	"fmt"
	"log/slog"
	"os"

	"golang.org/x/crypto/sha3"

	"github.com/Lamprichauns/lamp-os/internal/config"
	"github.com/Lamprichauns/lamp-os/internal/errors"
	"github.com/Lamprichauns/lamp-os/internal/radio/loopback"
	"github.com/Lamprichauns/lamp-os/internal/radio/multicast"
	"github.com/Lamprichauns/lamp-os/pkg/lamp"
)

// AddressLen is the size of a radio address
const AddressLen = 6

// DeriveAddress hashes seed into a stable 6-byte address. The result is a
// locally administered unicast address, like a BLE random static address
// derived per device.
func DeriveAddress(seed string) []byte {
	sum := sha3.Sum256([]byte(seed))
	addr := make([]byte, AddressLen)
	copy(addr, sum[:AddressLen])
	addr[0] = (addr[0] | 0x02) &^ 0x01
	return addr
}

// ResolveAddress returns the configured address, or one derived from the
// hostname and lamp name when none is configured. Configured addresses use
// the same 12 hex digit form lamp IDs are shown in.
func ResolveAddress(configured, lampName string) ([]byte, error) {
	if configured != "" {
		id, err := lamp.ParsePeerID(configured)
		if err != nil {
			return nil, errors.WrapErrorf(err, "invalid radio.address")
		}
		return id.Address(), nil
	}
	host, err := os.Hostname()
	if err != nil {
		host = "localhost"
	}
	return DeriveAddress(host + "/" + lampName), nil
}

// New creates the radio selected by cfg.Driver.
func New(cfg config.RadioConfig, lampName string, logger *slog.Logger) (lamp.Radio, error) {
	address, err := ResolveAddress(cfg.Address, lampName)
	if err != nil {
		return nil, err
	}
	logger = logger.With("component", "radio", "driver", cfg.Driver)

	switch cfg.Driver {
	case config.RadioDriverMulticast, "":
		return multicast.New(multicast.Options{
			Group:     cfg.Group,
			Port:      cfg.Port,
			Interface: cfg.Interface,
			Hops:      cfg.Hops,
			Address:   address,
			Logger:    logger,
		})
	case config.RadioDriverLoopback:
		air := loopback.NewAir(logger)
		go air.Run(config.DefaultAdvertiseInterval)
		r := air.NewRadio(address)
		logger.Info("Using loopback radio, no peers will be heard unless added in-process")
		return &ownedAirRadio{Radio: r, air: air}, nil
	default:
		return nil, errors.InvalidInputf("unknown radio driver %q", cfg.Driver)
	}
}

// ownedAirRadio stops the air it was created with on Close.
type ownedAirRadio struct {
	*loopback.Radio
	air *loopback.Air
}

func (r *ownedAirRadio) Close() error {
	err := r.Radio.Close()
	r.air.Stop()
	return err
}

// Describe formats an address for logs.
func Describe(address []byte) string {
	return fmt.Sprintf("%s (%x)", lamp.PeerIDFromAddress(address), address)
}
