package config

import (
	"fmt"
	"net"
	"strings"

	"github.com/Lamprichauns/lamp-os/internal/errors"
	"github.com/Lamprichauns/lamp-os/pkg/lamp"
)

// Validate checks the values that cannot be clamped into range.
func (c *Config) Validate() error {
	var problems []string

	if strings.TrimSpace(c.Lamp.Name) == "" {
		problems = append(problems, "lamp.name must not be empty")
	}
	if _, err := lamp.ParseColor(c.Lamp.BaseColor); err != nil {
		problems = append(problems, fmt.Sprintf("lamp.base_color: %v", err))
	}
	if _, err := lamp.ParseColor(c.Lamp.ShadeColor); err != nil {
		problems = append(problems, fmt.Sprintf("lamp.shade_color: %v", err))
	}
	if c.Lamp.Version < 0 || c.Lamp.Version > 0xffff {
		problems = append(problems, "lamp.version must fit in 16 bits")
	}
	if c.Network.MagicNumber <= 0 || c.Network.MagicNumber > 0xffff {
		problems = append(problems, "network.magic_number must be between 1 and 65535")
	}

	switch c.Radio.Driver {
	case RadioDriverMulticast:
		if ip := net.ParseIP(c.Radio.Group); ip == nil || !ip.IsMulticast() || ip.To4() == nil {
			problems = append(problems, fmt.Sprintf("radio.group %q is not an IPv4 multicast address", c.Radio.Group))
		}
		if c.Radio.Port <= 0 || c.Radio.Port > 0xffff {
			problems = append(problems, "radio.port must be between 1 and 65535")
		}
	case RadioDriverLoopback:
	default:
		problems = append(problems, fmt.Sprintf("radio.driver %q is not %s or %s",
			c.Radio.Driver, RadioDriverMulticast, RadioDriverLoopback))
	}
	if c.Radio.Address != "" {
		if _, err := lamp.ParsePeerID(c.Radio.Address); err != nil {
			problems = append(problems, "radio.address must be 12 hex digits")
		}
	}

	if len(problems) > 0 {
		return errors.InvalidInputf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

// Identity builds the lamp identity from the lamp section.
func (c *Config) Identity() (lamp.Identity, error) {
	base, err := lamp.ParseColor(c.Lamp.BaseColor)
	if err != nil {
		return lamp.Identity{}, err
	}
	shade, err := lamp.ParseColor(c.Lamp.ShadeColor)
	if err != nil {
		return lamp.Identity{}, err
	}
	return lamp.Identity{
		Name:       c.Lamp.Name,
		Version:    uint16(c.Lamp.Version),
		BaseColor:  base,
		ShadeColor: shade,
	}, nil
}
