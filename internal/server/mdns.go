package server

import (
	"fmt"
	"net"
	"strconv"

	"github.com/grandcat/zeroconf"

	"github.com/Lamprichauns/lamp-os/internal/config"
)

// mdnsText builds the TXT records published alongside the API.
func (s *Server) mdnsText() []string {
	id := s.lamp.Identity()
	return []string{
		"name=" + s.network.Name(),
		"magic=" + strconv.Itoa(int(s.network.Magic())),
		"version=" + strconv.Itoa(int(id.Version)),
		"api=/api/v1",
	}
}

// startMDNS advertises the HTTP API so lampctl discover can find it.
func (s *Server) startMDNS() error {
	tcp, ok := s.HTTPAddr().(*net.TCPAddr)
	if !ok {
		return fmt.Errorf("HTTP API is not listening on TCP")
	}

	instance := s.network.Name()
	if instance == "" {
		instance = config.DefaultLampName
	}
	srv, err := zeroconf.Register(instance, config.MDNSService, config.MDNSDomain, tcp.Port, s.mdnsText(), nil)
	if err != nil {
		return fmt.Errorf("failed to register %s: %w", config.MDNSService, err)
	}
	s.mdns = srv
	s.logger.Info("Advertising API over mDNS", "instance", instance, "service", config.MDNSService, "port", tcp.Port)
	return nil
}
