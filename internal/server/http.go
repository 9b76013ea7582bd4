package server

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"

	"github.com/Lamprichauns/lamp-os/internal/config"
	"github.com/Lamprichauns/lamp-os/internal/http/handlers"
	"github.com/Lamprichauns/lamp-os/internal/http/mw"
	"github.com/Lamprichauns/lamp-os/internal/http/routes"
	"github.com/Lamprichauns/lamp-os/internal/ws"
)

// Handler builds the HTTP API: the Huma routes plus the raw WebSocket
// endpoint, behind logging, rate limiting and token middleware.
func (s *Server) Handler() http.Handler {
	router := chi.NewRouter()
	router.Use(mw.RequestLogging(s.logger))
	// Rate limiting runs before the token check to slow down guessing
	router.Use(mw.RateLimitByIP(mw.RateLimitConfig{RequestsPerMinute: s.cfg.API.RateLimit}))
	router.Use(mw.TokenAuth(s.logger, s.cfg.API.Token))

	api := humachi.New(router, routes.NewHumaConfig(s.version.Version, ""))

	routes.Register(api, &routes.Handlers{
		HealthCheck:  handlers.HealthCheck,
		VersionCheck: handlers.NewVersionCheck(s.version),
		Lamp:         &handlers.LampHandler{Network: s.network},
		Local: &handlers.LocalHandler{
			Network:    s.network,
			Lamp:       s.lamp,
			Events:     s.eventBus,
			DefaultTTL: config.ValidateTTL(s.cfg.Network.BroadcastTTL),
			Logger:     s.logger,
		},
		Logging: &handlers.LoggingHandler{Controller: s.logCtl, Logger: s.logger},
	})

	// The event stream is not a Huma operation; it hijacks the connection.
	router.Get("/api/v1/ws", ws.Handler(s.wsHub, s.logger))

	return router
}

func (s *Server) startHTTP() error {
	ln, err := net.Listen("tcp", s.cfg.API.ListenAddress)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.cfg.API.ListenAddress, err)
	}
	s.httpLn = ln
	s.logger.Info("Starting HTTP API server", "address", ln.Addr().String())

	s.httpServer = &http.Server{
		Handler:      s.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.wg.Go(func() {
		defer func() {
			if r := recover(); r != nil {
				s.logger.Error("panic in HTTP server goroutine", "recover", r)
			}
		}()
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("HTTP server failed", "error", err)
		}
		s.logger.Info("HTTP server stopped")
	})
	return nil
}
