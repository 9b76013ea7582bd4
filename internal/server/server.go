// Package server runs the lampd control surfaces: the Unix socket used by
// lampctl, the HTTP API with its event stream, and the mDNS advertisement of
// that API.
package server

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/grandcat/zeroconf"

	"github.com/Lamprichauns/lamp-os/internal/config"
	"github.com/Lamprichauns/lamp-os/internal/events"
	"github.com/Lamprichauns/lamp-os/internal/http/handlers"
	"github.com/Lamprichauns/lamp-os/internal/logging"
	"github.com/Lamprichauns/lamp-os/internal/ws"
	"github.com/Lamprichauns/lamp-os/pkg/lamp"
)

// Options holds the daemon components the server exposes.
type Options struct {
	Network *lamp.Network
	Lamp    *lamp.Lamp
	Logging *logging.Controller
	Version handlers.VersionInfo
}

// Server manages the lampd control surfaces.
type Server struct {
	logger     *slog.Logger
	cfg        *config.Config
	network    *lamp.Network
	lamp       *lamp.Lamp
	logCtl     *logging.Controller
	version    handlers.VersionInfo
	socketPath string
	listener   net.Listener
	shutdown   chan struct{}
	wg         sync.WaitGroup
	rootCtx    context.Context
	rootCancel context.CancelFunc
	httpServer *http.Server
	httpLn     net.Listener
	mdns       *zeroconf.Server
	eventBus   *events.Bus
	wsHub      *ws.Hub
	actions    map[string]actionFunc
}

// New creates a new server instance and starts publishing network
// notifications on its event bus.
func New(logger *slog.Logger, cfg *config.Config, opts Options) *Server {
	if opts.Logging == nil {
		opts.Logging = logging.NewController(slog.LevelInfo)
	}
	eventBus := events.NewBus()
	opts.Network.AddObserver(events.NewBusObserver(eventBus))

	socketPath := cfg.Server.UnixSocket
	if socketPath == "" {
		socketPath = config.GetRuntimeSocketPath()
	}

	rootCtx, rootCancel := context.WithCancel(context.Background())

	s := &Server{
		logger:     logger,
		cfg:        cfg,
		network:    opts.Network,
		lamp:       opts.Lamp,
		logCtl:     opts.Logging,
		version:    opts.Version,
		socketPath: socketPath,
		shutdown:   make(chan struct{}),
		rootCtx:    rootCtx,
		rootCancel: rootCancel,
		eventBus:   eventBus,
		wsHub:      ws.NewHub(logger, eventBus),
	}
	s.actions = s.socketActions()
	return s
}

// Events returns the bus carrying network and local events.
func (s *Server) Events() *events.Bus {
	return s.eventBus
}

// SocketPath returns the Unix socket the server listens on.
func (s *Server) SocketPath() string {
	return s.socketPath
}

// HTTPAddr returns the address the HTTP API is bound to, or nil when it is
// disabled or not started.
func (s *Server) HTTPAddr() net.Addr {
	if s.httpLn == nil {
		return nil
	}
	return s.httpLn.Addr()
}

// Start begins the server operations, including listening on the socket and starting the HTTP server.
func (s *Server) Start() error {
	s.logger.Info("Starting lampd server")

	// Ensure socket directory exists
	sockDir := filepath.Dir(s.socketPath)
	if err := os.MkdirAll(sockDir, 0755); err != nil {
		return fmt.Errorf("failed to create socket directory %s: %w", sockDir, err)
	}

	// Remove existing socket file if it exists
	if _, err := os.Stat(s.socketPath); err == nil {
		if err := os.Remove(s.socketPath); err != nil {
			return fmt.Errorf("failed to remove existing socket file %s: %w", s.socketPath, err)
		}
	}

	var err error
	s.listener, err = net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("failed to listen on socket %s: %w", s.socketPath, err)
	}
	s.logger.Info("Listening on Unix socket", "path", s.socketPath)

	s.wg.Add(1)
	go s.acceptConnections()

	s.wg.Go(func() {
		defer func() {
			if r := recover(); r != nil {
				s.logger.Error("panic in WebSocket hub", "recover", r)
			}
		}()
		s.wsHub.Run(s.rootCtx)
	})

	if s.cfg.API.ListenAddress == "" {
		return nil
	}
	if err := s.startHTTP(); err != nil {
		s.Stop()
		return err
	}
	if s.cfg.API.MDNS {
		if err := s.startMDNS(); err != nil {
			// The API still works by address, so this is not fatal
			s.logger.Warn("mDNS advertisement failed", "error", err)
		}
	}
	return nil
}

// Stop gracefully shuts down the server.
func (s *Server) Stop() {
	s.logger.Info("Shutting down lampd server")
	s.rootCancel()
	select {
	case <-s.shutdown:
		return
	default:
		close(s.shutdown)
	}

	if s.mdns != nil {
		s.mdns.Shutdown()
	}
	if s.listener != nil {
		s.logger.Info("Closing Unix socket listener")
		s.listener.Close()
	}
	if s.httpServer != nil {
		s.logger.Info("Shutting down HTTP server")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.httpServer.Shutdown(ctx); err != nil {
			s.logger.Error("HTTP server shutdown failed", "error", err)
		}
	}

	s.logger.Info("Waiting for services to stop...")
	s.wg.Wait()
	os.Remove(s.socketPath)
	s.logger.Info("lampd server shut down gracefully")
}

func (s *Server) acceptConnections() {
	defer s.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("panic in acceptConnections", "recover", r)
		}
	}()

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.shutdown:
				s.logger.Info("Socket listener shutting down")
				return
			default:
			}
			if errors.Is(err, net.ErrClosed) {
				return
			}
			s.logger.Error("Failed to accept connection", "error", err)
			continue
		}
		s.wg.Add(1)
		go s.handleConnection(conn)
	}
}

func (s *Server) handleConnection(conn net.Conn) {
	defer conn.Close()
	defer s.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("panic in connection handler", "recover", r)
		}
	}()

	ctx, cancel := context.WithCancel(s.rootCtx)
	defer cancel()

	go func() {
		select {
		case <-s.shutdown:
			if uc, ok := conn.(*net.UnixConn); ok {
				uc.CloseRead() // unblock the reader
			}
			cancel()
		case <-ctx.Done():
		}
	}()

	reader := bufio.NewReader(conn)
	for {
		if ctx.Err() != nil {
			return
		}

		line, err := reader.ReadBytes('\n')
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) {
				s.logger.Debug("Client disconnected")
			} else {
				s.logger.Error("Failed to read from connection", "error", err)
			}
			return
		}

		var req map[string]any
		if err := json.Unmarshal(line, &req); err != nil {
			s.logger.Error("Failed to unmarshal request", "error", err, "request", strings.TrimSpace(string(line)))
			s.sendError(conn, "", fmt.Sprintf("invalid JSON request: %s", err))
			continue
		}

		action, _ := req["action"].(string)
		id, _ := req["id"].(string)
		data, _ := req["data"].(map[string]any)
		if data == nil {
			data = map[string]any{}
		}
		s.logger.Debug("Received request", "action", action, "id", id, "data", data)

		fn, ok := s.actions[action]
		if !ok {
			s.logger.Warn("received unknown action", "action", action)
			s.sendError(conn, id, "unknown action: "+action)
			continue
		}
		result, err := fn(ctx, data)
		if err != nil {
			s.sendError(conn, id, fmt.Sprintf("%s failed: %s", action, err))
			continue
		}
		s.sendResponse(conn, id, result)
	}
}

func (s *Server) sendResponse(conn net.Conn, id string, data map[string]any) {
	response := map[string]any{"status": "ok"}
	if id != "" {
		response["id"] = id
	}
	maps.Copy(response, data)
	if err := json.NewEncoder(conn).Encode(response); err != nil {
		s.logger.Error("Failed to send response", "error", err)
	}
}

func (s *Server) sendError(conn net.Conn, id string, message string) {
	s.logger.Warn("Sending error response to client", "id", id, "message", message)
	response := map[string]any{"error": message}
	if id != "" {
		response["id"] = id
	}
	if err := json.NewEncoder(conn).Encode(response); err != nil {
		s.logger.Error("Failed to send error response", "error", err)
	}
}
