package main

import (
	"context"
	"log/slog"
	"sync"

	"github.com/Lamprichauns/lamp-os/internal/config"
	"github.com/Lamprichauns/lamp-os/internal/errors"
	"github.com/Lamprichauns/lamp-os/internal/http/handlers"
	"github.com/Lamprichauns/lamp-os/internal/logging"
	"github.com/Lamprichauns/lamp-os/internal/server"
	"github.com/Lamprichauns/lamp-os/internal/utils"
	"github.com/Lamprichauns/lamp-os/pkg/lamp"
)

// daemon wires the gossip network, this lamp's identity, the radio and the
// control server together.
type daemon struct {
	cfg    *config.Config
	logger *slog.Logger
	logCtl *logging.Controller

	network    *lamp.Network
	lamp       *lamp.Lamp
	radio      lamp.Radio
	advertiser *lamp.Advertiser
	server     *server.Server
}

func newDaemon(cfg *config.Config, logger *slog.Logger, logCtl *logging.Controller, radio lamp.Radio, info handlers.VersionInfo) (*daemon, error) {
	identity, err := cfg.Identity()
	if err != nil {
		return nil, errors.WrapErrorf(err, "invalid lamp identity")
	}

	network := lamp.NewNetwork(lamp.NetworkOptions{
		Name:            cfg.Lamp.Name,
		Magic:           uint16(cfg.Network.MagicNumber),
		TTLAdjustment:   cfg.Network.TTLAdjustment,
		MonitorInterval: config.ValidateMonitorInterval(cfg.Network.MonitorIntervalMs),
		Logger:          logger.With("component", "gossip"),
	})
	self := lamp.NewLamp(network, identity, logger.With("component", "lamp"))
	advertiser := lamp.NewAdvertiser(network, radio, lamp.AdvertiserOptions{
		Interval: config.ValidateAdvertiseInterval(cfg.Radio.AdvertiseIntervalMs),
		Logger:   logger.With("component", "advertiser"),
	})

	return &daemon{
		cfg:        cfg,
		logger:     logger,
		logCtl:     logCtl,
		network:    network,
		lamp:       self,
		radio:      radio,
		advertiser: advertiser,
		server: server.New(logger, cfg, server.Options{
			Network: network,
			Lamp:    self,
			Logging: logCtl,
			Version: info,
		}),
	}, nil
}

// Run starts every component and blocks until ctx is done or the radio
// fails, then shuts everything down.
func (d *daemon) Run(ctx context.Context) error {
	if err := d.server.Start(); err != nil {
		d.radio.Close()
		return errors.WrapErrorf(err, "failed to start server")
	}
	d.network.StartMonitoring()

	if d.cfg.Path() != "" {
		d.cfg.Watch(d.applyConfig)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	var runErr error
	wg.Go(func() {
		if err := d.advertiser.Run(ctx); err != nil {
			runErr = err
			d.logger.Error("Radio stopped", "error", err)
			cancel()
		}
	})

	<-ctx.Done()
	d.logger.Info("Shutting down...")

	d.server.Stop()
	d.network.StopMonitoring()
	if err := d.radio.Close(); err != nil {
		d.logger.Warn("Error closing radio", "error", err)
	}
	wg.Wait()
	return runErr
}

// applyConfig re-announces the lamp identity and updates the log level from
// a changed configuration. The advertised name is fixed for the lifetime of
// the radio, so a rename only takes effect after a restart.
func (d *daemon) applyConfig(next *config.Config) {
	identity, err := next.Identity()
	if err != nil {
		d.logger.Warn("Ignoring lamp identity change", "error", err)
		return
	}
	current := d.lamp.Identity()
	if identity.Name != current.Name {
		d.logger.Warn("lamp.name changes take effect after a restart", "current", current.Name, "configured", identity.Name)
		identity.Name = current.Name
	}
	if identity != current {
		d.lamp.SetIdentity(identity)
		d.logger.Info("Lamp identity updated",
			"version", identity.Version,
			"base_color", identity.BaseColor,
			"shade_color", identity.ShadeColor,
		)
	}

	level := utils.GetLogLevel(utils.ValidateLogLevel(next.Logging.Level))
	if level != d.logCtl.Level() {
		d.logCtl.SetLevel(level)
		d.logger.Info("Log level changed", "level", logging.LevelString(level))
	}
}
