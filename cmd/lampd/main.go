package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/Lamprichauns/lamp-os/internal/config"
	"github.com/Lamprichauns/lamp-os/internal/http/handlers"
	"github.com/Lamprichauns/lamp-os/internal/radio"
	"github.com/Lamprichauns/lamp-os/internal/utils"
)

var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func main() {
	v := viper.New()
	v.SetEnvPrefix(config.EnvPrefix)
	v.AutomaticEnv()

	flags := pflag.NewFlagSet("lampd", pflag.ExitOnError)
	registerFlags(flags)
	flags.Parse(os.Args[1:])
	v.BindPFlag("config", flags.Lookup("config"))

	cfg, err := config.Load(config.DaemonConfigFilename, v.GetString("config"))
	if err != nil {
		utils.SetupErrorLogger().Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	applyFlags(cfg, flags)
	if err := cfg.Validate(); err != nil {
		utils.SetupErrorLogger().Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	logger, logCtl := utils.SetupLogger(cfg.Logging.Level, cfg.Logging.Format)
	utils.SetAsDefaultLogger(logger)

	logger.Info("Starting lampd",
		"version", version,
		"commit", commit,
		"buildDate", buildDate,
	)

	r, err := radio.New(cfg.Radio, cfg.Lamp.Name, logger)
	if err != nil {
		logger.Error("Failed to open radio", "error", err)
		os.Exit(1)
	}

	d, err := newDaemon(cfg, logger, logCtl, r, handlers.VersionInfo{
		Version:   version,
		Commit:    commit,
		BuildDate: buildDate,
	})
	if err != nil {
		r.Close()
		logger.Error("Failed to create daemon", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := d.Run(ctx); err != nil {
		logger.Error("lampd stopped with error", "error", err)
		os.Exit(1)
	}
}

func registerFlags(flags *pflag.FlagSet) {
	flags.String("config", "", "Path to config file")
	flags.String("log-level", config.LogLevelInfo, "Log level (debug, info, warn, error)")
	flags.String("log-format", config.LogFormatText, "Log format (text, json)")
	flags.String("name", "", "Lamp name to advertise")
	flags.String("radio", "", "Radio driver (multicast, loopback)")
	flags.String("socket", "", "Unix socket path")
	flags.String("api-listen", "", "HTTP API listen address, empty to keep the configured one")
}

// applyFlags copies flags set on the command line over the loaded config.
func applyFlags(cfg *config.Config, flags *pflag.FlagSet) {
	set := func(name string, key string, target *string) {
		if !flags.Changed(name) {
			return
		}
		value, _ := flags.GetString(name)
		*target = value
		cfg.Set(key, value)
	}
	set("log-level", "logging.level", &cfg.Logging.Level)
	set("log-format", "logging.format", &cfg.Logging.Format)
	set("name", "lamp.name", &cfg.Lamp.Name)
	set("radio", "radio.driver", &cfg.Radio.Driver)
	set("socket", "server.unix_socket", &cfg.Server.UnixSocket)
	set("api-listen", "api.listen_address", &cfg.API.ListenAddress)
}
