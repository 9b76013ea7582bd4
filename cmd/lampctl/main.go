package main

import (
	"context"
	"os"

	"github.com/Lamprichauns/lamp-os/cmd/lampctl/commands"
	"github.com/Lamprichauns/lamp-os/internal/config"
	"github.com/Lamprichauns/lamp-os/internal/utils"
)

var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func main() {
	cfg, err := config.Load(config.ClientConfigFilename, os.Getenv(config.EnvPrefix+"_CTL_CONFIG"))
	if err != nil {
		logger := utils.SetupErrorLogger()
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Client logs stay quiet unless asked for; stdout belongs to command output.
	level := cfg.Logging.Level
	if level == "" || level == config.LogLevelInfo {
		level = config.LogLevelWarn
	}
	logger, logCtl := utils.SetupLogger(level, cfg.Logging.Format)
	utils.SetAsDefaultLogger(logger)

	rootCmd := commands.NewRootCommand(logger, version, commit, buildDate)

	// Config supplies defaults; flags parsed by Execute override them.
	flags := rootCmd.PersistentFlags()
	if cfg.Server.UnixSocket != "" {
		_ = flags.Set("socket", cfg.Server.UnixSocket)
	}
	if cfg.API.Token != "" {
		_ = flags.Set("token", cfg.API.Token)
	}

	ctx := rootCmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = context.WithValue(ctx, commands.LogControllerContextKey, logCtl)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
