// Package commands implements the lampctl command tree.
package commands

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/Lamprichauns/lamp-os/internal/logging"
	"github.com/Lamprichauns/lamp-os/internal/utils"
	"github.com/Lamprichauns/lamp-os/pkg/client"
)

// Define a custom type for context keys to avoid collisions
type loggerContextKey struct{}

// NewRootCommand creates the root command. A client already stored in the
// command context under ClientContextKey is used as is; otherwise one is
// built from the --api or --socket flags before any subcommand runs.
func NewRootCommand(logger *slog.Logger, version, commit, buildDate string) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "lampctl",
		Short:         "Inspect and steer a lampd lamp and the lamps it can see",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			applyLogLevel(cmd)
			return ensureClient(cmd, logger)
		},
	}

	cmd.PersistentFlags().String("socket", "", "Path to lampd socket")
	cmd.PersistentFlags().String("api", "", "lampd HTTP API base URL, e.g. http://lamp.local:9420 (overrides --socket)")
	cmd.PersistentFlags().String("token", "", "Bearer token for write requests over the HTTP API")
	cmd.PersistentFlags().StringP("output", "o", outputTable, "Output format (table, parseable, yaml)")
	cmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")

	cmd.AddCommand(
		newVersionCommand(version, commit, buildDate),
		newStatusCommand(),
		NewLampsCommand(),
		NewAttributesCommand(),
		NewMessagesCommand(),
		newBroadcastCommand(),
		NewLoggingCommand(),
		newDiscoverCommand(),
		newMCPCommand(version),
	)

	if logger != nil {
		parent := cmd.Context()
		if parent == nil {
			parent = context.Background()
		}
		cmd.SetContext(context.WithValue(parent, loggerContextKey{}, logger))
	}

	return cmd
}

// applyLogLevel honours --log-level when main stored a log controller in
// the context.
func applyLogLevel(cmd *cobra.Command) {
	flag := cmd.Root().PersistentFlags().Lookup("log-level")
	if flag == nil || !flag.Changed || cmd.Context() == nil {
		return
	}
	if ctl, ok := cmd.Context().Value(LogControllerContextKey).(*logging.Controller); ok {
		ctl.SetLevel(utils.GetLogLevel(utils.ValidateLogLevel(flag.Value.String())))
	}
}

// ensureClient stores a client in the command context unless one is there.
func ensureClient(cmd *cobra.Command, logger *slog.Logger) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if _, ok := ctx.Value(ClientContextKey).(client.ClientInterface); ok {
		return nil
	}
	if logger == nil {
		logger = slog.Default()
	}

	flags := cmd.Root().PersistentFlags()
	var c client.ClientInterface
	if api, _ := flags.GetString("api"); api != "" {
		token, _ := flags.GetString("token")
		c = client.NewHTTP(logger, api, token)
	} else {
		socket, _ := flags.GetString("socket")
		c = client.New(logger, socket)
	}
	cmd.SetContext(context.WithValue(ctx, ClientContextKey, c))
	return nil
}

// getClient returns the client stored by ensureClient.
func getClient(cmd *cobra.Command) (client.ClientInterface, error) {
	c, ok := cmd.Context().Value(ClientContextKey).(client.ClientInterface)
	if !ok {
		return nil, fmt.Errorf("client not found in context")
	}
	return c, nil
}

// newVersionCommand creates the version command
func newVersionCommand(version, commit, buildDate string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Client:\n")
			fmt.Fprintf(out, "  Version:    %s\n", version)
			fmt.Fprintf(out, "  Commit:     %s\n", commit)
			fmt.Fprintf(out, "  Build Date: %s\n", buildDate)

			// Try to query the daemon for its version
			c, err := getClient(cmd)
			if err != nil {
				return
			}
			resp, err := c.Version()
			if err != nil {
				fmt.Fprintf(out, "\nDaemon: not reachable\n")
				return
			}
			fmt.Fprintf(out, "\nDaemon:\n")
			if v, ok := resp["version"].(string); ok {
				fmt.Fprintf(out, "  Version:    %s\n", v)
			}
			if c, ok := resp["commit"].(string); ok {
				fmt.Fprintf(out, "  Commit:     %s\n", c)
			}
			if d, ok := resp["build_date"].(string); ok {
				fmt.Fprintf(out, "  Build Date: %s\n", d)
			}
		},
	}
}
