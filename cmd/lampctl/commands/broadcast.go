package commands

import (
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

func newBroadcastCommand() *cobra.Command {
	var payload, color string
	var ttl int
	cmd := &cobra.Command{
		Use:   "broadcast <code>",
		Short: "Start a message that hops from lamp to lamp",
		Long: `Broadcast a message under the given code (a name such as BASE_OVERRIDE
or a hex code). The payload is given as hex with --payload or as a color
with --color. Each lamp that relays the message lowers its TTL; --ttl
sets the starting value, the daemon default is used when omitted.`,
		Example: `  lampctl broadcast BASE_OVERRIDE --color '#ff0000'
  lampctl broadcast 0x52 --payload 01ff --ttl 3`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if payload != "" && color != "" {
				return fmt.Errorf("--payload and --color are mutually exclusive")
			}
			if ttl < 0 || ttl > 255 {
				return fmt.Errorf("--ttl must be between 0 and 255")
			}
			c, err := getClient(cmd)
			if err != nil {
				return err
			}
			format, err := outputFormat(cmd)
			if err != nil {
				return err
			}

			msg, err := c.Broadcast(args[0], payload, color, ttl)
			if err != nil {
				return fmt.Errorf("failed to broadcast %s: %w", args[0], err)
			}
			if format == outputTable {
				pterm.Success.WithWriter(cmd.OutOrStdout()).Printfln("Broadcasting %s with ttl %s", str(msg, "name"), str(msg, "ttl"))
				return nil
			}
			return printMessages(cmd, format, []map[string]any{msg})
		},
	}
	cmd.Flags().StringVar(&payload, "payload", "", "Message payload as hex")
	cmd.Flags().StringVar(&color, "color", "", "Message payload as a color")
	cmd.Flags().IntVar(&ttl, "ttl", 0, "Starting TTL (0 uses the daemon default)")
	return cmd
}
