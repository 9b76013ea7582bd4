package commands

import (
	"fmt"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

// now is replaced in tests
var now = time.Now

var lampParseableKeys = []string{"id", "name", "rssi", "visible", "arrived", "first_seen", "last_seen"}

// NewLampsCommand creates the lamps command
func NewLampsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "lamps",
		Aliases: []string{"lamp", "peers"},
		Short:   "Show the lamps this lamp has heard",
	}

	cmd.AddCommand(
		newLampsListCommand(),
		newLampsGetCommand(),
	)

	return cmd
}

func newLampsListCommand() *cobra.Command {
	var visible bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List known lamps",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := getClient(cmd)
			if err != nil {
				return err
			}
			format, err := outputFormat(cmd)
			if err != nil {
				return err
			}

			lamps, err := c.ListLamps(visible)
			if err != nil {
				return fmt.Errorf("failed to list lamps: %w", err)
			}

			out := cmd.OutOrStdout()
			switch format {
			case outputYAML:
				return printYAML(out, lamps)
			case outputParseable:
				for _, l := range lamps {
					fmt.Fprintln(out, parseableLine(l, lampParseableKeys...))
				}
				return nil
			}

			if len(lamps) == 0 {
				printInfo(out, "No lamps heard")
				return nil
			}
			t := now()
			table := pterm.TableData{{"ID", "Name", "RSSI", "Visible", "Last Seen", "Attributes"}}
			for _, l := range lamps {
				table = append(table, []string{
					str(l, "id"),
					str(l, "name"),
					str(l, "rssi"),
					str(l, "visible"),
					formatSeen(l["last_seen"], t),
					attributeSummary(l["attributes"]),
				})
			}
			return renderTable(out, table, true)
		},
	}
	cmd.Flags().BoolVar(&visible, "visible", false, "Only show lamps heard recently")
	return cmd
}

func newLampsGetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show one lamp",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := getClient(cmd)
			if err != nil {
				return err
			}
			format, err := outputFormat(cmd)
			if err != nil {
				return err
			}

			l, err := c.GetLamp(args[0])
			if err != nil {
				return fmt.Errorf("failed to get lamp %s: %w", args[0], err)
			}

			out := cmd.OutOrStdout()
			switch format {
			case outputYAML:
				return printYAML(out, l)
			case outputParseable:
				fmt.Fprintln(out, parseableLine(l, lampParseableKeys...))
				return nil
			}
			return renderTable(out, LampTableData(l, now()), false)
		},
	}
}
