package commands

import (
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

func newStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show this lamp's identity and gossip state",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := getClient(cmd)
			if err != nil {
				return err
			}
			format, err := outputFormat(cmd)
			if err != nil {
				return err
			}

			status, err := c.Status()
			if err != nil {
				return fmt.Errorf("failed to get status: %w", err)
			}

			out := cmd.OutOrStdout()
			switch format {
			case outputYAML:
				return printYAML(out, status)
			case outputParseable:
				fmt.Fprintln(out, parseableLine(status,
					"name", "magic", "version", "base_color", "shade_color",
					"current_base", "current_shade", "lamps", "visible"))
				return nil
			}

			data := pterm.TableData{
				{pterm.Bold.Sprint("Name"), pterm.Bold.Sprint(str(status, "name"))},
				{"Magic", str(status, "magic")},
				{"Version", str(status, "version")},
				{"Base Color", colorCell(status, "base_color", "current_base")},
				{"Shade Color", colorCell(status, "shade_color", "current_shade")},
				{"Lamps", fmt.Sprintf("%s (%s visible)", str(status, "lamps"), str(status, "visible"))},
				{"Attributes", attributeSummary(status["attributes"])},
			}
			if msgs, _ := status["messages"].([]any); len(msgs) > 0 {
				data = append(data, []string{"Messages", messageSummary(msgs)})
			}
			return renderTable(out, data, false)
		},
	}
}

// colorCell shows the configured color, followed by the live one when an
// override has replaced it.
func colorCell(m map[string]any, configured, current string) string {
	cfg, cur := str(m, configured), str(m, current)
	if cur == "" || cur == cfg {
		return cfg
	}
	return fmt.Sprintf("%s (now %s)", cfg, cur)
}
