package commands

import (
	"fmt"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

// NewLoggingCommand creates the logging command
func NewLoggingCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "logging",
		Short: "Inspect and adjust daemon logging at runtime",
	}

	filters := &cobra.Command{
		Use:   "filters",
		Short: "Show the daemon's per-attribute log filters",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := getClient(cmd)
			if err != nil {
				return err
			}
			state, err := c.ListFilters()
			if err != nil {
				return fmt.Errorf("failed to list filters: %w", err)
			}
			return printFilterState(cmd, state)
		},
	}
	filters.AddCommand(newLoggingFiltersSetCommand(), newLoggingFiltersClearCommand())

	cmd.AddCommand(newLoggingLevelCommand(), filters)
	return cmd
}

func newLoggingLevelCommand() *cobra.Command {
	return &cobra.Command{
		Use:       "level [debug|info|warn|error]",
		Short:     "Show or set the daemon's global log level",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{"debug", "info", "warn", "error"},
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := getClient(cmd)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(args) == 0 {
				state, err := c.ListFilters()
				if err != nil {
					return fmt.Errorf("failed to get log level: %w", err)
				}
				fmt.Fprintln(out, str(state, "level"))
				return nil
			}
			level, err := c.SetLogLevel(args[0])
			if err != nil {
				return fmt.Errorf("failed to set log level: %w", err)
			}
			pterm.Success.WithWriter(out).Printfln("Log level set to %s", level)
			return nil
		},
	}
}

func newLoggingFiltersSetCommand() *cobra.Command {
	var disabled bool
	cmd := &cobra.Command{
		Use:   "set <type:pattern:level>...",
		Short: "Replace the daemon's log filters",
		Long: `Replace all log filters. Each filter lowers or raises the level for log
records carrying the attribute named by type whose value matches the glob
pattern.`,
		Example: `  lampctl logging filters set component:radio*:debug
  lampctl logging filters set component:gossip:debug lamp:0a*:debug`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			filters := make([]map[string]any, 0, len(args))
			for _, arg := range args {
				f, err := parseFilterArg(arg)
				if err != nil {
					return err
				}
				f["enabled"] = !disabled
				filters = append(filters, f)
			}

			c, err := getClient(cmd)
			if err != nil {
				return err
			}
			state, err := c.SetFilters(filters)
			if err != nil {
				return fmt.Errorf("failed to set filters: %w", err)
			}
			return printFilterState(cmd, state)
		},
	}
	cmd.Flags().BoolVar(&disabled, "disabled", false, "Store the filters without enabling them")
	return cmd
}

func newLoggingFiltersClearCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove all log filters",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := getClient(cmd)
			if err != nil {
				return err
			}
			state, err := c.SetFilters([]map[string]any{})
			if err != nil {
				return fmt.Errorf("failed to clear filters: %w", err)
			}
			return printFilterState(cmd, state)
		},
	}
}

// parseFilterArg splits "type:pattern:level". The pattern may itself
// contain colons.
func parseFilterArg(arg string) (map[string]any, error) {
	first := strings.Index(arg, ":")
	last := strings.LastIndex(arg, ":")
	if first <= 0 || last == first || last == len(arg)-1 {
		return nil, fmt.Errorf("invalid filter %q, want type:pattern:level", arg)
	}
	return map[string]any{
		"type":    arg[:first],
		"pattern": arg[first+1 : last],
		"level":   arg[last+1:],
	}, nil
}

func printFilterState(cmd *cobra.Command, state map[string]any) error {
	format, err := outputFormat(cmd)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	filters, _ := state["filters"].([]any)

	switch format {
	case outputYAML:
		return printYAML(out, state)
	case outputParseable:
		fmt.Fprintln(out, parseableLine(state, "level"))
		for _, item := range filters {
			if f, ok := item.(map[string]any); ok {
				fmt.Fprintln(out, parseableLine(f, "type", "pattern", "level", "enabled"))
			}
		}
		return nil
	}

	fmt.Fprintf(out, "Level: %s\n", str(state, "level"))
	if len(filters) == 0 {
		printInfo(out, "No log filters")
		return nil
	}
	table := pterm.TableData{{"Type", "Pattern", "Level", "Enabled"}}
	for _, item := range filters {
		f, ok := item.(map[string]any)
		if !ok {
			continue
		}
		table = append(table, []string{str(f, "type"), str(f, "pattern"), str(f, "level"), str(f, "enabled")})
	}
	return renderTable(out, table, true)
}
