package commands

import (
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var attributeParseableKeys = []string{"code", "name", "value", "text"}

// NewAttributesCommand creates the attributes command
func NewAttributesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "attributes",
		Aliases: []string{"attrs", "attr"},
		Short:   "Show or change the attributes this lamp advertises",
	}

	cmd.AddCommand(
		newAttributesListCommand(),
		newAttributesSetCommand(),
	)

	return cmd
}

func newAttributesListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List advertised attributes",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := getClient(cmd)
			if err != nil {
				return err
			}
			format, err := outputFormat(cmd)
			if err != nil {
				return err
			}

			attrs, err := c.ListAttributes()
			if err != nil {
				return fmt.Errorf("failed to list attributes: %w", err)
			}
			return printAttributes(cmd, format, attrs)
		},
	}
}

func newAttributesSetCommand() *cobra.Command {
	var value, color string
	cmd := &cobra.Command{
		Use:   "set <code>",
		Short: "Advertise an attribute",
		Long: `Advertise an attribute under the given code (a name such as NAME or a
hex code such as 0x01). Give the raw payload as hex with --value, or a
color as #rrggbb or #rrggbbww with --color.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if (value == "") == (color == "") {
				return fmt.Errorf("exactly one of --value or --color is required")
			}
			c, err := getClient(cmd)
			if err != nil {
				return err
			}
			format, err := outputFormat(cmd)
			if err != nil {
				return err
			}

			attr, err := c.Announce(args[0], value, color)
			if err != nil {
				return fmt.Errorf("failed to set attribute %s: %w", args[0], err)
			}
			if format == outputTable {
				pterm.Success.WithWriter(cmd.OutOrStdout()).Printfln("Advertising %s", attributeSummary([]any{attr}))
				return nil
			}
			return printAttributes(cmd, format, []map[string]any{attr})
		},
	}
	cmd.Flags().StringVar(&value, "value", "", "Attribute payload as hex")
	cmd.Flags().StringVar(&color, "color", "", "Attribute payload as a color")
	return cmd
}

func printAttributes(cmd *cobra.Command, format string, attrs []map[string]any) error {
	out := cmd.OutOrStdout()
	switch format {
	case outputYAML:
		return printYAML(out, attrs)
	case outputParseable:
		for _, a := range attrs {
			fmt.Fprintln(out, parseableLine(a, attributeParseableKeys...))
		}
		return nil
	}

	if len(attrs) == 0 {
		printInfo(out, "No attributes advertised")
		return nil
	}
	table := pterm.TableData{{"Code", "Name", "Value", "Text"}}
	for _, a := range attrs {
		table = append(table, []string{str(a, "code"), str(a, "name"), str(a, "value"), str(a, "text")})
	}
	return renderTable(out, table, true)
}
