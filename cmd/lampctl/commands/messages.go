package commands

import (
	"fmt"
	"sort"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var messageParseableKeys = []string{"code", "name", "ttl", "payload", "text"}

// NewMessagesCommand creates the messages command
func NewMessagesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "messages",
		Aliases: []string{"msgs"},
		Short:   "Show messages being relayed",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List messages this lamp is relaying",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := getClient(cmd)
			if err != nil {
				return err
			}
			format, err := outputFormat(cmd)
			if err != nil {
				return err
			}

			msgs, err := c.ListMessages()
			if err != nil {
				return fmt.Errorf("failed to list messages: %w", err)
			}
			return printMessages(cmd, format, msgs)
		},
	})
	return cmd
}

func printMessages(cmd *cobra.Command, format string, msgs []map[string]any) error {
	out := cmd.OutOrStdout()
	switch format {
	case outputYAML:
		return printYAML(out, msgs)
	case outputParseable:
		for _, m := range msgs {
			fmt.Fprintln(out, parseableLine(m, messageParseableKeys...))
		}
		return nil
	}

	if len(msgs) == 0 {
		printInfo(out, "No messages in flight")
		return nil
	}
	table := pterm.TableData{{"Code", "Name", "TTL", "Payload", "Text"}}
	for _, m := range msgs {
		table = append(table, []string{str(m, "code"), str(m, "name"), str(m, "ttl"), str(m, "payload"), str(m, "text")})
	}
	return renderTable(out, table, true)
}

// messageSummary renders messages as NAME(ttl) pairs.
func messageSummary(list []any) string {
	parts := make([]string, 0, len(list))
	for _, item := range list {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		parts = append(parts, fmt.Sprintf("%s(ttl %s)", str(m, "name"), str(m, "ttl")))
	}
	sort.Strings(parts)
	return strings.Join(parts, " ")
}
