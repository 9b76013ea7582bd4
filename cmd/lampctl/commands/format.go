package commands

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

const (
	outputTable     = "table"
	outputParseable = "parseable"
	outputYAML      = "yaml"
)

// outputFormat returns the validated --output value.
func outputFormat(cmd *cobra.Command) (string, error) {
	format, _ := cmd.Flags().GetString("output")
	switch format {
	case "", outputTable:
		return outputTable, nil
	case outputParseable, outputYAML:
		return format, nil
	}
	return "", fmt.Errorf("unknown output format %q (want table, parseable or yaml)", format)
}

// printYAML writes v as a YAML document.
func printYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode YAML: %w", err)
	}
	return enc.Close()
}

// renderTable draws a pterm table to w. The first row is a header when
// header is set.
func renderTable(w io.Writer, data pterm.TableData, header bool) error {
	table := pterm.DefaultTable.WithData(data).WithWriter(w)
	if header {
		table = table.WithHasHeader()
	}
	return table.Render()
}

func printInfo(w io.Writer, msg string) {
	pterm.Info.WithWriter(w).Println(msg)
}

// parseableLine formats the given keys of m as key=value pairs in order.
// Strings are quoted; missing keys are skipped.
func parseableLine(m map[string]any, keys ...string) string {
	parts := make([]string, 0, len(keys))
	for _, key := range keys {
		val, ok := m[key]
		if !ok {
			continue
		}
		switch v := val.(type) {
		case string:
			parts = append(parts, fmt.Sprintf("%s=%s", key, strconv.Quote(v)))
		case float64:
			parts = append(parts, fmt.Sprintf("%s=%s", key, strconv.FormatFloat(v, 'f', -1, 64)))
		default:
			parts = append(parts, fmt.Sprintf("%s=%v", key, v))
		}
	}
	return strings.Join(parts, " ")
}

// str returns m[key] formatted for a table cell.
func str(m map[string]any, key string) string {
	switch v := m[key].(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprintf("%v", v)
	}
}

// formatSeen renders an RFC 3339 timestamp as an age relative to now.
func formatSeen(value any, now time.Time) string {
	s, _ := value.(string)
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil || t.IsZero() {
		return "N/A"
	}
	age := now.Sub(t).Round(time.Second)
	if age < 0 {
		age = 0
	}
	return age.String() + " ago"
}

// attributeSummary renders attributes as NAME=text pairs, falling back to
// the hex value for codes without a decoded form.
func attributeSummary(value any) string {
	list, _ := value.([]any)
	parts := make([]string, 0, len(list))
	for _, item := range list {
		attr, ok := item.(map[string]any)
		if !ok {
			continue
		}
		text := str(attr, "text")
		if text == "" {
			text = str(attr, "value")
		}
		parts = append(parts, str(attr, "name")+"="+text)
	}
	sort.Strings(parts)
	return strings.Join(parts, " ")
}

// LampTableData returns the detail table for one lamp, with bold ID and value
func LampTableData(l map[string]any, now time.Time) pterm.TableData {
	data := pterm.TableData{
		[]string{pterm.Bold.Sprint("ID"), pterm.Bold.Sprint(str(l, "id"))},
		[]string{"Name", str(l, "name")},
		[]string{"RSSI", str(l, "rssi") + " dBm"},
		[]string{"Visible", str(l, "visible")},
		[]string{"Arrived", str(l, "arrived")},
		[]string{"First Seen", formatSeen(l["first_seen"], now)},
		[]string{"Last Seen", formatSeen(l["last_seen"], now)},
	}
	list, _ := l["attributes"].([]any)
	for _, item := range list {
		attr, ok := item.(map[string]any)
		if !ok {
			continue
		}
		text := str(attr, "text")
		if text == "" {
			text = str(attr, "value")
		}
		data = append(data, []string{str(attr, "name"), text})
	}
	return data
}
