package commands

import (
	"context"
	"fmt"
	"net"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/grandcat/zeroconf"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/Lamprichauns/lamp-os/internal/config"
)

// browse is replaced in tests
var browse = browseZeroconf

type discoveredDaemon struct {
	Instance string   `yaml:"instance"`
	Host     string   `yaml:"host"`
	Address  string   `yaml:"address"`
	Text     []string `yaml:"text,omitempty"`
}

func (d discoveredDaemon) apiURL() string {
	return "http://" + d.Address
}

func newDiscoverCommand() *cobra.Command {
	var timeout time.Duration
	cmd := &cobra.Command{
		Use:   "discover",
		Short: "Find lampd HTTP APIs on the local network",
		Long: `Browse mDNS for lampd daemons that advertise their HTTP API. Any
address printed can be passed to --api.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := outputFormat(cmd)
			if err != nil {
				return err
			}
			logger := getLoggerFromCmd(cmd)

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			logger.Debug("Browsing for lampd daemons", "service", config.MDNSService, "timeout", timeout)
			found, err := browse(ctx)
			if err != nil {
				return fmt.Errorf("mDNS browse failed: %w", err)
			}
			sort.Slice(found, func(i, j int) bool { return found[i].Instance < found[j].Instance })

			out := cmd.OutOrStdout()
			switch format {
			case outputYAML:
				return printYAML(out, found)
			case outputParseable:
				for _, d := range found {
					fmt.Fprintf(out, "instance=%s host=%s api=%s\n",
						strconv.Quote(d.Instance), strconv.Quote(d.Host), strconv.Quote(d.apiURL()))
				}
				return nil
			}

			if len(found) == 0 {
				printInfo(out, "No lampd daemons found")
				return nil
			}
			table := pterm.TableData{{"Instance", "Host", "API", "Info"}}
			for _, d := range found {
				table = append(table, []string{d.Instance, d.Host, d.apiURL(), strings.Join(d.Text, " ")})
			}
			return renderTable(out, table, true)
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", 3*time.Second, "How long to listen for answers")
	return cmd
}

// browseZeroconf collects lampd service entries until ctx is done.
func browseZeroconf(ctx context.Context) ([]discoveredDaemon, error) {
	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return nil, err
	}

	entries := make(chan *zeroconf.ServiceEntry)
	if err := resolver.Browse(ctx, config.MDNSService, config.MDNSDomain, entries); err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var found []discoveredDaemon
	for {
		select {
		case <-ctx.Done():
			return found, nil
		case entry, ok := <-entries:
			if !ok {
				return found, nil
			}
			if entry == nil || seen[entry.Instance] {
				continue
			}
			d, ok := daemonFromEntry(entry)
			if !ok {
				continue
			}
			seen[entry.Instance] = true
			found = append(found, d)
		}
	}
}

func daemonFromEntry(entry *zeroconf.ServiceEntry) (discoveredDaemon, bool) {
	var ip net.IP
	switch {
	case len(entry.AddrIPv4) > 0:
		ip = entry.AddrIPv4[0]
	case len(entry.AddrIPv6) > 0:
		ip = entry.AddrIPv6[0]
	default:
		return discoveredDaemon{}, false
	}
	return discoveredDaemon{
		Instance: entry.Instance,
		Host:     strings.TrimSuffix(entry.HostName, "."),
		Address:  net.JoinHostPort(ip.String(), strconv.Itoa(entry.Port)),
		Text:     entry.Text,
	}, true
}
