package commands

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/Lamprichauns/lamp-os/pkg/client"
)

// toolArgs is the part of mcp.CallToolRequest the tool handlers read.
type toolArgs interface {
	GetString(key string, defaultValue string) string
	GetInt(key string, defaultValue int) int
	GetBool(key string, defaultValue bool) bool
}

type lampTool struct {
	tool    mcp.Tool
	handler func(c client.ClientInterface, args toolArgs) (any, error)
}

func lampTools() []lampTool {
	return []lampTool{
		{
			tool: mcp.NewTool("status",
				mcp.WithDescription("Get this lamp's name, colors, advertised attributes and relayed messages"),
			),
			handler: func(c client.ClientInterface, _ toolArgs) (any, error) {
				return c.Status()
			},
		},
		{
			tool: mcp.NewTool("list_lamps",
				mcp.WithDescription("List the lamps this lamp has heard over the air, with signal strength and attributes"),
				mcp.WithBoolean("visible", mcp.Description("Only include lamps heard recently")),
			),
			handler: func(c client.ClientInterface, args toolArgs) (any, error) {
				return c.ListLamps(args.GetBool("visible", false))
			},
		},
		{
			tool: mcp.NewTool("get_lamp",
				mcp.WithDescription("Get one lamp by its 12 hex digit id"),
				mcp.WithString("id", mcp.Required(), mcp.Description("Lamp id")),
			),
			handler: func(c client.ClientInterface, args toolArgs) (any, error) {
				id := args.GetString("id", "")
				if id == "" {
					return nil, fmt.Errorf("id is required")
				}
				return c.GetLamp(id)
			},
		},
		{
			tool: mcp.NewTool("list_messages",
				mcp.WithDescription("List the messages this lamp is relaying to its neighbours"),
			),
			handler: func(c client.ClientInterface, _ toolArgs) (any, error) {
				return c.ListMessages()
			},
		},
		{
			tool: mcp.NewTool("announce",
				mcp.WithDescription("Advertise an attribute from this lamp, given as hex or as a color"),
				mcp.WithString("code", mcp.Required(), mcp.Description("Attribute name such as NAME, or a hex code")),
				mcp.WithString("value", mcp.Description("Payload as hex")),
				mcp.WithString("color", mcp.Description("Payload as #rrggbb or #rrggbbww")),
			),
			handler: func(c client.ClientInterface, args toolArgs) (any, error) {
				code := args.GetString("code", "")
				if code == "" {
					return nil, fmt.Errorf("code is required")
				}
				return c.Announce(code, args.GetString("value", ""), args.GetString("color", ""))
			},
		},
		{
			tool: mcp.NewTool("broadcast",
				mcp.WithDescription("Send a message that other lamps relay hop by hop, e.g. BASE_OVERRIDE with a color"),
				mcp.WithString("code", mcp.Required(), mcp.Description("Message name such as BASE_OVERRIDE, or a hex code")),
				mcp.WithString("payload", mcp.Description("Payload as hex")),
				mcp.WithString("color", mcp.Description("Payload as #rrggbb or #rrggbbww")),
				mcp.WithNumber("ttl", mcp.Description("Starting TTL, the daemon default when omitted")),
			),
			handler: func(c client.ClientInterface, args toolArgs) (any, error) {
				code := args.GetString("code", "")
				if code == "" {
					return nil, fmt.Errorf("code is required")
				}
				return c.Broadcast(code, args.GetString("payload", ""), args.GetString("color", ""), args.GetInt("ttl", 0))
			},
		},
	}
}

// callTool runs a tool handler and renders its result as JSON text.
func callTool(c client.ClientInterface, t lampTool, args toolArgs) *mcp.CallToolResult {
	result, err := t.handler(c, args)
	if err != nil {
		return mcp.NewToolResultError(err.Error())
	}
	text, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to encode result: %s", err))
	}
	return mcp.NewToolResultText(string(text))
}

// newMCPServer exposes the lamp tools backed by c.
func newMCPServer(c client.ClientInterface, version string) *server.MCPServer {
	s := server.NewMCPServer("lampctl", version)
	for _, t := range lampTools() {
		s.AddTool(t.tool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return callTool(c, t, request), nil
		})
	}
	return s
}

func newMCPCommand(version string) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve lamp tools to an MCP client over stdio",
		Long: `Run a Model Context Protocol server on stdin and stdout. Its tools talk
to lampd through the same socket or HTTP API as the other commands.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := getClient(cmd)
			if err != nil {
				return err
			}
			getLoggerFromCmd(cmd).Debug("Serving MCP over stdio")
			return server.ServeStdio(newMCPServer(c, version))
		},
	}
}
