package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/spf13/cobra"
)

var callCmd = &cobra.Command{
	Use:   "call [tool] [key=value...]",
	Short: "Call an MCP tool through a local server, for testing",
	Long: `Start "imsgstats mcp" as a child process, connect to it the way Claude
Desktop does, and call one tool. Without a tool name the available tools
are listed.

Arguments are passed as key=value pairs. Values of numeric parameters are
sent as numbers, everything else as strings.

Examples:
  imsgstats call
  imsgstats call get_basic_statistics
  imsgstats call search_messages query=dinner limit=5
  imsgstats call get_conversation contact=+15551234567 days_back=7`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		c, _, err := startClient(ctx)
		if err != nil {
			return err
		}
		defer c.Close()

		tools, err := c.ListTools(ctx, mcp.ListToolsRequest{})
		if err != nil {
			return fmt.Errorf("list tools: %w", err)
		}

		out := cmd.OutOrStdout()
		if len(args) == 0 {
			printToolList(out, tools.Tools)
			return nil
		}

		tool, ok := findTool(tools.Tools, args[0])
		if !ok {
			return fmt.Errorf("unknown tool %q; run \"imsgstats call\" to list tools", args[0])
		}
		toolArgs, err := parseToolArgs(tool, args[1:])
		if err != nil {
			return err
		}

		req := mcp.CallToolRequest{}
		req.Params.Name = tool.Name
		req.Params.Arguments = toolArgs
		res, err := c.CallTool(ctx, req)
		if err != nil {
			return fmt.Errorf("call %s: %w", tool.Name, err)
		}

		text := resultText(res)
		if res.IsError {
			return errors.New(text)
		}
		fmt.Fprintln(out, text)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(callCmd)
}

// startClient launches this binary's MCP server over stdio and completes
// the initialize handshake.
func startClient(ctx context.Context) (*client.Client, *mcp.InitializeResult, error) {
	exe, err := os.Executable()
	if err != nil {
		return nil, nil, fmt.Errorf("locate imsgstats binary: %w", err)
	}
	c, err := client.NewStdioMCPClient(exe, nil, mcpServerArgs(cfgFile, homeDir)...)
	if err != nil {
		return nil, nil, fmt.Errorf("start MCP server: %w", err)
	}

	initReq := mcp.InitializeRequest{}
	initReq.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	initReq.Params.ClientInfo = mcp.Implementation{
		Name:    "imsgstats-call",
		Version: Version,
	}
	info, err := c.Initialize(ctx, initReq)
	if err != nil {
		c.Close()
		return nil, nil, fmt.Errorf("initialize MCP session: %w", err)
	}
	logger.Debug("connected to MCP server", "name", info.ServerInfo.Name, "version", info.ServerInfo.Version)
	return c, info, nil
}

func printToolList(w io.Writer, tools []mcp.Tool) {
	sort.Slice(tools, func(i, j int) bool { return tools[i].Name < tools[j].Name })
	tw := newTable(w, "TOOL", "ARGUMENTS")
	for _, t := range tools {
		fmt.Fprintf(tw, "%s\t%s\n", t.Name, strings.Join(argNames(t), " "))
	}
	tw.Flush()
}

// argNames lists a tool's parameters, required ones first and marked with *.
func argNames(t mcp.Tool) []string {
	required := make(map[string]bool, len(t.InputSchema.Required))
	for _, r := range t.InputSchema.Required {
		required[r] = true
	}
	names := make([]string, 0, len(t.InputSchema.Properties))
	for name := range t.InputSchema.Properties {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if required[names[i]] != required[names[j]] {
			return required[names[i]]
		}
		return names[i] < names[j]
	})
	for i, n := range names {
		if required[n] {
			names[i] = n + "*"
		}
	}
	return names
}

func findTool(tools []mcp.Tool, name string) (mcp.Tool, bool) {
	for _, t := range tools {
		if t.Name == name {
			return t, true
		}
	}
	return mcp.Tool{}, false
}

// parseToolArgs turns key=value pairs into call arguments, typed by the
// tool's input schema.
func parseToolArgs(tool mcp.Tool, pairs []string) (map[string]any, error) {
	out := make(map[string]any, len(pairs))
	for _, p := range pairs {
		key, value, ok := strings.Cut(p, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("argument %q is not key=value", p)
		}
		prop, known := tool.InputSchema.Properties[key]
		if !known {
			return nil, fmt.Errorf("tool %s has no argument %q", tool.Name, key)
		}
		switch propertyType(prop) {
		case "number", "integer":
			n, err := strconv.ParseFloat(value, 64)
			if err != nil {
				return nil, fmt.Errorf("argument %s: %q is not a number", key, value)
			}
			out[key] = n
		case "boolean":
			b, err := strconv.ParseBool(value)
			if err != nil {
				return nil, fmt.Errorf("argument %s: %q is not true or false", key, value)
			}
			out[key] = b
		default:
			out[key] = value
		}
	}
	return out, nil
}

func propertyType(prop any) string {
	if m, ok := prop.(map[string]any); ok {
		if t, ok := m["type"].(string); ok {
			return t
		}
	}
	return "string"
}

func resultText(res *mcp.CallToolResult) string {
	var parts []string
	for _, c := range res.Content {
		switch tc := c.(type) {
		case mcp.TextContent:
			parts = append(parts, tc.Text)
		case *mcp.TextContent:
			parts = append(parts, tc.Text)
		}
	}
	if len(parts) == 0 {
		return "(no content)"
	}
	return strings.Join(parts, "\n")
}
