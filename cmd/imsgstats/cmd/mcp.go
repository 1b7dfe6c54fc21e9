package cmd

import (
	"github.com/spf13/cobra"
	mcpserver "github.com/wesm/imsgstats/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run MCP server for Claude Desktop integration",
	Long: `Start an MCP (Model Context Protocol) server over stdio.

This allows Claude Desktop (or any MCP client) to query your Messages
database using tools like get_basic_statistics, list_contacts,
search_messages, get_contact_statistics and get_conversation. Every tool is
read-only.

"imsgstats setup" adds the server to Claude Desktop's config. To do it by
hand, add:
  {
    "mcpServers": {
      "imsgstats": {
        "command": "/path/to/imsgstats",
        "args": ["mcp"]
      }
    }
  }`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		logger.Info("starting MCP server",
			"name", cfg.MCP.ServerName,
			"database", cfg.Messages.Database,
		)
		return mcpserver.Serve(cmd.Context(), newAnalyzer(), mcpserver.Options{
			Name:    cfg.MCP.ServerName,
			Version: Version,
			Logger:  logger,
		})
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
