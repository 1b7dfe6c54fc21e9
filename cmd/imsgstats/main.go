// Command imsgstats reports statistics about the local iMessage history and
// serves them to Claude Desktop as MCP tools.
//
// Usage:
//
//	imsgstats setup            register the MCP server with Claude Desktop
//	imsgstats doctor           check database access and the registration
//	imsgstats stats|words|...  print statistics in the terminal
//	imsgstats mcp              serve the tools over stdio (started by Claude)
//
// The Messages database is only ever opened read-only.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/wesm/imsgstats/cmd/imsgstats/cmd"
)

// Exit codes. 130 is what shells report for a SIGINT-terminated process.
const (
	exitOK          = 0
	exitFailed      = 1
	exitInterrupted = 130
)

func main() {
	// Claude Desktop stops the MCP server with SIGTERM; Ctrl-C stops the CLI.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := exitCode(ctx, cmd.ExecuteContext(ctx))
	stop()
	os.Exit(code)
}

func exitCode(ctx context.Context, err error) int {
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, context.Canceled) && errors.Is(ctx.Err(), context.Canceled):
		return exitInterrupted
	default:
		return exitFailed
	}
}
