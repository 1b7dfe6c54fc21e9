package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/spf13/cobra"
	"github.com/wesm/imsgstats/internal/apperr"
	"github.com/wesm/imsgstats/internal/claudecfg"
	"github.com/wesm/imsgstats/internal/sysinfo"
)

const serverProbeTimeout = 15 * time.Second

type checkStatus int

const (
	checkOK checkStatus = iota
	checkWarn
	checkFail
)

type checkResult struct {
	Name   string
	Status checkStatus
	Detail string
}

var doctorSkipServer bool

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check that imsgstats can read Messages and talk to Claude",
	Long: `Run installation checks:
  - macOS version (10.14 or newer)
  - Messages database present and readable (Full Disk Access)
  - Claude Desktop installed and imsgstats registered in its config
  - the MCP server starts and lists its tools

Exits non-zero when a check fails. Warnings do not fail the run.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		results := []checkResult{
			checkMacOS(),
			checkDatabase(ctx),
			checkClaudeApp(),
			checkClaudeConfig(claudeConfigPath(), cfg.MCP.ServerName),
		}
		if !doctorSkipServer {
			results = append(results, checkServer(ctx))
		}

		if failed := printChecks(cmd.OutOrStdout(), results); failed > 0 {
			return fmt.Errorf("%d check(s) failed", failed)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(doctorCmd)
	doctorCmd.Flags().BoolVar(&doctorSkipServer, "skip-server", false, "Do not start the MCP server")
}

func checkMacOS() checkResult {
	r := checkResult{Name: "macOS version"}
	if !sysinfo.IsMacOS() {
		r.Status, r.Detail = checkWarn, "not macOS; point [messages] database at a copied chat.db"
		return r
	}
	v, err := sysinfo.ReadMacOSVersion(sysinfo.SystemVersionPath)
	if err != nil {
		r.Status, r.Detail = checkWarn, err.Error()
		return r
	}
	if !v.AtLeast(sysinfo.MinMacOSVersion) {
		r.Status, r.Detail = checkFail, fmt.Sprintf("%s; %s or newer is required", v, sysinfo.MinMacOSVersion)
		return r
	}
	r.Detail = v.String()
	return r
}

func checkDatabase(ctx context.Context) checkResult {
	r := checkResult{Name: "Messages database"}
	if err := checkDatabaseAccess(ctx); err != nil {
		r.Status, r.Detail = checkFail, apperr.Message(err)
		return r
	}
	r.Detail = cfg.Messages.Database
	return r
}

func checkClaudeApp() checkResult {
	r := checkResult{Name: "Claude Desktop"}
	if !claudecfg.AppInstalled() {
		r.Status, r.Detail = checkWarn, "not found; install it from https://claude.ai/download"
		return r
	}
	r.Detail = "installed"
	return r
}

func checkClaudeConfig(path, name string) checkResult {
	r := checkResult{Name: "Claude Desktop config"}
	if _, err := os.Stat(path); err != nil {
		r.Status, r.Detail = checkWarn, fmt.Sprintf("%s not found; run \"imsgstats setup\"", path)
		return r
	}
	f, err := claudecfg.Load(path)
	if err != nil {
		r.Status, r.Detail = checkFail, err.Error()
		return r
	}
	if f.Invalid {
		r.Status, r.Detail = checkFail, fmt.Sprintf("%s is not valid JSON; run \"imsgstats setup\" to back it up and rewrite it", path)
		return r
	}
	s, ok := f.Server(name)
	if !ok {
		r.Status, r.Detail = checkWarn, fmt.Sprintf("no %q entry; run \"imsgstats setup\"", name)
		return r
	}
	if _, err := os.Stat(s.Command); err != nil {
		r.Status, r.Detail = checkFail, fmt.Sprintf("%q points at missing binary %s; run \"imsgstats setup\"", name, s.Command)
		return r
	}
	r.Detail = fmt.Sprintf("%q runs %s", name, s.Command)
	return r
}

func checkServer(ctx context.Context) checkResult {
	r := checkResult{Name: "MCP server"}
	ctx, cancel := context.WithTimeout(ctx, serverProbeTimeout)
	defer cancel()

	c, info, err := startClient(ctx)
	if err != nil {
		r.Status, r.Detail = checkFail, err.Error()
		return r
	}
	defer c.Close()

	tools, err := c.ListTools(ctx, mcp.ListToolsRequest{})
	if err != nil {
		r.Status, r.Detail = checkFail, fmt.Sprintf("list tools: %v", err)
		return r
	}
	r.Detail = fmt.Sprintf("%s %s, %d tools", info.ServerInfo.Name, info.ServerInfo.Version, len(tools.Tools))
	return r
}

// printChecks renders results and returns how many failed.
func printChecks(w io.Writer, results []checkResult) int {
	failed := 0
	for _, r := range results {
		var label string
		switch r.Status {
		case checkOK:
			label = okStyle.Render("  OK")
		case checkWarn:
			label = warnStyle.Render("WARN")
		default:
			label = failStyle.Render("FAIL")
			failed++
		}
		fmt.Fprintf(w, "%s  %-22s %s\n", label, r.Name, dimStyle.Render(r.Detail))
	}
	return failed
}
