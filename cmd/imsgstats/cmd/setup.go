package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"github.com/wesm/imsgstats/internal/apperr"
	"github.com/wesm/imsgstats/internal/chatdb"
	"github.com/wesm/imsgstats/internal/claudecfg"
	"github.com/wesm/imsgstats/internal/sysinfo"
)

var (
	setupYes        bool
	setupPrint      bool
	setupSaveConfig bool
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Register imsgstats as an MCP server in Claude Desktop",
	Long: `Configure Claude Desktop to start "imsgstats mcp".

This command:
  1. Checks the macOS version and whether Claude Desktop is installed
  2. Checks that the Messages database is readable (Full Disk Access)
     and offers to open the right System Settings pane if it is not
  3. Adds an mcpServers entry to claude_desktop_config.json, keeping
     every other setting. An unreadable config is backed up first.

Use --yes to accept every prompt (existing entries are overwritten and
System Settings is not opened). Use --print to show the resulting config
without writing it.`,
	Args: cobra.NoArgs,
	RunE: runSetup,
}

func init() {
	rootCmd.AddCommand(setupCmd)
	setupCmd.Flags().BoolVarP(&setupYes, "yes", "y", false, "Skip interactive prompts")
	setupCmd.Flags().BoolVar(&setupPrint, "print", false, "Print the updated Claude Desktop config instead of writing it")
	setupCmd.Flags().BoolVar(&setupSaveConfig, "save-config", false, "Also write the current settings to config.toml")
}

func runSetup(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	server, err := serverEntry()
	if err != nil {
		return err
	}
	claudePath := claudeConfigPath()

	if setupPrint {
		f, err := claudecfg.Load(claudePath)
		if err != nil {
			return err
		}
		if _, err := f.SetServer(cfg.MCP.ServerName, server); err != nil {
			return err
		}
		data, err := f.Bytes()
		if err != nil {
			return err
		}
		_, err = out.Write(data)
		return err
	}

	if !setupYes && !isatty.IsTerminal(os.Stdin.Fd()) && !isatty.IsCygwinTerminal(os.Stdin.Fd()) {
		return errors.New("setup is interactive; rerun with --yes to accept every prompt")
	}

	heading(out, "imsgstats setup for Claude Desktop")
	fmt.Fprintln(out)

	// Step 1: host
	checkHost(out)
	if !claudecfg.AppInstalled() {
		fmt.Fprintln(out, warnStyle.Render("WARNING")+" Claude Desktop not found. Install it from https://claude.ai/download")
		ok, err := confirm("Continue setup anyway?", true)
		if err != nil {
			return err
		}
		if !ok {
			return errors.New("setup cancelled")
		}
	} else {
		fmt.Fprintln(out, okStyle.Render("OK")+" Claude Desktop found")
	}

	// Step 2: Full Disk Access
	if err := checkFullDiskAccess(cmd.Context(), out); err != nil {
		return err
	}

	// Step 3: Claude Desktop config
	written, err := registerServer(out, claudePath, server)
	if err != nil {
		return err
	}

	if setupSaveConfig {
		if err := cfg.Save(); err != nil {
			return fmt.Errorf("save config: %w", err)
		}
		fmt.Fprintf(out, "Configuration saved to %s\n", cfg.ConfigFilePath())
	}

	if written {
		fmt.Fprintln(out)
		fmt.Fprintln(out, "Setup complete! Next steps:")
		fmt.Fprintln(out, "  1. Quit Claude Desktop completely (Cmd+Q) and reopen it")
		fmt.Fprintln(out, "  2. Look for the tools icon; the imsgstats tools should be listed")
		fmt.Fprintln(out, `  3. Ask "What are my basic iMessage statistics?"`)
		fmt.Fprintln(out)
		fmt.Fprintln(out, "To check the installation later: imsgstats doctor")
	}
	return nil
}

// serverEntry describes how Claude Desktop should start this binary.
func serverEntry() (claudecfg.Server, error) {
	exe, err := os.Executable()
	if err != nil {
		return claudecfg.Server{}, fmt.Errorf("locate imsgstats binary: %w", err)
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}
	return claudecfg.Server{Command: exe, Args: mcpServerArgs(cfgFile, homeDir)}, nil
}

// mcpServerArgs forwards an explicit --config or --home so the server Claude
// starts reads the same settings as this invocation.
func mcpServerArgs(configFile, home string) []string {
	args := []string{"mcp"}
	switch {
	case configFile != "":
		args = append(args, "--config", absPath(configFile))
	case home != "":
		args = append(args, "--home", absPath(home))
	}
	return args
}

func absPath(p string) string {
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return p
}

func claudeConfigPath() string {
	if cfg != nil && cfg.Claude.ConfigPath != "" {
		return cfg.Claude.ConfigPath
	}
	return claudecfg.DefaultPath()
}

func checkHost(out io.Writer) {
	if !sysinfo.IsMacOS() {
		fmt.Fprintln(out, warnStyle.Render("WARNING")+" not running on macOS; the Messages database only exists there")
		return
	}
	v, err := sysinfo.ReadMacOSVersion(sysinfo.SystemVersionPath)
	if err != nil {
		fmt.Fprintf(out, "%s could not read the macOS version: %v\n", warnStyle.Render("WARNING"), err)
		return
	}
	if !v.AtLeast(sysinfo.MinMacOSVersion) {
		fmt.Fprintf(out, "%s %s is older than macOS %s; the database layout may not be supported\n",
			warnStyle.Render("WARNING"), v, sysinfo.MinMacOSVersion)
		return
	}
	fmt.Fprintf(out, "%s %s detected\n", okStyle.Render("OK"), v)
}

// checkDatabaseAccess opens and closes the configured database.
func checkDatabaseAccess(ctx context.Context) error {
	db, err := chatdb.Open(ctx, cfg.Messages.Database)
	if err != nil {
		return err
	}
	return db.Close()
}

// checkFullDiskAccess reports whether the database is readable. Missing
// access is a warning: the config can still be written and access granted
// later.
func checkFullDiskAccess(ctx context.Context, out io.Writer) error {
	err := checkDatabaseAccess(ctx)
	if err == nil {
		fmt.Fprintln(out, okStyle.Render("OK")+" Messages database is readable")
		return nil
	}
	if errors.Is(err, context.Canceled) {
		return err
	}

	fmt.Fprintf(out, "%s %s\n", failStyle.Render("ERROR"), apperr.Message(err))
	if !apperr.Is(err, apperr.Permission) || !sysinfo.IsMacOS() {
		return nil
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, "To grant Full Disk Access:")
	fmt.Fprintln(out, "  1. Open System Settings > Privacy & Security > Full Disk Access")
	fmt.Fprintln(out, "  2. Add your terminal app and Claude.app")
	fmt.Fprintln(out, "  3. Restart them and run this setup again")
	fmt.Fprintln(out)

	open, err := confirm("Open System Settings now?", false)
	if err != nil {
		return err
	}
	if open {
		if err := sysinfo.OpenFullDiskAccessSettings(); err != nil {
			fmt.Fprintf(out, "%s could not open System Settings: %v\n", warnStyle.Render("WARNING"), err)
		}
	}
	fmt.Fprintln(out, warnStyle.Render("WARNING")+" continuing without Full Disk Access; the tools will fail until it is granted")
	return nil
}

// registerServer writes the server entry into Claude's config. It reports
// false when the user chose to keep an existing entry.
func registerServer(out io.Writer, path string, server claudecfg.Server) (bool, error) {
	f, err := claudecfg.Load(path)
	if err != nil {
		return false, err
	}
	if f.Invalid {
		fmt.Fprintf(out, "%s existing config is not valid JSON; it will be backed up before writing\n",
			warnStyle.Render("WARNING"))
	}

	name := cfg.MCP.ServerName
	if existing, ok := f.Server(name); ok {
		fmt.Fprintf(out, "%s %q is already configured (command: %s)\n", warnStyle.Render("WARNING"), name, existing.Command)
		overwrite, err := confirm("Overwrite the existing entry?", true)
		if err != nil {
			return false, err
		}
		if !overwrite {
			fmt.Fprintln(out, "Keeping existing configuration")
			return false, nil
		}
	}

	if _, err := f.SetServer(name, server); err != nil {
		return false, err
	}
	if err := f.Save(); err != nil {
		return false, err
	}
	logger.Debug("claude config updated", "path", f.Path, "server", name)
	if f.BackupPath != "" {
		fmt.Fprintf(out, "%s previous config backed up to %s\n", okStyle.Render("OK"), f.BackupPath)
	}
	fmt.Fprintf(out, "%s registered %q in %s\n", okStyle.Render("OK"), name, f.Path)
	if others := otherServers(f, name); len(others) > 0 {
		fmt.Fprintf(out, "   other MCP servers kept: %s\n", strings.Join(others, ", "))
	}
	return true, nil
}

func otherServers(f *claudecfg.File, name string) []string {
	var others []string
	for _, n := range f.ServerNames() {
		if n != name {
			others = append(others, n)
		}
	}
	return others
}

// confirm asks a yes/no question. With --yes the answer is assumeYes
// without prompting.
func confirm(title string, assumeYes bool) (bool, error) {
	if setupYes {
		return assumeYes, nil
	}
	var ok bool
	err := huh.NewConfirm().
		Title(title).
		Affirmative("Yes").
		Negative("No").
		Value(&ok).
		Run()
	if errors.Is(err, huh.ErrUserAborted) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("prompt: %w", err)
	}
	return ok, nil
}
