package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/wesm/imsgstats/internal/analysis"
	"github.com/wesm/imsgstats/internal/apperr"
	"github.com/wesm/imsgstats/internal/chatdb"
	"github.com/wesm/imsgstats/internal/config"
)

var (
	cfgFile string
	homeDir string
	verbose bool
	cfg     *config.Config
	logger  *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "imsgstats",
	Short: "Read-only iMessage statistics and MCP server",
	Long: `imsgstats reads the local Messages database (chat.db) read-only and
answers statistical questions about it: message counts, top senders, word
frequency, per-contact balance, search, and conversation transcripts.

The same queries are exposed as MCP tools ("imsgstats mcp") for Claude
Desktop and as commands for use from a terminal.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "version" {
			return nil
		}

		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}
		// stdout carries MCP traffic and command output, so logs go to stderr.
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: level,
		}))

		var err error
		cfg, err = config.Load(cfgFile, homeDir)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		if err := cfg.EnsureHomeDir(); err != nil {
			return fmt.Errorf("create home directory %s: %w", cfg.HomeDir, err)
		}

		return nil
	},
}

// Execute runs the root command with a background context.
// Prefer ExecuteContext for signal-aware execution.
func Execute() error {
	return ExecuteContext(context.Background())
}

// ExecuteContext runs the root command with the given context,
// enabling graceful shutdown when the context is cancelled.
func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

// newAnalyzer builds an Analyzer over the configured database.
func newAnalyzer() *analysis.Analyzer {
	return analysis.New(chatdb.PathProvider{Path: cfg.Messages.Database}, analysisOptions(cfg))
}

func analysisOptions(c *config.Config) analysis.Options {
	return analysis.Options{
		TopSenders:    c.Analysis.TopSenders,
		MinWordLength: c.Analysis.MinWordLength,
		StopWords:     c.Analysis.ExtraStopWords,
	}
}

// userError reduces an analysis error to its caller-safe message. The full
// chain is only logged at debug level.
func userError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	if logger != nil {
		logger.Debug("command failed", "kind", apperr.KindOf(err).String(), "detail", apperr.Detail(err))
	}
	return errors.New(apperr.Message(err))
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ~/.imsgstats/config.toml)")
	rootCmd.PersistentFlags().StringVar(&homeDir, "home", "", "home directory (overrides IMSGSTATS_HOME)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
