// Package config handles loading and managing imsgstats configuration.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/wesm/imsgstats/internal/chatdb"
	"github.com/wesm/imsgstats/internal/fileutil"
)

const configFileName = "config.toml"

// Config represents the imsgstats configuration.
type Config struct {
	Messages MessagesConfig `toml:"messages"`
	Analysis AnalysisConfig `toml:"analysis"`
	MCP      MCPConfig      `toml:"mcp"`
	Claude   ClaudeConfig   `toml:"claude"`

	// Computed paths (not from config file)
	HomeDir    string `toml:"-"`
	configPath string
}

// MessagesConfig locates the Messages store.
type MessagesConfig struct {
	Database string `toml:"database"` // path to chat.db
}

// AnalysisConfig tunes the statistics.
type AnalysisConfig struct {
	TopSenders     int      `toml:"top_senders"`
	MinWordLength  int      `toml:"min_word_length"`
	ExtraStopWords []string `toml:"extra_stop_words"`
}

// MCPConfig holds MCP server settings.
type MCPConfig struct {
	ServerName string `toml:"server_name"` // name announced to clients and used in Claude's config
}

// ClaudeConfig locates Claude Desktop's configuration.
type ClaudeConfig struct {
	ConfigPath string `toml:"config_path"` // empty means the platform default
}

// DefaultHome returns the default imsgstats home directory.
// Respects IMSGSTATS_HOME environment variable.
func DefaultHome() string {
	if h := os.Getenv("IMSGSTATS_HOME"); h != "" {
		return expandPath(h)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".imsgstats"
	}
	return filepath.Join(home, ".imsgstats")
}

// NewDefaultConfig returns a configuration with default values rooted at
// DefaultHome.
func NewDefaultConfig() *Config {
	return newDefaultConfig(DefaultHome())
}

func newDefaultConfig(homeDir string) *Config {
	return &Config{
		HomeDir: homeDir,
		Messages: MessagesConfig{
			Database: chatdb.DefaultPath(),
		},
		Analysis: AnalysisConfig{
			TopSenders:     5,
			MinWordLength:  3,
			ExtraStopWords: []string{},
		},
		MCP: MCPConfig{
			ServerName: "imsgstats",
		},
		configPath: filepath.Join(homeDir, configFileName),
	}
}

// Load reads the configuration.
//
// With an explicit path the file must exist, and HomeDir becomes the file's
// directory. Otherwise config.toml is read from homeDir (or DefaultHome when
// homeDir is empty), and a missing file yields the defaults.
func Load(path, homeDir string) (*Config, error) {
	explicit := path != ""
	switch {
	case explicit:
		path = expandPath(path)
		if homeDir == "" {
			homeDir = filepath.Dir(path)
		}
	case homeDir != "":
		homeDir = expandPath(homeDir)
		path = filepath.Join(homeDir, configFileName)
	default:
		homeDir = DefaultHome()
		path = filepath.Join(homeDir, configFileName)
	}
	if abs, err := filepath.Abs(homeDir); err == nil {
		homeDir = abs
	}

	cfg := newDefaultConfig(homeDir)
	cfg.configPath = path

	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if explicit {
			return nil, fmt.Errorf("config file not found: %s", path)
		}
		return cfg, nil
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w%s", err, backslashHint(err))
	}

	// Expand ~ in paths
	cfg.Messages.Database = expandPath(cfg.Messages.Database)
	cfg.Claude.ConfigPath = expandPath(cfg.Claude.ConfigPath)
	if cfg.Messages.Database == "" {
		cfg.Messages.Database = chatdb.DefaultPath()
	}
	if cfg.MCP.ServerName == "" {
		cfg.MCP.ServerName = "imsgstats"
	}

	return cfg, nil
}

// backslashHint explains the usual cause of TOML escape errors: Windows
// paths written with backslashes inside double quotes.
func backslashHint(err error) string {
	msg := err.Error()
	if !strings.Contains(msg, "escape") && !strings.Contains(msg, "hexadecimal digits") {
		return ""
	}
	return "\nhint: use forward slashes (C:/Users/me/chat.db) or single quotes ('C:\\Users\\me\\chat.db') for Windows paths"
}

// ConfigFilePath returns the path the configuration was (or would be) loaded from.
func (c *Config) ConfigFilePath() string {
	if c.configPath != "" {
		return c.configPath
	}
	return filepath.Join(c.HomeDir, configFileName)
}

// EnsureHomeDir creates the home directory with owner-only permissions.
func (c *Config) EnsureHomeDir() error {
	return fileutil.SecureMkdirAll(c.HomeDir, 0o700)
}

// Save writes the configuration to ConfigFilePath, readable only by the owner.
func (c *Config) Save() error {
	if err := c.EnsureHomeDir(); err != nil {
		return fmt.Errorf("create home dir: %w", err)
	}
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(c); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := fileutil.WriteFileAtomic(c.ConfigFilePath(), buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// expandPath expands a leading ~ or ~/ to the user's home directory.
// On Windows, matching surrounding quotes left by CMD are stripped first.
func expandPath(path string) string {
	if runtime.GOOS == "windows" && len(path) >= 2 {
		if (path[0] == '\'' && path[len(path)-1] == '\'') || (path[0] == '"' && path[len(path)-1] == '"') {
			path = path[1 : len(path)-1]
		}
	}
	if path == "" || path[0] != '~' {
		return path
	}
	if len(path) > 1 && path[1] != '/' && path[1] != filepath.Separator {
		// ~user is not expanded
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}
