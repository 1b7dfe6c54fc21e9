package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/wesm/imsgstats/internal/claudecfg"
)

func TestMCPServerArgs(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name       string
		configFile string
		home       string
		want       []string
	}{
		{name: "defaults", want: []string{"mcp"}},
		{name: "config file", configFile: filepath.Join(dir, "c.toml"), want: []string{"mcp", "--config", filepath.Join(dir, "c.toml")}},
		{name: "home", home: dir, want: []string{"mcp", "--home", dir}},
		{name: "config wins over home", configFile: filepath.Join(dir, "c.toml"), home: "/elsewhere", want: []string{"mcp", "--config", filepath.Join(dir, "c.toml")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := mcpServerArgs(tt.configFile, tt.home)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("mcpServerArgs mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestRegisterServerPreservesOtherSettings(t *testing.T) {
	useConfig(t, filepath.Join(t.TempDir(), "chat.db"))
	setupYes = true
	defer func() { setupYes = false }()

	path := cfg.Claude.ConfigPath
	existing := `{"theme": "dark", "mcpServers": {"other": {"command": "/bin/other"}}}`
	if err := os.WriteFile(path, []byte(existing), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	server := claudecfg.Server{Command: "/usr/local/bin/imsgstats", Args: []string{"mcp"}}
	var out bytes.Buffer
	written, err := registerServer(&out, path, server)
	if err != nil {
		t.Fatalf("registerServer: %v", err)
	}
	if !written {
		t.Fatal("registerServer reported nothing written")
	}

	f, err := claudecfg.Load(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	got, ok := f.Server(cfg.MCP.ServerName)
	if !ok {
		t.Fatalf("server %q not registered", cfg.MCP.ServerName)
	}
	if diff := cmp.Diff(server, got); diff != "" {
		t.Errorf("server mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{cfg.MCP.ServerName, "other"}, f.ServerNames()); diff != "" {
		t.Errorf("servers mismatch (-want +got):\n%s", diff)
	}

	var raw map[string]any
	data, _ := os.ReadFile(path)
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if raw["theme"] != "dark" {
		t.Errorf("theme = %v, want dark", raw["theme"])
	}
	if !strings.Contains(out.String(), "other MCP servers kept: other") {
		t.Errorf("expected kept-servers line, got:\n%s", out.String())
	}

	// A second run with --yes overwrites the existing entry.
	out.Reset()
	server.Command = "/opt/imsgstats"
	if _, err := registerServer(&out, path, server); err != nil {
		t.Fatalf("second registerServer: %v", err)
	}
	if !strings.Contains(out.String(), "already configured") {
		t.Errorf("expected overwrite notice, got:\n%s", out.String())
	}
	f, _ = claudecfg.Load(path)
	if got, _ := f.Server(cfg.MCP.ServerName); got.Command != "/opt/imsgstats" {
		t.Errorf("Command = %q, want /opt/imsgstats", got.Command)
	}
}

func TestRegisterServerBacksUpInvalidConfig(t *testing.T) {
	useConfig(t, filepath.Join(t.TempDir(), "chat.db"))
	setupYes = true
	defer func() { setupYes = false }()

	path := cfg.Claude.ConfigPath
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	var out bytes.Buffer
	if _, err := registerServer(&out, path, claudecfg.Server{Command: "/bin/imsgstats", Args: []string{"mcp"}}); err != nil {
		t.Fatalf("registerServer: %v", err)
	}
	if !strings.Contains(out.String(), "backed up to") {
		t.Errorf("expected backup notice, got:\n%s", out.String())
	}
	backup, err := os.ReadFile(path + claudecfg.BackupSuffix)
	if err != nil {
		t.Fatalf("read backup: %v", err)
	}
	if string(backup) != "{not json" {
		t.Errorf("backup = %q", backup)
	}
}

func TestSetupPrintDoesNotWrite(t *testing.T) {
	useConfig(t, filepath.Join(t.TempDir(), "chat.db"))
	setupPrint = true
	defer func() { setupPrint = false }()

	out, err := runCommand(t, setupCmd)
	if err != nil {
		t.Fatalf("setup --print: %v", err)
	}

	var doc struct {
		MCPServers map[string]claudecfg.Server `json:"mcpServers"`
	}
	if err := json.Unmarshal([]byte(out), &doc); err != nil {
		t.Fatalf("unmarshal: %v\n%s", err, out)
	}
	entry, ok := doc.MCPServers[cfg.MCP.ServerName]
	if !ok || len(entry.Args) == 0 || entry.Args[0] != "mcp" {
		t.Errorf("unexpected entry: %+v", doc.MCPServers)
	}
	if _, err := os.Stat(cfg.Claude.ConfigPath); !os.IsNotExist(err) {
		t.Errorf("config was written with --print (stat err = %v)", err)
	}
}

func TestSetupPrintLeavesInvalidConfigAlone(t *testing.T) {
	useConfig(t, filepath.Join(t.TempDir(), "chat.db"))
	setupPrint = true
	defer func() { setupPrint = false }()

	path := cfg.Claude.ConfigPath
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := runCommand(t, setupCmd); err != nil {
		t.Fatalf("setup --print: %v", err)
	}
	if _, err := os.Stat(path + claudecfg.BackupSuffix); !os.IsNotExist(err) {
		t.Errorf("setup --print wrote a backup (stat err = %v)", err)
	}
	if data, _ := os.ReadFile(path); string(data) != "{not json" {
		t.Errorf("config changed: %q", data)
	}
}

func TestConfirmAssumesWithYes(t *testing.T) {
	setupYes = true
	defer func() { setupYes = false }()

	for _, assume := range []bool{true, false} {
		got, err := confirm("question?", assume)
		if err != nil || got != assume {
			t.Errorf("confirm(assume=%v) = %v, %v", assume, got, err)
		}
	}
}
