// Package claudecfg registers imsgstats as an MCP server in Claude Desktop's
// claude_desktop_config.json, leaving every other setting untouched.
package claudecfg

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sort"

	"github.com/wesm/imsgstats/internal/fileutil"
)

const (
	// FileName is the name of Claude Desktop's configuration file.
	FileName = "claude_desktop_config.json"
	// BackupSuffix is appended to an unparseable config when Save replaces it.
	BackupSuffix = ".backup"

	serversKey = "mcpServers"
)

// DefaultPath returns the platform's location for Claude Desktop's config.
func DefaultPath() string {
	home, _ := os.UserHomeDir()
	return defaultPath(runtime.GOOS, home, os.Getenv("APPDATA"))
}

func defaultPath(goos, home, appData string) string {
	switch goos {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "Claude", FileName)
	case "windows":
		if appData == "" {
			appData = filepath.Join(home, "AppData", "Roaming")
		}
		return filepath.Join(appData, "Claude", FileName)
	default:
		return filepath.Join(home, ".config", "Claude", FileName)
	}
}

// AppInstalled reports whether Claude Desktop appears to be installed.
func AppInstalled() bool {
	home, _ := os.UserHomeDir()
	candidates := []string{filepath.Dir(DefaultPath())}
	if runtime.GOOS == "darwin" {
		candidates = append(candidates, "/Applications/Claude.app", filepath.Join(home, "Applications", "Claude.app"))
	}
	for _, p := range candidates {
		if _, err := os.Stat(p); err == nil {
			return true
		}
	}
	return false
}

// Server is one entry of the mcpServers map.
type Server struct {
	Command string            `json:"command"`
	Args    []string          `json:"args,omitempty"`
	Env     map[string]string `json:"env,omitempty"`
}

// File is a loaded Claude Desktop config. Keys it does not know about are
// kept as raw JSON and written back unchanged.
type File struct {
	Path string
	// Invalid is set when the file on disk was not a usable JSON object.
	// Load starts from an empty config and Save backs the old file up first.
	Invalid bool
	// BackupPath is where Save copied an Invalid file before replacing it.
	BackupPath string

	top     map[string]json.RawMessage
	servers map[string]json.RawMessage
}

// Load reads the config at path without modifying it. A missing file yields
// an empty config. A file that is not a JSON object, or whose mcpServers is
// not an object, yields an empty config marked Invalid.
func Load(path string) (*File, error) {
	f := &File{
		Path:    path,
		top:     make(map[string]json.RawMessage),
		servers: make(map[string]json.RawMessage),
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return f, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read Claude config: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return f, nil
	}

	if err := f.parse(data); err != nil {
		f.Invalid = true
		f.top = make(map[string]json.RawMessage)
		f.servers = make(map[string]json.RawMessage)
	}
	return f, nil
}

func (f *File) parse(data []byte) error {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(data, &top); err != nil {
		return err
	}
	if top == nil {
		return errors.New("config is not a JSON object")
	}
	servers := make(map[string]json.RawMessage)
	if raw, ok := top[serversKey]; ok && !bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		if err := json.Unmarshal(raw, &servers); err != nil {
			return fmt.Errorf("%s: %w", serversKey, err)
		}
		if servers == nil {
			servers = make(map[string]json.RawMessage)
		}
	}
	f.top, f.servers = top, servers
	return nil
}

// Server returns the registered server called name.
func (f *File) Server(name string) (Server, bool) {
	raw, ok := f.servers[name]
	if !ok {
		return Server{}, false
	}
	var s Server
	_ = json.Unmarshal(raw, &s)
	return s, true
}

// ServerNames lists every registered MCP server, sorted.
func (f *File) ServerNames() []string {
	names := make([]string, 0, len(f.servers))
	for name := range f.servers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SetServer adds or replaces the entry called name and reports whether an
// entry already existed.
func (f *File) SetServer(name string, s Server) (existed bool, err error) {
	_, existed = f.servers[name]
	raw, err := json.Marshal(s)
	if err != nil {
		return existed, fmt.Errorf("encode server entry: %w", err)
	}
	f.servers[name] = raw
	return existed, nil
}

// Bytes renders the config as indented JSON.
func (f *File) Bytes() ([]byte, error) {
	servers, err := json.Marshal(f.servers)
	if err != nil {
		return nil, err
	}
	out := make(map[string]json.RawMessage, len(f.top)+1)
	for k, v := range f.top {
		out[k] = v
	}
	out[serversKey] = servers

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// Save writes the config atomically, readable only by the owner. An Invalid
// file is first copied to Path+BackupSuffix.
func (f *File) Save() error {
	data, err := f.Bytes()
	if err != nil {
		return fmt.Errorf("encode Claude config: %w", err)
	}
	if f.Invalid && f.BackupPath == "" {
		backup, err := fileutil.Backup(f.Path, BackupSuffix)
		if err != nil {
			return fmt.Errorf("back up invalid Claude config: %w", err)
		}
		f.BackupPath = backup
	}
	if err := fileutil.SecureMkdirAll(filepath.Dir(f.Path), 0o700); err != nil {
		return fmt.Errorf("create Claude config dir: %w", err)
	}
	if err := fileutil.WriteFileAtomic(f.Path, data, 0o600); err != nil {
		return fmt.Errorf("write Claude config: %w", err)
	}
	f.Invalid = false
	return nil
}
