// Package sysinfo answers questions about the host that matter for reading
// the Messages store: which macOS release it runs and how to reach the
// privacy settings.
package sysinfo

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime"
	"strings"

	"golang.org/x/mod/semver"
	"howett.net/plist"
)

// SystemVersionPath is where macOS records its product version.
const SystemVersionPath = "/System/Library/CoreServices/SystemVersion.plist"

// MinMacOSVersion is the oldest release whose chat.db layout is supported.
const MinMacOSVersion = "10.14"

// fullDiskAccessURL opens Privacy & Security > Full Disk Access.
const fullDiskAccessURL = "x-apple.systempreferences:com.apple.preference.security?Privacy_AllFiles"

// MacOSVersion is the subset of SystemVersion.plist we read.
type MacOSVersion struct {
	ProductName    string `plist:"ProductName"`
	ProductVersion string `plist:"ProductVersion"`
	BuildVersion   string `plist:"ProductBuildVersion"`
}

func (v MacOSVersion) String() string {
	if v.BuildVersion == "" {
		return v.ProductName + " " + v.ProductVersion
	}
	return fmt.Sprintf("%s %s (%s)", v.ProductName, v.ProductVersion, v.BuildVersion)
}

// AtLeast reports whether v is the same release as min or newer.
// Unparseable versions are never at least anything.
func (v MacOSVersion) AtLeast(min string) bool {
	have, want := canonical(v.ProductVersion), canonical(min)
	if have == "" || want == "" {
		return false
	}
	return semver.Compare(have, want) >= 0
}

// canonical turns "14.5" into "v14.5" and rejects anything semver cannot order.
func canonical(version string) string {
	v := "v" + strings.TrimPrefix(strings.TrimSpace(version), "v")
	if !semver.IsValid(v) {
		return ""
	}
	return v
}

// ReadMacOSVersion decodes the SystemVersion.plist at path.
func ReadMacOSVersion(path string) (MacOSVersion, error) {
	f, err := os.Open(path)
	if err != nil {
		return MacOSVersion{}, fmt.Errorf("read system version: %w", err)
	}
	defer f.Close()
	return decodeMacOSVersion(f)
}

func decodeMacOSVersion(r io.ReadSeeker) (MacOSVersion, error) {
	var v MacOSVersion
	if err := plist.NewDecoder(r).Decode(&v); err != nil {
		return MacOSVersion{}, fmt.Errorf("decode system version: %w", err)
	}
	if v.ProductVersion == "" {
		return MacOSVersion{}, fmt.Errorf("system version has no ProductVersion")
	}
	return v, nil
}

// IsMacOS reports whether this process runs on macOS.
func IsMacOS() bool {
	return runtime.GOOS == "darwin"
}

// OpenFullDiskAccessSettings opens the Full Disk Access pane of System
// Settings. It only works on macOS.
func OpenFullDiskAccessSettings() error {
	if !IsMacOS() {
		return fmt.Errorf("full disk access settings exist only on macOS")
	}
	return exec.Command("open", fullDiskAccessURL).Run()
}
