// Package fileutil writes small configuration files safely.
// Owner-only modes (perm&0o077 == 0) are enforced on every platform: by
// file mode on Unix and by a DACL for the current user on Windows.
package fileutil

import (
	"fmt"
	"os"
	"path/filepath"
)

// WriteFileAtomic replaces path with data. The bytes go to a temp file in
// the same directory first, so readers see either the old file or the new
// one, never a partial write.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+"-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmpName, perm); err != nil {
		return fmt.Errorf("chmod temp file: %w", err)
	}
	restrict(tmpName, perm)

	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("replace %s: %w", filepath.Base(path), err)
	}
	return nil
}

// Backup copies path to path+suffix with owner-only permissions and returns
// the backup's path. An existing backup is overwritten.
func Backup(path, suffix string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	dst := path + suffix
	if err := WriteFileAtomic(dst, data, 0o600); err != nil {
		return "", err
	}
	return dst, nil
}

// SecureMkdirAll creates a directory path and all parents that do not yet
// exist. Owner-only modes also restrict every directory it created.
func SecureMkdirAll(path string, perm os.FileMode) error {
	var created []string
	for p := filepath.Clean(path); ; p = filepath.Dir(p) {
		if _, err := os.Stat(p); err == nil {
			break
		}
		created = append(created, p)
		if filepath.Dir(p) == p {
			break
		}
	}
	if err := os.MkdirAll(path, perm); err != nil {
		return err
	}
	for _, dir := range created {
		restrict(dir, perm)
	}
	return nil
}

func ownerOnly(perm os.FileMode) bool {
	return perm&0o077 == 0
}
