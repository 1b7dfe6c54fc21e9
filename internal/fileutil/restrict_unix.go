//go:build !windows

package fileutil

import "os"

// restrict is a no-op on Unix; the file mode already says it all.
func restrict(string, os.FileMode) {}
