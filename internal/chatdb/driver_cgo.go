//go:build cgo

package chatdb

import (
	"errors"
	"net/url"

	"github.com/mattn/go-sqlite3"
)

// DriverName is the database/sql driver chat.db connections use.
const DriverName = "sqlite3"

// readOnlyDSN builds a file: URI so paths with spaces or '?' survive.
// The driver defaults to a 5s busy timeout; a locked store must fail at once.
func readOnlyDSN(path string) string {
	u := url.URL{
		Scheme:   "file",
		OmitHost: true,
		Path:     path,
		RawQuery: "mode=ro&_busy_timeout=0",
	}
	return u.String()
}

// isAccessDenied reports whether err is SQLite refusing to open or read the
// file. Handles both value and pointer forms of sqlite3.Error.
func isAccessDenied(err error) bool {
	var code sqlite3.ErrNo
	var sqliteErr sqlite3.Error
	var sqliteErrPtr *sqlite3.Error
	switch {
	case errors.As(err, &sqliteErr):
		code = sqliteErr.Code
	case errors.As(err, &sqliteErrPtr) && sqliteErrPtr != nil:
		code = sqliteErrPtr.Code
	default:
		return false
	}
	switch code {
	case sqlite3.ErrCantOpen, sqlite3.ErrPerm, sqlite3.ErrAuth:
		return true
	}
	return false
}
