//go:build !cgo

package chatdb

import (
	"errors"
	"net/url"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// DriverName is the database/sql driver chat.db connections use.
const DriverName = "sqlite"

// readOnlyDSN builds a file: URI so paths with spaces or '?' survive.
func readOnlyDSN(path string) string {
	u := url.URL{
		Scheme:   "file",
		OmitHost: true,
		Path:     path,
		RawQuery: "mode=ro",
	}
	return u.String()
}

// isAccessDenied reports whether err is SQLite refusing to open or read the file.
func isAccessDenied(err error) bool {
	var sqliteErr *sqlite.Error
	if !errors.As(err, &sqliteErr) || sqliteErr == nil {
		return false
	}
	switch sqliteErr.Code() & 0xff {
	case sqlite3.SQLITE_CANTOPEN, sqlite3.SQLITE_PERM, sqlite3.SQLITE_AUTH:
		return true
	}
	return false
}
