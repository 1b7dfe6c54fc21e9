// Package chatdb reads the macOS Messages database (chat.db).
//
// The database is owned by Messages.app and is only ever opened read-only.
// Callers get a short-lived *DB from a Provider and must Close it before
// returning; nothing in this package keeps a handle between calls.
package chatdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/wesm/imsgstats/internal/apperr"
)

// DefaultRelativePath is the store location relative to the user's home.
const DefaultRelativePath = "Library/Messages/chat.db"

// DefaultPath returns ~/Library/Messages/chat.db for the current user.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return DefaultRelativePath
	}
	return filepath.Join(home, DefaultRelativePath)
}

// Provider hands out scoped connections to the store.
type Provider interface {
	Open(ctx context.Context) (*DB, error)
}

// PathProvider opens the store file at Path.
type PathProvider struct {
	Path string
}

// Open opens Path read-only.
func (p PathProvider) Open(ctx context.Context) (*DB, error) {
	return Open(ctx, p.Path)
}

// DB is an open read-only connection to a Messages database.
type DB struct {
	db   *sql.DB
	path string

	// Optional schema features, detected at open time.
	hasAttributedBody bool
	hasService        bool
	hasChatJoin       bool
}

// Open opens the Messages database at path in read-only mode.
// A missing file is reported as apperr.NotFound and an unreadable one as
// apperr.Permission. Open never retries.
func Open(ctx context.Context, path string) (*DB, error) {
	if err := probe(path); err != nil {
		return nil, err
	}

	db, err := sql.Open(DriverName, readOnlyDSN(path))
	if err != nil {
		return nil, apperr.Internalf(err, "open Messages database")
	}
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		if isAccessDenied(err) {
			return nil, apperr.Permissionf(err, "cannot open Messages database at %s", path)
		}
		return nil, apperr.Internalf(err, "open Messages database")
	}

	d := &DB{db: db, path: path}
	if err := d.inspect(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return d, nil
}

// Close releases the connection.
func (d *DB) Close() error {
	return d.db.Close()
}

// probe checks that path exists and that the OS lets us read it. On macOS
// the privacy system denies the open itself, so a one-byte read is the
// cheapest reliable check.
func probe(path string) error {
	info, err := os.Stat(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return apperr.NotFoundf(err, "Messages database not found at %s", path)
	case errors.Is(err, fs.ErrPermission):
		return apperr.Permissionf(err, "cannot read Messages database at %s", path)
	case err != nil:
		return apperr.Internalf(err, "stat Messages database")
	case info.IsDir():
		return apperr.NotFoundf(nil, "Messages database path %s is a directory", path)
	}

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrPermission) {
			return apperr.Permissionf(err, "cannot read Messages database at %s", path)
		}
		return apperr.Internalf(err, "open Messages database")
	}
	defer f.Close()

	var b [1]byte
	if _, err := f.Read(b[:]); err != nil && !errors.Is(err, io.EOF) {
		if errors.Is(err, fs.ErrPermission) {
			return apperr.Permissionf(err, "cannot read Messages database at %s", path)
		}
		return apperr.Internalf(err, "read Messages database")
	}
	return nil
}

// inspect verifies the core tables and records which optional columns exist.
// Older stores lack attributedBody; some test stores lack chat tables.
func (d *DB) inspect(ctx context.Context) error {
	tables, err := d.tableNames(ctx)
	if err != nil {
		return err
	}
	for _, required := range []string{"message", "handle"} {
		if !tables[required] {
			return apperr.Internalf(nil, "%s does not look like a Messages database (missing %s table)", d.path, required)
		}
	}
	d.hasChatJoin = tables["chat"] && tables["chat_message_join"]

	cols, err := d.columnNames(ctx, "message")
	if err != nil {
		return err
	}
	d.hasAttributedBody = cols["attributedbody"]
	d.hasService = cols["service"]
	return nil
}

func (d *DB) tableNames(ctx context.Context) (map[string]bool, error) {
	rows, err := d.db.QueryContext(ctx, `SELECT name FROM sqlite_master WHERE type = 'table'`)
	if err != nil {
		if isAccessDenied(err) {
			return nil, apperr.Permissionf(err, "cannot read Messages database at %s", d.path)
		}
		return nil, apperr.Internalf(err, "list tables")
	}
	defer rows.Close()

	tables := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, apperr.Internalf(err, "scan table name")
		}
		tables[name] = true
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Internalf(err, "list tables")
	}
	return tables, nil
}

// columnNames returns the lower-cased column names of table.
func (d *DB) columnNames(ctx context.Context, table string) (map[string]bool, error) {
	rows, err := d.db.QueryContext(ctx, fmt.Sprintf(`PRAGMA table_info(%s)`, table))
	if err != nil {
		return nil, apperr.Internalf(err, "inspect %s columns", table)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, apperr.Internalf(err, "inspect %s columns", table)
	}

	names := make(map[string]bool)
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, apperr.Internalf(err, "scan %s columns", table)
		}
		// table_info columns: cid, name, type, notnull, dflt_value, pk
		switch name := values[1].(type) {
		case string:
			names[strings.ToLower(name)] = true
		case []byte:
			names[strings.ToLower(string(name))] = true
		}
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Internalf(err, "inspect %s columns", table)
	}
	return names, nil
}
