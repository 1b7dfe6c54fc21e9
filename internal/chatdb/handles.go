package chatdb

import (
	"context"
	"strings"

	"github.com/wesm/imsgstats/internal/apperr"
)

// Handle is one row of the handle table: a phone number or email address on
// a given service. The same address appears once per service.
type Handle struct {
	RowID   int64
	ID      string
	Service string
}

// Handles returns every handle in the store ordered by row id.
func (d *DB) Handles(ctx context.Context) ([]Handle, error) {
	service := "''"
	if cols, err := d.columnNames(ctx, "handle"); err != nil {
		return nil, err
	} else if cols["service"] {
		service = "COALESCE(service, '')"
	}

	rows, err := d.db.QueryContext(ctx, `SELECT ROWID, COALESCE(id, ''), `+service+` FROM handle ORDER BY ROWID`)
	if err != nil {
		return nil, apperr.Internalf(err, "query handles")
	}
	defer rows.Close()

	var handles []Handle
	for rows.Next() {
		var h Handle
		if err := rows.Scan(&h.RowID, &h.ID, &h.Service); err != nil {
			return nil, apperr.Internalf(err, "scan handle")
		}
		handles = append(handles, h)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Internalf(err, "iterate handles")
	}
	return handles, nil
}

// ResolveHandle returns the handles whose normalized address equals the
// normalized contact. Matching is exact; "555" never matches "+15551234567".
// An empty result is not an error.
func (d *DB) ResolveHandle(ctx context.Context, contact string) ([]Handle, error) {
	want := NormalizeHandle(contact)
	if want == "" {
		return nil, nil
	}
	all, err := d.Handles(ctx)
	if err != nil {
		return nil, err
	}
	var matched []Handle
	for _, h := range all {
		if NormalizeHandle(h.ID) == want {
			matched = append(matched, h)
		}
	}
	return matched, nil
}

// NormalizeHandle lowercases an address and strips the punctuation people
// type into phone numbers, so "+1 (555) 123-4567" and "+15551234567" compare
// equal. Email addresses are only trimmed and lowercased.
func NormalizeHandle(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if strings.Contains(s, "@") {
		return s
	}
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '-', '(', ')', '.', '\t':
			return -1
		}
		return r
	}, s)
}

// RowIDs extracts the handle row ids for use in a Filter.
func RowIDs(handles []Handle) []int64 {
	ids := make([]int64, len(handles))
	for i, h := range handles {
		ids[i] = h.RowID
	}
	return ids
}
