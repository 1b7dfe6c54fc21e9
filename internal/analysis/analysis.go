// Package analysis computes statistics over the Messages store.
//
// Every Analyzer method opens one scoped connection through its Provider,
// reads the rows it needs, closes the connection, and reduces the rows in
// memory. Nothing is cached between calls.
package analysis

import (
	"context"
	"math"
	"strings"
	"time"

	"github.com/wesm/imsgstats/internal/apperr"
	"github.com/wesm/imsgstats/internal/chatdb"
)

// Options tune the reductions. The zero value is usable; see DefaultOptions.
type Options struct {
	TopSenders    int      // entries in BasicStats.TopSenders
	MinWordLength int      // shortest token counted by WordFrequency, in runes
	StopWords     []string // added to the built-in stop words
}

// DefaultOptions mirrors the defaults in the config file.
func DefaultOptions() Options {
	return Options{
		TopSenders:    5,
		MinWordLength: 3,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.TopSenders <= 0 {
		o.TopSenders = d.TopSenders
	}
	if o.MinWordLength <= 0 {
		o.MinWordLength = d.MinWordLength
	}
	return o
}

// Analyzer answers analytic queries against a Messages store.
type Analyzer struct {
	provider chatdb.Provider
	opts     Options
	words    tokenizer
	now      func() time.Time
}

// New returns an Analyzer reading through provider.
func New(provider chatdb.Provider, opts Options) *Analyzer {
	opts = opts.withDefaults()
	return &Analyzer{
		provider: provider,
		opts:     opts,
		words:    newTokenizer(opts.MinWordLength, opts.StopWords),
		now:      time.Now,
	}
}

// load returns every message matching f.
func (a *Analyzer) load(ctx context.Context, f chatdb.Filter) ([]chatdb.Message, error) {
	db, err := a.provider.Open(ctx)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	return db.Messages(ctx, f)
}

// loadContact resolves contact to its handles and returns their messages
// within the After/Before bounds of f. It fails with NotFound when the
// contact has no messages at all so that callers never build a statistic
// out of an empty conversation. A contact whose messages all fall outside
// the bounds yields no messages and no error.
func (a *Analyzer) loadContact(ctx context.Context, contact string, f chatdb.Filter) (string, []chatdb.Message, error) {
	contact = strings.TrimSpace(contact)
	if contact == "" {
		return "", nil, apperr.InvalidInputf("contact is required")
	}

	db, err := a.provider.Open(ctx)
	if err != nil {
		return "", nil, err
	}
	defer db.Close()

	handles, err := db.ResolveHandle(ctx, contact)
	if err != nil {
		return "", nil, err
	}
	if len(handles) == 0 {
		return "", nil, contactNotFound(contact)
	}

	f.HandleIDs = chatdb.RowIDs(handles)
	msgs, err := db.Messages(ctx, f)
	if err != nil {
		return "", nil, err
	}
	if len(msgs) == 0 {
		if !f.After.IsZero() || !f.Before.IsZero() {
			outside, err := db.Messages(ctx, chatdb.Filter{HandleIDs: f.HandleIDs, Limit: 1})
			if err != nil {
				return "", nil, err
			}
			if len(outside) > 0 {
				return handles[0].ID, nil, nil
			}
		}
		return "", nil, contactNotFound(contact)
	}
	return handles[0].ID, msgs, nil
}

func contactNotFound(contact string) error {
	return apperr.NotFoundf(nil, "no messages found for contact %q; use list_contacts to see available contacts", contact)
}

// percent returns part/total as a percentage rounded to one decimal.
func percent(part, total int) float64 {
	if total == 0 {
		return 0
	}
	return round1(float64(part) * 100 / float64(total))
}

func round1(f float64) float64 {
	return math.Round(f*10) / 10
}

func whoTalksMore(mine, theirs int) string {
	switch {
	case mine > theirs:
		return WhoMe
	case theirs > mine:
		return WhoThem
	default:
		return WhoEqual
	}
}
