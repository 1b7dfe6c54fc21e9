package analysis

import (
	"context"
	"strings"
	"time"

	"github.com/wesm/imsgstats/internal/apperr"
	"github.com/wesm/imsgstats/internal/chatdb"
)

// DefaultSearchLimit is used when SearchOptions.Limit is zero.
const DefaultSearchLimit = 10

// SearchOptions bound a search. After is inclusive, Before exclusive.
type SearchOptions struct {
	Limit  int
	After  time.Time
	Before time.Time
}

// SearchMessages returns messages whose body contains pattern,
// case-insensitively, oldest first. When more than Limit messages match,
// the most recent Limit are returned.
func (a *Analyzer) SearchMessages(ctx context.Context, pattern string, opts SearchOptions) (SearchResult, error) {
	if strings.TrimSpace(pattern) == "" {
		return SearchResult{}, apperr.InvalidInputf("query is required")
	}
	if opts.Limit < 0 {
		return SearchResult{}, apperr.InvalidInputf("limit must be positive")
	}
	if opts.Limit == 0 {
		opts.Limit = DefaultSearchLimit
	}
	if err := checkRange(opts.After, opts.Before); err != nil {
		return SearchResult{}, err
	}

	msgs, err := a.load(ctx, chatdb.Filter{Text: pattern, After: opts.After, Before: opts.Before})
	if err != nil {
		return SearchResult{}, err
	}
	return searchResult(pattern, msgs, opts.Limit), nil
}

func searchResult(pattern string, matches []chatdb.Message, limit int) SearchResult {
	res := SearchResult{
		Query:        pattern,
		TotalMatches: len(matches),
	}
	shown := lastN(matches, limit)
	res.Messages = make([]MessageView, len(shown))
	for i, m := range shown {
		res.Messages[i] = viewOf(m)
	}
	return res
}

// lastN returns the final n elements of msgs, or all of them when n <= 0.
func lastN(msgs []chatdb.Message, n int) []chatdb.Message {
	if n > 0 && len(msgs) > n {
		return msgs[len(msgs)-n:]
	}
	return msgs
}

func checkRange(after, before time.Time) error {
	if !after.IsZero() && !before.IsZero() && !after.Before(before) {
		return apperr.InvalidInputf("after must be earlier than before")
	}
	return nil
}
