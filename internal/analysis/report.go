package analysis

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Number of conversations included in a Report.
const reportConversations = 5

// Report computes every store-wide section. Sections run concurrently, each
// on its own read-only connection.
func (a *Analyzer) Report(ctx context.Context, topWords int) (Report, error) {
	r := Report{GeneratedAt: a.now().UTC()}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		r.Basic, err = a.BasicStats(ctx)
		return err
	})
	g.Go(func() error {
		var err error
		r.Words, err = a.WordFrequency(ctx, topWords)
		return err
	})
	g.Go(func() error {
		var err error
		r.Conversations, err = a.TopConversations(ctx, reportConversations)
		return err
	})
	if err := g.Wait(); err != nil {
		return Report{}, err
	}
	return r, nil
}
