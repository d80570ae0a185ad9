package feed

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"tickmap/pkg/contracts/domain"
)

// Runner drives multiple subscriptions in parallel, one goroutine per
// reader. Routers are per-subscription, so no mapping state is shared
// between goroutines.
type Runner struct {
	readers []*Reader
	logger  *slog.Logger
}

// NewRunner creates a runner over the given readers.
func NewRunner(readers []*Reader, logger *slog.Logger) *Runner {
	return &Runner{readers: readers, logger: logger}
}

// Run reads every subscription to completion. emit may be called
// concurrently from multiple subscriptions and must be safe for that;
// the subscription is passed alongside each bar so the caller can
// tell streams apart. The first reader error cancels the rest.
func (r *Runner) Run(ctx context.Context, emit func(Subscription, domain.Bar) error) error {
	g, gctx := errgroup.WithContext(ctx)

	for _, reader := range r.readers {
		reader := reader
		g.Go(func() error {
			return reader.Read(gctx, func(bar domain.Bar) error {
				return emit(reader.Subscription(), bar)
			})
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	r.logger.Info("all subscriptions drained", slog.Int("subscriptions", len(r.readers)))
	return nil
}
