package feed

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"tickmap/internal/mapping"
	"tickmap/pkg/contracts/domain"
)

// Reader streams one subscription's records date by date. For mapped
// subscriptions it drives a Router on every date advance and
// re-derives the source file whenever the effective ticker changes;
// unmapped subscriptions read the requested ticker's file and nothing
// else.
type Reader struct {
	sub     Subscription
	handler Handler
	router  *Router // nil for unmapped or pass-through subscriptions
	baseDir string
	logger  *slog.Logger

	bars   map[time.Time]domain.Bar
	loaded bool
}

// NewReader builds a reader for a subscription. The mapping opt-in is
// applied here, once: an unmapped subscription never touches the
// resolver, and a mapped ticker with no known history falls back to
// pass-through.
func NewReader(sub Subscription, reg *Registry, resolver *mapping.Resolver, baseDir string, logger *slog.Logger) (*Reader, error) {
	if err := sub.Validate(); err != nil {
		return nil, err
	}
	handler, err := reg.Get(sub.Kind)
	if err != nil {
		return nil, err
	}

	r := &Reader{
		sub:     sub,
		handler: handler,
		baseDir: baseDir,
		logger:  logger.With(slog.String("ticker", sub.Ticker), slog.String("kind", sub.Kind)),
	}

	if sub.Mapped {
		if resolver == nil {
			return nil, fmt.Errorf("mapped subscription for %s requires a resolver", sub.Ticker)
		}
		resolved := resolver.ResolveTicker(sub.Ticker, sub.Start)
		if resolved.HasMapping {
			r.router = NewRouter(resolver, resolved.Identity)
		} else {
			r.logger.Debug("no mapping history for ticker, reading it verbatim")
		}
	}

	return r, nil
}

// Subscription returns the configuration the reader was built from.
func (r *Reader) Subscription() Subscription { return r.sub }

// Read walks every date in the subscription range and emits the bars
// found on disk. A date with no record, or a source file missing for
// a resolved ticker, is skipped; the resolver never touches data
// files, so their absence is this layer's concern.
func (r *Reader) Read(ctx context.Context, emit func(domain.Bar) error) error {
	start := mapping.NormalizeDate(r.sub.Start)
	end := mapping.NormalizeDate(r.sub.End)

	for date := start; !date.After(end); date = date.AddDate(0, 0, 1) {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		ticker, ok, err := r.tickerFor(date)
		if err != nil {
			return err
		}
		if !ok {
			// Delisted: mapping signalled end of stream and this
			// reader ends the data stream with it.
			break
		}
		if ticker == "" {
			continue // not listed yet
		}

		if bar, found := r.bars[date]; found {
			bar.SourceTicker = ticker
			if err := emit(bar); err != nil {
				return err
			}
		}
	}

	return nil
}

// tickerFor advances the mapping state to date and reloads the source
// file if the effective ticker changed. ok is false once the identity
// is delisted.
func (r *Reader) tickerFor(date time.Time) (string, bool, error) {
	if r.router == nil {
		ticker := mapping.NormalizeTicker(r.sub.Ticker)
		if !r.loaded {
			if err := r.openSource(ticker, date); err != nil {
				return "", false, err
			}
		}
		return ticker, true, nil
	}

	event, ticker, err := r.router.Advance(date)
	if err != nil {
		return "", false, err
	}
	switch event {
	case EventDelisted:
		r.logger.Info("identity delisted, ending stream",
			slog.String("identity", r.router.Identity()),
			slog.String("date", date.Format(mapping.DateFormat)))
		return "", false, nil
	case EventMappingChanged:
		r.logger.Info("mapping changed, re-deriving source",
			slog.String("identity", r.router.Identity()),
			slog.String("new_ticker", ticker),
			slog.String("date", date.Format(mapping.DateFormat)))
		if err := r.openSource(ticker, date); err != nil {
			return "", false, err
		}
	}
	return ticker, true, nil
}

// openSource loads the per-ticker file for the current source ticker.
// A missing file is not an error; the dates it would have covered
// simply yield no records.
func (r *Reader) openSource(ticker string, date time.Time) error {
	path := r.handler.LocateSource(r.baseDir, ticker, date)
	r.loaded = true
	r.bars = nil

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			r.logger.Debug("source file missing", slog.String("path", path))
			return nil
		}
		return fmt.Errorf("failed to open source %s: %w", path, err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.TrimLeadingSpace = true
	rows, err := reader.ReadAll()
	if err != nil {
		return fmt.Errorf("failed to read source %s: %w", path, err)
	}

	bars := make(map[time.Time]domain.Bar, len(rows))
	for i, row := range rows {
		bar, err := r.handler.ParseRecord(row)
		if err != nil {
			r.logger.Warn("skipping unparseable record",
				slog.String("path", path),
				slog.Int("line", i+1),
				slog.String("error", err.Error()))
			continue
		}
		bars[bar.Date] = bar
	}
	r.bars = bars

	r.logger.Debug("source loaded",
		slog.String("path", path),
		slog.Int("records", len(bars)))
	return nil
}
