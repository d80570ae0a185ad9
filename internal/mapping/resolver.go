package mapping

import (
	"sync/atomic"
	"time"

	"tickmap/pkg/contracts/domain"
)

// Resolver is the query-facing symbol service. It holds a reference
// to exactly one Index at a time; queries are pure functions over
// that index, so the whole struct is safe for concurrent use. Reload
// swaps the index atomically — in-flight queries keep the reference
// they loaded.
type Resolver struct {
	index atomic.Pointer[Index]
	last  atomic.Pointer[lastLookup]
}

// lastLookup caches the most recent ticker lookup. Backtest readers
// query the same ticker for consecutive dates, so one entry removes
// almost every repeat claim search.
type lastLookup struct {
	index  *Index
	ticker string
	claim  Claim
}

// NewResolver wraps an index built beforehand.
func NewResolver(idx *Index) *Resolver {
	r := &Resolver{}
	r.index.Store(idx)
	return r
}

// Reload atomically replaces the index for all subsequent queries.
func (r *Resolver) Reload(idx *Index) {
	r.index.Store(idx)
	r.last.Store(nil)
}

// Index returns the index currently backing queries.
func (r *Resolver) Index() *Index {
	return r.index.Load()
}

// ResolveTicker answers "which entity owned this ticker on this
// date". When no claim covers the date the ticker passes through
// unchanged with HasMapping false — custom data with no corporate
// action history resolves to itself.
func (r *Resolver) ResolveTicker(ticker string, asOf time.Time) domain.ResolvedSymbol {
	idx := r.index.Load()
	norm := NormalizeTicker(ticker)

	claim, ok := r.cachedClaim(idx, norm, asOf)
	if !ok {
		claim, ok = idx.FindByTicker(norm, asOf)
		if !ok {
			return domain.ResolvedSymbol{EffectiveTicker: norm}
		}
		r.last.Store(&lastLookup{index: idx, ticker: norm, claim: claim})
	}

	effective, _ := idx.TickerAt(claim.Identity, asOf)
	return domain.ResolvedSymbol{
		HasMapping:      true,
		Identity:        claim.Identity,
		EffectiveTicker: effective,
	}
}

// TickerOnDate returns the ticker an identity traded under on date.
// It backs "what filename should I read for this date" without
// re-resolving from a ticker string each tick.
func (r *Resolver) TickerOnDate(identity string, date time.Time) (string, bool) {
	return r.index.Load().TickerAt(identity, date)
}

// IntervalOn returns the claim covering date for an identity, letting
// a forward-only caller cache the interval bounds.
func (r *Resolver) IntervalOn(identity string, date time.Time) (Claim, bool) {
	return r.index.Load().IntervalAt(identity, date)
}

// IsActiveOn reports whether the identity is tradable on date, i.e.
// date does not fall in or after the terminal delisting interval.
func (r *Resolver) IsActiveOn(identity string, date time.Time) bool {
	return r.index.Load().ActiveOn(identity, date)
}

func (r *Resolver) cachedClaim(idx *Index, ticker string, asOf time.Time) (Claim, bool) {
	entry := r.last.Load()
	if entry == nil || entry.index != idx || entry.ticker != ticker {
		return Claim{}, false
	}
	if !entry.claim.Covers(asOf) {
		return Claim{}, false
	}
	return entry.claim, true
}
