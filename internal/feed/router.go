package feed

import (
	"fmt"
	"time"

	"tickmap/internal/mapping"
)

// RouterState is the lifecycle state of a mapped source router.
type RouterState int

const (
	// StateUnresolved means no ticker has been established yet for
	// the current date; the tracked identity is not listed yet.
	StateUnresolved RouterState = iota
	// StateResolved means the router holds the ticker effective for
	// the current date.
	StateResolved
	// StateDelisted is terminal; the identity is no longer tradable.
	StateDelisted
)

// RouterEvent is the signal returned by each date advance.
type RouterEvent int

const (
	// EventUnchanged means the effective ticker did not change.
	EventUnchanged RouterEvent = iota
	// EventMappingChanged means the effective ticker changed and the
	// caller must re-derive its on-disk source location.
	EventMappingChanged
	// EventDelisted means the identity stopped trading; end of stream
	// for mapping purposes. The caller decides whether the data
	// stream ends too.
	EventDelisted
)

// Router tracks the effective ticker for one identity across a
// strictly forward sequence of dates. It caches the current validity
// interval, so ticks inside the interval cost no index lookup.
// Rewinding is not supported; going backward requires a fresh router.
//
// A router is owned by a single subscription and advanced
// synchronously from its read loop; it is not safe for concurrent use
// and does not need to be.
type Router struct {
	resolver *mapping.Resolver
	identity string

	state    RouterState
	current  mapping.Claim
	lastDate time.Time
	hasDate  bool
}

// NewRouter creates a router for one tracked identity.
func NewRouter(resolver *mapping.Resolver, identity string) *Router {
	return &Router{resolver: resolver, identity: identity}
}

// Identity returns the tracked permanent identity.
func (r *Router) Identity() string { return r.identity }

// State returns the current router state.
func (r *Router) State() RouterState { return r.state }

// CurrentTicker returns the ticker established for the current date,
// or empty when unresolved or delisted.
func (r *Router) CurrentTicker() string {
	if r.state != StateResolved {
		return ""
	}
	return r.current.Ticker
}

// Advance moves the router to date and reports whether the effective
// ticker changed. Dates must be non-decreasing.
func (r *Router) Advance(date time.Time) (RouterEvent, string, error) {
	date = mapping.NormalizeDate(date)
	if r.hasDate && date.Before(r.lastDate) {
		return EventUnchanged, "", fmt.Errorf(
			"router for %s cannot rewind from %s to %s",
			r.identity, r.lastDate.Format(mapping.DateFormat), date.Format(mapping.DateFormat))
	}
	r.lastDate = date
	r.hasDate = true

	if r.state == StateDelisted {
		return EventDelisted, "", nil
	}

	if r.state == StateResolved && r.current.Covers(date) {
		return EventUnchanged, r.current.Ticker, nil
	}

	claim, ok := r.resolver.IntervalOn(r.identity, date)
	if !ok {
		if !r.resolver.IsActiveOn(r.identity, date) {
			r.state = StateDelisted
			return EventDelisted, "", nil
		}
		// Not listed yet; stay unresolved until the listing date.
		r.state = StateUnresolved
		return EventUnchanged, "", nil
	}

	prev := r.current.Ticker
	r.current = claim
	if r.state == StateResolved && claim.Ticker == prev {
		return EventUnchanged, claim.Ticker, nil
	}
	r.state = StateResolved
	return EventMappingChanged, claim.Ticker, nil
}
