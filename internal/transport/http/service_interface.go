package http

import (
	"context"
	"time"

	"tickmap/internal/mapping"
	"tickmap/pkg/contracts/domain"
)

// ResolverService is the query surface the handlers need. It is
// satisfied by *mapping.Resolver.
type ResolverService interface {
	ResolveTicker(ticker string, asOf time.Time) domain.ResolvedSymbol
	TickerOnDate(identity string, date time.Time) (string, bool)
	IsActiveOn(identity string, date time.Time) bool
	Index() *mapping.Index
}

// ReloadFunc rebuilds the mapping index from its persisted source and
// swaps it into the resolver. Wired by the composing binary.
type ReloadFunc func(ctx context.Context) (*mapping.BuildReport, error)
