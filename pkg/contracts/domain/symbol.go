package domain

import "time"

// ResolvedSymbol is the answer to a ticker+date resolution query.
// When HasMapping is false the ticker had no corporate-action history
// covering the date and EffectiveTicker echoes the request unchanged.
type ResolvedSymbol struct {
	HasMapping      bool   `json:"has_mapping"`
	Identity        string `json:"identity,omitempty"`
	EffectiveTicker string `json:"effective_ticker"`
}

// SymbolStatus represents the trading status of an identity on a date.
type SymbolStatus string

const (
	SymbolStatusActive   SymbolStatus = "active"
	SymbolStatusDelisted SymbolStatus = "delisted"
)

// TickerChange describes one rename in an identity's life, as exposed
// over the API.
type TickerChange struct {
	EffectiveDate time.Time `json:"effective_date"`
	Ticker        string    `json:"ticker"`
}
