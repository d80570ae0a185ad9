package domain

import "time"

// Bar is one per-date record emitted by a data feed subscription.
// SourceTicker is the ticker embedded in the file the record came
// from, which differs from the requested ticker after a rename.
type Bar struct {
	SourceTicker string    `json:"source_ticker" validate:"required,min=1,max=10"`
	Date         time.Time `json:"date" validate:"required"`
	Open         float64   `json:"open" validate:"min=0"`
	High         float64   `json:"high" validate:"min=0"`
	Low          float64   `json:"low" validate:"min=0"`
	Close        float64   `json:"close" validate:"min=0"`
	Volume       int64     `json:"volume" validate:"min=0"`
}
