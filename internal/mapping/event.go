package mapping

import (
	"strings"
	"time"
)

// DateFormat is the calendar format used by persisted mapping records.
const DateFormat = "20060102"

// DelistedTicker is the sentinel ticker that terminates a history.
// A record carrying it means the entity stopped trading on that date.
const DelistedTicker = "DELISTED"

// Event records that the owning entity is known by Ticker from
// EffectiveDate (inclusive) until the next event's date (exclusive),
// or forever if it is the last event.
type Event struct {
	EffectiveDate time.Time `json:"effective_date"`
	Ticker        string    `json:"ticker"`
}

// IsDelisting reports whether this event ends the entity's traded life.
func (e Event) IsDelisting() bool {
	return e.Ticker == DelistedTicker
}

// NormalizeTicker applies the single case rule used for every ticker
// comparison in this package. Lookups would otherwise be silently
// case-sensitive depending on which side was folded.
func NormalizeTicker(ticker string) string {
	return strings.ToUpper(strings.TrimSpace(ticker))
}

// NormalizeDate truncates a timestamp to its calendar day in UTC.
// All interval arithmetic in this package operates on whole days.
func NormalizeDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
