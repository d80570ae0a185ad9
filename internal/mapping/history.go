package mapping

import (
	"sort"
	"time"
)

// History is the ordered record of which ticker one permanent
// identity used, interval by interval. Events are strictly increasing
// by date; the slice is immutable once the history is built.
type History struct {
	Identity string
	Events   []Event
}

// eventAt returns the index of the event whose interval covers date,
// or -1 if date is before the listing event.
func (h *History) eventAt(date time.Time) int {
	date = NormalizeDate(date)
	// First event with EffectiveDate after date; the one before it owns the interval.
	i := sort.Search(len(h.Events), func(i int) bool {
		return h.Events[i].EffectiveDate.After(date)
	})
	return i - 1
}

// TickerAt returns the ticker the identity used on date. The second
// return is false when the identity was not yet listed or already
// delisted on that date.
func (h *History) TickerAt(date time.Time) (string, bool) {
	i := h.eventAt(date)
	if i < 0 || h.Events[i].IsDelisting() {
		return "", false
	}
	return h.Events[i].Ticker, true
}

// ActiveOn reports whether date is before the terminal delisting
// interval. Dates before the listing event count as active; the
// terminal interval is the only thing that ends tradability.
func (h *History) ActiveOn(date time.Time) bool {
	last := h.Events[len(h.Events)-1]
	if !last.IsDelisting() {
		return true
	}
	return NormalizeDate(date).Before(last.EffectiveDate)
}

// FirstDate returns the listing date, the start of total coverage.
func (h *History) FirstDate() time.Time {
	return h.Events[0].EffectiveDate
}

// intervalAt returns the validity interval covering date along with
// its ticker. End is zero for the open-ended final interval. ok is
// false outside tradable coverage.
func (h *History) intervalAt(date time.Time) (ticker string, start, end time.Time, ok bool) {
	i := h.eventAt(date)
	if i < 0 || h.Events[i].IsDelisting() {
		return "", time.Time{}, time.Time{}, false
	}
	start = h.Events[i].EffectiveDate
	if i+1 < len(h.Events) {
		end = h.Events[i+1].EffectiveDate
	}
	return h.Events[i].Ticker, start, end, true
}
