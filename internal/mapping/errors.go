package mapping

import (
	"fmt"
	"time"
)

// MalformedHistoryError indicates that the records for one identity
// cannot form a valid history: two records on the same date disagree
// about the ticker, or adjacent records repeat the same ticker.
type MalformedHistoryError struct {
	Identity string
	Date     time.Time
	Reason   string
}

func (e *MalformedHistoryError) Error() string {
	return fmt.Sprintf("malformed history for %s at %s: %s",
		e.Identity, e.Date.Format(DateFormat), e.Reason)
}

// EmptyHistoryError indicates that zero records were supplied for an
// identity.
type EmptyHistoryError struct {
	Identity string
}

func (e *EmptyHistoryError) Error() string {
	return fmt.Sprintf("empty history for %s: at least one listing record is required", e.Identity)
}

// OverlappingClaimError indicates that two distinct identities claim
// the same ticker over overlapping date ranges. This is bad input
// data and fails the whole index build; picking a winner silently
// would serve wrong historical data with no indication of error.
type OverlappingClaimError struct {
	Ticker    string
	IdentityA string
	IdentityB string
	Start     time.Time
	End       time.Time // zero when the overlap is open-ended
}

func (e *OverlappingClaimError) Error() string {
	end := "open"
	if !e.End.IsZero() {
		end = e.End.Format(DateFormat)
	}
	return fmt.Sprintf("ticker %s claimed by both %s and %s over [%s, %s)",
		e.Ticker, e.IdentityA, e.IdentityB, e.Start.Format(DateFormat), end)
}
