package mapping

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// Record is one raw persisted mapping row before validation.
type Record struct {
	Date   string
	Ticker string
}

// ParseHistory turns the raw records for one identity into a History.
// Records may arrive in any order; they are sorted by date. Ticker
// strings pass through verbatim apart from the case rule — exchange
// suffixes and the like are the caller's business.
func ParseHistory(identity string, records []Record) (*History, error) {
	if len(records) == 0 {
		return nil, &EmptyHistoryError{Identity: identity}
	}

	events := make([]Event, 0, len(records))
	for _, rec := range records {
		date, err := time.Parse(DateFormat, strings.TrimSpace(rec.Date))
		if err != nil {
			return nil, &MalformedHistoryError{
				Identity: identity,
				Reason:   fmt.Sprintf("invalid date %q", rec.Date),
			}
		}
		ticker := NormalizeTicker(rec.Ticker)
		if ticker == "" {
			return nil, &MalformedHistoryError{
				Identity: identity,
				Date:     date,
				Reason:   "empty ticker",
			}
		}
		events = append(events, Event{EffectiveDate: NormalizeDate(date), Ticker: ticker})
	}

	sort.SliceStable(events, func(i, j int) bool {
		return events[i].EffectiveDate.Before(events[j].EffectiveDate)
	})

	for i := 1; i < len(events); i++ {
		prev, cur := events[i-1], events[i]
		if cur.EffectiveDate.Equal(prev.EffectiveDate) {
			if cur.Ticker == prev.Ticker {
				// Exact duplicate row, tolerate it.
				events = append(events[:i], events[i+1:]...)
				i--
				continue
			}
			return nil, &MalformedHistoryError{
				Identity: identity,
				Date:     cur.EffectiveDate,
				Reason:   fmt.Sprintf("conflicting tickers %s and %s on the same date", prev.Ticker, cur.Ticker),
			}
		}
		if cur.Ticker == prev.Ticker {
			return nil, &MalformedHistoryError{
				Identity: identity,
				Date:     cur.EffectiveDate,
				Reason:   fmt.Sprintf("adjacent intervals repeat ticker %s", cur.Ticker),
			}
		}
	}

	if events[0].IsDelisting() {
		return nil, &MalformedHistoryError{
			Identity: identity,
			Date:     events[0].EffectiveDate,
			Reason:   "history starts with a delisting record",
		}
	}
	for i, ev := range events {
		if ev.IsDelisting() && i != len(events)-1 {
			return nil, &MalformedHistoryError{
				Identity: identity,
				Date:     ev.EffectiveDate,
				Reason:   "delisting record is not terminal",
			}
		}
	}

	return &History{Identity: identity, Events: events}, nil
}

// ReadHistoryFile loads one identity's mapping records from a CSV
// file of "yyyyMMdd,TICKER" rows. The identity is the file name
// without extension.
func ReadHistoryFile(path string) (*History, error) {
	identity := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open mapping file %s: %w", path, err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = 2
	reader.TrimLeadingSpace = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read mapping file %s: %w", path, err)
	}

	records := make([]Record, 0, len(rows))
	for _, row := range rows {
		records = append(records, Record{Date: row[0], Ticker: row[1]})
	}

	return ParseHistory(identity, records)
}
