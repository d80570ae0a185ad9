// Package testutil provides fixture builders shared across package
// tests: on-disk market layouts with mapping files and daily feed
// files.
package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// MapRow is one mapping record in a fixture file.
type MapRow struct {
	Date   string
	Ticker string
}

// WriteMapFile writes a mapping file for one identity under dir and
// returns its path.
func WriteMapFile(t *testing.T, dir, identity string, rows []MapRow) string {
	t.Helper()

	var b strings.Builder
	for _, row := range rows {
		fmt.Fprintf(&b, "%s,%s\n", row.Date, row.Ticker)
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("failed to create maps dir: %v", err)
	}
	path := filepath.Join(dir, identity+".csv")
	if err := os.WriteFile(path, []byte(b.String()), 0644); err != nil {
		t.Fatalf("failed to write map file: %v", err)
	}
	return path
}

// BarRow is one daily bar record in a fixture feed file.
type BarRow struct {
	Date   string
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume int64
}

// WriteDailyFeed writes a per-ticker daily CSV under
// <feedDir>/daily/<ticker>.csv and returns its path.
func WriteDailyFeed(t *testing.T, feedDir, ticker string, rows []BarRow) string {
	t.Helper()

	var b strings.Builder
	for _, row := range rows {
		fmt.Fprintf(&b, "%s,%.2f,%.2f,%.2f,%.2f,%d\n",
			row.Date, row.Open, row.High, row.Low, row.Close, row.Volume)
	}

	dir := filepath.Join(feedDir, "daily")
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("failed to create feed dir: %v", err)
	}
	path := filepath.Join(dir, strings.ToLower(ticker)+".csv")
	if err := os.WriteFile(path, []byte(b.String()), 0644); err != nil {
		t.Fatalf("failed to write feed file: %v", err)
	}
	return path
}
