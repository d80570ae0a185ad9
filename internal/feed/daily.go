package feed

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"tickmap/internal/mapping"
	"tickmap/pkg/contracts/domain"
)

// KindDaily is the data-kind identifier for end-of-day bars.
const KindDaily = "daily"

// DailyBarHandler reads per-ticker end-of-day CSV files with rows of
// "yyyyMMdd,open,high,low,close,volume".
type DailyBarHandler struct{}

// Kind implements Handler.
func (DailyBarHandler) Kind() string { return KindDaily }

// LocateSource implements Handler. Daily files hold an entire ticker
// history, so the date does not participate in the path.
func (DailyBarHandler) LocateSource(baseDir, ticker string, _ time.Time) string {
	return filepath.Join(baseDir, KindDaily, fmt.Sprintf("%s.csv", strings.ToLower(ticker)))
}

// ParseRecord implements Handler.
func (DailyBarHandler) ParseRecord(row []string) (domain.Bar, error) {
	if len(row) != 6 {
		return domain.Bar{}, fmt.Errorf("expected 6 fields, got %d", len(row))
	}

	date, err := time.Parse(mapping.DateFormat, strings.TrimSpace(row[0]))
	if err != nil {
		return domain.Bar{}, fmt.Errorf("invalid date %q: %w", row[0], err)
	}

	prices := make([]float64, 4)
	for i := 0; i < 4; i++ {
		v, err := strconv.ParseFloat(strings.TrimSpace(row[i+1]), 64)
		if err != nil {
			return domain.Bar{}, fmt.Errorf("invalid price %q: %w", row[i+1], err)
		}
		prices[i] = v
	}

	volume, err := strconv.ParseInt(strings.TrimSpace(row[5]), 10, 64)
	if err != nil {
		return domain.Bar{}, fmt.Errorf("invalid volume %q: %w", row[5], err)
	}

	bar := domain.Bar{
		Date:   mapping.NormalizeDate(date),
		Open:   prices[0],
		High:   prices[1],
		Low:    prices[2],
		Close:  prices[3],
		Volume: volume,
	}
	// SourceTicker is stamped by the reader after routing, so it is
	// not checked here.
	if err := validate.StructExcept(bar, "SourceTicker"); err != nil {
		return domain.Bar{}, fmt.Errorf("invalid record: %w", err)
	}
	return bar, nil
}
