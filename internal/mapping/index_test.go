package mapping

import (
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tickmap/internal/shared/testutil"
)

func mustHistory(t *testing.T, identity string, records []Record) *History {
	t.Helper()
	h, err := ParseHistory(identity, records)
	require.NoError(t, err)
	return h
}

func TestBuildIndexDetectsOverlap(t *testing.T) {
	tests := []struct {
		name      string
		histories [][]Record
		wantErr   bool
	}{
		{
			name: "disjoint claims on the same ticker",
			histories: [][]Record{
				{{Date: "19980101", Ticker: "ENRN"}, {Date: "20011227", Ticker: "DELISTED"}},
				{{Date: "20190101", Ticker: "ENRN"}, {Date: "20190201", Ticker: "GRRY"}},
			},
		},
		{
			name: "touching boundaries are legal",
			histories: [][]Record{
				{{Date: "20190101", Ticker: "AAA"}, {Date: "20190601", Ticker: "BBB"}},
				{{Date: "20190601", Ticker: "AAA"}},
			},
		},
		{
			name: "closed intervals overlap",
			histories: [][]Record{
				{{Date: "20190101", Ticker: "AAA"}, {Date: "20190601", Ticker: "BBB"}},
				{{Date: "20190301", Ticker: "AAA"}, {Date: "20190401", Ticker: "DELISTED"}},
			},
			wantErr: true,
		},
		{
			name: "open-ended claim collides with later claim",
			histories: [][]Record{
				{{Date: "20190101", Ticker: "AAA"}},
				{{Date: "20250101", Ticker: "AAA"}},
			},
			wantErr: true,
		},
		{
			name: "long claim spans several later short claims",
			histories: [][]Record{
				{{Date: "20100101", Ticker: "AAA"}, {Date: "20300101", Ticker: "DELISTED"}},
				{{Date: "20150101", Ticker: "AAA"}, {Date: "20150201", Ticker: "DELISTED"}},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			histories := make([]*History, 0, len(tt.histories))
			for i, recs := range tt.histories {
				histories = append(histories, mustHistory(t, string(rune('A'+i)), recs))
			}

			idx, err := BuildIndex(histories)
			if tt.wantErr {
				require.Error(t, err)
				var overlapErr *OverlappingClaimError
				require.ErrorAs(t, err, &overlapErr)
				assert.Equal(t, "AAA", overlapErr.Ticker)
				assert.NotEqual(t, overlapErr.IdentityA, overlapErr.IdentityB)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, len(histories), idx.Identities())
		})
	}
}

func TestBuildIndexRandomizedClaims(t *testing.T) {
	rng := rand.New(rand.NewSource(7))

	for trial := 0; trial < 50; trial++ {
		// Random disjoint windows on one ticker, one identity each.
		// Gaps may be zero, so touching boundaries are exercised too.
		type window struct{ start, end time.Time }
		var windows []window
		var histories []*History

		cursor := date(2000, 1, 1)
		n := 2 + rng.Intn(6)
		for i := 0; i < n; i++ {
			cursor = cursor.AddDate(0, 0, rng.Intn(90))
			start := cursor
			cursor = cursor.AddDate(0, 0, 1+rng.Intn(365))
			end := cursor

			histories = append(histories, mustHistory(t, fmt.Sprintf("Q%d", i), []Record{
				{Date: start.Format(DateFormat), Ticker: "AAA"},
				{Date: end.Format(DateFormat), Ticker: "DELISTED"},
			}))
			windows = append(windows, window{start: start, end: end})
		}

		idx, err := BuildIndex(histories)
		require.NoError(t, err, "trial %d: disjoint windows must build", trial)

		// Every window resolves to its owner over [start, end), and the
		// end date never resolves to that owner.
		for i, w := range windows {
			owner := fmt.Sprintf("Q%d", i)
			for _, probe := range []time.Time{w.start, w.end.AddDate(0, 0, -1)} {
				claim, ok := idx.FindByTicker("AAA", probe)
				require.True(t, ok, "trial %d: %s must be claimed on %s", trial, owner, probe)
				assert.Equal(t, owner, claim.Identity)
			}
			if claim, ok := idx.FindByTicker("AAA", w.end); ok {
				assert.NotEqual(t, owner, claim.Identity,
					"trial %d: claim end date is exclusive", trial)
			}
		}

		// Injecting a second claimant inside any existing window must
		// fail the build.
		w := windows[rng.Intn(len(windows))]
		intruder := mustHistory(t, "Z", []Record{
			{Date: w.start.Format(DateFormat), Ticker: "AAA"},
			{Date: w.start.AddDate(0, 0, 1).Format(DateFormat), Ticker: "DELISTED"},
		})

		_, err = BuildIndex(append(histories, intruder))
		require.Error(t, err, "trial %d: injected overlap must fail", trial)
		var overlapErr *OverlappingClaimError
		require.ErrorAs(t, err, &overlapErr)
		assert.Equal(t, "AAA", overlapErr.Ticker)
	}
}

func TestBuildIndexRejectsDuplicateIdentity(t *testing.T) {
	a := mustHistory(t, "A", []Record{{Date: "20190101", Ticker: "AAA"}})
	b := mustHistory(t, "A", []Record{{Date: "20200101", Ticker: "BBB"}})

	_, err := BuildIndex([]*History{a, b})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate history")
}

func TestFindByTicker(t *testing.T) {
	a := mustHistory(t, "A", []Record{
		{Date: "19980101", Ticker: "ENRN"},
		{Date: "20011227", Ticker: "DELISTED"},
	})
	b := mustHistory(t, "B", []Record{
		{Date: "20190101", Ticker: "ENRN"},
		{Date: "20190201", Ticker: "GRRY"},
	})
	idx, err := BuildIndex([]*History{a, b})
	require.NoError(t, err)

	tests := []struct {
		name         string
		ticker       string
		asOf         time.Time
		wantIdentity string
		wantFound    bool
	}{
		{"first claimant mid-interval", "ENRN", date(1998, 6, 1), "A", true},
		{"claim start is inclusive", "ENRN", date(1998, 1, 1), "A", true},
		{"delist date is exclusive", "ENRN", date(2001, 12, 27), "", false},
		{"gap between claimants", "ENRN", date(2010, 1, 1), "", false},
		{"before any claim", "ENRN", date(1997, 1, 1), "", false},
		{"second claimant", "ENRN", date(2019, 1, 15), "B", true},
		{"rename ends the claim", "ENRN", date(2019, 2, 1), "", false},
		{"renamed ticker open-ended", "GRRY", date(2030, 1, 1), "B", true},
		{"unknown ticker", "ZZZZ", date(2019, 1, 1), "", false},
		{"lookup is case-insensitive", "enrn", date(1998, 6, 1), "A", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claim, found := idx.FindByTicker(tt.ticker, tt.asOf)
			assert.Equal(t, tt.wantFound, found)
			if tt.wantFound {
				assert.Equal(t, tt.wantIdentity, claim.Identity)
				assert.True(t, claim.Covers(tt.asOf))
			}
		})
	}
}

func TestTickerAtCoverage(t *testing.T) {
	h := mustHistory(t, "B", []Record{
		{Date: "20190101", Ticker: "ENRN"},
		{Date: "20190201", Ticker: "GRRY"},
		{Date: "20200101", Ticker: "DELISTED"},
	})
	idx, err := BuildIndex([]*History{h})
	require.NoError(t, err)

	// Every date from the listing event onward maps to exactly one
	// interval, including the open-ended not-tradable tail.
	tests := []struct {
		date       time.Time
		wantTicker string
		wantOK     bool
	}{
		{date(2018, 12, 31), "", false},
		{date(2019, 1, 1), "ENRN", true},
		{date(2019, 1, 31), "ENRN", true},
		{date(2019, 2, 1), "GRRY", true},
		{date(2019, 12, 31), "GRRY", true},
		{date(2020, 1, 1), "", false},
		{date(2035, 1, 1), "", false},
	}

	for _, tt := range tests {
		ticker, ok := idx.TickerAt("B", tt.date)
		assert.Equal(t, tt.wantOK, ok, "date %s", tt.date)
		assert.Equal(t, tt.wantTicker, ticker, "date %s", tt.date)
	}

	_, ok := idx.TickerAt("UNKNOWN", date(2019, 6, 1))
	assert.False(t, ok)
}

func TestActiveOn(t *testing.T) {
	delisted := mustHistory(t, "A", []Record{
		{Date: "19980101", Ticker: "ENRN"},
		{Date: "20011227", Ticker: "DELISTED"},
	})
	alive := mustHistory(t, "B", []Record{
		{Date: "20190101", Ticker: "GRRY"},
	})
	idx, err := BuildIndex([]*History{delisted, alive})
	require.NoError(t, err)

	assert.True(t, idx.ActiveOn("A", date(2001, 12, 26)))
	assert.False(t, idx.ActiveOn("A", date(2001, 12, 27)))
	assert.False(t, idx.ActiveOn("A", date(2010, 1, 1)))
	assert.True(t, idx.ActiveOn("B", date(2030, 1, 1)))
	assert.False(t, idx.ActiveOn("UNKNOWN", date(2019, 1, 1)))
}

func TestIntervalAtCachesBounds(t *testing.T) {
	h := mustHistory(t, "B", []Record{
		{Date: "20190101", Ticker: "ENRN"},
		{Date: "20190201", Ticker: "GRRY"},
	})
	idx, err := BuildIndex([]*History{h})
	require.NoError(t, err)

	claim, ok := idx.IntervalAt("B", date(2019, 1, 15))
	require.True(t, ok)
	assert.Equal(t, "ENRN", claim.Ticker)
	assert.Equal(t, date(2019, 1, 1), claim.Start)
	assert.Equal(t, date(2019, 2, 1), claim.End)

	claim, ok = idx.IntervalAt("B", date(2019, 2, 15))
	require.True(t, ok)
	assert.Equal(t, "GRRY", claim.Ticker)
	assert.True(t, claim.End.IsZero())
}

func TestLoadMarketBestEffort(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteMapFile(t, dir, "A", []testutil.MapRow{
		{Date: "19980101", Ticker: "ENRN"},
		{Date: "20011227", Ticker: "DELISTED"},
	})
	testutil.WriteMapFile(t, dir, "BAD", []testutil.MapRow{
		{Date: "not-a-date", Ticker: "XXX"},
	})

	idx, report, err := LoadMarket(dir, slog.Default())
	require.NoError(t, err)
	assert.Equal(t, 1, idx.Identities())
	assert.Equal(t, 1, report.Loaded)
	require.Len(t, report.Dropped, 1)
	assert.Equal(t, "BAD", report.Dropped[0].Identity)
}

func TestLoadMarketOverlapFailsBuild(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteMapFile(t, dir, "A", []testutil.MapRow{
		{Date: "20190101", Ticker: "AAA"},
	})
	testutil.WriteMapFile(t, dir, "B", []testutil.MapRow{
		{Date: "20200101", Ticker: "AAA"},
	})

	_, _, err := LoadMarket(dir, slog.Default())
	require.Error(t, err)
	var overlapErr *OverlappingClaimError
	assert.ErrorAs(t, err, &overlapErr)
}

func TestLoadMarketMissingDirectory(t *testing.T) {
	idx, report, err := LoadMarket(filepath.Join(t.TempDir(), "absent"), slog.Default())
	require.NoError(t, err)
	assert.Equal(t, 0, idx.Identities())
	assert.Equal(t, 0, report.Loaded)
	assert.Empty(t, report.Dropped)
}

func TestLoadMarketSkipsNonMappingFiles(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteMapFile(t, dir, "A", []testutil.MapRow{
		{Date: "20190101", Ticker: "AAA"},
	})
	require.NoError(t, os.WriteFile(filepath.Join(dir, "readme.txt"), []byte("notes\n"), 0644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "archive"), 0755))

	idx, report, err := LoadMarket(dir, slog.Default())
	require.NoError(t, err)
	assert.Equal(t, 1, idx.Identities())
	assert.Equal(t, 1, report.Loaded)
	assert.Empty(t, report.Dropped)
}
