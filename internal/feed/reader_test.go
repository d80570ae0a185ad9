package feed

import (
	"context"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tickmap/internal/mapping"
	"tickmap/internal/shared/testutil"
	"tickmap/pkg/contracts/domain"
)

// fixtureMarket lays out a market where identity B lists as ENRN,
// renames to GRRY and then delists, alongside an unrelated CUSTOM
// feed with no mapping history.
func fixtureMarket(t *testing.T) (resolver *mapping.Resolver, feedDir string) {
	t.Helper()

	mapsDir := t.TempDir()
	feedDir = t.TempDir()

	testutil.WriteMapFile(t, mapsDir, "B", []testutil.MapRow{
		{Date: "20190101", Ticker: "ENRN"},
		{Date: "20190105", Ticker: "GRRY"},
		{Date: "20190110", Ticker: "DELISTED"},
	})

	testutil.WriteDailyFeed(t, feedDir, "ENRN", []testutil.BarRow{
		{Date: "20190101", Open: 10, High: 11, Low: 9, Close: 10.5, Volume: 100},
		{Date: "20190102", Open: 10.5, High: 12, Low: 10, Close: 11, Volume: 110},
		{Date: "20190103", Open: 11, High: 11.5, Low: 10.5, Close: 11.2, Volume: 90},
		{Date: "20190104", Open: 11.2, High: 12, Low: 11, Close: 11.9, Volume: 120},
	})
	testutil.WriteDailyFeed(t, feedDir, "GRRY", []testutil.BarRow{
		{Date: "20190105", Open: 11.9, High: 12.5, Low: 11.5, Close: 12, Volume: 130},
		{Date: "20190106", Open: 12, High: 12.2, Low: 11.8, Close: 12.1, Volume: 80},
		{Date: "20190107", Open: 12.1, High: 12.4, Low: 12, Close: 12.3, Volume: 85},
		{Date: "20190108", Open: 12.3, High: 12.6, Low: 12.1, Close: 12.5, Volume: 95},
		{Date: "20190109", Open: 12.5, High: 12.8, Low: 12.3, Close: 12.7, Volume: 105},
		{Date: "20190110", Open: 12.7, High: 13, Low: 12.5, Close: 12.9, Volume: 115},
	})
	testutil.WriteDailyFeed(t, feedDir, "CUSTOM", []testutil.BarRow{
		{Date: "20190102", Open: 1, High: 2, Low: 0.5, Close: 1.5, Volume: 10},
	})

	idx, report, err := mapping.LoadMarket(mapsDir, slog.Default())
	require.NoError(t, err)
	require.Empty(t, report.Dropped)
	return mapping.NewResolver(idx), feedDir
}

func collect(t *testing.T, r *Reader) []domain.Bar {
	t.Helper()
	var bars []domain.Bar
	err := r.Read(context.Background(), func(bar domain.Bar) error {
		bars = append(bars, bar)
		return nil
	})
	require.NoError(t, err)
	return bars
}

func TestReaderFollowsRename(t *testing.T) {
	resolver, feedDir := fixtureMarket(t)

	sub := Subscription{
		Market: "usa",
		Ticker: "ENRN",
		Kind:   KindDaily,
		Mapped: true,
		Start:  date(2019, 1, 1),
		End:    date(2019, 1, 31),
	}
	reader, err := NewReader(sub, DefaultRegistry(), resolver, feedDir, slog.Default())
	require.NoError(t, err)

	bars := collect(t, reader)

	// Four bars from the ENRN file, five from GRRY, and nothing on or
	// after the delisting date even though the GRRY file has a row there.
	require.Len(t, bars, 9)
	for i, bar := range bars[:4] {
		assert.Equal(t, "ENRN", bar.SourceTicker, "bar %d", i)
	}
	for i, bar := range bars[4:] {
		assert.Equal(t, "GRRY", bar.SourceTicker, "bar %d", i+4)
	}
	assert.Equal(t, date(2019, 1, 1), bars[0].Date)
	assert.Equal(t, date(2019, 1, 9), bars[len(bars)-1].Date)
}

func TestReaderUnmappedReadsVerbatim(t *testing.T) {
	resolver, feedDir := fixtureMarket(t)

	sub := Subscription{
		Market: "usa",
		Ticker: "ENRN",
		Kind:   KindDaily,
		Mapped: false,
		Start:  date(2019, 1, 1),
		End:    date(2019, 1, 31),
	}
	reader, err := NewReader(sub, DefaultRegistry(), resolver, feedDir, slog.Default())
	require.NoError(t, err)

	bars := collect(t, reader)

	// Only the ENRN file, never re-routed, never truncated by delisting.
	require.Len(t, bars, 4)
	for _, bar := range bars {
		assert.Equal(t, "ENRN", bar.SourceTicker)
	}
}

func TestReaderPassThroughTicker(t *testing.T) {
	resolver, feedDir := fixtureMarket(t)

	// CUSTOM has no mapping history; opting in to mapping must still
	// resolve it to itself unchanged.
	sub := Subscription{
		Market: "usa",
		Ticker: "CUSTOM",
		Kind:   KindDaily,
		Mapped: true,
		Start:  date(2019, 1, 1),
		End:    date(2019, 1, 31),
	}
	reader, err := NewReader(sub, DefaultRegistry(), resolver, feedDir, slog.Default())
	require.NoError(t, err)

	bars := collect(t, reader)
	require.Len(t, bars, 1)
	assert.Equal(t, "CUSTOM", bars[0].SourceTicker)
	assert.Equal(t, date(2019, 1, 2), bars[0].Date)
}

func TestReaderMissingSourceFile(t *testing.T) {
	resolver, feedDir := fixtureMarket(t)

	sub := Subscription{
		Market: "usa",
		Ticker: "GHOST",
		Kind:   KindDaily,
		Mapped: true,
		Start:  date(2019, 1, 1),
		End:    date(2019, 1, 5),
	}
	reader, err := NewReader(sub, DefaultRegistry(), resolver, feedDir, slog.Default())
	require.NoError(t, err)

	bars := collect(t, reader)
	assert.Empty(t, bars)
}

func TestNewReaderValidation(t *testing.T) {
	resolver, feedDir := fixtureMarket(t)

	tests := []struct {
		name    string
		sub     Subscription
		wantErr string
	}{
		{
			name: "unknown kind",
			sub: Subscription{
				Market: "usa", Ticker: "ENRN", Kind: "tick",
				Start: date(2019, 1, 1), End: date(2019, 1, 2),
			},
			wantErr: "no handler registered",
		},
		{
			name: "missing ticker",
			sub: Subscription{
				Market: "usa", Kind: KindDaily,
				Start: date(2019, 1, 1), End: date(2019, 1, 2),
			},
			wantErr: "invalid subscription",
		},
		{
			name: "end before start",
			sub: Subscription{
				Market: "usa", Ticker: "ENRN", Kind: KindDaily,
				Start: date(2019, 1, 2), End: date(2019, 1, 1),
			},
			wantErr: "end",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewReader(tt.sub, DefaultRegistry(), resolver, feedDir, slog.Default())
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestRunnerDrivesSubscriptionsInParallel(t *testing.T) {
	resolver, feedDir := fixtureMarket(t)

	subs := []Subscription{
		{Market: "usa", Ticker: "ENRN", Kind: KindDaily, Mapped: true,
			Start: date(2019, 1, 1), End: date(2019, 1, 31)},
		{Market: "usa", Ticker: "CUSTOM", Kind: KindDaily, Mapped: true,
			Start: date(2019, 1, 1), End: date(2019, 1, 31)},
	}

	readers := make([]*Reader, 0, len(subs))
	for _, sub := range subs {
		reader, err := NewReader(sub, DefaultRegistry(), resolver, feedDir, slog.Default())
		require.NoError(t, err)
		readers = append(readers, reader)
	}

	var mu sync.Mutex
	counts := make(map[string]int)
	runner := NewRunner(readers, slog.Default())
	err := runner.Run(context.Background(), func(sub Subscription, _ domain.Bar) error {
		mu.Lock()
		defer mu.Unlock()
		counts[sub.Ticker]++
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, 9, counts["ENRN"])
	assert.Equal(t, 1, counts["CUSTOM"])
}
