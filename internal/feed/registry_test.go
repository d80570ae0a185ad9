package feed

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tickmap/pkg/contracts/domain"
)

type stubHandler struct {
	kind string
}

func (h stubHandler) Kind() string { return h.kind }

func (h stubHandler) LocateSource(baseDir, ticker string, _ time.Time) string {
	return baseDir + "/" + ticker
}

func (h stubHandler) ParseRecord(_ []string) (domain.Bar, error) {
	return domain.Bar{}, nil
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()

	require.NoError(t, r.Register(stubHandler{kind: "minute"}))
	require.NoError(t, r.Register(stubHandler{kind: "daily"}))

	assert.True(t, r.Has("minute"))
	assert.False(t, r.Has("tick"))
	assert.Equal(t, []string{"minute", "daily"}, r.Kinds())

	h, err := r.Get("daily")
	require.NoError(t, err)
	assert.Equal(t, "daily", h.Kind())

	_, err = r.Get("tick")
	assert.ErrorContains(t, err, "no handler registered")

	err = r.Register(stubHandler{kind: "daily"})
	assert.ErrorContains(t, err, "already registered")

	err = r.Register(nil)
	assert.ErrorContains(t, err, "nil handler")

	err = r.Register(stubHandler{})
	assert.ErrorContains(t, err, "kind cannot be empty")
}

func TestDefaultRegistry(t *testing.T) {
	r := DefaultRegistry()
	assert.True(t, r.Has(KindDaily))
}

func TestDailyBarHandlerLocateSource(t *testing.T) {
	h := DailyBarHandler{}
	path := h.LocateSource("/data/feeds/usa", "GRRY", date(2019, 2, 15))
	assert.Equal(t, "/data/feeds/usa/daily/grry.csv", path)
}

func TestDailyBarHandlerParseRecord(t *testing.T) {
	h := DailyBarHandler{}

	tests := []struct {
		name    string
		row     []string
		wantErr string
	}{
		{
			name: "valid row",
			row:  []string{"20190115", "10.5", "11.0", "10.1", "10.8", "125000"},
		},
		{
			name:    "wrong field count",
			row:     []string{"20190115", "10.5"},
			wantErr: "expected 6 fields",
		},
		{
			name:    "bad date",
			row:     []string{"2019-01-15", "10.5", "11.0", "10.1", "10.8", "125000"},
			wantErr: "invalid date",
		},
		{
			name:    "bad price",
			row:     []string{"20190115", "ten", "11.0", "10.1", "10.8", "125000"},
			wantErr: "invalid price",
		},
		{
			name:    "bad volume",
			row:     []string{"20190115", "10.5", "11.0", "10.1", "10.8", "many"},
			wantErr: "invalid volume",
		},
		{
			name:    "negative price rejected",
			row:     []string{"20190115", "-10.5", "11.0", "10.1", "10.8", "125000"},
			wantErr: "invalid record",
		},
		{
			name:    "negative volume rejected",
			row:     []string{"20190115", "10.5", "11.0", "10.1", "10.8", "-5"},
			wantErr: "invalid record",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bar, err := h.ParseRecord(tt.row)
			if tt.wantErr != "" {
				assert.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, date(2019, 1, 15), bar.Date)
			assert.Equal(t, 10.5, bar.Open)
			assert.Equal(t, 11.0, bar.High)
			assert.Equal(t, 10.1, bar.Low)
			assert.Equal(t, 10.8, bar.Close)
			assert.Equal(t, int64(125000), bar.Volume)
		})
	}
}
