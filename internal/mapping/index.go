package mapping

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"tickmap/internal/files"
)

// Claim is one identity's ownership of a ticker over a validity
// interval. End is zero for an open-ended claim.
type Claim struct {
	Identity string
	Ticker   string
	Start    time.Time
	End      time.Time
}

// Covers reports whether date falls inside the claim's interval.
func (c Claim) Covers(date time.Time) bool {
	date = NormalizeDate(date)
	if date.Before(c.Start) {
		return false
	}
	return c.End.IsZero() || date.Before(c.End)
}

// Index is the immutable, market-scoped aggregation of every known
// history. It is built once before any query runs and shared
// read-only; a refresh produces a fresh Index, never a mutation.
type Index struct {
	histories map[string]*History
	claims    map[string][]Claim // per ticker, sorted by Start
}

// DroppedIdentity records one identity excluded from a build along
// with the parse failure that excluded it.
type DroppedIdentity struct {
	Identity string
	Err      error
}

// BuildReport describes the outcome of a best-effort market load:
// how many histories made it in and which were dropped.
type BuildReport struct {
	Loaded  int
	Dropped []DroppedIdentity
}

// BuildIndex aggregates histories into a queryable index. It fails
// with OverlappingClaimError when two identities claim the same
// ticker over intersecting date ranges; overlap means the input data
// is wrong and must surface rather than be masked.
func BuildIndex(histories []*History) (*Index, error) {
	idx := &Index{
		histories: make(map[string]*History, len(histories)),
		claims:    make(map[string][]Claim),
	}

	for _, h := range histories {
		if _, exists := idx.histories[h.Identity]; exists {
			return nil, fmt.Errorf("duplicate history for identity %s", h.Identity)
		}
		idx.histories[h.Identity] = h

		for i, ev := range h.Events {
			if ev.IsDelisting() {
				continue
			}
			claim := Claim{Identity: h.Identity, Ticker: ev.Ticker, Start: ev.EffectiveDate}
			if i+1 < len(h.Events) {
				claim.End = h.Events[i+1].EffectiveDate
			}
			idx.claims[ev.Ticker] = append(idx.claims[ev.Ticker], claim)
		}
	}

	for ticker, claims := range idx.claims {
		sort.Slice(claims, func(i, j int) bool {
			return claims[i].Start.Before(claims[j].Start)
		})
		// reach is the earlier claim extending furthest to the right;
		// a single long claim can collide with several later ones, so
		// comparing adjacent pairs is not enough.
		reach := claims[0]
		for i := 1; i < len(claims); i++ {
			cur := claims[i]
			if reach.End.IsZero() || cur.Start.Before(reach.End) {
				if reach.Identity != cur.Identity {
					return nil, &OverlappingClaimError{
						Ticker:    ticker,
						IdentityA: reach.Identity,
						IdentityB: cur.Identity,
						Start:     cur.Start,
						End:       reach.End,
					}
				}
			}
			if reach.End.IsZero() {
				continue
			}
			if cur.End.IsZero() || cur.End.After(reach.End) {
				reach = cur
			}
		}
	}

	return idx, nil
}

// LoadMarket reads every mapping file in a market directory and
// builds the index from the valid subset. Parse failures exclude the
// offending identity and are reported, not fatal; an overlapping
// claim still fails the whole build.
func LoadMarket(dir string, logger *slog.Logger) (*Index, *BuildReport, error) {
	infos, err := files.NewDiscovery(dir).FindMappingFiles(".")
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			logger.Warn("market directory missing, building empty index", slog.String("dir", dir))
			infos = nil
		} else {
			return nil, nil, fmt.Errorf("failed to scan market directory %s: %w", dir, err)
		}
	}

	report := &BuildReport{}
	histories := make([]*History, 0, len(infos))
	for _, info := range infos {
		h, err := ReadHistoryFile(info.Path)
		if err != nil {
			identity := strings.TrimSuffix(info.Name, filepath.Ext(info.Name))
			report.Dropped = append(report.Dropped, DroppedIdentity{Identity: identity, Err: err})
			logger.Warn("dropping identity from index build",
				slog.String("identity", identity),
				slog.String("error", err.Error()))
			continue
		}
		histories = append(histories, h)
	}

	idx, err := BuildIndex(histories)
	if err != nil {
		return nil, report, err
	}
	report.Loaded = len(histories)

	logger.Info("mapping index built",
		slog.String("dir", dir),
		slog.Int("identities", report.Loaded),
		slog.Int("dropped", len(report.Dropped)))

	return idx, report, nil
}

// FindByTicker returns the claim covering asOf for the given ticker.
// A ticker never claimed by any history, or a date falling in a gap
// between claims, is a legitimate "no mapping known" result.
func (idx *Index) FindByTicker(ticker string, asOf time.Time) (Claim, bool) {
	claims := idx.claims[NormalizeTicker(ticker)]
	if len(claims) == 0 {
		return Claim{}, false
	}
	asOf = NormalizeDate(asOf)
	// Last claim starting on or before asOf.
	i := sort.Search(len(claims), func(i int) bool {
		return claims[i].Start.After(asOf)
	})
	if i == 0 {
		return Claim{}, false
	}
	if c := claims[i-1]; c.Covers(asOf) {
		return c, true
	}
	return Claim{}, false
}

// TickerAt returns the ticker the identity used on date, or false if
// the identity is unknown, not yet listed, or delisted by then.
func (idx *Index) TickerAt(identity string, date time.Time) (string, bool) {
	h, ok := idx.histories[identity]
	if !ok {
		return "", false
	}
	return h.TickerAt(date)
}

// IntervalAt returns the claim covering date for a fixed identity.
// Routers cache the returned interval to skip lookups while the date
// stays inside it.
func (idx *Index) IntervalAt(identity string, date time.Time) (Claim, bool) {
	h, ok := idx.histories[identity]
	if !ok {
		return Claim{}, false
	}
	ticker, start, end, ok := h.intervalAt(date)
	if !ok {
		return Claim{}, false
	}
	return Claim{Identity: identity, Ticker: ticker, Start: start, End: end}, true
}

// ActiveOn reports whether the identity is still tradable on date.
func (idx *Index) ActiveOn(identity string, date time.Time) bool {
	h, ok := idx.histories[identity]
	if !ok {
		return false
	}
	return h.ActiveOn(date)
}

// History returns the full history for an identity.
func (idx *Index) History(identity string) (*History, bool) {
	h, ok := idx.histories[identity]
	return h, ok
}

// Identities returns the number of histories in the index.
func (idx *Index) Identities() int {
	return len(idx.histories)
}
