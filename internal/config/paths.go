package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Paths contains all the application paths. This is the single source
// of truth for file layout: mapping files live under
// data/maps/<market>/<identity>.csv and feed files under
// data/feeds/<market>/<kind>/<ticker>.csv.
type Paths struct {
	ExecutableDir string
	DataDir       string
	MapsDir       string
	FeedsDir      string
	LogsDir       string
	ConfigFile    string
}

// GetPaths returns the application paths relative to the executable
// location, never the current working directory.
func GetPaths() (*Paths, error) {
	exe, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("failed to get executable path: %w", err)
	}
	exe, err = filepath.EvalSymlinks(exe)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve executable symlinks: %w", err)
	}
	exeDir := filepath.Dir(exe)

	dataDir := filepath.Join(exeDir, "data")
	return &Paths{
		ExecutableDir: exeDir,
		DataDir:       dataDir,
		MapsDir:       filepath.Join(dataDir, "maps"),
		FeedsDir:      filepath.Join(dataDir, "feeds"),
		LogsDir:       filepath.Join(exeDir, "logs"),
		ConfigFile:    filepath.Join(exeDir, "config.yaml"),
	}, nil
}

// EnsureDirectories creates all required directories if they don't exist.
func (p *Paths) EnsureDirectories() error {
	directories := []string{
		p.DataDir,
		p.MapsDir,
		p.FeedsDir,
		p.LogsDir,
	}
	for _, dir := range directories {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

// MarketMapsDir returns the directory holding one market's mapping files.
func (p *Paths) MarketMapsDir(market string) string {
	return filepath.Join(p.MapsDir, strings.ToLower(market))
}

// MarketFeedsDir returns the directory holding one market's feed files.
func (p *Paths) MarketFeedsDir(market string) string {
	return filepath.Join(p.FeedsDir, strings.ToLower(market))
}

// MappingFilePath returns the mapping file for one identity.
func (p *Paths) MappingFilePath(market, identity string) string {
	return filepath.Join(p.MarketMapsDir(market), fmt.Sprintf("%s.csv", identity))
}

// GetLogPath returns the path for a log file.
func (p *Paths) GetLogPath(filename string) string {
	return filepath.Join(p.LogsDir, filename)
}

// FileExists checks if a file exists.
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return !os.IsNotExist(err)
}

// DailyFeedPath returns the end-of-day feed file for a ticker, e.g.
// data/feeds/usa/daily/spy.csv.
func (p *Paths) DailyFeedPath(market, ticker string) string {
	filename := fmt.Sprintf("%s.csv", strings.ToLower(ticker))
	return filepath.Join(p.MarketFeedsDir(market), "daily", filename)
}

// Timestamp formats a time the way log file names embed it.
func Timestamp(t time.Time) string {
	return t.Format("20060102_150405")
}
