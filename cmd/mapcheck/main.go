package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"tickmap/internal/config"
	"tickmap/internal/files"
	"tickmap/internal/infrastructure"
	"tickmap/internal/mapping"
)

func main() {
	market := flag.String("market", "usa", "market whose mapping files to check")
	dir := flag.String("dir", "", "mapping directory (defaults to data/maps/<market> relative to executable)")
	all := flag.Bool("all", false, "check every market under the maps directory")
	flag.Parse()

	paths, err := config.GetPaths()
	if err != nil {
		slog.Error("Failed to initialize paths", "error", err)
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Warn("Failed to load config, using defaults", "error", err)
		cfg = &config.Config{
			Logging: config.LoggingConfig{
				Level:    "info",
				Format:   "text",
				Output:   "console",
				FilePath: paths.GetLogPath("mapcheck.log"),
			},
		}
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		slog.Warn("Failed to initialize logger, using default", "error", err)
		logger = slog.Default()
	}

	type target struct {
		market string
		dir    string
	}
	var targets []target
	switch {
	case *all:
		markets, err := files.NewDiscovery(paths.MapsDir).FindMarkets(".")
		if err != nil {
			logger.Error("Failed to list markets", slog.String("error", err.Error()))
			os.Exit(1)
		}
		if len(markets) == 0 {
			fmt.Println("no markets found")
			return
		}
		for _, m := range markets {
			targets = append(targets, target{market: m, dir: paths.MarketMapsDir(m)})
		}
	case *dir != "":
		targets = append(targets, target{market: *market, dir: *dir})
	default:
		targets = append(targets, target{market: *market, dir: paths.MarketMapsDir(*market)})
	}

	exitCode := 0
	for _, tgt := range targets {
		market, mapsDir := tgt.market, tgt.dir
		logger.Info("Checking mapping files",
			slog.String("market", market),
			slog.String("dir", mapsDir))

		idx, report, err := mapping.LoadMarket(mapsDir, logger)
		if err != nil {
			logger.Error("Index build failed",
				slog.String("market", market),
				slog.String("error", err.Error()))
			if report != nil {
				printDropped(market, report)
			}
			exitCode = 1
			continue
		}

		printDropped(market, report)
		fmt.Printf("%s: index built, %d identities loaded, %d dropped\n",
			market, idx.Identities(), len(report.Dropped))

		if len(report.Dropped) > 0 && exitCode == 0 {
			exitCode = 2
		}
	}
	os.Exit(exitCode)
}

func printDropped(market string, report *mapping.BuildReport) {
	for _, d := range report.Dropped {
		fmt.Printf("%s: dropped %s: %v\n", market, d.Identity, d.Err)
	}
}
