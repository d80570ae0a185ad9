package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"tickmap/internal/config"
	"tickmap/internal/feed"
	"tickmap/internal/infrastructure"
	"tickmap/internal/mapping"
	"tickmap/pkg/contracts/domain"
)

func main() {
	market := flag.String("market", "usa", "market to read from")
	ticker := flag.String("ticker", "", "ticker requested by the subscription")
	kind := flag.String("kind", feed.KindDaily, "data kind to stream")
	mapped := flag.Bool("mapped", true, "apply corporate-action mapping")
	start := flag.String("start", "", "first date, yyyyMMdd")
	end := flag.String("end", "", "last date, yyyyMMdd")
	flag.Parse()

	if *ticker == "" || *start == "" || *end == "" {
		fmt.Fprintln(os.Stderr, "usage: feedcat -ticker SPY -start 20190101 -end 20191231 [-market usa] [-kind daily] [-mapped=false]")
		os.Exit(1)
	}

	startDate, err := time.Parse(mapping.DateFormat, *start)
	if err != nil {
		slog.Error("Invalid start date", "error", err)
		os.Exit(1)
	}
	endDate, err := time.Parse(mapping.DateFormat, *end)
	if err != nil {
		slog.Error("Invalid end date", "error", err)
		os.Exit(1)
	}

	paths, err := config.GetPaths()
	if err != nil {
		slog.Error("Failed to initialize paths", "error", err)
		os.Exit(1)
	}

	logger, err := infrastructure.InitializeLogger(config.LoggingConfig{
		Level:  "warn",
		Format: "text",
		Output: "console",
	})
	if err != nil {
		logger = slog.Default()
	}

	var resolver *mapping.Resolver
	if *mapped {
		idx, _, err := mapping.LoadMarket(paths.MarketMapsDir(*market), logger)
		if err != nil {
			logger.Error("Failed to build mapping index", slog.String("error", err.Error()))
			os.Exit(1)
		}
		resolver = mapping.NewResolver(idx)
	}

	sub := feed.Subscription{
		Market: *market,
		Ticker: *ticker,
		Kind:   *kind,
		Mapped: *mapped,
		Start:  startDate,
		End:    endDate,
	}

	reader, err := feed.NewReader(sub, feed.DefaultRegistry(), resolver, paths.MarketFeedsDir(*market), logger)
	if err != nil {
		logger.Error("Failed to build reader", slog.String("error", err.Error()))
		os.Exit(1)
	}

	err = reader.Read(context.Background(), func(bar domain.Bar) error {
		fmt.Printf("%s %-8s o=%.2f h=%.2f l=%.2f c=%.2f v=%d\n",
			bar.Date.Format(mapping.DateFormat), bar.SourceTicker,
			bar.Open, bar.High, bar.Low, bar.Close, bar.Volume)
		return nil
	})
	if err != nil {
		logger.Error("Stream failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
