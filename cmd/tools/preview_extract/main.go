package main

import (
	"context"
	"encoding/json"
	"flag"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"go.uber.org/zap"

	"github.com/kapu/game-character-etl/internal/constants"
	"github.com/kapu/game-character-etl/internal/domain"
	"github.com/kapu/game-character-etl/internal/service/extractor"
	"github.com/kapu/game-character-etl/internal/service/fetcher"
)

// preview_extract scrapes one game and prints the raw records without
// touching the work dir or any database.
func main() {
	game := flag.String("game", string(domain.GenshinImpact), "game id")
	inputDir := flag.String("input", "data_input", "directory holding the character lists")
	output := flag.String("json", "", "also write the records to this JSON file")
	fast := flag.Bool("fast", false, "skip the courtesy delay between requests")
	flag.Parse()

	logger, _ := zap.NewDevelopment()
	defer logger.Sync()

	catalog, err := domain.LoadCatalog("")
	if err != nil {
		logger.Fatal("failed to load catalog", zap.Error(err))
	}
	g, ok := catalog.Get(domain.GameID(*game))
	if !ok {
		logger.Fatal("unknown game", zap.String("game", *game), zap.Any("known", catalog.IDs()))
	}

	var pages fetcher.Fetcher = fetcher.NewHTTPFetcher(fetcher.HTTPConfig{
		Timeout:    constants.ScrapeConfig.Timeout,
		UserAgents: constants.UserAgents,
	}, logger)
	if !*fast {
		pages = fetcher.NewThrottledFetcher(pages, constants.ScrapeConfig.DelayMin, constants.ScrapeConfig.DelayMax, logger)
	}

	ex, err := extractor.New(g, extractor.Deps{Fetcher: pages, InputDir: *inputDir, Logger: logger})
	if err != nil {
		logger.Fatal("failed to create extractor", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	start := time.Now()
	dataset, err := ex.Extract(ctx)
	if err != nil {
		logger.Fatal("extraction failed", zap.Error(err))
	}

	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"#", "Name", "Gender", g.AffiliationColumn(), "Release date"})
	for i, r := range dataset.Records {
		t.AppendRow(table.Row{i, r.Name, r.Gender, r.Affiliation, r.ReleaseDate})
	}
	t.Render()

	if *output != "" {
		data, err := json.MarshalIndent(dataset.Records, "", "  ")
		if err != nil {
			logger.Fatal("failed to encode records", zap.Error(err))
		}
		if err := os.WriteFile(*output, data, 0o644); err != nil {
			logger.Fatal("failed to write records", zap.Error(err))
		}
	}

	logger.Info("Preview completed",
		zap.String("game", *game),
		zap.Int("count", dataset.Len()),
		zap.Duration("elapsed", time.Since(start)))
}
