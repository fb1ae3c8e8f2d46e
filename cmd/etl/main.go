package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kapu/game-character-etl/internal/app"
	"github.com/kapu/game-character-etl/internal/config"
	"github.com/kapu/game-character-etl/internal/domain"
	"github.com/kapu/game-character-etl/internal/util"
)

var flags struct {
	games    string
	schedule string
}

func main() {
	root := &cobra.Command{
		Use:           "etl",
		Short:         "Scrape game character data and load it as star schemas",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&flags.games, "games", "", "comma separated game ids (default: all)")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Extract, transform and load",
		RunE: func(cmd *cobra.Command, args []string) error {
			return execute(app.RunOptions{}, flags.schedule)
		},
	}
	runCmd.Flags().StringVar(&flags.schedule, "schedule", "", "cron expression; keeps running and repeats the pipeline")

	root.AddCommand(runCmd,
		&cobra.Command{
			Use:   "extract",
			Short: "Scrape sources into raw CSV files",
			RunE: func(cmd *cobra.Command, args []string) error {
				return execute(app.RunOptions{SkipTransform: true, SkipLoad: true}, "")
			},
		},
		&cobra.Command{
			Use:   "transform",
			Short: "Clean raw CSV files and build star schema files",
			RunE: func(cmd *cobra.Command, args []string) error {
				return execute(app.RunOptions{SkipExtract: true, SkipLoad: true}, "")
			},
		},
		&cobra.Command{
			Use:   "load",
			Short: "Load star schema files into the databases",
			RunE: func(cmd *cobra.Command, args []string) error {
				return execute(app.RunOptions{SkipExtract: true, SkipTransform: true}, "")
			},
		},
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func execute(opts app.RunOptions, schedule string) error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Initialize logger
	logger, err := util.NewLogger(cfg.Logging.Level, cfg.Logging.File)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer logger.Sync()

	for _, id := range config.ParseCommaSeparated(flags.games) {
		opts.Games = append(opts.Games, domain.GameID(id))
	}
	if schedule == "" {
		schedule = cfg.Pipeline.Schedule
	}

	buildCtx, buildCancel := context.WithTimeout(context.Background(), 30*time.Second)
	container, err := app.Build(buildCtx, cfg, logger)
	buildCancel()
	if err != nil {
		logger.Error("Failed to assemble application services", zap.Error(err))
		return err
	}
	defer container.Close()

	pipeline, err := container.NewPipeline()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Setup signal handling
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case sig := <-sigCh:
			logger.Info("Received shutdown signal", zap.String("signal", sig.String()))
			cancel()
		case <-ctx.Done():
		}
	}()

	if schedule != "" {
		return pipeline.Schedule(ctx, schedule, opts)
	}

	report, err := pipeline.Run(ctx, opts)
	if report != nil {
		for _, g := range report.Games {
			fields := []zap.Field{
				zap.String("game", string(g.Game)),
				zap.Int("extracted", g.Extracted),
				zap.Int("rejected", g.Rejected),
				zap.Duration("elapsed", g.Elapsed),
			}
			if g.Load != nil {
				fields = append(fields, zap.Int("loaded", g.Load.Characters))
			}
			if g.Err != nil {
				fields = append(fields, zap.Error(g.Err))
			}
			logger.Info("Game summary", fields...)
		}
	}
	return err
}
