package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kapu/game-character-etl/internal/domain"
	"github.com/kapu/game-character-etl/internal/service/cleaner"
	"github.com/kapu/game-character-etl/internal/service/export"
	"github.com/kapu/game-character-etl/internal/service/extractor"
	"github.com/kapu/game-character-etl/internal/service/fetcher"
	"github.com/kapu/game-character-etl/internal/service/loader"
	"github.com/kapu/game-character-etl/internal/service/schema"
	etlerrors "github.com/kapu/game-character-etl/pkg/errors"
)

type PipelineDeps struct {
	Catalog    *domain.Catalog
	Fetcher    fetcher.Fetcher
	InputDir   string
	Store      *export.Store
	Cleaner    *cleaner.Cleaner
	Builder    *schema.Builder
	Loader     *loader.Loader
	Retries    int
	RetryDelay time.Duration
	Logger     *zap.Logger
}

// Pipeline runs extract, clean, build, export and load for each game in
// turn.
type Pipeline struct {
	deps   PipelineDeps
	logger *zap.Logger
}

// RunOptions selects games and stages. An empty Games list means every
// catalog game. Skipped stages read their input back from the work dir.
type RunOptions struct {
	Games         []domain.GameID
	SkipExtract   bool
	SkipTransform bool
	SkipLoad      bool
}

type GameReport struct {
	Game      domain.GameID
	Extracted int
	Cleaned   int
	Rejected  int
	Warnings  int
	Load      *loader.Summary
	Attempts  int
	Elapsed   time.Duration
	Err       error
}

type Report struct {
	RunID   string
	Started time.Time
	Elapsed time.Duration
	Games   []GameReport
}

// Failed returns the reports of games that did not complete.
func (r *Report) Failed() []GameReport {
	failed := make([]GameReport, 0)
	for _, g := range r.Games {
		if g.Err != nil {
			failed = append(failed, g)
		}
	}
	return failed
}

func NewPipeline(deps PipelineDeps) (*Pipeline, error) {
	if deps.Catalog == nil || deps.Store == nil || deps.Cleaner == nil || deps.Builder == nil {
		return nil, fmt.Errorf("pipeline: catalog, store, cleaner and builder are required")
	}
	if deps.Retries < 0 {
		deps.Retries = 0
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	return &Pipeline{deps: deps, logger: deps.Logger}, nil
}

func (p *Pipeline) games(ids []domain.GameID) ([]*domain.Game, error) {
	if len(ids) == 0 {
		ids = p.deps.Catalog.IDs()
	}
	games := make([]*domain.Game, 0, len(ids))
	for _, id := range ids {
		game, ok := p.deps.Catalog.Get(id)
		if !ok {
			return nil, etlerrors.NewValidationError(fmt.Sprintf("unknown game %q", id), "game", id)
		}
		games = append(games, game)
	}
	return games, nil
}

// Run processes the selected games sequentially. A failing game does not
// stop the others; every failure is joined into the returned error.
func (p *Pipeline) Run(ctx context.Context, opts RunOptions) (*Report, error) {
	games, err := p.games(opts.Games)
	if err != nil {
		return nil, err
	}
	if !opts.SkipLoad && p.deps.Loader == nil {
		return nil, fmt.Errorf("pipeline: loader is required unless load is skipped")
	}
	if !opts.SkipExtract && p.deps.Fetcher == nil {
		return nil, fmt.Errorf("pipeline: fetcher is required unless extract is skipped")
	}

	report := &Report{RunID: uuid.NewString(), Started: time.Now()}
	logger := p.logger.With(zap.String("run_id", report.RunID))
	logger.Info("Pipeline started",
		zap.Int("games", len(games)),
		zap.Bool("skip_extract", opts.SkipExtract),
		zap.Bool("skip_transform", opts.SkipTransform),
		zap.Bool("skip_load", opts.SkipLoad))

	var errs []error
	for _, game := range games {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		gameReport := p.runGame(ctx, logger.With(zap.String("game", string(game.ID))), game, opts)
		if gameReport.Err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", game.ID, gameReport.Err))
		}
		report.Games = append(report.Games, gameReport)
	}

	report.Elapsed = time.Since(report.Started)
	logger.Info("Pipeline finished",
		zap.Int("failed", len(errs)),
		zap.Duration("elapsed", report.Elapsed))
	return report, errors.Join(errs...)
}

func (p *Pipeline) runGame(ctx context.Context, logger *zap.Logger, game *domain.Game, opts RunOptions) GameReport {
	start := time.Now()
	report := GameReport{Game: game.ID}
	fail := func(err error) GameReport {
		report.Err = err
		report.Elapsed = time.Since(start)
		logger.Error("Game failed", zap.Int("attempts", report.Attempts), zap.Error(err))
		return report
	}

	var raw *domain.Dataset
	if !opts.SkipExtract {
		err := p.retry(ctx, logger, etlerrors.StageExtract, &report.Attempts, func() error {
			dataset, err := p.extract(ctx, game)
			if err != nil {
				if etlerrors.IsBlocked(err) {
					return backoff.Permanent(err)
				}
				return err
			}
			raw = dataset
			return nil
		})
		if err != nil {
			return fail(err)
		}
		if _, err := p.deps.Store.WriteRaw(game, raw); err != nil {
			return fail(err)
		}
		report.Extracted = raw.Len()
	}

	var star *domain.StarSchema
	if !opts.SkipTransform {
		if raw == nil {
			dataset, err := p.deps.Store.ReadRaw(game)
			if err != nil {
				return fail(err)
			}
			raw = dataset
			report.Extracted = raw.Len()
		}

		cleaned, warnings := p.deps.Cleaner.Clean(game, raw)
		report.Cleaned = cleaned.Len()
		report.Warnings = len(warnings)

		built, err := p.deps.Builder.Build(game, cleaned)
		if err != nil {
			return fail(err)
		}
		star = built
		report.Rejected = len(star.Rejected)

		if _, err := p.deps.Store.WriteStar(star); err != nil {
			return fail(err)
		}
	}

	if !opts.SkipLoad {
		if star == nil {
			loaded, err := p.deps.Store.ReadStar(game)
			if err != nil {
				return fail(err)
			}
			star = loaded
		}
		if err := schema.Verify(star); err != nil {
			return fail(err)
		}
		attempts := 0
		err := p.retry(ctx, logger, etlerrors.StageLoad, &attempts, func() error {
			summary, err := p.deps.Loader.Load(ctx, star)
			if err != nil {
				return err
			}
			report.Load = summary
			return nil
		})
		if err != nil {
			return fail(err)
		}
		if err := p.deps.Store.RemoveStar(game); err != nil {
			logger.Warn("Failed to remove loaded star files", zap.Error(err))
		}
	}

	report.Elapsed = time.Since(start)
	logger.Info("Game finished",
		zap.Int("extracted", report.Extracted),
		zap.Int("rejected", report.Rejected),
		zap.Int("warnings", report.Warnings),
		zap.Duration("elapsed", report.Elapsed))
	return report
}

func (p *Pipeline) extract(ctx context.Context, game *domain.Game) (*domain.Dataset, error) {
	ex, err := extractor.New(game, extractor.Deps{
		Fetcher:  p.deps.Fetcher,
		InputDir: p.deps.InputDir,
		Logger:   p.logger,
	})
	if err != nil {
		return nil, backoff.Permanent(err)
	}
	return ex.Extract(ctx)
}

// retry runs op with a constant delay between attempts. Permanent errors
// and context cancellation end it early.
func (p *Pipeline) retry(ctx context.Context, logger *zap.Logger, stage string, attempts *int, op func() error) error {
	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(p.deps.RetryDelay), uint64(p.deps.Retries)),
		ctx)

	return backoff.RetryNotify(func() error {
		*attempts++
		return op()
	}, policy, func(err error, next time.Duration) {
		logger.Warn("Stage failed, retrying",
			zap.String("stage", stage),
			zap.Int("attempt", *attempts),
			zap.Duration("next", next),
			zap.Error(err))
	})
}
