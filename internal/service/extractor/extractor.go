package extractor

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"strconv"

	"github.com/PuerkitoBio/goquery"
	"github.com/sourcegraph/conc/panics"
	"go.uber.org/zap"

	"github.com/kapu/game-character-etl/internal/domain"
	"github.com/kapu/game-character-etl/internal/service/fetcher"
	etlerrors "github.com/kapu/game-character-etl/pkg/errors"
)

// Extractor produces the raw dataset of one game. A blocked fetch aborts
// the run and no dataset is returned.
type Extractor interface {
	Game() *domain.Game
	Extract(ctx context.Context) (*domain.Dataset, error)
}

type Deps struct {
	Fetcher  fetcher.Fetcher
	InputDir string
	Logger   *zap.Logger
}

type Factory func(game *domain.Game, deps Deps) Extractor

var factories = map[domain.GameID]Factory{
	domain.WutheringWaves:  NewWutheringWaves,
	domain.GenshinImpact:   NewGenshinImpact,
	domain.ZenlessZoneZero: NewZenlessZoneZero,
	domain.HonkaiStarRail:  NewHonkaiStarRail,
	domain.Overwatch2:      NewOverwatch,
}

// New returns the extractor registered for game.
func New(game *domain.Game, deps Deps) (Extractor, error) {
	factory, ok := factories[game.ID]
	if !ok {
		return nil, fmt.Errorf("no extractor registered for game %s", game.ID)
	}
	if deps.Fetcher == nil {
		return nil, fmt.Errorf("extractor for %s: fetcher is required", game.ID)
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	return factory(game, deps), nil
}

// Supported lists the games with a registered extractor.
func Supported() []domain.GameID {
	ids := make([]domain.GameID, 0, len(factories))
	for id := range factories {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

type base struct {
	game     *domain.Game
	fetcher  fetcher.Fetcher
	inputDir string
	logger   *zap.Logger
}

func newBase(game *domain.Game, deps Deps) base {
	return base{
		game:     game,
		fetcher:  deps.Fetcher,
		inputDir: deps.InputDir,
		logger:   deps.Logger.With(zap.String("game", string(game.ID))),
	}
}

func (b *base) Game() *domain.Game {
	return b.game
}

func (b *base) fetchDocument(ctx context.Context, url string) (*goquery.Document, error) {
	result := b.fetcher.Fetch(ctx, url)
	if err := result.Err(); err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(result.Body))
	if err != nil {
		return nil, etlerrors.NewFetchFailedError(url, result.StatusCode, "HTML parse failed", err)
	}
	return doc, nil
}

func (b *base) missing(character, field, url string) error {
	return etlerrors.NewFieldMissingError(string(b.game.ID), character, field, url)
}

// collect parses items in order into a dataset. Failed fetches and missing
// structure skip one item; a blocked fetch discards everything and returns
// the error.
func collect[T any](ctx context.Context, b *base, items []T, label func(int, T) string,
	parse func(context.Context, T) (domain.CharacterRecord, error)) (*domain.Dataset, error) {
	dataset := domain.NewDataset(b.game.ID)
	skipped := 0

	for i, item := range items {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		name := label(i, item)
		record, err := guard(b, name, func() (domain.CharacterRecord, error) {
			return parse(ctx, item)
		})
		if err != nil {
			if etlerrors.IsBlocked(err) {
				b.logger.Error("Source detected the scraper, aborting run",
					zap.String("character", name),
					zap.String("stage", etlerrors.StageExtract),
					zap.Int("collected", dataset.Len()),
					zap.Error(err))
				return nil, err
			}
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			skipped++
			b.logger.Warn("Skipping character",
				zap.String("character", name),
				zap.String("stage", etlerrors.StageExtract),
				zap.String("code", etlerrors.CodeOf(err)),
				zap.Error(err))
			continue
		}

		dataset.Add(record)
		b.logger.Info("Character info collected", zap.String("character", record.Name))
	}

	b.logger.Info("Extraction finished",
		zap.Int("records", dataset.Len()),
		zap.Int("skipped", skipped))
	return dataset, nil
}

// guard turns a panic raised while parsing one item into a FieldMissing error.
func guard(b *base, name string, fn func() (domain.CharacterRecord, error)) (domain.CharacterRecord, error) {
	var (
		record  domain.CharacterRecord
		err     error
		catcher panics.Catcher
	)
	catcher.Try(func() {
		record, err = fn()
	})
	if recovered := catcher.Recovered(); recovered != nil {
		missing := etlerrors.NewFieldMissingError(string(b.game.ID), name, "page structure", "")
		missing.Cause = recovered.AsError()
		return domain.CharacterRecord{}, missing
	}
	return record, err
}

func nameLabel(_ int, name string) string {
	return name
}

func rowLabel(i int, _ *goquery.Selection) string {
	return "row " + strconv.Itoa(i+1)
}
