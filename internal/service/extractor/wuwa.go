package extractor

import (
	"context"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/kapu/game-character-etl/internal/domain"
	"github.com/kapu/game-character-etl/internal/util"
)

// The player avatar can be either gender.
const wuwaRover = "Rover"

type WutheringWaves struct {
	base
}

func NewWutheringWaves(game *domain.Game, deps Deps) Extractor {
	return &WutheringWaves{base: newBase(game, deps)}
}

func (e *WutheringWaves) Extract(ctx context.Context) (*domain.Dataset, error) {
	names, err := ReadNameList(filepath.Join(e.inputDir, e.game.RosterFile))
	if err != nil {
		return nil, err
	}
	e.logger.Info("Starting collection of character data", zap.Int("characters", len(names)))
	return collect(ctx, &e.base, names, nameLabel, e.character)
}

func (e *WutheringWaves) character(ctx context.Context, name string) (domain.CharacterRecord, error) {
	url := e.game.PageURL + util.WikiTitle(name)
	doc, err := e.fetchDocument(ctx, url)
	if err != nil {
		return domain.CharacterRecord{}, err
	}

	heading := doc.Find("h1").First()
	if heading.Length() == 0 {
		return domain.CharacterRecord{}, e.missing(name, "h1", url)
	}

	gender, _ := infobox(doc, "gender")
	if name == wuwaRover {
		gender = domain.SentinelGender
	}

	region, ok := infobox(doc, "nation")
	if !ok {
		region, _ = infobox(doc, "birthplace")
	}

	releaseDate, _ := infoboxFirstLine(doc, "releaseDate")

	return domain.NewCharacterRecord(util.CleanText(heading.Text()), gender, region, releaseDate), nil
}
