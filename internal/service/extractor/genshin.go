package extractor

import (
	"context"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/kapu/game-character-etl/internal/domain"
	"github.com/kapu/game-character-etl/internal/util"
)

const (
	genshinTraveler   = "Traveler"
	genshinNoRegion   = "None"
	genshinMinCells   = 5
	genshinRosterBody = 0
)

type GenshinImpact struct {
	base
}

func NewGenshinImpact(game *domain.Game, deps Deps) Extractor {
	return &GenshinImpact{base: newBase(game, deps)}
}

func (e *GenshinImpact) Extract(ctx context.Context) (*domain.Dataset, error) {
	url := e.game.RosterURL
	e.logger.Info("Extracting character info table", zap.String("url", url))

	doc, err := e.fetchDocument(ctx, url)
	if err != nil {
		return nil, err
	}

	rows, ok := tableRows(doc, genshinRosterBody)
	if !ok {
		return nil, e.missing("", "roster table", url)
	}

	return collect(ctx, &e.base, rows, rowLabel, func(_ context.Context, row *goquery.Selection) (domain.CharacterRecord, error) {
		return e.row(row, url)
	})
}

func (e *GenshinImpact) row(row *goquery.Selection, url string) (domain.CharacterRecord, error) {
	cells := cellTexts(row)
	if len(cells) < genshinMinCells {
		return domain.CharacterRecord{}, e.missing(cellAt(cells, 1), "roster cells", url)
	}

	name := cells[1]

	gender := util.LastWord(cellAt(cells, -3))
	if name == genshinTraveler {
		gender = domain.SentinelGender
	}

	region := cellAt(cells, -4)
	if region == genshinNoRegion {
		region = domain.SentinelUnknown
	}

	return domain.NewCharacterRecord(name, gender, region, cellAt(cells, -2)), nil
}
