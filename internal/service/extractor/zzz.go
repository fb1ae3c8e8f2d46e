package extractor

import (
	"context"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/kapu/game-character-etl/internal/domain"
	"github.com/kapu/game-character-etl/internal/util"
)

type ZenlessZoneZero struct {
	base
}

func NewZenlessZoneZero(game *domain.Game, deps Deps) Extractor {
	return &ZenlessZoneZero{base: newBase(game, deps)}
}

func (e *ZenlessZoneZero) Extract(ctx context.Context) (*domain.Dataset, error) {
	names, err := ReadNameList(filepath.Join(e.inputDir, e.game.RosterFile))
	if err != nil {
		return nil, err
	}
	e.logger.Info("Starting collection of character data", zap.Int("characters", len(names)))
	return collect(ctx, &e.base, names, nameLabel, e.character)
}

func (e *ZenlessZoneZero) character(ctx context.Context, name string) (domain.CharacterRecord, error) {
	url := e.game.PageURL + util.WikiTitle(name)
	doc, err := e.fetchDocument(ctx, url)
	if err != nil {
		return domain.CharacterRecord{}, err
	}

	title := doc.Find("span.mw-page-title-main").First()
	if title.Length() == 0 {
		return domain.CharacterRecord{}, e.missing(name, "span.mw-page-title-main", url)
	}

	gender, _ := infobox(doc, "gender")

	// the wiki renders the faction label twice in a row
	faction, _ := infobox(doc, "faction")
	faction = util.CollapseRepeat(faction)

	releaseDate, _ := infoboxFirstLine(doc, "releaseDate")

	return domain.NewCharacterRecord(util.CleanText(title.Text()), gender, faction, releaseDate), nil
}
