package extractor

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/kapu/game-character-etl/internal/domain"
	"github.com/kapu/game-character-etl/internal/util"
)

const (
	owRosterBody = 1
	owMinCells   = 3
	owNameCell   = 2
)

// Heroes whose roster spelling never matches the gender list.
var owGenderOverrides = map[string]string{
	"Torbjörn": "Male",
}

const owAquaMarker = "Aqua"

// Overwatch reads heroes from the wiki roster and takes genders from a local
// "Name - Gender" list.
type Overwatch struct {
	base
}

func NewOverwatch(game *domain.Game, deps Deps) Extractor {
	return &Overwatch{base: newBase(game, deps)}
}

func (e *Overwatch) Extract(ctx context.Context) (*domain.Dataset, error) {
	genders, err := ReadGenderList(filepath.Join(e.inputDir, e.game.RosterFile))
	if err != nil {
		return nil, err
	}

	url := e.game.RosterURL
	e.logger.Info("Extracting character info table", zap.String("url", url))

	doc, err := e.fetchDocument(ctx, url)
	if err != nil {
		return nil, err
	}

	rows, ok := tableRows(doc, owRosterBody)
	if !ok {
		return nil, e.missing("", "roster table", url)
	}

	return collect(ctx, &e.base, rows, rowLabel, func(_ context.Context, row *goquery.Selection) (domain.CharacterRecord, error) {
		return e.row(row, genders, url)
	})
}

func (e *Overwatch) row(row *goquery.Selection, genders map[string]string, url string) (domain.CharacterRecord, error) {
	cells := cellTexts(row)
	if len(cells) < owMinCells {
		return domain.CharacterRecord{}, e.missing("", "roster cells", url)
	}

	name := cells[owNameCell]
	region := cellAt(cells, owRegionIndex(len(cells)))
	releaseDate := cellAt(cells, -1)

	return domain.NewCharacterRecord(name, e.gender(name, genders), region, releaseDate), nil
}

func (e *Overwatch) gender(name string, genders map[string]string) string {
	if strings.Contains(name, owAquaMarker) {
		return "Male"
	}
	if gender, ok := genders[name]; ok {
		return gender
	}
	if gender, ok := owGenderOverrides[name]; ok {
		return gender
	}
	key := util.FoldKey(name)
	for listed, gender := range genders {
		if util.FoldKey(listed) == key {
			return gender
		}
	}
	e.logger.Warn("Hero missing from gender list", zap.String("character", name))
	return domain.SentinelGender
}

// owRegionIndex locates the region cell; the roster rows are ragged.
func owRegionIndex(cells int) int {
	switch cells {
	case 5, 6:
		return -1
	case 7:
		return -2
	default:
		return -3
	}
}
