package extractor

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/kapu/game-character-etl/internal/domain"
	"github.com/kapu/game-character-etl/internal/util"
)

const (
	hsrTrailblazer = "Trailblazer"
	hsrMinCells    = 3
)

// HonkaiStarRail reads the roster (name, gender) from an article table and
// completes each entry from the character's wiki page.
type HonkaiStarRail struct {
	base
}

func NewHonkaiStarRail(game *domain.Game, deps Deps) Extractor {
	return &HonkaiStarRail{base: newBase(game, deps)}
}

func (e *HonkaiStarRail) Extract(ctx context.Context) (*domain.Dataset, error) {
	roster, err := e.roster(ctx)
	if err != nil {
		return nil, err
	}
	e.logger.Info("Starting collection of character data", zap.Int("characters", len(roster)))

	label := func(_ int, r domain.CharacterRecord) string { return r.Name }
	return collect(ctx, &e.base, roster, label, e.complete)
}

func (e *HonkaiStarRail) roster(ctx context.Context) ([]domain.CharacterRecord, error) {
	url := e.game.RosterURL
	e.logger.Info("Extracting character info table", zap.String("url", url))

	doc, err := e.fetchDocument(ctx, url)
	if err != nil {
		return nil, err
	}

	rows, ok := tableRows(doc, 0)
	if !ok {
		return nil, e.missing("", "roster table", url)
	}

	roster := make([]domain.CharacterRecord, 0, len(rows))
	for i, row := range rows {
		cells := cellTexts(row)
		if len(cells) < hsrMinCells || cells[0] == "" {
			e.logger.Warn("Skipping roster row",
				zap.Error(e.missing(rowLabel(i, row), "roster cells", url)))
			continue
		}
		name := cells[0]
		gender := util.LastWord(cells[2])
		if name == hsrTrailblazer {
			gender = domain.SentinelGender
		}
		roster = append(roster, domain.CharacterRecord{Name: name, Gender: gender})
	}
	return roster, nil
}

func (e *HonkaiStarRail) complete(ctx context.Context, partial domain.CharacterRecord) (domain.CharacterRecord, error) {
	url := e.game.PageURL + hsrTitle(partial.Name)
	doc, err := e.fetchDocument(ctx, url)
	if err != nil {
		return domain.CharacterRecord{}, err
	}

	faction, _ := infobox(doc, "faction")
	releaseDate, _ := infobox(doc, "release_date")

	return domain.NewCharacterRecord(partial.Name, partial.Gender, faction, releaseDate), nil
}

// hsrTitle builds the wiki title; the wiki spells the word "and" as "&".
func hsrTitle(name string) string {
	words := strings.Split(util.WikiTitle(name), "_")
	for i, w := range words {
		if w == "and" {
			words[i] = "%26"
		}
	}
	return strings.Join(words, "_")
}
