package schema

import (
	"go.uber.org/zap"

	"github.com/kapu/game-character-etl/internal/domain"
	"github.com/kapu/game-character-etl/internal/util"
	etlerrors "github.com/kapu/game-character-etl/pkg/errors"
)

// Builder reshapes a cleaned dataset into a star schema. Dimension keys are
// assigned in first-seen order and character ids by position after
// filtering.
type Builder struct {
	logger *zap.Logger
}

func NewBuilder(logger *zap.Logger) *Builder {
	return &Builder{logger: logger}
}

// Build never mutates dataset. Records that cannot be placed in the fact
// table are returned in StarSchema.Rejected; an error is returned only for
// an internal consistency failure.
func (b *Builder) Build(game *domain.Game, dataset *domain.Dataset) (*domain.StarSchema, error) {
	logger := b.logger.With(zap.String("game", string(game.ID)), zap.String("stage", etlerrors.StageBuild))

	star := &domain.StarSchema{
		Game:         game,
		Genders:      domain.NewDimension("gender"),
		Affiliations: domain.NewDimension(game.AffiliationColumn()),
		Facts:        make([]domain.FactRow, 0, dataset.Len()),
		Rejected:     make([]domain.RejectedRecord, 0),
	}

	accepted := make([]domain.CharacterRecord, 0, dataset.Len())
	dates := make([]string, 0, dataset.Len())
	seen := make(map[string]struct{}, dataset.Len())
	unreleased := 0

	for _, record := range dataset.Records {
		if game.UnreleasedMarker != "" && record.ReleaseDate == game.UnreleasedMarker {
			unreleased++
			continue
		}

		if _, dup := seen[record.Name]; dup {
			b.reject(star, logger, record, etlerrors.NewDuplicateNameError(record.Name))
			continue
		}

		date, err := util.CanonicalDate(record.ReleaseDate, game.DateLayouts)
		if err != nil {
			parseErr := etlerrors.NewDateParseError(record.Name, record.ReleaseDate, game.DateLayouts)
			parseErr.Cause = err
			b.reject(star, logger, record, parseErr)
			continue
		}

		seen[record.Name] = struct{}{}
		accepted = append(accepted, record)
		dates = append(dates, date)
	}

	for i, record := range accepted {
		star.Facts = append(star.Facts, domain.FactRow{
			CharacterID:   i + 1,
			Name:          record.Name,
			GenderID:      star.Genders.Key(record.Gender),
			AffiliationID: star.Affiliations.Key(record.Affiliation),
			ReleaseDate:   dates[i],
		})
	}

	if err := Verify(star); err != nil {
		return nil, err
	}

	logger.Info("Star schema built",
		zap.Int("facts", len(star.Facts)),
		zap.Int("genders", star.Genders.Len()),
		zap.Int(game.AffiliationTable(), star.Affiliations.Len()),
		zap.Int("unreleased", unreleased),
		zap.Int("rejected", len(star.Rejected)))
	return star, nil
}

func (b *Builder) reject(star *domain.StarSchema, logger *zap.Logger, record domain.CharacterRecord, err error) {
	logger.Warn("Record rejected",
		zap.String("character", record.Name),
		zap.String("code", etlerrors.CodeOf(err)),
		zap.Error(err))
	star.Rejected = append(star.Rejected, domain.RejectedRecord{Record: record, Err: err})
}

// Verify checks referential integrity and key density of star.
func Verify(star *domain.StarSchema) error {
	for _, dim := range []*domain.Dimension{star.Genders, star.Affiliations} {
		for i, row := range dim.Rows {
			if row.ID != i+1 {
				return etlerrors.NewUnresolvedForeignKeyError(dim.Name, row.Value)
			}
		}
	}
	for i, fact := range star.Facts {
		if fact.CharacterID != i+1 {
			return etlerrors.NewETLError("character ids are not sequential", etlerrors.CodeUnresolvedKey, etlerrors.StageBuild,
				map[string]any{"character": fact.Name, "character_id": fact.CharacterID})
		}
		if _, ok := star.Genders.Value(fact.GenderID); !ok {
			return etlerrors.NewUnresolvedForeignKeyError(star.Genders.Name, fact.Name)
		}
		if _, ok := star.Affiliations.Value(fact.AffiliationID); !ok {
			return etlerrors.NewUnresolvedForeignKeyError(star.Affiliations.Name, fact.Name)
		}
	}
	return nil
}
