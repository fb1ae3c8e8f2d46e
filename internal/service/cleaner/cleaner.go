package cleaner

import (
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/kapu/game-character-etl/internal/domain"
	"github.com/kapu/game-character-etl/internal/util"
	etlerrors "github.com/kapu/game-character-etl/pkg/errors"
)

// Cleaner applies the per-game text repairs declared in the catalog and
// then the correction table.
type Cleaner struct {
	corrections *domain.CorrectionTable
	logger      *zap.Logger
}

func New(corrections *domain.CorrectionTable, logger *zap.Logger) *Cleaner {
	return &Cleaner{
		corrections: corrections,
		logger:      logger,
	}
}

// Clean returns a repaired copy of dataset. It never fails; records whose
// date does not fit the truncation rule are left as they are and reported
// as DateFormatError warnings.
func (c *Cleaner) Clean(game *domain.Game, dataset *domain.Dataset) (*domain.Dataset, []error) {
	out := dataset.Clone()
	logger := c.logger.With(zap.String("game", string(game.ID)), zap.String("stage", etlerrors.StageClean))
	warnings := make([]error, 0)

	for i := range out.Records {
		record := &out.Records[i]

		if game.Clean.AffiliationBeforeParen {
			record.Affiliation = util.BeforeParen(record.Affiliation)
		}

		if rule := game.Clean.DateTruncate; rule != "" {
			if err := truncateDate(game, record, rule); err != nil {
				logger.Warn("Release date left untouched",
					zap.String("character", record.Name),
					zap.String("value", record.ReleaseDate),
					zap.Error(err))
				warnings = append(warnings, err)
			}
		}

		record.ApplyDefaults()
	}

	if cohort := game.Clean.LaunchCohort; cohort != nil {
		filled := backfillLaunchCohort(out, cohort)
		if filled < 0 {
			logger.Warn("Launch cohort markers not found, dates unchanged",
				zap.String("first", cohort.First),
				zap.String("boundary", cohort.Boundary))
		} else {
			logger.Debug("Launch cohort back-filled", zap.Int("records", filled))
		}
	}

	applied := c.applyCorrections(game.ID, out, logger)

	logger.Info("Cleaning done",
		zap.Int("records", out.Len()),
		zap.Int("corrections", applied),
		zap.Int("warnings", len(warnings)))
	return out, warnings
}

// commaYear matches "Month Day, Year" up to the four year digits.
var commaYear = regexp.MustCompile(`^[^,]*, ?\d{4}`)

func truncateDate(game *domain.Game, record *domain.CharacterRecord, rule string) error {
	switch rule {
	case domain.DateTruncateCommaYear:
		prefix := commaYear.FindString(record.ReleaseDate)
		if prefix == "" {
			return etlerrors.NewDateFormatError(string(game.ID), record.Name, record.ReleaseDate, rule)
		}
		record.ReleaseDate = strings.TrimSpace(prefix)
	case domain.DateTruncateBeforeParen:
		record.ReleaseDate = util.BeforeParen(record.ReleaseDate)
	}
	return nil
}

// backfillLaunchCohort copies the first record's date onto every record
// strictly between first and boundary. It returns -1 when either marker is
// missing or out of order.
func backfillLaunchCohort(dataset *domain.Dataset, cohort *domain.LaunchCohort) int {
	first := dataset.IndexOf(cohort.First)
	boundary := dataset.IndexOf(cohort.Boundary)
	if first < 0 || boundary < 0 || boundary <= first {
		return -1
	}

	launch := dataset.Records[first].ReleaseDate
	filled := 0
	for i := first + 1; i < boundary; i++ {
		dataset.Records[i].ReleaseDate = launch
		filled++
	}
	return filled
}

func (c *Cleaner) applyCorrections(game domain.GameID, dataset *domain.Dataset, logger *zap.Logger) int {
	applied := 0
	for _, correction := range c.corrections.ForGame(game) {
		for i := range dataset.Records {
			before := dataset.Records[i]
			if correction.Apply(&dataset.Records[i]) {
				applied++
				logger.Debug("Correction applied",
					zap.String("character", before.Name),
					zap.String("field", correction.Field),
					zap.String("replacement", correction.Replacement))
			}
		}
	}
	return applied
}
