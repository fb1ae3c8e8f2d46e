package export

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	"go.uber.org/zap"

	"github.com/kapu/game-character-etl/internal/domain"
)

// Store writes and reads the CSV artifacts exchanged between pipeline
// stages. Every file starts with an unnamed 0-based row-index column that
// readers skip.
type Store struct {
	dir    string
	logger *zap.Logger
}

type StarPaths struct {
	Gender      string
	Affiliation string
	Facts       string
}

func NewStore(dir string, logger *zap.Logger) *Store {
	return &Store{dir: dir, logger: logger}
}

func (s *Store) Dir() string {
	return s.dir
}

func (s *Store) RawPath(game *domain.Game) string {
	return filepath.Join(s.dir, game.RawFileName())
}

func (s *Store) StarPaths(game *domain.Game) StarPaths {
	return StarPaths{
		Gender:      filepath.Join(s.dir, game.Tag+"_gender_dim.csv"),
		Affiliation: filepath.Join(s.dir, game.Tag+"_"+game.AffiliationTable()+".csv"),
		Facts:       filepath.Join(s.dir, game.Tag+"_facts_table.csv"),
	}
}

func rawHeader(game *domain.Game) []string {
	return []string{"name", "gender", game.AffiliationColumn(), "release_date"}
}

func (s *Store) WriteRaw(game *domain.Game, dataset *domain.Dataset) (string, error) {
	rows := make([][]string, 0, dataset.Len())
	for _, r := range dataset.Records {
		rows = append(rows, []string{r.Name, r.Gender, r.Affiliation, r.ReleaseDate})
	}
	path := s.RawPath(game)
	if err := writeIndexed(path, rawHeader(game), rows); err != nil {
		return "", err
	}
	s.logger.Info("Raw dataset written", zap.String("game", string(game.ID)), zap.String("path", path), zap.Int("records", len(rows)))
	return path, nil
}

func (s *Store) ReadRaw(game *domain.Game) (*domain.Dataset, error) {
	rows, err := readIndexed(s.RawPath(game), rawHeader(game))
	if err != nil {
		return nil, err
	}
	dataset := domain.NewDataset(game.ID)
	for _, row := range rows {
		record := domain.CharacterRecord{Name: row[0], Gender: row[1], Affiliation: row[2], ReleaseDate: row[3]}
		record.ApplyDefaults()
		dataset.Add(record)
	}
	return dataset, nil
}

func (s *Store) WriteStar(star *domain.StarSchema) (StarPaths, error) {
	game := star.Game
	paths := s.StarPaths(game)

	if err := writeDimension(paths.Gender, "gender", star.Genders); err != nil {
		return StarPaths{}, err
	}
	if err := writeDimension(paths.Affiliation, game.AffiliationColumn(), star.Affiliations); err != nil {
		return StarPaths{}, err
	}

	facts := make([][]string, 0, len(star.Facts))
	for _, f := range star.Facts {
		facts = append(facts, []string{
			strconv.Itoa(f.CharacterID),
			f.Name,
			strconv.Itoa(f.GenderID),
			strconv.Itoa(f.AffiliationID),
			f.ReleaseDate,
		})
	}
	if err := writeIndexed(paths.Facts, factsHeader(game), facts); err != nil {
		return StarPaths{}, err
	}

	s.logger.Info("Star schema written",
		zap.String("game", string(game.ID)),
		zap.String("facts", paths.Facts),
		zap.Int("rows", len(facts)))
	return paths, nil
}

// RemoveStar deletes the star CSVs of game once they are loaded. Missing
// files are not an error.
func (s *Store) RemoveStar(game *domain.Game) error {
	paths := s.StarPaths(game)
	var errs []error
	for _, path := range []string{paths.Gender, paths.Affiliation, paths.Facts} {
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("failed to remove star files: %w", err)
	}
	s.logger.Debug("Star files removed", zap.String("game", string(game.ID)))
	return nil
}

func (s *Store) ReadStar(game *domain.Game) (*domain.StarSchema, error) {
	paths := s.StarPaths(game)

	genders, err := readDimension(paths.Gender, "gender")
	if err != nil {
		return nil, err
	}
	affiliations, err := readDimension(paths.Affiliation, game.AffiliationColumn())
	if err != nil {
		return nil, err
	}

	rows, err := readIndexed(paths.Facts, factsHeader(game))
	if err != nil {
		return nil, err
	}
	facts := make([]domain.FactRow, 0, len(rows))
	for i, row := range rows {
		ids, err := atoiAll(row[0], row[2], row[3])
		if err != nil {
			return nil, fmt.Errorf("%s: row %d: %w", paths.Facts, i, err)
		}
		facts = append(facts, domain.FactRow{
			CharacterID:   ids[0],
			Name:          row[1],
			GenderID:      ids[1],
			AffiliationID: ids[2],
			ReleaseDate:   row[4],
		})
	}

	return &domain.StarSchema{
		Game:         game,
		Genders:      genders,
		Affiliations: affiliations,
		Facts:        facts,
	}, nil
}

func factsHeader(game *domain.Game) []string {
	return []string{"character_id", "name", "gender_id", game.AffiliationIDColumn(), "release_date"}
}

func writeDimension(path, column string, dim *domain.Dimension) error {
	rows := make([][]string, 0, dim.Len())
	for _, row := range dim.Rows {
		rows = append(rows, []string{strconv.Itoa(row.ID), row.Value})
	}
	return writeIndexed(path, []string{column + "_id", column}, rows)
}

func readDimension(path, column string) (*domain.Dimension, error) {
	rows, err := readIndexed(path, []string{column + "_id", column})
	if err != nil {
		return nil, err
	}
	dimRows := make([]domain.DimensionRow, 0, len(rows))
	for i, row := range rows {
		id, err := strconv.Atoi(row[0])
		if err != nil {
			return nil, fmt.Errorf("%s: row %d: %w", path, i, err)
		}
		dimRows = append(dimRows, domain.DimensionRow{ID: id, Value: row[1]})
	}
	return domain.NewDimensionFromRows(column, dimRows)
}

// writeIndexed writes header and rows behind a leading index column. The
// file is replaced atomically.
func writeIndexed(path string, header []string, rows [][]string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create export dir: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".export-*.csv")
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer os.Remove(tmp.Name())

	w := csv.NewWriter(tmp)
	if err := w.Write(append([]string{""}, header...)); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	for i, row := range rows {
		if err := w.Write(append([]string{strconv.Itoa(i)}, row...)); err != nil {
			tmp.Close()
			return fmt.Errorf("failed to write %s: %w", path, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", path, err)
	}
	return os.Rename(tmp.Name(), path)
}

// readIndexed returns the data rows of path with the index column removed,
// after checking the header.
func readIndexed(path string, header []string) ([][]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.FieldsPerRecord = len(header) + 1
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%s: missing header", path)
	}
	for i, column := range header {
		if records[0][i+1] != column {
			return nil, fmt.Errorf("%s: column %d is %q, expected %q", path, i+1, records[0][i+1], column)
		}
	}

	rows := make([][]string, 0, len(records)-1)
	for _, record := range records[1:] {
		rows = append(rows, record[1:])
	}
	return rows, nil
}

func atoiAll(values ...string) ([]int, error) {
	result := make([]int, 0, len(values))
	for _, v := range values {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, err
		}
		result = append(result, n)
	}
	return result, nil
}
