package loader

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kapu/game-character-etl/internal/domain"
	"github.com/kapu/game-character-etl/internal/service/database"
	"github.com/kapu/game-character-etl/internal/service/schema"
	etlerrors "github.com/kapu/game-character-etl/pkg/errors"
)

const (
	genderTable    = "gender_dim"
	characterTable = "character_info"
)

// Loader writes a star schema into the game's relational schema. Each load
// replaces the previous contents in a single transaction.
type Loader struct {
	dbs    *database.Manager
	logger *zap.Logger
}

type Summary struct {
	Database     string
	Schema       string
	Genders      int
	Affiliations int
	Characters   int
	Elapsed      time.Duration
}

func New(dbs *database.Manager, logger *zap.Logger) *Loader {
	return &Loader{
		dbs:    dbs,
		logger: logger,
	}
}

func (l *Loader) Load(ctx context.Context, star *domain.StarSchema) (*Summary, error) {
	game := star.Game
	start := time.Now()
	logger := l.logger.With(
		zap.String("game", string(game.ID)),
		zap.String("database", game.Database),
		zap.String("schema", game.Schema),
		zap.String("stage", etlerrors.StageLoad))

	if err := schema.Verify(star); err != nil {
		return nil, etlerrors.NewLoadError("star schema failed verification", game.Database, game.Schema, "", err)
	}

	handle, err := l.dbs.Open(ctx, game.Database, game.Schema)
	if err != nil {
		return nil, etlerrors.NewLoadError("failed to open database", game.Database, game.Schema, "", err)
	}

	t := newTables(handle.Dialect, game)

	logger.Info("Creating tables")
	for _, stmt := range t.ddl() {
		if _, err := handle.DB.ExecContext(ctx, stmt.sql); err != nil {
			return nil, etlerrors.NewLoadError("failed to create table", game.Database, game.Schema, stmt.table, err)
		}
	}

	tx, err := handle.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, etlerrors.NewLoadError("failed to begin transaction", game.Database, game.Schema, "", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for _, table := range []string{characterTable, genderTable, game.AffiliationTable()} {
		if _, err = tx.ExecContext(ctx, "DELETE FROM "+handle.Dialect.Table(game.Schema, table)); err != nil {
			return nil, etlerrors.NewLoadError("failed to clear table", game.Database, game.Schema, table, err)
		}
	}

	if err = insertDimension(ctx, tx, t.insertGender, star.Genders); err != nil {
		return nil, etlerrors.NewLoadError("failed to insert dimension", game.Database, game.Schema, genderTable, err)
	}
	if err = insertDimension(ctx, tx, t.insertAffiliation, star.Affiliations); err != nil {
		return nil, etlerrors.NewLoadError("failed to insert dimension", game.Database, game.Schema, game.AffiliationTable(), err)
	}
	if err = insertFacts(ctx, tx, t.insertCharacter, star.Facts); err != nil {
		return nil, etlerrors.NewLoadError("failed to insert facts", game.Database, game.Schema, characterTable, err)
	}

	if err = tx.Commit(); err != nil {
		return nil, etlerrors.NewLoadError("failed to commit", game.Database, game.Schema, "", err)
	}

	summary := &Summary{
		Database:     game.Database,
		Schema:       game.Schema,
		Genders:      star.Genders.Len(),
		Affiliations: star.Affiliations.Len(),
		Characters:   len(star.Facts),
		Elapsed:      time.Since(start),
	}
	logger.Info("Finished uploading data to schema",
		zap.Int("characters", summary.Characters),
		zap.Duration("elapsed", summary.Elapsed))
	return summary, nil
}

type statement struct {
	table string
	sql   string
}

type tables struct {
	dialect           database.Dialect
	game              *domain.Game
	insertGender      string
	insertAffiliation string
	insertCharacter   string
}

func newTables(dialect database.Dialect, game *domain.Game) *tables {
	t := &tables{dialect: dialect, game: game}
	t.insertGender = t.insert(genderTable, "gender_id", "gender")
	t.insertAffiliation = t.insert(game.AffiliationTable(), game.AffiliationIDColumn(), game.AffiliationColumn())
	t.insertCharacter = t.insert(characterTable, "character_id", "name", "gender_id", game.AffiliationIDColumn(), "release_date")
	return t
}

func (t *tables) ddl() []statement {
	s := t.game.Schema
	affTable := t.game.AffiliationTable()
	affID := t.game.AffiliationIDColumn()

	return []statement{
		{genderTable, fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	gender_id INT PRIMARY KEY,
	gender TEXT
)`, t.dialect.Table(s, genderTable))},
		{affTable, fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	%s INT PRIMARY KEY,
	%s TEXT
)`, t.dialect.Table(s, affTable), affID, t.game.AffiliationColumn())},
		{characterTable, fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	character_id INT NOT NULL,
	name TEXT NOT NULL,
	gender_id INT NOT NULL,
	%s INT NOT NULL,
	release_date DATE NOT NULL,
	PRIMARY KEY (character_id),
	CONSTRAINT fk_gender FOREIGN KEY (gender_id) REFERENCES %s (gender_id),
	CONSTRAINT fk_%s FOREIGN KEY (%s) REFERENCES %s (%s)
)`, t.dialect.Table(s, characterTable), affID,
			t.dialect.Reference(s, genderTable),
			t.game.AffiliationColumn(), affID, t.dialect.Reference(s, affTable), affID)},
	}
}

func (t *tables) insert(table string, columns ...string) string {
	placeholders := make([]string, len(columns))
	for i := range columns {
		placeholders[i] = t.dialect.Placeholder(i + 1)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		t.dialect.Table(t.game.Schema, table),
		strings.Join(columns, ", "),
		strings.Join(placeholders, ", "))
}

func insertDimension(ctx context.Context, tx *sql.Tx, query string, dim *domain.Dimension) error {
	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, row := range dim.Rows {
		if _, err := stmt.ExecContext(ctx, row.ID, row.Value); err != nil {
			return fmt.Errorf("%s %q: %w", dim.Name, row.Value, err)
		}
	}
	return nil
}

func insertFacts(ctx context.Context, tx *sql.Tx, query string, facts []domain.FactRow) error {
	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, f := range facts {
		if _, err := stmt.ExecContext(ctx, f.CharacterID, f.Name, f.GenderID, f.AffiliationID, f.ReleaseDate); err != nil {
			return fmt.Errorf("character %q: %w", f.Name, err)
		}
	}
	return nil
}
