package console

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kapu/game-character-etl/internal/constants"
	"github.com/kapu/game-character-etl/internal/domain"
	"github.com/kapu/game-character-etl/internal/service/database"
	etlerrors "github.com/kapu/game-character-etl/pkg/errors"
)

// Service runs ad-hoc SQL against the logical databases of the catalog.
type Service struct {
	catalog *domain.Catalog
	dbs     *database.Manager
	timeout time.Duration
	maxRows int
	logger  *zap.Logger
}

type Config struct {
	QueryTimeout time.Duration
	MaxRows      int
}

type Example struct {
	Title string `json:"title"`
	Query string `json:"query"`
}

type Result struct {
	Columns   []string      `json:"columns"`
	Rows      [][]any       `json:"rows"`
	Truncated bool          `json:"truncated,omitempty"`
	Elapsed   time.Duration `json:"-"`
}

func NewService(catalog *domain.Catalog, dbs *database.Manager, cfg Config, logger *zap.Logger) *Service {
	timeout := cfg.QueryTimeout
	if timeout <= 0 {
		timeout = constants.ConsoleConfig.QueryTimeout
	}
	maxRows := cfg.MaxRows
	if maxRows <= 0 {
		maxRows = constants.ConsoleConfig.MaxRows
	}
	return &Service{
		catalog: catalog,
		dbs:     dbs,
		timeout: timeout,
		maxRows: maxRows,
		logger:  logger,
	}
}

func (s *Service) Databases() []domain.LogicalDatabase {
	return s.catalog.Databases()
}

func (s *Service) Schemas(database string) ([]string, error) {
	for _, db := range s.catalog.Databases() {
		if db.Name == database {
			return db.Schemas, nil
		}
	}
	return nil, etlerrors.NewValidationError(fmt.Sprintf("unknown database %q", database), "database", database)
}

func (s *Service) open(ctx context.Context, name string) (*database.Handle, error) {
	schemas, err := s.Schemas(name)
	if err != nil {
		return nil, err
	}
	return s.dbs.Open(ctx, name, schemas...)
}

// Tables lists the tables present in schema.
func (s *Service) Tables(ctx context.Context, database, schema string) ([]string, error) {
	if err := s.checkSchema(database, schema); err != nil {
		return nil, err
	}
	handle, err := s.open(ctx, database)
	if err != nil {
		return nil, err
	}
	tables, err := handle.Dialect.ListTables(ctx, handle.DB, schema)
	if err != nil {
		return nil, fmt.Errorf("failed to list tables of %s.%s: %w", database, schema, err)
	}
	sort.Strings(tables)
	return tables, nil
}

func (s *Service) checkSchema(database, schema string) error {
	schemas, err := s.Schemas(database)
	if err != nil {
		return err
	}
	for _, candidate := range schemas {
		if candidate == schema {
			return nil
		}
	}
	return etlerrors.NewValidationError(fmt.Sprintf("schema %q is not part of %s", schema, database), "schema", schema)
}

// Examples returns the canned queries for schema. The second query uses the
// schema's own region or faction table.
func (s *Service) Examples(database, schema string) ([]Example, error) {
	if err := s.checkSchema(database, schema); err != nil {
		return nil, err
	}
	game, ok := s.catalog.BySchema(schema)
	if !ok {
		return nil, etlerrors.NewValidationError(fmt.Sprintf("no game for schema %q", schema), "schema", schema)
	}

	aff := game.AffiliationColumn()
	affID := game.AffiliationIDColumn()
	affTable := game.AffiliationTable()

	return []Example{
		{
			Title: "Number of characters per gender",
			Query: fmt.Sprintf(`SELECT gd.gender, COUNT(*) AS gender_count
FROM %[1]s.character_info ci
JOIN %[1]s.gender_dim gd ON ci.gender_id = gd.gender_id
GROUP BY gd.gender_id, gd.gender
ORDER BY gender_count DESC`, schema),
		},
		{
			Title: fmt.Sprintf("Number of characters per %s", aff),
			Query: fmt.Sprintf(`SELECT d.%[2]s, COUNT(*) AS %[2]s_count
FROM %[1]s.character_info ci
JOIN %[1]s.%[4]s d ON ci.%[3]s = d.%[3]s
GROUP BY d.%[3]s, d.%[2]s
ORDER BY %[2]s_count DESC`, schema, aff, affID, affTable),
		},
		{
			Title: "Total number of characters",
			Query: fmt.Sprintf(`SELECT COUNT(*) AS character_number
FROM %s.character_info`, schema),
		},
	}, nil
}

// Run executes query inside a transaction that is always rolled back, read
// only where the engine supports it. At most maxRows rows are returned.
func (s *Service) Run(ctx context.Context, database, query string) (*Result, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, etlerrors.NewValidationError("query is empty", "query", query)
	}

	handle, err := s.open(ctx, database)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	tx, err := handle.DB.BeginTx(ctx, &sql.TxOptions{ReadOnly: handle.Dialect.ReadOnlyTx()})
	if err != nil {
		return nil, s.queryError(database, query, err)
	}
	defer func() { _ = tx.Rollback() }()

	rows, err := tx.QueryContext(ctx, query)
	if err != nil {
		return nil, s.queryError(database, query, err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, s.queryError(database, query, err)
	}

	result := &Result{Columns: columns, Rows: make([][]any, 0)}
	for rows.Next() {
		if len(result.Rows) == s.maxRows {
			result.Truncated = true
			break
		}
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, s.queryError(database, query, err)
		}
		for i, v := range values {
			values[i] = normalizeValue(v)
		}
		result.Rows = append(result.Rows, values)
	}
	if err := rows.Err(); err != nil {
		return nil, s.queryError(database, query, err)
	}
	result.Elapsed = time.Since(start)

	s.logger.Info("Query executed",
		zap.String("database", database),
		zap.Int("rows", len(result.Rows)),
		zap.Bool("truncated", result.Truncated),
		zap.Duration("elapsed", result.Elapsed))
	return result, nil
}

func (s *Service) queryError(database, query string, err error) error {
	s.logger.Warn("Query failed", zap.String("database", database), zap.Error(err))
	return etlerrors.NewETLError("query failed", etlerrors.CodeETLError, etlerrors.StageQuery,
		map[string]any{"database": database, "query": query}).WithCause(err)
}

func normalizeValue(v any) any {
	switch value := v.(type) {
	case []byte:
		return string(value)
	case time.Time:
		if value.Hour() == 0 && value.Minute() == 0 && value.Second() == 0 && value.Nanosecond() == 0 {
			return value.Format("2006-01-02")
		}
		return value.Format(time.RFC3339)
	default:
		return value
	}
}

// FormatValue renders a result cell for text output.
func FormatValue(v any) string {
	if v == nil {
		return "NULL"
	}
	return fmt.Sprint(v)
}

type SchemaView struct {
	Name     string    `json:"name"`
	Tables   []string  `json:"tables"`
	Examples []Example `json:"examples"`
}

type LogicalDatabaseView struct {
	Name    string       `json:"name"`
	Schemas []SchemaView `json:"schemas"`
}

// Describe lists every logical database with its schemas, their tables and
// example queries.
func (s *Service) Describe(ctx context.Context) ([]LogicalDatabaseView, error) {
	databases := s.Databases()
	views := make([]LogicalDatabaseView, 0, len(databases))
	for _, db := range databases {
		view := LogicalDatabaseView{Name: db.Name, Schemas: make([]SchemaView, 0, len(db.Schemas))}
		for _, schema := range db.Schemas {
			tables, err := s.Tables(ctx, db.Name, schema)
			if err != nil {
				return nil, err
			}
			examples, err := s.Examples(db.Name, schema)
			if err != nil {
				return nil, err
			}
			view.Schemas = append(view.Schemas, SchemaView{Name: schema, Tables: tables, Examples: examples})
		}
		views = append(views, view)
	}
	return views, nil
}
