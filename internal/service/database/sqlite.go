package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// MemoryDir keeps every SQLite database in memory.
const MemoryDir = ":memory:"

// openSQLite opens the main file of database. Schemas are emulated with
// attached databases, so the pool is pinned to one connection that lives as
// long as the pool.
func openSQLite(ctx context.Context, dir, database string, logger *zap.Logger) (*sql.DB, error) {
	path := MemoryDir
	if dir != MemoryDir {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create sqlite dir: %w", err)
		}
		path = filepath.Join(dir, database+".db")
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(0)

	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	logger.Info("SQLite opened", zap.String("database", database), zap.String("path", path))
	return db, nil
}

type sqliteDialect struct {
	dir      string
	database string
}

func (sqliteDialect) Name() string { return "sqlite" }

func (sqliteDialect) Placeholder(int) string { return "?" }

func (sqliteDialect) Table(schema, table string) string {
	return quoteIdent(schema) + "." + quoteIdent(table)
}

// Reference is unqualified: SQLite resolves foreign keys inside the schema
// of the referencing table.
func (sqliteDialect) Reference(_, table string) string {
	return quoteIdent(table)
}

func (d sqliteDialect) EnsureSchema(ctx context.Context, db *sql.DB, schema string) error {
	rows, err := db.QueryContext(ctx, "SELECT name FROM pragma_database_list")
	if err != nil {
		return fmt.Errorf("failed to list attached databases: %w", err)
	}
	attached, err := scanStrings(rows)
	if err != nil {
		return fmt.Errorf("failed to list attached databases: %w", err)
	}
	for _, name := range attached {
		if strings.EqualFold(name, schema) {
			return nil
		}
	}

	path := MemoryDir
	if d.dir != MemoryDir {
		path = filepath.Join(d.dir, d.database+"."+schema+".db")
	}
	_, err = db.ExecContext(ctx, "ATTACH DATABASE ? AS "+quoteIdent(schema), path)
	return err
}

func (sqliteDialect) ListTables(ctx context.Context, db *sql.DB, schema string) ([]string, error) {
	rows, err := db.QueryContext(ctx,
		"SELECT name FROM "+quoteIdent(schema)+".sqlite_master WHERE type = 'table' ORDER BY name")
	if err != nil {
		return nil, err
	}
	return scanStrings(rows)
}

func (sqliteDialect) ReadOnlyTx() bool { return false }
