package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/kapu/game-character-etl/internal/constants"
)

// invalid_catalog_name: the database does not exist yet.
const pqUndefinedDatabase = "3D000"

type PostgresConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	SSLMode  string
}

func (c PostgresConfig) DSN(database string) string {
	sslMode := c.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, quoteDSN(c.Password), database, sslMode)
}

// quoteDSN single-quotes a connection string value.
func quoteDSN(value string) string {
	value = strings.ReplaceAll(value, `\`, `\\`)
	value = strings.ReplaceAll(value, `'`, `\'`)
	return "'" + value + "'"
}

// openPostgres connects to database, creating it first when the server
// reports it missing.
func openPostgres(ctx context.Context, cfg PostgresConfig, database string, logger *zap.Logger) (*sql.DB, error) {
	db, err := connectPostgres(ctx, cfg, database)
	var pqErr *pq.Error
	if err != nil && errors.As(err, &pqErr) && pqErr.Code == pqUndefinedDatabase {
		logger.Info("Creating database", zap.String("database", database))
		if createErr := createPostgresDatabase(ctx, cfg, database); createErr != nil {
			return nil, createErr
		}
		db, err = connectPostgres(ctx, cfg, database)
	}
	if err != nil {
		return nil, err
	}

	logger.Info("PostgreSQL connected",
		zap.String("host", cfg.Host),
		zap.Int("port", cfg.Port),
		zap.String("database", database),
	)
	return db, nil
}

func connectPostgres(ctx context.Context, cfg PostgresConfig, database string) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.DSN(database))
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}

	db.SetMaxOpenConns(constants.DatabaseConfig.MaxOpenConns)
	db.SetMaxIdleConns(constants.DatabaseConfig.MaxIdleConns)
	db.SetConnMaxLifetime(constants.DatabaseConfig.ConnMaxLifetime)

	pingCtx, cancel := context.WithTimeout(ctx, constants.DatabaseConfig.PingTimeout)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping postgres database %s: %w", database, err)
	}
	return db, nil
}

func createPostgresDatabase(ctx context.Context, cfg PostgresConfig, database string) error {
	admin, err := connectPostgres(ctx, cfg, "postgres")
	if err != nil {
		return err
	}
	defer admin.Close()

	if _, err := admin.ExecContext(ctx, "CREATE DATABASE "+pq.QuoteIdentifier(database)); err != nil {
		return fmt.Errorf("failed to create database %s: %w", database, err)
	}
	return nil
}

type postgresDialect struct{}

func (postgresDialect) Name() string { return "postgres" }

func (postgresDialect) Placeholder(n int) string {
	return "$" + strconv.Itoa(n)
}

func (postgresDialect) Table(schema, table string) string {
	return pq.QuoteIdentifier(schema) + "." + pq.QuoteIdentifier(table)
}

func (d postgresDialect) Reference(schema, table string) string {
	return d.Table(schema, table)
}

func (postgresDialect) EnsureSchema(ctx context.Context, db *sql.DB, schema string) error {
	_, err := db.ExecContext(ctx, "CREATE SCHEMA IF NOT EXISTS "+pq.QuoteIdentifier(schema))
	return err
}

func (postgresDialect) ListTables(ctx context.Context, db *sql.DB, schema string) ([]string, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT table_name FROM information_schema.tables WHERE table_schema = $1 ORDER BY table_name`, schema)
	if err != nil {
		return nil, err
	}
	return scanStrings(rows)
}

func (postgresDialect) ReadOnlyTx() bool { return true }
