package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// Supported drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type Config struct {
	Driver    string
	Postgres  PostgresConfig
	SQLiteDir string
}

// Handle is an open logical database.
type Handle struct {
	Name    string
	DB      *sql.DB
	Dialect Dialect
}

// Manager keeps one pool per logical database, opened on first use.
type Manager struct {
	cfg    Config
	logger *zap.Logger

	mu      sync.Mutex
	handles map[string]*Handle
}

func NewManager(cfg Config, logger *zap.Logger) (*Manager, error) {
	switch cfg.Driver {
	case DriverPostgres, DriverSQLite:
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
	return &Manager{
		cfg:     cfg,
		logger:  logger,
		handles: make(map[string]*Handle),
	}, nil
}

func (m *Manager) Driver() string {
	return m.cfg.Driver
}

// Open returns the handle of database and makes sure every schema exists.
func (m *Manager) Open(ctx context.Context, database string, schemas ...string) (*Handle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	handle, ok := m.handles[database]
	if !ok {
		var err error
		handle, err = m.open(ctx, database)
		if err != nil {
			return nil, err
		}
		m.handles[database] = handle
	}

	for _, schema := range schemas {
		if err := handle.Dialect.EnsureSchema(ctx, handle.DB, schema); err != nil {
			return nil, fmt.Errorf("failed to ensure schema %s.%s: %w", database, schema, err)
		}
	}
	return handle, nil
}

func (m *Manager) open(ctx context.Context, database string) (*Handle, error) {
	switch m.cfg.Driver {
	case DriverPostgres:
		db, err := openPostgres(ctx, m.cfg.Postgres, database, m.logger)
		if err != nil {
			return nil, err
		}
		return &Handle{Name: database, DB: db, Dialect: postgresDialect{}}, nil
	default:
		db, err := openSQLite(ctx, m.cfg.SQLiteDir, database, m.logger)
		if err != nil {
			return nil, err
		}
		return &Handle{Name: database, DB: db, Dialect: sqliteDialect{dir: m.cfg.SQLiteDir, database: database}}, nil
	}
}

func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var errs []error
	for name, handle := range m.handles {
		if err := handle.DB.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", name, err))
		}
		delete(m.handles, name)
	}
	return errors.Join(errs...)
}
