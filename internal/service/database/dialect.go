package database

import (
	"context"
	"database/sql"
	"strings"
)

// Dialect hides the SQL differences between the supported engines.
type Dialect interface {
	Name() string
	Placeholder(n int) string
	// Table returns the quoted, schema-qualified name of table.
	Table(schema, table string) string
	// Reference returns the target of a foreign key to table from a table
	// living in the same schema.
	Reference(schema, table string) string
	EnsureSchema(ctx context.Context, db *sql.DB, schema string) error
	ListTables(ctx context.Context, db *sql.DB, schema string) ([]string, error)
	// ReadOnlyTx reports whether BeginTx honours TxOptions.ReadOnly.
	ReadOnlyTx() bool
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func scanStrings(rows *sql.Rows) ([]string, error) {
	defer rows.Close()
	result := make([]string, 0)
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		result = append(result, s)
	}
	return result, rows.Err()
}
