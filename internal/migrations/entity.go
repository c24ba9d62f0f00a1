package migrations

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// Dialect identifies the SQL flavour of a database
type Dialect string

const (
	SQLite   Dialect = "sqlite"
	Postgres Dialect = "postgres"
)

// DialectOf maps a database/sql driver name to its Dialect
func DialectOf(driverName string) (Dialect, error) {
	switch driverName {
	case "sqlite", "sqlite3":
		return SQLite, nil
	case "postgres", "pgx":
		return Postgres, nil
	default:
		return "", fmt.Errorf("unsupported driver %q", driverName)
	}
}

// EntityTableMigrations returns the migrations that create the table backing
// one entity store. table must already be validated as an identifier.
func EntityTableMigrations(dialect Dialect, table string) []Migration {
	idColumn := "id INTEGER PRIMARY KEY AUTOINCREMENT"
	payloadColumn := "payload BLOB NOT NULL"
	if dialect == Postgres {
		idColumn = "id SERIAL PRIMARY KEY"
		payloadColumn = "payload BYTEA NOT NULL"
	}

	return []Migration{
		{
			Version: 1,
			Name:    "create_" + table,
			Up: func(ctx context.Context, tx *sqlx.Tx) error {
				_, err := tx.ExecContext(ctx, fmt.Sprintf(`
					CREATE TABLE IF NOT EXISTS %s (
						%s,
						%s,
						created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
						updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
					)
				`, table, idColumn, payloadColumn))
				return err
			},
			Down: func(ctx context.Context, tx *sqlx.Tx) error {
				_, err := tx.ExecContext(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %s", table))
				return err
			},
		},
		{
			Version: 2,
			Name:    "index_" + table + "_updated_at",
			Up: func(ctx context.Context, tx *sqlx.Tx) error {
				_, err := tx.ExecContext(ctx, fmt.Sprintf(
					"CREATE INDEX IF NOT EXISTS idx_%s_updated_at ON %s(updated_at)", table, table))
				return err
			},
			Down: func(ctx context.Context, tx *sqlx.Tx) error {
				_, err := tx.ExecContext(ctx, fmt.Sprintf("DROP INDEX IF EXISTS idx_%s_updated_at", table))
				return err
			},
		},
	}
}
