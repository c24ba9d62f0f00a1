package migrations

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/jmoiron/sqlx"
)

// Migration represents a database migration with up and down functions
type Migration struct {
	Version int64
	Name    string
	Up      func(context.Context, *sqlx.Tx) error
	Down    func(context.Context, *sqlx.Tx) error
}

// Migrator handles the migrations of one scope. Several scopes can share a
// database; each tracks its own version.
type Migrator struct {
	db         *sqlx.DB
	scope      string
	migrations []Migration
	logger     *slog.Logger
}

// NewMigrator creates a new migrator instance for scope
func NewMigrator(db *sqlx.DB, scope string) *Migrator {
	return &Migrator{
		db:         db,
		scope:      scope,
		migrations: []Migration{},
		logger:     slog.Default(),
	}
}

// SetLogger replaces the logger used to report applied migrations
func (m *Migrator) SetLogger(logger *slog.Logger) {
	m.logger = logger
}

// AddMigration adds a migration to the migrator
func (m *Migrator) AddMigration(migration Migration) {
	m.migrations = append(m.migrations, migration)
	// Sort migrations by version
	sort.Slice(m.migrations, func(i, j int) bool {
		return m.migrations[i].Version < m.migrations[j].Version
	})
}

// RunMigrations runs all pending migrations
func (m *Migrator) RunMigrations(ctx context.Context) error {
	if err := m.createMigrationsTable(ctx); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	currentVersion, err := m.getCurrentVersion(ctx)
	if err != nil {
		return fmt.Errorf("failed to get current version: %w", err)
	}

	for _, migration := range m.migrations {
		if migration.Version > currentVersion {
			if err := m.runMigration(ctx, migration); err != nil {
				return fmt.Errorf("failed to run migration %d (%s): %w", migration.Version, migration.Name, err)
			}
			m.logger.DebugContext(ctx, "applied migration", "scope", m.scope, "version", migration.Version, "name", migration.Name)
		}
	}

	return nil
}

// RollbackTo runs the Down function of every applied migration newer than
// version, newest first
func (m *Migrator) RollbackTo(ctx context.Context, version int64) error {
	currentVersion, err := m.getCurrentVersion(ctx)
	if err != nil {
		return fmt.Errorf("failed to get current version: %w", err)
	}

	for i := len(m.migrations) - 1; i >= 0; i-- {
		migration := m.migrations[i]
		if migration.Version <= version || migration.Version > currentVersion {
			continue
		}
		if migration.Down == nil {
			return fmt.Errorf("migration %d (%s) cannot be rolled back", migration.Version, migration.Name)
		}
		if err := m.revertMigration(ctx, migration); err != nil {
			return fmt.Errorf("failed to roll back migration %d (%s): %w", migration.Version, migration.Name, err)
		}
		m.logger.DebugContext(ctx, "rolled back migration", "scope", m.scope, "version", migration.Version, "name", migration.Name)
	}

	return nil
}

// createMigrationsTable creates the migrations tracking table
func (m *Migrator) createMigrationsTable(ctx context.Context) error {
	_, err := m.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			scope TEXT NOT NULL,
			version INTEGER NOT NULL,
			name TEXT NOT NULL,
			applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (scope, version)
		)
	`)
	return err
}

// getCurrentVersion returns the current migration version of the scope
func (m *Migrator) getCurrentVersion(ctx context.Context) (int64, error) {
	var version int64
	err := m.db.GetContext(ctx, &version,
		m.db.Rebind("SELECT COALESCE(MAX(version), 0) FROM schema_migrations WHERE scope = ?"), m.scope)
	if err != nil {
		return 0, err
	}
	return version, nil
}

// runMigration executes a single migration
func (m *Migrator) runMigration(ctx context.Context, migration Migration) error {
	return m.inTx(ctx, func(tx *sqlx.Tx) error {
		if err := migration.Up(ctx, tx); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx,
			tx.Rebind("INSERT INTO schema_migrations (scope, version, name) VALUES (?, ?, ?)"),
			m.scope, migration.Version, migration.Name)
		return err
	})
}

// revertMigration undoes a single migration
func (m *Migrator) revertMigration(ctx context.Context, migration Migration) error {
	return m.inTx(ctx, func(tx *sqlx.Tx) error {
		if err := migration.Down(ctx, tx); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx,
			tx.Rebind("DELETE FROM schema_migrations WHERE scope = ? AND version = ?"),
			m.scope, migration.Version)
		return err
	})
}

func (m *Migrator) inTx(ctx context.Context, fn func(*sqlx.Tx) error) error {
	tx, err := m.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if rollbackErr := tx.Rollback(); rollbackErr != nil && !errors.Is(rollbackErr, sql.ErrTxDone) {
			m.logger.Warn("failed to roll back migration transaction", "scope", m.scope, "error", rollbackErr)
		}
	}()

	if err := fn(tx); err != nil {
		return err
	}

	return tx.Commit()
}

// GetCurrentVersion returns the current migration version (public method)
func (m *Migrator) GetCurrentVersion(ctx context.Context) (int64, error) {
	return m.getCurrentVersion(ctx)
}

// GetMigrations returns all registered migrations
func (m *Migrator) GetMigrations() []Migration {
	return m.migrations
}
