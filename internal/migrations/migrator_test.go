package migrations

import (
	"context"
	"errors"
	"testing"

	"github.com/jbweber/homelab/dao/internal/testutil"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tableExists(t *testing.T, db *sqlx.DB, name string) bool {
	t.Helper()
	var count int
	err := db.Get(&count, "SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?", name)
	require.NoError(t, err)
	return count == 1
}

func TestMigrator_RunMigrations(t *testing.T) {
	db, cleanup := testutil.SetupTestDB(t, "TestMigrator_RunMigrations")
	defer cleanup()
	ctx := context.Background()

	migrator := NewMigrator(db, "people")
	for _, migration := range EntityTableMigrations(SQLite, "people") {
		migrator.AddMigration(migration)
	}

	err := migrator.RunMigrations(ctx)
	require.NoError(t, err)

	// Verify current version
	version, err := migrator.GetCurrentVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), version)

	assert.True(t, tableExists(t, db, "people"))
	assert.True(t, tableExists(t, db, "schema_migrations"))

	// Verify migration was recorded
	var count int
	err = db.Get(&count, "SELECT COUNT(*) FROM schema_migrations WHERE scope = 'people' AND version = 1 AND name = 'create_people'")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	// Running again is a no-op
	require.NoError(t, migrator.RunMigrations(ctx))
	err = db.Get(&count, "SELECT COUNT(*) FROM schema_migrations WHERE scope = 'people'")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestMigrator_ScopesAreIndependent(t *testing.T) {
	db, cleanup := testutil.SetupTestDB(t, "TestMigrator_ScopesAreIndependent")
	defer cleanup()
	ctx := context.Background()

	for _, table := range []string{"machines", "networks"} {
		migrator := NewMigrator(db, table)
		for _, migration := range EntityTableMigrations(SQLite, table) {
			migrator.AddMigration(migration)
		}
		require.NoError(t, migrator.RunMigrations(ctx))
	}

	assert.True(t, tableExists(t, db, "machines"))
	assert.True(t, tableExists(t, db, "networks"))

	version, err := NewMigrator(db, "networks").GetCurrentVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), version)

	version, err = NewMigrator(db, "unknown").GetCurrentVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), version)
}

func TestMigrator_AddMigration(t *testing.T) {
	db, cleanup := testutil.SetupTestDB(t, "TestMigrator_AddMigration")
	defer cleanup()

	migrator := NewMigrator(db, "sorted")

	// Add migrations out of order
	migrator.AddMigration(Migration{Version: 3, Name: "third"})
	migrator.AddMigration(Migration{Version: 1, Name: "first"})
	migrator.AddMigration(Migration{Version: 2, Name: "second"})

	// Verify they are sorted
	migrations := migrator.GetMigrations()
	assert.Equal(t, int64(1), migrations[0].Version)
	assert.Equal(t, int64(2), migrations[1].Version)
	assert.Equal(t, int64(3), migrations[2].Version)
}

func TestMigrator_FailedMigrationIsNotRecorded(t *testing.T) {
	db, cleanup := testutil.SetupTestDB(t, "TestMigrator_FailedMigrationIsNotRecorded")
	defer cleanup()
	ctx := context.Background()

	migrator := NewMigrator(db, "broken")
	migrator.AddMigration(Migration{
		Version: 1,
		Name:    "create_broken",
		Up: func(ctx context.Context, tx *sqlx.Tx) error {
			if _, err := tx.ExecContext(ctx, "CREATE TABLE broken (id INTEGER)"); err != nil {
				return err
			}
			return errors.New("boom")
		},
	})

	err := migrator.RunMigrations(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to run migration 1 (create_broken)")

	version, err := migrator.GetCurrentVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), version)
	assert.False(t, tableExists(t, db, "broken"))
}

func TestMigrator_RollbackTo(t *testing.T) {
	db, cleanup := testutil.SetupTestDB(t, "TestMigrator_RollbackTo")
	defer cleanup()
	ctx := context.Background()

	migrator := NewMigrator(db, "people")
	for _, migration := range EntityTableMigrations(SQLite, "people") {
		migrator.AddMigration(migration)
	}
	require.NoError(t, migrator.RunMigrations(ctx))

	require.NoError(t, migrator.RollbackTo(ctx, 1))
	version, err := migrator.GetCurrentVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), version)
	assert.True(t, tableExists(t, db, "people"))

	var count int
	require.NoError(t, db.Get(&count, "SELECT COUNT(*) FROM sqlite_master WHERE type='index' AND name='idx_people_updated_at'"))
	assert.Equal(t, 0, count)

	require.NoError(t, migrator.RollbackTo(ctx, 0))
	version, err = migrator.GetCurrentVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), version)
	assert.False(t, tableExists(t, db, "people"))
}

func TestMigrator_RollbackWithoutDown(t *testing.T) {
	db, cleanup := testutil.SetupTestDB(t, "TestMigrator_RollbackWithoutDown")
	defer cleanup()
	ctx := context.Background()

	migrator := NewMigrator(db, "oneway")
	migrator.AddMigration(Migration{
		Version: 1,
		Name:    "create_oneway",
		Up: func(ctx context.Context, tx *sqlx.Tx) error {
			_, err := tx.ExecContext(ctx, "CREATE TABLE oneway (id INTEGER)")
			return err
		},
	})
	require.NoError(t, migrator.RunMigrations(ctx))

	err := migrator.RollbackTo(ctx, 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot be rolled back")
}

func TestMigrator_ClosedDatabase(t *testing.T) {
	db, cleanup := testutil.SetupTestDB(t, "TestMigrator_ClosedDatabase")
	cleanup()

	err := NewMigrator(db, "closed").RunMigrations(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to create migrations table")
}

func TestDialectOf(t *testing.T) {
	tests := []struct {
		driver  string
		want    Dialect
		wantErr bool
	}{
		{driver: "sqlite", want: SQLite},
		{driver: "sqlite3", want: SQLite},
		{driver: "postgres", want: Postgres},
		{driver: "pgx", want: Postgres},
		{driver: "mysql", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.driver, func(t *testing.T) {
			got, err := DialectOf(tt.driver)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
