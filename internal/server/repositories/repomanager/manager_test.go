package repomanager

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/userkeeper/internal/logging"
	"github.com/dmitrijs2005/userkeeper/internal/server/config"
	"github.com/dmitrijs2005/userkeeper/internal/server/repositories/users"
	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func TestNew_SelectsDialect(t *testing.T) {
	pg, err := New(config.DriverPostgres, nil)
	require.NoError(t, err)
	assert.IsType(t, &PostgresRepositoryManager{}, pg)

	lite, err := New(config.DriverSQLite, logging.Nop())
	require.NoError(t, err)
	assert.IsType(t, &SQLiteRepositoryManager{}, lite)

	_, err = New("mysql", nil)
	require.Error(t, err)
}

func TestFactories_ReturnConcreteRepos(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	assert.IsType(t, &users.PostgresRepository{}, NewPostgresRepositoryManager(logging.Nop()).Users(db))
	assert.IsType(t, &users.SQLiteRepository{}, NewSQLiteRepositoryManager(logging.Nop()).Users(db))
}

func TestRunMigrations_UsesDialectDirectory(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	var gotDir string
	orig := gooseUpContext
	gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
		gotDir = dir
		return nil
	}
	defer func() { gooseUpContext = orig }()

	require.NoError(t, NewPostgresRepositoryManager(logging.Nop()).RunMigrations(context.Background(), db))
	assert.Equal(t, "postgres", gotDir)
}

func TestRunMigrations_Error(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	orig := gooseUpContext
	gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
		return errors.New("boom")
	}
	defer func() { gooseUpContext = orig }()

	err = NewPostgresRepositoryManager(logging.Nop()).RunMigrations(context.Background(), db)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
}

func TestSQLiteMigrations_CreateUsersTable(t *testing.T) {
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "m.db"))
	require.NoError(t, err)
	defer db.Close()

	m := NewSQLiteRepositoryManager(logging.Nop())
	require.NoError(t, m.RunMigrations(context.Background(), db))
	// second run is a no-op
	require.NoError(t, m.RunMigrations(context.Background(), db))

	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM users`).Scan(&n))
	assert.Equal(t, 0, n)
}
