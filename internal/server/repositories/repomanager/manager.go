// Package repomanager vends dialect-specific repository implementations and
// applies the matching goose migrations.
package repomanager

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"os"
	"sync"

	"github.com/dmitrijs2005/userkeeper/internal/dbx"
	"github.com/dmitrijs2005/userkeeper/internal/logging"
	"github.com/dmitrijs2005/userkeeper/internal/server/config"
	"github.com/dmitrijs2005/userkeeper/internal/server/repositories/users"
	"github.com/pressly/goose/v3"
)

type RepositoryManager interface {
	RunMigrations(ctx context.Context, db *sql.DB) error
	Users(db dbx.DBTX) users.Repository
}

// New returns the RepositoryManager for a config.Driver* name.
func New(driver string, logger logging.Logger) (RepositoryManager, error) {
	if logger == nil {
		logger = logging.Nop()
	}
	logger = logger.With("module", "migrations")

	switch driver {
	case config.DriverPostgres:
		return NewPostgresRepositoryManager(logger), nil
	case config.DriverSQLite:
		return NewSQLiteRepositoryManager(logger), nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
}

// goose keeps its dialect, filesystem and logger in package globals.
var gooseMu sync.Mutex

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

func runGoose(ctx context.Context, db *sql.DB, fsys fs.FS, dialect, dir string, logger logging.Logger) error {
	gooseMu.Lock()
	defer gooseMu.Unlock()

	goose.SetBaseFS(fsys)
	goose.SetLogger(&gooseLogger{ctx: ctx, l: logger})
	if err := goose.SetDialect(dialect); err != nil {
		return fmt.Errorf("goose dialect: %w", err)
	}

	if err := gooseUpContext(ctx, db, dir); err != nil {
		return fmt.Errorf("migrate %s: %w", dir, err)
	}
	return nil
}

// gooseLogger routes goose progress output into the structured logger.
type gooseLogger struct {
	ctx context.Context
	l   logging.Logger
}

func (g *gooseLogger) Printf(format string, v ...any) {
	g.l.Info(g.ctx, fmt.Sprintf(format, v...))
}

func (g *gooseLogger) Fatalf(format string, v ...any) {
	g.l.Error(g.ctx, fmt.Sprintf(format, v...))
	os.Exit(1)
}
