package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/userkeeper/internal/dbx"
	"github.com/dmitrijs2005/userkeeper/internal/logging"
	"github.com/dmitrijs2005/userkeeper/internal/server/migrations"
	"github.com/dmitrijs2005/userkeeper/internal/server/repositories/users"
)

// PostgresRepositoryManager vends PostgreSQL-backed repositories.
type PostgresRepositoryManager struct {
	logger logging.Logger
}

func NewPostgresRepositoryManager(logger logging.Logger) *PostgresRepositoryManager {
	return &PostgresRepositoryManager{logger: logger}
}

// Users returns a users.Repository bound to the provided DBTX.
func (m *PostgresRepositoryManager) Users(db dbx.DBTX) users.Repository {
	return users.NewPostgresRepository(db)
}

// RunMigrations applies the embedded postgres migrations.
func (m *PostgresRepositoryManager) RunMigrations(ctx context.Context, db *sql.DB) error {
	return runGoose(ctx, db, migrations.Migrations, "pgx", migrations.DirPostgres, m.logger)
}
