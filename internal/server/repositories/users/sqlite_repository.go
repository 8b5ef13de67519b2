package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/userkeeper/internal/common"
	"github.com/dmitrijs2005/userkeeper/internal/dbx"
	"github.com/dmitrijs2005/userkeeper/internal/server/models"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// SQLiteRepository stores dates as TEXT: birthdate as YYYY-MM-DD and
// created_at as RFC 3339 UTC.
type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	query :=
		`INSERT INTO users (fname, lname, patronymic, birthdate, email, password_hash, role, status)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 RETURNING id, created_at`

	var birthdate any
	if user.Birthdate != nil {
		birthdate = user.Birthdate.UTC().Format(models.DateLayout)
	}

	var createdAt string
	err := r.db.QueryRowContext(ctx, query,
		user.FName, user.LName, user.Patronymic, birthdate,
		user.Email, user.PasswordHash, string(user.Role), user.Status,
	).Scan(&user.ID, &createdAt)

	if err != nil {
		if isSQLiteUniqueViolation(err) {
			return nil, common.ErrDuplicateEmail
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	if user.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
		return nil, fmt.Errorf("db error: created_at: %w", err)
	}

	return user, nil
}

func isSQLiteUniqueViolation(err error) bool {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	if se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE {
		return true
	}
	// without extended result codes only the primary code is reported
	return se.Code()&0xff == sqlite3.SQLITE_CONSTRAINT && strings.Contains(se.Error(), "UNIQUE")
}

func (r *SQLiteRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = ?`
	return r.one(r.db.QueryRowContext(ctx, query, email))
}

func (r *SQLiteRepository) FindByID(ctx context.Context, id int64) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = ?`
	return r.one(r.db.QueryRowContext(ctx, query, id))
}

func (r *SQLiteRepository) Update(ctx context.Context, id int64, fields UpdateFields) (*models.User, error) {
	query :=
		`UPDATE users SET status = COALESCE(?, status), role = COALESCE(?, role)
		 WHERE id = ?
		 RETURNING ` + userColumns

	status, role := updateArgs(fields)
	return r.one(r.db.QueryRowContext(ctx, query, status, role, id))
}

func (r *SQLiteRepository) List(ctx context.Context) ([]*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	result := make([]*models.User, 0)
	for rows.Next() {
		u, err := scanSQLiteUser(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return result, nil
}

func (r *SQLiteRepository) one(row *sql.Row) (*models.User, error) {
	u, err := scanSQLiteUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return u, nil
}

func scanSQLiteUser(s scanner) (*models.User, error) {
	var (
		u         models.User
		role      string
		birthdate sql.NullString
		createdAt string
	)

	err := s.Scan(&u.ID, &u.FName, &u.LName, &u.Patronymic, &birthdate,
		&u.Email, &u.PasswordHash, &role, &u.Status, &createdAt)
	if err != nil {
		return nil, err
	}

	u.Role = models.Role(role)

	if birthdate.Valid && birthdate.String != "" {
		bd, err := time.Parse(models.DateLayout, birthdate.String)
		if err != nil {
			return nil, fmt.Errorf("birthdate: %w", err)
		}
		u.Birthdate = &bd
	}

	if u.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
		return nil, fmt.Errorf("created_at: %w", err)
	}

	return &u, nil
}
