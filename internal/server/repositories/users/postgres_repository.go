package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/userkeeper/internal/common"
	"github.com/dmitrijs2005/userkeeper/internal/dbx"
	"github.com/dmitrijs2005/userkeeper/internal/server/models"
	"github.com/jackc/pgx/v5/pgconn"
)

// pgUniqueViolation is SQLSTATE unique_violation.
const pgUniqueViolation = "23505"

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	query :=
		`INSERT INTO users (fname, lname, patronymic, birthdate, email, password_hash, role, status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING id, created_at`

	var birthdate any
	if user.Birthdate != nil {
		birthdate = *user.Birthdate
	}

	err := r.db.QueryRowContext(ctx, query,
		user.FName, user.LName, user.Patronymic, birthdate,
		user.Email, user.PasswordHash, string(user.Role), user.Status,
	).Scan(&user.ID, &user.CreatedAt)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return nil, common.ErrDuplicateEmail
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return user, nil
}

func (r *PostgresRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return r.one(r.db.QueryRowContext(ctx, query, email))
}

func (r *PostgresRepository) FindByID(ctx context.Context, id int64) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return r.one(r.db.QueryRowContext(ctx, query, id))
}

func (r *PostgresRepository) Update(ctx context.Context, id int64, fields UpdateFields) (*models.User, error) {
	query :=
		`UPDATE users SET status = COALESCE($2, status), role = COALESCE($3, role)
		 WHERE id = $1
		 RETURNING ` + userColumns

	status, role := updateArgs(fields)
	return r.one(r.db.QueryRowContext(ctx, query, id, status, role))
}

func (r *PostgresRepository) List(ctx context.Context) ([]*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	result := make([]*models.User, 0)
	for rows.Next() {
		u, err := scanPostgresUser(rows)
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

func (r *PostgresRepository) one(row *sql.Row) (*models.User, error) {
	u, err := scanPostgresUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return u, nil
}

func scanPostgresUser(s scanner) (*models.User, error) {
	var (
		u         models.User
		role      string
		birthdate sql.NullTime
	)

	err := s.Scan(&u.ID, &u.FName, &u.LName, &u.Patronymic, &birthdate,
		&u.Email, &u.PasswordHash, &role, &u.Status, &u.CreatedAt)
	if err != nil {
		return nil, err
	}

	u.Role = models.Role(role)
	if birthdate.Valid {
		bd := time.Date(birthdate.Time.Year(), birthdate.Time.Month(), birthdate.Time.Day(), 0, 0, 0, 0, time.UTC)
		u.Birthdate = &bd
	}
	return &u, nil
}
