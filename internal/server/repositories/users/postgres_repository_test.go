package users

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/userkeeper/internal/common"
	"github.com/dmitrijs2005/userkeeper/internal/server/models"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

var columnNames = []string{"id", "fname", "lname", "patronymic", "birthdate", "email", "password_hash", "role", "status", "created_at"}

func TestPostgresRepository_Create(t *testing.T) {
	db, mock := newMock(t)
	repo := NewPostgresRepository(db)

	created := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	bd := time.Date(1990, 1, 2, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO users`)).
		WithArgs("Ann", "Lee", "", bd, "ann@example.com", "h", "USER", true).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(int64(7), created))

	u, err := repo.Create(context.Background(), &models.User{
		FName: "Ann", LName: "Lee", Birthdate: &bd,
		Email: "ann@example.com", PasswordHash: "h", Role: models.RoleUser, Status: true,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(7), u.ID)
	assert.Equal(t, created, u.CreatedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_Create_DuplicateEmail(t *testing.T) {
	db, mock := newMock(t)
	repo := NewPostgresRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO users`)).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "users_email_key"})

	_, err := repo.Create(context.Background(), &models.User{LName: "L", Email: "a@b.c", Role: models.RoleUser})
	require.ErrorIs(t, err, common.ErrDuplicateEmail)
}

func TestPostgresRepository_Create_OtherError(t *testing.T) {
	db, mock := newMock(t)
	repo := NewPostgresRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO users`)).WillReturnError(errors.New("conn reset"))

	_, err := repo.Create(context.Background(), &models.User{LName: "L", Email: "a@b.c", Role: models.RoleUser})
	require.Error(t, err)
	assert.NotErrorIs(t, err, common.ErrDuplicateEmail)
	assert.Contains(t, err.Error(), "conn reset")
}

func TestPostgresRepository_FindByEmail(t *testing.T) {
	db, mock := newMock(t)
	repo := NewPostgresRepository(db)

	created := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta(`FROM users WHERE email = $1`)).
		WithArgs("ann@example.com").
		WillReturnRows(sqlmock.NewRows(columnNames).
			AddRow(int64(3), "Ann", "Lee", "P", nil, "ann@example.com", "h", "ADMIN", false, created))

	u, err := repo.FindByEmail(context.Background(), "ann@example.com")
	require.NoError(t, err)
	assert.Equal(t, int64(3), u.ID)
	assert.Equal(t, models.RoleAdmin, u.Role)
	assert.False(t, u.Status)
	assert.Nil(t, u.Birthdate)
}

func TestPostgresRepository_FindByID_NotFound(t *testing.T) {
	db, mock := newMock(t)
	repo := NewPostgresRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(`FROM users WHERE id = $1`)).
		WithArgs(int64(99)).
		WillReturnRows(sqlmock.NewRows(columnNames))

	_, err := repo.FindByID(context.Background(), 99)
	require.ErrorIs(t, err, common.ErrNotFound)
}

func TestPostgresRepository_Update(t *testing.T) {
	db, mock := newMock(t)
	repo := NewPostgresRepository(db)

	created := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	bd := time.Date(1990, 1, 2, 0, 0, 0, 0, time.UTC)
	status := false

	mock.ExpectQuery(regexp.QuoteMeta(`UPDATE users SET status = COALESCE($2, status)`)).
		WithArgs(int64(3), false, nil).
		WillReturnRows(sqlmock.NewRows(columnNames).
			AddRow(int64(3), "Ann", "Lee", "", bd, "ann@example.com", "h", "USER", false, created))

	u, err := repo.Update(context.Background(), 3, UpdateFields{Status: &status})
	require.NoError(t, err)
	assert.False(t, u.Status)
	require.NotNil(t, u.Birthdate)
	assert.Equal(t, "1990-01-02", u.Birthdate.Format(models.DateLayout))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_List(t *testing.T) {
	db, mock := newMock(t)
	repo := NewPostgresRepository(db)

	created := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta(`FROM users ORDER BY id`)).
		WillReturnRows(sqlmock.NewRows(columnNames).
			AddRow(int64(1), "", "A", "", nil, "a@x.io", "h", "ADMIN", true, created).
			AddRow(int64(2), "", "B", "", nil, "b@x.io", "h", "USER", true, created))

	list, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "a@x.io", list[0].Email)
	assert.Equal(t, "b@x.io", list[1].Email)
}

func TestPostgresRepository_List_Empty(t *testing.T) {
	db, mock := newMock(t)
	repo := NewPostgresRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(`FROM users ORDER BY id`)).
		WillReturnRows(sqlmock.NewRows(columnNames))

	list, err := repo.List(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, list)
	assert.Empty(t, list)
}
