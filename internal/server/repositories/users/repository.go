// Package users is the user record store. Uniqueness of email is enforced by
// a unique index, which is what makes concurrent duplicate registrations
// resolve to exactly one record.
package users

import (
	"context"

	"github.com/dmitrijs2005/userkeeper/internal/server/models"
)

// UpdateFields lists the mutable columns of a user record. Nil fields are
// left unchanged.
type UpdateFields struct {
	Status *bool
	Role   *models.Role
}

type Repository interface {
	// Create inserts user and fills in the generated id and created_at.
	// A taken email yields common.ErrDuplicateEmail.
	Create(ctx context.Context, user *models.User) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id int64) (*models.User, error)
	Update(ctx context.Context, id int64, fields UpdateFields) (*models.User, error)
	// List returns every user ordered by id.
	List(ctx context.Context) ([]*models.User, error)
}

const userColumns = `id, fname, lname, patronymic, birthdate, email, password_hash, role, status, created_at`

// scanner is implemented by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func updateArgs(fields UpdateFields) (status any, role any) {
	if fields.Status != nil {
		status = *fields.Status
	}
	if fields.Role != nil {
		role = string(*fields.Role)
	}
	return status, role
}
