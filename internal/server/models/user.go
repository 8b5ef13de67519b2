// Package models holds the server-side user record, the role enumeration and
// the outward views derived from a record.
package models

import "time"

// DateLayout is the date-only format used for birthdates on the wire.
const DateLayout = "2006-01-02"

// Role is the closed set of roles a user can hold.
type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// IsValid reports whether r is one of the known roles.
func (r Role) IsValid() bool {
	switch r {
	case RoleUser, RoleAdmin:
		return true
	default:
		return false
	}
}

func (r Role) String() string { return string(r) }

// ParseRole converts s into a Role, reporting false for unknown values.
func ParseRole(s string) (Role, bool) {
	r := Role(s)
	return r, r.IsValid()
}

// User is a stored user record. PasswordHash never leaves the server.
type User struct {
	ID           int64
	FName        string
	LName        string
	Patronymic   string
	Birthdate    *time.Time
	Email        string
	PasswordHash string `json:"-"`
	Role         Role
	Status       bool
	CreatedAt    time.Time
}

// PublicUser is returned together with a freshly issued token.
type PublicUser struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
	Role  Role   `json:"role"`
}

// Profile is the self-or-admin view of a single user.
type Profile struct {
	FName      string `json:"fname"`
	LName      string `json:"lname"`
	Patronymic string `json:"patronymic"`
	Birthdate  string `json:"birthdate"`
	Email      string `json:"email"`
}

// Summary is one row of the admin user listing.
type Summary struct {
	ID     int64  `json:"id"`
	FName  string `json:"fname"`
	LName  string `json:"lname"`
	Email  string `json:"email"`
	Role   Role   `json:"role"`
	Status bool   `json:"status"`
}

// StatusView is returned after a block/unblock toggle.
type StatusView struct {
	ID         int64  `json:"id"`
	Status     bool   `json:"status"`
	FName      string `json:"fname"`
	LName      string `json:"lname"`
	Patronymic string `json:"patronymic"`
}

func (u *User) Public() PublicUser {
	return PublicUser{ID: u.ID, Email: u.Email, Role: u.Role}
}

func (u *User) Profile() Profile {
	p := Profile{
		FName:      u.FName,
		LName:      u.LName,
		Patronymic: u.Patronymic,
		Email:      u.Email,
	}
	if u.Birthdate != nil {
		p.Birthdate = u.Birthdate.UTC().Format(DateLayout)
	}
	return p
}

func (u *User) Summary() Summary {
	return Summary{
		ID:     u.ID,
		FName:  u.FName,
		LName:  u.LName,
		Email:  u.Email,
		Role:   u.Role,
		Status: u.Status,
	}
}

func (u *User) StatusView() StatusView {
	return StatusView{
		ID:         u.ID,
		Status:     u.Status,
		FName:      u.FName,
		LName:      u.LName,
		Patronymic: u.Patronymic,
	}
}
