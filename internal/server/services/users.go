// Package services implements the credential manager: registration, login,
// account status toggling and the user read operations, each gated by the
// access policy in package auth.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/userkeeper/internal/common"
	"github.com/dmitrijs2005/userkeeper/internal/dbx"
	"github.com/dmitrijs2005/userkeeper/internal/logging"
	"github.com/dmitrijs2005/userkeeper/internal/server/auth"
	"github.com/dmitrijs2005/userkeeper/internal/server/models"
	"github.com/dmitrijs2005/userkeeper/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/userkeeper/internal/server/repositories/users"
	validation "github.com/go-ozzo/ozzo-validation"
)

// Messages returned by ToggleStatus for the resulting state.
const (
	MessageBlocked   = "Blocked"
	MessageUnblocked = "Unblocked"
)

// RegisterInput carries a registration request. Only LName, Email and
// Password are required. Birthdate is YYYY-MM-DD or RFC 3339.
type RegisterInput struct {
	FName      string `json:"fname"`
	LName      string `json:"lname"`
	Patronymic string `json:"patronymic"`
	Birthdate  string `json:"birthdate"`
	Email      string `json:"email"`
	Password   string `json:"password"`
}

func (r RegisterInput) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.LName, validation.Required),
		validation.Field(&r.Email, validation.Required),
		validation.Field(&r.Password, validation.Required),
		validation.Field(&r.Birthdate, validation.By(validBirthdate)),
	)
}

type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r LoginInput) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required),
		validation.Field(&r.Password, validation.Required),
	)
}

// AuthResult is the outcome of a successful Register or Login.
type AuthResult struct {
	Token string            `json:"token"`
	User  models.PublicUser `json:"user"`
}

// StatusResult is the outcome of ToggleStatus.
type StatusResult struct {
	User    models.StatusView `json:"user"`
	Message string            `json:"message"`
}

type UserService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	hasher      auth.Hasher
	tokens      *auth.TokenService
	tokenTTL    time.Duration
	logger      logging.Logger

	// dummyHash is verified against when the email is unknown.
	dummyHash string
}

// fallbackDummyHash is a well-formed bcrypt digest at the default cost, used
// when the configured hasher cannot produce one.
const fallbackDummyHash = "$2a$10$XajjQvNhvvRt5GSeFk1xFeyqRrsxkhBkUiQeg0dt.wU1qD4aFDcga"

func NewUserService(db *sql.DB, rm repomanager.RepositoryManager, hasher auth.Hasher,
	tokens *auth.TokenService, tokenTTL time.Duration, logger logging.Logger) *UserService {
	if logger == nil {
		logger = logging.Nop()
	}
	s := &UserService{
		db:          db,
		repomanager: rm,
		hasher:      hasher,
		tokens:      tokens,
		tokenTTL:    tokenTTL,
		logger:      logger.With("module", "users"),
	}
	s.dummyHash = s.dummyDigest()
	return s
}

// Register creates an active USER account and returns a token for it.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	user, err := s.create(ctx, in, models.RoleUser)
	if err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "user registered", "user_id", user.ID)
	return s.authResult(ctx, user)
}

// CreateAdmin creates an active ADMIN account. It is meant for operator
// tooling and issues no token.
func (s *UserService) CreateAdmin(ctx context.Context, in RegisterInput) (*models.User, error) {
	user, err := s.create(ctx, in, models.RoleAdmin)
	if err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "admin created", "user_id", user.ID)
	return user, nil
}

func (s *UserService) create(ctx context.Context, in RegisterInput, role models.Role) (*models.User, error) {
	in.Email = strings.TrimSpace(in.Email)
	in.Birthdate = strings.TrimSpace(in.Birthdate)

	if err := in.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrValidationFailed, err)
	}

	birthdate, err := parseBirthdate(in.Birthdate)
	if err != nil {
		return nil, fmt.Errorf("%w: birthdate: %v", common.ErrValidationFailed, err)
	}

	repo := s.repomanager.Users(s.db)

	_, err = repo.FindByEmail(ctx, in.Email)
	switch {
	case err == nil:
		return nil, common.ErrDuplicateEmail
	case !errors.Is(err, common.ErrNotFound):
		return nil, s.internal(ctx, "find user by email", err)
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		if errors.Is(err, common.ErrValidationFailed) {
			return nil, err
		}
		return nil, s.internal(ctx, "hash password", err)
	}

	user, err := repo.Create(ctx, &models.User{
		FName:        in.FName,
		LName:        in.LName,
		Patronymic:   in.Patronymic,
		Birthdate:    birthdate,
		Email:        in.Email,
		PasswordHash: hash,
		Role:         role,
		Status:       true,
	})
	if err != nil {
		// the unique index settles concurrent registrations
		if errors.Is(err, common.ErrDuplicateEmail) {
			return nil, err
		}
		return nil, s.internal(ctx, "create user", err)
	}

	return user, nil
}

// Login checks the password and returns a fresh token. Unknown email and
// wrong password are both ErrInvalidCredentials.
func (s *UserService) Login(ctx context.Context, in LoginInput) (*AuthResult, error) {
	in.Email = strings.TrimSpace(in.Email)

	if err := in.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrValidationFailed, err)
	}

	user, err := s.repomanager.Users(s.db).FindByEmail(ctx, in.Email)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			// keep the timing of a real comparison
			s.hasher.Verify(in.Password, s.dummyHash)
			return nil, common.ErrInvalidCredentials
		}
		return nil, s.internal(ctx, "find user by email", err)
	}

	if !s.hasher.Verify(in.Password, user.PasswordHash) {
		return nil, common.ErrInvalidCredentials
	}

	return s.authResult(ctx, user)
}

// ToggleStatus inverts the target's active flag. Any authenticated caller
// may do this.
func (s *UserService) ToggleStatus(ctx context.Context, caller *auth.Identity, id int64) (*StatusResult, error) {
	if err := auth.Authorize(caller, auth.CapabilityAuthenticated, id); err != nil {
		return nil, err
	}

	var updated *models.User

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Users(tx)

		user, err := repo.FindByID(ctx, id)
		if err != nil {
			return err
		}

		status := !user.Status
		updated, err = repo.Update(ctx, id, users.UpdateFields{Status: &status})
		return err
	})
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, err
		}
		return nil, s.internal(ctx, "toggle status", err)
	}

	s.logger.Info(ctx, "user status changed", "user_id", id, "status", updated.Status, "by", caller.UserID)

	return &StatusResult{User: updated.StatusView(), Message: statusMessage(updated.Status)}, nil
}

func statusMessage(active bool) string {
	if active {
		return MessageUnblocked
	}
	return MessageBlocked
}

// GetUser returns the profile of id to its owner or an admin. The policy is
// checked before the lookup.
func (s *UserService) GetUser(ctx context.Context, caller *auth.Identity, id int64) (*models.Profile, error) {
	if err := auth.Authorize(caller, auth.CapabilitySelfOrAdmin, id); err != nil {
		return nil, err
	}

	user, err := s.repomanager.Users(s.db).FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, err
		}
		return nil, s.internal(ctx, "find user by id", err)
	}

	p := user.Profile()
	return &p, nil
}

// ListUsers returns every account, admins only.
func (s *UserService) ListUsers(ctx context.Context, caller *auth.Identity) ([]models.Summary, error) {
	if err := auth.Authorize(caller, auth.CapabilityAdmin, 0); err != nil {
		return nil, err
	}

	list, err := s.repomanager.Users(s.db).List(ctx)
	if err != nil {
		return nil, s.internal(ctx, "list users", err)
	}

	result := make([]models.Summary, 0, len(list))
	for _, u := range list {
		result = append(result, u.Summary())
	}
	return result, nil
}

// SetRole changes a user's role. It is not reachable over HTTP; operators
// use it through useradm.
func (s *UserService) SetRole(ctx context.Context, id int64, role models.Role) (*models.User, error) {
	if !role.IsValid() {
		return nil, fmt.Errorf("%w: unknown role %q", common.ErrValidationFailed, role)
	}

	user, err := s.repomanager.Users(s.db).Update(ctx, id, users.UpdateFields{Role: &role})
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, err
		}
		return nil, s.internal(ctx, "set role", err)
	}

	s.logger.Info(ctx, "user role changed", "user_id", id, "role", role)
	return user, nil
}

func (s *UserService) authResult(ctx context.Context, user *models.User) (*AuthResult, error) {
	token, err := s.tokens.Issue(auth.Identity{UserID: user.ID, Role: user.Role}, s.tokenTTL)
	if err != nil {
		return nil, s.internal(ctx, "issue token", err)
	}
	return &AuthResult{Token: token, User: user.Public()}, nil
}

func (s *UserService) dummyDigest() string {
	h, err := s.hasher.Hash("userkeeper-dummy-password")
	if err != nil || h == "" {
		s.logger.Warn(context.Background(), "dummy hash, using fallback digest", "error", err)
		return fallbackDummyHash
	}
	return h
}

func (s *UserService) internal(ctx context.Context, op string, err error) error {
	s.logger.Error(ctx, op, "error", err)
	return common.ErrInternal
}
