// Package auth implements credential hashing, access token issuance and
// verification, and the access policy that gates per-user operations.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/dmitrijs2005/userkeeper/internal/common"
	"github.com/dmitrijs2005/userkeeper/internal/logging"
	"github.com/dmitrijs2005/userkeeper/internal/server/models"
	"github.com/golang-jwt/jwt/v5"
)

// Identity is the caller a verified token speaks for. Role is a snapshot
// taken at issuance; it is not re-read from the store on verification.
type Identity struct {
	UserID int64
	Role   models.Role
}

// Claims is the signed token payload: registered claims plus user id and role.
type Claims struct {
	jwt.RegisteredClaims
	UserID int64       `json:"id"`
	Role   models.Role `json:"role"`
}

// TokenService issues and verifies HS256 access tokens with a single
// process-wide secret. It holds no per-token state.
type TokenService struct {
	secret []byte
	now    func() time.Time
	logger logging.Logger
}

type TokenOption func(*TokenService)

// WithClock overrides the time source used for issuing and expiry checks.
func WithClock(now func() time.Time) TokenOption {
	return func(ts *TokenService) { ts.now = now }
}

func NewTokenService(secret []byte, logger logging.Logger, opts ...TokenOption) (*TokenService, error) {
	if len(secret) == 0 {
		return nil, errors.New("token secret is empty")
	}
	if logger == nil {
		logger = logging.Nop()
	}

	ts := &TokenService{
		secret: append([]byte(nil), secret...),
		now:    time.Now,
		logger: logger.With("module", "token_service"),
	}
	for _, opt := range opts {
		opt(ts)
	}
	return ts, nil
}

// Issue signs a token for id that expires ttl from now.
func (ts *TokenService) Issue(id Identity, ttl time.Duration) (string, error) {
	now := ts.now()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(id.UserID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		UserID: id.UserID,
		Role:   id.Role,
	})

	tokenString, err := token.SignedString(ts.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}

	return tokenString, nil
}

// Verify checks signature, algorithm and expiry and returns the signed
// identity. Every failure yields common.ErrAuthenticationRequired; the
// concrete reason is only logged at debug level.
func (ts *TokenService) Verify(ctx context.Context, tokenString string) (Identity, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return ts.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithStrictDecoding(),
		jwt.WithTimeFunc(ts.now),
	)
	if err != nil {
		ts.logger.Debug(ctx, "token rejected", "reason", err.Error())
		return Identity{}, common.ErrAuthenticationRequired
	}

	if !token.Valid {
		ts.logger.Debug(ctx, "token rejected", "reason", "invalid")
		return Identity{}, common.ErrAuthenticationRequired
	}

	if claims.UserID <= 0 || !claims.Role.IsValid() {
		ts.logger.Debug(ctx, "token rejected", "reason", "bad identity claims")
		return Identity{}, common.ErrAuthenticationRequired
	}

	return Identity{UserID: claims.UserID, Role: claims.Role}, nil
}
