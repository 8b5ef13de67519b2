// Package common defines shared constants and sentinel errors used across
// the userkeeper server, its transports and the operator CLI. Callers should
// use errors.Is to match these values.
package common

import "errors"

var (
	// Input errors, correctable by the caller.
	ErrValidationFailed = errors.New("validation failed")
	ErrDuplicateEmail   = errors.New("email already registered")

	// Login failure. Deliberately the same for unknown email and wrong password.
	ErrInvalidCredentials = errors.New("invalid email or password")

	// Missing, malformed, tampered or expired bearer token.
	ErrAuthenticationRequired = errors.New("authentication required")

	// Authenticated caller lacking the required capability.
	ErrForbidden = errors.New("forbidden")

	// Repository-level errors.
	ErrNotFound = errors.New("not found")

	ErrInternal = errors.New("internal error")
)
