// Package errs contains sentinel errors used across layers for stable error mapping.
package errs

import (
	"errors"
	"time"
)

// Common sentinels across repo/service layers.
var (
	// ErrNotFound indicates the requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates a unique constraint violation (e.g., domain key taken).
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidCredentials indicates a wrong domain password.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrForbidden indicates the caller's access level is below the required one.
	ErrForbidden = errors.New("forbidden")

	// ErrTokenExpired indicates a bearer token past its expiry.
	ErrTokenExpired = errors.New("token expired")

	// ErrTokenStale indicates a token whose version no longer matches the domain's
	// current token_version (revoked by password rotation).
	ErrTokenStale = errors.New("token stale")

	// ErrTokenMalformed indicates a token that failed parsing or signature checks.
	ErrTokenMalformed = errors.New("token malformed")

	// ErrIntegrity indicates stored ciphertext that failed AEAD authentication.
	// Either the key is wrong or the ciphertext was tampered with; it must never
	// be treated as "no password set".
	ErrIntegrity = errors.New("ciphertext integrity violation")
)

// LockedError reports a temporary login lockout with a retry hint.
type LockedError struct {
	RetryAfter time.Duration
}

func (e *LockedError) Error() string { return "locked" }
