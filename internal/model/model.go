// Package model defines domain entities used by services and repositories.
package model

import (
	"fmt"
	"time"

	"github.com/gofrs/uuid/v5"
)

// Tier is one of the two independently password-protectable access tiers of a domain.
type Tier string

const (
	TierAdmin Tier = "admin"
	TierUser  Tier = "user"
)

// ParseTier validates a tier name coming from a URL or request body.
func ParseTier(s string) (Tier, error) {
	switch Tier(s) {
	case TierAdmin, TierUser:
		return Tier(s), nil
	}
	return "", fmt.Errorf("unknown tier %q", s)
}

// Level returns the access level a successful verification against this tier grants.
func (t Tier) Level() AccessLevel {
	if t == TierAdmin {
		return LevelAdmin
	}
	return LevelUser
}

// AccessLevel describes what an authenticated caller may do,
// totally ordered: none < user < admin.
type AccessLevel string

const (
	LevelNone  AccessLevel = "none"
	LevelUser  AccessLevel = "user"
	LevelAdmin AccessLevel = "admin"
)

// ParseAccessLevel validates a grantable level ("user" or "admin").
func ParseAccessLevel(s string) (AccessLevel, error) {
	switch AccessLevel(s) {
	case LevelUser, LevelAdmin:
		return AccessLevel(s), nil
	}
	return LevelNone, fmt.Errorf("unknown access level %q", s)
}

func (l AccessLevel) rank() int {
	switch l {
	case LevelAdmin:
		return 2
	case LevelUser:
		return 1
	}
	return 0
}

// AtLeast reports whether l satisfies the required minimum level.
func (l AccessLevel) AtLeast(minimum AccessLevel) bool { return l.rank() >= minimum.rank() }

// Valid reports whether l is one of the three known levels.
func (l AccessLevel) Valid() bool {
	return l == LevelNone || l == LevelUser || l == LevelAdmin
}

// Domain is one tenant calendar configuration. A nil ciphertext means the
// tier is unprotected. TokenVersion is bumped on every password change and
// stamped into tokens, which is the revocation mechanism.
type Domain struct {
	Key                 string
	AdminCiphertext     []byte
	UserCiphertext      []byte
	TokenVersion        int64
	AdminFailedAttempts int
	AdminLockedUntil    *time.Time
	UserFailedAttempts  int
	UserLockedUntil     *time.Time
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// Ciphertext returns the stored password ciphertext for a tier (nil if unprotected).
func (d *Domain) Ciphertext(t Tier) []byte {
	if t == TierAdmin {
		return d.AdminCiphertext
	}
	return d.UserCiphertext
}

// UserDomainAccess is a persistent, user-scoped grant independent of passwords.
// At most one row exists per (UserID, DomainKey); re-granting overwrites.
type UserDomainAccess struct {
	UserID      uuid.UUID
	DomainKey   string
	AccessLevel AccessLevel
	GrantedAt   time.Time
}

// Session is the result of a successful login: the granted level and a bearer token.
type Session struct {
	Level     AccessLevel
	Token     string
	ExpiresAt time.Time
}
