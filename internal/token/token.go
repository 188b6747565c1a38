// Package token mints and verifies signed, expiring, versioned bearer tokens.
//
// A token is a self-contained HS256 JWT carrying the domain key (subject),
// access level and the domain's token_version at mint time. Verification
// re-reads the live version, which turns password rotation into instant
// revocation of every outstanding token without a blacklist.
package token

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/duersjefen/filter-ical-sub004/internal/errs"
	"github.com/duersjefen/filter-ical-sub004/internal/model"
)

// MinSecretLen is the minimum accepted signing secret length in bytes.
const MinSecretLen = 32

// placeholderSecrets mark secrets that were clearly never rotated away from
// an example configuration; they are rejected regardless of length.
var placeholderSecrets = []string{
	"changeme", "change-me", "change_me", "placeholder", "dev-secret", "example",
}

// Claims is the signed claim set carried by a bearer token.
// The domain key doubles as the registered Subject.
type Claims struct {
	AccessLevel  string `json:"access_level"`
	TokenVersion int64  `json:"token_version"`
	jwt.RegisteredClaims
}

// VersionSource supplies a domain's current token_version. Implemented by
// the Postgres domain repository.
type VersionSource interface {
	TokenVersion(ctx context.Context, domainKey string) (int64, error)
}

// Service mints, verifies and refreshes bearer tokens.
type Service struct {
	secret           []byte
	ttl              time.Duration
	refreshThreshold float64
	versions         VersionSource
}

// NewService constructs a token service. It refuses short or placeholder
// secrets so that forging tokens is never feasible by guessing; this check
// runs at boot, not at first request.
func NewService(secret []byte, ttl time.Duration, refreshThreshold float64, versions VersionSource) (*Service, error) {
	if len(secret) < MinSecretLen {
		return nil, fmt.Errorf("token: signing secret must be at least %d bytes", MinSecretLen)
	}
	lowered := strings.ToLower(string(secret))
	for _, p := range placeholderSecrets {
		if strings.Contains(lowered, p) {
			return nil, errors.New("token: signing secret is a known placeholder")
		}
	}
	if ttl <= 0 {
		return nil, errors.New("token: ttl must be positive")
	}
	if refreshThreshold <= 0 || refreshThreshold >= 1 {
		return nil, errors.New("token: refresh threshold must be in (0,1)")
	}
	return &Service{secret: secret, ttl: ttl, refreshThreshold: refreshThreshold, versions: versions}, nil
}

// Mint creates a signed HS256 token for the given domain, level and version.
func (s *Service) Mint(domainKey string, level model.AccessLevel, version int64) (string, time.Time, error) {
	now := time.Now()
	exp := now.Add(s.ttl)
	claims := Claims{
		AccessLevel:  string(level),
		TokenVersion: version,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   domainKey,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tok.SignedString(s.secret)
	return signed, exp, err
}

// Verify checks signature, expiry and then the live token_version.
// The version lookup is the single point where verification touches
// persistent state.
func (s *Service) Verify(ctx context.Context, raw string) (*Claims, error) {
	var claims Claims
	parsed, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return s.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, errs.ErrTokenExpired
		}
		return nil, errs.ErrTokenMalformed
	}
	if !parsed.Valid || claims.Subject == "" {
		return nil, errs.ErrTokenMalformed
	}
	if lvl := model.AccessLevel(claims.AccessLevel); !lvl.Valid() || lvl == model.LevelNone {
		return nil, errs.ErrTokenMalformed
	}

	ver, err := s.versions.TokenVersion(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return nil, errs.ErrTokenStale
		}
		return nil, err
	}
	if ver != claims.TokenVersion {
		return nil, errs.ErrTokenStale
	}
	return &claims, nil
}

// Refresh re-mints a valid token once the configured fraction of its
// lifetime has elapsed, keeping the same version. Before that point the
// original token is returned unchanged, so active callers renew on a
// sliding window and are never abruptly logged out.
func (s *Service) Refresh(ctx context.Context, raw string) (string, time.Time, error) {
	claims, err := s.Verify(ctx, raw)
	if err != nil {
		return "", time.Time{}, err
	}
	if claims.IssuedAt == nil || claims.ExpiresAt == nil {
		return "", time.Time{}, errs.ErrTokenMalformed
	}
	lifetime := claims.ExpiresAt.Sub(claims.IssuedAt.Time)
	if lifetime <= 0 {
		return "", time.Time{}, errs.ErrTokenMalformed
	}
	elapsed := time.Since(claims.IssuedAt.Time)
	if float64(elapsed)/float64(lifetime) < s.refreshThreshold {
		return raw, claims.ExpiresAt.Time, nil
	}
	return s.Mint(claims.Subject, model.AccessLevel(claims.AccessLevel), claims.TokenVersion)
}
