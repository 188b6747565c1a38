package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/duersjefen/filter-ical-sub004/internal/errs"
	"github.com/duersjefen/filter-ical-sub004/internal/model"
)

// DomainRepo implements DomainRepository using PostgreSQL.
type DomainRepo struct{ db *DB }

// NewDomainRepo constructs a domain repository.
func NewDomainRepo(db *DB) *DomainRepo { return &DomainRepo{db: db} }

// passwordColumn maps a tier to its ciphertext column.
func passwordColumn(tier model.Tier) (string, error) {
	switch tier {
	case model.TierAdmin:
		return "admin_password_ciphertext", nil
	case model.TierUser:
		return "user_password_ciphertext", nil
	}
	return "", fmt.Errorf("unknown tier %q", tier)
}

// Create inserts a new domain row with default auth state (unprotected, version 1).
func (r *DomainRepo) Create(ctx context.Context, key string) error {
	const q = `INSERT INTO domains (domain_key) VALUES ($1)`
	_, err := r.db.Pool.Exec(ctx, q, key)
	if isUniqueViolation(err) {
		return errs.ErrAlreadyExists
	}
	return err
}

// GetByKey selects a domain with its full authentication state.
func (r *DomainRepo) GetByKey(ctx context.Context, key string) (*model.Domain, error) {
	const q = `
SELECT domain_key, admin_password_ciphertext, user_password_ciphertext, token_version,
       admin_failed_attempts, admin_locked_until, user_failed_attempts, user_locked_until,
       created_at, updated_at
FROM domains WHERE domain_key=$1`
	row := r.db.Pool.QueryRow(ctx, q, key)
	var d model.Domain
	if err := row.Scan(
		&d.Key, &d.AdminCiphertext, &d.UserCiphertext, &d.TokenVersion,
		&d.AdminFailedAttempts, &d.AdminLockedUntil, &d.UserFailedAttempts, &d.UserLockedUntil,
		&d.CreatedAt, &d.UpdatedAt,
	); err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, err
		}
		return nil, errs.ErrNotFound
	}
	return &d, nil
}

// TokenVersion reads the live token_version; used on every token verification.
func (r *DomainRepo) TokenVersion(ctx context.Context, key string) (int64, error) {
	const q = `SELECT token_version FROM domains WHERE domain_key=$1`
	var ver int64
	if err := r.db.Pool.QueryRow(ctx, q, key).Scan(&ver); err != nil {
		if errors.Is(err, context.Canceled) {
			return 0, err
		}
		return 0, errs.ErrNotFound
	}
	return ver, nil
}

// SetPassword writes (or clears) a tier's ciphertext and bumps token_version
// in a single statement, so rotation and revocation are one atomic unit.
func (r *DomainRepo) SetPassword(ctx context.Context, key string, tier model.Tier, ciphertext []byte) (int64, error) {
	col, err := passwordColumn(tier)
	if err != nil {
		return 0, err
	}
	q := fmt.Sprintf(`
UPDATE domains
SET %s = $2, token_version = token_version + 1, updated_at = now()
WHERE domain_key = $1
RETURNING token_version`, col)
	var ver int64
	if err := r.db.Pool.QueryRow(ctx, q, key, ciphertext).Scan(&ver); err != nil {
		if errors.Is(err, context.Canceled) {
			return 0, err
		}
		return 0, errs.ErrNotFound
	}
	return ver, nil
}
