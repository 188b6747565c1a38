package postgres

import (
	"context"
	"errors"

	"github.com/duersjefen/filter-ical-sub004/internal/errs"
	"github.com/duersjefen/filter-ical-sub004/internal/model"
	"github.com/gofrs/uuid/v5"
)

// AccessRepo implements AccessRepository using PostgreSQL.
type AccessRepo struct{ db *DB }

// NewAccessRepo constructs an access grant repository.
func NewAccessRepo(db *DB) *AccessRepo { return &AccessRepo{db: db} }

// Get selects the grant for (userID, domainKey).
func (r *AccessRepo) Get(ctx context.Context, userID uuid.UUID, domainKey string) (*model.UserDomainAccess, error) {
	const q = `
SELECT user_id, domain_key, access_level, granted_at
FROM user_domain_access WHERE user_id=$1 AND domain_key=$2`
	row := r.db.Pool.QueryRow(ctx, q, userID, domainKey)
	var g model.UserDomainAccess
	if err := row.Scan(&g.UserID, &g.DomainKey, &g.AccessLevel, &g.GrantedAt); err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, err
		}
		return nil, errs.ErrNotFound
	}
	return &g, nil
}

// Upsert inserts or overwrites the single grant row for (userID, domainKey).
// Re-granting replaces the level rather than adding a second row.
func (r *AccessRepo) Upsert(ctx context.Context, grant *model.UserDomainAccess) error {
	const q = `
INSERT INTO user_domain_access (user_id, domain_key, access_level, granted_at)
VALUES ($1, $2, $3, now())
ON CONFLICT (user_id, domain_key)
DO UPDATE SET access_level = EXCLUDED.access_level, granted_at = now()`
	_, err := r.db.Pool.Exec(ctx, q, grant.UserID, grant.DomainKey, string(grant.AccessLevel))
	return err
}

// Delete removes the grant row.
func (r *AccessRepo) Delete(ctx context.Context, userID uuid.UUID, domainKey string) error {
	const q = `DELETE FROM user_domain_access WHERE user_id=$1 AND domain_key=$2`
	tag, err := r.db.Pool.Exec(ctx, q, userID, domainKey)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}
