package guard

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/duersjefen/filter-ical-sub004/internal/errs"
	"github.com/duersjefen/filter-ical-sub004/internal/model"
)

// PG is a PostgreSQL-backed guard. Counters live on the domains row itself,
// so every mutation is a single UPDATE and concurrent failures serialize on
// the row lock instead of racing a read-then-write.
type PG struct {
	pool      pgxQuerier
	threshold int
	window    time.Duration
}

type pgxQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// NewPG constructs a PostgreSQL-backed guard. threshold is the number of
// consecutive failures that triggers a lockout, window is its duration.
func NewPG(pool *pgxpool.Pool, threshold int, window time.Duration) *PG {
	return &PG{pool: pool, threshold: threshold, window: window}
}

// NewPGWithQuerier constructs a PostgreSQL-backed guard over a custom querier.
func NewPGWithQuerier(q pgxQuerier, threshold int, window time.Duration) *PG {
	return &PG{pool: q, threshold: threshold, window: window}
}

// tierColumns maps a tier to its counter and lockout columns.
func tierColumns(tier model.Tier) (failCol, lockCol string, err error) {
	switch tier {
	case model.TierAdmin:
		return "admin_failed_attempts", "admin_locked_until", nil
	case model.TierUser:
		return "user_failed_attempts", "user_locked_until", nil
	}
	return "", "", fmt.Errorf("unknown tier %q", tier)
}

// CheckAllowed reports whether login is currently allowed and a retry-after duration.
func (g *PG) CheckAllowed(ctx context.Context, domainKey string, tier model.Tier) (bool, time.Duration, error) {
	_, lockCol, err := tierColumns(tier)
	if err != nil {
		return false, 0, err
	}
	q := fmt.Sprintf(`SELECT %s FROM domains WHERE domain_key=$1`, lockCol)
	var lockedUntil *time.Time
	switch err := g.pool.QueryRow(ctx, q, domainKey).Scan(&lockedUntil); {
	case err == nil:
		if lockedUntil != nil && lockedUntil.After(time.Now()) {
			return false, time.Until(*lockedUntil), nil
		}
		return true, 0, nil
	case errors.Is(err, pgx.ErrNoRows):
		return false, 0, errs.ErrNotFound
	default:
		return false, 0, err
	}
}

// RecordFailure increments the failure counter in one atomic statement.
// On reaching the threshold it sets locked_until and resets the counter to 0,
// so a later lockout requires a fresh run of failures.
func (g *PG) RecordFailure(ctx context.Context, domainKey string, tier model.Tier) (bool, time.Duration, error) {
	failCol, lockCol, err := tierColumns(tier)
	if err != nil {
		return false, 0, err
	}
	// Attempts racing in after a lockout was placed must not count towards a
	// second one, so the increment is guarded by the lock being inactive.
	q := fmt.Sprintf(`
UPDATE domains SET
  %[1]s = CASE WHEN %[2]s > now() THEN %[1]s
               WHEN %[1]s + 1 >= $2 THEN 0
               ELSE %[1]s + 1 END,
  %[2]s = CASE WHEN %[2]s > now() THEN %[2]s
               WHEN %[1]s + 1 >= $2 THEN now() + $3::interval
               ELSE %[2]s END,
  updated_at = now()
WHERE domain_key = $1
RETURNING %[1]s, %[2]s`, failCol, lockCol)
	var fails int
	var lockedUntil *time.Time
	if err := g.pool.QueryRow(ctx, q, domainKey, g.threshold, g.window).Scan(&fails, &lockedUntil); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, 0, errs.ErrNotFound
		}
		return false, 0, err
	}
	// The transition leaves the counter at 0 with a future lockout.
	if fails == 0 && lockedUntil != nil && lockedUntil.After(time.Now()) {
		return true, time.Until(*lockedUntil), nil
	}
	return false, 0, nil
}

// RecordSuccess resets the counter and clears any lockout.
func (g *PG) RecordSuccess(ctx context.Context, domainKey string, tier model.Tier) error {
	failCol, lockCol, err := tierColumns(tier)
	if err != nil {
		return err
	}
	q := fmt.Sprintf(`
UPDATE domains SET %s = 0, %s = NULL, updated_at = now() WHERE domain_key = $1`, failCol, lockCol)
	_, err = g.pool.Exec(ctx, q, domainKey)
	return err
}
