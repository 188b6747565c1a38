// Package guard defines interfaces and implementations for brute-force
// defense of domain logins: per (domain, tier) failure counters with
// time-boxed lockout.
package guard

import (
	"context"
	"time"

	"github.com/duersjefen/filter-ical-sub004/internal/model"
)

// Guard controls login attempts and temporary lockouts per (domain, tier).
type Guard interface {
	// CheckAllowed reports whether login is currently allowed and an optional retry-after.
	CheckAllowed(ctx context.Context, domainKey string, tier model.Tier) (bool, time.Duration, error)
	// RecordFailure records a failed attempt; reports whether this attempt
	// triggered a lockout and for how long.
	RecordFailure(ctx context.Context, domainKey string, tier model.Tier) (bool, time.Duration, error)
	// RecordSuccess resets the counter and clears any lockout after a successful login.
	RecordSuccess(ctx context.Context, domainKey string, tier model.Tier) error
}
