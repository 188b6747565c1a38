// Package service contains application services for access resolution and
// password administration.
package service

import (
	"context"
	"errors"
	"time"

	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"

	"github.com/duersjefen/filter-ical-sub004/internal/errs"
	"github.com/duersjefen/filter-ical-sub004/internal/guard"
	"github.com/duersjefen/filter-ical-sub004/internal/model"
	"github.com/duersjefen/filter-ical-sub004/internal/observability/metrics"
	"github.com/duersjefen/filter-ical-sub004/internal/repository"
	"github.com/duersjefen/filter-ical-sub004/internal/token"
	"github.com/duersjefen/filter-ical-sub004/internal/vault"
)

// TokenService abstracts minting, verification and refresh for the resolver
// and HTTP layer.
type TokenService interface {
	Mint(domainKey string, level model.AccessLevel, version int64) (string, time.Time, error)
	Verify(ctx context.Context, raw string) (*token.Claims, error)
	Refresh(ctx context.Context, raw string) (string, time.Time, error)
}

// Request carries everything a protected endpoint knows about its caller.
type Request struct {
	DomainKey   string
	Tier        model.Tier // tier whose protection applies to the requested operation
	BearerToken string
	Password    string
	UserID      *uuid.UUID // authenticated user session, resolved upstream
}

// Decision is the outcome of access resolution. Session is non-nil only when
// a password login minted a fresh token.
type Decision struct {
	Level   model.AccessLevel
	Session *model.Session
}

// AccessResolver is the single authorization decision point consumed by
// every protected endpoint.
type AccessResolver interface {
	// Resolve answers "what access level, if any, does this request have".
	Resolve(ctx context.Context, req Request) (Decision, error)
	// Login verifies a freshly supplied domain password and mints a token.
	Login(ctx context.Context, domainKey string, tier model.Tier, password string) (model.Session, error)
}

// RequireAtLeast rejects decisions below the required level.
func RequireAtLeast(d Decision, required model.AccessLevel) error {
	if !d.Level.AtLeast(required) {
		return errs.ErrForbidden
	}
	return nil
}

// AccessResolverImpl orchestrates the guard, vault, token service and
// repositories into access decisions.
type AccessResolverImpl struct {
	domains repository.DomainRepository
	access  repository.AccessRepository
	vault   *vault.Vault
	tokens  TokenService
	guard   guard.Guard
	log     *zap.Logger
}

// NewAccessResolver constructs the resolver with required dependencies.
func NewAccessResolver(
	domains repository.DomainRepository,
	access repository.AccessRepository,
	v *vault.Vault,
	tokens TokenService,
	g guard.Guard,
	log *zap.Logger,
) *AccessResolverImpl {
	return &AccessResolverImpl{domains: domains, access: access, vault: v, tokens: tokens, guard: g, log: log}
}

// Resolve applies the decision order: bearer token, then password login,
// then persistent grant, then the unprotected-tier fallback. Only the
// password path has side effects.
func (r *AccessResolverImpl) Resolve(ctx context.Context, req Request) (Decision, error) {
	none := Decision{Level: model.LevelNone}

	if req.BearerToken != "" {
		claims, err := r.tokens.Verify(ctx, req.BearerToken)
		if err != nil {
			return none, err
		}
		// A token for one domain must never open another.
		if claims.Subject != req.DomainKey {
			return none, errs.ErrTokenMalformed
		}
		return Decision{Level: model.AccessLevel(claims.AccessLevel)}, nil
	}

	if req.Password != "" {
		sess, err := r.Login(ctx, req.DomainKey, req.Tier, req.Password)
		if err != nil {
			return none, err
		}
		return Decision{Level: sess.Level, Session: &sess}, nil
	}

	if req.UserID != nil {
		g, err := r.access.Get(ctx, *req.UserID, req.DomainKey)
		switch {
		case err == nil:
			return Decision{Level: g.AccessLevel}, nil
		case !errors.Is(err, errs.ErrNotFound):
			return none, err
		}
	}

	// No credential at all: an unconfigured tier is open, not denied.
	d, err := r.domains.GetByKey(ctx, req.DomainKey)
	if err != nil {
		return none, err
	}
	if d.Ciphertext(req.Tier) == nil {
		return Decision{Level: req.Tier.Level()}, nil
	}
	return none, nil
}

// Login runs the password flow: lockout check, constant-time verification,
// counter bookkeeping and token minting.
func (r *AccessResolverImpl) Login(ctx context.Context, domainKey string, tier model.Tier, password string) (model.Session, error) {
	d, err := r.domains.GetByKey(ctx, domainKey)
	if err != nil {
		return model.Session{}, err
	}

	ct := d.Ciphertext(tier)
	if ct == nil {
		// Unprotected tier: open regardless of what was supplied.
		return r.mint(domainKey, tier.Level(), d.TokenVersion)
	}

	allowed, retryAfter, err := r.guard.CheckAllowed(ctx, domainKey, tier)
	if err != nil {
		return model.Session{}, err
	}
	if !allowed {
		return model.Session{}, &errs.LockedError{RetryAfter: retryAfter}
	}

	ok, err := r.vault.Verify(password, ct, vault.Bind(domainKey, string(tier)))
	if err != nil {
		// Key mismatch or tampering, not a wrong password. Security relevant.
		r.log.Error("stored ciphertext failed authentication",
			zap.String("domain", domainKey),
			zap.String("tier", string(tier)),
		)
		return model.Session{}, err
	}
	if !ok {
		if locked, retry, ferr := r.guard.RecordFailure(ctx, domainKey, tier); ferr == nil && locked {
			metrics.ObserveLockout(string(tier))
			r.log.Warn("domain tier locked after repeated failures",
				zap.String("domain", domainKey),
				zap.String("tier", string(tier)),
				zap.Duration("retry_after", retry),
			)
			return model.Session{}, &errs.LockedError{RetryAfter: retry}
		}
		return model.Session{}, errs.ErrInvalidCredentials
	}

	// Success: reset counters (best-effort).
	_ = r.guard.RecordSuccess(ctx, domainKey, tier)

	return r.mint(domainKey, tier.Level(), d.TokenVersion)
}

func (r *AccessResolverImpl) mint(domainKey string, level model.AccessLevel, version int64) (model.Session, error) {
	raw, exp, err := r.tokens.Mint(domainKey, level, version)
	if err != nil {
		return model.Session{}, err
	}
	return model.Session{Level: level, Token: raw, ExpiresAt: exp}, nil
}
