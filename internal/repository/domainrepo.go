// Package repository defines storage interfaces implemented by concrete backends.
package repository

import (
	"context"

	"github.com/duersjefen/filter-ical-sub004/internal/model"
)

// DomainRepository provides access to domain authentication state.
type DomainRepository interface {
	// Create inserts a new domain row with default auth state.
	Create(ctx context.Context, key string) error
	// GetByKey loads a domain by its key.
	GetByKey(ctx context.Context, key string) (*model.Domain, error)
	// TokenVersion returns the domain's current token version.
	TokenVersion(ctx context.Context, key string) (int64, error)
	// SetPassword stores (or clears, when ciphertext is nil) a tier's password
	// ciphertext and increments token_version in the same statement. It returns
	// the new version. The combined update is what makes rotation revoke
	// outstanding tokens.
	SetPassword(ctx context.Context, key string, tier model.Tier, ciphertext []byte) (int64, error)
}
