package service

import (
	"context"
	"errors"

	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"

	"github.com/duersjefen/filter-ical-sub004/internal/model"
	"github.com/duersjefen/filter-ical-sub004/internal/repository"
	"github.com/duersjefen/filter-ical-sub004/internal/vault"
)

// PasswordAdmin manages domain passwords and persistent user grants.
// Every password mutation increments the domain's token_version, revoking
// all outstanding tokens for that domain.
type PasswordAdmin interface {
	// CreateDomain registers a domain's auth state row, unprotected, version 1.
	CreateDomain(ctx context.Context, domainKey string) error
	// Set encrypts and stores a tier's password; returns the new token version.
	Set(ctx context.Context, domainKey string, tier model.Tier, password string) (int64, error)
	// Remove clears a tier's password, leaving the tier unprotected; returns the new token version.
	Remove(ctx context.Context, domainKey string, tier model.Tier) (int64, error)
	// Grant upserts a persistent user grant; a higher level overwrites.
	Grant(ctx context.Context, userID uuid.UUID, domainKey string, level model.AccessLevel) error
	// Revoke removes a persistent user grant.
	Revoke(ctx context.Context, userID uuid.UUID, domainKey string) error
}

// PasswordAdminImpl implements PasswordAdmin on top of the vault and repositories.
type PasswordAdminImpl struct {
	domains repository.DomainRepository
	access  repository.AccessRepository
	vault   *vault.Vault
	log     *zap.Logger
}

// NewPasswordAdmin constructs the password administration service.
func NewPasswordAdmin(domains repository.DomainRepository, access repository.AccessRepository, v *vault.Vault, log *zap.Logger) *PasswordAdminImpl {
	return &PasswordAdminImpl{domains: domains, access: access, vault: v, log: log}
}

// CreateDomain registers a new domain. Both tiers start unprotected.
func (s *PasswordAdminImpl) CreateDomain(ctx context.Context, domainKey string) error {
	if domainKey == "" {
		return errors.New("empty domain key")
	}
	if err := s.domains.Create(ctx, domainKey); err != nil {
		return err
	}
	s.log.Info("domain registered", zap.String("domain", domainKey))
	return nil
}

// Set encrypts the new password bound to (domain, tier) and stores it.
// The repository bumps token_version in the same statement.
func (s *PasswordAdminImpl) Set(ctx context.Context, domainKey string, tier model.Tier, password string) (int64, error) {
	if password == "" {
		return 0, errors.New("empty password")
	}
	ct, err := s.vault.Encrypt([]byte(password), vault.Bind(domainKey, string(tier)))
	if err != nil {
		return 0, err
	}
	ver, err := s.domains.SetPassword(ctx, domainKey, tier, ct)
	if err != nil {
		return 0, err
	}
	s.log.Info("domain password set",
		zap.String("domain", domainKey),
		zap.String("tier", string(tier)),
		zap.Int64("token_version", ver),
	)
	return ver, nil
}

// Remove clears the tier's ciphertext. The version bump still happens, so
// tokens minted while the tier was protected stop verifying.
func (s *PasswordAdminImpl) Remove(ctx context.Context, domainKey string, tier model.Tier) (int64, error) {
	ver, err := s.domains.SetPassword(ctx, domainKey, tier, nil)
	if err != nil {
		return 0, err
	}
	s.log.Info("domain password removed",
		zap.String("domain", domainKey),
		zap.String("tier", string(tier)),
		zap.Int64("token_version", ver),
	)
	return ver, nil
}

// Grant upserts the single grant row for (userID, domainKey).
func (s *PasswordAdminImpl) Grant(ctx context.Context, userID uuid.UUID, domainKey string, level model.AccessLevel) error {
	if userID == uuid.Nil {
		return errors.New("empty user id")
	}
	if level != model.LevelUser && level != model.LevelAdmin {
		return errors.New("grant level must be user or admin")
	}
	return s.access.Upsert(ctx, &model.UserDomainAccess{
		UserID:      userID,
		DomainKey:   domainKey,
		AccessLevel: level,
	})
}

// Revoke removes the grant row.
func (s *PasswordAdminImpl) Revoke(ctx context.Context, userID uuid.UUID, domainKey string) error {
	return s.access.Delete(ctx, userID, domainKey)
}
