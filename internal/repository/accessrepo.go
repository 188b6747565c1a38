package repository

import (
	"context"

	"github.com/duersjefen/filter-ical-sub004/internal/model"
	"github.com/gofrs/uuid/v5"
)

// AccessRepository stores persistent per-user domain grants.
type AccessRepository interface {
	// Get loads the grant for (userID, domainKey).
	Get(ctx context.Context, userID uuid.UUID, domainKey string) (*model.UserDomainAccess, error)
	// Upsert inserts or overwrites the single grant row for (userID, domainKey).
	Upsert(ctx context.Context, grant *model.UserDomainAccess) error
	// Delete removes the grant row.
	Delete(ctx context.Context, userID uuid.UUID, domainKey string) error
}
