package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/require"

	"github.com/duersjefen/filter-ical-sub004/internal/errs"
	"github.com/duersjefen/filter-ical-sub004/internal/model"
)

func TestAccessRepo_Get(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewAccessRepo(db)
	ctx := context.Background()
	uid := uuid.Must(uuid.NewV4())

	mock.ExpectQuery(`SELECT user_id, domain_key, access_level, granted_at`).
		WithArgs(uid, "acme").
		WillReturnRows(pgxmock.NewRows([]string{"user_id", "domain_key", "access_level", "granted_at"}).
			AddRow(uid, "acme", model.LevelAdmin, time.Now()))
	g, err := r.Get(ctx, uid, "acme")
	require.NoError(t, err)
	require.Equal(t, model.LevelAdmin, g.AccessLevel)
	require.Equal(t, "acme", g.DomainKey)

	mock.ExpectQuery(`SELECT user_id, domain_key, access_level, granted_at`).
		WithArgs(uid, "other").
		WillReturnError(pgx.ErrNoRows)
	_, err = r.Get(ctx, uid, "other")
	require.ErrorIs(t, err, errs.ErrNotFound)
}

func TestAccessRepo_Upsert(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewAccessRepo(db)
	uid := uuid.Must(uuid.NewV4())

	mock.ExpectExec(`INSERT INTO user_domain_access \(user_id, domain_key, access_level, granted_at\)`).
		WithArgs(uid, "acme", "user").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	err := r.Upsert(context.Background(), &model.UserDomainAccess{
		UserID:      uid,
		DomainKey:   "acme",
		AccessLevel: model.LevelUser,
	})
	require.NoError(t, err)
}

func TestAccessRepo_Delete(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewAccessRepo(db)
	uid := uuid.Must(uuid.NewV4())

	mock.ExpectExec(`DELETE FROM user_domain_access`).
		WithArgs(uid, "acme").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	require.NoError(t, r.Delete(context.Background(), uid, "acme"))

	mock.ExpectExec(`DELETE FROM user_domain_access`).
		WithArgs(uid, "acme").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))
	require.ErrorIs(t, r.Delete(context.Background(), uid, "acme"), errs.ErrNotFound)
}
