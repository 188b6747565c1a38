package token

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/duersjefen/filter-ical-sub004/internal/errs"
	"github.com/duersjefen/filter-ical-sub004/internal/model"
)

type fakeVersions struct {
	versions map[string]int64
	err      error
}

func (f *fakeVersions) TokenVersion(_ context.Context, key string) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	v, ok := f.versions[key]
	if !ok {
		return 0, errs.ErrNotFound
	}
	return v, nil
}

var testSecret = []byte("0123456789abcdef0123456789abcdef")

func newService(t *testing.T, ttl time.Duration, versions *fakeVersions) *Service {
	t.Helper()
	s, err := NewService(testSecret, ttl, 0.5, versions)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return s
}

func TestNewService_Validation(t *testing.T) {
	t.Parallel()
	vs := &fakeVersions{}

	if _, err := NewService([]byte("short"), time.Hour, 0.5, vs); err == nil {
		t.Fatalf("want error for short secret")
	}
	if _, err := NewService([]byte("change-me-in-production!!padding"), time.Hour, 0.5, vs); err == nil {
		t.Fatalf("want error for placeholder secret")
	}
	if _, err := NewService(testSecret, 0, 0.5, vs); err == nil {
		t.Fatalf("want error for zero ttl")
	}
	if _, err := NewService(testSecret, time.Hour, 1.5, vs); err == nil {
		t.Fatalf("want error for out-of-range refresh threshold")
	}
}

func TestMintVerify_Lifecycle(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	vs := &fakeVersions{versions: map[string]int64{"acme": 2}}
	s := newService(t, time.Hour, vs)

	raw, exp, err := s.Mint("acme", model.LevelAdmin, 2)
	if err != nil {
		t.Fatalf("Mint: %v", err)
	}
	if !exp.After(time.Now()) {
		t.Fatalf("expiry not in the future: %v", exp)
	}

	claims, err := s.Verify(ctx, raw)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if claims.Subject != "acme" || claims.AccessLevel != "admin" || claims.TokenVersion != 2 {
		t.Fatalf("unexpected claims: %+v", claims)
	}

	// Rotation bumps the live version; the token becomes stale immediately
	// even though it has not expired.
	vs.versions["acme"] = 3
	if _, err := s.Verify(ctx, raw); !errors.Is(err, errs.ErrTokenStale) {
		t.Fatalf("want ErrTokenStale after version bump, got %v", err)
	}

	// Unknown domain is indistinguishable from revocation.
	vs2 := &fakeVersions{versions: map[string]int64{}}
	s2 := newService(t, time.Hour, vs2)
	raw2, _, _ := s2.Mint("gone", model.LevelUser, 1)
	if _, err := s2.Verify(ctx, raw2); !errors.Is(err, errs.ErrTokenStale) {
		t.Fatalf("want ErrTokenStale for missing domain, got %v", err)
	}
}

func TestVerify_Expired(t *testing.T) {
	t.Parallel()
	vs := &fakeVersions{versions: map[string]int64{"acme": 1}}
	s := newService(t, time.Millisecond, vs)
	raw, _, err := s.Mint("acme", model.LevelUser, 1)
	if err != nil {
		t.Fatal(err)
	}
	time.Sleep(5 * time.Millisecond)
	if _, err := s.Verify(context.Background(), raw); !errors.Is(err, errs.ErrTokenExpired) {
		t.Fatalf("want ErrTokenExpired, got %v", err)
	}
}

func TestVerify_Malformed(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	vs := &fakeVersions{versions: map[string]int64{"acme": 1}}
	s := newService(t, time.Hour, vs)

	if _, err := s.Verify(ctx, "not-a-token"); !errors.Is(err, errs.ErrTokenMalformed) {
		t.Fatalf("want ErrTokenMalformed for garbage, got %v", err)
	}

	// Tampered signature.
	raw, _, _ := s.Mint("acme", model.LevelAdmin, 1)
	forged := raw[:len(raw)-2] + "xx"
	if _, err := s.Verify(ctx, forged); !errors.Is(err, errs.ErrTokenMalformed) {
		t.Fatalf("want ErrTokenMalformed for bad signature, got %v", err)
	}

	// Token signed with a different key.
	other, _ := NewService([]byte(strings.Repeat("x", 32)), time.Hour, 0.5, vs)
	raw2, _, _ := other.Mint("acme", model.LevelAdmin, 1)
	if _, err := s.Verify(ctx, raw2); !errors.Is(err, errs.ErrTokenMalformed) {
		t.Fatalf("want ErrTokenMalformed for wrong key, got %v", err)
	}

	// Valid signature but a level tokens never legitimately carry.
	bogus := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		AccessLevel:  "root",
		TokenVersion: 1,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "acme",
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	signed, err := bogus.SignedString(testSecret)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.Verify(ctx, signed); !errors.Is(err, errs.ErrTokenMalformed) {
		t.Fatalf("want ErrTokenMalformed for bogus level, got %v", err)
	}
}

// signAt builds a token with an explicit issue time, so refresh behavior can
// be tested at any point of the lifetime without sleeping.
func signAt(t *testing.T, issuedAt time.Time, lifetime time.Duration, version int64) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		AccessLevel:  "user",
		TokenVersion: version,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "acme",
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(lifetime)),
		},
	})
	signed, err := tok.SignedString(testSecret)
	if err != nil {
		t.Fatal(err)
	}
	return signed
}

func TestRefresh_SlidingWindow(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	vs := &fakeVersions{versions: map[string]int64{"acme": 4}}
	s := newService(t, time.Hour, vs)

	// Ten percent of the lifetime elapsed: the original comes back unchanged.
	early := signAt(t, time.Now().Add(-6*time.Minute), time.Hour, 4)
	got, _, err := s.Refresh(ctx, early)
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if got != early {
		t.Fatalf("early refresh must be a no-op")
	}

	// Past the threshold: a replacement with a later expiry and same version.
	late := signAt(t, time.Now().Add(-45*time.Minute), time.Hour, 4)
	renewed, renewedExp, err := s.Refresh(ctx, late)
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if renewed == late {
		t.Fatalf("want a fresh token past the threshold")
	}
	if !renewedExp.After(time.Now().Add(15 * time.Minute)) {
		t.Fatalf("renewed expiry %v not extended", renewedExp)
	}
	claims, err := s.Verify(ctx, renewed)
	if err != nil {
		t.Fatalf("Verify renewed: %v", err)
	}
	if claims.TokenVersion != 4 || claims.AccessLevel != "user" {
		t.Fatalf("renewed token changed claims: %+v", claims)
	}
}

func TestRefresh_RejectsInvalid(t *testing.T) {
	t.Parallel()
	vs := &fakeVersions{versions: map[string]int64{"acme": 1}}
	s := newService(t, time.Hour, vs)

	if _, _, err := s.Refresh(context.Background(), "junk"); !errors.Is(err, errs.ErrTokenMalformed) {
		t.Fatalf("want ErrTokenMalformed, got %v", err)
	}

	raw, _, _ := s.Mint("acme", model.LevelAdmin, 1)
	vs.versions["acme"] = 2
	if _, _, err := s.Refresh(context.Background(), raw); !errors.Is(err, errs.ErrTokenStale) {
		t.Fatalf("stale token must not refresh, got %v", err)
	}
}
