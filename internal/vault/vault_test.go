package vault

import (
	"bytes"
	"crypto/rand"
	"errors"
	"testing"

	"github.com/duersjefen/filter-ical-sub004/internal/errs"
)

func testKey(t *testing.T) []byte {
	t.Helper()
	key := make([]byte, KeySize)
	if _, err := rand.Read(key); err != nil {
		t.Fatalf("rand: %v", err)
	}
	return key
}

func TestNew_RejectsBadKeys(t *testing.T) {
	t.Parallel()

	if _, err := New(nil); err == nil {
		t.Fatalf("want error for nil key")
	}
	if _, err := New(make([]byte, 16)); err == nil {
		t.Fatalf("want error for short key")
	}
	if _, err := New(make([]byte, KeySize)); err == nil {
		t.Fatalf("want error for all-zero key")
	}
	if _, err := New(bytes.Repeat([]byte{0x41}, KeySize)); err == nil {
		t.Fatalf("want error for uniform placeholder key")
	}
	if _, err := New(testKey(t)); err != nil {
		t.Fatalf("want random key accepted: %v", err)
	}
}

func TestEncryptDecrypt_RoundTrip(t *testing.T) {
	t.Parallel()
	v, err := New(testKey(t))
	if err != nil {
		t.Fatal(err)
	}
	aad := Bind("acme", "admin")

	for _, pw := range []string{"", "p", "correct-horse", "päßwörd ☂"} {
		ct, err := v.Encrypt([]byte(pw), aad)
		if err != nil {
			t.Fatalf("encrypt %q: %v", pw, err)
		}
		pt, err := v.Decrypt(ct, aad)
		if err != nil {
			t.Fatalf("decrypt %q: %v", pw, err)
		}
		if string(pt) != pw {
			t.Fatalf("round trip mismatch: got %q want %q", pt, pw)
		}
	}
}

func TestDecrypt_TamperDetection(t *testing.T) {
	t.Parallel()
	v, _ := New(testKey(t))
	aad := Bind("acme", "admin")
	ct, err := v.Encrypt([]byte("correct-horse"), aad)
	if err != nil {
		t.Fatal(err)
	}

	// Flip one bit at every position; decryption must always fail.
	for i := range ct {
		mut := append([]byte(nil), ct...)
		mut[i] ^= 0x01
		if _, err := v.Decrypt(mut, aad); !errors.Is(err, errs.ErrIntegrity) {
			t.Fatalf("bit flip at %d not detected, err=%v", i, err)
		}
	}

	if _, err := v.Decrypt(ct[:5], aad); !errors.Is(err, errs.ErrIntegrity) {
		t.Fatalf("truncated ciphertext not detected, err=%v", err)
	}
}

func TestDecrypt_BoundToDomainAndTier(t *testing.T) {
	t.Parallel()
	v, _ := New(testKey(t))
	ct, err := v.Encrypt([]byte("pw"), Bind("acme", "admin"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := v.Decrypt(ct, Bind("other", "admin")); !errors.Is(err, errs.ErrIntegrity) {
		t.Fatalf("cross-domain replay accepted, err=%v", err)
	}
	if _, err := v.Decrypt(ct, Bind("acme", "user")); !errors.Is(err, errs.ErrIntegrity) {
		t.Fatalf("cross-tier replay accepted, err=%v", err)
	}
}

func TestDecrypt_WrongKey(t *testing.T) {
	t.Parallel()
	v1, _ := New(testKey(t))
	v2, _ := New(testKey(t))
	aad := Bind("acme", "user")
	ct, err := v1.Encrypt([]byte("pw"), aad)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := v2.Decrypt(ct, aad); !errors.Is(err, errs.ErrIntegrity) {
		t.Fatalf("wrong key not detected, err=%v", err)
	}
}

func TestVerify(t *testing.T) {
	t.Parallel()
	v, _ := New(testKey(t))
	aad := Bind("acme", "admin")
	ct, err := v.Encrypt([]byte("correct-horse"), aad)
	if err != nil {
		t.Fatal(err)
	}

	ok, err := v.Verify("correct-horse", ct, aad)
	if err != nil || !ok {
		t.Fatalf("want match, ok=%v err=%v", ok, err)
	}
	ok, err = v.Verify("battery-staple", ct, aad)
	if err != nil || ok {
		t.Fatalf("want mismatch without error, ok=%v err=%v", ok, err)
	}

	// Integrity failure is a distinct outcome, not a mismatch.
	mut := append([]byte(nil), ct...)
	mut[len(mut)-1] ^= 0xff
	if _, err := v.Verify("correct-horse", mut, aad); !errors.Is(err, errs.ErrIntegrity) {
		t.Fatalf("want integrity error, got %v", err)
	}
}
