// Package vault implements recoverable, tamper-evident storage of domain
// passwords using XChaCha20-Poly1305. Ciphertexts are nonce-prefixed and
// bound to their domain and tier through associated data, so a ciphertext
// replayed onto another domain or tier fails authentication.
package vault

import (
	"crypto/cipher"
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"

	"github.com/duersjefen/filter-ical-sub004/internal/errs"
)

// KeySize is the required symmetric key length in bytes.
const KeySize = chacha20poly1305.KeySize

// Vault seals and opens domain password ciphertexts with a single process-wide key.
type Vault struct {
	aead cipher.AEAD
}

// New constructs a Vault. It refuses to operate with a key of the wrong
// length or an obvious placeholder (all bytes identical), so a misconfigured
// process fails at boot rather than at first request.
func New(key []byte) (*Vault, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("vault: key must be %d bytes, got %d", KeySize, len(key))
	}
	uniform := true
	for _, b := range key[1:] {
		if b != key[0] {
			uniform = false
			break
		}
	}
	if uniform {
		return nil, errors.New("vault: key is empty or a placeholder")
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, err
	}
	return &Vault{aead: aead}, nil
}

// Bind builds the associated data that ties a ciphertext to its domain and tier.
func Bind(domainKey, tier string) []byte {
	aad := make([]byte, 0, len(domainKey)+1+len(tier))
	aad = append(aad, domainKey...)
	aad = append(aad, 0)
	aad = append(aad, tier...)
	return aad
}

// Encrypt seals plaintext with a random nonce prefixed to the output.
func (v *Vault) Encrypt(plaintext, aad []byte) ([]byte, error) {
	nonce := make([]byte, chacha20poly1305.NonceSizeX)
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}
	out := make([]byte, 0, len(nonce)+len(plaintext)+v.aead.Overhead())
	out = append(out, nonce...)
	out = append(out, v.aead.Seal(nil, nonce, plaintext, aad)...)
	return out, nil
}

// Decrypt opens a nonce-prefixed ciphertext. Any authentication failure is
// reported as errs.ErrIntegrity; it is never interpreted as an empty password.
func (v *Vault) Decrypt(ciphertext, aad []byte) ([]byte, error) {
	if len(ciphertext) < chacha20poly1305.NonceSizeX {
		return nil, errs.ErrIntegrity
	}
	nonce := ciphertext[:chacha20poly1305.NonceSizeX]
	ct := ciphertext[chacha20poly1305.NonceSizeX:]
	pt, err := v.aead.Open(nil, nonce, ct, aad)
	if err != nil {
		return nil, errs.ErrIntegrity
	}
	return pt, nil
}

// Verify decrypts the stored ciphertext and compares the candidate in
// constant time. A decryption failure propagates as errs.ErrIntegrity.
func (v *Vault) Verify(candidate string, ciphertext, aad []byte) (bool, error) {
	pt, err := v.Decrypt(ciphertext, aad)
	if err != nil {
		return false, err
	}
	return subtle.ConstantTimeCompare([]byte(candidate), pt) == 1, nil
}
