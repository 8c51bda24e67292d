package credentials

import (
	"crypto/subtle"
	"strings"
	"sync/atomic"

	"github.com/allisson/go-pwdhash"

	apperrors "github.com/allisson/orderflow/internal/errors"
)

// KeyVerifier decides whether a presented internal API key is valid.
type KeyVerifier interface {
	Verify(presented string) bool
}

// NewKeyHasher returns the Argon2id hasher used for INTERNAL_API_KEY_HASH values.
func NewKeyHasher() (*pwdhash.PasswordHasher, error) {
	return pwdhash.New(pwdhash.WithPolicy(pwdhash.PolicyModerate))
}

// HashKey hashes an internal API key into the encoded form accepted by INTERNAL_API_KEY_HASH.
func HashKey(apiKey string) (string, error) {
	if apiKey == "" {
		return "", apperrors.Wrap(apperrors.ErrInvalidInput, "api key must not be empty")
	}

	hasher, err := NewKeyHasher()
	if err != nil {
		return "", apperrors.Wrap(err, "failed to create api key hasher")
	}

	hashed, err := hasher.Hash([]byte(apiKey))
	if err != nil {
		return "", apperrors.Wrap(err, "failed to hash api key")
	}
	return hashed, nil
}

// NewKeyVerifier picks the verifier for the customer API. An encoded hash takes precedence
// over the plaintext key. It returns nil when neither is configured.
func NewKeyVerifier(hash, plaintext string) (KeyVerifier, error) {
	if hash = strings.TrimSpace(hash); hash != "" {
		hasher, err := NewKeyHasher()
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to create api key hasher")
		}
		return &hashVerifier{hasher: hasher, hash: hash}, nil
	}
	if plaintext != "" {
		return plainVerifier([]byte(plaintext)), nil
	}
	return nil, nil
}

type plainVerifier []byte

func (v plainVerifier) Verify(presented string) bool {
	return subtle.ConstantTimeCompare([]byte(presented), v) == 1
}

// hashVerifier checks keys against an Argon2id hash. The first key that verifies is kept, so
// later requests compare in constant time instead of paying for Argon2id again.
type hashVerifier struct {
	hasher   *pwdhash.PasswordHasher
	hash     string
	verified atomic.Pointer[[]byte]
}

func (v *hashVerifier) Verify(presented string) bool {
	if known := v.verified.Load(); known != nil {
		return subtle.ConstantTimeCompare([]byte(presented), *known) == 1
	}

	ok, err := v.hasher.Verify([]byte(presented), v.hash)
	if err != nil || !ok {
		return false
	}

	key := []byte(presented)
	v.verified.CompareAndSwap(nil, &key)
	return true
}
