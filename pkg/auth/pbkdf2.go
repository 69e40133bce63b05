// Package auth provides credential hashing for account PINs and the admin
// password. The ledger consumes it as an opaque capability: generate a salt,
// hash a secret, verify a secret in constant time.
package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"fmt"

	"golang.org/x/crypto/pbkdf2"
)

// PBKDF2Provider hashes secrets with PBKDF2-HMAC-SHA256.
// The deliberately slow, salted, iterated hash makes brute-forcing 4-digit
// PINs from a leaked snapshot expensive.
type PBKDF2Provider struct {
	iterations int
	keyLen     int
	saltLen    int
}

// NewPBKDF2Provider returns a provider with 100k iterations, 32-byte keys
// and 16-byte salts.
func NewPBKDF2Provider() *PBKDF2Provider {
	return &PBKDF2Provider{
		iterations: 100_000,
		keyLen:     32,
		saltLen:    16,
	}
}

// NewPBKDF2ProviderWithParams returns a provider with custom parameters.
// Lower iteration counts are useful in tests only.
func NewPBKDF2ProviderWithParams(iterations, keyLen, saltLen int) *PBKDF2Provider {
	return &PBKDF2Provider{
		iterations: iterations,
		keyLen:     keyLen,
		saltLen:    saltLen,
	}
}

// GenerateSalt returns a fresh random salt.
func (p *PBKDF2Provider) GenerateSalt() ([]byte, error) {
	salt := make([]byte, p.saltLen)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("auth: salt generation: %w", err)
	}
	return salt, nil
}

// Hash derives a key from the secret and salt, returned base64-encoded.
func (p *PBKDF2Provider) Hash(secret string, salt []byte) string {
	key := pbkdf2.Key([]byte(secret), salt, p.iterations, p.keyLen, sha256.New)
	return base64.StdEncoding.EncodeToString(key)
}

// Verify recomputes the hash and compares it to the stored one in constant
// time.
func (p *PBKDF2Provider) Verify(secret, storedHash string, salt []byte) bool {
	computed := p.Hash(secret, salt)
	return subtle.ConstantTimeCompare([]byte(computed), []byte(storedHash)) == 1
}
