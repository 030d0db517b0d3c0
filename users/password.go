package users

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"

	"github.com/pkg/errors"
	"golang.org/x/crypto/pbkdf2"
)

const (
	MinPasswordIterations     = 120_000
	DefaultPasswordIterations = 390_000

	saltLength = 16
	keyLength  = sha256.Size
)

// PasswordHasher derives PBKDF2-HMAC-SHA256 password hashes. Salts and hashes are
// base64url encoded without padding.
type PasswordHasher struct {
	iterations int
}

// NewPasswordHasher returns a hasher, raising the iteration count to the minimum if needed.
func NewPasswordHasher(iterations int) *PasswordHasher {
	if iterations < MinPasswordIterations {
		iterations = MinPasswordIterations
	}
	return &PasswordHasher{iterations: iterations}
}

func (h *PasswordHasher) Iterations() int {
	return h.iterations
}

// Create generates a fresh salt and hashes the password with it.
func (h *PasswordHasher) Create(password string) (salt string, hash string, err error) {
	saltBytes := make([]byte, saltLength)
	if _, err := rand.Read(saltBytes); err != nil {
		return "", "", errors.Wrap(err, "[PasswordHasher.Create] rand.Read")
	}
	salt = base64.RawURLEncoding.EncodeToString(saltBytes)
	return salt, h.Hash(password, salt), nil
}

// Hash derives the encoded hash of password for the encoded salt.
func (h *PasswordHasher) Hash(password, salt string) string {
	digest := pbkdf2.Key([]byte(password), []byte(salt), h.iterations, keyLength, sha256.New)
	return base64.RawURLEncoding.EncodeToString(digest)
}

// Verify reports whether password matches the stored hash in constant time.
func (h *PasswordHasher) Verify(password, salt, storedHash string) bool {
	candidate := h.Hash(password, salt)
	return subtle.ConstantTimeCompare([]byte(candidate), []byte(storedHash)) == 1
}
