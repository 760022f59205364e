package helpers

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"strings"

	"github.com/alexedwards/argon2id"
	"golang.org/x/crypto/bcrypt"
)

const (
	HashBcrypt   = "bcrypt"
	HashArgon2id = "argon2id"
)

// ErrPasswordTooLong is returned when bcrypt cannot hash the input (more than 72 bytes).
var ErrPasswordTooLong = errors.New("password too long")

// PasswordHasher hashes new passwords with the configured algorithm and verifies
// stored hashes of either supported algorithm, so switching algorithms keeps old accounts working.
type PasswordHasher struct {
	algo       string
	bcryptCost int
	argon      *argon2id.Params
}

// NewPasswordHasher returns a hasher for algo (bcrypt or argon2id). Unknown values fall back to bcrypt.
func NewPasswordHasher(algo string, bcryptCost int) *PasswordHasher {
	if bcryptCost < bcrypt.MinCost || bcryptCost > bcrypt.MaxCost {
		bcryptCost = bcrypt.DefaultCost
	}
	if algo != HashArgon2id {
		algo = HashBcrypt
	}
	return &PasswordHasher{algo: algo, bcryptCost: bcryptCost, argon: argon2id.DefaultParams}
}

// Hash hashes the plain text password with a fresh salt
func (h *PasswordHasher) Hash(plain string) (string, error) {
	if h.algo == HashArgon2id {
		return argon2id.CreateHash(plain, h.argon)
	}
	b, err := bcrypt.GenerateFromPassword([]byte(plain), h.bcryptCost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", ErrPasswordTooLong
		}
		return "", err
	}
	return string(b), nil
}

// Verify reports whether plain produced hash. Malformed hashes never match.
func (h *PasswordHasher) Verify(plain, hash string) bool {
	if strings.HasPrefix(hash, "$argon2id$") {
		ok, err := argon2id.ComparePasswordAndHash(plain, hash)
		return err == nil && ok
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}

// RandomPassword returns a high-entropy throwaway password for accounts that never log in with one.
func RandomPassword() (string, error) {
	b := make([]byte, 18)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
