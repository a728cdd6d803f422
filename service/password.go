package service

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"

	"go-marketplace-api/config"
	"go-marketplace-api/logger"

	"github.com/alexedwards/argon2id"
	"golang.org/x/crypto/bcrypt"
)

const argon2idPrefix = "$argon2id$"

// PasswordHasher produces and checks one-way hashes. Compare recognises every
// supported format regardless of the algorithm used for new hashes, so changing
// password.algorithm does not lock existing users out.
type PasswordHasher interface {
	Hash(plain string) (string, error)
	Compare(plain, hash string) (bool, error)
}

type passwordHasher struct {
	algorithm  string
	bcryptCost int
	argon      *argon2id.Params
}

func NewPasswordHasher(cfg config.PasswordConfig) PasswordHasher {
	cost := cfg.BcryptCost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	return &passwordHasher{
		algorithm:  cfg.Algorithm,
		bcryptCost: cost,
		argon:      argon2id.DefaultParams,
	}
}

func (h *passwordHasher) Hash(plain string) (string, error) {
	if h.algorithm == "argon2id" {
		hash, err := argon2id.CreateHash(plain, h.argon)
		if err != nil {
			logger.Log.WithError(err).Error("Failed to hash password with argon2id")
			return "", err
		}
		return hash, nil
	}

	bytes, err := bcrypt.GenerateFromPassword([]byte(plain), h.bcryptCost)
	if err != nil {
		logger.Log.WithError(err).Error("Failed to hash password")
		return "", err
	}
	return string(bytes), nil
}

func (h *passwordHasher) Compare(plain, hash string) (bool, error) {
	if strings.HasPrefix(hash, argon2idPrefix) {
		return argon2id.ComparePasswordAndHash(plain, hash)
	}

	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// FingerprintToken returns the hex SHA-256 of a token. Signed tokens are longer
// than bcrypt accepts, so refresh tokens are fingerprinted before hashing, and
// revocation records are keyed by the fingerprint.
func FingerprintToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
