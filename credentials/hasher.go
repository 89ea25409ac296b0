// Package credentials hashes and verifies user passwords.
package credentials

import (
	"strings"

	"github.com/pkg/errors"
)

// Algorithm names a password hashing algorithm
type Algorithm string

// Supported algorithms
const (
	AlgorithmBcrypt   Algorithm = "bcrypt"
	AlgorithmArgon2id Algorithm = "argon2id"
)

// Hasher hashes passwords and verifies them against stored hashes.
// Implementations are safe for concurrent use.
type Hasher interface {
	// Hash returns a salted hash string for plaintext; two calls with the same
	// plaintext produce different outputs
	Hash(plaintext string) (string, error)
	// Verify reports whether plaintext matches hash. Malformed or unknown
	// hashes never match.
	Verify(plaintext, hash string) bool
}

// Config configures the Hasher returned by New
type Config struct {
	Algorithm  Algorithm      `yaml:"algorithm"`
	BcryptCost int            `yaml:"bcrypt_cost"`
	Argon2id   Argon2idParams `yaml:"argon2id"`
}

// DefaultConfig returns the Config used when nothing is configured
func DefaultConfig() Config {
	return Config{
		Algorithm:  AlgorithmBcrypt,
		BcryptCost: DefaultBcryptCost,
		Argon2id:   DefaultArgon2idParams(),
	}
}

// Detect returns the Algorithm that produced hash, judged by its prefix
func Detect(hash string) (Algorithm, bool) {
	switch {
	case strings.HasPrefix(hash, "$argon2id$"):
		return AlgorithmArgon2id, true
	case strings.HasPrefix(hash, "$2a$"),
		strings.HasPrefix(hash, "$2b$"),
		strings.HasPrefix(hash, "$2y$"):
		return AlgorithmBcrypt, true
	default:
		return "", false
	}
}

// New returns a Hasher that hashes with the configured algorithm and verifies
// hashes of every supported algorithm
func New(conf Config) (Hasher, error) {
	bc, err := NewBcryptHasher(conf.BcryptCost)
	if err != nil {
		return nil, err
	}
	a2, err := NewArgon2idHasher(conf.Argon2id)
	if err != nil {
		return nil, err
	}
	m := &multiHasher{
		verifiers: map[Algorithm]Hasher{
			AlgorithmBcrypt:   bc,
			AlgorithmArgon2id: a2,
		},
	}
	switch conf.Algorithm {
	case AlgorithmBcrypt, "":
		m.primary = bc
	case AlgorithmArgon2id:
		m.primary = a2
	default:
		return nil, errors.Errorf("unsupported password hashing algorithm '%s'", conf.Algorithm)
	}
	return m, nil
}

type multiHasher struct {
	primary   Hasher
	verifiers map[Algorithm]Hasher
}

// Hash implements the Hasher interface
func (m *multiHasher) Hash(plaintext string) (string, error) {
	return m.primary.Hash(plaintext)
}

// Verify implements the Hasher interface
func (m *multiHasher) Verify(plaintext, hash string) bool {
	alg, ok := Detect(hash)
	if !ok {
		return false
	}
	v, ok := m.verifiers[alg]
	if !ok {
		return false
	}
	return v.Verify(plaintext, hash)
}
