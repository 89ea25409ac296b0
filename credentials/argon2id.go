package credentials

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/crypto/argon2"
)

// Argon2idParams configures Argon2id hashing parameters
type Argon2idParams struct {
	Time        uint32 `yaml:"time"`
	MemoryKiB   uint32 `yaml:"memory_kib"`
	Parallelism uint8  `yaml:"parallelism"`
	KeyLen      uint32 `yaml:"key_len"`
	SaltLen     uint32 `yaml:"salt_len"`
}

// DefaultArgon2idParams returns the default Argon2id parameters
func DefaultArgon2idParams() Argon2idParams {
	return Argon2idParams{Time: 1, MemoryKiB: 64 * 1024, Parallelism: 4, KeyLen: 32, SaltLen: 16}
}

func (p Argon2idParams) validate() error {
	if p.Time < 1 {
		return errors.New("argon2id: time must be at least 1")
	}
	if p.Parallelism < 1 {
		return errors.New("argon2id: parallelism must be at least 1")
	}
	if p.MemoryKiB < 8*uint32(p.Parallelism) {
		return errors.Errorf("argon2id: memory must be at least %d KiB", 8*uint32(p.Parallelism))
	}
	if p.KeyLen < 4 {
		return errors.New("argon2id: key_len must be at least 4")
	}
	if p.SaltLen < 8 {
		return errors.New("argon2id: salt_len must be at least 8")
	}
	return nil
}

// Argon2idHasher hashes passwords with Argon2id and encodes them in the PHC
// string format
type Argon2idHasher struct {
	params Argon2idParams
}

// NewArgon2idHasher returns an Argon2idHasher; zero params select
// DefaultArgon2idParams
func NewArgon2idHasher(p Argon2idParams) (*Argon2idHasher, error) {
	if p == (Argon2idParams{}) {
		p = DefaultArgon2idParams()
	}
	if err := p.validate(); err != nil {
		return nil, err
	}
	return &Argon2idHasher{params: p}, nil
}

// Hash implements the Hasher interface.
// Format: $argon2id$v=19$m=65536,t=1,p=4$<saltB64>$<hashB64>
func (h *Argon2idHasher) Hash(plaintext string) (string, error) {
	p := h.params
	salt := make([]byte, p.SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", errors.WithStack(err)
	}
	dk := argon2.IDKey([]byte(plaintext), salt, p.Time, p.MemoryKiB, p.Parallelism, p.KeyLen)
	saltB64 := base64.RawStdEncoding.EncodeToString(salt)
	hashB64 := base64.RawStdEncoding.EncodeToString(dk)
	return fmt.Sprintf(
		"$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s", argon2.Version, p.MemoryKiB, p.Time, p.Parallelism, saltB64, hashB64,
	), nil
}

// Verify implements the Hasher interface
func (*Argon2idHasher) Verify(plaintext, hash string) bool {
	params, salt, key, err := parseArgon2id(hash)
	if err != nil {
		return false
	}
	dk := argon2.IDKey([]byte(plaintext), salt, params.Time, params.MemoryKiB, params.Parallelism, uint32(len(key)))
	return subtle.ConstantTimeCompare(dk, key) == 1
}

// parseArgon2id parses a PHC-formatted argon2id hash and returns parameters, salt and hash bytes.
func parseArgon2id(encoded string) (Argon2idParams, []byte, []byte, error) {
	var out Argon2idParams
	if !strings.HasPrefix(encoded, "$argon2id$") {
		return out, nil, nil, errors.New("unsupported password hash format")
	}
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 {
		return out, nil, nil, errors.New("invalid argon2id hash format")
	}
	if parts[2] != fmt.Sprintf("v=%d", argon2.Version) {
		return out, nil, nil, errors.New("unsupported argon2 version")
	}
	for _, kv := range strings.Split(parts[3], ",") {
		k, v, ok := strings.Cut(kv, "=")
		if !ok {
			return out, nil, nil, errors.Errorf("invalid argon2id parameter '%s'", kv)
		}
		switch k {
		case "m":
			m, err := strconv.ParseUint(v, 10, 32)
			if err != nil {
				return out, nil, nil, errors.WithStack(err)
			}
			out.MemoryKiB = uint32(m)
		case "t":
			t, err := strconv.ParseUint(v, 10, 32)
			if err != nil {
				return out, nil, nil, errors.WithStack(err)
			}
			out.Time = uint32(t)
		case "p":
			p, err := strconv.ParseUint(v, 10, 8)
			if err != nil {
				return out, nil, nil, errors.WithStack(err)
			}
			out.Parallelism = uint8(p)
		}
	}
	// argon2.IDKey panics on zero time or parallelism
	if out.Time == 0 || out.Parallelism == 0 {
		return out, nil, nil, errors.New("invalid argon2id parameters")
	}
	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return out, nil, nil, errors.WithStack(err)
	}
	key, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return out, nil, nil, errors.WithStack(err)
	}
	if len(key) == 0 {
		return out, nil, nil, errors.New("empty argon2id key")
	}
	out.SaltLen = uint32(len(salt))
	out.KeyLen = uint32(len(key))
	return out, salt, key, nil
}
