package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/userkeeper/internal/common"
	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"
)

const (
	AlgorithmBcrypt   = "bcrypt"
	AlgorithmArgon2id = "argon2id"
)

// Hasher turns passwords into salted one-way digests and checks candidates
// against them. Implementations are safe for concurrent use.
type Hasher interface {
	// Hash returns a new digest; the same password yields a different digest
	// on every call.
	Hash(password string) (string, error)

	// Verify reports whether password produced digest. It never fails loudly:
	// malformed or foreign digests simply don't match.
	Verify(password, digest string) bool
}

// BcryptHasher hashes with bcrypt at a fixed cost.
type BcryptHasher struct {
	cost int
}

// NewBcryptHasher clamps cost into bcrypt's accepted range; zero selects
// bcrypt.DefaultCost.
func NewBcryptHasher(cost int) *BcryptHasher {
	switch {
	case cost == 0:
		cost = bcrypt.DefaultCost
	case cost < bcrypt.MinCost:
		cost = bcrypt.MinCost
	case cost > bcrypt.MaxCost:
		cost = bcrypt.MaxCost
	}
	return &BcryptHasher{cost: cost}
}

func (h *BcryptHasher) Hash(password string) (string, error) {
	if password == "" {
		return "", fmt.Errorf("%w: password is empty", common.ErrValidationFailed)
	}

	b, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", fmt.Errorf("%w: password is too long", common.ErrValidationFailed)
		}
		return "", fmt.Errorf("bcrypt: %w", err)
	}
	return string(b), nil
}

func (h *BcryptHasher) Verify(password, digest string) bool {
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(password)) == nil
}

// Argon2Hasher hashes with argon2id and stores digests in PHC string format:
//
//	$argon2id$v=19$m=65536,t=1,p=4$<salt>$<key>
type Argon2Hasher struct {
	time    uint32
	memory  uint32
	threads uint8
	saltLen int
	keyLen  uint32
}

// NewArgon2Hasher uses cost as the number of passes (t); memory and
// parallelism are fixed.
func NewArgon2Hasher(cost int) *Argon2Hasher {
	if cost < 1 {
		cost = 1
	}
	if cost > 10 {
		cost = 10
	}
	return &Argon2Hasher{
		time:    uint32(cost),
		memory:  64 * 1024,
		threads: 4,
		saltLen: 16,
		keyLen:  32,
	}
}

func (h *Argon2Hasher) Hash(password string) (string, error) {
	if password == "" {
		return "", fmt.Errorf("%w: password is empty", common.ErrValidationFailed)
	}

	salt := make([]byte, h.saltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("argon2: salt: %w", err)
	}

	key := argon2.IDKey([]byte(password), salt, h.time, h.memory, h.threads, h.keyLen)

	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, h.memory, h.time, h.threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

func (h *Argon2Hasher) Verify(password, digest string) bool {
	p, err := parseArgon2Digest(digest)
	if err != nil {
		return false
	}
	key := argon2.IDKey([]byte(password), p.salt, p.time, p.memory, p.threads, uint32(len(p.key)))
	return subtle.ConstantTimeCompare(key, p.key) == 1
}

type argon2Params struct {
	time    uint32
	memory  uint32
	threads uint8
	salt    []byte
	key     []byte
}

func parseArgon2Digest(digest string) (*argon2Params, error) {
	// "", "argon2id", "v=19", "m=..,t=..,p=..", salt, key
	parts := strings.Split(digest, "$")
	if len(parts) != 6 || parts[0] != "" || parts[1] != AlgorithmArgon2id {
		return nil, errors.New("not an argon2id digest")
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return nil, errors.New("unsupported argon2 version")
	}

	p := &argon2Params{}
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &p.memory, &p.time, &p.threads); err != nil {
		return nil, fmt.Errorf("argon2 params: %w", err)
	}
	if p.time == 0 || p.memory == 0 || p.threads == 0 {
		return nil, errors.New("argon2 params out of range")
	}

	var err error
	if p.salt, err = base64.RawStdEncoding.DecodeString(parts[4]); err != nil {
		return nil, fmt.Errorf("argon2 salt: %w", err)
	}
	if p.key, err = base64.RawStdEncoding.DecodeString(parts[5]); err != nil {
		return nil, fmt.Errorf("argon2 key: %w", err)
	}
	if len(p.key) == 0 {
		return nil, errors.New("argon2 key is empty")
	}
	return p, nil
}

// multiHasher hashes with the configured algorithm but verifies digests of
// any supported algorithm, so changing the setting keeps old accounts usable.
type multiHasher struct {
	primary Hasher
	bcrypt  Hasher
	argon2  Hasher
}

// NewHasher returns the Hasher for algorithm ("bcrypt" or "argon2id") at the
// given cost.
func NewHasher(algorithm string, cost int) (Hasher, error) {
	m := &multiHasher{}

	switch algorithm {
	case "", AlgorithmBcrypt:
		m.bcrypt = NewBcryptHasher(cost)
		m.argon2 = NewArgon2Hasher(1)
		m.primary = m.bcrypt
	case AlgorithmArgon2id:
		m.bcrypt = NewBcryptHasher(bcrypt.DefaultCost)
		m.argon2 = NewArgon2Hasher(cost)
		m.primary = m.argon2
	default:
		return nil, fmt.Errorf("unsupported password hash algorithm %q", algorithm)
	}

	return m, nil
}

func (m *multiHasher) Hash(password string) (string, error) {
	return m.primary.Hash(password)
}

func (m *multiHasher) Verify(password, digest string) bool {
	switch {
	case strings.HasPrefix(digest, "$"+AlgorithmArgon2id+"$"):
		return m.argon2.Verify(password, digest)
	case strings.HasPrefix(digest, "$2"):
		return m.bcrypt.Verify(password, digest)
	default:
		return false
	}
}
