package security

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// MaxPasswordLength is the longest password bcrypt accepts, in bytes
const MaxPasswordLength = 72

var (
	// ErrPasswordMismatch is returned when a plaintext does not match its hash
	ErrPasswordMismatch = errors.New("password does not match")
	// ErrPasswordTooLong is returned by Hash for passwords over MaxPasswordLength
	ErrPasswordTooLong = errors.New("password must be at most 72 bytes")
)

// Hasher hashes and checks passwords with bcrypt
type Hasher struct {
	cost int
}

// NewHasher creates a Hasher with the given bcrypt cost.
// A zero cost means bcrypt.DefaultCost.
func NewHasher(cost int) *Hasher {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	return &Hasher{cost: cost}
}

// Hash returns the bcrypt hash of plain
func (h *Hasher) Hash(plain string) (string, error) {
	if len(plain) > MaxPasswordLength {
		return "", ErrPasswordTooLong
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), h.cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// Check compares a bcrypt hash with a plaintext password
func (h *Hasher) Check(hash, plain string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return ErrPasswordMismatch
	}
	return err
}
