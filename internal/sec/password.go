package sec

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// DefaultCost is the bcrypt work factor used when none is configured.
const DefaultCost = 10

// Hasher hashes and verifies passwords with bcrypt.
type Hasher struct {
	cost int
}

// NewHasher returns a Hasher using the given bcrypt cost. Costs outside of
// bcrypt's supported range fall back to [DefaultCost].
func NewHasher(cost int) Hasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultCost
	}
	return Hasher{cost: cost}
}

// Cost returns the bcrypt work factor of new hashes.
func (h Hasher) Cost() int {
	if h.cost == 0 {
		return DefaultCost
	}
	return h.cost
}

// Hash generates the salted hash for a password. It errors with
// [ErrPasswordTooLong] if the password is longer than 72 bytes.
func (h Hasher) Hash(password string) ([]byte, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), h.Cost())
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return nil, ErrPasswordTooLong
	}
	return hash, err
}

// Verify reports whether password resolves to hash. A malformed hash is
// reported as a mismatch.
func (h Hasher) Verify(password string, hash []byte) bool {
	return bcrypt.CompareHashAndPassword(hash, []byte(password)) == nil
}

// NeedsRehash reports whether hash was generated with a different cost than
// h uses for new hashes.
func (h Hasher) NeedsRehash(hash []byte) bool {
	cost, err := bcrypt.Cost(hash)
	return err != nil || cost != h.Cost()
}
