package auth

import (
	"golang.org/x/crypto/bcrypt"

	"github.com/secretkeeper/internal/constants"
	"github.com/secretkeeper/internal/domain"
)

var _ domain.PasswordHasher = (*Hasher)(nil)

// Hasher hashes and verifies local passwords with bcrypt. Callers must not
// log or persist plaintext passwords.
type Hasher struct {
	Cost int
}

// NewHasher returns a Hasher with the given bcrypt cost, clamped to the range
// bcrypt accepts. A non-positive cost selects the application default.
func NewHasher(cost int) *Hasher {
	if cost <= 0 {
		cost = constants.PasswordHashCost
	}
	if cost < bcrypt.MinCost {
		cost = bcrypt.MinCost
	}
	if cost > bcrypt.MaxCost {
		cost = bcrypt.MaxCost
	}
	return &Hasher{Cost: cost}
}

// Hash produces a salted bcrypt hash suitable for the users.password column
func (h *Hasher) Hash(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), h.Cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Verify reports whether password matches credential. The comparison is
// constant-time. Malformed hashes and the federated placeholder never match.
func (h *Hasher) Verify(password, credential string) bool {
	if credential == "" || credential == constants.FederatedCredential {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(credential), []byte(password)) == nil
}
