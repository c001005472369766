package utils

import (
	"golang.org/x/crypto/bcrypt"
)

// PasswordHasher hashes account passwords with bcrypt at a fixed cost.
type PasswordHasher struct {
	cost int
}

// NewPasswordHasher returns a hasher for cost. Zero selects bcrypt.DefaultCost; other values are
// clamped to bcrypt's accepted range.
func NewPasswordHasher(cost int) *PasswordHasher {
	switch {
	case cost == 0:
		cost = bcrypt.DefaultCost
	case cost < bcrypt.MinCost:
		cost = bcrypt.MinCost
	case cost > bcrypt.MaxCost:
		cost = bcrypt.MaxCost
	}
	return &PasswordHasher{cost: cost}
}

// Cost returns the bcrypt cost new hashes are made with.
func (p *PasswordHasher) Cost() int { return p.cost }

// Hash hashes a plain password.
func (p *PasswordHasher) Hash(plain string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(plain), p.cost)
	return string(b), err
}

// Matches reports whether plain is the password behind hashed.
func (p *PasswordHasher) Matches(plain, hashed string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plain)) == nil
}

// Outdated reports whether hashed was made with a different cost and should be replaced after
// the next successful sign-in.
func (p *PasswordHasher) Outdated(hashed string) bool {
	cost, err := bcrypt.Cost([]byte(hashed))
	return err == nil && cost != p.cost
}
