// Package password hashes and validates user passwords.
package password

import (
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

const (
	MinLength = 6
	// MaxLength is the bcrypt input limit, in bytes.
	MaxLength = 72
)

var (
	ErrTooShort = errors.New("password must be at least 6 characters")
	ErrTooLong  = errors.New("password must be at most 72 bytes")
	ErrCommon   = errors.New("password is too common")
)

var commonPasswords = map[string]bool{
	"123456":    true,
	"1234567":   true,
	"12345678":  true,
	"123456789": true,
	"password":  true,
	"password1": true,
	"qwerty":    true,
	"qwerty123": true,
	"abc123":    true,
	"111111":    true,
	"000000":    true,
	"123123":    true,
	"654321":    true,
	"iloveyou":  true,
	"letmein":   true,
	"welcome":   true,
	"admin":     true,
}

// Validate checks a plaintext password against the length and blocklist rules.
func Validate(plain string) error {
	if len(plain) < MinLength {
		return ErrTooShort
	}
	if len(plain) > MaxLength {
		return ErrTooLong
	}
	if commonPasswords[strings.ToLower(plain)] {
		return ErrCommon
	}
	return nil
}

// Hasher wraps bcrypt with a configurable work factor.
type Hasher struct {
	cost int
}

func NewHasher(cost int) *Hasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &Hasher{cost: cost}
}

func (h *Hasher) Hash(plain string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), h.cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// Compare reports whether plain matches hash. The comparison is constant time.
func (h *Hasher) Compare(hash, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}
