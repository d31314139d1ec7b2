package utils

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"unicode"

	"golang.org/x/crypto/bcrypt"
)

// Character classes for generated passwords.
const (
	upperChars   = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	lowerChars   = "abcdefghijklmnopqrstuvwxyz"
	digitChars   = "0123456789"
	specialChars = "!@#$%^&*()-_=+[]{}?"
	allChars     = upperChars + lowerChars + digitChars + specialChars

	generatedMinLen = 12
	generatedMaxLen = 16

	// MinPasswordLength is the shortest password accepted by ValidatePasswordStrength.
	MinPasswordLength = 8
	// MinBcryptCost is the lowest cost a PasswordHasher will use.
	MinBcryptCost = 10
)

// Strength rule messages, in evaluation order.
const (
	RuleMinLength = "Password must be at least 8 characters long"
	RuleUppercase = "Password must contain at least one uppercase letter"
	RuleLowercase = "Password must contain at least one lowercase letter"
	RuleDigit     = "Password must contain at least one number"
)

// PasswordStrength is the outcome of ValidatePasswordStrength.
type PasswordStrength struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors"`
}

// GenerateSecurePassword returns a 12-16 character password containing at
// least one uppercase letter, lowercase letter, digit and special character.
// All randomness comes from crypto/rand.
func GenerateSecurePassword() (string, error) {
	n, err := randIndex(generatedMaxLen - generatedMinLen + 1)
	if err != nil {
		return "", err
	}
	length := generatedMinLen + n

	buf := make([]byte, 0, length)
	for _, class := range []string{upperChars, lowerChars, digitChars, specialChars} {
		ch, err := randChar(class)
		if err != nil {
			return "", err
		}
		buf = append(buf, ch)
	}
	for len(buf) < length {
		ch, err := randChar(allChars)
		if err != nil {
			return "", err
		}
		buf = append(buf, ch)
	}

	// Fisher-Yates so the guaranteed characters are not positionally predictable.
	for i := len(buf) - 1; i > 0; i-- {
		j, err := randIndex(i + 1)
		if err != nil {
			return "", err
		}
		buf[i], buf[j] = buf[j], buf[i]
	}

	return string(buf), nil
}

// ValidatePasswordStrength reports every violated rule, not just the first.
func ValidatePasswordStrength(password string) PasswordStrength {
	var hasUpper, hasLower, hasDigit bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}

	errs := []string{}
	if len([]rune(password)) < MinPasswordLength {
		errs = append(errs, RuleMinLength)
	}
	if !hasUpper {
		errs = append(errs, RuleUppercase)
	}
	if !hasLower {
		errs = append(errs, RuleLowercase)
	}
	if !hasDigit {
		errs = append(errs, RuleDigit)
	}

	return PasswordStrength{Valid: len(errs) == 0, Errors: errs}
}

// IsSpecialChar reports whether r is in the generator's special character set.
func IsSpecialChar(r rune) bool {
	return strings.ContainsRune(specialChars, r)
}

// PasswordHasher hashes and verifies credentials with bcrypt.
type PasswordHasher struct {
	cost int
}

// NewPasswordHasher returns a hasher using cost, raised to MinBcryptCost if lower.
func NewPasswordHasher(cost int) *PasswordHasher {
	if cost < MinBcryptCost {
		cost = MinBcryptCost
	}
	if cost > bcrypt.MaxCost {
		cost = bcrypt.MaxCost
	}
	return &PasswordHasher{cost: cost}
}

// Cost returns the bcrypt cost in use.
func (h *PasswordHasher) Cost() int {
	return h.cost
}

// Hash returns a salted bcrypt hash of password.
func (h *PasswordHasher) Hash(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hashed), nil
}

// Verify reports whether password matches hash. Malformed hashes never match.
func (h *PasswordHasher) Verify(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

func randIndex(n int) (int, error) {
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		return 0, fmt.Errorf("read random: %w", err)
	}
	return int(v.Int64()), nil
}

func randChar(class string) (byte, error) {
	i, err := randIndex(len(class))
	if err != nil {
		return 0, err
	}
	return class[i], nil
}
