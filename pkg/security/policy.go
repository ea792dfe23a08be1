package security

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"unicode"
)

const MinPasswordLength = 8

// Ambiguous glyphs (0/O, 1/l/I) are left out.
const tempPasswordAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz23456789"

var ErrWeakPassword = errors.New("password must be at least 8 characters and contain an uppercase letter, a lowercase letter and a digit")

// ValidatePolicy applies the staff password rules.
func ValidatePolicy(password string) error {
	if len([]rune(password)) < MinPasswordLength {
		return ErrWeakPassword
	}
	var lower, upper, digit bool
	for _, r := range password {
		lower = lower || unicode.IsLower(r)
		upper = upper || unicode.IsUpper(r)
		digit = digit || unicode.IsDigit(r)
	}
	if !lower || !upper || !digit {
		return ErrWeakPassword
	}
	return nil
}

// GenerateTempPassword returns a random password that passes ValidatePolicy.
func GenerateTempPassword(length int) (string, error) {
	if length < MinPasswordLength {
		return "", fmt.Errorf("length must be at least %d", MinPasswordLength)
	}
	alphabet := big.NewInt(int64(len(tempPasswordAlphabet)))
	buf := make([]byte, length)
	for {
		for i := range buf {
			n, err := rand.Int(rand.Reader, alphabet)
			if err != nil {
				return "", err
			}
			buf[i] = tempPasswordAlphabet[n.Int64()]
		}
		if ValidatePolicy(string(buf)) == nil {
			return string(buf), nil
		}
	}
}
