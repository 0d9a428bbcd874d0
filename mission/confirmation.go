package mission

import (
	"crypto/rand"
	"crypto/subtle"
	"fmt"

	"github.com/motocabz/dispatch-core/domain"
)

// CryptoRng draws confirmation codes from crypto/rand.
type CryptoRng struct{}

// Digits returns n decimal digits, each independently uniform in '0'..'9'.
func (CryptoRng) Digits(n int) (string, error) {
	buf := make([]byte, n)
	out := make([]byte, 0, n)
	for len(out) < n {
		if _, err := rand.Read(buf); err != nil {
			return "", fmt.Errorf("mission: generate confirmation code: %w", err)
		}
		for _, b := range buf {
			// Bytes 250..255 are discarded: keeping them would make 0-5
			// more likely than 6-9 after the modulo.
			if b < 250 && len(out) < n {
				out = append(out, '0'+b%10)
			}
		}
	}
	return string(out), nil
}

// NewConfirmationCode mints a 6-digit, zero-padded decimal code.
func NewConfirmationCode(rng domain.Rng) (string, error) {
	return rng.Digits(6)
}

// ValidateConfirmationCode compares supplied against stored in constant
// time, so a timing side channel can't narrow down the code.
func ValidateConfirmationCode(stored, supplied string) bool {
	if len(stored) != len(supplied) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(stored), []byte(supplied)) == 1
}
