package ebi

import (
	"crypto/rand"
	"crypto/subtle"
	"fmt"
	"math/big"

	"github.com/pkg/errors"
)

const pinLength = 4

var pinSpace = big.NewInt(10000) // 10^pinLength

// GeneratePin draws a uniformly random fixed-length numeric PIN from
// crypto/rand. Uniqueness is per presence, not global.
func GeneratePin() (string, error) {
	n, err := rand.Int(rand.Reader, pinSpace)
	if err != nil {
		return "", errors.Wrap(err, "generating pin")
	}
	return fmt.Sprintf("%0*d", pinLength, n), nil
}

// PinMatches compares a candidate against the stored PIN without
// leaking timing information. Both values are expected pre-trimmed.
func PinMatches(stored, candidate string) bool {
	return subtle.ConstantTimeCompare([]byte(stored), []byte(candidate)) == 1
}
