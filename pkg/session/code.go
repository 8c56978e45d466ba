package session

import (
	"math/rand/v2"
	"strconv"
)

const (
	codeMin = 100000
	codeMax = 999999

	// maxCodeAttempts bounds the uniqueness retry loop. With 900,000
	// possible codes a collision streak this long means the store is
	// saturated and the caller should see an error instead of a hang.
	maxCodeAttempts = 10000
)

// generateCode draws random 6-digit numeric codes until one is absent per
// the exists predicate. The caller must hold the store lock so the check
// stays consistent with the insertion that follows.
func generateCode(exists func(string) bool) (string, error) {
	for i := 0; i < maxCodeAttempts; i++ {
		code := strconv.Itoa(codeMin + rand.IntN(codeMax-codeMin+1))
		if !exists(code) {
			return code, nil
		}
	}
	return "", ErrCodespaceExhausted
}
