package utils

import (
	"crypto/rand"
	"math/big"

	"github.com/google/uuid"
)

const suffixAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// NewID returns a random connection identifier.
func NewID() string {
	return uuid.NewString()
}

// RandomSuffix returns n random characters from [a-z0-9].
func RandomSuffix(n int) string {
	buf := make([]byte, n)
	limit := big.NewInt(int64(len(suffixAlphabet)))
	for i := range buf {
		idx, err := rand.Int(rand.Reader, limit)
		if err != nil {
			// unreachable on supported platforms
			buf[i] = suffixAlphabet[0]
			continue
		}
		buf[i] = suffixAlphabet[idx.Int64()]
	}
	return string(buf)
}
