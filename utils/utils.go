package utils

import (
	"crypto/rand"
	"math/big"
)

// RandBase62 returns n random bytes as a base62 string, e.g. for OAuth state values
func RandBase62(n int) string {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		panic(err)
	}
	return new(big.Int).SetBytes(buf).Text(62)
}
