package utils

import (
	"crypto/rand"
	"math/big"
)

const (
	urlTokenAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
	// URLTokenLength is the length of a shareable link token.
	URLTokenLength = 32
)

// NewURLToken returns a random alphanumeric token for shareable quiz links.
func NewURLToken() (string, error) {
	size := big.NewInt(int64(len(urlTokenAlphabet)))
	b := make([]byte, URLTokenLength)
	for i := range b {
		n, err := rand.Int(rand.Reader, size)
		if err != nil {
			return "", err
		}
		b[i] = urlTokenAlphabet[n.Int64()]
	}
	return string(b), nil
}
