// Package token generates verification tokens.
package token

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

// tokenBytes gives 256 bits of entropy per token.
const tokenBytes = 32

// Generator produces verification tokens. It is injected rather than read
// from a package-level source so tests can substitute deterministic values.
type Generator interface {
	Generate() (string, error)
}

// CryptoGenerator draws from crypto/rand and encodes URL-safe without
// padding, so tokens can ride in a query parameter untouched.
type CryptoGenerator struct{}

func NewCryptoGenerator() *CryptoGenerator {
	return &CryptoGenerator{}
}

func (g *CryptoGenerator) Generate() (string, error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
