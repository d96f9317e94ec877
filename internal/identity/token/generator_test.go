package token

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCryptoGenerator(t *testing.T) {
	gen := NewCryptoGenerator()

	t.Run("tokens carry 256 bits and are URL-safe", func(t *testing.T) {
		tok, err := gen.Generate()
		require.NoError(t, err)

		raw, err := base64.RawURLEncoding.DecodeString(tok)
		require.NoError(t, err, "token must round-trip raw URL base64")
		assert.Len(t, raw, tokenBytes)
		assert.NotContains(t, tok, "=")
		assert.NotContains(t, tok, "+")
		assert.NotContains(t, tok, "/")
	})

	t.Run("tokens do not repeat", func(t *testing.T) {
		seen := make(map[string]struct{}, 1000)
		for i := 0; i < 1000; i++ {
			tok, err := gen.Generate()
			require.NoError(t, err)
			_, dup := seen[tok]
			require.False(t, dup, "duplicate token after %d draws", i)
			seen[tok] = struct{}{}
		}
	})
}
