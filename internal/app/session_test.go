package app

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewToken(t *testing.T) {
	t.Parallel()

	seen := map[string]bool{}
	for range 100 {
		token, err := newToken()
		require.NoError(t, err)
		raw, err := base64.RawURLEncoding.DecodeString(token)
		require.NoError(t, err)
		assert.Len(t, raw, tokenBytes)
		assert.False(t, seen[token])
		seen[token] = true
	}
}
