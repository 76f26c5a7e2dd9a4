package util

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIntegrationsRedirect(t *testing.T) {
	got := IntegrationsRedirect("https://app.example.com/integrations?tab=all", map[string]string{
		"error":    "oauth_error",
		"provider": "slack",
		"message":  "access denied",
		"empty":    "",
	})

	u, err := url.Parse(got)
	require.NoError(t, err)
	assert.Equal(t, "/integrations", u.Path)
	assert.Equal(t, "all", u.Query().Get("tab"))
	assert.Equal(t, "oauth_error", u.Query().Get("error"))
	assert.Equal(t, "access denied", u.Query().Get("message"))
	assert.False(t, u.Query().Has("empty"))
}

func TestJoinScopes(t *testing.T) {
	assert.Equal(t, "a b", JoinScopes([]string{"a", "b"}, ""))
	assert.Equal(t, "a,b", JoinScopes([]string{"a", "b"}, ","))
	assert.Empty(t, JoinScopes(nil, ","))
}

func TestGenerateNonce(t *testing.T) {
	n, err := GenerateNonce(16)
	require.NoError(t, err)
	assert.Len(t, n, 32)
}
