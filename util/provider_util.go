package util

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/url"
	"strings"
)

func GenerateNonce(l int) (string, error) {
	b := make([]byte, l)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate a random nonce %s", err)
	}

	return hex.EncodeToString(b), nil
}

// JoinScopes joins scopes with the provider's delimiter, space by default.
func JoinScopes(scopes []string, delim string) string {
	if len(delim) == 0 {
		delim = " "
	}
	return strings.Join(scopes, delim)
}

// IntegrationsRedirect builds the landing URL the callback redirects to.
func IntegrationsRedirect(base string, params map[string]string) string {
	u, err := url.Parse(base)
	if err != nil {
		u = &url.URL{Path: base}
	}

	q := u.Query()
	for k, v := range params {
		if len(v) != 0 {
			q.Set(k, v)
		}
	}
	u.RawQuery = q.Encode()

	return u.String()
}

func TrimBaseURL(base string) string {
	return strings.TrimRight(base, "/")
}
