package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/nilotpaul/meetsync/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newIdentityApp() *fiber.App {
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
	app.Get("/", RequireIdentity, func(c *fiber.Ctx) error {
		return c.SendString(Identity(c))
	})
	app.Get("/missing", func(c *fiber.Ctx) error {
		return util.ErrCredentialNotFound
	})
	return app
}

func TestRequireIdentity(t *testing.T) {
	tests := []struct {
		name     string
		header   map[string]string
		status   int
		identity string
	}{
		{name: "bearer", header: map[string]string{"Authorization": "Bearer alice@example.com"}, status: http.StatusOK, identity: "alice@example.com"},
		{name: "lowercase scheme", header: map[string]string{"Authorization": "bearer  bob "}, status: http.StatusOK, identity: "bob"},
		{name: "header fallback", header: map[string]string{IdentityHeader: "carol"}, status: http.StatusOK, identity: "carol"},
		{name: "basic auth is not an identity", header: map[string]string{"Authorization": "Basic Zm9vOmJhcg=="}, status: http.StatusUnauthorized},
		{name: "none", status: http.StatusUnauthorized},
	}

	app := newIdentityApp()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			for k, v := range tt.header {
				req.Header.Set(k, v)
			}

			res, err := app.Test(req, -1)
			require.NoError(t, err)
			defer res.Body.Close()

			assert.Equal(t, tt.status, res.StatusCode)
			if tt.status == http.StatusOK {
				b, err := io.ReadAll(res.Body)
				require.NoError(t, err)
				assert.Equal(t, tt.identity, string(b))
			}
		})
	}
}

func TestErrorHandler_SentinelStatus(t *testing.T) {
	res, err := newIdentityApp().Test(httptest.NewRequest(http.MethodGet, "/missing", nil), -1)
	require.NoError(t, err)
	defer res.Body.Close()

	assert.Equal(t, http.StatusNotFound, res.StatusCode)
}
