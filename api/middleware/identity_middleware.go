package middleware

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/nilotpaul/meetsync/setting"
	"github.com/nilotpaul/meetsync/util"
)

// IdentityHeader is the fallback header for callers that cannot send an
// Authorization header.
const IdentityHeader = "X-User-Id"

// RequireIdentity resolves the caller from `Authorization: Bearer <id>` (or
// the `X-User-Id` header) and keeps it in the request locals. Upstream auth
// has already vouched for the value.
func RequireIdentity(c *fiber.Ctx) error {
	identity := bearerIdentity(c.Get(fiber.HeaderAuthorization))
	if len(identity) == 0 {
		identity = strings.TrimSpace(c.Get(IdentityHeader))
	}
	if len(identity) == 0 {
		return util.NewAppError(
			http.StatusUnauthorized,
			"no caller identity",
		).WithCode(setting.ErrCodeNoIdentity)
	}

	c.Locals(setting.IdentityLocalKey, identity)

	return c.Next()
}

func bearerIdentity(header string) string {
	scheme, value, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(value)
}

// Identity returns the caller resolved by RequireIdentity.
func Identity(c *fiber.Ctx) string {
	identity, _ := c.Locals(setting.IdentityLocalKey).(string)
	return identity
}
