package util

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/nilotpaul/meetsync/setting"
)

func FlowCookieName(provider string) string {
	return provider + setting.FlowCookieSuffix
}

// SetFlowCookie stores the flow id until the flow record expires.
func SetFlowCookie(c *fiber.Ctx, provider, flowID, domain string, maxAge time.Duration) {
	if maxAge <= 0 {
		maxAge = setting.StateMaxAge
	}

	c.Cookie(&fiber.Cookie{
		Name:     FlowCookieName(provider),
		Value:    flowID,
		Expires:  time.Now().Add(maxAge),
		HTTPOnly: true,
		Path:     "/",
		Secure:   IsProduction(),
		SameSite: fiber.CookieSameSiteLaxMode,
		Domain:   domain,
	})
}

func GetFlowCookie(c *fiber.Ctx, provider string) string {
	return c.Cookies(FlowCookieName(provider), "")
}

func ClearFlowCookie(c *fiber.Ctx, provider, domain string) {
	c.Cookie(&fiber.Cookie{
		Name:     FlowCookieName(provider),
		Path:     "/",
		HTTPOnly: true,
		Expires:  time.Now().AddDate(-100, 0, 0),
		Domain:   domain,
	})
}
