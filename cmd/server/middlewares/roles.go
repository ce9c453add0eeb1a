package middlewares

import (
	"buzzaar/cmd/server/ctxkeys"
	"buzzaar/cmd/server/handlers/httperr"
	"buzzaar/internal/logger"
	"buzzaar/internal/services/accounts"

	"github.com/gofiber/fiber/v2"
)

// RequireAdmin rejects tokens whose role claim is not "admin".
// Must run after the JWT middleware.
func RequireAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		role, _ := c.Locals(ctxkeys.AccountRoleKey).(string)
		if role != accounts.RoleAdmin {
			logger.L().Warn("admin route denied", "path", c.Path(), "role", role)
			return httperr.Fail(httperr.ErrForbidden)
		}
		return c.Next()
	}
}

// RequireSellerOrAdmin allows seller sessions and user-admin sessions through.
// Must run after the JWT middleware.
func RequireSellerOrAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		aud, _ := c.Locals(ctxkeys.AudienceKey).(string)
		role, _ := c.Locals(ctxkeys.AccountRoleKey).(string)
		if aud == accounts.AudienceSellers || role == accounts.RoleAdmin {
			return c.Next()
		}
		logger.L().Warn("seller route denied", "path", c.Path(), "aud", aud, "role", role)
		return httperr.Fail(httperr.ErrForbidden)
	}
}

// RequireAudience rejects tokens minted for the other account class, so a
// seller session cannot drive user routes and vice versa.
// Must run after the JWT middleware.
func RequireAudience(aud string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		got, _ := c.Locals(ctxkeys.AudienceKey).(string)
		if got != aud {
			logger.L().Warn("audience mismatch", "path", c.Path(), "want", aud, "got", got)
			return httperr.Fail(httperr.ErrUnauthorized)
		}
		return c.Next()
	}
}
