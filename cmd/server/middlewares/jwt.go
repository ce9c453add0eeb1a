package middlewares

import (
	"buzzaar/cmd/server/ctxkeys"
	"buzzaar/cmd/server/handlers/httperr"
	"buzzaar/internal/config"
	"buzzaar/internal/services/accounts"

	jwtware "github.com/gofiber/contrib/jwt"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

// JWT returns a configured Fiber middleware that:
//
//   - validates the Bearer token signature using cfg.JWTSecret
//   - makes sure the token carries "user_id" and "email" claims
//   - stores id, email, name, role and audience in ctx.Locals so
//     downstream handlers can trust them.
//
// On any problem it bubbles up a 401 via the global httperr handler.
func JWT(cfg config.Config) fiber.Handler {
	return jwtware.New(jwtware.Config{
		SigningKey: jwtware.SigningKey{Key: []byte(cfg.JWTSecret)},
		SuccessHandler: func(c *fiber.Ctx) error {
			// Token already verified at this point.
			token := c.Locals("user").(*jwt.Token)
			claims, _ := token.Claims.(jwt.MapClaims)

			accountID, ok := claims["user_id"].(string)
			if !ok || accountID == "" {
				return accounts.ErrInvalidTokenMissingUserID
			}

			email, ok := claims["email"].(string)
			if !ok || email == "" {
				return accounts.ErrInvalidTokenMissingEmail
			}

			name, _ := claims["name"].(string)
			role, _ := claims["role"].(string)
			aud, _ := claims["aud"].(string)

			c.Locals(ctxkeys.AccountIDKey, accountID)
			c.Locals(ctxkeys.AccountEmailKey, email)
			c.Locals(ctxkeys.AccountNameKey, name)
			c.Locals(ctxkeys.AccountRoleKey, role)
			c.Locals(ctxkeys.AudienceKey, aud)
			return c.Next()
		},

		// Override the default "unauthorized" JSON to match the project style
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return httperr.Fail(httperr.E{
				Status:  401,
				Message: err.Error(),
			})
		},
	})
}
