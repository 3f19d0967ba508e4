package middleware

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ManuelReschke/ChurchDesk/internal/pkg/identity"
	"github.com/ManuelReschke/ChurchDesk/internal/pkg/usercontext"
)

// UserContextMiddleware decodes the caller's credential once per request and
// stores the claims plus the raw credential in Locals. Invalid credentials
// leave the request anonymous; rejecting it is up to the route.
func UserContextMiddleware(resolver *identity.Resolver) fiber.Handler {
	return func(c *fiber.Ctx) error {
		raw := extractCredential(c)
		c.Locals(usercontext.KeyCredential, raw)

		id, ok := resolver.Resolve(raw)
		if !ok {
			c.Locals(usercontext.KeyUserContext, usercontext.UserContext{})
			return c.Next()
		}

		c.Locals(usercontext.KeyUserContext, usercontext.UserContext{
			UserID:     id.UserID,
			Role:       id.Role,
			ChurchID:   id.ChurchID,
			IsLoggedIn: true,
		})
		return c.Next()
	}
}
