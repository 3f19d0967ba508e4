package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/ManuelReschke/ChurchDesk/internal/pkg/session"
	"github.com/ManuelReschke/ChurchDesk/internal/pkg/usercontext"
)

// extractCredential prefers an Authorization bearer token and falls back to
// the token stored in the session by the login route.
func extractCredential(c *fiber.Ctx) string {
	auth := strings.TrimSpace(c.Get(fiber.HeaderAuthorization))
	if strings.HasPrefix(strings.ToLower(auth), "bearer ") {
		return strings.TrimSpace(auth[7:])
	}
	return session.GetSessionValue(c, usercontext.SessionAuthToken)
}
