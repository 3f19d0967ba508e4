package middleware

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ManuelReschke/ChurchDesk/internal/pkg/constants"
	"github.com/ManuelReschke/ChurchDesk/internal/pkg/usercontext"
)

// RequireSuperAdmin guards the admin UI; redirects to /login otherwise.
func RequireSuperAdmin(c *fiber.Ctx) error {
	if !usercontext.IsSuperAdmin(c) {
		return c.Redirect(constants.LoginRoute, fiber.StatusSeeOther)
	}
	return c.Next()
}

// RequireAPISuperAdmin guards the admin API and returns JSON instead of a
// redirect: 401 without a valid credential, 403 for other roles.
func RequireAPISuperAdmin(c *fiber.Ctx) error {
	if !usercontext.IsLoggedIn(c) {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error":   "unauthenticated",
			"message": "login required",
		})
	}
	if !usercontext.IsSuperAdmin(c) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error":          "authorization_denied",
			"message":        "SUPERADMIN role required",
			"required_roles": []string{"SUPERADMIN"},
		})
	}
	return c.Next()
}

// RequireAPISessionAuth ensures a credential for API routes and returns JSON 401 instead of redirect.
func RequireAPISessionAuth(c *fiber.Ctx) error {
	if !usercontext.IsLoggedIn(c) {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error":   "unauthenticated",
			"message": "login required",
		})
	}
	return c.Next()
}
