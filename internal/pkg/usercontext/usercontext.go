package usercontext

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ManuelReschke/ChurchDesk/app/models"
)

// UserContext is what the credential claims about the caller. It is decoded
// once per request by the middleware and only used for prefix guards and
// display; privileged handlers re-verify through the request guard.
type UserContext struct {
	UserID     uint        `json:"user_id"`
	Role       models.Role `json:"role"`
	ChurchID   *uint       `json:"church_id,omitempty"`
	IsLoggedIn bool        `json:"is_logged_in"`
}

// GetUserContext retrieves the user context from fiber context
// Returns a default anonymous context if none is set
func GetUserContext(c *fiber.Ctx) UserContext {
	if ctx, ok := c.Locals(KeyUserContext).(UserContext); ok {
		return ctx
	}
	return UserContext{}
}

// IsLoggedIn checks if the current user is logged in
func IsLoggedIn(c *fiber.Ctx) bool {
	return GetUserContext(c).IsLoggedIn
}

// IsSuperAdmin checks if the credential claims the SUPERADMIN role
func IsSuperAdmin(c *fiber.Ctx) bool {
	u := GetUserContext(c)
	return u.IsLoggedIn && u.Role == models.RoleSuperAdmin
}

// Credential returns the raw credential found on the request, if any.
func Credential(c *fiber.Ctx) string {
	if v, ok := c.Locals(KeyCredential).(string); ok {
		return v
	}
	return ""
}
