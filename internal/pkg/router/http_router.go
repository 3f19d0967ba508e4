package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ManuelReschke/ChurchDesk/internal/pkg/constants"
	"github.com/ManuelReschke/ChurchDesk/internal/pkg/middleware"
)

type HttpRouter struct {
	deps *Dependencies
}

func (h HttpRouter) InstallRouter(app *fiber.App) {
	// Apply UserContext middleware globally as first middleware
	app.Use(middleware.UserContextMiddleware(h.deps.Resolver))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "ok"})
	})

	h.registerAdminRoutes(app)
}

func (h HttpRouter) registerAdminRoutes(app *fiber.App) {
	adminGroup := app.Group(constants.AdminRoute, middleware.RequireSuperAdmin)
	adminGroup.Get("/", h.deps.Admin.HandleDashboard)
}

func NewHttpRouter(deps *Dependencies) *HttpRouter {
	return &HttpRouter{deps: deps}
}
