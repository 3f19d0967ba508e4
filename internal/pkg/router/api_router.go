package router

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/ManuelReschke/ChurchDesk/internal/pkg/constants"
	"github.com/ManuelReschke/ChurchDesk/internal/pkg/env"
	"github.com/ManuelReschke/ChurchDesk/internal/pkg/middleware"
)

type ApiRouter struct {
	deps *Dependencies
}

func (h ApiRouter) InstallRouter(app *fiber.App) {
	api := app.Group(constants.APIRoute, limiter.New(limiter.Config{
		Max:        env.GetInt("API_RATE_LIMIT", 120),
		Expiration: time.Minute,
	}))
	api.Get("/", func(ctx *fiber.Ctx) error {
		return ctx.Status(fiber.StatusOK).JSON(fiber.Map{
			"message": "Hello from api",
		})
	})

	auth := api.Group("/auth")
	auth.Post("/login", limiter.New(limiter.Config{Max: 10, Expiration: time.Minute}), h.deps.Auth.HandleLogin)
	auth.Post("/logout", h.deps.Auth.HandleLogout)

	api.Get("/me", h.deps.Church.HandleMe)

	church := api.Group("/church", middleware.RequireAPISessionAuth)
	church.Get("/features", h.deps.Church.HandleFeatures)
	church.Get("/reports/advanced", h.deps.Church.HandleAdvancedReport)

	inv := api.Group("/invitations")
	inv.Post("/accept", h.deps.Invitations.HandleAccept)
	inv.Get("/", h.deps.Invitations.HandleList)
	inv.Post("/", h.deps.Invitations.HandleCreate)
	inv.Post("/:id/resend", h.deps.Invitations.HandleResend)
	inv.Post("/:id/cancel", h.deps.Invitations.HandleCancel)

	admin := api.Group("/admin", middleware.RequireAPISuperAdmin)
	admin.Get("/churches", h.deps.Admin.HandleListChurches)
	admin.Post("/churches/:id/toggle-active", h.deps.Admin.HandleToggleActive)
	admin.Post("/churches/:id/sponsorship", h.deps.Admin.HandleSponsorship)
	admin.Post("/churches/:id/unlimited-use", h.deps.Admin.HandleUnlimitedUse)
	admin.Put("/churches/:id/subscription", h.deps.Admin.HandleSubscription)
	admin.Get("/system-admins", h.deps.Admin.HandleListSystemAdmins)
	admin.Delete("/system-admins/:id", h.deps.Admin.HandleDeleteSystemAdmin)
	admin.Get("/audit-logs", h.deps.Admin.HandleAuditLogs)
	admin.Get("/metrics/outcomes", h.deps.Admin.HandleOutcomeMetrics)
}

func NewApiRouter(deps *Dependencies) *ApiRouter {
	return &ApiRouter{deps: deps}
}
