package controllers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/ManuelReschke/ChurchDesk/app/repository"
	"github.com/ManuelReschke/ChurchDesk/internal/pkg/apperror"
	"github.com/ManuelReschke/ChurchDesk/internal/pkg/constants"
	"github.com/ManuelReschke/ChurchDesk/internal/pkg/guard"
	"github.com/ManuelReschke/ChurchDesk/internal/pkg/operations"
	"github.com/ManuelReschke/ChurchDesk/internal/pkg/policy"
	"github.com/ManuelReschke/ChurchDesk/views/admin_views"
)

var (
	routeAdminDashboard    = guard.Route{Name: "admin.dashboard", Roles: policy.SuperAdminOnly}
	routeChurchList        = guard.Route{Name: "admin.churches.list", Roles: policy.SuperAdminOnly}
	routeChurchToggle      = guard.Route{Name: "admin.churches.toggle_active", Roles: policy.SuperAdminOnly}
	routeChurchSponsorship = guard.Route{Name: "admin.churches.sponsorship", Roles: policy.SuperAdminOnly}
	routeChurchUnlimited   = guard.Route{Name: "admin.churches.unlimited_use", Roles: policy.SuperAdminOnly}
	routeChurchPlan        = guard.Route{Name: "admin.churches.subscription", Roles: policy.SuperAdminOnly}
	routeSystemAdminList   = guard.Route{Name: "admin.system_admins.list", Roles: policy.SuperAdminOnly}
	routeSystemAdminDelete = guard.Route{Name: "admin.system_admins.delete", Roles: policy.SuperAdminOnly}
	routeAuditLogList      = guard.Route{Name: "admin.audit_logs.list", Roles: policy.SuperAdminOnly}
	routeOutcomeMetrics    = guard.Route{Name: "admin.metrics.outcomes", Roles: policy.SuperAdminOnly}
)

// AdminController handles platform administration for SUPERADMINs.
type AdminController struct {
	guard    *guard.Guard
	cache    operations.FeatureInvalidator
	counters operations.OutcomeCounters
	now      func() time.Time
}

// NewAdminController creates a new admin controller with its dependencies
func NewAdminController(g *guard.Guard, cache operations.FeatureInvalidator, counters operations.OutcomeCounters) *AdminController {
	return &AdminController{guard: g, cache: cache, counters: counters, now: time.Now}
}

// HandleDashboard renders an overview of the newest churches. Callers that
// are not signed in as SUPERADMIN are sent to the login page.
func (ac *AdminController) HandleDashboard(c *fiber.Ctx) error {
	out := ac.guard.Run(c.UserContext(), guardRequest(c), routeAdminDashboard, operations.ListChurches(0, 20))
	if !out.OK() {
		switch apperror.KindOf(out.Err) {
		case apperror.KindUnauthenticated, apperror.KindAuthorizationDenied:
			return c.Redirect(constants.LoginRoute, fiber.StatusSeeOther)
		}
		return fiber.NewError(apperror.HTTPStatus(apperror.KindOf(out.Err)), "admin dashboard unavailable")
	}
	page := out.Entity.(operations.ChurchPage)

	c.Type("html", "utf-8")
	return admin_views.Dashboard(page.Churches, page.Total).Render(c.Context(), c.Response().BodyWriter())
}

func (ac *AdminController) HandleListChurches(c *fiber.Ctx) error {
	action := operations.ListChurches(c.QueryInt("offset", 0), c.QueryInt("limit", 50))
	return respond(c, ac.guard.Run(c.UserContext(), guardRequest(c), routeChurchList, action))
}

func (ac *AdminController) HandleToggleActive(c *fiber.Ctx) error {
	var action guard.Action
	if id, err := uintParam(c, "id"); err != nil {
		action = failing(err)
	} else {
		action = operations.ToggleChurchActive(id)
	}
	return respond(c, ac.guard.Run(c.UserContext(), guardRequest(c), routeChurchToggle, action))
}

func (ac *AdminController) HandleSponsorship(c *fiber.Ctx) error {
	action := ac.flagAction(c, operations.SetSponsorship)
	return respond(c, ac.guard.Run(c.UserContext(), guardRequest(c), routeChurchSponsorship, action))
}

func (ac *AdminController) HandleUnlimitedUse(c *fiber.Ctx) error {
	action := ac.flagAction(c, operations.SetUnlimitedUse)
	return respond(c, ac.guard.Run(c.UserContext(), guardRequest(c), routeChurchUnlimited, action))
}

func (ac *AdminController) flagAction(c *fiber.Ctx, build func(uint, bool, operations.FeatureInvalidator) guard.Action) guard.Action {
	id, err := uintParam(c, "id")
	if err != nil {
		return failing(err)
	}
	var in operations.FlagInput
	if err := parseBody(c, &in); err != nil {
		return failing(err)
	}
	return build(id, *in.Enabled, ac.cache)
}

func (ac *AdminController) HandleSubscription(c *fiber.Ctx) error {
	var action guard.Action
	id, err := uintParam(c, "id")
	var in operations.SubscriptionInput
	if err == nil {
		err = parseBody(c, &in)
	}
	if err != nil {
		action = failing(err)
	} else {
		action = operations.ChangeSubscription(id, in, ac.now, ac.cache)
	}
	return respond(c, ac.guard.Run(c.UserContext(), guardRequest(c), routeChurchPlan, action))
}

func (ac *AdminController) HandleListSystemAdmins(c *fiber.Ctx) error {
	return respond(c, ac.guard.Run(c.UserContext(), guardRequest(c), routeSystemAdminList, operations.ListSystemAdmins()))
}

// HandleDeleteSystemAdmin removes another SUPERADMIN. Deleting yourself is
// rejected before anything is written.
func (ac *AdminController) HandleDeleteSystemAdmin(c *fiber.Ctx) error {
	id, err := uintParam(c, "id")
	if err != nil {
		return respond(c, ac.guard.Run(c.UserContext(), guardRequest(c), routeSystemAdminDelete, failing(err)))
	}
	return respond(c, ac.guard.Run(c.UserContext(), guardRequest(c), routeSystemAdminDelete,
		operations.DeleteSystemAdmin(id), guard.ForbidSelf(id)))
}

func (ac *AdminController) HandleAuditLogs(c *fiber.Ctx) error {
	filter := repository.AuditFilter{
		Action:      c.Query("action"),
		EntityType:  c.Query("entity_type"),
		EntityID:    c.Query("entity_id"),
		ActorUserID: optionalUintQuery(c, "actor_user_id"),
		Offset:      c.QueryInt("offset", 0),
		Limit:       c.QueryInt("limit", 50),
	}
	return respond(c, ac.guard.Run(c.UserContext(), guardRequest(c), routeAuditLogList, operations.ListAuditLogs(filter)))
}

// HandleOutcomeMetrics returns guard outcome counters; ?reset=true drains them.
func (ac *AdminController) HandleOutcomeMetrics(c *fiber.Ctx) error {
	action := operations.OutcomeMetrics(ac.counters, c.QueryBool("reset", false))
	return respond(c, ac.guard.Run(c.UserContext(), guardRequest(c), routeOutcomeMetrics, action))
}
