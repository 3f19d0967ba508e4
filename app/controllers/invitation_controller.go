package controllers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/ManuelReschke/ChurchDesk/app/models"
	"github.com/ManuelReschke/ChurchDesk/app/repository"
	"github.com/ManuelReschke/ChurchDesk/internal/pkg/guard"
	"github.com/ManuelReschke/ChurchDesk/internal/pkg/invitation"
	"github.com/ManuelReschke/ChurchDesk/internal/pkg/operations"
	"github.com/ManuelReschke/ChurchDesk/internal/pkg/policy"
)

var (
	routeInvitationList   = guard.Route{Name: "invitations.list", Roles: policy.AdminsOnly}
	routeInvitationCreate = guard.Route{Name: "invitations.create", Roles: policy.AdminsOnly}
	routeInvitationResend = guard.Route{Name: "invitations.resend", Roles: policy.AdminsOnly}
	routeInvitationCancel = guard.Route{Name: "invitations.cancel", Roles: policy.AdminsOnly}
	routeInvitationAccept = guard.Route{Name: "invitations.accept"}
)

// InvitationController exposes the invitation lifecycle.
type InvitationController struct {
	guard    *guard.Guard
	service  *invitation.Service
	notifier operations.InvitationNotifier
	now      func() time.Time
}

func NewInvitationController(g *guard.Guard, service *invitation.Service, notifier operations.InvitationNotifier) *InvitationController {
	return &InvitationController{guard: g, service: service, notifier: notifier, now: time.Now}
}

func (ic *InvitationController) HandleList(c *fiber.Ctx) error {
	filter := repository.InvitationFilter{
		ChurchID: optionalUintQuery(c, "church_id"),
		Type:     models.InvitationType(c.Query("invitation_type")),
		Status:   models.InvitationStatus(c.Query("status")),
		Email:    c.Query("email"),
		Offset:   c.QueryInt("offset", 0),
		Limit:    c.QueryInt("limit", 50),
	}
	return respond(c, ic.guard.Run(c.UserContext(), guardRequest(c), routeInvitationList, operations.ListInvitations(filter, ic.now)))
}

func (ic *InvitationController) HandleCreate(c *fiber.Ctx) error {
	var in invitation.CreateInput
	var action guard.Action
	if err := decodeBody(c, &in); err != nil {
		action = failing(err)
	} else {
		action = operations.CreateInvitation(ic.service, in, ic.notifier)
	}
	return respond(c, ic.guard.Run(c.UserContext(), guardRequest(c), routeInvitationCreate, action))
}

func (ic *InvitationController) HandleResend(c *fiber.Ctx) error {
	action := operations.ResendInvitation(ic.service, c.Params("id"), ic.notifier)
	return respond(c, ic.guard.Run(c.UserContext(), guardRequest(c), routeInvitationResend, action))
}

func (ic *InvitationController) HandleCancel(c *fiber.Ctx) error {
	action := operations.CancelInvitation(ic.service, c.Params("id"))
	return respond(c, ic.guard.Run(c.UserContext(), guardRequest(c), routeInvitationCancel, action))
}

// HandleAccept is public; the invitation token authorizes the request.
func (ic *InvitationController) HandleAccept(c *fiber.Ctx) error {
	var in invitation.AcceptInput
	if err := decodeBody(c, &in); err != nil {
		return writeError(c, err)
	}
	return respond(c, ic.guard.RunAnonymous(c.UserContext(), guardRequest(c), routeInvitationAccept, operations.AcceptInvitation(ic.service, in)))
}
