package operations

import (
	"context"
	"fmt"
	"time"

	"github.com/ManuelReschke/ChurchDesk/app/models"
	"github.com/ManuelReschke/ChurchDesk/app/repository"
	"github.com/ManuelReschke/ChurchDesk/internal/pkg/audit"
	"github.com/ManuelReschke/ChurchDesk/internal/pkg/guard"
	"github.com/ManuelReschke/ChurchDesk/internal/pkg/invitation"
)

// InvitationNotifier delivers the invitation token out of band.
type InvitationNotifier interface {
	NotifyInvitation(ctx context.Context, inv *models.Invitation) error
}

func notifyAfterCommit(n InvitationNotifier, inv *models.Invitation) []func(context.Context) error {
	if n == nil {
		return nil
	}
	sent := *inv
	return []func(context.Context) error{
		func(ctx context.Context) error { return n.NotifyInvitation(ctx, &sent) },
	}
}

func invitationEntry(action string, inv *models.Invitation, description string) *audit.Entry {
	md := models.Metadata{
		"email":          models.String(inv.Email),
		"role":           models.String(string(inv.Role)),
		"invitationType": models.String(string(inv.Type)),
		"status":         models.String(string(inv.Status)),
		"expiresAt":      models.String(inv.ExpiresAt.UTC().Format(time.RFC3339)),
	}
	if inv.ChurchID != nil {
		md["churchId"] = models.Int(int64(*inv.ChurchID))
	}
	return &audit.Entry{
		Action:      action,
		EntityType:  audit.EntityInvitation,
		EntityID:    inv.ID,
		EntityName:  inv.Email,
		Description: description,
		Metadata:    md,
	}
}

// CreateInvitation issues an invitation and emails it after commit.
func CreateInvitation(svc *invitation.Service, in invitation.CreateInput, n InvitationNotifier) guard.Action {
	return func(ctx context.Context, s *guard.Scope) (*guard.Result, error) {
		inv, err := svc.Create(ctx, s.Repos, s.Identity, in)
		if err != nil {
			return nil, err
		}
		return &guard.Result{
			Entity:      inv,
			Audit:       invitationEntry(audit.ActionInvitationCreated, inv, fmt.Sprintf("Invited %s as %s", inv.Email, inv.Role)),
			AfterCommit: notifyAfterCommit(n, inv),
		}, nil
	}
}

// ResendInvitation renews the validity window and emails the invitation again.
func ResendInvitation(svc *invitation.Service, id string, n InvitationNotifier) guard.Action {
	return func(ctx context.Context, s *guard.Scope) (*guard.Result, error) {
		inv, err := svc.Resend(ctx, s.Repos, s.Identity, id)
		if err != nil {
			return nil, err
		}
		return &guard.Result{
			Entity:      inv,
			Audit:       invitationEntry(audit.ActionInvitationResent, inv, fmt.Sprintf("Resent invitation to %s", inv.Email)),
			AfterCommit: notifyAfterCommit(n, inv),
		}, nil
	}
}

// CancelInvitation moves an invitation to cancelled.
func CancelInvitation(svc *invitation.Service, id string) guard.Action {
	return func(ctx context.Context, s *guard.Scope) (*guard.Result, error) {
		inv, err := svc.Cancel(ctx, s.Repos, s.Identity, id)
		if err != nil {
			return nil, err
		}
		return &guard.Result{
			Entity: inv,
			Audit:  invitationEntry(audit.ActionInvitationCancelled, inv, fmt.Sprintf("Cancelled invitation to %s", inv.Email)),
		}, nil
	}
}

// AcceptInvitation redeems a token. It runs without a caller identity; the
// new user is recorded as the actor.
func AcceptInvitation(svc *invitation.Service, in invitation.AcceptInput) guard.Action {
	return func(ctx context.Context, s *guard.Scope) (*guard.Result, error) {
		inv, user, err := svc.Accept(ctx, s.Repos, in)
		if err != nil {
			return nil, err
		}
		actor := audit.ActorFromUser(user)
		return &guard.Result{
			Entity: user,
			Actor:  &actor,
			Audit:  invitationEntry(audit.ActionInvitationAccepted, inv, fmt.Sprintf("%s accepted the invitation", user.Name)),
		}, nil
	}
}

// InvitationView is an invitation with its read-time status.
type InvitationView struct {
	models.Invitation
	EffectiveStatus models.InvitationStatus `json:"effective_status"`
}

// ListInvitations lists invitations visible to the caller. ADMIN callers
// only see their own church.
func ListInvitations(filter repository.InvitationFilter, now func() time.Time) guard.Action {
	if now == nil {
		now = time.Now
	}
	return func(ctx context.Context, s *guard.Scope) (*guard.Result, error) {
		if s.Identity.Role != models.RoleSuperAdmin {
			filter.ChurchID = s.Identity.ChurchID
			filter.Type = models.InvitationTypeChurch
		}
		invitations, err := s.Repos.Invitation.List(ctx, filter)
		if err != nil {
			return nil, err
		}

		at := now()
		views := make([]InvitationView, 0, len(invitations))
		for i := range invitations {
			views = append(views, InvitationView{
				Invitation:      invitations[i],
				EffectiveStatus: invitation.EffectiveStatus(&invitations[i], at),
			})
		}
		return &guard.Result{Entity: views}, nil
	}
}
