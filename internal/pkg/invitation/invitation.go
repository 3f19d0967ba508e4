package invitation

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/ManuelReschke/ChurchDesk/app/models"
	"github.com/ManuelReschke/ChurchDesk/app/repository"
	"github.com/ManuelReschke/ChurchDesk/internal/pkg/apperror"
	"github.com/ManuelReschke/ChurchDesk/internal/pkg/identity"
	"github.com/ManuelReschke/ChurchDesk/internal/pkg/policy"
)

// ValidityWindow is how long an invitation stays acceptable after creation
// or the last resend.
const ValidityWindow = 7 * 24 * time.Hour

type CreateInput struct {
	Email    string                `json:"email" validate:"required,email,max=200"`
	Role     models.Role           `json:"role" validate:"required,oneof=MEMBER ADMIN SUPERADMIN"`
	Type     models.InvitationType `json:"invitation_type" validate:"required,oneof=system church"`
	ChurchID *uint                 `json:"church_id"`
}

type AcceptInput struct {
	Token    string `json:"token" validate:"required"`
	Name     string `json:"name" validate:"required,min=2,max=150"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

// resendable holds the stored states a resend or cancel may start from. A
// persisted expired row is the swept form of an elapsed pending one.
var resendable = []models.InvitationStatus{models.InvitationStatusPending, models.InvitationStatusExpired}

// Service implements the invitation state machine on top of the repositories
// it is handed, so callers decide the transaction scope.
type Service struct {
	now      func() time.Time
	validate *validator.Validate
}

func NewService() *Service {
	return &Service{now: time.Now, validate: validator.New()}
}

// WithClock replaces the time source, used by tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

func (s *Service) clock() time.Time {
	return s.now().UTC()
}

// IsEffectivelyExpired reports whether a pending invitation has passed its
// expiry, whether or not a sweep has persisted that yet.
func IsEffectivelyExpired(inv *models.Invitation, now time.Time) bool {
	switch inv.Status {
	case models.InvitationStatusExpired:
		return true
	case models.InvitationStatusPending:
		return !now.Before(inv.ExpiresAt)
	default:
		return false
	}
}

// EffectiveStatus is the status used for every authorization decision.
func EffectiveStatus(inv *models.Invitation, now time.Time) models.InvitationStatus {
	if IsEffectivelyExpired(inv, now) {
		return models.InvitationStatusExpired
	}
	return inv.Status
}

// Create issues a pending invitation.
func (s *Service) Create(ctx context.Context, repos *repository.Repositories, inviter identity.Identity, in CreateInput) (*models.Invitation, error) {
	if err := policy.Authorize(&inviter, policy.AdminsOnly).Err(); err != nil {
		return nil, err
	}
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if err := s.validate.Struct(in); err != nil {
		return nil, apperror.FromValidation(err)
	}

	churchID, err := s.scopeForCreate(ctx, repos, inviter, &in)
	if err != nil {
		return nil, err
	}

	if _, err := repos.User.GetByEmail(ctx, in.Email); err == nil {
		return nil, apperror.New(apperror.KindValidation, "a user with this email already exists")
	} else if !errors.Is(err, apperror.ErrNotFound) {
		return nil, err
	}

	pending, err := repos.Invitation.HasPending(ctx, in.Email, churchID)
	if err != nil {
		return nil, err
	}
	if pending {
		return nil, apperror.New(apperror.KindValidation, "a pending invitation for this email already exists")
	}

	token, err := models.GenerateInvitationToken()
	if err != nil {
		return nil, err
	}

	now := s.clock()
	inv := &models.Invitation{
		ID:          uuid.NewString(),
		Email:       in.Email,
		Role:        in.Role,
		Type:        in.Type,
		ChurchID:    churchID,
		Status:      models.InvitationStatusPending,
		Token:       token,
		InvitedByID: inviter.UserID,
		ExpiresAt:   now.Add(ValidityWindow),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := repos.Invitation.Create(ctx, inv); err != nil {
		return nil, err
	}
	return inv, nil
}

func (s *Service) scopeForCreate(ctx context.Context, repos *repository.Repositories, inviter identity.Identity, in *CreateInput) (*uint, error) {
	if in.Type == models.InvitationTypeSystem {
		if err := policy.Authorize(&inviter, policy.SuperAdminOnly).Err(); err != nil {
			return nil, err
		}
		if in.Role != models.RoleSuperAdmin {
			return nil, apperror.New(apperror.KindValidation, "system invitations grant SUPERADMIN only")
		}
		return nil, nil
	}

	if in.Role != models.RoleMember && in.Role != models.RoleAdmin {
		return nil, apperror.New(apperror.KindValidation, "church invitations grant MEMBER or ADMIN only")
	}

	churchID := in.ChurchID
	if inviter.Role == models.RoleAdmin {
		if !inviter.HasChurch() {
			return nil, apperror.New(apperror.KindAuthorizationDenied, "admin is not assigned to a church")
		}
		if churchID != nil && *churchID != *inviter.ChurchID {
			return nil, apperror.New(apperror.KindAuthorizationDenied, "admins can only invite into their own church")
		}
		churchID = inviter.ChurchID
	}
	if churchID == nil {
		return nil, apperror.New(apperror.KindValidation, "church_id is required for church invitations").With("fields", []string{"ChurchID"})
	}
	if _, err := repos.Church.GetByID(ctx, *churchID); err != nil {
		return nil, err
	}
	id := *churchID
	return &id, nil
}

// CanManage checks that actor may resend or cancel inv: system invitations
// belong to SUPERADMINs, church invitations to that church's admins.
func CanManage(actor identity.Identity, inv *models.Invitation) error {
	if err := policy.Authorize(&actor, policy.AdminsOnly).Err(); err != nil {
		return err
	}
	if actor.Role == models.RoleSuperAdmin {
		return nil
	}
	if inv.Type == models.InvitationTypeSystem {
		return apperror.New(apperror.KindAuthorizationDenied, "system invitations are managed by SUPERADMIN")
	}
	if !actor.HasChurch() || inv.ChurchID == nil || *inv.ChurchID != *actor.ChurchID {
		// Do not reveal invitations of other churches.
		return apperror.New(apperror.KindNotFound, "invitation not found")
	}
	return nil
}

// notTerminal rejects a move out of accepted or cancelled without touching
// the store. The status compare-and-swap still guards against a concurrent
// change after this read.
func notTerminal(inv *models.Invitation, to models.InvitationStatus) error {
	if !inv.Status.IsTerminal() {
		return nil
	}
	return apperror.New(apperror.KindInvalidTransition, "invitation cannot move from %s to %s", inv.Status, to).
		With("status", string(inv.Status))
}

// Resend extends a pending (or elapsed) invitation by another validity window.
func (s *Service) Resend(ctx context.Context, repos *repository.Repositories, actor identity.Identity, id string) (*models.Invitation, error) {
	inv, err := repos.Invitation.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := CanManage(actor, inv); err != nil {
		return nil, err
	}
	if err := notTerminal(inv, models.InvitationStatusPending); err != nil {
		return nil, err
	}

	now := s.clock()
	return repos.Invitation.Transition(ctx, repository.StatusTransition{
		ID:   id,
		From: resendable,
		To:   models.InvitationStatusPending,
		Updates: map[string]any{
			"expires_at": now.Add(ValidityWindow),
			"updated_at": now,
		},
	})
}

// Cancel moves an invitation to the terminal cancelled state.
func (s *Service) Cancel(ctx context.Context, repos *repository.Repositories, actor identity.Identity, id string) (*models.Invitation, error) {
	inv, err := repos.Invitation.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := CanManage(actor, inv); err != nil {
		return nil, err
	}
	if err := notTerminal(inv, models.InvitationStatusCancelled); err != nil {
		return nil, err
	}

	return repos.Invitation.Transition(ctx, repository.StatusTransition{
		ID:      id,
		From:    resendable,
		To:      models.InvitationStatusCancelled,
		Updates: map[string]any{"updated_at": s.clock()},
	})
}

// Accept redeems a token and creates the invited user. The invitation must be
// stored as pending and not yet elapsed at the moment of the update.
func (s *Service) Accept(ctx context.Context, repos *repository.Repositories, in AcceptInput) (*models.Invitation, *models.User, error) {
	in.Token = strings.TrimSpace(in.Token)
	in.Name = strings.TrimSpace(in.Name)
	if err := s.validate.Struct(in); err != nil {
		return nil, nil, apperror.FromValidation(err)
	}

	inv, err := repos.Invitation.GetByToken(ctx, in.Token)
	if err != nil {
		return nil, nil, err
	}

	now := s.clock()
	if status := EffectiveStatus(inv, now); status != models.InvitationStatusPending {
		return nil, nil, apperror.New(apperror.KindInvalidTransition, "invitation is %s", status).
			With("status", string(status))
	}

	inv, err = repos.Invitation.Transition(ctx, repository.StatusTransition{
		ID:           inv.ID,
		From:         []models.InvitationStatus{models.InvitationStatusPending},
		To:           models.InvitationStatusAccepted,
		NotExpiredAt: &now,
		Updates:      map[string]any{"accepted_at": now, "updated_at": now},
	})
	if err != nil {
		return nil, nil, err
	}

	user, err := models.NewUser(in.Name, inv.Email, in.Password, inv.Role, inv.ChurchID)
	if err != nil {
		return nil, nil, apperror.FromValidation(err)
	}

	existing, err := repos.User.GetByEmailWithDeleted(ctx, inv.Email)
	switch {
	case errors.Is(err, apperror.ErrNotFound):
		if err := repos.User.Create(ctx, user); err != nil {
			return nil, nil, err
		}
		return inv, user, nil
	case err != nil:
		return nil, nil, err
	case !existing.DeletedAt.Valid:
		return nil, nil, apperror.New(apperror.KindValidation, "a user with this email already exists")
	}

	// A removed account comes back under the invited role.
	restored, err := repos.User.Restore(ctx, existing.ID, user)
	if err != nil {
		return nil, nil, err
	}
	return inv, restored, nil
}

// Sweep persists expired for every elapsed pending invitation. It is
// housekeeping only; decisions never depend on it having run.
func Sweep(ctx context.Context, repo repository.InvitationRepository, now time.Time) (int64, error) {
	return repo.ExpireElapsed(ctx, now)
}
