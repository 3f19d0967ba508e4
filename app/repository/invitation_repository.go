package repository

import (
	"context"
	"strings"
	"time"

	"github.com/ManuelReschke/ChurchDesk/app/models"
	"github.com/ManuelReschke/ChurchDesk/internal/pkg/apperror"
	"gorm.io/gorm"
)

type invitationRepository struct {
	db *gorm.DB
}

// NewInvitationRepository creates an invitation repository backed by GORM.
func NewInvitationRepository(db *gorm.DB) InvitationRepository {
	return &invitationRepository{db: db}
}

func (r *invitationRepository) Create(ctx context.Context, inv *models.Invitation) error {
	return r.db.WithContext(ctx).Create(inv).Error
}

func (r *invitationRepository) GetByID(ctx context.Context, id string) (*models.Invitation, error) {
	var inv models.Invitation
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&inv).Error; err != nil {
		return nil, notFound(err, "invitation")
	}
	return &inv, nil
}

func (r *invitationRepository) GetByToken(ctx context.Context, token string) (*models.Invitation, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, notFound(gorm.ErrRecordNotFound, "invitation")
	}
	var inv models.Invitation
	if err := r.db.WithContext(ctx).Where("token = ?", token).First(&inv).Error; err != nil {
		return nil, notFound(err, "invitation")
	}
	return &inv, nil
}

func (r *invitationRepository) List(ctx context.Context, f InvitationFilter) ([]models.Invitation, error) {
	q := r.db.WithContext(ctx).Model(&models.Invitation{})
	if f.ChurchID != nil {
		q = q.Where("church_id = ?", *f.ChurchID)
	}
	if f.Type != "" {
		q = q.Where("type = ?", f.Type)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.Email != "" {
		q = q.Where("email = ?", strings.ToLower(strings.TrimSpace(f.Email)))
	}

	var invitations []models.Invitation
	err := q.Order("created_at DESC").Offset(f.Offset).Limit(clampLimit(f.Limit)).Find(&invitations).Error
	return invitations, err
}

func (r *invitationRepository) HasPending(ctx context.Context, email string, churchID *uint) (bool, error) {
	q := r.db.WithContext(ctx).Model(&models.Invitation{}).
		Where("email = ? AND status = ?", strings.ToLower(strings.TrimSpace(email)), models.InvitationStatusPending)
	if churchID == nil {
		q = q.Where("church_id IS NULL")
	} else {
		q = q.Where("church_id = ?", *churchID)
	}
	var count int64
	if err := q.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// Transition applies the update only if the stored status is still one of
// t.From when the statement executes. A lost race reports InvalidTransition.
func (r *invitationRepository) Transition(ctx context.Context, t StatusTransition) (*models.Invitation, error) {
	db := r.db.WithContext(ctx)

	updates := map[string]any{"status": t.To}
	for k, v := range t.Updates {
		updates[k] = v
	}

	q := db.Model(&models.Invitation{}).Where("id = ? AND status IN ?", t.ID, t.From)
	if t.NotExpiredAt != nil {
		q = q.Where("expires_at > ?", *t.NotExpiredAt)
	}
	res := q.Updates(updates)
	if res.Error != nil {
		return nil, res.Error
	}

	inv, err := r.GetByID(ctx, t.ID)
	if err != nil {
		return nil, err
	}
	if res.RowsAffected == 0 {
		return inv, apperror.New(apperror.KindInvalidTransition,
			"invitation cannot move from %s to %s", inv.Status, t.To).
			With("status", string(inv.Status))
	}
	return inv, nil
}

// ExpireElapsed persists the derived expired state. Running it twice is a no-op.
func (r *invitationRepository) ExpireElapsed(ctx context.Context, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Model(&models.Invitation{}).
		Where("status = ? AND expires_at <= ?", models.InvitationStatusPending, now).
		Updates(map[string]any{"status": models.InvitationStatusExpired})
	return res.RowsAffected, res.Error
}
