package repository

import (
	"context"
	"errors"
	"time"

	"github.com/ManuelReschke/ChurchDesk/app/models"
	"gorm.io/gorm"
)

type subscriptionRepository struct {
	db *gorm.DB
}

// NewSubscriptionRepository creates a subscription repository backed by GORM.
func NewSubscriptionRepository(db *gorm.DB) SubscriptionRepository {
	return &subscriptionRepository{db: db}
}

func (r *subscriptionRepository) GetCurrent(ctx context.Context, churchID uint) (*models.Subscription, error) {
	var sub models.Subscription
	err := r.db.WithContext(ctx).
		Where("church_id = ? AND superseded_at IS NULL", churchID).
		Order("id DESC").
		First(&sub).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

// Supersede closes the current subscription and inserts next as the new
// current one. Callers run it inside a transaction.
func (r *subscriptionRepository) Supersede(ctx context.Context, churchID uint, next *models.Subscription, at time.Time) error {
	db := r.db.WithContext(ctx)
	if err := db.Model(&models.Subscription{}).
		Where("church_id = ? AND superseded_at IS NULL", churchID).
		Update("superseded_at", at).Error; err != nil {
		return err
	}
	next.ID = 0
	next.ChurchID = churchID
	next.SupersededAt = nil
	return db.Create(next).Error
}

func (r *subscriptionRepository) History(ctx context.Context, churchID uint) ([]models.Subscription, error) {
	var subs []models.Subscription
	err := r.db.WithContext(ctx).Where("church_id = ?", churchID).Order("id ASC").Find(&subs).Error
	return subs, err
}
