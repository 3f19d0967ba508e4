package repository

import (
	"context"

	"github.com/ManuelReschke/ChurchDesk/app/models"
	"gorm.io/gorm"
)

type auditLogRepository struct {
	db *gorm.DB
}

// NewAuditLogRepository creates an append-only audit repository.
func NewAuditLogRepository(db *gorm.DB) AuditLogRepository {
	return &auditLogRepository{db: db}
}

func (r *auditLogRepository) Append(ctx context.Context, entry *models.AuditLogEntry) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

// List returns matching entries newest first together with the total count.
func (r *auditLogRepository) List(ctx context.Context, f AuditFilter) ([]models.AuditLogEntry, int64, error) {
	q := r.db.WithContext(ctx).Model(&models.AuditLogEntry{})
	if f.Action != "" {
		q = q.Where("action = ?", f.Action)
	}
	if f.EntityType != "" {
		q = q.Where("entity_type = ?", f.EntityType)
	}
	if f.EntityID != "" {
		q = q.Where("entity_id = ?", f.EntityID)
	}
	if f.ActorUserID != nil {
		q = q.Where("actor_user_id = ?", *f.ActorUserID)
	}

	var total int64
	if err := q.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var entries []models.AuditLogEntry
	err := q.Order("timestamp DESC").Offset(f.Offset).Limit(clampLimit(f.Limit)).Find(&entries).Error
	return entries, total, err
}
