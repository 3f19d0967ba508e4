package repository

import (
	"context"

	"github.com/ManuelReschke/ChurchDesk/app/models"
	"gorm.io/gorm"
)

type churchRepository struct {
	db *gorm.DB
}

// NewChurchRepository creates a new church repository instance
func NewChurchRepository(db *gorm.DB) ChurchRepository {
	return &churchRepository{db: db}
}

func (r *churchRepository) Create(ctx context.Context, church *models.Church) error {
	return r.db.WithContext(ctx).Create(church).Error
}

func (r *churchRepository) GetByID(ctx context.Context, id uint) (*models.Church, error) {
	var church models.Church
	if err := r.db.WithContext(ctx).First(&church, id).Error; err != nil {
		return nil, notFound(err, "church")
	}
	return &church, nil
}

// Update writes the tenant flags. Select keeps false values from being
// skipped as zero values.
func (r *churchRepository) Update(ctx context.Context, church *models.Church) error {
	return r.db.WithContext(ctx).Model(church).
		Select("name", "slug", "is_active", "is_sponsored", "unlimited_use").
		Updates(church).Error
}

func (r *churchRepository) List(ctx context.Context, offset, limit int) ([]models.Church, error) {
	var churches []models.Church
	err := r.db.WithContext(ctx).Order("name ASC").Offset(offset).Limit(clampLimit(limit)).Find(&churches).Error
	return churches, err
}

func (r *churchRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Church{}).Count(&count).Error
	return count, err
}
