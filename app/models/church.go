package models

import "time"

// Church is a tenant. IsSponsored and UnlimitedUse grant every feature
// regardless of the subscription.
type Church struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Name         string    `gorm:"type:varchar(200);not null" json:"name" validate:"required,max=200"`
	Slug         string    `gorm:"type:varchar(200);uniqueIndex" json:"slug" validate:"required,max=200"`
	IsActive     bool      `gorm:"index" json:"is_active"`
	IsSponsored  bool      `json:"is_sponsored"`
	UnlimitedUse bool      `json:"unlimited_use"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	Subscription *Subscription `gorm:"-" json:"subscription,omitempty"`
}
