package models

import (
	"time"

	"github.com/samber/lo"
)

const (
	SubscriptionStatusActive   = "active"
	SubscriptionStatusTrialing = "trialing"
	SubscriptionStatusPastDue  = "past_due"
	SubscriptionStatusCanceled = "canceled"
	SubscriptionStatusExpired  = "expired"
	SubscriptionStatusPaused   = "paused"
)

// Subscription holds the plan of a church. A plan change supersedes the
// current row instead of updating or deleting it; the current subscription is
// the one with SupersededAt unset.
type Subscription struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	ChurchID     uint       `gorm:"not null;index:idx_subscriptions_church_current,priority:1" json:"church_id"`
	PlanTier     string     `gorm:"type:varchar(50);not null;default:'free'" json:"plan_tier"`
	Status       string     `gorm:"type:varchar(32);not null;default:'active'" json:"status"`
	Features     []string   `gorm:"serializer:json;type:text" json:"features"`
	SupersededAt *time.Time `gorm:"index:idx_subscriptions_church_current,priority:2" json:"superseded_at,omitempty"`
	CreatedAt    time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// HasFlag reports whether the feature is enabled explicitly on this
// subscription, independent of its tier.
func (s *Subscription) HasFlag(feature string) bool {
	return lo.Contains(s.Features, feature)
}
