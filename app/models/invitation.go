package models

import (
	"crypto/rand"
	"encoding/hex"
	"time"
)

// InvitationStatus is the stored lifecycle state of an invitation.
type InvitationStatus string

const (
	InvitationStatusPending   InvitationStatus = "pending"
	InvitationStatusAccepted  InvitationStatus = "accepted"
	InvitationStatusCancelled InvitationStatus = "cancelled"
	InvitationStatusExpired   InvitationStatus = "expired"
)

// InvitationType decides who may invite and which roles can be granted.
type InvitationType string

const (
	InvitationTypeSystem InvitationType = "system"
	InvitationTypeChurch InvitationType = "church"
)

// Invitation is never deleted; cancellation is the only soft removal.
type Invitation struct {
	ID          string           `gorm:"type:char(36);primaryKey" json:"id"`
	Email       string           `gorm:"type:varchar(200);not null;index" json:"email"`
	Role        Role             `gorm:"type:varchar(20);not null" json:"role"`
	Type        InvitationType   `gorm:"type:varchar(20);not null" json:"invitation_type"`
	ChurchID    *uint            `gorm:"index" json:"church_id,omitempty"`
	Status      InvitationStatus `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	Token       string           `gorm:"type:varchar(100);uniqueIndex" json:"-"`
	InvitedByID uint             `gorm:"not null" json:"invited_by_id"`
	ExpiresAt   time.Time        `gorm:"not null;index" json:"expires_at"`
	AcceptedAt  *time.Time       `json:"accepted_at,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

// GenerateInvitationToken returns a random hex token.
func GenerateInvitationToken() (string, error) {
	b := make([]byte, 24)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// IsTerminal reports whether no further transition can leave the status.
func (s InvitationStatus) IsTerminal() bool {
	return s == InvitationStatusAccepted || s == InvitationStatusCancelled
}
