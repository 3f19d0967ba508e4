package repository

import (
	"context"
	"time"

	"github.com/ManuelReschke/ChurchDesk/app/models"
	"gorm.io/gorm"
)

// UserRepository defines the interface for user-related database operations
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id uint) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	// GetByEmailWithDeleted also finds soft-deleted users, which still hold
	// their email in the unique index.
	GetByEmailWithDeleted(ctx context.Context, email string) (*models.User, error)
	// Restore undeletes a soft-deleted user and overwrites its profile with
	// the one in fresh.
	Restore(ctx context.Context, id uint, fresh *models.User) (*models.User, error)
	Delete(ctx context.Context, id uint) error
	ListByRole(ctx context.Context, role models.Role) ([]models.User, error)
	CountByChurch(ctx context.Context, churchID uint) (int64, error)
}

// ChurchRepository defines the interface for tenant operations
type ChurchRepository interface {
	Create(ctx context.Context, church *models.Church) error
	GetByID(ctx context.Context, id uint) (*models.Church, error)
	Update(ctx context.Context, church *models.Church) error
	List(ctx context.Context, offset, limit int) ([]models.Church, error)
	Count(ctx context.Context) (int64, error)
}

// SubscriptionRepository stores plan history per church. Rows are superseded,
// never deleted.
type SubscriptionRepository interface {
	// GetCurrent returns the current subscription or nil if the church has none.
	GetCurrent(ctx context.Context, churchID uint) (*models.Subscription, error)
	Supersede(ctx context.Context, churchID uint, next *models.Subscription, at time.Time) error
	History(ctx context.Context, churchID uint) ([]models.Subscription, error)
}

// InvitationFilter narrows invitation listings. Zero values are ignored.
type InvitationFilter struct {
	ChurchID *uint
	Type     models.InvitationType
	Status   models.InvitationStatus
	Email    string
	Offset   int
	Limit    int
}

// StatusTransition is a compare-and-swap on an invitation's status.
type StatusTransition struct {
	ID   string
	From []models.InvitationStatus
	To   models.InvitationStatus
	// NotExpiredAt additionally requires expires_at to be after this instant.
	NotExpiredAt *time.Time
	Updates      map[string]any
}

// InvitationRepository defines the interface for invitation persistence
type InvitationRepository interface {
	Create(ctx context.Context, inv *models.Invitation) error
	GetByID(ctx context.Context, id string) (*models.Invitation, error)
	GetByToken(ctx context.Context, token string) (*models.Invitation, error)
	List(ctx context.Context, filter InvitationFilter) ([]models.Invitation, error)
	HasPending(ctx context.Context, email string, churchID *uint) (bool, error)
	Transition(ctx context.Context, t StatusTransition) (*models.Invitation, error)
	ExpireElapsed(ctx context.Context, now time.Time) (int64, error)
}

// AuditFilter narrows audit listings. Zero values are ignored.
type AuditFilter struct {
	Action      string
	EntityType  string
	EntityID    string
	ActorUserID *uint
	Offset      int
	Limit       int
}

// AuditLogRepository is append-only; there is no update or delete.
type AuditLogRepository interface {
	Append(ctx context.Context, entry *models.AuditLogEntry) error
	List(ctx context.Context, filter AuditFilter) ([]models.AuditLogEntry, int64, error)
}

// TxManager runs fn with repositories bound to a single transaction. The
// transaction commits only if fn returns nil.
type TxManager interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context, repos *Repositories) error) error
}

// Repositories struct holds all repository instances
type Repositories struct {
	User         UserRepository
	Church       ChurchRepository
	Subscription SubscriptionRepository
	Invitation   InvitationRepository
	AuditLog     AuditLogRepository
}

// NewRepositories creates a new instance of all repositories
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		User:         NewUserRepository(db),
		Church:       NewChurchRepository(db),
		Subscription: NewSubscriptionRepository(db),
		Invitation:   NewInvitationRepository(db),
		AuditLog:     NewAuditLogRepository(db),
	}
}

const defaultLimit = 50

func clampLimit(limit int) int {
	if limit <= 0 || limit > 500 {
		return defaultLimit
	}
	return limit
}
