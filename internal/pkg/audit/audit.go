package audit

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ManuelReschke/ChurchDesk/app/models"
	"github.com/ManuelReschke/ChurchDesk/internal/pkg/apperror"
)

// Action names written to the audit log.
const (
	ActionChurchActivationToggled   = "CHURCH_ACTIVATION_TOGGLED"
	ActionChurchSponsorshipUpdated  = "CHURCH_SPONSORSHIP_UPDATED"
	ActionChurchUnlimitedUseUpdated = "CHURCH_UNLIMITED_USE_UPDATED"
	ActionSubscriptionChanged       = "SUBSCRIPTION_CHANGED"
	ActionSystemAdminDeleted        = "SYSTEM_ADMIN_DELETED"
	ActionInvitationCreated         = "INVITATION_CREATED"
	ActionInvitationResent          = "INVITATION_RESENT"
	ActionInvitationCancelled       = "INVITATION_CANCELLED"
	ActionInvitationAccepted        = "INVITATION_ACCEPTED"
)

// Entity types.
const (
	EntityChurch       = "church"
	EntitySubscription = "subscription"
	EntityUser         = "user"
	EntityInvitation   = "invitation"
)

// Store is the durable append the recorder writes to.
type Store interface {
	Append(ctx context.Context, entry *models.AuditLogEntry) error
}

// Actor identifies who performed an action. Name is resolved once by the
// caller and stored verbatim.
type Actor struct {
	UserID *uint
	Name   string
}

// ActorFromUser builds an Actor from a loaded user.
func ActorFromUser(u *models.User) Actor {
	if u == nil {
		return Actor{Name: "system"}
	}
	id := u.ID
	return Actor{UserID: &id, Name: u.Name}
}

// Entry describes what happened to which entity.
type Entry struct {
	Action      string
	EntityType  string
	EntityID    string
	EntityName  string
	Description string
	Metadata    models.Metadata
}

// Source is the best-effort request origin. Empty fields are stored as NULL.
type Source struct {
	IP        string
	UserAgent string
}

// Recorder appends audit entries.
type Recorder struct {
	now func() time.Time
}

func NewRecorder() *Recorder {
	return &Recorder{now: time.Now}
}

// WithClock replaces the time source, used by tests.
func (r *Recorder) WithClock(now func() time.Time) *Recorder {
	r.now = now
	return r
}

// Record writes one entry. Any failure of the store is reported as
// RecordingFailed so the caller can fail the surrounding mutation.
func (r *Recorder) Record(ctx context.Context, store Store, actor Actor, e Entry, src Source) (*models.AuditLogEntry, error) {
	if e.Action == "" || e.EntityType == "" {
		return nil, apperror.New(apperror.KindRecordingFailed, "audit entry requires action and entity type")
	}

	md := e.Metadata
	if md == nil {
		md = models.Metadata{}
	}

	entry := &models.AuditLogEntry{
		ID:          uuid.NewString(),
		ActorUserID: actor.UserID,
		ActorName:   actor.Name,
		Action:      e.Action,
		EntityType:  e.EntityType,
		EntityID:    e.EntityID,
		EntityName:  e.EntityName,
		Description: e.Description,
		Metadata:    md,
		SourceIP:    optional(src.IP, 45),
		UserAgent:   optional(src.UserAgent, 255),
		Timestamp:   r.now().UTC(),
	}

	if err := store.Append(ctx, entry); err != nil {
		return nil, apperror.Wrap(apperror.KindRecordingFailed, err, "failed to append audit entry")
	}
	return entry, nil
}

func optional(v string, max int) *string {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	if len(v) > max {
		v = v[:max]
	}
	return &v
}
