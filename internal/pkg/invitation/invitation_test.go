package invitation

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuelReschke/ChurchDesk/app/models"
	"github.com/ManuelReschke/ChurchDesk/app/repository"
	"github.com/ManuelReschke/ChurchDesk/internal/pkg/apperror"
	"github.com/ManuelReschke/ChurchDesk/internal/pkg/database"
	"github.com/ManuelReschke/ChurchDesk/internal/pkg/identity"
)

type fixture struct {
	repos   *repository.Repositories
	svc     *Service
	now     time.Time
	church  *models.Church
	other   *models.Church
	admin   identity.Identity
	super   identity.Identity
	member  identity.Identity
	outside identity.Identity
}

func (f *fixture) advance(d time.Duration) {
	f.now = f.now.Add(d)
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db, err := database.OpenSQLite(":memory:")
	require.NoError(t, err)

	f := &fixture{
		repos: repository.NewRepositories(db),
		now:   time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	f.svc = NewService().WithClock(func() time.Time { return f.now })

	ctx := context.Background()
	f.church = &models.Church{Name: "Grace Chapel", Slug: "grace-chapel", IsActive: true}
	f.other = &models.Church{Name: "Hope Fellowship", Slug: "hope-fellowship", IsActive: true}
	require.NoError(t, f.repos.Church.Create(ctx, f.church))
	require.NoError(t, f.repos.Church.Create(ctx, f.other))

	f.admin = identity.Identity{UserID: 10, Role: models.RoleAdmin, ChurchID: &f.church.ID}
	f.outside = identity.Identity{UserID: 11, Role: models.RoleAdmin, ChurchID: &f.other.ID}
	f.member = identity.Identity{UserID: 12, Role: models.RoleMember, ChurchID: &f.church.ID}
	f.super = identity.Identity{UserID: 1, Role: models.RoleSuperAdmin}
	return f
}

func (f *fixture) invite(t *testing.T, email string) *models.Invitation {
	t.Helper()
	inv, err := f.svc.Create(context.Background(), f.repos, f.admin, CreateInput{
		Email: email,
		Role:  models.RoleMember,
		Type:  models.InvitationTypeChurch,
	})
	require.NoError(t, err)
	return inv
}

func TestCreateChurchInvitation(t *testing.T) {
	f := newFixture(t)

	inv := f.invite(t, "  New.Member@Example.org ")

	assert.Equal(t, "new.member@example.org", inv.Email)
	assert.Equal(t, models.InvitationStatusPending, inv.Status)
	require.NotNil(t, inv.ChurchID)
	assert.Equal(t, f.church.ID, *inv.ChurchID)
	assert.Equal(t, f.now.Add(ValidityWindow), inv.ExpiresAt)
	assert.NotEmpty(t, inv.Token)
	assert.Equal(t, f.admin.UserID, inv.InvitedByID)
}

func TestCreateRejectsOutOfScopeRequests(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		inviter identity.Identity
		input   CreateInput
		kind    apperror.Kind
	}{
		{
			name:    "member cannot invite",
			inviter: f.member,
			input:   CreateInput{Email: "a@example.org", Role: models.RoleMember, Type: models.InvitationTypeChurch},
			kind:    apperror.KindAuthorizationDenied,
		},
		{
			name:    "admin cannot invite into another church",
			inviter: f.admin,
			input:   CreateInput{Email: "a@example.org", Role: models.RoleMember, Type: models.InvitationTypeChurch, ChurchID: &f.other.ID},
			kind:    apperror.KindAuthorizationDenied,
		},
		{
			name:    "admin cannot issue system invitations",
			inviter: f.admin,
			input:   CreateInput{Email: "a@example.org", Role: models.RoleSuperAdmin, Type: models.InvitationTypeSystem},
			kind:    apperror.KindAuthorizationDenied,
		},
		{
			name:    "church invitation cannot grant superadmin",
			inviter: f.super,
			input:   CreateInput{Email: "a@example.org", Role: models.RoleSuperAdmin, Type: models.InvitationTypeChurch, ChurchID: &f.church.ID},
			kind:    apperror.KindValidation,
		},
		{
			name:    "superadmin must name the church",
			inviter: f.super,
			input:   CreateInput{Email: "a@example.org", Role: models.RoleAdmin, Type: models.InvitationTypeChurch},
			kind:    apperror.KindValidation,
		},
		{
			name:    "invalid email",
			inviter: f.admin,
			input:   CreateInput{Email: "not-an-email", Role: models.RoleMember, Type: models.InvitationTypeChurch},
			kind:    apperror.KindValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Create(ctx, f.repos, tt.inviter, tt.input)
			require.Error(t, err)
			assert.Equal(t, tt.kind, apperror.KindOf(err))
		})
	}
}

func TestCreateSystemInvitation(t *testing.T) {
	f := newFixture(t)

	inv, err := f.svc.Create(context.Background(), f.repos, f.super, CreateInput{
		Email: "ops@example.org",
		Role:  models.RoleSuperAdmin,
		Type:  models.InvitationTypeSystem,
	})
	require.NoError(t, err)
	assert.Nil(t, inv.ChurchID)
	assert.Equal(t, models.RoleSuperAdmin, inv.Role)
}

func TestCreateRejectsDuplicatePending(t *testing.T) {
	f := newFixture(t)
	f.invite(t, "dup@example.org")

	_, err := f.svc.Create(context.Background(), f.repos, f.admin, CreateInput{
		Email: "dup@example.org",
		Role:  models.RoleAdmin,
		Type:  models.InvitationTypeChurch,
	})
	require.Error(t, err)
	assert.Equal(t, apperror.KindValidation, apperror.KindOf(err))
}

func TestResendCancelledInvitationFails(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	inv := f.invite(t, "gone@example.org")

	_, err := f.svc.Cancel(ctx, f.repos, f.admin, inv.ID)
	require.NoError(t, err)

	f.advance(time.Hour)
	_, err = f.svc.Resend(ctx, f.repos, f.admin, inv.ID)
	require.Error(t, err)
	assert.Equal(t, apperror.KindInvalidTransition, apperror.KindOf(err))

	stored, err := f.repos.Invitation.GetByID(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, models.InvitationStatusCancelled, stored.Status)
	assert.True(t, inv.ExpiresAt.Equal(stored.ExpiresAt))
}

func TestResendExtendsElapsedInvitation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	inv := f.invite(t, "late@example.org")

	f.advance(ValidityWindow + time.Hour)
	assert.Equal(t, models.InvitationStatusExpired, EffectiveStatus(inv, f.now))

	resent, err := f.svc.Resend(ctx, f.repos, f.admin, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, models.InvitationStatusPending, resent.Status)
	assert.True(t, resent.ExpiresAt.Equal(f.now.Add(ValidityWindow)))
	assert.Equal(t, models.InvitationStatusPending, EffectiveStatus(resent, f.now))
}

func TestManageIsScopedToChurch(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	inv := f.invite(t, "scoped@example.org")

	_, err := f.svc.Cancel(ctx, f.repos, f.outside, inv.ID)
	require.Error(t, err)
	assert.Equal(t, apperror.KindNotFound, apperror.KindOf(err))

	_, err = f.svc.Resend(ctx, f.repos, f.member, inv.ID)
	require.Error(t, err)
	assert.Equal(t, apperror.KindAuthorizationDenied, apperror.KindOf(err))

	cancelled, err := f.svc.Cancel(ctx, f.repos, f.super, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, models.InvitationStatusCancelled, cancelled.Status)
}

func TestAcceptCreatesUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	inv := f.invite(t, "joiner@example.org")

	f.advance(24 * time.Hour)
	accepted, user, err := f.svc.Accept(ctx, f.repos, AcceptInput{Token: inv.Token, Name: "Joiner", Password: "correct-horse"})
	require.NoError(t, err)

	assert.Equal(t, models.InvitationStatusAccepted, accepted.Status)
	require.NotNil(t, accepted.AcceptedAt)
	assert.Equal(t, models.RoleMember, user.Role)
	require.NotNil(t, user.ChurchID)
	assert.Equal(t, f.church.ID, *user.ChurchID)
	assert.True(t, user.CheckPassword("correct-horse"))

	_, _, err = f.svc.Accept(ctx, f.repos, AcceptInput{Token: inv.Token, Name: "Joiner", Password: "correct-horse"})
	require.Error(t, err)
	assert.Equal(t, apperror.KindInvalidTransition, apperror.KindOf(err))
}

func TestAcceptElapsedInvitationFails(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	inv := f.invite(t, "slow@example.org")

	f.advance(ValidityWindow)
	_, _, err := f.svc.Accept(ctx, f.repos, AcceptInput{Token: inv.Token, Name: "Slow", Password: "correct-horse"})
	require.Error(t, err)
	assert.Equal(t, apperror.KindInvalidTransition, apperror.KindOf(err))

	stored, err := f.repos.Invitation.GetByID(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, models.InvitationStatusPending, stored.Status)

	_, err = f.repos.User.GetByEmail(ctx, "slow@example.org")
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestAcceptUnknownToken(t *testing.T) {
	f := newFixture(t)

	_, _, err := f.svc.Accept(context.Background(), f.repos, AcceptInput{Token: "nope", Name: "Nobody", Password: "correct-horse"})
	require.Error(t, err)
	assert.Equal(t, apperror.KindNotFound, apperror.KindOf(err))
}

func TestSweepIsIdempotentAndBehaviourNeutral(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	stale := f.invite(t, "stale@example.org")
	f.advance(ValidityWindow - time.Hour)
	fresh := f.invite(t, "fresh@example.org")
	f.advance(2 * time.Hour)

	before := EffectiveStatus(stale, f.now)

	n, err := Sweep(ctx, f.repos.Invitation, f.now)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	n, err = Sweep(ctx, f.repos.Invitation, f.now)
	require.NoError(t, err)
	assert.EqualValues(t, 0, n)

	swept, err := f.repos.Invitation.GetByID(ctx, stale.ID)
	require.NoError(t, err)
	assert.Equal(t, models.InvitationStatusExpired, swept.Status)
	assert.Equal(t, before, EffectiveStatus(swept, f.now))

	kept, err := f.repos.Invitation.GetByID(ctx, fresh.ID)
	require.NoError(t, err)
	assert.Equal(t, models.InvitationStatusPending, kept.Status)

	// Swept rows behave exactly like unswept elapsed ones.
	resent, err := f.svc.Resend(ctx, f.repos, f.admin, stale.ID)
	require.NoError(t, err)
	assert.Equal(t, models.InvitationStatusPending, resent.Status)
}

func TestIsEffectivelyExpired(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		status models.InvitationStatus
		expiry time.Time
		want   bool
	}{
		{"pending before expiry", models.InvitationStatusPending, now.Add(time.Second), false},
		{"pending at expiry", models.InvitationStatusPending, now, true},
		{"stored expired", models.InvitationStatusExpired, now.Add(time.Hour), true},
		{"accepted after expiry", models.InvitationStatusAccepted, now.Add(-time.Hour), false},
		{"cancelled after expiry", models.InvitationStatusCancelled, now.Add(-time.Hour), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inv := &models.Invitation{Status: tt.status, ExpiresAt: tt.expiry}
			assert.Equal(t, tt.want, IsEffectivelyExpired(inv, now))
		})
	}
}

func TestStaleTransitionLosesToConcurrentCancel(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	inv := f.invite(t, "race@example.org")

	stale, err := f.repos.Invitation.GetByID(ctx, inv.ID)
	require.NoError(t, err)
	require.Equal(t, models.InvitationStatusPending, stale.Status)

	_, err = f.svc.Cancel(ctx, f.repos, f.super, inv.ID)
	require.NoError(t, err)

	// A resend that read the row before the cancel landed.
	f.advance(time.Hour)
	_, err = f.repos.Invitation.Transition(ctx, repository.StatusTransition{
		ID:   stale.ID,
		From: []models.InvitationStatus{stale.Status},
		To:   models.InvitationStatusPending,
		Updates: map[string]any{
			"expires_at": f.now.Add(ValidityWindow),
			"updated_at": f.now,
		},
	})
	require.Error(t, err)
	assert.Equal(t, apperror.KindInvalidTransition, apperror.KindOf(err))

	stored, err := f.repos.Invitation.GetByID(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, models.InvitationStatusCancelled, stored.Status)
	assert.True(t, inv.ExpiresAt.Equal(stored.ExpiresAt))
}

func TestCancelAcceptedInvitationFails(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	inv := f.invite(t, "done@example.org")

	_, _, err := f.svc.Accept(ctx, f.repos, AcceptInput{Token: inv.Token, Name: "Done", Password: "correct-horse"})
	require.NoError(t, err)

	_, err = f.svc.Cancel(ctx, f.repos, f.admin, inv.ID)
	require.Error(t, err)
	assert.Equal(t, apperror.KindInvalidTransition, apperror.KindOf(err))

	stored, err := f.repos.Invitation.GetByID(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, models.InvitationStatusAccepted, stored.Status)
}

func TestAcceptRestoresDeletedUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	old, err := models.NewUser("Old Ops", "ops@example.org", "old-password", models.RoleSuperAdmin, nil)
	require.NoError(t, err)
	require.NoError(t, f.repos.User.Create(ctx, old))
	require.NoError(t, f.repos.User.Delete(ctx, old.ID))

	inv, err := f.svc.Create(ctx, f.repos, f.super, CreateInput{
		Email: "ops@example.org",
		Role:  models.RoleSuperAdmin,
		Type:  models.InvitationTypeSystem,
	})
	require.NoError(t, err)

	accepted, user, err := f.svc.Accept(ctx, f.repos, AcceptInput{Token: inv.Token, Name: "New Ops", Password: "new-password"})
	require.NoError(t, err)
	assert.Equal(t, models.InvitationStatusAccepted, accepted.Status)
	assert.Equal(t, old.ID, user.ID)
	assert.Equal(t, "New Ops", user.Name)
	assert.Equal(t, models.RoleSuperAdmin, user.Role)
	assert.Nil(t, user.ChurchID)
	assert.True(t, user.CheckPassword("new-password"))
	assert.False(t, user.CheckPassword("old-password"))

	active, err := f.repos.User.GetByEmail(ctx, "ops@example.org")
	require.NoError(t, err)
	assert.Equal(t, old.ID, active.ID)
}

func TestAcceptRejectsEmailTakenByActiveUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	inv := f.invite(t, "taken@example.org")

	u, err := models.NewUser("Taken", "taken@example.org", "password123", models.RoleMember, &f.church.ID)
	require.NoError(t, err)
	require.NoError(t, f.repos.User.Create(ctx, u))

	_, _, err = f.svc.Accept(ctx, f.repos, AcceptInput{Token: inv.Token, Name: "Taken Again", Password: "correct-horse"})
	require.Error(t, err)
	assert.Equal(t, apperror.KindValidation, apperror.KindOf(err))
}
