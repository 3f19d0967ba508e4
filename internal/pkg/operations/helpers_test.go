package operations

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/ManuelReschke/ChurchDesk/app/models"
	"github.com/ManuelReschke/ChurchDesk/app/repository"
	"github.com/ManuelReschke/ChurchDesk/internal/pkg/audit"
	"github.com/ManuelReschke/ChurchDesk/internal/pkg/database"
	"github.com/ManuelReschke/ChurchDesk/internal/pkg/entitlements"
	"github.com/ManuelReschke/ChurchDesk/internal/pkg/guard"
	"github.com/ManuelReschke/ChurchDesk/internal/pkg/identity"
)

const testSecret = "0123456789abcdef0123456789abcdef"

type harness struct {
	db       *gorm.DB
	repos    *repository.Repositories
	resolver *identity.Resolver
	guard    *guard.Guard
	church   *models.Church
	super    *models.User
	admin    *models.User
	member   *models.User
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	db, err := database.OpenSQLite(":memory:")
	require.NoError(t, err)
	resolver, err := identity.NewResolver(testSecret, time.Hour)
	require.NoError(t, err)

	h := &harness{db: db, repos: repository.NewRepositories(db), resolver: resolver}
	h.guard = guard.New(resolver, h.repos, repository.NewTxManager(db), audit.NewRecorder(), nil)

	ctx := context.Background()
	h.church = &models.Church{Name: "Grace Chapel", Slug: "grace-chapel", IsActive: true}
	require.NoError(t, h.repos.Church.Create(ctx, h.church))

	h.super = h.addUser(t, "Sam Super", "super@example.org", models.RoleSuperAdmin, nil)
	h.admin = h.addUser(t, "Ada Admin", "admin@example.org", models.RoleAdmin, &h.church.ID)
	h.member = h.addUser(t, "Max Member", "member@example.org", models.RoleMember, &h.church.ID)
	return h
}

func (h *harness) addUser(t *testing.T, name, email string, role models.Role, churchID *uint) *models.User {
	t.Helper()
	u, err := models.NewUser(name, email, "password123", role, churchID)
	require.NoError(t, err)
	require.NoError(t, h.repos.User.Create(context.Background(), u))
	return u
}

func (h *harness) as(t *testing.T, u *models.User) guard.Request {
	t.Helper()
	token, err := h.resolver.Issue(u)
	require.NoError(t, err)
	return guard.Request{Credential: token, IP: "192.0.2.10", UserAgent: "operations-test"}
}

func (h *harness) audits(t *testing.T, filter repository.AuditFilter) []models.AuditLogEntry {
	t.Helper()
	entries, _, err := h.repos.AuditLog.List(context.Background(), filter)
	require.NoError(t, err)
	return entries
}

type memoryCache struct {
	mu          sync.Mutex
	matrices    map[uint]map[entitlements.Feature]bool
	invalidated []uint
}

func newMemoryCache() *memoryCache {
	return &memoryCache{matrices: map[uint]map[entitlements.Feature]bool{}}
}

func (c *memoryCache) Get(_ context.Context, id uint) (map[entitlements.Feature]bool, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	m, ok := c.matrices[id]
	return m, ok, nil
}

func (c *memoryCache) Set(_ context.Context, id uint, m map[entitlements.Feature]bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.matrices[id] = m
	return nil
}

func (c *memoryCache) Invalidate(_ context.Context, id uint) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.matrices, id)
	c.invalidated = append(c.invalidated, id)
	return nil
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []string
}

func (n *recordingNotifier) NotifyInvitation(_ context.Context, inv *models.Invitation) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, inv.Email)
	return nil
}
