package identity

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuelReschke/ChurchDesk/app/models"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func newTestResolver(t *testing.T, now time.Time) *Resolver {
	t.Helper()
	r, err := NewResolver(testSecret, time.Hour)
	require.NoError(t, err)
	return r.WithClock(func() time.Time { return now })
}

func TestIssueAndResolve(t *testing.T) {
	now := time.Now()
	r := newTestResolver(t, now)
	church := uint(7)

	token, err := r.Issue(&models.User{ID: 42, Role: models.RoleAdmin, ChurchID: &church})
	require.NoError(t, err)

	id, ok := r.Resolve(token)
	require.True(t, ok)
	assert.Equal(t, uint(42), id.UserID)
	assert.Equal(t, models.RoleAdmin, id.Role)
	require.NotNil(t, id.ChurchID)
	assert.Equal(t, uint(7), *id.ChurchID)
	assert.True(t, id.HasChurch())
}

func TestResolveSuperAdminWithoutChurch(t *testing.T) {
	r := newTestResolver(t, time.Now())

	token, err := r.Issue(&models.User{ID: 1, Role: models.RoleSuperAdmin})
	require.NoError(t, err)

	id, ok := r.Resolve(token)
	require.True(t, ok)
	assert.Nil(t, id.ChurchID)
	assert.False(t, id.HasChurch())
}

func TestResolveRejectsExpired(t *testing.T) {
	issuedAt := time.Now().Add(-2 * time.Hour)
	token, err := newTestResolver(t, issuedAt).Issue(&models.User{ID: 1, Role: models.RoleMember})
	require.NoError(t, err)

	_, ok := newTestResolver(t, time.Now()).Resolve(token)
	assert.False(t, ok)
}

func TestResolveRejectsTampered(t *testing.T) {
	r := newTestResolver(t, time.Now())
	token, err := r.Issue(&models.User{ID: 1, Role: models.RoleMember})
	require.NoError(t, err)

	parts := strings.Split(token, ".")
	require.Len(t, parts, 3)
	forged := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Role: models.RoleSuperAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   "1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	forgedSigned, err := forged.SignedString([]byte("another-secret-another-secret-xx"))
	require.NoError(t, err)
	forgedParts := strings.Split(forgedSigned, ".")

	// Swap in the elevated payload but keep the original signature.
	_, ok := r.Resolve(parts[0] + "." + forgedParts[1] + "." + parts[2])
	assert.False(t, ok)

	_, ok = r.Resolve(forgedSigned)
	assert.False(t, ok)
}

func TestResolveRejectsNoneAlgorithm(t *testing.T) {
	r := newTestResolver(t, time.Now())
	token := jwt.NewWithClaims(jwt.SigningMethodNone, claims{
		Role: models.RoleSuperAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   "1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	unsigned, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, ok := r.Resolve(unsigned)
	assert.False(t, ok)
}

func TestResolveRejectsGarbageAndUnknownRole(t *testing.T) {
	r := newTestResolver(t, time.Now())

	for _, raw := range []string{"", "not-a-token", "a.b.c"} {
		_, ok := r.Resolve(raw)
		assert.False(t, ok, raw)
	}

	token, err := r.Issue(&models.User{ID: 3, Role: models.Role("OWNER")})
	require.NoError(t, err)
	_, ok := r.Resolve(token)
	assert.False(t, ok)
}

func TestNewResolverRequiresStrongSecret(t *testing.T) {
	_, err := NewResolver("short", time.Hour)
	assert.Error(t, err)
}
