package repository_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuelReschke/ChurchDesk/app/models"
	"github.com/ManuelReschke/ChurchDesk/app/repository"
	"github.com/ManuelReschke/ChurchDesk/internal/pkg/database"
)

func TestChurchCreateKeepsFalseFlags(t *testing.T) {
	db, err := database.OpenSQLite(":memory:")
	require.NoError(t, err)
	repos := repository.NewRepositories(db)
	ctx := context.Background()

	inactive := &models.Church{Name: "Closed Chapel", Slug: "closed-chapel", IsActive: false}
	require.NoError(t, repos.Church.Create(ctx, inactive))

	stored, err := repos.Church.GetByID(ctx, inactive.ID)
	require.NoError(t, err)
	assert.False(t, stored.IsActive)
	assert.False(t, stored.IsSponsored)
	assert.False(t, stored.UnlimitedUse)

	active := &models.Church{Name: "Open Chapel", Slug: "open-chapel", IsActive: true, IsSponsored: true}
	require.NoError(t, repos.Church.Create(ctx, active))

	stored, err = repos.Church.GetByID(ctx, active.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsActive)
	assert.True(t, stored.IsSponsored)
}
