package operations

import (
	"context"

	"go.uber.org/zap"

	"github.com/ManuelReschke/ChurchDesk/app/models"
	"github.com/ManuelReschke/ChurchDesk/internal/pkg/entitlements"
	"github.com/ManuelReschke/ChurchDesk/internal/pkg/guard"
	"github.com/ManuelReschke/ChurchDesk/internal/pkg/identity"
)

// FeatureCache stores computed feature matrices per church.
type FeatureCache interface {
	Get(ctx context.Context, churchID uint) (map[entitlements.Feature]bool, bool, error)
	Set(ctx context.Context, churchID uint, matrix map[entitlements.Feature]bool) error
}

// Profile is what /api/me returns.
type Profile struct {
	Identity identity.Identity `json:"identity"`
	User     *models.User      `json:"user"`
	Church   *models.Church    `json:"church,omitempty"`
}

// Me echoes the verified caller.
func Me() guard.Action {
	return func(_ context.Context, s *guard.Scope) (*guard.Result, error) {
		return &guard.Result{Entity: Profile{Identity: s.Identity, User: s.User, Church: s.Church}}, nil
	}
}

// FeatureMatrix is the entitlement of a church for every known feature.
type FeatureMatrix struct {
	ChurchID uint                          `json:"church_id"`
	Features map[entitlements.Feature]bool `json:"features"`
	Cached   bool                          `json:"cached"`
}

// ChurchFeatures returns the caller's feature matrix, served from cache when
// present. Cache errors fall back to live evaluation.
func ChurchFeatures(cache FeatureCache, log *zap.Logger) guard.Action {
	if log == nil {
		log = zap.NewNop()
	}
	return func(ctx context.Context, s *guard.Scope) (*guard.Result, error) {
		if s.Church == nil {
			return &guard.Result{Entity: FeatureMatrix{Features: map[entitlements.Feature]bool{}}}, nil
		}
		churchID := s.Church.ID

		if cache != nil {
			matrix, ok, err := cache.Get(ctx, churchID)
			if err != nil {
				log.Warn("feature cache read failed", zap.Uint("church_id", churchID), zap.Error(err))
			} else if ok {
				return &guard.Result{Entity: FeatureMatrix{ChurchID: churchID, Features: matrix, Cached: true}}, nil
			}
		}

		sub, err := s.Repos.Subscription.GetCurrent(ctx, churchID)
		if err != nil {
			return nil, err
		}
		matrix := entitlements.AllFeatureAccess(sub, entitlements.OverridesFor(s.Church))

		if cache != nil {
			if err := cache.Set(ctx, churchID, matrix); err != nil {
				log.Warn("feature cache write failed", zap.Uint("church_id", churchID), zap.Error(err))
			}
		}
		return &guard.Result{Entity: FeatureMatrix{ChurchID: churchID, Features: matrix}}, nil
	}
}

// AdvancedReport summarises a church. The route serving it is gated on the
// advanced-reports feature.
type AdvancedReport struct {
	ChurchID     uint                 `json:"church_id"`
	Members      int64                `json:"members"`
	Subscription *models.Subscription `json:"subscription,omitempty"`
	History      int                  `json:"subscription_changes"`
}

func ChurchReport() guard.Action {
	return func(ctx context.Context, s *guard.Scope) (*guard.Result, error) {
		churchID := s.Church.ID
		members, err := s.Repos.User.CountByChurch(ctx, churchID)
		if err != nil {
			return nil, err
		}
		sub, err := s.Repos.Subscription.GetCurrent(ctx, churchID)
		if err != nil {
			return nil, err
		}
		history, err := s.Repos.Subscription.History(ctx, churchID)
		if err != nil {
			return nil, err
		}
		return &guard.Result{Entity: AdvancedReport{
			ChurchID:     churchID,
			Members:      members,
			Subscription: sub,
			History:      len(history),
		}}, nil
	}
}
