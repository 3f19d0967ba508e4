package operations

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/ManuelReschke/ChurchDesk/app/models"
	"github.com/ManuelReschke/ChurchDesk/internal/pkg/apperror"
	"github.com/ManuelReschke/ChurchDesk/internal/pkg/audit"
	"github.com/ManuelReschke/ChurchDesk/internal/pkg/entitlements"
	"github.com/ManuelReschke/ChurchDesk/internal/pkg/guard"
)

// FeatureInvalidator drops cached feature matrices after a church's
// entitlements change.
type FeatureInvalidator interface {
	Invalidate(ctx context.Context, churchID uint) error
}

type noopInvalidator struct{}

func (noopInvalidator) Invalidate(context.Context, uint) error { return nil }

func churchEntityID(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}

func invalidateAfterCommit(inv FeatureInvalidator, churchID uint) []func(context.Context) error {
	if inv == nil {
		inv = noopInvalidator{}
	}
	return []func(context.Context) error{
		func(ctx context.Context) error { return inv.Invalidate(ctx, churchID) },
	}
}

// ToggleChurchActive flips a church's activation flag.
func ToggleChurchActive(churchID uint) guard.Action {
	return func(ctx context.Context, s *guard.Scope) (*guard.Result, error) {
		church, err := s.Repos.Church.GetByID(ctx, churchID)
		if err != nil {
			return nil, err
		}
		church.IsActive = !church.IsActive
		if err := s.Repos.Church.Update(ctx, church); err != nil {
			return nil, err
		}

		state := "deactivated"
		if church.IsActive {
			state = "activated"
		}
		return &guard.Result{
			Entity: church,
			Audit: &audit.Entry{
				Action:      audit.ActionChurchActivationToggled,
				EntityType:  audit.EntityChurch,
				EntityID:    churchEntityID(church.ID),
				EntityName:  church.Name,
				Description: fmt.Sprintf("Church %q was %s", church.Name, state),
				Metadata:    models.Metadata{"isActive": models.Bool(church.IsActive)},
			},
		}, nil
	}
}

// FlagInput sets a boolean override on a church.
type FlagInput struct {
	Enabled *bool `json:"enabled" validate:"required"`
}

// SetSponsorship sets the sponsorship override.
func SetSponsorship(churchID uint, enabled bool, cache FeatureInvalidator) guard.Action {
	return setOverride(churchID, enabled, cache, audit.ActionChurchSponsorshipUpdated, "isSponsored", "sponsorship",
		func(c *models.Church) *bool { return &c.IsSponsored })
}

// SetUnlimitedUse sets the unlimited-use override.
func SetUnlimitedUse(churchID uint, enabled bool, cache FeatureInvalidator) guard.Action {
	return setOverride(churchID, enabled, cache, audit.ActionChurchUnlimitedUseUpdated, "unlimitedUse", "unlimited use",
		func(c *models.Church) *bool { return &c.UnlimitedUse })
}

func setOverride(churchID uint, enabled bool, cache FeatureInvalidator, action, key, label string, field func(*models.Church) *bool) guard.Action {
	return func(ctx context.Context, s *guard.Scope) (*guard.Result, error) {
		church, err := s.Repos.Church.GetByID(ctx, churchID)
		if err != nil {
			return nil, err
		}
		flag := field(church)
		previous := *flag
		*flag = enabled
		if err := s.Repos.Church.Update(ctx, church); err != nil {
			return nil, err
		}

		return &guard.Result{
			Entity: church,
			Audit: &audit.Entry{
				Action:      action,
				EntityType:  audit.EntityChurch,
				EntityID:    churchEntityID(church.ID),
				EntityName:  church.Name,
				Description: fmt.Sprintf("Church %q %s set to %t", church.Name, label, enabled),
				Metadata: models.Metadata{
					key:        models.Bool(enabled),
					"previous": models.Bool(previous),
				},
			},
			AfterCommit: invalidateAfterCommit(cache, church.ID),
		}, nil
	}
}

// SubscriptionInput is the requested plan for a church.
type SubscriptionInput struct {
	PlanTier string   `json:"plan_tier" validate:"required,max=50"`
	Status   string   `json:"status" validate:"required,oneof=active trialing past_due canceled expired paused"`
	Features []string `json:"features" validate:"omitempty,dive,required"`
}

// ChangeSubscription supersedes the church's current subscription. The old
// row is kept with SupersededAt set.
func ChangeSubscription(churchID uint, in SubscriptionInput, now func() time.Time, cache FeatureInvalidator) guard.Action {
	if now == nil {
		now = time.Now
	}
	return func(ctx context.Context, s *guard.Scope) (*guard.Result, error) {
		if !entitlements.IsKnownPlan(in.PlanTier) {
			return nil, apperror.New(apperror.KindValidation, "unknown plan tier %q", in.PlanTier).
				With("fields", []string{"PlanTier"})
		}
		for _, f := range in.Features {
			if _, err := entitlements.ParseFeature(f); err != nil {
				return nil, err
			}
		}

		church, err := s.Repos.Church.GetByID(ctx, churchID)
		if err != nil {
			return nil, err
		}
		previous, err := s.Repos.Subscription.GetCurrent(ctx, churchID)
		if err != nil {
			return nil, err
		}

		plan := entitlements.NormalizePlan(in.PlanTier)
		next := &models.Subscription{PlanTier: string(plan), Status: in.Status, Features: in.Features}
		if err := s.Repos.Subscription.Supersede(ctx, churchID, next, now().UTC()); err != nil {
			return nil, err
		}
		church.Subscription = next

		md := models.Metadata{
			"planTier": models.String(next.PlanTier),
			"status":   models.String(next.Status),
		}
		if previous != nil {
			md["previousPlanTier"] = models.String(previous.PlanTier)
			md["previousStatus"] = models.String(previous.Status)
		}

		return &guard.Result{
			Entity: church,
			Audit: &audit.Entry{
				Action:      audit.ActionSubscriptionChanged,
				EntityType:  audit.EntitySubscription,
				EntityID:    strconv.FormatUint(uint64(next.ID), 10),
				EntityName:  church.Name,
				Description: fmt.Sprintf("Subscription of %q changed to %s (%s)", church.Name, next.PlanTier, next.Status),
				Metadata:    md,
			},
			AfterCommit: invalidateAfterCommit(cache, church.ID),
		}, nil
	}
}

// ChurchPage is a page of churches with their current subscriptions.
type ChurchPage struct {
	Churches []models.Church `json:"churches"`
	Total    int64           `json:"total"`
}

// ListChurches loads a page of churches.
func ListChurches(offset, limit int) guard.Action {
	return func(ctx context.Context, s *guard.Scope) (*guard.Result, error) {
		churches, err := s.Repos.Church.List(ctx, offset, limit)
		if err != nil {
			return nil, err
		}
		total, err := s.Repos.Church.Count(ctx)
		if err != nil {
			return nil, err
		}
		for i := range churches {
			sub, err := s.Repos.Subscription.GetCurrent(ctx, churches[i].ID)
			if err != nil {
				return nil, err
			}
			churches[i].Subscription = sub
		}
		return &guard.Result{Entity: ChurchPage{Churches: churches, Total: total}}, nil
	}
}
