package entitlements

import (
	"github.com/ManuelReschke/ChurchDesk/app/models"
	"github.com/ManuelReschke/ChurchDesk/internal/pkg/apperror"
)

type Feature string

const (
	FeatureMemberDirectory Feature = "member-directory"
	FeatureEventManagement Feature = "event-management"
	FeatureDonations       Feature = "donations"
	FeatureAdvancedReports Feature = "advanced-reports"
	FeatureBulkEmail       Feature = "bulk-email"
	FeatureCustomBranding  Feature = "custom-branding"
	FeatureAPIAccess       Feature = "api-access"
)

// Features lists every known feature in display order.
var Features = []Feature{
	FeatureMemberDirectory,
	FeatureEventManagement,
	FeatureDonations,
	FeatureAdvancedReports,
	FeatureBulkEmail,
	FeatureCustomBranding,
	FeatureAPIAccess,
}

// Overrides are the tenant-level flags that bypass the subscription.
type Overrides struct {
	IsSponsored  bool
	UnlimitedUse bool
}

// OverridesFor extracts the override flags of a church.
func OverridesFor(c *models.Church) Overrides {
	if c == nil {
		return Overrides{}
	}
	return Overrides{IsSponsored: c.IsSponsored, UnlimitedUse: c.UnlimitedUse}
}

// ParseFeature validates a feature name.
func ParseFeature(name string) (Feature, error) {
	f := Feature(name)
	if _, ok := tierOf[f]; !ok {
		return "", apperror.New(apperror.KindUnknownFeature, "unknown feature %q", name).With("feature", name)
	}
	return f, nil
}

// HasFeatureAccess evaluates sponsorship, then unlimited use, then the
// subscription. A nil subscription grants nothing.
func HasFeatureAccess(sub *models.Subscription, o Overrides, feature Feature) (bool, error) {
	if _, err := ParseFeature(string(feature)); err != nil {
		return false, err
	}
	return evaluate(sub, o, feature), nil
}

// AllFeatureAccess evaluates every known feature with the same rule as
// HasFeatureAccess.
func AllFeatureAccess(sub *models.Subscription, o Overrides) map[Feature]bool {
	out := make(map[Feature]bool, len(Features))
	for _, f := range Features {
		out[f] = evaluate(sub, o, f)
	}
	return out
}

func evaluate(sub *models.Subscription, o Overrides, feature Feature) bool {
	if o.IsSponsored {
		return true
	}
	if o.UnlimitedUse {
		return true
	}
	return subscriptionGrants(sub, feature)
}

func subscriptionGrants(sub *models.Subscription, feature Feature) bool {
	if sub == nil || !IsEntitlingStatus(sub.Status) {
		return false
	}
	if PlanRank(sub.PlanTier) >= PlanRank(string(tierOf[feature])) {
		return true
	}
	return sub.HasFlag(string(feature))
}
