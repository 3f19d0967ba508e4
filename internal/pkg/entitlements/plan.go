package entitlements

import "strings"

type Plan string

const (
	PlanFree    Plan = "free"
	PlanBasic   Plan = "basic"
	PlanPremium Plan = "premium"
)

// tierOf is the lowest plan that includes a feature.
var tierOf = map[Feature]Plan{
	FeatureMemberDirectory: PlanFree,
	FeatureEventManagement: PlanBasic,
	FeatureDonations:       PlanBasic,
	FeatureAdvancedReports: PlanPremium,
	FeatureBulkEmail:       PlanPremium,
	FeatureCustomBranding:  PlanPremium,
	FeatureAPIAccess:       PlanPremium,
}

// NormalizePlan maps unknown plan names to free.
func NormalizePlan(plan string) Plan {
	switch Plan(strings.ToLower(strings.TrimSpace(plan))) {
	case PlanBasic:
		return PlanBasic
	case PlanPremium:
		return PlanPremium
	default:
		return PlanFree
	}
}

// IsKnownPlan reports whether plan names an existing tier.
func IsKnownPlan(plan string) bool {
	switch Plan(strings.ToLower(strings.TrimSpace(plan))) {
	case PlanFree, PlanBasic, PlanPremium:
		return true
	default:
		return false
	}
}

func PlanRank(plan string) int {
	switch NormalizePlan(plan) {
	case PlanPremium:
		return 2
	case PlanBasic:
		return 1
	default:
		return 0
	}
}

// IsEntitlingStatus reports whether a subscription in this status grants its plan.
func IsEntitlingStatus(status string) bool {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "active", "trialing", "past_due":
		return true
	default:
		return false
	}
}
