package service

import (
	"sort"
	"strings"

	"github.com/noah-isme/campground-approvals-api/internal/models"
)

// MatchPolicy selects the policy governing action from policies. Candidates are
// active, list the action type, are global or share the action's scope and carry
// no threshold or one at or below the amount. Threshold policies in another
// currency never match. Ranking: highest threshold, most approvers, scoped over
// global, lowest id. fallback is returned when nothing qualifies.
func MatchPolicy(policies []models.ApprovalPolicy, action models.ApprovalAction, fallback models.ApprovalPolicy) models.ApprovalPolicy {
	candidates := make([]models.ApprovalPolicy, 0, len(policies))
	for _, policy := range policies {
		if policyApplies(policy, action) {
			candidates = append(candidates, policy)
		}
	}
	if len(candidates) == 0 {
		return fallback
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return morePolicySpecific(candidates[i], candidates[j])
	})
	return candidates[0]
}

func policyApplies(policy models.ApprovalPolicy, action models.ApprovalAction) bool {
	if !policy.IsActive || !policy.Covers(action.Type) {
		return false
	}
	if !policy.IsGlobal() && *policy.ScopeID != action.ScopeID {
		return false
	}
	if policy.ThresholdCents == nil {
		return true
	}
	if !strings.EqualFold(policy.Currency, action.Currency) {
		return false
	}
	return *policy.ThresholdCents <= action.AmountCents
}

// currencyMismatch reports whether policy would have applied to action if it
// were denominated in the action's currency.
func currencyMismatch(policy models.ApprovalPolicy, action models.ApprovalAction) bool {
	if policy.ThresholdCents == nil || strings.EqualFold(policy.Currency, action.Currency) {
		return false
	}
	adjusted := policy
	adjusted.Currency = action.Currency
	return policyApplies(adjusted, action)
}

func morePolicySpecific(a, b models.ApprovalPolicy) bool {
	switch {
	case a.ThresholdCents != nil && b.ThresholdCents == nil:
		return true
	case a.ThresholdCents == nil && b.ThresholdCents != nil:
		return false
	case a.ThresholdCents != nil && *a.ThresholdCents != *b.ThresholdCents:
		return *a.ThresholdCents > *b.ThresholdCents
	}
	if a.ApproversNeeded != b.ApproversNeeded {
		return a.ApproversNeeded > b.ApproversNeeded
	}
	if a.IsGlobal() != b.IsGlobal() {
		return !a.IsGlobal()
	}
	return a.ID < b.ID
}

// NewDefaultPolicy returns the baseline policy with the configured roles.
func NewDefaultPolicy(baselineRoles []string) models.ApprovalPolicy {
	policy := models.DefaultApprovalPolicy
	policy.ApproverRoles = normalizeTags(baselineRoles)
	if len(policy.ApproverRoles) == 0 {
		policy.ApproverRoles = append(policy.ApproverRoles[:0:0], models.DefaultApprovalPolicy.ApproverRoles...)
	}
	return policy
}
