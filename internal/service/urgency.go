package service

import (
	"time"

	"github.com/noah-isme/campground-approvals-api/internal/models"
)

// IsUrgent classifies an open request against a viewer's rules. policy is the
// currently stored policy for the request and may be nil when it no longer exists.
// The result depends only on the arguments.
func IsUrgent(req *models.ApprovalRequest, policy *models.ApprovalPolicy, rules models.UrgencyRules, now time.Time) bool {
	if req == nil || req.Status.IsTerminal() {
		return false
	}
	if rules.PendingSecondCounts && req.Status == models.ApprovalStatusPendingSecond {
		return true
	}
	if rules.AgeThresholdHours > 0 {
		limit := time.Duration(rules.AgeThresholdHours * float64(time.Hour))
		if now.Sub(req.CreatedAt) > limit {
			return true
		}
	}
	if rules.PolicyThresholdCounts && policy != nil && policy.ThresholdCents != nil {
		if req.AmountCents >= *policy.ThresholdCents {
			return true
		}
	}
	if rules.CustomAmountThreshold != nil {
		// the custom threshold is expressed in major currency units
		if float64(req.AmountCents) >= *rules.CustomAmountThreshold*100 {
			return true
		}
	}
	return false
}
