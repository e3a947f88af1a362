package service

import (
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/campground-approvals-api/internal/models"
)

func centsPtr(v int64) *int64 { return &v }

func scopePtr(v string) *string { return &v }

func testPolicy(id string, threshold *int64, approvers int, scope *string) models.ApprovalPolicy {
	return models.ApprovalPolicy{
		ID:              id,
		Name:            "policy " + id,
		AppliesTo:       pq.StringArray{"refund"},
		ThresholdCents:  threshold,
		Currency:        "USD",
		ApproversNeeded: approvers,
		ApproverRoles:   pq.StringArray{"owner", "manager"},
		IsActive:        true,
		ScopeID:         scope,
	}
}

func TestMatchPolicyFallsBackToDefault(t *testing.T) {
	fallback := NewDefaultPolicy(nil)
	action := models.ApprovalAction{Type: models.ActionTypePayout, AmountCents: 5000, Currency: "USD", ScopeID: "camp-1"}

	got := MatchPolicy([]models.ApprovalPolicy{testPolicy("a", nil, 2, nil)}, action, fallback)
	assert.Equal(t, models.DefaultPolicyID, got.ID)
	assert.Equal(t, 1, got.ApproversNeeded)
}

func TestMatchPolicyRanking(t *testing.T) {
	fallback := NewDefaultPolicy(nil)
	action := models.ApprovalAction{Type: models.ActionTypeRefund, AmountCents: 30000, Currency: "usd", ScopeID: "camp-1"}

	cases := []struct {
		name     string
		policies []models.ApprovalPolicy
		want     string
	}{
		{
			name:     "highest threshold wins",
			policies: []models.ApprovalPolicy{testPolicy("low", centsPtr(1000), 3, nil), testPolicy("high", centsPtr(25000), 2, nil)},
			want:     "high",
		},
		{
			name:     "threshold beats unconditional",
			policies: []models.ApprovalPolicy{testPolicy("any", nil, 3, nil), testPolicy("limit", centsPtr(100), 1, nil)},
			want:     "limit",
		},
		{
			name:     "threshold above amount ignored",
			policies: []models.ApprovalPolicy{testPolicy("big", centsPtr(50000), 3, nil), testPolicy("any", nil, 1, nil)},
			want:     "any",
		},
		{
			name:     "more approvers break threshold ties",
			policies: []models.ApprovalPolicy{testPolicy("one", centsPtr(25000), 1, nil), testPolicy("two", centsPtr(25000), 2, nil)},
			want:     "two",
		},
		{
			name:     "scoped beats global",
			policies: []models.ApprovalPolicy{testPolicy("global", centsPtr(25000), 2, nil), testPolicy("local", centsPtr(25000), 2, scopePtr("camp-1"))},
			want:     "local",
		},
		{
			name:     "other scope ignored",
			policies: []models.ApprovalPolicy{testPolicy("elsewhere", centsPtr(25000), 2, scopePtr("camp-2")), testPolicy("global", nil, 1, nil)},
			want:     "global",
		},
		{
			name:     "lowest id breaks full ties",
			policies: []models.ApprovalPolicy{testPolicy("b", nil, 2, nil), testPolicy("a", nil, 2, nil)},
			want:     "a",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, MatchPolicy(tc.policies, action, fallback).ID)
		})
	}
}

func TestMatchPolicySkipsInactiveAndForeignCurrency(t *testing.T) {
	fallback := NewDefaultPolicy(nil)
	action := models.ApprovalAction{Type: models.ActionTypeRefund, AmountCents: 30000, Currency: "USD"}

	inactive := testPolicy("inactive", nil, 2, nil)
	inactive.IsActive = false
	euro := testPolicy("euro", centsPtr(100), 2, nil)
	euro.Currency = "EUR"

	got := MatchPolicy([]models.ApprovalPolicy{inactive, euro}, action, fallback)
	assert.Equal(t, models.DefaultPolicyID, got.ID)
	assert.True(t, currencyMismatch(euro, action))
	assert.False(t, currencyMismatch(testPolicy("usd", centsPtr(100), 2, nil), action))
}

func TestMatchPolicyIsDeterministic(t *testing.T) {
	policies := []models.ApprovalPolicy{
		testPolicy("c", centsPtr(100), 2, nil),
		testPolicy("a", centsPtr(100), 2, nil),
		testPolicy("b", centsPtr(100), 2, nil),
	}
	action := models.ApprovalAction{Type: models.ActionTypeRefund, AmountCents: 500, Currency: "USD"}
	first := MatchPolicy(policies, action, NewDefaultPolicy(nil))
	for i := 0; i < 10; i++ {
		assert.Equal(t, first.ID, MatchPolicy(policies, action, NewDefaultPolicy(nil)).ID)
	}
	assert.Equal(t, "a", first.ID)
}

func TestNewDefaultPolicyUsesBaselineRoles(t *testing.T) {
	policy := NewDefaultPolicy([]string{"owner"})
	assert.Equal(t, pq.StringArray{"owner"}, policy.ApproverRoles)
	assert.Len(t, models.DefaultApprovalPolicy.ApproverRoles, 4)

	folded := NewDefaultPolicy([]string{" Owner", "FINANCE", "owner"})
	assert.Equal(t, pq.StringArray{"finance", "owner"}, folded.ApproverRoles)

	blank := NewDefaultPolicy([]string{" "})
	assert.Len(t, blank.ApproverRoles, 4)
}
