package models

import (
	"strings"
	"time"

	"github.com/lib/pq"
)

// ActionType tags a class of sensitive operation.
type ActionType string

const (
	ActionTypeRefund       ActionType = "refund"
	ActionTypePayout       ActionType = "payout"
	ActionTypeConfigChange ActionType = "config_change"
)

// Role is a resolved authority held by an actor.
type Role string

const (
	RoleOwner         Role = "owner"
	RoleManager       Role = "manager"
	RoleFinance       Role = "finance"
	RoleFrontDesk     Role = "front_desk"
	RolePlatformAdmin Role = "platform_admin"
)

// NormalizeRole folds a role name to the form policies store: trimmed and lower-case.
func NormalizeRole(raw string) Role {
	return Role(strings.ToLower(strings.TrimSpace(raw)))
}

// DefaultPolicyID identifies the fallback policy used when nothing else matches.
const DefaultPolicyID = "default"

// ApprovalPolicy maps action types above an optional threshold to the sign-off they need.
type ApprovalPolicy struct {
	ID              string         `db:"id" json:"id"`
	Name            string         `db:"name" json:"name"`
	AppliesTo       pq.StringArray `db:"applies_to" json:"appliesTo"`
	ThresholdCents  *int64         `db:"threshold_cents" json:"thresholdCents,omitempty"`
	Currency        string         `db:"currency" json:"currency"`
	ApproversNeeded int            `db:"approvers_needed" json:"approversNeeded"`
	ApproverRoles   pq.StringArray `db:"approver_roles" json:"approverRoles"`
	IsActive        bool           `db:"is_active" json:"isActive"`
	ScopeID         *string        `db:"scope_id" json:"scopeId,omitempty"`
	CreatedBy       string         `db:"created_by" json:"createdBy"`
	CreatedAt       time.Time      `db:"created_at" json:"createdAt"`
	UpdatedAt       time.Time      `db:"updated_at" json:"updatedAt"`
}

// DefaultApprovalPolicy governs actions no configured policy covers: a single
// approval from any role with baseline authority.
var DefaultApprovalPolicy = ApprovalPolicy{
	ID:              DefaultPolicyID,
	Name:            "Baseline approval",
	AppliesTo:       pq.StringArray{"*"},
	ApproversNeeded: 1,
	ApproverRoles: pq.StringArray{
		string(RoleOwner),
		string(RoleManager),
		string(RoleFinance),
		string(RolePlatformAdmin),
	},
	IsActive: true,
}

// IsDefault reports whether the policy is the baseline fallback.
func (p ApprovalPolicy) IsDefault() bool {
	return p.ID == DefaultPolicyID
}

// Covers reports whether the policy lists the action type.
func (p ApprovalPolicy) Covers(actionType ActionType) bool {
	for _, tag := range p.AppliesTo {
		if strings.EqualFold(tag, string(actionType)) {
			return true
		}
	}
	return false
}

// IsGlobal reports whether the policy applies to every scope.
func (p ApprovalPolicy) IsGlobal() bool {
	return p.ScopeID == nil || *p.ScopeID == ""
}

// ApprovalPolicyFilter narrows policy listings.
type ApprovalPolicyFilter struct {
	// ScopeID limits results to global policies plus those of the scope.
	ScopeID    string
	ActiveOnly bool
}
