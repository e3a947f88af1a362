package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/lib/pq"
)

// ApprovalStatus captures the lifecycle of an approval request.
type ApprovalStatus string

const (
	ApprovalStatusPending       ApprovalStatus = "pending"
	ApprovalStatusPendingSecond ApprovalStatus = "pending_second"
	ApprovalStatusApproved      ApprovalStatus = "approved"
	ApprovalStatusRejected      ApprovalStatus = "rejected"
)

// IsTerminal reports whether no further transitions are allowed.
func (s ApprovalStatus) IsTerminal() bool {
	return s == ApprovalStatusApproved || s == ApprovalStatusRejected
}

// IsOpen reports whether the request still awaits decisions.
func (s ApprovalStatus) IsOpen() bool {
	return s == ApprovalStatusPending || s == ApprovalStatusPendingSecond
}

// OpenStatuses lists the non-terminal statuses.
var OpenStatuses = []ApprovalStatus{ApprovalStatusPending, ApprovalStatusPendingSecond}

// Decision is the verdict an approver recorded.
type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionReject  Decision = "reject"
)

// ApprovalDecision is one signed verdict on a request.
type ApprovalDecision struct {
	Approver string    `json:"approver"`
	At       time.Time `json:"at"`
	Decision Decision  `json:"decision"`
	Reason   string    `json:"reason,omitempty"`
}

// Value stores the decision as JSONB.
func (d ApprovalDecision) Value() (driver.Value, error) {
	return json.Marshal(d)
}

// Scan reads a JSONB decision.
func (d *ApprovalDecision) Scan(src interface{}) error {
	return scanJSON(src, d)
}

// ApprovalDecisions is the append-only approval log.
type ApprovalDecisions []ApprovalDecision

// Value stores the log as a JSONB array.
func (d ApprovalDecisions) Value() (driver.Value, error) {
	if d == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(d)
}

// Scan reads a JSONB array.
func (d *ApprovalDecisions) Scan(src interface{}) error {
	if src == nil {
		*d = ApprovalDecisions{}
		return nil
	}
	return scanJSON(src, d)
}

// Contains reports whether the approver already signed.
func (d ApprovalDecisions) Contains(approver string) bool {
	for _, decision := range d {
		if decision.Approver == approver {
			return true
		}
	}
	return false
}

func scanJSON(src interface{}, dest interface{}) error {
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, dest)
	case string:
		return json.Unmarshal([]byte(v), dest)
	default:
		return errors.New("unsupported json column type")
	}
}

// ApprovalRequest is a proposed sensitive action awaiting sign-off.
type ApprovalRequest struct {
	ID                string            `db:"id" json:"id"`
	Type              ActionType        `db:"type" json:"type"`
	Requester         string            `db:"requester" json:"requester"`
	Reason            string            `db:"reason" json:"reason"`
	AmountCents       int64             `db:"amount_cents" json:"amountCents"`
	Currency          string            `db:"currency" json:"currency"`
	ScopeID           *string           `db:"scope_id" json:"scopeId,omitempty"`
	PolicyID          string            `db:"policy_id" json:"policyId"`
	PolicyName        string            `db:"policy_name" json:"policyName"`
	ApproverRoles     pq.StringArray    `db:"approver_roles" json:"approverRoles"`
	RequiredApprovals int               `db:"required_approvals" json:"requiredApprovals"`
	Status            ApprovalStatus    `db:"status" json:"status"`
	Approvals         ApprovalDecisions `db:"approvals" json:"approvals"`
	Rejection         *ApprovalDecision `db:"rejection" json:"rejection,omitempty"`
	Version           int64             `db:"version" json:"version"`
	CreatedAt         time.Time         `db:"created_at" json:"createdAt"`
	UpdatedAt         time.Time         `db:"updated_at" json:"updatedAt"`
	ResolvedAt        *time.Time        `db:"resolved_at" json:"resolvedAt,omitempty"`
}

// Clone returns a deep copy safe to mutate.
func (r *ApprovalRequest) Clone() *ApprovalRequest {
	if r == nil {
		return nil
	}
	cp := *r
	cp.ApproverRoles = append(pq.StringArray(nil), r.ApproverRoles...)
	cp.Approvals = append(ApprovalDecisions{}, r.Approvals...)
	if r.Rejection != nil {
		rejection := *r.Rejection
		cp.Rejection = &rejection
	}
	if r.ScopeID != nil {
		scope := *r.ScopeID
		cp.ScopeID = &scope
	}
	if r.ResolvedAt != nil {
		resolved := *r.ResolvedAt
		cp.ResolvedAt = &resolved
	}
	return &cp
}

// Scope returns the scope id or an empty string for global requests.
func (r *ApprovalRequest) Scope() string {
	if r == nil || r.ScopeID == nil {
		return ""
	}
	return *r.ScopeID
}

// ApprovalAction is the proposal an external workflow submits for sign-off.
type ApprovalAction struct {
	Type        ActionType
	AmountCents int64
	Currency    string
	ScopeID     string
	Reason      string
}

// ApprovalRequestFilter constrains store listings.
type ApprovalRequestFilter struct {
	Statuses []ApprovalStatus
	Type     ActionType
	// ScopeID restricts results to one scope; empty means every scope.
	ScopeID string
	// Limit caps the result when positive; zero returns every match.
	Limit int
}
