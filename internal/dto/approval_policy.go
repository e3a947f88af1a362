package dto

// CreateApprovalPolicyRequest defines a new approval policy.
type CreateApprovalPolicyRequest struct {
	Name            string   `json:"name" validate:"required,max=120"`
	AppliesTo       []string `json:"appliesTo" validate:"required,min=1,dive,required,max=64"`
	ThresholdCents  *int64   `json:"thresholdCents" validate:"omitempty,gte=0"`
	Currency        string   `json:"currency" validate:"required,len=3,alpha"`
	ApproversNeeded int      `json:"approversNeeded" validate:"required,gte=1,lte=10"`
	ApproverRoles   []string `json:"approverRoles" validate:"required,min=1,dive,required,max=64"`
	IsActive        *bool    `json:"isActive"`
	ScopeID         *string  `json:"scopeId" validate:"omitempty,max=64"`
}

// UpdateApprovalPolicyRequest is a partial update; nil fields stay unchanged.
// ClearThreshold removes the threshold so the policy applies to any amount.
type UpdateApprovalPolicyRequest struct {
	Name            *string   `json:"name" validate:"omitempty,min=1,max=120"`
	AppliesTo       *[]string `json:"appliesTo" validate:"omitempty,min=1,dive,required,max=64"`
	ThresholdCents  *int64    `json:"thresholdCents" validate:"omitempty,gte=0"`
	ClearThreshold  bool      `json:"clearThreshold"`
	Currency        *string   `json:"currency" validate:"omitempty,len=3,alpha"`
	ApproversNeeded *int      `json:"approversNeeded" validate:"omitempty,gte=1,lte=10"`
	ApproverRoles   *[]string `json:"approverRoles" validate:"omitempty,min=1,dive,required,max=64"`
	IsActive        *bool     `json:"isActive"`
}

// MatchPolicyQuery previews which policy would govern an action.
type MatchPolicyQuery struct {
	Type        string `form:"type"`
	AmountCents int64  `form:"amountCents"`
	Currency    string `form:"currency"`
	ScopeID     string `form:"scopeId"`
}
