package service

import (
	"github.com/noah-isme/campground-approvals-api/internal/models"
	appErrors "github.com/noah-isme/campground-approvals-api/pkg/errors"
)

// ApprovalAuthorizer decides whether an actor may record a decision on a request.
// It never mutates the request.
type ApprovalAuthorizer struct {
	allowSelfApproval bool
}

// NewApprovalAuthorizer constructs the evaluator. Unless allowSelfApproval is set,
// a requester can never approve their own request.
func NewApprovalAuthorizer(allowSelfApproval bool) *ApprovalAuthorizer {
	return &ApprovalAuthorizer{allowSelfApproval: allowSelfApproval}
}

// CanApprove reports whether actor may approve req.
func (a *ApprovalAuthorizer) CanApprove(actor *models.AuthContext, req *models.ApprovalRequest) bool {
	return a.Authorize(actor, req, models.DecisionApprove) == nil
}

// CanReject reports whether actor may reject req.
func (a *ApprovalAuthorizer) CanReject(actor *models.AuthContext, req *models.ApprovalRequest) bool {
	return a.Authorize(actor, req, models.DecisionReject) == nil
}

// Authorize returns nil when actor may record decision on req, otherwise an error
// describing the first failed condition.
func (a *ApprovalAuthorizer) Authorize(actor *models.AuthContext, req *models.ApprovalRequest, decision models.Decision) error {
	if actor == nil || actor.ActorID == "" {
		return appErrors.ErrUnauthorized
	}
	if req == nil {
		return appErrors.ErrNotFound
	}
	if req.Status.IsTerminal() {
		return appErrors.Clone(appErrors.ErrTerminalState, "request is already "+string(req.Status))
	}
	if !req.Status.IsOpen() {
		return appErrors.Clone(appErrors.ErrNotAuthorized, "request is not awaiting decisions")
	}
	if req.Approvals.Contains(actor.ActorID) {
		return appErrors.Clone(appErrors.ErrNotAuthorized, "you already approved this request")
	}
	if decision == models.DecisionApprove && !a.allowSelfApproval && req.Requester == actor.ActorID {
		return appErrors.Clone(appErrors.ErrNotAuthorized, "requesters cannot approve their own request")
	}
	if !actor.HasAnyRole(req.ApproverRoles...) {
		return appErrors.Clone(appErrors.ErrNotAuthorized, "your role is not eligible to decide on this request")
	}
	if !actor.HasPlatformAuthority() && actor.ScopeID != req.Scope() {
		return appErrors.Clone(appErrors.ErrNotAuthorized, "request belongs to another scope")
	}
	return nil
}
