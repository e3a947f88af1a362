package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/campground-approvals-api/internal/dto"
	"github.com/noah-isme/campground-approvals-api/internal/models"
	"github.com/noah-isme/campground-approvals-api/internal/repository"
	appErrors "github.com/noah-isme/campground-approvals-api/pkg/errors"
)

const defaultConflictRetries = 3

type approvalRequestStore interface {
	Create(ctx context.Context, req *models.ApprovalRequest) error
	GetByID(ctx context.Context, id string) (*models.ApprovalRequest, error)
	List(ctx context.Context, filter models.ApprovalRequestFilter) ([]models.ApprovalRequest, error)
	UpdateDecision(ctx context.Context, req *models.ApprovalRequest, expectedVersion int64) error
}

type policyMatcher interface {
	Match(ctx context.Context, action models.ApprovalAction) (models.ApprovalPolicy, error)
}

// policyRefresher is implemented by matchers that cache the active policy set.
type policyRefresher interface {
	Refresh(ctx context.Context)
}

// ApprovalService runs the request state machine: submit, approve and reject.
type ApprovalService struct {
	repo       approvalRequestStore
	policies   policyMatcher
	authorizer *ApprovalAuthorizer
	audit      auditLogger
	metrics    *MetricsService
	validator  *validator.Validate
	logger     *zap.Logger
	now        func() time.Time
	retries    int
}

// ApprovalServiceOption configures the service.
type ApprovalServiceOption func(*ApprovalService)

// WithApprovalClock overrides the clock used for decision timestamps.
func WithApprovalClock(now func() time.Time) ApprovalServiceOption {
	return func(s *ApprovalService) {
		if now != nil {
			s.now = now
		}
	}
}

// WithApprovalMetrics records transitions and lost races.
func WithApprovalMetrics(metrics *MetricsService) ApprovalServiceOption {
	return func(s *ApprovalService) {
		s.metrics = metrics
	}
}

// WithConflictRetries bounds how many times a lost version race is retried.
func WithConflictRetries(retries int) ApprovalServiceOption {
	return func(s *ApprovalService) {
		if retries > 0 {
			s.retries = retries
		}
	}
}

// NewApprovalService constructs the service with defaults.
func NewApprovalService(repo approvalRequestStore, policies policyMatcher, authorizer *ApprovalAuthorizer, audit auditLogger, validate *validator.Validate, logger *zap.Logger, opts ...ApprovalServiceOption) *ApprovalService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if authorizer == nil {
		authorizer = NewApprovalAuthorizer(false)
	}
	svc := &ApprovalService{
		repo:       repo,
		policies:   policies,
		authorizer: authorizer,
		audit:      audit,
		validator:  validate,
		logger:     logger,
		now:        func() time.Time { return time.Now().UTC() },
		retries:    defaultConflictRetries,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(svc)
		}
	}
	return svc
}

// Submit matches the governing policy and opens a pending request that freezes
// the policy's requirements.
func (s *ApprovalService) Submit(ctx context.Context, req dto.SubmitApprovalRequest, actor *models.AuthContext) (*models.ApprovalRequest, error) {
	if actor == nil || actor.ActorID == "" {
		return nil, appErrors.ErrUnauthorized
	}
	actionType := models.ActionType(strings.ToLower(strings.TrimSpace(string(req.Type))))
	if actionType == "" {
		return nil, appErrors.Clone(appErrors.ErrInvalidAction, "action type is required")
	}
	if req.AmountCents < 0 {
		return nil, appErrors.Clone(appErrors.ErrInvalidAction, "amountCents must not be negative")
	}
	req.Type = actionType
	req.Currency = strings.ToUpper(strings.TrimSpace(req.Currency))
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInvalidAction.Code, appErrors.ErrInvalidAction.Status, "invalid approval request payload")
	}

	scopeID := strings.TrimSpace(req.ScopeID)
	if scopeID == "" {
		scopeID = actor.ScopeID
	}
	if scopeID == "" && !actor.HasPlatformAuthority() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "scopeId is required")
	}
	if scopeID != "" && !actor.CanAccessScope(scopeID) {
		return nil, appErrors.Clone(appErrors.ErrNotAuthorized, "cannot submit requests for another scope")
	}

	action := models.ApprovalAction{
		Type:        actionType,
		AmountCents: req.AmountCents,
		Currency:    req.Currency,
		ScopeID:     scopeID,
		Reason:      strings.TrimSpace(req.Reason),
	}
	var request *models.ApprovalRequest
	for attempt := 1; ; attempt++ {
		policy, err := s.policies.Match(ctx, action)
		if err != nil {
			return nil, err
		}
		request = newPendingRequest(action, actor.ActorID, policy, s.now())
		err = s.repo.Create(ctx, request)
		if err == nil {
			break
		}
		if !errors.Is(err, repository.ErrPolicyRemoved) {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create approval request")
		}
		s.logger.Warn("matched approval policy was removed, matching again",
			zap.String("policy_id", policy.ID),
			zap.Int("attempt", attempt),
		)
		if refresher, ok := s.policies.(policyRefresher); ok {
			refresher.Refresh(ctx)
		}
		if attempt >= s.retries {
			return nil, appErrors.Clone(appErrors.ErrConflict, "the governing policy changed while submitting; retry")
		}
	}

	s.metrics.RecordApprovalTransition(request)
	s.emitAudit(ctx, actor, models.AuditActionApprovalSubmit, nil, request)
	s.logger.Info("approval request submitted",
		zap.String("request_id", request.ID),
		zap.String("type", string(request.Type)),
		zap.String("policy_id", request.PolicyID),
		zap.Int("required_approvals", request.RequiredApprovals),
	)
	return request, nil
}

// Get returns a request visible to actor.
func (s *ApprovalService) Get(ctx context.Context, id string, actor *models.AuthContext) (*models.ApprovalRequest, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	req, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.HasPlatformAuthority() && req.Scope() != actor.ScopeID {
		// hide requests of other scopes entirely
		return nil, appErrors.Clone(appErrors.ErrNotFound, "approval request not found")
	}
	return req, nil
}

// Approve records actor's approval and advances the request when the snapshot's
// approval count is met.
func (s *ApprovalService) Approve(ctx context.Context, id string, actor *models.AuthContext) (*models.ApprovalRequest, error) {
	return s.transition(ctx, id, actor, models.DecisionApprove, func(req *models.ApprovalRequest, at time.Time) {
		req.Approvals = append(req.Approvals, models.ApprovalDecision{
			Approver: actor.ActorID,
			At:       at,
			Decision: models.DecisionApprove,
		})
		req.Status = nextStatus(len(req.Approvals), req.RequiredApprovals)
		if req.Status == models.ApprovalStatusApproved {
			req.ResolvedAt = &at
		}
	})
}

// Reject kills the request immediately regardless of recorded approvals. A
// non-blank reason is mandatory.
func (s *ApprovalService) Reject(ctx context.Context, id string, actor *models.AuthContext, reason string) (*models.ApprovalRequest, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "a reason is required to reject a request")
	}
	return s.transition(ctx, id, actor, models.DecisionReject, func(req *models.ApprovalRequest, at time.Time) {
		req.Rejection = &models.ApprovalDecision{
			Approver: actor.ActorID,
			At:       at,
			Decision: models.DecisionReject,
			Reason:   reason,
		}
		req.Status = models.ApprovalStatusRejected
		req.ResolvedAt = &at
	})
}

// transition runs load, authorize, mutate and compare-and-swap, retrying when
// another writer bumped the version in between.
func (s *ApprovalService) transition(ctx context.Context, id string, actor *models.AuthContext, decision models.Decision, apply func(*models.ApprovalRequest, time.Time)) (*models.ApprovalRequest, error) {
	if actor == nil || actor.ActorID == "" {
		return nil, appErrors.ErrUnauthorized
	}
	for attempt := 1; ; attempt++ {
		current, err := s.load(ctx, id)
		if err != nil {
			return nil, err
		}
		if err := s.authorizer.Authorize(actor, current, decision); err != nil {
			return nil, err
		}

		next := current.Clone()
		apply(next, s.now())
		err = s.repo.UpdateDecision(ctx, next, current.Version)
		if err == nil {
			s.metrics.RecordApprovalTransition(next)
			s.emitAudit(ctx, actor, auditActionFor(decision), current, next)
			s.logger.Info("approval request decided",
				zap.String("request_id", next.ID),
				zap.String("decision", string(decision)),
				zap.String("status", string(next.Status)),
				zap.Int("approvals", len(next.Approvals)),
			)
			return next, nil
		}
		if !errors.Is(err, repository.ErrVersionConflict) {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update approval request")
		}
		s.metrics.RecordApprovalConflict()
		if attempt >= s.retries {
			s.logger.Warn("approval request update lost too many races",
				zap.String("request_id", id),
				zap.Int("attempts", attempt),
			)
			return nil, appErrors.Clone(appErrors.ErrConflict, "request was modified concurrently; retry")
		}
	}
}

func (s *ApprovalService) load(ctx context.Context, id string) (*models.ApprovalRequest, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "request id is required")
	}
	req, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "approval request not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load approval request")
	}
	return req, nil
}

func (s *ApprovalService) emitAudit(ctx context.Context, actor *models.AuthContext, action string, before, after *models.ApprovalRequest) {
	if s.audit == nil || after == nil {
		return
	}
	resourceID := after.ID
	log := &models.AuditLog{
		UserID:     &actor.ActorID,
		Action:     action,
		Resource:   "approval_request",
		ResourceID: &resourceID,
		IPAddress:  "system",
		UserAgent:  "approval-service",
	}
	if before != nil {
		log.OldValues, _ = json.Marshal(before)
	}
	log.NewValues, _ = json.Marshal(after)
	if err := s.audit.CreateAuditLog(ctx, log); err != nil {
		s.logger.Warn("failed to persist audit log", zap.String("action", action), zap.String("request_id", after.ID), zap.Error(err))
	}
}

func newPendingRequest(action models.ApprovalAction, requester string, policy models.ApprovalPolicy, at time.Time) *models.ApprovalRequest {
	request := &models.ApprovalRequest{
		Type:              action.Type,
		Requester:         requester,
		Reason:            action.Reason,
		AmountCents:       action.AmountCents,
		Currency:          action.Currency,
		ScopeID:           optionalString(action.ScopeID),
		PolicyID:          policy.ID,
		PolicyName:        policy.Name,
		ApproverRoles:     append(policy.ApproverRoles[:0:0], policy.ApproverRoles...),
		RequiredApprovals: policy.ApproversNeeded,
		Status:            models.ApprovalStatusPending,
		Approvals:         models.ApprovalDecisions{},
		CreatedAt:         at,
	}
	if request.RequiredApprovals < 1 {
		request.RequiredApprovals = 1
	}
	return request
}

// nextStatus derives the status from the approval count. Approving is the only
// path to approved; counts between one and the requirement sit in pending_second.
func nextStatus(approvals, required int) models.ApprovalStatus {
	switch {
	case approvals >= required:
		return models.ApprovalStatusApproved
	case approvals >= 1 && required >= 2:
		return models.ApprovalStatusPendingSecond
	default:
		return models.ApprovalStatusPending
	}
}

func auditActionFor(decision models.Decision) string {
	if decision == models.DecisionReject {
		return models.AuditActionApprovalReject
	}
	return models.AuditActionApprovalApprove
}
