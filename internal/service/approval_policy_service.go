package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/noah-isme/campground-approvals-api/internal/dto"
	"github.com/noah-isme/campground-approvals-api/internal/models"
	"github.com/noah-isme/campground-approvals-api/internal/repository"
	appErrors "github.com/noah-isme/campground-approvals-api/pkg/errors"
)

const activePoliciesCacheKey = "approvals:policies:active"

type approvalPolicyStore interface {
	Create(ctx context.Context, policy *models.ApprovalPolicy) error
	GetByID(ctx context.Context, id string) (*models.ApprovalPolicy, error)
	List(ctx context.Context, filter models.ApprovalPolicyFilter) ([]models.ApprovalPolicy, error)
	Update(ctx context.Context, policy *models.ApprovalPolicy) error
	Delete(ctx context.Context, id string) error
}

type policyCache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// ApprovalPolicyService manages approval policies and resolves which one governs
// a proposed action.
type ApprovalPolicyService struct {
	repo          approvalPolicyStore
	cache         policyCache
	cacheTTL      time.Duration
	audit         auditLogger
	validator     *validator.Validate
	logger        *zap.Logger
	defaultPolicy models.ApprovalPolicy
}

// ApprovalPolicyServiceOption configures the service.
type ApprovalPolicyServiceOption func(*ApprovalPolicyService)

// WithPolicyCache serves active policies from cache for up to ttl.
func WithPolicyCache(cache policyCache, ttl time.Duration) ApprovalPolicyServiceOption {
	return func(s *ApprovalPolicyService) {
		s.cache = cache
		s.cacheTTL = ttl
	}
}

// WithBaselineRoles sets the roles eligible under the default policy.
func WithBaselineRoles(roles []string) ApprovalPolicyServiceOption {
	return func(s *ApprovalPolicyService) {
		s.defaultPolicy = NewDefaultPolicy(roles)
	}
}

// NewApprovalPolicyService constructs the service.
func NewApprovalPolicyService(repo approvalPolicyStore, audit auditLogger, validate *validator.Validate, logger *zap.Logger, opts ...ApprovalPolicyServiceOption) *ApprovalPolicyService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	svc := &ApprovalPolicyService{
		repo:          repo,
		audit:         audit,
		validator:     validate,
		logger:        logger,
		defaultPolicy: NewDefaultPolicy(nil),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(svc)
		}
	}
	return svc
}

// DefaultPolicy returns the baseline policy used when nothing matches.
func (s *ApprovalPolicyService) DefaultPolicy() models.ApprovalPolicy {
	return s.defaultPolicy
}

// Create validates and stores a new policy.
func (s *ApprovalPolicyService) Create(ctx context.Context, req dto.CreateApprovalPolicyRequest, actor *models.AuthContext) (*models.ApprovalPolicy, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid approval policy payload")
	}
	policy := &models.ApprovalPolicy{
		Name:            strings.TrimSpace(req.Name),
		AppliesTo:       normalizeTags(req.AppliesTo),
		ThresholdCents:  req.ThresholdCents,
		Currency:        strings.ToUpper(strings.TrimSpace(req.Currency)),
		ApproversNeeded: req.ApproversNeeded,
		ApproverRoles:   normalizeTags(req.ApproverRoles),
		IsActive:        true,
		ScopeID:         optionalString(derefString(req.ScopeID)),
		CreatedBy:       actor.ActorID,
	}
	if req.IsActive != nil {
		policy.IsActive = *req.IsActive
	}
	if err := s.authorizeManage(actor, policy); err != nil {
		return nil, err
	}
	if err := validatePolicy(policy); err != nil {
		return nil, err
	}
	if err := s.checkCurrencyConsistency(ctx, policy); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, policy); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create approval policy")
	}
	s.invalidate(ctx)
	s.emitAudit(ctx, actor, models.AuditActionPolicyCreate, policy.ID, nil, policy)
	return policy, nil
}

// Update applies a partial update. Requests already submitted keep the
// requirements they captured at submission.
func (s *ApprovalPolicyService) Update(ctx context.Context, id string, req dto.UpdateApprovalPolicyRequest, actor *models.AuthContext) (*models.ApprovalPolicy, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid approval policy patch")
	}
	existing, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.authorizeManage(actor, existing); err != nil {
		return nil, err
	}
	before := *existing
	updated := *existing
	if req.Name != nil {
		updated.Name = strings.TrimSpace(*req.Name)
	}
	if req.AppliesTo != nil {
		updated.AppliesTo = normalizeTags(*req.AppliesTo)
	}
	if req.ClearThreshold {
		updated.ThresholdCents = nil
	} else if req.ThresholdCents != nil {
		threshold := *req.ThresholdCents
		updated.ThresholdCents = &threshold
	}
	if req.Currency != nil {
		updated.Currency = strings.ToUpper(strings.TrimSpace(*req.Currency))
	}
	if req.ApproversNeeded != nil {
		updated.ApproversNeeded = *req.ApproversNeeded
	}
	if req.ApproverRoles != nil {
		updated.ApproverRoles = normalizeTags(*req.ApproverRoles)
	}
	if req.IsActive != nil {
		updated.IsActive = *req.IsActive
	}
	if err := validatePolicy(&updated); err != nil {
		return nil, err
	}
	if err := s.checkCurrencyConsistency(ctx, &updated); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, &updated); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update approval policy")
	}
	s.invalidate(ctx)
	s.emitAudit(ctx, actor, models.AuditActionPolicyUpdate, updated.ID, &before, &updated)
	return &updated, nil
}

// Delete removes a policy. Policies referenced by open requests cannot be deleted;
// deactivate them instead.
func (s *ApprovalPolicyService) Delete(ctx context.Context, id string, actor *models.AuthContext) error {
	if actor == nil {
		return appErrors.ErrUnauthorized
	}
	existing, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if err := s.authorizeManage(actor, existing); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return appErrors.ErrNotFound
		case errors.Is(err, repository.ErrPolicyInUse):
			return appErrors.Clone(appErrors.ErrConflict, "policy is referenced by open approval requests; deactivate it instead")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete approval policy")
	}
	s.invalidate(ctx)
	s.emitAudit(ctx, actor, models.AuditActionPolicyDelete, id, existing, nil)
	return nil
}

// List returns the policies visible in scopeID: global ones plus those of the
// scope. Actors without platform authority only ever see their own scope.
func (s *ApprovalPolicyService) List(ctx context.Context, scopeID string, actor *models.AuthContext) ([]models.ApprovalPolicy, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	scopeID = strings.TrimSpace(scopeID)
	if !actor.HasPlatformAuthority() {
		if scopeID != "" && scopeID != actor.ScopeID {
			return nil, appErrors.Clone(appErrors.ErrNotAuthorized, "cannot list policies of another scope")
		}
		scopeID = actor.ScopeID
	}
	policies, err := s.repo.List(ctx, models.ApprovalPolicyFilter{ScopeID: scopeID})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list approval policies")
	}
	if policies == nil {
		policies = []models.ApprovalPolicy{}
	}
	return policies, nil
}

// Match returns the policy that governs action, falling back to the default policy.
func (s *ApprovalPolicyService) Match(ctx context.Context, action models.ApprovalAction) (models.ApprovalPolicy, error) {
	active, err := s.activePolicies(ctx)
	if err != nil {
		return models.ApprovalPolicy{}, err
	}
	for _, policy := range active {
		if currencyMismatch(policy, action) {
			s.logger.Warn("approval policy skipped due to currency mismatch",
				zap.String("policy_id", policy.ID),
				zap.String("policy_currency", policy.Currency),
				zap.String("action_currency", action.Currency),
			)
		}
	}
	return MatchPolicy(active, action, s.defaultPolicy), nil
}

// Lookup returns every stored policy keyed by id, including inactive ones, plus
// the default policy.
func (s *ApprovalPolicyService) Lookup(ctx context.Context) (map[string]models.ApprovalPolicy, error) {
	policies, err := s.repo.List(ctx, models.ApprovalPolicyFilter{})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load approval policies")
	}
	byID := make(map[string]models.ApprovalPolicy, len(policies)+1)
	byID[s.defaultPolicy.ID] = s.defaultPolicy
	for _, policy := range policies {
		byID[policy.ID] = policy
	}
	return byID, nil
}

func (s *ApprovalPolicyService) activePolicies(ctx context.Context) ([]models.ApprovalPolicy, error) {
	if s.cache != nil {
		var cached []models.ApprovalPolicy
		hit, err := s.cache.Get(ctx, activePoliciesCacheKey, &cached)
		if err == nil && hit {
			return cached, nil
		}
	}
	policies, err := s.repo.List(ctx, models.ApprovalPolicyFilter{ActiveOnly: true})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load approval policies")
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, activePoliciesCacheKey, policies, s.cacheTTL); err != nil {
			s.logger.Warn("failed to cache active policies", zap.Error(err))
		}
	}
	return policies, nil
}

// Refresh drops the cached active policy set so the next Match reads the store.
func (s *ApprovalPolicyService) Refresh(ctx context.Context) {
	s.invalidate(ctx)
}

func (s *ApprovalPolicyService) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, activePoliciesCacheKey); err != nil {
		s.logger.Warn("failed to invalidate policy cache", zap.Error(err))
	}
}

func (s *ApprovalPolicyService) load(ctx context.Context, id string) (*models.ApprovalPolicy, error) {
	if id == models.DefaultPolicyID {
		return nil, appErrors.Clone(appErrors.ErrValidation, "the default policy is built in and cannot be modified")
	}
	policy, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "approval policy not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load approval policy")
	}
	return policy, nil
}

// authorizeManage allows scope administrators to manage their scope's policies and
// reserves global policies for platform administrators.
func (s *ApprovalPolicyService) authorizeManage(actor *models.AuthContext, policy *models.ApprovalPolicy) error {
	if policy.IsGlobal() {
		if !actor.HasPlatformAuthority() {
			return appErrors.Clone(appErrors.ErrNotAuthorized, "only platform administrators can manage global policies")
		}
		return nil
	}
	if !actor.CanAccessScope(*policy.ScopeID) {
		return appErrors.Clone(appErrors.ErrNotAuthorized, "policy belongs to another scope")
	}
	return nil
}

// checkCurrencyConsistency rejects threshold policies whose currency differs from
// another active threshold policy of the same scope covering an overlapping action.
func (s *ApprovalPolicyService) checkCurrencyConsistency(ctx context.Context, policy *models.ApprovalPolicy) error {
	if policy.ThresholdCents == nil || !policy.IsActive {
		return nil
	}
	scope := ""
	if !policy.IsGlobal() {
		scope = *policy.ScopeID
	}
	existing, err := s.repo.List(ctx, models.ApprovalPolicyFilter{ScopeID: scope, ActiveOnly: true})
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load approval policies")
	}
	for _, other := range existing {
		if other.ID == policy.ID || other.ThresholdCents == nil || other.IsGlobal() != policy.IsGlobal() {
			continue
		}
		if strings.EqualFold(other.Currency, policy.Currency) {
			continue
		}
		for _, tag := range policy.AppliesTo {
			if other.Covers(models.ActionType(tag)) {
				return appErrors.Clone(appErrors.ErrValidation, "policy currency "+policy.Currency+" conflicts with "+other.Currency+" used by policy "+other.Name)
			}
		}
	}
	return nil
}

func (s *ApprovalPolicyService) emitAudit(ctx context.Context, actor *models.AuthContext, action, policyID string, before, after *models.ApprovalPolicy) {
	if s.audit == nil {
		return
	}
	log := &models.AuditLog{
		UserID:     &actor.ActorID,
		Action:     action,
		Resource:   "approval_policy",
		ResourceID: &policyID,
		IPAddress:  "system",
		UserAgent:  "approval-policy-service",
	}
	if before != nil {
		log.OldValues, _ = json.Marshal(before)
	}
	if after != nil {
		log.NewValues, _ = json.Marshal(after)
	}
	if err := s.audit.CreateAuditLog(ctx, log); err != nil {
		s.logger.Warn("failed to persist audit log", zap.String("action", action), zap.Error(err))
	}
}

func validatePolicy(policy *models.ApprovalPolicy) error {
	switch {
	case policy.Name == "":
		return appErrors.Clone(appErrors.ErrValidation, "policy name is required")
	case len(policy.AppliesTo) == 0:
		return appErrors.Clone(appErrors.ErrValidation, "policy must apply to at least one action type")
	case len(policy.ApproverRoles) == 0:
		return appErrors.Clone(appErrors.ErrValidation, "policy must name at least one approver role")
	case policy.ApproversNeeded < 1:
		return appErrors.Clone(appErrors.ErrValidation, "approversNeeded must be at least 1")
	case policy.ThresholdCents != nil && *policy.ThresholdCents < 0:
		return appErrors.Clone(appErrors.ErrValidation, "thresholdCents must not be negative")
	case len(policy.Currency) != 3:
		return appErrors.Clone(appErrors.ErrValidation, "currency must be an ISO-4217 code")
	}
	return nil
}

func normalizeTags(values []string) pq.StringArray {
	seen := make(map[string]struct{}, len(values))
	result := make(pq.StringArray, 0, len(values))
	for _, v := range values {
		tag := string(models.NormalizeRole(v))
		if tag == "" {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		result = append(result, tag)
	}
	sort.Strings(result)
	return result
}

func optionalString(value string) *string {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	v := strings.TrimSpace(value)
	return &v
}

func derefString(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}
