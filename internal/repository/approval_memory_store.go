package repository

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/campground-approvals-api/internal/models"
)

// MemoryStore keeps policies, requests and audit logs in process memory for local
// development and tests. It honours the same version checks as the Postgres store.
type MemoryStore struct {
	mu       sync.RWMutex
	policies map[string]*models.ApprovalPolicy
	requests map[string]*models.ApprovalRequest
	audit    []models.AuditLog
}

// NewMemoryStore builds an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		policies: make(map[string]*models.ApprovalPolicy),
		requests: make(map[string]*models.ApprovalRequest),
	}
}

// Policies exposes the policy view of the store.
func (s *MemoryStore) Policies() *MemoryPolicyStore { return &MemoryPolicyStore{s: s} }

// Requests exposes the request view of the store.
func (s *MemoryStore) Requests() *MemoryRequestStore { return &MemoryRequestStore{s: s} }

// CreateAuditLog records an audit entry.
func (s *MemoryStore) CreateAuditLog(_ context.Context, log *models.AuditLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if log.ID == "" {
		log.ID = uuid.NewString()
	}
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now().UTC()
	}
	s.audit = append(s.audit, *log)
	return nil
}

// AuditLogs returns a copy of the recorded audit entries.
func (s *MemoryStore) AuditLogs() []models.AuditLog {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.AuditLog(nil), s.audit...)
}

// MemoryPolicyStore is the policy half of MemoryStore.
type MemoryPolicyStore struct {
	s *MemoryStore
}

func (m *MemoryPolicyStore) Create(_ context.Context, policy *models.ApprovalPolicy) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if policy.ID == "" {
		policy.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if policy.CreatedAt.IsZero() {
		policy.CreatedAt = now
	}
	policy.UpdatedAt = now
	cp := *policy
	m.s.policies[policy.ID] = &cp
	return nil
}

func (m *MemoryPolicyStore) GetByID(_ context.Context, id string) (*models.ApprovalPolicy, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()
	policy, ok := m.s.policies[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *policy
	return &cp, nil
}

func (m *MemoryPolicyStore) List(_ context.Context, filter models.ApprovalPolicyFilter) ([]models.ApprovalPolicy, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()
	result := make([]models.ApprovalPolicy, 0, len(m.s.policies))
	for _, policy := range m.s.policies {
		if filter.ActiveOnly && !policy.IsActive {
			continue
		}
		if filter.ScopeID != "" && !policy.IsGlobal() && *policy.ScopeID != filter.ScopeID {
			continue
		}
		result = append(result, *policy)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Name != result[j].Name {
			return result[i].Name < result[j].Name
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}

func (m *MemoryPolicyStore) Update(_ context.Context, policy *models.ApprovalPolicy) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if _, ok := m.s.policies[policy.ID]; !ok {
		return sql.ErrNoRows
	}
	policy.UpdatedAt = time.Now().UTC()
	cp := *policy
	m.s.policies[policy.ID] = &cp
	return nil
}

func (m *MemoryPolicyStore) Delete(_ context.Context, id string) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if _, ok := m.s.policies[id]; !ok {
		return sql.ErrNoRows
	}
	for _, req := range m.s.requests {
		if req.PolicyID == id && req.Status.IsOpen() {
			return ErrPolicyInUse
		}
	}
	delete(m.s.policies, id)
	return nil
}

// MemoryRequestStore is the request half of MemoryStore.
type MemoryRequestStore struct {
	s *MemoryStore
}

func (m *MemoryRequestStore) Create(_ context.Context, req *models.ApprovalRequest) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	if req.Status == "" {
		req.Status = models.ApprovalStatusPending
	}
	if req.CreatedAt.IsZero() {
		req.CreatedAt = time.Now().UTC()
	}
	if req.Approvals == nil {
		req.Approvals = models.ApprovalDecisions{}
	}
	if req.PolicyID != models.DefaultPolicyID {
		if _, ok := m.s.policies[req.PolicyID]; !ok {
			return ErrPolicyRemoved
		}
	}
	req.UpdatedAt = req.CreatedAt
	req.Version = 1
	m.s.requests[req.ID] = req.Clone()
	return nil
}

func (m *MemoryRequestStore) GetByID(_ context.Context, id string) (*models.ApprovalRequest, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()
	req, ok := m.s.requests[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return req.Clone(), nil
}

func (m *MemoryRequestStore) List(_ context.Context, filter models.ApprovalRequestFilter) ([]models.ApprovalRequest, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()
	statuses := make(map[models.ApprovalStatus]struct{}, len(filter.Statuses))
	for _, st := range filter.Statuses {
		statuses[st] = struct{}{}
	}
	result := make([]models.ApprovalRequest, 0, len(m.s.requests))
	for _, req := range m.s.requests {
		if len(statuses) > 0 {
			if _, ok := statuses[req.Status]; !ok {
				continue
			}
		}
		if filter.Type != "" && req.Type != filter.Type {
			continue
		}
		if filter.ScopeID != "" && req.Scope() != filter.ScopeID {
			continue
		}
		result = append(result, *req.Clone())
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].ID < result[j].ID
	})
	if filter.Limit > 0 && len(result) > filter.Limit {
		result = result[:filter.Limit]
	}
	return result, nil
}

func (m *MemoryRequestStore) UpdateDecision(_ context.Context, req *models.ApprovalRequest, expectedVersion int64) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	current, ok := m.s.requests[req.ID]
	if !ok || current.Version != expectedVersion {
		return ErrVersionConflict
	}
	req.UpdatedAt = time.Now().UTC()
	req.Version = expectedVersion + 1
	m.s.requests[req.ID] = req.Clone()
	return nil
}
