package service

import (
	"context"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/campground-approvals-api/internal/dto"
	"github.com/noah-isme/campground-approvals-api/internal/models"
	appErrors "github.com/noah-isme/campground-approvals-api/pkg/errors"
)

const maxQueuePageSize = 200

type policyLookup interface {
	Lookup(ctx context.Context) (map[string]models.ApprovalPolicy, error)
}

// ApprovalQueueService serves the approver console's queue view.
type ApprovalQueueService struct {
	repo            approvalRequestStore
	policies        policyLookup
	logger          *zap.Logger
	now             func() time.Time
	defaultPageSize int
}

// NewApprovalQueueService constructs the read-side service.
func NewApprovalQueueService(repo approvalRequestStore, policies policyLookup, defaultPageSize int, logger *zap.Logger) *ApprovalQueueService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if defaultPageSize <= 0 {
		defaultPageSize = 25
	}
	return &ApprovalQueueService{
		repo:            repo,
		policies:        policies,
		logger:          logger,
		now:             func() time.Time { return time.Now().UTC() },
		defaultPageSize: defaultPageSize,
	}
}

// List filters, classifies and sorts the requests visible to actor and returns
// the requested page.
func (s *ApprovalQueueService) List(ctx context.Context, query dto.ApprovalQuery, actor *models.AuthContext) (*dto.ApprovalQueuePage, error) {
	items, err := s.Items(ctx, query, actor)
	if err != nil {
		return nil, err
	}

	summary := dto.ApprovalQueueSummary{}
	for _, item := range items {
		if item.Status.IsOpen() {
			summary.Open++
		}
		if item.Urgent {
			summary.Urgent++
		}
	}

	page := query.Page
	if page <= 0 {
		page = 1
	}
	size := query.PageSize
	if size <= 0 {
		size = s.defaultPageSize
	}
	if size > maxQueuePageSize {
		size = maxQueuePageSize
	}
	start := (page - 1) * size
	if start > len(items) {
		start = len(items)
	}
	end := start + size
	if end > len(items) {
		end = len(items)
	}

	return &dto.ApprovalQueuePage{
		Items:      items[start:end],
		Pagination: models.Pagination{Page: page, PageSize: size, TotalCount: len(items)},
		Summary:    summary,
	}, nil
}

// Items returns every matching request in queue order without pagination.
func (s *ApprovalQueueService) Items(ctx context.Context, query dto.ApprovalQuery, actor *models.AuthContext) ([]dto.ApprovalQueueItem, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	statuses, err := parseQueueStatus(query.Status)
	if err != nil {
		return nil, err
	}
	order := strings.ToLower(strings.TrimSpace(query.Sort))
	if order == "" {
		order = dto.QueueSortUrgent
	}
	if order != dto.QueueSortUrgent && order != dto.QueueSortNewest && order != dto.QueueSortOldest {
		return nil, appErrors.Clone(appErrors.ErrValidation, "sort must be one of urgent, newest, oldest")
	}

	filter := models.ApprovalRequestFilter{
		Statuses: statuses,
		Type:     models.ActionType(strings.ToLower(strings.TrimSpace(string(query.Type)))),
	}
	if !actor.HasPlatformAuthority() {
		if actor.ScopeID == "" {
			return []dto.ApprovalQueueItem{}, nil
		}
		filter.ScopeID = actor.ScopeID
	}

	requests, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list approval requests")
	}
	policies, err := s.policies.Lookup(ctx)
	if err != nil {
		return nil, err
	}

	now := s.now()
	search := strings.ToLower(strings.TrimSpace(query.Search))
	items := make([]dto.ApprovalQueueItem, 0, len(requests))
	for i := range requests {
		req := &requests[i]
		var policy *models.ApprovalPolicy
		if p, ok := policies[req.PolicyID]; ok {
			policy = &p
		}
		if search != "" && !matchesSearch(req, policy, search) {
			continue
		}
		urgent := IsUrgent(req, policy, query.Rules, now)
		if query.UrgentOnly && !urgent {
			continue
		}
		items = append(items, dto.ApprovalQueueItem{ApprovalRequest: *req, Urgent: urgent})
	}
	SortApprovalQueue(items, order)
	return items, nil
}

// SortApprovalQueue orders items in place. The urgent order puts urgent items
// first, then pending_second, pending, approved, rejected, then newest first.
func SortApprovalQueue(items []dto.ApprovalQueueItem, order string) {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		switch order {
		case dto.QueueSortOldest:
			if !a.CreatedAt.Equal(b.CreatedAt) {
				return a.CreatedAt.Before(b.CreatedAt)
			}
			return a.ID < b.ID
		case dto.QueueSortNewest:
		default:
			if a.Urgent != b.Urgent {
				return a.Urgent
			}
			if pa, pb := statusPriority(a.Status), statusPriority(b.Status); pa != pb {
				return pa < pb
			}
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID < b.ID
	})
}

func statusPriority(status models.ApprovalStatus) int {
	switch status {
	case models.ApprovalStatusPendingSecond:
		return 0
	case models.ApprovalStatusPending:
		return 1
	case models.ApprovalStatusApproved:
		return 2
	default:
		return 3
	}
}

func parseQueueStatus(raw string) ([]models.ApprovalStatus, error) {
	status := strings.ToLower(strings.TrimSpace(raw))
	switch status {
	case "", dto.QueueStatusAll:
		return nil, nil
	case dto.QueueStatusOpen:
		return append([]models.ApprovalStatus(nil), models.OpenStatuses...), nil
	case string(models.ApprovalStatusPending), string(models.ApprovalStatusPendingSecond),
		string(models.ApprovalStatusApproved), string(models.ApprovalStatusRejected):
		return []models.ApprovalStatus{models.ApprovalStatus(status)}, nil
	}
	return nil, appErrors.Clone(appErrors.ErrValidation, "unknown status filter "+raw)
}

func matchesSearch(req *models.ApprovalRequest, policy *models.ApprovalPolicy, needle string) bool {
	fields := []string{req.ID, req.Reason, req.Requester, string(req.Type), req.Currency, req.PolicyName}
	if policy != nil {
		fields = append(fields, policy.Name)
	}
	for _, field := range fields {
		if strings.Contains(strings.ToLower(field), needle) {
			return true
		}
	}
	return false
}
