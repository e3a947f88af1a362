package dto

import (
	"github.com/noah-isme/campground-approvals-api/internal/models"
)

// SubmitApprovalRequest proposes a sensitive action for sign-off.
type SubmitApprovalRequest struct {
	Type        models.ActionType `json:"type" validate:"required,max=64"`
	AmountCents int64             `json:"amountCents" validate:"gte=0"`
	Currency    string            `json:"currency" validate:"required,len=3,alpha"`
	ScopeID     string            `json:"scopeId" validate:"omitempty,max=64"`
	Reason      string            `json:"reason" validate:"max=2000"`
}

// RejectApprovalRequest carries the mandatory justification for a rejection.
type RejectApprovalRequest struct {
	Reason string `json:"reason"`
}

// Queue filter statuses accepted by ApprovalQuery.Status besides concrete statuses.
const (
	QueueStatusOpen = "open"
	QueueStatusAll  = "all"
)

// Queue sort orders.
const (
	QueueSortUrgent = "urgent"
	QueueSortNewest = "newest"
	QueueSortOldest = "oldest"
)

// ApprovalQuery mirrors supported queue filters.
type ApprovalQuery struct {
	Status     string
	Type       models.ActionType
	UrgentOnly bool
	Search     string
	Sort       string
	Page       int
	PageSize   int
	Rules      models.UrgencyRules
}

// ApprovalQueueItem is a request annotated with its read-time urgency.
type ApprovalQueueItem struct {
	models.ApprovalRequest
	Urgent bool `json:"urgent"`
}

// ApprovalQueueSummary counts what the queue currently holds for the caller.
type ApprovalQueueSummary struct {
	Open   int `json:"open"`
	Urgent int `json:"urgent"`
}

// ApprovalQueuePage is one page of the sorted queue.
type ApprovalQueuePage struct {
	Items      []ApprovalQueueItem
	Pagination models.Pagination
	Summary    ApprovalQueueSummary
}
