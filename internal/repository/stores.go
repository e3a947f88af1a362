package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/campground-approvals-api/internal/models"
)

// ApprovalPolicyStore persists approval policies.
type ApprovalPolicyStore interface {
	Create(ctx context.Context, policy *models.ApprovalPolicy) error
	GetByID(ctx context.Context, id string) (*models.ApprovalPolicy, error)
	List(ctx context.Context, filter models.ApprovalPolicyFilter) ([]models.ApprovalPolicy, error)
	Update(ctx context.Context, policy *models.ApprovalPolicy) error
	Delete(ctx context.Context, id string) error
}

// ApprovalRequestStore persists approval requests with versioned updates.
type ApprovalRequestStore interface {
	Create(ctx context.Context, req *models.ApprovalRequest) error
	GetByID(ctx context.Context, id string) (*models.ApprovalRequest, error)
	List(ctx context.Context, filter models.ApprovalRequestFilter) ([]models.ApprovalRequest, error)
	UpdateDecision(ctx context.Context, req *models.ApprovalRequest, expectedVersion int64) error
}

// AuditStore appends audit records.
type AuditStore interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// Stores bundles the persistence the approval engine needs.
type Stores struct {
	Policies ApprovalPolicyStore
	Requests ApprovalRequestStore
	Audit    AuditStore
}

// NewPostgresStores backs every store with the given database.
func NewPostgresStores(db *sqlx.DB) Stores {
	return Stores{
		Policies: NewApprovalPolicyRepository(db),
		Requests: NewApprovalRequestRepository(db),
		Audit:    NewAuditRepository(db),
	}
}

// NewMemoryStores backs every store with a fresh MemoryStore.
func NewMemoryStores() Stores {
	mem := NewMemoryStore()
	return Stores{
		Policies: mem.Policies(),
		Requests: mem.Requests(),
		Audit:    mem,
	}
}
