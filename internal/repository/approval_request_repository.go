package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/campground-approvals-api/internal/models"
)

const approvalRequestColumns = `id, type, requester, reason, amount_cents, currency, scope_id, policy_id, policy_name,
       approver_roles, required_approvals, status, approvals, rejection, version, created_at, updated_at, resolved_at`

// ApprovalRequestRepository persists approval requests. Rows are never deleted.
type ApprovalRequestRepository struct {
	db *sqlx.DB
}

// NewApprovalRequestRepository constructs the repository.
func NewApprovalRequestRepository(db *sqlx.DB) *ApprovalRequestRepository {
	return &ApprovalRequestRepository{db: db}
}

// Create inserts a new request at version 1. The governing policy row is held
// with FOR SHARE until commit so a concurrent policy delete either waits and then
// sees the request, or wins and makes Create fail with ErrPolicyRemoved.
func (r *ApprovalRequestRepository) Create(ctx context.Context, req *models.ApprovalRequest) (err error) {
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
	req.UpdatedAt = req.CreatedAt
	req.Version = 1

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create approval request tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if req.PolicyID != models.DefaultPolicyID {
		var held string
		if err = tx.GetContext(ctx, &held, `SELECT id FROM approval_policies WHERE id = $1 FOR SHARE`, req.PolicyID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				err = ErrPolicyRemoved
				return err
			}
			return fmt.Errorf("lock approval policy: %w", err)
		}
	}

	const query = `INSERT INTO approval_requests
	(id, type, requester, reason, amount_cents, currency, scope_id, policy_id, policy_name, approver_roles,
	 required_approvals, status, approvals, rejection, version, created_at, updated_at, resolved_at)
	VALUES (:id, :type, :requester, :reason, :amount_cents, :currency, :scope_id, :policy_id, :policy_name, :approver_roles,
	 :required_approvals, :status, :approvals, :rejection, :version, :created_at, :updated_at, :resolved_at)`
	if _, err = tx.NamedExecContext(ctx, query, req); err != nil {
		return fmt.Errorf("create approval request: %w", err)
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit approval request: %w", err)
	}
	return nil
}

// GetByID fetches a request by identifier.
func (r *ApprovalRequestRepository) GetByID(ctx context.Context, id string) (*models.ApprovalRequest, error) {
	query := `SELECT ` + approvalRequestColumns + ` FROM approval_requests WHERE id = $1`
	var req models.ApprovalRequest
	if err := r.db.GetContext(ctx, &req, query, id); err != nil {
		return nil, err
	}
	return &req, nil
}

// List returns every request matching the filter, newest first. Limit is only
// applied when set.
func (r *ApprovalRequestRepository) List(ctx context.Context, filter models.ApprovalRequestFilter) ([]models.ApprovalRequest, error) {
	builder := strings.Builder{}
	args := make([]interface{}, 0, 4)
	builder.WriteString(`SELECT ` + approvalRequestColumns + ` FROM approval_requests`)

	conditions := make([]string, 0, 3)
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		conditions = append(conditions, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.Type != "" {
		args = append(args, filter.Type)
		conditions = append(conditions, fmt.Sprintf("type = $%d", len(args)))
	}
	if filter.ScopeID != "" {
		args = append(args, filter.ScopeID)
		conditions = append(conditions, fmt.Sprintf("scope_id = $%d", len(args)))
	}
	if len(conditions) > 0 {
		builder.WriteString(" WHERE ")
		builder.WriteString(strings.Join(conditions, " AND "))
	}
	builder.WriteString(" ORDER BY created_at DESC, id ASC")
	if filter.Limit > 0 {
		builder.WriteString(fmt.Sprintf(" LIMIT %d", filter.Limit))
	}

	var requests []models.ApprovalRequest
	if err := r.db.SelectContext(ctx, &requests, builder.String(), args...); err != nil {
		return nil, fmt.Errorf("list approval requests: %w", err)
	}
	return requests, nil
}

// UpdateDecision persists a transition when the stored version still equals
// expectedVersion, bumping the version by one. A lost race yields ErrVersionConflict.
func (r *ApprovalRequestRepository) UpdateDecision(ctx context.Context, req *models.ApprovalRequest, expectedVersion int64) error {
	req.UpdatedAt = time.Now().UTC()
	const query = `UPDATE approval_requests
	SET status = :status, approvals = :approvals, rejection = :rejection, resolved_at = :resolved_at,
	    updated_at = :updated_at, version = version + 1
	WHERE id = :id AND version = :expected_version`
	result, err := r.db.NamedExecContext(ctx, query, map[string]interface{}{
		"id":               req.ID,
		"status":           req.Status,
		"approvals":        req.Approvals,
		"rejection":        req.Rejection,
		"resolved_at":      req.ResolvedAt,
		"updated_at":       req.UpdatedAt,
		"expected_version": expectedVersion,
	})
	if err != nil {
		return fmt.Errorf("update approval request: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check approval request update rows: %w", err)
	}
	if rows == 0 {
		return ErrVersionConflict
	}
	req.Version = expectedVersion + 1
	return nil
}
