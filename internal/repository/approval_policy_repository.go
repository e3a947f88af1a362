package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/campground-approvals-api/internal/models"
)

const approvalPolicyColumns = `id, name, applies_to, threshold_cents, currency, approvers_needed, approver_roles,
       is_active, scope_id, created_by, created_at, updated_at`

// ApprovalPolicyRepository persists approval policies.
type ApprovalPolicyRepository struct {
	db *sqlx.DB
}

// NewApprovalPolicyRepository constructs the repository.
func NewApprovalPolicyRepository(db *sqlx.DB) *ApprovalPolicyRepository {
	return &ApprovalPolicyRepository{db: db}
}

// Create inserts a new policy row.
func (r *ApprovalPolicyRepository) Create(ctx context.Context, policy *models.ApprovalPolicy) error {
	if policy.ID == "" {
		policy.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if policy.CreatedAt.IsZero() {
		policy.CreatedAt = now
	}
	policy.UpdatedAt = now
	const query = `INSERT INTO approval_policies
	(id, name, applies_to, threshold_cents, currency, approvers_needed, approver_roles, is_active, scope_id, created_by, created_at, updated_at)
	VALUES (:id, :name, :applies_to, :threshold_cents, :currency, :approvers_needed, :approver_roles, :is_active, :scope_id, :created_by, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, policy); err != nil {
		return fmt.Errorf("create approval policy: %w", err)
	}
	return nil
}

// GetByID fetches a policy by identifier.
func (r *ApprovalPolicyRepository) GetByID(ctx context.Context, id string) (*models.ApprovalPolicy, error) {
	query := `SELECT ` + approvalPolicyColumns + ` FROM approval_policies WHERE id = $1`
	var policy models.ApprovalPolicy
	if err := r.db.GetContext(ctx, &policy, query, id); err != nil {
		return nil, err
	}
	return &policy, nil
}

// List returns policies matching the filter ordered by name.
func (r *ApprovalPolicyRepository) List(ctx context.Context, filter models.ApprovalPolicyFilter) ([]models.ApprovalPolicy, error) {
	builder := strings.Builder{}
	args := make([]interface{}, 0, 1)
	builder.WriteString(`SELECT ` + approvalPolicyColumns + ` FROM approval_policies`)

	conditions := make([]string, 0, 2)
	if filter.ScopeID != "" {
		args = append(args, filter.ScopeID)
		conditions = append(conditions, fmt.Sprintf("(scope_id IS NULL OR scope_id = $%d)", len(args)))
	}
	if filter.ActiveOnly {
		conditions = append(conditions, "is_active = TRUE")
	}
	if len(conditions) > 0 {
		builder.WriteString(" WHERE ")
		builder.WriteString(strings.Join(conditions, " AND "))
	}
	builder.WriteString(" ORDER BY name ASC, id ASC")

	var policies []models.ApprovalPolicy
	if err := r.db.SelectContext(ctx, &policies, builder.String(), args...); err != nil {
		return nil, fmt.Errorf("list approval policies: %w", err)
	}
	return policies, nil
}

// Update overwrites the mutable columns of a policy.
func (r *ApprovalPolicyRepository) Update(ctx context.Context, policy *models.ApprovalPolicy) error {
	policy.UpdatedAt = time.Now().UTC()
	const query = `UPDATE approval_policies SET name = :name, applies_to = :applies_to, threshold_cents = :threshold_cents,
	currency = :currency, approvers_needed = :approvers_needed, approver_roles = :approver_roles,
	is_active = :is_active, updated_at = :updated_at
	WHERE id = :id`
	result, err := r.db.NamedExecContext(ctx, query, policy)
	if err != nil {
		return fmt.Errorf("update approval policy: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check approval policy update rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes a policy unless an open request still references it.
func (r *ApprovalPolicyRepository) Delete(ctx context.Context, id string) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete approval policy tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var locked string
	if err = tx.GetContext(ctx, &locked, `SELECT id FROM approval_policies WHERE id = $1 FOR UPDATE`, id); err != nil {
		return err
	}

	var open int
	const countQuery = `SELECT COUNT(*) FROM approval_requests WHERE policy_id = $1 AND status IN ($2, $3)`
	if err = tx.GetContext(ctx, &open, countQuery, id, models.ApprovalStatusPending, models.ApprovalStatusPendingSecond); err != nil {
		return fmt.Errorf("count open requests for policy: %w", err)
	}
	if open > 0 {
		return ErrPolicyInUse
	}

	if _, err = tx.ExecContext(ctx, `DELETE FROM approval_policies WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete approval policy: %w", err)
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit delete approval policy: %w", err)
	}
	return nil
}
