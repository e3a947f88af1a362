package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campground-approvals-api/internal/models"
)

var approvalPolicyRowColumns = []string{"id", "name", "applies_to", "threshold_cents", "currency", "approvers_needed", "approver_roles", "is_active", "scope_id", "created_by", "created_at", "updated_at"}

func newSQLMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestApprovalPolicyRepositoryCreateAndGet(t *testing.T) {
	db, mock, cleanup := newSQLMock(t)
	defer cleanup()

	repo := NewApprovalPolicyRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO approval_policies")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	threshold := int64(50000)
	policy := &models.ApprovalPolicy{
		Name:            "Large refunds",
		AppliesTo:       pq.StringArray{"refund"},
		ThresholdCents:  &threshold,
		Currency:        "USD",
		ApproversNeeded: 2,
		ApproverRoles:   pq.StringArray{"owner", "manager"},
		IsActive:        true,
		CreatedBy:       "owner-1",
	}
	require.NoError(t, repo.Create(context.Background(), policy))
	require.NotEmpty(t, policy.ID)
	require.False(t, policy.CreatedAt.IsZero())

	rows := sqlmock.NewRows(approvalPolicyRowColumns).
		AddRow(policy.ID, "Large refunds", "{refund}", int64(50000), "USD", 2, "{owner,manager}", true, nil, "owner-1", time.Now(), time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, name, applies_to")).
		WithArgs(policy.ID).
		WillReturnRows(rows)

	found, err := repo.GetByID(context.Background(), policy.ID)
	require.NoError(t, err)
	require.Equal(t, "Large refunds", found.Name)
	require.Equal(t, pq.StringArray{"owner", "manager"}, found.ApproverRoles)
	require.NotNil(t, found.ThresholdCents)
	require.Equal(t, int64(50000), *found.ThresholdCents)
	require.Nil(t, found.ScopeID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestApprovalPolicyRepositoryListScopedActive(t *testing.T) {
	db, mock, cleanup := newSQLMock(t)
	defer cleanup()

	repo := NewApprovalPolicyRepository(db)
	rows := sqlmock.NewRows(approvalPolicyRowColumns).
		AddRow("pol-1", "Payouts", "{payout}", nil, "USD", 1, "{owner}", true, "park-1", "owner-1", time.Now(), time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("FROM approval_policies WHERE (scope_id IS NULL OR scope_id = $1) AND is_active = TRUE ORDER BY name ASC")).
		WithArgs("park-1").
		WillReturnRows(rows)

	list, err := repo.List(context.Background(), models.ApprovalPolicyFilter{ScopeID: "park-1", ActiveOnly: true})
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, "park-1", *list[0].ScopeID)
	require.Nil(t, list[0].ThresholdCents)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestApprovalPolicyRepositoryUpdateMissing(t *testing.T) {
	db, mock, cleanup := newSQLMock(t)
	defer cleanup()

	repo := NewApprovalPolicyRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE approval_policies SET")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Update(context.Background(), &models.ApprovalPolicy{ID: "missing", Name: "x"})
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestApprovalPolicyRepositoryDeleteInUse(t *testing.T) {
	db, mock, cleanup := newSQLMock(t)
	defer cleanup()

	repo := NewApprovalPolicyRepository(db)
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM approval_policies WHERE id = $1 FOR UPDATE")).
		WithArgs("pol-1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("pol-1"))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM approval_requests")).
		WithArgs("pol-1", "pending", "pending_second").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
	mock.ExpectRollback()

	err := repo.Delete(context.Background(), "pol-1")
	require.True(t, errors.Is(err, ErrPolicyInUse))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestApprovalPolicyRepositoryDelete(t *testing.T) {
	db, mock, cleanup := newSQLMock(t)
	defer cleanup()

	repo := NewApprovalPolicyRepository(db)
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM approval_policies WHERE id = $1 FOR UPDATE")).
		WithArgs("pol-1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("pol-1"))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM approval_requests")).
		WithArgs("pol-1", "pending", "pending_second").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM approval_policies WHERE id = $1")).
		WithArgs("pol-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Delete(context.Background(), "pol-1"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestApprovalPolicyRepositoryDeleteMissing(t *testing.T) {
	db, mock, cleanup := newSQLMock(t)
	defer cleanup()

	repo := NewApprovalPolicyRepository(db)
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM approval_policies WHERE id = $1 FOR UPDATE")).
		WithArgs("ghost").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	err := repo.Delete(context.Background(), "ghost")
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}
