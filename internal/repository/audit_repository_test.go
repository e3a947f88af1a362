package repository

import (
	"context"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campground-approvals-api/internal/models"
)

func TestAuditRepositoryCreateIsIdempotent(t *testing.T) {
	db, mock, cleanup := newSQLMock(t)
	defer cleanup()

	repo := NewAuditRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("ON CONFLICT (id) DO NOTHING")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("ON CONFLICT (id) DO NOTHING")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	actor := "mgr-1"
	log := &models.AuditLog{
		UserID:    &actor,
		Action:    models.AuditActionApprovalApprove,
		Resource:  "approval_request",
		NewValues: []byte(`{"status":"approved"}`),
		IPAddress: "system",
		UserAgent: "approval-service",
	}
	require.NoError(t, repo.CreateAuditLog(context.Background(), log))
	id := log.ID
	require.NotEmpty(t, id)
	require.False(t, log.CreatedAt.IsZero())

	require.NoError(t, repo.CreateAuditLog(context.Background(), log))
	require.Equal(t, id, log.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}
