package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/campground-approvals-api/internal/models"
	"github.com/noah-isme/campground-approvals-api/pkg/jobs"
)

type auditLogger interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// AsyncAuditLogger hands audit records to a background queue so approval
// transitions do not wait on the audit store. Records carry their id from the
// moment they are enqueued, so retries write the same row.
type AsyncAuditLogger struct {
	sink   auditLogger
	queue  *jobs.Queue
	logger *zap.Logger
}

// NewAsyncAuditLogger wraps sink with a worker queue.
func NewAsyncAuditLogger(sink auditLogger, cfg jobs.QueueConfig) *AsyncAuditLogger {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	a := &AsyncAuditLogger{sink: sink, logger: cfg.Logger}
	a.queue = jobs.NewQueue("audit", a.handle, cfg)
	return a
}

// Start launches the workers.
func (a *AsyncAuditLogger) Start(ctx context.Context) {
	a.queue.Start(ctx)
}

// Stop flushes buffered records and stops the workers.
func (a *AsyncAuditLogger) Stop() {
	a.queue.Stop()
}

// CreateAuditLog enqueues the record.
func (a *AsyncAuditLogger) CreateAuditLog(_ context.Context, log *models.AuditLog) error {
	if log == nil {
		return nil
	}
	if log.ID == "" {
		log.ID = uuid.NewString()
	}
	return a.queue.Enqueue(jobs.Job{ID: log.ID, Type: log.Action, Payload: log})
}

func (a *AsyncAuditLogger) handle(ctx context.Context, job jobs.Job) error {
	log, ok := job.Payload.(*models.AuditLog)
	if !ok {
		return fmt.Errorf("unexpected audit payload %T", job.Payload)
	}
	return a.sink.CreateAuditLog(ctx, log)
}
