package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/campground-approvals-api/internal/dto"
	"github.com/noah-isme/campground-approvals-api/internal/models"
	appErrors "github.com/noah-isme/campground-approvals-api/pkg/errors"
	"github.com/noah-isme/campground-approvals-api/pkg/export"
)

var approvalExportHeaders = []string{
	"id", "type", "status", "urgent", "amount", "currency", "requester",
	"policy", "approvals", "required", "reason", "created_at", "resolved_at",
}

type queueReader interface {
	Items(ctx context.Context, query dto.ApprovalQuery, actor *models.AuthContext) ([]dto.ApprovalQueueItem, error)
}

// ExportFile is a rendered queue export ready to stream.
type ExportFile struct {
	Filename    string
	ContentType string
	Content     []byte
}

// ApprovalExportService renders the filtered queue as CSV or PDF.
type ApprovalExportService struct {
	queue     queueReader
	renderers map[string]export.Renderer
	logger    *zap.Logger
	now       func() time.Time
}

// NewApprovalExportService wires the CSV and PDF renderers.
func NewApprovalExportService(queue queueReader, logger *zap.Logger) *ApprovalExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ApprovalExportService{
		queue: queue,
		renderers: map[string]export.Renderer{
			"csv": export.NewCSVExporter(),
			"pdf": export.NewPDFExporter(),
		},
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Export renders every request matching query, ignoring pagination.
func (s *ApprovalExportService) Export(ctx context.Context, format string, query dto.ApprovalQuery, actor *models.AuthContext) (*ExportFile, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		format = "csv"
	}
	renderer, ok := s.renderers[format]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}
	items, err := s.queue.Items(ctx, query, actor)
	if err != nil {
		return nil, err
	}

	now := s.now()
	data := export.Dataset{
		Title:   "Approval queue " + now.Format("2006-01-02 15:04 MST"),
		Headers: approvalExportHeaders,
		Rows:    make([]map[string]string, 0, len(items)),
	}
	for _, item := range items {
		data.Rows = append(data.Rows, approvalExportRow(item))
	}
	content, err := renderer.Render(data)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render approval export")
	}
	s.logger.Info("approval queue exported",
		zap.String("actor_id", actor.ActorID),
		zap.String("format", format),
		zap.Int("rows", len(items)),
	)
	return &ExportFile{
		Filename:    fmt.Sprintf("approvals-%s.%s", now.Format("20060102-150405"), renderer.Extension()),
		ContentType: renderer.ContentType(),
		Content:     content,
	}, nil
}

func approvalExportRow(item dto.ApprovalQueueItem) map[string]string {
	row := map[string]string{
		"id":         item.ID,
		"type":       string(item.Type),
		"status":     string(item.Status),
		"urgent":     strconv.FormatBool(item.Urgent),
		"amount":     formatMinorUnits(item.AmountCents),
		"currency":   item.Currency,
		"requester":  item.Requester,
		"policy":     item.PolicyName,
		"approvals":  strconv.Itoa(len(item.Approvals)),
		"required":   strconv.Itoa(item.RequiredApprovals),
		"reason":     item.Reason,
		"created_at": item.CreatedAt.UTC().Format(time.RFC3339),
	}
	if item.ResolvedAt != nil {
		row["resolved_at"] = item.ResolvedAt.UTC().Format(time.RFC3339)
	}
	return row
}

func formatMinorUnits(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d", sign, cents/100, cents%100)
}
