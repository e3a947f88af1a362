package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/campground-approvals-api/internal/dto"
	"github.com/noah-isme/campground-approvals-api/internal/models"
	"github.com/noah-isme/campground-approvals-api/internal/service"
	appErrors "github.com/noah-isme/campground-approvals-api/pkg/errors"
	"github.com/noah-isme/campground-approvals-api/pkg/response"
)

type approvalService interface {
	Submit(ctx context.Context, req dto.SubmitApprovalRequest, actor *models.AuthContext) (*models.ApprovalRequest, error)
	Get(ctx context.Context, id string, actor *models.AuthContext) (*models.ApprovalRequest, error)
	Approve(ctx context.Context, id string, actor *models.AuthContext) (*models.ApprovalRequest, error)
	Reject(ctx context.Context, id string, actor *models.AuthContext, reason string) (*models.ApprovalRequest, error)
}

type approvalQueueService interface {
	List(ctx context.Context, query dto.ApprovalQuery, actor *models.AuthContext) (*dto.ApprovalQueuePage, error)
}

type approvalExportService interface {
	Export(ctx context.Context, format string, query dto.ApprovalQuery, actor *models.AuthContext) (*service.ExportFile, error)
}

// ApprovalHandler exposes the approval request lifecycle and the approver queue.
type ApprovalHandler struct {
	approvals approvalService
	queue     approvalQueueService
	exports   approvalExportService
}

// NewApprovalHandler constructs the handler.
func NewApprovalHandler(approvals approvalService, queue approvalQueueService, exports approvalExportService) *ApprovalHandler {
	return &ApprovalHandler{approvals: approvals, queue: queue, exports: exports}
}

// Submit godoc
// @Summary Submit an action for approval
// @Tags Approvals
// @Accept json
// @Produce json
// @Param payload body dto.SubmitApprovalRequest true "Proposed action"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /approvals [post]
func (h *ApprovalHandler) Submit(c *gin.Context) {
	actor := actorFromContext(c)
	if actor == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.SubmitApprovalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid approval payload"))
		return
	}
	created, err := h.approvals.Submit(c.Request.Context(), req, actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, created)
}

// List godoc
// @Summary List the approval queue
// @Tags Approvals
// @Produce json
// @Param status query string false "open, all, pending, pending_second, approved or rejected"
// @Param type query string false "Action type"
// @Param urgentOnly query bool false "Only urgent requests"
// @Param q query string false "Free-text search"
// @Param sort query string false "urgent, newest or oldest"
// @Param page query int false "Page"
// @Param pageSize query int false "Page size"
// @Param pendingSecondCounts query bool false "Treat pending_second as urgent"
// @Param ageThresholdHours query number false "Age after which a request is urgent"
// @Param policyThresholdCounts query bool false "Treat amounts over the policy threshold as urgent"
// @Param customAmountThreshold query number false "Urgent amount in major currency units"
// @Success 200 {object} response.Envelope
// @Router /approvals [get]
func (h *ApprovalHandler) List(c *gin.Context) {
	actor := actorFromContext(c)
	if actor == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	query, err := parseApprovalQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	page, err := h.queue.List(c.Request.Context(), query, actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, page.Items, &page.Pagination, map[string]interface{}{
		"summary": page.Summary,
	})
}

// Export godoc
// @Summary Export the filtered approval queue
// @Tags Approvals
// @Produce text/csv
// @Produce application/pdf
// @Param format query string false "csv or pdf"
// @Success 200 {file} file
// @Router /approvals/export [get]
func (h *ApprovalHandler) Export(c *gin.Context) {
	actor := actorFromContext(c)
	if actor == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	query, err := parseApprovalQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	file, err := h.exports.Export(c.Request.Context(), c.DefaultQuery("format", "csv"), query, actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.File(c, file.Filename, file.ContentType, file.Content)
}

// Get godoc
// @Summary Get an approval request
// @Tags Approvals
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /approvals/{id} [get]
func (h *ApprovalHandler) Get(c *gin.Context) {
	actor := actorFromContext(c)
	if actor == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	req, err := h.approvals.Get(c.Request.Context(), c.Param("id"), actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, req, nil)
}

// Approve godoc
// @Summary Approve a request
// @Tags Approvals
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /approvals/{id}/approve [post]
func (h *ApprovalHandler) Approve(c *gin.Context) {
	actor := actorFromContext(c)
	if actor == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	req, err := h.approvals.Approve(c.Request.Context(), c.Param("id"), actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, req, nil)
}

// Reject godoc
// @Summary Reject a request
// @Tags Approvals
// @Accept json
// @Produce json
// @Param id path string true "Request ID"
// @Param payload body dto.RejectApprovalRequest true "Rejection reason"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /approvals/{id}/reject [post]
func (h *ApprovalHandler) Reject(c *gin.Context) {
	actor := actorFromContext(c)
	if actor == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.RejectApprovalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid rejection payload"))
		return
	}
	rejected, err := h.approvals.Reject(c.Request.Context(), c.Param("id"), actor, req.Reason)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rejected, nil)
}

// parseApprovalQuery reads queue filters and the viewer's urgency rules. Rules the
// caller leaves out take the console defaults.
func parseApprovalQuery(c *gin.Context) (dto.ApprovalQuery, error) {
	defaults := models.DefaultUrgencyRules()
	query := dto.ApprovalQuery{
		Status: strings.TrimSpace(c.Query("status")),
		Type:   models.ActionType(strings.TrimSpace(c.Query("type"))),
		Search: strings.TrimSpace(c.Query("q")),
		Sort:   strings.TrimSpace(c.Query("sort")),
	}
	var err error
	if query.UrgentOnly, err = queryBool(c, "urgentOnly", false); err != nil {
		return query, err
	}
	if query.Page, err = queryInt(c, "page", 1); err != nil {
		return query, err
	}
	if query.PageSize, err = queryInt(c, "pageSize", 0); err != nil {
		return query, err
	}
	if query.Rules.PendingSecondCounts, err = queryBool(c, "pendingSecondCounts", defaults.PendingSecondCounts); err != nil {
		return query, err
	}
	if query.Rules.PolicyThresholdCounts, err = queryBool(c, "policyThresholdCounts", defaults.PolicyThresholdCounts); err != nil {
		return query, err
	}
	age, err := queryFloat(c, "ageThresholdHours")
	if err != nil {
		return query, err
	}
	query.Rules.AgeThresholdHours = defaults.AgeThresholdHours
	if age != nil {
		query.Rules.AgeThresholdHours = *age
	}
	if query.Rules.CustomAmountThreshold, err = queryFloat(c, "customAmountThreshold"); err != nil {
		return query, err
	}
	return query, nil
}
