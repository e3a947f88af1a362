package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/campground-approvals-api/internal/dto"
	"github.com/noah-isme/campground-approvals-api/internal/models"
	appErrors "github.com/noah-isme/campground-approvals-api/pkg/errors"
	"github.com/noah-isme/campground-approvals-api/pkg/response"
)

type approvalPolicyService interface {
	List(ctx context.Context, scopeID string, actor *models.AuthContext) ([]models.ApprovalPolicy, error)
	Match(ctx context.Context, action models.ApprovalAction) (models.ApprovalPolicy, error)
	Create(ctx context.Context, req dto.CreateApprovalPolicyRequest, actor *models.AuthContext) (*models.ApprovalPolicy, error)
	Update(ctx context.Context, id string, req dto.UpdateApprovalPolicyRequest, actor *models.AuthContext) (*models.ApprovalPolicy, error)
	Delete(ctx context.Context, id string, actor *models.AuthContext) error
}

// ApprovalPolicyHandler exposes policy administration.
type ApprovalPolicyHandler struct {
	service approvalPolicyService
}

// NewApprovalPolicyHandler constructs the handler.
func NewApprovalPolicyHandler(service approvalPolicyService) *ApprovalPolicyHandler {
	return &ApprovalPolicyHandler{service: service}
}

// List godoc
// @Summary List approval policies
// @Tags Approval Policies
// @Produce json
// @Param scopeId query string false "Scope (campground) id"
// @Success 200 {object} response.Envelope
// @Router /approval-policies [get]
func (h *ApprovalPolicyHandler) List(c *gin.Context) {
	actor := actorFromContext(c)
	if actor == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	policies, err := h.service.List(c.Request.Context(), c.Query("scopeId"), actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, policies, nil)
}

// Match godoc
// @Summary Preview which policy governs an action
// @Tags Approval Policies
// @Produce json
// @Param type query string true "Action type"
// @Param amountCents query int false "Amount in minor units"
// @Param currency query string false "ISO-4217 currency"
// @Param scopeId query string false "Scope id"
// @Success 200 {object} response.Envelope
// @Router /approval-policies/match [get]
func (h *ApprovalPolicyHandler) Match(c *gin.Context) {
	actor := actorFromContext(c)
	if actor == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var query dto.MatchPolicyQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid match query"))
		return
	}
	actionType := strings.ToLower(strings.TrimSpace(query.Type))
	if actionType == "" || query.AmountCents < 0 {
		response.Error(c, appErrors.Clone(appErrors.ErrInvalidAction, "type is required and amountCents must not be negative"))
		return
	}
	scopeID := strings.TrimSpace(query.ScopeID)
	if scopeID == "" {
		scopeID = actor.ScopeID
	}
	if scopeID != "" && !actor.CanAccessScope(scopeID) {
		response.Error(c, appErrors.Clone(appErrors.ErrNotAuthorized, "cannot preview policies of another scope"))
		return
	}
	policy, err := h.service.Match(c.Request.Context(), models.ApprovalAction{
		Type:        models.ActionType(actionType),
		AmountCents: query.AmountCents,
		Currency:    strings.ToUpper(strings.TrimSpace(query.Currency)),
		ScopeID:     scopeID,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, policy, nil)
}

// Create godoc
// @Summary Create an approval policy
// @Tags Approval Policies
// @Accept json
// @Produce json
// @Param payload body dto.CreateApprovalPolicyRequest true "Policy"
// @Success 201 {object} response.Envelope
// @Router /approval-policies [post]
func (h *ApprovalPolicyHandler) Create(c *gin.Context) {
	actor := actorFromContext(c)
	if actor == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.CreateApprovalPolicyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid approval policy payload"))
		return
	}
	policy, err := h.service.Create(c.Request.Context(), req, actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, policy)
}

// Update godoc
// @Summary Update an approval policy
// @Tags Approval Policies
// @Accept json
// @Produce json
// @Param id path string true "Policy ID"
// @Param payload body dto.UpdateApprovalPolicyRequest true "Patch"
// @Success 200 {object} response.Envelope
// @Router /approval-policies/{id} [patch]
func (h *ApprovalPolicyHandler) Update(c *gin.Context) {
	actor := actorFromContext(c)
	if actor == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.UpdateApprovalPolicyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid approval policy patch"))
		return
	}
	policy, err := h.service.Update(c.Request.Context(), c.Param("id"), req, actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, policy, nil)
}

// Delete godoc
// @Summary Delete an approval policy
// @Tags Approval Policies
// @Param id path string true "Policy ID"
// @Success 204
// @Failure 409 {object} response.Envelope
// @Router /approval-policies/{id} [delete]
func (h *ApprovalPolicyHandler) Delete(c *gin.Context) {
	actor := actorFromContext(c)
	if actor == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	if err := h.service.Delete(c.Request.Context(), c.Param("id"), actor); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
