package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campground-approvals-api/internal/dto"
	"github.com/noah-isme/campground-approvals-api/internal/models"
	appErrors "github.com/noah-isme/campground-approvals-api/pkg/errors"
)

type policyServiceMock struct {
	action    models.ApprovalAction
	listScope string
	deleteErr error
	created   dto.CreateApprovalPolicyRequest
}

func (m *policyServiceMock) List(ctx context.Context, scopeID string, actor *models.AuthContext) ([]models.ApprovalPolicy, error) {
	m.listScope = scopeID
	return []models.ApprovalPolicy{{ID: "pol-1"}}, nil
}

func (m *policyServiceMock) Match(ctx context.Context, action models.ApprovalAction) (models.ApprovalPolicy, error) {
	m.action = action
	return models.DefaultApprovalPolicy, nil
}

func (m *policyServiceMock) Create(ctx context.Context, req dto.CreateApprovalPolicyRequest, actor *models.AuthContext) (*models.ApprovalPolicy, error) {
	m.created = req
	return &models.ApprovalPolicy{ID: "pol-1", Name: req.Name}, nil
}

func (m *policyServiceMock) Update(ctx context.Context, id string, req dto.UpdateApprovalPolicyRequest, actor *models.AuthContext) (*models.ApprovalPolicy, error) {
	return &models.ApprovalPolicy{ID: id}, nil
}

func (m *policyServiceMock) Delete(ctx context.Context, id string, actor *models.AuthContext) error {
	return m.deleteErr
}

func TestApprovalPolicyHandlerMatch(t *testing.T) {
	svc := &policyServiceMock{}
	handler := NewApprovalPolicyHandler(svc)
	c, w := newTestContext(http.MethodGet, "/approval-policies/match?type=Refund&amountCents=30000&currency=usd", nil)

	handler.Match(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.ApprovalAction{Type: models.ActionTypeRefund, AmountCents: 30000, Currency: "USD", ScopeID: "camp-1"}, svc.action)
}

func TestApprovalPolicyHandlerMatchValidation(t *testing.T) {
	handler := NewApprovalPolicyHandler(&policyServiceMock{})
	cases := map[string]int{
		"/approval-policies/match?amountCents=1":               http.StatusBadRequest,
		"/approval-policies/match?type=refund&amountCents=-5":  http.StatusBadRequest,
		"/approval-policies/match?type=refund&amountCents=abc": http.StatusBadRequest,
		"/approval-policies/match?type=refund&scopeId=camp-2":  http.StatusForbidden,
		"/approval-policies/match?type=refund&scopeId=camp-1":  http.StatusOK,
	}
	for target, want := range cases {
		c, w := newTestContext(http.MethodGet, target, nil)
		handler.Match(c)
		assert.Equal(t, want, w.Code, target)
	}
}

func TestApprovalPolicyHandlerCreateAndList(t *testing.T) {
	svc := &policyServiceMock{}
	handler := NewApprovalPolicyHandler(svc)

	c, w := newTestContext(http.MethodPost, "/approval-policies", []byte(`{"name":"Large refunds","appliesTo":["refund"],"currency":"USD","approversNeeded":2,"approverRoles":["owner"]}`))
	handler.Create(c)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "Large refunds", svc.created.Name)

	c, w = newTestContext(http.MethodGet, "/approval-policies?scopeId=camp-1", nil)
	handler.List(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "camp-1", svc.listScope)
}

func TestApprovalPolicyHandlerDelete(t *testing.T) {
	handler := NewApprovalPolicyHandler(&policyServiceMock{})
	c, w := newTestContext(http.MethodDelete, "/approval-policies/pol-1", nil)
	c.Params = gin.Params{{Key: "id", Value: "pol-1"}}
	handler.Delete(c)
	c.Writer.WriteHeaderNow() // gin's engine flushes the status after the handler chain
	assert.Equal(t, http.StatusNoContent, w.Code)

	inUse := appErrors.Clone(appErrors.ErrConflict, "policy is referenced by open approval requests; deactivate it instead")
	handler = NewApprovalPolicyHandler(&policyServiceMock{deleteErr: inUse})
	c, w = newTestContext(http.MethodDelete, "/approval-policies/pol-1", nil)
	handler.Delete(c)
	assert.Equal(t, http.StatusConflict, w.Code)
}
