package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campground-approvals-api/internal/dto"
	"github.com/noah-isme/campground-approvals-api/internal/middleware"
	"github.com/noah-isme/campground-approvals-api/internal/models"
	"github.com/noah-isme/campground-approvals-api/internal/service"
	appErrors "github.com/noah-isme/campground-approvals-api/pkg/errors"
)

type approvalServiceMock struct {
	submitted  dto.SubmitApprovalRequest
	rejectWith string
	err        error
}

func (m *approvalServiceMock) Submit(ctx context.Context, req dto.SubmitApprovalRequest, actor *models.AuthContext) (*models.ApprovalRequest, error) {
	m.submitted = req
	if m.err != nil {
		return nil, m.err
	}
	return &models.ApprovalRequest{ID: "req-1", Type: req.Type, Requester: actor.ActorID, Status: models.ApprovalStatusPending}, nil
}

func (m *approvalServiceMock) Get(ctx context.Context, id string, actor *models.AuthContext) (*models.ApprovalRequest, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &models.ApprovalRequest{ID: id}, nil
}

func (m *approvalServiceMock) Approve(ctx context.Context, id string, actor *models.AuthContext) (*models.ApprovalRequest, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &models.ApprovalRequest{ID: id, Status: models.ApprovalStatusPendingSecond}, nil
}

func (m *approvalServiceMock) Reject(ctx context.Context, id string, actor *models.AuthContext, reason string) (*models.ApprovalRequest, error) {
	m.rejectWith = reason
	if m.err != nil {
		return nil, m.err
	}
	return &models.ApprovalRequest{ID: id, Status: models.ApprovalStatusRejected}, nil
}

type queueServiceMock struct {
	query dto.ApprovalQuery
}

func (m *queueServiceMock) List(ctx context.Context, query dto.ApprovalQuery, actor *models.AuthContext) (*dto.ApprovalQueuePage, error) {
	m.query = query
	return &dto.ApprovalQueuePage{
		Items:      []dto.ApprovalQueueItem{{ApprovalRequest: models.ApprovalRequest{ID: "req-1"}, Urgent: true}},
		Pagination: models.Pagination{Page: 1, PageSize: 25, TotalCount: 1},
		Summary:    dto.ApprovalQueueSummary{Open: 1, Urgent: 1},
	}, nil
}

type exportServiceMock struct {
	format string
}

func (m *exportServiceMock) Export(ctx context.Context, format string, query dto.ApprovalQuery, actor *models.AuthContext) (*service.ExportFile, error) {
	m.format = format
	return &service.ExportFile{Filename: "approvals.csv", ContentType: "text/csv", Content: []byte("id\nreq-1\n")}, nil
}

var testActor = &models.AuthContext{ActorID: "manager-1", ScopeID: "camp-1", Roles: []models.Role{models.RoleManager}}

func newTestContext(method, target string, body []byte) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(method, target, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Set(middleware.ContextUserKey, testActor)
	return c, w
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestApprovalHandlerSubmit(t *testing.T) {
	svc := &approvalServiceMock{}
	handler := NewApprovalHandler(svc, &queueServiceMock{}, &exportServiceMock{})
	body, _ := json.Marshal(dto.SubmitApprovalRequest{Type: "refund", AmountCents: 30000, Currency: "USD"})
	c, w := newTestContext(http.MethodPost, "/approvals", body)

	handler.Submit(c)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, int64(30000), svc.submitted.AmountCents)
	data := decodeEnvelope(t, w)["data"].(map[string]interface{})
	assert.Equal(t, "manager-1", data["requester"])
}

func TestApprovalHandlerRequiresActor(t *testing.T) {
	handler := NewApprovalHandler(&approvalServiceMock{}, &queueServiceMock{}, &exportServiceMock{})
	c, w := newTestContext(http.MethodPost, "/approvals/req-1/approve", nil)
	c.Keys = nil

	handler.Approve(c)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestApprovalHandlerMapsServiceErrors(t *testing.T) {
	cases := map[string]struct {
		err  error
		want int
	}{
		"duplicate approver": {appErrors.Clone(appErrors.ErrNotAuthorized, "you already approved this request"), http.StatusForbidden},
		"terminal":           {appErrors.Clone(appErrors.ErrTerminalState, "request is already approved"), http.StatusConflict},
		"missing":            {appErrors.ErrNotFound, http.StatusNotFound},
		"race":               {appErrors.ErrConflict, http.StatusConflict},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			handler := NewApprovalHandler(&approvalServiceMock{err: tc.err}, &queueServiceMock{}, &exportServiceMock{})
			c, w := newTestContext(http.MethodPost, "/approvals/req-1/approve", nil)
			c.Params = gin.Params{{Key: "id", Value: "req-1"}}

			handler.Approve(c)
			assert.Equal(t, tc.want, w.Code)
			errBody := decodeEnvelope(t, w)["error"].(map[string]interface{})
			assert.Equal(t, appErrors.FromError(tc.err).Message, errBody["message"])
		})
	}
}

func TestApprovalHandlerReject(t *testing.T) {
	svc := &approvalServiceMock{}
	handler := NewApprovalHandler(svc, &queueServiceMock{}, &exportServiceMock{})

	c, w := newTestContext(http.MethodPost, "/approvals/req-1/reject", []byte(`{"reason":"duplicate request"}`))
	c.Params = gin.Params{{Key: "id", Value: "req-1"}}
	handler.Reject(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "duplicate request", svc.rejectWith)

	c, w = newTestContext(http.MethodPost, "/approvals/req-1/reject", []byte(`not json`))
	handler.Reject(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestApprovalHandlerListParsesRules(t *testing.T) {
	queue := &queueServiceMock{}
	handler := NewApprovalHandler(&approvalServiceMock{}, queue, &exportServiceMock{})
	c, w := newTestContext(http.MethodGet, "/approvals?status=open&sort=oldest&q=storm&urgentOnly=true&pendingSecondCounts=false&ageThresholdHours=6&customAmountThreshold=250&page=2&pageSize=10", nil)

	handler.List(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "open", queue.query.Status)
	assert.Equal(t, "oldest", queue.query.Sort)
	assert.Equal(t, "storm", queue.query.Search)
	assert.True(t, queue.query.UrgentOnly)
	assert.Equal(t, 2, queue.query.Page)
	assert.Equal(t, 10, queue.query.PageSize)
	assert.False(t, queue.query.Rules.PendingSecondCounts)
	assert.True(t, queue.query.Rules.PolicyThresholdCounts)
	assert.Equal(t, 6.0, queue.query.Rules.AgeThresholdHours)
	require.NotNil(t, queue.query.Rules.CustomAmountThreshold)
	assert.Equal(t, 250.0, *queue.query.Rules.CustomAmountThreshold)

	body := decodeEnvelope(t, w)
	assert.Len(t, body["data"], 1)
	summary := body["meta"].(map[string]interface{})["summary"].(map[string]interface{})
	assert.Equal(t, float64(1), summary["urgent"])
	assert.Equal(t, float64(1), body["pagination"].(map[string]interface{})["total_count"])
}

func TestApprovalHandlerListDefaultsRules(t *testing.T) {
	queue := &queueServiceMock{}
	handler := NewApprovalHandler(&approvalServiceMock{}, queue, &exportServiceMock{})
	c, w := newTestContext(http.MethodGet, "/approvals", nil)

	handler.List(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.DefaultUrgencyRules(), queue.query.Rules)
}

func TestApprovalHandlerListRejectsMalformedRules(t *testing.T) {
	handler := NewApprovalHandler(&approvalServiceMock{}, &queueServiceMock{}, &exportServiceMock{})
	for _, target := range []string{"/approvals?urgentOnly=maybe", "/approvals?ageThresholdHours=-1", "/approvals?page=x"} {
		c, w := newTestContext(http.MethodGet, target, nil)
		handler.List(c)
		assert.Equal(t, http.StatusBadRequest, w.Code, target)
	}
}

func TestApprovalHandlerExport(t *testing.T) {
	exports := &exportServiceMock{}
	handler := NewApprovalHandler(&approvalServiceMock{}, &queueServiceMock{}, exports)
	c, w := newTestContext(http.MethodGet, "/approvals/export?format=pdf", nil)

	handler.Export(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "pdf", exports.format)
	assert.Equal(t, "text/csv", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "approvals.csv")
	assert.Equal(t, "id\nreq-1\n", w.Body.String())
}
