package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/campground-approvals-api/internal/models"
	appErrors "github.com/noah-isme/campground-approvals-api/pkg/errors"
	"github.com/noah-isme/campground-approvals-api/pkg/logger"
)

type stubValidator struct {
	claims *models.JWTClaims
}

func (s stubValidator) ValidateToken(token string) (*models.JWTClaims, error) {
	if token != "good" {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token")
	}
	return s.claims, nil
}

func newAuthRouter(roles ...models.Role) (*gin.Engine, *string) {
	gin.SetMode(gin.TestMode)
	var seenActor string
	validator := stubValidator{claims: &models.JWTClaims{
		Roles:            []string{"manager"},
		ScopeID:          "camp-1",
		RegisteredClaims: jwt.RegisteredClaims{Subject: "manager-1"},
	}}
	r := gin.New()
	r.Use(JWT(validator), RequireRoles(roles...))
	r.GET("/", func(c *gin.Context) {
		seenActor = c.GetString(logger.ActorKey)
		if CurrentActor(c) == nil {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.Status(http.StatusNoContent)
	})
	return r, &seenActor
}

func TestJWTAndRBAC(t *testing.T) {
	cases := []struct {
		name   string
		header string
		roles  []models.Role
		want   int
	}{
		{"missing header", "", []models.Role{models.RoleManager}, http.StatusUnauthorized},
		{"wrong scheme", "Basic good", []models.Role{models.RoleManager}, http.StatusUnauthorized},
		{"bad token", "Bearer bad", []models.Role{models.RoleManager}, http.StatusUnauthorized},
		{"role allowed", "Bearer good", []models.Role{models.RoleOwner, models.RoleManager}, http.StatusNoContent},
		{"role denied", "Bearer good", []models.Role{models.RoleOwner}, http.StatusForbidden},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			router, seen := newAuthRouter(tc.roles...)
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)
			assert.Equal(t, tc.want, w.Code)
			if tc.want == http.StatusNoContent {
				assert.Equal(t, "manager-1", *seen)
			}
		})
	}
}

func TestRBACAdmitsPlatformAuthority(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(ContextUserKey, &models.AuthContext{ActorID: "root", PlatformWide: true})
	}, RequireRoles(models.RoleOwner))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)
}

type recordingObserver struct {
	path   string
	status int
}

func (r *recordingObserver) ObserveHTTPRequest(method, path string, status int, _ time.Duration) {
	r.path = path
	r.status = status
}

func TestMetricsMiddlewareUsesRouteTemplate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	observer := &recordingObserver{}
	r := gin.New()
	r.Use(Metrics(observer))
	r.GET("/approvals/:id", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/approvals/req-1", nil))
	assert.Equal(t, "/approvals/:id", observer.path)
	assert.Equal(t, http.StatusOK, observer.status)

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nowhere/123", nil))
	assert.Equal(t, "unmatched", observer.path)
}
