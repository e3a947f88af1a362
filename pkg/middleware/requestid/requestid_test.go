package requestid

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestMiddlewareAssignsAndPropagatesID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cases := map[string]struct {
		inbound string
		reuse   bool
	}{
		"generated": {inbound: "", reuse: false},
		"reused":    {inbound: "trace-1234abcd", reuse: true},
		"malformed": {inbound: "bad id with spaces", reuse: false},
		"too short": {inbound: "abc", reuse: false},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			var fromGin, fromCtx string
			r := gin.New()
			r.Use(Middleware())
			r.GET("/", func(c *gin.Context) {
				fromGin = Value(c)
				fromCtx = FromContext(c.Request.Context())
				c.Status(http.StatusOK)
			})
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.inbound != "" {
				req.Header.Set(HeaderKey, tc.inbound)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, fromGin, fromCtx)
			assert.Equal(t, fromGin, w.Header().Get(HeaderKey))
			if tc.reuse {
				assert.Equal(t, tc.inbound, fromGin)
				return
			}
			_, err := uuid.Parse(fromGin)
			assert.NoError(t, err)
		})
	}
}
