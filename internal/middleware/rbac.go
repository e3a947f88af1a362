package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/campground-approvals-api/internal/models"
	appErrors "github.com/noah-isme/campground-approvals-api/pkg/errors"
	"github.com/noah-isme/campground-approvals-api/pkg/response"
)

// RBAC admits callers holding at least one of the allowed roles. Actors with
// platform-wide authority always pass.
func RBAC(allowed ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := CurrentActor(c)
		if actor == nil {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		if actor.HasPlatformAuthority() || actor.HasAnyRole(allowed...) {
			c.Next()
			return
		}
		response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "your role cannot perform this operation"))
		c.Abort()
	}
}

// RequireRoles is a helper that accepts a list of roles.
func RequireRoles(roles ...models.Role) gin.HandlerFunc {
	allowed := make([]string, len(roles))
	for i, r := range roles {
		allowed[i] = string(r)
	}
	return RBAC(allowed...)
}
