package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/campground-approvals-api/internal/models"
	appErrors "github.com/noah-isme/campground-approvals-api/pkg/errors"
	"github.com/noah-isme/campground-approvals-api/pkg/logger"
	"github.com/noah-isme/campground-approvals-api/pkg/response"
)

// ContextUserKey is the gin context key storing the caller's AuthContext.
const ContextUserKey = "currentUser"

// TokenValidator verifies bearer tokens issued by the identity provider.
type TokenValidator interface {
	ValidateToken(token string) (*models.JWTClaims, error)
}

// JWT protects routes by requiring a valid access token. The resolved caller is
// stored under ContextUserKey and the actor id under logger.ActorKey.
func JWT(validator TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := bearerToken(c.GetHeader("Authorization"))
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}

		claims, err := validator.ValidateToken(token)
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}

		actor := claims.AuthContext()
		c.Set(ContextUserKey, actor)
		c.Set(logger.ActorKey, actor.ActorID)
		c.Next()
	}
}

// CurrentActor returns the caller attached by JWT, or nil.
func CurrentActor(c *gin.Context) *models.AuthContext {
	value, exists := c.Get(ContextUserKey)
	if !exists {
		return nil
	}
	actor, _ := value.(*models.AuthContext)
	return actor
}

func bearerToken(header string) (string, error) {
	if header == "" {
		return "", appErrors.ErrUnauthorized
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", appErrors.Clone(appErrors.ErrUnauthorized, "invalid authorization header")
	}
	return strings.TrimSpace(parts[1]), nil
}
