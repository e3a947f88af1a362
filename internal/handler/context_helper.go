package handler

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/campground-approvals-api/internal/middleware"
	"github.com/noah-isme/campground-approvals-api/internal/models"
	appErrors "github.com/noah-isme/campground-approvals-api/pkg/errors"
)

func actorFromContext(c *gin.Context) *models.AuthContext {
	return middleware.CurrentActor(c)
}

func queryBool(c *gin.Context, key string, fallback bool) (bool, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, appErrors.Clone(appErrors.ErrValidation, key+" must be a boolean")
	}
	return v, nil
}

func queryInt(c *gin.Context, key string, fallback int) (int, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, appErrors.Clone(appErrors.ErrValidation, key+" must be a non-negative integer")
	}
	return v, nil
}

func queryFloat(c *gin.Context, key string) (*float64, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || v < 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, key+" must be a non-negative number")
	}
	return &v, nil
}
