package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/perf-review-api/internal/middleware"
	"github.com/noah-isme/perf-review-api/internal/service"
)

// actorFromContext maps verified claims to a service actor. It returns nil
// when auth is disabled and no claims were attached.
func actorFromContext(c *gin.Context) *service.Actor {
	claims, ok := middleware.Claims(c)
	if !ok {
		return nil
	}
	return &service.Actor{StaffID: claims.StaffID, Role: claims.Role}
}

func pageParams(c *gin.Context) (int, int) {
	page, size := 1, 20
	if v, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		page = v
	}
	if v, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		size = v
	}
	return page, size
}
