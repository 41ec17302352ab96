package service

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/perf-review-api/internal/models"
)

// transactor runs fn inside a single database transaction.
type transactor interface {
	WithinTx(ctx context.Context, fn func(exec sqlx.ExtContext) error) error
}

// dashboardInvalidator drops cached dashboard data after writes.
type dashboardInvalidator interface {
	Invalidate(ctx context.Context)
}

// Actor is the authenticated caller. A nil actor means auth is disabled.
type Actor struct {
	StaffID string
	Role    models.StaffRole
}

// IsAdmin reports whether the actor has unrestricted access.
func (a *Actor) IsAdmin() bool {
	return a == nil || a.Role == models.RoleAdmin
}

// isUUID guards lookups so malformed ids surface as not found instead of driver errors.
func isUUID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func trimOptional(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func newPagination(page, size, total int) *models.Pagination {
	if page < 1 {
		page = 1
	}
	if size <= 0 || size > 100 {
		size = 20
	}
	return &models.Pagination{Page: page, PageSize: size, TotalCount: total}
}
