package dto

import (
	"time"

	"github.com/noah-isme/perf-review-api/internal/models"
)

// DashboardResponse aggregates totals and the most recent reviews.
type DashboardResponse struct {
	Counts      models.ReviewCounts     `json:"counts"`
	Latest      []models.ReviewListItem `json:"latest"`
	GeneratedAt time.Time               `json:"generated_at"`
}
