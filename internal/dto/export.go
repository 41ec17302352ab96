package dto

import (
	"time"

	"github.com/noah-isme/perf-review-api/internal/models"
)

// ExportRequest captures POST /reviews/:id/exports payload.
type ExportRequest struct {
	Format models.ExportFormat `json:"format"`
}

// ExportJobResponse is returned after enqueueing an export.
type ExportJobResponse struct {
	ID       string              `json:"id"`
	ReviewID string              `json:"review_id"`
	Status   models.ExportStatus `json:"status"`
}

// ExportStatusResponse exposes job state and the signed download link once finished.
type ExportStatusResponse struct {
	ID         string              `json:"id"`
	ReviewID   string              `json:"review_id"`
	Format     models.ExportFormat `json:"format"`
	Status     models.ExportStatus `json:"status"`
	ResultURL  *string             `json:"result_url,omitempty"`
	Error      *string             `json:"error,omitempty"`
	FinishedAt *time.Time          `json:"finished_at,omitempty"`
}
