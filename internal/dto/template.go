package dto

import "github.com/noah-isme/perf-review-api/internal/models"

// TemplateDetailResponse is a template with its ordered questions.
type TemplateDetailResponse struct {
	models.ReviewTemplate
	Questions []models.TemplateQuestion `json:"questions"`
}
