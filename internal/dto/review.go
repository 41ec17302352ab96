package dto

import "github.com/noah-isme/perf-review-api/internal/models"

// ReviewQuestionView pairs a question with the answers given so far.
type ReviewQuestionView struct {
	models.TemplateQuestion
	ReviewerAnswer *string `json:"reviewer_answer,omitempty"`
	RevieweeAnswer *string `json:"reviewee_answer,omitempty"`
}

// ReviewProgress counts filled answer slots.
type ReviewProgress struct {
	Expected int `json:"expected"`
	Answered int `json:"answered"`
}

// ReviewDetailResponse is returned by GET /reviews/:id.
type ReviewDetailResponse struct {
	Review    models.ReviewListItem `json:"review"`
	Questions []ReviewQuestionView  `json:"questions"`
	Missing   []models.AnswerSlot   `json:"missing"`
	Progress  ReviewProgress        `json:"progress"`
}

// RoleFormQuestion is an applicable question plus the role's current answer.
type RoleFormQuestion struct {
	models.TemplateQuestion
	Answer *string `json:"answer,omitempty"`
}

// RoleFormResponse lists what one side of a review still has to answer.
type RoleFormResponse struct {
	Review    models.ReviewListItem `json:"review"`
	Role      models.AnswerRole     `json:"role"`
	Questions []RoleFormQuestion    `json:"questions"`
}

// SubmitAnswersResponse reports the outcome of one submission.
type SubmitAnswersResponse struct {
	ReviewID      string              `json:"review_id"`
	Role          models.AnswerRole   `json:"role"`
	Saved         int                 `json:"saved"`
	Skipped       int                 `json:"skipped"`
	Status        models.ReviewStatus `json:"status"`
	StatusChanged bool                `json:"status_changed"`
}
