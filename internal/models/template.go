package models

import "time"

// AnswerBy marks which side of a review answers a question.
type AnswerBy string

const (
	AnswerByReviewer AnswerBy = "reviewer"
	AnswerByReviewee AnswerBy = "reviewee"
	AnswerByBoth     AnswerBy = "both"
)

// Valid reports whether a is one of the known markers.
func (a AnswerBy) Valid() bool {
	switch a {
	case AnswerByReviewer, AnswerByReviewee, AnswerByBoth:
		return true
	}
	return false
}

// Roles lists the answer roles a question expects, reviewer first.
func (a AnswerBy) Roles() []AnswerRole {
	switch a {
	case AnswerByReviewer:
		return []AnswerRole{AnswerRoleReviewer}
	case AnswerByReviewee:
		return []AnswerRole{AnswerRoleReviewee}
	case AnswerByBoth:
		return []AnswerRole{AnswerRoleReviewer, AnswerRoleReviewee}
	}
	return nil
}

// Includes reports whether role must answer a question marked a.
func (a AnswerBy) Includes(role AnswerRole) bool {
	for _, r := range a.Roles() {
		if r == role {
			return true
		}
	}
	return false
}

// ReviewTemplate is a reusable, named set of questions.
type ReviewTemplate struct {
	ID          string    `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Description *string   `db:"description" json:"description,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// TemplateQuestion belongs to a template and is ordered by OrderIndex.
type TemplateQuestion struct {
	ID         string   `db:"id" json:"id"`
	TemplateID string   `db:"template_id" json:"template_id"`
	Prompt     string   `db:"prompt" json:"prompt"`
	AnswerBy   AnswerBy `db:"answer_by" json:"answer_by"`
	OrderIndex int      `db:"order_index" json:"order_index"`
}

// TemplateSummary adds the question count to a template listing row.
type TemplateSummary struct {
	ReviewTemplate
	QuestionCount int `db:"question_count" json:"question_count"`
}

// TemplateFilter paginates template listings.
type TemplateFilter struct {
	Search   string
	Page     int
	PageSize int
}
