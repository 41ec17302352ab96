package models

import (
	"fmt"
	"time"
)

// AnswerRole identifies who wrote an answer.
type AnswerRole string

const (
	AnswerRoleReviewer AnswerRole = "reviewer"
	AnswerRoleReviewee AnswerRole = "reviewee"
)

// ParseAnswerRole accepts only reviewer or reviewee.
func ParseAnswerRole(raw string) (AnswerRole, error) {
	switch role := AnswerRole(raw); role {
	case AnswerRoleReviewer, AnswerRoleReviewee:
		return role, nil
	}
	return "", fmt.Errorf("unknown answer role %q", raw)
}

// ReviewAnswer is unique per (review, question, role).
type ReviewAnswer struct {
	ID         string     `db:"id" json:"id"`
	ReviewID   string     `db:"review_id" json:"review_id"`
	QuestionID string     `db:"question_id" json:"question_id"`
	Role       AnswerRole `db:"role" json:"role"`
	AnswerText string     `db:"answer_text" json:"answer_text"`
	UpdatedAt  time.Time  `db:"updated_at" json:"updated_at"`
}

// AnswerSlot is a (question, role) pair that can hold one answer.
type AnswerSlot struct {
	QuestionID string     `json:"question_id"`
	Role       AnswerRole `json:"role"`
}
