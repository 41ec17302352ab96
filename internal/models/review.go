package models

import "time"

// ReviewStatus is derived from stored answers by the completion evaluator.
type ReviewStatus string

const (
	ReviewStatusInProgress ReviewStatus = "In Progress"
	ReviewStatusCompleted  ReviewStatus = "Completed"
)

// Review pairs a reviewer and a reviewee against a template.
type Review struct {
	ID         string       `db:"id" json:"id"`
	Title      string       `db:"title" json:"title"`
	TemplateID string       `db:"template_id" json:"template_id"`
	ReviewerID string       `db:"reviewer_id" json:"reviewer_id"`
	RevieweeID string       `db:"reviewee_id" json:"reviewee_id"`
	Status     ReviewStatus `db:"status" json:"status"`
	CreatedAt  time.Time    `db:"created_at" json:"created_at"`
}

// ReviewListItem is a review joined with display names.
type ReviewListItem struct {
	Review
	TemplateName string `db:"template_name" json:"template_name"`
	ReviewerName string `db:"reviewer_name" json:"reviewer_name"`
	RevieweeName string `db:"reviewee_name" json:"reviewee_name"`
}

// ReviewFilter captures filtering options for listing reviews.
type ReviewFilter struct {
	Status     *ReviewStatus
	ReviewerID string
	RevieweeID string
	Page       int
	PageSize   int
}

// ReviewCounts aggregates the dashboard totals.
type ReviewCounts struct {
	Staff     int `db:"staff" json:"staff"`
	Templates int `db:"templates" json:"templates"`
	Reviews   int `db:"reviews" json:"reviews"`
	Completed int `db:"completed" json:"completed"`
}
