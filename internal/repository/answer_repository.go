package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/perf-review-api/internal/models"
)

// AnswerRepository persists review answers.
type AnswerRepository struct {
	db *sqlx.DB
}

// NewAnswerRepository constructs an AnswerRepository.
func NewAnswerRepository(db *sqlx.DB) *AnswerRepository {
	return &AnswerRepository{db: db}
}

func (r *AnswerRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// ListByReview returns the review's answers, optionally limited to one role.
func (r *AnswerRepository) ListByReview(ctx context.Context, exec sqlx.ExtContext, reviewID string, role *models.AnswerRole) ([]models.ReviewAnswer, error) {
	query := `SELECT id, review_id, question_id, role, answer_text, updated_at FROM review_answers WHERE review_id = $1`
	args := []interface{}{reviewID}
	if role != nil {
		query += " AND role = $2"
		args = append(args, *role)
	}
	query += " ORDER BY question_id ASC, role ASC"

	var answers []models.ReviewAnswer
	if err := sqlx.SelectContext(ctx, r.exec(exec), &answers, query, args...); err != nil {
		return nil, fmt.Errorf("list review answers: %w", err)
	}
	return answers, nil
}

// Upsert writes the answer for its (review, question, role) slot, replacing any existing text.
func (r *AnswerRepository) Upsert(ctx context.Context, exec sqlx.ExtContext, answer *models.ReviewAnswer) error {
	if answer.ID == "" {
		answer.ID = uuid.NewString()
	}
	answer.UpdatedAt = time.Now().UTC()

	const query = `INSERT INTO review_answers (id, review_id, question_id, role, answer_text, updated_at)
VALUES (:id, :review_id, :question_id, :role, :answer_text, :updated_at)
ON CONFLICT (review_id, question_id, role) DO UPDATE
SET answer_text = EXCLUDED.answer_text,
    updated_at = EXCLUDED.updated_at`
	if _, err := sqlx.NamedExecContext(ctx, r.exec(exec), query, answer); err != nil {
		return fmt.Errorf("upsert review answer: %w", err)
	}
	return nil
}
