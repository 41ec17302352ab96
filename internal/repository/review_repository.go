package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/perf-review-api/internal/models"
)

const reviewColumns = "id, title, template_id, reviewer_id, reviewee_id, status, created_at"

const reviewListSelect = `SELECT r.id, r.title, r.template_id, r.reviewer_id, r.reviewee_id, r.status, r.created_at,
t.name AS template_name, rv.name AS reviewer_name, re.name AS reviewee_name
FROM reviews r
JOIN review_templates t ON t.id = r.template_id
JOIN staff rv ON rv.id = r.reviewer_id
JOIN staff re ON re.id = r.reviewee_id`

// ReviewRepository manages review instances.
type ReviewRepository struct {
	db *sqlx.DB
}

// NewReviewRepository constructs a ReviewRepository.
func NewReviewRepository(db *sqlx.DB) *ReviewRepository {
	return &ReviewRepository{db: db}
}

func (r *ReviewRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// Create inserts a review. Status defaults to In Progress.
func (r *ReviewRepository) Create(ctx context.Context, review *models.Review) error {
	if review.ID == "" {
		review.ID = uuid.NewString()
	}
	if review.Status == "" {
		review.Status = models.ReviewStatusInProgress
	}
	if review.CreatedAt.IsZero() {
		review.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO reviews (id, title, template_id, reviewer_id, reviewee_id, status, created_at)
VALUES (:id, :title, :template_id, :reviewer_id, :reviewee_id, :status, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, review); err != nil {
		return fmt.Errorf("create review: %w", err)
	}
	return nil
}

// FindByID fetches a review by ID.
func (r *ReviewRepository) FindByID(ctx context.Context, id string) (*models.Review, error) {
	query := "SELECT " + reviewColumns + " FROM reviews WHERE id = $1"
	var review models.Review
	if err := r.db.GetContext(ctx, &review, query, id); err != nil {
		return nil, err
	}
	return &review, nil
}

// FindForUpdate fetches and row-locks a review inside exec's transaction so
// concurrent submissions for the same review evaluate one after another.
func (r *ReviewRepository) FindForUpdate(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Review, error) {
	query := "SELECT " + reviewColumns + " FROM reviews WHERE id = $1 FOR UPDATE"
	var review models.Review
	if err := sqlx.GetContext(ctx, r.exec(exec), &review, query, id); err != nil {
		return nil, err
	}
	return &review, nil
}

// FindListItem fetches one review joined with display names.
func (r *ReviewRepository) FindListItem(ctx context.Context, id string) (*models.ReviewListItem, error) {
	var item models.ReviewListItem
	if err := r.db.GetContext(ctx, &item, reviewListSelect+" WHERE r.id = $1", id); err != nil {
		return nil, err
	}
	return &item, nil
}

// List returns reviews newest first with template and staff names.
func (r *ReviewRepository) List(ctx context.Context, filter models.ReviewFilter) ([]models.ReviewListItem, int, error) {
	var conditions []string
	var args []interface{}
	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("r.status = $%d", len(args)+1))
		args = append(args, *filter.Status)
	}
	if filter.ReviewerID != "" {
		conditions = append(conditions, fmt.Sprintf("r.reviewer_id = $%d", len(args)+1))
		args = append(args, filter.ReviewerID)
	}
	if filter.RevieweeID != "" {
		conditions = append(conditions, fmt.Sprintf("r.reviewee_id = $%d", len(args)+1))
		args = append(args, filter.RevieweeID)
	}
	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	size, offset := pageBounds(filter.Page, filter.PageSize)
	query := fmt.Sprintf("%s%s ORDER BY r.created_at DESC, r.id DESC LIMIT %d OFFSET %d", reviewListSelect, where, size, offset)
	var items []models.ReviewListItem
	if err := r.db.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list reviews: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM reviews r"+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count reviews: %w", err)
	}
	return items, total, nil
}

// Latest returns the most recently created reviews.
func (r *ReviewRepository) Latest(ctx context.Context, limit int) ([]models.ReviewListItem, error) {
	if limit <= 0 {
		limit = 8
	}
	var items []models.ReviewListItem
	if err := r.db.SelectContext(ctx, &items, reviewListSelect+" ORDER BY r.created_at DESC, r.id DESC LIMIT $1", limit); err != nil {
		return nil, fmt.Errorf("list latest reviews: %w", err)
	}
	return items, nil
}

// UpdateStatus persists the evaluated status. Only the completion evaluator calls this.
func (r *ReviewRepository) UpdateStatus(ctx context.Context, exec sqlx.ExtContext, id string, status models.ReviewStatus) error {
	const query = `UPDATE reviews SET status = $1 WHERE id = $2`
	res, err := r.exec(exec).ExecContext(ctx, query, status, id)
	if err != nil {
		return fmt.Errorf("update review status: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Counts returns the dashboard totals in a single round trip.
func (r *ReviewRepository) Counts(ctx context.Context) (*models.ReviewCounts, error) {
	const query = `SELECT
	(SELECT COUNT(*) FROM staff) AS staff,
	(SELECT COUNT(*) FROM review_templates) AS templates,
	(SELECT COUNT(*) FROM reviews) AS reviews,
	(SELECT COUNT(*) FROM reviews WHERE status = $1) AS completed`
	var counts models.ReviewCounts
	if err := r.db.GetContext(ctx, &counts, query, models.ReviewStatusCompleted); err != nil {
		return nil, fmt.Errorf("count dashboard totals: %w", err)
	}
	return &counts, nil
}
