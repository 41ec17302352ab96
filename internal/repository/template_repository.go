package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/perf-review-api/internal/models"
)

// TemplateRepository manages review templates and their questions.
type TemplateRepository struct {
	db *sqlx.DB
}

// NewTemplateRepository constructs a TemplateRepository.
func NewTemplateRepository(db *sqlx.DB) *TemplateRepository {
	return &TemplateRepository{db: db}
}

func (r *TemplateRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// List returns templates newest first with their question counts.
func (r *TemplateRepository) List(ctx context.Context, filter models.TemplateFilter) ([]models.TemplateSummary, int, error) {
	where := ""
	var args []interface{}
	if filter.Search != "" {
		where = " WHERE LOWER(t.name) LIKE $1"
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}

	size, offset := pageBounds(filter.Page, filter.PageSize)
	query := fmt.Sprintf(`SELECT t.id, t.name, t.description, t.created_at, COUNT(q.id) AS question_count
FROM review_templates t LEFT JOIN template_questions q ON q.template_id = t.id%s
GROUP BY t.id, t.name, t.description, t.created_at
ORDER BY t.created_at DESC, t.id DESC LIMIT %d OFFSET %d`, where, size, offset)
	var templates []models.TemplateSummary
	if err := r.db.SelectContext(ctx, &templates, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list templates: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM review_templates t"+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count templates: %w", err)
	}
	return templates, total, nil
}

// FindByID fetches a template by ID.
func (r *TemplateRepository) FindByID(ctx context.Context, id string) (*models.ReviewTemplate, error) {
	const query = `SELECT id, name, description, created_at FROM review_templates WHERE id = $1`
	var tpl models.ReviewTemplate
	if err := r.db.GetContext(ctx, &tpl, query, id); err != nil {
		return nil, err
	}
	return &tpl, nil
}

// ExistsByName checks whether a template already uses the name.
func (r *TemplateRepository) ExistsByName(ctx context.Context, name string) (bool, error) {
	const query = `SELECT 1 FROM review_templates WHERE name = $1 LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, name); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("check template name: %w", err)
	}
	return true, nil
}

// CreateWithQuestions inserts the template and its questions in one transaction.
func (r *TemplateRepository) CreateWithQuestions(ctx context.Context, tpl *models.ReviewTemplate, questions []models.TemplateQuestion) (err error) {
	if len(questions) == 0 {
		return fmt.Errorf("create template: no questions")
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin template tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = r.InsertWithQuestions(ctx, tx, tpl, questions); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit template: %w", err)
	}
	return nil
}

// InsertWithQuestions writes the template and its questions through exec,
// leaving commit or rollback to the caller's transaction.
func (r *TemplateRepository) InsertWithQuestions(ctx context.Context, exec sqlx.ExtContext, tpl *models.ReviewTemplate, questions []models.TemplateQuestion) error {
	if len(questions) == 0 {
		return fmt.Errorf("create template: no questions")
	}
	if tpl.ID == "" {
		tpl.ID = uuid.NewString()
	}
	if tpl.CreatedAt.IsZero() {
		tpl.CreatedAt = time.Now().UTC()
	}
	target := r.exec(exec)

	const insertTemplate = `INSERT INTO review_templates (id, name, description, created_at)
VALUES (:id, :name, :description, :created_at)`
	if _, err := sqlx.NamedExecContext(ctx, target, insertTemplate, tpl); err != nil {
		return fmt.Errorf("create template: %w", err)
	}

	const insertQuestion = `INSERT INTO template_questions (id, template_id, prompt, answer_by, order_index)
VALUES (:id, :template_id, :prompt, :answer_by, :order_index)`
	for i := range questions {
		q := &questions[i]
		if q.ID == "" {
			q.ID = uuid.NewString()
		}
		q.TemplateID = tpl.ID
		if _, err := sqlx.NamedExecContext(ctx, target, insertQuestion, q); err != nil {
			return fmt.Errorf("create template question: %w", err)
		}
	}
	return nil
}

// ListQuestions returns the template's questions by order index, ties in insertion order.
func (r *TemplateRepository) ListQuestions(ctx context.Context, exec sqlx.ExtContext, templateID string) ([]models.TemplateQuestion, error) {
	const query = `SELECT id, template_id, prompt, answer_by, order_index
FROM template_questions WHERE template_id = $1 ORDER BY order_index ASC, seq ASC`
	var questions []models.TemplateQuestion
	if err := sqlx.SelectContext(ctx, r.exec(exec), &questions, query, templateID); err != nil {
		return nil, fmt.Errorf("list template questions: %w", err)
	}
	return questions, nil
}
