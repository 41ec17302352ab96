package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/perf-review-api/internal/dto"
	"github.com/noah-isme/perf-review-api/internal/models"
	"github.com/noah-isme/perf-review-api/pkg/database"
	appErrors "github.com/noah-isme/perf-review-api/pkg/errors"
)

type templateRepository interface {
	List(ctx context.Context, filter models.TemplateFilter) ([]models.TemplateSummary, int, error)
	FindByID(ctx context.Context, id string) (*models.ReviewTemplate, error)
	ExistsByName(ctx context.Context, name string) (bool, error)
	CreateWithQuestions(ctx context.Context, tpl *models.ReviewTemplate, questions []models.TemplateQuestion) error
	ListQuestions(ctx context.Context, exec sqlx.ExtContext, templateID string) ([]models.TemplateQuestion, error)
}

// TemplateQuestionInput is one submitted question. Blank prompts are skipped
// and an empty answer_by means both.
type TemplateQuestionInput struct {
	Prompt   string `json:"prompt"`
	AnswerBy string `json:"answer_by"`
}

// CreateTemplateRequest represents payload for creating templates.
type CreateTemplateRequest struct {
	Name        string                  `json:"name" validate:"required,max=120"`
	Description *string                 `json:"description" validate:"omitempty,max=2000"`
	Questions   []TemplateQuestionInput `json:"questions"`
}

// TemplateService manages review templates.
type TemplateService struct {
	repo      templateRepository
	dashboard dashboardInvalidator
	validator *validator.Validate
	logger    *zap.Logger
}

// NewTemplateService constructs a TemplateService.
func NewTemplateService(repo templateRepository, dashboard dashboardInvalidator, validate *validator.Validate, logger *zap.Logger) *TemplateService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TemplateService{repo: repo, dashboard: dashboard, validator: validate, logger: logger}
}

// List returns templates newest first.
func (s *TemplateService) List(ctx context.Context, filter models.TemplateFilter) ([]models.TemplateSummary, *models.Pagination, error) {
	templates, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list templates")
	}
	return templates, newPagination(filter.Page, filter.PageSize, total), nil
}

// Get returns a template with its ordered questions.
func (s *TemplateService) Get(ctx context.Context, id string) (*dto.TemplateDetailResponse, error) {
	if !isUUID(id) {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "template not found")
	}
	tpl, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "template not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load template")
	}
	questions, err := s.repo.ListQuestions(ctx, nil, tpl.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load template questions")
	}
	return &dto.TemplateDetailResponse{ReviewTemplate: *tpl, Questions: questions}, nil
}

// Create stores a template and its non-blank questions atomically.
func (s *TemplateService) Create(ctx context.Context, req CreateTemplateRequest) (*dto.TemplateDetailResponse, error) {
	req.Name = strings.TrimSpace(req.Name)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "template name is required")
	}

	questions, err := buildQuestions(req.Questions)
	if err != nil {
		return nil, err
	}

	exists, err := s.repo.ExistsByName(ctx, req.Name)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check template name")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "template name must be unique")
	}

	tpl := &models.ReviewTemplate{Name: req.Name, Description: trimOptional(req.Description)}
	if err := s.repo.CreateWithQuestions(ctx, tpl, questions); err != nil {
		if database.IsUniqueViolation(err, "uq_review_templates_name") {
			return nil, appErrors.Clone(appErrors.ErrConflict, "template name must be unique")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create template")
	}
	if s.dashboard != nil {
		s.dashboard.Invalidate(ctx)
	}
	s.logger.Info("template created", zap.String("template_id", tpl.ID), zap.Int("questions", len(questions)))
	return &dto.TemplateDetailResponse{ReviewTemplate: *tpl, Questions: questions}, nil
}

// buildQuestions drops blank prompts and numbers the rest from 1.
func buildQuestions(inputs []TemplateQuestionInput) ([]models.TemplateQuestion, error) {
	questions := make([]models.TemplateQuestion, 0, len(inputs))
	for i, input := range inputs {
		prompt := strings.TrimSpace(input.Prompt)
		if prompt == "" {
			continue
		}
		answerBy := models.AnswerBy(strings.ToLower(strings.TrimSpace(input.AnswerBy)))
		if answerBy == "" {
			answerBy = models.AnswerByBoth
		}
		if !answerBy.Valid() {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("question %d: answer_by must be reviewer, reviewee, or both", i+1))
		}
		questions = append(questions, models.TemplateQuestion{
			Prompt:     prompt,
			AnswerBy:   answerBy,
			OrderIndex: len(questions) + 1,
		})
	}
	if len(questions) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "add at least one question")
	}
	return questions, nil
}
