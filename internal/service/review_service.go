package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/perf-review-api/internal/dto"
	"github.com/noah-isme/perf-review-api/internal/models"
	appErrors "github.com/noah-isme/perf-review-api/pkg/errors"
)

type reviewRepository interface {
	Create(ctx context.Context, review *models.Review) error
	FindListItem(ctx context.Context, id string) (*models.ReviewListItem, error)
	List(ctx context.Context, filter models.ReviewFilter) ([]models.ReviewListItem, int, error)
}

type reviewTemplateReader interface {
	FindByID(ctx context.Context, id string) (*models.ReviewTemplate, error)
	ListQuestions(ctx context.Context, exec sqlx.ExtContext, templateID string) ([]models.TemplateQuestion, error)
}

type reviewStaffReader interface {
	FindByID(ctx context.Context, id string) (*models.Staff, error)
}

type reviewAnswerReader interface {
	ListByReview(ctx context.Context, exec sqlx.ExtContext, reviewID string, role *models.AnswerRole) ([]models.ReviewAnswer, error)
}

// CreateReviewRequest represents payload for initiating a review.
type CreateReviewRequest struct {
	Title      string `json:"title" validate:"required,max=120"`
	TemplateID string `json:"template_id" validate:"required"`
	ReviewerID string `json:"reviewer_id" validate:"required"`
	RevieweeID string `json:"reviewee_id" validate:"required"`
}

// ReviewService initiates reviews and renders their read models.
type ReviewService struct {
	reviews   reviewRepository
	templates reviewTemplateReader
	staff     reviewStaffReader
	answers   reviewAnswerReader
	dashboard dashboardInvalidator
	validator *validator.Validate
	logger    *zap.Logger
}

// NewReviewService constructs a ReviewService.
func NewReviewService(reviews reviewRepository, templates reviewTemplateReader, staff reviewStaffReader, answers reviewAnswerReader, dashboard dashboardInvalidator, validate *validator.Validate, logger *zap.Logger) *ReviewService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReviewService{
		reviews:   reviews,
		templates: templates,
		staff:     staff,
		answers:   answers,
		dashboard: dashboard,
		validator: validate,
		logger:    logger,
	}
}

// List returns reviews newest first.
func (s *ReviewService) List(ctx context.Context, filter models.ReviewFilter) ([]models.ReviewListItem, *models.Pagination, error) {
	if filter.Status != nil && *filter.Status != models.ReviewStatusInProgress && *filter.Status != models.ReviewStatusCompleted {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "status must be In Progress or Completed")
	}
	if filter.ReviewerID != "" && !isUUID(filter.ReviewerID) {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "reviewer_id must be a valid id")
	}
	if filter.RevieweeID != "" && !isUUID(filter.RevieweeID) {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "reviewee_id must be a valid id")
	}
	items, total, err := s.reviews.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list reviews")
	}
	return items, newPagination(filter.Page, filter.PageSize, total), nil
}

// Create initiates a review. The status always starts as In Progress.
func (s *ReviewService) Create(ctx context.Context, req CreateReviewRequest) (*models.Review, error) {
	req.Title = strings.TrimSpace(req.Title)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "all fields are required to initiate a review")
	}
	if req.ReviewerID == req.RevieweeID {
		return nil, appErrors.Clone(appErrors.ErrValidation, "reviewer and reviewee must be different staff members")
	}

	if err := s.ensureTemplate(ctx, req.TemplateID); err != nil {
		return nil, err
	}
	if err := s.ensureStaff(ctx, req.ReviewerID, "reviewer not found"); err != nil {
		return nil, err
	}
	if err := s.ensureStaff(ctx, req.RevieweeID, "reviewee not found"); err != nil {
		return nil, err
	}

	review := &models.Review{
		Title:      req.Title,
		TemplateID: req.TemplateID,
		ReviewerID: req.ReviewerID,
		RevieweeID: req.RevieweeID,
		Status:     models.ReviewStatusInProgress,
	}
	if err := s.reviews.Create(ctx, review); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create review")
	}
	if s.dashboard != nil {
		s.dashboard.Invalidate(ctx)
	}
	s.logger.Info("review initiated", zap.String("review_id", review.ID))
	return review, nil
}

// Detail returns the review with every question, the answers indexed per
// role and the slots still missing.
func (s *ReviewService) Detail(ctx context.Context, id string) (*dto.ReviewDetailResponse, error) {
	item, err := s.loadItem(ctx, id)
	if err != nil {
		return nil, err
	}
	questions, err := s.templates.ListQuestions(ctx, nil, item.TemplateID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load questions")
	}
	answers, err := s.answers.ListByReview(ctx, nil, item.ID, nil)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load answers")
	}

	indexed := make(map[models.AnswerSlot]string, len(answers))
	for _, a := range answers {
		indexed[models.AnswerSlot{QuestionID: a.QuestionID, Role: a.Role}] = a.AnswerText
	}

	views := make([]dto.ReviewQuestionView, 0, len(questions))
	for _, q := range questions {
		view := dto.ReviewQuestionView{TemplateQuestion: q}
		if text, ok := indexed[models.AnswerSlot{QuestionID: q.ID, Role: models.AnswerRoleReviewer}]; ok {
			view.ReviewerAnswer = &text
		}
		if text, ok := indexed[models.AnswerSlot{QuestionID: q.ID, Role: models.AnswerRoleReviewee}]; ok {
			view.RevieweeAnswer = &text
		}
		views = append(views, view)
	}

	expected := len(ExpectedAnswerSlots(questions))
	missing := MissingAnswerSlots(questions, answers)
	return &dto.ReviewDetailResponse{
		Review:    *item,
		Questions: views,
		Missing:   missing,
		Progress:  dto.ReviewProgress{Expected: expected, Answered: expected - len(missing)},
	}, nil
}

// RoleForm returns the questions a role answers together with its saved answers.
func (s *ReviewService) RoleForm(ctx context.Context, id, rawRole string) (*dto.RoleFormResponse, error) {
	role, err := models.ParseAnswerRole(rawRole)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid role")
	}
	item, err := s.loadItem(ctx, id)
	if err != nil {
		return nil, err
	}
	questions, err := s.templates.ListQuestions(ctx, nil, item.TemplateID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load questions")
	}
	answers, err := s.answers.ListByReview(ctx, nil, item.ID, &role)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load answers")
	}
	existing := make(map[string]string, len(answers))
	for _, a := range answers {
		existing[a.QuestionID] = a.AnswerText
	}

	form := &dto.RoleFormResponse{Review: *item, Role: role, Questions: make([]dto.RoleFormQuestion, 0, len(questions))}
	for _, q := range questions {
		if !q.AnswerBy.Includes(role) {
			continue
		}
		entry := dto.RoleFormQuestion{TemplateQuestion: q}
		if text, ok := existing[q.ID]; ok {
			entry.Answer = &text
		}
		form.Questions = append(form.Questions, entry)
	}
	return form, nil
}

func (s *ReviewService) loadItem(ctx context.Context, id string) (*models.ReviewListItem, error) {
	if !isUUID(id) {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "review not found")
	}
	item, err := s.reviews.FindListItem(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "review not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load review")
	}
	return item, nil
}

func (s *ReviewService) ensureTemplate(ctx context.Context, id string) error {
	if !isUUID(id) {
		return appErrors.Clone(appErrors.ErrNotFound, "template not found")
	}
	if _, err := s.templates.FindByID(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "template not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load template")
	}
	return nil
}

func (s *ReviewService) ensureStaff(ctx context.Context, id, notFound string) error {
	if !isUUID(id) {
		return appErrors.Clone(appErrors.ErrNotFound, notFound)
	}
	if _, err := s.staff.FindByID(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, notFound)
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load staff member")
	}
	return nil
}
