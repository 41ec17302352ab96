package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/perf-review-api/internal/dto"
	"github.com/noah-isme/perf-review-api/internal/models"
	appErrors "github.com/noah-isme/perf-review-api/pkg/errors"
)

type submissionReviewStore interface {
	FindForUpdate(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Review, error)
}

type submissionQuestionStore interface {
	ListQuestions(ctx context.Context, exec sqlx.ExtContext, templateID string) ([]models.TemplateQuestion, error)
}

type submissionAnswerStore interface {
	Upsert(ctx context.Context, exec sqlx.ExtContext, answer *models.ReviewAnswer) error
}

type completionEvaluator interface {
	EvaluateReview(ctx context.Context, exec sqlx.ExtContext, review *models.Review) (*Evaluation, error)
}

type completionNotifier interface {
	NotifyCompleted(ctx context.Context, reviewID string) error
}

// SubmitAnswersRequest maps question ids to answer text for one role. A
// missing map saves nothing but still re-evaluates the review.
type SubmitAnswersRequest struct {
	Answers map[string]string `json:"answers"`
}

// AnswerService saves one role's answers and re-evaluates completion in
// the same transaction.
type AnswerService struct {
	tx        transactor
	reviews   submissionReviewStore
	questions submissionQuestionStore
	answers   submissionAnswerStore
	evaluator completionEvaluator
	notifier  completionNotifier
	dashboard dashboardInvalidator
	metrics   *MetricsService
	logger    *zap.Logger
}

// AnswerServiceParams groups constructor dependencies.
type AnswerServiceParams struct {
	Tx        transactor
	Reviews   submissionReviewStore
	Questions submissionQuestionStore
	Answers   submissionAnswerStore
	Evaluator completionEvaluator
	Notifier  completionNotifier
	Dashboard dashboardInvalidator
	Metrics   *MetricsService
	Logger    *zap.Logger
}

// NewAnswerService constructs an AnswerService.
func NewAnswerService(params AnswerServiceParams) *AnswerService {
	if params.Logger == nil {
		params.Logger = zap.NewNop()
	}
	return &AnswerService{
		tx:        params.Tx,
		reviews:   params.Reviews,
		questions: params.Questions,
		answers:   params.Answers,
		evaluator: params.Evaluator,
		notifier:  params.Notifier,
		dashboard: params.Dashboard,
		metrics:   params.Metrics,
		logger:    params.Logger,
	}
}

// Submit upserts the non-blank answers for questions the role is expected
// to answer, then recomputes the review status. Blank text never creates
// or clears an answer. Question ids the role does not answer are ignored.
func (s *AnswerService) Submit(ctx context.Context, reviewID, rawRole string, req SubmitAnswersRequest, actor *Actor) (*dto.SubmitAnswersResponse, error) {
	role, err := models.ParseAnswerRole(rawRole)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid role")
	}
	if !isUUID(reviewID) {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "review not found")
	}

	result := &dto.SubmitAnswersResponse{ReviewID: reviewID, Role: role}
	var evaluation *Evaluation
	err = s.tx.WithinTx(ctx, func(exec sqlx.ExtContext) error {
		review, err := s.reviews.FindForUpdate(ctx, exec, reviewID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return appErrors.Clone(appErrors.ErrNotFound, "review not found")
			}
			return err
		}
		if !canAnswer(actor, review, role) {
			return appErrors.Clone(appErrors.ErrForbidden, "only the review's "+string(role)+" may submit these answers")
		}

		questions, err := s.questions.ListQuestions(ctx, exec, review.TemplateID)
		if err != nil {
			return err
		}
		for _, q := range questions {
			if !q.AnswerBy.Includes(role) {
				continue
			}
			raw, ok := req.Answers[q.ID]
			if !ok {
				continue
			}
			text := strings.TrimSpace(raw)
			if text == "" {
				result.Skipped++
				continue
			}
			if err := s.answers.Upsert(ctx, exec, &models.ReviewAnswer{
				ReviewID:   review.ID,
				QuestionID: q.ID,
				Role:       role,
				AnswerText: text,
			}); err != nil {
				return err
			}
			result.Saved++
		}

		evaluation, err = s.evaluator.EvaluateReview(ctx, exec, review)
		return err
	})
	if err != nil {
		var appErr *appErrors.Error
		if errors.As(err, &appErr) {
			return nil, appErr
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save answers")
	}

	result.Status = evaluation.Status
	result.StatusChanged = evaluation.Changed()
	s.metrics.RecordSubmission(role, result.Saved)
	if s.dashboard != nil {
		s.dashboard.Invalidate(ctx)
	}
	if result.StatusChanged && result.Status == models.ReviewStatusCompleted && s.notifier != nil {
		if err := s.notifier.NotifyCompleted(ctx, reviewID); err != nil {
			s.logger.Warn("completion notification not queued", zap.String("review_id", reviewID), zap.Error(err))
		}
	}
	s.logger.Info("answers submitted",
		zap.String("review_id", reviewID),
		zap.String("role", string(role)),
		zap.Int("saved", result.Saved),
		zap.String("status", string(result.Status)),
	)
	return result, nil
}

// canAnswer lets admins answer for either side; staff may only answer as
// the party they are on the review.
func canAnswer(actor *Actor, review *models.Review, role models.AnswerRole) bool {
	if actor.IsAdmin() {
		return true
	}
	switch role {
	case models.AnswerRoleReviewer:
		return actor.StaffID == review.ReviewerID
	case models.AnswerRoleReviewee:
		return actor.StaffID == review.RevieweeID
	}
	return false
}
