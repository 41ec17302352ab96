package service

import (
	"context"
	"strings"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/perf-review-api/internal/models"
)

// ExpectedAnswerSlots lists the (question, role) pairs the questions
// require, in question order. A "both" question yields two slots.
func ExpectedAnswerSlots(questions []models.TemplateQuestion) []models.AnswerSlot {
	slots := make([]models.AnswerSlot, 0, len(questions)*2)
	for _, q := range questions {
		for _, role := range q.AnswerBy.Roles() {
			slots = append(slots, models.AnswerSlot{QuestionID: q.ID, Role: role})
		}
	}
	return slots
}

// AnsweredSlots returns the slots whose stored text is non-blank after trimming.
func AnsweredSlots(answers []models.ReviewAnswer) map[models.AnswerSlot]struct{} {
	answered := make(map[models.AnswerSlot]struct{}, len(answers))
	for _, a := range answers {
		if strings.TrimSpace(a.AnswerText) == "" {
			continue
		}
		answered[models.AnswerSlot{QuestionID: a.QuestionID, Role: a.Role}] = struct{}{}
	}
	return answered
}

// MissingAnswerSlots returns the expected slots without a non-blank answer.
func MissingAnswerSlots(questions []models.TemplateQuestion, answers []models.ReviewAnswer) []models.AnswerSlot {
	answered := AnsweredSlots(answers)
	missing := make([]models.AnswerSlot, 0)
	for _, slot := range ExpectedAnswerSlots(questions) {
		if _, ok := answered[slot]; !ok {
			missing = append(missing, slot)
		}
	}
	return missing
}

// EvaluateCompletion is Completed when every expected slot is answered.
// A template without questions is always Completed.
func EvaluateCompletion(questions []models.TemplateQuestion, answers []models.ReviewAnswer) models.ReviewStatus {
	if len(MissingAnswerSlots(questions, answers)) == 0 {
		return models.ReviewStatusCompleted
	}
	return models.ReviewStatusInProgress
}

type evaluationReviewStore interface {
	UpdateStatus(ctx context.Context, exec sqlx.ExtContext, id string, status models.ReviewStatus) error
}

type evaluationQuestionStore interface {
	ListQuestions(ctx context.Context, exec sqlx.ExtContext, templateID string) ([]models.TemplateQuestion, error)
}

type evaluationAnswerStore interface {
	ListByReview(ctx context.Context, exec sqlx.ExtContext, reviewID string, role *models.AnswerRole) ([]models.ReviewAnswer, error)
}

// Evaluation is the outcome of one completion check.
type Evaluation struct {
	Previous models.ReviewStatus
	Status   models.ReviewStatus
	Missing  []models.AnswerSlot
}

// Changed reports whether the stored status was updated.
func (e Evaluation) Changed() bool {
	return e.Previous != e.Status
}

// CompletionEvaluator recomputes and persists a review's status. It is the
// only writer of reviews.status.
type CompletionEvaluator struct {
	reviews   evaluationReviewStore
	questions evaluationQuestionStore
	answers   evaluationAnswerStore
	metrics   *MetricsService
	logger    *zap.Logger
}

// NewCompletionEvaluator constructs a CompletionEvaluator.
func NewCompletionEvaluator(reviews evaluationReviewStore, questions evaluationQuestionStore, answers evaluationAnswerStore, metrics *MetricsService, logger *zap.Logger) *CompletionEvaluator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CompletionEvaluator{reviews: reviews, questions: questions, answers: answers, metrics: metrics, logger: logger}
}

// EvaluateReview recomputes the status of an already loaded review and
// writes it back when it differs from the stored value.
func (e *CompletionEvaluator) EvaluateReview(ctx context.Context, exec sqlx.ExtContext, review *models.Review) (*Evaluation, error) {
	questions, err := e.questions.ListQuestions(ctx, exec, review.TemplateID)
	if err != nil {
		return nil, err
	}
	answers, err := e.answers.ListByReview(ctx, exec, review.ID, nil)
	if err != nil {
		return nil, err
	}

	missing := MissingAnswerSlots(questions, answers)
	result := &Evaluation{Previous: review.Status, Status: models.ReviewStatusInProgress, Missing: missing}
	if len(missing) == 0 {
		result.Status = models.ReviewStatusCompleted
	}

	if result.Changed() {
		if err := e.reviews.UpdateStatus(ctx, exec, review.ID, result.Status); err != nil {
			return nil, err
		}
		review.Status = result.Status
		e.logger.Info("review status changed",
			zap.String("review_id", review.ID),
			zap.String("from", string(result.Previous)),
			zap.String("to", string(result.Status)),
		)
	}
	e.metrics.RecordEvaluation(result.Status)
	return result, nil
}
