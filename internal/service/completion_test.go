package service

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/perf-review-api/internal/models"
)

const (
	q1ID = "11111111-1111-4111-8111-111111111111"
	q2ID = "22222222-2222-4222-8222-222222222222"
	q3ID = "33333333-3333-4333-8333-333333333333"
)

func scenarioQuestions() []models.TemplateQuestion {
	return []models.TemplateQuestion{
		{ID: q1ID, Prompt: "Key achievements?", AnswerBy: models.AnswerByReviewee, OrderIndex: 1},
		{ID: q2ID, Prompt: "Collaboration?", AnswerBy: models.AnswerByReviewer, OrderIndex: 2},
		{ID: q3ID, Prompt: "Growth goals?", AnswerBy: models.AnswerByBoth, OrderIndex: 3},
	}
}

func answer(questionID string, role models.AnswerRole, text string) models.ReviewAnswer {
	return models.ReviewAnswer{QuestionID: questionID, Role: role, AnswerText: text}
}

func TestExpectedAnswerSlotsExpandsBoth(t *testing.T) {
	slots := ExpectedAnswerSlots(scenarioQuestions())
	assert.Equal(t, []models.AnswerSlot{
		{QuestionID: q1ID, Role: models.AnswerRoleReviewee},
		{QuestionID: q2ID, Role: models.AnswerRoleReviewer},
		{QuestionID: q3ID, Role: models.AnswerRoleReviewer},
		{QuestionID: q3ID, Role: models.AnswerRoleReviewee},
	}, slots)
}

func TestEvaluateCompletion(t *testing.T) {
	questions := scenarioQuestions()

	assert.Equal(t, models.ReviewStatusCompleted, EvaluateCompletion(nil, nil))
	assert.Equal(t, models.ReviewStatusInProgress, EvaluateCompletion(questions, nil))

	partial := []models.ReviewAnswer{
		answer(q1ID, models.AnswerRoleReviewee, "Shipped X"),
		answer(q2ID, models.AnswerRoleReviewer, "Good"),
		answer(q3ID, models.AnswerRoleReviewer, "Solid"),
	}
	assert.Equal(t, models.ReviewStatusInProgress, EvaluateCompletion(questions, partial))
	assert.Equal(t, []models.AnswerSlot{{QuestionID: q3ID, Role: models.AnswerRoleReviewee}}, MissingAnswerSlots(questions, partial))

	full := append(partial, answer(q3ID, models.AnswerRoleReviewee, "Agreed"))
	assert.Equal(t, models.ReviewStatusCompleted, EvaluateCompletion(questions, full))
}

func TestEvaluateCompletionIgnoresWhitespaceAnswers(t *testing.T) {
	questions := []models.TemplateQuestion{{ID: q1ID, AnswerBy: models.AnswerByReviewer, OrderIndex: 1}}
	answers := []models.ReviewAnswer{answer(q1ID, models.AnswerRoleReviewer, "   \n")}
	assert.Equal(t, models.ReviewStatusInProgress, EvaluateCompletion(questions, answers))
}

func TestEvaluateCompletionIgnoresWrongRole(t *testing.T) {
	questions := []models.TemplateQuestion{{ID: q1ID, AnswerBy: models.AnswerByReviewer, OrderIndex: 1}}
	answers := []models.ReviewAnswer{answer(q1ID, models.AnswerRoleReviewee, "not mine")}
	assert.Equal(t, models.ReviewStatusInProgress, EvaluateCompletion(questions, answers))
}

func TestCompletionEvaluatorPersistsChangesOnly(t *testing.T) {
	templates := newFakeTemplateRepo()
	templates.add(models.ReviewTemplate{ID: templateID, Name: "Quarterly"})
	reviews := newFakeReviewRepo(models.Review{ID: reviewID, TemplateID: templateID, Status: models.ReviewStatusInProgress})
	answers := newFakeAnswerRepo()
	metrics := NewMetricsService()

	evaluator := NewCompletionEvaluator(reviews, templates, answers, metrics, nil)
	review, err := reviews.FindForUpdate(context.Background(), nil, reviewID)
	require.NoError(t, err)

	result, err := evaluator.EvaluateReview(context.Background(), nil, review)
	require.NoError(t, err)
	assert.Equal(t, models.ReviewStatusCompleted, result.Status)
	assert.True(t, result.Changed())
	assert.Equal(t, models.ReviewStatusCompleted, review.Status)
	assert.Equal(t, []models.ReviewStatus{models.ReviewStatusCompleted}, reviews.statusUpdates)

	result, err = evaluator.EvaluateReview(context.Background(), nil, review)
	require.NoError(t, err)
	assert.False(t, result.Changed())
	assert.Len(t, reviews.statusUpdates, 1)

	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.evaluations.WithLabelValues(string(models.ReviewStatusCompleted))))
}

func TestCompletionEvaluatorReopensWhenSlotsAreMissing(t *testing.T) {
	templates := newFakeTemplateRepo()
	templates.add(models.ReviewTemplate{ID: templateID, Name: "Quarterly"}, scenarioQuestions()...)
	reviews := newFakeReviewRepo(models.Review{ID: reviewID, TemplateID: templateID, Status: models.ReviewStatusCompleted})
	evaluator := NewCompletionEvaluator(reviews, templates, newFakeAnswerRepo(), nil, nil)

	review, err := reviews.FindForUpdate(context.Background(), nil, reviewID)
	require.NoError(t, err)
	result, err := evaluator.EvaluateReview(context.Background(), nil, review)
	require.NoError(t, err)
	assert.Equal(t, models.ReviewStatusInProgress, result.Status)
	assert.Len(t, result.Missing, 4)
	assert.Equal(t, []models.ReviewStatus{models.ReviewStatusInProgress}, reviews.statusUpdates)
}
