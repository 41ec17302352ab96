package service

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/perf-review-api/internal/models"
	appErrors "github.com/noah-isme/perf-review-api/pkg/errors"
)

const (
	reviewID   = "aaaaaaaa-aaaa-4aaa-8aaa-aaaaaaaaaaaa"
	templateID = "bbbbbbbb-bbbb-4bbb-8bbb-bbbbbbbbbbbb"
	reviewerID = "cccccccc-cccc-4ccc-8ccc-cccccccccccc"
	revieweeID = "dddddddd-dddd-4ddd-8ddd-dddddddddddd"
)

func assertAppErrorCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr), "expected app error, got %v", err)
	assert.Equal(t, code, appErr.Code)
}

type fakeNotifier struct {
	completed []string
	err       error
}

func (f *fakeNotifier) NotifyCompleted(ctx context.Context, reviewID string) error {
	f.completed = append(f.completed, reviewID)
	return f.err
}

type submissionFixture struct {
	service   *AnswerService
	tx        *fakeTx
	reviews   *fakeReviewRepo
	answers   *fakeAnswerRepo
	notifier  *fakeNotifier
	dashboard *fakeInvalidator
	metrics   *MetricsService
}

func newSubmissionFixture(questions ...models.TemplateQuestion) *submissionFixture {
	templates := newFakeTemplateRepo()
	templates.add(models.ReviewTemplate{ID: templateID, Name: "Quarterly"}, questions...)
	reviews := newFakeReviewRepo(models.Review{
		ID:         reviewID,
		Title:      "Q3 review",
		TemplateID: templateID,
		ReviewerID: reviewerID,
		RevieweeID: revieweeID,
		Status:     models.ReviewStatusInProgress,
	})
	answers := newFakeAnswerRepo()
	metrics := NewMetricsService()
	fx := &submissionFixture{
		tx:        &fakeTx{},
		reviews:   reviews,
		answers:   answers,
		notifier:  &fakeNotifier{},
		dashboard: &fakeInvalidator{},
		metrics:   metrics,
	}
	fx.service = NewAnswerService(AnswerServiceParams{
		Tx:        fx.tx,
		Reviews:   reviews,
		Questions: templates,
		Answers:   answers,
		Evaluator: NewCompletionEvaluator(reviews, templates, answers, metrics, zap.NewNop()),
		Notifier:  fx.notifier,
		Dashboard: fx.dashboard,
		Metrics:   metrics,
		Logger:    zap.NewNop(),
	})
	return fx
}

func (fx *submissionFixture) submit(t *testing.T, role models.AnswerRole, answers map[string]string) models.ReviewStatus {
	t.Helper()
	resp, err := fx.service.Submit(context.Background(), reviewID, string(role), SubmitAnswersRequest{Answers: answers}, nil)
	require.NoError(t, err)
	return resp.Status
}

func TestSubmitScenarioReachesCompletion(t *testing.T) {
	fx := newSubmissionFixture(scenarioQuestions()...)

	status := fx.submit(t, models.AnswerRoleReviewee, map[string]string{q1ID: "Shipped X"})
	assert.Equal(t, models.ReviewStatusInProgress, status)

	status = fx.submit(t, models.AnswerRoleReviewer, map[string]string{q2ID: "Good", q3ID: "Solid"})
	assert.Equal(t, models.ReviewStatusInProgress, status)
	assert.Empty(t, fx.notifier.completed)

	resp, err := fx.service.Submit(context.Background(), reviewID, "reviewee", SubmitAnswersRequest{Answers: map[string]string{q3ID: "Agreed"}}, nil)
	require.NoError(t, err)
	assert.Equal(t, models.ReviewStatusCompleted, resp.Status)
	assert.True(t, resp.StatusChanged)
	assert.Equal(t, 1, resp.Saved)

	assert.Len(t, fx.answers.items, 4)
	assert.Equal(t, models.ReviewStatusCompleted, fx.reviews.items[reviewID].Status)
	assert.Equal(t, []string{reviewID}, fx.notifier.completed)
	assert.Equal(t, 3, fx.dashboard.calls)
	assert.Equal(t, 3, fx.tx.calls)
	assert.Equal(t, 2.0, testutil.ToFloat64(fx.metrics.answersSaved.WithLabelValues("reviewee")))
	assert.Equal(t, 2.0, testutil.ToFloat64(fx.metrics.answersSaved.WithLabelValues("reviewer")))
}

func TestSubmitResubmissionKeepsSingleAnswer(t *testing.T) {
	fx := newSubmissionFixture(models.TemplateQuestion{ID: q1ID, AnswerBy: models.AnswerByReviewer, OrderIndex: 1})

	fx.submit(t, models.AnswerRoleReviewer, map[string]string{q1ID: "Great work"})
	status := fx.submit(t, models.AnswerRoleReviewer, map[string]string{q1ID: "  Great work  "})

	assert.Equal(t, models.ReviewStatusCompleted, status)
	require.Len(t, fx.answers.items, 1)
	stored := fx.answers.items[models.AnswerSlot{QuestionID: q1ID, Role: models.AnswerRoleReviewer}]
	assert.Equal(t, "Great work", stored.AnswerText)
	assert.Len(t, fx.notifier.completed, 1)
}

func TestSubmitBlankAnswersAreNoOps(t *testing.T) {
	fx := newSubmissionFixture(models.TemplateQuestion{ID: q1ID, AnswerBy: models.AnswerByReviewer, OrderIndex: 1})
	fx.submit(t, models.AnswerRoleReviewer, map[string]string{q1ID: "Kept"})

	resp, err := fx.service.Submit(context.Background(), reviewID, "reviewer", SubmitAnswersRequest{Answers: map[string]string{q1ID: "   "}}, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, resp.Saved)
	assert.Equal(t, 1, resp.Skipped)
	assert.Equal(t, models.ReviewStatusCompleted, resp.Status)
	assert.False(t, resp.StatusChanged)

	stored := fx.answers.items[models.AnswerSlot{QuestionID: q1ID, Role: models.AnswerRoleReviewer}]
	assert.Equal(t, "Kept", stored.AnswerText)
	assert.Equal(t, 1, fx.answers.upserts)
}

func TestSubmitIgnoresQuestionsOutsideRole(t *testing.T) {
	fx := newSubmissionFixture(scenarioQuestions()...)

	resp, err := fx.service.Submit(context.Background(), reviewID, "reviewer", SubmitAnswersRequest{Answers: map[string]string{
		q1ID:                                   "reviewee only",
		"99999999-9999-4999-8999-999999999999": "unknown",
		q2ID:                                   "Good",
	}}, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, resp.Saved)
	assert.Len(t, fx.answers.items, 1)
	_, ok := fx.answers.items[models.AnswerSlot{QuestionID: q1ID, Role: models.AnswerRoleReviewer}]
	assert.False(t, ok)
}

func TestSubmitZeroQuestionTemplateCompletes(t *testing.T) {
	fx := newSubmissionFixture()
	status := fx.submit(t, models.AnswerRoleReviewer, map[string]string{})
	assert.Equal(t, models.ReviewStatusCompleted, status)
}

func TestSubmitRejectsInvalidRole(t *testing.T) {
	fx := newSubmissionFixture(scenarioQuestions()...)
	_, err := fx.service.Submit(context.Background(), reviewID, "manager", SubmitAnswersRequest{Answers: map[string]string{q1ID: "x"}}, nil)
	assertAppErrorCode(t, err, "VALIDATION_ERROR")
	assert.Zero(t, fx.tx.calls)
}

func TestSubmitUnknownReview(t *testing.T) {
	fx := newSubmissionFixture(scenarioQuestions()...)
	_, err := fx.service.Submit(context.Background(), "eeeeeeee-eeee-4eee-8eee-eeeeeeeeeeee", "reviewer", SubmitAnswersRequest{Answers: map[string]string{}}, nil)
	assertAppErrorCode(t, err, "NOT_FOUND")

	_, err = fx.service.Submit(context.Background(), "not-a-uuid", "reviewer", SubmitAnswersRequest{Answers: map[string]string{}}, nil)
	assertAppErrorCode(t, err, "NOT_FOUND")
}

func TestSubmitEnforcesParticipant(t *testing.T) {
	fx := newSubmissionFixture(scenarioQuestions()...)

	reviewee := &Actor{StaffID: revieweeID, Role: models.RoleStaff}
	_, err := fx.service.Submit(context.Background(), reviewID, "reviewer", SubmitAnswersRequest{Answers: map[string]string{q2ID: "Self praise"}}, reviewee)
	assertAppErrorCode(t, err, "FORBIDDEN")
	assert.Empty(t, fx.answers.items)

	resp, err := fx.service.Submit(context.Background(), reviewID, "reviewee", SubmitAnswersRequest{Answers: map[string]string{q1ID: "Shipped X"}}, reviewee)
	require.NoError(t, err)
	assert.Equal(t, 1, resp.Saved)

	admin := &Actor{StaffID: "ffffffff-ffff-4fff-8fff-ffffffffffff", Role: models.RoleAdmin}
	_, err = fx.service.Submit(context.Background(), reviewID, "reviewer", SubmitAnswersRequest{Answers: map[string]string{q2ID: "Good"}}, admin)
	require.NoError(t, err)
}

func TestSubmitNotifierFailureDoesNotFailSubmission(t *testing.T) {
	fx := newSubmissionFixture(models.TemplateQuestion{ID: q1ID, AnswerBy: models.AnswerByReviewee, OrderIndex: 1})
	fx.notifier.err = errors.New("queue full")

	status := fx.submit(t, models.AnswerRoleReviewee, map[string]string{q1ID: "Done"})
	assert.Equal(t, models.ReviewStatusCompleted, status)
	assert.Len(t, fx.notifier.completed, 1)
}

func TestSubmitWithoutAnswersStillEvaluates(t *testing.T) {
	fx := newSubmissionFixture()

	resp, err := fx.service.Submit(context.Background(), reviewID, "reviewer", SubmitAnswersRequest{}, nil)
	require.NoError(t, err)
	assert.Zero(t, resp.Saved)
	assert.Equal(t, models.ReviewStatusCompleted, resp.Status)
	assert.True(t, resp.StatusChanged)
	assert.Equal(t, 1, fx.tx.calls)
	assert.Equal(t, []models.ReviewStatus{models.ReviewStatusCompleted}, fx.reviews.statusUpdates)
}

func TestSubmitUpsertFailureAbortsBatch(t *testing.T) {
	fx := newSubmissionFixture(scenarioQuestions()...)
	fx.answers.failAfter = 1
	fx.answers.err = errors.New("connection reset")

	_, err := fx.service.Submit(context.Background(), reviewID, "reviewer", SubmitAnswersRequest{Answers: map[string]string{q2ID: "Good", q3ID: "Solid"}}, nil)
	assertAppErrorCode(t, err, "INTERNAL_ERROR")

	assert.Equal(t, 1, fx.answers.upserts)
	assert.Empty(t, fx.reviews.statusUpdates)
	assert.Empty(t, fx.notifier.completed)
	assert.Zero(t, fx.dashboard.calls)
	assert.Zero(t, testutil.ToFloat64(fx.metrics.answersSaved.WithLabelValues("reviewer")))
}
