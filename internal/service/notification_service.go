package service

import (
	"bytes"
	"context"
	"html/template"

	"go.uber.org/zap"

	"github.com/noah-isme/perf-review-api/internal/models"
	"github.com/noah-isme/perf-review-api/pkg/jobs"
	"github.com/noah-isme/perf-review-api/pkg/mailer"
)

// JobTypeCompletionEmail tags completion notifications on the queue.
const JobTypeCompletionEmail = "review_completed_email"

type notificationReviewReader interface {
	FindListItem(ctx context.Context, id string) (*models.ReviewListItem, error)
}

type notificationStaffReader interface {
	FindByID(ctx context.Context, id string) (*models.Staff, error)
}

type mailSender interface {
	Send(msg mailer.Message) error
}

var completionEmail = template.Must(template.New("completed").Parse(`<!DOCTYPE html>
<html><body style="font-family:Arial,sans-serif;color:#111827;">
<p style="margin:0 0 18px 0;line-height:1.7;">Hello {{.Reviewer}} and {{.Reviewee}},</p>
<p style="margin:0 0 18px 0;line-height:1.7;">The review <strong>{{.Title}}</strong> has been completed. Every required answer is in.</p>
<table role="presentation" cellpadding="0" cellspacing="0" style="border:1px solid #e5e7eb;border-radius:12px;background-color:#f9fafb;">
<tr><td style="padding:12px 16px;color:#6b7280;">Template</td><td style="padding:12px 16px;font-weight:600;">{{.Template}}</td></tr>
<tr><td style="padding:12px 16px;color:#6b7280;">Reviewer</td><td style="padding:12px 16px;font-weight:600;">{{.Reviewer}}</td></tr>
<tr><td style="padding:12px 16px;color:#6b7280;">Reviewee</td><td style="padding:12px 16px;font-weight:600;">{{.Reviewee}}</td></tr>
</table>
</body></html>`))

type completionEmailData struct {
	Title    string
	Template string
	Reviewer string
	Reviewee string
}

// NotificationService emails both parties when a review completes.
// Delivery happens on a background queue so submissions never wait on SMTP.
type NotificationService struct {
	reviews notificationReviewReader
	staff   notificationStaffReader
	sender  mailSender
	queue   jobDispatcher
	metrics *MetricsService
	logger  *zap.Logger
}

// NewNotificationService constructs the service. A nil queue sends inline.
func NewNotificationService(reviews notificationReviewReader, staff notificationStaffReader, sender mailSender, queue jobDispatcher, metrics *MetricsService, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{reviews: reviews, staff: staff, sender: sender, queue: queue, metrics: metrics, logger: logger}
}

// SetQueue attaches the dispatcher once the queue exists.
func (s *NotificationService) SetQueue(queue jobDispatcher) {
	s.queue = queue
}

// NotifyCompleted schedules the completion email for reviewID.
func (s *NotificationService) NotifyCompleted(ctx context.Context, reviewID string) error {
	if s.queue == nil {
		return s.Deliver(ctx, reviewID)
	}
	return s.queue.Enqueue(jobs.Job{ID: reviewID, Type: JobTypeCompletionEmail})
}

// Handle is the queue handler for completion emails.
func (s *NotificationService) Handle(ctx context.Context, job jobs.Job) error {
	return s.Deliver(ctx, job.ID)
}

// Deliver renders and sends the completion email.
func (s *NotificationService) Deliver(ctx context.Context, reviewID string) (err error) {
	defer func() { s.metrics.RecordNotification(err) }()

	review, err := s.reviews.FindListItem(ctx, reviewID)
	if err != nil {
		return err
	}
	reviewer, err := s.staff.FindByID(ctx, review.ReviewerID)
	if err != nil {
		return err
	}
	reviewee, err := s.staff.FindByID(ctx, review.RevieweeID)
	if err != nil {
		return err
	}

	var body bytes.Buffer
	if err = completionEmail.Execute(&body, completionEmailData{
		Title:    review.Title,
		Template: review.TemplateName,
		Reviewer: reviewer.Name,
		Reviewee: reviewee.Name,
	}); err != nil {
		return err
	}

	err = s.sender.Send(mailer.Message{
		To:      []string{reviewer.Email, reviewee.Email},
		Subject: "Review completed: " + review.Title,
		HTML:    body.String(),
	})
	if err != nil {
		s.logger.Warn("completion email failed", zap.String("review_id", reviewID), zap.Error(err))
		return err
	}
	s.logger.Info("completion email sent", zap.String("review_id", reviewID))
	return nil
}
