package service

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/perf-review-api/internal/models"
	"github.com/noah-isme/perf-review-api/pkg/export"
	"github.com/noah-isme/perf-review-api/pkg/storage"
)

type exportReviewReader interface {
	FindListItem(ctx context.Context, id string) (*models.ReviewListItem, error)
}

type fileStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	Delete(filename string) error
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

type datasetRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	APIPrefix string
	ResultTTL time.Duration
}

// ExportResult captures successful generation metadata.
type ExportResult struct {
	RelativePath string
	Token        string
	URL          string
	ExpiresAt    time.Time
}

// ExportService renders a review into CSV or PDF and stores the file
// behind a signed download token.
type ExportService struct {
	reviews ExportReviewSource
	storage fileStorage
	csv     datasetRenderer
	pdf     datasetRenderer
	signer  *storage.SignedURLSigner
	logger  *zap.Logger
	cfg     ExportConfig
	now     func() time.Time
}

// ExportReviewSource loads everything an export needs.
type ExportReviewSource struct {
	Reviews   exportReviewReader
	Questions reviewTemplateReader
	Answers   reviewAnswerReader
}

// NewExportService constructs an ExportService. Nil renderers fall back to the defaults.
func NewExportService(source ExportReviewSource, store fileStorage, signer *storage.SignedURLSigner, cfg ExportConfig, logger *zap.Logger, csv, pdf datasetRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{
		reviews: source,
		storage: store,
		csv:     csv,
		pdf:     pdf,
		signer:  signer,
		logger:  logger,
		cfg:     cfg,
		now:     time.Now,
	}
}

// Generate renders the job's review and stores the file.
func (s *ExportService) Generate(ctx context.Context, job *models.ExportJob) (*ExportResult, error) {
	if job == nil {
		return nil, fmt.Errorf("job nil")
	}
	dataset, err := s.BuildDataset(ctx, job.ReviewID)
	if err != nil {
		return nil, err
	}

	var payload []byte
	switch job.Format {
	case models.ExportFormatCSV:
		payload, err = s.csv.Render(dataset)
	case models.ExportFormatPDF:
		payload, err = s.pdf.Render(dataset)
	default:
		err = fmt.Errorf("unsupported format %s", job.Format)
	}
	if err != nil {
		return nil, err
	}

	relPath, err := s.storage.Save(s.buildFilename(job), payload)
	if err != nil {
		return nil, err
	}
	token, expiresAt, err := s.signer.Generate(job.ID, relPath)
	if err != nil {
		return nil, err
	}
	prefix := strings.TrimRight(s.cfg.APIPrefix, "/")
	if prefix == "" {
		prefix = "/api/v1"
	}
	return &ExportResult{
		RelativePath: relPath,
		Token:        token,
		URL:          fmt.Sprintf("%s/exports/download/%s", prefix, token),
		ExpiresAt:    expiresAt,
	}, nil
}

// BuildDataset lays the review out as one row per question.
func (s *ExportService) BuildDataset(ctx context.Context, reviewID string) (export.Dataset, error) {
	item, err := s.reviews.Reviews.FindListItem(ctx, reviewID)
	if err != nil {
		return export.Dataset{}, fmt.Errorf("load review %s: %w", reviewID, err)
	}
	questions, err := s.reviews.Questions.ListQuestions(ctx, nil, item.TemplateID)
	if err != nil {
		return export.Dataset{}, err
	}
	answers, err := s.reviews.Answers.ListByReview(ctx, nil, item.ID, nil)
	if err != nil {
		return export.Dataset{}, err
	}

	indexed := make(map[models.AnswerSlot]string, len(answers))
	for _, a := range answers {
		indexed[models.AnswerSlot{QuestionID: a.QuestionID, Role: a.Role}] = a.AnswerText
	}

	headers := []string{"Order", "Prompt", "Answered By", "Reviewer Answer", "Reviewee Answer"}
	rows := make([]map[string]string, 0, len(questions))
	for _, q := range questions {
		rows = append(rows, map[string]string{
			"Order":           fmt.Sprintf("%d", q.OrderIndex),
			"Prompt":          q.Prompt,
			"Answered By":     string(q.AnswerBy),
			"Reviewer Answer": indexed[models.AnswerSlot{QuestionID: q.ID, Role: models.AnswerRoleReviewer}],
			"Reviewee Answer": indexed[models.AnswerSlot{QuestionID: q.ID, Role: models.AnswerRoleReviewee}],
		})
	}

	return export.Dataset{
		Title: item.Title,
		Meta: []export.Field{
			{Label: "Template", Value: item.TemplateName},
			{Label: "Reviewer", Value: item.ReviewerName},
			{Label: "Reviewee", Value: item.RevieweeName},
			{Label: "Status", Value: string(item.Status)},
			{Label: "Created", Value: item.CreatedAt.UTC().Format(time.RFC3339)},
		},
		Headers: headers,
		Rows:    rows,
	}, nil
}

// ParseToken validates download token metadata.
func (s *ExportService) ParseToken(token string, allowExpired bool) (jobID, relPath string, expiresAt time.Time, err error) {
	return s.signer.Parse(token, allowExpired)
}

// Open returns a handle to the stored file.
func (s *ExportService) Open(relPath string) (*os.File, error) {
	return s.storage.Open(relPath)
}

// Cleanup removes files older than ttl, or the configured TTL when ttl <= 0.
func (s *ExportService) Cleanup(ttl time.Duration) ([]string, error) {
	if ttl <= 0 {
		ttl = s.cfg.ResultTTL
	}
	return s.storage.CleanupOlderThan(ttl)
}

func (s *ExportService) buildFilename(job *models.ExportJob) string {
	return fmt.Sprintf("reviews/%s/%s_%s.%s", job.ReviewID, job.ID, s.now().UTC().Format("20060102_150405"), job.Format)
}
