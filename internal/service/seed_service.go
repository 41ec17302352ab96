package service

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/perf-review-api/internal/models"
)

type seedCounter interface {
	Counts(ctx context.Context) (*models.ReviewCounts, error)
}

type seedStaffWriter interface {
	Create(ctx context.Context, exec sqlx.ExtContext, staff *models.Staff) error
}

type seedTemplateWriter interface {
	InsertWithQuestions(ctx context.Context, exec sqlx.ExtContext, tpl *models.ReviewTemplate, questions []models.TemplateQuestion) error
}

// SeedService loads demo staff and a starter template into an empty database.
// Everything is written in one transaction so a failed run leaves nothing behind.
type SeedService struct {
	tx        transactor
	counts    seedCounter
	staff     seedStaffWriter
	templates seedTemplateWriter
	logger    *zap.Logger
}

// NewSeedService constructs a SeedService.
func NewSeedService(tx transactor, counts seedCounter, staff seedStaffWriter, templates seedTemplateWriter, logger *zap.Logger) *SeedService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SeedService{tx: tx, counts: counts, staff: staff, templates: templates, logger: logger}
}

// Run seeds the data. It reports false when staff or templates already exist.
func (s *SeedService) Run(ctx context.Context) (bool, error) {
	counts, err := s.counts.Counts(ctx)
	if err != nil {
		return false, fmt.Errorf("count existing data: %w", err)
	}
	if counts.Staff > 0 || counts.Templates > 0 {
		s.logger.Info("seed skipped, data already present", zap.Int("staff", counts.Staff), zap.Int("templates", counts.Templates))
		return false, nil
	}

	var questionCount int
	err = s.tx.WithinTx(ctx, func(exec sqlx.ExtContext) error {
		ceo := &models.Staff{Name: "Ava Johnson", Title: "CEO", Email: "ava@acme.com"}
		if err := s.staff.Create(ctx, exec, ceo); err != nil {
			return fmt.Errorf("seed %s: %w", ceo.Email, err)
		}
		hr := &models.Staff{Name: "Noah Carter", Title: "HR Director", Email: "noah@acme.com", ManagerID: &ceo.ID}
		eng := &models.Staff{Name: "Mia Lopez", Title: "Engineering Manager", Email: "mia@acme.com", ManagerID: &ceo.ID}
		for _, member := range []*models.Staff{hr, eng} {
			if err := s.staff.Create(ctx, exec, member); err != nil {
				return fmt.Errorf("seed %s: %w", member.Email, err)
			}
		}
		dev := &models.Staff{Name: "Liam Patel", Title: "Software Engineer", Email: "liam@acme.com", ManagerID: &eng.ID}
		if err := s.staff.Create(ctx, exec, dev); err != nil {
			return fmt.Errorf("seed %s: %w", dev.Email, err)
		}

		description := "Standard quarterly review template"
		tpl := &models.ReviewTemplate{Name: "Quarterly Performance Review", Description: &description}
		questions := []models.TemplateQuestion{
			{Prompt: "What were your key achievements this period?", AnswerBy: models.AnswerByReviewee, OrderIndex: 1},
			{Prompt: "How effectively did this employee collaborate with peers?", AnswerBy: models.AnswerByReviewer, OrderIndex: 2},
			{Prompt: "What growth goals should be prioritized next quarter?", AnswerBy: models.AnswerByBoth, OrderIndex: 3},
		}
		if err := s.templates.InsertWithQuestions(ctx, exec, tpl, questions); err != nil {
			return fmt.Errorf("seed template: %w", err)
		}
		questionCount = len(questions)
		return nil
	})
	if err != nil {
		return false, err
	}

	s.logger.Info("seed complete", zap.Int("staff", 4), zap.Int("questions", questionCount))
	return true, nil
}
