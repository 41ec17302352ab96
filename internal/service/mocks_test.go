package service

import (
	"context"
	"database/sql"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/perf-review-api/internal/models"
	"github.com/noah-isme/perf-review-api/pkg/jobs"
)

type fakeTx struct {
	calls int
}

func (f *fakeTx) WithinTx(ctx context.Context, fn func(exec sqlx.ExtContext) error) error {
	f.calls++
	return fn(nil)
}

type fakeStaffRepo struct {
	items   map[string]*models.Staff
	chains  map[string][]string
	created []models.Staff
	ops     []string
}

func newFakeStaffRepo(members ...models.Staff) *fakeStaffRepo {
	repo := &fakeStaffRepo{items: map[string]*models.Staff{}, chains: map[string][]string{}}
	for i := range members {
		m := members[i]
		repo.items[m.ID] = &m
	}
	return repo
}

func (f *fakeStaffRepo) List(ctx context.Context, filter models.StaffFilter) ([]models.Staff, int, error) {
	all, _ := f.ListAll(ctx)
	return all, len(all), nil
}

func (f *fakeStaffRepo) ListAll(ctx context.Context) ([]models.Staff, error) {
	out := make([]models.Staff, 0, len(f.items))
	for _, m := range f.items {
		out = append(out, *m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeStaffRepo) FindByID(ctx context.Context, id string) (*models.Staff, error) {
	if m, ok := f.items[id]; ok {
		cp := *m
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeStaffRepo) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	for _, m := range f.items {
		if strings.EqualFold(m.Email, email) {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeStaffRepo) Create(ctx context.Context, exec sqlx.ExtContext, staff *models.Staff) error {
	if staff.ID == "" {
		staff.ID = uuid.NewString()
	}
	cp := *staff
	f.items[staff.ID] = &cp
	f.created = append(f.created, cp)
	return nil
}

func (f *fakeStaffRepo) UpdateManager(ctx context.Context, exec sqlx.ExtContext, id string, managerID *string) error {
	f.ops = append(f.ops, "update")
	m, ok := f.items[id]
	if !ok {
		return sql.ErrNoRows
	}
	m.ManagerID = managerID
	return nil
}

func (f *fakeStaffRepo) LockHierarchy(ctx context.Context, exec sqlx.ExtContext) error {
	f.ops = append(f.ops, "lock")
	return nil
}

func (f *fakeStaffRepo) ManagementChain(ctx context.Context, exec sqlx.ExtContext, id string) ([]string, error) {
	f.ops = append(f.ops, "chain")
	chain := []string{}
	seen := map[string]bool{}
	for current := id; current != "" && !seen[current]; {
		seen[current] = true
		chain = append(chain, current)
		m, ok := f.items[current]
		if !ok || m.ManagerID == nil {
			break
		}
		current = *m.ManagerID
	}
	return chain, nil
}

type fakeTemplateRepo struct {
	templates map[string]*models.ReviewTemplate
	questions map[string][]models.TemplateQuestion
	creates   int
}

func newFakeTemplateRepo() *fakeTemplateRepo {
	return &fakeTemplateRepo{templates: map[string]*models.ReviewTemplate{}, questions: map[string][]models.TemplateQuestion{}}
}

func (f *fakeTemplateRepo) add(tpl models.ReviewTemplate, questions ...models.TemplateQuestion) {
	f.templates[tpl.ID] = &tpl
	for i := range questions {
		questions[i].TemplateID = tpl.ID
	}
	f.questions[tpl.ID] = questions
}

func (f *fakeTemplateRepo) List(ctx context.Context, filter models.TemplateFilter) ([]models.TemplateSummary, int, error) {
	out := make([]models.TemplateSummary, 0, len(f.templates))
	for id, tpl := range f.templates {
		out = append(out, models.TemplateSummary{ReviewTemplate: *tpl, QuestionCount: len(f.questions[id])})
	}
	return out, len(out), nil
}

func (f *fakeTemplateRepo) FindByID(ctx context.Context, id string) (*models.ReviewTemplate, error) {
	if tpl, ok := f.templates[id]; ok {
		cp := *tpl
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeTemplateRepo) ExistsByName(ctx context.Context, name string) (bool, error) {
	for _, tpl := range f.templates {
		if strings.EqualFold(tpl.Name, name) {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeTemplateRepo) CreateWithQuestions(ctx context.Context, tpl *models.ReviewTemplate, questions []models.TemplateQuestion) error {
	f.creates++
	if tpl.ID == "" {
		tpl.ID = uuid.NewString()
	}
	for i := range questions {
		if questions[i].ID == "" {
			questions[i].ID = uuid.NewString()
		}
	}
	f.add(*tpl, questions...)
	return nil
}

func (f *fakeTemplateRepo) InsertWithQuestions(ctx context.Context, exec sqlx.ExtContext, tpl *models.ReviewTemplate, questions []models.TemplateQuestion) error {
	return f.CreateWithQuestions(ctx, tpl, questions)
}

func (f *fakeTemplateRepo) ListQuestions(ctx context.Context, exec sqlx.ExtContext, templateID string) ([]models.TemplateQuestion, error) {
	out := append([]models.TemplateQuestion(nil), f.questions[templateID]...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].OrderIndex < out[j].OrderIndex })
	return out, nil
}

type fakeReviewRepo struct {
	items         map[string]*models.Review
	names         map[string]string
	statusUpdates []models.ReviewStatus
	locked        []string
	lists         int
}

func newFakeReviewRepo(reviews ...models.Review) *fakeReviewRepo {
	repo := &fakeReviewRepo{items: map[string]*models.Review{}, names: map[string]string{}}
	for i := range reviews {
		r := reviews[i]
		repo.items[r.ID] = &r
	}
	return repo
}

func (f *fakeReviewRepo) Create(ctx context.Context, review *models.Review) error {
	if review.ID == "" {
		review.ID = uuid.NewString()
	}
	review.CreatedAt = time.Now().UTC()
	cp := *review
	f.items[review.ID] = &cp
	return nil
}

func (f *fakeReviewRepo) FindByID(ctx context.Context, id string) (*models.Review, error) {
	if r, ok := f.items[id]; ok {
		cp := *r
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeReviewRepo) FindForUpdate(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Review, error) {
	f.locked = append(f.locked, id)
	return f.FindByID(ctx, id)
}

func (f *fakeReviewRepo) FindListItem(ctx context.Context, id string) (*models.ReviewListItem, error) {
	r, err := f.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return &models.ReviewListItem{
		Review:       *r,
		TemplateName: f.names[r.TemplateID],
		ReviewerName: f.names[r.ReviewerID],
		RevieweeName: f.names[r.RevieweeID],
	}, nil
}

func (f *fakeReviewRepo) List(ctx context.Context, filter models.ReviewFilter) ([]models.ReviewListItem, int, error) {
	f.lists++
	out := []models.ReviewListItem{}
	for _, r := range f.items {
		if filter.Status != nil && r.Status != *filter.Status {
			continue
		}
		out = append(out, models.ReviewListItem{Review: *r})
	}
	return out, len(out), nil
}

func (f *fakeReviewRepo) UpdateStatus(ctx context.Context, exec sqlx.ExtContext, id string, status models.ReviewStatus) error {
	r, ok := f.items[id]
	if !ok {
		return sql.ErrNoRows
	}
	r.Status = status
	f.statusUpdates = append(f.statusUpdates, status)
	return nil
}

type fakeAnswerRepo struct {
	items   map[models.AnswerSlot]*models.ReviewAnswer
	upserts int
	// failAfter makes the upsert numbered failAfter+1 return err.
	failAfter int
	err       error
}

func newFakeAnswerRepo() *fakeAnswerRepo {
	return &fakeAnswerRepo{items: map[models.AnswerSlot]*models.ReviewAnswer{}}
}

func (f *fakeAnswerRepo) ListByReview(ctx context.Context, exec sqlx.ExtContext, reviewID string, role *models.AnswerRole) ([]models.ReviewAnswer, error) {
	out := []models.ReviewAnswer{}
	for _, a := range f.items {
		if a.ReviewID != reviewID {
			continue
		}
		if role != nil && a.Role != *role {
			continue
		}
		out = append(out, *a)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].QuestionID != out[j].QuestionID {
			return out[i].QuestionID < out[j].QuestionID
		}
		return out[i].Role < out[j].Role
	})
	return out, nil
}

// Upsert keys answers by slot only; tests use a single review per store.
func (f *fakeAnswerRepo) Upsert(ctx context.Context, exec sqlx.ExtContext, answer *models.ReviewAnswer) error {
	if f.err != nil && f.upserts >= f.failAfter {
		return f.err
	}
	f.upserts++
	slot := models.AnswerSlot{QuestionID: answer.QuestionID, Role: answer.Role}
	if existing, ok := f.items[slot]; ok {
		existing.AnswerText = answer.AnswerText
		existing.UpdatedAt = time.Now().UTC()
		answer.ID = existing.ID
		return nil
	}
	if answer.ID == "" {
		answer.ID = uuid.NewString()
	}
	cp := *answer
	f.items[slot] = &cp
	return nil
}

type fakeInvalidator struct {
	calls int
}

func (f *fakeInvalidator) Invalidate(ctx context.Context) {
	f.calls++
}

type fakeDispatcher struct {
	jobs []jobs.Job
	err  error
}

func (f *fakeDispatcher) Enqueue(job jobs.Job) error {
	if f.err != nil {
		return f.err
	}
	f.jobs = append(f.jobs, job)
	return nil
}
