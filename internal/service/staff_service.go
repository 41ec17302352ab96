package service

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/perf-review-api/internal/dto"
	"github.com/noah-isme/perf-review-api/internal/models"
	"github.com/noah-isme/perf-review-api/pkg/database"
	appErrors "github.com/noah-isme/perf-review-api/pkg/errors"
)

type staffRepository interface {
	List(ctx context.Context, filter models.StaffFilter) ([]models.Staff, int, error)
	ListAll(ctx context.Context) ([]models.Staff, error)
	FindByID(ctx context.Context, id string) (*models.Staff, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	Create(ctx context.Context, exec sqlx.ExtContext, staff *models.Staff) error
	UpdateManager(ctx context.Context, exec sqlx.ExtContext, id string, managerID *string) error
	ManagementChain(ctx context.Context, exec sqlx.ExtContext, id string) ([]string, error)
	LockHierarchy(ctx context.Context, exec sqlx.ExtContext) error
}

// CreateStaffRequest represents payload for creating staff members.
type CreateStaffRequest struct {
	Name      string  `json:"name" validate:"required,max=120"`
	Title     string  `json:"title" validate:"required,max=120"`
	Email     string  `json:"email" validate:"required,email,max=200"`
	ManagerID *string `json:"manager_id"`
}

// UpdateManagerRequest reassigns a manager; a null manager_id makes the member a root.
type UpdateManagerRequest struct {
	ManagerID *string `json:"manager_id"`
}

// StaffService orchestrates staff records and the derived org chart.
type StaffService struct {
	repo      staffRepository
	tx        transactor
	dashboard dashboardInvalidator
	validator *validator.Validate
	logger    *zap.Logger
}

// NewStaffService constructs a StaffService.
func NewStaffService(repo staffRepository, tx transactor, dashboard dashboardInvalidator, validate *validator.Validate, logger *zap.Logger) *StaffService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StaffService{repo: repo, tx: tx, dashboard: dashboard, validator: validate, logger: logger}
}

// List returns staff plus pagination data.
func (s *StaffService) List(ctx context.Context, filter models.StaffFilter) ([]models.Staff, *models.Pagination, error) {
	staff, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list staff")
	}
	return staff, newPagination(filter.Page, filter.PageSize, total), nil
}

// Get returns a staff member by id.
func (s *StaffService) Get(ctx context.Context, id string) (*models.Staff, error) {
	return s.find(ctx, id, "staff member not found")
}

// Create registers a new staff member. Emails are stored lower-cased.
func (s *StaffService) Create(ctx context.Context, req CreateStaffRequest) (*models.Staff, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Title = strings.TrimSpace(req.Title)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "name, title, and email are required")
	}

	exists, err := s.repo.ExistsByEmail(ctx, req.Email)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check staff email")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "a staff member with that email already exists")
	}

	staff := &models.Staff{Name: req.Name, Title: req.Title, Email: req.Email}
	if managerID := trimOptional(req.ManagerID); managerID != nil {
		if _, err := s.find(ctx, *managerID, "manager not found"); err != nil {
			return nil, err
		}
		staff.ManagerID = managerID
	}

	if err := s.repo.Create(ctx, nil, staff); err != nil {
		if database.IsUniqueViolation(err, "uq_staff_email") {
			return nil, appErrors.Clone(appErrors.ErrConflict, "a staff member with that email already exists")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create staff member")
	}
	s.invalidate(ctx)
	s.logger.Info("staff created", zap.String("staff_id", staff.ID))
	return staff, nil
}

// ReassignManager moves a staff member under a new manager. Assignments that
// would make the member manage themselves, directly or through reports, are rejected.
func (s *StaffService) ReassignManager(ctx context.Context, id string, req UpdateManagerRequest) (*models.Staff, error) {
	staff, err := s.find(ctx, id, "staff member not found")
	if err != nil {
		return nil, err
	}

	managerID := trimOptional(req.ManagerID)
	if managerID != nil {
		if *managerID == staff.ID {
			return nil, appErrors.Clone(appErrors.ErrValidation, "a staff member cannot manage themselves")
		}
		if _, err := s.find(ctx, *managerID, "manager not found"); err != nil {
			return nil, err
		}
	}

	err = s.tx.WithinTx(ctx, func(exec sqlx.ExtContext) error {
		if err := s.repo.LockHierarchy(ctx, exec); err != nil {
			return err
		}
		if managerID != nil {
			chain, err := s.repo.ManagementChain(ctx, exec, *managerID)
			if err != nil {
				return err
			}
			for _, ancestor := range chain {
				if ancestor == staff.ID {
					return appErrors.Clone(appErrors.ErrValidation, "assignment would create a management cycle")
				}
			}
		}
		return s.repo.UpdateManager(ctx, exec, staff.ID, managerID)
	})
	if err != nil {
		var appErr *appErrors.Error
		if errors.As(err, &appErr) {
			return nil, appErr
		}
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "staff member not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reassign manager")
	}
	staff.ManagerID = managerID
	return staff, nil
}

// OrgChart builds the manager forest. Roots and children are sorted by
// name, case-insensitively.
func (s *StaffService) OrgChart(ctx context.Context) ([]dto.OrgChartNode, error) {
	staff, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load org chart")
	}
	return BuildOrgChart(staff), nil
}

// BuildOrgChart derives the tree from manager references. Members whose
// manager is absent from the input are treated as roots.
func BuildOrgChart(staff []models.Staff) []dto.OrgChartNode {
	known := make(map[string]struct{}, len(staff))
	for _, member := range staff {
		known[member.ID] = struct{}{}
	}

	children := make(map[string][]models.Staff)
	var roots []models.Staff
	for _, member := range staff {
		if member.ManagerID == nil {
			roots = append(roots, member)
			continue
		}
		if _, ok := known[*member.ManagerID]; !ok {
			roots = append(roots, member)
			continue
		}
		children[*member.ManagerID] = append(children[*member.ManagerID], member)
	}

	visited := make(map[string]bool, len(staff))
	var build func(members []models.Staff) []dto.OrgChartNode
	build = func(members []models.Staff) []dto.OrgChartNode {
		sortStaffByName(members)
		nodes := make([]dto.OrgChartNode, 0, len(members))
		for _, member := range members {
			if visited[member.ID] {
				continue
			}
			visited[member.ID] = true
			nodes = append(nodes, dto.OrgChartNode{
				ID:       member.ID,
				Name:     member.Name,
				Title:    member.Title,
				Email:    member.Email,
				Children: build(children[member.ID]),
			})
		}
		return nodes
	}
	return build(roots)
}

func sortStaffByName(members []models.Staff) {
	sort.SliceStable(members, func(i, j int) bool {
		a, b := strings.ToLower(members[i].Name), strings.ToLower(members[j].Name)
		if a != b {
			return a < b
		}
		return members[i].ID < members[j].ID
	})
}

func (s *StaffService) find(ctx context.Context, id, notFound string) (*models.Staff, error) {
	if !isUUID(id) {
		return nil, appErrors.Clone(appErrors.ErrNotFound, notFound)
	}
	staff, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, notFound)
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load staff member")
	}
	return staff, nil
}

func (s *StaffService) invalidate(ctx context.Context) {
	if s.dashboard != nil {
		s.dashboard.Invalidate(ctx)
	}
}
