package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/perf-review-api/internal/models"
)

const staffColumns = "id, name, title, email, manager_id, created_at, updated_at"

// hierarchyLockKey names the advisory lock that serialises manager reassignments.
const hierarchyLockKey int64 = 0x5354414646

// StaffRepository manages persistence for staff members.
type StaffRepository struct {
	db *sqlx.DB
}

// NewStaffRepository constructs a StaffRepository.
func NewStaffRepository(db *sqlx.DB) *StaffRepository {
	return &StaffRepository{db: db}
}

func (r *StaffRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// List returns staff matching filters, ordered by name, along with the total count.
func (r *StaffRepository) List(ctx context.Context, filter models.StaffFilter) ([]models.Staff, int, error) {
	base := "FROM staff WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.ManagerID != nil {
		conditions = append(conditions, fmt.Sprintf("manager_id = $%d", len(args)+1))
		args = append(args, *filter.ManagerID)
	}
	if filter.Search != "" {
		search := "%" + strings.ToLower(filter.Search) + "%"
		conditions = append(conditions, fmt.Sprintf("(LOWER(name) LIKE $%d OR LOWER(email) LIKE $%d OR LOWER(title) LIKE $%d)", len(args)+1, len(args)+1, len(args)+1))
		args = append(args, search)
	}
	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	size, offset := pageBounds(filter.Page, filter.PageSize)
	query := fmt.Sprintf("SELECT %s %s ORDER BY LOWER(name) ASC, id ASC LIMIT %d OFFSET %d", staffColumns, base, size, offset)
	var staff []models.Staff
	if err := r.db.SelectContext(ctx, &staff, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list staff: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+base, args...); err != nil {
		return nil, 0, fmt.Errorf("count staff: %w", err)
	}
	return staff, total, nil
}

// ListAll returns every staff member; used to build the org chart.
func (r *StaffRepository) ListAll(ctx context.Context) ([]models.Staff, error) {
	query := "SELECT " + staffColumns + " FROM staff ORDER BY LOWER(name) ASC, id ASC"
	var staff []models.Staff
	if err := r.db.SelectContext(ctx, &staff, query); err != nil {
		return nil, fmt.Errorf("list all staff: %w", err)
	}
	return staff, nil
}

// FindByID fetches a staff member by ID.
func (r *StaffRepository) FindByID(ctx context.Context, id string) (*models.Staff, error) {
	query := "SELECT " + staffColumns + " FROM staff WHERE id = $1"
	var staff models.Staff
	if err := r.db.GetContext(ctx, &staff, query, id); err != nil {
		return nil, err
	}
	return &staff, nil
}

// ExistsByEmail checks whether any staff member uses the email.
func (r *StaffRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	const query = "SELECT 1 FROM staff WHERE LOWER(email) = LOWER($1) LIMIT 1"
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, email); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("check staff email: %w", err)
	}
	return true, nil
}

// Create inserts a new staff record.
func (r *StaffRepository) Create(ctx context.Context, exec sqlx.ExtContext, staff *models.Staff) error {
	if staff.ID == "" {
		staff.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if staff.CreatedAt.IsZero() {
		staff.CreatedAt = now
	}
	staff.UpdatedAt = now

	const query = `INSERT INTO staff (id, name, title, email, manager_id, created_at, updated_at)
		VALUES (:id, :name, :title, :email, :manager_id, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, r.exec(exec), query, staff); err != nil {
		return fmt.Errorf("create staff: %w", err)
	}
	return nil
}

// UpdateManager points a staff member at a new manager, or detaches it when managerID is nil.
func (r *StaffRepository) UpdateManager(ctx context.Context, exec sqlx.ExtContext, id string, managerID *string) error {
	const query = `UPDATE staff SET manager_id = $1, updated_at = $2 WHERE id = $3`
	res, err := r.exec(exec).ExecContext(ctx, query, managerID, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("update staff manager: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ManagementChain returns the IDs on the path from id up to its root, id included.
func (r *StaffRepository) ManagementChain(ctx context.Context, exec sqlx.ExtContext, id string) ([]string, error) {
	const query = `WITH RECURSIVE chain AS (
		SELECT id, manager_id FROM staff WHERE id = $1
		UNION
		SELECT s.id, s.manager_id FROM staff s JOIN chain c ON s.id = c.manager_id
	)
	SELECT id FROM chain`
	var ids []string
	if err := sqlx.SelectContext(ctx, r.exec(exec), &ids, query, id); err != nil {
		return nil, fmt.Errorf("load management chain: %w", err)
	}
	return ids, nil
}

// LockHierarchy takes a transaction-scoped lock held by every manager
// reassignment, so a cycle check and the update it guards see a stable tree.
// exec must be a transaction; the lock is released on commit or rollback.
func (r *StaffRepository) LockHierarchy(ctx context.Context, exec sqlx.ExtContext) error {
	if _, err := r.exec(exec).ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, hierarchyLockKey); err != nil {
		return fmt.Errorf("lock staff hierarchy: %w", err)
	}
	return nil
}

// pageBounds normalises page parameters into a limit and an offset.
func pageBounds(page, size int) (int, int) {
	if page < 1 {
		page = 1
	}
	if size <= 0 || size > 100 {
		size = 20
	}
	return size, (page - 1) * size
}
