package models

import "time"

// Staff is an employee. ManagerID links to another staff member and the
// links form a forest.
type Staff struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Title     string    `db:"title" json:"title"`
	Email     string    `db:"email" json:"email"`
	ManagerID *string   `db:"manager_id" json:"manager_id,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// StaffFilter captures filtering options for listing staff.
type StaffFilter struct {
	Search    string
	ManagerID *string
	Page      int
	PageSize  int
}
