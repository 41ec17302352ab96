package database

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// Migration is a single versioned schema change.
type Migration struct {
	Version    string
	Statements []string
}

// Migrations lists the schema in application order.
var Migrations = []Migration{
	{
		Version: "0001_core",
		Statements: []string{
			`CREATE TABLE IF NOT EXISTS staff (
	id UUID PRIMARY KEY,
	name VARCHAR(120) NOT NULL,
	title VARCHAR(120) NOT NULL,
	email VARCHAR(200) NOT NULL,
	manager_id UUID NULL REFERENCES staff(id),
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	CONSTRAINT uq_staff_email UNIQUE (email)
)`,
			`CREATE TABLE IF NOT EXISTS review_templates (
	id UUID PRIMARY KEY,
	name VARCHAR(120) NOT NULL,
	description TEXT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	CONSTRAINT uq_review_templates_name UNIQUE (name)
)`,
			`CREATE TABLE IF NOT EXISTS template_questions (
	id UUID PRIMARY KEY,
	seq BIGSERIAL NOT NULL,
	template_id UUID NOT NULL REFERENCES review_templates(id),
	prompt TEXT NOT NULL,
	answer_by VARCHAR(20) NOT NULL CHECK (answer_by IN ('reviewer', 'reviewee', 'both')),
	order_index INTEGER NOT NULL CHECK (order_index > 0)
)`,
			`CREATE INDEX IF NOT EXISTS idx_template_questions_order ON template_questions (template_id, order_index, seq)`,
			`CREATE TABLE IF NOT EXISTS reviews (
	id UUID PRIMARY KEY,
	title VARCHAR(120) NOT NULL,
	template_id UUID NOT NULL REFERENCES review_templates(id),
	reviewer_id UUID NOT NULL REFERENCES staff(id),
	reviewee_id UUID NOT NULL REFERENCES staff(id),
	status VARCHAR(20) NOT NULL DEFAULT 'In Progress',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	CONSTRAINT chk_reviews_distinct_parties CHECK (reviewer_id <> reviewee_id)
)`,
			`CREATE TABLE IF NOT EXISTS review_answers (
	id UUID PRIMARY KEY,
	review_id UUID NOT NULL REFERENCES reviews(id),
	question_id UUID NOT NULL REFERENCES template_questions(id),
	role VARCHAR(20) NOT NULL CHECK (role IN ('reviewer', 'reviewee')),
	answer_text TEXT NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	CONSTRAINT uq_answer_per_role UNIQUE (review_id, question_id, role)
)`,
		},
	},
	{
		Version: "0002_export_jobs",
		Statements: []string{
			`CREATE TABLE IF NOT EXISTS export_jobs (
	id UUID PRIMARY KEY,
	review_id UUID NOT NULL REFERENCES reviews(id),
	format VARCHAR(10) NOT NULL,
	status VARCHAR(20) NOT NULL,
	result_url TEXT NULL,
	error_message TEXT NULL,
	created_by TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	finished_at TIMESTAMPTZ NULL
)`,
		},
	},
}

// Migrate applies pending migrations, each inside its own transaction.
func Migrate(ctx context.Context, db *sqlx.DB, migrations []Migration) error {
	const ensureTable = `CREATE TABLE IF NOT EXISTS schema_migrations (version TEXT PRIMARY KEY, applied_at TIMESTAMPTZ NOT NULL DEFAULT now())`
	if _, err := db.ExecContext(ctx, ensureTable); err != nil {
		return fmt.Errorf("ensure schema_migrations: %w", err)
	}

	for _, m := range migrations {
		var count int
		if err := db.GetContext(ctx, &count, `SELECT COUNT(1) FROM schema_migrations WHERE version = $1`, m.Version); err != nil {
			return fmt.Errorf("check migration %s: %w", m.Version, err)
		}
		if count > 0 {
			continue
		}
		if err := apply(ctx, db, m); err != nil {
			return err
		}
	}
	return nil
}

func apply(ctx context.Context, db *sqlx.DB, m Migration) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin migration %s: %w", m.Version, err)
	}
	for _, stmt := range m.Statements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %s failed: %w", m.Version, err)
		}
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO schema_migrations (version) VALUES ($1)`, m.Version); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("record migration %s: %w", m.Version, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit migration %s: %w", m.Version, err)
	}
	return nil
}
