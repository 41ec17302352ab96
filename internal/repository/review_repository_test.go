package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/perf-review-api/internal/models"
)

var reviewListColumns = []string{"id", "title", "template_id", "reviewer_id", "reviewee_id", "status", "created_at", "template_name", "reviewer_name", "reviewee_name"}

func TestReviewRepositoryCreateDefaultsStatus(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewReviewRepository(db)

	mock.ExpectExec("INSERT INTO reviews").
		WithArgs(sqlmock.AnyArg(), "Q3 review", "t1", "s3", "s4", "In Progress", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	review := &models.Review{Title: "Q3 review", TemplateID: "t1", ReviewerID: "s3", RevieweeID: "s4"}
	require.NoError(t, repo.Create(context.Background(), review))
	assert.Equal(t, models.ReviewStatusInProgress, review.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReviewRepositoryListWithFilters(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewReviewRepository(db)

	status := models.ReviewStatusCompleted
	rows := sqlmock.NewRows(reviewListColumns).
		AddRow("r1", "Q3 review", "t1", "s3", "s4", "Completed", time.Now(), "Quarterly", "Mia Lopez", "Liam Patel")
	mock.ExpectQuery(regexp.QuoteMeta("WHERE r.status = $1 AND r.reviewer_id = $2 ORDER BY r.created_at DESC, r.id DESC LIMIT 20 OFFSET 0")).
		WithArgs(status, "s3").
		WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM reviews r WHERE r.status = $1 AND r.reviewer_id = $2")).
		WithArgs(status, "s3").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	items, total, err := repo.List(context.Background(), models.ReviewFilter{Status: &status, ReviewerID: "s3"})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Liam Patel", items[0].RevieweeName)
	assert.Equal(t, models.ReviewStatusCompleted, items[0].Status)
	assert.Equal(t, 1, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReviewRepositoryFindForUpdateInTx(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewReviewRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM reviews WHERE id = $1 FOR UPDATE")).
		WithArgs("r1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "title", "template_id", "reviewer_id", "reviewee_id", "status", "created_at"}).
			AddRow("r1", "Q3 review", "t1", "s3", "s4", "In Progress", time.Now()))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE reviews SET status = $1 WHERE id = $2")).
		WithArgs(models.ReviewStatusCompleted, "r1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	tx, err := db.Beginx()
	require.NoError(t, err)
	review, err := repo.FindForUpdate(context.Background(), tx, "r1")
	require.NoError(t, err)
	assert.Equal(t, "t1", review.TemplateID)
	require.NoError(t, repo.UpdateStatus(context.Background(), tx, "r1", models.ReviewStatusCompleted))
	require.NoError(t, tx.Commit())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReviewRepositoryUpdateStatusMissing(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewReviewRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE reviews SET status = $1 WHERE id = $2")).
		WithArgs(models.ReviewStatusInProgress, "missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateStatus(context.Background(), nil, "missing", models.ReviewStatusInProgress)
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReviewRepositoryCounts(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewReviewRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("(SELECT COUNT(*) FROM staff) AS staff")).
		WithArgs(models.ReviewStatusCompleted).
		WillReturnRows(sqlmock.NewRows([]string{"staff", "templates", "reviews", "completed"}).AddRow(4, 1, 3, 1))

	counts, err := repo.Counts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.ReviewCounts{Staff: 4, Templates: 1, Reviews: 3, Completed: 1}, *counts)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReviewRepositoryLatest(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewReviewRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY r.created_at DESC, r.id DESC LIMIT $1")).
		WithArgs(8).
		WillReturnRows(sqlmock.NewRows(reviewListColumns))

	items, err := repo.Latest(context.Background(), 0)
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.NoError(t, mock.ExpectationsWereMet())
}
