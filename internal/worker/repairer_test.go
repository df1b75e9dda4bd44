package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nezubytes/review_service/internal/pkg/logger"
)

func TestRepairer_RebuildLinks_Success(t *testing.T) {
	// Setup
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() {
		_ = db.Close()
	}()

	sqlxDB := sqlx.NewDb(db, "sqlmock")
	log := logger.New("test")
	repairer := NewRepairer(sqlxDB, log)

	reviewID := uuid.New()
	ctx := context.Background()

	// Expect UPDATE query
	mock.ExpectExec("UPDATE reviews").
		WithArgs(reviewID, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	// Execute
	err = repairer.RebuildLinks(ctx, reviewID)

	// Assert
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepairer_RebuildLinks_AlreadyConsistent(t *testing.T) {
	// Setup
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() {
		_ = db.Close()
	}()

	sqlxDB := sqlx.NewDb(db, "sqlmock")
	log := logger.New("test")
	repairer := NewRepairer(sqlxDB, log)

	reviewID := uuid.New()
	ctx := context.Background()

	// Review deleted or already consistent (0 rows affected)
	mock.ExpectExec("UPDATE reviews").
		WithArgs(reviewID, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	// Execute
	err = repairer.RebuildLinks(ctx, reviewID)

	// Assert - no error for a consistent or deleted review
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepairer_RebuildLinks_DatabaseError(t *testing.T) {
	// Setup
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() {
		_ = db.Close()
	}()

	sqlxDB := sqlx.NewDb(db, "sqlmock")
	log := logger.New("test")
	repairer := NewRepairer(sqlxDB, log)

	reviewID := uuid.New()
	ctx := context.Background()

	mock.ExpectExec("UPDATE reviews").
		WithArgs(reviewID, sqlmock.AnyArg()).
		WillReturnError(errors.New("connection lost"))

	// Execute
	err = repairer.RebuildLinks(ctx, reviewID)

	// Assert
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to rebuild comment links")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepairer_RebuildLinks_ContextTimeout(t *testing.T) {
	// Setup
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() {
		_ = db.Close()
	}()

	sqlxDB := sqlx.NewDb(db, "sqlmock")
	log := logger.New("test")
	repairer := NewRepairer(sqlxDB, log)

	reviewID := uuid.New()
	ctx, cancel := context.WithTimeout(context.Background(), 1*time.Millisecond)
	defer cancel()

	// Simulate slow query
	mock.ExpectExec("UPDATE reviews").
		WithArgs(reviewID, sqlmock.AnyArg()).
		WillDelayFor(100 * time.Millisecond).
		WillReturnResult(sqlmock.NewResult(0, 1))

	// Wait for context to timeout
	time.Sleep(10 * time.Millisecond)

	// Execute
	err = repairer.RebuildLinks(ctx, reviewID)

	// Assert
	assert.Error(t, err)
}

func TestRepairer_FindUnlinkedReviews_Success(t *testing.T) {
	// Setup
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() {
		_ = db.Close()
	}()

	sqlxDB := sqlx.NewDb(db, "sqlmock")
	log := logger.New("test")
	repairer := NewRepairer(sqlxDB, log)

	first := uuid.New()
	second := uuid.New()
	ctx := context.Background()

	rows := sqlmock.NewRows([]string{"id"}).
		AddRow(first).
		AddRow(second)
	mock.ExpectQuery("SELECT r.id").
		WithArgs(100).
		WillReturnRows(rows)

	// Execute
	ids, err := repairer.FindUnlinkedReviews(ctx, 100)

	// Assert
	assert.NoError(t, err)
	assert.Equal(t, []uuid.UUID{first, second}, ids)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepairer_FindUnlinkedReviews_Empty(t *testing.T) {
	// Setup
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() {
		_ = db.Close()
	}()

	sqlxDB := sqlx.NewDb(db, "sqlmock")
	log := logger.New("test")
	repairer := NewRepairer(sqlxDB, log)

	ctx := context.Background()

	mock.ExpectQuery("SELECT r.id").
		WithArgs(100).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	// Execute
	ids, err := repairer.FindUnlinkedReviews(ctx, 100)

	// Assert
	assert.NoError(t, err)
	assert.Empty(t, ids)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepairer_GetCommentLinks_Success(t *testing.T) {
	// Setup
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() {
		_ = db.Close()
	}()

	sqlxDB := sqlx.NewDb(db, "sqlmock")
	log := logger.New("test")
	repairer := NewRepairer(sqlxDB, log)

	reviewID := uuid.New()
	ctx := context.Background()

	rows := sqlmock.NewRows([]string{"comment_ids"}).
		AddRow("{c1,c2}")
	mock.ExpectQuery("SELECT comment_ids FROM reviews").
		WithArgs(reviewID).
		WillReturnRows(rows)

	// Execute
	links, err := repairer.GetCommentLinks(ctx, reviewID)

	// Assert
	assert.NoError(t, err)
	assert.Equal(t, []string{"c1", "c2"}, links)
	assert.NoError(t, mock.ExpectationsWereMet())
}
