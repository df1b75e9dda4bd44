package worker

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nezubytes/review_service/internal/pkg/logger"
)

func setupTestWorker(t *testing.T) (*LinkageWorker, sqlmock.Sqlmock, *sqlx.DB) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	sqlxDB := sqlx.NewDb(db, "sqlmock")
	log := logger.New("test")
	repairer := NewRepairer(sqlxDB, log)
	worker := NewLinkageWorker(repairer, log)

	return worker, mock, sqlxDB
}

func TestLinkageWorker_HandleEvent_Success(t *testing.T) {
	worker, mock, sqlxDB := setupTestWorker(t)
	defer sqlxDB.Close()

	reviewID := uuid.New()
	event := CommentEvent{
		EventType: "comment.created",
		ReviewID:  reviewID,
		CommentID: uuid.New(),
		Timestamp: time.Now(),
	}

	eventData, err := json.Marshal(event)
	require.NoError(t, err)

	// Expect UPDATE query after debounce window
	mock.ExpectExec("UPDATE reviews").
		WithArgs(reviewID, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	// Handle event
	err = worker.HandleEvent(eventData)
	assert.NoError(t, err)

	// Verify pending repair was scheduled
	assert.Equal(t, 1, worker.GetPendingCount())

	// Wait for debounce window + processing time
	time.Sleep(debounceWindow + 100*time.Millisecond)

	// Verify repair was processed
	assert.Equal(t, 0, worker.GetPendingCount())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLinkageWorker_HandleEvent_InvalidJSON(t *testing.T) {
	worker, _, sqlxDB := setupTestWorker(t)
	defer sqlxDB.Close()

	invalidJSON := []byte(`{invalid json}`)

	err := worker.HandleEvent(invalidJSON)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unmarshal")
}

func TestLinkageWorker_Debouncing_MultipleComments(t *testing.T) {
	worker, mock, sqlxDB := setupTestWorker(t)
	defer sqlxDB.Close()

	reviewID := uuid.New()

	// Expect only ONE rebuild despite multiple comment events
	mock.ExpectExec("UPDATE reviews").
		WithArgs(reviewID, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	// Send 10 comment events for the same review within debounce window
	for i := 0; i < 10; i++ {
		event := CommentEvent{
			EventType: "comment.created",
			ReviewID:  reviewID,
			CommentID: uuid.New(),
			Timestamp: time.Now(),
		}
		eventData, _ := json.Marshal(event)
		err := worker.HandleEvent(eventData)
		assert.NoError(t, err)
		time.Sleep(50 * time.Millisecond) // Within debounce window
	}

	// Should still have 1 pending repair (debounced)
	assert.Equal(t, 1, worker.GetPendingCount())

	// Wait for debounce window + processing time
	time.Sleep(debounceWindow + 200*time.Millisecond)

	// Verify only one rebuild was executed
	assert.Equal(t, 0, worker.GetPendingCount())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLinkageWorker_EventOrdering_IgnoreStaleEvents(t *testing.T) {
	worker, mock, sqlxDB := setupTestWorker(t)
	defer sqlxDB.Close()

	reviewID := uuid.New()
	now := time.Now()

	// Expect only ONE rebuild (for the newer event)
	mock.ExpectExec("UPDATE reviews").
		WithArgs(reviewID, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	// Send newer event first
	newerEvent := CommentEvent{
		EventType: "comment.created",
		ReviewID:  reviewID,
		CommentID: uuid.New(),
		Timestamp: now.Add(10 * time.Second),
	}
	newerData, _ := json.Marshal(newerEvent)
	err := worker.HandleEvent(newerData)
	assert.NoError(t, err)

	// Send older event (should be ignored)
	olderEvent := CommentEvent{
		EventType: "comment.created",
		ReviewID:  reviewID,
		CommentID: uuid.New(),
		Timestamp: now,
	}
	olderData, _ := json.Marshal(olderEvent)
	err = worker.HandleEvent(olderData)
	assert.NoError(t, err)

	// Should still have 1 pending repair (stale event ignored)
	assert.Equal(t, 1, worker.GetPendingCount())

	// Wait for processing
	time.Sleep(debounceWindow + 200*time.Millisecond)

	// Verify only one rebuild
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLinkageWorker_MultipleReviews(t *testing.T) {
	worker, mock, sqlxDB := setupTestWorker(t)
	defer sqlxDB.Close()

	review1 := uuid.New()
	review2 := uuid.New()
	review3 := uuid.New()

	// Expect 3 rebuilds (one per review)
	mock.ExpectExec("UPDATE reviews").
		WithArgs(review1, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE reviews").
		WithArgs(review2, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE reviews").
		WithArgs(review3, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	// Send events for different reviews
	for _, reviewID := range []uuid.UUID{review1, review2, review3} {
		event := CommentEvent{
			EventType: "comment.created",
			ReviewID:  reviewID,
			CommentID: uuid.New(),
			Timestamp: time.Now(),
		}
		eventData, _ := json.Marshal(event)
		err := worker.HandleEvent(eventData)
		assert.NoError(t, err)
	}

	// Should have 3 pending repairs
	assert.Equal(t, 3, worker.GetPendingCount())

	// Wait for processing
	time.Sleep(debounceWindow + 300*time.Millisecond)

	// Verify all rebuilds executed
	assert.Equal(t, 0, worker.GetPendingCount())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLinkageWorker_ScheduleSweep(t *testing.T) {
	worker, mock, sqlxDB := setupTestWorker(t)
	defer sqlxDB.Close()

	review1 := uuid.New()
	review2 := uuid.New()

	rows := sqlmock.NewRows([]string{"id"}).
		AddRow(review1).
		AddRow(review2)
	mock.ExpectQuery("SELECT r.id").
		WithArgs(100).
		WillReturnRows(rows)

	mock.ExpectExec("UPDATE reviews").
		WithArgs(review1, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE reviews").
		WithArgs(review2, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := worker.ScheduleSweep(context.Background(), 100)
	assert.NoError(t, err)

	// Both inconsistent reviews queued for repair
	assert.Equal(t, 2, worker.GetPendingCount())

	// Wait for processing
	time.Sleep(debounceWindow + 200*time.Millisecond)

	assert.Equal(t, 0, worker.GetPendingCount())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLinkageWorker_ScheduleSweep_NothingToRepair(t *testing.T) {
	worker, mock, sqlxDB := setupTestWorker(t)
	defer sqlxDB.Close()

	mock.ExpectQuery("SELECT r.id").
		WithArgs(100).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	err := worker.ScheduleSweep(context.Background(), 100)
	assert.NoError(t, err)
	assert.Equal(t, 0, worker.GetPendingCount())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLinkageWorker_GracefulShutdown(t *testing.T) {
	worker, mock, sqlxDB := setupTestWorker(t)
	defer sqlxDB.Close()

	reviewID := uuid.New()

	// Expect one rebuild to complete
	mock.ExpectExec("UPDATE reviews").
		WithArgs(reviewID, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	event := CommentEvent{
		EventType: "comment.created",
		ReviewID:  reviewID,
		CommentID: uuid.New(),
		Timestamp: time.Now(),
	}
	eventData, _ := json.Marshal(event)
	err := worker.HandleEvent(eventData)
	assert.NoError(t, err)

	// Verify pending repair
	assert.Equal(t, 1, worker.GetPendingCount())

	// Wait for processing to start
	time.Sleep(debounceWindow + 50*time.Millisecond)

	// Shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err = worker.Shutdown(ctx)
	assert.NoError(t, err)

	// Verify clean shutdown
	assert.Equal(t, 0, worker.GetPendingCount())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLinkageWorker_ShutdownCancelsPendingRepairs(t *testing.T) {
	worker, _, sqlxDB := setupTestWorker(t)
	defer sqlxDB.Close()

	reviewID := uuid.New()

	// Send event
	event := CommentEvent{
		EventType: "comment.created",
		ReviewID:  reviewID,
		CommentID: uuid.New(),
		Timestamp: time.Now(),
	}
	eventData, _ := json.Marshal(event)
	err := worker.HandleEvent(eventData)
	assert.NoError(t, err)

	// Verify pending repair
	assert.Equal(t, 1, worker.GetPendingCount())

	// Shutdown immediately (before processing starts)
	ctx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancel()

	err = worker.Shutdown(ctx)
	assert.NoError(t, err)

	// Verify pending repair was cancelled
	assert.Equal(t, 0, worker.GetPendingCount())
}

func TestLinkageWorker_RetryLogic(t *testing.T) {
	worker, mock, sqlxDB := setupTestWorker(t)
	defer sqlxDB.Close()

	reviewID := uuid.New()

	// Simulate 2 failures then success
	mock.ExpectExec("UPDATE reviews").
		WithArgs(reviewID, sqlmock.AnyArg()).
		WillReturnError(assert.AnError)

	mock.ExpectExec("UPDATE reviews").
		WithArgs(reviewID, sqlmock.AnyArg()).
		WillReturnError(assert.AnError)

	mock.ExpectExec("UPDATE reviews").
		WithArgs(reviewID, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	event := CommentEvent{
		EventType: "comment.created",
		ReviewID:  reviewID,
		CommentID: uuid.New(),
		Timestamp: time.Now(),
	}
	eventData, _ := json.Marshal(event)
	err := worker.HandleEvent(eventData)
	assert.NoError(t, err)

	// Wait for processing with retries (debounce + 3 attempts with backoff)
	time.Sleep(debounceWindow + 1*time.Second)

	// Verify all retries executed
	assert.NoError(t, mock.ExpectationsWereMet())
}
