package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nezubytes/review_service/internal/pkg/logger"
)

const (
	// Debounce window - collect events for same review within this duration
	debounceWindow = 1 * time.Second

	// Retry configuration
	maxRetries     = 3
	initialBackoff = 100 * time.Millisecond
)

// CommentEvent represents a comment event from NATS
type CommentEvent struct {
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
	ReviewID  uuid.UUID `json:"review_id"`
	CommentID uuid.UUID `json:"comment_id"`
}

// LinkageWorker processes comment events and repairs review comment backlinks
// asynchronously. Several comments on the same review inside the debounce
// window collapse into a single rebuild.
type LinkageWorker struct {
	repairer *Repairer
	logger   *logger.Logger

	// Debouncing state
	mu             sync.Mutex
	pendingRepairs map[uuid.UUID]*pendingRepair
	shutdownCh     chan struct{}
	wg             sync.WaitGroup
	ctx            context.Context
	cancel         context.CancelFunc
}

type pendingRepair struct {
	reviewID  uuid.UUID
	timestamp time.Time
	timer     *time.Timer
}

// NewLinkageWorker creates a new linkage worker
func NewLinkageWorker(repairer *Repairer, logger *logger.Logger) *LinkageWorker {
	ctx, cancel := context.WithCancel(context.Background())

	return &LinkageWorker{
		repairer:       repairer,
		logger:         logger,
		pendingRepairs: make(map[uuid.UUID]*pendingRepair),
		shutdownCh:     make(chan struct{}),
		ctx:            ctx,
		cancel:         cancel,
	}
}

// HandleEvent processes a comment event
func (w *LinkageWorker) HandleEvent(data []byte) error {
	var event CommentEvent
	if err := json.Unmarshal(data, &event); err != nil {
		w.logger.WithFields(map[string]any{
			"error": err.Error(),
		}).Error("Failed to unmarshal comment event", err)
		return fmt.Errorf("failed to unmarshal event: %w", err)
	}

	w.logger.WithFields(map[string]any{
		"type":       event.EventType,
		"review_id":  event.ReviewID.String(),
		"comment_id": event.CommentID.String(),
	}).Info("Received comment event")

	w.scheduleRepair(event.ReviewID, event.Timestamp)

	return nil
}

// ScheduleSweep queues repairs for every review the repairer reports as
// inconsistent. Run periodically to catch reviews whose comment events were
// dropped after max redeliveries.
func (w *LinkageWorker) ScheduleSweep(ctx context.Context, batchSize int) error {
	ids, err := w.repairer.FindUnlinkedReviews(ctx, batchSize)
	if err != nil {
		return err
	}

	if len(ids) == 0 {
		w.logger.Debug("Sweep found no unlinked reviews")
		return nil
	}

	w.logger.WithFields(map[string]any{
		"count": len(ids),
	}).Info("Sweep found unlinked reviews")

	now := time.Now()
	for _, id := range ids {
		w.scheduleRepair(id, now)
	}

	return nil
}

// scheduleRepair implements debouncing logic.
// Multiple events for same review within the window result in one rebuild.
func (w *LinkageWorker) scheduleRepair(reviewID uuid.UUID, timestamp time.Time) {
	w.mu.Lock()
	defer w.mu.Unlock()

	select {
	case <-w.shutdownCh:
		w.logger.Info("Worker shutting down, ignoring new event")
		return
	default:
	}

	existing, found := w.pendingRepairs[reviewID]

	if found {
		// Ignore stale events
		if timestamp.Before(existing.timestamp) {
			w.logger.WithFields(map[string]any{
				"review_id":   reviewID.String(),
				"existing_ts": existing.timestamp,
				"event_ts":    timestamp,
			}).Debug("Ignoring stale event")
			return
		}

		existing.timer.Stop()
		w.logger.WithFields(map[string]any{
			"review_id": reviewID.String(),
		}).Debug("Debouncing: resetting timer for review")
	} else {
		w.wg.Add(1)
	}

	timer := time.AfterFunc(debounceWindow, func() {
		w.processRepair(reviewID)
	})

	w.pendingRepairs[reviewID] = &pendingRepair{
		reviewID:  reviewID,
		timestamp: timestamp,
		timer:     timer,
	}
}

// processRepair executes the backlink rebuild with retry logic
func (w *LinkageWorker) processRepair(reviewID uuid.UUID) {
	defer w.wg.Done()

	w.mu.Lock()
	delete(w.pendingRepairs, reviewID)
	w.mu.Unlock()

	w.logger.WithFields(map[string]any{
		"review_id": reviewID.String(),
	}).Info("Processing backlink repair")

	var lastErr error
	backoff := initialBackoff

	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			w.logger.WithFields(map[string]any{
				"review_id":  reviewID.String(),
				"attempt":    attempt + 1,
				"backoff_ms": backoff.Milliseconds(),
			}).Warn("Retrying backlink repair")

			select {
			case <-time.After(backoff):
				// Continue with retry
			case <-w.ctx.Done():
				w.logger.Info("Worker context cancelled, aborting retry")
				return
			}

			backoff *= 2
		}

		ctx, cancel := context.WithTimeout(w.ctx, 5*time.Second)
		err := w.repairer.RebuildLinks(ctx, reviewID)
		cancel()

		if err == nil {
			return
		}

		lastErr = err
		w.logger.WithFields(map[string]any{
			"review_id": reviewID.String(),
			"attempt":   attempt + 1,
			"error":     err.Error(),
		}).Error("Failed to repair backlinks", err)
	}

	w.logger.WithFields(map[string]any{
		"review_id":   reviewID.String(),
		"max_retries": maxRetries,
		"error":       lastErr.Error(),
	}).Error("Backlink repair failed after all retries", lastErr)
}

// Shutdown gracefully shuts down the worker.
// Cancels pending timers and waits for in-flight repairs to complete.
func (w *LinkageWorker) Shutdown(ctx context.Context) error {
	w.logger.Info("Shutting down linkage worker...")

	close(w.shutdownCh)
	w.cancel()

	w.mu.Lock()
	pendingCount := len(w.pendingRepairs)
	for _, repair := range w.pendingRepairs {
		repair.timer.Stop()
		w.wg.Done() // Decrement counter for cancelled repairs
	}
	w.pendingRepairs = make(map[uuid.UUID]*pendingRepair)
	w.mu.Unlock()

	w.logger.WithFields(map[string]any{
		"cancelled_repairs": pendingCount,
	}).Info("Cancelled pending repairs")

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		w.logger.Info("All in-flight repairs completed")
		return nil
	case <-ctx.Done():
		w.logger.Warn("Shutdown timeout reached, forcing exit")
		return ctx.Err()
	}
}

// GetPendingCount returns the number of pending repairs (used for monitoring/testing)
func (w *LinkageWorker) GetPendingCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.pendingRepairs)
}
