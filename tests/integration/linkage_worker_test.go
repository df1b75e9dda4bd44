//go:build integration
// +build integration

package integration

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nezubytes/review_service/internal/config"
	"github.com/nezubytes/review_service/internal/domain"
	"github.com/nezubytes/review_service/internal/pkg/database"
	"github.com/nezubytes/review_service/internal/pkg/logger"
	"github.com/nezubytes/review_service/internal/repository/postgres"
	"github.com/nezubytes/review_service/internal/worker"
)

func TestLinkageWorker_EndToEnd(t *testing.T) {
	// Load config
	cfg, err := config.Load()
	require.NoError(t, err)

	// Setup logger
	log := logger.New(cfg.Env)

	// Connect to database
	db, err := database.WaitForDB(cfg, 5, 2*time.Second)
	require.NoError(t, err)
	defer db.Close()

	// Connect to NATS
	nc, err := nats.Connect(cfg.NATS.URL)
	require.NoError(t, err)
	defer nc.Close()

	// Create repairer and worker
	repairer := worker.NewRepairer(db, log)
	linkageWorker := worker.NewLinkageWorker(repairer, log)

	// Subscribe to comment events
	_, err = nc.Subscribe("comments.events", func(msg *nats.Msg) {
		_ = linkageWorker.HandleEvent(msg.Data)
	})
	require.NoError(t, err)

	// Create repositories
	reviewRepo := postgres.NewReviewRepository(db)
	commentRepo := postgres.NewCommentRepository(db)

	ctx := context.Background()

	// Create test review
	review := &domain.Review{
		Title:        "Worker test review",
		Description:  "Integration test review",
		FoodID:       "food-worker-1",
		RestaurantID: "rest-worker-1",
		UserID:       "author-worker-1",
	}
	err = reviewRepo.Create(ctx, review)
	require.NoError(t, err)

	// Cleanup function
	defer func() {
		_ = reviewRepo.Delete(ctx, review.ID)
		shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		_ = linkageWorker.Shutdown(shutdownCtx)
	}()

	// Create comments WITHOUT writing the review backlink, simulating the
	// partial failure the worker exists to repair
	commentIDs := make([]uuid.UUID, 3)
	for i := range commentIDs {
		c := &domain.Comment{
			ReviewID: review.ID,
			UserID:   "commenter-worker-1",
			Content:  "Unlinked comment",
		}
		err = commentRepo.Create(ctx, c)
		require.NoError(t, err)
		commentIDs[i] = c.ID

		// Publish event as the comment service would have
		event := worker.CommentEvent{
			EventType: "comment.created",
			ReviewID:  review.ID,
			CommentID: c.ID,
			Timestamp: time.Now(),
		}
		eventData, _ := json.Marshal(event)
		err = nc.Publish("comments.events", eventData)
		require.NoError(t, err)
	}

	// Wait for event processing (debounce window + processing time)
	time.Sleep(2 * time.Second)

	// Verify the backlink list was rebuilt from the comments table
	links, err := repairer.GetCommentLinks(ctx, review.ID)
	require.NoError(t, err)

	assert.Len(t, links, 3)
	for _, id := range commentIDs {
		assert.Contains(t, links, id.String())
	}

	// The rebuild bumped the version for optimistic writers
	updated, err := reviewRepo.GetByID(ctx, review.ID)
	require.NoError(t, err)
	assert.Greater(t, updated.Version, review.Version)
}

func TestLinkageWorker_SweepRepairsWithoutEvents(t *testing.T) {
	// Load config
	cfg, err := config.Load()
	require.NoError(t, err)

	// Setup logger
	log := logger.New(cfg.Env)

	// Connect to database
	db, err := database.WaitForDB(cfg, 5, 2*time.Second)
	require.NoError(t, err)
	defer db.Close()

	// Create repairer and worker (no NATS: the sweep is database-driven)
	repairer := worker.NewRepairer(db, log)
	linkageWorker := worker.NewLinkageWorker(repairer, log)

	// Create repositories
	reviewRepo := postgres.NewReviewRepository(db)
	commentRepo := postgres.NewCommentRepository(db)

	ctx := context.Background()

	// Create review and an unlinked comment, as if its event was dropped
	review := &domain.Review{
		Title:        "Sweep test review",
		Description:  "Integration test review",
		FoodID:       "food-sweep-1",
		RestaurantID: "rest-sweep-1",
		UserID:       "author-sweep-1",
	}
	err = reviewRepo.Create(ctx, review)
	require.NoError(t, err)

	c := &domain.Comment{
		ReviewID: review.ID,
		UserID:   "commenter-sweep-1",
		Content:  "Dropped event comment",
	}
	err = commentRepo.Create(ctx, c)
	require.NoError(t, err)

	defer func() {
		_ = reviewRepo.Delete(ctx, review.ID)
		shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		_ = linkageWorker.Shutdown(shutdownCtx)
	}()

	// Run the sweep
	err = linkageWorker.ScheduleSweep(ctx, 100)
	require.NoError(t, err)

	// Wait for debounce window + processing time
	time.Sleep(2 * time.Second)

	links, err := repairer.GetCommentLinks(ctx, review.ID)
	require.NoError(t, err)
	assert.Contains(t, links, c.ID.String())
}
