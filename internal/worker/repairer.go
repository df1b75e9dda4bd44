package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/nezubytes/review_service/internal/pkg/logger"
)

// Repairer rebuilds a review's comment backlink list from the comments table.
// Comment.review_id is the authoritative side of the link, so a full rebuild
// both adds links lost to partial failures and drops ids that never belonged.
type Repairer struct {
	db     *sqlx.DB
	logger *logger.Logger
}

// NewRepairer creates a new backlink repairer
func NewRepairer(db *sqlx.DB, logger *logger.Logger) *Repairer {
	return &Repairer{
		db:     db,
		logger: logger,
	}
}

// RebuildLinks recomputes the backlink list for one review. The write only
// happens when the list actually changed, and bumps the review version so
// concurrent optimistic writers see it.
func (r *Repairer) RebuildLinks(ctx context.Context, reviewID uuid.UUID) error {
	query := `
		UPDATE reviews
		SET
			comment_ids = sub.ids,
			updated_at = $2,
			version = version + 1
		FROM (
			SELECT COALESCE(array_agg(c.id::text ORDER BY c.created_at), '{}') AS ids
			FROM comments c
			WHERE c.review_id = $1
		) sub
		WHERE reviews.id = $1 AND reviews.comment_ids IS DISTINCT FROM sub.ids
	`

	result, err := r.db.ExecContext(ctx, query, reviewID, time.Now())
	if err != nil {
		return fmt.Errorf("failed to rebuild comment links: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	// Review deleted or already consistent - nothing to repair
	if rowsAffected == 0 {
		r.logger.WithFields(map[string]any{
			"review_id": reviewID.String(),
		}).Debug("Review links already consistent or review gone")
		return nil
	}

	r.logger.WithFields(map[string]any{
		"review_id": reviewID.String(),
	}).Info("Rebuilt review comment links")

	return nil
}

// FindUnlinkedReviews returns ids of reviews whose backlink list disagrees
// with the comments table. Used by the periodic sweep.
func (r *Repairer) FindUnlinkedReviews(ctx context.Context, limit int) ([]uuid.UUID, error) {
	query := `
		SELECT r.id
		FROM reviews r
		WHERE r.comment_ids IS DISTINCT FROM (
			SELECT COALESCE(array_agg(c.id::text ORDER BY c.created_at), '{}')
			FROM comments c
			WHERE c.review_id = r.id
		)
		LIMIT $1
	`

	var ids []uuid.UUID
	if err := r.db.SelectContext(ctx, &ids, query, limit); err != nil {
		return nil, fmt.Errorf("failed to find unlinked reviews: %w", err)
	}

	return ids, nil
}

// GetCommentLinks retrieves the current backlink list for verification (used in tests)
func (r *Repairer) GetCommentLinks(ctx context.Context, reviewID uuid.UUID) ([]string, error) {
	var ids pq.StringArray
	query := `SELECT comment_ids FROM reviews WHERE id = $1`

	if err := r.db.GetContext(ctx, &ids, query, reviewID); err != nil {
		return nil, fmt.Errorf("failed to get comment links: %w", err)
	}

	return ids, nil
}
