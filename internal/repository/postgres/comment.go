package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/nezubytes/review_service/internal/domain"
)

// CommentRepository implements domain.CommentRepository for PostgreSQL
type CommentRepository struct {
	db *sqlx.DB
}

// NewCommentRepository creates a new PostgreSQL comment repository
func NewCommentRepository(db *sqlx.DB) *CommentRepository {
	return &CommentRepository{db: db}
}

// Create creates a new comment
func (r *CommentRepository) Create(ctx context.Context, comment *domain.Comment) error {
	query := `
		INSERT INTO comments (review_id, user_id, content)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`

	err := r.db.QueryRowxContext(
		ctx,
		query,
		comment.ReviewID,
		comment.UserID,
		comment.Content,
	).Scan(
		&comment.ID,
		&comment.CreatedAt,
	)
	if err != nil {
		return err
	}

	return nil
}

// GetByID retrieves a comment by ID
func (r *CommentRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Comment, error) {
	query := `
		SELECT id, review_id, user_id, content, created_at, updated_at
		FROM comments
		WHERE id = $1
	`

	var comment domain.Comment
	err := r.db.GetContext(ctx, &comment, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}

	return &comment, nil
}

// ListByReviewID retrieves all comments for a review in creation order
func (r *CommentRepository) ListByReviewID(ctx context.Context, reviewID uuid.UUID) ([]*domain.Comment, error) {
	query := `
		SELECT id, review_id, user_id, content, created_at, updated_at
		FROM comments
		WHERE review_id = $1
		ORDER BY created_at ASC
	`

	var comments []*domain.Comment
	if err := r.db.SelectContext(ctx, &comments, query, reviewID); err != nil {
		return nil, err
	}

	return comments, nil
}

// Update replaces the comment content. Reaction operations never touch
// comments, so updated_at moves only here.
func (r *CommentRepository) Update(ctx context.Context, comment *domain.Comment) error {
	query := `
		UPDATE comments
		SET content = $1, updated_at = $2
		WHERE id = $3
		RETURNING updated_at
	`

	now := time.Now()
	err := r.db.QueryRowxContext(ctx, query, comment.Content, now, comment.ID).
		Scan(&comment.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrNotFound
		}
		return err
	}

	return nil
}
