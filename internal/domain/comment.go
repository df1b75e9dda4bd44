package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Comment represents a comment on a review. ReviewID is set once at creation
// and is the authoritative side of the review/comment link; the review's
// CommentIDs list is a backlink derived from it.
type Comment struct {
	ID        uuid.UUID  `json:"id" db:"id"`
	ReviewID  uuid.UUID  `json:"review_id" db:"review_id" validate:"required"`
	UserID    string     `json:"user_id" db:"user_id" validate:"required"`
	Content   string     `json:"content" db:"content" validate:"required,min=1,max=2000"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt *time.Time `json:"updated_at,omitempty" db:"updated_at"`
}

// CommentRepository defines the interface for comment data access
type CommentRepository interface {
	// Create persists a new comment and fills in ID and CreatedAt
	Create(ctx context.Context, comment *Comment) error

	// GetByID retrieves a comment by ID
	GetByID(ctx context.Context, id uuid.UUID) (*Comment, error)

	// ListByReviewID retrieves all comments for a review in creation order
	ListByReviewID(ctx context.Context, reviewID uuid.UUID) ([]*Comment, error)

	// Update replaces the comment content and bumps UpdatedAt
	Update(ctx context.Context, comment *Comment) error
}
