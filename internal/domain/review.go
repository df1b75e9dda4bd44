package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Review represents a food review in the system.
//
// LikeCount/DislikeCount must always equal the size of LikedBy/DislikedBy,
// and no user may appear in both sets. Those invariants are maintained by
// the reaction transitions in reaction.go; nothing else should mutate the
// reaction fields directly.
type Review struct {
	ID           uuid.UUID      `json:"id" db:"id"`
	Title        string         `json:"title" db:"title" validate:"required,min=1,max=255"`
	Description  string         `json:"description" db:"description" validate:"required,min=1,max=5000"`
	FoodID       string         `json:"food_id" db:"food_id" validate:"required"`
	RestaurantID string         `json:"restaurant_id" db:"restaurant_id" validate:"required"`
	UserID       string         `json:"user_id" db:"user_id" validate:"required"`
	LikeCount    int            `json:"like_count" db:"like_count"`
	DislikeCount int            `json:"dislike_count" db:"dislike_count"`
	LikedBy      pq.StringArray `json:"liked_by" db:"liked_by"`
	DislikedBy   pq.StringArray `json:"disliked_by" db:"disliked_by"`
	CommentIDs   pq.StringArray `json:"comment_ids" db:"comment_ids"`
	Sentiment    string         `json:"sentiment" db:"sentiment"`
	Version      int            `json:"version" db:"version"`
	CreatedAt    time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at" db:"updated_at"`
}

// HasLiked reports whether the user is in the liked-by set
func (r *Review) HasLiked(userID string) bool {
	return contains(r.LikedBy, userID)
}

// HasDisliked reports whether the user is in the disliked-by set
func (r *Review) HasDisliked(userID string) bool {
	return contains(r.DislikedBy, userID)
}

// AppendCommentID appends a comment id to the backlink list if it is not
// already present. Returns true when the list changed, so replayed linkage
// writes stay idempotent.
func (r *Review) AppendCommentID(commentID string) bool {
	if contains(r.CommentIDs, commentID) {
		return false
	}
	r.CommentIDs = append(r.CommentIDs, commentID)
	return true
}

func contains(list []string, value string) bool {
	for _, v := range list {
		if v == value {
			return true
		}
	}
	return false
}

// ReviewRepository defines the interface for review data access
type ReviewRepository interface {
	// Create persists a new review and fills in ID, Version and timestamps
	Create(ctx context.Context, review *Review) error

	// GetByID retrieves a review by ID
	GetByID(ctx context.Context, id uuid.UUID) (*Review, error)

	// List retrieves all reviews
	List(ctx context.Context) ([]*Review, error)

	// ListByFoodID retrieves reviews for a food
	ListByFoodID(ctx context.Context, foodID string) ([]*Review, error)

	// ListByUserID retrieves reviews written by a user
	ListByUserID(ctx context.Context, userID string) ([]*Review, error)

	// ListByRestaurantID retrieves reviews for a restaurant
	ListByRestaurantID(ctx context.Context, restaurantID string) ([]*Review, error)

	// Update writes the review back using its Version as a compare-and-swap
	// guard. Returns ErrConflict when another writer got there first and
	// ErrNotFound when the review no longer exists.
	Update(ctx context.Context, review *Review) error

	// Delete removes a review. Comments referencing it are left in place.
	Delete(ctx context.Context, id uuid.UUID) error
}
