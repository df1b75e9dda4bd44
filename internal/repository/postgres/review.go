package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/nezubytes/review_service/internal/domain"
)

// ReviewRepository implements domain.ReviewRepository for PostgreSQL
type ReviewRepository struct {
	db *sqlx.DB
}

// NewReviewRepository creates a new PostgreSQL review repository
func NewReviewRepository(db *sqlx.DB) *ReviewRepository {
	return &ReviewRepository{db: db}
}

const reviewColumns = `id, title, description, food_id, restaurant_id, user_id,
	like_count, dislike_count, liked_by, disliked_by, comment_ids,
	sentiment, version, created_at, updated_at`

// Create creates a new review. The caller may seed non-zero counters and
// reaction sets; they are persisted as given.
func (r *ReviewRepository) Create(ctx context.Context, review *domain.Review) error {
	query := `
		INSERT INTO reviews (title, description, food_id, restaurant_id, user_id,
			like_count, dislike_count, liked_by, disliked_by, comment_ids, sentiment)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, version, created_at, updated_at
	`

	err := r.db.QueryRowxContext(
		ctx,
		query,
		review.Title,
		review.Description,
		review.FoodID,
		review.RestaurantID,
		review.UserID,
		review.LikeCount,
		review.DislikeCount,
		arrayOrEmpty(review.LikedBy),
		arrayOrEmpty(review.DislikedBy),
		arrayOrEmpty(review.CommentIDs),
		review.Sentiment,
	).Scan(
		&review.ID,
		&review.Version,
		&review.CreatedAt,
		&review.UpdatedAt,
	)
	if err != nil {
		return err
	}

	return nil
}

// GetByID retrieves a review by ID
func (r *ReviewRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Review, error) {
	query := `SELECT ` + reviewColumns + ` FROM reviews WHERE id = $1`

	var review domain.Review
	err := r.db.GetContext(ctx, &review, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}

	return &review, nil
}

// List retrieves all reviews
func (r *ReviewRepository) List(ctx context.Context) ([]*domain.Review, error) {
	query := `SELECT ` + reviewColumns + ` FROM reviews ORDER BY created_at DESC`

	var reviews []*domain.Review
	if err := r.db.SelectContext(ctx, &reviews, query); err != nil {
		return nil, err
	}

	return reviews, nil
}

// ListByFoodID retrieves reviews for a food
func (r *ReviewRepository) ListByFoodID(ctx context.Context, foodID string) ([]*domain.Review, error) {
	return r.listByColumn(ctx, "food_id", foodID)
}

// ListByUserID retrieves reviews written by a user
func (r *ReviewRepository) ListByUserID(ctx context.Context, userID string) ([]*domain.Review, error) {
	return r.listByColumn(ctx, "user_id", userID)
}

// ListByRestaurantID retrieves reviews for a restaurant
func (r *ReviewRepository) ListByRestaurantID(ctx context.Context, restaurantID string) ([]*domain.Review, error) {
	return r.listByColumn(ctx, "restaurant_id", restaurantID)
}

func (r *ReviewRepository) listByColumn(ctx context.Context, column, value string) ([]*domain.Review, error) {
	query := `SELECT ` + reviewColumns + ` FROM reviews WHERE ` + column + ` = $1 ORDER BY created_at DESC`

	var reviews []*domain.Review
	if err := r.db.SelectContext(ctx, &reviews, query, value); err != nil {
		return nil, err
	}

	return reviews, nil
}

// Update writes the review back guarded by its version. A concurrent writer
// bumps the version first and this write affects zero rows; the caller then
// reloads and re-applies its transition.
func (r *ReviewRepository) Update(ctx context.Context, review *domain.Review) error {
	query := `
		UPDATE reviews
		SET title = $1, description = $2, food_id = $3, restaurant_id = $4, user_id = $5,
			like_count = $6, dislike_count = $7, liked_by = $8, disliked_by = $9,
			comment_ids = $10, sentiment = $11, updated_at = $12, version = version + 1
		WHERE id = $13 AND version = $14
		RETURNING version
	`

	err := r.db.QueryRowxContext(
		ctx,
		query,
		review.Title,
		review.Description,
		review.FoodID,
		review.RestaurantID,
		review.UserID,
		review.LikeCount,
		review.DislikeCount,
		arrayOrEmpty(review.LikedBy),
		arrayOrEmpty(review.DislikedBy),
		arrayOrEmpty(review.CommentIDs),
		review.Sentiment,
		review.UpdatedAt,
		review.ID,
		review.Version,
	).Scan(&review.Version)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return r.classifyMissedWrite(ctx, review.ID)
		}
		return err
	}

	return nil
}

// classifyMissedWrite distinguishes a lost CAS race from a deleted review
func (r *ReviewRepository) classifyMissedWrite(ctx context.Context, id uuid.UUID) error {
	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM reviews WHERE id = $1)`

	if err := r.db.GetContext(ctx, &exists, query, id); err != nil {
		return err
	}
	if !exists {
		return domain.ErrNotFound
	}

	return domain.ErrConflict
}

// Delete removes a review. Its comments are not cascaded.
func (r *ReviewRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM reviews WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return domain.ErrNotFound
	}

	return nil
}

// arrayOrEmpty keeps nil slices from being written as SQL NULL
func arrayOrEmpty(a pq.StringArray) pq.StringArray {
	if a == nil {
		return pq.StringArray{}
	}
	return a
}
