package review

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/nezubytes/review_service/internal/client/sentiment"
	"github.com/nezubytes/review_service/internal/domain"
	"github.com/nezubytes/review_service/internal/pkg/logger"
	"github.com/nezubytes/review_service/internal/pkg/validator"
	"github.com/nezubytes/review_service/internal/repository/cache"
)

const (
	// Bounded retry for optimistic-version writes. The store is the only
	// serialization point between concurrent writers of the same review.
	casMaxRetries     = 3
	casInitialBackoff = 25 * time.Millisecond
)

// SentimentAnnotator classifies review text. Called once, synchronously,
// during review creation; failure fails the whole create.
type SentimentAnnotator interface {
	Analyze(ctx context.Context, text string) (*sentiment.Result, error)
}

// EventPublisher defines the interface for publishing events
type EventPublisher interface {
	Publish(ctx context.Context, subject string, data []byte) error
}

// ReviewCache defines the caching interface for reviews and review lists
type ReviewCache interface {
	GetReview(ctx context.Context, id uuid.UUID) (*domain.Review, error)
	SetReview(ctx context.Context, review *domain.Review) error
	GetList(ctx context.Context, dimension, key string) ([]*domain.Review, error)
	SetList(ctx context.Context, dimension, key string, reviews []*domain.Review) error
	InvalidateReview(ctx context.Context, review *domain.Review) error
}

// ReviewEvent represents an event related to a review
type ReviewEvent struct {
	EventType string         `json:"event_type"`
	Timestamp time.Time      `json:"timestamp"`
	ReviewID  uuid.UUID      `json:"review_id"`
	Review    *domain.Review `json:"review,omitempty"`
}

// UpdateInput carries a partial review update. Pointer fields distinguish
// "absent" from "set"; scalar fields replace, list fields append.
type UpdateInput struct {
	Title        *string  `json:"title"`
	Description  *string  `json:"description"`
	FoodID       *string  `json:"food_id"`
	RestaurantID *string  `json:"restaurant_id"`
	UserID       *string  `json:"user_id"`
	LikeCount    *int     `json:"like_count"`
	DislikeCount *int     `json:"dislike_count"`
	LikedBy      []string `json:"liked_by"`
	DislikedBy   []string `json:"disliked_by"`
	CommentIDs   []string `json:"comment_ids"`
}

func (in *UpdateInput) apply(r *domain.Review) {
	if in.Title != nil {
		r.Title = *in.Title
	}
	if in.Description != nil {
		r.Description = *in.Description
	}
	if in.FoodID != nil {
		r.FoodID = *in.FoodID
	}
	if in.RestaurantID != nil {
		r.RestaurantID = *in.RestaurantID
	}
	if in.UserID != nil {
		r.UserID = *in.UserID
	}
	if in.LikeCount != nil {
		r.LikeCount = *in.LikeCount
	}
	if in.DislikeCount != nil {
		r.DislikeCount = *in.DislikeCount
	}
	if len(in.LikedBy) > 0 {
		r.LikedBy = append(r.LikedBy, in.LikedBy...)
	}
	if len(in.DislikedBy) > 0 {
		r.DislikedBy = append(r.DislikedBy, in.DislikedBy...)
	}
	if len(in.CommentIDs) > 0 {
		r.CommentIDs = append(r.CommentIDs, in.CommentIDs...)
	}
	r.UpdatedAt = time.Now()
}

// Service handles review business logic: creation with sentiment annotation,
// queries with caching, partial updates and the four reaction toggles.
type Service struct {
	repo      domain.ReviewRepository
	cache     ReviewCache
	publisher EventPublisher
	annotator SentimentAnnotator
	logger    *logger.Logger
}

// NewService creates a new review service
func NewService(
	repo domain.ReviewRepository,
	cache ReviewCache,
	publisher EventPublisher,
	annotator SentimentAnnotator,
	log *logger.Logger,
) *Service {
	return &Service{
		repo:      repo,
		cache:     cache,
		publisher: publisher,
		annotator: annotator,
		logger:    log,
	}
}

// Create creates a new review. The sentiment label is mandatory at creation:
// when the annotator call fails nothing is persisted.
func (s *Service) Create(ctx context.Context, review *domain.Review) error {
	if err := validator.Get().Struct(review); err != nil {
		s.logger.Error("Review validation failed", err)
		return domain.ErrInvalidInput
	}

	result, err := s.annotator.Analyze(ctx, review.Description)
	if err != nil {
		s.logger.Error("Sentiment annotation failed, aborting create", err)
		return fmt.Errorf("%w: %v", domain.ErrUpstreamUnavailable, err)
	}
	review.Sentiment = result.Sentiment

	if err := s.repo.Create(ctx, review); err != nil {
		s.logger.Error("Failed to create review", err)
		return err
	}

	s.invalidate(ctx, review)
	s.publishEvent(ctx, "review.created", review)

	s.logger.WithFields(map[string]interface{}{
		"review_id": review.ID,
		"food_id":   review.FoodID,
		"sentiment": review.Sentiment,
	}).Info("Review created successfully")

	return nil
}

// GetByID retrieves a review by ID
func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (*domain.Review, error) {
	if review, err := s.cache.GetReview(ctx, id); err == nil {
		s.logger.Debugf("Cache hit for review %s", id)
		return review, nil
	}

	review, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.logger.Debugf("Review not found: %s", id)
		} else {
			s.logger.Error("Failed to get review", err)
		}
		return nil, err
	}

	if err := s.cache.SetReview(ctx, review); err != nil {
		s.logger.Warnf("Failed to cache review %s: %v", id, err)
	}

	return review, nil
}

// List retrieves all reviews
func (s *Service) List(ctx context.Context) ([]*domain.Review, error) {
	return s.list(ctx, cache.DimensionAll, "", func() ([]*domain.Review, error) {
		return s.repo.List(ctx)
	})
}

// ListByFoodID retrieves reviews for a food
func (s *Service) ListByFoodID(ctx context.Context, foodID string) ([]*domain.Review, error) {
	return s.list(ctx, cache.DimensionFood, foodID, func() ([]*domain.Review, error) {
		return s.repo.ListByFoodID(ctx, foodID)
	})
}

// ListByUserID retrieves reviews written by a user
func (s *Service) ListByUserID(ctx context.Context, userID string) ([]*domain.Review, error) {
	return s.list(ctx, cache.DimensionUser, userID, func() ([]*domain.Review, error) {
		return s.repo.ListByUserID(ctx, userID)
	})
}

// ListByRestaurantID retrieves reviews for a restaurant
func (s *Service) ListByRestaurantID(ctx context.Context, restaurantID string) ([]*domain.Review, error) {
	return s.list(ctx, cache.DimensionRestaurant, restaurantID, func() ([]*domain.Review, error) {
		return s.repo.ListByRestaurantID(ctx, restaurantID)
	})
}

func (s *Service) list(ctx context.Context, dimension, key string, fetch func() ([]*domain.Review, error)) ([]*domain.Review, error) {
	if reviews, err := s.cache.GetList(ctx, dimension, key); err == nil {
		s.logger.Debugf("Cache hit for reviews list %s:%s", dimension, key)
		return reviews, nil
	}

	reviews, err := fetch()
	if err != nil {
		s.logger.Error("Failed to list reviews", err)
		return nil, err
	}

	if err := s.cache.SetList(ctx, dimension, key, reviews); err != nil {
		s.logger.Warnf("Failed to cache reviews list %s:%s: %v", dimension, key, err)
	}

	return reviews, nil
}

// Update applies a partial update: scalar fields replace when present, list
// fields append when present and non-empty.
func (s *Service) Update(ctx context.Context, id uuid.UUID, input *UpdateInput) (*domain.Review, error) {
	var previous domain.Review

	review, err := s.mutate(ctx, id, func(r *domain.Review) error {
		previous = *r
		input.apply(r)
		return nil
	})
	if err != nil {
		return nil, err
	}

	// A moved foreign key leaves the old dimension list stale as well
	s.invalidate(ctx, &previous)
	s.invalidate(ctx, review)
	s.publishEvent(ctx, "review.updated", review)

	s.logger.WithFields(map[string]interface{}{
		"review_id": review.ID,
	}).Info("Review updated successfully")

	return review, nil
}

// Delete deletes a review. Comments referencing it are left behind; the
// linkage worker treats them as tombstones.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	review, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		s.logger.Error("Failed to delete review", err)
		return err
	}

	s.invalidate(ctx, review)
	s.publishEvent(ctx, "review.deleted", review)

	s.logger.WithFields(map[string]interface{}{
		"review_id": id,
	}).Info("Review deleted successfully")

	return nil
}

// Like records a like by the user, moving them off the dislike side if needed
func (s *Service) Like(ctx context.Context, reviewID uuid.UUID, userID string) (*domain.Review, error) {
	return s.react(ctx, reviewID, userID, (*domain.Review).Like)
}

// Dislike records a dislike by the user, moving them off the like side if needed
func (s *Service) Dislike(ctx context.Context, reviewID uuid.UUID, userID string) (*domain.Review, error) {
	return s.react(ctx, reviewID, userID, (*domain.Review).Dislike)
}

// Unlike removes the user's like
func (s *Service) Unlike(ctx context.Context, reviewID uuid.UUID, userID string) (*domain.Review, error) {
	return s.react(ctx, reviewID, userID, (*domain.Review).Unlike)
}

// Undislike removes the user's dislike
func (s *Service) Undislike(ctx context.Context, reviewID uuid.UUID, userID string) (*domain.Review, error) {
	return s.react(ctx, reviewID, userID, (*domain.Review).Undislike)
}

func (s *Service) react(ctx context.Context, reviewID uuid.UUID, userID string, transition func(*domain.Review, string) error) (*domain.Review, error) {
	review, err := s.mutate(ctx, reviewID, func(r *domain.Review) error {
		return transition(r, userID)
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, review)
	s.publishEvent(ctx, "review.reacted", review)

	s.logger.WithFields(map[string]interface{}{
		"review_id":     review.ID,
		"user_id":       userID,
		"like_count":    review.LikeCount,
		"dislike_count": review.DislikeCount,
	}).Info("Reaction applied")

	return review, nil
}

// mutate runs a read-transition-write cycle against the store's optimistic
// version, retrying when a concurrent writer wins the race. Business-rule
// rejections from the transition abort without a write.
func (s *Service) mutate(ctx context.Context, reviewID uuid.UUID, transition func(*domain.Review) error) (*domain.Review, error) {
	backoff := casInitialBackoff

	for attempt := 0; attempt < casMaxRetries; attempt++ {
		review, err := s.repo.GetByID(ctx, reviewID)
		if err != nil {
			return nil, err
		}

		if err := transition(review); err != nil {
			return nil, err
		}

		err = s.repo.Update(ctx, review)
		if err == nil {
			return review, nil
		}
		if !errors.Is(err, domain.ErrConflict) {
			s.logger.Error("Failed to update review", err)
			return nil, err
		}

		s.logger.Warnf("Version conflict on review %s, retrying (attempt %d)", reviewID, attempt+1)
		time.Sleep(backoff)
		backoff *= 2
	}

	return nil, domain.ErrConflict
}

func (s *Service) invalidate(ctx context.Context, review *domain.Review) {
	if err := s.cache.InvalidateReview(ctx, review); err != nil {
		s.logger.Warnf("Failed to invalidate cache for review %s: %v", review.ID, err)
	}
}

// publishEvent publishes a review event (non-blocking)
func (s *Service) publishEvent(ctx context.Context, eventType string, review *domain.Review) {
	event := ReviewEvent{
		EventType: eventType,
		Timestamp: time.Now(),
		ReviewID:  review.ID,
		Review:    review,
	}

	data, err := json.Marshal(event)
	if err != nil {
		s.logger.Errorf(err, "Failed to marshal event for review %s", review.ID)
		return
	}

	// Publish in background to avoid blocking
	go func() {
		if err := s.publisher.Publish(context.Background(), "reviews.events", data); err != nil {
			s.logger.Errorf(err, "Failed to publish event for review %s", review.ID)
		}
	}()
}
