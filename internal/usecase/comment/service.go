package comment

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/nezubytes/review_service/internal/domain"
	"github.com/nezubytes/review_service/internal/pkg/logger"
	"github.com/nezubytes/review_service/internal/pkg/validator"
)

const (
	casMaxRetries     = 3
	casInitialBackoff = 25 * time.Millisecond
)

// EventPublisher defines the interface for publishing events
type EventPublisher interface {
	Publish(ctx context.Context, subject string, data []byte) error
}

// ReviewInvalidator drops cached entries for a review after its backlink
// list changed
type ReviewInvalidator interface {
	InvalidateReview(ctx context.Context, review *domain.Review) error
}

// CommentEvent represents an event related to a comment. The linkage worker
// consumes these to rebuild review backlinks.
type CommentEvent struct {
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
	ReviewID  uuid.UUID `json:"review_id"`
	CommentID uuid.UUID `json:"comment_id"`
}

// Service coordinates comment creation across the two separately-persisted
// aggregates: the comment row and the owning review's backlink list. There is
// no multi-document transaction; the comment is written first so a partial
// failure leaves a recoverable unlinked comment rather than a review pointing
// at a comment that does not exist.
type Service struct {
	comments    domain.CommentRepository
	reviews     domain.ReviewRepository
	invalidator ReviewInvalidator
	publisher   EventPublisher
	logger      *logger.Logger
}

// NewService creates a new comment service
func NewService(
	comments domain.CommentRepository,
	reviews domain.ReviewRepository,
	invalidator ReviewInvalidator,
	publisher EventPublisher,
	log *logger.Logger,
) *Service {
	return &Service{
		comments:    comments,
		reviews:     reviews,
		invalidator: invalidator,
		publisher:   publisher,
		logger:      log,
	}
}

// Create persists a comment and appends its id to the owning review's
// backlink list.
//
// The review is resolved before anything is written, so a bad review id
// produces no orphan comment. When the comment write succeeds but the
// backlink write does not, the comment is returned together with
// ErrInconsistentLinkage; the already-published comment event lets the
// linkage worker repair the review.
func (s *Service) Create(ctx context.Context, comment *domain.Comment) (*domain.Comment, error) {
	if err := validator.Get().Struct(comment); err != nil {
		s.logger.Error("Comment validation failed", err)
		return nil, domain.ErrInvalidInput
	}

	if _, err := s.reviews.GetByID(ctx, comment.ReviewID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.logger.Debugf("Review not found for comment: %s", comment.ReviewID)
		}
		return nil, err
	}

	if err := s.comments.Create(ctx, comment); err != nil {
		s.logger.Error("Failed to create comment", err)
		return nil, err
	}

	s.publishEvent(ctx, "comment.created", comment)

	if err := s.linkToReview(ctx, comment); err != nil {
		s.logger.WithFields(map[string]interface{}{
			"comment_id": comment.ID,
			"review_id":  comment.ReviewID,
			"error":      err.Error(),
		}).Error("Comment stored but review backlink write failed", err)
		return comment, domain.ErrInconsistentLinkage
	}

	s.logger.WithFields(map[string]interface{}{
		"comment_id": comment.ID,
		"review_id":  comment.ReviewID,
	}).Info("Comment created successfully")

	return comment, nil
}

// linkToReview appends the comment id to the review's backlink list using the
// store's optimistic version. The append is keyed by comment id, so a replay
// after a conflict does not duplicate the entry.
func (s *Service) linkToReview(ctx context.Context, comment *domain.Comment) error {
	backoff := casInitialBackoff

	for attempt := 0; attempt < casMaxRetries; attempt++ {
		review, err := s.reviews.GetByID(ctx, comment.ReviewID)
		if err != nil {
			return err
		}

		if !review.AppendCommentID(comment.ID.String()) {
			// Already linked by an earlier attempt or by the worker
			return nil
		}
		review.UpdatedAt = time.Now()

		err = s.reviews.Update(ctx, review)
		if err == nil {
			if invErr := s.invalidator.InvalidateReview(ctx, review); invErr != nil {
				s.logger.Warnf("Failed to invalidate cache for review %s: %v", review.ID, invErr)
			}
			return nil
		}
		if !errors.Is(err, domain.ErrConflict) {
			return err
		}

		s.logger.Warnf("Version conflict linking comment %s, retrying (attempt %d)", comment.ID, attempt+1)
		time.Sleep(backoff)
		backoff *= 2
	}

	return domain.ErrConflict
}

// ListByReviewID retrieves all comments for a review
func (s *Service) ListByReviewID(ctx context.Context, reviewID uuid.UUID) ([]*domain.Comment, error) {
	comments, err := s.comments.ListByReviewID(ctx, reviewID)
	if err != nil {
		s.logger.Error("Failed to list comments", err)
		return nil, err
	}

	return comments, nil
}

// Update replaces the comment content. Single-aggregate: the owning review
// is not touched.
func (s *Service) Update(ctx context.Context, id uuid.UUID, content string) (*domain.Comment, error) {
	comment, err := s.comments.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	comment.Content = content
	if err := s.comments.Update(ctx, comment); err != nil {
		s.logger.Error("Failed to update comment", err)
		return nil, err
	}

	s.publishEvent(ctx, "comment.updated", comment)

	return comment, nil
}

// publishEvent publishes a comment event (non-blocking)
func (s *Service) publishEvent(ctx context.Context, eventType string, comment *domain.Comment) {
	event := CommentEvent{
		EventType: eventType,
		Timestamp: time.Now(),
		ReviewID:  comment.ReviewID,
		CommentID: comment.ID,
	}

	data, err := json.Marshal(event)
	if err != nil {
		s.logger.Errorf(err, "Failed to marshal event for comment %s", comment.ID)
		return
	}

	go func() {
		if err := s.publisher.Publish(context.Background(), "comments.events", data); err != nil {
			s.logger.Errorf(err, "Failed to publish event for comment %s", comment.ID)
		}
	}()
}
