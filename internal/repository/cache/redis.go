package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/nezubytes/review_service/internal/domain"
)

// List dimensions the cache knows about
const (
	DimensionAll        = "all"
	DimensionFood       = "food"
	DimensionUser       = "user"
	DimensionRestaurant = "restaurant"
)

// RedisCache caches single reviews and filtered review lists
type RedisCache struct {
	client        *redis.Client
	reviewTTL     time.Duration
	reviewListTTL time.Duration
}

// NewRedisCache creates a new Redis cache instance
func NewRedisCache(client *redis.Client, reviewTTL, reviewListTTL time.Duration) *RedisCache {
	return &RedisCache{
		client:        client,
		reviewTTL:     reviewTTL,
		reviewListTTL: reviewListTTL,
	}
}

func (c *RedisCache) reviewKey(id uuid.UUID) string {
	return fmt.Sprintf("review:%s", id.String())
}

func (c *RedisCache) listKey(dimension, key string) string {
	if dimension == DimensionAll {
		return "reviews:all"
	}
	return fmt.Sprintf("reviews:%s:%s", dimension, key)
}

// GetReview retrieves a cached review
func (c *RedisCache) GetReview(ctx context.Context, id uuid.UUID) (*domain.Review, error) {
	val, err := c.client.Get(ctx, c.reviewKey(id)).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}

	var review domain.Review
	if err := json.Unmarshal([]byte(val), &review); err != nil {
		return nil, err
	}

	return &review, nil
}

// SetReview stores a review in cache
func (c *RedisCache) SetReview(ctx context.Context, review *domain.Review) error {
	data, err := json.Marshal(review)
	if err != nil {
		return err
	}

	return c.client.Set(ctx, c.reviewKey(review.ID), data, c.reviewTTL).Err()
}

// GetList retrieves a cached review list for a dimension (all/food/user/restaurant)
func (c *RedisCache) GetList(ctx context.Context, dimension, key string) ([]*domain.Review, error) {
	val, err := c.client.Get(ctx, c.listKey(dimension, key)).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}

	var reviews []*domain.Review
	if err := json.Unmarshal([]byte(val), &reviews); err != nil {
		return nil, err
	}

	return reviews, nil
}

// SetList stores a review list in cache
func (c *RedisCache) SetList(ctx context.Context, dimension, key string, reviews []*domain.Review) error {
	data, err := json.Marshal(reviews)
	if err != nil {
		return err
	}

	return c.client.Set(ctx, c.listKey(dimension, key), data, c.reviewListTTL).Err()
}

// InvalidateReview removes the review's id entry and every list it can appear
// in. Called after any mutation of the review, including backlink appends.
func (c *RedisCache) InvalidateReview(ctx context.Context, review *domain.Review) error {
	keys := []string{
		c.reviewKey(review.ID),
		c.listKey(DimensionAll, ""),
		c.listKey(DimensionFood, review.FoodID),
		c.listKey(DimensionUser, review.UserID),
		c.listKey(DimensionRestaurant, review.RestaurantID),
	}

	return c.client.Unlink(ctx, keys...).Err()
}
