package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/nezubytes/review_service/internal/delivery/http/request"
	"github.com/nezubytes/review_service/internal/delivery/http/response"
	"github.com/nezubytes/review_service/internal/domain"
	"github.com/nezubytes/review_service/internal/pkg/logger"
	"github.com/nezubytes/review_service/internal/usecase/review"
)

// ReviewHandler handles HTTP requests for reviews
type ReviewHandler struct {
	service *review.Service
	logger  *logger.Logger
}

// NewReviewHandler creates a new review handler
func NewReviewHandler(service *review.Service, log *logger.Logger) *ReviewHandler {
	return &ReviewHandler{
		service: service,
		logger:  log,
	}
}

// CreateReviewRequest represents the request body for creating a review.
// Reaction counters, sets and sentiment may be seeded by the caller; the
// sentiment value is overwritten by the classifier during creation.
type CreateReviewRequest struct {
	Title        string   `json:"title" validate:"required,min=1,max=255"`
	Description  string   `json:"description" validate:"required,min=1"`
	FoodID       string   `json:"food_id" validate:"required"`
	RestaurantID string   `json:"restaurant_id" validate:"required"`
	UserID       string   `json:"user_id" validate:"required"`
	LikeCount    int      `json:"like_count"`
	DislikeCount int      `json:"dislike_count"`
	LikedBy      []string `json:"liked_by"`
	DislikedBy   []string `json:"disliked_by"`
	CommentIDs   []string `json:"comment_ids"`
	Sentiment    string   `json:"sentiment"`
}

// Create handles POST /api/v1/reviews
// @Summary Create a new review
// @Description Create a review. The description is classified synchronously by the sentiment service; a classifier failure fails the whole create.
// @Tags Reviews
// @Accept json
// @Produce json
// @Param review body CreateReviewRequest true "Review details"
// @Success 201 {object} map[string]interface{} "Review created successfully"
// @Failure 400 {object} map[string]string "Invalid request body"
// @Failure 502 {object} map[string]string "Sentiment service unavailable"
// @Router /reviews [post]
func (h *ReviewHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateReviewRequest
	if err := request.DecodeJSON(r, &req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	rev := &domain.Review{
		Title:        req.Title,
		Description:  req.Description,
		FoodID:       req.FoodID,
		RestaurantID: req.RestaurantID,
		UserID:       req.UserID,
		LikeCount:    req.LikeCount,
		DislikeCount: req.DislikeCount,
		LikedBy:      req.LikedBy,
		DislikedBy:   req.DislikedBy,
		CommentIDs:   req.CommentIDs,
		Sentiment:    req.Sentiment,
	}

	if err := h.service.Create(r.Context(), rev); err != nil {
		h.handleError(w, err)
		return
	}

	response.Created(w, rev)
}

// List handles GET /api/v1/reviews
// @Summary List all reviews
// @Tags Reviews
// @Produce json
// @Success 200 {object} map[string]interface{} "List of reviews"
// @Router /reviews [get]
func (h *ReviewHandler) List(w http.ResponseWriter, r *http.Request) {
	reviews, err := h.service.List(r.Context())
	if err != nil {
		h.handleError(w, err)
		return
	}

	response.Success(w, reviews)
}

// GetByID handles GET /api/v1/reviews/:id
// @Summary Get a review by id
// @Tags Reviews
// @Produce json
// @Param id path string true "Review ID (UUID)"
// @Success 200 {object} map[string]interface{} "The review"
// @Failure 404 {object} map[string]string "Review not found"
// @Router /reviews/{id} [get]
func (h *ReviewHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, err := request.GetUUIDParam(r, "id")
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid review ID")
		return
	}

	rev, err := h.service.GetByID(r.Context(), id)
	if err != nil {
		h.handleError(w, err)
		return
	}

	response.Success(w, rev)
}

// ListByFoodID handles GET /api/v1/reviews/food/:foodId
func (h *ReviewHandler) ListByFoodID(w http.ResponseWriter, r *http.Request) {
	foodID, err := request.GetStringParam(r, "foodId")
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid food ID")
		return
	}

	reviews, err := h.service.ListByFoodID(r.Context(), foodID)
	if err != nil {
		h.handleError(w, err)
		return
	}

	response.Success(w, reviews)
}

// ListByUserID handles GET /api/v1/reviews/user/:userId
func (h *ReviewHandler) ListByUserID(w http.ResponseWriter, r *http.Request) {
	userID, err := request.GetStringParam(r, "userId")
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid user ID")
		return
	}

	reviews, err := h.service.ListByUserID(r.Context(), userID)
	if err != nil {
		h.handleError(w, err)
		return
	}

	response.Success(w, reviews)
}

// ListByRestaurantID handles GET /api/v1/reviews/restaurant/:restaurantId
func (h *ReviewHandler) ListByRestaurantID(w http.ResponseWriter, r *http.Request) {
	restaurantID, err := request.GetStringParam(r, "restaurantId")
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid restaurant ID")
		return
	}

	reviews, err := h.service.ListByRestaurantID(r.Context(), restaurantID)
	if err != nil {
		h.handleError(w, err)
		return
	}

	response.Success(w, reviews)
}

// Update handles PUT /api/v1/reviews/:id
// @Summary Partially update a review
// @Description Merge semantics: scalar fields replace when present, list fields append when present and non-empty.
// @Tags Reviews
// @Accept json
// @Produce json
// @Param id path string true "Review ID (UUID)"
// @Param review body review.UpdateInput true "Fields to update"
// @Success 200 {object} map[string]interface{} "Updated review"
// @Failure 404 {object} map[string]string "Review not found"
// @Router /reviews/{id} [put]
func (h *ReviewHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := request.GetUUIDParam(r, "id")
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid review ID")
		return
	}

	var input review.UpdateInput
	if err := request.DecodeJSON(r, &input); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	rev, err := h.service.Update(r.Context(), id, &input)
	if err != nil {
		h.handleError(w, err)
		return
	}

	response.Success(w, rev)
}

// Delete handles DELETE /api/v1/reviews/:id
// @Summary Delete a review
// @Description Delete a review. Its comments are not cascaded.
// @Tags Reviews
// @Param id path string true "Review ID (UUID)"
// @Success 204 "Review deleted successfully"
// @Failure 404 {object} map[string]string "Review not found"
// @Router /reviews/{id} [delete]
func (h *ReviewHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := request.GetUUIDParam(r, "id")
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid review ID")
		return
	}

	if err := h.service.Delete(r.Context(), id); err != nil {
		h.handleError(w, err)
		return
	}

	response.NoContent(w)
}

// Like handles POST /api/v1/reviews/:id/like/:userId
func (h *ReviewHandler) Like(w http.ResponseWriter, r *http.Request) {
	h.reaction(w, r, h.service.Like)
}

// Dislike handles POST /api/v1/reviews/:id/dislike/:userId
func (h *ReviewHandler) Dislike(w http.ResponseWriter, r *http.Request) {
	h.reaction(w, r, h.service.Dislike)
}

// Unlike handles DELETE /api/v1/reviews/:id/like/:userId
func (h *ReviewHandler) Unlike(w http.ResponseWriter, r *http.Request) {
	h.reaction(w, r, h.service.Unlike)
}

// Undislike handles DELETE /api/v1/reviews/:id/dislike/:userId
func (h *ReviewHandler) Undislike(w http.ResponseWriter, r *http.Request) {
	h.reaction(w, r, h.service.Undislike)
}

func (h *ReviewHandler) reaction(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, id uuid.UUID, userID string) (*domain.Review, error)) {
	id, err := request.GetUUIDParam(r, "id")
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid review ID")
		return
	}

	userID, err := request.GetStringParam(r, "userId")
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid user ID")
		return
	}

	rev, err := op(r.Context(), id, userID)
	if err != nil {
		h.handleError(w, err)
		return
	}

	response.Success(w, rev)
}

// handleError handles service layer errors and returns appropriate HTTP responses
func (h *ReviewHandler) handleError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		response.Error(w, http.StatusNotFound, "Review not found")
	case errors.Is(err, domain.ErrAlreadyReacted):
		response.Error(w, http.StatusConflict, "User has already reacted to this review")
	case errors.Is(err, domain.ErrNotReacted):
		response.Error(w, http.StatusConflict, "User has not reacted to this review")
	case errors.Is(err, domain.ErrConflict):
		response.Error(w, http.StatusConflict, "Review was modified concurrently, retry")
	case errors.Is(err, domain.ErrInvalidInput):
		response.Error(w, http.StatusBadRequest, "Invalid input")
	case errors.Is(err, domain.ErrUpstreamUnavailable):
		response.Error(w, http.StatusBadGateway, "Sentiment service unavailable")
	default:
		h.logger.Error("Internal error in review handler", err)
		response.Error(w, http.StatusInternalServerError, "Internal server error")
	}
}
