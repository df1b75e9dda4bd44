package handler

import (
	"errors"
	"net/http"

	"github.com/nezubytes/review_service/internal/delivery/http/request"
	"github.com/nezubytes/review_service/internal/delivery/http/response"
	"github.com/nezubytes/review_service/internal/domain"
	"github.com/nezubytes/review_service/internal/pkg/logger"
	"github.com/nezubytes/review_service/internal/usecase/comment"
)

// CommentHandler handles HTTP requests for comments
type CommentHandler struct {
	service *comment.Service
	logger  *logger.Logger
}

// NewCommentHandler creates a new comment handler
func NewCommentHandler(service *comment.Service, log *logger.Logger) *CommentHandler {
	return &CommentHandler{
		service: service,
		logger:  log,
	}
}

// CreateCommentRequest represents the request body for creating a comment
type CreateCommentRequest struct {
	UserID  string `json:"user_id" validate:"required"`
	Content string `json:"content" validate:"required,min=1"`
}

// UpdateCommentRequest represents the request body for editing a comment
type UpdateCommentRequest struct {
	Content string `json:"content" validate:"required,min=1"`
}

// Create handles POST /api/v1/reviews/:id/comments
// @Summary Add a comment to a review
// @Description Create a comment on a review and link it back to the review. If the comment is stored but the backlink could not be written, 202 is returned and a background worker repairs the link.
// @Tags Comments
// @Accept json
// @Produce json
// @Param id path string true "Review ID (UUID)"
// @Param comment body CreateCommentRequest true "Comment details"
// @Success 201 {object} map[string]interface{} "Comment created and linked"
// @Success 202 {object} map[string]interface{} "Comment created, link pending repair"
// @Failure 404 {object} map[string]string "Review not found"
// @Router /reviews/{id}/comments [post]
func (h *CommentHandler) Create(w http.ResponseWriter, r *http.Request) {
	reviewID, err := request.GetUUIDParam(r, "id")
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid review ID")
		return
	}

	var req CreateCommentRequest
	if err := request.DecodeJSON(r, &req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	c := &domain.Comment{
		ReviewID: reviewID,
		UserID:   req.UserID,
		Content:  req.Content,
	}

	created, err := h.service.Create(r.Context(), c)
	if err != nil {
		if errors.Is(err, domain.ErrInconsistentLinkage) {
			response.Accepted(w, created, "comment stored, review link pending repair")
			return
		}
		h.handleError(w, err)
		return
	}

	response.Created(w, created)
}

// ListByReviewID handles GET /api/v1/reviews/:id/comments
// @Summary List comments for a review
// @Tags Comments
// @Produce json
// @Param id path string true "Review ID (UUID)"
// @Success 200 {object} map[string]interface{} "Comments ordered by creation time"
// @Router /reviews/{id}/comments [get]
func (h *CommentHandler) ListByReviewID(w http.ResponseWriter, r *http.Request) {
	reviewID, err := request.GetUUIDParam(r, "id")
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid review ID")
		return
	}

	comments, err := h.service.ListByReviewID(r.Context(), reviewID)
	if err != nil {
		h.handleError(w, err)
		return
	}

	response.Success(w, comments)
}

// Update handles PUT /api/v1/comments/:id
// @Summary Edit a comment's content
// @Tags Comments
// @Accept json
// @Produce json
// @Param id path string true "Comment ID (UUID)"
// @Param comment body UpdateCommentRequest true "New content"
// @Success 200 {object} map[string]interface{} "Updated comment"
// @Failure 404 {object} map[string]string "Comment not found"
// @Router /comments/{id} [put]
func (h *CommentHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := request.GetUUIDParam(r, "id")
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid comment ID")
		return
	}

	var req UpdateCommentRequest
	if err := request.DecodeJSON(r, &req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	updated, err := h.service.Update(r.Context(), id, req.Content)
	if err != nil {
		h.handleError(w, err)
		return
	}

	response.Success(w, updated)
}

func (h *CommentHandler) handleError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		response.Error(w, http.StatusNotFound, "Not found")
	case errors.Is(err, domain.ErrInvalidInput):
		response.Error(w, http.StatusBadRequest, "Invalid input")
	default:
		h.logger.Error("Internal error in comment handler", err)
		response.Error(w, http.StatusInternalServerError, "Internal server error")
	}
}
