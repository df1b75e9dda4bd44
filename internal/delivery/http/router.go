package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/nezubytes/review_service/internal/config"
	"github.com/nezubytes/review_service/internal/delivery/http/handler"
	"github.com/nezubytes/review_service/internal/delivery/http/middleware"
	"github.com/nezubytes/review_service/internal/delivery/http/response"
	"github.com/nezubytes/review_service/internal/pkg/logger"
)

// Router holds HTTP handlers and router configuration
type Router struct {
	reviewHandler  *handler.ReviewHandler
	commentHandler *handler.CommentHandler
	logger         *logger.Logger
	cfg            *config.Config
}

// NewRouter creates a new HTTP router
func NewRouter(
	reviewHandler *handler.ReviewHandler,
	commentHandler *handler.CommentHandler,
	cfg *config.Config,
	log *logger.Logger,
) *Router {
	return &Router{
		reviewHandler:  reviewHandler,
		commentHandler: commentHandler,
		logger:         log,
		cfg:            cfg,
	}
}

// Setup configures and returns the HTTP router
func (rt *Router) Setup() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recovery(rt.logger))
	r.Use(middleware.Logger(rt.logger))
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   rt.cfg.Server.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/health", rt.healthCheck)
	r.Get("/swagger/*", httpSwagger.WrapHandler)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/reviews", func(r chi.Router) {
			r.Post("/", rt.reviewHandler.Create)
			r.Get("/", rt.reviewHandler.List)
			r.Get("/food/{foodId}", rt.reviewHandler.ListByFoodID)
			r.Get("/user/{userId}", rt.reviewHandler.ListByUserID)
			r.Get("/restaurant/{restaurantId}", rt.reviewHandler.ListByRestaurantID)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", rt.reviewHandler.GetByID)
				r.Put("/", rt.reviewHandler.Update)
				r.Delete("/", rt.reviewHandler.Delete)

				r.Post("/like/{userId}", rt.reviewHandler.Like)
				r.Delete("/like/{userId}", rt.reviewHandler.Unlike)
				r.Post("/dislike/{userId}", rt.reviewHandler.Dislike)
				r.Delete("/dislike/{userId}", rt.reviewHandler.Undislike)

				r.Post("/comments", rt.commentHandler.Create)
				r.Get("/comments", rt.commentHandler.ListByReviewID)
			})
		})

		r.Route("/comments", func(r chi.Router) {
			r.Put("/{id}", rt.commentHandler.Update)
		})
	})

	return r
}

// healthCheck handles health check requests
func (rt *Router) healthCheck(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
	})
}
