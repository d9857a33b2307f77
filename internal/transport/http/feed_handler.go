package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apierrors "gridcli/internal/errors"
	"gridcli/internal/middleware"
	"gridcli/pkg/contracts/domain"
)

// FeedServiceInterface answers typed feed requests
type FeedServiceInterface interface {
	Fetch(ctx context.Context, req domain.FeedRequest) ([]domain.FeedRow, error)
}

// FeedResponse is the body returned for a typed feed request
type FeedResponse struct {
	Data []domain.FeedRow `json:"data"`
}

// FeedHandler serves the feed proxy endpoint
type FeedHandler struct {
	service      FeedServiceInterface
	validator    *middleware.Validator
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewFeedHandler creates a new feed handler
func NewFeedHandler(service FeedServiceInterface, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *FeedHandler {
	return &FeedHandler{
		service:      service,
		validator:    middleware.NewValidator(),
		logger:       logger.With(slog.String("component", "feed_handler")),
		errorHandler: errorHandler,
	}
}

// Routes returns the feed routes
func (h *FeedHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(render.SetContentType(render.ContentTypeJSON))
	r.Post("/", h.Fetch)
	return r
}

// Fetch handles POST /api/v1/feeds
func (h *FeedHandler) Fetch(w http.ResponseWriter, r *http.Request) {
	var req domain.FeedRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		h.errorHandler.HandleError(w, r, apierrors.InvalidRequestWithError(err))
		return
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	rows, err := h.service.Fetch(r.Context(), req)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	if rows == nil {
		rows = []domain.FeedRow{}
	}

	h.logger.DebugContext(r.Context(), "Feed request answered",
		slog.String("type", string(req.Type)),
		slog.Int("rows", len(rows)),
		slog.String("request_id", middleware.GetReqID(r.Context())))
	render.JSON(w, r, FeedResponse{Data: rows})
}
