package errors

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
)

// ErrorHandler turns handler errors and panics into JSON error bodies and
// writes the access log of the proxy server.
type ErrorHandler struct {
	logger       *slog.Logger
	includeStack bool
}

// NewErrorHandler creates an ErrorHandler; includeStack adds the goroutine
// stack to panic logs.
func NewErrorHandler(logger *slog.Logger, includeStack bool) *ErrorHandler {
	return &ErrorHandler{
		logger:       logger.With(slog.String("component", "error_handler")),
		includeStack: includeStack,
	}
}

// HandleError logs err and responds with its APIError form
func (h *ErrorHandler) HandleError(w http.ResponseWriter, r *http.Request, err error) {
	if err == nil {
		return
	}
	apiErr := ToAPIError(err)
	h.logger.ErrorContext(r.Context(), "request failed",
		slog.String("error", err.Error()),
		slog.String("error_code", apiErr.ErrorCode),
		slog.String("request_id", middleware.GetReqID(r.Context())),
		slog.String("path", r.URL.Path))
	h.respond(w, r, apiErr)
}

// ToAPIError classifies err: cancelled contexts are timeouts, APIErrors pass
// through, AppErrors map by type and everything else is internal.
func ToAPIError(err error) *APIError {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return errTimeout
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return FromAppError(appErr)
	}
	return errInternal
}

// NotFound answers unknown routes
func (h *ErrorHandler) NotFound(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, errRouteNotFound)
}

// MethodNotAllowed answers known routes called with the wrong method
func (h *ErrorHandler) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, errMethodNotAllowed)
}

// Middleware recovers panics as 500 responses and logs one line per request,
// at warn for 4xx and error for 5xx.
func (h *ErrorHandler) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		defer func() {
			if rec := recover(); rec != nil {
				h.recovered(ww, r, rec)
			}
			h.access(r, ww, time.Since(start))
		}()
		next.ServeHTTP(ww, r)
	})
}

func (h *ErrorHandler) recovered(w http.ResponseWriter, r *http.Request, rec interface{}) {
	attrs := []any{slog.Any("panic", rec), slog.String("path", r.URL.Path)}
	if h.includeStack {
		attrs = append(attrs, slog.String("stack", string(debug.Stack())))
	}
	h.logger.ErrorContext(r.Context(), "panic recovered", attrs...)
	h.respond(w, r, panicError(rec))
}

func (h *ErrorHandler) access(r *http.Request, ww middleware.WrapResponseWriter, took time.Duration) {
	level := slog.LevelInfo
	switch status := ww.Status(); {
	case status >= 500:
		level = slog.LevelError
	case status >= 400:
		level = slog.LevelWarn
	}
	h.logger.LogAttrs(r.Context(), level, "http request",
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.Int("status", ww.Status()),
		slog.Int("bytes", ww.BytesWritten()),
		slog.Duration("duration", took),
		slog.String("request_id", middleware.GetReqID(r.Context())))
}

func (h *ErrorHandler) respond(w http.ResponseWriter, r *http.Request, apiErr *APIError) {
	render.Render(w, r, &ErrorResponse{Error: apiErr})
}
