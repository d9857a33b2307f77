package errors

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/render"
)

// APIError is the error object of a proxy response body
type APIError struct {
	StatusCode int         `json:"status_code"`
	ErrorCode  string      `json:"error_code"`
	Message    string      `json:"message"`
	Details    interface{} `json:"details,omitempty"`
}

func (e *APIError) Error() string {
	return e.Message
}

// ValidationError names one rejected request field
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ErrorResponse is the body written for every failed request:
// {"success": false, "error": {...}}
type ErrorResponse struct {
	Success bool      `json:"success"`
	Error   *APIError `json:"error"`
}

// Render sets the response status from the wrapped APIError
func (e *ErrorResponse) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, e.Error.StatusCode)
	return nil
}

// New builds an APIError without details
func New(statusCode int, errorCode, message string) *APIError {
	return &APIError{StatusCode: statusCode, ErrorCode: errorCode, Message: message}
}

// InvalidRequestWithError reports a body that could not be decoded
func InvalidRequestWithError(err error) *APIError {
	apiErr := New(http.StatusBadRequest, "INVALID_REQUEST", "Invalid request format")
	apiErr.Details = err.Error()
	return apiErr
}

// NewValidationErrors reports every field a request failed on
func NewValidationErrors(fields []ValidationError) *APIError {
	apiErr := New(http.StatusBadRequest, "VALIDATION_FAILED", "Request validation failed")
	apiErr.Details = fields
	return apiErr
}

var (
	errRouteNotFound    = New(http.StatusNotFound, "NOT_FOUND", "Resource not found")
	errMethodNotAllowed = New(http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed")
	errInternal         = New(http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "Internal server error")
	errTimeout          = New(http.StatusGatewayTimeout, "TIMEOUT", "The request took too long to process and was cancelled")
)

// statusByType is the HTTP status of each AppError kind; unlisted kinds are 500
var statusByType = map[ErrorType]int{
	ErrTypeValidation: http.StatusBadRequest,
	ErrTypeNotFound:   http.StatusNotFound,
	ErrTypeNetwork:    http.StatusBadGateway,
	ErrTypeContract:   http.StatusBadGateway,
}

// FromAppError converts an AppError into the APIError sent to clients
func FromAppError(err *AppError) *APIError {
	status, ok := statusByType[err.Type]
	if !ok {
		status = http.StatusInternalServerError
	}
	apiErr := New(status, string(err.Type), err.Message)
	if err.Cause != nil {
		apiErr.Details = err.Cause.Error()
	}
	return apiErr
}

func panicError(rec interface{}) *APIError {
	apiErr := *errInternal
	apiErr.Details = fmt.Sprintf("%v", rec)
	return &apiErr
}

// WriteError writes err as a JSON error body outside of chi/render
func WriteError(w http.ResponseWriter, err *APIError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(err.StatusCode)
	json.NewEncoder(w).Encode(ErrorResponse{Error: err})
}
