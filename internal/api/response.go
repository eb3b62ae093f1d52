// Package api holds the JSON envelope helpers shared by handlers and middleware.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/cloo-solutions/msassist/internal/domain"
	"github.com/cloo-solutions/msassist/internal/logger"
	"go.uber.org/zap"
)

// SuccessResponse wraps successful API responses
type SuccessResponse struct {
	Data interface{} `json:"data"`
}

// ErrorResponse represents an error API response
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
	// ChunksIndexed is set on ingestion failures.
	ChunksIndexed *int `json:"chunks_indexed,omitempty"`
}

// JSON writes a JSON response with the given status code
func JSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// Success writes a successful JSON response
func Success(w http.ResponseWriter, status int, data interface{}) {
	JSON(w, status, SuccessResponse{Data: data})
}

// Error writes an error JSON response
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, ErrorResponse{Error: message})
}

// DomainErrorToHTTP maps domain errors anywhere in err's chain to HTTP status codes
func DomainErrorToHTTP(err error) int {
	if err == nil {
		return http.StatusOK
	}

	var domainErr *domain.DomainError
	if !errors.As(err, &domainErr) {
		return http.StatusInternalServerError
	}

	switch domainErr.Code {
	case domain.ErrCodeValidation:
		return http.StatusBadRequest
	case domain.ErrCodeNotFound:
		return http.StatusNotFound
	case domain.ErrCodeAlreadyExists:
		return http.StatusConflict
	case domain.ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case domain.ErrCodeForbidden:
		return http.StatusForbidden
	case domain.ErrCodeUnsupportedFormat:
		return http.StatusUnsupportedMediaType
	case domain.ErrCodeIngestionFailed:
		return http.StatusUnprocessableEntity
	case domain.ErrCodeGenerationUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// HandleError writes the error response for err. Client errors carry the
// domain message; server errors are logged and answered generically.
func HandleError(ctx context.Context, w http.ResponseWriter, err error) {
	JSON(w, DomainErrorToHTTP(err), errorBody(ctx, err))
}

// HandleIngestionError is HandleError plus the number of chunks that were
// committed before the failure.
func HandleIngestionError(ctx context.Context, w http.ResponseWriter, err error, chunksIndexed int) {
	body := errorBody(ctx, err)
	if body.Code == domain.ErrCodeIngestionFailed {
		body.ChunksIndexed = &chunksIndexed
	}
	JSON(w, DomainErrorToHTTP(err), body)
}

func errorBody(ctx context.Context, err error) ErrorResponse {
	status := DomainErrorToHTTP(err)
	code := domain.ErrorCode(err)

	if status >= http.StatusInternalServerError {
		logger.FromContext(ctx).Error("request failed", zap.Int("status", status), zap.Error(err))
	}
	if code == "" || code == domain.ErrCodeInternalError {
		return ErrorResponse{Error: "internal server error", Code: domain.ErrCodeInternalError}
	}

	var domainErr *domain.DomainError
	errors.As(err, &domainErr)
	return ErrorResponse{Error: domainErr.Message, Code: code}
}
