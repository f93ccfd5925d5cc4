package middleware

import (
	"encoding/json"
	"net/http"
	"time"

	"storefront/internal/apperrors"

	"go.uber.org/zap"
)

// ErrorResponse represents a structured error response
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains error information
type ErrorDetail struct {
	Code      string                 `json:"code"`
	Message   string                 `json:"message"`
	Details   map[string]interface{} `json:"details,omitempty"`
	Timestamp string                 `json:"timestamp"`
}

// RespondWithError sends a structured error response
func RespondWithError(w http.ResponseWriter, statusCode int, message string) {
	RespondWithErrorDetails(w, statusCode, message, nil)
}

// RespondWithErrorDetails sends a structured error response with additional details
func RespondWithErrorDetails(w http.ResponseWriter, statusCode int, message string, details map[string]interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	response := ErrorResponse{
		Error: ErrorDetail{
			Code:      http.StatusText(statusCode),
			Message:   message,
			Details:   details,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		},
	}

	json.NewEncoder(w).Encode(response)
}

// RespondWithValidationErrors sends validation error response
func RespondWithValidationErrors(w http.ResponseWriter, message string, errors []apperrors.ValidationDetail) {
	var details map[string]interface{}
	if len(errors) > 0 {
		details = map[string]interface{}{"validation_errors": errors}
	}

	RespondWithErrorDetails(w, http.StatusBadRequest, message, details)
}

// RespondWithAppError maps a service error to its HTTP status. Anything that
// is not a known application error is logged and reported as a 500.
func RespondWithAppError(w http.ResponseWriter, r *http.Request, err error, logger *zap.Logger) {
	if ve, ok := apperrors.IsValidationError(err); ok {
		RespondWithValidationErrors(w, ve.Message, ve.Details)
		return
	}
	if nf, ok := apperrors.IsNotFoundError(err); ok {
		RespondWithError(w, http.StatusNotFound, nf.Message)
		return
	}
	// slug conflicts are reported as bad requests
	if ce, ok := apperrors.IsConflictError(err); ok {
		RespondWithError(w, http.StatusBadRequest, ce.Message)
		return
	}
	if ue, ok := apperrors.IsUnauthorizedError(err); ok {
		RespondWithError(w, http.StatusUnauthorized, ue.Message)
		return
	}

	logger.Error("Request failed",
		zap.Error(err),
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
	)
	RespondWithError(w, http.StatusInternalServerError, "internal server error")
}

// ErrorHandlingMiddleware catches panics and converts them to 500 errors
func ErrorHandlingMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					if err == http.ErrAbortHandler {
						panic(err)
					}

					logger.Error("Panic recovered",
						zap.Any("error", err),
						zap.String("path", r.URL.Path),
						zap.String("method", r.Method),
						zap.Stack("stack"),
					)

					RespondWithError(w, http.StatusInternalServerError, "internal server error")
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}

// RespondWithJSON sends a JSON response
func RespondWithJSON(w http.ResponseWriter, statusCode int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(payload)
}
