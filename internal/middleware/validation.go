package middleware

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"storefront/internal/apperrors"
	"storefront/internal/validator"
)

// MaxBodyBytes bounds JSON request bodies
const MaxBodyBytes = 5 << 20

// ValidateRequest validates the request body against a struct with validation tags
func ValidateRequest(v interface{}) error {
	return validator.Struct(v)
}

// DecodeJSON decodes the request body into v. Malformed or missing bodies are
// reported as validation errors.
func DecodeJSON(r *http.Request, v interface{}) error {
	err := json.NewDecoder(io.LimitReader(r.Body, MaxBodyBytes)).Decode(v)
	if err == nil {
		return nil
	}

	if errors.Is(err, io.EOF) {
		return apperrors.NewValidationError("request body is required")
	}

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) && typeErr.Field != "" {
		return apperrors.NewValidationError("invalid request body", apperrors.ValidationDetail{
			Field:   typeErr.Field,
			Message: "Invalid type, expected " + typeErr.Type.String(),
		})
	}

	return apperrors.NewValidationError("invalid request body")
}

// DecodeAndValidate decodes JSON request body and validates it
func DecodeAndValidate(r *http.Request, v interface{}) error {
	if err := DecodeJSON(r, v); err != nil {
		return err
	}
	return ValidateRequest(v)
}

// FormatValidationErrors extracts field details from a validation failure
func FormatValidationErrors(err error) []apperrors.ValidationDetail {
	if ve, ok := apperrors.IsValidationError(err); ok {
		return ve.Details
	}
	return validator.Details(err)
}
