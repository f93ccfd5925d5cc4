package validator

import (
	"errors"
	"reflect"
	"strings"

	"storefront/internal/apperrors"
	"storefront/internal/domain"

	playground "github.com/go-playground/validator/v10"
)

var validate = newValidate()

func newValidate() *playground.Validate {
	v := playground.New(playground.WithRequiredStructEnabled())

	// report fields by their JSON names
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return field.Name
		}
		return name
	})

	_ = v.RegisterValidation("product_status", func(fl playground.FieldLevel) bool {
		return domain.ProductStatus(fl.Field().String()).Valid()
	})

	return v
}

// Struct validates v against its validate tags. A failure is returned as an
// *apperrors.ValidationError carrying one detail per offending field.
func Struct(v interface{}) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	details := Details(err)
	if len(details) == 0 {
		return err
	}

	return apperrors.NewValidationError("validation failed", details...)
}

// Var validates a single value against tag
func Var(value interface{}, tag string) error {
	return validate.Var(value, tag)
}

// Details converts validator errors to field details. Nested fields are
// addressed by path, e.g. "items[1].quantity".
func Details(err error) []apperrors.ValidationDetail {
	var validationErrors playground.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return nil
	}

	details := make([]apperrors.ValidationDetail, 0, len(validationErrors))
	for _, e := range validationErrors {
		details = append(details, apperrors.ValidationDetail{
			Field:   fieldPath(e.Namespace()),
			Message: message(e),
		})
	}

	return details
}

// fieldPath drops the root struct name from a namespace
func fieldPath(namespace string) string {
	if i := strings.Index(namespace, "."); i >= 0 {
		return namespace[i+1:]
	}
	return namespace
}

func message(e playground.FieldError) string {
	switch e.Tag() {
	case "required":
		return "This field is required"
	case "email":
		return "Invalid email format"
	case "uuid", "uuid4":
		return "Must be a valid UUID"
	case "url", "http_url":
		return "Must be a valid URL"
	case "oneof":
		return "Must be one of: " + e.Param()
	case "product_status":
		return "Must be one of: active soon archived"
	case "min":
		if e.Kind() == reflect.Slice {
			return "Must contain at least " + e.Param() + " item(s)"
		}
		return "Value is too short"
	case "max":
		return "Value is too long"
	case "gte":
		return "Value must be greater than or equal to " + e.Param()
	case "lte":
		return "Value must be less than or equal to " + e.Param()
	case "gt":
		return "Value must be greater than " + e.Param()
	case "lt":
		return "Value must be less than " + e.Param()
	default:
		return "Invalid value"
	}
}
