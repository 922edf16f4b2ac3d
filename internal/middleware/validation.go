package middleware

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	apperrors "purepresenter/internal/errors"
	"purepresenter/internal/infrastructure"
)

// DefaultMaxBodySize bounds request bodies on the local API
const DefaultMaxBodySize = 64 * 1024

// Validator decodes and validates JSON request bodies using struct tags
type Validator struct {
	validate    *validator.Validate
	logger      *slog.Logger
	maxBodySize int64
}

// NewValidator creates a validator that reports fields by their JSON names
func NewValidator(logger *slog.Logger) *Validator {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return &Validator{
		validate:    v,
		logger:      infrastructure.WithComponent(logger, "validation"),
		maxBodySize: DefaultMaxBodySize,
	}
}

// DecodeJSON reads the request body into dst and validates it. The returned
// error is always an *apperrors.APIError.
func (v *Validator) DecodeJSON(r *http.Request, dst interface{}) error {
	if r.Body == nil {
		return apperrors.InvalidRequestWithError(errors.New("request body is empty"))
	}

	dec := json.NewDecoder(io.LimitReader(r.Body, v.maxBodySize))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			err = errors.New("request body is empty")
		}
		v.logger.DebugContext(r.Context(), "request body rejected", slog.String("error", err.Error()))
		return apperrors.InvalidRequestWithError(err)
	}

	return v.ValidateStruct(dst)
}

// ValidateStruct validates s and converts failures into field errors
func (v *Validator) ValidateStruct(s interface{}) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return apperrors.InvalidRequestWithError(err)
	}

	out := make([]apperrors.ValidationError, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		out = append(out, apperrors.ValidationError{
			Field:   fe.Field(),
			Message: formatValidationError(fe),
		})
	}
	return apperrors.NewValidationErrors(out)
}

func formatValidationError(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	default:
		return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
	}
}
