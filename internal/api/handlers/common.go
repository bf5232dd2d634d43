// Package handlers provides HTTP request handlers for the reconai API.
// This file contains the response, request parsing and validation helpers
// shared by every handler group.
package handlers

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"log/slog"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"github.com/miekg/dns"

	"github.com/anstrom/reconai/internal/api/middleware"
	"github.com/anstrom/reconai/internal/errors"
)

// DefaultMaxRequestSize bounds request bodies when no limit is configured.
const DefaultMaxRequestSize = 1 << 20

// ErrorResponse represents an API error response.
type ErrorResponse struct {
	Success   bool      `json:"success"`
	Error     string    `json:"error"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id,omitempty"`
}

// newValidator returns a validator with the "domain" and "notflag" tags
// registered. notflag rejects values a tool would read as an option.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("domain", func(fl validator.FieldLevel) bool {
		_, ok := dns.IsDomainName(fl.Field().String())
		return ok
	})
	_ = v.RegisterValidation("notflag", func(fl validator.FieldLevel) bool {
		return !strings.HasPrefix(strings.TrimSpace(fl.Field().String()), "-")
	})
	return v
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, r *http.Request, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("Failed to encode JSON response",
			"request_id", middleware.GetRequestID(r),
			"error", err)
	}
}

// writeError writes an error response.
func writeError(w http.ResponseWriter, r *http.Request, statusCode int, err error) {
	writeJSON(w, r, statusCode, ErrorResponse{
		Success:   false,
		Error:     errors.Message(err),
		Timestamp: time.Now().UTC(),
		RequestID: middleware.GetRequestID(r),
	})
}

// statusFor maps a coded error to its HTTP status.
func statusFor(err error) int {
	switch {
	case errors.IsNotFound(err):
		return http.StatusNotFound
	case errors.IsValidation(err):
		return http.StatusBadRequest
	case errors.IsConflict(err):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// handleError writes err with the status its code maps to. Server-side
// failures are logged and answered with a generic message.
func handleError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, operation string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		logger.Error("Failed to "+operation,
			"request_id", middleware.GetRequestID(r),
			"error", err)
		writeError(w, r, status, fmt.Errorf("failed to %s", operation))
		return
	}
	writeError(w, r, status, err)
}

// parseJSON decodes a size-limited request body into dest, rejecting unknown
// fields and trailing data.
func parseJSON(w http.ResponseWriter, r *http.Request, dest any, maxSize int64) error {
	if r.Body == nil || r.Body == http.NoBody {
		return errors.NewScanError(errors.CodeValidation, "request body is empty")
	}
	if maxSize <= 0 {
		maxSize = DefaultMaxRequestSize
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxSize)

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(dest); err != nil {
		var tooLarge *http.MaxBytesError
		if stderrors.As(err, &tooLarge) {
			return errors.NewScanError(errors.CodeValidation,
				fmt.Sprintf("request body too large (max %d bytes)", tooLarge.Limit))
		}
		return errors.WrapScanError(errors.CodeValidation, "invalid JSON", err)
	}
	if decoder.More() {
		return errors.NewScanError(errors.CodeValidation, "invalid JSON: unexpected data after body")
	}
	return nil
}

// validateRequest runs struct tag validation and flattens the failures into
// a single validation error naming each field.
func validateRequest(v *validator.Validate, req any) error {
	err := v.Struct(req)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !stderrors.As(err, &fieldErrs) {
		return errors.WrapScanError(errors.CodeValidation, "invalid request", err)
	}

	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, describeFieldError(fe))
	}
	return errors.NewScanError(errors.CodeValidation, strings.Join(msgs, "; "))
}

func describeFieldError(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", field, fe.Param())
	case "domain":
		return field + " must be a valid domain name"
	case "notflag":
		return field + " must not start with '-'"
	case "min":
		return fmt.Sprintf("%s must contain at least %s item(s)", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s exceeds the maximum of %s", field, fe.Param())
	default:
		return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
	}
}

// decodeAndValidate parses and validates a request body, writing the 400
// response itself on failure.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, v *validator.Validate, dest any, maxSize int64) bool {
	if err := parseJSON(w, r, dest, maxSize); err != nil {
		writeError(w, r, http.StatusBadRequest, err)
		return false
	}
	if err := validateRequest(v, dest); err != nil {
		writeError(w, r, http.StatusBadRequest, err)
		return false
	}
	return true
}

// pathID extracts the {id} route variable.
func pathID(r *http.Request) (string, error) {
	id := strings.TrimSpace(mux.Vars(r)["id"])
	if id == "" {
		return "", errors.NewScanError(errors.CodeValidation, "id cannot be empty")
	}
	return id, nil
}
