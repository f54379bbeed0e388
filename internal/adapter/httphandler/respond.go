package httphandler

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/niksmo/product-explorer/internal/core/domain"
)

const maxBodyBytes = 1 << 20

var errValidation = errors.New("validation failed")

var validate = validator.New(validator.WithRequiredStructEnabled())

// A ProblemDetail is an RFC7807 error body.
type ProblemDetail struct {
	Type   string `json:"type,omitempty"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	const op = "httphandler.writeJSON"

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.With("op", op).Error("failed to write response body", "err", err)
	}
}

func problem(w http.ResponseWriter, status int, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(ProblemDetail{
		Title:  http.StatusText(status),
		Status: status,
		Detail: detail,
	})
}

// respondError maps domain errors to problem responses.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	const op = "httphandler.respondError"

	switch {
	case errors.Is(err, domain.ErrNotFound):
		problem(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrForbidden):
		problem(w, http.StatusForbidden, domain.ErrForbidden.Error())
	case errors.Is(err, errValidation), errors.Is(err, domain.ErrInvalidTheme):
		problem(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrUnavailable):
		problem(w, http.StatusServiceUnavailable, domain.ErrUnavailable.Error())
	default:
		slog.With("op", op).Error("request failed",
			"method", r.Method, "path", r.URL.Path, "err", err)
		problem(w, http.StatusInternalServerError, "")
	}
}

// decodeBody decodes a JSON body into v and validates it.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: invalid JSON: %w", errValidation, err)
	}
	return validateStruct(v)
}

func validateStruct(v any) error {
	if err := validate.Struct(v); err != nil {
		return fmt.Errorf("%w: %w", errValidation, err)
	}
	return nil
}
