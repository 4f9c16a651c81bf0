package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/mauv0809/courtmatch/internal/match"
)

// statusFor maps the error taxonomy to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, match.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, match.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, match.ErrInvalidState):
		return http.StatusUnprocessableEntity
	case errors.Is(err, match.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, match.ErrValidation):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		log.Error("Request failed", "error", err)
		msg = "internal error"
	} else {
		log.Debug("Request rejected", "status", status, "error", err)
	}
	writeJSON(w, status, errorResponse{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error("Failed to write response", "error", err)
	}
}

// decode reads a JSON body into v. Unknown fields are rejected. An empty body leaves
// v untouched.
func decode(r *http.Request, v any) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("invalid request body: %v: %w", err, match.ErrValidation)
	}
	return nil
}
