package utils

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"tailor-pos/internal/pagination"
	"tailor-pos/internal/services"
	"tailor-pos/internal/store"
)

func JSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// ErrorBody is what every failed API call returns
type ErrorBody struct {
	Error string `json:"error"`
	Line  int    `json:"line,omitempty"`
	Field string `json:"field,omitempty"`
}

// Error writes err with the status that matches its kind. Unknown errors
// are logged and reported as a generic 500.
func Error(w http.ResponseWriter, err error) {
	status := StatusFor(err)
	body := ErrorBody{Error: err.Error()}

	var ve *services.ValidationError
	if errors.As(err, &ve) {
		body.Line = ve.Line
		body.Field = ve.Field
	}
	if status == http.StatusInternalServerError {
		log.Printf("[API] Internal error: %v", err)
		body.Error = "internal server error"
	}
	JSON(w, status, body)
}

// StatusFor maps service and store errors to HTTP status codes
func StatusFor(err error) int {
	switch {
	case errors.Is(err, services.ErrValidation),
		errors.Is(err, pagination.ErrInvalidCursor),
		errors.Is(err, pagination.ErrNoNextPage):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrInvalidCredentials), errors.Is(err, services.ErrInvalidTOTP):
		return http.StatusUnauthorized
	case errors.Is(err, services.ErrAccountDisabled):
		return http.StatusForbidden
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, store.ErrDuplicate),
		errors.Is(err, store.ErrConflict),
		errors.Is(err, pagination.ErrStaleCursor),
		errors.Is(err, services.ErrCheckoutInProgress),
		errors.Is(err, services.ErrOperationFailed):
		return http.StatusConflict
	case errors.Is(err, services.ErrTooManyAttempts):
		return http.StatusTooManyRequests
	case errors.Is(err, store.ErrUnavailable), errors.Is(err, services.ErrArchiveDisabled),
		errors.Is(err, services.ErrPrinterDisabled):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Decode reads a JSON request body, rejecting unknown fields
func Decode(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return &services.ValidationError{Message: "invalid request body: " + err.Error()}
	}
	return nil
}
