// Package response provides standardized HTTP response formatting and error handling utilities.
package response

import (
	"encoding/json"
	"log/slog"
	"net/http"

	apperrors "github.com/trailheadapp/trailhead-server/internal/errors"
)

// Status values carried in every JSON envelope. Client faults report "fail",
// server faults report "error".
const (
	StatusSuccess = "success"
	StatusFail    = "fail"
	StatusError   = "error"
)

// Envelope provides a consistent JSON response structure.
type Envelope struct {
	Status  string `json:"status"`
	Results *int   `json:"results,omitempty"`
	Token   string `json:"token,omitempty"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
	Error   any    `json:"error,omitempty"`
	Stack   string `json:"stack,omitempty"`
}

// statusWord maps an HTTP status code to its envelope status.
func statusWord(status int) string {
	switch {
	case status < 400:
		return StatusSuccess
	case status < 500:
		return StatusFail
	default:
		return StatusError
	}
}

func write(w http.ResponseWriter, status int, envelope Envelope, logger *slog.Logger) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(envelope); err != nil {
		if logger != nil {
			logger.Error("Failed to encode JSON response", "error", err)
		}
	}
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, data any, logger *slog.Logger) {
	write(w, status, Envelope{
		Status: statusWord(status),
		Data:   data,
	}, logger)
}

// Success writes a successful JSON response (200 OK).
func Success(w http.ResponseWriter, data any, logger *slog.Logger) {
	JSON(w, http.StatusOK, data, logger)
}

// Created writes a created response (201 Created).
func Created(w http.ResponseWriter, data any, logger *slog.Logger) {
	JSON(w, http.StatusCreated, data, logger)
}

// List writes a successful JSON response carrying a result count alongside
// the collection payload.
func List(w http.ResponseWriter, results int, data any, logger *slog.Logger) {
	write(w, http.StatusOK, Envelope{
		Status:  StatusSuccess,
		Results: &results,
		Data:    data,
	}, logger)
}

// WithToken writes a JSON response that carries a session token next to the
// data payload, used by the auth endpoints.
func WithToken(w http.ResponseWriter, status int, token string, data any, logger *slog.Logger) {
	write(w, status, Envelope{
		Status: statusWord(status),
		Token:  token,
		Data:   data,
	}, logger)
}

// NoContent writes a no content response (204 No Content).
func NoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// Error writes an error response with the given status code.
func Error(w http.ResponseWriter, status int, message string, logger *slog.Logger) {
	write(w, status, Envelope{
		Status:  statusWord(status),
		Message: message,
	}, logger)
}

// BadRequest writes a 400 Bad Request response.
func BadRequest(w http.ResponseWriter, message string, logger *slog.Logger) {
	Error(w, http.StatusBadRequest, message, logger)
}

// Unauthorized writes a 401 Unauthorized response.
func Unauthorized(w http.ResponseWriter, message string, logger *slog.Logger) {
	Error(w, http.StatusUnauthorized, message, logger)
}

// Forbidden writes a 403 Forbidden response.
func Forbidden(w http.ResponseWriter, message string, logger *slog.Logger) {
	Error(w, http.StatusForbidden, message, logger)
}

// NotFound writes a 404 Not Found response.
func NotFound(w http.ResponseWriter, message string, logger *slog.Logger) {
	Error(w, http.StatusNotFound, message, logger)
}

// TooManyRequests writes a 429 Too Many Requests response.
func TooManyRequests(w http.ResponseWriter, message string, logger *slog.Logger) {
	Error(w, http.StatusTooManyRequests, message, logger)
}

// InternalError writes a 500 Internal Server Error response.
func InternalError(w http.ResponseWriter, message string, logger *slog.Logger) {
	Error(w, http.StatusInternalServerError, message, logger)
}

// Translator is the single place errors become HTTP responses. Debug mode
// leaks full error detail to the client; outside it only operational errors
// expose their message.
type Translator struct {
	Logger *slog.Logger
	Debug  bool
}

// HandleError writes an appropriate HTTP response based on the error type.
// Domain errors are mapped to their HTTP codes, unknown errors become 500.
func (t *Translator) HandleError(w http.ResponseWriter, err error) {
	var domainErr *apperrors.Error
	if apperrors.As(err, &domainErr) {
		status := domainErr.HTTPStatus()
		if t.Debug {
			write(w, status, Envelope{
				Status:  statusWord(status),
				Message: domainErr.Error(),
				Error:   domainErr,
			}, t.Logger)
			return
		}
		if domainErr.Operational() {
			Error(w, status, domainErr.Message, t.Logger)
			return
		}
		if t.Logger != nil {
			t.Logger.Error("Internal error", "error", err)
		}
		Error(w, status, "Something went very wrong!", t.Logger)
		return
	}

	// Unknown error = 500
	if t.Logger != nil {
		t.Logger.Error("Unhandled error", "error", err)
	}
	if t.Debug {
		InternalError(w, err.Error(), t.Logger)
		return
	}
	InternalError(w, "Something went very wrong!", t.Logger)
}

// HandleError translates err using a non-debug translator. Handlers that
// hold a configured Translator should prefer it.
func HandleError(w http.ResponseWriter, err error, logger *slog.Logger) {
	t := Translator{Logger: logger}
	t.HandleError(w, err)
}
