// Package response provides JSON response helpers for handlers.
package response

import (
	"encoding/json"
	"log/slog"
	"net/http"

	apierrors "github.com/ayush/nimi-blog/backend/internal/pkg/errors"
)

// Response is the envelope every JSON body is wrapped in.
type Response struct {
	Data  any `json:"data,omitempty"`
	Error any `json:"error,omitempty"`
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(Response{Data: data})
}

// OK writes a 200 OK response.
func OK(w http.ResponseWriter, data any) {
	JSON(w, http.StatusOK, data)
}

// Created writes a 201 Created response.
func Created(w http.ResponseWriter, data any) {
	JSON(w, http.StatusCreated, data)
}

// Error writes err as an error envelope. Server-side failures are logged with
// their cause, which is never sent to the client.
func Error(w http.ResponseWriter, r *http.Request, err error) {
	apiErr := apierrors.AsAPIError(err)
	if apiErr.StatusCode >= http.StatusInternalServerError {
		slog.ErrorContext(r.Context(), "request failed",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("code", apiErr.Code),
			slog.Any("error", err),
		)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(apiErr.StatusCode)
	json.NewEncoder(w).Encode(Response{Error: apiErr})
}

// BadRequest writes a 400 validation error with a custom message.
func BadRequest(w http.ResponseWriter, r *http.Request, message string) {
	Error(w, r, apierrors.ErrValidation.WithMessage(message))
}
