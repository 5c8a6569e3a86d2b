package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/example/room-booking/internal/application"
	"github.com/example/room-booking/internal/availability"
)

var (
	errBadRequestBody   = errors.New("the request body could not be parsed")
	errInvalidBookingID = errors.New("a valid booking id is required")
	errInvalidRoomID    = errors.New("a valid room id is required")
	errInvalidUserID    = errors.New("a valid user id is required")
	errMissingIdentity  = errors.New("caller identity headers are required")
)

type responder struct {
	logger *slog.Logger
}

func newResponder(logger *slog.Logger) responder {
	if logger == nil {
		logger = slog.Default()
	}
	return responder{logger: logger}
}

func (r responder) writeJSON(ctx context.Context, w http.ResponseWriter, status int, payload any) {
	if w == nil {
		return
	}

	if status == http.StatusNoContent || payload == nil {
		w.WriteHeader(status)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		r.loggerFor(ctx).ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

func (r responder) writeError(ctx context.Context, w http.ResponseWriter, status int, err error) {
	message := statusMessage(status)
	if err != nil {
		if msg := strings.TrimSpace(err.Error()); msg != "" {
			message = msg
		}
		r.loggerFor(ctx).ErrorContext(ctx, "request failed", "status", status, "error", err)
	}

	r.writeJSON(ctx, w, status, errorResponse{Message: message})
}

// handleServiceError translates application layer failures into HTTP
// responses. Availability rejections carry their own code; a conflict maps to
// 409 with the blocking booking ids, every other rejection to 422.
func (r responder) handleServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		r.writeError(ctx, w, http.StatusInternalServerError, errors.New("unknown error"))
		return
	}

	var rejection *availability.Rejection
	if errors.As(err, &rejection) {
		status := http.StatusUnprocessableEntity
		if rejection.Code == availability.CodeConflict {
			status = http.StatusConflict
		}
		r.writeJSON(ctx, w, status, errorResponse{
			ErrorCode:   string(rejection.Code),
			Message:     rejectionMessage(rejection.Code),
			ConflictIDs: rejection.ConflictIDs,
		})
		return
	}

	var vErr *application.ValidationError
	if errors.As(err, &vErr) {
		r.writeJSON(ctx, w, http.StatusUnprocessableEntity, errorResponse{
			Message: "the submitted data is invalid",
			Errors:  vErr.FieldErrors,
		})
		return
	}

	switch {
	case errors.Is(err, application.ErrUnauthorized):
		r.writeJSON(ctx, w, http.StatusForbidden, errorResponse{
			ErrorCode: "forbidden",
			Message:   "you are not allowed to perform this operation",
		})
	case errors.Is(err, application.ErrNotFound):
		r.writeJSON(ctx, w, http.StatusNotFound, errorResponse{Message: "the requested resource was not found"})
	case errors.Is(err, application.ErrAlreadyExists):
		r.writeJSON(ctx, w, http.StatusConflict, errorResponse{Message: "a resource with these attributes already exists"})
	default:
		r.loggerFor(ctx).ErrorContext(ctx, "unhandled service error", "error", err)
		r.writeJSON(ctx, w, http.StatusInternalServerError, errorResponse{Message: "an internal error occurred"})
	}
}

func (r responder) loggerFor(ctx context.Context) *slog.Logger {
	if logger := LoggerFromContext(ctx); logger != nil {
		return logger
	}
	return r.logger
}

func statusMessage(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "the request is malformed"
	case http.StatusUnauthorized:
		return "authentication is required"
	case http.StatusForbidden:
		return "you are not allowed to perform this operation"
	case http.StatusNotFound:
		return "the requested resource was not found"
	case http.StatusConflict:
		return "the request conflicts with the current state"
	case http.StatusUnprocessableEntity:
		return "the submitted data is invalid"
	case http.StatusTooManyRequests:
		return "too many requests, slow down"
	default:
		return "an internal error occurred"
	}
}

func rejectionMessage(code availability.RejectionCode) string {
	switch code {
	case availability.CodeInvalidInterval:
		return "the booking must start before it ends"
	case availability.CodePastDate:
		return "bookings cannot be placed on past dates"
	case availability.CodeOutsideRoomHours:
		return "the booking falls outside the room's available hours"
	case availability.CodeConflict:
		return "the requested slot overlaps an existing booking"
	default:
		return "the booking request was rejected"
	}
}

type errorResponse struct {
	ErrorCode   string            `json:"error_code,omitempty"`
	Message     string            `json:"message"`
	Errors      map[string]string `json:"errors,omitempty"`
	ConflictIDs []string          `json:"conflict_ids,omitempty"`
}
