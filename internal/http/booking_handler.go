package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/example/room-booking/internal/application"
	"github.com/example/room-booking/internal/availability"
	"github.com/example/room-booking/internal/persistence"
	"github.com/example/room-booking/internal/recurrence"
)

type bookingService interface {
	CreateBooking(ctx context.Context, params application.CreateBookingParams) (persistence.Booking, *application.RecurrenceSummary, error)
	UpdateBooking(ctx context.Context, params application.UpdateBookingParams) (persistence.Booking, error)
	DeleteBooking(ctx context.Context, principal application.Principal, bookingID string) error
	GetBooking(ctx context.Context, bookingID string) (persistence.Booking, error)
	ListBookings(ctx context.Context, params application.ListBookingsParams) ([]persistence.Booking, error)
}

type BookingHandler struct {
	service   bookingService
	responder responder
	logger    *slog.Logger
}

func NewBookingHandler(service bookingService, logger *slog.Logger) *BookingHandler {
	return &BookingHandler{service: service, responder: newResponder(logger), logger: defaultLogger(logger)}
}

func (h *BookingHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req bookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	input, vErr := req.toInput()
	if vErr != nil {
		h.responder.handleServiceError(r.Context(), w, vErr)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	booking, summary, err := h.service.CreateBooking(r.Context(), application.CreateBookingParams{
		Principal: principal,
		Input:     input,
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	handlerLogger(r.Context(), h.logger, "booking", "create", "booking_id", booking.ID).
		InfoContext(r.Context(), "booking created")

	h.responder.writeJSON(r.Context(), w, http.StatusCreated, bookingEnvelope{
		Booking:    toBookingDTO(booking),
		Recurrence: toRecurrenceDTO(summary),
	})
}

func (h *BookingHandler) Update(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	bookingID, ok := BookingIDFromContext(r.Context())
	if !ok || strings.TrimSpace(bookingID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidBookingID)
		return
	}

	var req bookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	input, vErr := req.toInput()
	if vErr != nil {
		h.responder.handleServiceError(r.Context(), w, vErr)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	booking, err := h.service.UpdateBooking(r.Context(), application.UpdateBookingParams{
		Principal: principal,
		BookingID: bookingID,
		Input:     input,
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, bookingEnvelope{Booking: toBookingDTO(booking)})
}

func (h *BookingHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	bookingID, ok := BookingIDFromContext(r.Context())
	if !ok || strings.TrimSpace(bookingID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidBookingID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	if err := h.service.DeleteBooking(r.Context(), principal, bookingID); err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

func (h *BookingHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	bookingID, ok := BookingIDFromContext(r.Context())
	if !ok || strings.TrimSpace(bookingID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidBookingID)
		return
	}

	booking, err := h.service.GetBooking(r.Context(), bookingID)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, bookingEnvelope{Booking: toBookingDTO(booking)})
}

func (h *BookingHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	params, err := buildListParams(r.URL.Query(), principal)
	if err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, err)
		return
	}

	bookings, svcErr := h.service.ListBookings(r.Context(), params)
	if svcErr != nil {
		h.responder.handleServiceError(r.Context(), w, svcErr)
		return
	}

	dtos := make([]bookingDTO, 0, len(bookings))
	for _, b := range bookings {
		dtos = append(dtos, toBookingDTO(b))
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, bookingListResponse{Bookings: dtos})
}

func buildListParams(query url.Values, principal application.Principal) (application.ListBookingsParams, error) {
	params := application.ListBookingsParams{
		Principal: principal,
		RoomID:    strings.TrimSpace(query.Get("room_id")),
		UserID:    strings.TrimSpace(query.Get("user_id")),
	}

	for _, spec := range []struct {
		key  string
		dest **time.Time
	}{
		{"date", &params.Date},
		{"from", &params.DateFrom},
		{"to", &params.DateTo},
	} {
		raw := strings.TrimSpace(query.Get(spec.key))
		if raw == "" {
			continue
		}
		parsed, err := time.ParseInLocation("2006-01-02", raw, time.UTC)
		if err != nil {
			return application.ListBookingsParams{}, errBadRequestBody
		}
		*spec.dest = &parsed
	}

	return params, nil
}

// bookingRequest is the wire form of a booking. Dates use the 2006-01-02
// layout and clock times use HH:MM.
type bookingRequest struct {
	RoomID        string `json:"room_id"`
	UserID        string `json:"user_id,omitempty"`
	Title         string `json:"title"`
	Date          string `json:"date"`
	StartTime     string `json:"start_time"`
	EndTime       string `json:"end_time"`
	Remarks       string `json:"remarks,omitempty"`
	Repeat        string `json:"repeat,omitempty"`
	RepeatEndDate string `json:"repeat_end_date,omitempty"`
}

func (req bookingRequest) toInput() (application.BookingInput, *application.ValidationError) {
	fieldErrors := make(map[string]string)

	input := application.BookingInput{
		RoomID:  strings.TrimSpace(req.RoomID),
		UserID:  strings.TrimSpace(req.UserID),
		Title:   req.Title,
		Remarks: req.Remarks,
	}

	if raw := strings.TrimSpace(req.Date); raw == "" {
		fieldErrors["date"] = "date is required"
	} else if parsed, err := time.ParseInLocation("2006-01-02", raw, time.UTC); err != nil {
		fieldErrors["date"] = "date must use the 2006-01-02 layout"
	} else {
		input.Date = parsed
	}

	if start, err := availability.ParseClock(req.StartTime); err != nil {
		fieldErrors["start_time"] = "start time must use the HH:MM layout"
	} else {
		input.Start = start
	}
	if end, err := availability.ParseClock(req.EndTime); err != nil {
		fieldErrors["end_time"] = "end time must use the HH:MM layout"
	} else {
		input.End = end
	}

	repeat := strings.TrimSpace(req.Repeat)
	if repeat == "" {
		input.Repeat = recurrence.FrequencyNoRepeat
	} else if freq, err := recurrence.ParseFrequency(repeat); err != nil {
		fieldErrors["repeat"] = "repeat must be one of no_repeat, daily, weekly, monthly, custom"
	} else {
		input.Repeat = freq
	}

	if raw := strings.TrimSpace(req.RepeatEndDate); raw != "" {
		parsed, err := time.ParseInLocation("2006-01-02", raw, time.UTC)
		if err != nil {
			fieldErrors["repeat_end_date"] = "repeat end date must use the 2006-01-02 layout"
		} else {
			input.RepeatEndDate = &parsed
		}
	}

	if len(fieldErrors) > 0 {
		return application.BookingInput{}, &application.ValidationError{FieldErrors: fieldErrors}
	}
	return input, nil
}

type bookingDTO struct {
	ID              string  `json:"id"`
	RoomID          string  `json:"room_id"`
	UserID          string  `json:"user_id"`
	Title           string  `json:"title"`
	Date            string  `json:"date"`
	StartTime       string  `json:"start_time"`
	EndTime         string  `json:"end_time"`
	Remarks         *string `json:"remarks,omitempty"`
	Repeat          string  `json:"repeat"`
	RepeatEndDate   *string `json:"repeat_end_date,omitempty"`
	IsRecurring     bool    `json:"is_recurring"`
	ParentBookingID *string `json:"parent_booking_id,omitempty"`
	CreatedAt       string  `json:"created_at"`
	UpdatedAt       string  `json:"updated_at"`
}

type bookingEnvelope struct {
	Booking    bookingDTO     `json:"booking"`
	Recurrence *recurrenceDTO `json:"recurrence,omitempty"`
}

type bookingListResponse struct {
	Bookings []bookingDTO `json:"bookings"`
}

type recurrenceDTO struct {
	InsertedCount int       `json:"inserted_count"`
	Skipped       []skipDTO `json:"skipped"`
	BatchError    string    `json:"batch_error,omitempty"`
}

type skipDTO struct {
	Date        string   `json:"date"`
	Reason      string   `json:"reason"`
	Detail      string   `json:"detail,omitempty"`
	ConflictIDs []string `json:"conflict_ids,omitempty"`
}

func toBookingDTO(b persistence.Booking) bookingDTO {
	dto := bookingDTO{
		ID:              b.ID,
		RoomID:          b.RoomID,
		UserID:          b.UserID,
		Title:           b.Title,
		Date:            b.Date.Format("2006-01-02"),
		StartTime:       availability.FormatClock(b.Start),
		EndTime:         availability.FormatClock(b.End),
		Remarks:         b.Remarks,
		Repeat:          b.RepeatType,
		IsRecurring:     b.IsRecurring,
		ParentBookingID: b.ParentBookingID,
		CreatedAt:       b.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:       b.UpdatedAt.UTC().Format(time.RFC3339),
	}
	if b.RepeatEndDate != nil {
		formatted := b.RepeatEndDate.Format("2006-01-02")
		dto.RepeatEndDate = &formatted
	}
	return dto
}

func toRecurrenceDTO(summary *application.RecurrenceSummary) *recurrenceDTO {
	if summary == nil {
		return nil
	}

	dto := &recurrenceDTO{
		InsertedCount: summary.InsertedCount,
		Skipped:       make([]skipDTO, 0, len(summary.Skipped)),
	}
	for _, skip := range summary.Skipped {
		dto.Skipped = append(dto.Skipped, skipDTO{
			Date:        skip.Date.Format("2006-01-02"),
			Reason:      string(skip.Reason),
			Detail:      skip.Detail,
			ConflictIDs: skip.ConflictIDs,
		})
	}
	if summary.BatchErr != nil {
		dto.BatchError = summary.BatchErr.Error()
	}
	return dto
}
