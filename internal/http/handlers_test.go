package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/room-booking/internal/application"
	"github.com/example/room-booking/internal/availability"
	"github.com/example/room-booking/internal/persistence"
	"github.com/example/room-booking/internal/recurrence"
)

type stubBookingService struct {
	createParams application.CreateBookingParams
	createResult persistence.Booking
	summary      *application.RecurrenceSummary
	createErr    error

	listParams application.ListBookingsParams
	listResult []persistence.Booking

	deleteID string
}

func (s *stubBookingService) CreateBooking(_ context.Context, params application.CreateBookingParams) (persistence.Booking, *application.RecurrenceSummary, error) {
	s.createParams = params
	return s.createResult, s.summary, s.createErr
}

func (s *stubBookingService) UpdateBooking(_ context.Context, params application.UpdateBookingParams) (persistence.Booking, error) {
	return s.createResult, s.createErr
}

func (s *stubBookingService) DeleteBooking(_ context.Context, _ application.Principal, bookingID string) error {
	s.deleteID = bookingID
	return s.createErr
}

func (s *stubBookingService) GetBooking(_ context.Context, _ string) (persistence.Booking, error) {
	return s.createResult, s.createErr
}

func (s *stubBookingService) ListBookings(_ context.Context, params application.ListBookingsParams) ([]persistence.Booking, error) {
	s.listParams = params
	return s.listResult, nil
}

func sampleBooking() persistence.Booking {
	return persistence.Booking{
		ID:        "booking-1",
		RoomID:    "room-1",
		UserID:    "user-1",
		Title:     "Weekly sync",
		Date:      time.Date(2025, time.September, 3, 0, 0, 0, 0, time.UTC),
		Start:     9 * 60,
		End:       10 * 60,
		CreatedAt: time.Date(2025, time.September, 1, 8, 0, 0, 0, time.UTC),
		UpdatedAt: time.Date(2025, time.September, 1, 8, 0, 0, 0, time.UTC),
	}
}

func newBookingRouter(service bookingService) http.Handler {
	return NewRouter(RouterConfig{Bookings: NewBookingHandler(service, nil)})
}

func TestBookingCreateParsesClockStrings(t *testing.T) {
	t.Parallel()

	service := &stubBookingService{createResult: sampleBooking()}
	router := newBookingRouter(service)

	body := `{
		"room_id": "room-1",
		"title": "Weekly sync",
		"date": "2025-09-03",
		"start_time": "09:00",
		"end_time": "10:00",
		"repeat": "weekly",
		"repeat_end_date": "2025-09-24"
	}`
	req := httptest.NewRequest(http.MethodPost, "/bookings", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)

	input := service.createParams.Input
	assert.Equal(t, 9*60, input.Start)
	assert.Equal(t, 10*60, input.End)
	assert.Equal(t, recurrence.FrequencyWeekly, input.Repeat)
	require.NotNil(t, input.RepeatEndDate)
	assert.Equal(t, time.Date(2025, time.September, 24, 0, 0, 0, 0, time.UTC), *input.RepeatEndDate)

	var envelope bookingEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, "09:00", envelope.Booking.StartTime)
	assert.Equal(t, "10:00", envelope.Booking.EndTime)
	assert.Equal(t, "2025-09-03", envelope.Booking.Date)
}

func TestBookingCreateIncludesRecurrenceSummary(t *testing.T) {
	t.Parallel()

	service := &stubBookingService{
		createResult: sampleBooking(),
		summary: &application.RecurrenceSummary{
			InsertedCount: 2,
			Skipped: []recurrence.Skip{{
				Date:   time.Date(2025, time.September, 5, 0, 0, 0, 0, time.UTC),
				Reason: recurrence.SkipBlackedOut,
				Detail: "weekly off day (Friday)",
			}},
		},
	}
	router := newBookingRouter(service)

	body := `{"room_id":"room-1","title":"Sync","date":"2025-09-03","start_time":"09:00","end_time":"10:00"}`
	req := httptest.NewRequest(http.MethodPost, "/bookings", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)

	var envelope bookingEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	require.NotNil(t, envelope.Recurrence)
	assert.Equal(t, 2, envelope.Recurrence.InsertedCount)
	require.Len(t, envelope.Recurrence.Skipped, 1)
	assert.Equal(t, "2025-09-05", envelope.Recurrence.Skipped[0].Date)
	assert.Equal(t, string(recurrence.SkipBlackedOut), envelope.Recurrence.Skipped[0].Reason)
}

func TestBookingCreateRejectsMalformedTimes(t *testing.T) {
	t.Parallel()

	service := &stubBookingService{}
	router := newBookingRouter(service)

	body := `{"room_id":"room-1","title":"Sync","date":"2025-09-03","start_time":"9am","end_time":"10:00"}`
	req := httptest.NewRequest(http.MethodPost, "/bookings", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var resp errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Contains(t, resp.Errors, "start_time")
}

func TestBookingCreateConflictResponse(t *testing.T) {
	t.Parallel()

	service := &stubBookingService{
		createErr: &availability.Rejection{Code: availability.CodeConflict, ConflictIDs: []string{"booking-9"}},
	}
	router := newBookingRouter(service)

	body := `{"room_id":"room-1","title":"Sync","date":"2025-09-03","start_time":"09:00","end_time":"10:00"}`
	req := httptest.NewRequest(http.MethodPost, "/bookings", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusConflict, rec.Code)

	var resp errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, string(availability.CodeConflict), resp.ErrorCode)
	assert.Equal(t, []string{"booking-9"}, resp.ConflictIDs)
}

func TestBookingCreatePastDateResponse(t *testing.T) {
	t.Parallel()

	service := &stubBookingService{
		createErr: &availability.Rejection{Code: availability.CodePastDate},
	}
	router := newBookingRouter(service)

	body := `{"room_id":"room-1","title":"Sync","date":"2025-08-01","start_time":"09:00","end_time":"10:00"}`
	req := httptest.NewRequest(http.MethodPost, "/bookings", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var resp errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, string(availability.CodePastDate), resp.ErrorCode)
}

func TestBookingListQueryParsing(t *testing.T) {
	t.Parallel()

	service := &stubBookingService{listResult: []persistence.Booking{sampleBooking()}}
	router := newBookingRouter(service)

	req := httptest.NewRequest(http.MethodGet, "/bookings?room_id=room-1&date=2025-09-03", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "room-1", service.listParams.RoomID)
	require.NotNil(t, service.listParams.Date)
	assert.Equal(t, time.Date(2025, time.September, 3, 0, 0, 0, 0, time.UTC), *service.listParams.Date)

	req = httptest.NewRequest(http.MethodGet, "/bookings?date=yesterday", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBookingDeleteRoutesPathID(t *testing.T) {
	t.Parallel()

	service := &stubBookingService{}
	router := newBookingRouter(service)

	req := httptest.NewRequest(http.MethodDelete, "/bookings/booking-7", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "booking-7", service.deleteID)
}

func TestRouterMethodNotAllowed(t *testing.T) {
	t.Parallel()

	router := newBookingRouter(&stubBookingService{})

	req := httptest.NewRequest(http.MethodPatch, "/bookings", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Contains(t, rec.Header().Get("Allow"), http.MethodGet)
}

func TestHealthzBypassesMiddleware(t *testing.T) {
	t.Parallel()

	router := NewRouter(RouterConfig{
		Bookings:   NewBookingHandler(&stubBookingService{}, nil),
		Middleware: []func(http.Handler) http.Handler{RequirePrincipal(nil)},
	})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}
