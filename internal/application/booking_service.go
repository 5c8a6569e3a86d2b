package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/example/room-booking/internal/availability"
	"github.com/example/room-booking/internal/persistence"
	"github.com/example/room-booking/internal/recurrence"
)

// BookingService orchestrates validation, recurrence expansion and
// persistence for booking operations.
type BookingService struct {
	bookings    persistence.BookingRepository
	rooms       persistence.RoomRepository
	users       persistence.UserRepository
	blackout    recurrence.BlackoutPolicy
	cache       *dayCache
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// BookingServiceOptions tunes optional service behavior.
type BookingServiceOptions struct {
	BlackoutPolicy *recurrence.BlackoutPolicy
	CacheTTL       time.Duration
	Logger         *slog.Logger
}

// NewBookingService wires dependencies for booking operations.
func NewBookingService(bookings persistence.BookingRepository, rooms persistence.RoomRepository, users persistence.UserRepository, idGenerator func() string, now func() time.Time, opts BookingServiceOptions) *BookingService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	policy := recurrence.DefaultBlackoutPolicy()
	if opts.BlackoutPolicy != nil {
		policy = *opts.BlackoutPolicy
	}
	return &BookingService{
		bookings:    bookings,
		rooms:       rooms,
		users:       users,
		blackout:    policy,
		cache:       newDayCache(opts.CacheTTL),
		idGenerator: idGenerator,
		now:         now,
		logger:      defaultLogger(opts.Logger),
	}
}

// CreateBooking validates the seed request, persists it, and expands any
// recurrence rule into child bookings.
//
// Validator failures on the seed are fatal to the request: nothing is
// persisted and the rejection is returned. Once the seed is committed,
// per-date expansion failures are recorded in the returned summary, and a
// batch persistence failure is carried in the summary rather than rolling the
// seed back.
func (s *BookingService) CreateBooking(ctx context.Context, params CreateBookingParams) (persistence.Booking, *RecurrenceSummary, error) {
	if s == nil || s.bookings == nil {
		return persistence.Booking{}, nil, fmt.Errorf("booking repository not configured")
	}

	input := params.Input
	principal := params.Principal

	if input.UserID == "" {
		input.UserID = principal.UserID
	}
	if input.UserID != principal.UserID && !principal.IsAdmin {
		return persistence.Booking{}, nil, ErrUnauthorized
	}

	if err := s.ensureActiveUser(ctx, input.UserID); err != nil {
		return persistence.Booking{}, nil, err
	}

	vErr := &ValidationError{}
	validateBookingCore(input, vErr)
	if input.Repeat == recurrence.FrequencyCustom && input.RepeatEndDate == nil {
		vErr.add("repeat_end_date", "end date is required for custom repeat")
	}
	if input.RepeatEndDate != nil && availability.DateOnly(*input.RepeatEndDate).Before(availability.DateOnly(input.Date)) {
		vErr.add("repeat_end_date", "end date must not precede the booking date")
	}
	if vErr.HasErrors() {
		return persistence.Booking{}, nil, vErr
	}

	room, err := s.lookupBookableRoom(ctx, input.RoomID)
	if err != nil {
		return persistence.Booking{}, nil, err
	}

	rejection, err := s.validateAvailability(ctx, input, room, "")
	if err != nil {
		return persistence.Booking{}, nil, err
	}
	if rejection != nil {
		serviceLogger(ctx, s.logger, "booking", "create", "room_id", input.RoomID).
			InfoContext(ctx, "booking rejected", "kind", ErrorKind(rejection))
		return persistence.Booking{}, nil, rejection
	}

	rule := recurrence.Rule{Frequency: input.Repeat, Until: input.RepeatEndDate}

	now := s.now()
	seed := persistence.Booking{
		ID:            s.idGenerator(),
		RoomID:        input.RoomID,
		UserID:        input.UserID,
		Title:         strings.TrimSpace(input.Title),
		Date:          availability.DateOnly(input.Date),
		Start:         input.Start,
		End:           input.End,
		Remarks:       optionalString(input.Remarks),
		RepeatType:    string(input.Repeat),
		RepeatEndDate: input.RepeatEndDate,
		IsRecurring:   rule.Repeats(),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if seed.RepeatType == "" {
		seed.RepeatType = string(recurrence.FrequencyNoRepeat)
	}

	if err := s.bookings.InsertBooking(ctx, seed); err != nil {
		return persistence.Booking{}, nil, s.mapRepoError(err)
	}
	s.cache.Invalidate(seed.RoomID, seed.Date)

	logger := serviceLogger(ctx, s.logger, "booking", "create", "booking_id", seed.ID, "room_id", seed.RoomID)
	logger.InfoContext(ctx, "seed booking persisted", "date", seed.Date.Format("2006-01-02"))

	if !rule.Repeats() {
		return seed, nil, nil
	}

	summary := s.expandSeed(ctx, seed, rule, logger)
	return seed, summary, nil
}

// expandSeed materializes child bookings for a committed seed. The expansion
// itself never fails the request; problems end up in the summary.
func (s *BookingService) expandSeed(ctx context.Context, seed persistence.Booking, rule recurrence.Rule, logger *slog.Logger) *RecurrenceSummary {
	expansion, err := recurrence.Expand(ctx, recurrence.Seed{
		ID:      seed.ID,
		RoomID:  seed.RoomID,
		UserID:  seed.UserID,
		Title:   seed.Title,
		Remarks: derefString(seed.Remarks),
		Date:    seed.Date,
		Start:   seed.Start,
		End:     seed.End,
	}, rule, s.blackout, s.conflictChecker())
	if err != nil {
		logger.ErrorContext(ctx, "recurrence expansion failed", "error", err)
		return &RecurrenceSummary{BatchErr: err}
	}

	children := make([]persistence.Booking, 0, len(expansion.Children))
	now := s.now()
	for _, child := range expansion.Children {
		children = append(children, persistence.Booking{
			ID:              s.idGenerator(),
			RoomID:          child.RoomID,
			UserID:          child.UserID,
			Title:           child.Title,
			Date:            child.Date,
			Start:           child.Start,
			End:             child.End,
			Remarks:         optionalString(child.Remarks),
			RepeatType:      string(recurrence.FrequencyNoRepeat),
			IsRecurring:     true,
			ParentBookingID: &child.ParentBookingID,
			CreatedAt:       now,
			UpdatedAt:       now,
		})
	}

	inserted := 0
	var batchErr error
	if len(children) > 0 {
		inserted, batchErr = s.bookings.InsertBookings(ctx, children)
		for _, child := range children {
			s.cache.Invalidate(child.RoomID, child.Date)
		}
	}

	if batchErr != nil {
		logger.ErrorContext(ctx, "bulk insert of child bookings failed",
			"inserted", inserted, "requested", len(children), "error", batchErr)
	} else {
		logger.InfoContext(ctx, "recurrence expanded",
			"inserted", inserted, "skipped", len(expansion.Skipped))
	}

	return &RecurrenceSummary{
		InsertedCount: inserted,
		Skipped:       expansion.Skipped,
		BatchErr:      batchErr,
	}
}

// UpdateBooking applies validation and authorization before rewriting the
// mutable fields of a booking. The room and recurrence descriptor are fixed
// at creation.
func (s *BookingService) UpdateBooking(ctx context.Context, params UpdateBookingParams) (persistence.Booking, error) {
	if s == nil || s.bookings == nil {
		return persistence.Booking{}, fmt.Errorf("booking repository not configured")
	}

	existing, err := s.bookings.GetBooking(ctx, params.BookingID)
	if err != nil {
		return persistence.Booking{}, s.mapRepoError(err)
	}

	if existing.UserID != params.Principal.UserID && !params.Principal.IsAdmin {
		return persistence.Booking{}, ErrUnauthorized
	}

	input := params.Input
	input.RoomID = existing.RoomID

	vErr := &ValidationError{}
	validateBookingCore(input, vErr)
	if vErr.HasErrors() {
		return persistence.Booking{}, vErr
	}

	room, err := s.lookupBookableRoom(ctx, existing.RoomID)
	if err != nil {
		return persistence.Booking{}, err
	}

	rejection, err := s.validateAvailability(ctx, input, room, existing.ID)
	if err != nil {
		return persistence.Booking{}, err
	}
	if rejection != nil {
		serviceLogger(ctx, s.logger, "booking", "update", "booking_id", existing.ID).
			InfoContext(ctx, "booking rejected", "kind", ErrorKind(rejection))
		return persistence.Booking{}, rejection
	}

	updated := existing
	updated.Title = strings.TrimSpace(input.Title)
	updated.Date = availability.DateOnly(input.Date)
	updated.Start = input.Start
	updated.End = input.End
	updated.Remarks = optionalString(input.Remarks)
	updated.UpdatedAt = s.now()

	if err := s.bookings.UpdateBooking(ctx, updated); err != nil {
		return persistence.Booking{}, s.mapRepoError(err)
	}

	s.cache.Invalidate(existing.RoomID, existing.Date)
	s.cache.Invalidate(updated.RoomID, updated.Date)

	return updated, nil
}

// DeleteBooking removes a single booking after an ownership check. Deleting a
// seed deliberately leaves already-materialized children in place; they are
// independent bookings once created.
func (s *BookingService) DeleteBooking(ctx context.Context, principal Principal, bookingID string) error {
	if s == nil || s.bookings == nil {
		return fmt.Errorf("booking repository not configured")
	}

	existing, err := s.bookings.GetBooking(ctx, bookingID)
	if err != nil {
		return s.mapRepoError(err)
	}

	if existing.UserID != principal.UserID && !principal.IsAdmin {
		return ErrUnauthorized
	}

	if err := s.bookings.DeleteBooking(ctx, bookingID); err != nil {
		return s.mapRepoError(err)
	}

	s.cache.Invalidate(existing.RoomID, existing.Date)
	return nil
}

// GetBooking retrieves one booking. Every authenticated user may inspect the
// shared calendar.
func (s *BookingService) GetBooking(ctx context.Context, bookingID string) (persistence.Booking, error) {
	if s == nil || s.bookings == nil {
		return persistence.Booking{}, fmt.Errorf("booking repository not configured")
	}
	booking, err := s.bookings.GetBooking(ctx, bookingID)
	if err != nil {
		return persistence.Booking{}, s.mapRepoError(err)
	}
	return booking, nil
}

// ListBookings enumerates bookings matching the filter.
func (s *BookingService) ListBookings(ctx context.Context, params ListBookingsParams) ([]persistence.Booking, error) {
	if s == nil || s.bookings == nil {
		return nil, fmt.Errorf("booking repository not configured")
	}

	// A single room/date listing is the calendar hot path; serve it from the
	// day cache when possible.
	if params.RoomID != "" && params.Date != nil && params.UserID == "" && params.DateFrom == nil && params.DateTo == nil {
		return s.fetchDay(ctx, params.RoomID, availability.DateOnly(*params.Date))
	}

	filter := persistence.BookingFilter{
		RoomID:   params.RoomID,
		UserID:   params.UserID,
		Date:     params.Date,
		DateFrom: params.DateFrom,
		DateTo:   params.DateTo,
	}
	bookings, err := s.bookings.ListBookings(ctx, filter)
	if err != nil {
		return nil, s.mapRepoError(err)
	}
	return bookings, nil
}

func (s *BookingService) fetchDay(ctx context.Context, roomID string, date time.Time) ([]persistence.Booking, error) {
	if cached, ok := s.cache.Get(roomID, date); ok {
		return cached, nil
	}
	bookings, err := s.bookings.ListBookingsForRoomDate(ctx, roomID, date)
	if err != nil {
		return nil, s.mapRepoError(err)
	}
	s.cache.Set(roomID, date, bookings)
	return bookings, nil
}

func (s *BookingService) validateAvailability(ctx context.Context, input BookingInput, room persistence.Room, excludeID string) (*availability.Rejection, error) {
	existing, err := s.bookings.ListBookingsForRoomDate(ctx, input.RoomID, availability.DateOnly(input.Date))
	if err != nil {
		return nil, fmt.Errorf("load bookings for conflict check: %w", err)
	}

	candidates := make([]availability.Existing, 0, len(existing))
	for _, b := range existing {
		candidates = append(candidates, availability.Existing{ID: b.ID, Start: b.Start, End: b.End})
	}

	return availability.Validate(availability.Candidate{
		RoomID: input.RoomID,
		Date:   input.Date,
		Start:  input.Start,
		End:    input.End,
	}, candidates, roomWindow(room), s.now(), excludeID), nil
}

// conflictChecker adapts the booking repository into the expander's conflict
// probe: it reports ids of committed bookings overlapping the proposed slot.
func (s *BookingService) conflictChecker() recurrence.ConflictChecker {
	return func(ctx context.Context, roomID string, date time.Time, start, end int, excludeID string) ([]string, error) {
		existing, err := s.bookings.ListBookingsForRoomDate(ctx, roomID, date)
		if err != nil {
			return nil, err
		}
		var ids []string
		for _, b := range existing {
			if b.ID == excludeID {
				continue
			}
			if availability.Overlaps(start, end, b.Start, b.End) {
				ids = append(ids, b.ID)
			}
		}
		return ids, nil
	}
}

func (s *BookingService) lookupBookableRoom(ctx context.Context, roomID string) (persistence.Room, error) {
	if roomID == "" {
		vErr := &ValidationError{}
		vErr.add("room_id", "room is required")
		return persistence.Room{}, vErr
	}
	room, err := s.rooms.GetRoom(ctx, roomID)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			vErr := &ValidationError{}
			vErr.add("room_id", "room does not exist")
			return persistence.Room{}, vErr
		}
		return persistence.Room{}, err
	}
	if room.Status == RoomStatusDisabled {
		vErr := &ValidationError{}
		vErr.add("room_id", "room is disabled")
		return persistence.Room{}, vErr
	}
	return room, nil
}

func (s *BookingService) ensureActiveUser(ctx context.Context, userID string) error {
	if s.users == nil {
		return nil
	}
	user, err := s.users.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			vErr := &ValidationError{}
			vErr.add("user_id", "user does not exist")
			return vErr
		}
		return err
	}
	if user.Status == UserStatusBlocked {
		return ErrUnauthorized
	}
	return nil
}

func (s *BookingService) mapRepoError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, persistence.ErrNotFound) {
		return ErrNotFound
	}
	if errors.Is(err, persistence.ErrDuplicate) {
		return ErrAlreadyExists
	}
	if errors.Is(err, persistence.ErrConflict) {
		// A racing writer took the slot between validation and commit.
		return &availability.Rejection{Code: availability.CodeConflict}
	}
	return err
}

func validateBookingCore(input BookingInput, vErr *ValidationError) {
	if strings.TrimSpace(input.Title) == "" {
		vErr.add("title", "title is required")
	}
	if input.Date.IsZero() {
		vErr.add("date", "date is required")
	}
	if input.RoomID == "" {
		vErr.add("room_id", "room is required")
	}
}

func roomWindow(room persistence.Room) *availability.Window {
	if room.WindowStart == nil || room.WindowEnd == nil {
		return nil
	}
	return &availability.Window{Start: *room.WindowStart, End: *room.WindowEnd}
}

func optionalString(value string) *string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func derefString(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}
