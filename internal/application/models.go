package application

import (
	"time"

	"github.com/example/room-booking/internal/recurrence"
)

// Principal represents the authenticated user invoking a service method. The
// surrounding system performs authentication; services only consult the
// identity and role handed to them.
type Principal struct {
	UserID  string
	IsAdmin bool
}

// BookingInput captures caller provided booking fields. Start and End are
// minutes since midnight, parsed once at the transport boundary.
type BookingInput struct {
	RoomID        string
	UserID        string
	Title         string
	Date          time.Time
	Start         int
	End           int
	Remarks       string
	Repeat        recurrence.Frequency
	RepeatEndDate *time.Time
}

// CreateBookingParams wraps the data required to create a booking.
type CreateBookingParams struct {
	Principal Principal
	Input     BookingInput
}

// UpdateBookingParams wraps the data required to update an existing booking.
// Recurrence descriptors are not editable after creation.
type UpdateBookingParams struct {
	Principal Principal
	BookingID string
	Input     BookingInput
}

// ListBookingsParams narrows booking listings.
type ListBookingsParams struct {
	Principal Principal
	RoomID    string
	UserID    string
	Date      *time.Time
	DateFrom  *time.Time
	DateTo    *time.Time
}

// RecurrenceSummary reports the outcome of expanding a recurring seed: how
// many children were persisted, which dates were skipped and why, and any
// batch persistence failure. BatchErr is informational for the caller; the
// seed itself is already committed when a summary is produced.
type RecurrenceSummary struct {
	InsertedCount int
	Skipped       []recurrence.Skip
	BatchErr      error
}

// RoomInput captures caller provided room fields. WindowStart and WindowEnd
// are minutes since midnight; both nil leaves the room open all day.
type RoomInput struct {
	Name        string
	Color       *string
	Capacity    int
	Facilities  *string
	WindowStart *int
	WindowEnd   *int
	Status      string
}

// CreateRoomParams wraps the data required to create a room.
type CreateRoomParams struct {
	Principal Principal
	Input     RoomInput
}

// UpdateRoomParams wraps the data required to update a room.
type UpdateRoomParams struct {
	Principal Principal
	RoomID    string
	Input     RoomInput
}

// UserInput captures caller provided user profile attributes. Password is
// only consumed at creation; it is hashed before it reaches persistence.
type UserInput struct {
	Name        string
	Email       string
	PIN         string
	Phone       string
	Department  *string
	Designation *string
	Role        string
	Status      string
	Password    string
}

// CreateUserParams wraps the data required to provision a user.
type CreateUserParams struct {
	Principal Principal
	Input     UserInput
}

// UpdateUserParams wraps the data required to update a user profile.
type UpdateUserParams struct {
	Principal Principal
	UserID    string
	Input     UserInput
}

// Room/user status and role values shared with persistence.
const (
	RoomStatusEnabled  = "enabled"
	RoomStatusDisabled = "disabled"

	RoleUser  = "user"
	RoleAdmin = "admin"

	UserStatusActive  = "active"
	UserStatusBlocked = "blocked"
)
