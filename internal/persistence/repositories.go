package persistence

import (
	"context"
	"time"
)

// RoomRepository exposes CRUD operations for rooms.
type RoomRepository interface {
	CreateRoom(ctx context.Context, room Room) error
	UpdateRoom(ctx context.Context, room Room) error
	GetRoom(ctx context.Context, id string) (Room, error)
	ListRooms(ctx context.Context) ([]Room, error)
	DeleteRoom(ctx context.Context, id string) error
}

// UserRepository exposes CRUD operations for user profiles.
type UserRepository interface {
	CreateUser(ctx context.Context, user User) error
	UpdateUser(ctx context.Context, user User) error
	GetUser(ctx context.Context, id string) (User, error)
	GetUserByEmail(ctx context.Context, email string) (User, error)
	ListUsers(ctx context.Context) ([]User, error)
	DeleteUser(ctx context.Context, id string) error
}

// BookingFilter narrows booking queries. Zero-value fields are ignored.
type BookingFilter struct {
	RoomID   string
	UserID   string
	Date     *time.Time
	DateFrom *time.Time
	DateTo   *time.Time
}

// BookingRepository stores booking rows and enforces the non-overlap
// guarantee at commit time: inserts re-check the room/date slot inside the
// writing transaction so two racing writers cannot both succeed.
type BookingRepository interface {
	// InsertBooking persists one booking, returning ErrConflict when the
	// slot was taken between the caller's validation and the commit.
	InsertBooking(ctx context.Context, booking Booking) error
	// InsertBookings persists a batch best-effort: rows that conflict are
	// skipped, the count of inserted rows is always returned, and the first
	// hard failure is reported alongside it.
	InsertBookings(ctx context.Context, bookings []Booking) (int, error)
	UpdateBooking(ctx context.Context, booking Booking) error
	GetBooking(ctx context.Context, id string) (Booking, error)
	DeleteBooking(ctx context.Context, id string) error
	// ListBookingsForRoomDate returns committed bookings for one room on one
	// calendar date, ordered by start time.
	ListBookingsForRoomDate(ctx context.Context, roomID string, date time.Time) ([]Booking, error)
	ListBookings(ctx context.Context, filter BookingFilter) ([]Booking, error)
}
