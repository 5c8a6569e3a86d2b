package testfixtures

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/example/room-booking/internal/persistence"
)

var (
	userCounter    uint64
	roomCounter    uint64
	bookingCounter uint64
)

var referenceTime = time.Date(2025, time.September, 1, 8, 0, 0, 0, time.UTC)

// ReferenceTime returns the canonical baseline timestamp used by fixtures.
// It falls on a Monday so weekday dependent tests stay readable.
func ReferenceTime() time.Time {
	return referenceTime
}

// ----------------------------- User fixtures -----------------------------

// UserOption configures the generated user record.
type UserOption func(*persistence.User)

// NewUser returns a deterministic user record with optional overrides.
func NewUser(opts ...UserOption) persistence.User {
	idx := atomic.AddUint64(&userCounter, 1)
	id := fmt.Sprintf("user-%03d", idx)
	created := referenceTime.Add(time.Duration(idx) * time.Minute)
	user := persistence.User{
		ID:           id,
		Name:         fmt.Sprintf("User %03d", idx),
		Email:        fmt.Sprintf("%s@example.com", id),
		PIN:          fmt.Sprintf("%04d", 1000+idx),
		Role:         "user",
		Status:       "active",
		PasswordHash: fmt.Sprintf("hash-%03d", idx),
		CreatedAt:    created,
		UpdatedAt:    created,
	}
	for _, opt := range opts {
		opt(&user)
	}
	return user
}

// WithUserID overrides the generated user ID.
func WithUserID(id string) UserOption {
	return func(u *persistence.User) { u.ID = id }
}

// WithUserEmail overrides the generated email address.
func WithUserEmail(email string) UserOption {
	return func(u *persistence.User) { u.Email = email }
}

// WithUserRole overrides the generated role.
func WithUserRole(role string) UserOption {
	return func(u *persistence.User) { u.Role = role }
}

// WithUserStatus overrides the generated status.
func WithUserStatus(status string) UserOption {
	return func(u *persistence.User) { u.Status = status }
}

// ----------------------------- Room fixtures -----------------------------

// RoomOption configures the generated room record.
type RoomOption func(*persistence.Room)

// NewRoom returns a deterministic room record with optional overrides. The
// default room is enabled and open all day.
func NewRoom(opts ...RoomOption) persistence.Room {
	idx := atomic.AddUint64(&roomCounter, 1)
	id := fmt.Sprintf("room-%03d", idx)
	created := referenceTime.Add(time.Duration(idx) * time.Minute)
	room := persistence.Room{
		ID:        id,
		Name:      fmt.Sprintf("Room %03d", idx),
		Capacity:  int(4 + idx%8),
		Status:    "enabled",
		CreatedAt: created,
		UpdatedAt: created,
	}
	for _, opt := range opts {
		opt(&room)
	}
	return room
}

// WithRoomID overrides the generated room ID.
func WithRoomID(id string) RoomOption {
	return func(r *persistence.Room) { r.ID = id }
}

// WithRoomName overrides the generated room name.
func WithRoomName(name string) RoomOption {
	return func(r *persistence.Room) { r.Name = name }
}

// WithRoomWindow sets the availability window in minutes since midnight.
func WithRoomWindow(start, end int) RoomOption {
	return func(r *persistence.Room) {
		r.WindowStart = &start
		r.WindowEnd = &end
	}
}

// WithRoomStatus overrides the generated status.
func WithRoomStatus(status string) RoomOption {
	return func(r *persistence.Room) { r.Status = status }
}

// ---------------------------- Booking fixtures ----------------------------

// BookingOption configures the generated booking record.
type BookingOption func(*persistence.Booking)

// NewBooking returns a deterministic booking record with optional overrides.
// Each generated booking occupies its own hour slot on the day after the
// reference time, so fixtures never conflict unless a test arranges it.
func NewBooking(opts ...BookingOption) persistence.Booking {
	idx := atomic.AddUint64(&bookingCounter, 1)
	id := fmt.Sprintf("booking-%03d", idx)
	created := referenceTime.Add(time.Duration(idx) * time.Minute)
	start := int(8*60 + (idx%9)*60)
	booking := persistence.Booking{
		ID:         id,
		RoomID:     "room-001",
		UserID:     "user-001",
		Title:      fmt.Sprintf("Booking %03d", idx),
		Date:       referenceTime.AddDate(0, 0, 1).Truncate(24 * time.Hour),
		Start:      start,
		End:        start + 60,
		RepeatType: "no_repeat",
		CreatedAt:  created,
		UpdatedAt:  created,
	}
	for _, opt := range opts {
		opt(&booking)
	}
	return booking
}

// WithBookingID overrides the generated booking ID.
func WithBookingID(id string) BookingOption {
	return func(b *persistence.Booking) { b.ID = id }
}

// WithBookingRoom assigns the booking to the given room.
func WithBookingRoom(roomID string) BookingOption {
	return func(b *persistence.Booking) { b.RoomID = roomID }
}

// WithBookingUser assigns the booking to the given user.
func WithBookingUser(userID string) BookingOption {
	return func(b *persistence.Booking) { b.UserID = userID }
}

// WithBookingDate places the booking on the given calendar date.
func WithBookingDate(date time.Time) BookingOption {
	return func(b *persistence.Booking) { b.Date = date }
}

// WithBookingSlot sets the start and end minutes of the booking.
func WithBookingSlot(start, end int) BookingOption {
	return func(b *persistence.Booking) {
		b.Start = start
		b.End = end
	}
}

// WithBookingParent marks the booking as a recurrence child of the given seed.
func WithBookingParent(parentID string) BookingOption {
	return func(b *persistence.Booking) {
		b.ParentBookingID = &parentID
		b.IsRecurring = true
	}
}
