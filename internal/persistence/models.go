package persistence

import "time"

// Room represents a meeting room catalog entry. WindowStart and WindowEnd are
// minutes since midnight bounding bookable hours; both nil means the room is
// open all day.
type Room struct {
	ID          string
	Name        string
	Color       *string
	Capacity    int
	Facilities  *string
	WindowStart *int
	WindowEnd   *int
	Status      string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Booking represents one accepted occurrence for a room on a date. Start and
// End are minutes since midnight forming the half-open interval [Start, End).
type Booking struct {
	ID              string
	RoomID          string
	UserID          string
	Title           string
	Date            time.Time
	Start           int
	End             int
	Remarks         *string
	RepeatType      string
	RepeatEndDate   *time.Time
	IsRecurring     bool
	ParentBookingID *string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// User represents an employee profile able to own bookings.
type User struct {
	ID           string
	Name         string
	Email        string
	PIN          string
	Phone        string
	Department   *string
	Designation  *string
	Role         string
	Status       string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
