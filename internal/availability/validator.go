package availability

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// RejectionCode classifies why a booking candidate was refused.
type RejectionCode string

const (
	// CodeInvalidInterval indicates the candidate interval is empty or inverted.
	CodeInvalidInterval RejectionCode = "invalid_interval"
	// CodePastDate indicates the candidate date lies before today.
	CodePastDate RejectionCode = "past_date"
	// CodeOutsideRoomHours indicates the interval exceeds the room's operating window.
	CodeOutsideRoomHours RejectionCode = "outside_room_hours"
	// CodeConflict indicates the interval overlaps an existing booking.
	CodeConflict RejectionCode = "conflict"
)

// Rejection details a refused booking candidate that callers can present to users.
type Rejection struct {
	Code        RejectionCode
	ConflictIDs []string
}

// Error implements the error interface.
func (r *Rejection) Error() string {
	if r == nil {
		return ""
	}
	if r.Code == CodeConflict && len(r.ConflictIDs) > 0 {
		return fmt.Sprintf("availability: %s with booking(s) %s", r.Code, strings.Join(r.ConflictIDs, ", "))
	}
	return fmt.Sprintf("availability: %s", r.Code)
}

// Candidate describes a booking request under evaluation. Start and End are
// minutes since midnight forming the half-open interval [Start, End).
type Candidate struct {
	RoomID string
	Date   time.Time
	Start  int
	End    int
}

// Existing is an already accepted booking for the candidate's room and date.
type Existing struct {
	ID    string
	Start int
	End   int
}

// Window bounds the time of day within which a booking must fully fit.
// A nil *Window means the room is open the whole day.
type Window struct {
	Start int
	End   int
}

// Validate decides whether the candidate may be persisted.
//
// Checks run in order and stop at the first failure: the interval must be
// non-empty, the date must not lie before today (date portion only; booking
// later today is always allowed), the interval must fit the room window when
// one is set, and it must not overlap any existing booking. Bookings whose ID
// equals excludeID are ignored during the overlap scan so an edited booking
// does not conflict with itself.
//
// The function is pure: it never touches storage or the wall clock, so calling
// it twice with identical inputs yields identical results.
func Validate(c Candidate, existing []Existing, window *Window, today time.Time, excludeID string) *Rejection {
	if c.Start >= c.End {
		return &Rejection{Code: CodeInvalidInterval}
	}

	if DateOnly(c.Date).Before(DateOnly(today)) {
		return &Rejection{Code: CodePastDate}
	}

	if window != nil {
		if c.Start < window.Start || c.End > window.End {
			return &Rejection{Code: CodeOutsideRoomHours}
		}
	}

	var conflicts []string
	for _, b := range existing {
		if excludeID != "" && b.ID == excludeID {
			continue
		}
		// Half-open intervals: touching boundaries do not overlap.
		if c.Start < b.End && c.End > b.Start {
			conflicts = append(conflicts, b.ID)
		}
	}
	if len(conflicts) > 0 {
		return &Rejection{Code: CodeConflict, ConflictIDs: conflicts}
	}

	return nil
}

// Overlaps reports whether two half-open minute intervals share any time.
func Overlaps(start1, end1, start2, end2 int) bool {
	return start1 < end2 && end1 > start2
}

// DateOnly strips the time-of-day portion, normalizing to midnight UTC so
// calendar dates compare independently of zone or clock.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseClock converts a fixed-format HH:MM or HH:MM:SS string into minutes
// since midnight. Seconds, when present, are ignored; the stored times are
// minute-granular.
func ParseClock(value string) (int, error) {
	parts := strings.Split(strings.TrimSpace(value), ":")
	if len(parts) != 2 && len(parts) != 3 {
		return 0, fmt.Errorf("availability: invalid clock value %q", value)
	}

	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, fmt.Errorf("availability: invalid hour in %q", value)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, fmt.Errorf("availability: invalid minute in %q", value)
	}

	return hour*60 + minute, nil
}

// FormatClock renders minutes since midnight back into HH:MM form.
func FormatClock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}
