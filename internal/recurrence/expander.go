package recurrence

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/example/room-booking/internal/availability"
)

// Frequency represents supported recurrence intervals.
type Frequency string

const (
	// FrequencyNoRepeat indicates the booking does not repeat. It never
	// reaches the expander; it is the absence of recurrence.
	FrequencyNoRepeat Frequency = "no_repeat"
	// FrequencyDaily repeats every calendar day.
	FrequencyDaily Frequency = "daily"
	// FrequencyWeekly repeats on the same weekday every week.
	FrequencyWeekly Frequency = "weekly"
	// FrequencyMonthly repeats on the seed's day-of-month, clamped to the
	// target month's last day when shorter.
	FrequencyMonthly Frequency = "monthly"
	// FrequencyCustom repeats daily up to an explicit end date.
	FrequencyCustom Frequency = "custom"
)

// ParseFrequency maps a wire value onto a Frequency.
func ParseFrequency(value string) (Frequency, error) {
	switch Frequency(value) {
	case FrequencyNoRepeat, FrequencyDaily, FrequencyWeekly, FrequencyMonthly, FrequencyCustom:
		return Frequency(value), nil
	case "":
		return FrequencyNoRepeat, nil
	default:
		return FrequencyNoRepeat, fmt.Errorf("%w: %q", ErrInvalidFrequency, value)
	}
}

// Rule describes a recurrence configuration for a booking series.
type Rule struct {
	Frequency Frequency
	Until     *time.Time
}

// Repeats reports whether the rule produces any occurrences beyond the seed.
func (r Rule) Repeats() bool {
	return r.Frequency != FrequencyNoRepeat && r.Frequency != ""
}

// ErrInvalidFrequency indicates the recurrence frequency is not supported.
var ErrInvalidFrequency = errors.New("recurrence: invalid frequency")

// ErrMissingUntil indicates a custom rule without its required end date.
var ErrMissingUntil = errors.New("recurrence: custom rule requires an end date")

// maxIterations bounds worst-case work for unbounded daily or weekly rules.
// It is a safety valve, roughly two years of daily occurrences.
const maxIterations = 730

// Seed is the user-submitted first occurrence of a booking series. Start and
// End are minutes since midnight.
type Seed struct {
	ID      string
	RoomID  string
	UserID  string
	Title   string
	Remarks string
	Date    time.Time
	Start   int
	End     int
}

// Child is a generated occurrence to be persisted by the caller.
type Child struct {
	RoomID          string
	UserID          string
	Title           string
	Remarks         string
	Date            time.Time
	Start           int
	End             int
	ParentBookingID string
}

// SkipReason classifies why an occurrence date was not materialized.
type SkipReason string

const (
	// SkipBlackedOut marks a date excluded by the organization calendar.
	SkipBlackedOut SkipReason = "blacked_out"
	// SkipConflict marks a date whose slot overlaps an existing booking.
	SkipConflict SkipReason = "conflict"
	// SkipCheckFailed marks a date whose conflict check itself errored.
	// Kept distinct from SkipConflict so callers can tell infrastructure
	// failure apart from a genuine overlap.
	SkipCheckFailed SkipReason = "conflict_check_failed"
)

// Skip records a single non-materialized occurrence date.
type Skip struct {
	Date        time.Time
	Reason      SkipReason
	Detail      string
	ConflictIDs []string
}

// Expansion is the outcome of expanding one recurrence rule.
type Expansion struct {
	Children []Child
	Skipped  []Skip
}

// ConflictChecker reports the ids of committed bookings overlapping the
// proposed slot. Conceptually it runs the availability overlap scan against
// whatever exists for the room and date at call time.
type ConflictChecker func(ctx context.Context, roomID string, date time.Time, start, end int, excludeID string) ([]string, error)

// BlackoutPolicy encodes the organization work-week convention applied to
// daily and custom expansion: the weekly off-day is always skipped, and the
// 1st, 3rd and 4th ordinal occurrences of the weekend day within a month are
// skipped (the 4th only when the month holds at least four of that weekday,
// leaving the 2nd as a working day).
type BlackoutPolicy struct {
	WeeklyOffDay time.Weekday
	WeekendDay   time.Weekday
}

// DefaultBlackoutPolicy matches the original deployment: Fridays off plus
// 1st, 3rd and qualifying 4th Saturdays.
func DefaultBlackoutPolicy() BlackoutPolicy {
	return BlackoutPolicy{WeeklyOffDay: time.Friday, WeekendDay: time.Saturday}
}

// BlackedOut reports whether the date is excluded under the policy, with a
// human-readable detail when it is.
func (p BlackoutPolicy) BlackedOut(date time.Time) (bool, string) {
	weekday := date.Weekday()
	if weekday == p.WeeklyOffDay {
		return true, fmt.Sprintf("falls on the weekly off-day (%s)", weekday)
	}
	if weekday != p.WeekendDay {
		return false, ""
	}

	ordinal := weekdayOrdinal(date)
	switch ordinal {
	case 1, 3:
		return true, fmt.Sprintf("%s %s of the month", ordinalLabel(ordinal), weekday)
	case 4:
		if weekdayCountInMonth(date) >= 4 {
			return true, fmt.Sprintf("4th %s of the month", weekday)
		}
	}
	return false, ""
}

// Expand materializes the child occurrence dates for the seed under the rule.
//
// The walk starts on the seed's own date, advances by the rule's transition
// (daily/custom +1 day, weekly +7 days, monthly same day-of-month clamped),
// and stops once the date passes rule.Until or the iteration cap is hit. The
// seed date itself yields neither a child nor a skip record: the seed row is
// persisted separately by the caller.
//
// Skipping is the designed response to a blacked-out date, a conflicting slot
// or a failing conflict check; none of them aborts the batch. Expand only
// returns an error for a rule the transition function cannot express.
func Expand(ctx context.Context, seed Seed, rule Rule, policy BlackoutPolicy, check ConflictChecker) (Expansion, error) {
	if !rule.Repeats() {
		return Expansion{}, fmt.Errorf("%w: %q", ErrInvalidFrequency, rule.Frequency)
	}
	if rule.Frequency == FrequencyCustom && rule.Until == nil {
		return Expansion{}, ErrMissingUntil
	}

	seedDate := availability.DateOnly(seed.Date)
	var until time.Time
	if rule.Until != nil {
		until = availability.DateOnly(*rule.Until)
	}

	blackoutApplies := rule.Frequency == FrequencyDaily || rule.Frequency == FrequencyCustom

	var result Expansion
	current := seedDate
	for iteration := 0; iteration < maxIterations; iteration++ {
		if rule.Until != nil && current.After(until) {
			break
		}

		if !current.Equal(seedDate) {
			result.visit(ctx, seed, current, blackoutApplies, policy, check)
		}

		next, err := advance(current, seedDate, rule.Frequency)
		if err != nil {
			return Expansion{}, err
		}
		current = next
	}

	return result, nil
}

func (e *Expansion) visit(ctx context.Context, seed Seed, date time.Time, blackoutApplies bool, policy BlackoutPolicy, check ConflictChecker) {
	if blackoutApplies {
		if excluded, detail := policy.BlackedOut(date); excluded {
			e.Skipped = append(e.Skipped, Skip{Date: date, Reason: SkipBlackedOut, Detail: detail})
			return
		}
	}

	if check != nil {
		conflictIDs, err := check(ctx, seed.RoomID, date, seed.Start, seed.End, seed.ID)
		if err != nil {
			e.Skipped = append(e.Skipped, Skip{Date: date, Reason: SkipCheckFailed, Detail: err.Error()})
			return
		}
		if len(conflictIDs) > 0 {
			e.Skipped = append(e.Skipped, Skip{
				Date:        date,
				Reason:      SkipConflict,
				Detail:      fmt.Sprintf("slot overlaps booking(s) %s", strings.Join(conflictIDs, ", ")),
				ConflictIDs: conflictIDs,
			})
			return
		}
	}

	e.Children = append(e.Children, Child{
		RoomID:          seed.RoomID,
		UserID:          seed.UserID,
		Title:           seed.Title,
		Remarks:         seed.Remarks,
		Date:            date,
		Start:           seed.Start,
		End:             seed.End,
		ParentBookingID: seed.ID,
	})
}

// advance computes the next occurrence date. The switch is exhaustive over
// the repeating frequencies; anything else is an error rather than a silent
// fallback.
func advance(current, seedDate time.Time, freq Frequency) (time.Time, error) {
	switch freq {
	case FrequencyDaily, FrequencyCustom:
		return current.AddDate(0, 0, 1), nil
	case FrequencyWeekly:
		return current.AddDate(0, 0, 7), nil
	case FrequencyMonthly:
		return nextMonthly(current, seedDate.Day()), nil
	case FrequencyNoRepeat:
		fallthrough
	default:
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidFrequency, freq)
	}
}

// nextMonthly lands on the seed's original day-of-month in the following
// month, clamped to that month's last day (a seed on the 31st books the 28th,
// 29th or 30th where necessary).
func nextMonthly(current time.Time, originalDay int) time.Time {
	firstOfNext := time.Date(current.Year(), current.Month(), 1, 0, 0, 0, 0, current.Location()).AddDate(0, 1, 0)
	lastDay := firstOfNext.AddDate(0, 1, -1).Day()
	day := originalDay
	if day > lastDay {
		day = lastDay
	}
	return time.Date(firstOfNext.Year(), firstOfNext.Month(), day, 0, 0, 0, 0, current.Location())
}

// weekdayOrdinal reports which occurrence of its weekday within the month the
// date is (1 for the first, 2 for the second, ...).
func weekdayOrdinal(date time.Time) int {
	return (date.Day()-1)/7 + 1
}

// weekdayCountInMonth reports how many times the date's weekday occurs in its
// month.
func weekdayCountInMonth(date time.Time) int {
	lastDay := time.Date(date.Year(), date.Month(), 1, 0, 0, 0, 0, date.Location()).AddDate(0, 1, -1).Day()
	count := lastDay / 7
	remainder := lastDay % 7
	// The first `remainder` weekdays of the month occur one extra time.
	firstWeekday := time.Date(date.Year(), date.Month(), 1, 0, 0, 0, 0, date.Location()).Weekday()
	offset := (int(date.Weekday()) - int(firstWeekday) + 7) % 7
	if offset < remainder {
		count++
	}
	return count
}

func ordinalLabel(n int) string {
	switch n {
	case 1:
		return "1st"
	case 2:
		return "2nd"
	case 3:
		return "3rd"
	default:
		return fmt.Sprintf("%dth", n)
	}
}
