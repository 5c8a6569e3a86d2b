package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/example/room-booking/internal/persistence"
)

const (
	dateLayout      = "2006-01-02"
	timestampLayout = time.RFC3339
)

// BookingRepository implements persistence.BookingRepository using SQLite.
type BookingRepository struct {
	db  *DB
	now func() time.Time
}

// NewBookingRepository creates a SQLite booking repository. When now is nil,
// time.Now is used for created/updated timestamps.
func NewBookingRepository(db *DB, now func() time.Time) *BookingRepository {
	if now == nil {
		now = time.Now
	}
	return &BookingRepository{db: db, now: now}
}

const bookingColumns = `id, room_id, user_id, title, date, start_min, end_min, remarks,
	repeat_type, repeat_end_date, is_recurring, parent_booking_id, created_at, updated_at`

// InsertBooking persists one booking. The overlap scan runs inside the same
// transaction as the insert, so the caller's earlier availability check
// cannot be invalidated by a racing writer: one of the two transactions
// commits, the other observes the committed row and fails with ErrConflict.
func (r *BookingRepository) InsertBooking(ctx context.Context, booking persistence.Booking) error {
	return r.db.WithTransaction(ctx, func(tx *sql.Tx) error {
		return r.insertTx(tx, booking)
	})
}

// InsertBookings persists the batch best-effort. Conflicting rows are skipped
// without failing the others; the first hard failure is returned together
// with the count of rows that made it in.
func (r *BookingRepository) InsertBookings(ctx context.Context, bookings []persistence.Booking) (int, error) {
	inserted := 0
	var firstErr error
	for _, booking := range bookings {
		err := r.InsertBooking(ctx, booking)
		if err == nil {
			inserted++
			continue
		}
		if errors.Is(err, persistence.ErrConflict) {
			continue
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return inserted, firstErr
}

func (r *BookingRepository) insertTx(tx *sql.Tx, booking persistence.Booking) error {
	if booking.ID == "" {
		return fmt.Errorf("sqlite: booking id is required")
	}

	conflicting, err := overlappingIDsTx(tx, booking.RoomID, booking.Date, booking.Start, booking.End, booking.ID)
	if err != nil {
		return err
	}
	if len(conflicting) > 0 {
		return fmt.Errorf("%w: %s", persistence.ErrConflict, strings.Join(conflicting, ", "))
	}

	now := r.now().UTC()
	if booking.CreatedAt.IsZero() {
		booking.CreatedAt = now
	}
	booking.UpdatedAt = now

	_, err = tx.Exec(`INSERT INTO bookings (`+bookingColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		booking.ID,
		booking.RoomID,
		booking.UserID,
		booking.Title,
		booking.Date.Format(dateLayout),
		booking.Start,
		booking.End,
		nullString(booking.Remarks),
		booking.RepeatType,
		nullDate(booking.RepeatEndDate),
		boolToInt(booking.IsRecurring),
		nullString(booking.ParentBookingID),
		booking.CreatedAt.Format(timestampLayout),
		booking.UpdatedAt.Format(timestampLayout),
	)
	return mapError(err)
}

// UpdateBooking rewrites the mutable fields of an existing booking, applying
// the same transactional overlap guard as insertion.
func (r *BookingRepository) UpdateBooking(ctx context.Context, booking persistence.Booking) error {
	return r.db.WithTransaction(ctx, func(tx *sql.Tx) error {
		var exists int
		if err := tx.QueryRow(`SELECT COUNT(*) FROM bookings WHERE id = ?`, booking.ID).Scan(&exists); err != nil {
			return mapError(err)
		}
		if exists == 0 {
			return persistence.ErrNotFound
		}

		conflicting, err := overlappingIDsTx(tx, booking.RoomID, booking.Date, booking.Start, booking.End, booking.ID)
		if err != nil {
			return err
		}
		if len(conflicting) > 0 {
			return fmt.Errorf("%w: %s", persistence.ErrConflict, strings.Join(conflicting, ", "))
		}

		_, err = tx.Exec(`UPDATE bookings
			SET title = ?, date = ?, start_min = ?, end_min = ?, remarks = ?, updated_at = ?
			WHERE id = ?`,
			booking.Title,
			booking.Date.Format(dateLayout),
			booking.Start,
			booking.End,
			nullString(booking.Remarks),
			r.now().UTC().Format(timestampLayout),
			booking.ID,
		)
		return mapError(err)
	})
}

// GetBooking retrieves a booking by id.
func (r *BookingRepository) GetBooking(ctx context.Context, id string) (persistence.Booking, error) {
	row := r.db.db.QueryRowContext(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = ?`, id)
	booking, err := scanBooking(row)
	if err != nil {
		return persistence.Booking{}, mapError(err)
	}
	return booking, nil
}

// DeleteBooking removes a single booking row. Children of a deleted seed are
// left in place; they are independent bookings once materialized.
func (r *BookingRepository) DeleteBooking(ctx context.Context, id string) error {
	result, err := r.db.db.ExecContext(ctx, `DELETE FROM bookings WHERE id = ?`, id)
	if err != nil {
		return mapError(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return persistence.ErrNotFound
	}
	return nil
}

// ListBookingsForRoomDate returns committed bookings for the room and date,
// ordered by start time.
func (r *BookingRepository) ListBookingsForRoomDate(ctx context.Context, roomID string, date time.Time) ([]persistence.Booking, error) {
	rows, err := r.db.db.QueryContext(ctx, `SELECT `+bookingColumns+` FROM bookings
		WHERE room_id = ? AND date = ? ORDER BY start_min, id`,
		roomID, date.Format(dateLayout))
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()
	return collectBookings(rows)
}

// ListBookings enumerates bookings matching the filter, ordered by date then
// start time.
func (r *BookingRepository) ListBookings(ctx context.Context, filter persistence.BookingFilter) ([]persistence.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings`
	clauses := make([]string, 0, 4)
	args := make([]any, 0, 4)

	if filter.RoomID != "" {
		clauses = append(clauses, "room_id = ?")
		args = append(args, filter.RoomID)
	}
	if filter.UserID != "" {
		clauses = append(clauses, "user_id = ?")
		args = append(args, filter.UserID)
	}
	if filter.Date != nil {
		clauses = append(clauses, "date = ?")
		args = append(args, filter.Date.Format(dateLayout))
	}
	if filter.DateFrom != nil {
		clauses = append(clauses, "date >= ?")
		args = append(args, filter.DateFrom.Format(dateLayout))
	}
	if filter.DateTo != nil {
		clauses = append(clauses, "date <= ?")
		args = append(args, filter.DateTo.Format(dateLayout))
	}

	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY date, start_min, id"

	rows, err := r.db.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()
	return collectBookings(rows)
}

func overlappingIDsTx(tx *sql.Tx, roomID string, date time.Time, start, end int, excludeID string) ([]string, error) {
	rows, err := tx.Query(`SELECT id FROM bookings
		WHERE room_id = ? AND date = ? AND start_min < ? AND end_min > ? AND id != ?
		ORDER BY start_min, id`,
		roomID, date.Format(dateLayout), end, start, excludeID)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBooking(row rowScanner) (persistence.Booking, error) {
	var (
		booking       persistence.Booking
		dateValue     string
		remarks       sql.NullString
		repeatEndDate sql.NullString
		isRecurring   int
		parentID      sql.NullString
		createdAt     string
		updatedAt     string
	)

	err := row.Scan(
		&booking.ID,
		&booking.RoomID,
		&booking.UserID,
		&booking.Title,
		&dateValue,
		&booking.Start,
		&booking.End,
		&remarks,
		&booking.RepeatType,
		&repeatEndDate,
		&isRecurring,
		&parentID,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return persistence.Booking{}, err
	}

	if booking.Date, err = time.Parse(dateLayout, dateValue); err != nil {
		return persistence.Booking{}, fmt.Errorf("sqlite: parse booking date: %w", err)
	}
	booking.Remarks = stringPtr(remarks)
	if repeatEndDate.Valid {
		parsed, err := time.Parse(dateLayout, repeatEndDate.String)
		if err != nil {
			return persistence.Booking{}, fmt.Errorf("sqlite: parse repeat end date: %w", err)
		}
		booking.RepeatEndDate = &parsed
	}
	booking.IsRecurring = isRecurring != 0
	booking.ParentBookingID = stringPtr(parentID)
	if booking.CreatedAt, err = time.Parse(timestampLayout, createdAt); err != nil {
		return persistence.Booking{}, fmt.Errorf("sqlite: parse created_at: %w", err)
	}
	if booking.UpdatedAt, err = time.Parse(timestampLayout, updatedAt); err != nil {
		return persistence.Booking{}, fmt.Errorf("sqlite: parse updated_at: %w", err)
	}

	return booking, nil
}

func collectBookings(rows *sql.Rows) ([]persistence.Booking, error) {
	var bookings []persistence.Booking
	for rows.Next() {
		booking, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, booking)
	}
	return bookings, rows.Err()
}

func nullDate(value *time.Time) sql.NullString {
	if value == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: value.Format(dateLayout), Valid: true}
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}
