package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/example/room-booking/internal/persistence"
)

// RoomRepository implements persistence.RoomRepository using SQLite.
type RoomRepository struct {
	db  *DB
	now func() time.Time
}

// NewRoomRepository creates a SQLite room repository.
func NewRoomRepository(db *DB, now func() time.Time) *RoomRepository {
	if now == nil {
		now = time.Now
	}
	return &RoomRepository{db: db, now: now}
}

const roomColumns = `id, name, color, capacity, facilities, window_start, window_end, status, created_at, updated_at`

// CreateRoom inserts a new room catalog entry.
func (r *RoomRepository) CreateRoom(ctx context.Context, room persistence.Room) error {
	now := r.now().UTC()
	if room.CreatedAt.IsZero() {
		room.CreatedAt = now
	}
	room.UpdatedAt = now

	_, err := r.db.db.ExecContext(ctx, `INSERT INTO rooms (`+roomColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		room.ID,
		room.Name,
		nullString(room.Color),
		room.Capacity,
		nullString(room.Facilities),
		nullInt(room.WindowStart),
		nullInt(room.WindowEnd),
		room.Status,
		room.CreatedAt.Format(timestampLayout),
		room.UpdatedAt.Format(timestampLayout),
	)
	return mapError(err)
}

// UpdateRoom rewrites an existing room record.
func (r *RoomRepository) UpdateRoom(ctx context.Context, room persistence.Room) error {
	result, err := r.db.db.ExecContext(ctx, `UPDATE rooms
		SET name = ?, color = ?, capacity = ?, facilities = ?, window_start = ?, window_end = ?, status = ?, updated_at = ?
		WHERE id = ?`,
		room.Name,
		nullString(room.Color),
		room.Capacity,
		nullString(room.Facilities),
		nullInt(room.WindowStart),
		nullInt(room.WindowEnd),
		room.Status,
		r.now().UTC().Format(timestampLayout),
		room.ID,
	)
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

// GetRoom retrieves a room by id.
func (r *RoomRepository) GetRoom(ctx context.Context, id string) (persistence.Room, error) {
	row := r.db.db.QueryRowContext(ctx, `SELECT `+roomColumns+` FROM rooms WHERE id = ?`, id)
	room, err := scanRoom(row)
	if err != nil {
		return persistence.Room{}, mapError(err)
	}
	return room, nil
}

// ListRooms enumerates rooms ordered by name.
func (r *RoomRepository) ListRooms(ctx context.Context) ([]persistence.Room, error) {
	rows, err := r.db.db.QueryContext(ctx, `SELECT `+roomColumns+` FROM rooms ORDER BY name, id`)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var rooms []persistence.Room
	for rows.Next() {
		room, err := scanRoom(rows)
		if err != nil {
			return nil, err
		}
		rooms = append(rooms, room)
	}
	return rooms, rows.Err()
}

// DeleteRoom removes a room.
func (r *RoomRepository) DeleteRoom(ctx context.Context, id string) error {
	result, err := r.db.db.ExecContext(ctx, `DELETE FROM rooms WHERE id = ?`, id)
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

func scanRoom(row rowScanner) (persistence.Room, error) {
	var (
		room        persistence.Room
		color       sql.NullString
		facilities  sql.NullString
		windowStart sql.NullInt64
		windowEnd   sql.NullInt64
		createdAt   string
		updatedAt   string
	)

	err := row.Scan(
		&room.ID,
		&room.Name,
		&color,
		&room.Capacity,
		&facilities,
		&windowStart,
		&windowEnd,
		&room.Status,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return persistence.Room{}, err
	}

	room.Color = stringPtr(color)
	room.Facilities = stringPtr(facilities)
	room.WindowStart = intPtr(windowStart)
	room.WindowEnd = intPtr(windowEnd)
	if room.CreatedAt, err = time.Parse(timestampLayout, createdAt); err != nil {
		return persistence.Room{}, err
	}
	if room.UpdatedAt, err = time.Parse(timestampLayout, updatedAt); err != nil {
		return persistence.Room{}, err
	}
	return room, nil
}
