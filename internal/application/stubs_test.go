package application

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/example/room-booking/internal/availability"
	"github.com/example/room-booking/internal/persistence"
)

// memBookingRepo is an in-memory BookingRepository that mirrors the sqlite
// implementation's conflict behavior, so the services can be exercised
// without a database.
type memBookingRepo struct {
	mu        sync.Mutex
	rows      map[string]persistence.Booking
	listCalls int
	insertErr error
	listErr   error
}

func newMemBookingRepo() *memBookingRepo {
	return &memBookingRepo{rows: make(map[string]persistence.Booking)}
}

func (r *memBookingRepo) overlapping(roomID string, date time.Time, start, end int, excludeID string) []string {
	var ids []string
	for _, b := range r.rows {
		if b.ID == excludeID || b.RoomID != roomID || !sameDay(b.Date, date) {
			continue
		}
		if availability.Overlaps(start, end, b.Start, b.End) {
			ids = append(ids, b.ID)
		}
	}
	sort.Strings(ids)
	return ids
}

func (r *memBookingRepo) InsertBooking(_ context.Context, booking persistence.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.insertErr != nil {
		return r.insertErr
	}
	if ids := r.overlapping(booking.RoomID, booking.Date, booking.Start, booking.End, ""); len(ids) > 0 {
		return fmt.Errorf("%w: %s", persistence.ErrConflict, strings.Join(ids, ","))
	}
	r.rows[booking.ID] = booking
	return nil
}

func (r *memBookingRepo) InsertBookings(ctx context.Context, bookings []persistence.Booking) (int, error) {
	inserted := 0
	var firstErr error
	for _, b := range bookings {
		err := r.InsertBooking(ctx, b)
		switch {
		case err == nil:
			inserted++
		case isConflict(err):
			// best-effort batch, conflicting rows are skipped
		case firstErr == nil:
			firstErr = err
		}
	}
	return inserted, firstErr
}

func (r *memBookingRepo) UpdateBooking(_ context.Context, booking persistence.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[booking.ID]; !ok {
		return persistence.ErrNotFound
	}
	if ids := r.overlapping(booking.RoomID, booking.Date, booking.Start, booking.End, booking.ID); len(ids) > 0 {
		return fmt.Errorf("%w: %s", persistence.ErrConflict, strings.Join(ids, ","))
	}
	r.rows[booking.ID] = booking
	return nil
}

func (r *memBookingRepo) GetBooking(_ context.Context, id string) (persistence.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.rows[id]
	if !ok {
		return persistence.Booking{}, persistence.ErrNotFound
	}
	return b, nil
}

func (r *memBookingRepo) DeleteBooking(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[id]; !ok {
		return persistence.ErrNotFound
	}
	delete(r.rows, id)
	// mirror ON DELETE SET NULL on the parent reference
	for childID, child := range r.rows {
		if child.ParentBookingID != nil && *child.ParentBookingID == id {
			child.ParentBookingID = nil
			r.rows[childID] = child
		}
	}
	return nil
}

func (r *memBookingRepo) ListBookingsForRoomDate(_ context.Context, roomID string, date time.Time) ([]persistence.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listCalls++
	if r.listErr != nil {
		return nil, r.listErr
	}
	var out []persistence.Booking
	for _, b := range r.rows {
		if b.RoomID == roomID && sameDay(b.Date, date) {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Start != out[j].Start {
			return out[i].Start < out[j].Start
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *memBookingRepo) ListBookings(_ context.Context, filter persistence.BookingFilter) ([]persistence.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []persistence.Booking
	for _, b := range r.rows {
		if filter.RoomID != "" && b.RoomID != filter.RoomID {
			continue
		}
		if filter.UserID != "" && b.UserID != filter.UserID {
			continue
		}
		if filter.Date != nil && !sameDay(b.Date, *filter.Date) {
			continue
		}
		if filter.DateFrom != nil && b.Date.Before(availability.DateOnly(*filter.DateFrom)) {
			continue
		}
		if filter.DateTo != nil && b.Date.After(availability.DateOnly(*filter.DateTo)) {
			continue
		}
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type memRoomRepo struct {
	mu   sync.Mutex
	rows map[string]persistence.Room
}

func newMemRoomRepo() *memRoomRepo {
	return &memRoomRepo{rows: make(map[string]persistence.Room)}
}

func (r *memRoomRepo) CreateRoom(_ context.Context, room persistence.Room) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.rows {
		if existing.Name == room.Name {
			return persistence.ErrDuplicate
		}
	}
	r.rows[room.ID] = room
	return nil
}

func (r *memRoomRepo) UpdateRoom(_ context.Context, room persistence.Room) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[room.ID]; !ok {
		return persistence.ErrNotFound
	}
	r.rows[room.ID] = room
	return nil
}

func (r *memRoomRepo) GetRoom(_ context.Context, id string) (persistence.Room, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	room, ok := r.rows[id]
	if !ok {
		return persistence.Room{}, persistence.ErrNotFound
	}
	return room, nil
}

func (r *memRoomRepo) ListRooms(_ context.Context) ([]persistence.Room, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []persistence.Room
	for _, room := range r.rows {
		out = append(out, room)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *memRoomRepo) DeleteRoom(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[id]; !ok {
		return persistence.ErrNotFound
	}
	delete(r.rows, id)
	return nil
}

type memUserRepo struct {
	mu   sync.Mutex
	rows map[string]persistence.User
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{rows: make(map[string]persistence.User)}
}

func (r *memUserRepo) CreateUser(_ context.Context, user persistence.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.rows {
		if existing.Email == user.Email || existing.PIN == user.PIN {
			return persistence.ErrDuplicate
		}
	}
	r.rows[user.ID] = user
	return nil
}

func (r *memUserRepo) UpdateUser(_ context.Context, user persistence.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[user.ID]; !ok {
		return persistence.ErrNotFound
	}
	r.rows[user.ID] = user
	return nil
}

func (r *memUserRepo) GetUser(_ context.Context, id string) (persistence.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.rows[id]
	if !ok {
		return persistence.User{}, persistence.ErrNotFound
	}
	return user, nil
}

func (r *memUserRepo) GetUserByEmail(_ context.Context, email string) (persistence.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, user := range r.rows {
		if user.Email == email {
			return user, nil
		}
	}
	return persistence.User{}, persistence.ErrNotFound
}

func (r *memUserRepo) ListUsers(_ context.Context) ([]persistence.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []persistence.User
	for _, user := range r.rows {
		out = append(out, user)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	return out, nil
}

func (r *memUserRepo) DeleteUser(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[id]; !ok {
		return persistence.ErrNotFound
	}
	delete(r.rows, id)
	return nil
}

func sameDay(a, b time.Time) bool {
	return availability.DateOnly(a).Equal(availability.DateOnly(b))
}

func isConflict(err error) bool {
	return errors.Is(err, persistence.ErrConflict)
}

// sequentialIDs returns a deterministic id generator for tests.
func sequentialIDs(prefix string) func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("%s-%d", prefix, n)
	}
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}
