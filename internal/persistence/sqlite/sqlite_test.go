package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/room-booking/internal/persistence"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := Open("file:" + filepath.Join(t.TempDir(), "roombook.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, db.Migrate(context.Background()))
	return db
}

func fixedNow() time.Time {
	return time.Date(2025, 9, 1, 8, 0, 0, 0, time.UTC)
}

func seedRoomAndUser(t *testing.T, db *DB) {
	t.Helper()
	ctx := context.Background()

	rooms := NewRoomRepository(db, fixedNow)
	require.NoError(t, rooms.CreateRoom(ctx, persistence.Room{
		ID:       "room-1",
		Name:     "Conference A",
		Capacity: 8,
		Status:   "enabled",
	}))

	users := NewUserRepository(db, fixedNow)
	require.NoError(t, users.CreateUser(ctx, persistence.User{
		ID:           "user-1",
		Name:         "Asha",
		Email:        "asha@example.com",
		PIN:          "1001",
		Phone:        "+8801700000001",
		Role:         "user",
		Status:       "active",
		PasswordHash: "hash",
	}))
}

func testBooking(id string, start, end int) persistence.Booking {
	return persistence.Booking{
		ID:         id,
		RoomID:     "room-1",
		UserID:     "user-1",
		Title:      "Sync",
		Date:       time.Date(2025, 9, 2, 0, 0, 0, 0, time.UTC),
		Start:      start,
		End:        end,
		RepeatType: "no_repeat",
	}
}

func TestMigrateIsIdempotent(t *testing.T) {
	t.Parallel()

	db := openTestDB(t)
	require.NoError(t, db.Migrate(context.Background()))
	require.NoError(t, db.Ping(context.Background()))
}

func TestRoomRepository_CRUD(t *testing.T) {
	t.Parallel()

	db := openTestDB(t)
	ctx := context.Background()
	repo := NewRoomRepository(db, fixedNow)

	start, end := 9*60, 18*60
	color := "#2563eb"
	require.NoError(t, repo.CreateRoom(ctx, persistence.Room{
		ID:          "room-1",
		Name:        "Conference A",
		Color:       &color,
		Capacity:    8,
		WindowStart: &start,
		WindowEnd:   &end,
		Status:      "enabled",
	}))

	room, err := repo.GetRoom(ctx, "room-1")
	require.NoError(t, err)
	assert.Equal(t, "Conference A", room.Name)
	require.NotNil(t, room.WindowStart)
	assert.Equal(t, 540, *room.WindowStart)
	require.NotNil(t, room.Color)
	assert.Equal(t, "#2563eb", *room.Color)

	room.Status = "disabled"
	room.Capacity = 12
	require.NoError(t, repo.UpdateRoom(ctx, room))

	updated, err := repo.GetRoom(ctx, "room-1")
	require.NoError(t, err)
	assert.Equal(t, "disabled", updated.Status)
	assert.Equal(t, 12, updated.Capacity)

	rooms, err := repo.ListRooms(ctx)
	require.NoError(t, err)
	assert.Len(t, rooms, 1)

	require.NoError(t, repo.DeleteRoom(ctx, "room-1"))
	_, err = repo.GetRoom(ctx, "room-1")
	assert.ErrorIs(t, err, persistence.ErrNotFound)
	assert.ErrorIs(t, repo.DeleteRoom(ctx, "room-1"), persistence.ErrNotFound)
}

func TestRoomRepository_DuplicateName(t *testing.T) {
	t.Parallel()

	db := openTestDB(t)
	ctx := context.Background()
	repo := NewRoomRepository(db, fixedNow)

	require.NoError(t, repo.CreateRoom(ctx, persistence.Room{ID: "room-1", Name: "Conference A", Status: "enabled"}))
	err := repo.CreateRoom(ctx, persistence.Room{ID: "room-2", Name: "Conference A", Status: "enabled"})
	assert.ErrorIs(t, err, persistence.ErrDuplicate)
}

func TestUserRepository_UniqueEmailAndPIN(t *testing.T) {
	t.Parallel()

	db := openTestDB(t)
	ctx := context.Background()
	repo := NewUserRepository(db, fixedNow)

	base := persistence.User{
		ID: "user-1", Name: "Asha", Email: "asha@example.com", PIN: "1001",
		Phone: "+8801700000001", Role: "user", Status: "active", PasswordHash: "hash",
	}
	require.NoError(t, repo.CreateUser(ctx, base))

	dup := base
	dup.ID = "user-2"
	dup.PIN = "1002"
	assert.ErrorIs(t, repo.CreateUser(ctx, dup), persistence.ErrDuplicate)

	dup.Email = "other@example.com"
	dup.PIN = "1001"
	assert.ErrorIs(t, repo.CreateUser(ctx, dup), persistence.ErrDuplicate)

	byEmail, err := repo.GetUserByEmail(ctx, "asha@example.com")
	require.NoError(t, err)
	assert.Equal(t, "user-1", byEmail.ID)
}

func TestBookingRepository_InsertAndRoundTrip(t *testing.T) {
	t.Parallel()

	db := openTestDB(t)
	ctx := context.Background()
	seedRoomAndUser(t, db)
	repo := NewBookingRepository(db, fixedNow)

	remarks := "projector needed"
	until := time.Date(2025, 9, 30, 0, 0, 0, 0, time.UTC)
	booking := testBooking("booking-1", 9*60, 10*60)
	booking.Remarks = &remarks
	booking.RepeatType = "custom"
	booking.RepeatEndDate = &until
	require.NoError(t, repo.InsertBooking(ctx, booking))

	stored, err := repo.GetBooking(ctx, "booking-1")
	require.NoError(t, err)
	assert.Equal(t, booking.Date, stored.Date)
	assert.Equal(t, 540, stored.Start)
	assert.Equal(t, 600, stored.End)
	require.NotNil(t, stored.Remarks)
	assert.Equal(t, remarks, *stored.Remarks)
	require.NotNil(t, stored.RepeatEndDate)
	assert.True(t, until.Equal(*stored.RepeatEndDate))
	assert.False(t, stored.IsRecurring)
}

func TestBookingRepository_InsertGuardsAgainstRacingOverlap(t *testing.T) {
	t.Parallel()

	db := openTestDB(t)
	ctx := context.Background()
	seedRoomAndUser(t, db)
	repo := NewBookingRepository(db, fixedNow)

	require.NoError(t, repo.InsertBooking(ctx, testBooking("booking-1", 10*60, 11*60)))

	// Overlapping insert fails even though the caller never ran a validator:
	// the guard lives inside the writing transaction.
	err := repo.InsertBooking(ctx, testBooking("booking-2", 10*60+30, 11*60+30))
	require.ErrorIs(t, err, persistence.ErrConflict)
	assert.Contains(t, err.Error(), "booking-1")

	// Back-to-back bookings sharing a boundary stay legal.
	require.NoError(t, repo.InsertBooking(ctx, testBooking("booking-3", 11*60, 12*60)))
}

func TestBookingRepository_BatchInsertSkipsConflicts(t *testing.T) {
	t.Parallel()

	db := openTestDB(t)
	ctx := context.Background()
	seedRoomAndUser(t, db)
	repo := NewBookingRepository(db, fixedNow)

	require.NoError(t, repo.InsertBooking(ctx, testBooking("booking-1", 10*60, 11*60)))

	inserted, err := repo.InsertBookings(ctx, []persistence.Booking{
		testBooking("child-1", 9*60, 10*60),       // free slot
		testBooking("child-2", 10*60+15, 11*60),   // conflicts with booking-1
		testBooking("child-3", 13*60, 14*60),      // free slot
	})
	require.NoError(t, err)
	assert.Equal(t, 2, inserted)

	_, err = repo.GetBooking(ctx, "child-2")
	assert.ErrorIs(t, err, persistence.ErrNotFound)
}

func TestBookingRepository_UpdateExcludesSelfFromGuard(t *testing.T) {
	t.Parallel()

	db := openTestDB(t)
	ctx := context.Background()
	seedRoomAndUser(t, db)
	repo := NewBookingRepository(db, fixedNow)

	require.NoError(t, repo.InsertBooking(ctx, testBooking("booking-1", 10*60, 11*60)))
	require.NoError(t, repo.InsertBooking(ctx, testBooking("booking-2", 13*60, 14*60)))

	// Extending booking-1 within its own slot is fine.
	extended := testBooking("booking-1", 10*60, 12*60)
	require.NoError(t, repo.UpdateBooking(ctx, extended))

	// Moving booking-1 onto booking-2 is rejected.
	moved := testBooking("booking-1", 13*60+30, 14*60+30)
	assert.ErrorIs(t, repo.UpdateBooking(ctx, moved), persistence.ErrConflict)

	assert.ErrorIs(t, repo.UpdateBooking(ctx, testBooking("missing", 9*60, 10*60)), persistence.ErrNotFound)
}

func TestBookingRepository_ListFilters(t *testing.T) {
	t.Parallel()

	db := openTestDB(t)
	ctx := context.Background()
	seedRoomAndUser(t, db)
	repo := NewBookingRepository(db, fixedNow)

	day1 := time.Date(2025, 9, 2, 0, 0, 0, 0, time.UTC)
	day2 := time.Date(2025, 9, 3, 0, 0, 0, 0, time.UTC)

	b1 := testBooking("booking-1", 10*60, 11*60)
	b2 := testBooking("booking-2", 9*60, 10*60)
	b3 := testBooking("booking-3", 9*60, 10*60)
	b3.Date = day2
	for _, b := range []persistence.Booking{b1, b2, b3} {
		require.NoError(t, repo.InsertBooking(ctx, b))
	}

	forDay, err := repo.ListBookingsForRoomDate(ctx, "room-1", day1)
	require.NoError(t, err)
	require.Len(t, forDay, 2)
	// Ordered by start time.
	assert.Equal(t, "booking-2", forDay[0].ID)
	assert.Equal(t, "booking-1", forDay[1].ID)

	ranged, err := repo.ListBookings(ctx, persistence.BookingFilter{RoomID: "room-1", DateFrom: &day2})
	require.NoError(t, err)
	require.Len(t, ranged, 1)
	assert.Equal(t, "booking-3", ranged[0].ID)

	byUser, err := repo.ListBookings(ctx, persistence.BookingFilter{UserID: "user-1"})
	require.NoError(t, err)
	assert.Len(t, byUser, 3)
}

func TestBookingRepository_DeleteSeedKeepsChildren(t *testing.T) {
	t.Parallel()

	db := openTestDB(t)
	ctx := context.Background()
	seedRoomAndUser(t, db)
	repo := NewBookingRepository(db, fixedNow)

	seed := testBooking("seed-1", 9*60, 10*60)
	seed.RepeatType = "daily"
	require.NoError(t, repo.InsertBooking(ctx, seed))

	child := testBooking("child-1", 9*60, 10*60)
	child.Date = time.Date(2025, 9, 3, 0, 0, 0, 0, time.UTC)
	child.IsRecurring = true
	parent := "seed-1"
	child.ParentBookingID = &parent
	require.NoError(t, repo.InsertBooking(ctx, child))

	require.NoError(t, repo.DeleteBooking(ctx, "seed-1"))

	// Children are independent once materialized; no cascade. The dangling
	// parent reference is cleared rather than dragging the child down.
	stored, err := repo.GetBooking(ctx, "child-1")
	require.NoError(t, err)
	assert.Nil(t, stored.ParentBookingID)
}
