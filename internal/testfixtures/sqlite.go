package testfixtures

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/example/room-booking/internal/persistence"
	"github.com/example/room-booking/internal/persistence/sqlite"
)

// SQLiteHarness provides repository access backed by a temporary SQLite
// database for integration-style persistence tests.
type SQLiteHarness struct {
	Users    persistence.UserRepository
	Rooms    persistence.RoomRepository
	Bookings persistence.BookingRepository

	cleanup func()
}

// Close releases resources associated with the harness.
func (h *SQLiteHarness) Close() {
	if h != nil && h.cleanup != nil {
		h.cleanup()
		h.cleanup = nil
	}
}

// NewSQLiteHarness constructs a harness over a temporary database file that
// is migrated automatically. The optional now function fixes repository
// timestamps; nil falls back to the shared reference time. Cleanup is
// registered with the provided testing.TB, though callers may also Close.
func NewSQLiteHarness(tb testing.TB, now func() time.Time) *SQLiteHarness {
	tb.Helper()

	if now == nil {
		now = ReferenceTime
	}

	path := filepath.Join(tb.TempDir(), "roombook.db")
	db, err := sqlite.Open("file:" + path)
	if err != nil {
		tb.Fatalf("failed to open database: %v", err)
	}

	if err := db.Migrate(context.Background()); err != nil {
		_ = db.Close()
		tb.Fatalf("failed to migrate database: %v", err)
	}

	harness := &SQLiteHarness{
		Users:    sqlite.NewUserRepository(db, now),
		Rooms:    sqlite.NewRoomRepository(db, now),
		Bookings: sqlite.NewBookingRepository(db, now),
		cleanup:  func() { _ = db.Close() },
	}
	tb.Cleanup(harness.Close)
	return harness
}
