package application

import (
	"fmt"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/example/room-booking/internal/persistence"
)

// dayCache memoizes per-room per-date booking lists so repeated availability
// lookups for a busy day do not hammer storage. Any write touching a
// room/date pair invalidates that pair's entry.
type dayCache struct {
	store *gocache.Cache
}

func newDayCache(ttl time.Duration) *dayCache {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &dayCache{store: gocache.New(ttl, 2*ttl)}
}

func dayCacheKey(roomID string, date time.Time) string {
	return fmt.Sprintf("%s|%s", roomID, date.Format("2006-01-02"))
}

func (c *dayCache) Get(roomID string, date time.Time) ([]persistence.Booking, bool) {
	if c == nil || c.store == nil {
		return nil, false
	}
	entry, ok := c.store.Get(dayCacheKey(roomID, date))
	if !ok {
		return nil, false
	}
	bookings, ok := entry.([]persistence.Booking)
	if !ok {
		return nil, false
	}
	out := make([]persistence.Booking, len(bookings))
	copy(out, bookings)
	return out, true
}

func (c *dayCache) Set(roomID string, date time.Time, bookings []persistence.Booking) {
	if c == nil || c.store == nil {
		return
	}
	stored := make([]persistence.Booking, len(bookings))
	copy(stored, bookings)
	c.store.Set(dayCacheKey(roomID, date), stored, gocache.DefaultExpiration)
}

func (c *dayCache) Invalidate(roomID string, date time.Time) {
	if c == nil || c.store == nil {
		return
	}
	c.store.Delete(dayCacheKey(roomID, date))
}
