package testfixtures

import (
	"time"

	"github.com/example/room-booking/internal/application"
	"github.com/example/room-booking/internal/persistence"
)

// ServiceFactory assists tests with constructing application services using
// deterministic identifiers and clocks.
type ServiceFactory struct {
	Clock       *Clock
	IDGenerator *IDGenerator
}

// ServiceFactoryOption configures a ServiceFactory instance.
type ServiceFactoryOption func(*ServiceFactory)

// NewServiceFactory constructs a ServiceFactory with defaults.
func NewServiceFactory(opts ...ServiceFactoryOption) *ServiceFactory {
	factory := &ServiceFactory{
		Clock:       NewClock(time.Time{}),
		IDGenerator: NewIDGenerator("id"),
	}
	for _, opt := range opts {
		opt(factory)
	}
	if factory.Clock == nil {
		factory.Clock = NewClock(time.Time{})
	}
	if factory.IDGenerator == nil {
		factory.IDGenerator = NewIDGenerator("id")
	}
	return factory
}

// WithClock overrides the clock used by the factory.
func WithClock(clock *Clock) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.Clock = clock
	}
}

// WithIDGenerator overrides the identifier generator used by the factory.
func WithIDGenerator(generator *IDGenerator) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.IDGenerator = generator
	}
}

// BookingService constructs a booking service wired to the factory clock and
// identifier generator.
func (f *ServiceFactory) BookingService(bookings persistence.BookingRepository, rooms persistence.RoomRepository, users persistence.UserRepository, opts application.BookingServiceOptions) *application.BookingService {
	return application.NewBookingService(bookings, rooms, users, f.IDGenerator.NextFunc(), f.Clock.NowFunc(), opts)
}

// RoomService constructs a room service wired to the factory clock and
// identifier generator.
func (f *ServiceFactory) RoomService(rooms persistence.RoomRepository) *application.RoomService {
	return application.NewRoomService(rooms, f.IDGenerator.NextFunc(), f.Clock.NowFunc())
}

// UserService constructs a user service wired to the factory clock and
// identifier generator.
func (f *ServiceFactory) UserService(users persistence.UserRepository) *application.UserService {
	return application.NewUserService(users, f.IDGenerator.NextFunc(), f.Clock.NowFunc())
}
