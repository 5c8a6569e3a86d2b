package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/example/room-booking/internal/persistence"
)

// RoomService manages the room catalog. Writes are restricted to
// administrators; the catalog itself is readable by everyone.
type RoomService struct {
	rooms       persistence.RoomRepository
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

func NewRoomService(rooms persistence.RoomRepository, idGenerator func() string, now func() time.Time) *RoomService {
	return NewRoomServiceWithLogger(rooms, idGenerator, now, nil)
}

func NewRoomServiceWithLogger(rooms persistence.RoomRepository, idGenerator func() string, now func() time.Time, logger *slog.Logger) *RoomService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &RoomService{rooms: rooms, idGenerator: idGenerator, now: now, logger: defaultLogger(logger)}
}

func (s *RoomService) CreateRoom(ctx context.Context, params CreateRoomParams) (persistence.Room, error) {
	if s == nil || s.rooms == nil {
		return persistence.Room{}, fmt.Errorf("room repository not configured")
	}
	if !params.Principal.IsAdmin {
		return persistence.Room{}, ErrUnauthorized
	}

	input := normalizeRoomInput(params.Input)
	if vErr := validateRoomInput(input); vErr != nil {
		return persistence.Room{}, vErr
	}

	now := s.now()
	room := persistence.Room{
		ID:          s.idGenerator(),
		Name:        input.Name,
		Color:       input.Color,
		Capacity:    input.Capacity,
		Facilities:  input.Facilities,
		WindowStart: input.WindowStart,
		WindowEnd:   input.WindowEnd,
		Status:      input.Status,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.rooms.CreateRoom(ctx, room); err != nil {
		return persistence.Room{}, mapRoomRepoError(err)
	}

	serviceLogger(ctx, s.logger, "room", "create", "room_id", room.ID).
		InfoContext(ctx, "room created", "name", room.Name)
	return room, nil
}

func (s *RoomService) UpdateRoom(ctx context.Context, params UpdateRoomParams) (persistence.Room, error) {
	if s == nil || s.rooms == nil {
		return persistence.Room{}, fmt.Errorf("room repository not configured")
	}
	if !params.Principal.IsAdmin {
		return persistence.Room{}, ErrUnauthorized
	}

	existing, err := s.rooms.GetRoom(ctx, params.RoomID)
	if err != nil {
		return persistence.Room{}, mapRoomRepoError(err)
	}

	input := normalizeRoomInput(params.Input)
	if vErr := validateRoomInput(input); vErr != nil {
		return persistence.Room{}, vErr
	}

	updated := existing
	updated.Name = input.Name
	updated.Color = input.Color
	updated.Capacity = input.Capacity
	updated.Facilities = input.Facilities
	updated.WindowStart = input.WindowStart
	updated.WindowEnd = input.WindowEnd
	updated.Status = input.Status
	updated.UpdatedAt = s.now()

	if err := s.rooms.UpdateRoom(ctx, updated); err != nil {
		return persistence.Room{}, mapRoomRepoError(err)
	}
	return updated, nil
}

func (s *RoomService) DeleteRoom(ctx context.Context, principal Principal, roomID string) error {
	if s == nil || s.rooms == nil {
		return fmt.Errorf("room repository not configured")
	}
	if !principal.IsAdmin {
		return ErrUnauthorized
	}
	if err := s.rooms.DeleteRoom(ctx, roomID); err != nil {
		return mapRoomRepoError(err)
	}
	return nil
}

func (s *RoomService) GetRoom(ctx context.Context, roomID string) (persistence.Room, error) {
	if s == nil || s.rooms == nil {
		return persistence.Room{}, fmt.Errorf("room repository not configured")
	}
	room, err := s.rooms.GetRoom(ctx, roomID)
	if err != nil {
		return persistence.Room{}, mapRoomRepoError(err)
	}
	return room, nil
}

func (s *RoomService) ListRooms(ctx context.Context) ([]persistence.Room, error) {
	if s == nil || s.rooms == nil {
		return nil, fmt.Errorf("room repository not configured")
	}
	rooms, err := s.rooms.ListRooms(ctx)
	if err != nil {
		return nil, mapRoomRepoError(err)
	}
	return rooms, nil
}

func normalizeRoomInput(input RoomInput) RoomInput {
	input.Name = strings.TrimSpace(input.Name)
	if input.Status == "" {
		input.Status = RoomStatusEnabled
	}
	return input
}

func validateRoomInput(input RoomInput) *ValidationError {
	vErr := &ValidationError{}
	if input.Name == "" {
		vErr.add("name", "name is required")
	}
	if input.Capacity < 0 {
		vErr.add("capacity", "capacity must not be negative")
	}
	if input.Status != RoomStatusEnabled && input.Status != RoomStatusDisabled {
		vErr.add("status", "status must be enabled or disabled")
	}
	switch {
	case (input.WindowStart == nil) != (input.WindowEnd == nil):
		vErr.add("available_time", "both start and end of the availability window are required")
	case input.WindowStart != nil:
		if *input.WindowStart < 0 || *input.WindowEnd > 24*60 {
			vErr.add("available_time", "availability window must fall within a single day")
		} else if *input.WindowStart >= *input.WindowEnd {
			vErr.add("available_time", "availability window must start before it ends")
		}
	}
	if vErr.HasErrors() {
		return vErr
	}
	return nil
}

func mapRoomRepoError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, persistence.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, persistence.ErrDuplicate):
		return ErrAlreadyExists
	default:
		return err
	}
}
