package application

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRoomService(t *testing.T) (*RoomService, *memRoomRepo) {
	t.Helper()
	repo := newMemRoomRepo()
	now := time.Date(2025, time.September, 1, 8, 0, 0, 0, time.UTC)
	return NewRoomService(repo, sequentialIDs("room"), fixedClock(now)), repo
}

func TestCreateRoomRequiresAdmin(t *testing.T) {
	t.Parallel()
	service, _ := newRoomService(t)

	_, err := service.CreateRoom(context.Background(), CreateRoomParams{
		Principal: Principal{UserID: "user-1"},
		Input:     RoomInput{Name: "Conference A"},
	})
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestCreateRoomDefaultsStatus(t *testing.T) {
	t.Parallel()
	service, repo := newRoomService(t)

	room, err := service.CreateRoom(context.Background(), CreateRoomParams{
		Principal: admin(),
		Input:     RoomInput{Name: "  Conference A  ", Capacity: 10},
	})
	require.NoError(t, err)

	assert.Equal(t, "Conference A", room.Name)
	assert.Equal(t, RoomStatusEnabled, room.Status)

	stored, err := repo.GetRoom(context.Background(), room.ID)
	require.NoError(t, err)
	assert.Equal(t, room, stored)
}

func TestCreateRoomValidation(t *testing.T) {
	t.Parallel()
	service, _ := newRoomService(t)

	start := 10 * 60
	end := 9 * 60
	lateEnd := 25 * 60

	tests := []struct {
		name  string
		input RoomInput
		field string
	}{
		{"missing name", RoomInput{}, "name"},
		{"negative capacity", RoomInput{Name: "A", Capacity: -1}, "capacity"},
		{"bad status", RoomInput{Name: "A", Status: "archived"}, "status"},
		{"half window", RoomInput{Name: "A", WindowStart: &start}, "available_time"},
		{"inverted window", RoomInput{Name: "A", WindowStart: &start, WindowEnd: &end}, "available_time"},
		{"window past midnight", RoomInput{Name: "A", WindowStart: &start, WindowEnd: &lateEnd}, "available_time"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := service.CreateRoom(context.Background(), CreateRoomParams{Principal: admin(), Input: tc.input})
			var vErr *ValidationError
			require.ErrorAs(t, err, &vErr)
			assert.Contains(t, vErr.FieldErrors, tc.field)
		})
	}
}

func TestCreateRoomDuplicateName(t *testing.T) {
	t.Parallel()
	service, _ := newRoomService(t)

	_, err := service.CreateRoom(context.Background(), CreateRoomParams{Principal: admin(), Input: RoomInput{Name: "Conference A"}})
	require.NoError(t, err)

	_, err = service.CreateRoom(context.Background(), CreateRoomParams{Principal: admin(), Input: RoomInput{Name: "Conference A"}})
	assert.ErrorIs(t, err, ErrAlreadyExists)
}

func TestUpdateRoom(t *testing.T) {
	t.Parallel()
	service, _ := newRoomService(t)

	room, err := service.CreateRoom(context.Background(), CreateRoomParams{Principal: admin(), Input: RoomInput{Name: "Conference A"}})
	require.NoError(t, err)

	updated, err := service.UpdateRoom(context.Background(), UpdateRoomParams{
		Principal: admin(),
		RoomID:    room.ID,
		Input:     RoomInput{Name: "Conference B", Capacity: 4, Status: RoomStatusDisabled},
	})
	require.NoError(t, err)
	assert.Equal(t, "Conference B", updated.Name)
	assert.Equal(t, RoomStatusDisabled, updated.Status)

	_, err = service.UpdateRoom(context.Background(), UpdateRoomParams{
		Principal: admin(),
		RoomID:    "missing",
		Input:     RoomInput{Name: "Nope"},
	})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteRoom(t *testing.T) {
	t.Parallel()
	service, _ := newRoomService(t)

	room, err := service.CreateRoom(context.Background(), CreateRoomParams{Principal: admin(), Input: RoomInput{Name: "Conference A"}})
	require.NoError(t, err)

	assert.ErrorIs(t, service.DeleteRoom(context.Background(), Principal{UserID: "user-1"}, room.ID), ErrUnauthorized)
	require.NoError(t, service.DeleteRoom(context.Background(), admin(), room.ID))
	assert.ErrorIs(t, service.DeleteRoom(context.Background(), admin(), room.ID), ErrNotFound)
}

func TestListRoomsIsPublic(t *testing.T) {
	t.Parallel()
	service, _ := newRoomService(t)

	_, err := service.CreateRoom(context.Background(), CreateRoomParams{Principal: admin(), Input: RoomInput{Name: "Conference A"}})
	require.NoError(t, err)

	rooms, err := service.ListRooms(context.Background())
	require.NoError(t, err)
	assert.Len(t, rooms, 1)
}
