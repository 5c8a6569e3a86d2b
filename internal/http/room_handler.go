package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/example/room-booking/internal/application"
	"github.com/example/room-booking/internal/availability"
	"github.com/example/room-booking/internal/persistence"
)

type roomService interface {
	CreateRoom(ctx context.Context, params application.CreateRoomParams) (persistence.Room, error)
	UpdateRoom(ctx context.Context, params application.UpdateRoomParams) (persistence.Room, error)
	DeleteRoom(ctx context.Context, principal application.Principal, roomID string) error
	GetRoom(ctx context.Context, roomID string) (persistence.Room, error)
	ListRooms(ctx context.Context) ([]persistence.Room, error)
}

type RoomHandler struct {
	service   roomService
	responder responder
}

func NewRoomHandler(service roomService, logger *slog.Logger) *RoomHandler {
	return &RoomHandler{service: service, responder: newResponder(logger)}
}

func (h *RoomHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req roomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	input, vErr := req.toInput()
	if vErr != nil {
		h.responder.handleServiceError(r.Context(), w, vErr)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	room, err := h.service.CreateRoom(r.Context(), application.CreateRoomParams{Principal: principal, Input: input})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusCreated, roomEnvelope{Room: toRoomDTO(room)})
}

func (h *RoomHandler) Update(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	roomID, ok := RoomIDFromContext(r.Context())
	if !ok || strings.TrimSpace(roomID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidRoomID)
		return
	}

	var req roomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	input, vErr := req.toInput()
	if vErr != nil {
		h.responder.handleServiceError(r.Context(), w, vErr)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	room, err := h.service.UpdateRoom(r.Context(), application.UpdateRoomParams{
		Principal: principal,
		RoomID:    roomID,
		Input:     input,
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, roomEnvelope{Room: toRoomDTO(room)})
}

func (h *RoomHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	roomID, ok := RoomIDFromContext(r.Context())
	if !ok || strings.TrimSpace(roomID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidRoomID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	if err := h.service.DeleteRoom(r.Context(), principal, roomID); err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

func (h *RoomHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	roomID, ok := RoomIDFromContext(r.Context())
	if !ok || strings.TrimSpace(roomID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidRoomID)
		return
	}

	room, err := h.service.GetRoom(r.Context(), roomID)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, roomEnvelope{Room: toRoomDTO(room)})
}

func (h *RoomHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	rooms, err := h.service.ListRooms(r.Context())
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	dtos := make([]roomDTO, 0, len(rooms))
	for _, room := range rooms {
		dtos = append(dtos, toRoomDTO(room))
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, roomListResponse{Rooms: dtos})
}

// roomRequest is the wire form of a room. The availability window uses HH:MM
// clock strings; omitting both leaves the room open all day.
type roomRequest struct {
	Name               string  `json:"name"`
	Color              *string `json:"color,omitempty"`
	Capacity           int     `json:"capacity"`
	Facilities         *string `json:"facilities,omitempty"`
	AvailableTimeStart string  `json:"available_time_start,omitempty"`
	AvailableTimeEnd   string  `json:"available_time_end,omitempty"`
	Status             string  `json:"status,omitempty"`
}

func (req roomRequest) toInput() (application.RoomInput, *application.ValidationError) {
	fieldErrors := make(map[string]string)

	input := application.RoomInput{
		Name:       req.Name,
		Color:      req.Color,
		Capacity:   req.Capacity,
		Facilities: req.Facilities,
		Status:     strings.TrimSpace(req.Status),
	}

	if raw := strings.TrimSpace(req.AvailableTimeStart); raw != "" {
		start, err := availability.ParseClock(raw)
		if err != nil {
			fieldErrors["available_time_start"] = "start time must use the HH:MM layout"
		} else {
			input.WindowStart = &start
		}
	}
	if raw := strings.TrimSpace(req.AvailableTimeEnd); raw != "" {
		end, err := availability.ParseClock(raw)
		if err != nil {
			fieldErrors["available_time_end"] = "end time must use the HH:MM layout"
		} else {
			input.WindowEnd = &end
		}
	}

	if len(fieldErrors) > 0 {
		return application.RoomInput{}, &application.ValidationError{FieldErrors: fieldErrors}
	}
	return input, nil
}

type roomDTO struct {
	ID                 string  `json:"id"`
	Name               string  `json:"name"`
	Color              *string `json:"color,omitempty"`
	Capacity           int     `json:"capacity"`
	Facilities         *string `json:"facilities,omitempty"`
	AvailableTimeStart *string `json:"available_time_start,omitempty"`
	AvailableTimeEnd   *string `json:"available_time_end,omitempty"`
	Status             string  `json:"status"`
}

type roomEnvelope struct {
	Room roomDTO `json:"room"`
}

type roomListResponse struct {
	Rooms []roomDTO `json:"rooms"`
}

func toRoomDTO(room persistence.Room) roomDTO {
	dto := roomDTO{
		ID:         room.ID,
		Name:       room.Name,
		Color:      room.Color,
		Capacity:   room.Capacity,
		Facilities: room.Facilities,
		Status:     room.Status,
	}
	if room.WindowStart != nil {
		formatted := availability.FormatClock(*room.WindowStart)
		dto.AvailableTimeStart = &formatted
	}
	if room.WindowEnd != nil {
		formatted := availability.FormatClock(*room.WindowEnd)
		dto.AvailableTimeEnd = &formatted
	}
	return dto
}
