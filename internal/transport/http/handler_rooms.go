package httptransport

import (
	"encoding/json"
	"errors"
	"net/http"

	approom "belote-lobby/internal/app/room"
	"belote-lobby/internal/lobby"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

const maxCreateBody = 4096

type RoomHandlers struct {
	svc *approom.Service
}

func NewRoomHandlers(svc *approom.Service) *RoomHandlers {
	return &RoomHandlers{svc: svc}
}

func (h *RoomHandlers) Create() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		metricRoomCreateTotal.Add(1)
		var req approom.CreateRequest
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxCreateBody)).Decode(&req); err != nil {
			metricRoomCreateErrors.Add(1)
			WriteHTTPError(w, http.StatusBadRequest, "invalid_json")
			return
		}
		resp, err := h.svc.Create(r.Context(), req)
		if err != nil {
			metricRoomCreateErrors.Add(1)
			writeRoomError(w, r, err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(resp)
	}
}

func (h *RoomHandlers) Get() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		metricRoomGetTotal.Add(1)
		resp, err := h.svc.Get(r.Context(), chi.URLParam(r, "room_id"))
		if err != nil {
			writeRoomError(w, r, err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}
}

func writeRoomError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, approom.ErrInvalidRequest):
		WriteHTTPError(w, http.StatusBadRequest, "invalid_request")
	case errors.Is(err, approom.ErrIDExhausted):
		WriteHTTPError(w, http.StatusConflict, approom.ErrIDExhausted.Error())
	case errors.Is(err, lobby.ErrRoomNotFound):
		WriteHTTPError(w, http.StatusNotFound, lobby.ErrorCode(err))
	case errors.Is(err, lobby.ErrPersistenceUnavailable):
		log.Error().Err(err).Str("path", r.URL.Path).Msg("room_request_persistence_failed")
		WriteHTTPError(w, http.StatusServiceUnavailable, lobby.ErrorCode(err))
	default:
		log.Error().Err(err).Str("path", r.URL.Path).Msg("room_request_failed")
		WriteHTTPError(w, http.StatusInternalServerError, "internal_error")
	}
}
