package listeners

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/singsphere/jukebox/internal/infrastructure/json"
	"github.com/singsphere/jukebox/internal/infrastructure/logging"
	"github.com/singsphere/jukebox/internal/infrastructure/ws"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type Handler struct {
	hub    *ws.Hub
	logger logging.Logger
}

func NewHandler(hub *ws.Hub, logger logging.Logger) *Handler {
	return &Handler{
		hub:    hub,
		logger: logger,
	}
}

type listenerCount struct {
	Room      string `json:"room"`
	Listeners int    `json:"listeners"`
}

// CountHandler reports how many websocket listeners follow the room on this
// instance.
//
// @Summary Count room listeners
// @Tags Listeners
// @Produce json
// @Param room path string true "Room name"
// @Success 200 {object} json.Envelope{results=listenerCount} "Listener count"
// @Failure 400 {object} json.Envelope "Empty room"
// @Router /api/rooms/{room}/listeners [get]
func (h *Handler) CountHandler(w http.ResponseWriter, r *http.Request) {
	room := strings.TrimSpace(chi.URLParam(r, "room"))
	if room == "" {
		json.WriteBadRequestError(w, "Room cannot be empty, please try again.")
		return
	}

	n := h.hub.Listeners(room)
	json.WriteResult(w, http.StatusOK, fmt.Sprintf("Room '%s' has %d listeners.", room, n), listenerCount{Room: room, Listeners: n})
}

// FollowRoomHandler upgrades to a websocket that receives every song routed
// to the room until the client disconnects.
//
// @Summary Follow a room
// @Description Upgrades to a websocket. Each routed play arrives as a JSON text frame.
// @Tags Listeners
// @Param room path string true "Room name"
// @Success 101 "Switching protocols"
// @Failure 400 {object} json.Envelope "Empty room or not a websocket request"
// @Router /ws/rooms/{room} [get]
func (h *Handler) FollowRoomHandler(w http.ResponseWriter, r *http.Request) {
	room := strings.TrimSpace(chi.URLParam(r, "room"))
	if room == "" {
		json.WriteBadRequestError(w, "Room cannot be empty, please try again.")
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn(logging.IO, logging.Listener, "websocket upgrade failed", map[logging.ExtraKey]any{
			logging.Room:         room,
			logging.ErrorMessage: err.Error(),
		})
		return
	}

	listener := ws.NewListener(conn, uuid.NewString(), room)
	if err := h.hub.Join(listener); err != nil {
		h.logger.Error(logging.AMQP, logging.Listener, "failed to subscribe listener", map[logging.ExtraKey]any{
			logging.Room:         room,
			logging.ErrorMessage: err.Error(),
		})
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "room feed unavailable"))
		_ = conn.Close()
		return
	}

	go func() {
		if err := listener.WritePump(); err != nil {
			h.logger.Debug(logging.IO, logging.Listener, "listener write stopped", map[logging.ExtraKey]any{
				logging.Room:         room,
				logging.ErrorMessage: err.Error(),
			})
		}
	}()

	listener.ReadPump()

	err = h.hub.Leave(listener)
	if errors.Is(err, ws.ErrListenerNotFound) {
		// The hub already disconnected it when the room feed died.
		return
	}
	if err != nil {
		h.logger.Warn(logging.AMQP, logging.Listener, "failed to release room feed", map[logging.ExtraKey]any{
			logging.Room:         room,
			logging.ErrorMessage: err.Error(),
		})
	}
}
