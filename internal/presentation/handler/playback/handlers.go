package playback

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/singsphere/jukebox/internal/application/router"
	"github.com/singsphere/jukebox/internal/domain"
	"github.com/singsphere/jukebox/internal/infrastructure/json"
	"github.com/singsphere/jukebox/internal/infrastructure/logging"
)

const maxBodyBytes = 1 << 20

type Router interface {
	Route(ctx context.Context, song, room string) (router.Routing, error)
}

type Handler struct {
	router Router
	audit  domain.PlayAuditRepository
	logger logging.Logger
}

// NewHandler builds the playback handler. audit may be nil when play
// history is not recorded.
func NewHandler(rt Router, audit domain.PlayAuditRepository, logger logging.Logger) *Handler {
	return &Handler{
		router: rt,
		audit:  audit,
		logger: logger,
	}
}

// PlayHandler routes a song to a room.
//
// @Summary Play a song in a room
// @Description Checks the room and song against the live catalogs and publishes the play to the room. The body may be base64 encoded.
// @Tags Playback
// @Accept json
// @Produce json
// @Param request body playRequest true "Song and room"
// @Success 200 {object} json.Envelope{results=router.Routing} "Song routed"
// @Failure 400 {object} json.Envelope "Invalid body, empty field or nothing to play"
// @Failure 404 {object} json.Envelope "Unknown room or song"
// @Failure 429 {object} json.Envelope "Rate limited"
// @Failure 500 {object} json.Envelope "Broker or catalog failure"
// @Router /api/rooms/play [post]
func (h *Handler) PlayHandler(w http.ResponseWriter, r *http.Request) {
	raw, err := readBody(r)
	if err != nil {
		json.WriteBadRequestError(w, "Invalid request body, please try again.")
		return
	}

	var req playRequest
	if err := json.Decode(raw, &req); err != nil {
		json.WriteBadRequestError(w, "Invalid request body, please try again.")
		return
	}

	routing, err := h.router.Route(r.Context(), req.Song, req.Room)
	if err != nil {
		status := json.WriteDomainError(w, err, playErrorMessage(err, strings.TrimSpace(req.Song), strings.TrimSpace(req.Room)))
		if status == http.StatusInternalServerError {
			h.logger.Error(logging.AMQP, logging.Routing, "failed to route song", map[logging.ExtraKey]any{
				logging.Room:         req.Room,
				logging.Song:         req.Song,
				logging.ErrorMessage: err.Error(),
			})
		}
		return
	}

	json.WriteResult(w, http.StatusOK, routing.Message, routing)
}

// ListPlaysHandler lists a room's recent plays, newest first.
//
// @Summary List recent plays in a room
// @Tags Playback
// @Produce json
// @Param room path string true "Room name"
// @Param limit query int false "Maximum entries" default(20)
// @Success 200 {object} json.Envelope{results=[]domain.PlayAuditLog} "Plays"
// @Failure 400 {object} json.Envelope "Invalid limit"
// @Failure 404 {object} json.Envelope "Play history disabled"
// @Failure 500 {object} json.Envelope "Audit store failure"
// @Router /api/rooms/{room}/plays [get]
func (h *Handler) ListPlaysHandler(w http.ResponseWriter, r *http.Request) {
	if h.audit == nil {
		json.WriteResult(w, http.StatusNotFound, "Play history is not enabled.", nil)
		return
	}

	room := chi.URLParam(r, "room")
	limit, ok := parseLimit(w, r)
	if !ok {
		return
	}

	logs, err := h.audit.GetByRoom(r.Context(), room, limit)
	if err != nil {
		h.logger.Error(logging.MongoDB, logging.Audit, "failed to list plays", map[logging.ExtraKey]any{
			logging.Room:         room,
			logging.ErrorMessage: err.Error(),
		})
		json.WriteInternalError(w)
		return
	}

	json.WriteResult(w, http.StatusOK, fmt.Sprintf("Retrieved %d plays for room '%s'.", len(logs), room), logs)
}

// ListPlaysByTypeHandler lists plays of one event type across rooms within
// the trailing window given by since (default 24h), newest first.
//
// @Summary List plays by outcome
// @Tags Playback
// @Produce json
// @Param event_type query string true "Outcome" Enums(play_published, play_rejected, play_failed)
// @Param since query string false "Trailing window as a duration" default(24h)
// @Param limit query int false "Maximum entries" default(20)
// @Success 200 {object} json.Envelope{results=[]domain.PlayAuditLog} "Plays"
// @Failure 400 {object} json.Envelope "Invalid event_type, since or limit"
// @Failure 404 {object} json.Envelope "Play history disabled"
// @Failure 500 {object} json.Envelope "Audit store failure"
// @Router /api/plays [get]
func (h *Handler) ListPlaysByTypeHandler(w http.ResponseWriter, r *http.Request) {
	if h.audit == nil {
		json.WriteResult(w, http.StatusNotFound, "Play history is not enabled.", nil)
		return
	}

	eventType := domain.PlayEventType(r.URL.Query().Get("event_type"))
	if _, known := playEventTypes[eventType]; !known {
		json.WriteBadRequestError(w, "event_type must be one of play_published, play_rejected, play_failed.")
		return
	}

	window := defaultPlaysWindow
	if v := r.URL.Query().Get("since"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			json.WriteBadRequestError(w, "since must be a positive duration such as 30m or 24h.")
			return
		}
		window = d
	}

	limit, ok := parseLimit(w, r)
	if !ok {
		return
	}

	to := time.Now()
	logs, err := h.audit.GetByEventType(r.Context(), eventType, to.Add(-window), to)
	if err != nil {
		h.logger.Error(logging.MongoDB, logging.Audit, "failed to list plays by type", map[logging.ExtraKey]any{
			"eventType":          eventType,
			logging.ErrorMessage: err.Error(),
		})
		json.WriteInternalError(w)
		return
	}
	if len(logs) > limit {
		logs = logs[:limit]
	}

	json.WriteResult(w, http.StatusOK, fmt.Sprintf("Retrieved %d %s plays.", len(logs), eventType), logs)
}

func parseLimit(w http.ResponseWriter, r *http.Request) (int, bool) {
	v := r.URL.Query().Get("limit")
	if v == "" {
		return defaultPlaysLimit, true
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		json.WriteBadRequestError(w, "limit must be a positive integer.")
		return 0, false
	}
	return min(n, maxPlaysLimit), true
}

// readBody returns the request body, decoding it first when the client
// sent it base64 encoded.
func readBody(r *http.Request) ([]byte, error) {
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return nil, err
	}

	if !strings.EqualFold(r.Header.Get("Content-Transfer-Encoding"), "base64") &&
		!strings.EqualFold(r.URL.Query().Get("encoding"), "base64") {
		return raw, nil
	}

	return base64.StdEncoding.DecodeString(strings.TrimSpace(string(raw)))
}

func playErrorMessage(err error, song, room string) string {
	switch {
	case errors.Is(err, domain.ErrNoRoomsAvailable):
		return "No rooms are open right now, please try again later."
	case errors.Is(err, domain.ErrEmptyRoom):
		return "Room cannot be empty, please try again."
	case errors.Is(err, domain.ErrRoomNotFound):
		return fmt.Sprintf("No room found matching the name '%s'. Please try a different room.", room)
	case errors.Is(err, domain.ErrNoSongsAvailable):
		return "No available songs, please contact the development team."
	case errors.Is(err, domain.ErrEmptySong):
		return "Invalid song, please try again."
	case errors.Is(err, domain.ErrSongNotFound):
		return fmt.Sprintf("No song found matching the name '%s'. Please try a different search.", song)
	default:
		return json.InternalErrorMessage
	}
}
