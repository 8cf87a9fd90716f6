package contracts

// Listener feed event types.
const (
	EventSongEnqueued = "song.enqueued"
)

// ListenerEvent is pushed to websocket listeners of a room.
type ListenerEvent struct {
	Type string `json:"type"`
	Room string `json:"room"`
	Song string `json:"song"`
}
