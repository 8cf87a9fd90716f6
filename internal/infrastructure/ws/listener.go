package ws

import (
	"time"

	"github.com/gorilla/websocket"
	"github.com/singsphere/jukebox/internal/infrastructure/contracts"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// Listener is one websocket connection following a room.
type Listener struct {
	conn *connWrapper
	Send chan contracts.ListenerEvent
	ID   string
	Room string
}

func NewListener(conn *websocket.Conn, id, room string) *Listener {
	return &Listener{
		conn: newConnWrapper(conn),
		Send: make(chan contracts.ListenerEvent, 64),
		ID:   id,
		Room: room,
	}
}

// ReadPump discards client frames and returns when the connection closes.
// Listeners are receive-only.
func (l *Listener) ReadPump() {
	c := l.conn.conn
	c.SetReadLimit(512)
	_ = c.SetReadDeadline(time.Now().Add(pongWait))
	c.SetPongHandler(func(string) error {
		return c.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.ReadMessage(); err != nil {
			return
		}
	}
}

// WritePump forwards events until Send is closed or a write fails.
func (l *Listener) WritePump() error {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = l.conn.Close()
	}()

	for {
		select {
		case event, ok := <-l.Send:
			if !ok {
				return nil
			}
			if err := l.conn.WriteJSON(event, writeWait); err != nil {
				return err
			}
		case <-ticker.C:
			if err := l.conn.Ping(writeWait); err != nil {
				return err
			}
		}
	}
}
