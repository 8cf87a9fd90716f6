package domain

import (
	"context"
	"strings"
)

// Room is the room directory's view of a live listening room.
type Room struct {
	Name   string `json:"name"`
	Online int    `json:"online"`
}

type RoomDirectory interface {
	ListRooms(ctx context.Context) ([]Room, error)
}

type SongCatalog interface {
	ListSongs(ctx context.Context) ([]string, error)
}

type PlayRequest struct {
	Song string `json:"song"`
	Room string `json:"room"`
}

func NewPlayRequest(song, room string) PlayRequest {
	return PlayRequest{
		Song: strings.TrimSpace(song),
		Room: strings.TrimSpace(room),
	}
}

// RoutedMessage is published once per accepted play request.
type RoutedMessage struct {
	Exchange   string
	RoutingKey string
	Body       []byte
	Persistent bool
}

func NewRoutedMessage(exchange string, req PlayRequest) RoutedMessage {
	return RoutedMessage{
		Exchange:   exchange,
		RoutingKey: req.Room,
		Body:       []byte(req.Song),
		Persistent: true,
	}
}

func ContainsRoom(rooms []Room, name string) bool {
	for _, r := range rooms {
		if r.Name == name {
			return true
		}
	}
	return false
}

func ContainsSong(songs []string, key string) bool {
	for _, s := range songs {
		if s == key {
			return true
		}
	}
	return false
}
