package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type PlayEventType string

const (
	EventPlayPublished PlayEventType = "play_published"
	EventPlayRejected  PlayEventType = "play_rejected"
	EventPlayFailed    PlayEventType = "play_failed"
)

type PlayAuditLog struct {
	ID        string         `bson:"_id" json:"id"`
	Room      string         `bson:"room" json:"room"`
	Song      string         `bson:"song" json:"song"`
	EventType PlayEventType  `bson:"event_type" json:"eventType"`
	Timestamp time.Time      `bson:"timestamp" json:"timestamp"`
	Metadata  map[string]any `bson:"metadata,omitempty" json:"metadata,omitempty"`
}

type PlayAuditRepository interface {
	Log(ctx context.Context, log *PlayAuditLog) error
	GetByRoom(ctx context.Context, room string, limit int) ([]PlayAuditLog, error)
	GetByEventType(ctx context.Context, eventType PlayEventType, from, to time.Time) ([]PlayAuditLog, error)
	DeleteOlderThan(ctx context.Context, before time.Time) error
	EnsureIndexes(ctx context.Context) error
}

func NewPlayPublishedLog(req PlayRequest, exchange string) *PlayAuditLog {
	return &PlayAuditLog{
		ID:        uuid.NewString(),
		Room:      req.Room,
		Song:      req.Song,
		EventType: EventPlayPublished,
		Timestamp: time.Now(),
		Metadata: map[string]any{
			"exchange": exchange,
		},
	}
}

func NewPlayRejectedLog(req PlayRequest, reason error) *PlayAuditLog {
	return &PlayAuditLog{
		ID:        uuid.NewString(),
		Room:      req.Room,
		Song:      req.Song,
		EventType: EventPlayRejected,
		Timestamp: time.Now(),
		Metadata: map[string]any{
			"reason": reason.Error(),
		},
	}
}

func NewPlayFailedLog(req PlayRequest, cause error) *PlayAuditLog {
	return &PlayAuditLog{
		ID:        uuid.NewString(),
		Room:      req.Room,
		Song:      req.Song,
		EventType: EventPlayFailed,
		Timestamp: time.Now(),
		Metadata: map[string]any{
			"error": cause.Error(),
		},
	}
}
