package repository

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/singsphere/jukebox/internal/domain"
)

const (
	defaultPlaysPerRoom = 100
	defaultRooms        = 1000
)

// playAuditLogRepository keeps recent plays in memory. Each room holds at
// most playsPerRoom entries and at most maxRooms rooms are tracked; the room
// written to least recently is evicted first.
type playAuditLogRepository struct {
	logs         *lru.Cache[string, []domain.PlayAuditLog] // room -> oldest first
	playsPerRoom int
	mu           *sync.RWMutex
}

func NewPlayAuditLogRepository(playsPerRoom, maxRooms int) (domain.PlayAuditRepository, error) {
	if playsPerRoom <= 0 {
		playsPerRoom = defaultPlaysPerRoom
	}
	if maxRooms <= 0 {
		maxRooms = defaultRooms
	}

	logs, err := lru.New[string, []domain.PlayAuditLog](maxRooms)
	if err != nil {
		return nil, fmt.Errorf("failed to create audit cache: %w", err)
	}

	return &playAuditLogRepository{
		logs:         logs,
		playsPerRoom: playsPerRoom,
		mu:           &sync.RWMutex{},
	}, nil
}

func (r *playAuditLogRepository) Log(ctx context.Context, log *domain.PlayAuditLog) error {
	if log == nil || log.Room == "" {
		return domain.ErrInvalidAuditLog
	}

	if log.ID == "" {
		log.ID = uuid.NewString()
	}
	if log.Timestamp.IsZero() {
		log.Timestamp = time.Now()
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	existing, _ := r.logs.Peek(log.Room)
	roomLogs := make([]domain.PlayAuditLog, 0, len(existing)+1)
	roomLogs = append(roomLogs, existing...)
	roomLogs = append(roomLogs, *log)
	if len(roomLogs) > r.playsPerRoom {
		roomLogs = roomLogs[len(roomLogs)-r.playsPerRoom:]
	}
	r.logs.Add(log.Room, roomLogs)

	return nil
}

// GetByRoom returns up to limit entries, newest first.
func (r *playAuditLogRepository) GetByRoom(ctx context.Context, room string, limit int) ([]domain.PlayAuditLog, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	roomLogs, _ := r.logs.Peek(room)
	if limit <= 0 || limit > len(roomLogs) {
		limit = len(roomLogs)
	}

	out := make([]domain.PlayAuditLog, 0, limit)
	for i := len(roomLogs) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, roomLogs[i])
	}

	return out, nil
}

// GetByEventType returns matching entries across rooms, newest first.
func (r *playAuditLogRepository) GetByEventType(ctx context.Context, eventType domain.PlayEventType, from, to time.Time) ([]domain.PlayAuditLog, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.PlayAuditLog, 0)
	for _, room := range r.logs.Keys() {
		roomLogs, _ := r.logs.Peek(room)
		for _, l := range roomLogs {
			if l.EventType == eventType && !l.Timestamp.Before(from) && !l.Timestamp.After(to) {
				out = append(out, l)
			}
		}
	}
	sortNewestFirst(out)

	return out, nil
}

func (r *playAuditLogRepository) DeleteOlderThan(ctx context.Context, before time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, room := range r.logs.Keys() {
		roomLogs, _ := r.logs.Peek(room)
		kept := make([]domain.PlayAuditLog, 0, len(roomLogs))
		for _, l := range roomLogs {
			if !l.Timestamp.Before(before) {
				kept = append(kept, l)
			}
		}
		if len(kept) == 0 {
			r.logs.Remove(room)
			continue
		}
		if len(kept) != len(roomLogs) {
			r.logs.Add(room, kept)
		}
	}

	return nil
}

func (r *playAuditLogRepository) EnsureIndexes(ctx context.Context) error {
	return nil
}

func sortNewestFirst(logs []domain.PlayAuditLog) {
	slices.SortStableFunc(logs, func(a, b domain.PlayAuditLog) int {
		return b.Timestamp.Compare(a.Timestamp)
	})
}
