package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/singsphere/jukebox/internal/domain"
	"github.com/singsphere/jukebox/internal/persistence/db"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const maxAuditPage = 500

// PlayAuditLog stores play history in MongoDB. A TTL index on the timestamp
// expires entries after the retention window.
type PlayAuditLog struct {
	plays     *mongo.Collection
	retention time.Duration
}

func NewPlayAuditLogRepository(database *mongo.Database, retention time.Duration) *PlayAuditLog {
	return &PlayAuditLog{
		plays:     database.Collection(db.PlayAuditLogsCollection),
		retention: retention,
	}
}

func (r *PlayAuditLog) Log(ctx context.Context, log *domain.PlayAuditLog) error {
	if log == nil || log.Room == "" {
		return domain.ErrInvalidAuditLog
	}
	if log.ID == "" {
		log.ID = uuid.NewString()
	}
	if log.Timestamp.IsZero() {
		log.Timestamp = time.Now()
	}

	if _, err := r.plays.InsertOne(ctx, log); err != nil {
		return fmt.Errorf("failed to record play %s for room %s: %w", log.ID, log.Room, err)
	}
	return nil
}

func (r *PlayAuditLog) GetByRoom(ctx context.Context, room string, limit int) ([]domain.PlayAuditLog, error) {
	logs, err := r.find(ctx, roomFilter(room), newestFirst(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to list plays for room %s: %w", room, err)
	}
	return logs, nil
}

func (r *PlayAuditLog) GetByEventType(ctx context.Context, eventType domain.PlayEventType, from, to time.Time) ([]domain.PlayAuditLog, error) {
	logs, err := r.find(ctx, eventTypeFilter(eventType, from, to), newestFirst(maxAuditPage))
	if err != nil {
		return nil, fmt.Errorf("failed to list %s plays: %w", eventType, err)
	}
	return logs, nil
}

func (r *PlayAuditLog) DeleteOlderThan(ctx context.Context, before time.Time) error {
	if _, err := r.plays.DeleteMany(ctx, olderThanFilter(before)); err != nil {
		return fmt.Errorf("failed to delete plays before %s: %w", before.Format(time.RFC3339), err)
	}
	return nil
}

func (r *PlayAuditLog) EnsureIndexes(ctx context.Context) error {
	if _, err := r.plays.Indexes().CreateMany(ctx, auditIndexes(r.retention)); err != nil {
		return fmt.Errorf("failed to create audit indexes: %w", err)
	}
	return nil
}

func (r *PlayAuditLog) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]domain.PlayAuditLog, error) {
	cursor, err := r.plays.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	logs := make([]domain.PlayAuditLog, 0)
	if err := cursor.All(ctx, &logs); err != nil {
		return nil, err
	}
	return logs, nil
}

func roomFilter(room string) bson.M {
	return bson.M{"room": room}
}

func eventTypeFilter(eventType domain.PlayEventType, from, to time.Time) bson.M {
	return bson.M{
		"event_type": eventType,
		"timestamp":  bson.M{"$gte": from, "$lte": to},
	}
}

func olderThanFilter(before time.Time) bson.M {
	return bson.M{"timestamp": bson.M{"$lt": before}}
}

// newestFirst sorts by timestamp descending and clamps limit to a page.
func newestFirst(limit int) *options.FindOptions {
	if limit <= 0 || limit > maxAuditPage {
		limit = maxAuditPage
	}
	return options.Find().
		SetSort(bson.D{{Key: "timestamp", Value: -1}}).
		SetLimit(int64(limit))
}

func auditIndexes(retention time.Duration) []mongo.IndexModel {
	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "room", Value: 1}, {Key: "timestamp", Value: -1}}},
		{Keys: bson.D{{Key: "event_type", Value: 1}, {Key: "timestamp", Value: -1}}},
	}
	if retention > 0 {
		indexes = append(indexes, mongo.IndexModel{
			Keys:    bson.D{{Key: "timestamp", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(int32(retention.Seconds())),
		})
	}
	return indexes
}
