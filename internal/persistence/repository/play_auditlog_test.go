package repository

import (
	"context"
	"testing"
	"time"

	"github.com/singsphere/jukebox/internal/domain"
	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson"
)

func TestPlayAuditLogRejectsLogsWithoutRoom(t *testing.T) {
	repo := &PlayAuditLog{}

	assert.ErrorIs(t, repo.Log(context.Background(), nil), domain.ErrInvalidAuditLog)
	assert.ErrorIs(t, repo.Log(context.Background(), &domain.PlayAuditLog{Song: "a.mp3"}), domain.ErrInvalidAuditLog)
}

func TestAuditFilters(t *testing.T) {
	from := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	to := from.Add(24 * time.Hour)

	assert.Equal(t, bson.M{"room": "roomA"}, roomFilter("roomA"))
	assert.Equal(t, bson.M{
		"event_type": domain.EventPlayRejected,
		"timestamp":  bson.M{"$gte": from, "$lte": to},
	}, eventTypeFilter(domain.EventPlayRejected, from, to))
	assert.Equal(t, bson.M{"timestamp": bson.M{"$lt": to}}, olderThanFilter(to))
}

func TestNewestFirstClampsLimit(t *testing.T) {
	tests := []struct {
		limit int
		want  int64
	}{
		{limit: 10, want: 10},
		{limit: 0, want: maxAuditPage},
		{limit: -3, want: maxAuditPage},
		{limit: maxAuditPage * 4, want: maxAuditPage},
	}

	for _, tt := range tests {
		opts := newestFirst(tt.limit)
		assert.Equal(t, tt.want, *opts.Limit)
		assert.Equal(t, bson.D{{Key: "timestamp", Value: -1}}, opts.Sort)
	}
}

func TestAuditIndexesFollowRetention(t *testing.T) {
	indexes := auditIndexes(48 * time.Hour)
	assert.Len(t, indexes, 3)
	assert.Equal(t, int32(48*60*60), *indexes[2].Options.ExpireAfterSeconds)

	assert.Len(t, auditIndexes(0), 2)
}
