package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/singsphere/jukebox/internal/domain"
	"github.com/singsphere/jukebox/internal/infrastructure/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingAudit struct {
	domain.PlayAuditRepository
}

func (failingAudit) DeleteOlderThan(ctx context.Context, before time.Time) error {
	return errors.New("mongo unavailable")
}

func TestRetentionSweeperDeletesExpiredPlays(t *testing.T) {
	repo, err := NewPlayAuditLogRepository(10, 10)
	require.NoError(t, err)
	ctx := context.Background()
	now := time.Date(2024, 3, 9, 12, 0, 0, 0, time.UTC)

	require.NoError(t, repo.Log(ctx, &domain.PlayAuditLog{Room: "roomA", Song: "old.mp3", EventType: domain.EventPlayPublished, Timestamp: now.Add(-31 * 24 * time.Hour)}))
	require.NoError(t, repo.Log(ctx, &domain.PlayAuditLog{Room: "roomA", Song: "new.mp3", EventType: domain.EventPlayPublished, Timestamp: now.Add(-time.Hour)}))
	require.NoError(t, repo.Log(ctx, &domain.PlayAuditLog{Room: "roomB", Song: "old.mp3", EventType: domain.EventPlayRejected, Timestamp: now.Add(-40 * 24 * time.Hour)}))

	sweeper := NewRetentionSweeper(repo, 30*24*time.Hour, time.Hour, logging.NewNopLogger())
	sweeper.now = func() time.Time { return now }
	require.NoError(t, sweeper.Sweep(ctx))

	logs, err := repo.GetByRoom(ctx, "roomA", 0)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, "new.mp3", logs[0].Song)

	logs, err = repo.GetByRoom(ctx, "roomB", 0)
	require.NoError(t, err)
	assert.Empty(t, logs)
	assert.Equal(t, 1, repo.(*playAuditLogRepository).logs.Len())
}

func TestRetentionSweeperReportsFailure(t *testing.T) {
	sweeper := NewRetentionSweeper(failingAudit{}, time.Hour, time.Hour, logging.NewNopLogger())
	assert.Error(t, sweeper.Sweep(context.Background()))
}

func TestRetentionSweeperStopsWithContext(t *testing.T) {
	repo, err := NewPlayAuditLogRepository(0, 0)
	require.NoError(t, err)
	sweeper := NewRetentionSweeper(repo, time.Hour, time.Millisecond, logging.NewNopLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		sweeper.Run(ctx)
		close(done)
	}()

	time.Sleep(5 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop")
	}
}
