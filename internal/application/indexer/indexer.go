package indexer

import (
	"context"
	"errors"
	"fmt"

	"github.com/singsphere/jukebox/internal/domain"
	"github.com/singsphere/jukebox/internal/infrastructure/logging"
	"github.com/singsphere/jukebox/internal/infrastructure/metrics"
	"github.com/singsphere/jukebox/internal/infrastructure/tracing"
	"go.opentelemetry.io/otel/attribute"
)

const tracerName = "github.com/singsphere/jukebox/internal/application/indexer"

// IndexResult describes one indexed upload. Transitions lists the lifecycle
// states the song passed through during the call, in order.
type IndexResult struct {
	Record      domain.IndexRecord `json:"record"`
	Song        domain.Song        `json:"song"`
	Transitions []domain.SongState `json:"transitions"`
}

type Indexer struct {
	store  domain.ObjectStore
	index  domain.SearchIndex
	logger logging.Logger
}

func New(store domain.ObjectStore, index domain.SearchIndex, logger logging.Logger) *Indexer {
	return &Indexer{
		store:  store,
		index:  index,
		logger: logger,
	}
}

// OnUpload heads the uploaded object, writes its index record keyed by the
// object key and reads it back. Re-indexing the same key replaces the record.
func (i *Indexer) OnUpload(ctx context.Context, n domain.UploadNotification) (IndexResult, error) {
	ctx, span := tracing.StartSpan(ctx, tracerName, "Indexer.OnUpload",
		attribute.String("jukebox.bucket", n.Bucket),
		attribute.String("jukebox.object_key", n.Key),
	)
	result, err := i.onUpload(ctx, n)
	tracing.EndSpan(span, err)
	metrics.IndexOperationsTotal.WithLabelValues(metrics.Outcome(err, isMissingObject)).Inc()

	extra := map[logging.ExtraKey]any{
		logging.Bucket:    n.Bucket,
		logging.ObjectKey: n.Key,
	}
	if err != nil {
		extra[logging.ErrorMessage] = err.Error()
		i.logger.Error(logging.SearchIndex, logging.Indexing, "failed to index upload", extra)
		return result, err
	}

	extra["labels"] = result.Record.Labels
	i.logger.Info(logging.SearchIndex, logging.Indexing, "song indexed", extra)

	return result, nil
}

func (i *Indexer) onUpload(ctx context.Context, n domain.UploadNotification) (IndexResult, error) {
	meta, err := i.store.Head(ctx, n.Bucket, n.Key)
	if err != nil {
		return IndexResult{}, fmt.Errorf("head %s/%s: %w", n.Bucket, n.Key, err)
	}

	song := domain.NewUploadedSong(n.Bucket, n.Key, meta.LastModified, meta.Labels())
	record := song.Record()
	result := IndexResult{Record: record, Transitions: []domain.SongState{song.State}}

	if err := i.index.Upsert(ctx, n.Key, record); err != nil {
		result.Song = *song
		return result, fmt.Errorf("%w: upsert %s: %w", domain.ErrIndexWrite, n.Key, err)
	}
	if err := advance(song, domain.SongIndexed, &result); err != nil {
		return result, err
	}

	if _, err := i.index.Get(ctx, n.Key); err != nil {
		result.Song = *song
		return result, fmt.Errorf("%w: read back %s: %w", domain.ErrIndexWrite, n.Key, err)
	}
	if err := advance(song, domain.SongQueryable, &result); err != nil {
		return result, err
	}

	result.Song = *song
	return result, nil
}

func advance(song *domain.Song, to domain.SongState, result *IndexResult) error {
	if err := song.Advance(to); err != nil {
		return err
	}
	result.Transitions = append(result.Transitions, to)
	return nil
}

// OnUploads processes notifications in order and stops at the first failure.
// Results for the notifications indexed before the failure are returned.
func (i *Indexer) OnUploads(ctx context.Context, notifications []domain.UploadNotification) ([]IndexResult, error) {
	results := make([]IndexResult, 0, len(notifications))
	for _, n := range notifications {
		res, err := i.OnUpload(ctx, n)
		if err != nil {
			return results, err
		}
		results = append(results, res)
	}
	return results, nil
}

func isMissingObject(err error) bool {
	return errors.Is(err, domain.ErrObjectNotFound)
}
