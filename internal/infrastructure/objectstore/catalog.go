package objectstore

import (
	"context"
	"fmt"

	"github.com/singsphere/jukebox/internal/domain"
)

// SongCatalog lists every object key in the music bucket. It is read fresh
// on every call.
type SongCatalog struct {
	store  domain.ObjectStore
	bucket string
}

func NewSongCatalog(store domain.ObjectStore, bucket string) *SongCatalog {
	return &SongCatalog{store: store, bucket: bucket}
}

func (c *SongCatalog) ListSongs(ctx context.Context) ([]string, error) {
	keys, err := c.store.List(ctx, c.bucket)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrCatalogUnavailable, err)
	}
	return keys, nil
}
