package indexer

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

type fakeStore struct {
	objects map[string]domain.ObjectMeta
}

func (s *fakeStore) List(ctx context.Context, bucket string) ([]string, error) {
	return nil, errors.New("not used")
}

func (s *fakeStore) Head(ctx context.Context, bucket, key string) (domain.ObjectMeta, error) {
	meta, ok := s.objects[bucket+"/"+key]
	if !ok {
		return domain.ObjectMeta{}, domain.ErrObjectNotFound
	}
	return meta, nil
}

func (s *fakeStore) PresignedURL(ctx context.Context, bucket, key string, ttl time.Duration) (string, error) {
	return "", errors.New("not used")
}

type fakeIndex struct {
	records   map[string]domain.IndexRecord
	upserts   int
	upsertErr error
	getErr    error
}

func newFakeIndex() *fakeIndex {
	return &fakeIndex{records: make(map[string]domain.IndexRecord)}
}

func (f *fakeIndex) Upsert(ctx context.Context, id string, record domain.IndexRecord) error {
	if f.upsertErr != nil {
		return f.upsertErr
	}
	f.upserts++
	f.records[id] = record
	return nil
}

func (f *fakeIndex) Get(ctx context.Context, id string) (domain.IndexRecord, error) {
	if f.getErr != nil {
		return domain.IndexRecord{}, f.getErr
	}
	rec, ok := f.records[id]
	if !ok {
		return domain.IndexRecord{}, domain.ErrRecordNotFound
	}
	return rec, nil
}

func (f *fakeIndex) Query(ctx context.Context, q domain.Query) ([]domain.IndexRecord, error) {
	if rec, ok := f.records[q.Term]; ok && q.Mode == domain.QueryExact {
		return []domain.IndexRecord{rec}, nil
	}
	return nil, nil
}

var uploadedAt = time.Date(2024, 3, 9, 19, 5, 7, 120000000, time.UTC)

func newFixture() (*Indexer, *fakeStore, *fakeIndex) {
	store := &fakeStore{objects: map[string]domain.ObjectMeta{
		"final-music/Track1.mp3": {
			Key:          "Track1.mp3",
			LastModified: uploadedAt,
			Metadata:     map[string]string{"Customlabels": "Rock, Pop"},
		},
		"final-music/silence.wav": {
			Key:          "silence.wav",
			LastModified: uploadedAt,
		},
	}}
	index := newFakeIndex()
	return New(store, index, logging.NewNopLogger()), store, index
}

func TestOnUploadIndexesLabels(t *testing.T) {
	ix, _, index := newFixture()

	res, err := ix.OnUpload(context.Background(), domain.UploadNotification{Bucket: "final-music", Key: "Track1.mp3"})
	require.NoError(t, err)

	want := domain.IndexRecord{
		ObjectKey:        "Track1.mp3",
		Bucket:           "final-music",
		CreatedTimestamp: "2024-03-09T19:05:07",
		Labels:           []string{"rock", "pop"},
	}
	assert.Equal(t, want, res.Record)
	assert.Equal(t, want, index.records["Track1.mp3"])
	assert.Equal(t, domain.SongQueryable, res.Song.State)
	assert.Equal(t, []domain.SongState{domain.SongUploaded, domain.SongIndexed, domain.SongQueryable}, res.Transitions)

	hits, err := index.Query(context.Background(), domain.Query{Mode: domain.QueryExact, Term: "Track1.mp3", Size: 5})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, []string{"rock", "pop"}, hits[0].LabelList())
}

func TestOnUploadWithoutLabels(t *testing.T) {
	ix, _, index := newFixture()

	_, err := ix.OnUpload(context.Background(), domain.UploadNotification{Bucket: "final-music", Key: "silence.wav"})
	require.NoError(t, err)
	assert.NotNil(t, index.records["silence.wav"].Labels)
	assert.Empty(t, index.records["silence.wav"].Labels)
}

func TestOnUploadTwiceKeepsOneRecord(t *testing.T) {
	ix, store, index := newFixture()
	n := domain.UploadNotification{Bucket: "final-music", Key: "Track1.mp3"}

	_, err := ix.OnUpload(context.Background(), n)
	require.NoError(t, err)

	meta := store.objects["final-music/Track1.mp3"]
	meta.Metadata = map[string]string{"customlabels": "Jazz"}
	meta.LastModified = uploadedAt.Add(time.Hour)
	store.objects["final-music/Track1.mp3"] = meta

	_, err = ix.OnUpload(context.Background(), n)
	require.NoError(t, err)

	assert.Len(t, index.records, 1)
	assert.Equal(t, 2, index.upserts)
	assert.Equal(t, []string{"jazz"}, index.records["Track1.mp3"].Labels)
	assert.Equal(t, "2024-03-09T20:05:07", index.records["Track1.mp3"].CreatedTimestamp)
}

func TestOnUploadMissingObject(t *testing.T) {
	ix, _, index := newFixture()

	_, err := ix.OnUpload(context.Background(), domain.UploadNotification{Bucket: "final-music", Key: "gone.mp3"})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrObjectNotFound)
	assert.Equal(t, 0, index.upserts)
}

func TestOnUploadIndexWriteFailure(t *testing.T) {
	ix, _, index := newFixture()
	index.upsertErr = errors.New("cluster red")

	res, err := ix.OnUpload(context.Background(), domain.UploadNotification{Bucket: "final-music", Key: "Track1.mp3"})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrIndexWrite)
	assert.Equal(t, domain.SongUploaded, res.Song.State)
}

func TestOnUploadReadBackFailure(t *testing.T) {
	ix, _, index := newFixture()
	index.getErr = errors.New("timeout")

	res, err := ix.OnUpload(context.Background(), domain.UploadNotification{Bucket: "final-music", Key: "Track1.mp3"})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrIndexWrite)
	assert.Equal(t, domain.SongIndexed, res.Song.State)
	assert.Equal(t, []domain.SongState{domain.SongUploaded, domain.SongIndexed}, res.Transitions)
	assert.Len(t, index.records, 1)
}

func TestOnUploadsStopsAtFirstFailure(t *testing.T) {
	ix, _, index := newFixture()

	results, err := ix.OnUploads(context.Background(), []domain.UploadNotification{
		{Bucket: "final-music", Key: "Track1.mp3"},
		{Bucket: "final-music", Key: "gone.mp3"},
		{Bucket: "final-music", Key: "silence.wav"},
	})
	require.ErrorIs(t, err, domain.ErrObjectNotFound)
	assert.Len(t, results, 1)
	assert.NotContains(t, index.records, "silence.wav")
}
