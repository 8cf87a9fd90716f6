package songs

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/singsphere/jukebox/internal/application/indexer"
	"github.com/singsphere/jukebox/internal/domain"
	"github.com/singsphere/jukebox/internal/infrastructure/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type resolverFunc func(ctx context.Context, term string) ([]domain.SongResult, error)

func (f resolverFunc) Search(ctx context.Context, term string) ([]domain.SongResult, error) {
	return f(ctx, term)
}

type indexerFunc func(ctx context.Context, ns []domain.UploadNotification) ([]indexer.IndexResult, error)

func (f indexerFunc) OnUploads(ctx context.Context, ns []domain.UploadNotification) ([]indexer.IndexResult, error) {
	return f(ctx, ns)
}

type envelope struct {
	Message string           `json:"message"`
	Results []map[string]any `json:"results"`
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var body envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func noIndexer() indexerFunc {
	return func(ctx context.Context, ns []domain.UploadNotification) ([]indexer.IndexResult, error) {
		return nil, errors.New("not used")
	}
}

func TestSearchHandler(t *testing.T) {
	h := NewHandler(resolverFunc(func(ctx context.Context, term string) ([]domain.SongResult, error) {
		assert.Equal(t, "Track1.mp3", term)
		return []domain.SongResult{{URL: "https://s3.local/Track1.mp3", SearchTerm: "Track1.mp3", Labels: []string{"rock"}}}, nil
	}), noIndexer(), logging.NewNopLogger())

	rec := httptest.NewRecorder()
	h.SearchHandler(rec, httptest.NewRequest(http.MethodGet, "/api/songs/search?song=Track1.mp3", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "Retrieved songs based on the search term 'track1.mp3'.", body.Message)
	require.Len(t, body.Results, 1)
	assert.Equal(t, "https://s3.local/Track1.mp3", body.Results[0]["url"])
	assert.Equal(t, "Track1.mp3", body.Results[0]["search_term"])
	assert.Equal(t, []any{"rock"}, body.Results[0]["labels"])
}

func TestSearchHandlerErrors(t *testing.T) {
	tests := []struct {
		name    string
		query   string
		err     error
		status  int
		message string
	}{
		{name: "empty", query: "", err: domain.ErrEmptyQuery, status: http.StatusBadRequest, message: "Search term cannot be empty."},
		{name: "no matches", query: "polka", err: domain.ErrNoResults, status: http.StatusNotFound, message: "No songs found matching the search term 'polka'. Please try a different search."},
		{name: "empty bucket", query: "ALL", err: domain.ErrNoResults, status: http.StatusNotFound, message: "No available songs, please contact the development team."},
		{name: "index down", query: "rock", err: errors.New("connection refused"), status: http.StatusInternalServerError, message: "Request failed due to server error. Please contact development team."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHandler(resolverFunc(func(ctx context.Context, term string) ([]domain.SongResult, error) {
				return nil, tt.err
			}), noIndexer(), logging.NewNopLogger())

			rec := httptest.NewRecorder()
			h.SearchHandler(rec, httptest.NewRequest(http.MethodGet, "/api/songs/search?song="+tt.query, nil))

			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.message, decode(t, rec).Message)
		})
	}
}

func TestIndexHandler(t *testing.T) {
	var got []domain.UploadNotification
	h := NewHandler(nil, indexerFunc(func(ctx context.Context, ns []domain.UploadNotification) ([]indexer.IndexResult, error) {
		got = ns
		return []indexer.IndexResult{{Record: domain.IndexRecord{ObjectKey: ns[0].Key}}}, nil
	}), logging.NewNopLogger())

	event := `{"Records":[{"s3":{"bucket":{"name":"final-music"},"object":{"key":"Track1.mp3"}}}]}`
	rec := httptest.NewRecorder()
	h.IndexHandler(rec, httptest.NewRequest(http.MethodPost, "/api/songs/index", strings.NewReader(event)))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Indexed song successfully.", decode(t, rec).Message)
	assert.Equal(t, []domain.UploadNotification{{Bucket: "final-music", Key: "Track1.mp3"}}, got)
}

func TestIndexHandlerErrors(t *testing.T) {
	h := NewHandler(nil, indexerFunc(func(ctx context.Context, ns []domain.UploadNotification) ([]indexer.IndexResult, error) {
		return nil, domain.ErrObjectNotFound
	}), logging.NewNopLogger())

	rec := httptest.NewRecorder()
	h.IndexHandler(rec, httptest.NewRequest(http.MethodPost, "/api/songs/index", strings.NewReader(`{"Records":[]}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	event := `{"Records":[{"s3":{"bucket":{"name":"final-music"},"object":{"key":"gone.mp3"}}}]}`
	rec = httptest.NewRecorder()
	h.IndexHandler(rec, httptest.NewRequest(http.MethodPost, "/api/songs/index", strings.NewReader(event)))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
