package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/singsphere/jukebox/internal/application/indexer"
	"github.com/singsphere/jukebox/internal/application/router"
	"github.com/singsphere/jukebox/internal/domain"
	"github.com/singsphere/jukebox/internal/infrastructure/configs"
	"github.com/singsphere/jukebox/internal/infrastructure/logging"
	"github.com/singsphere/jukebox/internal/infrastructure/ratelimiter"
	"github.com/singsphere/jukebox/internal/infrastructure/ws"
	healthHandler "github.com/singsphere/jukebox/internal/presentation/handler/health"
	listenersHandler "github.com/singsphere/jukebox/internal/presentation/handler/listeners"
	playbackHandler "github.com/singsphere/jukebox/internal/presentation/handler/playback"
	songsHandler "github.com/singsphere/jukebox/internal/presentation/handler/songs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubRouter struct{}

func (stubRouter) Route(ctx context.Context, song, room string) (router.Routing, error) {
	return router.Routing{Song: song, Room: room, Message: "ok"}, nil
}

type stubResolver struct{}

func (stubResolver) Search(ctx context.Context, term string) ([]domain.SongResult, error) {
	return nil, domain.ErrNoResults
}

type stubIndexer struct{}

func (stubIndexer) OnUploads(ctx context.Context, ns []domain.UploadNotification) ([]indexer.IndexResult, error) {
	return nil, nil
}

func newTestApp(burst int) http.Handler {
	cfg := configs.Config{HTTP: configs.HTTPConfig{
		AllowedOrigins: []string{"*"},
		AllowedHeaders: []string{"*"},
		WriteTimeout:   30 * time.Second,
		RequestTimeout: 25 * time.Second,
	}}
	logger := logging.NewNopLogger()
	limiter := ratelimiter.New(ratelimiter.Options{MaxRatePerSecond: 1, MaxBurst: burst})

	app := NewApplication(
		cfg,
		healthHandler.NewHandler(nil),
		playbackHandler.NewHandler(stubRouter{}, nil, logger),
		songsHandler.NewHandler(stubResolver{}, stubIndexer{}, logger),
		listenersHandler.NewHandler(ws.NewHub(nil, "songs_exchange", logger), logger),
		logger,
		limiter,
	)
	return app.Mount()
}

func TestMountRoutes(t *testing.T) {
	mux := newTestApp(100)

	tests := []struct {
		method string
		path   string
		body   string
		status int
	}{
		{method: http.MethodGet, path: "/api/health", status: http.StatusOK},
		{method: http.MethodGet, path: "/api/ready", status: http.StatusOK},
		{method: http.MethodPost, path: "/api/rooms/play", body: `{"song":"a.mp3","room":"roomA"}`, status: http.StatusOK},
		{method: http.MethodGet, path: "/api/rooms/roomA/plays", status: http.StatusNotFound},
		{method: http.MethodGet, path: "/api/rooms/roomA/listeners", status: http.StatusOK},
		{method: http.MethodGet, path: "/api/plays?event_type=play_failed", status: http.StatusNotFound},
		{method: http.MethodGet, path: "/api/songs/search?song=rock", status: http.StatusNotFound},
		{method: http.MethodGet, path: "/metrics", status: http.StatusOK},
		{method: http.MethodGet, path: "/api/unknown", status: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body)))
			assert.Equal(t, tt.status, rec.Code)
		})
	}
}

func TestSwaggerServesAPIDocument(t *testing.T) {
	mux := newTestApp(100)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/swagger/doc.json", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var doc struct {
		Swagger string                    `json:"swagger"`
		Info    map[string]any            `json:"info"`
		Paths   map[string]map[string]any `json:"paths"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &doc))
	assert.Equal(t, "2.0", doc.Swagger)
	assert.Equal(t, "SingSphere Jukebox API", doc.Info["title"])

	for path, method := range map[string]string{
		"/api/rooms/play":             "post",
		"/api/rooms/{room}/plays":     "get",
		"/api/rooms/{room}/listeners": "get",
		"/api/plays":                  "get",
		"/api/songs/search":           "get",
		"/api/songs/index":            "post",
		"/ws/rooms/{room}":            "get",
	} {
		assert.Contains(t, doc.Paths[path], method, path)
	}

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/swagger/index.html", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "swagger-ui")
}

func TestRateLimiterRejects(t *testing.T) {
	mux := newTestApp(1)

	req := func() *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodGet, "/api/songs/search?song=rock", nil)
		r.RemoteAddr = "198.51.100.4:1234"
		mux.ServeHTTP(rec, r)
		return rec
	}

	assert.Equal(t, http.StatusNotFound, req().Code)

	rec := req()
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))
}

func TestRateLimiterIgnoresForwardedForFromUntrustedClients(t *testing.T) {
	mux := newTestApp(1)

	req := func(forwardedFor string) int {
		rec := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodGet, "/api/songs/search?song=rock", nil)
		r.RemoteAddr = "198.51.100.4:1234"
		r.Header.Set("X-Forwarded-For", forwardedFor)
		mux.ServeHTTP(rec, r)
		return rec.Code
	}

	assert.Equal(t, http.StatusNotFound, req("203.0.113.1"))
	assert.Equal(t, http.StatusTooManyRequests, req("203.0.113.2"))
}

func TestCORSNeverAllowsCredentials(t *testing.T) {
	mux := newTestApp(100)

	preflight := httptest.NewRequest(http.MethodOptions, "/api/rooms/play", nil)
	preflight.Header.Set("Origin", "https://app.singsphere.io")
	preflight.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, preflight)

	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Credentials"))
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))

	r := httptest.NewRequest(http.MethodGet, "/api/songs/search?song=rock", nil)
	r.Header.Set("Origin", "https://app.singsphere.io")
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, r)

	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Credentials"))
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}
