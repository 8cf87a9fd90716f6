package roomdirectory

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/singsphere/jukebox/internal/domain"
	"github.com/singsphere/jukebox/internal/infrastructure/configs"
	"github.com/singsphere/jukebox/internal/infrastructure/logging"
	gobreaker "github.com/sony/gobreaker/v2"
)

// statsResponse mirrors the voice server's GET /api/stats payload.
type statsResponse struct {
	Online int           `json:"online"`
	Rooms  []domain.Room `json:"rooms"`
}

// Client reads the live room list from the voice server. It never caches.
type Client struct {
	httpClient *http.Client
	statsURL   string
	breaker    *gobreaker.CircuitBreaker[[]domain.Room]
	logger     logging.Logger
}

func New(cfg configs.RoomDirectoryConfig, logger logging.Logger) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		statsURL:   strings.TrimRight(cfg.BaseURL, "/") + cfg.StatsPath,
		logger:     logger,
	}

	c.breaker = gobreaker.NewCircuitBreaker[[]domain.Room](gobreaker.Settings{
		Name:    "room-directory",
		Timeout: cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn(logging.RoomDirectory, logging.ExternalService, "circuit breaker state changed", map[logging.ExtraKey]any{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			})
		},
	})

	return c
}

// ListRooms returns the live rooms. Any non-200 answer is an empty catalog;
// only transport failures and an open breaker are errors.
func (c *Client) ListRooms(ctx context.Context) ([]domain.Room, error) {
	rooms, err := c.breaker.Execute(func() ([]domain.Room, error) {
		return c.fetch(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: room directory: %w", domain.ErrCatalogUnavailable, err)
	}
	return rooms, nil
}

func (c *Client) fetch(ctx context.Context) ([]domain.Room, error) {
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.statsURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		c.logger.Warn(logging.RoomDirectory, logging.ExternalService, "room directory answered non-200, treating as no rooms", map[logging.ExtraKey]any{
			logging.StatusCode: resp.StatusCode,
			logging.Path:       c.statsURL,
		})
		return []domain.Room{}, nil
	}

	var stats statsResponse
	if err := json.NewDecoder(resp.Body).Decode(&stats); err != nil {
		return nil, fmt.Errorf("decode stats: %w", err)
	}

	c.logger.Debug(logging.RoomDirectory, logging.ExternalService, "fetched rooms", map[logging.ExtraKey]any{
		logging.Results: len(stats.Rooms),
		logging.Latency: time.Since(start).String(),
	})

	if stats.Rooms == nil {
		return []domain.Room{}, nil
	}
	return stats.Rooms, nil
}
