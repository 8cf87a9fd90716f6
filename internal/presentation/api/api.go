package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	_ "github.com/singsphere/jukebox/docs"
	"github.com/singsphere/jukebox/internal/infrastructure/configs"
	"github.com/singsphere/jukebox/internal/infrastructure/logging"
	"github.com/singsphere/jukebox/internal/infrastructure/ratelimiter"
	healthHandler "github.com/singsphere/jukebox/internal/presentation/handler/health"
	listenersHandler "github.com/singsphere/jukebox/internal/presentation/handler/listeners"
	playbackHandler "github.com/singsphere/jukebox/internal/presentation/handler/playback"
	songsHandler "github.com/singsphere/jukebox/internal/presentation/handler/songs"
	httpSwagger "github.com/swaggo/http-swagger/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

type Application struct {
	config           configs.Config
	healthHandler    *healthHandler.Handler
	playbackHandler  *playbackHandler.Handler
	songsHandler     *songsHandler.Handler
	listenersHandler *listenersHandler.Handler
	logger           logging.Logger
	ratelimiter      ratelimiter.Limiter
}

func NewApplication(
	config configs.Config,
	healthHandler *healthHandler.Handler,
	playbackHandler *playbackHandler.Handler,
	songsHandler *songsHandler.Handler,
	listenersHandler *listenersHandler.Handler,
	logger logging.Logger,
	ratelimiter ratelimiter.Limiter,
) *Application {
	return &Application{
		config:           config,
		healthHandler:    healthHandler,
		playbackHandler:  playbackHandler,
		songsHandler:     songsHandler,
		listenersHandler: listenersHandler,
		logger:           logger,
		ratelimiter:      ratelimiter,
	}
}

func (app *Application) Mount() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	if app.config.HTTP.TrustProxyHeaders {
		r.Use(middleware.RealIP)
	}
	r.Use(middleware.Recoverer)
	r.Use(app.loggerMiddleware)
	r.Use(app.prometheusMiddleware)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   app.config.HTTP.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   app.config.HTTP.AllowedHeaders,
		AllowCredentials: false,
		MaxAge:           86400,
	}))

	r.Handle("/metrics", promhttp.Handler())
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
		httpSwagger.DeepLinking(true),
		httpSwagger.DocExpansion("list"),
		httpSwagger.DomID("swagger-ui"),
	))

	r.Route("/api", func(r chi.Router) {
		if app.config.HTTP.RequestTimeout > 0 {
			r.Use(middleware.Timeout(app.config.HTTP.RequestTimeout))
		}

		r.Get("/health", app.healthHandler.GetHealth)
		r.Get("/healthz", app.healthHandler.GetHealth)
		r.Get("/live", app.healthHandler.GetHealth)
		r.Get("/ready", app.healthHandler.GetReady)

		r.Group(func(r chi.Router) {
			r.Use(app.rateLimiterMiddleware)

			r.Get("/plays", app.playbackHandler.ListPlaysByTypeHandler)

			r.Route("/rooms", func(r chi.Router) {
				r.Post("/play", app.playbackHandler.PlayHandler)
				r.Get("/{room}/plays", app.playbackHandler.ListPlaysHandler)
				r.Get("/{room}/listeners", app.listenersHandler.CountHandler)
			})

			r.Route("/songs", func(r chi.Router) {
				r.Get("/search", app.songsHandler.SearchHandler)
				r.Post("/index", app.songsHandler.IndexHandler)
			})
		})
	})

	r.Route("/ws", func(r chi.Router) {
		r.Use(app.rateLimiterMiddleware)
		r.Get("/rooms/{room}", app.listenersHandler.FollowRoomHandler)
	})

	return otelhttp.NewHandler(r, "jukebox-http")
}

func (app *Application) Run(mux http.Handler) error {
	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", app.config.HTTP.Host, app.config.HTTP.Port),
		Handler:      mux,
		WriteTimeout: app.config.HTTP.WriteTimeout,
		ReadTimeout:  app.config.HTTP.ReadTimeout,
		IdleTimeout:  time.Minute,
	}

	shutdown := make(chan error)

	go func() {
		quit := make(chan os.Signal, 1)

		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		s := <-quit

		app.healthHandler.SetHealthy(false)

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		app.logger.Info(logging.General, logging.Shutdown, "signal caught", map[logging.ExtraKey]any{
			"signal": s.String(),
		})

		shutdown <- srv.Shutdown(ctx)
	}()

	app.logger.Info(logging.General, logging.Startup, "server has started", map[logging.ExtraKey]any{
		"addr": srv.Addr,
	})

	err := srv.ListenAndServe()
	if !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	err = <-shutdown
	if err != nil {
		return err
	}

	app.logger.Info(logging.General, logging.Shutdown, "server has stopped", map[logging.ExtraKey]any{
		"addr": srv.Addr,
	})

	return nil
}
