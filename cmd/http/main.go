package main

import (
	"context"
	"expvar"
	"log"
	"runtime"

	"github.com/singsphere/jukebox/internal/application/indexer"
	"github.com/singsphere/jukebox/internal/application/resolver"
	"github.com/singsphere/jukebox/internal/application/router"
	"github.com/singsphere/jukebox/internal/bootstrap"
	"github.com/singsphere/jukebox/internal/infrastructure/logging"
	"github.com/singsphere/jukebox/internal/infrastructure/messaging"
	"github.com/singsphere/jukebox/internal/infrastructure/objectstore"
	"github.com/singsphere/jukebox/internal/infrastructure/ratelimiter"
	"github.com/singsphere/jukebox/internal/infrastructure/repository"
	"github.com/singsphere/jukebox/internal/infrastructure/roomdirectory"
	"github.com/singsphere/jukebox/internal/infrastructure/tracing"
	"github.com/singsphere/jukebox/internal/infrastructure/ws"
	"github.com/singsphere/jukebox/internal/presentation/api"
	"github.com/singsphere/jukebox/internal/presentation/handler/health"
	"github.com/singsphere/jukebox/internal/presentation/handler/listeners"
	"github.com/singsphere/jukebox/internal/presentation/handler/playback"
	"github.com/singsphere/jukebox/internal/presentation/handler/songs"
)

const appName = "jukebox-http"

func main() {
	cfg, logger, err := bootstrap.Load(appName)
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	ctx := context.Background()

	shutdownTracer, err := tracing.InitTracer(appName, cfg.Tracing)
	if err != nil {
		logger.Fatal(logging.General, logging.Startup, "failed to init tracer", map[logging.ExtraKey]any{
			logging.ErrorMessage: err.Error(),
		})
	}
	defer shutdownTracer(ctx)

	deps, err := bootstrap.New(ctx, cfg, logger)
	if err != nil {
		logger.Fatal(logging.General, logging.Startup, "failed to connect dependencies", map[logging.ExtraKey]any{
			logging.ErrorMessage: err.Error(),
		})
	}
	defer deps.Close(ctx)

	sweepCtx, stopSweeper := context.WithCancel(ctx)
	defer stopSweeper()
	sweeper := repository.NewRetentionSweeper(deps.Audit, cfg.Audit.Retention, cfg.Audit.SweepInterval, logger)
	go sweeper.Run(sweepCtx)

	dialer := messaging.NewRabbitMQDialer(cfg.RabbitMQ.URI, cfg.RabbitMQ.InsecureSkipVerify)
	rooms := roomdirectory.New(cfg.RoomDirectory, logger)
	songCatalog := objectstore.NewSongCatalog(deps.Store, cfg.S3.Bucket)

	var routerOpts []router.Option
	if deps.Audit != nil {
		routerOpts = append(routerOpts, router.WithAuditLog(deps.Audit))
	}
	songRouter := router.New(rooms, songCatalog, dialer, cfg.RabbitMQ.Exchange, logger, routerOpts...)

	songIndexer := indexer.New(deps.Store, deps.Index, logger)
	songResolver := resolver.New(deps.Store, deps.Index, resolver.Config{
		Bucket:          cfg.S3.Bucket,
		PresignTTL:      cfg.S3.PresignTTL,
		MaxResults:      cfg.Search.MaxResults,
		AudioExtensions: cfg.Search.AudioExtensions,
	}, logger)

	// Listener feeds share one long-lived broker connection.
	feedConn, err := messaging.NewRabbitMQ(cfg.RabbitMQ.URI, dialer.TLSConfig)
	if err != nil {
		logger.Fatal(logging.AMQP, logging.Startup, "failed to connect listener feed", map[logging.ExtraKey]any{
			logging.ErrorMessage: err.Error(),
		})
	}
	defer feedConn.Close()

	if err := feedConn.DeclareExchange(cfg.RabbitMQ.Exchange, messaging.ExchangeKindDirect); err != nil {
		logger.Fatal(logging.AMQP, logging.Startup, "failed to declare exchange", map[logging.ExtraKey]any{
			logging.ErrorMessage: err.Error(),
		})
	}
	hub := ws.NewHub(feedConn, cfg.RabbitMQ.Exchange, logger)

	rateLimiter := ratelimiter.New(ratelimiter.Options{
		MaxRatePerSecond: cfg.RateLimiter.MaxRatePerSecond,
		MaxBurst:         cfg.RateLimiter.MaxBurst,
		IdleTTL:          cfg.RateLimiter.IdleTTL,
		SourceHeaderKey:  cfg.RateLimiter.SourceHeaderKey,
	})
	defer rateLimiter.Close()

	app := api.NewApplication(
		*cfg,
		health.NewHandler(deps.Checks),
		playback.NewHandler(songRouter, deps.Audit, logger),
		songs.NewHandler(songResolver, songIndexer, logger),
		listeners.NewHandler(hub, logger),
		logger,
		rateLimiter,
	)

	expvar.Publish("goroutines", expvar.Func(func() any {
		return runtime.NumGoroutine()
	}))

	mux := app.Mount()
	if err := app.Run(mux); err != nil {
		logger.Fatal(logging.General, logging.Shutdown, "server stopped with error", map[logging.ExtraKey]any{
			logging.ErrorMessage: err.Error(),
		})
	}
}
