package main

import (
	"context"
	"errors"
	"log"
	"os/signal"
	"syscall"

	"github.com/singsphere/jukebox/internal/application/indexer"
	"github.com/singsphere/jukebox/internal/bootstrap"
	"github.com/singsphere/jukebox/internal/domain"
	"github.com/singsphere/jukebox/internal/infrastructure/events"
	"github.com/singsphere/jukebox/internal/infrastructure/logging"
	"github.com/singsphere/jukebox/internal/infrastructure/messaging"
	"github.com/singsphere/jukebox/internal/infrastructure/tracing"
)

const appName = "jukebox-indexer"

func main() {
	cfg, logger, err := bootstrap.Load(appName)
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracer, err := tracing.InitTracer(appName, cfg.Tracing)
	if err != nil {
		logger.Fatal(logging.General, logging.Startup, "failed to init tracer", map[logging.ExtraKey]any{
			logging.ErrorMessage: err.Error(),
		})
	}
	defer shutdownTracer(context.Background())

	deps, err := bootstrap.New(ctx, cfg, logger)
	if err != nil {
		logger.Fatal(logging.General, logging.Startup, "failed to connect dependencies", map[logging.ExtraKey]any{
			logging.ErrorMessage: err.Error(),
		})
	}
	defer deps.Close(context.Background())

	dialer := messaging.NewRabbitMQDialer(cfg.RabbitMQ.URI, cfg.RabbitMQ.InsecureSkipVerify)
	rmq, err := messaging.NewRabbitMQ(cfg.RabbitMQ.URI, dialer.TLSConfig)
	if err != nil {
		logger.Fatal(logging.AMQP, logging.Startup, "failed to connect to rabbitmq", map[logging.ExtraKey]any{
			logging.ErrorMessage: err.Error(),
		})
	}
	defer rmq.Close()

	songIndexer := indexer.New(deps.Store, deps.Index, logger)
	consumer := events.NewUploadConsumer(rmq, cfg.RabbitMQ, func(ctx context.Context, n domain.UploadNotification) error {
		_, err := songIndexer.OnUpload(ctx, n)
		return err
	}, logger)

	if err := consumer.Setup(); err != nil {
		logger.Fatal(logging.AMQP, logging.Startup, "failed to declare upload queue", map[logging.ExtraKey]any{
			logging.ErrorMessage: err.Error(),
		})
	}

	err = consumer.Listen(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error(logging.AMQP, logging.Consume, "upload consumer stopped", map[logging.ExtraKey]any{
			logging.ErrorMessage: err.Error(),
		})
		return
	}

	logger.Info(logging.General, logging.Shutdown, "indexer stopped", nil)
}
