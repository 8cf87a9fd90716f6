package events

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/singsphere/jukebox/internal/domain"
	"github.com/singsphere/jukebox/internal/infrastructure/configs"
	"github.com/singsphere/jukebox/internal/infrastructure/contracts"
	"github.com/singsphere/jukebox/internal/infrastructure/logging"
	"github.com/singsphere/jukebox/internal/infrastructure/messaging"
)

// IndexFunc indexes a single uploaded object.
type IndexFunc func(ctx context.Context, n domain.UploadNotification) error

type UploadConsumer struct {
	rabbitmq *messaging.RabbitMQ
	cfg      configs.RabbitMQConfig
	index    IndexFunc
	logger   logging.Logger
}

func NewUploadConsumer(rabbitmq *messaging.RabbitMQ, cfg configs.RabbitMQConfig, index IndexFunc, logger logging.Logger) *UploadConsumer {
	return &UploadConsumer{
		rabbitmq: rabbitmq,
		cfg:      cfg,
		index:    index,
		logger:   logger,
	}
}

// Setup declares the bucket notification exchange and the durable upload
// queue bound to it.
func (c *UploadConsumer) Setup() error {
	if c.cfg.UploadExchange == "" {
		return c.rabbitmq.DeclareAndBindQueue(c.cfg.UploadQueue, nil, "")
	}
	if err := c.rabbitmq.DeclareExchange(c.cfg.UploadExchange, messaging.ExchangeKindDirect); err != nil {
		return err
	}
	return c.rabbitmq.DeclareAndBindQueue(c.cfg.UploadQueue, []string{c.cfg.UploadRoutingKey}, c.cfg.UploadExchange)
}

// Listen blocks until ctx is cancelled or the delivery channel closes.
func (c *UploadConsumer) Listen(ctx context.Context) error {
	tag := "indexer-" + uuid.NewString()

	c.logger.Info(logging.AMQP, logging.Consume, "listening for uploads", map[logging.ExtraKey]any{
		"queue":       c.cfg.UploadQueue,
		"consumerTag": tag,
	})

	return c.rabbitmq.ConsumeMessages(ctx, c.cfg.UploadQueue, tag, c.Handle)
}

// Handle indexes every record of one bucket notification. Records are
// processed in order and the first failure rejects the whole delivery.
func (c *UploadConsumer) Handle(ctx context.Context, msg amqp.Delivery) error {
	notifications, err := contracts.ParseS3Event(msg.Body)
	if errors.Is(err, contracts.ErrNoRecords) {
		c.logger.Debug(logging.AMQP, logging.Consume, "ignoring notification without records", map[logging.ExtraKey]any{
			"deliveryTag": msg.DeliveryTag,
		})
		return nil
	}
	if err != nil {
		c.logger.Error(logging.AMQP, logging.Consume, "malformed upload notification", map[logging.ExtraKey]any{
			"deliveryTag":        msg.DeliveryTag,
			logging.ErrorMessage: err.Error(),
		})
		return err
	}

	for _, n := range notifications {
		if err := c.index(ctx, n); err != nil {
			return fmt.Errorf("index %s/%s: %w", n.Bucket, n.Key, err)
		}
	}

	return nil
}
