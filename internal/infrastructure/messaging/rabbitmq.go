package messaging

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/singsphere/jukebox/internal/domain"
)

const (
	ExchangeKindDirect = "direct"
	DeadLetterExchange = "dlx"
	DeadLetterQueue    = "dead_letter_queue"
)

type RabbitMQ struct {
	uri       string
	tlsConfig *tls.Config

	mu      sync.Mutex
	conn    *amqp.Connection
	Channel *amqp.Channel
}

func dial(uri string, tlsConfig *tls.Config) (*amqp.Connection, error) {
	var (
		conn *amqp.Connection
		err  error
	)
	if strings.HasPrefix(uri, "amqps://") {
		conn, err = amqp.DialTLS(uri, tlsConfig)
	} else {
		conn, err = amqp.Dial(uri)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	return conn, nil
}

func NewRabbitMQ(uri string, tlsConfig *tls.Config) (*RabbitMQ, error) {
	conn, err := dial(uri, tlsConfig)
	if err != nil {
		return nil, err
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create channel: %w", err)
	}

	rmq := &RabbitMQ{
		uri:       uri,
		tlsConfig: tlsConfig,
		conn:      conn,
		Channel:   ch,
	}

	return rmq, nil
}

// Close releases the channel and then the connection.
func (r *RabbitMQ) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.Channel != nil {
		if err := r.Channel.Close(); err != nil && !errors.Is(err, amqp.ErrClosed) {
			log.Printf("failed to close channel: %v", err)
		}
	}
	if r.conn != nil && !r.conn.IsClosed() {
		if err := r.conn.Close(); err != nil {
			log.Printf("failed to close connection: %v", err)
		}
	}
}

func (r *RabbitMQ) DeclareExchange(name, kind string) error {
	if err := r.Channel.ExchangeDeclare(
		name,  // name
		kind,  // type
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,   // arguments
	); err != nil {
		return fmt.Errorf("failed to declare exchange %s: %w", name, err)
	}
	return nil
}

func (r *RabbitMQ) Publish(ctx context.Context, msg domain.RoutedMessage) error {
	mode := amqp.Transient
	if msg.Persistent {
		mode = amqp.Persistent
	}

	if err := r.Channel.PublishWithContext(ctx,
		msg.Exchange,   // exchange
		msg.RoutingKey, // routing key
		false,          // mandatory
		false,          // immediate
		amqp.Publishing{
			ContentType:  "text/plain",
			DeliveryMode: mode,
			Timestamp:    time.Now(),
			Body:         msg.Body,
		},
	); err != nil {
		return fmt.Errorf("failed to publish to %s/%s: %w", msg.Exchange, msg.RoutingKey, err)
	}
	return nil
}

// DeclareAndBindQueue declares a durable queue that dead-letters rejected
// deliveries and binds it to exchange for every routing key.
func (r *RabbitMQ) DeclareAndBindQueue(queueName string, routingKeys []string, exchange string) error {
	if err := r.DeclareExchange(DeadLetterExchange, "fanout"); err != nil {
		return err
	}
	dlq, err := r.Channel.QueueDeclare(DeadLetterQueue, true, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("failed to declare %s: %w", DeadLetterQueue, err)
	}
	if err := r.Channel.QueueBind(dlq.Name, "", DeadLetterExchange, false, nil); err != nil {
		return fmt.Errorf("failed to bind %s: %w", DeadLetterQueue, err)
	}

	args := amqp.Table{
		"x-dead-letter-exchange": DeadLetterExchange,
	}

	q, err := r.Channel.QueueDeclare(
		queueName, // name
		true,      // durable
		false,     // delete when unused
		false,     // exclusive
		false,     // no-wait
		args,      // arguments with DLX config
	)
	if err != nil {
		return fmt.Errorf("failed to declare queue %s: %w", queueName, err)
	}

	for _, key := range routingKeys {
		if err := r.Channel.QueueBind(
			q.Name,   // queue name
			key,      // routing key
			exchange, // exchange
			false,
			nil,
		); err != nil {
			return fmt.Errorf("failed to bind queue to %s: %w", queueName, err)
		}
	}

	return nil
}

type DeliveryHandler func(ctx context.Context, msg amqp.Delivery) error

// ConsumeMessages handles deliveries one at a time until ctx is done or the
// channel closes. Successful deliveries are acked; failures are rejected
// without requeue so the broker dead-letters them.
func (r *RabbitMQ) ConsumeMessages(ctx context.Context, queueName, consumerTag string, handler DeliveryHandler) error {
	if err := r.Channel.Qos(1, 0, false); err != nil {
		return fmt.Errorf("failed to set QoS: %w", err)
	}

	msgs, err := r.Channel.Consume(
		queueName,   // queue
		consumerTag, // consumer
		false,       // auto-ack
		false,       // exclusive
		false,       // no-local
		false,       // no-wait
		nil,         // args
	)
	if err != nil {
		return fmt.Errorf("failed to consume %s: %w", queueName, err)
	}

	for {
		select {
		case <-ctx.Done():
			_ = r.Channel.Cancel(consumerTag, false)
			return ctx.Err()
		case msg, ok := <-msgs:
			if !ok {
				return fmt.Errorf("delivery channel for %s closed", queueName)
			}
			if err := handler(ctx, msg); err != nil {
				if nackErr := msg.Nack(false, false); nackErr != nil {
					log.Printf("failed to nack delivery %d: %v", msg.DeliveryTag, nackErr)
				}
				continue
			}
			if ackErr := msg.Ack(false); ackErr != nil {
				log.Printf("failed to ack delivery %d: %v", msg.DeliveryTag, ackErr)
			}
		}
	}
}

// SubscribeRoom binds a server-named exclusive queue to exchange with the
// room as routing key. The queue disappears once the consumer is cancelled.
func (r *RabbitMQ) SubscribeRoom(exchange, room, consumerTag string) (<-chan amqp.Delivery, error) {
	ch, err := r.openChannel()
	if err != nil {
		return nil, err
	}

	q, err := ch.QueueDeclare(
		"",    // name
		false, // durable
		true,  // delete when unused
		true,  // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		return nil, fmt.Errorf("failed to declare room queue: %w", err)
	}

	if err := ch.QueueBind(q.Name, room, exchange, false, nil); err != nil {
		return nil, fmt.Errorf("failed to bind room %s: %w", room, err)
	}

	msgs, err := ch.Consume(q.Name, consumerTag, true, true, false, false, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to consume room %s: %w", room, err)
	}

	return msgs, nil
}

// Unsubscribe cancels a room consumer. Its delivery channel is closed by
// the library once pending deliveries are drained.
func (r *RabbitMQ) Unsubscribe(consumerTag string) error {
	r.mu.Lock()
	ch := r.Channel
	r.mu.Unlock()

	if err := ch.Cancel(consumerTag, false); err != nil && !errors.Is(err, amqp.ErrClosed) {
		return fmt.Errorf("failed to cancel consumer %s: %w", consumerTag, err)
	}
	return nil
}

// openChannel returns the current channel, reopening it (and redialing the
// connection when that died too) after the broker closed it.
func (r *RabbitMQ) openChannel() (*amqp.Channel, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.Channel != nil && !r.Channel.IsClosed() {
		return r.Channel, nil
	}

	if r.conn == nil || r.conn.IsClosed() {
		conn, err := dial(r.uri, r.tlsConfig)
		if err != nil {
			return nil, err
		}
		r.conn = conn
	}

	ch, err := r.conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("failed to reopen channel: %w", err)
	}
	r.Channel = ch

	return ch, nil
}
