package ws

import (
	"errors"
	"strings"
	"sync"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/singsphere/jukebox/internal/infrastructure/contracts"
	"github.com/singsphere/jukebox/internal/infrastructure/logging"
	"github.com/singsphere/jukebox/internal/infrastructure/metrics"
)

var ErrListenerNotFound = errors.New("listener not found")

// Subscriber opens a broker feed of the songs routed to a room.
type Subscriber interface {
	SubscribeRoom(exchange, room, consumerTag string) (<-chan amqp.Delivery, error)
	Unsubscribe(consumerTag string) error
}

type roomFeed struct {
	consumerTag string
	listeners   map[string]*Listener
}

// Hub shares one broker subscription per room between all of its listeners.
// The subscription is opened with the first listener and cancelled with the last.
type Hub struct {
	subscriber Subscriber
	exchange   string
	logger     logging.Logger

	mu    sync.Mutex
	feeds map[string]*roomFeed
}

func NewHub(subscriber Subscriber, exchange string, logger logging.Logger) *Hub {
	return &Hub{
		subscriber: subscriber,
		exchange:   exchange,
		logger:     logger,
		feeds:      make(map[string]*roomFeed),
	}
}

func (h *Hub) Join(l *Listener) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	feed, ok := h.feeds[l.Room]
	if !ok {
		tag := "listener-" + uuid.NewString()
		deliveries, err := h.subscriber.SubscribeRoom(h.exchange, l.Room, tag)
		if err != nil {
			return err
		}

		feed = &roomFeed{consumerTag: tag, listeners: make(map[string]*Listener)}
		h.feeds[l.Room] = feed
		go h.pump(l.Room, feed, deliveries)

		h.logger.Info(logging.AMQP, logging.Listener, "room feed opened", map[logging.ExtraKey]any{
			logging.Room:  l.Room,
			"consumerTag": tag,
		})
	}

	feed.listeners[l.ID] = l
	metrics.ListenersConnected.Inc()
	return nil
}

func (h *Hub) Leave(l *Listener) error {
	h.mu.Lock()

	feed, ok := h.feeds[l.Room]
	if !ok {
		h.mu.Unlock()
		return ErrListenerNotFound
	}
	if _, ok := feed.listeners[l.ID]; !ok {
		h.mu.Unlock()
		return ErrListenerNotFound
	}

	delete(feed.listeners, l.ID)
	close(l.Send)
	metrics.ListenersConnected.Dec()

	if len(feed.listeners) > 0 {
		h.mu.Unlock()
		return nil
	}
	delete(h.feeds, l.Room)
	h.mu.Unlock()

	// Cancel outside the lock so the pump can drain into broadcast.
	h.logger.Info(logging.AMQP, logging.Listener, "room feed closed", map[logging.ExtraKey]any{
		logging.Room: l.Room,
	})
	return h.subscriber.Unsubscribe(feed.consumerTag)
}

// Listeners reports how many listeners follow room.
func (h *Hub) Listeners(room string) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	if feed, ok := h.feeds[room]; ok {
		return len(feed.listeners)
	}
	return 0
}

func (h *Hub) pump(room string, feed *roomFeed, deliveries <-chan amqp.Delivery) {
	for d := range deliveries {
		h.broadcast(room, contracts.ListenerEvent{
			Type: contracts.EventSongEnqueued,
			Room: room,
			Song: strings.Trim(string(d.Body), `"`),
		})
	}
	h.dropFeed(room, feed)
}

// dropFeed forgets a feed whose deliveries stopped while listeners still
// followed it and disconnects them, so the next Join opens a fresh
// subscription. Feeds already released by Leave are left alone.
func (h *Hub) dropFeed(room string, feed *roomFeed) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.feeds[room] != feed {
		return
	}
	delete(h.feeds, room)

	for id, l := range feed.listeners {
		delete(feed.listeners, id)
		close(l.Send)
		metrics.ListenersConnected.Dec()
	}

	h.logger.Warn(logging.AMQP, logging.Listener, "room feed closed by broker, listeners disconnected", map[logging.ExtraKey]any{
		logging.Room:  room,
		"consumerTag": feed.consumerTag,
	})
}

func (h *Hub) broadcast(room string, event contracts.ListenerEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()

	feed, ok := h.feeds[room]
	if !ok {
		return
	}

	for _, l := range feed.listeners {
		select {
		case l.Send <- event:
		default:
			h.logger.Warn(logging.AMQP, logging.Listener, "listener buffer full, dropping event", map[logging.ExtraKey]any{
				logging.Room: room,
				logging.Song: event.Song,
				"listener":   l.ID,
			})
		}
	}
}
