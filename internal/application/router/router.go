package router

import (
	"context"
	"fmt"

	"github.com/singsphere/jukebox/internal/domain"
	"github.com/singsphere/jukebox/internal/infrastructure/logging"
	"github.com/singsphere/jukebox/internal/infrastructure/messaging"
	"github.com/singsphere/jukebox/internal/infrastructure/metrics"
	"github.com/singsphere/jukebox/internal/infrastructure/tracing"
	"go.opentelemetry.io/otel/attribute"
)

const tracerName = "github.com/singsphere/jukebox/internal/application/router"

// Routing is the outcome of an accepted play request.
type Routing struct {
	Song    string `json:"song"`
	Room    string `json:"room"`
	Message string `json:"message"`
}

// Router validates play requests against the live room and song catalogs
// and publishes accepted ones to the room's routing key.
type Router struct {
	rooms    domain.RoomDirectory
	songs    domain.SongCatalog
	dialer   messaging.Dialer
	exchange string
	audit    domain.PlayAuditRepository
	logger   logging.Logger
}

type Option func(*Router)

// WithAuditLog records every routing decision. Recording failures are
// logged and never fail the request.
func WithAuditLog(repo domain.PlayAuditRepository) Option {
	return func(r *Router) {
		r.audit = repo
	}
}

func New(rooms domain.RoomDirectory, songs domain.SongCatalog, dialer messaging.Dialer, exchange string, logger logging.Logger, opts ...Option) *Router {
	r := &Router{
		rooms:    rooms,
		songs:    songs,
		dialer:   dialer,
		exchange: exchange,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Router) Route(ctx context.Context, song, room string) (Routing, error) {
	req := domain.NewPlayRequest(song, room)

	ctx, span := tracing.StartSpan(ctx, tracerName, "Router.Route",
		attribute.String("jukebox.room", req.Room),
		attribute.String("jukebox.song", req.Song),
	)

	err := r.validate(ctx, req)
	if err == nil {
		err = r.publish(ctx, req)
	}

	metrics.PlaysTotal.WithLabelValues(metrics.Outcome(err, isRejection)).Inc()
	r.record(ctx, req, err)
	tracing.EndSpan(span, err)

	if err != nil {
		return Routing{}, err
	}

	r.logger.Info(logging.AMQP, logging.Routing, "song routed", map[logging.ExtraKey]any{
		logging.Room: req.Room,
		logging.Song: req.Song,
	})

	return Routing{
		Song:    req.Song,
		Room:    req.Room,
		Message: fmt.Sprintf("Song '%s' successfully published to room '%s'.", req.Song, req.Room),
	}, nil
}

// validate runs the checks in a fixed order and stops at the first failure.
// The song catalog is only read once the room checks have passed.
func (r *Router) validate(ctx context.Context, req domain.PlayRequest) error {
	rooms, err := r.rooms.ListRooms(ctx)
	if err != nil {
		return err
	}
	if len(rooms) == 0 {
		return domain.ErrNoRoomsAvailable
	}
	if req.Room == "" {
		return domain.ErrEmptyRoom
	}
	if !domain.ContainsRoom(rooms, req.Room) {
		return fmt.Errorf("%w: %s", domain.ErrRoomNotFound, req.Room)
	}

	songs, err := r.songs.ListSongs(ctx)
	if err != nil {
		return err
	}
	if len(songs) == 0 {
		return domain.ErrNoSongsAvailable
	}
	if req.Song == "" {
		return domain.ErrEmptySong
	}
	if !domain.ContainsSong(songs, req.Song) {
		return fmt.Errorf("%w: %s", domain.ErrSongNotFound, req.Song)
	}

	return nil
}

func (r *Router) publish(ctx context.Context, req domain.PlayRequest) error {
	msg := domain.NewRoutedMessage(r.exchange, req)

	err := messaging.WithSession(ctx, r.dialer, func(s messaging.Session) error {
		if err := s.DeclareExchange(r.exchange, messaging.ExchangeKindDirect); err != nil {
			return fmt.Errorf("declare exchange %s: %w", r.exchange, err)
		}
		return s.Publish(ctx, msg)
	})
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrRoutingInfrastructure, err)
	}

	return nil
}

func (r *Router) record(ctx context.Context, req domain.PlayRequest, err error) {
	if r.audit == nil {
		return
	}

	var entry *domain.PlayAuditLog
	switch {
	case err == nil:
		entry = domain.NewPlayPublishedLog(req, r.exchange)
	case isRejection(err):
		entry = domain.NewPlayRejectedLog(req, err)
	default:
		entry = domain.NewPlayFailedLog(req, err)
	}

	if logErr := r.audit.Log(context.WithoutCancel(ctx), entry); logErr != nil {
		r.logger.Warn(logging.MongoDB, logging.Audit, "failed to record play audit log", map[logging.ExtraKey]any{
			logging.Room:         req.Room,
			logging.Song:         req.Song,
			logging.ErrorMessage: logErr.Error(),
		})
	}
}

func isRejection(err error) bool {
	return domain.KindOf(err) != domain.KindInfrastructure
}
