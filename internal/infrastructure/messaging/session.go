package messaging

import (
	"context"
	"crypto/tls"

	"github.com/singsphere/jukebox/internal/domain"
)

// Session is a broker connection scoped to a single unit of work.
type Session interface {
	DeclareExchange(name, kind string) error
	Publish(ctx context.Context, msg domain.RoutedMessage) error
	Close()
}

type Dialer interface {
	Dial(ctx context.Context) (Session, error)
}

// WithSession dials a session, runs fn, and closes the session on every
// exit path including fn errors and panics.
func WithSession(ctx context.Context, d Dialer, fn func(Session) error) error {
	s, err := d.Dial(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	return fn(s)
}

type RabbitMQDialer struct {
	URI       string
	TLSConfig *tls.Config
}

func NewRabbitMQDialer(uri string, insecureSkipVerify bool) *RabbitMQDialer {
	return &RabbitMQDialer{
		URI: uri,
		// #nosec G402 -- managed brokers behind private endpoints present self-signed certs
		TLSConfig: &tls.Config{InsecureSkipVerify: insecureSkipVerify},
	}
}

func (d *RabbitMQDialer) Dial(ctx context.Context) (Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return NewRabbitMQ(d.URI, d.TLSConfig)
}
