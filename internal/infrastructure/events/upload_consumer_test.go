package events

import (
	"context"
	"errors"
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/singsphere/jukebox/internal/domain"
	"github.com/singsphere/jukebox/internal/infrastructure/configs"
	"github.com/singsphere/jukebox/internal/infrastructure/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const twoRecords = `{"Records":[
	{"s3":{"bucket":{"name":"final-music"},"object":{"key":"a.mp3"}}},
	{"s3":{"bucket":{"name":"final-music"},"object":{"key":"b%20side.mp3"}}}
]}`

func newConsumer(index IndexFunc) *UploadConsumer {
	return NewUploadConsumer(nil, configs.RabbitMQConfig{UploadQueue: "song_uploads"}, index, logging.NewNopLogger())
}

func TestHandleIndexesEveryRecord(t *testing.T) {
	var seen []domain.UploadNotification
	c := newConsumer(func(ctx context.Context, n domain.UploadNotification) error {
		seen = append(seen, n)
		return nil
	})

	require.NoError(t, c.Handle(context.Background(), amqp.Delivery{Body: []byte(twoRecords)}))
	assert.Equal(t, []domain.UploadNotification{
		{Bucket: "final-music", Key: "a.mp3"},
		{Bucket: "final-music", Key: "b side.mp3"},
	}, seen)
}

func TestHandleStopsAtFirstFailure(t *testing.T) {
	calls := 0
	c := newConsumer(func(ctx context.Context, n domain.UploadNotification) error {
		calls++
		return domain.ErrObjectNotFound
	})

	err := c.Handle(context.Background(), amqp.Delivery{Body: []byte(twoRecords)})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrObjectNotFound))
	assert.Equal(t, 1, calls)
}

func TestHandleIgnoresTestEvents(t *testing.T) {
	c := newConsumer(func(ctx context.Context, n domain.UploadNotification) error {
		t.Fatal("index must not be called")
		return nil
	})

	assert.NoError(t, c.Handle(context.Background(), amqp.Delivery{Body: []byte(`{"Event":"s3:TestEvent","Records":[]}`)}))
}

func TestHandleRejectsMalformedBody(t *testing.T) {
	c := newConsumer(func(ctx context.Context, n domain.UploadNotification) error { return nil })

	assert.Error(t, c.Handle(context.Background(), amqp.Delivery{Body: []byte(`{`)}))
}
