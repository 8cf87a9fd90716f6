package router

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/singsphere/jukebox/internal/domain"
	"github.com/singsphere/jukebox/internal/infrastructure/logging"
	"github.com/singsphere/jukebox/internal/infrastructure/messaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

type fakeRooms struct {
	rooms []domain.Room
	err   error
	calls int
}

func (f *fakeRooms) ListRooms(ctx context.Context) ([]domain.Room, error) {
	f.calls++
	return f.rooms, f.err
}

type fakeSongs struct {
	songs []string
	err   error
	calls int
}

func (f *fakeSongs) ListSongs(ctx context.Context) ([]string, error) {
	f.calls++
	return f.songs, f.err
}

type fakeSession struct {
	declared   []string
	published  []domain.RoutedMessage
	publishErr error
	declareErr error
	closed     int
}

func (s *fakeSession) DeclareExchange(name, kind string) error {
	s.declared = append(s.declared, name+":"+kind)
	return s.declareErr
}

func (s *fakeSession) Publish(ctx context.Context, msg domain.RoutedMessage) error {
	if s.publishErr != nil {
		return s.publishErr
	}
	s.published = append(s.published, msg)
	return nil
}

func (s *fakeSession) Close() {
	s.closed++
}

type fakeDialer struct {
	session *fakeSession
	err     error
	calls   int
}

func (d *fakeDialer) Dial(ctx context.Context) (messaging.Session, error) {
	d.calls++
	if d.err != nil {
		return nil, d.err
	}
	return d.session, nil
}

type fakeAudit struct {
	domain.PlayAuditRepository
	logs []*domain.PlayAuditLog
	err  error
}

func (a *fakeAudit) Log(ctx context.Context, log *domain.PlayAuditLog) error {
	a.logs = append(a.logs, log)
	return a.err
}

type fixture struct {
	rooms  *fakeRooms
	songs  *fakeSongs
	dialer *fakeDialer
	audit  *fakeAudit
	router *Router
}

func newFixture() *fixture {
	f := &fixture{
		rooms:  &fakeRooms{rooms: []domain.Room{{Name: "roomA", Online: 2}, {Name: "roomB"}}},
		songs:  &fakeSongs{songs: []string{"track1.mp3", "Track2.wav"}},
		dialer: &fakeDialer{session: &fakeSession{}},
		audit:  &fakeAudit{},
	}
	f.router = New(f.rooms, f.songs, f.dialer, "songs_exchange", logging.NewNopLogger(), WithAuditLog(f.audit))
	return f
}

func TestRoutePublishesOnce(t *testing.T) {
	f := newFixture()

	routing, err := f.router.Route(context.Background(), " track1.mp3 ", "roomA")
	require.NoError(t, err)

	assert.Equal(t, "roomA", routing.Room)
	assert.Equal(t, "track1.mp3", routing.Song)
	assert.Equal(t, "Song 'track1.mp3' successfully published to room 'roomA'.", routing.Message)

	session := f.dialer.session
	require.Len(t, session.published, 1)
	msg := session.published[0]
	assert.Equal(t, "songs_exchange", msg.Exchange)
	assert.Equal(t, "roomA", msg.RoutingKey)
	assert.Equal(t, []byte("track1.mp3"), msg.Body)
	assert.True(t, msg.Persistent)
	assert.Equal(t, []string{"songs_exchange:direct"}, session.declared)
	assert.Equal(t, 1, session.closed)

	require.Len(t, f.audit.logs, 1)
	assert.Equal(t, domain.EventPlayPublished, f.audit.logs[0].EventType)
}

func TestRouteValidationOrder(t *testing.T) {
	tests := []struct {
		name      string
		rooms     []domain.Room
		songs     []string
		song      string
		room      string
		want      error
		songsRead bool
	}{
		{name: "no rooms", rooms: []domain.Room{}, songs: []string{"a.mp3"}, song: "", room: "", want: domain.ErrNoRoomsAvailable},
		{name: "empty room", rooms: []domain.Room{{Name: "roomA"}}, songs: []string{}, song: "", room: "  ", want: domain.ErrEmptyRoom},
		{name: "unknown room", rooms: []domain.Room{{Name: "roomA"}}, songs: []string{}, song: "", room: "roomZ", want: domain.ErrRoomNotFound},
		{name: "room match is case sensitive", rooms: []domain.Room{{Name: "roomA"}}, songs: []string{"a.mp3"}, song: "a.mp3", room: "rooma", want: domain.ErrRoomNotFound},
		{name: "no songs", rooms: []domain.Room{{Name: "roomA"}}, songs: []string{}, song: "", room: "roomA", want: domain.ErrNoSongsAvailable, songsRead: true},
		{name: "empty song", rooms: []domain.Room{{Name: "roomA"}}, songs: []string{"a.mp3"}, song: "", room: "roomA", want: domain.ErrEmptySong, songsRead: true},
		{name: "unknown song", rooms: []domain.Room{{Name: "roomA"}}, songs: []string{"a.mp3"}, song: "b.mp3", room: "roomA", want: domain.ErrSongNotFound, songsRead: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			f.rooms.rooms = tt.rooms
			f.songs.songs = tt.songs

			_, err := f.router.Route(context.Background(), tt.song, tt.room)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)

			assert.Equal(t, 0, f.dialer.calls, "broker must not be touched on rejection")
			if tt.songsRead {
				assert.Equal(t, 1, f.songs.calls)
			} else {
				assert.Equal(t, 0, f.songs.calls, "song catalog read before room checks passed")
			}

			require.Len(t, f.audit.logs, 1)
			assert.Equal(t, domain.EventPlayRejected, f.audit.logs[0].EventType)
		})
	}
}

func TestRouteReadsCatalogsEveryCall(t *testing.T) {
	f := newFixture()

	_, err := f.router.Route(context.Background(), "track1.mp3", "roomA")
	require.NoError(t, err)

	f.rooms.rooms = []domain.Room{{Name: "roomB"}}
	_, err = f.router.Route(context.Background(), "track1.mp3", "roomA")
	assert.ErrorIs(t, err, domain.ErrRoomNotFound)

	assert.Equal(t, 2, f.rooms.calls)
}

func TestRouteCatalogFailure(t *testing.T) {
	f := newFixture()
	f.songs.err = errors.Join(domain.ErrCatalogUnavailable, errors.New("s3 down"))

	_, err := f.router.Route(context.Background(), "track1.mp3", "roomA")
	require.ErrorIs(t, err, domain.ErrCatalogUnavailable)
	assert.Equal(t, domain.KindInfrastructure, domain.KindOf(err))
	assert.Equal(t, 0, f.dialer.calls)
	assert.Equal(t, domain.EventPlayFailed, f.audit.logs[0].EventType)
}

func TestRouteClosesSessionWhenPublishFails(t *testing.T) {
	f := newFixture()
	f.dialer.session.publishErr = errors.New("channel closed")

	_, err := f.router.Route(context.Background(), "track1.mp3", "roomA")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrRoutingInfrastructure)
	assert.Equal(t, domain.KindInfrastructure, domain.KindOf(err))
	assert.Equal(t, 1, f.dialer.session.closed)
	assert.Empty(t, f.dialer.session.published)
	assert.Equal(t, 1, f.dialer.calls, "publish is not retried")
}

func TestRouteClosesSessionWhenDeclareFails(t *testing.T) {
	f := newFixture()
	f.dialer.session.declareErr = errors.New("access refused")

	_, err := f.router.Route(context.Background(), "track1.mp3", "roomA")
	assert.ErrorIs(t, err, domain.ErrRoutingInfrastructure)
	assert.Equal(t, 1, f.dialer.session.closed)
	assert.Empty(t, f.dialer.session.published)
}

func TestRouteDialFailure(t *testing.T) {
	f := newFixture()
	f.dialer.err = errors.New("connection refused")

	_, err := f.router.Route(context.Background(), "track1.mp3", "roomA")
	assert.ErrorIs(t, err, domain.ErrRoutingInfrastructure)
	assert.Equal(t, 0, f.dialer.session.closed)
}

func TestRouteAuditFailureDoesNotFailRequest(t *testing.T) {
	f := newFixture()
	f.audit.err = errors.New("mongo unavailable")

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_, err := f.router.Route(ctx, "track1.mp3", "roomA")
	assert.NoError(t, err)
}

func TestRouteWithoutAuditLog(t *testing.T) {
	f := newFixture()
	r := New(f.rooms, f.songs, f.dialer, "songs_exchange", logging.NewNopLogger())

	_, err := r.Route(context.Background(), "Track2.wav", "roomB")
	require.NoError(t, err)
	assert.Len(t, f.dialer.session.published, 1)
	assert.Empty(t, f.audit.logs)
}

func TestRouteRecordsSpan(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder)))
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	f := newFixture()
	_, err := f.router.Route(context.Background(), "track1.mp3", "roomA")
	require.NoError(t, err)
	_, err = f.router.Route(context.Background(), "track1.mp3", "roomZ")
	require.Error(t, err)

	spans := recorder.Ended()
	require.Len(t, spans, 2)
	assert.Equal(t, "Router.Route", spans[0].Name())
	assert.Contains(t, spans[0].Attributes(), attribute.String("jukebox.room", "roomA"))
	assert.Equal(t, codes.Unset, spans[0].Status().Code)
	assert.Equal(t, codes.Error, spans[1].Status().Code)
}
