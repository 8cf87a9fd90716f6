package domain

import "errors"

var (
	ErrNoRoomsAvailable = errors.New("no rooms available")
	ErrEmptyRoom        = errors.New("room cannot be empty")
	ErrRoomNotFound     = errors.New("room not found")
	ErrNoSongsAvailable = errors.New("no songs available")
	ErrEmptySong        = errors.New("song cannot be empty")
	ErrSongNotFound     = errors.New("song not found")

	ErrEmptyQuery = errors.New("search term cannot be empty")
	ErrNoResults  = errors.New("no songs matched")

	ErrObjectNotFound     = errors.New("object not found")
	ErrIndexWrite         = errors.New("index write failed")
	ErrRecordNotFound     = errors.New("index record not found")
	ErrCatalogUnavailable = errors.New("catalog unavailable")

	ErrRoutingInfrastructure = errors.New("routing infrastructure error")
	ErrInvalidTransition     = errors.New("invalid song state transition")
	ErrInvalidAuditLog       = errors.New("audit log must name a room")
)

type Kind int

const (
	KindInfrastructure Kind = iota
	KindUserInput
	KindNotFound
	KindPrecondition
)

var kinds = []struct {
	err  error
	kind Kind
}{
	{ErrEmptyRoom, KindUserInput},
	{ErrEmptySong, KindUserInput},
	{ErrEmptyQuery, KindUserInput},
	{ErrRoomNotFound, KindNotFound},
	{ErrSongNotFound, KindNotFound},
	{ErrNoResults, KindNotFound},
	{ErrNoRoomsAvailable, KindPrecondition},
	{ErrNoSongsAvailable, KindPrecondition},
}

// KindOf classifies err. Anything not recognised is an infrastructure failure.
func KindOf(err error) Kind {
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return KindInfrastructure
}
