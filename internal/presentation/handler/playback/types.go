package playback

import (
	"time"

	"github.com/singsphere/jukebox/internal/domain"
)

type playRequest struct {
	Song string `json:"song"`
	Room string `json:"room"`
}

const (
	defaultPlaysLimit = 20
	maxPlaysLimit     = 100

	defaultPlaysWindow = 24 * time.Hour
)

var playEventTypes = map[domain.PlayEventType]struct{}{
	domain.EventPlayPublished: {},
	domain.EventPlayRejected:  {},
	domain.EventPlayFailed:    {},
}
