package songs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/singsphere/jukebox/internal/application/indexer"
	"github.com/singsphere/jukebox/internal/application/resolver"
	"github.com/singsphere/jukebox/internal/domain"
	"github.com/singsphere/jukebox/internal/infrastructure/contracts"
	"github.com/singsphere/jukebox/internal/infrastructure/json"
	"github.com/singsphere/jukebox/internal/infrastructure/logging"
)

const maxEventBytes = 1 << 20

type Resolver interface {
	Search(ctx context.Context, term string) ([]domain.SongResult, error)
}

type Indexer interface {
	OnUploads(ctx context.Context, notifications []domain.UploadNotification) ([]indexer.IndexResult, error)
}

type Handler struct {
	resolver Resolver
	indexer  Indexer
	logger   logging.Logger
}

func NewHandler(resolver Resolver, indexer Indexer, logger logging.Logger) *Handler {
	return &Handler{
		resolver: resolver,
		indexer:  indexer,
		logger:   logger,
	}
}

// SearchHandler serves GET /api/songs/search?song=<term>.
//
// @Summary Search songs
// @Description Exact file names match first, then labels. The term "all" lists the whole bucket.
// @Tags Songs
// @Produce json
// @Param song query string true "File name, label or all"
// @Success 200 {object} json.Envelope{results=[]domain.SongResult} "Playable songs"
// @Failure 400 {object} json.Envelope "Empty search term"
// @Failure 404 {object} json.Envelope "No songs matched"
// @Failure 500 {object} json.Envelope "Index or object store failure"
// @Router /api/songs/search [get]
func (h *Handler) SearchHandler(w http.ResponseWriter, r *http.Request) {
	raw := strings.TrimSpace(r.URL.Query().Get("song"))
	term := strings.ToLower(raw)
	wildcard := term == resolver.WildcardTerm

	results, err := h.resolver.Search(r.Context(), raw)
	if err != nil {
		json.WriteDomainError(w, err, searchErrorMessage(err, term, wildcard))
		return
	}

	message := fmt.Sprintf("Retrieved songs based on the search term '%s'.", term)
	if wildcard {
		message = "Retrieved all available songs."
	}
	json.WriteResult(w, http.StatusOK, message, results)
}

// IndexHandler serves POST /api/songs/index with a bucket notification body.
//
// @Summary Index uploaded songs
// @Tags Songs
// @Accept json
// @Produce json
// @Param event body object true "S3 bucket notification"
// @Success 200 {object} json.Envelope{results=[]indexer.IndexResult} "Indexed songs"
// @Failure 400 {object} json.Envelope "Invalid upload notification"
// @Failure 500 {object} json.Envelope "Indexing failure"
// @Router /api/songs/index [post]
func (h *Handler) IndexHandler(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxEventBytes))
	if err != nil {
		json.WriteBadRequestError(w, "Invalid upload notification.")
		return
	}

	notifications, err := contracts.ParseS3Event(body)
	if err != nil {
		json.WriteBadRequestError(w, "Invalid upload notification.")
		return
	}

	results, err := h.indexer.OnUploads(r.Context(), notifications)
	if err != nil {
		h.logger.Error(logging.SearchIndex, logging.Indexing, "failed to index upload notification", map[logging.ExtraKey]any{
			logging.Results:      len(results),
			logging.ErrorMessage: err.Error(),
		})
		json.WriteResult(w, http.StatusInternalServerError, "Failed to index song due to server error. Please contact development team.", nil)
		return
	}

	json.WriteResult(w, http.StatusOK, "Indexed song successfully.", results)
}

func searchErrorMessage(err error, term string, wildcard bool) string {
	switch {
	case errors.Is(err, domain.ErrEmptyQuery):
		return "Search term cannot be empty."
	case errors.Is(err, domain.ErrNoResults) && wildcard:
		return "No available songs, please contact the development team."
	case errors.Is(err, domain.ErrNoResults):
		return fmt.Sprintf("No songs found matching the search term '%s'. Please try a different search.", term)
	default:
		return json.InternalErrorMessage
	}
}
