package json

import (
	"net/http"
	"strconv"

	"github.com/singsphere/jukebox/internal/domain"
)

const InternalErrorMessage = "Request failed due to server error. Please contact development team."

func StatusFor(kind domain.Kind) int {
	switch kind {
	case domain.KindUserInput, domain.KindPrecondition:
		return http.StatusBadRequest
	case domain.KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// WriteDomainError maps err to a status. Infrastructure failures never leak
// their text; msg is used for every other kind.
func WriteDomainError(w http.ResponseWriter, err error, msg string) int {
	status := StatusFor(domain.KindOf(err))
	if status == http.StatusInternalServerError {
		msg = InternalErrorMessage
	}
	WriteResult(w, status, msg, nil)
	return status
}

func WriteBadRequestError(w http.ResponseWriter, msg string) {
	WriteResult(w, http.StatusBadRequest, msg, nil)
}

func WriteInternalError(w http.ResponseWriter) {
	WriteResult(w, http.StatusInternalServerError, InternalErrorMessage, nil)
}

func WriteRateLimitError(w http.ResponseWriter, retryAfter int) {
	if retryAfter > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
	}
	WriteResult(w, http.StatusTooManyRequests, "Too many requests. Please try again later.", nil)
}
