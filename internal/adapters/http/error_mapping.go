package httpadapter

import (
	"net/http"

	"github.com/okolin/scribe/internal/core/domain"
)

func mapErrorToHTTPStatus(err error) int {
	switch {
	case domain.IsKind(err, domain.ErrInvalidInput), domain.IsKind(err, domain.ErrNoTopic):
		return http.StatusBadRequest
	case domain.IsKind(err, domain.ErrArtifactNotFound),
		domain.IsKind(err, domain.ErrRunNotFound),
		domain.IsKind(err, domain.ErrNoPriorArtifact):
		return http.StatusNotFound
	case domain.IsKind(err, domain.ErrTemporary):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
