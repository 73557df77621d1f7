package common

import (
	"errors"
	"net/http"

	"github.com/jo-hoe/visionassist/internal/backend/database"
	"github.com/jo-hoe/visionassist/internal/backend/generator"
	"github.com/jo-hoe/visionassist/internal/core"
	"github.com/jo-hoe/visionassist/internal/export"
)

// StatusCode maps core and backend errors to an HTTP status
func StatusCode(err error) int {
	var statusErr *generator.HTTPStatusError
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, core.ErrUnknownAssistant):
		return http.StatusNotFound
	case errors.Is(err, core.ErrMissingAPIKey):
		return http.StatusServiceUnavailable
	case errors.Is(err, core.ErrNoImage),
		errors.Is(err, core.ErrEmptyInput),
		errors.Is(err, core.ErrWrongKind),
		errors.Is(err, core.ErrInvalidOption),
		errors.Is(err, export.ErrUnsupportedFormat),
		errors.Is(err, database.ErrMissingSession):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrInvalidImage):
		return http.StatusUnprocessableEntity
	case errors.Is(err, database.ErrIndexOutOfRange), errors.Is(err, export.ErrEmptyHistory):
		return http.StatusNotFound
	case errors.As(err, &statusErr):
		return http.StatusBadGateway
	default:
		var genErr *core.GenerationError
		if errors.As(err, &genErr) {
			return http.StatusBadGateway
		}
		return http.StatusInternalServerError
	}
}
