package common

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jo-hoe/visionassist/internal/backend/database"
	"github.com/jo-hoe/visionassist/internal/core"
	"github.com/jo-hoe/visionassist/internal/export"
)

func TestStatusCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "nil", err: nil, want: http.StatusOK},
		{name: "unknown assistant", err: fmt.Errorf("%w: x", core.ErrUnknownAssistant), want: http.StatusNotFound},
		{name: "missing key", err: core.ErrMissingAPIKey, want: http.StatusServiceUnavailable},
		{name: "no image", err: core.ErrNoImage, want: http.StatusBadRequest},
		{name: "empty idea", err: core.ErrEmptyInput, want: http.StatusBadRequest},
		{name: "bad format", err: export.ErrUnsupportedFormat, want: http.StatusBadRequest},
		{name: "bad image", err: core.ErrInvalidImage, want: http.StatusUnprocessableEntity},
		{name: "index", err: database.ErrIndexOutOfRange, want: http.StatusNotFound},
		{name: "empty history", err: export.ErrEmptyHistory, want: http.StatusNotFound},
		{name: "generation", err: &core.GenerationError{Err: context.DeadlineExceeded}, want: http.StatusBadGateway},
		{name: "other", err: errors.New("boom"), want: http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StatusCode(tt.err); got != tt.want {
				t.Errorf("StatusCode() = %d, want %d", got, tt.want)
			}
		})
	}
}
