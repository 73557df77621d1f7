package core

import (
	"errors"

	"github.com/jo-hoe/visionassist/internal/backend/credentials"
	"github.com/jo-hoe/visionassist/internal/backend/database"
	"github.com/jo-hoe/visionassist/internal/export"
)

// GenerationErrorMessage is the generic text shown when the model call fails
const GenerationErrorMessage = "Error while calling the generative API."

var (
	ErrUnknownAssistant = errors.New("unknown assistant")
	ErrWrongKind        = errors.New("operation not supported by this assistant")
	ErrMissingAPIKey    = credentials.ErrMissingAPIKey
	ErrNoImage          = errors.New("Please upload at least one image.")
	ErrEmptyInput       = errors.New("Please enter an idea to refine.")
	ErrInvalidOption    = errors.New("invalid option")
	ErrInvalidImage     = errors.New("image could not be processed")
)

// GenerationError wraps any failure of the generator call
type GenerationError struct {
	Err error
}

func (e *GenerationError) Error() string {
	return GenerationErrorMessage + " " + e.Err.Error()
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

// UserMessage returns the text shown to a user for err. Details of generation
// failures are only included when showDetails is set.
func UserMessage(err error, showDetails bool) string {
	var genErr *GenerationError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &genErr):
		if showDetails {
			return genErr.Error()
		}
		return GenerationErrorMessage
	case errors.Is(err, ErrMissingAPIKey),
		errors.Is(err, ErrNoImage),
		errors.Is(err, ErrEmptyInput),
		errors.Is(err, ErrUnknownAssistant),
		errors.Is(err, ErrWrongKind),
		errors.Is(err, ErrInvalidOption),
		errors.Is(err, ErrInvalidImage),
		errors.Is(err, database.ErrIndexOutOfRange),
		errors.Is(err, database.ErrMissingSession),
		errors.Is(err, export.ErrUnsupportedFormat):
		return err.Error()
	case errors.Is(err, export.ErrEmptyHistory):
		return export.ErrEmptyHistory.Error()
	default:
		return "Something went wrong. Please try again."
	}
}
