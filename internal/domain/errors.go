package domain

import "errors"

var (
	ErrMissingPhotos        = errors.New("missing photos")
	ErrGenerationFailed     = errors.New("generation failed")
	ErrGenerationInProgress = errors.New("generation in progress")
	ErrInvalidState         = errors.New("action not available in current state")
	ErrUnsupportedImage     = errors.New("unsupported image type")
	ErrEmptyPhoto           = errors.New("empty photo")
	ErrSessionNotFound      = errors.New("session not found")
	ErrSessionLimit         = errors.New("session limit reached")
	ErrInvalidSlot          = errors.New("invalid photo slot")
)

// User-facing messages. These are rendered verbatim.
const (
	MessageMissingPhotos    = "Please upload both photos before generating."
	MessageGenerationFailed = "Failed to generate the image. The model may be unavailable or the request may have been blocked."
	MessageUnknownError     = "An unknown error occurred. Please try again."
)

// GenerationError collapses every provider failure into one fixed message.
// The cause stays reachable through errors.Unwrap for logging.
type GenerationError struct {
	Cause error
}

// NewGenerationError wraps cause.
func NewGenerationError(cause error) *GenerationError {
	return &GenerationError{Cause: cause}
}

func (e *GenerationError) Error() string {
	return MessageGenerationFailed
}

func (e *GenerationError) Unwrap() error {
	return e.Cause
}

// Is reports true for ErrGenerationFailed.
func (e *GenerationError) Is(target error) bool {
	return target == ErrGenerationFailed
}

// UserMessage picks the text shown for err: its own message when it has one,
// otherwise the generic fallback.
func UserMessage(err error) string {
	if err == nil {
		return MessageUnknownError
	}
	if msg := err.Error(); msg != "" {
		return msg
	}
	return MessageUnknownError
}
