package conversation

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingCredential means the completion provider has no API key configured.
	ErrMissingCredential = errors.New("conversation: completion credential missing")
	// ErrInvalidMessages is returned when the request carries no usable user message.
	ErrInvalidMessages = errors.New("conversation: invalid messages")
	// ErrUnknownPersona is returned for a persona id that is not registered.
	ErrUnknownPersona = errors.New("conversation: unknown persona")
)

// UpstreamError is a failed completion call. Message is the provider's own text.
type UpstreamError struct {
	Provider   string
	StatusCode int
	Message    string
}

func (e *UpstreamError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("conversation: %s status %d: %s", e.Provider, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("conversation: %s: %s", e.Provider, e.Message)
}

// userFacingCause extracts the text shown to end users after "Fehler: ".
func userFacingCause(err error) string {
	var up *UpstreamError
	if errors.As(err, &up) {
		return up.Message
	}
	return err.Error()
}
