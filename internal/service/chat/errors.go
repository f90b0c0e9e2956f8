package chat

import (
	"errors"
	"fmt"
)

// FailureMessage is shown in place of a reply that could not be produced.
const FailureMessage = "Sorry, I encountered an error. Please try again."

var (
	ErrEmptyMessage    = errors.New("message is empty")
	ErrSessionBusy     = errors.New("session is busy with another message")
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionClosed   = errors.New("session is closed")
	ErrPersonaNotFound = errors.New("persona not found")
	errEmptyReply      = errors.New("provider returned an empty reply")
)

// StreamError reports that a reply failed before or during streaming.
// Partial holds the text that had already been received.
type StreamError struct {
	Partial string
	Err     error
}

func (e *StreamError) Error() string {
	if e.Partial == "" {
		return fmt.Sprintf("chat stream failed: %v", e.Err)
	}
	return fmt.Sprintf("chat stream failed after %d bytes: %v", len(e.Partial), e.Err)
}

func (e *StreamError) Unwrap() error { return e.Err }
