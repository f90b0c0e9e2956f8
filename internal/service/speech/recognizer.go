package speech

import (
	"context"
	"errors"
)

// ErrUnavailable is returned by Dictation.Toggle when no recognizer is configured.
var ErrUnavailable = errors.New("speech recognition is not available")

// Callbacks receive recognizer output. Any of them may be nil.
type Callbacks struct {
	// OnResult receives a finished transcript segment.
	OnResult func(text string)
	// OnEnd fires once when listening stops, for any reason.
	OnEnd func()
	// OnError reports a recognition failure; OnEnd follows.
	OnError func(err error)
}

// Recognizer turns speech into text. Start begins listening and returns
// immediately; results arrive through the callbacks until Stop is called or
// the recognizer ends on its own.
type Recognizer interface {
	Start(ctx context.Context, cb Callbacks) error
	Stop() error
}
