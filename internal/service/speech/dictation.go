package speech

import (
	"context"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/zhouzirui/zai-studio/backend/pkg/logger"
)

// Dictation merges recognized speech into a pending input line. A nil
// recognizer leaves dictation unavailable; Toggle then returns ErrUnavailable
// and changes nothing.
type Dictation struct {
	recognizer Recognizer
	logger     *zap.Logger

	mu        sync.Mutex
	listening bool
	input     string
	lastErr   error
	onChange  func(input string)
}

// NewDictation wraps recognizer, which may be nil.
func NewDictation(recognizer Recognizer, log *zap.Logger) *Dictation {
	return &Dictation{recognizer: recognizer, logger: logger.OrNop(log).Named("speech")}
}

// Available reports whether a recognizer is configured.
func (d *Dictation) Available() bool { return d != nil && d.recognizer != nil }

// Listening reports whether the recognizer is running.
func (d *Dictation) Listening() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.listening
}

// Input returns the pending input line.
func (d *Dictation) Input() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.input
}

// SetInput replaces the pending input line, e.g. after the user edits it.
func (d *Dictation) SetInput(s string) {
	d.mu.Lock()
	d.input = s
	d.mu.Unlock()
}

// Take returns the pending input and clears it.
func (d *Dictation) Take() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	s := d.input
	d.input = ""
	return s
}

// Err returns the last recognition error.
func (d *Dictation) Err() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lastErr
}

// OnChange registers a callback fired after each merged result.
func (d *Dictation) OnChange(fn func(input string)) {
	d.mu.Lock()
	d.onChange = fn
	d.mu.Unlock()
}

// Toggle starts listening when idle and stops it when listening.
func (d *Dictation) Toggle(ctx context.Context) error {
	if !d.Available() {
		return ErrUnavailable
	}

	d.mu.Lock()
	if d.listening {
		d.mu.Unlock()
		return d.recognizer.Stop()
	}
	d.listening = true
	d.lastErr = nil
	d.mu.Unlock()

	err := d.recognizer.Start(ctx, Callbacks{
		OnResult: d.merge,
		OnEnd:    d.ended,
		OnError:  d.failed,
	})
	if err != nil {
		d.mu.Lock()
		d.listening = false
		d.lastErr = err
		d.mu.Unlock()
		d.logger.Warn("recognizer start failed", zap.Error(err))
		return err
	}
	return nil
}

func (d *Dictation) merge(text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}

	d.mu.Lock()
	if d.input == "" {
		d.input = text
	} else {
		d.input = d.input + " " + text
	}
	input, fn := d.input, d.onChange
	d.mu.Unlock()

	if fn != nil {
		fn(input)
	}
}

func (d *Dictation) ended() {
	d.mu.Lock()
	d.listening = false
	d.mu.Unlock()
}

func (d *Dictation) failed(err error) {
	d.logger.Warn("recognition error", zap.Error(err))
	d.mu.Lock()
	d.lastErr = err
	d.listening = false
	d.mu.Unlock()
}
