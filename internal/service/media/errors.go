package media

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"unicode/utf8"
)

// ErrorKind classifies a failed generation.
type ErrorKind string

const (
	KindMissingCredential  ErrorKind = "missing_credential"
	KindUnauthorized       ErrorKind = "unauthorized"
	KindServiceUnavailable ErrorKind = "service_unavailable"
	KindProviderError      ErrorKind = "provider_error"
	KindInvalidInput       ErrorKind = "invalid_input"
	KindCanceled           ErrorKind = "canceled"
)

// maxBodyLength bounds the provider response body kept on a ProviderError.
const maxBodyLength = 512

const (
	msgEmptyPrompt       = "Please enter a prompt."
	msgMissingToken      = "HUGGINGFACE_TOKEN is not set."
	msgUnauthorized      = "Unauthorized: Invalid Hugging Face Token."
	msgVideoUnavailable  = "Free video generation service is currently unavailable or overloaded. Please try again later."
	msgStubUnavailable   = "Video generation is not available yet. Please try again later."
	msgCanceled          = "Generation was canceled."
	msgStoreFailed       = "Failed to store generated media."
	msgProviderTransport = "Failed to reach the inference provider."
)

var (
	ErrPipelineBusy      = errors.New("a generation request is already in flight")
	ErrWorkspaceNotFound = errors.New("workspace not found")
)

// Error is the terminal failure of a generation request. Message is safe to
// show to the user.
type Error struct {
	Kind    ErrorKind
	Message string
	// Status and Body are set for provider HTTP failures. Status is 0 when
	// the request never produced a response.
	Status int
	Body   string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("media %s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("media %s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// AsError extracts *Error from err.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// IsKind reports whether err is a *Error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	e, ok := AsError(err)
	return ok && e.Kind == kind
}

func invalidInput(message string) *Error {
	return &Error{Kind: KindInvalidInput, Message: message}
}

// classify maps an inference failure to the error taxonomy.
func classify(err error, video bool) *Error {
	if e, ok := AsError(err); ok {
		return e
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return &Error{Kind: KindCanceled, Message: msgCanceled, Err: err}
	}

	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		return &Error{Kind: KindProviderError, Message: msgProviderTransport, Err: err}
	}

	switch {
	case statusErr.StatusCode == http.StatusUnauthorized:
		return &Error{Kind: KindUnauthorized, Message: msgUnauthorized, Status: statusErr.StatusCode, Err: err}
	case video && (statusErr.StatusCode == http.StatusNotFound || statusErr.StatusCode == http.StatusServiceUnavailable):
		return &Error{Kind: KindServiceUnavailable, Message: msgVideoUnavailable, Status: statusErr.StatusCode, Err: err}
	}

	body := truncate(statusErr.Body, maxBodyLength)
	message := fmt.Sprintf("Hugging Face API returned status %d: %s", statusErr.StatusCode, body)
	if video {
		message = fmt.Sprintf("Video generation failed: %d %s", statusErr.StatusCode, http.StatusText(statusErr.StatusCode))
	}
	return &Error{
		Kind:    KindProviderError,
		Message: message,
		Status:  statusErr.StatusCode,
		Body:    body,
		Err:     err,
	}
}

// truncate cuts s to at most n bytes without splitting a UTF-8 sequence.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
