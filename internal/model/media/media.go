package media

// Kind selects the generated media type.
type Kind string

const (
	KindImage Kind = "image"
	KindVideo Kind = "video"
)

// Valid reports whether k is a supported kind.
func (k Kind) Valid() bool {
	return k == KindImage || k == KindVideo
}

// Request is a user submission. It is not modified once issued.
type Request struct {
	Prompt string `json:"prompt"`
	Kind   Kind   `json:"kind"`
}

// Status is the state of a Result.
type Status string

const (
	StatusPending Status = "pending"
	StatusReady   Status = "ready"
	StatusFailed  Status = "failed"
)

// Result is the outcome of one generation request.
type Result struct {
	Status  Status `json:"status"`
	Message string `json:"message,omitempty"`
	Locator string `json:"locator,omitempty"`
}

// Pending builds a Pending result carrying a progress message.
func Pending(message string) Result {
	return Result{Status: StatusPending, Message: message}
}

// Ready builds a Ready result pointing at stored content.
func Ready(locator string) Result {
	return Result{Status: StatusReady, Locator: locator}
}

// Failed builds a Failed result with a user-visible message.
func Failed(message string) Result {
	return Result{Status: StatusFailed, Message: message}
}
