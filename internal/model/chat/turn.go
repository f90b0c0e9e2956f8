package chat

// Role identifies who authored a turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one entry of a transcript.
type Turn struct {
	Role Role   `json:"role"`
	Text string `json:"text"`
	// Synthetic marks greeting and failure turns that are shown to the user
	// but never replayed to the provider as history.
	Synthetic bool `json:"synthetic,omitempty"`
}

// Event reports that the turn at Index was appended or updated.
type Event struct {
	SessionID string `json:"sessionId"`
	Index     int    `json:"index"`
	Turn      Turn   `json:"turn"`
}
