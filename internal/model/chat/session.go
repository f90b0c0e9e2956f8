package chat

import "time"

// SessionInfo describes a chat session to the frontend.
type SessionInfo struct {
	ID         string    `json:"id"`
	PersonaID  string    `json:"personaId"`
	CreatedAt  time.Time `json:"createdAt"`
	Transcript []Turn    `json:"transcript"`
}
