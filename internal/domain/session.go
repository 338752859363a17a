package domain

import "time"

// DefaultSessionID is the session used by callers that do not identify
// themselves. All such callers share one conversation, matching the
// process-wide chat memory of the original service.
const DefaultSessionID = "default"

// Session tracks one logical conversation with the assistant.
type Session struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	Messages  []Message `json:"messages,omitempty"`
}
