package domain

import "time"

// Role values for conversation messages.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// Message is a single turn in a conversation. Assistant messages may carry
// tool-call requests; tool messages answer exactly one of those requests and
// reference it by ToolCallID.
type Message struct {
	Role       string     `json:"role"`
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"toolCalls,omitempty"`
	ToolCallID string     `json:"toolCallId,omitempty"`
	Timestamp  time.Time  `json:"timestamp"`
}

// ToolCall is an LLM-emitted request to invoke a named tool.
type ToolCall struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Input string `json:"input"` // JSON argument payload
}

// TrimMessages bounds history to at most max messages, dropping the oldest
// first. A trimmed history must never open with a tool result whose
// originating call was dropped, so leading tool messages are skipped too.
// max <= 0 means unbounded.
func TrimMessages(msgs []Message, max int) []Message {
	if max <= 0 || len(msgs) <= max {
		return msgs
	}
	msgs = msgs[len(msgs)-max:]
	for len(msgs) > 0 && msgs[0].Role == RoleTool {
		msgs = msgs[1:]
	}
	return msgs
}
