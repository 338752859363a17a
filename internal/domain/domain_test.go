package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRoleConstants(t *testing.T) {
	assert.Equal(t, "user", RoleUser)
	assert.Equal(t, "assistant", RoleAssistant)
	assert.Equal(t, "tool", RoleTool)
}

func TestTrimMessagesUnbounded(t *testing.T) {
	msgs := []Message{
		{Role: RoleUser, Content: "a"},
		{Role: RoleAssistant, Content: "b"},
	}
	assert.Equal(t, msgs, TrimMessages(msgs, 0))
	assert.Equal(t, msgs, TrimMessages(msgs, -1))
}

func TestTrimMessagesUnderLimit(t *testing.T) {
	msgs := []Message{
		{Role: RoleUser, Content: "a"},
		{Role: RoleAssistant, Content: "b"},
	}
	assert.Equal(t, msgs, TrimMessages(msgs, 10))
	assert.Equal(t, msgs, TrimMessages(msgs, 2))
}

func TestTrimMessagesDropsOldest(t *testing.T) {
	msgs := []Message{
		{Role: RoleUser, Content: "first"},
		{Role: RoleAssistant, Content: "second"},
		{Role: RoleUser, Content: "third"},
		{Role: RoleAssistant, Content: "fourth"},
	}

	trimmed := TrimMessages(msgs, 2)
	assert.Len(t, trimmed, 2)
	assert.Equal(t, "third", trimmed[0].Content)
	assert.Equal(t, "fourth", trimmed[1].Content)
}

func TestTrimMessagesNeverStartsWithToolResult(t *testing.T) {
	msgs := []Message{
		{Role: RoleUser, Content: "question"},
		{Role: RoleAssistant, ToolCalls: []ToolCall{{ID: "c1", Name: "list_owners", Input: "{}"}}},
		{Role: RoleTool, ToolCallID: "c1", Content: `{"owners":[]}`},
		{Role: RoleAssistant, Content: "no owners found"},
	}

	// Cutting at 2 would leave the tool result in front with its call dropped.
	trimmed := TrimMessages(msgs, 2)
	assert.Len(t, trimmed, 1)
	assert.Equal(t, RoleAssistant, trimmed[0].Role)
	assert.Equal(t, "no owners found", trimmed[0].Content)
}

func TestTrimMessagesAllToolResults(t *testing.T) {
	msgs := []Message{
		{Role: RoleAssistant, ToolCalls: []ToolCall{{ID: "c1"}, {ID: "c2"}}},
		{Role: RoleTool, ToolCallID: "c1", Content: "{}"},
		{Role: RoleTool, ToolCallID: "c2", Content: "{}"},
	}

	trimmed := TrimMessages(msgs, 2)
	assert.Empty(t, trimmed)
}
