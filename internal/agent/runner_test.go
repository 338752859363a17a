package agent

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/petclinic/genai-service/internal/domain"
	"github.com/petclinic/genai-service/internal/llm"
	"github.com/petclinic/genai-service/internal/logging"
)

type echoTool struct {
	calls []string
	fail  bool
}

func (t *echoTool) Name() string        { return "echo" }
func (t *echoTool) Description() string { return "Echoes the given text back." }
func (t *echoTool) InputSchema() string {
	return `{
		"type": "object",
		"properties": {"text": {"type": "string"}},
		"required": ["text"],
		"additionalProperties": false
	}`
}

func (t *echoTool) Execute(ctx context.Context, input string) (string, error) {
	t.calls = append(t.calls, input)
	if t.fail {
		return "", errors.New("echo backend down")
	}
	var args struct {
		Text string `json:"text"`
	}
	json.Unmarshal([]byte(input), &args)
	out, _ := json.Marshal(map[string]string{"echo": args.Text})
	return string(out), nil
}

func testLogger() *logging.Logger {
	return logging.New(io.Discard, "silent", "json")
}

func newTestRunner(t *testing.T, client llm.Client, tools ...Tool) (*Runner, SessionStore) {
	t.Helper()
	log := testLogger()
	registry := NewToolRegistry(log)
	for _, tool := range tools {
		require.NoError(t, registry.Register(tool))
	}
	sessions := NewMemorySessionStore(0)
	return NewRunner(RunnerConfig{}, client, sessions, registry, log), sessions
}

func TestChatPlainAnswer(t *testing.T) {
	client := &llm.MockClient{
		CompleteFunc: func(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
			assert.Contains(t, req.System, "Spring Petclinic")
			require.NotEmpty(t, req.Messages)
			assert.Equal(t, "hello", req.Messages[len(req.Messages)-1].Content)
			return &llm.CompletionResponse{Content: "Hi there!", Model: "gpt-4o-mini"}, nil
		},
	}
	runner, sessions := newTestRunner(t, client)

	result := runner.Chat(context.Background(), "s1", "hello")
	assert.Equal(t, "Hi there!", result.Response)
	assert.Equal(t, "s1", result.SessionID)
	assert.False(t, result.Degraded)

	history := sessions.History("s1")
	require.Len(t, history, 2)
	assert.Equal(t, domain.RoleUser, history[0].Role)
	assert.Equal(t, domain.RoleAssistant, history[1].Role)
}

func TestChatToolCallRoundTrip(t *testing.T) {
	tool := &echoTool{}
	round := 0
	client := &llm.MockClient{
		CompleteFunc: func(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
			round++
			if round == 1 {
				require.NotEmpty(t, req.Tools)
				return &llm.CompletionResponse{
					ToolCalls: []llm.ToolCall{{ID: "call_1", Name: "echo", Input: `{"text":"ping"}`}},
				}, nil
			}
			// The tool result must be in history, linked to the call.
			last := req.Messages[len(req.Messages)-1]
			assert.Equal(t, llm.RoleTool, last.Role)
			assert.Equal(t, "call_1", last.ToolCallID)
			assert.JSONEq(t, `{"echo":"ping"}`, last.Content)
			return &llm.CompletionResponse{Content: "The echo said ping."}, nil
		},
	}
	runner, sessions := newTestRunner(t, client, tool)

	result := runner.Chat(context.Background(), "s1", "echo ping")
	assert.Equal(t, 2, round)
	assert.Equal(t, "The echo said ping.", result.Response)
	require.Len(t, tool.calls, 1)

	history := sessions.History("s1")
	// user, assistant(tool call), tool result, assistant(final)
	require.Len(t, history, 4)
	require.Len(t, history[1].ToolCalls, 1)
	assert.Equal(t, "call_1", history[1].ToolCalls[0].ID)
}

func TestChatToolFailureFeedsErrorBack(t *testing.T) {
	tool := &echoTool{fail: true}
	round := 0
	client := &llm.MockClient{
		CompleteFunc: func(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
			round++
			if round == 1 {
				return &llm.CompletionResponse{
					ToolCalls: []llm.ToolCall{{ID: "call_1", Name: "echo", Input: `{"text":"ping"}`}},
				}, nil
			}
			last := req.Messages[len(req.Messages)-1]
			assert.Contains(t, last.Content, "echo backend down")
			var payload map[string]string
			require.NoError(t, json.Unmarshal([]byte(last.Content), &payload))
			assert.Contains(t, payload, "error")
			return &llm.CompletionResponse{Content: "Something went wrong with the echo."}, nil
		},
	}
	runner, _ := newTestRunner(t, client, tool)

	result := runner.Chat(context.Background(), "s1", "echo ping")
	assert.False(t, result.Degraded)
	assert.Equal(t, "Something went wrong with the echo.", result.Response)
}

func TestChatRejectsInvalidToolArguments(t *testing.T) {
	tool := &echoTool{}
	round := 0
	client := &llm.MockClient{
		CompleteFunc: func(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
			round++
			if round == 1 {
				return &llm.CompletionResponse{
					ToolCalls: []llm.ToolCall{{ID: "call_1", Name: "echo", Input: `{"bogus":42}`}},
				}, nil
			}
			last := req.Messages[len(req.Messages)-1]
			assert.Contains(t, last.Content, "invalid arguments")
			return &llm.CompletionResponse{Content: "done"}, nil
		},
	}
	runner, _ := newTestRunner(t, client, tool)

	runner.Chat(context.Background(), "s1", "echo")
	// Schema validation failed, so the tool itself never ran.
	assert.Empty(t, tool.calls)
}

func TestChatUnknownTool(t *testing.T) {
	round := 0
	client := &llm.MockClient{
		CompleteFunc: func(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
			round++
			if round == 1 {
				return &llm.CompletionResponse{
					ToolCalls: []llm.ToolCall{{ID: "call_1", Name: "launch_rockets", Input: `{}`}},
				}, nil
			}
			last := req.Messages[len(req.Messages)-1]
			assert.Contains(t, last.Content, "unknown tool")
			return &llm.CompletionResponse{Content: "Sorry, I can't do that."}, nil
		},
	}
	runner, _ := newTestRunner(t, client)

	result := runner.Chat(context.Background(), "s1", "fire!")
	assert.Equal(t, "Sorry, I can't do that.", result.Response)
}

func TestChatToolIterationLimit(t *testing.T) {
	tool := &echoTool{}
	rounds := 0
	client := &llm.MockClient{
		CompleteFunc: func(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
			rounds++
			return &llm.CompletionResponse{
				ToolCalls: []llm.ToolCall{{ID: "call_x", Name: "echo", Input: `{"text":"again"}`}},
			}, nil
		},
	}
	runner, sessions := newTestRunner(t, client, tool)

	result := runner.Chat(context.Background(), "s1", "loop forever")
	assert.Equal(t, maxToolIterations, rounds)
	assert.Equal(t, fallbackMessage, result.Response)

	// The transcript must not end on a dangling tool request.
	history := sessions.History("s1")
	last := history[len(history)-1]
	assert.Equal(t, domain.RoleAssistant, last.Role)
	assert.Empty(t, last.ToolCalls)
}

func TestChatDegradesOnLLMError(t *testing.T) {
	client := &llm.MockClient{
		CompleteFunc: func(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
			return nil, &llm.ProviderError{Provider: "openai", Message: "rate limited", Code: 429}
		},
	}
	runner, sessions := newTestRunner(t, client)

	result := runner.Chat(context.Background(), "s1", "hello")
	assert.True(t, result.Degraded)
	assert.Equal(t, UnavailableMessage, result.Response)

	// The user message is kept; no assistant message was recorded.
	history := sessions.History("s1")
	require.Len(t, history, 1)
	assert.Equal(t, domain.RoleUser, history[0].Role)
}

func TestChatDegradesWithoutClient(t *testing.T) {
	runner, sessions := newTestRunner(t, nil)

	result := runner.Chat(context.Background(), "s1", "hello")
	assert.True(t, result.Degraded)
	assert.Equal(t, UnavailableMessage, result.Response)
	assert.Empty(t, sessions.History("s1"))
}

func TestChatDefaultsSessionID(t *testing.T) {
	client := &llm.MockClient{}
	runner, sessions := newTestRunner(t, client)

	result := runner.Chat(context.Background(), "", "hello")
	assert.Equal(t, domain.DefaultSessionID, result.SessionID)
	assert.NotEmpty(t, sessions.History(domain.DefaultSessionID))
}

func TestChatSessionsAreIsolated(t *testing.T) {
	client := &llm.MockClient{}
	runner, sessions := newTestRunner(t, client)

	runner.Chat(context.Background(), "alice", "hi from alice")
	runner.Chat(context.Background(), "bob", "hi from bob")

	require.Len(t, sessions.History("alice"), 2)
	assert.Equal(t, "hi from alice", sessions.History("alice")[0].Content)
	assert.Equal(t, "hi from bob", sessions.History("bob")[0].Content)
}

func TestReset(t *testing.T) {
	client := &llm.MockClient{}
	runner, sessions := newTestRunner(t, client)

	runner.Chat(context.Background(), "s1", "remember this")
	require.NotEmpty(t, sessions.History("s1"))

	runner.Reset("s1")
	assert.Empty(t, sessions.History("s1"))
}

func TestChatStreamForwardsDeltas(t *testing.T) {
	client := &llm.MockClient{
		StreamFunc: func(ctx context.Context, req llm.CompletionRequest) (<-chan llm.StreamEvent, error) {
			ch := make(chan llm.StreamEvent, 3)
			ch <- llm.StreamEvent{Type: "delta", Content: "Hello"}
			ch <- llm.StreamEvent{Type: "delta", Content: " world"}
			ch <- llm.StreamEvent{Type: "done", Response: &llm.CompletionResponse{Content: "Hello world"}}
			close(ch)
			return ch, nil
		},
	}
	runner, _ := newTestRunner(t, client)

	var deltas []string
	result := runner.ChatStream(context.Background(), "s1", "hi", func(evt llm.StreamEvent) {
		if evt.Type == "delta" {
			deltas = append(deltas, evt.Content)
		}
	})
	assert.Equal(t, []string{"Hello", " world"}, deltas)
	assert.Equal(t, "Hello world", result.Response)
}

func TestChatStreamEmitsToolEvents(t *testing.T) {
	tool := &echoTool{}
	round := 0
	client := &llm.MockClient{
		StreamFunc: func(ctx context.Context, req llm.CompletionRequest) (<-chan llm.StreamEvent, error) {
			round++
			ch := make(chan llm.StreamEvent, 1)
			if round == 1 {
				ch <- llm.StreamEvent{Type: "done", Response: &llm.CompletionResponse{
					ToolCalls: []llm.ToolCall{{ID: "call_1", Name: "echo", Input: `{"text":"hi"}`}},
				}}
			} else {
				ch <- llm.StreamEvent{Type: "done", Response: &llm.CompletionResponse{Content: "done"}}
			}
			close(ch)
			return ch, nil
		},
	}
	runner, _ := newTestRunner(t, client, tool)

	var events []string
	result := runner.ChatStream(context.Background(), "s1", "hi", func(evt llm.StreamEvent) {
		events = append(events, evt.Type)
	})
	assert.Equal(t, "done", result.Response)
	assert.Contains(t, events, "tool_start")
	assert.Contains(t, events, "tool_result")
}

// interruptTool runs a side effect mid-execution, letting tests race a reset
// against a turn in flight.
type interruptTool struct {
	during func()
}

func (t *interruptTool) Name() string        { return "echo" }
func (t *interruptTool) Description() string { return "Echoes back." }
func (t *interruptTool) InputSchema() string {
	return `{"type": "object", "additionalProperties": false}`
}

func (t *interruptTool) Execute(ctx context.Context, input string) (string, error) {
	if t.during != nil {
		t.during()
	}
	return `{"ok":true}`, nil
}

func TestResetDuringInFlightTurn(t *testing.T) {
	round := 0
	roundTwoHistory := 0
	client := &llm.MockClient{
		CompleteFunc: func(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
			round++
			if round == 1 {
				return &llm.CompletionResponse{
					ToolCalls: []llm.ToolCall{{ID: "call_1", Name: "echo", Input: `{}`}},
				}, nil
			}
			roundTwoHistory = len(req.Messages)
			return &llm.CompletionResponse{Content: "All clear."}, nil
		},
	}
	tool := &interruptTool{}
	runner, sessions := newTestRunner(t, client, tool)
	tool.during = func() { runner.Reset("s1") }

	result := runner.Chat(context.Background(), "s1", "hello")
	require.Equal(t, 2, round)
	assert.Equal(t, "All clear.", result.Response)

	// The reset wiped the user and assistant messages appended before it;
	// the turn's later appends land in a fresh session (last write wins).
	assert.Equal(t, 1, roundTwoHistory)
	history := sessions.History("s1")
	require.Len(t, history, 2)
	assert.Equal(t, domain.RoleTool, history[0].Role)
	assert.Equal(t, "call_1", history[0].ToolCallID)
	assert.Equal(t, domain.RoleAssistant, history[1].Role)
	assert.Equal(t, "All clear.", history[1].Content)
}

func TestMemoryStoreAppendAfterReset(t *testing.T) {
	sessions := NewMemorySessionStore(0)
	sessions.GetOrCreate("s1")
	sessions.Append("s1", domain.Message{Role: domain.RoleUser, Content: "before"})

	sessions.Reset("s1")
	sessions.Append("s1", domain.Message{Role: domain.RoleAssistant, Content: "after"})

	history := sessions.History("s1")
	require.Len(t, history, 1)
	assert.Equal(t, "after", history[0].Content)
}

func TestMemoryStoreTrimsHistory(t *testing.T) {
	sessions := NewMemorySessionStore(3)
	sessions.GetOrCreate("s1")
	for i := 0; i < 3; i++ {
		sessions.Append("s1", domain.Message{Role: domain.RoleUser, Content: "q"})
		sessions.Append("s1", domain.Message{Role: domain.RoleAssistant, Content: "a"})
	}
	history := sessions.History("s1")
	assert.Len(t, history, 3)
}

func TestBuildSystemPromptIncludesPolicyAndDate(t *testing.T) {
	prompt := BuildSystemPrompt(PromptConfig{ExtraPrompt: "Always answer in haiku."})
	assert.Contains(t, prompt, "Spring Petclinic")
	assert.Contains(t, prompt, "Current date:")
	assert.Contains(t, prompt, "Always answer in haiku.")
}
