// Package agent implements the conversational loop: it replays session
// history to the LLM, executes the tool calls the model requests, and
// returns the model's final text.
package agent

import (
	"context"
	"sync"
	"time"

	"github.com/petclinic/genai-service/internal/domain"
	"github.com/petclinic/genai-service/internal/llm"
	"github.com/petclinic/genai-service/internal/logging"
)

// maxToolIterations limits how many tool call rounds a single turn can perform.
const maxToolIterations = 5

// UnavailableMessage is returned to the user whenever the model cannot be
// reached. The conversation stays intact; only the failed turn degrades.
const UnavailableMessage = "Chat is currently unavailable. Please try again later."

// fallbackMessage is returned when the model produced no usable text.
const fallbackMessage = "I'm sorry, I couldn't process that request."

// RunnerConfig configures the agent runner.
type RunnerConfig struct {
	MaxTokens   int
	Temperature *float64
	ExtraPrompt string
}

// RunResult is the outcome of processing a message.
type RunResult struct {
	Response  string        `json:"response"`
	SessionID string        `json:"sessionId"`
	Model     string        `json:"model,omitempty"`
	Usage     llm.Usage     `json:"usage"`
	Duration  time.Duration `json:"duration"`
	Degraded  bool          `json:"degraded,omitempty"`
}

// StreamCallback is called for each streaming event during ChatStream.
// Event types:
//   - "delta": Incremental text output (Content field contains the text)
//   - "tool_start": Tool execution is beginning (Content names the tool)
//   - "tool_result": Tool execution finished (Content names the tool)
//   - "done": Final response is ready
type StreamCallback func(event llm.StreamEvent)

// Runner is the conversational orchestration loop. Turns within one session
// run strictly one at a time; distinct sessions proceed concurrently.
type Runner struct {
	cfg      RunnerConfig
	client   llm.Client
	sessions SessionStore
	tools    *ToolRegistry
	log      *logging.Logger
	locks    sync.Map // session ID → *sync.Mutex
}

// NewRunner creates an agent runner. A nil client means no LLM credentials
// are configured; every turn then returns the unavailable message.
func NewRunner(cfg RunnerConfig, client llm.Client, sessions SessionStore, tools *ToolRegistry, log *logging.Logger) *Runner {
	return &Runner{
		cfg:      cfg,
		client:   client,
		sessions: sessions,
		tools:    tools,
		log:      log.Sub("agent"),
	}
}

// Chat processes one user message and returns the assistant's reply. All
// failures degrade to UnavailableMessage rather than surfacing as errors;
// the caller always has something to show the user.
func (r *Runner) Chat(ctx context.Context, sessionID, text string) *RunResult {
	return r.run(ctx, sessionID, text, nil)
}

// ChatStream is Chat with incremental output delivered through cb.
func (r *Runner) ChatStream(ctx context.Context, sessionID, text string, cb StreamCallback) *RunResult {
	return r.run(ctx, sessionID, text, cb)
}

func (r *Runner) run(ctx context.Context, sessionID, text string, cb StreamCallback) *RunResult {
	start := time.Now()
	if sessionID == "" {
		sessionID = domain.DefaultSessionID
	}

	if r.client == nil {
		r.log.Warn().Str("sessionId", sessionID).Msg("chat requested but no LLM configured")
		return r.degraded(sessionID, start)
	}

	// One turn at a time per session. A concurrent Reset is not blocked by
	// this lock; the turn in flight finishes against whatever history
	// remains.
	mu := r.sessionLock(sessionID)
	mu.Lock()
	defer mu.Unlock()

	session := r.sessions.GetOrCreate(sessionID)
	r.log.Info().
		Str("sessionId", sessionID).
		Int("historyLen", len(session.Messages)).
		Msg("processing message")

	r.sessions.Append(sessionID, domain.Message{
		Role:      domain.RoleUser,
		Content:   text,
		Timestamp: time.Now(),
	})

	system := BuildSystemPrompt(PromptConfig{ExtraPrompt: r.cfg.ExtraPrompt})

	var totalUsage llm.Usage
	var model string

	for i := 0; i < maxToolIterations; i++ {
		req := llm.CompletionRequest{
			System:      system,
			Messages:    toLLMMessages(r.sessions.History(sessionID)),
			Tools:       r.tools.Definitions(),
			MaxTokens:   r.cfg.MaxTokens,
			Temperature: r.cfg.Temperature,
		}

		resp, err := r.complete(ctx, req, cb)
		if err != nil {
			r.log.Error().Err(err).Str("sessionId", sessionID).Msg("LLM completion failed")
			return r.degraded(sessionID, start)
		}

		totalUsage.InputTokens += resp.Usage.InputTokens
		totalUsage.OutputTokens += resp.Usage.OutputTokens
		if resp.Model != "" {
			model = resp.Model
		}

		if len(resp.ToolCalls) == 0 {
			// Final answer.
			content := resp.Content
			if content == "" {
				content = fallbackMessage
			}
			r.sessions.Append(sessionID, domain.Message{
				Role:      domain.RoleAssistant,
				Content:   content,
				Timestamp: time.Now(),
			})
			r.log.Info().
				Str("sessionId", sessionID).
				Str("model", model).
				Int("inputTokens", totalUsage.InputTokens).
				Int("outputTokens", totalUsage.OutputTokens).
				Dur("duration", time.Since(start)).
				Msg("response generated")
			return &RunResult{
				Response:  content,
				SessionID: sessionID,
				Model:     model,
				Usage:     totalUsage,
				Duration:  time.Since(start),
			}
		}

		r.log.Info().Int("toolCalls", len(resp.ToolCalls)).Str("sessionId", sessionID).Msg("executing tool calls")

		// Record the assistant's request, then answer every call so the
		// transcript stays well-formed for the next round.
		r.sessions.Append(sessionID, domain.Message{
			Role:      domain.RoleAssistant,
			Content:   resp.Content,
			ToolCalls: toDomainToolCalls(resp.ToolCalls),
			Timestamp: time.Now(),
		})

		for _, call := range resp.ToolCalls {
			if cb != nil {
				cb(llm.StreamEvent{Type: "tool_start", Content: call.Name})
			}
			output := r.tools.Execute(ctx, call.Name, call.Input)
			r.sessions.Append(sessionID, domain.Message{
				Role:       domain.RoleTool,
				Content:    output,
				ToolCallID: call.ID,
				Timestamp:  time.Now(),
			})
			if cb != nil {
				cb(llm.StreamEvent{Type: "tool_result", Content: call.Name})
			}
		}
	}

	// Tool budget exhausted: close the turn with plain text rather than a
	// dangling tool request.
	r.log.Warn().Str("sessionId", sessionID).Int("iterations", maxToolIterations).Msg("tool iteration limit reached")
	r.sessions.Append(sessionID, domain.Message{
		Role:      domain.RoleAssistant,
		Content:   fallbackMessage,
		Timestamp: time.Now(),
	})
	return &RunResult{
		Response:  fallbackMessage,
		SessionID: sessionID,
		Model:     model,
		Usage:     totalUsage,
		Duration:  time.Since(start),
	}
}

// complete performs one model round, streaming deltas through cb when set.
func (r *Runner) complete(ctx context.Context, req llm.CompletionRequest, cb StreamCallback) (*llm.CompletionResponse, error) {
	if cb == nil {
		return r.client.Complete(ctx, req)
	}

	ch, err := r.client.Stream(ctx, req)
	if err != nil {
		return nil, err
	}

	var resp *llm.CompletionResponse
	var content string
	for evt := range ch {
		switch evt.Type {
		case "delta":
			content += evt.Content
			cb(evt)
		case "done":
			resp = evt.Response
		case "error":
			return nil, &llm.ProviderError{Provider: r.client.Name(), Message: evt.Error}
		}
	}
	if resp == nil {
		resp = &llm.CompletionResponse{Content: content}
	} else if resp.Content == "" {
		resp.Content = content
	}
	return resp, nil
}

// Reset discards a session's history. It deliberately skips the turn lock:
// a stuck or long turn must not delay the user's explicit reset. The reply
// of any turn still in flight lands in the fresh session and is trimmed on
// the next read.
func (r *Runner) Reset(sessionID string) {
	if sessionID == "" {
		sessionID = domain.DefaultSessionID
	}
	r.sessions.Reset(sessionID)
	r.log.Info().Str("sessionId", sessionID).Msg("conversation memory reset")
}

// Enabled reports whether an LLM client is configured.
func (r *Runner) Enabled() bool {
	return r.client != nil
}

// Sessions returns the IDs of all known sessions.
func (r *Runner) Sessions() []string {
	return r.sessions.List()
}

func (r *Runner) degraded(sessionID string, start time.Time) *RunResult {
	return &RunResult{
		Response:  UnavailableMessage,
		SessionID: sessionID,
		Duration:  time.Since(start),
		Degraded:  true,
	}
}

func (r *Runner) sessionLock(sessionID string) *sync.Mutex {
	mu, _ := r.locks.LoadOrStore(sessionID, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

func toLLMMessages(msgs []domain.Message) []llm.Message {
	out := make([]llm.Message, 0, len(msgs))
	for _, m := range msgs {
		lm := llm.Message{
			Role:       m.Role,
			Content:    m.Content,
			ToolCallID: m.ToolCallID,
		}
		for _, tc := range m.ToolCalls {
			lm.ToolCalls = append(lm.ToolCalls, llm.ToolCall{ID: tc.ID, Name: tc.Name, Input: tc.Input})
		}
		out = append(out, lm)
	}
	return out
}

func toDomainToolCalls(calls []llm.ToolCall) []domain.ToolCall {
	out := make([]domain.ToolCall, 0, len(calls))
	for _, tc := range calls {
		out = append(out, domain.ToolCall{ID: tc.ID, Name: tc.Name, Input: tc.Input})
	}
	return out
}
