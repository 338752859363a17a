package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// requestTimeout bounds a single provider round trip.
const requestTimeout = 120 * time.Second

// OpenAIClient is a chat-completion client for the OpenAI API and, with the
// Azure constructor, for Azure OpenAI deployments. Both variants share all
// request/response translation; only the SDK configuration differs.
type OpenAIClient struct {
	client   *openai.Client
	model    string
	provider string
}

// NewOpenAIClient creates a client for the plain OpenAI API.
func NewOpenAIClient(apiKey, model string) *OpenAIClient {
	cfg := openai.DefaultConfig(apiKey)
	cfg.HTTPClient = &http.Client{Timeout: requestTimeout}
	return &OpenAIClient{
		client:   openai.NewClientWithConfig(cfg),
		model:    model,
		provider: "openai",
	}
}

// NewAzureClient creates a client for an Azure OpenAI deployment. The
// deployment name takes the place of the model ID on the wire.
func NewAzureClient(apiKey, endpoint, deployment, apiVersion string) *OpenAIClient {
	cfg := openai.DefaultAzureConfig(apiKey, endpoint)
	if apiVersion != "" {
		cfg.APIVersion = apiVersion
	}
	cfg.HTTPClient = &http.Client{Timeout: requestTimeout}
	return &OpenAIClient{
		client:   openai.NewClientWithConfig(cfg),
		model:    deployment,
		provider: "azure",
	}
}

// Name returns the provider name.
func (c *OpenAIClient) Name() string {
	return c.provider
}

// Complete sends a non-streaming chat completion request.
func (c *OpenAIClient) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	start := time.Now()

	resp, err := c.client.CreateChatCompletion(ctx, c.buildRequest(req, false))
	if err != nil {
		return nil, c.wrapErr(err)
	}
	if len(resp.Choices) == 0 {
		return nil, &ProviderError{Provider: c.provider, Message: "empty choices in response"}
	}

	choice := resp.Choices[0]
	return &CompletionResponse{
		Content:    choice.Message.Content,
		ToolCalls:  fromOpenAIToolCalls(choice.Message.ToolCalls),
		StopReason: string(choice.FinishReason),
		Usage: Usage{
			InputTokens:  resp.Usage.PromptTokens,
			OutputTokens: resp.Usage.CompletionTokens,
		},
		Model:    resp.Model,
		Duration: time.Since(start),
	}, nil
}

// Stream sends a streaming chat completion request. Text deltas are emitted
// as they arrive; incremental tool-call fragments are accumulated by index
// and delivered whole on the final "done" event.
func (c *OpenAIClient) Stream(ctx context.Context, req CompletionRequest) (<-chan StreamEvent, error) {
	stream, err := c.client.CreateChatCompletionStream(ctx, c.buildRequest(req, true))
	if err != nil {
		return nil, c.wrapErr(err)
	}

	events := make(chan StreamEvent)
	go func() {
		defer close(events)
		defer stream.Close()

		var (
			content    string
			stopReason string
			calls      []openai.ToolCall
		)
		for {
			chunk, err := stream.Recv()
			if errors.Is(err, io.EOF) {
				events <- StreamEvent{
					Type: "done",
					Response: &CompletionResponse{
						Content:    content,
						ToolCalls:  fromOpenAIToolCalls(calls),
						StopReason: stopReason,
						Model:      c.model,
					},
				}
				return
			}
			if err != nil {
				events <- StreamEvent{Type: "error", Error: c.wrapErr(err).Error()}
				return
			}
			if len(chunk.Choices) == 0 {
				continue
			}

			choice := chunk.Choices[0]
			if choice.FinishReason != "" {
				stopReason = string(choice.FinishReason)
			}
			if choice.Delta.Content != "" {
				content += choice.Delta.Content
				events <- StreamEvent{Type: "delta", Content: choice.Delta.Content}
			}
			calls = accumulateToolCalls(calls, choice.Delta.ToolCalls)
		}
	}()
	return events, nil
}

// buildRequest translates a CompletionRequest into the SDK request shape.
func (c *OpenAIClient) buildRequest(req CompletionRequest, stream bool) openai.ChatCompletionRequest {
	messages := make([]openai.ChatCompletionMessage, 0, len(req.Messages)+1)
	if req.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.System,
		})
	}
	for _, m := range req.Messages {
		messages = append(messages, toOpenAIMessage(m))
	}

	out := openai.ChatCompletionRequest{
		Model:    c.model,
		Messages: messages,
		Stream:   stream,
	}
	if req.MaxTokens > 0 {
		out.MaxTokens = req.MaxTokens
	}
	if req.Temperature != nil {
		out.Temperature = float32(*req.Temperature)
	}
	for _, t := range req.Tools {
		out.Tools = append(out.Tools, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  json.RawMessage(t.InputSchema),
			},
		})
	}
	return out
}

func toOpenAIMessage(m Message) openai.ChatCompletionMessage {
	msg := openai.ChatCompletionMessage{
		Role:    m.Role,
		Content: m.Content,
	}
	for _, tc := range m.ToolCalls {
		msg.ToolCalls = append(msg.ToolCalls, openai.ToolCall{
			ID:   tc.ID,
			Type: openai.ToolTypeFunction,
			Function: openai.FunctionCall{
				Name:      tc.Name,
				Arguments: tc.Input,
			},
		})
	}
	if m.Role == RoleTool {
		msg.ToolCallID = m.ToolCallID
	}
	return msg
}

func fromOpenAIToolCalls(calls []openai.ToolCall) []ToolCall {
	if len(calls) == 0 {
		return nil
	}
	out := make([]ToolCall, 0, len(calls))
	for _, tc := range calls {
		out = append(out, ToolCall{
			ID:    tc.ID,
			Name:  tc.Function.Name,
			Input: tc.Function.Arguments,
		})
	}
	return out
}

// accumulateToolCalls merges streamed tool-call fragments into full calls.
// The API identifies fragments by index: the first fragment of a call
// carries its ID and name, later fragments append argument text.
func accumulateToolCalls(calls []openai.ToolCall, deltas []openai.ToolCall) []openai.ToolCall {
	for _, d := range deltas {
		idx := 0
		if d.Index != nil {
			idx = *d.Index
		}
		for len(calls) <= idx {
			calls = append(calls, openai.ToolCall{})
		}
		if d.ID != "" {
			calls[idx].ID = d.ID
		}
		if d.Function.Name != "" {
			calls[idx].Function.Name = d.Function.Name
		}
		calls[idx].Function.Arguments += d.Function.Arguments
	}
	return calls
}

// wrapErr converts SDK errors into ProviderError with the HTTP status when
// one is available.
func (c *OpenAIClient) wrapErr(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return &ProviderError{
			Provider: c.provider,
			Message:  apiErr.Message,
			Code:     apiErr.HTTPStatusCode,
		}
	}
	return fmt.Errorf("%s: %w", c.provider, err)
}
