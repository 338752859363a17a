package agent

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/petclinic/genai-service/internal/llm"
	"github.com/petclinic/genai-service/internal/logging"
)

// Tool is a clinic action the model can invoke during a conversation.
type Tool interface {
	// Name returns the tool's identifier.
	Name() string

	// Description returns a human-readable description for the LLM.
	Description() string

	// InputSchema returns the JSON Schema for the tool's input.
	InputSchema() string

	// Execute runs the tool with the given JSON input and returns JSON output.
	Execute(ctx context.Context, input string) (string, error)
}

type registeredTool struct {
	tool   Tool
	schema *jsonschema.Schema
}

// ToolRegistry holds available tools. Input schemas are compiled once at
// registration and enforced before every invocation.
type ToolRegistry struct {
	tools map[string]registeredTool
	order []string
	log   *logging.Logger
}

// NewToolRegistry creates an empty tool registry.
func NewToolRegistry(log *logging.Logger) *ToolRegistry {
	return &ToolRegistry{
		tools: make(map[string]registeredTool),
		log:   log.Sub("tools"),
	}
}

// Register adds a tool, compiling its input schema.
func (r *ToolRegistry) Register(t Tool) error {
	schema, err := jsonschema.CompileString(t.Name()+".schema.json", t.InputSchema())
	if err != nil {
		return fmt.Errorf("compiling schema for tool %s: %w", t.Name(), err)
	}
	if _, exists := r.tools[t.Name()]; !exists {
		r.order = append(r.order, t.Name())
	}
	r.tools[t.Name()] = registeredTool{tool: t, schema: schema}
	return nil
}

// Get returns a tool by name.
func (r *ToolRegistry) Get(name string) (Tool, bool) {
	rt, ok := r.tools[name]
	if !ok {
		return nil, false
	}
	return rt.tool, true
}

// Definitions returns LLM-ready tool definitions in registration order.
func (r *ToolRegistry) Definitions() []llm.ToolDefinition {
	defs := make([]llm.ToolDefinition, 0, len(r.order))
	for _, name := range r.order {
		t := r.tools[name].tool
		defs = append(defs, llm.ToolDefinition{
			Name:        t.Name(),
			Description: t.Description(),
			InputSchema: t.InputSchema(),
		})
	}
	return defs
}

// Execute validates the call's arguments and runs the tool. Every failure
// mode (unknown tool, malformed or invalid arguments, tool error) comes
// back as an error-shaped JSON result for the model to read; the
// conversation never aborts on a bad tool call.
func (r *ToolRegistry) Execute(ctx context.Context, name, input string) string {
	rt, ok := r.tools[name]
	if !ok {
		r.log.Warn().Str("tool", name).Msg("unknown tool requested")
		return errorResult(fmt.Sprintf("unknown tool: %s", name))
	}

	if input == "" {
		input = "{}"
	}
	var args any
	if err := json.Unmarshal([]byte(input), &args); err != nil {
		r.log.Warn().Str("tool", name).Err(err).Msg("malformed tool arguments")
		return errorResult(fmt.Sprintf("invalid arguments for %s: %v", name, err))
	}
	if err := rt.schema.Validate(args); err != nil {
		r.log.Warn().Str("tool", name).Err(err).Msg("tool arguments failed validation")
		return errorResult(fmt.Sprintf("invalid arguments for %s: %v", name, err))
	}

	r.log.Debug().Str("tool", name).Msg("executing tool")
	output, err := rt.tool.Execute(ctx, input)
	if err != nil {
		r.log.Error().Str("tool", name).Err(err).Msg("tool execution failed")
		return errorResult(err.Error())
	}
	return output
}

// errorResult wraps a message as the JSON error shape tools report with.
func errorResult(msg string) string {
	data, _ := json.Marshal(map[string]string{"error": msg})
	return string(data)
}
