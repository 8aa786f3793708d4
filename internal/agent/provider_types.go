package agent

import (
	"context"
	"encoding/json"

	"github.com/haasonsaas/agentcore/pkg/models"
)

// ChatClient is the interface implemented by each Chat Client backend
// (Anthropic, OpenAI, Gemini, Bedrock, ...). A Cycle Runner uses exactly one
// ChatClient per task, selected by the task's recipe.
//
// Thread Safety:
// Implementations must be safe for concurrent use. A single process may
// drive many tasks through the same ChatClient concurrently.
type ChatClient interface {
	// Complete sends the task's current transcript and returns a channel of
	// streaming chunks terminated by exactly one chunk with Done=true (or an
	// Error). The channel is always closed by the implementation.
	Complete(ctx context.Context, req *CompletionRequest) (<-chan *CompletionChunk, error)

	// Name returns the provider name (e.g. "anthropic", "openai").
	Name() string

	// Models returns the models this client knows how to address.
	Models() []Model

	// SupportsTools reports whether this client can send tool schemas and
	// parse tool-call deltas out of the stream.
	SupportsTools() bool
}

// CompletionRequest contains all parameters for a single LLM turn.
type CompletionRequest struct {
	// Model selects which underlying model to address. If empty, the
	// client's default model is used.
	Model string `json:"model"`

	// System is the task's system prompt.
	System string `json:"system,omitempty"`

	// Messages is the task's full transcript in chronological order,
	// including prior tool-result messages.
	Messages []models.Message `json:"messages"`

	// Tools are the schemas the Tool Planner selected as visible for this
	// cycle. Empty means tool calling is unavailable this turn.
	Tools []ToolSchema `json:"tools,omitempty"`

	// MaxTokens limits the length of the generated response. Zero means the
	// client's default (typically 4096).
	MaxTokens int `json:"max_tokens,omitempty"`

	// EnableThinking turns on extended thinking for clients that support it.
	EnableThinking bool `json:"enable_thinking,omitempty"`

	// ThinkingBudgetTokens bounds EnableThinking's token spend. Zero means
	// the client's default budget.
	ThinkingBudgetTokens int `json:"thinking_budget_tokens,omitempty"`
}

// CompletionChunk is a single increment of a streamed LLM turn.
type CompletionChunk struct {
	Text string `json:"text,omitempty"`

	// ToolCall is non-nil exactly once per tool call the model requests,
	// emitted once its arguments are fully buffered.
	ToolCall *models.ToolCall `json:"tool_call,omitempty"`

	Done bool `json:"done,omitempty"`

	Error error `json:"-"`

	Thinking      string `json:"thinking,omitempty"`
	ThinkingStart bool   `json:"thinking_start,omitempty"`
	ThinkingEnd   bool   `json:"thinking_end,omitempty"`

	// InputTokens/OutputTokens are only populated on the terminal chunk.
	InputTokens  int `json:"input_tokens,omitempty"`
	OutputTokens int `json:"output_tokens,omitempty"`
}

// Model describes one addressable model and its capabilities.
type Model struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	ContextSize    int    `json:"context_size"`
	SupportsVision bool   `json:"supports_vision"`
}

// ToolSchema is the wire shape handed to a ChatClient: enough for the
// provider's function-calling API, nothing the provider doesn't need.
type ToolSchema struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  json.RawMessage `json:"parameters"`
}

// ToolHandler is the interface implemented by every built-in and
// plugin-registered tool. Unlike a ChatClient, a ToolHandler never sees a
// context.Context cancellation as anything but "stop now" — long-running
// work (bash commands, sub-tasks) must itself poll ctx.Done().
type ToolHandler interface {
	// Name must be unique within a Tool Registry and match the regexp the
	// Tool Registry enforces for provider function-calling compatibility.
	Name() string

	Description() string

	// Schema returns the JSON Schema the Tool Planner advertises and the
	// Tool Dispatcher validates arguments against.
	Schema() json.RawMessage

	// Execute runs the tool against normalized arguments. Handlers return a
	// models.HandlerResult rather than an error for any domain-level failure
	// the LLM should see and react to; a non-nil error here is reserved for
	// conditions the dispatcher itself must translate into a protocol error
	// (e.g. a panic recovered by the registry).
	Execute(ctx context.Context, args json.RawMessage) (models.HandlerResult, error)
}

// ResponseChunk is a streaming response chunk surfaced to the runtime's
// caller. Consumers should check fields in order: Error, ToolResult, Event,
// then Text.
type ResponseChunk struct {
	Text          string `json:"text,omitempty"`
	Thinking      string `json:"thinking,omitempty"`
	ThinkingStart bool   `json:"thinking_start,omitempty"`
	ThinkingEnd   bool   `json:"thinking_end,omitempty"`

	ToolResult *models.ToolExecutionResult `json:"tool_result,omitempty"`
	Event      *models.AgentEvent          `json:"event,omitempty"`

	Error error `json:"-"`
}
