package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// Role identifies the author of a Message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Message is one turn in a task's conversation. Assistant messages carrying
// ToolCalls MUST be immediately followed, in declared order, by one Role=tool
// Message per call (ignoring intervening assistant/user messages injected by
// hooks). Every transformation applied to a task's message list — including
// memory compaction — must preserve this pairing.
type Message struct {
	// ID uniquely identifies this message within its task, when the caller
	// needs to reference a specific message later (e.g. a summary's cutoff
	// point). Empty unless the task's message store assigns one.
	ID string `json:"id,omitempty"`

	// SessionID identifies the task/session this message belongs to.
	SessionID string `json:"session_id,omitempty"`

	// CreatedAt records when the message was appended to the transcript.
	CreatedAt time.Time `json:"created_at,omitempty"`

	Role Role `json:"role"`

	// Content is the message text. May be empty for an assistant message that
	// only carries tool calls.
	Content string `json:"content,omitempty"`

	// ReasoningContent carries extended-thinking / chain-of-thought text when
	// the provider emits it. Never required by any invariant.
	ReasoningContent string `json:"reasoning_content,omitempty"`

	// ToolCalls is set only on assistant messages that invoke tools.
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`

	// ToolCallID is set only on Role=tool messages, correlating the result
	// to the ToolCall that produced it.
	ToolCallID string `json:"tool_call_id,omitempty"`

	// Images carries structured image references (from read_image or a tool
	// result's image_url/image_path fields).
	Images []ImageRef `json:"images,omitempty"`

	// Metadata carries out-of-band markers attached by the runtime (e.g. a
	// rolling-summary flag) that never reach the provider wire format.
	Metadata map[string]any `json:"metadata,omitempty"`
}

// ImageRef is a structured reference to an image attached to a message.
type ImageRef struct {
	URL  string `json:"url,omitempty"`
	Path string `json:"path,omitempty"`
}

// HasToolCalls reports whether this assistant message carries tool calls.
func (m Message) HasToolCalls() bool {
	return len(m.ToolCalls) > 0
}

// ToolCall is an LLM's request to execute a tool during a cycle.
type ToolCall struct {
	// ID is opaque, provider-assigned, and unique within a single turn.
	ID string `json:"id"`

	// Name is the tool name as registered in the Tool Registry.
	Name string `json:"name"`

	// Arguments is the normalized argument mapping. The wire form (a JSON
	// string or an already-decoded object) is normalized to this shape by
	// NormalizeToolCallArguments before the dispatcher ever sees it.
	Arguments json.RawMessage `json:"arguments"`
}

// NormalizeToolCallArguments accepts either a JSON-encoded string or an
// already-decoded JSON object/array and returns canonical json.RawMessage
// bytes, or an error if raw is neither.
func NormalizeToolCallArguments(raw json.RawMessage) (json.RawMessage, error) {
	trimmed := bytesTrimSpace(raw)
	if len(trimmed) == 0 {
		return json.RawMessage("{}"), nil
	}

	// Already a JSON object/array/literal.
	switch trimmed[0] {
	case '{', '[':
		return trimmed, nil
	}

	// Otherwise it may be a JSON string containing an encoded JSON payload
	// (the common shape for streamed provider deltas).
	var asString string
	if err := json.Unmarshal(trimmed, &asString); err != nil {
		return nil, fmt.Errorf("arguments are neither a JSON object nor a JSON string: %w", err)
	}
	inner := bytesTrimSpace([]byte(asString))
	if len(inner) == 0 {
		return json.RawMessage("{}"), nil
	}
	if inner[0] != '{' && inner[0] != '[' {
		return nil, fmt.Errorf("decoded argument string is not a JSON object or array")
	}
	return json.RawMessage(inner), nil
}

func bytesTrimSpace(b []byte) []byte {
	start, end := 0, len(b)
	for start < end && isJSONSpace(b[start]) {
		start++
	}
	for end > start && isJSONSpace(b[end-1]) {
		end--
	}
	return b[start:end]
}

func isJSONSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

// StatusCode is the outcome of a single tool dispatch, per the status-code to
// runtime-effect contract.
type StatusCode string

const (
	StatusSuccess         StatusCode = "SUCCESS"
	StatusError           StatusCode = "ERROR"
	StatusWaitResponse    StatusCode = "WAIT_RESPONSE"
	StatusRunning         StatusCode = "RUNNING"
	StatusBatchRunning    StatusCode = "BATCH_RUNNING"
	StatusPendingCompress StatusCode = "PENDING_COMPRESS"
)

// Directive is the per-cycle terminal signal carried by a tool result.
type Directive string

const (
	DirectiveContinue Directive = "continue"
	DirectiveWaitUser Directive = "wait_user"
	DirectiveFinish   Directive = "finish"
)

// dominance ranks directives for cycle-level convergence: Finish beats
// WaitUser beats Continue. Higher is more dominant.
var directiveDominance = map[Directive]int{
	DirectiveContinue: 0,
	DirectiveWaitUser: 1,
	DirectiveFinish:   2,
}

// Dominates reports whether d is strictly more dominant than other under the
// finish > wait_user > continue ordering.
func (d Directive) Dominates(other Directive) bool {
	return directiveDominance[d] > directiveDominance[other]
}

// Stable, well-known error codes. Handlers and the dispatcher may also emit
// other domain-specific codes; these are the ones the runtime itself reasons
// about structurally.
const (
	ErrCodeInvalidArgumentsJSON    = "invalid_arguments_json"
	ErrCodeInvalidArgumentsPayload = "invalid_arguments_payload"
	ErrCodeInvalidArgumentsType    = "invalid_arguments_type"
	ErrCodeToolNotFound            = "tool_not_found"
	ErrCodeToolExecutionFailed     = "tool_execution_failed"
	ErrCodeNotEnabled              = "not_enabled"
	ErrCodeSkippedDueToWaitUser    = "skipped_due_to_wait_user"
	ErrCodeSkippedDueToFinish      = "skipped_due_to_finish"
	ErrCodeSkippedDueToSteering    = "skipped_due_to_steering"
	ErrCodeTodoIncomplete          = "todo_incomplete"
	ErrCodeMaxCyclesExceeded       = "max_cycles_exceeded"
	ErrCodeCancelled               = "cancelled"
	ErrCodeLLMEndpointExhausted    = "llm_endpoint_exhausted"
)

// ToolExecutionResult is the outcome of dispatching one ToolCall, produced by
// the Tool Dispatcher and consumed by the Tool Call Runner.
type ToolExecutionResult struct {
	ToolCallID string `json:"tool_call_id"`

	// Content is the JSON-encoded payload the LLM sees as the tool message body.
	Content string `json:"content"`

	StatusCode StatusCode `json:"status_code"`
	Directive  Directive  `json:"directive"`

	// ErrorCode is a stable machine-readable identifier, set whenever
	// StatusCode is ERROR (or a domain handler otherwise wants to flag one).
	ErrorCode string `json:"error_code,omitempty"`

	Metadata map[string]any `json:"metadata,omitempty"`

	ImageURL  string `json:"image_url,omitempty"`
	ImagePath string `json:"image_path,omitempty"`
}

// IsError reports whether this result represents a tool-level or protocol
// error visible to the LLM.
func (r ToolExecutionResult) IsError() bool {
	return r.StatusCode == StatusError
}

// ToMessage converts a dispatch result into the Role=tool Message appended
// to the task's message list.
func (r ToolExecutionResult) ToMessage() Message {
	msg := Message{
		Role:       RoleTool,
		Content:    r.Content,
		ToolCallID: r.ToolCallID,
	}
	if r.ImageURL != "" || r.ImagePath != "" {
		msg.Images = []ImageRef{{URL: r.ImageURL, Path: r.ImagePath}}
	}
	return msg
}

// HandlerResult is what a registered tool handler returns to the dispatcher.
// The dispatcher fills ToolCallID and serializes Payload to JSON for Content.
type HandlerResult struct {
	// Payload is marshaled to JSON to become the ToolExecutionResult.Content.
	Payload any

	StatusCode StatusCode // defaults to StatusSuccess when zero
	Directive  Directive  // defaults to DirectiveContinue when zero

	ErrorCode string
	Metadata  map[string]any

	ImageURL  string
	ImagePath string
}
