package agent

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/haasonsaas/agentcore/pkg/models"
)

type echoHandler struct{}

func (echoHandler) Name() string        { return "echo" }
func (echoHandler) Description() string { return "echoes its message argument" }
func (echoHandler) Schema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {"message": {"type": "string"}},
		"required": ["message"]
	}`)
}
func (echoHandler) Execute(ctx context.Context, args json.RawMessage) (models.HandlerResult, error) {
	var input struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(args, &input); err != nil {
		return models.HandlerResult{}, err
	}
	return models.HandlerResult{Payload: map[string]string{"echo": input.Message}}, nil
}

func TestDispatchSuccessNormalizesStringArguments(t *testing.T) {
	registry := NewToolRegistry()
	registry.Register(echoHandler{})
	dispatcher := NewDispatcher(registry)

	call := models.ToolCall{ID: "call-1", Name: "echo", Arguments: json.RawMessage(`"{\"message\":\"hi\"}"`)}
	result := dispatcher.Dispatch(context.Background(), call)

	if result.IsError() {
		t.Fatalf("expected success, got error: %s", result.Content)
	}
	if result.Directive != models.DirectiveContinue {
		t.Fatalf("expected continue directive, got %s", result.Directive)
	}
}

func TestDispatchUnknownToolReturnsProtocolError(t *testing.T) {
	dispatcher := NewDispatcher(NewToolRegistry())
	result := dispatcher.Dispatch(context.Background(), models.ToolCall{ID: "call-1", Name: "missing"})
	if !result.IsError() || result.ErrorCode != models.ErrCodeToolNotFound {
		t.Fatalf("expected tool_not_found error, got %+v", result)
	}
}

func TestDispatchSchemaViolationReturnsProtocolError(t *testing.T) {
	registry := NewToolRegistry()
	registry.Register(echoHandler{})
	dispatcher := NewDispatcher(registry)

	call := models.ToolCall{ID: "call-1", Name: "echo", Arguments: json.RawMessage(`{}`)}
	result := dispatcher.Dispatch(context.Background(), call)
	if !result.IsError() || result.ErrorCode != models.ErrCodeInvalidArgumentsPayload {
		t.Fatalf("expected invalid_arguments_payload error, got %+v", result)
	}
}
