package agent

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/haasonsaas/agentcore/pkg/models"
)

type directiveHandler struct {
	name      string
	directive models.Directive
}

func (h directiveHandler) Name() string            { return h.name }
func (h directiveHandler) Description() string     { return "" }
func (h directiveHandler) Schema() json.RawMessage { return json.RawMessage(`{"type":"object"}`) }
func (h directiveHandler) Execute(ctx context.Context, args json.RawMessage) (models.HandlerResult, error) {
	return models.HandlerResult{Directive: h.directive, Payload: "ok"}, nil
}

func TestToolCallRunnerSkipsAfterFinishConverges(t *testing.T) {
	registry := NewToolRegistry()
	registry.Register(directiveHandler{name: "finish_now", directive: models.DirectiveFinish})
	registry.Register(directiveHandler{name: "noop", directive: models.DirectiveContinue})

	runner := NewToolCallRunner(NewDispatcher(registry), nil, DefaultToolCallRunnerConfig())

	calls := []models.ToolCall{
		{ID: "1", Name: "finish_now"},
		{ID: "2", Name: "noop"},
	}
	outcomes, directive := runner.RunCycle(context.Background(), nil, calls, nil)

	if directive != models.DirectiveFinish {
		t.Fatalf("expected finish, got %s", directive)
	}
	if outcomes[1].Result.ErrorCode != models.ErrCodeSkippedDueToFinish {
		t.Fatalf("expected second call skipped due to finish, got %+v", outcomes[1].Result)
	}
}

func TestToolCallRunnerWaitUserDominatesLaterContinue(t *testing.T) {
	registry := NewToolRegistry()
	registry.Register(directiveHandler{name: "ask", directive: models.DirectiveWaitUser})
	registry.Register(directiveHandler{name: "noop", directive: models.DirectiveContinue})

	runner := NewToolCallRunner(NewDispatcher(registry), nil, DefaultToolCallRunnerConfig())

	calls := []models.ToolCall{{ID: "1", Name: "ask"}, {ID: "2", Name: "noop"}}
	outcomes, directive := runner.RunCycle(context.Background(), nil, calls, nil)

	if directive != models.DirectiveWaitUser {
		t.Fatalf("expected wait_user, got %s", directive)
	}
	if outcomes[1].Result.ErrorCode != models.ErrCodeSkippedDueToWaitUser {
		t.Fatalf("expected second call skipped due to wait_user, got %+v", outcomes[1].Result)
	}
}

func TestToolCallRunnerSteeringSkipsRemainder(t *testing.T) {
	registry := NewToolRegistry()
	registry.Register(directiveHandler{name: "noop", directive: models.DirectiveContinue})

	runner := NewToolCallRunner(NewDispatcher(registry), nil, DefaultToolCallRunnerConfig())

	calls := []models.ToolCall{{ID: "1", Name: "noop"}, {ID: "2", Name: "noop"}}
	interrupted := false
	steer := func() bool {
		defer func() { interrupted = true }()
		return interrupted
	}
	outcomes, _ := runner.RunCycle(context.Background(), nil, calls, steer)

	if outcomes[1].Result.ErrorCode != models.ErrCodeSkippedDueToSteering {
		t.Fatalf("expected second call skipped due to steering, got %+v", outcomes[1].Result)
	}
}
