package agent

import (
	"context"
	"time"

	"github.com/haasonsaas/agentcore/pkg/models"
)

// ToolCallRunnerConfig configures the Tool Call Runner's per-call timeout.
type ToolCallRunnerConfig struct {
	// PerToolTimeout bounds a single dispatch. Zero means no extra timeout
	// beyond whatever the parent context already carries.
	PerToolTimeout time.Duration
}

// DefaultToolCallRunnerConfig returns the runner's default per-call budget.
func DefaultToolCallRunnerConfig() ToolCallRunnerConfig {
	return ToolCallRunnerConfig{PerToolTimeout: 30 * time.Second}
}

// ToolCallRunner executes the tool calls an assistant message carries, in
// declared order, converging on a single cycle-level Directive. Once the
// converged directive reaches wait_user or finish, every remaining call in
// the same cycle is skipped rather than dispatched: a model that asks to
// finish and keeps emitting further calls in the same turn should not have
// those later calls silently executed behind its back.
type ToolCallRunner struct {
	dispatcher *Dispatcher
	hooks      *HookManager
	config     ToolCallRunnerConfig
}

// NewToolCallRunner builds a runner over dispatcher. hooks may be nil, in
// which case dispatch results pass through unmodified.
func NewToolCallRunner(dispatcher *Dispatcher, hooks *HookManager, config ToolCallRunnerConfig) *ToolCallRunner {
	if config.PerToolTimeout <= 0 {
		config = DefaultToolCallRunnerConfig()
	}
	if hooks == nil {
		hooks = NewHookManager()
	}
	return &ToolCallRunner{dispatcher: dispatcher, hooks: hooks, config: config}
}

// RunCycle dispatches calls in order and returns the per-call outcomes along
// with the cycle's converged Directive. steeringSkip, when non-nil, is
// consulted before each call; if it reports true the remaining calls are
// skipped with ErrCodeSkippedDueToSteering regardless of the directive
// reached so far (an injected user message interrupts a cycle in flight).
func (r *ToolCallRunner) RunCycle(ctx context.Context, task *models.AgentTask, calls []models.ToolCall, steeringSkip func() bool) ([]models.ToolCallOutcome, models.Directive) {
	outcomes := make([]models.ToolCallOutcome, 0, len(calls))
	converged := models.DirectiveContinue

	for _, call := range calls {
		if steeringSkip != nil && steeringSkip() {
			outcomes = append(outcomes, skippedOutcome(call, models.ErrCodeSkippedDueToSteering))
			continue
		}

		switch converged {
		case models.DirectiveFinish:
			outcomes = append(outcomes, skippedOutcome(call, models.ErrCodeSkippedDueToFinish))
			continue
		case models.DirectiveWaitUser:
			outcomes = append(outcomes, skippedOutcome(call, models.ErrCodeSkippedDueToWaitUser))
			continue
		}

		var result models.ToolExecutionResult
		if decision := r.hooks.BeforeToolCall(ctx, task, call); decision.Skip {
			result = decision.Result
		} else {
			result = r.dispatchWithTimeout(ctx, call)
		}
		result = r.hooks.AfterToolCall(ctx, task, call, result)

		outcomes = append(outcomes, models.ToolCallOutcome{Call: call, Result: result})

		if result.Directive.Dominates(converged) {
			converged = result.Directive
		}
	}

	return outcomes, converged
}

func (r *ToolCallRunner) dispatchWithTimeout(ctx context.Context, call models.ToolCall) models.ToolExecutionResult {
	if r.config.PerToolTimeout <= 0 {
		return r.dispatcher.Dispatch(ctx, call)
	}
	callCtx, cancel := context.WithTimeout(ctx, r.config.PerToolTimeout)
	defer cancel()

	result := r.dispatcher.Dispatch(callCtx, call)
	if callCtx.Err() == context.DeadlineExceeded && !result.IsError() {
		return errorResult(call.ID, models.ErrCodeToolExecutionFailed, "tool call exceeded its per-call timeout")
	}
	return result
}

func skippedOutcome(call models.ToolCall, errorCode string) models.ToolCallOutcome {
	return models.ToolCallOutcome{
		Call:   call,
		Result: errorResult(call.ID, errorCode, "skipped: "+errorCode),
	}
}
