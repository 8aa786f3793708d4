package agent

import (
	"context"

	"github.com/haasonsaas/agentcore/pkg/models"
)

// HookDecision is returned by a before_tool_call hook to short-circuit
// dispatch: a hook can substitute its own result for a call without the
// Tool Dispatcher ever running, e.g. to enforce an approval gate.
type HookDecision struct {
	// Skip, when true, stops the hook chain and the Tool Call Runner
	// dispatches Result instead of calling the tool.
	Skip   bool
	Result models.ToolExecutionResult
}

// Hook is the interface a plugin or built-in cross-cutting concern
// implements to observe or intercept runtime lifecycle events. Every method
// is optional in spirit — embed HookBase to get no-op defaults and override
// only what you need.
type Hook interface {
	// BeforeToolCall runs before each tool dispatch, in registration order.
	// The first hook to return Skip=true stops the chain; its Result is
	// used instead of dispatching.
	BeforeToolCall(ctx context.Context, task *models.AgentTask, call models.ToolCall) HookDecision

	// AfterToolCall runs after dispatch (or after a BeforeToolCall
	// short-circuit), letting a hook observe or rewrite the final result.
	AfterToolCall(ctx context.Context, task *models.AgentTask, call models.ToolCall, result models.ToolExecutionResult) models.ToolExecutionResult

	// AfterCycle runs once a cycle's directive has converged.
	AfterCycle(ctx context.Context, task *models.AgentTask, cycle models.CycleRecord)

	// BeforeLLM runs immediately before the Cycle Runner calls the task's
	// ChatClient for the given 1-based cycle index.
	BeforeLLM(ctx context.Context, task *models.AgentTask, cycleIndex int)

	// AfterLLM runs once a cycle's model turn has produced an assistant
	// message, before any of its tool calls dispatch.
	AfterLLM(ctx context.Context, task *models.AgentTask, cycle models.CycleRecord)

	// BeforeMemoryCompact runs immediately before the Memory Manager
	// summarizes and drops a task's oldest history.
	BeforeMemoryCompact(ctx context.Context, task *models.AgentTask)

	// AfterMemoryCompact runs once compaction has completed, reporting how
	// many messages were dropped (zero if compaction was skipped or a no-op).
	AfterMemoryCompact(ctx context.Context, task *models.AgentTask, dropped int)
}

// HookBase gives every method a no-op default so a hook implementation only
// needs to override what it cares about.
type HookBase struct{}

func (HookBase) BeforeToolCall(ctx context.Context, task *models.AgentTask, call models.ToolCall) HookDecision {
	return HookDecision{}
}

func (HookBase) AfterToolCall(ctx context.Context, task *models.AgentTask, call models.ToolCall, result models.ToolExecutionResult) models.ToolExecutionResult {
	return result
}

func (HookBase) AfterCycle(ctx context.Context, task *models.AgentTask, cycle models.CycleRecord) {
}

func (HookBase) BeforeLLM(ctx context.Context, task *models.AgentTask, cycleIndex int) {}

func (HookBase) AfterLLM(ctx context.Context, task *models.AgentTask, cycle models.CycleRecord) {}

func (HookBase) BeforeMemoryCompact(ctx context.Context, task *models.AgentTask) {}

func (HookBase) AfterMemoryCompact(ctx context.Context, task *models.AgentTask, dropped int) {}

// HookManager sequentially chains registered hooks, matching the order they
// were added. It is itself a no-op Hook, so a Cycle Runner can always call
// through it even when no hooks are registered.
type HookManager struct {
	hooks []Hook
}

// NewHookManager returns a manager with no hooks registered.
func NewHookManager() *HookManager {
	return &HookManager{}
}

// Register appends hook to the chain.
func (m *HookManager) Register(hook Hook) {
	m.hooks = append(m.hooks, hook)
}

// BeforeToolCall runs the chain in order, stopping at the first Skip=true.
func (m *HookManager) BeforeToolCall(ctx context.Context, task *models.AgentTask, call models.ToolCall) HookDecision {
	for _, h := range m.hooks {
		if decision := h.BeforeToolCall(ctx, task, call); decision.Skip {
			return decision
		}
	}
	return HookDecision{}
}

// AfterToolCall threads result through every hook in order, letting each one
// see the previous hook's rewrite.
func (m *HookManager) AfterToolCall(ctx context.Context, task *models.AgentTask, call models.ToolCall, result models.ToolExecutionResult) models.ToolExecutionResult {
	for _, h := range m.hooks {
		result = h.AfterToolCall(ctx, task, call, result)
	}
	return result
}

// AfterCycle notifies every hook that a cycle converged.
func (m *HookManager) AfterCycle(ctx context.Context, task *models.AgentTask, cycle models.CycleRecord) {
	for _, h := range m.hooks {
		h.AfterCycle(ctx, task, cycle)
	}
}

// BeforeLLM notifies every hook that a cycle's model turn is about to start.
func (m *HookManager) BeforeLLM(ctx context.Context, task *models.AgentTask, cycleIndex int) {
	for _, h := range m.hooks {
		h.BeforeLLM(ctx, task, cycleIndex)
	}
}

// AfterLLM notifies every hook that a cycle's model turn has produced an
// assistant message.
func (m *HookManager) AfterLLM(ctx context.Context, task *models.AgentTask, cycle models.CycleRecord) {
	for _, h := range m.hooks {
		h.AfterLLM(ctx, task, cycle)
	}
}

// BeforeMemoryCompact notifies every hook that compaction is about to run.
func (m *HookManager) BeforeMemoryCompact(ctx context.Context, task *models.AgentTask) {
	for _, h := range m.hooks {
		h.BeforeMemoryCompact(ctx, task)
	}
}

// AfterMemoryCompact notifies every hook that compaction has completed.
func (m *HookManager) AfterMemoryCompact(ctx context.Context, task *models.AgentTask, dropped int) {
	for _, h := range m.hooks {
		h.AfterMemoryCompact(ctx, task, dropped)
	}
}
