package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/haasonsaas/agentcore/internal/statestore"
	"github.com/haasonsaas/agentcore/pkg/models"
)

// Runtime is the top-level Agent Runtime state machine. It drives a task
// through pending -> running -> {completed, wait_user, failed, max_cycles},
// composing the Memory Manager, Cycle Runner, and Tool Call Runner once per
// cycle and persisting a Checkpoint to the State Store after every one, so
// any worker can resume the task where it left off.
type Runtime struct {
	cycles   *CycleRunner
	registry *ToolRegistry
	memory   *MemoryManager
	hooks    *HookManager
	store    statestore.Store
	opts     RuntimeOptions
}

// NewRuntime builds a Runtime. registry supplies the tool handlers visible
// to every task this runtime drives; memory may be nil to disable automatic
// compaction; store defaults to an in-memory statestore when nil.
func NewRuntime(cycles *CycleRunner, registry *ToolRegistry, memory *MemoryManager, hooks *HookManager, store statestore.Store, opts RuntimeOptions) *Runtime {
	opts = mergeRuntimeOptions(DefaultRuntimeOptions(), opts)
	if hooks == nil {
		hooks = NewHookManager()
	}
	if store == nil {
		store = statestore.NewMemoryStore()
	}
	return &Runtime{
		cycles:   cycles,
		registry: registry,
		memory:   memory,
		hooks:    hooks,
		store:    store,
		opts:     opts,
	}
}

// Run drives task to a terminal or wait_user outcome, resuming from any
// checkpoint already on the State Store. token scopes cancellation for this
// run (and, transitively, any sub-tasks it delegates to); a nil token gets a
// fresh one derived from ctx. sink receives every AgentEvent the run
// produces; a nil sink discards them.
func (rt *Runtime) Run(ctx context.Context, task *models.AgentTask, token *CancellationToken, sink EventSink) (models.AgentResult, error) {
	sanitized := models.SanitizeTask(*task)
	task = &sanitized

	if token == nil {
		token = NewCancellationToken(ctx)
	}
	runCtx := token.Context()

	emitter := NewEventEmitter(task.TaskID, sink)
	emitter.RunStarted()

	cycleIndex := 1
	var version int64
	if cp, err := rt.store.Load(runCtx, task.TaskID); err == nil && cp != nil {
		task.Messages = RepairTranscript(cp.Messages)
		if cp.CycleIndex > 0 {
			cycleIndex = cp.CycleIndex
		}
		version = cp.Version
	} else if err != nil && err != statestore.ErrNotFound {
		rt.logf("checkpoint load failed, starting task fresh", "task_id", task.TaskID, "error", err)
	}

	toolRunner := rt.toolCallRunnerFor(task, token)

	var (
		cycles []models.CycleRecord
		total  models.TokenUsage
	)

	fail := func(err error, status models.TaskStatus) (models.AgentResult, error) {
		emitter.RunError(err, false)
		rt.persist(context.Background(), task, status, cycles, total, models.DirectiveContinue, cycleIndex, &version)
		return models.AgentResult{
			TaskID: task.TaskID, Status: status, Cycles: cycles, TokenUsage: total, Error: err.Error(),
		}, err
	}

	for {
		if err := runCtx.Err(); err != nil {
			emitter.RunCancelled(err)
			rt.persist(context.Background(), task, models.TaskFailed, cycles, total, models.DirectiveContinue, cycleIndex, &version)
			return models.AgentResult{
				TaskID: task.TaskID, Status: models.TaskFailed, Cycles: cycles, TokenUsage: total, Error: ErrCancelled.Error(),
			}, ErrCancelled
		}

		if cycleIndex > task.MaxCycles {
			emitter.RunFinished(nil)
			rt.persist(context.Background(), task, models.TaskMaxCycles, cycles, total, models.DirectiveContinue, cycleIndex, &version)
			return models.AgentResult{
				TaskID: task.TaskID, Status: models.TaskMaxCycles, Cycles: cycles, TokenUsage: total, Error: ErrMaxCycles.Error(),
			}, ErrMaxCycles
		}

		if rt.memory != nil && rt.memory.ShouldCompact(task) {
			rt.hooks.BeforeMemoryCompact(runCtx, task)
			emitter.MemoryCompactStarted()
			before := len(task.Messages)
			dropped, err := rt.memory.Compact(runCtx, task)
			if err != nil {
				rt.logf("memory compaction failed", "task_id", task.TaskID, "error", err)
			}
			emitter.MemoryCompactFinished(before, len(task.Messages))
			rt.hooks.AfterMemoryCompact(runCtx, task, dropped)
		}

		cycleCtx := runCtx
		var cancel context.CancelFunc
		if rt.opts.CycleTimeout > 0 {
			cycleCtx, cancel = context.WithTimeout(runCtx, rt.opts.CycleTimeout)
		}

		emitter.SetIter(cycleIndex)
		emitter.CycleStarted()
		rt.hooks.BeforeLLM(cycleCtx, task, cycleIndex)
		record, err := rt.cycles.Run(cycleCtx, task, cycleIndex, emitter)
		if cancel != nil {
			cancel()
		}
		if err != nil {
			return fail(err, models.TaskFailed)
		}
		rt.hooks.AfterLLM(runCtx, task, record)

		task.Messages = append(task.Messages, record.AssistantMessage)

		calls := record.AssistantMessage.ToolCalls
		if rt.opts.MaxToolCallsPerCycle > 0 && len(calls) > rt.opts.MaxToolCallsPerCycle {
			calls = calls[:rt.opts.MaxToolCallsPerCycle]
		}

		directive := models.DirectiveContinue
		if len(calls) > 0 {
			outcomes, converged := toolRunner.RunCycle(runCtx, task, calls, nil)
			directive = converged
			record.Outcomes = outcomes
			for _, outcome := range outcomes {
				task.Messages = append(task.Messages, outcome.Result.ToMessage())
				if outcome.Result.ImageURL != "" || outcome.Result.ImagePath != "" {
					task.Messages = append(task.Messages, imageAnnouncementMessage(outcome.Result))
				}
			}
		} else {
			// A cycle that produces neither a tool call nor a terminal
			// directive would otherwise stall the task silently; nudge the
			// model back toward one of its two ways out.
			task.Messages = append(task.Messages, models.Message{
				Role:    models.RoleUser,
				Content: "Continue working the task. Call task_finish once done, or ask_user if you need input.",
			})
		}

		record.Directive = directive
		total = total.Add(record.TokenUsage)
		cycles = append(cycles, record)
		rt.hooks.AfterCycle(runCtx, task, record)
		emitter.CycleFinished(directive)

		if rt.opts.CheckpointEveryCycle {
			rt.persist(runCtx, task, models.TaskRunning, cycles, total, directive, cycleIndex+1, &version)
		}

		switch directive {
		case models.DirectiveFinish:
			answer := ExtractDirectiveText(record.Outcomes, "answer")
			emitter.RunFinished(nil)
			rt.persist(context.Background(), task, models.TaskCompleted, cycles, total, directive, cycleIndex+1, &version)
			return models.AgentResult{
				TaskID: task.TaskID, Status: models.TaskCompleted, FinalAnswer: answer, Cycles: cycles, TokenUsage: total,
			}, nil
		case models.DirectiveWaitUser:
			question := ExtractDirectiveText(record.Outcomes, "question")
			emitter.RunFinished(nil)
			rt.persist(context.Background(), task, models.TaskWaitUser, cycles, total, directive, cycleIndex+1, &version)
			return models.AgentResult{
				TaskID: task.TaskID, Status: models.TaskWaitUser, FinalAnswer: question, Cycles: cycles, TokenUsage: total,
			}, nil
		}

		cycleIndex++
	}
}

func (rt *Runtime) logf(msg string, args ...any) {
	if rt.opts.Logger != nil {
		rt.opts.Logger.Warn(msg, args...)
	}
}

// persist writes a Checkpoint reflecting the run's current progress. Failures
// are logged rather than returned: a checkpoint write is a durability
// best-effort, not a condition that should abort an otherwise-successful
// cycle.
func (rt *Runtime) persist(ctx context.Context, task *models.AgentTask, status models.TaskStatus, cycles []models.CycleRecord, usage models.TokenUsage, pending models.Directive, nextCycleIndex int, version *int64) {
	if rt.store == nil {
		return
	}
	cp := &models.Checkpoint{
		TaskID:           task.TaskID,
		Status:           status,
		Messages:         append([]models.Message(nil), task.Messages...),
		CycleIndex:       nextCycleIndex,
		Cycles:           append([]models.CycleRecord(nil), cycles...),
		TokenUsage:       usage,
		PendingDirective: pending,
	}
	if err := rt.store.Save(ctx, cp, *version); err != nil {
		rt.logf("checkpoint save failed", "task_id", task.TaskID, "error", err)
		return
	}
	*version++
}

// ExtractDirectiveText scans a cycle's tool outcomes, most recent first, for
// the JSON field task_finish/ask_user encode their terminal payload under.
// It never falls back to summarizing the assistant's prose: a final_answer
// exists only if task_finish or ask_user actually produced one.
func ExtractDirectiveText(outcomes []models.ToolCallOutcome, field string) string {
	for i := len(outcomes) - 1; i >= 0; i-- {
		var payload map[string]any
		if err := json.Unmarshal([]byte(outcomes[i].Result.Content), &payload); err != nil {
			continue
		}
		if v, ok := payload[field].(string); ok && v != "" {
			return v
		}
	}
	return ""
}

func imageAnnouncementMessage(result models.ToolExecutionResult) models.Message {
	return models.Message{
		Role:    models.RoleUser,
		Content: "The preceding tool result included an image.",
		Images:  []models.ImageRef{{URL: result.ImageURL, Path: result.ImagePath}},
	}
}

// toolCallRunnerFor builds a ToolCallRunner scoped to this run: when task has
// sub-agents configured it layers create_sub_task/batch_sub_tasks onto a copy
// of the base registry, closing over task and token so delegation can spawn
// children scoped to this run's cancellation lifetime without leaking those
// tools into runs that never enabled sub-agents.
func (rt *Runtime) toolCallRunnerFor(task *models.AgentTask, token *CancellationToken) *ToolCallRunner {
	registry := rt.registry
	if task.SubAgentsEnabled() {
		registry = NewToolRegistry()
		for _, handler := range rt.registry.All() {
			registry.Register(handler)
		}
		registry.Register(rt.newCreateSubTaskTool(task, token))
		registry.Register(rt.newBatchSubTasksTool(task, token))
	}
	return NewToolCallRunner(NewDispatcher(registry), rt.hooks, rt.opts.ToolCallRunner)
}

// funcTool adapts a closure into a ToolHandler, used for tools the Agent
// Runtime itself synthesizes per-run rather than tools built-in code
// registers process-wide.
type funcTool struct {
	name        string
	description string
	schema      json.RawMessage
	exec        func(ctx context.Context, args json.RawMessage) (models.HandlerResult, error)
}

func (t *funcTool) Name() string             { return t.name }
func (t *funcTool) Description() string      { return t.description }
func (t *funcTool) Schema() json.RawMessage  { return t.schema }
func (t *funcTool) Execute(ctx context.Context, args json.RawMessage) (models.HandlerResult, error) {
	return t.exec(ctx, args)
}

func (rt *Runtime) newCreateSubTaskTool(parent *models.AgentTask, token *CancellationToken) ToolHandler {
	return &funcTool{
		name:        "create_sub_task",
		description: "Delegate a piece of work to a named sub-agent and wait for its result.",
		schema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"name": {"type": "string", "description": "The configured sub-agent to delegate to."},
				"task": {"type": "string", "description": "The instructions for the sub-agent."}
			},
			"required": ["name", "task"]
		}`),
		exec: func(ctx context.Context, args json.RawMessage) (models.HandlerResult, error) {
			var input struct {
				Name string `json:"name"`
				Task string `json:"task"`
			}
			if err := json.Unmarshal(args, &input); err != nil {
				return models.HandlerResult{Payload: err.Error(), StatusCode: models.StatusError, ErrorCode: models.ErrCodeInvalidArgumentsPayload}, nil
			}
			result, err := rt.runSubTask(ctx, parent, token, input.Name, input.Task)
			if err != nil {
				return models.HandlerResult{Payload: err.Error(), StatusCode: models.StatusError, ErrorCode: models.ErrCodeToolExecutionFailed}, nil
			}
			return models.HandlerResult{Payload: result}, nil
		},
	}
}

func (rt *Runtime) newBatchSubTasksTool(parent *models.AgentTask, token *CancellationToken) ToolHandler {
	return &funcTool{
		name:        "batch_sub_tasks",
		description: "Delegate several pieces of work to named sub-agents in parallel and wait for all of them.",
		schema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"tasks": {
					"type": "array",
					"items": {
						"type": "object",
						"properties": {
							"name": {"type": "string"},
							"task": {"type": "string"}
						},
						"required": ["name", "task"]
					}
				}
			},
			"required": ["tasks"]
		}`),
		exec: func(ctx context.Context, args json.RawMessage) (models.HandlerResult, error) {
			var input struct {
				Tasks []struct {
					Name string `json:"name"`
					Task string `json:"task"`
				} `json:"tasks"`
			}
			if err := json.Unmarshal(args, &input); err != nil {
				return models.HandlerResult{Payload: err.Error(), StatusCode: models.StatusError, ErrorCode: models.ErrCodeInvalidArgumentsPayload}, nil
			}

			results := make([]models.AgentResult, len(input.Tasks))
			errs := make([]error, len(input.Tasks))
			var wg sync.WaitGroup
			for i, sub := range input.Tasks {
				wg.Add(1)
				go func(i int, name, taskText string) {
					defer wg.Done()
					results[i], errs[i] = rt.runSubTask(ctx, parent, token, name, taskText)
				}(i, sub.Name, sub.Task)
			}
			wg.Wait()

			for _, err := range errs {
				if err != nil {
					return models.HandlerResult{Payload: err.Error(), StatusCode: models.StatusError, ErrorCode: models.ErrCodeToolExecutionFailed}, nil
				}
			}
			return models.HandlerResult{Payload: map[string]any{"results": results}, StatusCode: models.StatusBatchRunning, Directive: models.DirectiveContinue}, nil
		},
	}
}

func (rt *Runtime) runSubTask(ctx context.Context, parent *models.AgentTask, token *CancellationToken, name, taskText string) (models.AgentResult, error) {
	cfg, ok := parent.SubAgents[name]
	if !ok {
		return models.AgentResult{}, fmt.Errorf("unknown sub-agent: %s", name)
	}

	child := &models.AgentTask{
		TaskID:       parent.TaskID + "/" + name + "/" + uuid.NewString(),
		Model:        cfg.Model,
		SystemPrompt: cfg.SystemPrompt,
		UserPrompt:   taskText,
		Messages:     []models.Message{{Role: models.RoleUser, Content: taskText}},
		MaxCycles:    cfg.MaxCycles,
		Capabilities: parent.Capabilities,
	}
	return rt.Run(ctx, child, token.Child(), NoopEventSink{})
}
