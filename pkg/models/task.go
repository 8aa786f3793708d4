package models

// AgentType selects which built-in tool families a task's Tool Planner
// exposes beyond the always-on task_finish/ask_user pair.
type AgentType string

const (
	AgentTypeDefault  AgentType = ""
	AgentTypeComputer AgentType = "computer"
)

// Capabilities are the coarse flags the Tool Planner consults when deciding
// which tool schemas are visible for a cycle.
type Capabilities struct {
	UseWorkspace        bool      `json:"use_workspace"`
	AgentType           AgentType `json:"agent_type,omitempty"`
	NativeMultimodal    bool      `json:"native_multimodal"`
	AllowInterruption   bool      `json:"allow_interruption"`
	EnableDocumentTools bool      `json:"enable_document_tools"`
	EnableWorkflowTools bool      `json:"enable_workflow_tools"`
}

// SubAgentConfig is a named sub-task template a parent task can delegate to
// via the create_sub_task / batch_sub_tasks built-in tools.
type SubAgentConfig struct {
	Name         string `json:"name"`
	Model        string `json:"model,omitempty"`
	SystemPrompt string `json:"system_prompt,omitempty"`
	MaxCycles    int    `json:"max_cycles,omitempty"`
}

// Default task-level knobs, applied by SanitizeTask to any zero-valued field.
const (
	DefaultMaxCycles                 = 20
	DefaultMemoryCompactThreshold    = 128_000
	DefaultMemoryThresholdPercentage = 90
)

// AgentTask is the unit of work handed to the Agent Runtime. It is created by
// the caller and thereafter mutated only by the runtime driving it.
type AgentTask struct {
	TaskID       string `json:"task_id"`
	Model        string `json:"model"`
	SystemPrompt string `json:"system_prompt"`
	UserPrompt   string `json:"user_prompt"`

	// Messages is the task's mutable, append-only (per cycle) message list.
	Messages []Message `json:"messages"`

	MaxCycles                 int `json:"max_cycles"`
	MemoryCompactThreshold    int `json:"memory_compact_threshold"`
	MemoryThresholdPercentage int `json:"memory_threshold_percentage"`

	Capabilities Capabilities `json:"capabilities"`

	// SubAgents maps a callable sub-agent name to its task template.
	SubAgents map[string]SubAgentConfig `json:"sub_agents,omitempty"`

	// Workspace is an opaque handle resolved by the caller's Workspace
	// Backend; the runtime never interprets it.
	Workspace string `json:"workspace,omitempty"`

	Metadata map[string]any `json:"metadata,omitempty"`
}

// SubAgentsEnabled reports whether this task has any delegatable sub-agents.
func (t *AgentTask) SubAgentsEnabled() bool {
	return t != nil && len(t.SubAgents) > 0
}

// MetadataInt reads an integer-valued metadata knob, returning fallback if
// absent or of an unexpected type. Metadata commonly round-trips through
// JSON, so float64 is accepted alongside int.
func (t *AgentTask) MetadataInt(key string, fallback int) int {
	if t == nil || t.Metadata == nil {
		return fallback
	}
	switch v := t.Metadata[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return fallback
}

// MetadataString reads a string-valued metadata knob.
func (t *AgentTask) MetadataString(key, fallback string) string {
	if t == nil || t.Metadata == nil {
		return fallback
	}
	if v, ok := t.Metadata[key].(string); ok && v != "" {
		return v
	}
	return fallback
}

// MetadataBool reads a bool-valued metadata knob.
func (t *AgentTask) MetadataBool(key string, fallback bool) bool {
	if t == nil || t.Metadata == nil {
		return fallback
	}
	if v, ok := t.Metadata[key].(bool); ok {
		return v
	}
	return fallback
}

// SanitizeTask returns a copy of task with zero-valued knobs filled from
// defaults. It never mutates the caller's task, matching the nil-safe
// struct-copy idiom used throughout this runtime's configuration surface.
func SanitizeTask(task AgentTask) AgentTask {
	sanitized := task
	if sanitized.MaxCycles <= 0 {
		sanitized.MaxCycles = DefaultMaxCycles
	}
	if sanitized.MemoryCompactThreshold <= 0 {
		sanitized.MemoryCompactThreshold = DefaultMemoryCompactThreshold
	}
	if sanitized.MemoryThresholdPercentage <= 0 {
		sanitized.MemoryThresholdPercentage = DefaultMemoryThresholdPercentage
	}
	return sanitized
}

// TaskStatus is the terminal (or running) state of an AgentTask.
type TaskStatus string

const (
	TaskPending   TaskStatus = "pending"
	TaskRunning   TaskStatus = "running"
	TaskCompleted TaskStatus = "completed"
	TaskWaitUser  TaskStatus = "wait_user"
	TaskFailed    TaskStatus = "failed"
	TaskMaxCycles TaskStatus = "max_cycles"
)

// AgentResult is the outcome returned to the caller once a task reaches a
// terminal state (or is suspended awaiting user input).
type AgentResult struct {
	TaskID      string        `json:"task_id"`
	Status      TaskStatus    `json:"status"`
	FinalAnswer string        `json:"final_answer,omitempty"`
	Cycles      []CycleRecord `json:"cycles"`
	TokenUsage  TokenUsage    `json:"token_usage"`
	Error       string        `json:"error,omitempty"`
}

// TodoStatus is the lifecycle state of a TodoItem.
type TodoStatus string

const (
	TodoPending    TodoStatus = "pending"
	TodoInProgress TodoStatus = "in_progress"
	TodoCompleted  TodoStatus = "completed"
)

// TodoPriority ranks a TodoItem for display purposes only; it has no effect
// on runtime behavior.
type TodoPriority string

const (
	TodoPriorityLow    TodoPriority = "low"
	TodoPriorityMedium TodoPriority = "medium"
	TodoPriorityHigh   TodoPriority = "high"
)

// TodoItem is one entry of a task's todo list, maintained by the todo_write
// built-in tool with full-list replacement semantics.
type TodoItem struct {
	ID       string       `json:"id"`
	Title    string       `json:"title"`
	Status   TodoStatus   `json:"status"`
	Priority TodoPriority `json:"priority,omitempty"`
}
