package models

// Checkpoint is a snapshot of a task sufficient for any worker to resume it.
// A single task has at most one current checkpoint; the Version field is a
// monotonic counter used by the State Store for optimistic concurrency
// (conditional writes keyed on the version the caller last observed).
type Checkpoint struct {
	TaskID string `json:"task_id"`

	Status TaskStatus `json:"status"`

	// Messages is the full message list at the moment of the snapshot.
	Messages []Message `json:"messages"`

	// CycleIndex is the index of the next cycle to run (1-based).
	CycleIndex int `json:"cycle_index"`

	Cycles []CycleRecord `json:"cycles"`

	TokenUsage TokenUsage `json:"token_usage"`

	// PendingDirective carries a directive decided mid-cycle (e.g. by a
	// polling RUNNING/BATCH_RUNNING result) that the next cycle must honor.
	PendingDirective Directive `json:"pending_directive,omitempty"`

	// Version is incremented on every successful save. A save whose
	// ExpectedVersion does not match the store's current version is
	// rejected so the caller can retry its load-modify-save cycle.
	Version int64 `json:"version"`
}

// RuntimeRecipe is a serializable bundle letting a distributed worker
// reconstruct an equivalent Agent Runtime for a task without sharing memory
// with the process that enqueued it.
type RuntimeRecipe struct {
	SettingsFile string `json:"settings_file,omitempty"`
	Backend      string `json:"backend"`
	Model        string `json:"model"`
	Workspace    string `json:"workspace,omitempty"`

	TimeoutSeconds int `json:"timeout_seconds,omitempty"`

	// HookClassPaths names hook implementations to attach, resolved by the
	// worker's own hook registry (the recipe carries identifiers, never
	// closures or live objects).
	HookClassPaths []string `json:"hook_class_paths,omitempty"`
}
