package agent

import (
	"log/slog"
	"time"
)

// RuntimeOptions configures an Agent Runtime instance shared across the
// tasks it drives. Per-task knobs (MaxCycles, memory thresholds, tool
// capabilities) live on models.AgentTask instead; RuntimeOptions covers
// process-wide defaults that apply regardless of which task is running.
type RuntimeOptions struct {
	// CycleTimeout bounds a single cycle's model turn plus tool calls.
	CycleTimeout time.Duration

	// ToolCallRunner is the config handed to every ToolCallRunner this
	// runtime constructs.
	ToolCallRunner ToolCallRunnerConfig

	// MaxToolCallsPerCycle limits how many tool calls a single cycle may
	// dispatch before the runtime forces a wait_user directive. Zero means
	// unlimited.
	MaxToolCallsPerCycle int

	// CheckpointEveryCycle persists a Checkpoint to the State Store after
	// every cycle rather than only at run boundaries.
	CheckpointEveryCycle bool

	// Logger receives runtime diagnostics.
	Logger *slog.Logger
}

// DefaultRuntimeOptions returns the baseline runtime options.
func DefaultRuntimeOptions() RuntimeOptions {
	return RuntimeOptions{
		CycleTimeout:         5 * time.Minute,
		ToolCallRunner:       DefaultToolCallRunnerConfig(),
		MaxToolCallsPerCycle: 0,
		CheckpointEveryCycle: true,
		Logger:               slog.Default(),
	}
}

// mergeRuntimeOptions overlays any non-zero field of override onto base,
// following the same "sanitize a struct copy, fill zero fields from
// defaults" idiom used for AgentTask.
func mergeRuntimeOptions(base RuntimeOptions, override RuntimeOptions) RuntimeOptions {
	merged := base
	if override.CycleTimeout > 0 {
		merged.CycleTimeout = override.CycleTimeout
	}
	if override.ToolCallRunner.PerToolTimeout > 0 {
		merged.ToolCallRunner = override.ToolCallRunner
	}
	if override.MaxToolCallsPerCycle > 0 {
		merged.MaxToolCallsPerCycle = override.MaxToolCallsPerCycle
	}
	if override.CheckpointEveryCycle {
		merged.CheckpointEveryCycle = true
	}
	if override.Logger != nil {
		merged.Logger = override.Logger
	}
	return merged
}
