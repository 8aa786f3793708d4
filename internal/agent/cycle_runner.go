package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/haasonsaas/agentcore/pkg/models"
)

// CycleRunnerConfig configures the Cycle Runner's model turn.
type CycleRunnerConfig struct {
	// MaxTokens bounds the generated response. Zero uses the client's
	// default.
	MaxTokens int

	EnableThinking       bool
	ThinkingBudgetTokens int
}

// DefaultCycleRunnerConfig returns sensible defaults.
func DefaultCycleRunnerConfig() CycleRunnerConfig {
	return CycleRunnerConfig{MaxTokens: 4096}
}

// CycleRunner drives exactly one LLM turn of a task: it builds the outgoing
// message list, calls the task's ChatClient, and folds the streamed chunks
// into a models.CycleRecord. It never dispatches tool calls itself — that is
// the Tool Call Runner's job, run by the Agent Runtime immediately after a
// cycle returns.
type CycleRunner struct {
	client  ChatClient
	planner *Planner
	config  CycleRunnerConfig
}

// NewCycleRunner builds a runner over client, selecting visible tools for
// each turn from planner.
func NewCycleRunner(client ChatClient, planner *Planner, config CycleRunnerConfig) *CycleRunner {
	if config.MaxTokens <= 0 {
		config.MaxTokens = 4096
	}
	return &CycleRunner{client: client, planner: planner, config: config}
}

// Run executes a single cycle. cycleIndex is 1-based and becomes
// CycleRecord.Index. emitter may be nil, in which case no events are
// surfaced for this turn.
func (r *CycleRunner) Run(ctx context.Context, task *models.AgentTask, cycleIndex int, emitter *EventEmitter) (models.CycleRecord, error) {
	if r.client == nil {
		return models.CycleRecord{}, &CycleError{Index: cycleIndex, Phase: PhaseInit, Cause: ErrNoProvider}
	}

	system := task.SystemPrompt
	if override, ok := systemPromptFromContext(ctx); ok {
		system = override
	}
	model := task.Model
	if override, ok := modelFromContext(ctx); ok {
		model = override
	}

	var tools []ToolSchema
	if r.planner != nil {
		tools = r.planner.Plan(task.Capabilities, task.SubAgentsEnabled())
	}

	req := &CompletionRequest{
		Model:                model,
		System:               system,
		Messages:             append([]models.Message(nil), task.Messages...),
		Tools:                tools,
		MaxTokens:            r.config.MaxTokens,
		EnableThinking:       r.config.EnableThinking,
		ThinkingBudgetTokens: r.config.ThinkingBudgetTokens,
	}

	chunks, err := r.client.Complete(ctx, req)
	if err != nil {
		return models.CycleRecord{}, &CycleError{Index: cycleIndex, Phase: PhaseStream, Cause: err}
	}

	var (
		content   strings.Builder
		reasoning strings.Builder
		toolCalls []models.ToolCall
		usage     models.TokenUsage
	)

	for chunk := range chunks {
		if chunk.Error != nil {
			return models.CycleRecord{}, &CycleError{Index: cycleIndex, Phase: PhaseStream, Cause: chunk.Error}
		}
		if chunk.Text != "" {
			content.WriteString(chunk.Text)
			if content.Len() > MaxResponseTextSize {
				return models.CycleRecord{}, &CycleError{
					Index: cycleIndex, Phase: PhaseStream,
					Cause: fmt.Errorf("response exceeded max size of %d bytes", MaxResponseTextSize),
				}
			}
			if emitter != nil {
				emitter.ModelDelta(chunk.Text)
			}
		}
		if chunk.Thinking != "" {
			reasoning.WriteString(chunk.Thinking)
		}
		if chunk.ToolCall != nil && len(toolCalls) < MaxToolCallsPerIteration {
			toolCalls = append(toolCalls, *chunk.ToolCall)
		}
		if chunk.Done {
			usage = models.TokenUsage{
				PromptTokens:     chunk.InputTokens,
				CompletionTokens: chunk.OutputTokens,
				TotalTokens:      chunk.InputTokens + chunk.OutputTokens,
			}
		}
	}

	assistant := models.Message{
		Role:             models.RoleAssistant,
		Content:          content.String(),
		ReasoningContent: reasoning.String(),
		ToolCalls:        toolCalls,
	}

	if emitter != nil {
		emitter.ModelCompleted(r.client.Name(), model, usage.PromptTokens, usage.CompletionTokens)
	}

	return models.CycleRecord{
		Index:            cycleIndex,
		AssistantMessage: assistant,
		Directive:        models.DirectiveContinue,
		TokenUsage:       usage,
	}, nil
}
