package agent

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/haasonsaas/agentcore/internal/compaction"
	"github.com/haasonsaas/agentcore/pkg/models"
)

// MemoryState tracks whether a task's history currently needs compaction.
type MemoryState string

const (
	MemoryIdle       MemoryState = "idle"
	MemoryCompacting MemoryState = "compacting"
)

// MemoryManagerConfig configures automatic history compaction.
type MemoryManagerConfig struct {
	// ContextWindowTokens is the model's total context window; usage is
	// measured against it. Falls back to compaction.DefaultContextWindow.
	ContextWindowTokens int

	// MaxHistoryShare is the fraction of the context window the retained
	// (unsummarized) tail of history may occupy after a compaction.
	MaxHistoryShare float64

	Summarization *compaction.SummarizationConfig
}

// DefaultMemoryManagerConfig returns sensible defaults.
func DefaultMemoryManagerConfig() MemoryManagerConfig {
	return MemoryManagerConfig{
		ContextWindowTokens: compaction.DefaultContextWindow,
		MaxHistoryShare:     0.6,
		Summarization:       compaction.DefaultSummarizationConfig(),
	}
}

// MemoryManager decides when a task's transcript has grown past its
// configured threshold and, when it has, replaces the oldest chunk of
// history with a single summary message produced by a Summarizer, then
// repairs the result so tool call/result pairing survives the cut.
//
// Threshold evaluation follows the task's own MemoryCompactThreshold /
// MemoryThresholdPercentage rather than a package-wide default, so two
// tasks running concurrently against different models can compact at
// different points.
type MemoryManager struct {
	mu         sync.Mutex
	config     MemoryManagerConfig
	summarizer compaction.Summarizer
	state      map[string]MemoryState
}

// NewMemoryManager creates a manager backed by the given Summarizer. A nil
// summarizer disables compaction entirely; ShouldCompact still reports
// threshold crossings but Compact becomes a no-op passthrough.
func NewMemoryManager(summarizer compaction.Summarizer, config MemoryManagerConfig) *MemoryManager {
	if config.ContextWindowTokens <= 0 {
		config.ContextWindowTokens = compaction.DefaultContextWindow
	}
	if config.MaxHistoryShare <= 0 {
		config.MaxHistoryShare = 0.6
	}
	if config.Summarization == nil {
		config.Summarization = compaction.DefaultSummarizationConfig()
	}
	return &MemoryManager{
		config:     config,
		summarizer: summarizer,
		state:      make(map[string]MemoryState),
	}
}

// ShouldCompact reports whether the task's current history has crossed its
// configured compaction threshold, by both an absolute token ceiling
// (MemoryCompactThreshold) and a percentage-of-context-window ceiling
// (MemoryThresholdPercentage).
func (m *MemoryManager) ShouldCompact(task *models.AgentTask) bool {
	if task == nil || m.summarizer == nil {
		return false
	}
	tokens := estimateTaskTokens(task.Messages)

	if task.MemoryCompactThreshold > 0 && tokens >= task.MemoryCompactThreshold {
		return true
	}
	if task.MemoryThresholdPercentage > 0 {
		window := m.config.ContextWindowTokens
		usagePercent := tokens * 100 / window
		if usagePercent >= task.MemoryThresholdPercentage {
			return true
		}
	}
	return false
}

// Compact summarizes the oldest share of task.Messages and splices the
// summary in as a single system message ahead of the retained tail,
// repairing tool call/result pairing across the cut. It mutates
// task.Messages in place and returns the number of messages dropped.
func (m *MemoryManager) Compact(ctx context.Context, task *models.AgentTask) (int, error) {
	if task == nil || m.summarizer == nil {
		return 0, nil
	}

	m.mu.Lock()
	m.state[task.TaskID] = MemoryCompacting
	m.mu.Unlock()
	defer func() {
		m.mu.Lock()
		m.state[task.TaskID] = MemoryIdle
		m.mu.Unlock()
	}()

	converted := toCompactionMessages(task.Messages)
	result := compaction.PruneHistoryForContextShare(
		converted,
		m.config.ContextWindowTokens,
		m.config.MaxHistoryShare,
		compaction.DefaultParts,
	)
	if result.DroppedMessages == 0 {
		return 0, nil
	}

	dropped := converted[:result.DroppedMessages]
	summary, err := compaction.SummarizeWithFallback(ctx, dropped, m.summarizer, m.config.Summarization)
	if err != nil {
		return 0, fmt.Errorf("summarize dropped history: %w", err)
	}

	// PruneHistoryForContextShare only ever drops a contiguous prefix, so the
	// retained tail can be sliced straight from the original messages —
	// preserving ToolCalls/ToolCallID exactly rather than round-tripping
	// through the lossy compaction.Message shape.
	retained := append([]models.Message(nil), task.Messages[result.DroppedMessages:]...)
	rebuilt := make([]models.Message, 0, len(retained)+1)
	if summary != "" {
		rebuilt = append(rebuilt, models.Message{
			Role:    models.RoleSystem,
			Content: "Summary of earlier conversation:\n" + summary,
		})
	}
	rebuilt = append(rebuilt, retained...)

	task.Messages = RepairTranscript(rebuilt)
	return result.DroppedMessages, nil
}

// State returns the manager's last-known compaction state for a task.
func (m *MemoryManager) State(taskID string) MemoryState {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.state[taskID]; ok {
		return s
	}
	return MemoryIdle
}

func estimateTaskTokens(messages []models.Message) int {
	return compaction.EstimateMessagesTokens(toCompactionMessages(messages))
}

func toCompactionMessages(messages []models.Message) []*compaction.Message {
	out := make([]*compaction.Message, 0, len(messages))
	for _, msg := range messages {
		out = append(out, &compaction.Message{
			Role:    string(msg.Role),
			Content: msg.Content,
			ID:      msg.ToolCallID,
		})
	}
	return out
}

// ChatClientSummarizer adapts a ChatClient into a compaction.Summarizer,
// so the same Chat Client backend a task uses for its cycles can also
// produce its memory summaries.
type ChatClientSummarizer struct {
	Client ChatClient
	Model  string
}

// GenerateSummary asks the underlying ChatClient, with tool calling
// disabled, to summarize the given chunk of dropped history.
func (s *ChatClientSummarizer) GenerateSummary(ctx context.Context, messages []*compaction.Message, config *compaction.SummarizationConfig) (string, error) {
	model := s.Model
	if config != nil && config.Model != "" {
		model = config.Model
	}

	prompt := compaction.FormatMessagesForSummary(messages)
	if config != nil && config.PreviousSummary != "" {
		prompt = "Previous summary:\n" + config.PreviousSummary + "\n\n" + prompt
	}
	if config != nil && config.CustomInstructions != "" {
		prompt = config.CustomInstructions + "\n\n" + prompt
	}

	req := &CompletionRequest{
		Model: model,
		System: "Summarize the following conversation excerpt concisely, preserving " +
			"any durable facts, decisions, and open tasks. Do not invent details.",
		Messages: []models.Message{{Role: models.RoleUser, Content: prompt}},
	}
	if config != nil && config.ReserveTokens > 0 {
		req.MaxTokens = config.ReserveTokens
	}

	chunks, err := s.Client.Complete(ctx, req)
	if err != nil {
		return "", fmt.Errorf("summarizer completion: %w", err)
	}

	var text strings.Builder
	for chunk := range chunks {
		if chunk.Error != nil {
			return "", fmt.Errorf("summarizer completion: %w", chunk.Error)
		}
		text.WriteString(chunk.Text)
	}
	return text.String(), nil
}

