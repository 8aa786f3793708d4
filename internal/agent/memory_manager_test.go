package agent

import (
	"context"
	"strings"
	"testing"

	"github.com/haasonsaas/agentcore/internal/compaction"
	"github.com/haasonsaas/agentcore/pkg/models"
)

type stubSummarizer struct {
	summary string
	err     error
}

func (s *stubSummarizer) GenerateSummary(ctx context.Context, messages []*compaction.Message, config *compaction.SummarizationConfig) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	if s.summary != "" {
		return s.summary, nil
	}
	return "stub summary", nil
}

func bigMessage(role models.Role, n int) models.Message {
	return models.Message{Role: role, Content: strings.Repeat("x", n)}
}

func TestMemoryManagerShouldCompactOnAbsoluteThreshold(t *testing.T) {
	mgr := NewMemoryManager(&stubSummarizer{}, DefaultMemoryManagerConfig())
	task := &models.AgentTask{
		TaskID:                 "t1",
		MemoryCompactThreshold: 10,
		Messages:               []models.Message{bigMessage(models.RoleUser, 1000)},
	}
	if !mgr.ShouldCompact(task) {
		t.Fatal("expected ShouldCompact true when token estimate exceeds threshold")
	}
}

func TestMemoryManagerShouldCompactNilSummarizerDisabled(t *testing.T) {
	mgr := NewMemoryManager(nil, DefaultMemoryManagerConfig())
	task := &models.AgentTask{MemoryCompactThreshold: 1, Messages: []models.Message{bigMessage(models.RoleUser, 1000)}}
	if mgr.ShouldCompact(task) {
		t.Fatal("expected ShouldCompact false with nil summarizer")
	}
}

func TestMemoryManagerCompactPreservesToolCallPairing(t *testing.T) {
	mgr := NewMemoryManager(&stubSummarizer{summary: "earlier work summarized"}, MemoryManagerConfig{
		ContextWindowTokens: 50,
		MaxHistoryShare:     0.5,
		Summarization:       compaction.DefaultSummarizationConfig(),
	})

	task := &models.AgentTask{
		TaskID: "t2",
		Messages: []models.Message{
			bigMessage(models.RoleUser, 200),
			bigMessage(models.RoleAssistant, 200),
			{Role: models.RoleAssistant, ToolCalls: []models.ToolCall{{ID: "call-1", Name: "bash"}}},
			{Role: models.RoleTool, ToolCallID: "call-1", Content: "ok"},
		},
	}

	dropped, err := mgr.Compact(context.Background(), task)
	if err != nil {
		t.Fatalf("Compact: %v", err)
	}
	if dropped == 0 {
		t.Fatal("expected some messages dropped")
	}

	for i, msg := range task.Messages {
		if msg.Role == models.RoleTool {
			found := false
			for j := 0; j < i; j++ {
				for _, call := range task.Messages[j].ToolCalls {
					if call.ID == msg.ToolCallID {
						found = true
					}
				}
			}
			if !found {
				t.Fatalf("tool result at %d has no preceding matching call: %+v", i, task.Messages)
			}
		}
	}
}
