package agent

import (
	"testing"

	"github.com/haasonsaas/agentcore/pkg/models"
)

func TestRepairTranscriptDropsOrphanToolResult(t *testing.T) {
	history := []models.Message{
		{Role: models.RoleUser, Content: "hi"},
		{Role: models.RoleTool, ToolCallID: "missing", Content: "orphan"},
	}
	repaired := RepairTranscript(history)
	if len(repaired) != 1 {
		t.Fatalf("expected orphan tool result dropped, got %+v", repaired)
	}
}

func TestRepairTranscriptDropsUnansweredTrailingCall(t *testing.T) {
	history := []models.Message{
		{Role: models.RoleUser, Content: "hi"},
		{Role: models.RoleAssistant, ToolCalls: []models.ToolCall{{ID: "1", Name: "bash"}}},
	}
	repaired := RepairTranscript(history)
	if len(repaired[1].ToolCalls) != 0 {
		t.Fatalf("expected unanswered trailing call dropped, got %+v", repaired[1])
	}
}

func TestRepairTranscriptKeepsValidPairing(t *testing.T) {
	history := []models.Message{
		{Role: models.RoleUser, Content: "hi"},
		{Role: models.RoleAssistant, ToolCalls: []models.ToolCall{{ID: "1", Name: "bash"}}},
		{Role: models.RoleTool, ToolCallID: "1", Content: "ok"},
	}
	repaired := RepairTranscript(history)
	if len(repaired) != 3 || len(repaired[1].ToolCalls) != 1 {
		t.Fatalf("expected pairing preserved, got %+v", repaired)
	}
}
