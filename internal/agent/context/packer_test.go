package context

import (
	"strings"
	"testing"
	"time"

	"github.com/haasonsaas/agentcore/pkg/models"
)

func TestPacker_IncludesIncomingMessage(t *testing.T) {
	packer := NewPacker(DefaultPackOptions())
	history := []*models.Message{
		{ID: "1", Role: models.RoleUser, Content: "Hello"},
		{ID: "2", Role: models.RoleAssistant, Content: "Hi there"},
	}
	incoming := &models.Message{ID: "3", Role: models.RoleUser, Content: "How are you?"}

	packed, err := packer.Pack(history, incoming, nil)
	if err != nil {
		t.Fatalf("Pack failed: %v", err)
	}

	// Should have history + incoming
	if len(packed) != 3 {
		t.Errorf("expected 3 messages, got %d", len(packed))
	}

	// Last message should be incoming
	last := packed[len(packed)-1]
	if last.ID != "3" {
		t.Errorf("last message should be incoming, got ID %s", last.ID)
	}
	if last.Content != "How are you?" {
		t.Errorf("last message content mismatch")
	}
}

func TestPacker_RespectsMaxMessages(t *testing.T) {
	opts := DefaultPackOptions()
	opts.MaxMessages = 3 // Only allow 3 messages total
	packer := NewPacker(opts)

	// Create 10 history messages
	history := make([]*models.Message, 10)
	for i := 0; i < 10; i++ {
		history[i] = &models.Message{
			ID:      string(rune('a' + i)),
			Role:    models.RoleUser,
			Content: strings.Repeat("x", 100),
		}
	}
	incoming := &models.Message{ID: "incoming", Role: models.RoleUser, Content: "hi"}

	packed, err := packer.Pack(history, incoming, nil)
	if err != nil {
		t.Fatalf("Pack failed: %v", err)
	}

	// Should respect MaxMessages (3)
	if len(packed) > opts.MaxMessages {
		t.Errorf("packed %d messages, exceeds MaxMessages %d", len(packed), opts.MaxMessages)
	}

	// Should include incoming message
	found := false
	for _, m := range packed {
		if m.ID == "incoming" {
			found = true
			break
		}
	}
	if !found {
		t.Error("incoming message not included in packed result")
	}
}

func TestPacker_RespectsMaxChars(t *testing.T) {
	opts := DefaultPackOptions()
	opts.MaxChars = 500 // Very small char budget
	packer := NewPacker(opts)

	// Create messages with 200 chars each
	history := make([]*models.Message, 5)
	for i := 0; i < 5; i++ {
		history[i] = &models.Message{
			ID:      string(rune('a' + i)),
			Role:    models.RoleUser,
			Content: strings.Repeat("x", 200),
		}
	}
	incoming := &models.Message{ID: "incoming", Role: models.RoleUser, Content: strings.Repeat("y", 50)}

	packed, err := packer.Pack(history, incoming, nil)
	if err != nil {
		t.Fatalf("Pack failed: %v", err)
	}

	// Count total chars
	totalChars := 0
	for _, m := range packed {
		totalChars += len(m.Content)
	}

	if totalChars > opts.MaxChars {
		t.Errorf("total chars %d exceeds MaxChars %d", totalChars, opts.MaxChars)
	}

	// Should prioritize recent messages (history should include most recent ones)
	// The last history message should be included if budget allows
	if len(packed) > 1 {
		// Check that we have the most recent history message (e) if any history included
		foundRecent := false
		for _, m := range packed {
			if m.ID == "e" { // Last history message
				foundRecent = true
				break
			}
		}
		// If any history is included, it should be the most recent
		for _, m := range packed {
			if m.ID != "incoming" && m.ID == "a" && foundRecent {
				t.Error("oldest message included but not newest")
			}
		}
	}
}

func TestPacker_TruncatesToolResults(t *testing.T) {
	opts := DefaultPackOptions()
	opts.MaxToolResultChars = 100
	packer := NewPacker(opts)

	history := []*models.Message{
		{
			ID:         "1",
			Role:       models.RoleTool,
			ToolCallID: "tc1",
			Content:    strings.Repeat("x", 500), // Exceeds limit
		},
	}
	incoming := &models.Message{ID: "2", Role: models.RoleUser, Content: "hi"}

	packed, err := packer.Pack(history, incoming, nil)
	if err != nil {
		t.Fatalf("Pack failed: %v", err)
	}

	// Find the tool result message
	var toolMsg *models.Message
	for _, m := range packed {
		if m.Role == models.RoleTool {
			toolMsg = m
			break
		}
	}

	if toolMsg == nil {
		t.Fatal("tool message not found in packed result")
	}

	// Check truncation
	content := toolMsg.Content
	if len(content) > opts.MaxToolResultChars+20 { // +20 for truncation suffix
		t.Errorf("tool result not truncated: len=%d, expected ~%d", len(content), opts.MaxToolResultChars)
	}
	if !strings.Contains(content, "...[truncated]") {
		t.Error("truncated tool result missing truncation marker")
	}
}

func TestPacker_IncludesSummary(t *testing.T) {
	packer := NewPacker(DefaultPackOptions())

	history := []*models.Message{
		{ID: "1", Role: models.RoleUser, Content: "Hello"},
	}
	incoming := &models.Message{ID: "2", Role: models.RoleUser, Content: "hi"}
	summary := &models.Message{
		ID:      "summary",
		Role:    models.RoleSystem,
		Content: "This is a summary",
		Metadata: map[string]any{
			SummaryMetadataKey: true,
		},
	}

	packed, err := packer.Pack(history, incoming, summary)
	if err != nil {
		t.Fatalf("Pack failed: %v", err)
	}

	// Summary should be first
	if len(packed) < 1 {
		t.Fatal("packed result is empty")
	}
	if packed[0].ID != "summary" {
		t.Errorf("summary should be first, got ID %s", packed[0].ID)
	}
}

func TestPacker_FiltersSummaryMessagesFromHistory(t *testing.T) {
	packer := NewPacker(DefaultPackOptions())

	// History contains a summary message
	history := []*models.Message{
		{ID: "1", Role: models.RoleUser, Content: "Hello"},
		{
			ID:      "old-summary",
			Role:    models.RoleSystem,
			Content: "Old summary",
			Metadata: map[string]any{
				SummaryMetadataKey: true,
			},
		},
		{ID: "2", Role: models.RoleAssistant, Content: "Hi"},
	}
	incoming := &models.Message{ID: "3", Role: models.RoleUser, Content: "hi"}

	// Pass a different summary
	newSummary := &models.Message{
		ID:      "new-summary",
		Role:    models.RoleSystem,
		Content: "New summary",
		Metadata: map[string]any{
			SummaryMetadataKey: true,
		},
	}

	packed, err := packer.Pack(history, incoming, newSummary)
	if err != nil {
		t.Fatalf("Pack failed: %v", err)
	}

	// Should not include old summary from history
	for _, m := range packed {
		if m.ID == "old-summary" {
			t.Error("old summary from history should be filtered out")
		}
	}

	// Should include new summary
	found := false
	for _, m := range packed {
		if m.ID == "new-summary" {
			found = true
			break
		}
	}
	if !found {
		t.Error("new summary should be included")
	}
}

func TestFindLatestSummary(t *testing.T) {
	history := []*models.Message{
		{ID: "1", Role: models.RoleUser, Content: "Hello"},
		{
			ID:      "summary1",
			Role:    models.RoleSystem,
			Content: "First summary",
			Metadata: map[string]any{
				SummaryMetadataKey: true,
			},
		},
		{ID: "2", Role: models.RoleAssistant, Content: "Hi"},
		{
			ID:      "summary2",
			Role:    models.RoleSystem,
			Content: "Second summary",
			Metadata: map[string]any{
				SummaryMetadataKey: true,
			},
		},
		{ID: "3", Role: models.RoleUser, Content: "Thanks"},
	}

	summary := FindLatestSummary(history)
	if summary == nil {
		t.Fatal("expected to find summary")
	}
	if summary.ID != "summary2" {
		t.Errorf("expected latest summary (summary2), got %s", summary.ID)
	}
}

func TestFindLatestSummary_NoSummary(t *testing.T) {
	history := []*models.Message{
		{ID: "1", Role: models.RoleUser, Content: "Hello"},
		{ID: "2", Role: models.RoleAssistant, Content: "Hi"},
	}

	summary := FindLatestSummary(history)
	if summary != nil {
		t.Error("expected nil when no summary exists")
	}
}

func TestMessagesSinceSummary(t *testing.T) {
	summary := &models.Message{
		ID:      "summary",
		Role:    models.RoleSystem,
		Content: "Summary",
		Metadata: map[string]any{
			SummaryMetadataKey: true,
		},
	}

	history := []*models.Message{
		{ID: "1", Role: models.RoleUser, Content: "Hello"},
		summary,
		{ID: "2", Role: models.RoleAssistant, Content: "Hi"},
		{ID: "3", Role: models.RoleUser, Content: "Thanks"},
	}

	since := MessagesSinceSummary(history, summary)
	if len(since) != 2 {
		t.Errorf("expected 2 messages after summary, got %d", len(since))
	}
	if since[0].ID != "2" || since[1].ID != "3" {
		t.Error("messages after summary are incorrect")
	}
}

// Diagnostics Tests

func TestPackWithDiagnostics_BasicCounts(t *testing.T) {
	packer := NewPacker(DefaultPackOptions())
	history := []*models.Message{
		{ID: "1", Role: models.RoleUser, Content: "Hello"},
		{ID: "2", Role: models.RoleAssistant, Content: "Hi there"},
	}
	incoming := &models.Message{ID: "3", Role: models.RoleUser, Content: "How are you?"}

	packed, diag, err := packer.PackWithDiagnostics(history, incoming, nil)
	if err != nil {
		t.Fatalf("PackWithDiagnostics failed: %v", err)
	}
	if len(packed) != 3 {
		t.Fatalf("expected 3 packed messages, got %d", len(packed))
	}
	if diag.Candidates != 3 {
		t.Errorf("expected 3 candidates, got %d", diag.Candidates)
	}
	if diag.Included != 3 {
		t.Errorf("expected 3 included, got %d", diag.Included)
	}
	if diag.Dropped != 0 {
		t.Errorf("expected 0 dropped, got %d", diag.Dropped)
	}
}

func TestPackWithDiagnostics_BudgetTracking(t *testing.T) {
	opts := DefaultPackOptions()
	packer := NewPacker(opts)
	history := []*models.Message{
		{ID: "1", Role: models.RoleUser, Content: strings.Repeat("x", 100)},
	}
	incoming := &models.Message{ID: "2", Role: models.RoleUser, Content: strings.Repeat("y", 50)}

	_, diag, err := packer.PackWithDiagnostics(history, incoming, nil)
	if err != nil {
		t.Fatalf("PackWithDiagnostics failed: %v", err)
	}
	if diag.BudgetChars != opts.MaxChars {
		t.Errorf("expected budget chars %d, got %d", opts.MaxChars, diag.BudgetChars)
	}
	if diag.BudgetMessages != opts.MaxMessages {
		t.Errorf("expected budget messages %d, got %d", opts.MaxMessages, diag.BudgetMessages)
	}
	if diag.UsedChars != 150 {
		t.Errorf("expected used chars 150, got %d", diag.UsedChars)
	}
	if diag.UsedMessages != 2 {
		t.Errorf("expected used messages 2, got %d", diag.UsedMessages)
	}
}

func TestPackWithDiagnostics_DroppedDueToOverBudget(t *testing.T) {
	opts := DefaultPackOptions()
	opts.MaxChars = 250
	packer := NewPacker(opts)

	history := make([]*models.Message, 5)
	for i := 0; i < 5; i++ {
		history[i] = &models.Message{
			ID:      string(rune('a' + i)),
			Role:    models.RoleUser,
			Content: strings.Repeat("x", 100),
		}
	}
	incoming := &models.Message{ID: "incoming", Role: models.RoleUser, Content: "hi"}

	_, diag, err := packer.PackWithDiagnostics(history, incoming, nil)
	if err != nil {
		t.Fatalf("PackWithDiagnostics failed: %v", err)
	}
	if diag.Dropped == 0 {
		t.Error("expected at least one dropped message")
	}
	for _, item := range diag.Items {
		if !item.Included && item.Reason != models.ContextReasonOverBudget {
			t.Errorf("dropped item %q has unexpected reason %q", item.ID, item.Reason)
		}
	}
}

func TestPackWithDiagnostics_SummaryTracking(t *testing.T) {
	packer := NewPacker(DefaultPackOptions())
	history := []*models.Message{
		{ID: "1", Role: models.RoleUser, Content: "Hello"},
	}
	incoming := &models.Message{ID: "2", Role: models.RoleUser, Content: "hi"}
	summary := &models.Message{
		ID:      "summary",
		Role:    models.RoleSystem,
		Content: "This is a summary",
		Metadata: map[string]any{
			SummaryMetadataKey: true,
		},
	}

	_, diag, err := packer.PackWithDiagnostics(history, incoming, summary)
	if err != nil {
		t.Fatalf("PackWithDiagnostics failed: %v", err)
	}
	if !diag.SummaryUsed {
		t.Error("expected SummaryUsed to be true")
	}
	if diag.SummaryChars != len(summary.Content) {
		t.Errorf("expected summary chars %d, got %d", len(summary.Content), diag.SummaryChars)
	}
}

func TestPackWithDiagnostics_ItemKindClassification(t *testing.T) {
	packer := NewPacker(DefaultPackOptions())
	history := []*models.Message{
		{ID: "1", Role: models.RoleUser, Content: "Hello"},
		{ID: "2", Role: models.RoleTool, ToolCallID: "tc1", Content: "result"},
	}
	incoming := &models.Message{ID: "3", Role: models.RoleUser, Content: "hi"}

	_, diag, err := packer.PackWithDiagnostics(history, incoming, nil)
	if err != nil {
		t.Fatalf("PackWithDiagnostics failed: %v", err)
	}

	kinds := make(map[string]string)
	for _, item := range diag.Items {
		kinds[item.ID] = string(item.Kind)
	}
	if kinds["2"] != "tool" {
		t.Errorf("expected message 2 to be classified as tool, got %q", kinds["2"])
	}
	if kinds["3"] != "incoming" {
		t.Errorf("expected message 3 to be classified as incoming, got %q", kinds["3"])
	}
}

func TestPackWithDiagnostics_ItemIDs(t *testing.T) {
	packer := NewPacker(DefaultPackOptions())
	history := []*models.Message{
		{ID: "abc", Role: models.RoleUser, Content: "Hello"},
	}
	incoming := &models.Message{ID: "xyz", Role: models.RoleUser, Content: "hi"}

	_, diag, err := packer.PackWithDiagnostics(history, incoming, nil)
	if err != nil {
		t.Fatalf("PackWithDiagnostics failed: %v", err)
	}

	found := false
	for _, item := range diag.Items {
		if item.ID == "abc" {
			found = true
		}
	}
	if !found {
		t.Error("expected item with ID 'abc' in diagnostics")
	}
}

func TestGetMessagesToSummarize(t *testing.T) {
	history := []*models.Message{
		{ID: "1", Role: models.RoleUser, Content: "Hello", CreatedAt: time.Now().Add(-5 * time.Hour)},
		{ID: "2", Role: models.RoleAssistant, Content: "Hi", CreatedAt: time.Now().Add(-4 * time.Hour)},
		{ID: "3", Role: models.RoleUser, Content: "How are you?", CreatedAt: time.Now().Add(-3 * time.Hour)},
		{ID: "4", Role: models.RoleAssistant, Content: "Good!", CreatedAt: time.Now().Add(-2 * time.Hour)},
		{ID: "5", Role: models.RoleUser, Content: "Great", CreatedAt: time.Now().Add(-1 * time.Hour)},
	}

	// Keep 2 recent, should summarize 3
	toSummarize := GetMessagesToSummarize(history, nil, 2)
	if len(toSummarize) != 3 {
		t.Errorf("expected 3 messages to summarize, got %d", len(toSummarize))
	}

	// Verify it's the older messages
	for _, m := range toSummarize {
		if m.ID == "4" || m.ID == "5" {
			t.Errorf("recent message %s should not be in summarize list", m.ID)
		}
	}
}

