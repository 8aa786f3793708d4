package agent

import "github.com/haasonsaas/agentcore/pkg/models"

// RepairTranscript restores the invariant documented on models.Message: an
// assistant message carrying ToolCalls must be immediately followed, in
// declared order, by one Role=tool message per call. Memory compaction and
// crash-recovery from a Checkpoint can otherwise leave a dangling tool call
// with no matching result (the process died mid-cycle) or a tool result
// whose call was pruned out from under it; both would otherwise be rejected
// by every provider's function-calling API on the next turn.
//
// Orphaned tool results (no pending call) are dropped. Tool calls left
// unanswered at the end of the transcript are dropped from their assistant
// message rather than synthesizing a fake result, since a synthesized
// success/error would misrepresent what actually happened.
func RepairTranscript(history []models.Message) []models.Message {
	if len(history) == 0 {
		return history
	}

	pendingOrder := make([]string, 0)
	pending := make(map[string]bool)
	repaired := make([]models.Message, 0, len(history))

	for _, msg := range history {
		switch msg.Role {
		case models.RoleAssistant:
			pendingOrder = pendingOrder[:0]
			for k := range pending {
				delete(pending, k)
			}
			fixed := msg
			if len(msg.ToolCalls) > 0 {
				kept := make([]models.ToolCall, 0, len(msg.ToolCalls))
				for _, call := range msg.ToolCalls {
					if call.ID == "" {
						continue
					}
					pending[call.ID] = true
					pendingOrder = append(pendingOrder, call.ID)
					kept = append(kept, call)
				}
				fixed.ToolCalls = kept
			}
			repaired = append(repaired, fixed)
		case models.RoleTool:
			if !pending[msg.ToolCallID] {
				continue
			}
			delete(pending, msg.ToolCallID)
			pendingOrder = removeID(pendingOrder, msg.ToolCallID)
			repaired = append(repaired, msg)
		default:
			repaired = append(repaired, msg)
		}
	}

	return dropUnansweredTrailingCalls(repaired)
}

// dropUnansweredTrailingCalls removes any ToolCalls from the transcript's
// final assistant message that never received a matching tool result,
// leaving the message as plain text-only if nothing survives.
func dropUnansweredTrailingCalls(history []models.Message) []models.Message {
	if len(history) == 0 {
		return history
	}
	last := len(history) - 1
	if history[last].Role != models.RoleAssistant || len(history[last].ToolCalls) == 0 {
		return history
	}

	answered := make(map[string]bool)
	for i := 0; i < last; i++ {
		if history[i].Role == models.RoleTool {
			answered[history[i].ToolCallID] = true
		}
	}

	kept := make([]models.ToolCall, 0, len(history[last].ToolCalls))
	for _, call := range history[last].ToolCalls {
		if answered[call.ID] {
			kept = append(kept, call)
		}
	}
	history[last].ToolCalls = kept
	return history
}

func removeID(ids []string, target string) []string {
	for i, id := range ids {
		if id == target {
			copy(ids[i:], ids[i+1:])
			return ids[:len(ids)-1]
		}
	}
	return ids
}
