package agent

import (
	"sort"
	"strings"

	"github.com/haasonsaas/agentcore/pkg/models"
)

// Planner selects which registered tools are visible to the LLM for a given
// cycle. Visibility narrows as memory pressure rises (heavier tools are
// hidden first) and widens by task capability (workspace tools only appear
// for workspace-enabled tasks, computer-use tools only for the "computer"
// agent type, and so on).
type Planner struct {
	registry *ToolRegistry

	// alwaysOn tool names are visible regardless of capabilities.
	alwaysOn []string

	// gated maps a capability predicate's name to the tool-name glob
	// patterns it unlocks. Patterns follow matchToolPattern: an exact name,
	// a "prefix.*" glob, or the literal "mcp:*".
	gated map[string][]string
}

// NewPlanner builds a Planner over registry. alwaysOn lists tool names
// visible on every cycle (task_finish, ask_user, todo_write by convention).
func NewPlanner(registry *ToolRegistry, alwaysOn []string) *Planner {
	return &Planner{
		registry: registry,
		alwaysOn: alwaysOn,
		gated:    make(map[string][]string),
	}
}

// Gate registers patterns that become visible only when predicate(caps)
// reports true. capabilityKey is a label used only for diagnostics.
func (p *Planner) Gate(capabilityKey string, patterns []string) {
	p.gated[capabilityKey] = patterns
}

// capabilityPatterns derives the visible tool-name patterns for a
// Capabilities value, beyond the always-on set.
func capabilityPatterns(caps models.Capabilities) []string {
	var patterns []string
	if caps.UseWorkspace {
		patterns = append(patterns, "read_file", "write_file", "list_files", "file_info", "file_str_replace", "workspace_grep")
	}
	if caps.AgentType == models.AgentTypeComputer {
		patterns = append(patterns, "bash", "check_background_command", "read_image")
	}
	if caps.EnableDocumentTools {
		patterns = append(patterns, "document.*")
	}
	if caps.EnableWorkflowTools {
		patterns = append(patterns, "create_sub_task", "batch_sub_tasks")
	}
	return patterns
}

// Plan returns the ToolSchema list visible for a cycle, given the task's
// capabilities and whether the task has any sub-agents configured (gating
// create_sub_task/batch_sub_tasks independently of EnableWorkflowTools).
func (p *Planner) Plan(caps models.Capabilities, subAgentsEnabled bool) []ToolSchema {
	visible := make(map[string]bool, len(p.alwaysOn))
	for _, name := range p.alwaysOn {
		visible[name] = true
	}

	patterns := capabilityPatterns(caps)
	if subAgentsEnabled {
		patterns = append(patterns, "create_sub_task", "batch_sub_tasks")
	}

	for _, handler := range p.registry.All() {
		name := handler.Name()
		if visible[name] {
			continue
		}
		if matchesAnyPattern(patterns, name) {
			visible[name] = true
		}
	}

	schemas := make([]ToolSchema, 0, len(visible))
	for name := range visible {
		handler, ok := p.registry.Get(name)
		if !ok {
			continue
		}
		schemas = append(schemas, ToolSchema{
			Name:        handler.Name(),
			Description: handler.Description(),
			Parameters:  handler.Schema(),
		})
	}
	sort.Slice(schemas, func(i, j int) bool { return schemas[i].Name < schemas[j].Name })
	return schemas
}

func matchesAnyPattern(patterns []string, name string) bool {
	for _, pattern := range patterns {
		if matchToolPattern(pattern, name) {
			return true
		}
	}
	return false
}

// matchToolPattern reports whether toolName satisfies pattern: an exact
// name, a "prefix.*" glob, or the literal "mcp:*" matching any MCP-namespaced
// tool.
func matchToolPattern(pattern, toolName string) bool {
	if pattern == "" || toolName == "" {
		return false
	}
	if pattern == "mcp:*" {
		return strings.HasPrefix(toolName, "mcp:")
	}
	if strings.HasSuffix(pattern, ".*") {
		prefix := strings.TrimSuffix(pattern, "*")
		return strings.HasPrefix(toolName, prefix)
	}
	return pattern == toolName
}
