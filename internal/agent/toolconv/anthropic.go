package toolconv

import (
	"encoding/json"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/haasonsaas/agentcore/internal/agent"
)

// ToAnthropicTools converts tool schemas to Anthropic tool definitions.
func ToAnthropicTools(tools []agent.ToolSchema) ([]anthropic.ToolUnionParam, error) {
	if len(tools) == 0 {
		return nil, nil
	}
	result := make([]anthropic.ToolUnionParam, 0, len(tools))
	for _, tool := range tools {
		param, err := ToAnthropicTool(tool)
		if err != nil {
			return nil, err
		}
		result = append(result, param)
	}
	return result, nil
}

// ToAnthropicTool converts a single tool schema to an Anthropic tool definition.
func ToAnthropicTool(tool agent.ToolSchema) (anthropic.ToolUnionParam, error) {
	var schema anthropic.ToolInputSchemaParam
	if err := json.Unmarshal(tool.Parameters, &schema); err != nil {
		return anthropic.ToolUnionParam{}, fmt.Errorf("invalid tool schema for %s: %w", tool.Name, err)
	}

	toolParam := anthropic.ToolUnionParamOfTool(schema, tool.Name)
	if toolParam.OfTool == nil {
		return anthropic.ToolUnionParam{}, fmt.Errorf("invalid tool schema for %s: missing tool definition", tool.Name)
	}
	toolParam.OfTool.Description = anthropic.String(tool.Description)
	return toolParam, nil
}
