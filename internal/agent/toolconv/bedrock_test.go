package toolconv

import (
	"encoding/json"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	"github.com/haasonsaas/agentcore/internal/agent"
)

func TestToBedrockTools(t *testing.T) {
	tools := []agent.ToolSchema{
		{
			Name:        "search",
			Description: "Search tool",
			Parameters:  json.RawMessage(`{"type":"object","properties":{"q":{"type":"string"}}}`),
		},
		{
			Name:        "broken",
			Description: "Bad schema",
			Parameters:  json.RawMessage(`{not-json}`),
		},
	}

	cfg := ToBedrockTools(tools)
	if cfg == nil || len(cfg.Tools) != 2 {
		t.Fatalf("expected 2 bedrock tools, got %#v", cfg)
	}

	spec, ok := cfg.Tools[0].(*types.ToolMemberToolSpec)
	if !ok {
		t.Fatalf("expected ToolMemberToolSpec, got %T", cfg.Tools[0])
	}
	if spec.Value.Name == nil || *spec.Value.Name != "search" {
		t.Fatalf("unexpected tool name: %#v", spec.Value.Name)
	}
	if spec.Value.InputSchema == nil {
		t.Fatalf("expected input schema to be set")
	}
}
