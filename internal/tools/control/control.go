// Package control implements the always-on built-in tools every Agent
// Runtime task exposes regardless of capabilities: task_finish and ask_user
// carry the only directives the Tool Planner lets a model reach for to end
// a cycle, and todo_write gives the model a place to track multi-step work.
package control

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/haasonsaas/agentcore/pkg/models"
)

// TaskFinishTool lets the model declare the task done and hand back its
// final answer. The Agent Runtime reads the "answer" field straight out of
// the dispatched result's Content once the cycle's directive converges on
// finish.
type TaskFinishTool struct{}

func (TaskFinishTool) Name() string { return "task_finish" }

func (TaskFinishTool) Description() string {
	return "Finish the task and return the final answer to the caller."
}

func (TaskFinishTool) Schema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"answer": {"type": "string", "description": "The final answer to return."}
		},
		"required": ["answer"]
	}`)
}

func (TaskFinishTool) Execute(ctx context.Context, args json.RawMessage) (models.HandlerResult, error) {
	var input struct {
		Answer string `json:"answer"`
	}
	if err := json.Unmarshal(args, &input); err != nil {
		return models.HandlerResult{
			Payload:    fmt.Sprintf("invalid arguments: %v", err),
			StatusCode: models.StatusError,
			ErrorCode:  models.ErrCodeInvalidArgumentsPayload,
		}, nil
	}
	if strings.TrimSpace(input.Answer) == "" {
		return models.HandlerResult{
			Payload:    "answer is required",
			StatusCode: models.StatusError,
			ErrorCode:  models.ErrCodeInvalidArgumentsPayload,
		}, nil
	}
	return models.HandlerResult{
		Payload:   map[string]string{"answer": input.Answer},
		Directive: models.DirectiveFinish,
	}, nil
}

// AskUserTool lets the model suspend the task and ask the caller a question.
// The Agent Runtime reads "question" back out once the cycle's directive
// converges on wait_user.
type AskUserTool struct{}

func (AskUserTool) Name() string { return "ask_user" }

func (AskUserTool) Description() string {
	return "Suspend the task and ask the user a question before continuing."
}

func (AskUserTool) Schema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"question": {"type": "string", "description": "The question to ask the user."}
		},
		"required": ["question"]
	}`)
}

func (AskUserTool) Execute(ctx context.Context, args json.RawMessage) (models.HandlerResult, error) {
	var input struct {
		Question string `json:"question"`
	}
	if err := json.Unmarshal(args, &input); err != nil {
		return models.HandlerResult{
			Payload:    fmt.Sprintf("invalid arguments: %v", err),
			StatusCode: models.StatusError,
			ErrorCode:  models.ErrCodeInvalidArgumentsPayload,
		}, nil
	}
	if strings.TrimSpace(input.Question) == "" {
		return models.HandlerResult{
			Payload:    "question is required",
			StatusCode: models.StatusError,
			ErrorCode:  models.ErrCodeInvalidArgumentsPayload,
		}, nil
	}
	return models.HandlerResult{
		Payload:    map[string]string{"question": input.Question},
		StatusCode: models.StatusWaitResponse,
		Directive:  models.DirectiveWaitUser,
	}, nil
}

// TodoWriteTool replaces a task's todo list wholesale on every call, mirroring
// models.TodoItem's full-list-replacement convention rather than supporting
// partial patches.
type TodoWriteTool struct{}

func (TodoWriteTool) Name() string { return "todo_write" }

func (TodoWriteTool) Description() string {
	return "Replace the task's todo list with the given items."
}

func (TodoWriteTool) Schema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"todos": {
				"type": "array",
				"items": {
					"type": "object",
					"properties": {
						"id": {"type": "string"},
						"title": {"type": "string"},
						"status": {"type": "string", "enum": ["pending", "in_progress", "completed"]},
						"priority": {"type": "string", "enum": ["low", "medium", "high"]}
					},
					"required": ["id", "title", "status"]
				}
			}
		},
		"required": ["todos"]
	}`)
}

func (TodoWriteTool) Execute(ctx context.Context, args json.RawMessage) (models.HandlerResult, error) {
	var input struct {
		Todos []models.TodoItem `json:"todos"`
	}
	if err := json.Unmarshal(args, &input); err != nil {
		return models.HandlerResult{
			Payload:    fmt.Sprintf("invalid arguments: %v", err),
			StatusCode: models.StatusError,
			ErrorCode:  models.ErrCodeInvalidArgumentsPayload,
		}, nil
	}
	return models.HandlerResult{
		Payload:   map[string]any{"todos": input.Todos, "count": len(input.Todos)},
		Metadata:  map[string]any{"todos": input.Todos},
		Directive: models.DirectiveContinue,
	}, nil
}
