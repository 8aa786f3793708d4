package agent

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/haasonsaas/agentcore/pkg/models"
)

// Dispatcher validates and executes a single ToolCall against a
// ToolRegistry, translating every failure mode into a protocol-level
// models.ToolExecutionResult rather than a Go error, so the Tool Call Runner
// never has to special-case "the tool broke" versus "the tool said no."
type Dispatcher struct {
	registry *ToolRegistry
}

// NewDispatcher builds a Dispatcher over registry.
func NewDispatcher(registry *ToolRegistry) *Dispatcher {
	return &Dispatcher{registry: registry}
}

// Dispatch normalizes call.Arguments, validates them against the tool's
// schema, invokes the handler, and folds the outcome into a
// ToolExecutionResult. It never returns a Go error: any failure is encoded
// in the result's StatusCode/ErrorCode so the LLM can see and react to it.
func (d *Dispatcher) Dispatch(ctx context.Context, call models.ToolCall) models.ToolExecutionResult {
	handler, ok := d.registry.Get(call.Name)
	if !ok {
		return errorResult(call.ID, models.ErrCodeToolNotFound, fmt.Sprintf("tool not found: %s", call.Name))
	}

	normalized, err := models.NormalizeToolCallArguments(call.Arguments)
	if err != nil {
		return errorResult(call.ID, models.ErrCodeInvalidArgumentsJSON, err.Error())
	}

	if validator, ok := d.registry.Validator(call.Name); ok {
		var asAny any
		if err := json.Unmarshal(normalized, &asAny); err != nil {
			return errorResult(call.ID, models.ErrCodeInvalidArgumentsJSON, err.Error())
		}
		if err := validator.Validate(asAny); err != nil {
			return errorResult(call.ID, models.ErrCodeInvalidArgumentsPayload, err.Error())
		}
	}

	handlerResult, err := handler.Execute(ctx, normalized)
	if err != nil {
		return errorResult(call.ID, models.ErrCodeToolExecutionFailed, err.Error())
	}

	return toExecutionResult(call.ID, handlerResult)
}

func toExecutionResult(callID string, hr models.HandlerResult) models.ToolExecutionResult {
	statusCode := hr.StatusCode
	if statusCode == "" {
		statusCode = models.StatusSuccess
	}
	directive := hr.Directive
	if directive == "" {
		directive = models.DirectiveContinue
	}

	content, err := encodePayload(hr.Payload)
	if err != nil {
		return errorResult(callID, models.ErrCodeInvalidArgumentsType, err.Error())
	}

	return models.ToolExecutionResult{
		ToolCallID: callID,
		Content:    content,
		StatusCode: statusCode,
		Directive:  directive,
		ErrorCode:  hr.ErrorCode,
		Metadata:   hr.Metadata,
		ImageURL:   hr.ImageURL,
		ImagePath:  hr.ImagePath,
	}
}

func encodePayload(payload any) (string, error) {
	if payload == nil {
		return "", nil
	}
	if s, ok := payload.(string); ok {
		return s, nil
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("encode tool result payload: %w", err)
	}
	return string(b), nil
}

func errorResult(callID, errorCode, message string) models.ToolExecutionResult {
	body, _ := json.Marshal(map[string]string{"error": message})
	return models.ToolExecutionResult{
		ToolCallID: callID,
		Content:    string(body),
		StatusCode: models.StatusError,
		Directive:  models.DirectiveContinue,
		ErrorCode:  errorCode,
	}
}
