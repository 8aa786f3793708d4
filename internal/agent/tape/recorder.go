package tape

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/haasonsaas/agentcore/internal/agent"
	"github.com/haasonsaas/agentcore/pkg/models"
)

// Recorder wraps a ChatClient and tools to record all interactions.
type Recorder struct {
	client  agent.ChatClient
	tape    *Tape
	mu      sync.Mutex
	turnIdx int
}

// NewRecorder creates a new recorder wrapping the given ChatClient.
func NewRecorder(client agent.ChatClient) *Recorder {
	tape := NewTape()
	tape.Metadata["provider"] = client.Name()

	return &Recorder{
		client:  client,
		tape:    tape,
		turnIdx: 0,
	}
}

// WithModel sets the model in the tape metadata.
func (r *Recorder) WithModel(model string) *Recorder {
	r.tape.Model = model
	return r
}

// WithSystemPrompt sets the system prompt in the tape.
func (r *Recorder) WithSystemPrompt(system string) *Recorder {
	r.tape.SystemPrompt = system
	return r
}

// Complete implements ChatClient, recording the interaction.
func (r *Recorder) Complete(ctx context.Context, req *agent.CompletionRequest) (<-chan *agent.CompletionChunk, error) {
	r.mu.Lock()
	turnIndex := r.turnIdx
	r.turnIdx++
	r.mu.Unlock()

	start := time.Now()

	upstream, err := r.client.Complete(ctx, req)
	if err != nil {
		return nil, err
	}

	out := make(chan *agent.CompletionChunk, 10)

	go func() {
		defer close(out)

		turn := Turn{
			Index:   turnIndex,
			Request: req,
			Chunks:  []agent.CompletionChunk{},
		}

		var textBuilder string
		var toolCalls []models.ToolCall

		for chunk := range upstream {
			turn.Chunks = append(turn.Chunks, *chunk)

			if chunk.Text != "" {
				textBuilder += chunk.Text
			}

			if chunk.ToolCall != nil {
				toolCalls = append(toolCalls, *chunk.ToolCall)
			}

			out <- chunk
		}

		turn.Text = textBuilder
		turn.ToolCalls = toolCalls
		turn.Duration = time.Since(start)

		if len(toolCalls) > 0 {
			turn.StopReason = "tool_use"
		} else {
			turn.StopReason = "end_turn"
		}

		r.mu.Lock()
		r.tape.AddTurn(turn)
		r.mu.Unlock()
	}()

	return out, nil
}

// Name implements ChatClient.
func (r *Recorder) Name() string {
	return "recorder:" + r.client.Name()
}

// Models implements ChatClient.
func (r *Recorder) Models() []agent.Model {
	return r.client.Models()
}

// SupportsTools implements ChatClient.
func (r *Recorder) SupportsTools() bool {
	return r.client.SupportsTools()
}

// RecordToolRun records a tool execution.
func (r *Recorder) RecordToolRun(turnIndex int, call models.ToolCall, result models.HandlerResult, err error, duration time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	run := ToolRun{
		TurnIndex: turnIndex,
		Call:      call,
		Result:    &result,
		Duration:  duration,
	}

	if err != nil {
		run.Error = err.Error()
	}

	r.tape.AddToolRun(run)
}

// Tape returns the recorded tape.
func (r *Recorder) Tape() *Tape {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.tape.Clone()
}

// Reset clears the recording and starts fresh.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tape = NewTape()
	r.tape.Metadata["provider"] = r.client.Name()
	r.turnIdx = 0
}

// RecordingTool wraps a ToolHandler to record executions.
type RecordingTool struct {
	handler   agent.ToolHandler
	recorder  *Recorder
	turnIndex int
}

// WrapTool creates a recording wrapper for a ToolHandler.
func (r *Recorder) WrapTool(handler agent.ToolHandler, turnIndex int) *RecordingTool {
	return &RecordingTool{
		handler:   handler,
		recorder:  r,
		turnIndex: turnIndex,
	}
}

// Name implements ToolHandler.
func (t *RecordingTool) Name() string {
	return t.handler.Name()
}

// Description implements ToolHandler.
func (t *RecordingTool) Description() string {
	return t.handler.Description()
}

// Schema implements ToolHandler.
func (t *RecordingTool) Schema() json.RawMessage {
	return t.handler.Schema()
}

// Execute implements ToolHandler, recording the execution.
func (t *RecordingTool) Execute(ctx context.Context, args json.RawMessage) (models.HandlerResult, error) {
	start := time.Now()

	result, err := t.handler.Execute(ctx, args)

	call := models.ToolCall{
		Name:      t.handler.Name(),
		Arguments: args,
	}

	t.recorder.RecordToolRun(t.turnIndex, call, result, err, time.Since(start))

	return result, err
}
