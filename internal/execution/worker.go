package execution

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/haasonsaas/agentcore/internal/agent"
	"github.com/haasonsaas/agentcore/internal/statestore"
	"github.com/haasonsaas/agentcore/pkg/models"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// TaskEnvelope is the JSON payload carried inside a WorkQueue BytesValue: a
// task plus the RuntimeRecipe describing how to reconstruct an equivalent
// Agent Runtime on whatever worker dequeues it.
type TaskEnvelope struct {
	Task   *models.AgentTask    `json:"task"`
	Recipe models.RuntimeRecipe `json:"recipe"`
}

// WorkQueueWorker implements WorkQueueServer, buffering enqueued envelopes
// in memory and draining them through runtime.Run on its own goroutine. It
// is the `serve-worker` side of the distributed-queue Execution Backend.
type WorkQueueWorker struct {
	runtime *agent.Runtime
	store   statestore.Store
	logger  *slog.Logger
	queue   chan []byte
}

// NewWorkQueueWorker builds a worker backed by runtime, buffering up to
// queueDepth envelopes before Enqueue blocks.
func NewWorkQueueWorker(runtime *agent.Runtime, store statestore.Store, logger *slog.Logger, queueDepth int) *WorkQueueWorker {
	if queueDepth <= 0 {
		queueDepth = 16
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &WorkQueueWorker{runtime: runtime, store: store, logger: logger, queue: make(chan []byte, queueDepth)}
}

func (w *WorkQueueWorker) Enqueue(ctx context.Context, envelope *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error) {
	select {
	case w.queue <- envelope.GetValue():
		return wrapperspb.Bytes([]byte("queued")), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (w *WorkQueueWorker) Dequeue(ctx context.Context, _ *wrapperspb.StringValue) (*wrapperspb.BytesValue, error) {
	select {
	case env := <-w.queue:
		return wrapperspb.Bytes(env), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (w *WorkQueueWorker) Ack(ctx context.Context, taskID *wrapperspb.StringValue) (*wrapperspb.BytesValue, error) {
	return wrapperspb.Bytes([]byte("ok")), nil
}

// Run drains the queue until ctx is cancelled, executing each envelope's
// task through the worker's Agent Runtime. The runtime persists its own
// terminal checkpoint to the State Store, so Run itself only logs failures.
func (w *WorkQueueWorker) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case raw := <-w.queue:
			w.process(ctx, raw)
		}
	}
}

func (w *WorkQueueWorker) process(ctx context.Context, raw []byte) {
	var envelope TaskEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		w.logger.Error("work queue: malformed envelope", "error", err)
		return
	}
	if envelope.Task == nil {
		w.logger.Error("work queue: envelope missing task")
		return
	}

	if _, err := w.runtime.Run(ctx, envelope.Task, nil, agent.NoopEventSink{}); err != nil {
		w.logger.Warn("work queue: task run ended in error", "task_id", envelope.Task.TaskID, "error", err)
	}
}

// EncodeTaskEnvelope serializes a task and its dispatch recipe for
// transmission over Enqueue.
func EncodeTaskEnvelope(task *models.AgentTask, recipe models.RuntimeRecipe) ([]byte, error) {
	return json.Marshal(TaskEnvelope{Task: task, Recipe: recipe})
}
