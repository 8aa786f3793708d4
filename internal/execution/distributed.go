package execution

import (
	"context"
	"fmt"
	"time"

	"github.com/haasonsaas/agentcore/internal/agent"
	"github.com/haasonsaas/agentcore/internal/statestore"
	"github.com/haasonsaas/agentcore/pkg/models"
)

// DistributedQueueBackend dispatches a task over a gRPC WorkQueue service to
// whichever worker process dequeues it next, then tracks completion through
// the shared State Store rather than a direct response: the worker that
// finishes the task may not be the same process that submitted it.
//
// Ordering (one cycle in flight per TaskID) is enforced by the State Store's
// optimistic-concurrency Save: a worker holding a stale checkpoint version
// loses the race to persist its result and must reload before retrying,
// which the Agent Runtime already does on every cycle.
type DistributedQueueBackend struct {
	client   *WorkQueueClient
	store    statestore.Store
	recipe   models.RuntimeRecipe
	pollEvery time.Duration
}

// NewDistributedQueueBackend builds a backend that enqueues tasks through
// client and watches their progress through store. Every task dispatched
// through this backend carries the same recipe, describing how a worker
// should reconstruct its runtime (model, backend name, hook classpaths).
func NewDistributedQueueBackend(client *WorkQueueClient, store statestore.Store, recipe models.RuntimeRecipe) *DistributedQueueBackend {
	return &DistributedQueueBackend{client: client, store: store, recipe: recipe, pollEvery: 500 * time.Millisecond}
}

func (b *DistributedQueueBackend) RunTask(ctx context.Context, task *models.AgentTask) (models.AgentResult, error) {
	future, err := b.SubmitTask(ctx, task)
	if err != nil {
		return models.AgentResult{}, err
	}
	return future.Wait(ctx)
}

func (b *DistributedQueueBackend) SubmitTask(ctx context.Context, task *models.AgentTask) (Future, error) {
	envelope, err := EncodeTaskEnvelope(task, b.recipe)
	if err != nil {
		return nil, fmt.Errorf("encode task envelope: %w", err)
	}
	if _, err := b.client.Enqueue(ctx, envelope); err != nil {
		return nil, fmt.Errorf("enqueue task: %w", err)
	}
	return &pollingFuture{taskID: task.TaskID, store: b.store, every: b.pollEvery}, nil
}

// pollingFuture watches the State Store for a task's checkpoint to reach a
// terminal or wait_user status, since the worker that completes the task is
// not necessarily reachable for a direct response.
type pollingFuture struct {
	taskID string
	store  statestore.Store
	every  time.Duration
}

func (f *pollingFuture) Wait(ctx context.Context) (models.AgentResult, error) {
	ticker := time.NewTicker(f.every)
	defer ticker.Stop()

	for {
		cp, err := f.store.Load(ctx, f.taskID)
		if err == nil && cp != nil && isTerminal(cp.Status) {
			result := models.AgentResult{
				TaskID:     cp.TaskID,
				Status:     cp.Status,
				Cycles:     cp.Cycles,
				TokenUsage: cp.TokenUsage,
			}
			if len(cp.Cycles) > 0 {
				last := cp.Cycles[len(cp.Cycles)-1]
				switch cp.Status {
				case models.TaskCompleted:
					result.FinalAnswer = agent.ExtractDirectiveText(last.Outcomes, "answer")
				case models.TaskWaitUser:
					result.FinalAnswer = agent.ExtractDirectiveText(last.Outcomes, "question")
				}
			}
			return result, nil
		}

		select {
		case <-ctx.Done():
			return models.AgentResult{}, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (f *pollingFuture) Cancel() {}

func isTerminal(status models.TaskStatus) bool {
	switch status {
	case models.TaskCompleted, models.TaskFailed, models.TaskMaxCycles, models.TaskWaitUser:
		return true
	default:
		return false
	}
}
