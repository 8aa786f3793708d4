package execution

import (
	"context"

	"github.com/haasonsaas/agentcore/internal/agent"
	"github.com/haasonsaas/agentcore/pkg/models"
)

// InlineBackend runs a task synchronously on the caller's own goroutine.
// SubmitTask still runs the task before returning — there is no
// concurrency to defer to — but keeps the Backend interface uniform across
// every scheduling variant.
type InlineBackend struct {
	runtime *agent.Runtime
}

// NewInlineBackend wraps runtime for synchronous, single-goroutine
// scheduling.
func NewInlineBackend(runtime *agent.Runtime) *InlineBackend {
	return &InlineBackend{runtime: runtime}
}

func (b *InlineBackend) RunTask(ctx context.Context, task *models.AgentTask) (models.AgentResult, error) {
	return b.runtime.Run(ctx, task, nil, agent.NoopEventSink{})
}

func (b *InlineBackend) SubmitTask(ctx context.Context, task *models.AgentTask) (Future, error) {
	res, err := b.RunTask(ctx, task)
	return &resolvedFuture{res: res, err: err}, nil
}
