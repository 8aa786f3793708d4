// Package execution implements the Agent Runtime's Execution Backend: the
// component that actually schedules an AgentTask's cycles onto goroutines,
// worker threads, or a distributed queue, independent of the Agent Runtime's
// own per-cycle state machine.
package execution

import (
	"context"

	"github.com/haasonsaas/agentcore/pkg/models"
)

// Backend schedules AgentTask runs. RunTask blocks until the task reaches a
// terminal or wait_user state; SubmitTask returns immediately with a Future
// the caller can poll or wait on later. Every implementation must guarantee
// at most one cycle in flight per TaskID at a time — a second submission for
// a task already running must queue behind the first rather than race it.
type Backend interface {
	RunTask(ctx context.Context, task *models.AgentTask) (models.AgentResult, error)
	SubmitTask(ctx context.Context, task *models.AgentTask) (Future, error)
}

// Future is a handle to a task run submitted asynchronously.
type Future interface {
	// Wait blocks until the run completes or ctx is cancelled, whichever
	// comes first.
	Wait(ctx context.Context) (models.AgentResult, error)

	// Cancel requests the run stop. It does not block for the run to
	// actually observe the request.
	Cancel()
}

type resolvedFuture struct {
	res models.AgentResult
	err error
}

func (f *resolvedFuture) Wait(ctx context.Context) (models.AgentResult, error) { return f.res, f.err }
func (f *resolvedFuture) Cancel()                                              {}
