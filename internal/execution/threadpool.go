package execution

import (
	"context"
	"sync"

	"github.com/haasonsaas/agentcore/internal/agent"
	"github.com/haasonsaas/agentcore/pkg/models"
)

// ThreadPoolBackend schedules task runs onto a fixed pool of worker
// goroutines. Submissions queue once every worker is busy rather than
// spawning unbounded goroutines, and two submissions for the same TaskID are
// serialized behind a per-task lock so a task's cycles never run
// concurrently with themselves even when they land on different workers.
type ThreadPoolBackend struct {
	runtime *agent.Runtime
	jobs    chan job

	mu       sync.Mutex
	inFlight map[string]*sync.Mutex
}

type job struct {
	ctx    context.Context
	task   *models.AgentTask
	result chan jobResult
}

type jobResult struct {
	res models.AgentResult
	err error
}

// NewThreadPoolBackend starts workers goroutines (at least 1) draining a
// queue sized to 4x the pool, beyond which SubmitTask reports
// agent.ErrBackpressure rather than blocking the caller indefinitely.
func NewThreadPoolBackend(runtime *agent.Runtime, workers int) *ThreadPoolBackend {
	if workers <= 0 {
		workers = 4
	}
	b := &ThreadPoolBackend{
		runtime:  runtime,
		jobs:     make(chan job, workers*4),
		inFlight: make(map[string]*sync.Mutex),
	}
	for i := 0; i < workers; i++ {
		go b.worker()
	}
	return b
}

func (b *ThreadPoolBackend) worker() {
	for j := range b.jobs {
		lock := b.taskLock(j.task.TaskID)
		lock.Lock()
		res, err := b.runtime.Run(j.ctx, j.task, nil, agent.NoopEventSink{})
		lock.Unlock()
		j.result <- jobResult{res: res, err: err}
	}
}

func (b *ThreadPoolBackend) taskLock(taskID string) *sync.Mutex {
	b.mu.Lock()
	defer b.mu.Unlock()
	lock, ok := b.inFlight[taskID]
	if !ok {
		lock = &sync.Mutex{}
		b.inFlight[taskID] = lock
	}
	return lock
}

func (b *ThreadPoolBackend) RunTask(ctx context.Context, task *models.AgentTask) (models.AgentResult, error) {
	future, err := b.SubmitTask(ctx, task)
	if err != nil {
		return models.AgentResult{}, err
	}
	return future.Wait(ctx)
}

func (b *ThreadPoolBackend) SubmitTask(ctx context.Context, task *models.AgentTask) (Future, error) {
	resultCh := make(chan jobResult, 1)
	select {
	case b.jobs <- job{ctx: ctx, task: task, result: resultCh}:
	default:
		return nil, agent.ErrBackpressure
	}
	return &channelFuture{ch: resultCh}, nil
}

type channelFuture struct {
	ch chan jobResult
}

func (f *channelFuture) Wait(ctx context.Context) (models.AgentResult, error) {
	select {
	case r := <-f.ch:
		return r.res, r.err
	case <-ctx.Done():
		return models.AgentResult{}, ctx.Err()
	}
}

func (f *channelFuture) Cancel() {}
