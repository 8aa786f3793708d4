package agent

import (
	"sync/atomic"
	"time"

	"github.com/haasonsaas/agentcore/pkg/models"
)

// EventSink receives every AgentEvent an EventEmitter produces. A Cycle
// Runner passes a channel-backed sink so a task's caller can stream
// progress; tests pass a slice-backed sink to assert on the sequence.
type EventSink interface {
	Emit(event models.AgentEvent)
}

// EventSinkFunc adapts a plain function to an EventSink.
type EventSinkFunc func(models.AgentEvent)

func (f EventSinkFunc) Emit(event models.AgentEvent) { f(event) }

// NoopEventSink discards every event.
type NoopEventSink struct{}

func (NoopEventSink) Emit(models.AgentEvent) {}

// EventEmitter generates AgentEvents with a monotonic per-run sequence and
// forwards them to a sink. One EventEmitter is created per task run.
type EventEmitter struct {
	runID    string
	sequence uint64

	turnIndex int
	iterIndex int

	sink EventSink
}

// NewEventEmitter creates an emitter for runID, forwarding events to sink.
// A nil sink is replaced with NoopEventSink.
func NewEventEmitter(runID string, sink EventSink) *EventEmitter {
	if sink == nil {
		sink = NoopEventSink{}
	}
	return &EventEmitter{runID: runID, sink: sink}
}

func (e *EventEmitter) SetTurn(turnIndex int) { e.turnIndex = turnIndex }
func (e *EventEmitter) SetIter(iterIndex int) { e.iterIndex = iterIndex }

func (e *EventEmitter) nextSeq() uint64 {
	return atomic.AddUint64(&e.sequence, 1)
}

func (e *EventEmitter) base(eventType models.AgentEventType) models.AgentEvent {
	return models.AgentEvent{
		Version:   1,
		Type:      eventType,
		Time:      time.Now(),
		Sequence:  e.nextSeq(),
		RunID:     e.runID,
		TurnIndex: e.turnIndex,
		IterIndex: e.iterIndex,
	}
}

func (e *EventEmitter) emit(event models.AgentEvent) models.AgentEvent {
	e.sink.Emit(event)
	return event
}

func (e *EventEmitter) RunStarted() models.AgentEvent {
	return e.emit(e.base(models.AgentEventRunStarted))
}

func (e *EventEmitter) RunFinished(stats *models.RunStats) models.AgentEvent {
	event := e.base(models.AgentEventRunFinished)
	if stats != nil {
		event.Stats = &models.StatsEventPayload{Run: stats}
	}
	return e.emit(event)
}

func (e *EventEmitter) RunError(err error, retriable bool) models.AgentEvent {
	event := e.base(models.AgentEventRunError)
	event.Error = &models.ErrorEventPayload{Message: err.Error(), Retriable: retriable, Err: err}
	return e.emit(event)
}

func (e *EventEmitter) RunCancelled(reason error) models.AgentEvent {
	event := e.base(models.AgentEventRunCancelled)
	if reason != nil {
		event.Error = &models.ErrorEventPayload{Message: reason.Error(), Err: reason}
	}
	return e.emit(event)
}

func (e *EventEmitter) CycleStarted() models.AgentEvent {
	return e.emit(e.base(models.AgentEventCycleStarted))
}

func (e *EventEmitter) CycleFinished(directive models.Directive) models.AgentEvent {
	event := e.base(models.AgentEventCycleFinished)
	event.Text = &models.TextEventPayload{Text: string(directive)}
	return e.emit(event)
}

func (e *EventEmitter) ModelDelta(delta string) models.AgentEvent {
	event := e.base(models.AgentEventModelDelta)
	event.Stream = &models.StreamEventPayload{Delta: delta}
	return e.emit(event)
}

func (e *EventEmitter) ModelCompleted(provider, model string, inputTokens, outputTokens int) models.AgentEvent {
	event := e.base(models.AgentEventModelCompleted)
	event.Stream = &models.StreamEventPayload{
		Provider:     provider,
		Model:        model,
		InputTokens:  inputTokens,
		OutputTokens: outputTokens,
	}
	return e.emit(event)
}

func (e *EventEmitter) ToolStarted(callID, name string, argsJSON []byte) models.AgentEvent {
	event := e.base(models.AgentEventToolStarted)
	event.Tool = &models.ToolEventPayload{CallID: callID, Name: name, ArgsJSON: argsJSON}
	return e.emit(event)
}

func (e *EventEmitter) ToolFinished(callID, name string, success bool, resultJSON []byte, elapsed time.Duration) models.AgentEvent {
	event := e.base(models.AgentEventToolFinished)
	event.Tool = &models.ToolEventPayload{
		CallID:     callID,
		Name:       name,
		Success:    success,
		ResultJSON: resultJSON,
		Elapsed:    elapsed,
	}
	return e.emit(event)
}

func (e *EventEmitter) MemoryCompactStarted() models.AgentEvent {
	return e.emit(e.base(models.AgentEventMemoryCompactStarted))
}

func (e *EventEmitter) MemoryCompactFinished(before, after int) models.AgentEvent {
	event := e.base(models.AgentEventMemoryCompactFinished)
	event.Context = &models.ContextEventPayload{Candidates: before, Included: after, Dropped: before - after}
	return e.emit(event)
}
