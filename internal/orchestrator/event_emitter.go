package orchestrator

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/ShayCichocki/taskengine/internal/logging"
)

// EventEmitter delivers engine events to a single subscriber through a
// buffered channel. A full channel never blocks the engine for long: the
// event is dropped after a short grace period and counted.
type EventEmitter struct {
	events       chan Event
	droppedCount atomic.Uint64
	grace        time.Duration
	closeOnce    sync.Once
	closed       atomic.Bool
	log          zerolog.Logger
}

// NewEventEmitter creates a new EventEmitter with the given buffer size.
func NewEventEmitter(bufferSize int) *EventEmitter {
	return &EventEmitter{
		events: make(chan Event, bufferSize),
		grace:  100 * time.Millisecond,
		log:    logging.Component("events"),
	}
}

// Emit sends an event to the events channel. Emitting on a nil or closed
// emitter is a no-op.
func (e *EventEmitter) Emit(event Event) {
	if e == nil || e.closed.Load() {
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	select {
	case e.events <- event:
		return
	default:
	}

	select {
	case e.events <- event:
	case <-time.After(e.grace):
		count := e.droppedCount.Add(1)
		if count%10 == 1 {
			e.log.Warn().Uint64("dropped", count).Str("type", string(event.Type)).Msg("event channel full, dropping event")
		}
	}
}

// DroppedCount returns the total number of events that have been dropped.
func (e *EventEmitter) DroppedCount() uint64 {
	return e.droppedCount.Load()
}

// Events returns a read-only channel of events.
func (e *EventEmitter) Events() <-chan Event {
	return e.events
}

// Close closes the events channel. It must not race with Emit, so callers
// close it only after Engine.Run has returned.
func (e *EventEmitter) Close() {
	e.closeOnce.Do(func() {
		e.closed.Store(true)
		close(e.events)
	})
}
