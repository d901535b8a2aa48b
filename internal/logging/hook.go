package logging

import (
	"github.com/rs/zerolog"
)

// ContextHook copies run_id and task_id from the event context into log events.
type ContextHook struct{}

// Run adds contextual fields to the zerolog event.
func (h ContextHook) Run(e *zerolog.Event, level zerolog.Level, msg string) {
	ctx := e.GetCtx()
	if ctx == nil {
		return
	}
	if id := GetRunID(ctx); id != "" {
		e.Str("run_id", id)
	}
	if id := GetTaskID(ctx); id != "" {
		e.Str("task_id", id)
	}
}
