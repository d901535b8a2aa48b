package orchestrator

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"

	"github.com/ShayCichocki/taskengine/internal/logging"
)

// ErrStopped is returned by WaitIfPaused once the controller is stopped.
var ErrStopped = errors.New("engine stopped")

// PauseController manages pause/resume/stop state for the engine.
// It provides a thread-safe way to control execution flow between
// scheduling passes.
type PauseController struct {
	// paused indicates whether the engine is paused.
	paused bool
	// stopped indicates whether the engine has been stopped.
	stopped bool
	// mu protects all fields.
	mu sync.RWMutex
	// cond is used to signal when the engine is unpaused or stopped.
	cond *sync.Cond
	log  zerolog.Logger
}

// NewPauseController creates a new PauseController.
func NewPauseController() *PauseController {
	p := &PauseController{log: logging.Component("pause")}
	p.cond = sync.NewCond(&p.mu)
	return p
}

// Pause pauses execution. No new scheduling pass starts until Resume.
func (p *PauseController) Pause() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.paused {
		p.paused = true
		p.log.Info().Msg("paused, no new tasks will be scheduled")
	}
}

// Resume resumes execution after a pause.
func (p *PauseController) Resume() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.paused {
		p.paused = false
		p.log.Info().Msg("resumed")
		p.cond.Broadcast()
	}
}

// Stop signals a stop. This unblocks any WaitIfPaused calls.
func (p *PauseController) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.stopped {
		p.stopped = true
		p.log.Info().Msg("stop requested")
		p.cond.Broadcast()
	}
}

// IsPaused returns whether execution is currently paused.
func (p *PauseController) IsPaused() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.paused
}

// IsStopped returns whether the controller has been stopped.
func (p *PauseController) IsStopped() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.stopped
}

// WaitIfPaused blocks until the engine is unpaused or stopped.
// Returns an error if the context is cancelled or the controller is stopped.
func (p *PauseController) WaitIfPaused(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.paused && !p.stopped {
		// One goroutine wakes the waiter if the context ends first.
		done := make(chan struct{})
		defer close(done)
		go func() {
			select {
			case <-ctx.Done():
				p.mu.Lock()
				p.cond.Broadcast()
				p.mu.Unlock()
			case <-done:
			}
		}()

		for p.paused && !p.stopped {
			p.cond.Wait()
			if err := ctx.Err(); err != nil {
				return err
			}
		}
	}
	if p.stopped {
		return ErrStopped
	}
	return nil
}
