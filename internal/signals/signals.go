// Package signals lets other processes pause, resume or stop a running
// engine by dropping files into <workdir>/.taskengine/signals.
package signals

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/ShayCichocki/taskengine/internal/logging"
	"github.com/ShayCichocki/taskengine/internal/workdir"
)

// Signal names double as file names in the signals directory.
const (
	Pause  = "pause"
	Resume = "resume"
	Stop   = "stop"
)

const defaultPollInterval = 100 * time.Millisecond

// ErrUnknownSignal is returned by Send for names other than pause, resume
// and stop.
var ErrUnknownSignal = errors.New("unknown signal")

// Controller receives the signals. The engine's PauseController satisfies it.
type Controller interface {
	Pause()
	Resume()
	Stop()
}

// Dir returns the signals directory for a working directory.
func Dir(workDir string) string {
	return filepath.Join(workdir.Dir(workDir), "signals")
}

// Send drops a signal file for a watcher running against workDir.
func Send(workDir, name string) error {
	switch name {
	case Pause, Resume, Stop:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownSignal, name)
	}
	dir, err := ensureDir(workDir)
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, name), []byte(time.Now().Format(time.RFC3339)), 0644)
}

func ensureDir(workDir string) (string, error) {
	if _, err := workdir.Ensure(workDir); err != nil {
		return "", err
	}
	dir := Dir(workDir)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create signals dir: %w", err)
	}
	return dir, nil
}

// Watcher applies signal files to a Controller. Each file is consumed
// (removed) once applied.
type Watcher struct {
	dir  string
	ctrl Controller
	log  zerolog.Logger

	mu      sync.Mutex
	watcher *fsnotify.Watcher
	done    chan struct{}
	wg      sync.WaitGroup
	closed  bool
}

// NewWatcher creates the signals directory under workDir, discards signal
// files left over from earlier runs and starts watching. If fsnotify is
// unavailable the watcher still works through Check or StartPolling.
func NewWatcher(workDir string, ctrl Controller) (*Watcher, error) {
	return startWatcher(workDir, ctrl, true)
}

func startWatcher(workDir string, ctrl Controller, notify bool) (*Watcher, error) {
	dir, err := ensureDir(workDir)
	if err != nil {
		return nil, err
	}
	for _, name := range []string{Pause, Resume, Stop} {
		os.Remove(filepath.Join(dir, name))
	}

	w := &Watcher{
		dir:  dir,
		ctrl: ctrl,
		log:  logging.Component("signals"),
		done: make(chan struct{}),
	}

	if !notify {
		return w, nil
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		w.log.Warn().Err(err).Msg("file watching unavailable, signals only applied on Check")
		return w, nil
	}
	if err := fw.Add(dir); err != nil {
		fw.Close()
		w.log.Warn().Err(err).Str("dir", dir).Msg("cannot watch signals dir")
		return w, nil
	}
	w.watcher = fw

	w.wg.Add(1)
	go w.watch()

	return w, nil
}

// Dir returns the watched directory.
func (w *Watcher) Dir() string {
	return w.dir
}

// Watching reports whether fsnotify delivery is active.
func (w *Watcher) Watching() bool {
	return w.watcher != nil
}

func (w *Watcher) watch() {
	defer w.wg.Done()
	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			w.apply(filepath.Base(event.Name))
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Debug().Err(err).Msg("watcher error")
		}
	}
}

// StartPolling runs Check every interval until ctx is done or the watcher
// is closed. It is meant for watchers where Watching reports false.
func (w *Watcher) StartPolling(ctx context.Context, interval time.Duration) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	if interval <= 0 {
		interval = defaultPollInterval
	}
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-w.done:
				return
			case <-ticker.C:
				w.Check()
			}
		}
	}()
}

// Check applies any signal files present right now. Stop is applied last so
// a stop always wins over a pause dropped at the same time.
func (w *Watcher) Check() {
	for _, name := range []string{Pause, Resume, Stop} {
		if _, err := os.Stat(filepath.Join(w.dir, name)); err == nil {
			w.apply(name)
		}
	}
}

func (w *Watcher) apply(name string) {
	var fn func()
	switch name {
	case Pause:
		fn = w.ctrl.Pause
	case Resume:
		fn = w.ctrl.Resume
	case Stop:
		fn = w.ctrl.Stop
	default:
		w.log.Debug().Str("file", name).Msg("ignoring unknown signal file")
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if err := os.Remove(filepath.Join(w.dir, name)); err != nil {
		// Already consumed by an earlier event for the same file.
		return
	}
	fn()
	w.log.Info().Str("signal", name).Msg("signal received")
}

// Close stops watching. It is safe to call more than once.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	close(w.done)
	w.mu.Unlock()

	var err error
	if w.watcher != nil {
		err = w.watcher.Close()
	}
	w.wg.Wait()
	return err
}
