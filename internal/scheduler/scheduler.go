// Package scheduler debounces change notifications into refreshes.
//
// Every Schedule call cancels the pending timer and starts a new one with
// the latest reason, so a burst of events produces exactly one refresh once
// it settles. Refreshes never overlap, and none starts after Dispose.
package scheduler

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"
)

// Default debounce delays. Editor edits wait longer so a refresh does not
// parse a half-typed line.
const (
	DefaultFileDebounce = 150 * time.Millisecond
	DefaultEditDebounce = 500 * time.Millisecond
)

// Reason tags a change notification with its source.
type Reason string

// Change reasons.
const (
	ReasonFileChange    Reason = "file-change"
	ReasonFileCreate    Reason = "file-create"
	ReasonDocumentEdit  Reason = "document-edit"
	ReasonArchiveChange Reason = "archive-change"
	ReasonInitial       Reason = "initial"
)

// Clock provides time and timers. Tests inject a manual clock.
type Clock interface {
	Now() time.Time
	// AfterFunc runs fn after d and returns a function that cancels the
	// timer, reporting whether it was still pending.
	AfterFunc(d time.Duration, fn func()) (stop func() bool)
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

func (systemClock) AfterFunc(d time.Duration, fn func()) func() bool {
	return time.AfterFunc(d, fn).Stop
}

// SystemClock is the wall clock.
var SystemClock Clock = systemClock{}

// RefreshFunc performs one refresh for the last reason of a settled burst.
// The context is canceled by Dispose.
type RefreshFunc func(ctx context.Context, reason Reason)

// Options configures a Scheduler. Zero fields take defaults.
type Options struct {
	FileDebounce time.Duration
	EditDebounce time.Duration
	Clock        Clock
	Logger       *slog.Logger
}

// Scheduler coalesces change notifications for one board.
type Scheduler struct {
	refresh      RefreshFunc
	clock        Clock
	fileDebounce time.Duration
	editDebounce time.Duration
	logger       *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu         sync.Mutex
	stop       func() bool
	generation uint64
	pending    Reason
	hasPending bool
	disposed   bool
	runs       int

	// running serializes refresh executions.
	running sync.Mutex
}

// New returns a scheduler that calls refresh once per settled burst.
func New(refresh RefreshFunc, opts Options) *Scheduler {
	if opts.FileDebounce <= 0 {
		opts.FileDebounce = DefaultFileDebounce
	}
	if opts.EditDebounce <= 0 {
		opts.EditDebounce = DefaultEditDebounce
	}
	if opts.Clock == nil {
		opts.Clock = SystemClock
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		refresh:      refresh,
		clock:        opts.Clock,
		fileDebounce: opts.FileDebounce,
		editDebounce: opts.EditDebounce,
		logger:       opts.Logger.With("component", "scheduler"),
		ctx:          ctx,
		cancel:       cancel,
	}
}

// Delay returns the debounce delay for reason.
func (s *Scheduler) Delay(reason Reason) time.Duration {
	if reason == ReasonDocumentEdit {
		return s.editDebounce
	}
	return s.fileDebounce
}

// Schedule records a change and (re)starts the debounce timer. The reason
// of the last call before the timer fires is the one passed to refresh.
// Calls after Dispose are ignored.
func (s *Scheduler) Schedule(reason Reason) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.disposed {
		return
	}
	if s.stop != nil {
		s.stop()
	}
	s.generation++
	gen := s.generation
	s.pending = reason
	s.hasPending = true
	s.stop = s.clock.AfterFunc(s.Delay(reason), func() { s.fire(gen) })
}

// Pending returns the reason waiting for its timer, if any.
func (s *Scheduler) Pending() (Reason, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending, s.hasPending
}

// Runs returns the number of refreshes executed so far.
func (s *Scheduler) Runs() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runs
}

// Flush runs the pending refresh now instead of waiting for its timer.
// It reports whether a refresh ran.
func (s *Scheduler) Flush() bool {
	reason, ok := s.take(0, false)
	if !ok {
		return false
	}
	return s.execute(reason)
}

// Dispose cancels the pending timer. No refresh starts afterwards; one that
// is already running finishes.
func (s *Scheduler) Dispose() {
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return
	}
	s.disposed = true
	if s.stop != nil {
		s.stop()
		s.stop = nil
	}
	s.hasPending = false
	s.mu.Unlock()
	s.cancel()
}

func (s *Scheduler) fire(gen uint64) {
	reason, ok := s.take(gen, true)
	if !ok {
		return
	}
	s.execute(reason)
}

// take claims the pending reason. With checkGen set, a timer from an older
// generation claims nothing.
func (s *Scheduler) take(gen uint64, checkGen bool) (Reason, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.disposed || !s.hasPending || (checkGen && gen != s.generation) {
		return "", false
	}
	if s.stop != nil {
		s.stop()
		s.stop = nil
	}
	s.hasPending = false
	return s.pending, true
}

func (s *Scheduler) execute(reason Reason) bool {
	s.running.Lock()
	defer s.running.Unlock()

	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return false
	}
	s.runs++
	s.mu.Unlock()

	start := s.clock.Now()
	s.refresh(s.ctx, reason)
	s.logger.Debug("refresh done", "reason", reason, "elapsed", s.clock.Now().Sub(start))
	return true
}
