// Package view owns one open board: it connects the file watcher and editor
// edits to the refresh scheduler, runs commands through the coordinator and
// delivers the resulting boards to a UI sink.
//
// Data flows one way. Disk changes and commands update the cache; the sink
// only ever receives read-only updates and sends changes back as commands.
package view

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/mesh-intelligence/boardsync/internal/cache"
	"github.com/mesh-intelligence/boardsync/internal/codec"
	"github.com/mesh-intelligence/boardsync/internal/command"
	"github.com/mesh-intelligence/boardsync/internal/persist"
	"github.com/mesh-intelligence/boardsync/internal/scheduler"
	"github.com/mesh-intelligence/boardsync/internal/watch"
	"github.com/mesh-intelligence/boardsync/pkg/types"
)

// ErrInternal wraps panics caught at the command boundary.
var ErrInternal = errors.New("internal error")

// ErrDisposed is returned for commands issued after Dispose.
var ErrDisposed = errors.New("view disposed")

// Level grades a notice.
type Level string

// Notice levels.
const (
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Notice is a message for the user that does not replace the board.
type Notice struct {
	Level   Level
	Message string
	Err     error
}

// Update is what the sink shows after a refresh or command.
type Update struct {
	// Reason is set for refreshes, Command for commands.
	Reason  scheduler.Reason
	Command string
	State   cache.State
	// Board is nil when there is nothing to show.
	Board *types.Board
	// Diagnostics accompany TransientError (a warning over the last good
	// board) and HardError (a blocking error in place of the board).
	Diagnostics *codec.LintResult
	// Fixable is set in HardError when the linter can fix the file.
	Fixable bool
}

// Blocking reports whether the update replaces the board with an error.
func (u Update) Blocking() bool { return u.State == cache.StateHardError }

// Sink receives updates and notices. Calls may come from any goroutine but
// never concurrently for one view.
type Sink interface {
	Deliver(Update)
	Notify(Notice)
}

// Options configures a View. Zero fields take defaults.
type Options struct {
	Codec        persist.Codec
	Tolerance    int
	FileDebounce time.Duration
	EditDebounce time.Duration
	Clock        scheduler.Clock
	Logger       *slog.Logger
	// Watch enables the file system watcher. Without it, changes are fed
	// with Changed and DocumentEdited.
	Watch bool
}

// View is one open board.
type View struct {
	coord   *persist.Coordinator
	sched   *scheduler.Scheduler
	watcher *watch.Watcher
	sink    Sink
	logger  *slog.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu       sync.Mutex
	ready    bool
	disposed bool
	pending  *Update
	buffer   []byte

	// sinkMu keeps sink calls sequential.
	sinkMu sync.Mutex
}

// Open opens the board at path and schedules the initial load. Updates are
// held until Ready is called.
func Open(path string, sink Sink, opts Options) (*View, error) {
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	logger := opts.Logger.With("component", "view", "board", path)
	v := &View{
		coord: persist.New(path, persist.Options{
			Codec:  opts.Codec,
			Cache:  cache.New(opts.Tolerance),
			Logger: opts.Logger,
		}),
		sink:   sink,
		logger: logger,
	}
	v.sched = scheduler.New(v.refresh, scheduler.Options{
		FileDebounce: opts.FileDebounce,
		EditDebounce: opts.EditDebounce,
		Clock:        opts.Clock,
		Logger:       opts.Logger,
	})

	ctx, cancel := context.WithCancel(context.Background())
	v.cancel = cancel
	if opts.Watch {
		w, err := watch.New(path, opts.Logger)
		if err != nil {
			cancel()
			v.sched.Dispose()
			return nil, err
		}
		v.watcher = w
		v.wg.Add(1)
		go func() {
			defer v.wg.Done()
			if err := w.Run(ctx, v.sched.Schedule); err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, watch.ErrClosed) {
				logger.Error("watcher stopped", "error", err)
			}
		}()
	}

	v.sched.Schedule(scheduler.ReasonInitial)
	return v, nil
}

// Coordinator returns the coordinator of the board.
func (v *View) Coordinator() *persist.Coordinator { return v.coord }

// Board returns the cached board, or nil.
func (v *View) Board() *types.Board { return v.coord.Cache().Board() }

// Ready marks the sink as able to receive updates and delivers the pending
// one, if any.
func (v *View) Ready() {
	v.mu.Lock()
	if v.disposed {
		v.mu.Unlock()
		return
	}
	v.ready = true
	p := v.pending
	v.pending = nil
	v.mu.Unlock()

	if p != nil {
		v.emit(func(s Sink) { s.Deliver(*p) })
	}
}

// Changed reports a change notification from an outside source.
func (v *View) Changed(reason scheduler.Reason) {
	v.sched.Schedule(reason)
}

// DocumentEdited reports the current content of an open editor buffer. The
// buffer is parsed after the edit debounce instead of the file.
func (v *View) DocumentEdited(content []byte) {
	v.mu.Lock()
	v.buffer = slices.Clone(content)
	v.mu.Unlock()
	v.sched.Schedule(scheduler.ReasonDocumentEdit)
}

// Flush runs a pending refresh now.
func (v *View) Flush() bool { return v.sched.Flush() }

// Execute runs one command. Errors, including panics, are returned and also
// shown to the sink as notices; an external conflict is shown as a warning.
func (v *View) Execute(ctx context.Context, cmd command.Command) (out *persist.Outcome, err error) {
	if v.isDisposed() {
		return nil, ErrDisposed
	}
	defer func() {
		if r := recover(); r != nil {
			v.logger.Error("command panicked", "command", cmd.Name(), "panic", r)
			out, err = nil, fmt.Errorf("%w: %s: %v", ErrInternal, cmd.Name(), r)
		}
		if err != nil {
			level := LevelError
			if types.IsValidation(err) {
				level = LevelWarning
			}
			v.notify(Notice{Level: level, Message: err.Error(), Err: err})
		}
	}()

	out, err = v.coord.Execute(ctx, cmd)
	if err != nil {
		return nil, err
	}
	if out.Conflict != nil {
		v.notify(Notice{Level: LevelWarning, Message: "board was changed outside this view and has been overwritten", Err: out.Conflict})
	}
	v.deliver(Update{Command: out.Command, State: cache.StateValid, Board: out.Board})
	return out, nil
}

// ApplyFix writes the linter's automatic fix and delivers the result.
func (v *View) ApplyFix(ctx context.Context) error {
	if v.isDisposed() {
		return ErrDisposed
	}
	res, err := v.coord.ApplyFix(ctx)
	if err != nil {
		v.notify(Notice{Level: LevelError, Message: err.Error(), Err: err})
		return err
	}
	v.deliver(updateFrom(res))
	return nil
}

// Dispose stops the watcher and the scheduler. No refresh starts afterwards
// and no update is delivered; a write already in progress completes.
func (v *View) Dispose() {
	v.mu.Lock()
	if v.disposed {
		v.mu.Unlock()
		return
	}
	v.disposed = true
	v.pending = nil
	v.mu.Unlock()

	v.sched.Dispose()
	v.cancel()
	if v.watcher != nil {
		v.watcher.Close()
	}
	v.wg.Wait()
}

func (v *View) isDisposed() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.disposed
}

func (v *View) refresh(ctx context.Context, reason scheduler.Reason) {
	defer func() {
		if r := recover(); r != nil {
			v.logger.Error("refresh panicked", "reason", reason, "panic", r)
			v.notify(Notice{Level: LevelError, Message: fmt.Sprintf("refresh failed: %v", r), Err: ErrInternal})
		}
	}()

	var content []byte
	if reason == scheduler.ReasonDocumentEdit {
		v.mu.Lock()
		content = v.buffer
		v.mu.Unlock()
	}
	res, err := v.coord.Refresh(ctx, reason, content)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		v.logger.Error("refresh failed", "reason", reason, "error", err)
		v.notify(Notice{Level: LevelError, Message: err.Error(), Err: err})
		return
	}
	if res.Status == persist.RefreshSkipped {
		return
	}
	v.deliver(updateFrom(res))
}

func updateFrom(res persist.RefreshResult) Update {
	u := Update{
		Reason: res.Reason,
		State:  res.Transition.To,
		Board:  res.Board,
	}
	if u.State == cache.StateTransientError || u.State == cache.StateHardError {
		u.Diagnostics = res.Diagnostics
	}
	if u.State == cache.StateHardError {
		u.Board = nil
		u.Fixable = res.Diagnostics != nil && res.Diagnostics.HasFixable()
	}
	return u
}

// deliver hands u to the sink, or parks it in the single pending slot until
// Ready. A newer update replaces a parked one.
func (v *View) deliver(u Update) {
	v.mu.Lock()
	if v.disposed {
		v.mu.Unlock()
		return
	}
	if !v.ready {
		v.pending = &u
		v.mu.Unlock()
		return
	}
	v.mu.Unlock()
	v.emit(func(s Sink) { s.Deliver(u) })
}

func (v *View) notify(n Notice) {
	if v.isDisposed() {
		return
	}
	v.emit(func(s Sink) { s.Notify(n) })
}

func (v *View) emit(fn func(Sink)) {
	if v.sink == nil {
		return
	}
	v.sinkMu.Lock()
	defer v.sinkMu.Unlock()
	fn(v.sink)
}
