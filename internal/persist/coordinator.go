// Package persist moves boards between disk and the cache.
//
// A Coordinator owns one board file and its archive. Commands run a
// read-parse-apply-serialize-write cycle and record the fingerprint of what
// they wrote, so the change notification caused by the write is skipped.
// Refreshes run a read-parse-cache cycle for changes made by others.
package persist

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/mesh-intelligence/boardsync/internal/cache"
	"github.com/mesh-intelligence/boardsync/internal/codec"
	"github.com/mesh-intelligence/boardsync/internal/command"
	"github.com/mesh-intelligence/boardsync/internal/fingerprint"
	"github.com/mesh-intelligence/boardsync/internal/scheduler"
	"github.com/mesh-intelligence/boardsync/pkg/types"
)

// Errors returned by the coordinator.
var (
	ErrIO                 = errors.New("board file i/o failed")
	ErrDocumentUnreadable = errors.New("document unreadable")
	ErrArchiveUnreadable  = errors.New("archive unreadable")
	ErrNothingToFix       = errors.New("no automatic fix available")
	ErrBoardExists        = errors.New("board file already exists")
	ErrConflict           = errors.New("board file changed on disk since it was last read")
)

// Codec converts between board files and boards.
type Codec interface {
	Parse(text []byte) (*types.Board, error)
	Serialize(b *types.Board) ([]byte, error)
	Lint(text []byte, opts codec.LintOptions) codec.LintResult
	ParseArchive(text []byte) (*codec.ArchiveDocument, error)
	SerializeArchive(a *codec.ArchiveDocument) ([]byte, error)
}

// ConflictError is the notice raised when the board file was changed by
// someone else between our last read or write and this command. It does not
// stop the command; the last write wins.
type ConflictError struct {
	Path     string
	Expected fingerprint.Fingerprint
	Found    fingerprint.Fingerprint
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s: expected content %s, found %s", e.Path, e.Expected, e.Found)
}

func (e *ConflictError) Unwrap() error { return ErrConflict }

// Outcome is the result of a successful command.
type Outcome struct {
	CommandID uuid.UUID
	Command   string
	// Board is the new board with the archive merged.
	Board *types.Board
	// Conflict is set when the file had changed externally before the write.
	Conflict *ConflictError
	// ArchiveWritten reports whether the archive file was rewritten.
	ArchiveWritten bool
}

// RefreshStatus says what a refresh did.
type RefreshStatus int

// Refresh statuses.
const (
	RefreshSkipped RefreshStatus = iota
	RefreshUpdated
	RefreshFailed
	RefreshDeleted
)

func (s RefreshStatus) String() string {
	switch s {
	case RefreshSkipped:
		return "skipped"
	case RefreshUpdated:
		return "updated"
	case RefreshFailed:
		return "failed"
	case RefreshDeleted:
		return "deleted"
	}
	return "unknown"
}

// RefreshResult describes one refresh.
type RefreshResult struct {
	Reason     scheduler.Reason
	Status     RefreshStatus
	Transition cache.Transition
	// Board is the cached board after the refresh, or nil.
	Board *types.Board
	// Diagnostics is set when the content did not parse, and after ApplyFix
	// describes the content that was written.
	Diagnostics *codec.LintResult
	// Fixed is the number of issues ApplyFix repaired.
	Fixed int
}

// Options configures a Coordinator. Zero fields take defaults.
type Options struct {
	Codec  Codec
	Cache  *cache.Cache
	Logger *slog.Logger
}

// Coordinator owns the disk and cache state of one board. All reads and
// writes of the board pair are serialized by one lock, so no two cycles run
// against the same files at once.
type Coordinator struct {
	path    string
	codec   Codec
	cache   *cache.Cache
	tracker *fingerprint.Tracker
	// buffer tracks unsaved editor content; tracker only ever holds what
	// was read from or written to disk.
	buffer  *fingerprint.Tracker
	archive *ArchiveStore
	writer  uuid.UUID
	logger  *slog.Logger

	mu sync.Mutex
}

// New returns a coordinator for the board file at path.
func New(path string, opts Options) *Coordinator {
	if opts.Codec == nil {
		opts.Codec = codec.New()
	}
	if opts.Cache == nil {
		opts.Cache = cache.New(cache.DefaultTolerance)
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	writer := uuid.New()
	logger := opts.Logger.With("component", "persist", "board", path, "writer", writer)
	return &Coordinator{
		path:    path,
		codec:   opts.Codec,
		cache:   opts.Cache,
		tracker: fingerprint.NewTracker(),
		buffer:  fingerprint.NewTracker(),
		archive: NewArchiveStore(path, opts.Codec, logger),
		writer:  writer,
		logger:  logger,
	}
}

// Path returns the board file path.
func (c *Coordinator) Path() string { return c.path }

// Cache returns the board cache.
func (c *Coordinator) Cache() *cache.Cache { return c.cache }

// Tracker returns the fingerprint tracker of the board file.
func (c *Coordinator) Tracker() *fingerprint.Tracker { return c.tracker }

// Archive returns the archive store.
func (c *Coordinator) Archive() *ArchiveStore { return c.archive }

// Create writes a new board file. It fails with ErrBoardExists when the file
// is already there.
func (c *Coordinator) Create(ctx context.Context, b *types.Board) (*types.Board, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	_, exists, err := readFile(c.path)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, fmt.Errorf("%w: %s", ErrBoardExists, c.path)
	}
	main := *b
	main.Archive = nil
	if err := c.writeBoard(&main); err != nil {
		return nil, err
	}
	c.cache.Succeed(&main)
	c.logger.Info("board created", "title", b.Title)
	return c.cache.Board(), nil
}

// Execute runs one command against the board file: read, parse, merge the
// archive, apply, write, record. Nothing is written when the document does
// not parse or the command fails. An external change since the last read is
// reported in Outcome.Conflict and overwritten.
func (c *Coordinator) Execute(ctx context.Context, cmd command.Command) (*Outcome, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("generating command id: %w", err)
	}
	logger := c.logger.With("command", cmd.Name(), "command_id", id)

	c.mu.Lock()
	defer c.mu.Unlock()

	data, exists, err := readFile(c.path)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("%w: %s does not exist", ErrIO, c.path)
	}

	outcome := &Outcome{CommandID: id, Command: cmd.Name()}
	found := fingerprint.Of(data)
	if last, src := c.tracker.Last(); src != fingerprint.SourceNone && last != found {
		outcome.Conflict = &ConflictError{Path: c.path, Expected: last, Found: found}
		logger.Warn("board changed externally, overwriting", "expected", last, "found", found)
	}

	board, err := c.codec.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrDocumentUnreadable, c.path, err)
	}
	archived, archiveErr := c.archive.read()
	var fileTasks []types.Task
	if archiveErr == nil {
		fileTasks = archived.doc.Tasks
	}
	merged := *board
	merged.Archive = cache.MergeArchive(fileTasks, board.Archive)

	next, err := cmd.Apply(&merged)
	if err != nil {
		logger.Debug("command rejected", "error", err)
		return nil, err
	}

	added, removed, archiveChanged := archiveDelta(fileTasks, next.Archive)
	if archiveErr != nil && (archiveChanged || introducesTaskID(&merged, next)) {
		// Without the archived IDs a new task could reuse a retired one.
		logger.Debug("command needs the archive", "error", archiveErr)
		return nil, archiveErr
	}

	main := *next
	main.Archive = nil
	if err := c.writeBoard(&main); err != nil {
		return nil, err
	}
	c.cache.Succeed(&main)

	if archiveChanged {
		tasks, err := c.archive.Update(ctx, func(current []types.Task) []types.Task {
			return applyDelta(current, added, removed)
		})
		if err != nil {
			return nil, fmt.Errorf("board written, archive not updated: %w", err)
		}
		c.cache.SetArchive(tasks)
		outcome.ArchiveWritten = true
	} else if archiveErr == nil {
		c.cache.SetArchive(fileTasks)
	}

	outcome.Board = c.cache.Board()
	logger.Info("command applied", "conflict", outcome.Conflict != nil, "archive_written", outcome.ArchiveWritten)
	return outcome, nil
}

// writeBoard serializes and writes the main board, then records the
// fingerprint. Callers hold c.mu.
func (c *Coordinator) writeBoard(b *types.Board) error {
	out, err := c.codec.Serialize(b)
	if err != nil {
		return fmt.Errorf("serializing board: %w", err)
	}
	return c.writeContent(out)
}

func (c *Coordinator) writeContent(out []byte) error {
	if err := writeFileAtomic(c.path, out); err != nil {
		return err
	}
	fp := fingerprint.Of(out)
	c.tracker.Record(fp)
	c.logger.Debug("board written", "bytes", len(out), "fingerprint", fp)
	return nil
}

// Refresh brings the cache up to date with the board file. For
// document-edit refreshes, content is the editor buffer and the file is not
// read; otherwise content is ignored. Archive-change refreshes reload only
// the archive. Content already seen, including our own writes, is skipped.
func (c *Coordinator) Refresh(ctx context.Context, reason scheduler.Reason, content []byte) (RefreshResult, error) {
	if err := ctx.Err(); err != nil {
		return RefreshResult{Reason: reason}, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if reason == scheduler.ReasonArchiveChange {
		return c.refreshArchive(reason)
	}

	data := content
	fromDisk := reason != scheduler.ReasonDocumentEdit || content == nil
	if fromDisk {
		var exists bool
		var err error
		data, exists, err = readFile(c.path)
		if err != nil {
			return RefreshResult{Reason: reason}, err
		}
		if !exists {
			c.tracker.Reset()
			c.buffer.Reset()
			tr := c.cache.Clear()
			c.logger.Info("board file missing", "reason", reason, "from", tr.From)
			return RefreshResult{Reason: reason, Status: RefreshDeleted, Transition: tr}, nil
		}
	}

	result, err := c.refreshMain(reason, data, fromDisk)
	if err != nil {
		return result, err
	}
	if reason == scheduler.ReasonInitial || reason == scheduler.ReasonFileCreate {
		archived, err := c.refreshArchive(reason)
		if err != nil {
			c.logger.Warn("archive not loaded", "error", err)
		}
		if archived.Status == RefreshUpdated && result.Status == RefreshSkipped {
			result.Status = RefreshUpdated
		}
		result.Board = c.cache.Board()
	}
	return result, nil
}

// refreshMain runs the parse and state transition for board content.
// fromDisk says whether data is the file or an editor buffer. Content seen
// on either side is skipped. Callers hold c.mu.
func (c *Coordinator) refreshMain(reason scheduler.Reason, data []byte, fromDisk bool) (RefreshResult, error) {
	fp := fingerprint.Of(data)
	seen := c.tracker.Seen(fp) || c.buffer.Seen(fp)
	if fromDisk && !c.tracker.Seen(fp) {
		c.tracker.Observe(fp)
	}
	if seen && reason != scheduler.ReasonInitial {
		state := c.cache.State()
		return RefreshResult{
			Reason:     reason,
			Status:     RefreshSkipped,
			Transition: cache.Transition{From: state, To: state},
			Board:      c.cache.Board(),
		}, nil
	}
	if !fromDisk {
		c.buffer.Observe(fp)
	}

	board, err := c.codec.Parse(data)
	if err != nil {
		diag := c.codec.Lint(data, codec.LintOptions{AutoFix: true})
		tr := c.cache.Fail(diag)
		c.logger.Warn("board did not parse", "reason", reason, "state", tr.To, "failures", tr.Failures, "issues", len(diag.Issues), "error", err)
		return RefreshResult{
			Reason:      reason,
			Status:      RefreshFailed,
			Transition:  tr,
			Board:       c.cache.Board(),
			Diagnostics: &diag,
		}, nil
	}

	tr := c.cache.Succeed(board)
	if tr.Changed() {
		c.logger.Info("board state changed", "reason", reason, "from", tr.From, "to", tr.To)
	}
	return RefreshResult{Reason: reason, Status: RefreshUpdated, Transition: tr, Board: c.cache.Board()}, nil
}

// refreshArchive reloads the archive file into the cache. A broken archive
// file keeps the previous archive. Callers hold c.mu.
func (c *Coordinator) refreshArchive(reason scheduler.Reason) (RefreshResult, error) {
	state := c.cache.State()
	result := RefreshResult{Reason: reason, Transition: cache.Transition{From: state, To: state}}

	f, err := c.archive.read()
	switch {
	case errors.Is(err, ErrArchiveUnreadable):
		c.logger.Warn("archive did not parse, keeping previous archive", "error", err)
		result.Status = RefreshFailed
	case err != nil:
		return result, err
	case !f.exists:
		_, src := c.archive.tracker.Last()
		c.archive.tracker.Reset()
		c.cache.SetArchive(nil)
		result.Status = RefreshSkipped
		if src != fingerprint.SourceNone {
			result.Status = RefreshUpdated
		}
	case c.archive.tracker.Seen(f.fingerprint):
		result.Status = RefreshSkipped
	default:
		c.archive.tracker.Observe(f.fingerprint)
		c.cache.SetArchive(f.doc.Tasks)
		result.Status = RefreshUpdated
	}
	result.Board = c.cache.Board()
	return result, nil
}

// ApplyFix writes the linter's automatic fix of the board file and reloads
// the cache from the fixed content. It returns ErrNothingToFix when the
// linter offers no fix.
func (c *Coordinator) ApplyFix(ctx context.Context) (RefreshResult, error) {
	const reason = scheduler.ReasonFileChange
	if err := ctx.Err(); err != nil {
		return RefreshResult{Reason: reason}, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	data, exists, err := readFile(c.path)
	if err != nil {
		return RefreshResult{Reason: reason}, err
	}
	if !exists {
		return RefreshResult{Reason: reason}, fmt.Errorf("%w: %s does not exist", ErrIO, c.path)
	}
	lint := c.codec.Lint(data, codec.LintOptions{AutoFix: true})
	if lint.FixedContent == nil {
		return RefreshResult{Reason: reason}, ErrNothingToFix
	}
	if err := c.writeContent(lint.FixedContent); err != nil {
		return RefreshResult{Reason: reason}, err
	}
	c.logger.Info("automatic fix applied", "issues", len(lint.Issues))

	// Parse the fixed bytes even though the tracker has just recorded them.
	c.tracker.Reset()
	c.buffer.Reset()
	res, err := c.refreshMain(reason, lint.FixedContent, true)
	if err != nil {
		return res, err
	}
	after := c.codec.Lint(lint.FixedContent, codec.LintOptions{})
	res.Diagnostics = &after
	for _, is := range lint.Issues {
		if is.Fixable {
			res.Fixed++
		}
	}
	return res, nil
}

// introducesTaskID reports whether after holds a task ID that before does
// not, on the board or in its archive.
func introducesTaskID(before, after *types.Board) bool {
	known := make(map[string]bool)
	for _, col := range before.Columns {
		for _, t := range col.Tasks {
			known[t.ID] = true
		}
	}
	for _, t := range before.Archive {
		known[t.ID] = true
	}
	for _, col := range after.Columns {
		for _, t := range col.Tasks {
			if !known[t.ID] {
				return true
			}
		}
	}
	for _, t := range after.Archive {
		if !known[t.ID] {
			return true
		}
	}
	return false
}
