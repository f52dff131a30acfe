// Package cache holds the last good board for one open board file and
// decides, after each parse, whether the view keeps showing it.
//
// States move Empty -> Valid -> TransientError -> HardError. A success from
// any state returns to Valid. Failures while a board is cached are tolerated
// until the tolerance is reached; then the board is dropped. Deleting the
// file returns to Empty.
package cache

import (
	"slices"
	"sync"

	"github.com/mesh-intelligence/boardsync/internal/codec"
	"github.com/mesh-intelligence/boardsync/pkg/types"
)

// DefaultTolerance is the number of consecutive parse failures after which
// the cached board is dropped.
const DefaultTolerance = 3

// State is the parse-tolerance state.
type State int

// Parse-tolerance states.
const (
	StateEmpty State = iota
	StateValid
	StateTransientError
	StateHardError
)

func (s State) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StateValid:
		return "valid"
	case StateTransientError:
		return "transient-error"
	case StateHardError:
		return "hard-error"
	}
	return "unknown"
}

// Transition describes one state change. From and To may be equal.
type Transition struct {
	From     State
	To       State
	Failures int
}

// Changed reports whether the state moved.
func (t Transition) Changed() bool { return t.From != t.To }

// Snapshot is a consistent view of the cache.
type Snapshot struct {
	State    State
	Failures int
	// Board is the cached board with the archive merged, or nil.
	Board *types.Board
	// Diagnostics is the lint result of the last failed parse. It is
	// cleared by a success.
	Diagnostics *codec.LintResult
}

// Cache is the state machine plus the cached board and archive.
// Safe for concurrent use.
type Cache struct {
	mu          sync.RWMutex
	tolerance   int
	state       State
	failures    int
	board       *types.Board
	archive     []types.Task
	diagnostics *codec.LintResult
}

// New returns an empty cache. A tolerance below 1 selects DefaultTolerance.
func New(tolerance int) *Cache {
	if tolerance < 1 {
		tolerance = DefaultTolerance
	}
	return &Cache{tolerance: tolerance}
}

// Tolerance returns the configured failure tolerance.
func (c *Cache) Tolerance() int { return c.tolerance }

// Succeed records a successful parse and caches b.
func (c *Cache) Succeed(b *types.Board) Transition {
	c.mu.Lock()
	defer c.mu.Unlock()
	from := c.state
	c.state = StateValid
	c.failures = 0
	c.board = b
	c.diagnostics = nil
	return Transition{From: from, To: c.state}
}

// Fail records a failed parse with its lint diagnostics.
func (c *Cache) Fail(diagnostics codec.LintResult) Transition {
	c.mu.Lock()
	defer c.mu.Unlock()
	from := c.state
	c.failures++
	c.diagnostics = &diagnostics

	switch {
	case from == StateEmpty, from == StateHardError, c.failures >= c.tolerance:
		c.state = StateHardError
		c.board = nil
	default:
		c.state = StateTransientError
	}
	return Transition{From: from, To: c.state, Failures: c.failures}
}

// Clear resets the cache after the file was deleted.
func (c *Cache) Clear() Transition {
	c.mu.Lock()
	defer c.mu.Unlock()
	from := c.state
	c.state = StateEmpty
	c.failures = 0
	c.board = nil
	c.archive = nil
	c.diagnostics = nil
	return Transition{From: from, To: c.state}
}

// SetArchive replaces the tasks read from the archive file.
func (c *Cache) SetArchive(tasks []types.Task) {
	c.mu.Lock()
	c.archive = tasks
	c.mu.Unlock()
}

// State returns the current state.
func (c *Cache) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Board returns the cached board with the archive merged, or nil.
func (c *Cache) Board() *types.Board {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.merged()
}

// Snapshot returns state, board and diagnostics read together.
func (c *Cache) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Snapshot{
		State:       c.state,
		Failures:    c.failures,
		Board:       c.merged(),
		Diagnostics: c.diagnostics,
	}
}

func (c *Cache) merged() *types.Board {
	if c.board == nil {
		return nil
	}
	nb := *c.board
	nb.Archive = MergeArchive(c.archive, c.board.Archive)
	return &nb
}

// MergeArchive combines archive-file tasks with tasks still stored inline in
// the board file. Archive-file tasks come first; inline tasks whose IDs are
// already present are dropped.
func MergeArchive(fromFile, inline []types.Task) []types.Task {
	if len(inline) == 0 {
		return slices.Clone(fromFile)
	}
	seen := make(map[string]bool, len(fromFile))
	out := make([]types.Task, 0, len(fromFile)+len(inline))
	for _, t := range fromFile {
		seen[t.ID] = true
		out = append(out, t)
	}
	for _, t := range inline {
		if !seen[t.ID] {
			seen[t.ID] = true
			out = append(out, t)
		}
	}
	return out
}
