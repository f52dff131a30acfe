// Package command exposes the board mutations as values. A Command is the
// unit the persistence coordinator executes: one read, one Apply, one write.
package command

import (
	"github.com/mesh-intelligence/boardsync/internal/mutation"
	"github.com/mesh-intelligence/boardsync/pkg/types"
)

// Command is one named board mutation.
type Command interface {
	// Name identifies the command in logs and outcomes.
	Name() string
	// Apply returns the mutated board. The input is not modified.
	Apply(b *types.Board) (*types.Board, error)
}

// Func adapts a function to Command.
type Func struct {
	Label string
	Fn    func(*types.Board) (*types.Board, error)
}

func (f Func) Name() string { return f.Label }
func (f Func) Apply(b *types.Board) (*types.Board, error) { return f.Fn(b) }

// AddTask adds a task to the end of a column.
type AddTask struct {
	ColumnID    string
	Title       string
	Description string
}

func (AddTask) Name() string { return "addTask" }

func (c AddTask) Apply(b *types.Board) (*types.Board, error) {
	return mutation.AddTask(b, c.ColumnID, c.Title, c.Description)
}

// UpdateTask sets a task's title and description.
type UpdateTask struct {
	ColumnID    string
	TaskID      string
	Title       string
	Description string
}

func (UpdateTask) Name() string { return "updateTask" }

func (c UpdateTask) Apply(b *types.Board) (*types.Board, error) {
	return mutation.UpdateTask(b, c.ColumnID, c.TaskID, c.Title, c.Description)
}

// DeleteTask removes a task from a column.
type DeleteTask struct {
	ColumnID string
	TaskID   string
}

func (DeleteTask) Name() string { return "deleteTask" }

func (c DeleteTask) Apply(b *types.Board) (*types.Board, error) {
	return mutation.DeleteTask(b, c.ColumnID, c.TaskID)
}

// MoveTask moves a task within or between columns.
type MoveTask struct {
	TaskID       string
	FromColumnID string
	ToColumnID   string
	ToIndex      int
}

func (MoveTask) Name() string { return "moveTask" }

func (c MoveTask) Apply(b *types.Board) (*types.Board, error) {
	return mutation.MoveTask(b, c.TaskID, c.FromColumnID, c.ToColumnID, c.ToIndex)
}

// PatchTask changes optional task fields.
type PatchTask struct {
	TaskID string
	Patch  mutation.TaskPatch
}

func (PatchTask) Name() string { return "patchTask" }

func (c PatchTask) Apply(b *types.Board) (*types.Board, error) {
	return mutation.PatchTask(b, c.TaskID, c.Patch)
}

// ArchiveTask moves a task from a column to the archive.
type ArchiveTask struct {
	ColumnID string
	TaskID   string
}

func (ArchiveTask) Name() string { return "archiveTask" }

func (c ArchiveTask) Apply(b *types.Board) (*types.Board, error) {
	return mutation.ArchiveTask(b, c.ColumnID, c.TaskID)
}

// RestoreTask moves an archived task back to a column.
type RestoreTask struct {
	TaskID   string
	ColumnID string
}

func (RestoreTask) Name() string { return "restoreTask" }

func (c RestoreTask) Apply(b *types.Board) (*types.Board, error) {
	return mutation.RestoreTask(b, c.TaskID, c.ColumnID)
}

// ToggleSubtask flips a subtask's completed flag.
type ToggleSubtask struct {
	TaskID    string
	SubtaskID string
}

func (ToggleSubtask) Name() string { return "toggleSubtask" }

func (c ToggleSubtask) Apply(b *types.Board) (*types.Board, error) {
	return mutation.ToggleSubtask(b, c.TaskID, c.SubtaskID)
}

// AddSubtask appends a subtask to a task.
type AddSubtask struct {
	TaskID string
	Title  string
}

func (AddSubtask) Name() string { return "addSubtask" }

func (c AddSubtask) Apply(b *types.Board) (*types.Board, error) {
	return mutation.AddSubtask(b, c.TaskID, c.Title)
}

// UpdateSubtask renames a subtask.
type UpdateSubtask struct {
	TaskID    string
	SubtaskID string
	Title     string
}

func (UpdateSubtask) Name() string { return "updateSubtask" }

func (c UpdateSubtask) Apply(b *types.Board) (*types.Board, error) {
	return mutation.UpdateSubtask(b, c.TaskID, c.SubtaskID, c.Title)
}

// DeleteSubtask removes a subtask.
type DeleteSubtask struct {
	TaskID    string
	SubtaskID string
}

func (DeleteSubtask) Name() string { return "deleteSubtask" }

func (c DeleteSubtask) Apply(b *types.Board) (*types.Board, error) {
	return mutation.DeleteSubtask(b, c.TaskID, c.SubtaskID)
}

// UpdateBoardTitle sets the board title.
type UpdateBoardTitle struct {
	Title string
}

func (UpdateBoardTitle) Name() string { return "updateBoardTitle" }

func (c UpdateBoardTitle) Apply(b *types.Board) (*types.Board, error) {
	return mutation.UpdateBoardTitle(b, c.Title), nil
}

// UpdateStatsConfig selects the stats columns.
type UpdateStatsConfig struct {
	Columns []string
}

func (UpdateStatsConfig) Name() string { return "updateStatsConfig" }

func (c UpdateStatsConfig) Apply(b *types.Board) (*types.Board, error) {
	return mutation.UpdateStatsConfig(b, c.Columns), nil
}

// AddColumn appends an empty column.
type AddColumn struct {
	ColumnID string
	Title    string
}

func (AddColumn) Name() string { return "addColumn" }

func (c AddColumn) Apply(b *types.Board) (*types.Board, error) {
	return mutation.AddColumn(b, c.ColumnID, c.Title)
}

// DeleteColumn removes an empty column.
type DeleteColumn struct {
	ColumnID string
}

func (DeleteColumn) Name() string { return "deleteColumn" }

func (c DeleteColumn) Apply(b *types.Board) (*types.Board, error) {
	return mutation.DeleteColumn(b, c.ColumnID)
}

// AddRule appends a rule to a bucket.
type AddRule struct {
	RuleType string
	Text     string
}

func (AddRule) Name() string { return "addRule" }

func (c AddRule) Apply(b *types.Board) (*types.Board, error) {
	return mutation.AddRule(b, c.RuleType, c.Text)
}

// UpdateRule replaces a rule's text.
type UpdateRule struct {
	RuleType string
	ID       int
	Text     string
}

func (UpdateRule) Name() string { return "updateRule" }

func (c UpdateRule) Apply(b *types.Board) (*types.Board, error) {
	return mutation.UpdateRule(b, c.RuleType, c.ID, c.Text)
}

// DeleteRule removes a rule.
type DeleteRule struct {
	RuleType string
	ID       int
}

func (DeleteRule) Name() string { return "deleteRule" }

func (c DeleteRule) Apply(b *types.Board) (*types.Board, error) {
	return mutation.DeleteRule(b, c.RuleType, c.ID)
}
