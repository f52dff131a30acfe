package mutation

import (
	"fmt"
	"slices"
	"strings"

	"github.com/mesh-intelligence/boardsync/pkg/types"
)

// clone returns a shallow copy of b with its own column slice. Callers that
// change a column's tasks must also give that column its own task slice.
func clone(b *types.Board) *types.Board {
	nb := *b
	nb.Columns = slices.Clone(b.Columns)
	return &nb
}

func columnIndex(b *types.Board, columnID string) (int, error) {
	_, i := b.Column(columnID)
	if i < 0 {
		return -1, fmt.Errorf("column %q: %w", columnID, types.ErrColumnNotFound)
	}
	return i, nil
}

func taskIndex(b *types.Board, ci int, taskID string) (int, error) {
	ti := b.Columns[ci].TaskIndex(taskID)
	if ti < 0 {
		return -1, fmt.Errorf("task %q in column %q: %w", taskID, b.Columns[ci].ID, types.ErrTaskNotFound)
	}
	return ti, nil
}

// AddTask appends a new task to the end of the column and assigns it the
// next task ID. Title and description are trimmed.
func AddTask(b *types.Board, columnID, title, description string) (*types.Board, error) {
	ci, err := columnIndex(b, columnID)
	if err != nil {
		return nil, err
	}
	task := types.Task{
		ID:          GenerateNextTaskID(b),
		Title:       strings.TrimSpace(title),
		Description: strings.TrimSpace(description),
	}
	nb := clone(b)
	col := &nb.Columns[ci]
	col.Tasks = append(slices.Clip(col.Tasks), task)
	return nb, nil
}

// UpdateTask replaces the title and description of a task in the given column.
func UpdateTask(b *types.Board, columnID, taskID, title, description string) (*types.Board, error) {
	ci, err := columnIndex(b, columnID)
	if err != nil {
		return nil, err
	}
	ti, err := taskIndex(b, ci, taskID)
	if err != nil {
		return nil, err
	}
	nb := clone(b)
	col := &nb.Columns[ci]
	col.Tasks = slices.Clone(col.Tasks)
	col.Tasks[ti].Title = strings.TrimSpace(title)
	col.Tasks[ti].Description = strings.TrimSpace(description)
	return nb, nil
}

// DeleteTask removes a task from the given column.
func DeleteTask(b *types.Board, columnID, taskID string) (*types.Board, error) {
	ci, err := columnIndex(b, columnID)
	if err != nil {
		return nil, err
	}
	ti, err := taskIndex(b, ci, taskID)
	if err != nil {
		return nil, err
	}
	nb := clone(b)
	col := &nb.Columns[ci]
	col.Tasks = slices.Delete(slices.Clone(col.Tasks), ti, ti+1)
	return nb, nil
}

// MoveTask moves a task to toIndex in the target column. For a move within
// one column the index is measured after the task is removed. Indexes past
// the end append.
func MoveTask(b *types.Board, taskID, fromColumnID, toColumnID string, toIndex int) (*types.Board, error) {
	if toIndex < 0 {
		return nil, fmt.Errorf("move to %d: %w", toIndex, types.ErrInvalidIndex)
	}
	from, err := columnIndex(b, fromColumnID)
	if err != nil {
		return nil, err
	}
	to, err := columnIndex(b, toColumnID)
	if err != nil {
		return nil, err
	}
	ti, err := taskIndex(b, from, taskID)
	if err != nil {
		return nil, err
	}

	nb := clone(b)
	task := b.Columns[from].Tasks[ti]
	src := &nb.Columns[from]
	src.Tasks = slices.Delete(slices.Clone(src.Tasks), ti, ti+1)

	dst := &nb.Columns[to]
	if to != from {
		dst.Tasks = slices.Clone(dst.Tasks)
	}
	dst.Tasks = slices.Insert(dst.Tasks, min(toIndex, len(dst.Tasks)), task)
	return nb, nil
}

// ArchiveTask removes a task from its column and prepends it to the archive.
func ArchiveTask(b *types.Board, columnID, taskID string) (*types.Board, error) {
	ci, err := columnIndex(b, columnID)
	if err != nil {
		return nil, err
	}
	ti, err := taskIndex(b, ci, taskID)
	if err != nil {
		return nil, err
	}
	nb := clone(b)
	col := &nb.Columns[ci]
	task := col.Tasks[ti]
	col.Tasks = slices.Delete(slices.Clone(col.Tasks), ti, ti+1)
	nb.Archive = append([]types.Task{task}, b.Archive...)
	return nb, nil
}

// RestoreTask moves an archived task to the end of the given column.
func RestoreTask(b *types.Board, taskID, columnID string) (*types.Board, error) {
	ci, err := columnIndex(b, columnID)
	if err != nil {
		return nil, err
	}
	ai := archiveIndex(b, taskID)
	if ai < 0 {
		return nil, fmt.Errorf("task %q in archive: %w", taskID, types.ErrTaskNotFound)
	}
	nb := clone(b)
	nb.Archive = slices.Delete(slices.Clone(b.Archive), ai, ai+1)
	col := &nb.Columns[ci]
	col.Tasks = append(slices.Clip(col.Tasks), b.Archive[ai])
	return nb, nil
}

// TaskPatch lists optional task field changes. Nil fields are left alone;
// an empty string or slice clears the field.
type TaskPatch struct {
	Priority     *string
	Tags         *[]string
	Assignee     *string
	DueDate      *string
	RelatedFiles *[]string
}

// PatchTask applies a TaskPatch to the task with the given ID, wherever it
// is on the board. Priorities are validated with types.ParsePriority.
func PatchTask(b *types.Board, taskID string, patch TaskPatch) (*types.Board, error) {
	ci, ti := locate(b, taskID)
	if ci < 0 {
		return nil, fmt.Errorf("task %q: %w", taskID, types.ErrTaskNotFound)
	}

	task := b.Columns[ci].Tasks[ti]
	if patch.Priority != nil {
		if strings.TrimSpace(*patch.Priority) == "" {
			task.Priority = nil
		} else {
			p, err := types.ParsePriority(*patch.Priority)
			if err != nil {
				return nil, err
			}
			task.Priority = &p
		}
	}
	if patch.Tags != nil {
		task.Tags = nonEmpty(*patch.Tags)
	}
	if patch.Assignee != nil {
		task.Assignee = strings.TrimSpace(*patch.Assignee)
	}
	if patch.DueDate != nil {
		task.DueDate = strings.TrimSpace(*patch.DueDate)
	}
	if patch.RelatedFiles != nil {
		task.RelatedFiles = nonEmpty(*patch.RelatedFiles)
	}

	return replaceTask(b, ci, ti, task), nil
}

// replaceTask returns a copy of b with the task at (ci, ti) replaced.
func replaceTask(b *types.Board, ci, ti int, task types.Task) *types.Board {
	nb := clone(b)
	col := &nb.Columns[ci]
	col.Tasks = slices.Clone(col.Tasks)
	col.Tasks[ti] = task
	return nb
}

// nonEmpty trims values and drops blanks. It returns nil when nothing is left
// so the field is omitted on serialization.
func nonEmpty(values []string) []string {
	var out []string
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
