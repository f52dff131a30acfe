package mutation

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/mesh-intelligence/boardsync/pkg/types"
)

// subtaskTarget finds a task by board-wide scan. Task IDs are unique, so the
// column does not need to be named.
func subtaskTarget(b *types.Board, taskID string) (int, int, types.Task, error) {
	ci, ti := locate(b, taskID)
	if ci < 0 {
		return -1, -1, types.Task{}, fmt.Errorf("task %q: %w", taskID, types.ErrTaskNotFound)
	}
	return ci, ti, b.Columns[ci].Tasks[ti], nil
}

func subtaskIndex(task types.Task, subtaskID string) (int, error) {
	if len(task.Subtasks) == 0 {
		return -1, fmt.Errorf("task %q: %w", task.ID, types.ErrNoSubtasks)
	}
	si := task.SubtaskIndex(subtaskID)
	if si < 0 {
		return -1, fmt.Errorf("subtask %q of %q: %w", subtaskID, task.ID, types.ErrSubtaskNotFound)
	}
	return si, nil
}

// ToggleSubtask flips the completed flag of a subtask.
func ToggleSubtask(b *types.Board, taskID, subtaskID string) (*types.Board, error) {
	ci, ti, task, err := subtaskTarget(b, taskID)
	if err != nil {
		return nil, err
	}
	si, err := subtaskIndex(task, subtaskID)
	if err != nil {
		return nil, err
	}
	task.Subtasks = slices.Clone(task.Subtasks)
	task.Subtasks[si].Completed = !task.Subtasks[si].Completed
	return replaceTask(b, ci, ti, task), nil
}

// AddSubtask appends an open subtask. Its ID is "<taskID>-<n>" with n one
// past the highest numeric suffix among the existing subtasks.
func AddSubtask(b *types.Board, taskID, title string) (*types.Board, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, fmt.Errorf("subtask: %w", types.ErrEmptyTitle)
	}
	ci, ti, task, err := subtaskTarget(b, taskID)
	if err != nil {
		return nil, err
	}
	sub := types.Subtask{ID: nextSubtaskID(task), Title: title}
	task.Subtasks = append(slices.Clip(task.Subtasks), sub)
	return replaceTask(b, ci, ti, task), nil
}

// UpdateSubtask renames a subtask.
func UpdateSubtask(b *types.Board, taskID, subtaskID, title string) (*types.Board, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, fmt.Errorf("subtask %q: %w", subtaskID, types.ErrEmptyTitle)
	}
	ci, ti, task, err := subtaskTarget(b, taskID)
	if err != nil {
		return nil, err
	}
	si, err := subtaskIndex(task, subtaskID)
	if err != nil {
		return nil, err
	}
	task.Subtasks = slices.Clone(task.Subtasks)
	task.Subtasks[si].Title = title
	return replaceTask(b, ci, ti, task), nil
}

// DeleteSubtask removes a subtask.
func DeleteSubtask(b *types.Board, taskID, subtaskID string) (*types.Board, error) {
	ci, ti, task, err := subtaskTarget(b, taskID)
	if err != nil {
		return nil, err
	}
	si, err := subtaskIndex(task, subtaskID)
	if err != nil {
		return nil, err
	}
	task.Subtasks = slices.Delete(slices.Clone(task.Subtasks), si, si+1)
	if len(task.Subtasks) == 0 {
		task.Subtasks = nil
	}
	return replaceTask(b, ci, ti, task), nil
}

func nextSubtaskID(task types.Task) string {
	highest := 0
	for _, s := range task.Subtasks {
		i := strings.LastIndexByte(s.ID, '-')
		if i < 0 {
			continue
		}
		if n, err := strconv.Atoi(s.ID[i+1:]); err == nil && n > highest {
			highest = n
		}
	}
	return task.ID + "-" + strconv.Itoa(highest+1)
}
