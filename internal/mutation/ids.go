// Package mutation implements the board operations. Every operation takes a
// board and returns a new one; the input is never modified. Unchanged
// columns, tasks and slices may be shared between the two boards, so callers
// must not rely on pointer identity to detect changes.
//
// Expected failures (missing column, task, subtask or rule, bad index or
// priority) are returned as errors wrapping the sentinels in pkg/types; no
// operation panics for them.
package mutation

import (
	"regexp"
	"strconv"

	"github.com/mesh-intelligence/boardsync/pkg/types"
)

var taskNumberRe = regexp.MustCompile(`task-(\d+)`)

// ExtractTaskNumber returns the first run of digits that follows the literal
// "task-" in id. IDs without one, or with a number too large to represent,
// return 0.
func ExtractTaskNumber(id string) int {
	m := taskNumberRe.FindStringSubmatch(id)
	if m == nil {
		return 0
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0
	}
	return n
}

// GenerateNextTaskID returns "task-<max+1>" where max is the highest task
// number across all columns and the archive. Custom IDs count as 0.
func GenerateNextTaskID(b *types.Board) string {
	highest := 0
	visit := func(tasks []types.Task) {
		for _, t := range tasks {
			if n := ExtractTaskNumber(t.ID); n > highest {
				highest = n
			}
		}
	}
	for _, c := range b.Columns {
		visit(c.Tasks)
	}
	visit(b.Archive)
	return types.TaskIDPrefix + strconv.Itoa(highest+1)
}

// TaskIDExists reports whether any column or the archive holds taskID.
func TaskIDExists(b *types.Board, taskID string) bool {
	_, _, ok := FindTask(b, taskID)
	if ok {
		return true
	}
	return archiveIndex(b, taskID) >= 0
}

// FindTask scans every column for taskID. It returns the task and the ID of
// the column holding it.
func FindTask(b *types.Board, taskID string) (types.Task, string, bool) {
	ci, ti := locate(b, taskID)
	if ci < 0 {
		return types.Task{}, "", false
	}
	return b.Columns[ci].Tasks[ti], b.Columns[ci].ID, true
}

// locate returns the column and task index of taskID, or -1, -1.
func locate(b *types.Board, taskID string) (int, int) {
	for ci := range b.Columns {
		if ti := b.Columns[ci].TaskIndex(taskID); ti >= 0 {
			return ci, ti
		}
	}
	return -1, -1
}

func archiveIndex(b *types.Board, taskID string) int {
	for i := range b.Archive {
		if b.Archive[i].ID == taskID {
			return i
		}
	}
	return -1
}
