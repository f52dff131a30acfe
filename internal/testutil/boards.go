package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/boardsync/pkg/types"
)

// BoardDocument is a small board file: todo holds task-1 and task-2 (with
// two subtasks), done holds task-3.
const BoardDocument = `---
title: Sample
rules:
  always:
    - id: 1
      rule: Run the tests
columns:
  - id: todo
    title: To Do
    tasks:
      - id: task-1
        title: First
      - id: task-2
        title: Second
        priority: high
        subtasks:
          - id: task-2-1
            title: Draft
            completed: false
          - id: task-2-2
            title: Review
            completed: true
  - id: done
    title: Done
    tasks:
      - id: task-3
        title: Third
---

# Notes
`

// Board returns a fresh in-memory copy of the board in BoardDocument.
func Board() *types.Board {
	high := types.Builtin(types.PriorityHigh)
	return &types.Board{
		Title: "Sample",
		Rules: &types.Rules{Always: []types.Rule{{ID: 1, Rule: "Run the tests"}}},
		Columns: []types.Column{
			{ID: "todo", Title: "To Do", Tasks: []types.Task{
				{ID: "task-1", Title: "First"},
				{ID: "task-2", Title: "Second", Priority: &high, Subtasks: []types.Subtask{
					{ID: "task-2-1", Title: "Draft"},
					{ID: "task-2-2", Title: "Review", Completed: true},
				}},
			}},
			{ID: "done", Title: "Done", Tasks: []types.Task{
				{ID: "task-3", Title: "Third"},
			}},
		},
		Body: "\n# Notes\n",
	}
}

// WriteFile writes content to name inside dir and returns the full path.
func WriteFile(t testing.TB, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// ReadFile returns the content of path.
func ReadFile(t testing.TB, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}
