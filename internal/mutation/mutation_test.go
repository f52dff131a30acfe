package mutation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/boardsync/internal/codec"
	"github.com/mesh-intelligence/boardsync/internal/testutil"
	"github.com/mesh-intelligence/boardsync/pkg/types"
)

func snapshot(t *testing.T, b *types.Board) string {
	t.Helper()
	out, err := codec.New().Serialize(b)
	require.NoError(t, err)
	return string(out)
}

func taskIDs(c types.Column) []string {
	ids := make([]string, 0, len(c.Tasks))
	for _, t := range c.Tasks {
		ids = append(ids, t.ID)
	}
	return ids
}

func column(t *testing.T, b *types.Board, id string) types.Column {
	t.Helper()
	c, i := b.Column(id)
	require.GreaterOrEqual(t, i, 0, "column %s", id)
	return *c
}

func boardWithIDs(ids ...string) *types.Board {
	b := types.NewBoard("ids")
	for _, id := range ids {
		b.Columns[0].Tasks = append(b.Columns[0].Tasks, types.Task{ID: id})
	}
	return b
}

func TestExtractTaskNumber(t *testing.T) {
	tests := []struct {
		id   string
		want int
	}{
		{"task-1", 1},
		{"task-042", 42},
		{"task-7-draft", 7},
		{"legacy-task-12", 12},
		{"task-", 0},
		{"task-abc", 0},
		{"TASK-9", 0},
		{"custom", 0},
		{"", 0},
		{"task-99999999999999999999999", 0},
	}
	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractTaskNumber(tt.id))
		})
	}
}

func TestGenerateNextTaskID(t *testing.T) {
	tests := []struct {
		name string
		ids  []string
		want string
	}{
		{"mixed", []string{"task-1", "task-5", "task-10"}, "task-11"},
		{"empty", nil, "task-1"},
		{"single high", []string{"task-100"}, "task-101"},
		{"custom ids only", []string{"alpha", "beta"}, "task-1"},
		{"custom and generated", []string{"alpha", "task-3"}, "task-4"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, GenerateNextTaskID(boardWithIDs(tt.ids...)))
		})
	}
}

func TestGenerateNextTaskIDCountsArchive(t *testing.T) {
	b := boardWithIDs("task-2")
	b.Archive = []types.Task{{ID: "task-9"}}
	assert.Equal(t, "task-10", GenerateNextTaskID(b))
}

func TestOperationsLeaveInputUnchanged(t *testing.T) {
	ops := []struct {
		name string
		op   func(*types.Board) (*types.Board, error)
	}{
		{"addTask", func(b *types.Board) (*types.Board, error) { return AddTask(b, "todo", "New", "desc") }},
		{"updateTask", func(b *types.Board) (*types.Board, error) { return UpdateTask(b, "todo", "task-1", "Renamed", "x") }},
		{"deleteTask", func(b *types.Board) (*types.Board, error) { return DeleteTask(b, "todo", "task-2") }},
		{"moveTask same column", func(b *types.Board) (*types.Board, error) { return MoveTask(b, "task-2", "todo", "todo", 0) }},
		{"moveTask across", func(b *types.Board) (*types.Board, error) { return MoveTask(b, "task-1", "todo", "done", 0) }},
		{"toggleSubtask", func(b *types.Board) (*types.Board, error) { return ToggleSubtask(b, "task-2", "task-2-1") }},
		{"archiveTask", func(b *types.Board) (*types.Board, error) { return ArchiveTask(b, "done", "task-3") }},
		{"patchTask", func(b *types.Board) (*types.Board, error) {
			p := "low"
			return PatchTask(b, "task-2", TaskPatch{Priority: &p, Tags: &[]string{"x"}})
		}},
		{"addSubtask", func(b *types.Board) (*types.Board, error) { return AddSubtask(b, "task-2", "Ship") }},
		{"deleteSubtask", func(b *types.Board) (*types.Board, error) { return DeleteSubtask(b, "task-2", "task-2-2") }},
		{"addRule", func(b *types.Board) (*types.Board, error) { return AddRule(b, types.RuleAlways, "Lint first") }},
		{"deleteRule", func(b *types.Board) (*types.Board, error) { return DeleteRule(b, types.RuleAlways, 1) }},
		{"addColumn", func(b *types.Board) (*types.Board, error) { return AddColumn(b, "review", "Review") }},
		{"updateBoardTitle", func(b *types.Board) (*types.Board, error) { return UpdateBoardTitle(b, "Other"), nil }},
	}
	for _, tt := range ops {
		t.Run(tt.name, func(t *testing.T) {
			b := testutil.Board()
			before := snapshot(t, b)

			nb, err := tt.op(b)
			require.NoError(t, err)
			require.NotNil(t, nb)

			assert.Equal(t, before, snapshot(t, b))
			assert.NotEqual(t, before, snapshot(t, nb))
		})
	}
}

func TestAddTask(t *testing.T) {
	b := testutil.Board()

	nb, err := AddTask(b, "done", "  Write docs \n", "  details ")
	require.NoError(t, err)

	done := column(t, nb, "done")
	require.Len(t, done.Tasks, 2)
	added := done.Tasks[1]
	assert.Equal(t, "task-4", added.ID)
	assert.Equal(t, "Write docs", added.Title)
	assert.Equal(t, "details", added.Description)
	assert.True(t, TaskIDExists(nb, added.ID))
	assert.False(t, TaskIDExists(b, added.ID))

	_, err = AddTask(b, "missing", "x", "")
	assert.ErrorIs(t, err, types.ErrColumnNotFound)
	assert.ErrorIs(t, err, types.ErrValidation)
}

func TestAddThenDeleteRestoresCount(t *testing.T) {
	b := testutil.Board()
	before := len(column(t, b, "todo").Tasks)

	added, err := AddTask(b, "todo", "Temp", "")
	require.NoError(t, err)
	id := GenerateNextTaskID(b)
	require.True(t, TaskIDExists(added, id))

	removed, err := DeleteTask(added, "todo", id)
	require.NoError(t, err)
	assert.Len(t, column(t, removed, "todo").Tasks, before)
}

func TestUpdateTaskRequiresColumn(t *testing.T) {
	b := testutil.Board()

	_, err := UpdateTask(b, "done", "task-1", "x", "")
	assert.ErrorIs(t, err, types.ErrTaskNotFound)

	nb, err := UpdateTask(b, "todo", "task-1", " Renamed ", "")
	require.NoError(t, err)
	task, col, ok := FindTask(nb, "task-1")
	require.True(t, ok)
	assert.Equal(t, "todo", col)
	assert.Equal(t, "Renamed", task.Title)
}

func TestDeleteTaskNotFound(t *testing.T) {
	_, err := DeleteTask(testutil.Board(), "todo", "task-3")
	assert.ErrorIs(t, err, types.ErrTaskNotFound)
}

func TestMoveTask(t *testing.T) {
	b := testutil.Board()
	b.Columns[0].Tasks = append(b.Columns[0].Tasks, types.Task{ID: "task-4"}, types.Task{ID: "task-5"})

	tests := []struct {
		name     string
		taskID   string
		from, to string
		index    int
		wantFrom []string
		wantTo   []string
	}{
		{"same column to front", "task-2", "todo", "todo", 0, nil, []string{"task-2", "task-1", "task-4", "task-5"}},
		{"same column to end", "task-1", "todo", "todo", 3, nil, []string{"task-2", "task-4", "task-5", "task-1"}},
		{"same column past end", "task-1", "todo", "todo", 99, nil, []string{"task-2", "task-4", "task-5", "task-1"}},
		{"same column middle", "task-5", "todo", "todo", 1, nil, []string{"task-1", "task-5", "task-2", "task-4"}},
		{"across to front", "task-4", "todo", "done", 0, []string{"task-1", "task-2", "task-5"}, []string{"task-4", "task-3"}},
		{"across clamped", "task-4", "todo", "done", 10, []string{"task-1", "task-2", "task-5"}, []string{"task-3", "task-4"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			nb, err := MoveTask(b, tt.taskID, tt.from, tt.to, tt.index)
			require.NoError(t, err)
			assert.Equal(t, tt.wantTo, taskIDs(column(t, nb, tt.to)))
			if tt.wantFrom != nil {
				assert.Equal(t, tt.wantFrom, taskIDs(column(t, nb, tt.from)))
			}
			assert.Equal(t, b.TaskCount(), nb.TaskCount())
		})
	}
}

func TestMoveTaskErrors(t *testing.T) {
	b := testutil.Board()

	_, err := MoveTask(b, "task-1", "nope", "done", 0)
	assert.ErrorIs(t, err, types.ErrColumnNotFound)
	_, err = MoveTask(b, "task-1", "todo", "nope", 0)
	assert.ErrorIs(t, err, types.ErrColumnNotFound)
	_, err = MoveTask(b, "task-3", "todo", "done", 0)
	assert.ErrorIs(t, err, types.ErrTaskNotFound)
	_, err = MoveTask(b, "task-1", "todo", "done", -1)
	assert.ErrorIs(t, err, types.ErrInvalidIndex)
}

func TestMoveTaskEndToEnd(t *testing.T) {
	b := types.NewBoard("e2e")
	b.Columns = []types.Column{
		{ID: "todo", Title: "To Do", Tasks: []types.Task{{ID: "task-1", Title: "Only"}}},
		{ID: "done", Title: "Done", Tasks: []types.Task{}},
	}

	nb, err := MoveTask(b, "task-1", "todo", "done", 0)
	require.NoError(t, err)

	assert.Empty(t, column(t, nb, "todo").Tasks)
	done := column(t, nb, "done")
	require.Len(t, done.Tasks, 1)
	assert.Equal(t, "task-1", done.Tasks[0].ID)
}

func TestToggleSubtask(t *testing.T) {
	b := testutil.Board()

	nb, err := ToggleSubtask(b, "task-2", "task-2-1")
	require.NoError(t, err)
	task, _, _ := FindTask(nb, "task-2")
	assert.True(t, task.Subtasks[0].Completed)
	assert.True(t, task.Subtasks[1].Completed)

	nb, err = ToggleSubtask(nb, "task-2", "task-2-1")
	require.NoError(t, err)
	task, _, _ = FindTask(nb, "task-2")
	assert.False(t, task.Subtasks[0].Completed)

	_, err = ToggleSubtask(b, "task-1", "task-1-1")
	assert.ErrorIs(t, err, types.ErrNoSubtasks)
	_, err = ToggleSubtask(b, "task-2", "task-2-9")
	assert.ErrorIs(t, err, types.ErrSubtaskNotFound)
	_, err = ToggleSubtask(b, "task-9", "x")
	assert.ErrorIs(t, err, types.ErrTaskNotFound)
}

func TestSubtaskAuthoring(t *testing.T) {
	b := testutil.Board()

	nb, err := AddSubtask(b, "task-2", " Ship ")
	require.NoError(t, err)
	task, _, _ := FindTask(nb, "task-2")
	require.Len(t, task.Subtasks, 3)
	assert.Equal(t, types.Subtask{ID: "task-2-3", Title: "Ship"}, task.Subtasks[2])

	nb, err = AddSubtask(nb, "task-1", "First step")
	require.NoError(t, err)
	task, _, _ = FindTask(nb, "task-1")
	assert.Equal(t, "task-1-1", task.Subtasks[0].ID)

	nb, err = UpdateSubtask(nb, "task-1", "task-1-1", "Renamed")
	require.NoError(t, err)
	task, _, _ = FindTask(nb, "task-1")
	assert.Equal(t, "Renamed", task.Subtasks[0].Title)

	nb, err = DeleteSubtask(nb, "task-1", "task-1-1")
	require.NoError(t, err)
	task, _, _ = FindTask(nb, "task-1")
	assert.Nil(t, task.Subtasks)

	_, err = AddSubtask(b, "task-2", "  ")
	assert.ErrorIs(t, err, types.ErrEmptyTitle)
}

func TestArchiveAndRestore(t *testing.T) {
	b := testutil.Board()
	b.Archive = []types.Task{{ID: "task-0", Title: "Old"}}

	archived, err := ArchiveTask(b, "todo", "task-2")
	require.NoError(t, err)
	assert.Equal(t, []string{"task-1"}, taskIDs(column(t, archived, "todo")))
	require.Len(t, archived.Archive, 2)
	assert.Equal(t, "task-2", archived.Archive[0].ID, "archived tasks are prepended")
	assert.Equal(t, "task-0", archived.Archive[1].ID)
	assert.True(t, TaskIDExists(archived, "task-2"))
	assert.Equal(t, "task-4", GenerateNextTaskID(archived))

	restored, err := RestoreTask(archived, "task-2", "done")
	require.NoError(t, err)
	assert.Equal(t, []string{"task-3", "task-2"}, taskIDs(column(t, restored, "done")))
	assert.Equal(t, []string{"task-0"}, []string{restored.Archive[0].ID})

	_, err = RestoreTask(archived, "task-1", "done")
	assert.ErrorIs(t, err, types.ErrTaskNotFound)
	_, err = ArchiveTask(b, "done", "task-1")
	assert.ErrorIs(t, err, types.ErrTaskNotFound)
}

func TestPatchTask(t *testing.T) {
	b := testutil.Board()

	custom := "  Someday "
	assignee := " ana "
	nb, err := PatchTask(b, "task-3", TaskPatch{
		Priority: &custom,
		Tags:     &[]string{"docs", " ", "api "},
		Assignee: &assignee,
	})
	require.NoError(t, err)
	task, _, _ := FindTask(nb, "task-3")
	require.NotNil(t, task.Priority)
	label, ok := task.Priority.Custom()
	assert.True(t, ok)
	assert.Equal(t, "Someday", label)
	assert.Equal(t, []string{"docs", "api"}, task.Tags)
	assert.Equal(t, "ana", task.Assignee)

	none := ""
	nb, err = PatchTask(nb, "task-3", TaskPatch{Priority: &none, Tags: &[]string{}})
	require.NoError(t, err)
	task, _, _ = FindTask(nb, "task-3")
	assert.Nil(t, task.Priority)
	assert.Nil(t, task.Tags)
	assert.Equal(t, "ana", task.Assignee)

	bad := "two\nlines"
	_, err = PatchTask(b, "task-3", TaskPatch{Priority: &bad})
	assert.ErrorIs(t, err, types.ErrInvalidPriority)
	_, err = PatchTask(b, "task-404", TaskPatch{})
	assert.ErrorIs(t, err, types.ErrTaskNotFound)
}

func TestBoardSettings(t *testing.T) {
	b := testutil.Board()

	nb := UpdateBoardTitle(b, "  Renamed ")
	assert.Equal(t, "Renamed", nb.Title)
	assert.Equal(t, "Sample", b.Title)

	nb = UpdateStatsConfig(b, []string{"a", "b", "c", "d", "e", "f"})
	require.NotNil(t, nb.StatsConfig)
	assert.Equal(t, []string{"a", "b", "c", "d"}, nb.StatsConfig.Columns)
	assert.Nil(t, b.StatsConfig)
}

func TestColumns(t *testing.T) {
	b := testutil.Board()

	nb, err := AddColumn(b, "review", "")
	require.NoError(t, err)
	rev := column(t, nb, "review")
	assert.Equal(t, "review", rev.Title)
	assert.NotNil(t, rev.Tasks)

	_, err = AddColumn(b, "todo", "Again")
	assert.ErrorIs(t, err, types.ErrColumnExists)
	_, err = AddColumn(b, "has space", "x")
	assert.ErrorIs(t, err, types.ErrInvalidID)

	nb, err = DeleteColumn(nb, "review")
	require.NoError(t, err)
	_, i := nb.Column("review")
	assert.Equal(t, -1, i)

	_, err = DeleteColumn(b, "todo")
	assert.ErrorIs(t, err, types.ErrColumnNotEmpty)
	_, err = DeleteColumn(b, "nope")
	assert.ErrorIs(t, err, types.ErrColumnNotFound)
}

func TestRules(t *testing.T) {
	b := testutil.Board()

	nb, err := AddRule(b, types.RuleAlways, " Lint first ")
	require.NoError(t, err)
	assert.Equal(t, []types.Rule{{ID: 1, Rule: "Run the tests"}, {ID: 2, Rule: "Lint first"}}, nb.Rules.Always)

	nb, err = AddRule(nb, types.RuleNever, "Force push")
	require.NoError(t, err)
	assert.Equal(t, []types.Rule{{ID: 1, Rule: "Force push"}}, nb.Rules.Never, "ids are per bucket")

	nb, err = UpdateRule(nb, types.RuleAlways, 2, "Lint twice")
	require.NoError(t, err)
	assert.Equal(t, "Lint twice", nb.Rules.Always[1].Rule)

	nb, err = DeleteRule(nb, types.RuleAlways, 1)
	require.NoError(t, err)
	assert.Equal(t, []types.Rule{{ID: 2, Rule: "Lint twice"}}, nb.Rules.Always)
	assert.Len(t, b.Rules.Always, 1)

	_, err = AddRule(b, "sometimes", "x")
	assert.ErrorIs(t, err, types.ErrInvalidRuleType)
	_, err = UpdateRule(b, types.RulePrefer, 1, "x")
	assert.ErrorIs(t, err, types.ErrRuleNotFound)
	_, err = AddRule(b, types.RuleContext, "   ")
	assert.ErrorIs(t, err, types.ErrEmptyRule)

	empty := types.NewBoard("no rules")
	nb, err = AddRule(empty, types.RulePrefer, "Small PRs")
	require.NoError(t, err)
	assert.Nil(t, empty.Rules)
	assert.Equal(t, 1, nb.Rules.Prefer[0].ID)
}
