package persist

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/boardsync/internal/cache"
	"github.com/mesh-intelligence/boardsync/internal/codec"
	"github.com/mesh-intelligence/boardsync/internal/command"
	"github.com/mesh-intelligence/boardsync/internal/fingerprint"
	"github.com/mesh-intelligence/boardsync/internal/mutation"
	"github.com/mesh-intelligence/boardsync/internal/scheduler"
	"github.com/mesh-intelligence/boardsync/internal/testutil"
	"github.com/mesh-intelligence/boardsync/pkg/types"
)

const brokenDocument = "---\ntitle: Broken\ncolumns:\n  - id: todo\n    title: [unclosed\n---\n"

func newCoordinator(t *testing.T, content string) (*Coordinator, string) {
	t.Helper()
	path := testutil.WriteFile(t, t.TempDir(), "board.md", content)
	return New(path, Options{}), path
}

func parseFile(t *testing.T, path string) *types.Board {
	t.Helper()
	b, err := codec.New().Parse([]byte(testutil.ReadFile(t, path)))
	require.NoError(t, err)
	return b
}

func TestExecuteWritesAndSuppressesOwnChange(t *testing.T) {
	ctx := context.Background()
	c, path := newCoordinator(t, testutil.BoardDocument)

	out, err := c.Execute(ctx, command.AddTask{ColumnID: "done", Title: "Ship it"})
	require.NoError(t, err)
	assert.Nil(t, out.Conflict)
	assert.Equal(t, "addTask", out.Command)
	assert.Equal(t, uuid.Version(7), out.CommandID.Version())

	task, col, ok := mutation.FindTask(out.Board, "task-4")
	require.True(t, ok)
	assert.Equal(t, "done", col)
	assert.Equal(t, "Ship it", task.Title)

	onDisk := parseFile(t, path)
	_, _, ok = mutation.FindTask(onDisk, "task-4")
	assert.True(t, ok)
	assert.Equal(t, "\n# Notes\n", onDisk.Body, "markdown body is preserved")

	last, src := c.Tracker().Last()
	assert.Equal(t, fingerprint.SourceWritten, src)
	assert.Equal(t, fingerprint.Of([]byte(testutil.ReadFile(t, path))), last)

	res, err := c.Refresh(ctx, scheduler.ReasonFileChange, nil)
	require.NoError(t, err)
	assert.Equal(t, RefreshSkipped, res.Status, "our own write is not reparsed")
	assert.Equal(t, cache.StateValid, c.Cache().State())
}

func TestExecuteReportsExternalConflict(t *testing.T) {
	ctx := context.Background()
	c, path := newCoordinator(t, testutil.BoardDocument)

	_, err := c.Refresh(ctx, scheduler.ReasonInitial, nil)
	require.NoError(t, err)

	external := strings.Replace(testutil.BoardDocument, "title: Sample", "title: Edited elsewhere", 1)
	require.NoError(t, os.WriteFile(path, []byte(external), 0o644))

	out, err := c.Execute(ctx, command.ToggleSubtask{TaskID: "task-2", SubtaskID: "task-2-1"})
	require.NoError(t, err)
	require.NotNil(t, out.Conflict)
	assert.ErrorIs(t, out.Conflict, ErrConflict)
	assert.Equal(t, fingerprint.Of([]byte(external)), out.Conflict.Found)

	onDisk := parseFile(t, path)
	assert.Equal(t, "Edited elsewhere", onDisk.Title, "the command applies to what is on disk")
	task, _, _ := mutation.FindTask(onDisk, "task-2")
	assert.True(t, task.Subtasks[0].Completed)

	out, err = c.Execute(ctx, command.UpdateBoardTitle{Title: "Again"})
	require.NoError(t, err)
	assert.Nil(t, out.Conflict, "no conflict once our write is the last known content")
}

func TestExecuteUnreadableDocumentDoesNotWrite(t *testing.T) {
	c, path := newCoordinator(t, brokenDocument)

	_, err := c.Execute(context.Background(), command.AddTask{ColumnID: "todo", Title: "x"})
	assert.ErrorIs(t, err, ErrDocumentUnreadable)
	assert.Equal(t, brokenDocument, testutil.ReadFile(t, path))
	_, src := c.Tracker().Last()
	assert.Equal(t, fingerprint.SourceNone, src)
}

func TestExecuteValidationErrorDoesNotWrite(t *testing.T) {
	c, path := newCoordinator(t, testutil.BoardDocument)

	_, err := c.Execute(context.Background(), command.DeleteTask{ColumnID: "done", TaskID: "task-1"})
	assert.ErrorIs(t, err, types.ErrTaskNotFound)
	assert.True(t, types.IsValidation(err))
	assert.Equal(t, testutil.BoardDocument, testutil.ReadFile(t, path))
}

func TestExecuteMissingFile(t *testing.T) {
	c := New(filepath.Join(t.TempDir(), "none.md"), Options{})
	_, err := c.Execute(context.Background(), command.UpdateBoardTitle{Title: "x"})
	assert.ErrorIs(t, err, ErrIO)
}

func TestExecuteHonorsCanceledContext(t *testing.T) {
	c, path := newCoordinator(t, testutil.BoardDocument)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Execute(ctx, command.UpdateBoardTitle{Title: "x"})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, testutil.BoardDocument, testutil.ReadFile(t, path))
}

func TestArchiveRoundTripThroughArchiveFile(t *testing.T) {
	ctx := context.Background()
	c, path := newCoordinator(t, testutil.BoardDocument)
	original, _, _ := mutation.FindTask(testutil.Board(), "task-2")

	out, err := c.Execute(ctx, command.ArchiveTask{ColumnID: "todo", TaskID: "task-2"})
	require.NoError(t, err)
	assert.True(t, out.ArchiveWritten)
	require.NotEmpty(t, out.Board.Archive)
	assert.Equal(t, "task-2", out.Board.Archive[0].ID)
	_, _, inColumn := mutation.FindTask(out.Board, "task-2")
	assert.False(t, inColumn)

	mainText := testutil.ReadFile(t, path)
	assert.NotContains(t, mainText, "archive:")
	assert.NotContains(t, mainText, "task-2")

	archivePath := filepath.Join(filepath.Dir(path), "board-archive.md")
	assert.Equal(t, archivePath, c.Archive().Path())
	doc, err := codec.New().ParseArchive([]byte(testutil.ReadFile(t, archivePath)))
	require.NoError(t, err)
	require.Len(t, doc.Tasks, 1)
	assert.Equal(t, original, doc.Tasks[0], "all task fields survive the archive file")

	res, err := c.Refresh(ctx, scheduler.ReasonArchiveChange, nil)
	require.NoError(t, err)
	assert.Equal(t, RefreshSkipped, res.Status)

	out, err = c.Execute(ctx, command.RestoreTask{TaskID: "task-2", ColumnID: "done"})
	require.NoError(t, err)
	assert.True(t, out.ArchiveWritten)
	assert.Empty(t, out.Board.Archive)
	task, col, ok := mutation.FindTask(parseFile(t, path), "task-2")
	require.True(t, ok)
	assert.Equal(t, "done", col)
	assert.Equal(t, original, task)

	doc, err = codec.New().ParseArchive([]byte(testutil.ReadFile(t, archivePath)))
	require.NoError(t, err)
	assert.Empty(t, doc.Tasks)
}

func TestArchiveIDsCountForNewTasks(t *testing.T) {
	ctx := context.Background()
	c, path := newCoordinator(t, testutil.BoardDocument)
	testutil.WriteFile(t, filepath.Dir(path), "board-archive.md", "---\narchive:\n  - id: task-40\n    title: Old\n---\n")

	out, err := c.Execute(ctx, command.AddTask{ColumnID: "todo", Title: "Fresh"})
	require.NoError(t, err)
	_, _, ok := mutation.FindTask(out.Board, "task-41")
	assert.True(t, ok)
	assert.False(t, out.ArchiveWritten)
	require.Len(t, out.Board.Archive, 1)
}

func TestInlineArchiveMovesToArchiveFile(t *testing.T) {
	ctx := context.Background()
	legacy := strings.Replace(testutil.BoardDocument, "\n---\n\n# Notes", "\narchive:\n  - id: task-9\n    title: Legacy\n---\n\n# Notes", 1)
	c, path := newCoordinator(t, legacy)

	out, err := c.Execute(ctx, command.UpdateBoardTitle{Title: "Migrated"})
	require.NoError(t, err)
	assert.True(t, out.ArchiveWritten)
	require.Len(t, out.Board.Archive, 1)
	assert.Equal(t, "task-9", out.Board.Archive[0].ID)
	assert.NotContains(t, testutil.ReadFile(t, path), "archive:")

	tasks, err := c.Archive().Load(ctx)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "Legacy", tasks[0].Title)
}

func TestBrokenArchiveBlocksCommandsThatNeedIt(t *testing.T) {
	ctx := context.Background()
	c, path := newCoordinator(t, testutil.BoardDocument)
	testutil.WriteFile(t, filepath.Dir(path), "board-archive.md", "---\narchive: [\n---\n")

	_, err := c.Execute(ctx, command.ArchiveTask{ColumnID: "todo", TaskID: "task-1"})
	assert.ErrorIs(t, err, ErrArchiveUnreadable)
	assert.Equal(t, testutil.BoardDocument, testutil.ReadFile(t, path))

	_, err = c.Execute(ctx, command.UpdateBoardTitle{Title: "Still fine"})
	assert.NoError(t, err)
	_, err = c.Execute(ctx, command.DeleteTask{ColumnID: "todo", TaskID: "task-1"})
	assert.NoError(t, err)
}

func TestBrokenArchiveDoesNotReuseArchivedIDs(t *testing.T) {
	ctx := context.Background()
	c, path := newCoordinator(t, testutil.BoardDocument)

	_, err := c.Execute(ctx, command.ArchiveTask{ColumnID: "done", TaskID: "task-3"})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(c.Archive().Path(), []byte("---\narchive: [\n---\n"), 0o644))
	before := testutil.ReadFile(t, path)

	_, err = c.Execute(ctx, command.AddTask{ColumnID: "todo", Title: "New"})
	assert.ErrorIs(t, err, ErrArchiveUnreadable)
	assert.Equal(t, before, testutil.ReadFile(t, path), "nothing is written")

	_, err = c.Execute(ctx, command.AddSubtask{TaskID: "task-1", Title: "Step"})
	assert.NoError(t, err, "subtask ids are not task ids")
}

func TestRefreshToleranceAndDeletion(t *testing.T) {
	ctx := context.Background()
	c, path := newCoordinator(t, testutil.BoardDocument)

	res, err := c.Refresh(ctx, scheduler.ReasonInitial, nil)
	require.NoError(t, err)
	assert.Equal(t, RefreshUpdated, res.Status)
	assert.Equal(t, cache.StateValid, res.Transition.To)

	want := []cache.State{cache.StateTransientError, cache.StateTransientError, cache.StateHardError}
	for i, state := range want {
		// Each failure needs distinct bytes; identical content is skipped.
		broken := brokenDocument + strings.Repeat("\n", i)
		require.NoError(t, os.WriteFile(path, []byte(broken), 0o644))
		res, err := c.Refresh(ctx, scheduler.ReasonFileChange, nil)
		require.NoError(t, err)
		assert.Equal(t, RefreshFailed, res.Status)
		assert.Equal(t, state, res.Transition.To, "failure %d", i+1)
		require.NotNil(t, res.Diagnostics)
		assert.False(t, res.Diagnostics.Valid)
	}
	assert.Nil(t, c.Cache().Board())

	require.NoError(t, os.WriteFile(path, []byte(testutil.BoardDocument), 0o644))
	res, err = c.Refresh(ctx, scheduler.ReasonFileChange, nil)
	require.NoError(t, err)
	assert.Equal(t, cache.Transition{From: cache.StateHardError, To: cache.StateValid}, res.Transition)

	require.NoError(t, os.Remove(path))
	res, err = c.Refresh(ctx, scheduler.ReasonFileChange, nil)
	require.NoError(t, err)
	assert.Equal(t, RefreshDeleted, res.Status)
	assert.Equal(t, cache.StateEmpty, c.Cache().State())
}

func TestRefreshSkipsUnchangedContent(t *testing.T) {
	ctx := context.Background()
	c, _ := newCoordinator(t, testutil.BoardDocument)

	_, err := c.Refresh(ctx, scheduler.ReasonInitial, nil)
	require.NoError(t, err)
	res, err := c.Refresh(ctx, scheduler.ReasonFileChange, nil)
	require.NoError(t, err)
	assert.Equal(t, RefreshSkipped, res.Status)
	assert.NotNil(t, res.Board)
}

func TestRefreshDocumentEditUsesBuffer(t *testing.T) {
	ctx := context.Background()
	c, path := newCoordinator(t, testutil.BoardDocument)

	buffer := strings.Replace(testutil.BoardDocument, "title: Sample", "title: Unsaved", 1)
	res, err := c.Refresh(ctx, scheduler.ReasonDocumentEdit, []byte(buffer))
	require.NoError(t, err)
	require.NotNil(t, res.Board)
	assert.Equal(t, "Unsaved", res.Board.Title)
	assert.Equal(t, testutil.BoardDocument, testutil.ReadFile(t, path))

	require.NoError(t, os.WriteFile(path, []byte(buffer), 0o644))
	res, err = c.Refresh(ctx, scheduler.ReasonFileChange, nil)
	require.NoError(t, err)
	assert.Equal(t, RefreshSkipped, res.Status, "saving the buffer does not reparse it")
}

func TestDocumentEditIsNotAnExternalConflict(t *testing.T) {
	ctx := context.Background()
	c, path := newCoordinator(t, testutil.BoardDocument)

	_, err := c.Refresh(ctx, scheduler.ReasonInitial, nil)
	require.NoError(t, err)
	buffer := strings.Replace(testutil.BoardDocument, "title: Sample", "title: Unsaved", 1)
	res, err := c.Refresh(ctx, scheduler.ReasonDocumentEdit, []byte(buffer))
	require.NoError(t, err)
	assert.Equal(t, RefreshUpdated, res.Status)

	last, src := c.Tracker().Last()
	assert.Equal(t, fingerprint.Of([]byte(testutil.BoardDocument)), last, "the disk tracker ignores the buffer")
	assert.Equal(t, fingerprint.SourceObserved, src)

	out, err := c.Execute(ctx, command.UpdateBoardTitle{Title: "Renamed"})
	require.NoError(t, err)
	assert.Nil(t, out.Conflict)
	assert.Equal(t, "Renamed", parseFile(t, path).Title)

	res, err = c.Refresh(ctx, scheduler.ReasonDocumentEdit, []byte(buffer))
	require.NoError(t, err)
	assert.Equal(t, RefreshSkipped, res.Status, "the same buffer is not reparsed")
}

func TestFileCreateDeliversNewArchive(t *testing.T) {
	ctx := context.Background()
	c, path := newCoordinator(t, testutil.BoardDocument)

	_, err := c.Refresh(ctx, scheduler.ReasonInitial, nil)
	require.NoError(t, err)
	testutil.WriteFile(t, filepath.Dir(path), "board-archive.md", "---\narchive:\n  - id: task-8\n    title: Late\n---\n")

	res, err := c.Refresh(ctx, scheduler.ReasonFileCreate, nil)
	require.NoError(t, err)
	assert.Equal(t, RefreshUpdated, res.Status, "the main file is unchanged but the archive is new")
	require.Len(t, res.Board.Archive, 1)
	assert.Equal(t, "task-8", res.Board.Archive[0].ID)

	res, err = c.Refresh(ctx, scheduler.ReasonFileCreate, nil)
	require.NoError(t, err)
	assert.Equal(t, RefreshSkipped, res.Status)
}

func TestRefreshArchiveKeepsPreviousOnFailure(t *testing.T) {
	ctx := context.Background()
	c, path := newCoordinator(t, testutil.BoardDocument)
	archivePath := testutil.WriteFile(t, filepath.Dir(path), "board-archive.md", "---\narchive:\n  - id: task-8\n    title: Kept\n---\n")

	res, err := c.Refresh(ctx, scheduler.ReasonInitial, nil)
	require.NoError(t, err)
	require.Len(t, res.Board.Archive, 1)

	require.NoError(t, os.WriteFile(archivePath, []byte("---\narchive: [\n---\n"), 0o644))
	res, err = c.Refresh(ctx, scheduler.ReasonArchiveChange, nil)
	require.NoError(t, err)
	assert.Equal(t, RefreshFailed, res.Status)
	assert.Equal(t, cache.StateValid, res.Transition.To, "archive errors do not touch the board state")
	require.Len(t, res.Board.Archive, 1)
	assert.Equal(t, "Kept", res.Board.Archive[0].Title)

	require.NoError(t, os.Remove(archivePath))
	res, err = c.Refresh(ctx, scheduler.ReasonArchiveChange, nil)
	require.NoError(t, err)
	assert.Equal(t, RefreshUpdated, res.Status)
	assert.Empty(t, res.Board.Archive)
}

func TestApplyFix(t *testing.T) {
	ctx := context.Background()
	tabbed := "---\ntitle: Tabs\ncolumns:\n\t- id: todo\n\t  title: To Do\n\t  tasks: []\n---\n"
	c, path := newCoordinator(t, tabbed)

	res, err := c.Refresh(ctx, scheduler.ReasonInitial, nil)
	require.NoError(t, err)
	assert.Equal(t, RefreshFailed, res.Status)
	require.NotNil(t, res.Diagnostics)
	assert.True(t, res.Diagnostics.HasFixable())

	fixable := 0
	for _, is := range res.Diagnostics.Issues {
		if is.Fixable {
			fixable++
		}
	}

	res, err = c.ApplyFix(ctx)
	require.NoError(t, err)
	assert.Equal(t, RefreshUpdated, res.Status)
	assert.Equal(t, cache.StateValid, res.Transition.To)
	assert.NotContains(t, testutil.ReadFile(t, path), "\t")
	assert.Equal(t, fixable, res.Fixed)
	require.NotNil(t, res.Diagnostics, "the written content is described")
	assert.True(t, res.Diagnostics.Valid)
	assert.False(t, res.Diagnostics.HasFixable())
	assert.Nil(t, res.Diagnostics.FixedContent)

	_, err = c.ApplyFix(ctx)
	assert.ErrorIs(t, err, ErrNothingToFix)

	res, err = c.Refresh(ctx, scheduler.ReasonFileChange, nil)
	require.NoError(t, err)
	assert.Equal(t, RefreshSkipped, res.Status)
}

func TestCreate(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "new.md")
	c := New(path, Options{})

	b, err := c.Create(ctx, types.NewBoard("Fresh"))
	require.NoError(t, err)
	assert.Equal(t, "Fresh", b.Title)
	assert.Len(t, parseFile(t, path).Columns, 3)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o644), info.Mode().Perm())

	_, err = c.Create(ctx, types.NewBoard("Again"))
	assert.ErrorIs(t, err, ErrBoardExists)
}

func TestWriteKeepsFileMode(t *testing.T) {
	c, path := newCoordinator(t, testutil.BoardDocument)
	require.NoError(t, os.Chmod(path, 0o600))

	_, err := c.Execute(context.Background(), command.UpdateBoardTitle{Title: "Private"})
	require.NoError(t, err)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")
}

func TestArchiveDelta(t *testing.T) {
	file := []types.Task{{ID: "task-1"}, {ID: "task-2"}}

	added, removed, ok := archiveDelta(file, []types.Task{{ID: "task-3"}, {ID: "task-1"}, {ID: "task-2"}})
	assert.True(t, ok)
	assert.Equal(t, []types.Task{{ID: "task-3"}}, added)
	assert.Empty(t, removed)

	_, removed, ok = archiveDelta(file, []types.Task{{ID: "task-2"}})
	assert.True(t, ok)
	assert.Equal(t, map[string]bool{"task-1": true}, removed)

	_, _, ok = archiveDelta(file, file)
	assert.False(t, ok)

	merged := applyDelta([]types.Task{{ID: "task-1"}, {ID: "task-2"}, {ID: "task-5"}}, []types.Task{{ID: "task-3"}}, map[string]bool{"task-1": true})
	assert.Equal(t, []types.Task{{ID: "task-3"}, {ID: "task-2"}, {ID: "task-5"}}, merged)
}

func TestConflictErrorMessage(t *testing.T) {
	err := error(&ConflictError{Path: "b.md", Expected: 1, Found: 2})
	assert.True(t, errors.Is(err, ErrConflict))
	assert.Equal(t, "b.md: expected content 0000000000000001, found 0000000000000002", err.Error())
}
