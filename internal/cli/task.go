package cli

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/boardsync/internal/command"
	"github.com/mesh-intelligence/boardsync/internal/mutation"
	"github.com/mesh-intelligence/boardsync/internal/state"
	"github.com/mesh-intelligence/boardsync/pkg/types"
)

// errNoAgent is returned when a command needs an agent and none is known.
var errNoAgent = errors.New("no agent given and none remembered; pass --agent")

func newTaskCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "task",
		Short: "Add, edit, move and archive tasks",
	}
	cmd.AddCommand(
		newTaskAddCmd(a),
		newTaskUpdateCmd(a),
		newTaskDeleteCmd(a),
		newTaskMoveCmd(a),
		newTaskArchiveCmd(a),
		newTaskRestoreCmd(a),
		newTaskPatchCmd(a),
	)
	return cmd
}

// agent returns the --agent flag or the last remembered agent.
func (a *app) agent(ctx context.Context) (string, error) {
	if a.flags.agent != "" {
		return a.flags.agent, nil
	}
	name, ok, err := a.store.Get(ctx, state.KeyLastAgent)
	if err != nil {
		return "", sysErr(err)
	}
	if !ok {
		return "", errNoAgent
	}
	return name, nil
}

// located builds a command for a task whose column is looked up on the board
// being changed when the caller did not name one.
func located(name, taskID, columnID string, build func(columnID string) command.Command) command.Command {
	if columnID != "" {
		return build(columnID)
	}
	return command.Func{Label: name, Fn: func(b *types.Board) (*types.Board, error) {
		_, col, ok := mutation.FindTask(b, taskID)
		if !ok {
			return nil, fmt.Errorf("task %q: %w", taskID, types.ErrTaskNotFound)
		}
		return build(col).Apply(b)
	}}
}

func newTaskAddCmd(a *app) *cobra.Command {
	var description string
	var assign bool
	cmd := &cobra.Command{
		Use:   "add <column> <title>",
		Short: "Add a task to the end of a column",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			columnID, title := args[0], args[1]
			var c command.Command = command.AddTask{ColumnID: columnID, Title: title, Description: description}
			if assign {
				agent, err := a.agent(cmd.Context())
				if err != nil {
					return err
				}
				add := c
				c = command.Func{Label: add.Name(), Fn: func(b *types.Board) (*types.Board, error) {
					id := mutation.GenerateNextTaskID(b)
					nb, err := add.Apply(b)
					if err != nil {
						return nil, err
					}
					return mutation.PatchTask(nb, id, mutation.TaskPatch{Assignee: &agent})
				}}
			}
			return a.execute(cmd, c, func(b *types.Board) string {
				col, _ := b.Column(columnID)
				return fmt.Sprintf("Added %s to %s", col.Tasks[len(col.Tasks)-1].ID, columnID)
			})
		},
	}
	cmd.Flags().StringVarP(&description, "description", "d", "", "task description")
	cmd.Flags().BoolVar(&assign, "assign", false, "assign the task to the current agent")
	return cmd
}

func newTaskUpdateCmd(a *app) *cobra.Command {
	var title, description, columnID string
	cmd := &cobra.Command{
		Use:   "update <task-id>",
		Short: "Change a task's title or description",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			taskID := args[0]
			titleSet := cmd.Flags().Changed("title")
			descSet := cmd.Flags().Changed("description")
			c := located("updateTask", taskID, columnID, func(col string) command.Command {
				return command.Func{Label: "updateTask", Fn: func(b *types.Board) (*types.Board, error) {
					u := command.UpdateTask{ColumnID: col, TaskID: taskID, Title: title, Description: description}
					if current, _, ok := mutation.FindTask(b, taskID); ok {
						if !titleSet {
							u.Title = current.Title
						}
						if !descSet {
							u.Description = current.Description
						}
					}
					return u.Apply(b)
				}}
			})
			return a.execute(cmd, c, func(*types.Board) string { return "Updated " + taskID })
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "new title")
	cmd.Flags().StringVarP(&description, "description", "d", "", "new description")
	cmd.Flags().StringVar(&columnID, "column", "", "column holding the task (default: looked up)")
	return cmd
}

func newTaskDeleteCmd(a *app) *cobra.Command {
	var columnID string
	cmd := &cobra.Command{
		Use:   "delete <task-id>",
		Short: "Delete a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			taskID := args[0]
			c := located("deleteTask", taskID, columnID, func(col string) command.Command {
				return command.DeleteTask{ColumnID: col, TaskID: taskID}
			})
			return a.execute(cmd, c, func(*types.Board) string { return "Deleted " + taskID })
		},
	}
	cmd.Flags().StringVar(&columnID, "column", "", "column holding the task (default: looked up)")
	return cmd
}

func newTaskMoveCmd(a *app) *cobra.Command {
	var fromColumnID string
	var index int
	cmd := &cobra.Command{
		Use:   "move <task-id> <to-column>",
		Short: "Move a task to another column or position",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			taskID, to := args[0], args[1]
			toIndex := math.MaxInt
			if cmd.Flags().Changed("index") {
				toIndex = index
			}
			c := located("moveTask", taskID, fromColumnID, func(from string) command.Command {
				return command.MoveTask{TaskID: taskID, FromColumnID: from, ToColumnID: to, ToIndex: toIndex}
			})
			return a.execute(cmd, c, func(*types.Board) string { return fmt.Sprintf("Moved %s to %s", taskID, to) })
		},
	}
	cmd.Flags().StringVar(&fromColumnID, "from", "", "column holding the task (default: looked up)")
	cmd.Flags().IntVar(&index, "index", 0, "position in the target column (default: end)")
	return cmd
}

func newTaskArchiveCmd(a *app) *cobra.Command {
	var columnID string
	cmd := &cobra.Command{
		Use:   "archive <task-id>",
		Short: "Move a task to the archive file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			taskID := args[0]
			c := located("archiveTask", taskID, columnID, func(col string) command.Command {
				return command.ArchiveTask{ColumnID: col, TaskID: taskID}
			})
			return a.execute(cmd, c, func(*types.Board) string { return "Archived " + taskID })
		},
	}
	cmd.Flags().StringVar(&columnID, "column", "", "column holding the task (default: looked up)")
	return cmd
}

func newTaskRestoreCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "restore <task-id> <column>",
		Short: "Move a task from the archive back to a column",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			taskID, columnID := args[0], args[1]
			c := command.RestoreTask{TaskID: taskID, ColumnID: columnID}
			return a.execute(cmd, c, func(*types.Board) string { return fmt.Sprintf("Restored %s to %s", taskID, columnID) })
		},
	}
}

func newTaskPatchCmd(a *app) *cobra.Command {
	var priority, assignee, due string
	var tags, files []string
	cmd := &cobra.Command{
		Use:   "patch <task-id>",
		Short: "Set a task's priority, tags, assignee, due date or related files",
		Long:  "Only the flags given are changed. An empty value clears the field.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			taskID := args[0]
			var patch mutation.TaskPatch
			f := cmd.Flags()
			if f.Changed("priority") {
				patch.Priority = &priority
			}
			if f.Changed("tag") {
				patch.Tags = &tags
			}
			if f.Changed("assignee") {
				patch.Assignee = &assignee
			}
			if f.Changed("due") {
				patch.DueDate = &due
			}
			if f.Changed("file") {
				patch.RelatedFiles = &files
			}
			c := command.PatchTask{TaskID: taskID, Patch: patch}
			return a.execute(cmd, c, func(*types.Board) string { return "Updated " + taskID })
		},
	}
	cmd.Flags().StringVar(&priority, "priority", "", "priority (low, medium, high, critical or a custom label)")
	cmd.Flags().StringSliceVar(&tags, "tag", nil, "tags (repeatable or comma-separated)")
	cmd.Flags().StringVar(&assignee, "assignee", "", "assignee")
	cmd.Flags().StringVar(&due, "due", "", "due date")
	cmd.Flags().StringSliceVar(&files, "file", nil, "related files (repeatable or comma-separated)")
	return cmd
}
