package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/boardsync/internal/command"
	"github.com/mesh-intelligence/boardsync/internal/mutation"
	"github.com/mesh-intelligence/boardsync/pkg/types"
)

func newSubtaskCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "subtask",
		Short: "Edit a task's checklist",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "add <task-id> <title>",
			Short: "Add a checklist item",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				taskID := args[0]
				c := command.AddSubtask{TaskID: taskID, Title: args[1]}
				return a.execute(cmd, c, func(b *types.Board) string {
					t, _, _ := mutation.FindTask(b, taskID)
					return fmt.Sprintf("Added %s", t.Subtasks[len(t.Subtasks)-1].ID)
				})
			},
		},
		&cobra.Command{
			Use:   "toggle <task-id> <subtask-id>",
			Short: "Flip a checklist item between done and open",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				taskID, subtaskID := args[0], args[1]
				c := command.ToggleSubtask{TaskID: taskID, SubtaskID: subtaskID}
				return a.execute(cmd, c, func(b *types.Board) string {
					t, _, _ := mutation.FindTask(b, taskID)
					mark := "open"
					if i := t.SubtaskIndex(subtaskID); i >= 0 && t.Subtasks[i].Completed {
						mark = "done"
					}
					return fmt.Sprintf("%s is %s", subtaskID, mark)
				})
			},
		},
		&cobra.Command{
			Use:   "update <task-id> <subtask-id> <title>",
			Short: "Rename a checklist item",
			Args:  cobra.ExactArgs(3),
			RunE: func(cmd *cobra.Command, args []string) error {
				c := command.UpdateSubtask{TaskID: args[0], SubtaskID: args[1], Title: args[2]}
				return a.execute(cmd, c, func(*types.Board) string { return "Updated " + args[1] })
			},
		},
		&cobra.Command{
			Use:   "delete <task-id> <subtask-id>",
			Short: "Remove a checklist item",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				c := command.DeleteSubtask{TaskID: args[0], SubtaskID: args[1]}
				return a.execute(cmd, c, func(*types.Board) string { return "Deleted " + args[1] })
			},
		},
	)
	return cmd
}
