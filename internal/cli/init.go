package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/boardsync/internal/paths"
	"github.com/mesh-intelligence/boardsync/internal/persist"
	"github.com/mesh-intelligence/boardsync/pkg/types"
)

func newInitCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "init [title]",
		Short: "Create a new board file",
		Long:  "Create a board file with To Do, In Progress and Done columns. An existing file is left alone.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			title := "Board"
			if len(args) == 1 {
				title = args[0]
			}
			path, err := paths.ResolveBoard(a.flags.board, a.cfg.Board)
			if err != nil {
				return sysErr(err)
			}
			b, err := a.coordinator(path).Create(cmd.Context(), types.NewBoard(title))
			if errors.Is(err, persist.ErrBoardExists) {
				return err
			}
			if err != nil {
				return sysErr(fmt.Errorf("create board: %w", err))
			}
			a.rememberBoard(cmd.Context(), path)
			if a.flags.jsonMode {
				return writeJSON(cmd.OutOrStdout(), b)
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Created %s\n", path)
			return err
		},
	}
}
