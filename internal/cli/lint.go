package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/boardsync/internal/codec"
	"github.com/mesh-intelligence/boardsync/internal/persist"
)

func newLintCmd(a *app) *cobra.Command {
	var fix bool
	cmd := &cobra.Command{
		Use:   "lint",
		Short: "Check the board file and optionally fix it",
		Long:  "Report structural problems in the board file. With --fix, tab indentation and trailing whitespace are repaired in place.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			path, err := a.boardPath(ctx)
			if err != nil {
				return err
			}
			data, err := os.ReadFile(path)
			if err != nil {
				return sysErr(fmt.Errorf("read board: %w", err))
			}

			c := codec.New()
			res := c.Lint(data, codec.LintOptions{AutoFix: fix})
			fixed := 0
			if fix && res.FixedContent != nil {
				applied, err := a.coordinator(path).ApplyFix(ctx)
				switch {
				case errors.Is(err, persist.ErrNothingToFix):
					// Changed since it was read; report what was read.
				case err != nil:
					return err
				default:
					fixed = applied.Fixed
					res = *applied.Diagnostics
				}
			}
			res.FixedContent = nil

			w := cmd.OutOrStdout()
			if a.flags.jsonMode {
				if err := writeJSON(w, res); err != nil {
					return err
				}
			} else {
				for _, is := range res.Issues {
					note := ""
					if is.Fixable {
						note = " (fixable)"
					}
					fmt.Fprintf(w, "%s: %s%s\n", path, is, note)
				}
				if fixed > 0 {
					fmt.Fprintf(w, "fixed %d issue(s)\n", fixed)
				}
				if res.Valid && len(res.Issues) == 0 {
					fmt.Fprintln(w, "ok")
				}
			}
			if !res.Valid {
				return fmt.Errorf("%w: %d error(s)", errInvalidBoard, len(res.Errors()))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&fix, "fix", false, "apply automatic fixes")
	return cmd
}
