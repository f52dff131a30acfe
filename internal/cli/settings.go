package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/boardsync/internal/command"
	"github.com/mesh-intelligence/boardsync/internal/state"
	"github.com/mesh-intelligence/boardsync/pkg/types"
)

func newColumnCmd(a *app) *cobra.Command {
	var title string
	add := &cobra.Command{
		Use:   "add <column-id>",
		Short: "Add an empty column at the end",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := command.AddColumn{ColumnID: args[0], Title: title}
			return a.execute(cmd, c, func(*types.Board) string { return "Added column " + args[0] })
		},
	}
	add.Flags().StringVar(&title, "title", "", "column title (default: the id)")

	cmd := &cobra.Command{
		Use:   "column",
		Short: "Add or remove columns",
	}
	cmd.AddCommand(add, &cobra.Command{
		Use:   "delete <column-id>",
		Short: "Remove an empty column",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := command.DeleteColumn{ColumnID: args[0]}
			return a.execute(cmd, c, func(*types.Board) string { return "Deleted column " + args[0] })
		},
	})
	return cmd
}

func newTitleCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "title",
		Short: "Change the board title",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "set <title>",
		Short: "Set the board title",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := command.UpdateBoardTitle{Title: args[0]}
			return a.execute(cmd, c, func(b *types.Board) string { return fmt.Sprintf("Title is %q", b.Title) })
		},
	})
	return cmd
}

func newStatsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Choose the columns counted in the board summary",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "set <column-id>...",
		Short: "Set up to four summary columns",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := command.UpdateStatsConfig{Columns: args}
			return a.execute(cmd, c, func(b *types.Board) string {
				return "Stats columns: " + strings.Join(b.StatsConfig.Columns, ", ")
			})
		},
	})
	return cmd
}

func newRuleCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rule",
		Short: "Edit the agent rules (always, never, prefer, context)",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "add <type> <text>",
			Short: "Add a rule",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				ruleType := args[0]
				c := command.AddRule{RuleType: ruleType, Text: args[1]}
				return a.execute(cmd, c, func(b *types.Board) string {
					bucket := b.Rules.Bucket(ruleType)
					return fmt.Sprintf("Added %s rule %d", ruleType, bucket[len(bucket)-1].ID)
				})
			},
		},
		&cobra.Command{
			Use:   "update <type> <id> <text>",
			Short: "Change a rule's text",
			Args:  cobra.ExactArgs(3),
			RunE: func(cmd *cobra.Command, args []string) error {
				id, err := ruleID(args[1])
				if err != nil {
					return err
				}
				c := command.UpdateRule{RuleType: args[0], ID: id, Text: args[2]}
				return a.execute(cmd, c, func(*types.Board) string { return fmt.Sprintf("Updated %s rule %d", args[0], id) })
			},
		},
		&cobra.Command{
			Use:   "delete <type> <id>",
			Short: "Remove a rule",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				id, err := ruleID(args[1])
				if err != nil {
					return err
				}
				c := command.DeleteRule{RuleType: args[0], ID: id}
				return a.execute(cmd, c, func(*types.Board) string { return fmt.Sprintf("Deleted %s rule %d", args[0], id) })
			},
		},
	)
	return cmd
}

func ruleID(s string) (int, error) {
	id, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("rule id %q: %w", s, types.ErrRuleNotFound)
	}
	return id, nil
}

func newAgentCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "agent [name]",
		Short: "Show or set the remembered agent",
		Long:  "The remembered agent is used by `task add --assign`. It is also set by the global --agent flag.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if len(args) == 1 {
				if err := a.store.Set(ctx, state.KeyLastAgent, args[0]); err != nil {
					return sysErr(err)
				}
			}
			name, err := a.agent(ctx)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), name)
			return err
		},
	}
}
