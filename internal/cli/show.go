package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/boardsync/pkg/types"
)

func newShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the board with its archive",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			b, _, err := a.load(cmd.Context())
			if err != nil {
				return err
			}
			if a.flags.jsonMode {
				return writeJSON(cmd.OutOrStdout(), b)
			}
			return renderBoard(cmd.OutOrStdout(), b)
		},
	}
}

// renderBoard writes the human-readable board listing.
func renderBoard(w io.Writer, b *types.Board) error {
	var sb strings.Builder
	sb.WriteString(b.Title + "\n")

	for _, col := range types.SortedColumns(b.Columns) {
		fmt.Fprintf(&sb, "\n%s (%s) [%d]\n", col.Title, col.ID, len(col.Tasks))
		for _, t := range col.Tasks {
			sb.WriteString("  " + taskLine(t) + "\n")
		}
	}

	if b.StatsConfig != nil && len(b.StatsConfig.Columns) > 0 {
		counts := make([]string, 0, len(b.StatsConfig.Columns))
		for _, id := range b.StatsConfig.Columns {
			n := 0
			if col, _ := b.Column(id); col != nil {
				n = len(col.Tasks)
			}
			counts = append(counts, fmt.Sprintf("%s %d", id, n))
		}
		sb.WriteString("\nStats: " + strings.Join(counts, ", ") + "\n")
	}

	var rules []string
	for _, rt := range types.RuleTypes {
		for _, r := range b.Rules.Bucket(rt) {
			rules = append(rules, fmt.Sprintf("  %s %d: %s", rt, r.ID, r.Rule))
		}
	}
	if len(rules) > 0 {
		sb.WriteString("\nRules\n" + strings.Join(rules, "\n") + "\n")
	}

	if len(b.Archive) > 0 {
		fmt.Fprintf(&sb, "\nArchive [%d]\n", len(b.Archive))
		for _, t := range b.Archive {
			sb.WriteString("  " + taskLine(t) + "\n")
		}
	}

	_, err := io.WriteString(w, sb.String())
	return err
}

func taskLine(t types.Task) string {
	line := t.ID + "  " + t.Title
	if t.Priority != nil && !t.Priority.IsBlank() {
		line += "  !" + t.Priority.String()
	}
	if t.Assignee != "" {
		line += "  @" + t.Assignee
	}
	if len(t.Tags) > 0 {
		line += "  #" + strings.Join(t.Tags, " #")
	}
	if t.DueDate != "" {
		line += "  due " + t.DueDate
	}
	if n := len(t.Subtasks); n > 0 {
		done := 0
		for _, s := range t.Subtasks {
			if s.Completed {
				done++
			}
		}
		line += fmt.Sprintf("  [%d/%d]", done, n)
	}
	return line
}
