package mutation

import (
	"fmt"
	"slices"
	"strings"

	"github.com/mesh-intelligence/boardsync/pkg/types"
)

// UpdateBoardTitle sets the board title.
func UpdateBoardTitle(b *types.Board, title string) *types.Board {
	nb := *b
	nb.Title = strings.TrimSpace(title)
	return &nb
}

// UpdateStatsConfig selects the columns shown in summary stats. Only the
// first types.MaxStatsColumns entries are kept.
func UpdateStatsConfig(b *types.Board, columns []string) *types.Board {
	nb := *b
	if len(columns) > types.MaxStatsColumns {
		columns = columns[:types.MaxStatsColumns]
	}
	nb.StatsConfig = &types.StatsConfig{Columns: slices.Clone(columns)}
	return &nb
}

// AddColumn appends an empty column.
func AddColumn(b *types.Board, id, title string) (*types.Board, error) {
	id = strings.TrimSpace(id)
	if id == "" || strings.ContainsAny(id, " \t\r\n") {
		return nil, fmt.Errorf("column id %q: %w", id, types.ErrInvalidID)
	}
	if _, i := b.Column(id); i >= 0 {
		return nil, fmt.Errorf("column %q: %w", id, types.ErrColumnExists)
	}
	title = strings.TrimSpace(title)
	if title == "" {
		title = id
	}
	nb := *b
	nb.Columns = append(slices.Clip(b.Columns), types.Column{ID: id, Title: title, Tasks: []types.Task{}})
	return &nb, nil
}

// DeleteColumn removes a column. Columns that still hold tasks are refused.
func DeleteColumn(b *types.Board, id string) (*types.Board, error) {
	ci, err := columnIndex(b, id)
	if err != nil {
		return nil, err
	}
	if n := len(b.Columns[ci].Tasks); n > 0 {
		return nil, fmt.Errorf("column %q holds %d tasks: %w", id, n, types.ErrColumnNotEmpty)
	}
	nb := *b
	nb.Columns = slices.Delete(slices.Clone(b.Columns), ci, ci+1)
	return &nb, nil
}

func ruleBucket(b *types.Board, ruleType string) ([]types.Rule, error) {
	if !types.IsRuleType(ruleType) {
		return nil, fmt.Errorf("rule type %q: %w", ruleType, types.ErrInvalidRuleType)
	}
	return b.Rules.Bucket(ruleType), nil
}

func ruleIndex(rules []types.Rule, ruleType string, id int) (int, error) {
	for i := range rules {
		if rules[i].ID == id {
			return i, nil
		}
	}
	return -1, fmt.Errorf("%s rule %d: %w", ruleType, id, types.ErrRuleNotFound)
}

func withRules(b *types.Board, ruleType string, rules []types.Rule) *types.Board {
	nb := *b
	nb.Rules = b.Rules.WithBucket(ruleType, rules)
	return &nb
}

// AddRule appends a rule to a bucket. Its ID is one past the highest ID in
// that bucket.
func AddRule(b *types.Board, ruleType, text string) (*types.Board, error) {
	rules, err := ruleBucket(b, ruleType)
	if err != nil {
		return nil, err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("%s rule: %w", ruleType, types.ErrEmptyRule)
	}
	next := 1
	for _, r := range rules {
		if r.ID >= next {
			next = r.ID + 1
		}
	}
	return withRules(b, ruleType, append(slices.Clip(rules), types.Rule{ID: next, Rule: text})), nil
}

// UpdateRule replaces the text of a rule.
func UpdateRule(b *types.Board, ruleType string, id int, text string) (*types.Board, error) {
	rules, err := ruleBucket(b, ruleType)
	if err != nil {
		return nil, err
	}
	i, err := ruleIndex(rules, ruleType, id)
	if err != nil {
		return nil, err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("%s rule %d: %w", ruleType, id, types.ErrEmptyRule)
	}
	rules = slices.Clone(rules)
	rules[i].Rule = text
	return withRules(b, ruleType, rules), nil
}

// DeleteRule removes a rule from a bucket.
func DeleteRule(b *types.Board, ruleType string, id int) (*types.Board, error) {
	rules, err := ruleBucket(b, ruleType)
	if err != nil {
		return nil, err
	}
	i, err := ruleIndex(rules, ruleType, id)
	if err != nil {
		return nil, err
	}
	return withRules(b, ruleType, slices.Delete(slices.Clone(rules), i, i+1)), nil
}
