// Board entities stored in the YAML front matter of a board file.
package types

import (
	"slices"
	"strings"
)

// TaskIDPrefix is the literal prefix of generated task IDs ("task-<N>").
const TaskIDPrefix = "task-"

// MaxStatsColumns bounds StatsConfig.Columns; extra entries are dropped.
const MaxStatsColumns = 4

// Board is the root entity: columns, rules, and archived tasks.
// Archive is persisted in a sibling file but merged here in memory.
// Extra holds unknown front-matter keys so they round-trip unchanged.
// Body is the Markdown that follows the front matter.
type Board struct {
	Title       string         `yaml:"title" json:"title"`
	Rules       *Rules         `yaml:"rules,omitempty" json:"rules,omitempty"`
	Columns     []Column       `yaml:"columns" json:"columns"`
	Archive     []Task         `yaml:"archive,omitempty" json:"archive,omitempty"`
	StatsConfig *StatsConfig   `yaml:"statsConfig,omitempty" json:"statsConfig,omitempty"`
	Extra       map[string]any `yaml:",inline" json:"-"`
	Body        string         `yaml:"-" json:"-"`
}

// Column is an ordered list of tasks addressed by ID.
// Order is a display hint only.
type Column struct {
	ID    string         `yaml:"id" json:"id"`
	Title string         `yaml:"title" json:"title"`
	Order *int           `yaml:"order,omitempty" json:"order,omitempty"`
	Tasks []Task         `yaml:"tasks" json:"tasks"`
	Extra map[string]any `yaml:",inline" json:"-"`
}

// Task is a unit of work. IDs are unique across all columns and the archive.
type Task struct {
	ID           string         `yaml:"id" json:"id"`
	Title        string         `yaml:"title" json:"title"`
	Description  string         `yaml:"description,omitempty" json:"description,omitempty"`
	Priority     *Priority      `yaml:"priority,omitempty" json:"priority,omitempty"`
	Tags         []string       `yaml:"tags,omitempty" json:"tags,omitempty"`
	Assignee     string         `yaml:"assignee,omitempty" json:"assignee,omitempty"`
	RelatedFiles []string       `yaml:"relatedFiles,omitempty" json:"relatedFiles,omitempty"`
	Subtasks     []Subtask      `yaml:"subtasks,omitempty" json:"subtasks,omitempty"`
	DueDate      string         `yaml:"dueDate,omitempty" json:"dueDate,omitempty"`
	Extra        map[string]any `yaml:",inline" json:"-"`
}

// Subtask is a checklist item; IDs are unique within the parent task.
type Subtask struct {
	ID        string `yaml:"id" json:"id"`
	Title     string `yaml:"title" json:"title"`
	Completed bool   `yaml:"completed" json:"completed"`
}

// StatsConfig selects up to MaxStatsColumns columns for summary counts.
type StatsConfig struct {
	Columns []string `yaml:"columns" json:"columns"`
}

// Rule is guidance for agents working on the board. IDs are unique within
// their bucket (always, never, prefer, context) only.
type Rule struct {
	ID   int    `yaml:"id" json:"id"`
	Rule string `yaml:"rule" json:"rule"`
}

// Rules groups rules by type.
type Rules struct {
	Always  []Rule `yaml:"always,omitempty" json:"always,omitempty"`
	Never   []Rule `yaml:"never,omitempty" json:"never,omitempty"`
	Prefer  []Rule `yaml:"prefer,omitempty" json:"prefer,omitempty"`
	Context []Rule `yaml:"context,omitempty" json:"context,omitempty"`
}

// Rule types.
const (
	RuleAlways  = "always"
	RuleNever   = "never"
	RulePrefer  = "prefer"
	RuleContext = "context"
)

// RuleTypes lists the rule buckets in display order.
var RuleTypes = []string{RuleAlways, RuleNever, RulePrefer, RuleContext}

// IsRuleType reports whether t names a rule bucket.
func IsRuleType(t string) bool {
	return slices.Contains(RuleTypes, t)
}

// Bucket returns the rules of the given type, or nil for an unknown type.
func (r *Rules) Bucket(ruleType string) []Rule {
	if r == nil {
		return nil
	}
	switch ruleType {
	case RuleAlways:
		return r.Always
	case RuleNever:
		return r.Never
	case RulePrefer:
		return r.Prefer
	case RuleContext:
		return r.Context
	}
	return nil
}

// WithBucket returns a copy of r with the given bucket replaced.
// A nil receiver is treated as empty Rules.
func (r *Rules) WithBucket(ruleType string, rules []Rule) *Rules {
	var out Rules
	if r != nil {
		out = *r
	}
	switch ruleType {
	case RuleAlways:
		out.Always = rules
	case RuleNever:
		out.Never = rules
	case RulePrefer:
		out.Prefer = rules
	case RuleContext:
		out.Context = rules
	}
	return &out
}

// NewBoard returns an empty board with the default todo, in-progress and
// done columns.
func NewBoard(title string) *Board {
	return &Board{
		Title: title,
		Columns: []Column{
			{ID: "todo", Title: "To Do", Tasks: []Task{}},
			{ID: "in-progress", Title: "In Progress", Tasks: []Task{}},
			{ID: "done", Title: "Done", Tasks: []Task{}},
		},
	}
}

// Column returns the column with the given ID and its index, or -1.
func (b *Board) Column(id string) (*Column, int) {
	for i := range b.Columns {
		if b.Columns[i].ID == id {
			return &b.Columns[i], i
		}
	}
	return nil, -1
}

// TaskCount returns the number of tasks across all columns, excluding the archive.
func (b *Board) TaskCount() int {
	n := 0
	for _, c := range b.Columns {
		n += len(c.Tasks)
	}
	return n
}

// TaskIndex returns the index of the task with the given ID in the column, or -1.
func (c *Column) TaskIndex(taskID string) int {
	for i := range c.Tasks {
		if c.Tasks[i].ID == taskID {
			return i
		}
	}
	return -1
}

// SubtaskIndex returns the index of the subtask with the given ID, or -1.
func (t *Task) SubtaskIndex(subtaskID string) int {
	for i := range t.Subtasks {
		if t.Subtasks[i].ID == subtaskID {
			return i
		}
	}
	return -1
}

// SortedColumns returns the columns in display order. Columns with an order
// sort ascending by it; columns without one follow, and ties keep their
// position in the document.
func SortedColumns(columns []Column) []Column {
	out := slices.Clone(columns)
	slices.SortStableFunc(out, func(a, b Column) int {
		switch {
		case a.Order == nil && b.Order == nil:
			return 0
		case a.Order == nil:
			return 1
		case b.Order == nil:
			return -1
		}
		return *a.Order - *b.Order
	})
	return out
}

// ArchivePath returns the sibling archive file for a board file:
// "<dir>/<name>.md" becomes "<dir>/<name>-archive.md".
func ArchivePath(boardPath string) string {
	return strings.TrimSuffix(boardPath, ".md") + "-archive.md"
}
