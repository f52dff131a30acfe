package codec

import (
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/mesh-intelligence/boardsync/pkg/types"
)

// Severity classifies a lint issue.
type Severity string

// Issue severities.
const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Issue is one lint finding. Line is 1-based within the whole file, or 0
// when the finding has no position.
type Issue struct {
	Type    Severity `json:"type"`
	Message string   `json:"message"`
	Line    int      `json:"line,omitempty"`
	Fixable bool     `json:"fixable"`
}

func (i Issue) String() string {
	if i.Line > 0 {
		return fmt.Sprintf("line %d: %s: %s", i.Line, i.Type, i.Message)
	}
	return fmt.Sprintf("%s: %s", i.Type, i.Message)
}

// LintOptions controls Lint.
type LintOptions struct {
	// AutoFix fills LintResult.FixedContent when any fixable issue was found.
	AutoFix bool
}

// LintResult is the outcome of Lint. Valid is false when any issue is an
// error. FixedContent is nil unless AutoFix was requested and a fix applied.
type LintResult struct {
	Valid        bool    `json:"valid"`
	Issues       []Issue `json:"issues"`
	FixedContent []byte  `json:"fixedContent,omitempty"`
}

// HasFixable reports whether any issue can be fixed automatically.
func (r LintResult) HasFixable() bool {
	return slices.ContainsFunc(r.Issues, func(i Issue) bool { return i.Fixable })
}

// Errors returns the error-severity issues.
func (r LintResult) Errors() []Issue {
	var out []Issue
	for _, i := range r.Issues {
		if i.Type == SeverityError {
			out = append(out, i)
		}
	}
	return out
}

var (
	yamlLineRe    = regexp.MustCompile(`line (\d+): `)
	taskIDPattern = regexp.MustCompile(`^task-\d+$`)
)

// Lint checks a board file and reports syntax and structural problems.
// Tab indentation and trailing whitespace inside the front matter are fixable;
// line numbers are unaffected by those fixes, so structural checks run on the
// fixed text and report positions that match the original.
func (Codec) Lint(text []byte, opts LintOptions) LintResult {
	original := string(text)
	fixed, issues := fixWhitespace(original)

	doc, err := split(fixed)
	if err != nil {
		issues = append(issues, Issue{Type: SeverityError, Message: err.Error(), Line: 1})
	} else {
		var root yaml.Node
		if err := yaml.Unmarshal([]byte(doc.yaml), &root); err != nil {
			issues = append(issues, syntaxIssue(err, doc.yamlLine))
		} else {
			c := &checker{base: doc.yamlLine, columnIDs: map[string]int{}, taskIDs: map[string]int{}}
			c.board(&root)
			issues = append(issues, c.issues...)
		}
	}

	slices.SortStableFunc(issues, func(a, b Issue) int { return a.Line - b.Line })

	result := LintResult{Valid: true, Issues: issues}
	for _, i := range issues {
		if i.Type == SeverityError {
			result.Valid = false
			break
		}
	}
	if opts.AutoFix && fixed != original && result.HasFixable() {
		result.FixedContent = []byte(fixed)
	}
	return result
}

// fixWhitespace replaces tab indentation with spaces and strips trailing
// whitespace on front matter lines. The Markdown body is left alone.
func fixWhitespace(text string) (string, []Issue) {
	lines := strings.SplitAfter(text, "\n")
	var issues []Issue
	inFront := false
	for i, raw := range lines {
		content := strings.TrimRight(raw, "\r\n")
		ending := raw[len(content):]
		if i == 0 {
			if !isDelimiter(strings.TrimPrefix(content, "\ufeff")) {
				return text, nil
			}
			inFront = true
			continue
		}
		if !inFront {
			break
		}
		if isDelimiter(content) {
			inFront = false
			continue
		}

		line := i + 1
		indentEnd := len(content) - len(strings.TrimLeft(content, " \t"))
		if lead := content[:indentEnd]; strings.Contains(lead, "\t") {
			issues = append(issues, Issue{Type: SeverityError, Message: "tab character used for indentation", Line: line, Fixable: true})
			content = strings.ReplaceAll(lead, "\t", "  ") + content[indentEnd:]
		}
		if trimmed := strings.TrimRight(content, " \t"); trimmed != content && strings.TrimSpace(content) != "" {
			issues = append(issues, Issue{Type: SeverityWarning, Message: "trailing whitespace", Line: line, Fixable: true})
			content = trimmed
		}
		lines[i] = content + ending
	}
	return strings.Join(lines, ""), issues
}

func syntaxIssue(err error, base int) Issue {
	msg := strings.TrimPrefix(err.Error(), "yaml: ")
	line := 0
	if m := yamlLineRe.FindStringSubmatch(msg); m != nil {
		if n, convErr := strconv.Atoi(m[1]); convErr == nil {
			line = n + base - 1
		}
		msg = strings.Replace(msg, m[0], "", 1)
	}
	return Issue{Type: SeverityError, Message: "invalid YAML: " + msg, Line: line}
}

// checker walks the YAML node tree and records structural issues.
type checker struct {
	base      int
	columnIDs map[string]int
	taskIDs   map[string]int
	issues    []Issue
}

func (c *checker) line(n *yaml.Node) int {
	if n == nil {
		return 0
	}
	return n.Line + c.base - 1
}

func (c *checker) add(sev Severity, n *yaml.Node, format string, args ...any) {
	c.issues = append(c.issues, Issue{Type: sev, Message: fmt.Sprintf(format, args...), Line: c.line(n)})
}

func (c *checker) board(root *yaml.Node) {
	if len(root.Content) == 0 {
		c.add(SeverityError, nil, "front matter is empty")
		return
	}
	doc := root.Content[0]
	if doc.Kind != yaml.MappingNode {
		c.add(SeverityError, doc, "front matter must be a mapping")
		return
	}

	if title := mapValue(doc, "title"); title == nil || strings.TrimSpace(title.Value) == "" {
		c.add(SeverityWarning, doc, "board has no title")
	}

	columns := mapValue(doc, "columns")
	switch {
	case columns == nil:
		c.add(SeverityError, doc, "board has no columns")
	case columns.Kind != yaml.SequenceNode:
		c.add(SeverityError, columns, "columns must be a list")
	default:
		for _, col := range columns.Content {
			c.column(col)
		}
	}

	if archive := mapValue(doc, "archive"); archive != nil {
		if archive.Kind != yaml.SequenceNode {
			c.add(SeverityError, archive, "archive must be a list")
		} else {
			for _, task := range archive.Content {
				c.task(task, "archive")
			}
		}
	}

	if stats := mapValue(doc, "statsConfig"); stats != nil {
		if cols := mapValue(stats, "columns"); cols != nil && cols.Kind == yaml.SequenceNode && len(cols.Content) > types.MaxStatsColumns {
			c.add(SeverityWarning, cols, "statsConfig lists %d columns; only the first %d are used", len(cols.Content), types.MaxStatsColumns)
		}
	}
}

func (c *checker) column(col *yaml.Node) {
	if col.Kind != yaml.MappingNode {
		c.add(SeverityError, col, "column must be a mapping")
		return
	}
	id := mapValue(col, "id")
	if id == nil || strings.TrimSpace(id.Value) == "" {
		c.add(SeverityError, col, "column has no id")
	} else if first, dup := c.columnIDs[id.Value]; dup {
		c.add(SeverityError, id, "duplicate column id %q (first defined on line %d)", id.Value, first)
	} else {
		c.columnIDs[id.Value] = c.line(id)
	}

	tasks := mapValue(col, "tasks")
	if tasks == nil {
		return
	}
	if tasks.Kind != yaml.SequenceNode {
		c.add(SeverityError, tasks, "tasks must be a list")
		return
	}
	where := "column"
	if id != nil {
		where = fmt.Sprintf("column %q", id.Value)
	}
	for _, task := range tasks.Content {
		c.task(task, where)
	}
}

func (c *checker) task(task *yaml.Node, where string) {
	if task.Kind != yaml.MappingNode {
		c.add(SeverityError, task, "task in %s must be a mapping", where)
		return
	}
	id := mapValue(task, "id")
	switch {
	case id == nil || strings.TrimSpace(id.Value) == "":
		c.add(SeverityError, task, "task in %s has no id", where)
	default:
		if first, dup := c.taskIDs[id.Value]; dup {
			c.add(SeverityError, id, "duplicate task id %q (first defined on line %d)", id.Value, first)
		} else {
			c.taskIDs[id.Value] = c.line(id)
		}
		if !taskIDPattern.MatchString(id.Value) {
			c.add(SeverityWarning, id, "task id %q does not follow the task-<N> format", id.Value)
		}
	}

	if title := mapValue(task, "title"); title == nil || strings.TrimSpace(title.Value) == "" {
		c.add(SeverityWarning, task, "task in %s has no title", where)
	}
	if p := mapValue(task, "priority"); p != nil && p.Tag != "!!null" {
		if p.Kind != yaml.ScalarNode {
			c.add(SeverityError, p, "priority must be a single value")
		} else if _, err := types.ParsePriority(p.Value); err != nil {
			c.add(SeverityError, p, "priority must not be blank")
		}
	}
	if subtasks := mapValue(task, "subtasks"); subtasks != nil && subtasks.Kind == yaml.SequenceNode {
		seen := map[string]bool{}
		for _, st := range subtasks.Content {
			sid := mapValue(st, "id")
			if sid == nil {
				c.add(SeverityError, st, "subtask has no id")
				continue
			}
			if seen[sid.Value] {
				c.add(SeverityError, sid, "duplicate subtask id %q", sid.Value)
			}
			seen[sid.Value] = true
		}
	}
}

// mapValue returns the value node for key in a mapping node, or nil.
func mapValue(m *yaml.Node, key string) *yaml.Node {
	if m == nil || m.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key {
			return m.Content[i+1]
		}
	}
	return nil
}
