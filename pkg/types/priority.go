package types

import (
	"encoding/json"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// BuiltinPriority is one of the fixed priority levels.
type BuiltinPriority string

// Builtin priority levels.
const (
	PriorityLow      BuiltinPriority = "low"
	PriorityMedium   BuiltinPriority = "medium"
	PriorityHigh     BuiltinPriority = "high"
	PriorityCritical BuiltinPriority = "critical"
)

var builtinPriorities = map[BuiltinPriority]bool{
	PriorityLow:      true,
	PriorityMedium:   true,
	PriorityHigh:     true,
	PriorityCritical: true,
}

// Priority is either a builtin level or a custom label. It is written to
// YAML as a plain scalar either way. A priority read from a file keeps the
// scalar exactly as written, so saving the board does not rewrite it; a
// blank scalar decodes to a priority that is neither builtin nor custom.
type Priority struct {
	builtin BuiltinPriority
	custom  string
	// raw is the scalar written to files.
	raw string
}

// Builtin returns a builtin priority value.
func Builtin(p BuiltinPriority) Priority {
	return Priority{builtin: p, raw: string(p)}
}

// ParsePriority classifies s as builtin or custom. Builtin levels match
// case-insensitively. Blank values and values spanning lines are rejected
// with ErrInvalidPriority.
func ParsePriority(s string) (Priority, error) {
	v := strings.TrimSpace(s)
	if v == "" || strings.ContainsAny(v, "\r\n") {
		return Priority{}, fmt.Errorf("%w: %q", ErrInvalidPriority, s)
	}
	if b := BuiltinPriority(strings.ToLower(v)); builtinPriorities[b] {
		return Priority{builtin: b, raw: string(b)}, nil
	}
	return Priority{custom: v, raw: v}, nil
}

// decodePriority classifies a scalar read from a file. Values ParsePriority
// rejects are kept as they are and left for the linter to report.
func decodePriority(s string) Priority {
	p, err := ParsePriority(s)
	if err != nil {
		p = Priority{custom: strings.TrimSpace(s)}
	}
	p.raw = s
	return p
}

// IsBlank reports whether p carries no level or label.
func (p Priority) IsBlank() bool {
	return p.builtin == "" && p.custom == ""
}

// IsBuiltin reports whether p is one of the builtin levels.
func (p Priority) IsBuiltin() bool {
	return p.builtin != ""
}

// BuiltinValue returns the builtin level and true, or "" and false for custom values.
func (p Priority) BuiltinValue() (BuiltinPriority, bool) {
	return p.builtin, p.builtin != ""
}

// Custom returns the custom label and true, or "" and false for builtin values.
func (p Priority) Custom() (string, bool) {
	return p.custom, p.custom != ""
}

func (p Priority) String() string {
	if p.builtin != "" {
		return string(p.builtin)
	}
	return p.custom
}

// MarshalYAML writes the priority as a scalar, using the original text when
// the priority was read from a file.
func (p Priority) MarshalYAML() (any, error) {
	return p.raw, nil
}

// UnmarshalYAML reads a scalar priority. Hand-edited files may carry any
// label, including a blank one, so only non-scalar values fail.
func (p *Priority) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: %w: expected a scalar", node.Line, ErrInvalidPriority)
	}
	*p = decodePriority(node.Value)
	return nil
}

// MarshalJSON writes the priority as a string.
func (p Priority) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.String())
}

// UnmarshalJSON reads a string priority.
func (p *Priority) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("%w: expected a string", ErrInvalidPriority)
	}
	*p = decodePriority(s)
	return nil
}
