package codec

import (
	"bytes"
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/mesh-intelligence/boardsync/pkg/types"
)

// ErrUnparseable marks a document that cannot be turned into a board. Parse
// failures are expected while a file is being edited; callers run Lint for
// diagnostics.
var ErrUnparseable = errors.New("document is not a valid board")

// indent is the YAML indentation used when serializing.
const indent = 2

// ArchiveDocument is the content of the sibling archive file.
type ArchiveDocument struct {
	Title string         `yaml:"title,omitempty"`
	Tasks []types.Task   `yaml:"archive"`
	Extra map[string]any `yaml:",inline"`
	Body  string         `yaml:"-"`
}

// Codec implements parsing, serialization, and linting of board files.
// The zero value is ready to use.
type Codec struct{}

// New returns a Codec.
func New() Codec { return Codec{} }

// Parse decodes a board file. Any failure wraps ErrUnparseable.
func (Codec) Parse(text []byte) (*types.Board, error) {
	doc, err := split(string(text))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnparseable, err)
	}

	var root yaml.Node
	if err := yaml.Unmarshal([]byte(doc.yaml), &root); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnparseable, err)
	}
	if len(root.Content) == 0 || root.Content[0].Kind != yaml.MappingNode {
		return nil, fmt.Errorf("%w: front matter is not a mapping", ErrUnparseable)
	}

	var board types.Board
	if err := root.Content[0].Decode(&board); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnparseable, err)
	}
	board.Body = doc.body
	return &board, nil
}

// Serialize encodes a board as a board file. Unknown keys captured in Extra
// are written back after the known ones.
func (Codec) Serialize(b *types.Board) ([]byte, error) {
	if b == nil {
		return nil, errors.New("serialize board: nil board")
	}
	out, err := encode(b)
	if err != nil {
		return nil, fmt.Errorf("serialize board: %w", err)
	}
	return join(out, b.Body), nil
}

// ParseArchive decodes an archive file. An empty front matter block yields
// an empty archive.
func (Codec) ParseArchive(text []byte) (*ArchiveDocument, error) {
	doc, err := split(string(text))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnparseable, err)
	}

	var archive ArchiveDocument
	if err := yaml.Unmarshal([]byte(doc.yaml), &archive); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnparseable, err)
	}
	archive.Body = doc.body
	return &archive, nil
}

// SerializeArchive encodes an archive file.
func (Codec) SerializeArchive(a *ArchiveDocument) ([]byte, error) {
	if a == nil {
		return nil, errors.New("serialize archive: nil archive")
	}
	if a.Tasks == nil {
		cp := *a
		cp.Tasks = []types.Task{}
		a = &cp
	}
	out, err := encode(a)
	if err != nil {
		return nil, fmt.Errorf("serialize archive: %w", err)
	}
	return join(out, a.Body), nil
}

func encode(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(indent)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
