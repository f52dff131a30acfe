// Package codec reads and writes board files: Markdown documents that open
// with a YAML block delimited by "---" lines. It parses the block into a
// types.Board, serializes boards back losslessly (unknown keys and the
// Markdown body are preserved), and lints malformed documents.
package codec

import (
	"errors"
	"strings"
)

const delimiter = "---"

// Front matter errors.
var (
	ErrNoFrontMatter           = errors.New("document does not start with a --- front matter block")
	ErrUnterminatedFrontMatter = errors.New("front matter block is not closed by ---")
)

// document is a board file split into its YAML block and Markdown body.
type document struct {
	yaml string
	body string
	// yamlLine is the 1-based line of the first YAML line in the file.
	yamlLine int
}

// split separates the front matter from the body. The opening delimiter must
// be the first line (a UTF-8 BOM is tolerated); the body is everything after
// the closing delimiter line, byte for byte.
func split(text string) (document, error) {
	text = strings.TrimPrefix(text, "\ufeff")

	first, rest, ok := strings.Cut(text, "\n")
	if !isDelimiter(first) {
		return document{}, ErrNoFrontMatter
	}
	if !ok {
		return document{}, ErrUnterminatedFrontMatter
	}

	offset := 0
	for {
		line, next, more := strings.Cut(rest[offset:], "\n")
		if isDelimiter(line) {
			body := ""
			if more {
				body = next
			}
			return document{yaml: rest[:offset], body: body, yamlLine: 2}, nil
		}
		if !more {
			return document{}, ErrUnterminatedFrontMatter
		}
		offset += len(line) + 1
	}
}

func isDelimiter(line string) bool {
	return strings.TrimRight(line, " \t\r") == delimiter
}

// join reassembles a document from a YAML block and a body.
func join(yamlBlock []byte, body string) []byte {
	var b strings.Builder
	b.Grow(len(yamlBlock) + len(body) + 8)
	b.WriteString(delimiter)
	b.WriteByte('\n')
	b.Write(yamlBlock)
	if len(yamlBlock) > 0 && yamlBlock[len(yamlBlock)-1] != '\n' {
		b.WriteByte('\n')
	}
	b.WriteString(delimiter)
	b.WriteByte('\n')
	b.WriteString(body)
	return []byte(b.String())
}
