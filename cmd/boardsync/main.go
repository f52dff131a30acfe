// Command boardsync reads and edits a Markdown task board.
package main

import "github.com/mesh-intelligence/boardsync/internal/cli"

func main() {
	cli.Execute()
}
