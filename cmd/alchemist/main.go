// Command alchemist manages a personal library of books, a worldbuilding
// codex and a project board.
package main

import "github.com/mesh-intelligence/alchemist/internal/cli"

func main() {
	cli.Execute()
}
