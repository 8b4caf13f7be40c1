package main

import (
	"os"

	"github.com/chazu/brainfuck/cmd/bf/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
