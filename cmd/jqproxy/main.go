package main

import (
	"os"

	"github.com/hayasaka/jqproxy/cmd/jqproxy/commands"
)

// main is the entry point for the jqproxy CLI: go run ./cmd/jqproxy [command]
func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
