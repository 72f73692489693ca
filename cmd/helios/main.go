package main

import (
	"os"

	"github.com/wonny/helios/cmd/helios/commands"
)

// main is the entry point for the Helios CLI
// ⭐ unified CLI entry point: go run ./cmd/helios [command]
func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
