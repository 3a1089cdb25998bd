package main

import (
	"os"

	"github.com/jonwraymond/metacache/internal/cli/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
