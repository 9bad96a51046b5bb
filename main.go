// Package main is the entry point for the kanban CLI application.
package main

import (
	"fmt"
	"os"

	"github.com/danielolaszy/kanban/cmd"
	"github.com/danielolaszy/kanban/internal/logging"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

// main executes the root command and exits non-zero when it fails.
func main() {
	logging.Debug("starting kanban", "version", version)

	if err := cmd.Execute(); err != nil {
		logging.Error("command execution failed", "error", err)
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
