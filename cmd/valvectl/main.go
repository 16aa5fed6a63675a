package main

import (
	"os"

	"valvenet/cmd/valvectl/commands"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	commands.SetVersionInfo(version, commit, date)

	// Errors are already printed by the printer package.
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
