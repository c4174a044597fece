// Relay CLI - unified multi-provider AI chat from the command line.
package main

import (
	"os"

	"github.com/hiddenpath/relay/cli/commands"
)

// ExitCoder is an interface for errors that carry an exit code.
type ExitCoder interface {
	ExitCode() int
}

func main() {
	if err := commands.Execute(); err != nil {
		if ec, ok := err.(ExitCoder); ok {
			os.Exit(ec.ExitCode())
		}
		os.Exit(1)
	}
}
