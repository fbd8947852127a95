// Package main provides the entry point for the nixpr CLI.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/nixpr/nixpr/internal/cli"
)

// Build information, set at build time via ldflags.
var (
	version = ""
	commit  = ""
	date    = ""
)

func main() {
	ctx := context.Background()

	err := cli.Execute(ctx, cli.BuildInfo{
		Version: version,
		Commit:  commit,
		Date:    date,
	})
	cli.CloseLogFile()

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(cli.ExitCodeForError(err))
	}
}
