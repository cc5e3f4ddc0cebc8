// Package main is the cyberterm command-line entry point.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/cyberterm/internal/cli"
)

func main() {
	err := cli.NewRootCommand().Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	os.Exit(cli.GetExitCode(err))
}
