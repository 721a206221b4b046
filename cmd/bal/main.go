package main

import (
	"fmt"
	"os"

	"github.com/roach88/bal/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.Execute(); err != nil {
		// Commands that already reported through the formatter still
		// return an error carrying the exit code.
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
