// Command modpack manages a local-first modpack recipe database.
package main

import (
	"os"

	"github.com/roach88/modpack/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		cli.ReportError(os.Stderr, err)
		os.Exit(cli.GetExitCode(err))
	}
}
