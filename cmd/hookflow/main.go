// Command hookflow lists lifecycle events and runs simulated training loops.
package main

import (
	"fmt"
	"os"

	"github.com/randalmurphal/hookflow/internal/cli"
	"github.com/randalmurphal/hookflow/pkg/hookflow/shutdown"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		shutdown.Default.Exit(cli.GetExitCode(err))
	}
	shutdown.Default.Run()
}
