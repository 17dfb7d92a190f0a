// Command genesis evaluates content-addressed expression graphs against
// CUE rule sets.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/roach88/genesis/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "genesis:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
