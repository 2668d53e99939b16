// Command specbuilder builds, checks and catalogs method specs.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/roach88/specbuilder/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := cli.NewRootCommand().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(cli.GetExitCode(err))
	}
}
