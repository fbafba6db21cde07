package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fairtrace/fairtrace/cmd/ftctl/subcommands/batch"
	"github.com/fairtrace/fairtrace/cmd/ftctl/subcommands/common"
	"github.com/fairtrace/fairtrace/cmd/ftctl/subcommands/report"
	"github.com/fairtrace/fairtrace/cmd/ftctl/subcommands/token"
	"github.com/fairtrace/fairtrace/cmd/ftctl/subcommands/upload"
	"github.com/fairtrace/fairtrace/pkg/buildtime"
	"github.com/spf13/cobra"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	globals := &common.Globals{}
	root := &cobra.Command{
		Use:           "ftctl",
		Short:         "ftctl operates fairtrace",
		Version:       buildtime.VersionString(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	globals.Bind(root)
	root.AddCommand(
		upload.New(globals.Client, time.Now),
		batch.New(globals.Client),
		report.New(globals.Client),
		token.New(time.Now),
	)

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", globals.Describe(err))
		os.Exit(1)
	}
}
