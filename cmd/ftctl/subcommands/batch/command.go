// Package batch traces batches through supply chains.
package batch

import (
	"fmt"

	"github.com/fairtrace/fairtrace/cmd/ftctl/subcommands/common"
	"github.com/fairtrace/fairtrace/cmd/ftctl/tracegraph"
	"github.com/fairtrace/fairtrace/pkg/utils/args"
	"github.com/spf13/cobra"
)

// New makes the "batch" command.
func New(clients common.ClientProvider) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Trace batches",
	}
	cmd.AddCommand(newTrace(clients), newOrigins(clients))
	return cmd
}

func newTrace(clients common.ClientProvider) *cobra.Command {
	var direction, format string
	depth := args.NewDepth(0)
	cmd := &cobra.Command{
		Use:   "trace BATCH",
		Short: "Show batches and transactions leading to (or from) the batch",
		Long: `Show batches and transactions leading to (or from) the batch.

With --format dot, the trace is written in graphviz dot format:

	ftctl batch trace BATCH --format dot | dot -Tpng > trace.png`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, argv []string) error {
			switch direction {
			case "up", "down":
			default:
				return fmt.Errorf("--direction should be up or down: %s", direction)
			}
			switch format {
			case "json", "dot":
			default:
				return fmt.Errorf("--format should be json or dot: %s", format)
			}

			client, err := clients()
			if err != nil {
				return err
			}
			trace, err := client.Trace(cmd.Context(), argv[0], direction, depth.Int())
			if err != nil {
				return err
			}
			if format == "dot" {
				return tracegraph.New(trace).GenerateDot(cmd.OutOrStdout())
			}
			return common.PrintJSON(cmd.OutOrStdout(), trace)
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&direction, "direction", "up", "up (toward origins) or down (toward products)")
	flags.Var(&depth, "depth", `transactions to follow, or "all"`)
	flags.StringVar(&format, "format", "json", "json or dot")
	return cmd
}

func newOrigins(clients common.ClientProvider) *cobra.Command {
	return &cobra.Command{
		Use:   "origins BATCH",
		Short: "Show where the batch comes from, and in what share",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := clients()
			if err != nil {
				return err
			}
			o, err := client.Origins(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return common.PrintJSON(cmd.OutOrStdout(), o)
		},
	}
}
