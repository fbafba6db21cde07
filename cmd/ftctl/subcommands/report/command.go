// Package report requests spreadsheets of the acting node, and downloads them.
package report

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	pb "github.com/cheggaaa/pb/v3"
	"github.com/fairtrace/fairtrace/cmd/ftctl/subcommands/common"
	bindledger "github.com/fairtrace/fairtrace/pkg/api/binding/ledger"
	apijobs "github.com/fairtrace/fairtrace/pkg/api/types/jobs"
	fdb "github.com/fairtrace/fairtrace/pkg/db"
	fio "github.com/fairtrace/fairtrace/pkg/io"
	"github.com/spf13/cobra"
)

// New makes the "report" command.
func New(clients common.ClientProvider) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Request and download reports",
	}
	cmd.AddCommand(newRequest(clients), newGet(clients))
	return cmd
}

func newRequest(clients common.ClientProvider) *cobra.Command {
	var kind, since, until string
	cmd := &cobra.Command{
		Use:   "request",
		Short: "Request a report to be generated",
		Long: `Request a report to be generated in background.

Reports are generated asynchronously. Check the status with "report get ID".`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := fdb.AsReportKind(kind); err != nil {
				return err
			}
			spec := apijobs.ReportSpec{Kind: kind}
			var err error
			if spec.Since, err = optionalDate("since", since); err != nil {
				return err
			}
			if spec.Until, err = optionalDate("until", until); err != nil {
				return err
			}
			if spec.Since != nil && spec.Until != nil && spec.Until.Before(*spec.Since) {
				return fmt.Errorf("--until should not be before --since")
			}

			client, err := clients()
			if err != nil {
				return err
			}
			r, err := client.RequestReport(cmd.Context(), spec)
			if err != nil {
				return err
			}
			return common.PrintJSON(cmd.OutOrStdout(), r)
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&kind, "kind", string(fdb.TransactionReport), "transactions|farmers|stock")
	flags.StringVar(&since, "since", "", "first date included (YYYY-MM-DD)")
	flags.StringVar(&until, "until", "", "last date included (YYYY-MM-DD)")
	return cmd
}

func optionalDate(flag string, s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	d, err := bindledger.ParseDate(s)
	if err != nil {
		return nil, fmt.Errorf("--%s: %w", flag, err)
	}
	return &d, nil
}

const download pb.ProgressBarTemplate = `{{with string . "prefix"}}{{.}} {{end}}{{counters . }}`

func newGet(clients common.ClientProvider) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "get ID",
		Short: "Show a report, or download it with --output",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := clients()
			if err != nil {
				return err
			}
			if output == "" {
				r, err := client.GetReport(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return common.PrintJSON(cmd.OutOrStdout(), r)
			}

			return client.GetReportFile(cmd.Context(), args[0], func(r io.Reader) error {
				f, err := fio.CreateAll(output, os.FileMode(0o644), os.FileMode(0o755))
				if err != nil {
					return err
				}
				defer f.Close()

				bar := download.New(-1)
				bar.Set(pb.Bytes, true)
				bar.SetWriter(cmd.ErrOrStderr())
				bar.Set("prefix", "downloading "+filepath.Base(output)+":")
				bar.Start()
				w := bar.NewProxyWriter(f)
				defer w.Close()

				_, err = io.Copy(w, r)
				return err
			})
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "path to save the spreadsheet")
	return cmd
}
