package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	pb "github.com/cheggaaa/pb/v3"
	"github.com/fairtrace/fairtrace/cmd/ftctl/rest"
	"github.com/fairtrace/fairtrace/cmd/ftctl/subcommands/common"
	"github.com/fairtrace/fairtrace/pkg/bulkupload"
	fdb "github.com/fairtrace/fairtrace/pkg/db"
	"github.com/spf13/cobra"
)

// New makes the "upload" command.
func New(clients common.ClientProvider, now func() time.Time) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "upload",
		Short: "Check or record spreadsheets of farmers and deliveries",
	}
	cmd.AddCommand(newValidate(now), newCommit(clients))
	return cmd
}

func newValidate(now func() time.Time) *cobra.Command {
	var kind string
	cmd := &cobra.Command{
		Use:   "validate FILE",
		Short: "Check a spreadsheet offline",
		Long: `Check a spreadsheet without connecting to fairtrace.

Required columns, dates, numbers and phone numbers are checked.
Whether products and farmers exist is not checked; "upload commit" does it.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			k, err := fdb.AsUploadKind(kind)
			if err != nil {
				return err
			}
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			errs, rows, err := Validate(cmd.Context(), f, k, now())
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			for _, e := range errs {
				fmt.Fprintln(w, e.Error())
			}
			fmt.Fprintf(w, "%d rows, %d errors\n", rows, len(errs))
			if len(errs) != 0 {
				return fmt.Errorf("%s has errors", filepath.Base(args[0]))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&kind, "kind", string(fdb.TransactionUpload), "kind of the sheet: transactions|farmers")
	return cmd
}

// Validate parses and checks the sheet offline.
//
// It returns errors found and the number of rows read.
func Validate(ctx context.Context, r io.Reader, kind fdb.UploadKind, now time.Time) ([]bulkupload.RowError, int, error) {
	rows, errs, err := bulkupload.Parse(r, kind)
	if err != nil {
		return nil, 0, err
	}
	if len(errs) != 0 {
		return errs, len(rows), nil
	}
	v := bulkupload.Validate(ctx, kind, rows, bulkupload.Lookups{Now: now, Offline: true})
	return v.Errors, len(rows), nil
}

func newCommit(clients common.ClientProvider) *cobra.Command {
	var kind, supplyChain string
	cmd := &cobra.Command{
		Use:   "commit FILE",
		Short: "Record farmers or deliveries in a spreadsheet",
		Long: `Record farmers or deliveries in a spreadsheet for the acting node.

All rows are recorded, or nothing when a row has an error.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := fdb.AsUploadKind(kind); err != nil {
				return err
			}
			client, err := clients()
			if err != nil {
				return err
			}
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			stat, err := f.Stat()
			if err != nil {
				return err
			}
			bar := pb.New64(stat.Size())
			bar.Set(pb.Bytes, true)
			bar.SetWriter(cmd.ErrOrStderr())
			bar.Start()
			u, err := client.CommitUpload(cmd.Context(), kind, supplyChain, filepath.Base(args[0]), bar.NewProxyReader(f))
			bar.Finish()
			if uerr := new(rest.UploadError); errors.As(err, &uerr) {
				w := cmd.OutOrStdout()
				for _, e := range uerr.Validation.Errors {
					if e.Column == "" {
						fmt.Fprintf(w, "row %d: %s\n", e.Row, e.Message)
					} else {
						fmt.Fprintf(w, "row %d, %s: %s\n", e.Row, e.Column, e.Message)
					}
				}
				return uerr
			} else if err != nil {
				return err
			}
			return common.PrintJSON(cmd.OutOrStdout(), u)
		},
	}
	cmd.Flags().StringVar(&kind, "kind", string(fdb.TransactionUpload), "kind of the sheet: transactions|farmers")
	cmd.Flags().StringVar(&supplyChain, "supply-chain", "", "supply chain id which rows belong to")
	cmd.MarkFlagRequired("supply-chain")
	return cmd
}
