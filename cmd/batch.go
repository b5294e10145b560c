package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/slabworks/certlister/internal/batch"
	"github.com/slabworks/certlister/internal/export"
	"github.com/slabworks/certlister/internal/models"
	"github.com/spf13/cobra"
)

type batchOutput struct {
	format  string
	out     string
	parquet string
}

func newBatchCmd(opts *rootOptions) *cobra.Command {
	var delay float64
	output := &batchOutput{}

	cmd := &cobra.Command{
		Use:   "batch <cert-input>...",
		Short: "Look up a list of certificates and ranges",
		Long: `Looks up every certificate in the input, in order, pausing between PSA calls.

Input is a comma separated list of certificate numbers and ranges such as
"12345678,12345680-12345690". A range may span at most 100 numbers and a batch
may hold at most 100 certificates. Multiple arguments are joined with commas.`,
		Example: `  certlister batch 12345678-12345690
  certlister batch 12345678,87654321 --delay 2 --format yaml --out listings.yaml
  certlister batch 12345678-12345690 --parquet listings.parquet`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := resolveFormat(output.format, cmd.OutOrStdout()); err != nil {
				return err
			}

			a, err := newApp(opts)
			if err != nil {
				return err
			}

			d := a.cfg.BatchDelay()
			if cmd.Flags().Changed("delay") {
				if d, err = batch.DelayFromSeconds(delay); err != nil {
					return err
				}
			}

			input := strings.Join(args, ",")
			result, runErr := a.processor.Run(cmd.Context(), input, d)
			if result == nil {
				return runErr
			}
			if runErr != nil {
				slog.Warn("Batch stopped early, writing partial result", "err", runErr)
			}

			if err := output.write(cmd.OutOrStdout(), input, result); err != nil {
				return err
			}
			return runErr
		},
	}

	cmd.Flags().Float64Var(&delay, "delay", 1.0, "Seconds to wait between PSA lookups (overrides config)")
	output.bind(cmd)

	return cmd
}

func (o *batchOutput) bind(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&o.format, "format", "f", "", "Output format: table, json or yaml (default table on a terminal, json otherwise)")
	cmd.Flags().StringVarP(&o.out, "out", "o", "", "Write output to this file instead of stdout")
	cmd.Flags().StringVar(&o.parquet, "parquet", "", "Also write successful listings to this parquet file")
}

func (o *batchOutput) write(stdout io.Writer, input string, result *models.BatchResult) error {
	w := stdout
	if o.out != "" {
		f, err := os.Create(o.out)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		w = f
	}

	format, err := resolveFormat(o.format, w)
	if err != nil {
		return err
	}
	if err := writeBatchResult(w, format, input, result); err != nil {
		return err
	}
	if o.out != "" {
		slog.Info("Batch result written", "path", o.out, "format", format)
	}

	if o.parquet != "" {
		if err := export.WriteParquet(o.parquet, result); err != nil {
			return err
		}
		slog.Info("Parquet export written", "path", o.parquet, "rows", result.Successful)
	}
	return nil
}
