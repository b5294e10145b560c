package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/slabworks/certlister/internal/certs"
	"github.com/slabworks/certlister/internal/psa"
	"github.com/spf13/cobra"
)

func newLookupCmd(opts *rootOptions) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "lookup <cert-number>",
		Short: "Look up one certificate and print its listing",
		Example: `  certlister lookup 12345678
  certlister lookup 12345678 --format json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			certNumber := strings.TrimSpace(args[0])
			ids, err := certs.Parse(certNumber)
			if err != nil {
				return err
			}
			if len(ids) != 1 {
				return fmt.Errorf("%w: lookup takes a single certificate, use batch for lists and ranges", certs.ErrInvalidInput)
			}

			a, err := newApp(opts)
			if err != nil {
				return err
			}

			record, lst, err := a.processor.LookupOne(cmd.Context(), ids[0])
			if errors.Is(err, psa.ErrNotFound) {
				return fmt.Errorf("no data found for cert #%s", ids[0])
			}
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			switch format {
			case "text":
				_, err = fmt.Fprintf(out, "%s\n\n%s\n", lst.Title, lst.Description)
				return err
			case "json":
				return writeJSON(out, map[string]any{
					"success":   true,
					"card_data": record,
					"listing":   lst,
				})
			default:
				return fmt.Errorf("unsupported format: %s", format)
			}
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "text", "Output format (text or json)")

	return cmd
}
