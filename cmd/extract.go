package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/slabworks/certlister/internal/images"
	"github.com/spf13/cobra"
)

func newExtractCmd(opts *rootOptions) *cobra.Command {
	var (
		prompt string
		lookup bool
	)
	output := &batchOutput{}

	cmd := &cobra.Command{
		Use:   "extract <image-path|url>",
		Short: "Read PSA certification numbers off a slab photo",
		Long: `Sends a photo of one or more PSA slabs to the configured vision model and
prints the certification numbers it finds. With --lookup the numbers are run
through the batch pipeline and listings are printed instead.`,
		Example: `  certlister extract slabs.jpg
  certlister extract https://example.com/slabs.jpg --lookup --format json
  VISION_PROVIDER=ollama certlister extract slabs.jpg`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if lookup {
				if _, err := resolveFormat(output.format, cmd.OutOrStdout()); err != nil {
					return err
				}
			}

			img, err := loadImage(args[0])
			if err != nil {
				return err
			}

			a, err := newApp(opts)
			if err != nil {
				return err
			}

			certNumbers, err := a.extractor.ExtractCertNumbers(cmd.Context(), img, prompt)
			if err != nil {
				return err
			}

			if !lookup {
				_, err := fmt.Fprintln(cmd.OutOrStdout(), strings.Join(certNumbers, "\n"))
				return err
			}

			input := strings.Join(certNumbers, ",")
			result, runErr := a.processor.Run(cmd.Context(), input, a.cfg.BatchDelay())
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

	cmd.Flags().StringVar(&prompt, "prompt", "", "Override the extraction prompt")
	cmd.Flags().BoolVar(&lookup, "lookup", false, "Look up the extracted certificates and print listings")
	output.bind(cmd)

	return cmd
}

// loadImage accepts an http(s) URL or a path to a local image file.
func loadImage(ref string) (images.Image, error) {
	lower := strings.ToLower(ref)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		return images.Parse(ref)
	}

	data, err := os.ReadFile(ref)
	if err != nil {
		return images.Image{}, fmt.Errorf("failed to read image: %w", err)
	}
	return images.FromBytes(data, "")
}
