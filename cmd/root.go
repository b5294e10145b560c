package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/joho/godotenv"
	"github.com/slabworks/certlister/internal/batch"
	"github.com/slabworks/certlister/internal/config"
	"github.com/slabworks/certlister/internal/extraction"
	"github.com/slabworks/certlister/internal/images"
	"github.com/slabworks/certlister/internal/psa"
	"github.com/spf13/cobra"
)

type rootOptions struct {
	configPath string
	logLevel   string
	logFormat  string
}

func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "certlister",
		Short: "Turn PSA certification numbers into marketplace listings",
		Long: `Certlister looks up PSA-graded trading cards by certification number and
generates marketplace listing titles and descriptions for them.

Certificates can be given one at a time, as comma separated lists and ranges,
or read off a photo of the slabs with a vision-capable LLM.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Load .env file if present (ignore errors)
			_ = godotenv.Load()
			return setupLogging(cmd.ErrOrStderr(), opts.logLevel, opts.logFormat)
		},
	}

	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "Path to TOML config file (default ./"+config.DefaultPath+" if present)")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	cmd.PersistentFlags().StringVar(&opts.logFormat, "log-format", "text", "Log format (text or json)")

	cmd.AddCommand(newServeCmd(opts))
	cmd.AddCommand(newLookupCmd(opts))
	cmd.AddCommand(newBatchCmd(opts))
	cmd.AddCommand(newExtractCmd(opts))

	return cmd
}

func setupLogging(w io.Writer, level, format string) error {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return fmt.Errorf("invalid --log-level %q: %w", level, err)
	}

	handlerOpts := &slog.HandlerOptions{Level: lvl}
	var handler slog.Handler
	switch strings.ToLower(format) {
	case "text", "":
		handler = slog.NewTextHandler(w, handlerOpts)
	case "json":
		handler = slog.NewJSONHandler(w, handlerOpts)
	default:
		return fmt.Errorf("invalid --log-format %q: must be text or json", format)
	}
	slog.SetDefault(slog.New(handler))
	return nil
}

// app holds the services every command is built from.
type app struct {
	cfg       *config.Config
	processor *batch.Processor
	extractor *extraction.Service
}

func newApp(opts *rootOptions) (*app, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, err
	}

	processor := batch.NewProcessor(newFetcher(cfg), nil)

	provider, model, err := extraction.NewProvider(extraction.ProviderSettings{
		Name:          cfg.Vision.Provider,
		Model:         cfg.Vision.Model,
		OpenAIAPIKey:  cfg.Vision.OpenAIAPIKey,
		OpenAIBaseURL: cfg.Vision.OpenAIBaseURL,
		GeminiAPIKey:  cfg.Vision.GeminiAPIKey,
		OllamaURL:     cfg.Vision.OllamaURL,
	}, images.NewFetcher())
	if err != nil {
		return nil, err
	}

	return &app{
		cfg:       cfg,
		processor: processor,
		extractor: extraction.NewService(provider, strings.ToLower(cfg.Vision.Provider), model, cfg.VisionTimeout()),
	}, nil
}

// newFetcher prefers the PSA API and falls back to the public cert pages
// when no token is configured.
func newFetcher(cfg *config.Config) batch.Fetcher {
	if cfg.PSA.APIToken != "" {
		return psa.NewClient(cfg.PSA.BaseURL, cfg.PSA.APIToken, cfg.PSATimeout())
	}
	slog.Warn("PSA_API_TOKEN not set, falling back to PSA cert pages")
	return psa.NewWebClient(cfg.PSA.WebBaseURL, cfg.PSATimeout())
}
