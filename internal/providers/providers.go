package providers

import (
	"context"

	"github.com/slabworks/certlister/internal/images"
)

// Config represents the configuration for a single vision request
type Config struct {
	Model       string
	Temperature float64
	MaxTokens   int
	Prompt      string
	Image       images.Image
}

// Provider defines the interface for an LLM provider
type Provider interface {
	ExtractText(ctx context.Context, config Config) (string, error)
}
