package extraction

import (
	"fmt"
	"strings"

	"github.com/slabworks/certlister/internal/gemini"
	"github.com/slabworks/certlister/internal/images"
	"github.com/slabworks/certlister/internal/ollama"
	"github.com/slabworks/certlister/internal/openai"
	"github.com/slabworks/certlister/internal/providers"
)

// ProviderSettings carries the credentials and endpoints for every supported provider.
type ProviderSettings struct {
	Name          string
	Model         string
	OpenAIAPIKey  string
	OpenAIBaseURL string
	GeminiAPIKey  string
	OllamaURL     string
}

// NewProvider returns the configured vision provider and the model to use with it.
func NewProvider(settings ProviderSettings, fetcher *images.Fetcher) (providers.Provider, string, error) {
	name := strings.ToLower(strings.TrimSpace(settings.Name))
	if name == "" {
		name = "openai"
	}

	model := settings.Model
	if model == "" {
		model = DefaultModel(name)
	}

	switch name {
	case "openai":
		return openai.New(settings.OpenAIAPIKey, settings.OpenAIBaseURL), model, nil
	case "gemini":
		return gemini.New(settings.GeminiAPIKey, fetcher), model, nil
	case "ollama":
		return ollama.New(settings.OllamaURL, fetcher), model, nil
	default:
		return nil, "", fmt.Errorf("unsupported provider: %s", settings.Name)
	}
}

// DefaultModel is the vision model used when none is configured.
func DefaultModel(provider string) string {
	switch provider {
	case "openai":
		return "gpt-4o"
	case "gemini":
		return "gemini-1.5-flash"
	case "ollama":
		return "llama3.2-vision"
	default:
		return ""
	}
}
