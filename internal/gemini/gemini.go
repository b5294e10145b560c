package gemini

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/slabworks/certlister/internal/images"
	"github.com/slabworks/certlister/internal/providers"
	"google.golang.org/api/option"
)

// Gemini is a provider for Google Gemini
type Gemini struct {
	apiKey string
	images *images.Fetcher
}

// New returns a new Gemini provider
func New(apiKey string, fetcher *images.Fetcher) *Gemini {
	if fetcher == nil {
		fetcher = images.NewFetcher()
	}
	return &Gemini{
		apiKey: apiKey,
		images: fetcher,
	}
}

// ExtractText sends the prompt and image to Gemini and returns the reply text
func (g *Gemini) ExtractText(ctx context.Context, config providers.Config) (string, error) {
	if g.apiKey == "" {
		return "", fmt.Errorf("GEMINI_API_KEY not set")
	}

	img, err := g.images.Bytes(ctx, config.Image)
	if err != nil {
		return "", err
	}
	if len(img.Data) == 0 {
		return "", fmt.Errorf("no image provided")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(g.apiKey))
	if err != nil {
		return "", fmt.Errorf("failed to create new gemini client: %w", err)
	}
	defer client.Close()

	model := client.GenerativeModel(config.Model)
	model.SetTemperature(float32(config.Temperature))
	if config.MaxTokens > 0 {
		model.SetMaxOutputTokens(int32(config.MaxTokens))
	}
	model.ResponseMIMEType = "application/json"

	// genai.ImageData wants the subtype only, e.g. "png".
	format := strings.TrimPrefix(img.MIMEType, "image/")
	resp, err := model.GenerateContent(ctx, genai.ImageData(format, img.Data), genai.Text(config.Prompt))
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}

	if len(resp.Candidates) == 0 {
		return "", fmt.Errorf("no candidates returned from Gemini")
	}

	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return "", fmt.Errorf("empty content returned from Gemini")
	}

	var sb strings.Builder
	for _, part := range candidate.Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			sb.WriteString(string(txt))
		}
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("unexpected response format from Gemini")
	}
	return sb.String(), nil
}
