package ollama

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/slabworks/certlister/internal/images"
	"github.com/slabworks/certlister/internal/providers"
)

const DefaultURL = "http://localhost:11434"

// Ollama is a provider for a local Ollama vision model
type Ollama struct {
	baseURL    string
	images     *images.Fetcher
	httpClient *http.Client
}

// New returns a new Ollama provider
func New(baseURL string, fetcher *images.Fetcher) *Ollama {
	if baseURL == "" {
		baseURL = DefaultURL
	}
	if fetcher == nil {
		fetcher = images.NewFetcher()
	}
	return &Ollama{
		baseURL:    strings.TrimRight(baseURL, "/"),
		images:     fetcher,
		httpClient: &http.Client{},
	}
}

// ExtractText sends the prompt and image to Ollama and returns the reply text
func (o *Ollama) ExtractText(ctx context.Context, config providers.Config) (string, error) {
	img, err := o.images.Bytes(ctx, config.Image)
	if err != nil {
		return "", err
	}
	if len(img.Data) == 0 {
		return "", fmt.Errorf("no image provided")
	}

	options := map[string]interface{}{
		"temperature": config.Temperature,
	}
	if config.MaxTokens > 0 {
		options["num_predict"] = config.MaxTokens
	}

	requestBody, err := json.Marshal(map[string]interface{}{
		"model":   config.Model,
		"prompt":  config.Prompt,
		"images":  []string{base64.StdEncoding.EncodeToString(img.Data)},
		"stream":  false,
		"format":  "json",
		"options": options,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", o.baseURL+"/api/generate", bytes.NewBuffer(requestBody))
	if err != nil {
		return "", fmt.Errorf("failed to create new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("received non-200 status code: %d - %s", resp.StatusCode, string(body))
	}

	var response struct {
		Response string `json:"response"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return "", fmt.Errorf("failed to decode response body: %w", err)
	}

	return response.Response, nil
}
