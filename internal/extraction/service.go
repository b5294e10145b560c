// Package extraction reads PSA certification numbers off slab photos with a
// vision-capable LLM.
package extraction

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/slabworks/certlister/internal/images"
	"github.com/slabworks/certlister/internal/models"
	"github.com/slabworks/certlister/internal/providers"
)

const (
	DefaultTimeout   = 30 * time.Second
	DefaultMaxTokens = 768
)

// DefaultPrompt is sent when the caller does not supply one.
const DefaultPrompt = `You are a helpful assistant specialized in identifying PSA certification numbers from images.
Your task is to analyze the image and extract all PSA certification numbers.

Rules:
- PSA cert numbers can be 8 or 9 digits long
- They are typically printed on PSA card slabs
- They may appear as plain numbers or with a 'PSA' prefix
- Ignore any other numbers that aren't PSA cert numbers

Return ONLY the numbers themselves in a JSON object like this:
{
  "cert_numbers": ["12345678", "102304290"]
}`

// ErrNoValidCertificates means the model reply held no 8 or 9 digit number.
var ErrNoValidCertificates = errors.New("no valid PSA certification numbers (8-9 digits) found in image")

// ProviderError wraps a failed call to the vision model.
type ProviderError struct {
	Provider string
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s vision request failed: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

var certPattern = regexp.MustCompile(`\b\d{8,9}\b`)

type Service struct {
	provider     providers.Provider
	providerName string
	model        string
	timeout      time.Duration
}

// NewService creates an extraction service around a vision provider.
func NewService(provider providers.Provider, providerName, model string, timeout time.Duration) *Service {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Service{
		provider:     provider,
		providerName: providerName,
		model:        model,
		timeout:      timeout,
	}
}

// ExtractCertNumbers asks the model for the certification numbers visible in
// img and returns the valid ones in the order the model listed them.
func (s *Service) ExtractCertNumbers(ctx context.Context, img images.Image, prompt string) ([]string, error) {
	if strings.TrimSpace(prompt) == "" {
		prompt = DefaultPrompt
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	slog.Info("Sending image to vision model", "provider", s.providerName, "model", s.model, "remote", img.IsRemote(), "bytes", len(img.Data))
	reply, err := s.provider.ExtractText(ctx, providers.Config{
		Model:       s.model,
		Temperature: 0,
		MaxTokens:   DefaultMaxTokens,
		Prompt:      prompt,
		Image:       img,
	})
	if err != nil {
		return nil, &ProviderError{Provider: s.providerName, Err: err}
	}

	candidates := ParseReply(reply)
	valid := Validate(candidates)
	slog.Info("Extracted cert numbers", "candidates", len(candidates), "valid", len(valid))

	if len(valid) == 0 {
		return nil, ErrNoValidCertificates
	}
	return valid, nil
}

// ParseReply pulls candidate numbers out of a model reply: the cert_numbers
// array when the reply is a JSON object, otherwise every standalone run of
// 8 or 9 digits in the text.
func ParseReply(reply string) []string {
	var result struct {
		CertNumbers []models.FlexString `json:"cert_numbers"`
	}

	cleaned := stripCodeFence(reply)
	if err := json.Unmarshal([]byte(cleaned), &result); err != nil {
		slog.Debug("Failed to parse JSON reply, scanning text for numbers", "error", err)
		return certPattern.FindAllString(reply, -1)
	}

	out := make([]string, 0, len(result.CertNumbers))
	for _, n := range result.CertNumbers {
		out = append(out, strings.TrimSpace(n.String()))
	}
	return out
}

// Validate keeps tokens that are all digits and 8 or 9 characters long.
func Validate(candidates []string) []string {
	valid := make([]string, 0, len(candidates))
	for _, c := range candidates {
		if isCertNumber(c) {
			valid = append(valid, c)
		}
	}
	return valid
}

func isCertNumber(s string) bool {
	if len(s) != 8 && len(s) != 9 {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func stripCodeFence(response string) string {
	response = strings.TrimSpace(response)
	response = strings.TrimPrefix(response, "```json")
	response = strings.TrimPrefix(response, "```")
	response = strings.TrimSuffix(response, "```")
	return strings.TrimSpace(response)
}
