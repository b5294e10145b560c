package extraction

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/slabworks/certlister/internal/images"
	"github.com/slabworks/certlister/internal/providers"
)

type stubProvider struct {
	reply string
	err   error
	got   providers.Config
}

func (s *stubProvider) ExtractText(ctx context.Context, config providers.Config) (string, error) {
	s.got = config
	if _, ok := ctx.Deadline(); !ok {
		return "", errors.New("expected a deadline on the vision call")
	}
	return s.reply, s.err
}

func TestParseReply(t *testing.T) {
	tests := []struct {
		name     string
		reply    string
		expected []string
	}{
		{
			name:     "json object",
			reply:    `{"cert_numbers": ["12345678", "102304290"]}`,
			expected: []string{"12345678", "102304290"},
		},
		{
			name:     "json in code fence",
			reply:    "```json\n{\"cert_numbers\": [\"87654321\"]}\n```",
			expected: []string{"87654321"},
		},
		{
			name:     "numeric json entries",
			reply:    `{"cert_numbers": [12345678]}`,
			expected: []string{"12345678"},
		},
		{
			name:     "free text fallback",
			reply:    "Here are the numbers: 12345678 and 1234567",
			expected: []string{"12345678"},
		},
		{
			name:     "fallback ignores longer digit runs",
			reply:    "cert 1234567890 and PSA 987654321.",
			expected: []string{"987654321"},
		},
		{
			name:     "json without the key",
			reply:    `{"numbers": ["12345678"]}`,
			expected: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseReply(tt.reply)
			if got == nil {
				got = []string{}
			}
			if diff := cmp.Diff(tt.expected, got); diff != "" {
				t.Errorf("ParseReply mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	got := Validate([]string{"12345678", "1234567", "1234567890", "12a45678", "102304290", ""})
	expected := []string{"12345678", "102304290"}
	if diff := cmp.Diff(expected, got); diff != "" {
		t.Errorf("Validate mismatch (-want +got):\n%s", diff)
	}
}

func TestExtractCertNumbers(t *testing.T) {
	stub := &stubProvider{reply: "Here are the numbers: 12345678 and 1234567"}
	svc := NewService(stub, "stub", "vision-1", time.Second)
	img := images.Image{URL: "https://example.com/slab.jpg"}

	got, err := svc.ExtractCertNumbers(context.Background(), img, "")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if diff := cmp.Diff([]string{"12345678"}, got); diff != "" {
		t.Errorf("Extract mismatch (-want +got):\n%s", diff)
	}
	if stub.got.Prompt != DefaultPrompt {
		t.Error("Expected default prompt when none given")
	}
	if stub.got.Model != "vision-1" || stub.got.MaxTokens != DefaultMaxTokens {
		t.Errorf("Unexpected request config: %+v", stub.got)
	}
	if stub.got.Image.URL != img.URL {
		t.Errorf("Expected image to be forwarded, got %+v", stub.got.Image)
	}

	if _, err := svc.ExtractCertNumbers(context.Background(), img, "find the numbers"); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if stub.got.Prompt != "find the numbers" {
		t.Errorf("Expected caller prompt, got %q", stub.got.Prompt)
	}
}

func TestExtractCertNumbersErrors(t *testing.T) {
	img := images.Image{URL: "https://example.com/slab.jpg"}

	empty := NewService(&stubProvider{reply: "I could not find any numbers."}, "stub", "m", time.Second)
	if _, err := empty.ExtractCertNumbers(context.Background(), img, ""); !errors.Is(err, ErrNoValidCertificates) {
		t.Errorf("Expected ErrNoValidCertificates, got %v", err)
	}

	upstream := errors.New("rate limited")
	failing := NewService(&stubProvider{err: upstream}, "stub", "m", time.Second)
	_, err := failing.ExtractCertNumbers(context.Background(), img, "")
	var perr *ProviderError
	if !errors.As(err, &perr) || !errors.Is(err, upstream) {
		t.Errorf("Expected ProviderError wrapping upstream error, got %v", err)
	}
}

func TestNewProvider(t *testing.T) {
	for _, name := range []string{"", "openai", "Gemini", "ollama"} {
		p, model, err := NewProvider(ProviderSettings{Name: name}, images.NewFetcher())
		if err != nil {
			t.Fatalf("%q: unexpected error: %v", name, err)
		}
		if p == nil || model == "" {
			t.Errorf("%q: expected provider and default model", name)
		}
	}

	if _, _, err := NewProvider(ProviderSettings{Name: "claude-vision"}, nil); err == nil {
		t.Error("Expected error for unknown provider")
	}
}
