package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/slabworks/certlister/internal/images"
	"github.com/slabworks/certlister/internal/providers"
)

func TestExtractText(t *testing.T) {
	var captured struct {
		Model  string   `json:"model"`
		Prompt string   `json:"prompt"`
		Images []string `json:"images"`
		Stream bool     `json:"stream"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/slab.png":
			w.Header().Set("Content-Type", "image/png")
			_, _ = w.Write([]byte("\x89PNG\r\n\x1a\nrest"))
		case "/api/generate":
			if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
				t.Errorf("Failed to decode request: %v", err)
				return
			}
			_, _ = w.Write([]byte(`{"response":"{\"cert_numbers\":[\"87654321\"]}"}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	o := New(srv.URL, images.NewFetcher())
	got, err := o.ExtractText(context.Background(), providers.Config{
		Model:  "llama3.2-vision",
		Prompt: "find certs",
		Image:  images.Image{URL: srv.URL + "/slab.png"},
	})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if got != `{"cert_numbers":["87654321"]}` {
		t.Errorf("Unexpected response: %s", got)
	}
	if captured.Model != "llama3.2-vision" || captured.Prompt != "find certs" || captured.Stream {
		t.Errorf("Unexpected request: %+v", captured)
	}
	if len(captured.Images) != 1 || captured.Images[0] == "" {
		t.Errorf("Expected one base64 image, got %v", captured.Images)
	}
}

func TestExtractTextStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusInternalServerError)
	}))
	defer srv.Close()

	o := New(srv.URL, nil)
	_, err := o.ExtractText(context.Background(), providers.Config{
		Image: images.Image{Data: []byte("\x89PNG\r\n\x1a\n"), MIMEType: "image/png"},
	})
	if err == nil {
		t.Error("Expected error for non-200 status")
	}
}
