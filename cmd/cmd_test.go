package cmd

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/slabworks/certlister/internal/certs"
	"github.com/slabworks/certlister/internal/export"
	"github.com/slabworks/certlister/internal/images"
	"github.com/slabworks/certlister/internal/models"
)

func newPSAServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/12345678"):
			_, _ = w.Write([]byte(`{"PSACert":{"CertNumber":"12345678","Year":"1999","Brand":"POKEMON GAME","Subject":"Charizard Holo","Grade":"10","CardNumber":"4","Variety":"Holo"}}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func runRoot(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Chdir(t.TempDir())

	srv := newPSAServer(t)
	t.Setenv("PSA_API_TOKEN", "test-token")
	t.Setenv("PSA_BASE_URL", srv.URL)
	t.Setenv("VISION_PROVIDER", "openai")

	var out bytes.Buffer
	root := NewRootCmd()
	root.SetOut(&out)
	root.SetErr(&bytes.Buffer{})
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestBatchCommandJSON(t *testing.T) {
	out, err := runRoot(t, "batch", "12345678,87654321", "--delay", "0", "--format", "json")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	var result models.BatchResult
	if err := json.Unmarshal([]byte(out), &result); err != nil {
		t.Fatalf("Failed to decode output %q: %v", out, err)
	}
	if result.TotalProcessed != 2 || result.Successful != 1 || result.Failed != 1 {
		t.Errorf("Unexpected counts: %+v", result)
	}
	if result.Errors[0].Error != "No data found" {
		t.Errorf("Expected not found message, got %q", result.Errors[0].Error)
	}
}

func TestBatchCommandFiles(t *testing.T) {
	dir := t.TempDir()
	yamlPath := filepath.Join(dir, "out.yaml")
	parquetPath := filepath.Join(dir, "out.parquet")

	if _, err := runRoot(t, "batch", "12345678", "--delay", "0", "--format", "yaml", "--out", yamlPath, "--parquet", parquetPath); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	data, err := os.ReadFile(yamlPath)
	if err != nil {
		t.Fatalf("Expected YAML file: %v", err)
	}
	if !strings.Contains(string(data), "successful: 1") {
		t.Errorf("Unexpected YAML report:\n%s", data)
	}

	rows, err := export.ReadParquet(parquetPath)
	if err != nil {
		t.Fatalf("Unexpected error reading parquet: %v", err)
	}
	if len(rows) != 1 || rows[0].CertNumber != "12345678" || rows[0].Title == "" {
		t.Errorf("Unexpected parquet rows: %+v", rows)
	}
}

func TestBatchCommandInvalidInput(t *testing.T) {
	_, err := runRoot(t, "batch", "5-3", "--delay", "0", "--format", "json")
	if !errors.Is(err, certs.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput, got %v", err)
	}

	if _, err := runRoot(t, "batch", "1", "--format", "xml"); err == nil {
		t.Error("Expected error for unsupported format")
	}
}

func TestLookupCommand(t *testing.T) {
	out, err := runRoot(t, "lookup", "12345678")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !strings.HasPrefix(out, "PSA 10 Charizard") {
		t.Errorf("Expected listing title first, got %q", out)
	}
	if !strings.Contains(out, "## Card Details") {
		t.Errorf("Expected description in output, got %q", out)
	}

	if _, err := runRoot(t, "lookup", "87654321"); err == nil || !strings.Contains(err.Error(), "no data found") {
		t.Errorf("Expected not found error, got %v", err)
	}
	if _, err := runRoot(t, "lookup", "1-5"); !errors.Is(err, certs.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput for a range, got %v", err)
	}
}

func TestResolveFormat(t *testing.T) {
	var buf bytes.Buffer
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "", want: "json"},
		{in: "TABLE", want: "table"},
		{in: "yaml", want: "yaml"},
		{in: "csv", wantErr: true},
	}

	for _, tt := range tests {
		got, err := resolveFormat(tt.in, &buf)
		if (err != nil) != tt.wantErr {
			t.Errorf("resolveFormat(%q): unexpected error %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("resolveFormat(%q): expected %q, got %q", tt.in, tt.want, got)
		}
	}
}

func TestRenderBatchTable(t *testing.T) {
	out := renderBatchTable(&models.BatchResult{
		TotalProcessed: 2,
		Successful:     1,
		Failed:         1,
		Results: []models.LookupSuccess{
			{CertNumber: "12345678", Success: true, Listing: &models.Listing{Title: "PSA 10 Charizard"}},
		},
		Errors: []models.LookupFailure{{CertNumber: "87654321", Error: "No data found"}},
	})

	for _, want := range []string{"12345678", "PSA 10 Charizard", "87654321", "No data found", "2 processed, 1 ok, 1 failed"} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected table to contain %q:\n%s", want, out)
		}
	}
}

func TestLoadImage(t *testing.T) {
	png := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01")
	path := filepath.Join(t.TempDir(), "slab.png")
	if err := os.WriteFile(path, png, 0o644); err != nil {
		t.Fatal(err)
	}

	img, err := loadImage(path)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if img.MIMEType != "image/png" || img.IsRemote() {
		t.Errorf("Unexpected image: %+v", img.MIMEType)
	}

	remote, err := loadImage("https://example.com/slab.jpg")
	if err != nil || !remote.IsRemote() {
		t.Errorf("Expected remote image, got %+v, %v", remote, err)
	}

	if _, err := loadImage(filepath.Join(t.TempDir(), "missing.png")); err == nil {
		t.Error("Expected error for missing file")
	}

	text := filepath.Join(t.TempDir(), "notes.txt")
	_ = os.WriteFile(text, []byte("just some notes"), 0o644)
	if _, err := loadImage(text); !errors.Is(err, images.ErrInvalidImage) {
		t.Errorf("Expected ErrInvalidImage, got %v", err)
	}
}

func TestSetupLogging(t *testing.T) {
	var buf bytes.Buffer
	if err := setupLogging(&buf, "debug", "json"); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if err := setupLogging(&buf, "loud", "text"); err == nil {
		t.Error("Expected error for unknown level")
	}
	if err := setupLogging(&buf, "info", "xml"); err == nil {
		t.Error("Expected error for unknown format")
	}
	_ = setupLogging(os.Stderr, "info", "text")
}
