package psa

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/slabworks/certlister/internal/models"
)

func newTestServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-token" {
			t.Errorf("Expected bearer token header, got %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestLookupNestedShape(t *testing.T) {
	srv := newTestServer(t, http.StatusOK, `{
		"PSACert": {
			"CertNumber": "12345678",
			"Year": 2021,
			"Brand": "POKEMON JAPANESE SWORD & SHIELD",
			"Subject": "Pikachu Master Ball",
			"Grade": "10",
			"Sport": "TCG Cards",
			"CardNumber": "025",
			"Variety": "Master Ball",
			"InsertType": "",
			"ParallelType": "Reverse Holo",
			"Language": "Japanese"
		}
	}`)

	client := NewClient(srv.URL, "test-token", time.Second)
	got, err := client.Lookup(context.Background(), "12345678")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	expected := &models.CardRecord{
		CertNumber:   "12345678",
		Year:         "2021",
		Brand:        "POKEMON JAPANESE SWORD & SHIELD",
		CardName:     "Pikachu",
		Grade:        "10",
		Player:       "Pikachu Master Ball",
		Sport:        "TCG Cards",
		CardNumber:   "025",
		Variety:      "Master Ball",
		ParallelType: "Reverse Holo",
		Language:     "Japanese",
		Variants:     []string{"Reverse Holo", "Master Ball"},
	}
	if diff := cmp.Diff(expected, got); diff != "" {
		t.Errorf("Lookup mismatch (-want +got):\n%s", diff)
	}
}

func TestLookupTopLevelShape(t *testing.T) {
	srv := newTestServer(t, http.StatusOK, `{
		"Year": "1999",
		"Brand": "POKEMON GAME",
		"Subject": "Charizard-Holo",
		"Grade": "9",
		"Set": "Base Set"
	}`)

	client := NewClient(srv.URL, "test-token", time.Second)
	got, err := client.Lookup(context.Background(), "87654321")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if got.CertNumber != "87654321" {
		t.Errorf("Expected cert number from request, got %q", got.CertNumber)
	}
	if got.CardName != "Charizard-Holo" || got.Set != "Base Set" || got.Year != "1999" {
		t.Errorf("Top-level fields not mapped: %+v", got)
	}
	if got.Language != models.DefaultLanguage {
		t.Errorf("Expected default language, got %q", got.Language)
	}
	if len(got.Variants) != 0 {
		t.Errorf("Expected no variants, got %v", got.Variants)
	}
}

func TestLookupNotFound(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{name: "404", status: http.StatusNotFound, body: ``},
		{name: "no data message", status: http.StatusOK, body: `{"IsValidRequest": true, "ServerMessage": "No data found"}`},
		{name: "empty PSACert", status: http.StatusOK, body: `{"PSACert": {}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t, tt.status, tt.body)
			client := NewClient(srv.URL, "test-token", time.Second)

			got, err := client.Lookup(context.Background(), "11111111")
			if !errors.Is(err, ErrNotFound) {
				t.Fatalf("Expected ErrNotFound, got %v", err)
			}
			if got != nil {
				t.Errorf("Expected nil record, got %+v", got)
			}
		})
	}
}

func TestLookupUpstreamErrors(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantStatus int
	}{
		{name: "server error", status: http.StatusInternalServerError, body: "boom", wantStatus: http.StatusInternalServerError},
		{name: "unauthorized", status: http.StatusUnauthorized, body: "bad token", wantStatus: http.StatusUnauthorized},
		{name: "invalid json", status: http.StatusOK, body: "<html>", wantStatus: 0},
		{name: "unknown shape", status: http.StatusOK, body: `{"Foo": "bar"}`, wantStatus: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t, tt.status, tt.body)
			client := NewClient(srv.URL, "test-token", time.Second)

			got, err := client.Lookup(context.Background(), "22222222")
			var upstream *UpstreamError
			if !errors.As(err, &upstream) {
				t.Fatalf("Expected *UpstreamError, got %v", err)
			}
			if upstream.StatusCode != tt.wantStatus {
				t.Errorf("Expected status %d, got %d", tt.wantStatus, upstream.StatusCode)
			}
			if got != nil {
				t.Errorf("Expected nil record on error, got %+v", got)
			}
		})
	}
}

func TestLookupTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	client := NewClient(url, "test-token", time.Second)
	_, err := client.Lookup(context.Background(), "33333333")
	var upstream *UpstreamError
	if !errors.As(err, &upstream) {
		t.Fatalf("Expected *UpstreamError, got %v", err)
	}
	if upstream.Err == nil {
		t.Error("Expected wrapped transport error")
	}
}

func TestStripVariants(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		variants []string
		expected string
	}{
		{name: "removes exact match", input: "Pikachu MASTER BALL", variants: []string{"MASTER BALL"}, expected: "Pikachu"},
		{name: "case sensitive", input: "Pikachu Master Ball", variants: []string{"MASTER BALL"}, expected: "Pikachu Master Ball"},
		{name: "collapses inner whitespace", input: "Mew Holo Promo", variants: []string{"Holo"}, expected: "Mew Promo"},
		{name: "no variants", input: "  Mewtwo ", variants: nil, expected: "Mewtwo"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := stripVariants(tt.input, tt.variants); got != tt.expected {
				t.Errorf("Expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestCollectVariantsAddsBrandMarkers(t *testing.T) {
	tests := []struct {
		name     string
		record   models.CardRecord
		expected []string
	}{
		{
			name:     "marker from brand",
			record:   models.CardRecord{Brand: "POKEMON SV 151 MASTER BALL"},
			expected: []string{"MASTER BALL"},
		},
		{
			name:     "marker already in variety",
			record:   models.CardRecord{Brand: "POKEMON SV 151 MASTER BALL", Variety: "Master Ball"},
			expected: []string{"Master Ball"},
		},
		{
			name:     "fields before markers",
			record:   models.CardRecord{Brand: "POKEMON REVERSE HOLO", InsertType: "Promo", Variety: "Holo"},
			expected: []string{"Promo", "Holo", "REVERSE HOLO"},
		},
		{
			name:     "no markers",
			record:   models.CardRecord{Brand: "TOPPS"},
			expected: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.expected, collectVariants(&tt.record)); diff != "" {
				t.Errorf("Variants mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestLookupStripsBrandMarkerFromName(t *testing.T) {
	srv := newTestServer(t, http.StatusOK, `{"PSACert":{"CertNumber":"12345678","Brand":"POKEMON SV 151 MASTER BALL","Subject":"PIKACHU MASTER BALL","CardGrade":"10"}}`)

	got, err := NewClient(srv.URL, "test-token", time.Second).Lookup(context.Background(), "12345678")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if got.CardName != "PIKACHU" {
		t.Errorf("Expected card name PIKACHU, got %q", got.CardName)
	}
	if diff := cmp.Diff([]string{"MASTER BALL"}, got.Variants); diff != "" {
		t.Errorf("Variants mismatch (-want +got):\n%s", diff)
	}
}
