// Package handlers serves the certlister HTTP API.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/slabworks/certlister/internal/certs"
	"github.com/slabworks/certlister/internal/images"
	"github.com/slabworks/certlister/internal/models"
)

// BatchRunner looks up certificates and builds their listings.
type BatchRunner interface {
	LookupOne(ctx context.Context, certNumber string) (*models.CardRecord, *models.Listing, error)
	Run(ctx context.Context, input string, delay time.Duration) (*models.BatchResult, error)
}

// CertExtractor reads certification numbers off an image.
type CertExtractor interface {
	ExtractCertNumbers(ctx context.Context, img images.Image, prompt string) ([]string, error)
}

type Handler struct {
	runner    BatchRunner
	extractor CertExtractor
	delay     time.Duration
	now       func() time.Time
}

// New creates a Handler. delay is the pause between lookups for image
// requests, which do not carry their own.
func New(runner BatchRunner, extractor CertExtractor, delay time.Duration) *Handler {
	return &Handler{
		runner:    runner,
		extractor: extractor,
		delay:     delay,
		now:       time.Now,
	}
}

// Routes registers every endpoint on a new mux.
func (h *Handler) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/psa/lookup", h.HandleLookup)
	mux.HandleFunc("/api/psa/lookup/batch", h.HandleBatch)
	mux.HandleFunc("/api/psa/lookup/image", h.HandleImage)
	mux.HandleFunc("/api/psa/submit", h.HandleSubmit)
	mux.HandleFunc("/healthcheck", func(w http.ResponseWriter, r *http.Request) {
		if _, err := w.Write([]byte("OK")); err != nil {
			slog.Error("Unable to write healthcheck", "err", err)
		}
	})
	return mux
}

type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// Response helpers
func (h *Handler) writeJSON(w http.ResponseWriter, code int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("Unable to encode JSON response", "err", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, message string, code int) {
	if code >= http.StatusInternalServerError {
		slog.Error(message)
	} else {
		slog.Warn(message)
	}
	h.writeJSON(w, code, errorResponse{Success: false, Error: message})
}

func (h *Handler) requirePOST(w http.ResponseWriter, r *http.Request) bool {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return false
	}
	return true
}

func (h *Handler) decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		h.writeError(w, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
		return false
	}
	return true
}

// runBatch runs a batch detached from the request so a disconnecting client
// does not leave the result half built.
func (h *Handler) runBatch(w http.ResponseWriter, r *http.Request, input string, delay time.Duration) {
	result, err := h.runner.Run(context.WithoutCancel(r.Context()), input, delay)
	switch {
	case errors.Is(err, certs.ErrInvalidInput):
		h.writeError(w, err.Error(), http.StatusBadRequest)
	case err != nil:
		h.writeError(w, "Batch lookup failed: "+err.Error(), http.StatusInternalServerError)
	default:
		h.writeJSON(w, http.StatusOK, result)
	}
}
