package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/slabworks/certlister/internal/extraction"
	"github.com/slabworks/certlister/internal/images"
)

// HandleImage extracts certification numbers from a slab photo and runs them
// through the batch pipeline. The image arrives as JSON {image, prompt} or as
// a multipart "file" upload.
func (h *Handler) HandleImage(w http.ResponseWriter, r *http.Request) {
	if !h.requirePOST(w, r) {
		return
	}

	var (
		img    images.Image
		prompt string
		ok     bool
	)
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		img, prompt, ok = h.readImageUpload(w, r)
	} else {
		img, prompt, ok = h.readImageJSON(w, r)
	}
	if !ok {
		return
	}

	certNumbers, err := h.extractor.ExtractCertNumbers(r.Context(), img, prompt)
	switch {
	case errors.Is(err, extraction.ErrNoValidCertificates):
		h.writeError(w, err.Error(), http.StatusBadRequest)
		return
	case err != nil:
		h.writeError(w, "Error processing image: "+err.Error(), http.StatusInternalServerError)
		return
	}

	slog.Info("Extracted cert numbers from image", "count", len(certNumbers))
	h.runBatch(w, r, strings.Join(certNumbers, ","), h.delay)
}

func (h *Handler) readImageJSON(w http.ResponseWriter, r *http.Request) (images.Image, string, bool) {
	var request struct {
		Image  string `json:"image"`
		Prompt string `json:"prompt"`
	}

	// base64 inflates the payload by a third
	body := http.MaxBytesReader(w, r.Body, images.MaxImageBytes*2)
	if err := json.NewDecoder(body).Decode(&request); err != nil {
		h.writeError(w, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
		return images.Image{}, "", false
	}

	img, err := images.Parse(request.Image)
	if err != nil {
		h.writeError(w, err.Error(), http.StatusBadRequest)
		return images.Image{}, "", false
	}
	return img, request.Prompt, true
}

func (h *Handler) readImageUpload(w http.ResponseWriter, r *http.Request) (images.Image, string, bool) {
	file, header, err := r.FormFile("file")
	if err != nil {
		h.writeError(w, "Failed to read file: "+err.Error(), http.StatusBadRequest)
		return images.Image{}, "", false
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, images.MaxImageBytes+1))
	if err != nil {
		h.writeError(w, "Failed to read file contents: "+err.Error(), http.StatusInternalServerError)
		return images.Image{}, "", false
	}

	img, err := images.FromBytes(data, header.Header.Get("Content-Type"))
	if err != nil {
		h.writeError(w, err.Error(), http.StatusBadRequest)
		return images.Image{}, "", false
	}

	slog.Debug("Received image upload", "filename", header.Filename, "bytes", len(data), "mime", img.MIMEType)
	return img, r.FormValue("prompt"), true
}
