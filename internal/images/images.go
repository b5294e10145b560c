// Package images resolves the image references callers send for certificate extraction.
package images

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// MaxImageBytes caps uploaded and downloaded images.
const MaxImageBytes = 10 * 1024 * 1024

var ErrInvalidImage = errors.New("invalid image")

// Image is either a remote URL or inline bytes.
type Image struct {
	URL      string
	Data     []byte
	MIMEType string
}

// IsRemote reports whether the image still has to be downloaded.
func (img Image) IsRemote() bool {
	return img.URL != "" && len(img.Data) == 0
}

// DataURI encodes inline bytes as a data: URI.
func (img Image) DataURI() string {
	mime := img.MIMEType
	if mime == "" {
		mime = "image/jpeg"
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(img.Data)
}

// Parse interprets raw request input: an http(s) URL, a data: URI, or bare base64.
func Parse(raw string) (Image, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Image{}, fmt.Errorf("%w: image is required", ErrInvalidImage)
	}

	lower := strings.ToLower(raw)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		return Image{URL: raw}, nil
	}

	if strings.HasPrefix(lower, "data:") {
		header, payload, ok := strings.Cut(raw, ",")
		if !ok || !strings.HasSuffix(strings.ToLower(header), ";base64") {
			return Image{}, fmt.Errorf("%w: only base64 data URIs are supported", ErrInvalidImage)
		}
		data, err := decodeBase64(payload)
		if err != nil {
			return Image{}, err
		}
		return FromBytes(data, header[len("data:"):])
	}

	data, err := decodeBase64(raw)
	if err != nil {
		return Image{}, err
	}
	return FromBytes(data, "")
}

// FromBytes wraps uploaded bytes, sniffing the MIME type when none is given.
func FromBytes(data []byte, mime string) (Image, error) {
	if len(data) == 0 {
		return Image{}, fmt.Errorf("%w: image is empty", ErrInvalidImage)
	}
	if len(data) > MaxImageBytes {
		return Image{}, fmt.Errorf("%w: image too large (max 10MB)", ErrInvalidImage)
	}
	mime, _, _ = strings.Cut(mime, ";")
	mime = strings.ToLower(strings.TrimSpace(mime))
	if mime == "" || mime == "application/octet-stream" {
		mime = http.DetectContentType(data)
	}
	if !strings.HasPrefix(mime, "image/") {
		return Image{}, fmt.Errorf("%w: unsupported content type %s", ErrInvalidImage, mime)
	}
	return Image{Data: data, MIMEType: mime}, nil
}

func decodeBase64(s string) ([]byte, error) {
	s = strings.Join(strings.Fields(s), "")
	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		data, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(s, "="))
	}
	if err != nil {
		return nil, fmt.Errorf("%w: not valid base64: %v", ErrInvalidImage, err)
	}
	return data, nil
}

// Fetcher downloads remote images for providers that only accept raw bytes
type Fetcher struct {
	HTTPClient *http.Client
}

// NewFetcher creates a new image fetcher
func NewFetcher() *Fetcher {
	return &Fetcher{
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Bytes returns img with its data loaded, downloading it when it is remote.
func (f *Fetcher) Bytes(ctx context.Context, img Image) (Image, error) {
	if !img.IsRemote() {
		return img, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, img.URL, nil)
	if err != nil {
		return Image{}, fmt.Errorf("failed to create image request: %w", err)
	}

	resp, err := f.HTTPClient.Do(req)
	if err != nil {
		return Image{}, fmt.Errorf("failed to download image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Image{}, fmt.Errorf("failed to download image: HTTP %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxImageBytes+1))
	if err != nil {
		return Image{}, fmt.Errorf("failed to read image data: %w", err)
	}

	slog.Debug("Downloaded image", "url", img.URL, "bytes", len(data))
	loaded, err := FromBytes(data, resp.Header.Get("Content-Type"))
	if err != nil {
		return Image{}, err
	}
	loaded.URL = img.URL
	return loaded, nil
}
