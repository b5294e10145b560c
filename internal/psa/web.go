package psa

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/slabworks/certlister/internal/models"
)

const DefaultWebBaseURL = "https://www.psacard.com"

// WebClient reads the public certificate verification page. It is the
// fallback source when no API token is configured.
type WebClient struct {
	BaseURL    string
	UserAgent  string
	httpClient *http.Client
}

// NewWebClient creates a client for the public cert pages
func NewWebClient(baseURL string, timeout time.Duration) *WebClient {
	if baseURL == "" {
		baseURL = DefaultWebBaseURL
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &WebClient{
		BaseURL:   strings.TrimRight(baseURL, "/"),
		UserAgent: "Mozilla/5.0 (compatible; certlister/1.0)",
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Lookup scrapes the cert page for a single certificate.
func (c *WebClient) Lookup(ctx context.Context, certNumber string) (*models.CardRecord, error) {
	pageURL := fmt.Sprintf("%s/cert/%s", c.BaseURL, url.PathEscape(certNumber))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, &UpstreamError{CertNumber: certNumber, Err: fmt.Errorf("failed to create request: %w", err)}
	}
	req.Header.Set("User-Agent", c.UserAgent)
	req.Header.Set("Accept", "text/html")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &UpstreamError{CertNumber: certNumber, Err: fmt.Errorf("failed to fetch cert page: %w", err)}
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, ErrNotFound
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &UpstreamError{CertNumber: certNumber, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, &UpstreamError{CertNumber: certNumber, Err: fmt.Errorf("failed to parse cert page: %w", err)}
	}

	fields := scrapeFields(doc)
	if len(fields) == 0 {
		return nil, ErrNotFound
	}

	p := &certPayload{
		Year:         models.FlexString(pick(fields, "year")),
		Brand:        models.FlexString(pick(fields, "brand", "brand/title")),
		Subject:      models.FlexString(pick(fields, "subject", "player")),
		Grade:        models.FlexString(pick(fields, "grade", "item grade", "card grade")),
		Sport:        models.FlexString(pick(fields, "sport", "category")),
		Set:          models.FlexString(pick(fields, "set")),
		CardNumber:   models.FlexString(pick(fields, "card number", "card #")),
		Variety:      models.FlexString(pick(fields, "variety", "variety/pedigree")),
		Qualifier:    models.FlexString(pick(fields, "qualifier")),
		InsertType:   models.FlexString(pick(fields, "insert", "insert type")),
		ParallelType: models.FlexString(pick(fields, "parallel", "parallel type")),
		Language:     models.FlexString(pick(fields, "language")),
	}
	if p.empty() {
		return nil, ErrNotFound
	}

	slog.Info("PSA cert page scraped", "cert_number", certNumber, "fields", len(fields))
	return newRecord(certNumber, p), nil
}

// scrapeFields collects label/value pairs from the cert details, which PSA
// has rendered both as th/td table rows and as dt/dd lists.
func scrapeFields(doc *goquery.Document) map[string]string {
	fields := make(map[string]string)
	add := func(label, value string) {
		label = strings.ToLower(normSpace(strings.TrimSuffix(strings.TrimSpace(label), ":")))
		value = normSpace(value)
		if label == "" || value == "" {
			return
		}
		if _, ok := fields[label]; !ok {
			fields[label] = value
		}
	}

	doc.Find("table tr").Each(func(_ int, row *goquery.Selection) {
		add(row.Find("th").First().Text(), row.Find("td").First().Text())
	})
	doc.Find("dl").Each(func(_ int, dl *goquery.Selection) {
		dl.Find("dt").Each(func(_ int, dt *goquery.Selection) {
			add(dt.Text(), dt.NextFiltered("dd").Text())
		})
	})
	return fields
}

func pick(fields map[string]string, labels ...string) string {
	for _, l := range labels {
		if v, ok := fields[l]; ok {
			return v
		}
	}
	return ""
}

func normSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
