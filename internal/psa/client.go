package psa

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/slabworks/certlister/internal/models"
)

const (
	DefaultBaseURL = "https://api.psacard.com/publicapi"
	DefaultTimeout = 15 * time.Second
)

// Client looks up certificates through the PSA public API
type Client struct {
	BaseURL    string
	APIToken   string
	httpClient *http.Client
}

// NewClient creates a new PSA API client
func NewClient(baseURL, apiToken string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		BaseURL:  strings.TrimRight(baseURL, "/"),
		APIToken: apiToken,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// certPayload holds the record fields PSA uses, either nested under PSACert or at the top level.
type certPayload struct {
	CertNumber   models.FlexString `json:"CertNumber"`
	Year         models.FlexString `json:"Year"`
	Brand        models.FlexString `json:"Brand"`
	Subject      models.FlexString `json:"Subject"`
	Grade        models.FlexString `json:"Grade"`
	CardGrade    models.FlexString `json:"CardGrade"`
	Sport        models.FlexString `json:"Sport"`
	Category     models.FlexString `json:"Category"`
	Set          models.FlexString `json:"Set"`
	CardNumber   models.FlexString `json:"CardNumber"`
	Variety      models.FlexString `json:"Variety"`
	Qualifier    models.FlexString `json:"Qualifier"`
	GradeSuffix  models.FlexString `json:"GradeSuffix"`
	InsertType   models.FlexString `json:"InsertType"`
	ParallelType models.FlexString `json:"ParallelType"`
	Language     models.FlexString `json:"Language"`
}

func (p *certPayload) empty() bool {
	return p.Subject == "" && p.Brand == "" && p.Year == "" && p.Grade == "" &&
		p.CardGrade == "" && p.CertNumber == "" && p.Set == "" && p.CardNumber == ""
}

type certResponse struct {
	PSACert        *certPayload `json:"PSACert"`
	IsValidRequest *bool        `json:"IsValidRequest"`
	ServerMessage  string       `json:"ServerMessage"`
	certPayload
}

// Lookup fetches a single certificate. It returns ErrNotFound when PSA has no
// record for the number and an *UpstreamError for any transport or decode failure.
func (c *Client) Lookup(ctx context.Context, certNumber string) (*models.CardRecord, error) {
	lookupURL := fmt.Sprintf("%s/cert/GetByCertNumber/%s", c.BaseURL, url.PathEscape(certNumber))
	slog.Debug("Looking up PSA cert", "cert_number", certNumber, "url", lookupURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, lookupURL, nil)
	if err != nil {
		return nil, &UpstreamError{CertNumber: certNumber, Err: fmt.Errorf("failed to create request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	if c.APIToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &UpstreamError{CertNumber: certNumber, Err: fmt.Errorf("failed to call PSA API: %w", err)}
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound, http.StatusNoContent:
		return nil, ErrNotFound
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &UpstreamError{CertNumber: certNumber, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	var payload certResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, &UpstreamError{CertNumber: certNumber, Err: fmt.Errorf("failed to decode PSA response: %w", err)}
	}

	record, err := decodeRecord(certNumber, &payload)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			err = &UpstreamError{CertNumber: certNumber, Err: err}
		}
		return nil, err
	}

	slog.Info("PSA cert found", "cert_number", certNumber, "card_name", record.CardName, "grade", record.Grade)
	return record, nil
}

// decodeRecord picks the response shape: the nested PSACert object when present,
// else the same fields at the top level.
func decodeRecord(certNumber string, resp *certResponse) (*models.CardRecord, error) {
	switch {
	case resp.PSACert != nil && !resp.PSACert.empty():
		return newRecord(certNumber, resp.PSACert), nil
	case !resp.certPayload.empty():
		slog.Debug("PSA response has no PSACert object, reading top-level fields", "cert_number", certNumber)
		return newRecord(certNumber, &resp.certPayload), nil
	case resp.PSACert != nil, resp.IsValidRequest != nil && *resp.IsValidRequest, isNoDataMessage(resp.ServerMessage):
		return nil, ErrNotFound
	default:
		return nil, errors.New("unrecognized PSA response shape")
	}
}

func isNoDataMessage(msg string) bool {
	msg = strings.ToLower(msg)
	return strings.Contains(msg, "no data") || strings.Contains(msg, "not found")
}

func newRecord(certNumber string, p *certPayload) *models.CardRecord {
	grade := strings.TrimSpace(p.Grade.String())
	if grade == "" {
		grade = strings.TrimSpace(p.CardGrade.String())
	}
	sport := strings.TrimSpace(p.Sport.String())
	if sport == "" {
		sport = strings.TrimSpace(p.Category.String())
	}
	language := strings.TrimSpace(p.Language.String())
	if language == "" {
		language = models.DefaultLanguage
	}

	record := &models.CardRecord{
		CertNumber:   certNumber,
		Year:         strings.TrimSpace(p.Year.String()),
		Brand:        strings.TrimSpace(p.Brand.String()),
		Grade:        grade,
		Player:       strings.TrimSpace(p.Subject.String()),
		Sport:        sport,
		Set:          strings.TrimSpace(p.Set.String()),
		CardNumber:   strings.TrimSpace(p.CardNumber.String()),
		Variety:      strings.TrimSpace(p.Variety.String()),
		Qualifier:    strings.TrimSpace(p.Qualifier.String()),
		GradeSuffix:  strings.TrimSpace(p.GradeSuffix.String()),
		InsertType:   strings.TrimSpace(p.InsertType.String()),
		ParallelType: strings.TrimSpace(p.ParallelType.String()),
		Language:     language,
	}
	record.Variants = collectVariants(record)
	record.CardName = stripVariants(strings.TrimSpace(p.Subject.String()), record.Variants)
	return record
}

// collectVariants gathers insert type, parallel type and variety, in that order,
// then any brand marker the brand carries that is not already listed.
func collectVariants(r *models.CardRecord) []string {
	variants := []string{}
	seen := make(map[string]struct{})
	add := func(v string) {
		key := strings.ToUpper(v)
		if _, ok := seen[key]; ok || v == "" {
			return
		}
		seen[key] = struct{}{}
		variants = append(variants, v)
	}

	for _, v := range []string{r.InsertType, r.ParallelType, r.Variety} {
		add(v)
	}
	brand := strings.ToUpper(r.Brand)
	for _, m := range models.BrandMarkers {
		if strings.Contains(brand, m) {
			add(m)
		}
	}
	return variants
}

// stripVariants removes variant text from the card name so the title does not
// repeat it. Whitespace left behind is collapsed, inner runs included, so
// "Mew Holo Promo" becomes "Mew Promo" rather than "Mew  Promo".
func stripVariants(name string, variants []string) string {
	for _, v := range variants {
		if v != "" && strings.Contains(name, v) {
			name = strings.ReplaceAll(name, v, "")
		}
	}
	return strings.Join(strings.Fields(name), " ")
}
