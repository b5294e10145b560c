// Package export writes batch lookup results to files for bulk listing tools.
package export

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/parquet-go/parquet-go"
	"github.com/slabworks/certlister/internal/models"
	"gopkg.in/yaml.v3"
)

// Report is the YAML document written for a batch run.
type Report struct {
	Input       string                 `yaml:"input"`
	GeneratedAt string                 `yaml:"generated_at"`
	Summary     Summary                `yaml:"summary"`
	Listings    []models.LookupSuccess `yaml:"listings"`
	Errors      []models.LookupFailure `yaml:"errors"`
}

// Summary holds the batch counts.
type Summary struct {
	TotalProcessed int `yaml:"total_processed"`
	Successful     int `yaml:"successful"`
	Failed         int `yaml:"failed"`
}

// ListingRow is one flattened parquet row per listed certificate.
type ListingRow struct {
	CertNumber  string   `parquet:"cert_number"`
	Title       string   `parquet:"title"`
	Description string   `parquet:"description"`
	Grade       string   `parquet:"grade"`
	CardName    string   `parquet:"card_name"`
	CardNumber  string   `parquet:"card_number"`
	Year        string   `parquet:"year"`
	Brand       string   `parquet:"brand"`
	Set         string   `parquet:"set"`
	Sport       string   `parquet:"sport"`
	Language    string   `parquet:"language"`
	Variants    []string `parquet:"variants,list"`
	VerifyURL   string   `parquet:"verify_url"`
}

// WriteYAML writes the batch result as a YAML report.
func WriteYAML(w io.Writer, input string, result *models.BatchResult, now time.Time) error {
	report := Report{
		Input:       input,
		GeneratedAt: now.UTC().Format(time.RFC3339),
		Summary: Summary{
			TotalProcessed: result.TotalProcessed,
			Successful:     result.Successful,
			Failed:         result.Failed,
		},
		Listings: result.Results,
		Errors:   result.Errors,
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(&report); err != nil {
		return fmt.Errorf("failed to marshal YAML: %w", err)
	}
	return enc.Close()
}

// Rows flattens successful lookups into parquet rows, in batch order.
func Rows(result *models.BatchResult) []ListingRow {
	rows := make([]ListingRow, 0, len(result.Results))
	for _, r := range result.Results {
		row := ListingRow{
			CertNumber: r.CertNumber,
			VerifyURL:  "https://www.psacard.com/cert/" + r.CertNumber,
		}
		if r.Listing != nil {
			row.Title = r.Listing.Title
			row.Description = r.Listing.Description
		}
		if rec := r.CardData; rec != nil {
			row.Grade = strings.TrimSpace(strings.Join([]string{rec.Grade, rec.Qualifier, rec.GradeSuffix}, " "))
			row.CardName = rec.CardName
			row.CardNumber = rec.CardNumber
			row.Year = rec.Year
			row.Brand = rec.Brand
			row.Set = rec.Set
			row.Sport = rec.Sport
			row.Language = rec.Language
			row.Variants = append([]string(nil), rec.Variants...)
		}
		rows = append(rows, row)
	}
	return rows
}

// WriteParquet writes one row per successful lookup to path.
func WriteParquet(path string, result *models.BatchResult) error {
	rows := Rows(result)
	if err := parquet.WriteFile(path, rows); err != nil {
		return fmt.Errorf("failed to write parquet file: %w", err)
	}
	return nil
}

// ReadParquet loads listing rows back from a parquet export.
func ReadParquet(path string) ([]ListingRow, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat parquet file: %w", err)
	}

	pf, err := parquet.OpenFile(file, info.Size())
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet: %w", err)
	}

	reader := parquet.NewGenericReader[ListingRow](pf)
	defer reader.Close()

	rows := make([]ListingRow, pf.NumRows())
	n, err := reader.Read(rows)
	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("failed to read parquet rows: %w", err)
	}
	return rows[:n], nil
}
