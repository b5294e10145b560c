// Package batch drives certificate lookups and listing generation across a
// list of certificate numbers, one at a time.
package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/slabworks/certlister/internal/certs"
	"github.com/slabworks/certlister/internal/listing"
	"github.com/slabworks/certlister/internal/models"
	"github.com/slabworks/certlister/internal/psa"
)

// DefaultDelay is the pause between PSA calls when the caller does not choose one.
const DefaultDelay = time.Second

// NoDataMessage is recorded for certificates PSA has no record of.
const NoDataMessage = "No data found"

// Fetcher looks up one certificate. psa.Client and psa.WebClient implement it.
type Fetcher interface {
	Lookup(ctx context.Context, certNumber string) (*models.CardRecord, error)
}

type Processor struct {
	fetcher Fetcher
	newGate GateFunc
}

// NewProcessor creates a processor; a nil gate func uses NewDelayGate.
func NewProcessor(fetcher Fetcher, newGate GateFunc) *Processor {
	if newGate == nil {
		newGate = NewDelayGate
	}
	return &Processor{
		fetcher: fetcher,
		newGate: newGate,
	}
}

// LookupOne fetches and formats a single certificate.
func (p *Processor) LookupOne(ctx context.Context, certNumber string) (*models.CardRecord, *models.Listing, error) {
	record, err := p.fetcher.Lookup(ctx, certNumber)
	if err != nil {
		return nil, nil, err
	}
	if record.IsZero() {
		return nil, nil, psa.ErrNotFound
	}
	return record, listing.Build(record), nil
}

// Run parses input, then looks up each certificate in order. Input errors
// wrap certs.ErrInvalidInput. Once parsing succeeds every per-certificate
// failure is captured in the result; a non-nil error after that point only
// means ctx was cancelled, and the partial result is returned with it.
func (p *Processor) Run(ctx context.Context, input string, delay time.Duration) (*models.BatchResult, error) {
	if delay < 0 {
		return nil, fmt.Errorf("%w: delay must not be negative", certs.ErrInvalidInput)
	}

	certNumbers, err := certs.Parse(input)
	if err != nil {
		return nil, err
	}
	if err := certs.CheckCount(certNumbers); err != nil {
		return nil, err
	}

	slog.Info("Starting batch lookup", "certs", len(certNumbers), "delay", delay)

	result := &models.BatchResult{
		Success:        true,
		TotalProcessed: len(certNumbers),
		Results:        make([]models.LookupSuccess, 0, len(certNumbers)),
		Errors:         make([]models.LookupFailure, 0),
	}

	gate := p.newGate(delay)
	for i, certNumber := range certNumbers {
		if i > 0 {
			if err := gate.Wait(ctx); err != nil {
				result.TotalProcessed = i
				tally(result)
				return result, fmt.Errorf("batch interrupted after %d of %d certs: %w", i, len(certNumbers), err)
			}
		}

		slog.Info("Processing cert", "cert_number", certNumber, "progress", fmt.Sprintf("%d/%d", i+1, len(certNumbers)))
		p.processOne(ctx, certNumber, result)
	}

	tally(result)
	slog.Info("Batch processing complete", "successful", result.Successful, "failed", result.Failed)
	return result, nil
}

func (p *Processor) processOne(ctx context.Context, certNumber string, result *models.BatchResult) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Panic while processing cert", "cert_number", certNumber, "panic", r)
			result.Errors = append(result.Errors, models.LookupFailure{
				CertNumber: certNumber,
				Error:      fmt.Sprintf("internal error: %v", r),
			})
		}
	}()

	record, lst, err := p.LookupOne(ctx, certNumber)
	switch {
	case errors.Is(err, psa.ErrNotFound):
		slog.Warn("No data found for cert", "cert_number", certNumber)
		result.Errors = append(result.Errors, models.LookupFailure{CertNumber: certNumber, Error: NoDataMessage})
	case err != nil:
		slog.Error("Failed to process cert", "cert_number", certNumber, "err", err)
		result.Errors = append(result.Errors, models.LookupFailure{CertNumber: certNumber, Error: err.Error()})
	default:
		result.Results = append(result.Results, models.LookupSuccess{
			CertNumber: certNumber,
			Success:    true,
			CardData:   record,
			Listing:    lst,
		})
	}
}

func tally(result *models.BatchResult) {
	result.Successful = len(result.Results)
	result.Failed = len(result.Errors)
}
