package psa

import (
	"errors"
	"fmt"
)

// ErrNotFound means PSA answered but holds no record for the certificate.
var ErrNotFound = errors.New("no data found")

// UpstreamError reports a failed exchange with PSA: a transport error, a
// non-success status, or a payload that could not be decoded.
type UpstreamError struct {
	CertNumber string
	StatusCode int
	Body       string
	Err        error
}

func (e *UpstreamError) Error() string {
	if e == nil {
		return "PSA upstream error"
	}
	if e.StatusCode != 0 {
		if e.Body == "" {
			return fmt.Sprintf("PSA API returned status %d for cert #%s", e.StatusCode, e.CertNumber)
		}
		return fmt.Sprintf("PSA API returned status %d for cert #%s: %s", e.StatusCode, e.CertNumber, e.Body)
	}
	return fmt.Sprintf("PSA lookup failed for cert #%s: %v", e.CertNumber, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }
