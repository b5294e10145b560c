// Package certs turns free-form certificate input into an ordered list of PSA
// certificate numbers.
package certs

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

const (
	// MaxRangeSpan is the largest allowed end-start difference for a range token.
	MaxRangeSpan = 100
	// MaxIdentifiers caps how many certificates a single batch may look up.
	MaxIdentifiers = 100
)

var (
	// ErrInvalidInput is wrapped by every input-shape error so callers can map it to a client error.
	ErrInvalidInput = errors.New("invalid certificate input")

	ErrInvalidRange       = fmt.Errorf("%w: invalid range", ErrInvalidInput)
	ErrInvalidIdentifier  = fmt.Errorf("%w: invalid certificate number", ErrInvalidInput)
	ErrTooManyIdentifiers = fmt.Errorf("%w: too many certificates", ErrInvalidInput)
)

// Parse splits comma-separated input into certificate numbers. Each token is
// either a single number, kept exactly as written, or an inclusive
// "start-end" range. Duplicates are dropped, keeping first-seen order.
func Parse(input string) ([]string, error) {
	var certNumbers []string

	for _, part := range strings.Split(input, ",") {
		part = strings.TrimSpace(part)

		if strings.Contains(part, "-") {
			expanded, err := expandRange(part)
			if err != nil {
				return nil, err
			}
			certNumbers = append(certNumbers, expanded...)
			continue
		}

		if _, err := strconv.ParseInt(part, 10, 64); err != nil {
			return nil, fmt.Errorf("%w: %q", ErrInvalidIdentifier, part)
		}
		certNumbers = append(certNumbers, part)
	}

	return dedupe(certNumbers), nil
}

// CheckCount fails when more than MaxIdentifiers certificates were requested.
func CheckCount(certNumbers []string) error {
	if len(certNumbers) > MaxIdentifiers {
		return fmt.Errorf("%w: maximum of %d certificates allowed, got %d", ErrTooManyIdentifiers, MaxIdentifiers, len(certNumbers))
	}
	return nil
}

func expandRange(token string) ([]string, error) {
	bounds := strings.Split(token, "-")
	if len(bounds) != 2 {
		return nil, fmt.Errorf("%w: %q is not a start-end range", ErrInvalidRange, token)
	}

	start, err := strconv.ParseInt(strings.TrimSpace(bounds[0]), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: bad start in %q", ErrInvalidRange, token)
	}
	end, err := strconv.ParseInt(strings.TrimSpace(bounds[1]), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: bad end in %q", ErrInvalidRange, token)
	}

	if end < start {
		return nil, fmt.Errorf("%w: end number must be greater than start number", ErrInvalidRange)
	}
	if end-start > MaxRangeSpan {
		return nil, fmt.Errorf("%w: maximum range of %d certificates allowed", ErrInvalidRange, MaxRangeSpan)
	}

	out := make([]string, 0, end-start+1)
	for n := start; n <= end; n++ {
		out = append(out, strconv.FormatInt(n, 10))
	}
	return out, nil
}

func dedupe(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
