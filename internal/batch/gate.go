package batch

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/slabworks/certlister/internal/certs"
	"golang.org/x/time/rate"
)

// MaxDelay bounds the pause a caller may ask for between lookups.
const MaxDelay = time.Hour

// DelayFromSeconds converts a caller-supplied delay in seconds. Values outside
// [0, MaxDelay] wrap certs.ErrInvalidInput; the range is checked before the
// conversion so huge values cannot overflow into negative durations.
func DelayFromSeconds(seconds float64) (time.Duration, error) {
	if math.IsNaN(seconds) || seconds < 0 {
		return 0, fmt.Errorf("%w: delay must not be negative", certs.ErrInvalidInput)
	}
	if seconds > MaxDelay.Seconds() {
		return 0, fmt.Errorf("%w: delay must be at most %.0f seconds", certs.ErrInvalidInput, MaxDelay.Seconds())
	}
	return time.Duration(seconds * float64(time.Second)), nil
}

// Gate spaces out consecutive upstream calls. Wait is called between two
// lookups, never before the first or after the last.
type Gate interface {
	Wait(ctx context.Context) error
}

// GateFunc builds a fresh Gate for one batch run.
type GateFunc func(delay time.Duration) Gate

// NewDelayGate returns a token bucket that releases one lookup per delay.
// The initial token is drained so the first Wait holds for a full interval
// measured from the start of the batch's first lookup.
func NewDelayGate(delay time.Duration) Gate {
	if delay <= 0 {
		return noWait{}
	}
	lim := rate.NewLimiter(rate.Every(delay), 1)
	lim.Allow()
	return lim
}

type noWait struct{}

func (noWait) Wait(ctx context.Context) error {
	return ctx.Err()
}
