// =============================
// File: internal/curve/errors.go
// =============================

package curve

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidCurveConfig covers non-positive or inconsistent saleCap/quadCap/
	// targetRaise combinations. Calibration fails with it instead of ever returning a
	// zero or negative divisor.
	ErrInvalidCurveConfig = errors.New("invalid curve config")

	// ErrInsufficientSupply means the requested coin amount exceeds what the sale still
	// has on offer.
	ErrInsufficientSupply = errors.New("insufficient supply")

	// ErrStaleTelemetry means the caller handed us a snapshot that violates its own
	// invariants (e.g. netSold beyond saleCap). The engine never retries; refreshing
	// the snapshot is the data layer's job.
	ErrStaleTelemetry = errors.New("stale telemetry")

	// ErrArithmeticOverflow is reserved for fixed-width arithmetic backends. The
	// big.Int implementation cannot produce it, but callers switch on the kind, so it
	// stays part of the contract.
	ErrArithmeticOverflow = errors.New("arithmetic overflow")
)

// SlippageExceededError is returned by the service layer when a fill would violate the
// caller's tolerance.
type SlippageExceededError struct {
	ToleranceBps  uint16
	OriginalError error
}

func (e *SlippageExceededError) Error() string {
	return fmt.Sprintf("slippage exceeded: fill outside %d bps tolerance: %v",
		e.ToleranceBps, e.OriginalError)
}

func (e *SlippageExceededError) Unwrap() error {
	return e.OriginalError
}
