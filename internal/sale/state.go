// =============================
// File: internal/sale/state.go
// =============================

package sale

import (
	"fmt"
	"math/big"
	"time"

	"github.com/launchpad-tools/quoter/internal/curve"
)

// Snapshot is one consistent read of the sale contract's live telemetry. The contract
// owns this state; quoting only ever sees a point-in-time copy, so every consumer gets
// its own Snapshot and nothing here is mutated after construction.
type Snapshot struct {
	NetSold      *big.Int
	EthEscrowWei *big.Int
	// CurrentPriceWei is the contract's own marginal price read, wei per whole coin.
	CurrentPriceWei *big.Int
	Deadline        time.Time
	Status          curve.SaleStatus
	FetchedAt       time.Time
}

// PoolState mirrors the post-graduation constant-product pool, plus the circulating
// supply figure market-cap math needs. Only meaningful once the sale is FINALIZED.
type PoolState struct {
	ReserveEthWei     *big.Int
	ReserveToken      *big.Int
	CirculatingSupply *big.Int
}

// Validate checks the snapshot against the invariants the contract guarantees. A
// violation means the read was torn or the caller mixed snapshots from different
// sales — either way the quote layer must refuse it.
func (s *Snapshot) Validate(params curve.Parameters) error {
	if s == nil {
		return fmt.Errorf("%w: nil snapshot", curve.ErrStaleTelemetry)
	}
	if s.NetSold == nil || s.NetSold.Sign() < 0 {
		return fmt.Errorf("%w: negative net sold", curve.ErrStaleTelemetry)
	}
	if s.NetSold.Cmp(params.SaleCap) > 0 {
		return fmt.Errorf("%w: net sold %s beyond sale cap %s",
			curve.ErrStaleTelemetry, s.NetSold, params.SaleCap)
	}
	if s.EthEscrowWei == nil || s.EthEscrowWei.Sign() < 0 {
		return fmt.Errorf("%w: negative escrow", curve.ErrStaleTelemetry)
	}
	return nil
}

// Remaining returns the unsold allocation under params.
func (s *Snapshot) Remaining(params curve.Parameters) *big.Int {
	return new(big.Int).Sub(params.SaleCap, s.NetSold)
}

// ProgressBps expresses the fill level in basis points of the sale cap.
func (s *Snapshot) ProgressBps(params curve.Parameters) int64 {
	bps, err := curve.DivToBps(s.NetSold, params.SaleCap)
	if err != nil {
		return 0
	}
	return bps
}

// Expired reports whether the purchase deadline has passed at the given instant.
func (s *Snapshot) Expired(now time.Time) bool {
	return !s.Deadline.IsZero() && now.After(s.Deadline)
}
