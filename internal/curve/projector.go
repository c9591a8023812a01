// =============================
// File: internal/curve/projector.go
// =============================

package curve

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

// SaleStatus is the sale lifecycle phase the projector branches on. The transition to
// Finalized is one-way and happens on-chain; this package never mutates it.
type SaleStatus int

const (
	StatusActive SaleStatus = iota
	StatusFinalized
)

func (s SaleStatus) String() string {
	if s == StatusFinalized {
		return "FINALIZED"
	}
	return "ACTIVE"
}

// AveragePriceCutoverBps is the fill level (in bps of saleCap) below which the
// projector extrapolates from the average price paid so far instead of the marginal
// price. At very low fill the marginal price swings too hard to be a fair valuation
// basis. The 1% cutover is a product heuristic, not a derived constant; change it here,
// not inline. An escrow-based threshold was considered and rejected for now because it
// would need re-tuning per raise size.
const AveragePriceCutoverBps = 100

// ProjectionInput is a point-in-time sale snapshot plus the external figures the
// projector cannot derive itself: nominal supply, the post-graduation pool state and an
// ETH/USD rate. The engine never fetches any of them.
type ProjectionInput struct {
	Status       SaleStatus
	SaleCap      *big.Int
	NetSold      *big.Int
	EthEscrowWei *big.Int
	// CurrentPriceWei is the marginal price from telemetry, wei per whole coin.
	// Derived upstream, not authoritative.
	CurrentPriceWei *big.Int
	// TotalNominalSupply is the full token supply, of which the sale offers only a
	// sub-allocation.
	TotalNominalSupply *big.Int

	// Post-graduation pool state; required once Status is FINALIZED.
	ReserveEthWei     *big.Int
	ReserveToken      *big.Int
	CirculatingSupply *big.Int

	// EthUsdRate of zero skips the USD leg.
	EthUsdRate decimal.Decimal
	SwapFeeBps uint16
}

// Projection is the human-facing valuation derived from a snapshot.
type Projection struct {
	MarketCapWei    *big.Int
	MarketCapUsd    decimal.Decimal
	EffectiveFeeBps uint16
	IsBondingPhase  bool
}

// Project derives an implied market capitalization from sale telemetry.
//
// During the bonding phase it extrapolates an effective per-coin price over the entire
// nominal supply. Once finalized it prices strictly from pool reserves; bonding-phase
// pricing is never used on a frozen sale. Curve purchases carry no swap fee, so the
// effective fee is zero until graduation.
func Project(in ProjectionInput) (Projection, error) {
	if in.Status == StatusFinalized {
		return projectFinalized(in)
	}
	return projectBonding(in)
}

func projectBonding(in ProjectionInput) (Projection, error) {
	if in.SaleCap == nil || in.SaleCap.Sign() <= 0 {
		return Projection{}, fmt.Errorf("%w: sale cap must be positive", ErrInvalidCurveConfig)
	}
	if in.NetSold == nil || in.NetSold.Sign() < 0 || in.NetSold.Cmp(in.SaleCap) > 0 {
		return Projection{}, fmt.Errorf("%w: net sold outside [0, saleCap]", ErrStaleTelemetry)
	}
	if in.TotalNominalSupply == nil || in.TotalNominalSupply.Sign() <= 0 {
		return Projection{}, fmt.Errorf("%w: nominal supply must be positive", ErrInvalidCurveConfig)
	}

	price := effectivePrice(in)
	capWei := big.NewInt(0)
	if price.Sign() > 0 {
		capWei = new(big.Int).Mul(price, in.TotalNominalSupply)
		capWei.Div(capWei, oneCoin)
	}

	return Projection{
		MarketCapWei:    capWei,
		MarketCapUsd:    usdValue(capWei, in.EthUsdRate),
		EffectiveFeeBps: 0,
		IsBondingPhase:  true,
	}, nil
}

// effectivePrice picks the valuation basis for the bonding phase: average price paid
// below the cutover fill, marginal price from there on, with fallbacks when one side is
// unavailable.
func effectivePrice(in ProjectionInput) *big.Int {
	var average *big.Int
	if in.NetSold.Sign() > 0 && in.EthEscrowWei != nil && in.EthEscrowWei.Sign() > 0 {
		average = new(big.Int).Mul(in.EthEscrowWei, oneCoin)
		average.Div(average, in.NetSold)
	}

	marginal := in.CurrentPriceWei
	if marginal != nil && marginal.Sign() <= 0 {
		marginal = nil
	}

	if in.NetSold.Sign() == 0 || average == nil {
		if marginal != nil {
			return marginal
		}
		return big.NewInt(0)
	}

	soldBps := new(big.Int).Mul(in.NetSold, bigOneInBps)
	cutover := new(big.Int).Mul(in.SaleCap, big.NewInt(AveragePriceCutoverBps))
	if soldBps.Cmp(cutover) < 0 || marginal == nil {
		return average
	}
	return marginal
}

func projectFinalized(in ProjectionInput) (Projection, error) {
	if in.ReserveEthWei == nil || in.ReserveToken == nil || in.ReserveToken.Sign() == 0 {
		return Projection{}, fmt.Errorf("%w: finalized sale without pool reserves", ErrStaleTelemetry)
	}
	if in.CirculatingSupply == nil || in.CirculatingSupply.Sign() < 0 {
		return Projection{}, fmt.Errorf("%w: missing circulating supply", ErrStaleTelemetry)
	}

	// cap = (reserveEth / reserveToken) · circulatingSupply, multiplied before the
	// division so the pool price keeps full precision.
	capWei := new(big.Int).Mul(in.ReserveEthWei, in.CirculatingSupply)
	capWei.Div(capWei, in.ReserveToken)

	return Projection{
		MarketCapWei:    capWei,
		MarketCapUsd:    usdValue(capWei, in.EthUsdRate),
		EffectiveFeeBps: in.SwapFeeBps,
		IsBondingPhase:  false,
	}, nil
}

// usdValue converts a wei market cap to USD for display. Decimal is fine here: the USD
// figure never feeds back into quote arithmetic.
func usdValue(capWei *big.Int, rate decimal.Decimal) decimal.Decimal {
	if rate.IsZero() || capWei == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(capWei, -18).Mul(rate)
}
