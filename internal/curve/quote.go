// =============================
// File: internal/curve/quote.go
// =============================

package curve

import (
	"fmt"
	"math/big"
)

// Direction tells ApplySlippage which side of the trade the bound protects.
type Direction int

const (
	// DirectionBuy bounds the minimum amount received.
	DirectionBuy Direction = iota
	// DirectionSell bounds the maximum amount paid.
	DirectionSell
)

// Quote is a fully resolved buy quote against the current sale snapshot.
type Quote struct {
	// AmountInWei is the wei the contract will actually take for CoinsOut. It can be
	// below the offered budget because the contract never accepts more than the cost
	// of the coins it hands out.
	AmountInWei *big.Int
	CoinsOut    *big.Int
	MinCoinsOut *big.Int
	// PriceImpactBps compares the average fill price with the pre-trade marginal
	// price. Slightly negative values are normal just past the breakpoint, where the
	// price slope flattens.
	PriceImpactBps int64
}

func checkNetSold(netSold *big.Int, params Parameters) error {
	if netSold == nil || netSold.Sign() < 0 {
		return fmt.Errorf("%w: negative net sold", ErrStaleTelemetry)
	}
	if netSold.Cmp(params.SaleCap) > 0 {
		return fmt.Errorf("%w: net sold %s beyond sale cap %s",
			ErrStaleTelemetry, netSold, params.SaleCap)
	}
	return nil
}

// costDelta is the wei price of the next n coins at the netSold mark.
func costDelta(netSold, n *big.Int, params Parameters) (*big.Int, error) {
	before, err := Cost(netSold, params)
	if err != nil {
		return nil, err
	}
	after, err := Cost(new(big.Int).Add(netSold, n), params)
	if err != nil {
		return nil, err
	}
	return after.Sub(after, before), nil
}

// CoinsForBudget finds the largest coin amount whose cost delta fits inside budgetWei.
//
// It binary-searches the remaining allocation, one Cost evaluation per step, so it runs
// in O(log saleCap). Truncation in Cost means the result can undershoot the exact
// inverse by one base unit, never overshoot — the same resolution the contract applies,
// which is what keeps local quotes and on-chain fills in lockstep.
func CoinsForBudget(netSold *big.Int, params Parameters, budgetWei *big.Int) (*big.Int, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if err := checkNetSold(netSold, params); err != nil {
		return nil, err
	}
	if budgetWei == nil || budgetWei.Sign() <= 0 {
		return big.NewInt(0), nil
	}

	remaining := new(big.Int).Sub(params.SaleCap, netSold)
	if remaining.Sign() == 0 {
		return big.NewInt(0), nil
	}

	// The whole remainder may be affordable; the search below assumes hi is
	// unaffordable once this fast path falls through.
	allIn, err := costDelta(netSold, remaining, params)
	if err != nil {
		return nil, err
	}
	if allIn.Cmp(budgetWei) <= 0 {
		return remaining, nil
	}

	lo := big.NewInt(0) // affordable
	hi := new(big.Int).Set(remaining)
	one := big.NewInt(1)
	for {
		gap := new(big.Int).Sub(hi, lo)
		if gap.Cmp(one) <= 0 {
			return lo, nil
		}
		mid := gap.Rsh(gap, 1).Add(gap, lo)
		price, err := costDelta(netSold, mid, params)
		if err != nil {
			return nil, err
		}
		if price.Cmp(budgetWei) <= 0 {
			lo = mid
		} else {
			hi = mid
		}
	}
}

// WeiForExactCoins prices an exact coin purchase at the netSold mark.
func WeiForExactCoins(netSold *big.Int, params Parameters, coinsWanted *big.Int) (*big.Int, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if err := checkNetSold(netSold, params); err != nil {
		return nil, err
	}
	if coinsWanted == nil || coinsWanted.Sign() < 0 {
		return nil, fmt.Errorf("%w: negative coin amount", ErrInvalidCurveConfig)
	}
	remaining := new(big.Int).Sub(params.SaleCap, netSold)
	if coinsWanted.Cmp(remaining) > 0 {
		return nil, fmt.Errorf("%w: want %s coins, %s left",
			ErrInsufficientSupply, coinsWanted, remaining)
	}
	return costDelta(netSold, coinsWanted, params)
}

// ApplySlippage bounds amountOut by toleranceBps. Both directions truncate toward zero
// so the bound never rounds in the caller's favor.
func ApplySlippage(amountOut *big.Int, toleranceBps uint16, direction Direction) *big.Int {
	if toleranceBps == 0 {
		return new(big.Int).Set(amountOut)
	}
	factor := int64(OneInBps) - int64(toleranceBps)
	if direction == DirectionSell {
		factor = int64(OneInBps) + int64(toleranceBps)
	}
	return MulBps(amountOut, factor)
}

// PriceImpactBps measures how far the average fill price of a weiIn/coinsOut trade
// lands from the pre-trade marginal price.
func PriceImpactBps(weiIn, coinsOut, marginalPrice *big.Int) (int64, error) {
	if coinsOut == nil || coinsOut.Sign() == 0 {
		return 0, nil
	}
	if marginalPrice == nil || marginalPrice.Sign() == 0 {
		return 0, fmt.Errorf("%w: zero marginal price", ErrStaleTelemetry)
	}
	avgFill := new(big.Int).Mul(weiIn, oneCoin)
	avgFill.Div(avgFill, coinsOut)
	return DivToBps(avgFill.Sub(avgFill, marginalPrice), marginalPrice)
}

// BuyQuote resolves a full quote for an ETH budget: coin amount, actual charge,
// slippage floor and price impact in one pass.
func BuyQuote(netSold *big.Int, params Parameters, budgetWei *big.Int, slippageBps uint16) (Quote, error) {
	coins, err := CoinsForBudget(netSold, params, budgetWei)
	if err != nil {
		return Quote{}, err
	}
	if coins.Sign() == 0 {
		return Quote{
			AmountInWei:    big.NewInt(0),
			CoinsOut:       big.NewInt(0),
			MinCoinsOut:    big.NewInt(0),
			PriceImpactBps: 0,
		}, nil
	}

	wei, err := WeiForExactCoins(netSold, params, coins)
	if err != nil {
		return Quote{}, err
	}
	marginal, err := MarginalPrice(netSold, params)
	if err != nil {
		return Quote{}, err
	}
	impact := int64(0)
	if marginal.Sign() > 0 {
		impact, err = PriceImpactBps(wei, coins, marginal)
		if err != nil {
			return Quote{}, err
		}
	}

	return Quote{
		AmountInWei:    wei,
		CoinsOut:       coins,
		MinCoinsOut:    ApplySlippage(coins, slippageBps, DirectionBuy),
		PriceImpactBps: impact,
	}, nil
}
