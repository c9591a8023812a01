package curve

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCoinsForBudgetEdgeCases(t *testing.T) {
	params := referenceCurve(t)

	t.Run("zero budget buys nothing", func(t *testing.T) {
		coins, err := CoinsForBudget(big.NewInt(0), params, big.NewInt(0))
		require.NoError(t, err)
		assert.Zero(t, coins.Sign())
	})

	t.Run("exhausted sale buys nothing", func(t *testing.T) {
		coins, err := CoinsForBudget(params.SaleCap, params, e18(1000))
		require.NoError(t, err)
		assert.Zero(t, coins.Sign())
	})

	t.Run("oversized budget is capped at the remainder", func(t *testing.T) {
		netSold := e18(600_000_000)
		coins, err := CoinsForBudget(netSold, params, e18(1000))
		require.NoError(t, err)
		remaining := new(big.Int).Sub(params.SaleCap, netSold)
		assert.Zero(t, coins.Cmp(remaining))
	})

	t.Run("stale net sold is rejected", func(t *testing.T) {
		_, err := CoinsForBudget(new(big.Int).Add(params.SaleCap, big.NewInt(1)), params, e18(1))
		assert.ErrorIs(t, err, ErrStaleTelemetry)
	})
}

// 0.01 ETH into a fresh reference sale must land exactly on the truncation boundary:
// the returned amount fits the budget and one more base unit does not.
func TestCoinsForBudgetFreshSale(t *testing.T) {
	params := referenceCurve(t)
	budget := new(big.Int).Div(e18(1), big.NewInt(100))
	netSold := big.NewInt(0)

	coins, err := CoinsForBudget(netSold, params, budget)
	require.NoError(t, err)
	require.Equal(t, 1, coins.Sign(), "0.01 ETH buys a positive amount on a 2 ETH curve")

	cost, err := WeiForExactCoins(netSold, params, coins)
	require.NoError(t, err)
	assert.LessOrEqual(t, cost.Cmp(budget), 0)

	oneMore := new(big.Int).Add(coins, big.NewInt(1))
	costOneMore, err := WeiForExactCoins(netSold, params, oneMore)
	require.NoError(t, err)
	assert.Equal(t, 1, costOneMore.Cmp(budget), "the next unit must not fit the budget")
}

// Quoting coins→wei→coins may undershoot by one base unit from truncation, never
// overshoot. The contract resolves the same way, so this is the parity property that
// keeps submitted transactions from reverting.
func TestQuoteInverseConsistency(t *testing.T) {
	params := referenceCurve(t)

	tests := []struct {
		name    string
		netSold *big.Int
		coins   *big.Int
	}{
		{"fresh sale small buy", big.NewInt(0), e18(1_000)},
		{"deep in quadratic region", e18(150_000_000), e18(5_000_000)},
		{"across the breakpoint", e18(199_000_000), e18(2_000_000)},
		{"linear region", e18(400_000_000), e18(10_000_000)},
		{"single base unit", e18(10_000_000), big.NewInt(1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wei, err := WeiForExactCoins(tt.netSold, params, tt.coins)
			require.NoError(t, err)

			back, err := CoinsForBudget(tt.netSold, params, wei)
			require.NoError(t, err)

			lowerBound := new(big.Int).Sub(tt.coins, big.NewInt(1))
			assert.GreaterOrEqual(t, back.Cmp(lowerBound), 0, "undershoot beyond one unit")

			cost, err := WeiForExactCoins(tt.netSold, params, back)
			require.NoError(t, err)
			assert.LessOrEqual(t, cost.Cmp(wei), 0, "round-trip must never overshoot the budget")
		})
	}
}

func TestWeiForExactCoinsRejectsOverAsk(t *testing.T) {
	params := referenceCurve(t)
	netSold := e18(799_999_999)
	_, err := WeiForExactCoins(netSold, params, e18(2))
	assert.ErrorIs(t, err, ErrInsufficientSupply)
}

func TestApplySlippage(t *testing.T) {
	amount := big.NewInt(1_000_000)

	t.Run("buy floors the minimum out", func(t *testing.T) {
		// 1% tolerance: 1_000_000 · 9900 / 10000.
		out := ApplySlippage(amount, 100, DirectionBuy)
		assert.Zero(t, out.Cmp(big.NewInt(990_000)))
	})

	t.Run("sell raises the maximum in", func(t *testing.T) {
		out := ApplySlippage(amount, 100, DirectionSell)
		assert.Zero(t, out.Cmp(big.NewInt(1_010_000)))
	})

	t.Run("truncates against the caller", func(t *testing.T) {
		out := ApplySlippage(big.NewInt(999), 1, DirectionBuy)
		// 999 · 9999 / 10000 = 998.90…, kept at 998.
		assert.Zero(t, out.Cmp(big.NewInt(998)))
	})

	t.Run("zero tolerance is identity", func(t *testing.T) {
		out := ApplySlippage(amount, 0, DirectionBuy)
		assert.Zero(t, out.Cmp(amount))
	})
}

func TestPriceImpact(t *testing.T) {
	params := referenceCurve(t)

	t.Run("positive in the quadratic region", func(t *testing.T) {
		netSold := e18(100_000_000)
		wei, err := WeiForExactCoins(netSold, params, e18(50_000_000))
		require.NoError(t, err)
		marginal, err := MarginalPrice(netSold, params)
		require.NoError(t, err)

		impact, err := PriceImpactBps(wei, e18(50_000_000), marginal)
		require.NoError(t, err)
		assert.Greater(t, impact, int64(0), "buying up a rising curve costs above spot")
	})

	t.Run("non-positive in the flat linear region", func(t *testing.T) {
		netSold := e18(300_000_000)
		coins := e18(10_000_000)
		wei, err := WeiForExactCoins(netSold, params, coins)
		require.NoError(t, err)
		marginal, err := MarginalPrice(netSold, params)
		require.NoError(t, err)

		impact, err := PriceImpactBps(wei, coins, marginal)
		require.NoError(t, err)
		assert.LessOrEqual(t, impact, int64(0), "flat price plus truncation can only undercut spot")
	})

	t.Run("zero coins means zero impact", func(t *testing.T) {
		impact, err := PriceImpactBps(big.NewInt(0), big.NewInt(0), big.NewInt(1))
		require.NoError(t, err)
		assert.Zero(t, impact)
	})
}

func TestBuyQuote(t *testing.T) {
	params := referenceCurve(t)

	t.Run("full quote on a fresh sale", func(t *testing.T) {
		budget := new(big.Int).Div(e18(1), big.NewInt(100))
		quote, err := BuyQuote(big.NewInt(0), params, budget, 50)
		require.NoError(t, err)

		assert.Equal(t, 1, quote.CoinsOut.Sign())
		assert.LessOrEqual(t, quote.AmountInWei.Cmp(budget), 0)
		assert.Equal(t, -1, quote.MinCoinsOut.Cmp(quote.CoinsOut), "0.5% tolerance must bite")
		expectedMin := ApplySlippage(quote.CoinsOut, 50, DirectionBuy)
		assert.Zero(t, quote.MinCoinsOut.Cmp(expectedMin))
	})

	t.Run("zero budget yields an empty quote", func(t *testing.T) {
		quote, err := BuyQuote(big.NewInt(0), params, big.NewInt(0), 50)
		require.NoError(t, err)
		assert.Zero(t, quote.CoinsOut.Sign())
		assert.Zero(t, quote.AmountInWei.Sign())
		assert.Zero(t, quote.PriceImpactBps)
	})
}
