// =============================
// File: internal/curve/sampler.go
// =============================

package curve

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

// SamplePoint is one discretized curve reading, used for comparing curve shapes across
// target-raise configurations.
type SamplePoint struct {
	PercentSold       decimal.Decimal
	MarginalPriceWei  *big.Int
	CumulativeCostWei *big.Int
}

var decimalHundred = decimal.NewFromInt(100)

// Sample evaluates the curve at sampleCount evenly spaced points from 0% to 100% of the
// sale cap. Marginal prices come from the analytic per-piece derivative rather than
// finite differences, which would pick up truncation noise around the breakpoint.
//
// Sampling is an offline consumer of the cost function: it keeps no state between
// calls and never sits on the live quote path.
func Sample(params Parameters, sampleCount int) ([]SamplePoint, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if sampleCount < 2 {
		return nil, fmt.Errorf("%w: need at least 2 samples", ErrInvalidCurveConfig)
	}

	steps := int64(sampleCount - 1)
	points := make([]SamplePoint, 0, sampleCount)
	for i := int64(0); i <= steps; i++ {
		sold := new(big.Int).Mul(params.SaleCap, big.NewInt(i))
		sold.Div(sold, big.NewInt(steps))

		cost, err := Cost(sold, params)
		if err != nil {
			return nil, err
		}
		price, err := MarginalPrice(sold, params)
		if err != nil {
			return nil, err
		}

		points = append(points, SamplePoint{
			PercentSold:       decimal.NewFromInt(i).Mul(decimalHundred).Div(decimal.NewFromInt(steps)),
			MarginalPriceWei:  price,
			CumulativeCostWei: cost,
		})
	}
	return points, nil
}
