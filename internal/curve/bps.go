// =============================
// File: internal/curve/bps.go
// =============================

package curve

import "math/big"

// OneInBps is the basis-point denominator (100% == 10000 bps).
const OneInBps = 10000

var bigOneInBps = big.NewInt(OneInBps)

// MulBps scales value by bps/10000, truncating toward zero.
func MulBps(value *big.Int, bps int64) *big.Int {
	out := new(big.Int).Mul(value, big.NewInt(bps))
	return out.Div(out, bigOneInBps)
}

// DivToBps returns dividend/divisor expressed in basis points, truncating toward zero.
// Works for negative dividends, which price impact needs near the breakpoint.
func DivToBps(dividend, divisor *big.Int) (int64, error) {
	if divisor == nil || divisor.Sign() == 0 {
		return 0, ErrInvalidCurveConfig
	}
	out := new(big.Int).Mul(dividend, bigOneInBps)
	out.Quo(out, divisor)
	if !out.IsInt64() {
		return 0, ErrArithmeticOverflow
	}
	return out.Int64(), nil
}
