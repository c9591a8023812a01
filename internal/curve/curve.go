// =============================
// File: internal/curve/curve.go
// =============================

package curve

import (
	"fmt"
	"math/big"
)

// Parameters describe a calibrated two-phase sale curve. The marginal price grows
// quadratically until QuadCap coins are sold and stays flat from there on, so the
// cumulative cost is cubic below the breakpoint and linear above it. All amounts are
// 18-decimal base units; costs are wei.
//
// Parameters are immutable once calibrated. Recalibrate only when SaleCap, QuadCap or
// the target raise change.
type Parameters struct {
	SaleCap *big.Int
	QuadCap *big.Int
	Divisor *big.Int
}

var (
	bigThree = big.NewInt(3)
	// oneCoin is the 18-decimal scaling factor shared by coin and wei amounts.
	oneCoin = new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)
)

// Validate checks the structural invariants the sale contract enforces on deployment.
func (p Parameters) Validate() error {
	switch {
	case p.SaleCap == nil || p.SaleCap.Sign() <= 0:
		return fmt.Errorf("%w: sale cap must be positive", ErrInvalidCurveConfig)
	case p.QuadCap == nil || p.QuadCap.Sign() <= 0:
		return fmt.Errorf("%w: quad cap must be positive", ErrInvalidCurveConfig)
	case p.QuadCap.Cmp(p.SaleCap) > 0:
		return fmt.Errorf("%w: quad cap exceeds sale cap", ErrInvalidCurveConfig)
	case p.Divisor == nil || p.Divisor.Sign() <= 0:
		return fmt.Errorf("%w: divisor must be positive", ErrInvalidCurveConfig)
	}
	return nil
}

// Cost returns the cumulative purchase cost in wei after coinsSold coins.
//
// The contract computes both pieces over a single truncating division, so the quadratic
// piece evaluated at QuadCap and the linear piece's base term are the same integer. The
// division truncates toward zero on purpose: the contract under-charges by at most one
// wei rather than over-charging, and quotes must reproduce that direction exactly.
func Cost(coinsSold *big.Int, params Parameters) (*big.Int, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if coinsSold == nil || coinsSold.Sign() < 0 {
		return nil, fmt.Errorf("%w: negative coin amount", ErrInvalidCurveConfig)
	}
	if coinsSold.Cmp(params.SaleCap) > 0 {
		return nil, fmt.Errorf("%w: %s coins exceed sale cap %s",
			ErrInsufficientSupply, coinsSold, params.SaleCap)
	}
	return new(big.Int).Div(costNumerator(coinsSold, params.QuadCap), params.Divisor), nil
}

// costNumerator evaluates the pre-division cost polynomial:
//
//	x <= quadCap: x³
//	x >  quadCap: quadCap³ + 3·quadCap²·(x − quadCap)
func costNumerator(x, quadCap *big.Int) *big.Int {
	if x.Cmp(quadCap) <= 0 {
		cube := new(big.Int).Mul(x, x)
		return cube.Mul(cube, x)
	}
	quadSq := new(big.Int).Mul(quadCap, quadCap)
	base := new(big.Int).Mul(quadSq, quadCap)
	tail := new(big.Int).Sub(x, quadCap)
	tail.Mul(tail, quadSq)
	tail.Mul(tail, bigThree)
	return base.Add(base, tail)
}

// MarginalPrice returns the instantaneous price at coinsSold, in wei per whole coin.
// It is the analytic derivative of Cost, 3·x²/divisor scaled to whole-coin units, and
// freezes at the breakpoint value past QuadCap.
func MarginalPrice(coinsSold *big.Int, params Parameters) (*big.Int, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if coinsSold == nil || coinsSold.Sign() < 0 {
		return nil, fmt.Errorf("%w: negative coin amount", ErrInvalidCurveConfig)
	}
	x := coinsSold
	if x.Cmp(params.QuadCap) > 0 {
		x = params.QuadCap
	}
	price := new(big.Int).Mul(x, x)
	price.Mul(price, bigThree)
	price.Mul(price, oneCoin)
	return price.Div(price, params.Divisor), nil
}

// CalibrateDivisor solves for the divisor that makes Cost(saleCap) land on targetRaise.
// The divisor is the only unknown and appears as a plain denominator in both curve
// pieces, so the solution is closed form:
//
//	divisor = quadCap²·(quadCap + 3·(saleCap − quadCap)) / targetRaise
func CalibrateDivisor(saleCap, quadCap, targetRaise *big.Int) (*big.Int, error) {
	switch {
	case saleCap == nil || saleCap.Sign() <= 0:
		return nil, fmt.Errorf("%w: sale cap must be positive", ErrInvalidCurveConfig)
	case quadCap == nil || quadCap.Sign() <= 0:
		return nil, fmt.Errorf("%w: quad cap must be positive", ErrInvalidCurveConfig)
	case quadCap.Cmp(saleCap) > 0:
		return nil, fmt.Errorf("%w: quad cap exceeds sale cap", ErrInvalidCurveConfig)
	case targetRaise == nil || targetRaise.Sign() <= 0:
		return nil, fmt.Errorf("%w: target raise must be positive", ErrInvalidCurveConfig)
	}

	divisor := new(big.Int).Div(costNumerator(saleCap, quadCap), targetRaise)
	if divisor.Sign() <= 0 {
		return nil, fmt.Errorf("%w: target raise %s too large for curve shape",
			ErrInvalidCurveConfig, targetRaise)
	}
	return divisor, nil
}

// Calibrate is the usual entrypoint: it builds ready-to-use Parameters from the sale
// configuration.
func Calibrate(saleCap, quadCap, targetRaise *big.Int) (Parameters, error) {
	divisor, err := CalibrateDivisor(saleCap, quadCap, targetRaise)
	if err != nil {
		return Parameters{}, err
	}
	return Parameters{
		SaleCap: new(big.Int).Set(saleCap),
		QuadCap: new(big.Int).Set(quadCap),
		Divisor: divisor,
	}, nil
}
