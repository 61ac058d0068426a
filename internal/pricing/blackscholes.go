// Package pricing implements the closed-form option pricing primitive used by
// the premium walker. Prices are quoted with a zero risk-free rate; premiums
// are floored at intrinsic value so deep ITM quotes never round below parity.
package pricing

import (
	"errors"
	"math"

	fpmath "OptionAMM/internal/math"
)

const (
	// MaxIV is 1000% volatility (8-decimal fixed point).
	MaxIV int64 = 10 * 100_000_000

	// MaxMaturity is one year in seconds.
	MaxMaturity int64 = 365 * 24 * 60 * 60

	secondsPerYear = 365.0 * 24 * 60 * 60
)

var (
	ErrIVOutOfRange = errors.New("PriceCalculator: implied volatility must be between 0 and 1000%")
	ErrMaturity     = errors.New("PriceCalculator: maturity must not have expired and less than 1 year")
	ErrDeltaTooLow  = errors.New("delta is too low")
)

// CalculatePrice returns the per-unit premium (8 decimals) of an option at a
// single implied volatility.
func CalculatePrice(spot, strike, maturity, iv int64, isPut bool) (int64, error) {
	if iv <= 0 || iv > MaxIV {
		return 0, ErrIVOutOfRange
	}
	if maturity <= 0 || maturity > MaxMaturity {
		return 0, ErrMaturity
	}

	premium := bsPremium(toFloat(spot), toFloat(strike), yearFraction(maturity), toFloat(iv), isPut)
	return clampPremium(premium, spot, strike, isPut), nil
}

// CalculatePrice2 returns the per-unit premium over an IV segment [x0, x1]
// using Simpson integration, so the quote reflects the volatility the order
// itself pushes through. minDelta rejects quotes whose option delta magnitude
// at the segment start is below the threshold (deep OTM dust trades).
func CalculatePrice2(spot, strike, maturity, x0, x1 int64, isPut bool, minDelta int64) (int64, error) {
	if x0 <= 0 || x0 > MaxIV {
		return 0, ErrIVOutOfRange
	}
	if x1 <= 0 || x1 > MaxIV {
		return 0, ErrIVOutOfRange
	}
	if maturity <= 0 || maturity > MaxMaturity {
		return 0, ErrMaturity
	}

	if minDelta > 0 {
		delta, err := CalculateDelta(spot, strike, maturity, fpmath.Max(x0, x1), isPut)
		if err != nil {
			return 0, err
		}
		if fpmath.Abs(delta) < minDelta {
			return 0, ErrDeltaTooLow
		}
	}

	s := toFloat(spot)
	k := toFloat(strike)
	t := yearFraction(maturity)

	// Simpson's rule over the consumed IV segment.
	lo := toFloat(x0)
	hi := toFloat(x1)
	mid := (lo + hi) / 2

	p0 := bsPremium(s, k, t, lo, isPut)
	pm := bsPremium(s, k, t, mid, isPut)
	p1 := bsPremium(s, k, t, hi, isPut)

	premium := (p0 + 4*pm + p1) / 6
	return clampPremium(premium, spot, strike, isPut), nil
}

// CalculateDelta returns the option delta (8 decimals, signed: calls in
// [0, 1e8], puts in [-1e8, 0]).
func CalculateDelta(spot, strike, maturity, iv int64, isPut bool) (int64, error) {
	if iv <= 0 || iv > MaxIV {
		return 0, ErrIVOutOfRange
	}
	if maturity <= 0 || maturity > MaxMaturity {
		return 0, ErrMaturity
	}

	s := toFloat(spot)
	k := toFloat(strike)
	t := yearFraction(maturity)
	sigma := toFloat(iv)

	d1 := (math.Log(s/k) + 0.5*sigma*sigma*t) / (sigma * math.Sqrt(t))

	var delta float64
	if isPut {
		delta = normCDF(d1) - 1
	} else {
		delta = normCDF(d1)
	}

	return int64(math.Round(delta * float64(fpmath.PriceScale))), nil
}

// bsPremium is the zero-rate Black-Scholes premium in float spot units.
func bsPremium(s, k, t, sigma float64, isPut bool) float64 {
	sqrtT := math.Sqrt(t)
	d1 := (math.Log(s/k) + 0.5*sigma*sigma*t) / (sigma * sqrtT)
	d2 := d1 - sigma*sqrtT

	if isPut {
		return k*normCDF(-d2) - s*normCDF(-d1)
	}
	return s*normCDF(d1) - k*normCDF(d2)
}

func clampPremium(premium float64, spot, strike int64, isPut bool) int64 {
	fixed := int64(math.Round(premium * float64(fpmath.PriceScale)))

	var intrinsic int64
	if isPut {
		intrinsic = fpmath.Max(0, strike-spot)
	} else {
		intrinsic = fpmath.Max(0, spot-strike)
	}

	return fpmath.Max(fpmath.Max(fixed, 0), intrinsic)
}

func normCDF(x float64) float64 {
	return 0.5 * (1 + math.Erf(x/math.Sqrt2))
}

func toFloat(v int64) float64 {
	return float64(v) / float64(fpmath.PriceScale)
}

func yearFraction(maturity int64) float64 {
	return float64(maturity) / secondsPerYear
}
