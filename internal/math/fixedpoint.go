package math

import (
	"math/big"
	"sync"
)

// Fixed-point decimal conventions used across the AMM.
//
// Spot, strike, option size and per-unit premium use 8 decimals.
// Collateral (USDC-style) uses 6 decimals. Implied volatility uses
// 8 decimals where 1e8 == 100%. Ratios (fees, margins) use 1e8 == 100%.
const (
	PriceDecimals      = 8
	AmountDecimals     = 8
	CollateralDecimals = 6
	IVDecimals         = 8

	PriceScale      int64 = 100_000_000
	AmountScale     int64 = 100_000_000
	CollateralScale int64 = 1_000_000
	IVScale         int64 = 100_000_000 // 1e8 == 100% volatility
	RatioScale      int64 = 100_000_000 // 1e8 == 100%
)

// big.Int pool for intermediate products that may exceed int64
var intPool = &sync.Pool{
	New: func() interface{} {
		return new(big.Int)
	},
}

func getInt() *big.Int {
	return intPool.Get().(*big.Int)
}

func putInt(v *big.Int) {
	v.SetInt64(0)
	intPool.Put(v)
}

// MulDiv computes x * y / d using big.Int intermediates to avoid overflow.
// roundUp rounds away from zero for a non-zero remainder; otherwise the
// result truncates toward zero. Panics if d == 0.
func MulDiv(x, y, d int64, roundUp bool) int64 {
	if d == 0 {
		panic("math: mulDiv division by zero")
	}

	num := getInt()
	den := getInt()
	quo := getInt()
	rem := getInt()

	num.Mul(big.NewInt(x), big.NewInt(y))
	den.SetInt64(d)
	quo.QuoRem(num, den, rem)

	result := quo.Int64()
	if roundUp && rem.Sign() != 0 {
		if (num.Sign() < 0) != (d < 0) {
			result--
		} else {
			result++
		}
	}

	putInt(num)
	putInt(den)
	putInt(quo)
	putInt(rem)

	return result
}

// Scale converts amount between decimal precisions, truncating toward zero
// when precision is reduced.
func Scale(amount int64, from, to int) int64 {
	if from == to {
		return amount
	}
	if from > to {
		div := pow10(from - to)
		return amount / div
	}
	mul := pow10(to - from)
	return amount * mul
}

func pow10(n int) int64 {
	result := int64(1)
	for i := 0; i < n; i++ {
		result *= 10
	}
	return result
}

func Min(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}

func Max(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}

func Abs(a int64) int64 {
	if a < 0 {
		return -a
	}
	return a
}

// Sign returns -1, 0 or +1.
func Sign(a int64) int64 {
	switch {
	case a > 0:
		return 1
	case a < 0:
		return -1
	default:
		return 0
	}
}
