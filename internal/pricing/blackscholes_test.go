package pricing_test

import (
	fpmath "OptionAMM/internal/math"
	"OptionAMM/internal/pricing"
	"errors"
	"testing"
)

const week = 7 * 24 * 60 * 60

func scaled(v int64, decimals int) int64 {
	for i := 0; i < decimals; i++ {
		v *= 10
	}
	return v
}

// assertNear checks |got-want| <= want*tolBps/10000.
func assertNear(t *testing.T, got, want, tolBps int64) {
	t.Helper()
	diff := fpmath.Abs(got - want)
	limit := fpmath.MulDiv(fpmath.Abs(want), tolBps, 10_000, true)
	if diff > limit {
		t.Errorf("got %d, want %d (±%d bps)", got, want, tolBps)
	}
}

// ============================================================================
// Test: CalculatePrice
// ============================================================================

func TestCalculatePrice_RejectsZeroIV(t *testing.T) {
	_, err := pricing.CalculatePrice(scaled(2200, 8), scaled(2200, 8), week, 0, false)
	if !errors.Is(err, pricing.ErrIVOutOfRange) {
		t.Errorf("got %v, want ErrIVOutOfRange", err)
	}
}

func TestCalculatePrice_RejectsExpiredMaturity(t *testing.T) {
	_, err := pricing.CalculatePrice(scaled(2200, 8), scaled(2200, 8), 0, scaled(50, 6), false)
	if !errors.Is(err, pricing.ErrMaturity) {
		t.Errorf("got %v, want ErrMaturity", err)
	}
}

func TestCalculatePrice_RejectsLongMaturity(t *testing.T) {
	_, err := pricing.CalculatePrice(scaled(2200, 8), scaled(2200, 8), pricing.MaxMaturity+1, scaled(50, 6), false)
	if !errors.Is(err, pricing.ErrMaturity) {
		t.Errorf("got %v, want ErrMaturity", err)
	}
}

// Reference premiums for a 7-day option at IV 50%, spot $2200.
// Tolerance is loose enough to absorb normal-CDF approximation differences.
func TestCalculatePrice_ReferenceVectors(t *testing.T) {
	spot := scaled(2200, 8)
	iv := scaled(50, 6)

	cases := []struct {
		name   string
		strike int64
		isPut  bool
		want   int64
		tolBps int64
	}{
		{"ATM call", scaled(2200, 8), false, 6063545400, 100},
		{"OTM call", scaled(2400, 8), false, 787553600, 200},
		{"ITM call", scaled(2000, 8), false, 20554678600, 100},
		{"ATM put", scaled(2200, 8), true, 6063545400, 100},
		{"OTM put", scaled(2000, 8), true, 554678600, 200},
		{"ITM put", scaled(2400, 8), true, 20787553600, 100},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := pricing.CalculatePrice(spot, tc.strike, week, iv, tc.isPut)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			assertNear(t, got, tc.want, tc.tolBps)
		})
	}
}

func TestCalculatePrice_IntrinsicFloor(t *testing.T) {
	// Deep ITM at near-zero vol converges to parity.
	spot := scaled(600, 8)
	strike := scaled(300, 8)
	iv := scaled(2, 6) // 2%

	got, err := pricing.CalculatePrice(spot, strike, week, iv, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	intrinsic := spot - strike
	if got < intrinsic {
		t.Errorf("premium %d below intrinsic %d", got, intrinsic)
	}
	assertNear(t, got, intrinsic, 10)
}

func TestCalculatePrice_DeepOTMNearZero(t *testing.T) {
	got, err := pricing.CalculatePrice(scaled(300, 8), scaled(600, 8), week, scaled(2, 6), false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 0 {
		t.Errorf("deep OTM at 2%% vol should be worthless, got %d", got)
	}
}

func TestCalculatePrice_MonotoneInVolatility(t *testing.T) {
	spot := scaled(2200, 8)
	strike := scaled(2400, 8)

	prev := int64(-1)
	for iv := scaled(10, 6); iv <= scaled(200, 6); iv += scaled(10, 6) {
		got, err := pricing.CalculatePrice(spot, strike, week, iv, false)
		if err != nil {
			t.Fatalf("iv=%d: %v", iv, err)
		}
		if got < prev {
			t.Fatalf("premium not monotone in vol: iv=%d premium=%d prev=%d", iv, got, prev)
		}
		prev = got
	}
}

func TestCalculatePrice_MonotoneInMoneyness(t *testing.T) {
	spot := scaled(2200, 8)
	iv := scaled(80, 6)

	prev := int64(1 << 62)
	for strike := scaled(1800, 8); strike <= scaled(2800, 8); strike += scaled(100, 8) {
		got, err := pricing.CalculatePrice(spot, strike, week, iv, false)
		if err != nil {
			t.Fatalf("strike=%d: %v", strike, err)
		}
		if got > prev {
			t.Fatalf("call premium must not increase with strike: strike=%d premium=%d prev=%d", strike, got, prev)
		}
		prev = got
	}
}

// With zero rate, put-call parity reduces to C - P = S - K.
func TestCalculatePrice_PutCallParity(t *testing.T) {
	spot := scaled(2200, 8)
	iv := scaled(100, 6)

	for _, strike := range []int64{scaled(2000, 8), scaled(2200, 8), scaled(2400, 8)} {
		call, err := pricing.CalculatePrice(spot, strike, week, iv, false)
		if err != nil {
			t.Fatal(err)
		}
		put, err := pricing.CalculatePrice(spot, strike, week, iv, true)
		if err != nil {
			t.Fatal(err)
		}
		if diff := fpmath.Abs((call - put) - (spot - strike)); diff > 10_000 {
			t.Errorf("strike %d: C-P = %d, want %d", strike, call-put, spot-strike)
		}
	}
}

// ============================================================================
// Test: CalculatePrice2
// ============================================================================

func TestCalculatePrice2_RejectsBadSegment(t *testing.T) {
	spot := scaled(2200, 8)
	_, err := pricing.CalculatePrice2(spot, spot, week, 0, 100, false, 0)
	if !errors.Is(err, pricing.ErrIVOutOfRange) {
		t.Errorf("got %v, want ErrIVOutOfRange", err)
	}
}

func TestCalculatePrice2_SegmentAboveSpotIV(t *testing.T) {
	// Integrating upward over [x0, x1] must quote at least the x0 price and at
	// most the x1 price.
	spot := scaled(2200, 8)
	strike := scaled(2200, 8)
	x0 := scaled(60, 6)
	x1 := scaled(80, 6)

	seg, err := pricing.CalculatePrice2(spot, strike, week, x0, x1, false, 0)
	if err != nil {
		t.Fatal(err)
	}
	lo, _ := pricing.CalculatePrice(spot, strike, week, x0, false)
	hi, _ := pricing.CalculatePrice(spot, strike, week, x1, false)

	if seg < lo || seg > hi {
		t.Errorf("segment premium %d outside [%d, %d]", seg, lo, hi)
	}
}

func TestCalculatePrice2_DegenerateSegmentMatchesPoint(t *testing.T) {
	spot := scaled(2200, 8)
	strike := scaled(2200, 8)
	iv := scaled(121, 6)

	seg, err := pricing.CalculatePrice2(spot, strike, week, iv, iv+1, false, 0)
	if err != nil {
		t.Fatal(err)
	}
	point, _ := pricing.CalculatePrice(spot, strike, week, iv, false)
	assertNear(t, seg, point, 1)
}

func TestCalculatePrice2_DeltaTooLowCall(t *testing.T) {
	// OTM call with 50% min delta
	_, err := pricing.CalculatePrice2(scaled(2200, 8), scaled(2400, 8), week,
		scaled(50, 6), scaled(51, 6), false, scaled(50, 6))
	if !errors.Is(err, pricing.ErrDeltaTooLow) {
		t.Errorf("got %v, want ErrDeltaTooLow", err)
	}
}

func TestCalculatePrice2_DeltaTooLowPut(t *testing.T) {
	_, err := pricing.CalculatePrice2(scaled(2200, 8), scaled(2000, 8), week,
		scaled(50, 6), scaled(51, 6), true, scaled(50, 6))
	if !errors.Is(err, pricing.ErrDeltaTooLow) {
		t.Errorf("got %v, want ErrDeltaTooLow", err)
	}
}

// ============================================================================
// Test: CalculateDelta
// ============================================================================

func TestCalculateDelta_Vectors(t *testing.T) {
	iv := scaled(70, 6)

	cases := []struct {
		name         string
		spot, strike int64
		isPut        bool
		want         int64
	}{
		{"ITM call", scaled(600, 8), scaled(500, 8), false, 97411257},
		{"OTM call", scaled(500, 8), scaled(600, 8), false, 3349801},
		{"ITM put", scaled(500, 8), scaled(600, 8), true, -96650199},
		{"OTM put", scaled(600, 8), scaled(500, 8), true, -2588743},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := pricing.CalculateDelta(tc.spot, tc.strike, week, iv, tc.isPut)
			if err != nil {
				t.Fatal(err)
			}
			// absolute tolerance of 0.5% of full delta range
			if fpmath.Abs(got-tc.want) > 500_000 {
				t.Errorf("got %d, want %d", got, tc.want)
			}
		})
	}
}

func TestCalculateDelta_CallPutRelation(t *testing.T) {
	// call delta - put delta == 1 at the same point
	spot := scaled(2200, 8)
	strike := scaled(2300, 8)
	iv := scaled(90, 6)

	call, err := pricing.CalculateDelta(spot, strike, week, iv, false)
	if err != nil {
		t.Fatal(err)
	}
	put, err := pricing.CalculateDelta(spot, strike, week, iv, true)
	if err != nil {
		t.Fatal(err)
	}
	if call-put != fpmath.PriceScale {
		t.Errorf("call-put delta = %d, want %d", call-put, fpmath.PriceScale)
	}
}
