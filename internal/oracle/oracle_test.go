package oracle_test

import (
	"errors"
	"testing"

	"OptionAMM/internal/oracle"
)

const priceScale = int64(100_000_000)

// ============================================================================
// Test: round recording
// ============================================================================

func TestRecord_MonotonicRoundIDs(t *testing.T) {
	f := oracle.NewFeed()

	if err := f.Record(1, 1000*priceScale, 100); err != nil {
		t.Fatal(err)
	}
	if err := f.Record(2, 1010*priceScale, 200); err != nil {
		t.Fatal(err)
	}

	// Stale and duplicate round IDs are rejected.
	if err := f.Record(2, 1020*priceScale, 300); !errors.Is(err, oracle.ErrStaleRound) {
		t.Errorf("duplicate round: got %v, want ErrStaleRound", err)
	}
	if err := f.Record(1, 1020*priceScale, 300); !errors.Is(err, oracle.ErrStaleRound) {
		t.Errorf("stale round: got %v, want ErrStaleRound", err)
	}

	latest, err := f.Latest()
	if err != nil {
		t.Fatal(err)
	}
	if latest.RoundID != 2 || latest.Price != 1010*priceScale {
		t.Errorf("latest = %+v", latest)
	}
}

func TestRecord_RejectsBadInput(t *testing.T) {
	f := oracle.NewFeed()
	if err := f.Record(1, 0, 100); !errors.Is(err, oracle.ErrInvalidPrice) {
		t.Errorf("got %v, want ErrInvalidPrice", err)
	}
	if err := f.Record(1, 1000*priceScale, 100); err != nil {
		t.Fatal(err)
	}
	if err := f.Record(2, 1000*priceScale, 99); !errors.Is(err, oracle.ErrInvalidRoundTs) {
		t.Errorf("got %v, want ErrInvalidRoundTs", err)
	}
}

func TestLatest_Empty(t *testing.T) {
	f := oracle.NewFeed()
	if _, err := f.Latest(); !errors.Is(err, oracle.ErrNoRound) {
		t.Errorf("got %v, want ErrNoRound", err)
	}
}

// ============================================================================
// Test: expiry price finality
// ============================================================================

func TestGetExpiryPrice(t *testing.T) {
	f := oracle.NewFeed()
	expiry := int64(10_000)

	if err := f.Record(1, 1000*priceScale, expiry-100); err != nil {
		t.Fatal(err)
	}
	if _, _, err := f.GetExpiryPrice(expiry, expiry); !errors.Is(err, oracle.ErrNoExpiryPrice) {
		t.Fatalf("no round past expiry: got %v, want ErrNoExpiryPrice", err)
	}

	if err := f.Record(2, 1100*priceScale, expiry+50); err != nil {
		t.Fatal(err)
	}

	// Inside the dispute period the price is visible but not finalized.
	price, finalized, err := f.GetExpiryPrice(expiry, expiry+50+oracle.DisputePeriod-1)
	if err != nil {
		t.Fatal(err)
	}
	if price != 1100*priceScale || finalized {
		t.Errorf("got price=%d finalized=%v, want unfinalized 1100", price, finalized)
	}

	// After the dispute period it finalizes.
	_, finalized, err = f.GetExpiryPrice(expiry, expiry+50+oracle.DisputePeriod)
	if err != nil {
		t.Fatal(err)
	}
	if !finalized {
		t.Error("price should be finalized after the dispute period")
	}
}

func TestGetExpiryPrice_UsesFirstRoundPastExpiry(t *testing.T) {
	f := oracle.NewFeed()
	expiry := int64(10_000)

	if err := f.Record(1, 1000*priceScale, expiry+10); err != nil {
		t.Fatal(err)
	}
	if err := f.Record(2, 2000*priceScale, expiry+20); err != nil {
		t.Fatal(err)
	}

	price, _, err := f.GetExpiryPrice(expiry, expiry+oracle.DisputePeriod+20)
	if err != nil {
		t.Fatal(err)
	}
	if price != 1000*priceScale {
		t.Errorf("got %d, want first round past expiry", price)
	}
}

// ============================================================================
// Test: safety-period clamp
// ============================================================================

func TestQuotePrice_OutsideSafetyPeriod(t *testing.T) {
	f := oracle.NewFeed()
	if err := f.Record(1, 1000*priceScale, 100); err != nil {
		t.Fatal(err)
	}
	if err := f.Record(2, 1200*priceScale, 200); err != nil {
		t.Fatal(err)
	}

	got, err := f.QuotePrice(200+oracle.SafetyPeriod, true)
	if err != nil {
		t.Fatal(err)
	}
	if got != 1200*priceScale {
		t.Errorf("got %d, want unclamped latest", got)
	}
}

func TestQuotePrice_ClampsSellAfterSpike(t *testing.T) {
	f := oracle.NewFeed()
	if err := f.Record(1, 1000*priceScale, 100); err != nil {
		t.Fatal(err)
	}
	// 20% spike, well past the 5% band.
	if err := f.Record(2, 1200*priceScale, 200); err != nil {
		t.Fatal(err)
	}

	got, err := f.QuotePrice(200+1, true)
	if err != nil {
		t.Fatal(err)
	}
	if got != 1050*priceScale {
		t.Errorf("sell quote %d, want clamped to 1050", got)
	}

	// Buys after a spike are unaffected: the move is against the buyer.
	got, err = f.QuotePrice(200+1, false)
	if err != nil {
		t.Fatal(err)
	}
	if got != 1200*priceScale {
		t.Errorf("buy quote %d, want 1200", got)
	}
}

func TestQuotePrice_ClampsBuyAfterDrop(t *testing.T) {
	f := oracle.NewFeed()
	if err := f.Record(1, 1000*priceScale, 100); err != nil {
		t.Fatal(err)
	}
	if err := f.Record(2, 800*priceScale, 200); err != nil {
		t.Fatal(err)
	}

	got, err := f.QuotePrice(200+1, false)
	if err != nil {
		t.Fatal(err)
	}
	if got != 950*priceScale {
		t.Errorf("buy quote %d, want clamped to 950", got)
	}

	got, err = f.QuotePrice(200+1, true)
	if err != nil {
		t.Fatal(err)
	}
	if got != 800*priceScale {
		t.Errorf("sell quote %d, want 800", got)
	}
}

func TestQuotePrice_SingleRoundNeverClamps(t *testing.T) {
	f := oracle.NewFeed()
	if err := f.Record(1, 1000*priceScale, 100); err != nil {
		t.Fatal(err)
	}
	got, err := f.QuotePrice(101, true)
	if err != nil {
		t.Fatal(err)
	}
	if got != 1000*priceScale {
		t.Errorf("got %d, want 1000", got)
	}
}
