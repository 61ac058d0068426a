package amm_test

import (
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"OptionAMM/internal/amm"
	"OptionAMM/internal/option"
	"OptionAMM/internal/oracle"
	"OptionAMM/internal/pool"
	"OptionAMM/internal/pricing"
)

const (
	operator = "operator-1"
	lp       = "lp-1"
	trader   = "trader-1"

	usdc  = int64(1_000_000)     // collateral, 6 decimals
	unit  = int64(100_000_000)   // option size, 8 decimals
	price = int64(100_000_000)   // spot/strike, 8 decimals
	iv100 = int64(100_000_000)   // 100% volatility

	day = int64(24 * 60 * 60)
)

func newEngine(t *testing.T) *amm.Engine {
	t.Helper()
	return amm.NewEngine(zerolog.Nop(), operator, amm.DefaultConfig())
}

// newMarket seeds a funded pool with a live ATM call: 5000 collateral in
// [10,12), spot 1000, one-day expiry at IV 100%.
func newMarket(t *testing.T) (*amm.Engine, int64, int64) {
	t.Helper()
	e := newEngine(t)

	if _, err := e.Deposit(lp, 5000*usdc, 5000*usdc, 10, 12, 0); err != nil {
		t.Fatalf("seed deposit: %v", err)
	}
	if err := e.RecordSpot(1, 1000*price, 0); err != nil {
		t.Fatalf("seed spot: %v", err)
	}
	expiryID, err := e.CreateExpiry(operator, day, iv100)
	if err != nil {
		t.Fatalf("create expiry: %v", err)
	}
	seriesID, err := e.CreateSeries(operator, expiryID, 1000*price, false)
	if err != nil {
		t.Fatalf("create series: %v", err)
	}
	return e, expiryID, seriesID
}

// poolCollateral recomputes held collateral from visible state: free tick
// balances plus unsettled fee accrual. Tick MaxTick is outside every
// depositable range so its balance is always zero.
func poolCollateral(t *testing.T, e *amm.Engine, expiryIDs ...int64) int64 {
	t.Helper()
	ticks, err := e.GetTicks(pool.MinTick, pool.MaxTick)
	if err != nil {
		t.Fatal(err)
	}
	var sum int64
	for _, tk := range ticks {
		sum += tk.Balance
	}
	for _, expiryID := range expiryIDs {
		for tick := pool.MinTick; tick <= pool.MaxTick; tick++ {
			sum += e.GetProfitState(tick, expiryID).CumulativeFee
		}
	}
	return sum
}

// ============================================================================
// Test: deposits and withdrawals
// ============================================================================

func TestDepositWithdraw_RoundTrip(t *testing.T) {
	e := newEngine(t)

	res, err := e.Deposit(lp, 5000*usdc, 5000*usdc, 10, 12, 0)
	if err != nil {
		t.Fatal(err)
	}
	if res.Deposited != 5000*usdc || res.Shares != 5000*usdc {
		t.Fatalf("deposit result %+v", res)
	}

	w, err := e.Withdraw(lp, 5000*usdc, 0, res.RangeID, false, amm.LockupPeriod)
	if err != nil {
		t.Fatal(err)
	}
	if w.Withdrawn != 5000*usdc {
		t.Errorf("withdrawn %d, want exactly the deposit back", w.Withdrawn)
	}
	if e.HeldCollateral() != 0 {
		t.Errorf("held collateral %d after full exit", e.HeldCollateral())
	}
}

func TestDeposit_Validation(t *testing.T) {
	e := newEngine(t)

	if _, err := e.Deposit(lp, 0, 0, 10, 12, 0); !errors.Is(err, amm.ErrZeroAmount) {
		t.Errorf("zero: got %v", err)
	}
	if _, err := e.Deposit(lp, 5000*usdc, 4999*usdc, 10, 12, 0); !errors.Is(err, amm.ErrDepositExceedsMax) {
		t.Errorf("max: got %v", err)
	}
	if _, err := e.Deposit(lp, 5000*usdc, 5000*usdc, 12, 10, 0); !errors.Is(err, pool.ErrRangeOrder) {
		t.Errorf("range: got %v", err)
	}
}

func TestDeposit_WindowCloses(t *testing.T) {
	e := newEngine(t)

	if err := e.SetDepositAllowedUntil(operator, 100); err != nil {
		t.Fatal(err)
	}
	if _, err := e.Deposit(lp, 1000*usdc, 1000*usdc, 10, 12, 101); !errors.Is(err, amm.ErrDepositNotAllowed) {
		t.Errorf("got %v, want ErrDepositNotAllowed", err)
	}
	// At the deadline itself deposits still pass.
	if _, err := e.Deposit(lp, 1000*usdc, 1000*usdc, 10, 12, 100); err != nil {
		t.Errorf("deposit at deadline: %v", err)
	}
}

func TestWithdraw_LockupAndReservation(t *testing.T) {
	e := newEngine(t)

	res, err := e.Deposit(lp, 5000*usdc, 5000*usdc, 10, 12, 0)
	if err != nil {
		t.Fatal(err)
	}

	// Ordinary withdrawal inside the lockup fails.
	if _, err := e.Withdraw(lp, 5000*usdc, 0, res.RangeID, false, amm.LockupPeriod-1); !errors.Is(err, pool.ErrLockedUp) {
		t.Fatalf("got %v, want ErrLockedUp", err)
	}

	// Reserve the full balance, then try the reservation path early.
	if err := e.ReserveWithdrawal(lp, 5000*usdc, res.RangeID, 0); err != nil {
		t.Fatal(err)
	}
	if _, err := e.Withdraw(lp, 5000*usdc, 0, res.RangeID, true, amm.WithdrawablePeriod-1); !errors.Is(err, pool.ErrWithdrawablePeriod) {
		t.Fatalf("got %v, want ErrWithdrawablePeriod", err)
	}

	// After the window, exactly the reserved amount withdraws.
	w, err := e.Withdraw(lp, 5000*usdc, 0, res.RangeID, true, amm.WithdrawablePeriod)
	if err != nil {
		t.Fatal(err)
	}
	if w.Withdrawn != 5000*usdc {
		t.Errorf("withdrawn %d, want 5000 collateral", w.Withdrawn)
	}
}

func TestWithdraw_SkipLockupAllowList(t *testing.T) {
	e := newEngine(t)

	res, err := e.Deposit(lp, 5000*usdc, 5000*usdc, 10, 12, 0)
	if err != nil {
		t.Fatal(err)
	}
	if err := e.SetSkipLockup(operator, lp, true); err != nil {
		t.Fatal(err)
	}
	if _, err := e.Withdraw(lp, 5000*usdc, 0, res.RangeID, false, 1); err != nil {
		t.Errorf("allow-listed withdrawal failed: %v", err)
	}
}

func TestGetMintAmount_Idempotent(t *testing.T) {
	e, _, _ := newMarket(t)

	first, err := e.GetMintAmount(10, 12, 1000*usdc)
	if err != nil {
		t.Fatal(err)
	}
	second, err := e.GetMintAmount(10, 12, 1000*usdc)
	if err != nil {
		t.Fatal(err)
	}
	if first != second {
		t.Errorf("view call not idempotent: %d != %d", first, second)
	}
}

// ============================================================================
// Test: trading
// ============================================================================

func TestBuy_SingleTick(t *testing.T) {
	e, expiryID, seriesID := newMarket(t)

	size := unit / 10 // 0.1 options
	res, err := e.Buy(trader, seriesID, size, 100*usdc, 1)
	if err != nil {
		t.Fatal(err)
	}

	if res.RawPremium <= 0 {
		t.Errorf("premium %d, want > 0", res.RawPremium)
	}
	if got := e.LongBalance(trader, seriesID); got != size {
		t.Errorf("option balance %d, want exactly the trade size %d", got, size)
	}

	// IV moved up but stayed inside tick 10's band.
	ivAfter, err := e.IV(expiryID)
	if err != nil {
		t.Fatal(err)
	}
	if ivAfter <= iv100 || ivAfter >= iv100+amm.TickWidth {
		t.Errorf("iv after = %d, want inside (%d, %d)", ivAfter, iv100, iv100+amm.TickWidth)
	}
}

func TestBuy_Validation(t *testing.T) {
	e, _, seriesID := newMarket(t)

	if _, err := e.Buy(trader, seriesID, 0, 100*usdc, 1); !errors.Is(err, amm.ErrZeroAmount) {
		t.Errorf("zero: got %v", err)
	}
	if _, err := e.Buy(trader, seriesID, amm.MinTradeSize-1, 100*usdc, 1); !errors.Is(err, amm.ErrAmountTooSmall) {
		t.Errorf("dust: got %v", err)
	}
	if _, err := e.Buy(trader, seriesID, unit/10, 1, 1); !errors.Is(err, amm.ErrFeeExceedsMax) {
		t.Errorf("fee bound: got %v", err)
	}
	if _, err := e.Buy(trader, 999, unit/10, 100*usdc, 1); !errors.Is(err, option.ErrUnknownSeries) {
		t.Errorf("unknown series: got %v", err)
	}
}

func TestBuy_CrossesTickBoundary(t *testing.T) {
	e, expiryID, seriesID := newMarket(t)

	// 15 options need ~3000 collateral of margin; tick 10 only holds 2500.
	res, err := e.Buy(trader, seriesID, 15*unit, 1000*usdc, 1)
	if err != nil {
		t.Fatal(err)
	}
	if res.RawPremium <= 0 {
		t.Fatal("premium must be positive")
	}
	if got := e.LongBalance(trader, seriesID); got != 15*unit {
		t.Errorf("option balance %d, want full fill", got)
	}

	ivAfter, err := e.IV(expiryID)
	if err != nil {
		t.Fatal(err)
	}
	if ivAfter <= iv100+amm.TickWidth {
		t.Errorf("iv after = %d, want past tick 10's band top", ivAfter)
	}

	// Both ticks carry locked margin now.
	ticks, err := e.GetTicks(10, 12)
	if err != nil {
		t.Fatal(err)
	}
	if ticks[0].Locked == 0 || ticks[1].Locked == 0 {
		t.Errorf("expected margin locked in both ticks: %+v", ticks)
	}
}

func TestBuy_WalksOffTopOfArena(t *testing.T) {
	e := newEngine(t)

	if _, err := e.Deposit(lp, 1000*usdc, 1000*usdc, 10, 11, 0); err != nil {
		t.Fatal(err)
	}
	if err := e.RecordSpot(1, 1000*price, 0); err != nil {
		t.Fatal(err)
	}
	expiryID, err := e.CreateExpiry(operator, day, iv100)
	if err != nil {
		t.Fatal(err)
	}
	seriesID, err := e.CreateSeries(operator, expiryID, 1000*price, false)
	if err != nil {
		t.Fatal(err)
	}

	// Margin for 100 options dwarfs the pool; the walk runs off the arena.
	if _, err := e.Buy(trader, seriesID, 100*unit, 1_000_000*usdc, 1); !errors.Is(err, amm.ErrWalkTickTooLarge) {
		t.Errorf("got %v, want ErrWalkTickTooLarge", err)
	}
}

func TestBuy_DeltaTooLow(t *testing.T) {
	e, expiryID, _ := newMarket(t)

	// A far OTM strike has near-zero delta one day out.
	otmID, err := e.CreateSeries(operator, expiryID, 3000*price, false)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := e.Buy(trader, otmID, unit, 100*usdc, 1); !errors.Is(err, pricing.ErrDeltaTooLow) {
		t.Errorf("got %v, want ErrDeltaTooLow", err)
	}
}

func TestCalculatePremium_MonotoneInSize(t *testing.T) {
	e, _, seriesID := newMarket(t)

	prev := int64(0)
	for _, size := range []int64{unit / 10, unit / 2, unit, 2 * unit} {
		premium, err := e.CalculatePremium(seriesID, size, false, 1)
		if err != nil {
			t.Fatalf("size %d: %v", size, err)
		}
		if premium < prev {
			t.Fatalf("buy premium decreased with size: %d < %d", premium, prev)
		}
		prev = premium
	}
}

func TestCalculatePremium_SellPerUnitNonIncreasing(t *testing.T) {
	e, _, seriesID := newMarket(t)

	// Seed a written book so sells have something to unwind.
	if _, err := e.Buy(trader, seriesID, 4*unit, 1000*usdc, 1); err != nil {
		t.Fatal(err)
	}

	prevPerUnit := int64(1 << 62)
	for _, size := range []int64{unit / 2, unit, 2 * unit} {
		proceeds, err := e.CalculatePremium(seriesID, size, true, 1)
		if err != nil {
			t.Fatalf("size %d: %v", size, err)
		}
		perUnit := proceeds * unit / size
		if perUnit > prevPerUnit {
			t.Fatalf("sell per-unit proceeds increased with size: %d > %d", perUnit, prevPerUnit)
		}
		prevPerUnit = perUnit
	}
}

func TestCalculatePremium_IsView(t *testing.T) {
	e, expiryID, seriesID := newMarket(t)

	before, err := e.IV(expiryID)
	if err != nil {
		t.Fatal(err)
	}
	first, err := e.CalculatePremium(seriesID, unit, false, 1)
	if err != nil {
		t.Fatal(err)
	}
	second, err := e.CalculatePremium(seriesID, unit, false, 1)
	if err != nil {
		t.Fatal(err)
	}
	after, err := e.IV(expiryID)
	if err != nil {
		t.Fatal(err)
	}
	if first != second || before != after {
		t.Error("quote mutated state")
	}
}

func TestBuyThenSell_NeverProfitable(t *testing.T) {
	e, _, seriesID := newMarket(t)

	size := 2 * unit
	buy, err := e.Buy(trader, seriesID, size, 1000*usdc, 1)
	if err != nil {
		t.Fatal(err)
	}
	sell, err := e.Sell(trader, seriesID, size, 0, 1)
	if err != nil {
		t.Fatal(err)
	}

	if sell.Total > buy.Total {
		t.Errorf("round trip profitable: paid %d, received %d", buy.Total, sell.Total)
	}
	if got := e.LongBalance(trader, seriesID); got != 0 {
		t.Errorf("residual option balance %d", got)
	}
}

func TestSell_Validation(t *testing.T) {
	e, _, seriesID := newMarket(t)

	// Selling without a position fails before any pricing.
	if _, err := e.Sell(trader, seriesID, unit, 0, 1); !errors.Is(err, option.ErrNotEnoughAmount) {
		t.Errorf("got %v, want ErrNotEnoughAmount", err)
	}

	if _, err := e.Buy(trader, seriesID, unit, 1000*usdc, 1); err != nil {
		t.Fatal(err)
	}

	// A sell floor above the achievable proceeds rejects.
	if _, err := e.Sell(trader, seriesID, unit, 1000*usdc, 1); !errors.Is(err, amm.ErrPremiumTooLow) {
		t.Errorf("got %v, want ErrPremiumTooLow", err)
	}
}

func TestTrade_HeldCollateralIdentity(t *testing.T) {
	e, expiryID, seriesID := newMarket(t)

	if _, err := e.Buy(trader, seriesID, 3*unit, 1000*usdc, 1); err != nil {
		t.Fatal(err)
	}
	if got := poolCollateral(t, e, expiryID); got != e.HeldCollateral() {
		t.Errorf("visible collateral %d != held %d after buy", got, e.HeldCollateral())
	}

	if _, err := e.Sell(trader, seriesID, unit, 0, 1); err != nil {
		t.Fatal(err)
	}
	if got := poolCollateral(t, e, expiryID); got != e.HeldCollateral() {
		t.Errorf("visible collateral %d != held %d after sell", got, e.HeldCollateral())
	}
}

// ============================================================================
// Test: settlement
// ============================================================================

// settleableMarket buys an option, posts the expiry round and moves time
// past the dispute period.
func settleableMarket(t *testing.T) (*amm.Engine, int64, int64, int64) {
	t.Helper()
	e, expiryID, seriesID := newMarket(t)

	if _, err := e.Buy(trader, seriesID, unit, 1000*usdc, 1); err != nil {
		t.Fatal(err)
	}
	// Expiry round: spot finished at 1100, the call pays 100 per unit.
	if err := e.RecordSpot(2, 1100*price, day+10); err != nil {
		t.Fatal(err)
	}
	now := day + 10 + oracle.DisputePeriod
	return e, expiryID, seriesID, now
}

func TestSettle_FoldsPayoutAndFees(t *testing.T) {
	e, expiryID, _, now := settleableMarket(t)

	heldBefore := e.HeldCollateral()
	res, err := e.Settle(expiryID, now)
	if err != nil {
		t.Fatal(err)
	}

	if res.ExpiryPrice != 1100*price {
		t.Errorf("expiry price %d", res.ExpiryPrice)
	}
	// 1 option ITM by 100: holders are owed 100 collateral.
	if res.TotalPayout != 100*usdc {
		t.Errorf("payout %d, want %d", res.TotalPayout, 100*usdc)
	}
	if res.TotalRefund <= 0 {
		t.Errorf("refund %d, want > 0", res.TotalRefund)
	}
	if res.FeesFolded <= 0 {
		t.Errorf("fees folded %d, want > 0", res.FeesFolded)
	}
	if e.HeldCollateral() != heldBefore+res.TotalRefund {
		t.Errorf("held moved by %d, want %d", e.HeldCollateral()-heldBefore, res.TotalRefund)
	}

	// The curve for the expiry is inert afterwards.
	if _, err := e.IV(expiryID); !errors.Is(err, amm.ErrUnknownCurve) {
		t.Errorf("got %v, want ErrUnknownCurve", err)
	}
}

func TestSettle_Idempotence(t *testing.T) {
	e, expiryID, _, now := settleableMarket(t)

	if _, err := e.Settle(expiryID, now); err != nil {
		t.Fatal(err)
	}
	heldAfterFirst := e.HeldCollateral()

	if _, err := e.Settle(expiryID, now); !errors.Is(err, pool.ErrAlreadySettled) {
		t.Fatalf("got %v, want ErrAlreadySettled", err)
	}
	if e.HeldCollateral() != heldAfterFirst {
		t.Error("second settle moved balances")
	}
}

func TestSettle_RequiresFinalizedPrice(t *testing.T) {
	e, expiryID, _, _ := settleableMarket(t)

	if _, err := e.Settle(expiryID, day+10+oracle.DisputePeriod-1); !errors.Is(err, oracle.ErrNotFinalized) {
		t.Errorf("got %v, want ErrNotFinalized", err)
	}
}

func TestSettle_RequiresNeutralHedge(t *testing.T) {
	e, expiryID, _, now := settleableMarket(t)

	if err := e.SetBot(operator, "bot-1"); err != nil {
		t.Fatal(err)
	}
	if err := e.Hedge("bot-1", expiryID, unit); err != nil {
		t.Fatal(err)
	}

	if _, err := e.Settle(expiryID, now); !errors.Is(err, option.ErrHedgeNotNeutral) {
		t.Fatalf("got %v, want ErrHedgeNotNeutral", err)
	}

	// Unwinding the hedge unblocks settlement.
	if err := e.Hedge("bot-1", expiryID, -unit); err != nil {
		t.Fatal(err)
	}
	if _, err := e.Settle(expiryID, now); err != nil {
		t.Errorf("settle after unwind: %v", err)
	}
}

func TestSettle_LPExitBoundedLoss(t *testing.T) {
	e, expiryID, _, now := settleableMarket(t)

	if _, err := e.Settle(expiryID, now); err != nil {
		t.Fatal(err)
	}

	// The LP's full exit returns the deposit plus retained premium and fees
	// minus the holders' payout; with a 100-ITM settlement against ~20 of
	// premium income the pool took a loss but stays solvent.
	w, err := e.Withdraw(lp, 5000*usdc, 0, pool.GenRangeID(10, 12), false, now+amm.LockupPeriod)
	if err != nil {
		t.Fatal(err)
	}
	if w.Withdrawn <= 4800*usdc || w.Withdrawn >= 5000*usdc {
		t.Errorf("LP exit %d, want a bounded loss below the 5000 deposit", w.Withdrawn)
	}
	if e.HeldCollateral() < 0 {
		t.Errorf("held collateral negative: %d", e.HeldCollateral())
	}
}

func TestSettle_DeepITMCappedByCollateral(t *testing.T) {
	e, expiryID, seriesID := newMarket(t)

	if _, err := e.Buy(trader, seriesID, unit, 1000*usdc, 1); err != nil {
		t.Fatal(err)
	}
	// Expiry round at 10000: the call is 9000 in the money, far past the
	// locked margin plus retained premium backing it.
	if err := e.RecordSpot(2, 10_000*price, day+10); err != nil {
		t.Fatal(err)
	}
	now := day + 10 + oracle.DisputePeriod

	res, err := e.Settle(expiryID, now)
	if err != nil {
		t.Fatal(err)
	}

	// Holders receive the position's collateral, no more; the rest of the
	// intrinsic 9000 is reported as shortfall.
	if res.TotalPayout <= 0 {
		t.Errorf("payout %d, want > 0", res.TotalPayout)
	}
	if res.TotalRefund != 0 {
		t.Errorf("refund %d, want 0 from an insolvent position", res.TotalRefund)
	}
	if res.TotalPayout+res.TotalShortfall != 9000*usdc {
		t.Errorf("payout %d + shortfall %d, want %d together",
			res.TotalPayout, res.TotalShortfall, 9000*usdc)
	}

	ticks, err := e.GetTicks(pool.MinTick, pool.MaxTick)
	if err != nil {
		t.Fatal(err)
	}
	for i, tk := range ticks {
		if tk.Balance < 0 {
			t.Errorf("tick %d balance %d, want >= 0", int(pool.MinTick)+i, tk.Balance)
		}
	}
	if e.HeldCollateral() < 0 {
		t.Errorf("held collateral %d, want >= 0", e.HeldCollateral())
	}

	w, err := e.GetWithdrawableAmount(10, 12, 5000*usdc)
	if err != nil {
		t.Fatal(err)
	}
	if w < 0 {
		t.Errorf("full-exit quote %d, want >= 0", w)
	}
}

// ============================================================================
// Test: operator controls
// ============================================================================

func TestEmergencyMode(t *testing.T) {
	e, _, seriesID := newMarket(t)

	if err := e.ChangeState(trader, true); !errors.Is(err, amm.ErrNotOperator) {
		t.Fatalf("non-operator toggled state: %v", err)
	}
	if err := e.ChangeState(operator, true); err != nil {
		t.Fatal(err)
	}

	if _, err := e.Buy(trader, seriesID, unit, 1000*usdc, 1); !errors.Is(err, amm.ErrEmergencyMode) {
		t.Errorf("buy: got %v", err)
	}
	if _, err := e.Deposit(lp, 1000*usdc, 1000*usdc, 10, 12, 1); !errors.Is(err, amm.ErrEmergencyMode) {
		t.Errorf("deposit: got %v", err)
	}

	// Withdrawals keep working so LPs can exit.
	if _, err := e.Withdraw(lp, 5000*usdc, 0, pool.GenRangeID(10, 12), false, amm.LockupPeriod); err != nil {
		t.Errorf("withdraw under emergency: %v", err)
	}

	if err := e.ChangeState(operator, false); err != nil {
		t.Fatal(err)
	}
}

func TestSetConfig(t *testing.T) {
	e := newEngine(t)

	if err := e.SetConfig(trader, amm.ConfigMinDelta, 0); !errors.Is(err, amm.ErrNotOperator) {
		t.Errorf("non-operator: got %v", err)
	}
	if err := e.SetConfig(operator, "NO_SUCH_KEY", 1); !errors.Is(err, amm.ErrUnknownConfigKey) {
		t.Errorf("unknown key: got %v", err)
	}

	if err := e.SetConfig(operator, amm.ConfigBaseSpread, 2_000_000); err != nil {
		t.Fatal(err)
	}
	got, err := e.GetConfig(amm.ConfigBaseSpread)
	if err != nil {
		t.Fatal(err)
	}
	if got != 2_000_000 {
		t.Errorf("got %d", got)
	}
}

func TestSetNewOperator(t *testing.T) {
	e := newEngine(t)

	if err := e.SetNewOperator(operator, "operator-2"); err != nil {
		t.Fatal(err)
	}
	// The old operator lost the role.
	if err := e.SetConfig(operator, amm.ConfigMinDelta, 0); !errors.Is(err, amm.ErrNotOperator) {
		t.Errorf("got %v", err)
	}
	if err := e.SetConfig("operator-2", amm.ConfigMinDelta, 0); err != nil {
		t.Errorf("new operator rejected: %v", err)
	}
}

func TestHedge_RequiresBotOrOperator(t *testing.T) {
	e, expiryID, _ := newMarket(t)

	if err := e.Hedge(trader, expiryID, unit); !errors.Is(err, amm.ErrNotOperator) {
		t.Errorf("got %v", err)
	}
	if err := e.Hedge(operator, expiryID, unit); err != nil {
		t.Errorf("operator hedge: %v", err)
	}
}

func TestGetLiveOptionSerieses(t *testing.T) {
	e, expiryID, _ := newMarket(t)

	live := e.GetLiveOptionSerieses(1)
	if len(live) != 1 || live[0].ExpiryID != expiryID {
		t.Fatalf("live = %+v", live)
	}
	if len(e.GetLiveOptionSerieses(day)) != 0 {
		t.Error("expired board still listed")
	}
}
