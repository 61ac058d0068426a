package pool

import (
	"errors"

	fpmath "OptionAMM/internal/math"
)

// SecondsPerLiquidityScale fixes the precision of the time-weighted
// accumulator: elapsed seconds are scaled by 1e12 before dividing by supply.
const SecondsPerLiquidityScale int64 = 1_000_000_000_000

var (
	ErrMintNotMultiple    = errors.New("PoolLib: mint is not multiples of range length")
	ErrBurnNotMultiple    = errors.New("PoolLib: burn is not multiples of range length")
	ErrNoWithdrawBalance  = errors.New("AMMLib: no enough balance to withdraw")
	ErrNotEnoughLPTokens  = errors.New("AMM: msg.sender doesn't have enough LP tokens")
	ErrLockedUp           = errors.New("AMM: liquidity is locked up")
	ErrWithdrawablePeriod = errors.New("AMM: withdrawable period must have passed")
	ErrNotReserved        = errors.New("AMM: burnAmount must be reserved")
	ErrAmountTooLarge     = errors.New("AMM: amount is too large")
)

type positionKey struct {
	Account string
	RangeID int32
}

// Position is an LP's fungible share balance in one range, plus the lockup
// stamp and any pending withdrawal reservation.
type Position struct {
	Shares        int64 `json:"shares"`
	LastDepositAt int64 `json:"last_deposit_at"`
	Reserved      int64 `json:"reserved"`
	ReservedAt    int64 `json:"reserved_at"`
}

// Ledger owns the tick arena and all LP positions. It is not safe for
// concurrent use; the engine serializes access.
type Ledger struct {
	ticks     [MaxTick + 1]Tick // index 1..MaxTick, slot 0 unused
	positions map[positionKey]*Position
}

func NewLedger() *Ledger {
	return &Ledger{
		positions: make(map[positionKey]*Position),
	}
}

// Tick returns a copy of the tick at index i.
func (l *Ledger) Tick(i int32) Tick {
	return l.ticks[i]
}

// Ticks returns copies of the ticks in [lower, upper).
func (l *Ledger) Ticks(lower, upper int32) ([]Tick, error) {
	if err := ValidateRange(lower, upper); err != nil {
		return nil, err
	}
	out := make([]Tick, 0, upper-lower)
	for i := lower; i < upper; i++ {
		out = append(out, l.ticks[i])
	}
	return out, nil
}

// ============================================================================
// Share math
// ============================================================================

// GetMintAmount returns the LP shares minted for depositAmount of collateral
// spread evenly over [lower, upper). The first deposit into an empty tick
// mints 1:1; afterwards shares dilute against the tick's current balance so
// already-accrued profit stays with earlier depositors. View only.
func (l *Ledger) GetMintAmount(lower, upper int32, depositAmount int64) (int64, error) {
	if err := ValidateRange(lower, upper); err != nil {
		return 0, err
	}
	length := int64(upper - lower)
	if depositAmount <= 0 || depositAmount%length != 0 {
		return 0, ErrMintNotMultiple
	}

	perTick := depositAmount / length
	var shares int64
	for i := lower; i < upper; i++ {
		t := &l.ticks[i]
		if t.Supply == 0 || t.Balance == 0 {
			shares += perTick
			continue
		}
		shares += fpmath.MulDiv(perTick, t.Supply, t.Balance, false)
	}
	return shares, nil
}

// GetDepositAmount returns the collateral required to mint mintShares over
// [lower, upper), rounded up per tick. View only.
func (l *Ledger) GetDepositAmount(lower, upper int32, mintShares int64) (int64, error) {
	if err := ValidateRange(lower, upper); err != nil {
		return 0, err
	}
	length := int64(upper - lower)
	if mintShares <= 0 || mintShares%length != 0 {
		return 0, ErrMintNotMultiple
	}

	perTick := mintShares / length
	var amount int64
	for i := lower; i < upper; i++ {
		t := &l.ticks[i]
		if t.Supply == 0 || t.Balance == 0 {
			amount += perTick
			continue
		}
		amount += fpmath.MulDiv(perTick, t.Balance, t.Supply, true)
	}
	return amount, nil
}

// GetWithdrawableAmount returns the collateral burnShares redeems over
// [lower, upper), rounded down per tick. View only.
func (l *Ledger) GetWithdrawableAmount(lower, upper int32, burnShares int64) (int64, error) {
	if err := ValidateRange(lower, upper); err != nil {
		return 0, err
	}
	length := int64(upper - lower)
	if burnShares <= 0 || burnShares%length != 0 {
		return 0, ErrBurnNotMultiple
	}

	perTick := burnShares / length
	var amount int64
	for i := lower; i < upper; i++ {
		t := &l.ticks[i]
		if t.Supply == 0 {
			return 0, ErrNoWithdrawBalance
		}
		amount += fpmath.MulDiv(perTick, t.Balance, t.Supply, false)
	}
	return amount, nil
}

// AddBalance mints mintShares over [lower, upper) and returns the collateral
// deposited. Shares dilute against each tick's current balance.
func (l *Ledger) AddBalance(lower, upper int32, mintShares, now int64) (int64, error) {
	deposit, err := l.GetDepositAmount(lower, upper, mintShares)
	if err != nil {
		return 0, err
	}

	length := int64(upper - lower)
	perTickShares := mintShares / length
	for i := lower; i < upper; i++ {
		t := &l.ticks[i]
		l.refreshSecondsPerLiquidity(t, now)

		var perTickDeposit int64
		if t.Supply == 0 || t.Balance == 0 {
			perTickDeposit = perTickShares
		} else {
			perTickDeposit = fpmath.MulDiv(perTickShares, t.Balance, t.Supply, true)
		}

		t.Supply += perTickShares
		t.Balance += perTickDeposit
	}
	return deposit, nil
}

// RemoveBalance burns burnShares over [lower, upper) and returns the
// collateral withdrawn.
func (l *Ledger) RemoveBalance(lower, upper int32, burnShares, now int64) (int64, error) {
	if err := ValidateRange(lower, upper); err != nil {
		return 0, err
	}
	length := int64(upper - lower)
	if burnShares <= 0 || burnShares%length != 0 {
		return 0, ErrBurnNotMultiple
	}

	perTickShares := burnShares / length

	// Validate every tick before mutating any.
	withdrawals := make([]int64, upper-lower)
	for i := lower; i < upper; i++ {
		t := &l.ticks[i]
		if t.Supply < perTickShares {
			return 0, ErrNoWithdrawBalance
		}
		w := fpmath.MulDiv(perTickShares, t.Balance, t.Supply, false)
		if t.Balance < w {
			return 0, ErrNoWithdrawBalance
		}
		withdrawals[i-lower] = w
	}

	var total int64
	for i := lower; i < upper; i++ {
		t := &l.ticks[i]
		l.refreshSecondsPerLiquidity(t, now)

		t.Supply -= perTickShares
		t.Balance -= withdrawals[i-lower]
		total += withdrawals[i-lower]
	}
	return total, nil
}

// ============================================================================
// Margin lock accounting
// ============================================================================

// Lock moves free collateral out of a tick to back an option position.
func (l *Ledger) Lock(tick int32, amount int64) error {
	t := &l.ticks[tick]
	if t.Balance < amount {
		return ErrAmountTooLarge
	}
	t.Balance -= amount
	t.Locked += amount
	return nil
}

// Unlock returns collateral into a tick. delta adjusts the returned amount
// relative to what was locked (positive: the tick gained, negative: lost).
func (l *Ledger) Unlock(tick int32, locked, delta int64) {
	t := &l.ticks[tick]
	t.Locked -= locked
	t.Balance += locked + delta
}

// Credit adds collateral to a tick's free balance without touching Locked.
func (l *Ledger) Credit(tick int32, amount int64) {
	l.ticks[tick].Balance += amount
}

// Utilization returns locked/(locked+free) for a tick as a 1e8 ratio.
func (l *Ledger) Utilization(tick int32) int64 {
	t := &l.ticks[tick]
	total := t.Locked + t.Balance
	if total == 0 {
		return 0
	}
	return fpmath.MulDiv(t.Locked, fpmath.RatioScale, total, false)
}

// RangeBalance sums free balances over [lower, upper).
func (l *Ledger) RangeBalance(lower, upper int32) int64 {
	var sum int64
	for i := lower; i < upper; i++ {
		sum += l.ticks[i].Balance
	}
	return sum
}

// TotalLocked sums locked collateral over all ticks.
func (l *Ledger) TotalLocked() int64 {
	var sum int64
	for i := MinTick; i <= MaxTick; i++ {
		sum += l.ticks[i].Locked
	}
	return sum
}

// ============================================================================
// Seconds-per-liquidity accumulator
// ============================================================================

func (l *Ledger) refreshSecondsPerLiquidity(t *Tick, now int64) {
	if t.Supply > 0 && now > t.LastUpdatedAt {
		elapsed := now - t.LastUpdatedAt
		t.SecondsPerLiquidity += fpmath.MulDiv(elapsed, SecondsPerLiquidityScale, t.Supply, false)
	}
	t.LastUpdatedAt = now
}

// GetSecondsPerLiquidity returns the accumulator summed over [lower, upper),
// projected to now. View only.
func (l *Ledger) GetSecondsPerLiquidity(lower, upper int32, now int64) (int64, error) {
	if err := ValidateRange(lower, upper); err != nil {
		return 0, err
	}
	var sum int64
	for i := lower; i < upper; i++ {
		t := l.ticks[i]
		sum += t.SecondsPerLiquidity
		if t.Supply > 0 && now > t.LastUpdatedAt {
			sum += fpmath.MulDiv(now-t.LastUpdatedAt, SecondsPerLiquidityScale, t.Supply, false)
		}
	}
	return sum, nil
}

// ============================================================================
// LP positions
// ============================================================================

// PositionOf returns a copy of the LP's position for a range. The zero value
// is returned for an unknown position.
func (l *Ledger) PositionOf(account string, rangeID int32) Position {
	if p, ok := l.positions[positionKey{account, rangeID}]; ok {
		return *p
	}
	return Position{}
}

// MintPosition credits shares to an LP and stamps the lockup clock.
func (l *Ledger) MintPosition(account string, rangeID int32, shares, now int64) {
	key := positionKey{account, rangeID}
	p, ok := l.positions[key]
	if !ok {
		p = &Position{}
		l.positions[key] = p
	}
	p.Shares += shares
	p.LastDepositAt = now
}

// Reserve pre-commits shares for a future withdrawal. Repeated calls
// accumulate, clamped to the position balance.
func (l *Ledger) Reserve(account string, rangeID int32, shares, now int64) error {
	p, ok := l.positions[positionKey{account, rangeID}]
	if !ok || shares > p.Shares {
		return ErrNotEnoughLPTokens
	}
	p.Reserved = fpmath.Min(p.Reserved+shares, p.Shares)
	p.ReservedAt = now
	return nil
}

// BurnPosition debits shares from an LP, enforcing either the lockup period
// (ordinary path) or the reservation window (useReservation path). A
// reservation must be consumed exactly, not partially.
func (l *Ledger) BurnPosition(account string, rangeID int32, shares int64, useReservation bool,
	now, lockupPeriod, withdrawablePeriod int64, skipLockup bool) error {

	p, ok := l.positions[positionKey{account, rangeID}]
	if !ok || p.Shares < shares {
		return ErrNotEnoughLPTokens
	}

	if useReservation {
		if p.Reserved == 0 || shares != p.Reserved {
			return ErrNotReserved
		}
		if now < p.ReservedAt+withdrawablePeriod {
			return ErrWithdrawablePeriod
		}
		p.Reserved = 0
	} else {
		if !skipLockup && now < p.LastDepositAt+lockupPeriod {
			return ErrLockedUp
		}
		if p.Shares-p.Reserved < shares {
			return ErrNotEnoughLPTokens
		}
	}

	p.Shares -= shares
	return nil
}
