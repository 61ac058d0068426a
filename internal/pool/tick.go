// Package pool implements the tick-indexed liquidity ledger: per-tick
// supply/balance accounting, range share math that dilutes new deposits
// against accrued profit, withdrawal reservations and lockups, and per
// (tick, expiry) profit state.
package pool

import "errors"

const (
	// MinTick and MaxTick bound the valid tick index range. Tick 0 is
	// invalid by construction.
	MinTick int32 = 1
	MaxTick int32 = 30
)

var (
	ErrRangeOrder   = errors.New("AMM: end must be greater than start")
	ErrTickTooLarge = errors.New("AMM: tick must be less than MAX")
	ErrTickTooSmall = errors.New("AMM: start must be greater than MIN")
)

// Tick is one liquidity bucket. Supply counts LP share units, Balance holds
// free collateral (6 decimals). New deposits mint shares against the current
// balance, so a depositor never captures profit accrued before their deposit.
// Locked is collateral currently pledged as margin for open option positions
// written out of this tick.
type Tick struct {
	Supply              int64 `json:"supply"`
	Balance             int64 `json:"balance"`
	Locked              int64 `json:"locked"`
	SecondsPerLiquidity int64 `json:"seconds_per_liquidity"`
	LastUpdatedAt       int64 `json:"last_updated_at"`
}

// ValidateRange checks [lower, upper) is a well-formed tick range.
func ValidateRange(lower, upper int32) error {
	if upper <= lower {
		return ErrRangeOrder
	}
	if upper > MaxTick {
		return ErrTickTooLarge
	}
	if lower < MinTick {
		return ErrTickTooSmall
	}
	return nil
}

// GenRangeID derives the deterministic position identifier for a range.
// With MaxTick < 100 the encoding lower*100+upper is collision-free.
func GenRangeID(lower, upper int32) int32 {
	return lower*100 + upper
}

// ParseRangeID is the inverse of GenRangeID.
func ParseRangeID(rangeID int32) (lower, upper int32, err error) {
	lower = rangeID / 100
	upper = rangeID % 100
	if err := ValidateRange(lower, upper); err != nil {
		return 0, 0, err
	}
	return lower, upper, nil
}
