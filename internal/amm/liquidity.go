package amm

import (
	"OptionAMM/internal/pool"
)

// DepositResult reports a committed deposit.
type DepositResult struct {
	Account   string
	RangeID   int32
	Shares    int64
	Deposited int64
}

// Deposit mints mintAmount LP shares over [lower, upper) and pulls the
// required collateral, capped at maxDeposit. The lockup clock restarts for
// the caller's whole position in that range.
func (e *Engine) Deposit(account string, mintAmount, maxDeposit int64, lower, upper int32, now int64) (*DepositResult, error) {
	if e.emergency {
		return nil, ErrEmergencyMode
	}
	if mintAmount == 0 {
		return nil, ErrZeroAmount
	}
	if e.depositAllowedUntil != 0 && now > e.depositAllowedUntil {
		return nil, ErrDepositNotAllowed
	}

	required, err := e.ledger.GetDepositAmount(lower, upper, mintAmount)
	if err != nil {
		return nil, err
	}
	if required > maxDeposit {
		return nil, ErrDepositExceedsMax
	}

	deposited, err := e.ledger.AddBalance(lower, upper, mintAmount, now)
	if err != nil {
		return nil, err
	}

	rangeID := pool.GenRangeID(lower, upper)
	e.ledger.MintPosition(account, rangeID, mintAmount, now)
	e.held += deposited
	e.checkInvariant("deposit")

	e.log.Info().
		Str("account", account).
		Int32("range_id", rangeID).
		Int64("shares", mintAmount).
		Int64("deposited", deposited).
		Msg("deposit")

	return &DepositResult{Account: account, RangeID: rangeID, Shares: mintAmount, Deposited: deposited}, nil
}

// WithdrawResult reports a committed withdrawal.
type WithdrawResult struct {
	Account   string
	RangeID   int32
	Shares    int64
	Withdrawn int64
}

// Withdraw burns burnAmount LP shares and pays out the redeemed collateral.
// The ordinary path enforces the lockup period; the reservation path
// requires a matured reservation for exactly burnAmount. minAmount guards
// against share-price slippage between quote and execution.
func (e *Engine) Withdraw(account string, burnAmount, minAmount int64, rangeID int32, useReservation bool, now int64) (*WithdrawResult, error) {
	if burnAmount == 0 {
		return nil, ErrZeroAmount
	}
	lower, upper, err := pool.ParseRangeID(rangeID)
	if err != nil {
		return nil, err
	}

	quote, err := e.ledger.GetWithdrawableAmount(lower, upper, burnAmount)
	if err != nil {
		return nil, err
	}
	if quote < minAmount {
		return nil, ErrAmountTooSmall
	}

	err = e.ledger.BurnPosition(account, rangeID, burnAmount, useReservation,
		now, LockupPeriod, WithdrawablePeriod, e.skipLockup[account])
	if err != nil {
		return nil, err
	}

	withdrawn, err := e.ledger.RemoveBalance(lower, upper, burnAmount, now)
	if err != nil {
		// BurnPosition already passed its own validation, so the share burn
		// and tick burn cannot disagree here.
		e.log.Panic().Err(err).Msg("tick burn failed after position burn")
	}

	e.held -= withdrawn
	e.checkInvariant("withdraw")

	e.log.Info().
		Str("account", account).
		Int32("range_id", rangeID).
		Int64("shares", burnAmount).
		Int64("withdrawn", withdrawn).
		Msg("withdraw")

	return &WithdrawResult{Account: account, RangeID: rangeID, Shares: burnAmount, Withdrawn: withdrawn}, nil
}

// ReserveWithdrawal pre-commits shares for a future withdrawal, opening the
// withdrawable window that bypasses the deposit lockup.
func (e *Engine) ReserveWithdrawal(account string, amount int64, rangeID int32, now int64) error {
	if amount == 0 {
		return ErrZeroAmount
	}
	if _, _, err := pool.ParseRangeID(rangeID); err != nil {
		return err
	}
	if err := e.ledger.Reserve(account, rangeID, amount, now); err != nil {
		return err
	}
	e.log.Info().
		Str("account", account).
		Int32("range_id", rangeID).
		Int64("shares", amount).
		Msg("withdrawal reserved")
	return nil
}
