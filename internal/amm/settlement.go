package amm

import (
	"OptionAMM/internal/oracle"
	"OptionAMM/internal/pool"
)

// SettlementResult reports a committed expiry settlement.
type SettlementResult struct {
	ExpiryID       int64
	ExpiryPrice    int64
	TotalPayout    int64 // collateral paid to option holders
	TotalRefund    int64 // collateral returned into tick balances
	TotalShortfall int64 // payout demand not covered by position collateral
	FeesFolded     int64 // accrued fees moved from profit state into balances
}

// Settle finalizes an expiry: every written position under it is closed at
// the finalized expiry price, locked collateral net of holder payouts flows
// back into tick balances, and each tick's accrued fee state folds in and
// retires. Requirements: the oracle price must be past its dispute period
// and the expiry's hedge book must be fully unwound. Settling an expiry a
// second time fails.
func (e *Engine) Settle(expiryID, now int64) (*SettlementResult, error) {
	expiry, err := e.vault.Expiry(expiryID)
	if err != nil {
		return nil, err
	}
	if e.profit.Settled(pool.MinTick, expiryID) {
		return nil, pool.ErrAlreadySettled
	}

	price, finalized, err := e.feed.GetExpiryPrice(expiry.Timestamp, now)
	if err != nil {
		return nil, err
	}
	if !finalized {
		return nil, oracle.ErrNotFinalized
	}
	if err := e.vault.RequireNeutralHedge(expiryID); err != nil {
		return nil, err
	}

	refunds, err := e.vault.SettleExpiry(expiryID, price)
	if err != nil {
		return nil, err
	}

	result := &SettlementResult{ExpiryID: expiryID, ExpiryPrice: price}
	for _, r := range refunds {
		if err := e.profit.AddPayout(r.Tick, expiryID, r.Payout); err != nil {
			e.log.Panic().Err(err).Int32("tick", r.Tick).Msg("payout accrual on settled expiry")
		}
		e.ledger.Unlock(r.Tick, r.Locked, r.Refund-r.Locked)
		e.held += r.Refund
		result.TotalPayout += r.Payout
		result.TotalRefund += r.Refund
		result.TotalShortfall += r.Shortfall
	}

	// Fold each tick's accrued fees into its balance and retire the
	// (tick, expiry) profit state. Every tick is marked settled so the
	// expiry is terminal across the whole arena.
	for tick := pool.MinTick; tick <= pool.MaxTick; tick++ {
		fee, _, err := e.profit.Settle(tick, expiryID)
		if err != nil {
			e.log.Panic().Err(err).Int32("tick", tick).Msg("double settle past guard")
		}
		e.ledger.Credit(tick, fee)
		result.FeesFolded += fee
	}

	e.curve.Drop(expiryID)
	e.checkInvariant("settle")

	logEvent := e.log.Info()
	if result.TotalShortfall > 0 {
		logEvent = e.log.Warn()
	}
	logEvent.
		Int64("expiry_id", expiryID).
		Int64("price", price).
		Int64("payout", result.TotalPayout).
		Int64("refund", result.TotalRefund).
		Int64("shortfall", result.TotalShortfall).
		Int64("fees", result.FeesFolded).
		Msg("expiry settled")

	return result, nil
}
