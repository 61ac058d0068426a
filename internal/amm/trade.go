package amm

import (
	fpmath "OptionAMM/internal/math"
	"OptionAMM/internal/option"
)

// TradeResult reports a committed trade.
type TradeResult struct {
	Account    string
	SeriesID   int64
	ExpiryID   int64
	IsSell     bool
	Size       int64
	Spot       int64
	RawPremium int64
	Fee        TradeFee
	// Total is what the trader paid (buy) or received (sell).
	Total   int64
	IVAfter int64
}

func (e *Engine) validateTradeSize(amount int64) error {
	if amount == 0 {
		return ErrZeroAmount
	}
	if amount < MinTradeSize {
		return ErrAmountTooSmall
	}
	return nil
}

// CalculatePremium quotes a trade without mutating state: the full cost for
// a buy, the net proceeds for a sell.
func (e *Engine) CalculatePremium(seriesID, amount int64, isSell bool, now int64) (int64, error) {
	if err := e.validateTradeSize(amount); err != nil {
		return 0, err
	}
	s, expiry, err := e.seriesAndExpiry(seriesID)
	if err != nil {
		return 0, err
	}
	spot, err := e.feed.QuotePrice(now, isSell)
	if err != nil {
		return 0, err
	}

	var plan *Plan
	if isSell {
		plan, err = e.planSell(s, expiry, amount, spot, now)
	} else {
		plan, err = e.planBuy(s, expiry, amount, spot, now)
	}
	if err != nil {
		return 0, err
	}

	fee := e.cfg.FeeModel().Calculate(plan.RawPremium, amount, spot)
	if isSell {
		return plan.RawPremium - fee.Total(), nil
	}
	return plan.RawPremium + fee.Total(), nil
}

// Buy fills a long option order. The trader pays raw premium plus fees,
// capped by maxFee; each touched tick locks margin into the vault against
// the options written out of it, and the IV frontier moves up.
func (e *Engine) Buy(account string, seriesID, amount, maxFee, now int64) (*TradeResult, error) {
	if e.emergency {
		return nil, ErrEmergencyMode
	}
	if err := e.validateTradeSize(amount); err != nil {
		return nil, err
	}
	s, expiry, err := e.seriesAndExpiry(seriesID)
	if err != nil {
		return nil, err
	}
	spot, err := e.feed.QuotePrice(now, false)
	if err != nil {
		return nil, err
	}

	plan, err := e.planBuy(s, expiry, amount, spot, now)
	if err != nil {
		return nil, err
	}

	fee := e.cfg.FeeModel().Calculate(plan.RawPremium, amount, spot)
	total := plan.RawPremium + fee.Total()
	if total > maxFee {
		return nil, ErrFeeExceedsMax
	}

	// Commit. The plan was computed against current state under the
	// engine's single-writer discipline, so per-segment failures here are
	// bugs, not input errors.
	poolFees := allocateBySize(plan.Segments, fee.PoolFee())
	for i, seg := range plan.Segments {
		if err := e.ledger.Lock(seg.Tick, seg.Margin); err != nil {
			e.log.Panic().Err(err).Int32("tick", seg.Tick).Msg("margin lock failed after plan")
		}
		e.vault.OpenShort(seg.Tick, seriesID, seg.Size, seg.Margin, seg.Premium)
		if err := e.profit.AddFee(seg.Tick, s.ExpiryID, poolFees[i]); err != nil {
			e.log.Panic().Err(err).Int32("tick", seg.Tick).Msg("fee accrual on settled expiry")
		}
		e.held -= seg.Margin
	}
	e.held += fee.PoolFee()
	e.protocolFees += fee.ProtocolFee
	e.vault.MintLong(account, seriesID, amount)
	e.curve.Set(s.ExpiryID, plan.FinalIV)
	e.checkInvariant("buy")

	e.log.Info().
		Str("account", account).
		Int64("series_id", seriesID).
		Int64("size", amount).
		Int64("premium", plan.RawPremium).
		Int64("total", total).
		Int64("iv", plan.FinalIV).
		Msg("buy")

	return &TradeResult{
		Account:    account,
		SeriesID:   seriesID,
		ExpiryID:   s.ExpiryID,
		Size:       amount,
		Spot:       spot,
		RawPremium: plan.RawPremium,
		Fee:        fee,
		Total:      total,
		IVAfter:    plan.FinalIV,
	}, nil
}

// Sell unwinds a trader's long position back into the pool. The pool buys
// the options back at the walked-down premium minus fees, floored by
// minFee; released margin and retained premium flow back into tick
// balances, and the IV frontier moves down at the damped rate.
func (e *Engine) Sell(account string, seriesID, amount, minFee, now int64) (*TradeResult, error) {
	if e.emergency {
		return nil, ErrEmergencyMode
	}
	if err := e.validateTradeSize(amount); err != nil {
		return nil, err
	}
	s, expiry, err := e.seriesAndExpiry(seriesID)
	if err != nil {
		return nil, err
	}
	if e.vault.LongBalance(account, seriesID) < amount {
		return nil, option.ErrNotEnoughAmount
	}
	spot, err := e.feed.QuotePrice(now, true)
	if err != nil {
		return nil, err
	}

	plan, err := e.planSell(s, expiry, amount, spot, now)
	if err != nil {
		return nil, err
	}

	fee := e.cfg.FeeModel().Calculate(plan.RawPremium, amount, spot)
	proceeds := plan.RawPremium - fee.Total()
	if proceeds < minFee {
		return nil, ErrPremiumTooLow
	}

	poolFees := allocateBySize(plan.Segments, fee.PoolFee())
	for i, seg := range plan.Segments {
		locked, premium, err := e.vault.CloseShort(seg.Tick, seriesID, seg.Size)
		if err != nil {
			e.log.Panic().Err(err).Int32("tick", seg.Tick).Msg("short close failed after plan")
		}
		// The tick keeps whatever the released margin and retained premium
		// exceed the buyback cost by.
		e.ledger.Unlock(seg.Tick, locked, premium-seg.Premium)
		if err := e.profit.AddFee(seg.Tick, s.ExpiryID, poolFees[i]); err != nil {
			e.log.Panic().Err(err).Int32("tick", seg.Tick).Msg("fee accrual on settled expiry")
		}
		e.held += locked + premium - seg.Premium
	}
	e.held += fee.PoolFee()
	e.protocolFees += fee.ProtocolFee
	if err := e.vault.BurnLong(account, seriesID, amount); err != nil {
		e.log.Panic().Err(err).Msg("long burn failed after balance check")
	}
	e.curve.Set(s.ExpiryID, plan.FinalIV)
	e.checkInvariant("sell")

	e.log.Info().
		Str("account", account).
		Int64("series_id", seriesID).
		Int64("size", amount).
		Int64("premium", plan.RawPremium).
		Int64("total", proceeds).
		Int64("iv", plan.FinalIV).
		Msg("sell")

	return &TradeResult{
		Account:    account,
		SeriesID:   seriesID,
		ExpiryID:   s.ExpiryID,
		IsSell:     true,
		Size:       amount,
		Spot:       spot,
		RawPremium: plan.RawPremium,
		Fee:        fee,
		Total:      proceeds,
		IVAfter:    plan.FinalIV,
	}, nil
}

func (e *Engine) seriesAndExpiry(seriesID int64) (option.Series, option.Expiry, error) {
	s, err := e.vault.Series(seriesID)
	if err != nil {
		return option.Series{}, option.Expiry{}, err
	}
	expiry, err := e.vault.Expiry(s.ExpiryID)
	if err != nil {
		return option.Series{}, option.Expiry{}, err
	}
	return s, expiry, nil
}

// allocateBySize splits an amount across segments proportionally to size,
// assigning the rounding remainder to the last segment.
func allocateBySize(segments []Segment, amount int64) []int64 {
	out := make([]int64, len(segments))
	if len(segments) == 0 || amount == 0 {
		return out
	}
	var totalSize, assigned int64
	for _, seg := range segments {
		totalSize += seg.Size
	}
	for i, seg := range segments {
		out[i] = fpmath.MulDiv(amount, seg.Size, totalSize, false)
		assigned += out[i]
	}
	out[len(out)-1] += amount - assigned
	return out
}
