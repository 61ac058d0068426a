package amm

import (
	fpmath "OptionAMM/internal/math"
	"OptionAMM/internal/option"
	"OptionAMM/internal/pricing"
)

// Segment is one tick's contribution to a trade: the size filled there, the
// margin locked (buys) or released (sells), the IV interval consumed and the
// raw premium quoted over it.
type Segment struct {
	Tick    int32
	Size    int64 // 8 decimals
	Margin  int64 // 6 decimals
	IVStart int64
	IVEnd   int64
	Premium int64 // 6 decimals
}

// Plan is a fully priced walk, produced without mutating state. Commit
// applies it; CalculatePremium discards it after reading the totals.
type Plan struct {
	SeriesID   int64
	ExpiryID   int64
	IsSell     bool
	Size       int64
	Spot       int64
	Segments   []Segment
	RawPremium int64 // 6 decimals, sum over segments
	FinalIV    int64
}

// segPremium converts a per-unit premium (8 decimals) into the collateral
// owed for a segment. Buys round against the trader, sells in the pool's
// favor.
func segPremium(size, perUnit int64, isSell bool) int64 {
	premium8 := fpmath.MulDiv(size, perUnit, fpmath.AmountScale, !isSell)
	return fpmath.MulDiv(premium8, 1, 100, !isSell)
}

// planBuy walks the IV frontier upward, locking margin out of each touched
// tick until the full size is priced. The walk fails if it would push the
// frontier past the top of the tick arena.
func (e *Engine) planBuy(s option.Series, expiry option.Expiry, size, spot, now int64) (*Plan, error) {
	iv, err := e.curve.IV(s.ExpiryID)
	if err != nil {
		return nil, err
	}
	maturity := expiry.Timestamp - now

	plan := &Plan{SeriesID: s.SeriesID, ExpiryID: s.ExpiryID, Size: size, Spot: spot}
	remaining := size

	// The plan must not observe its own unlocked margin twice when the walk
	// touches a tick more than once.
	planned := make(map[int32]int64)

	for remaining > 0 {
		tick := buyTickFor(iv)
		if err := validWalkTick(tick); err != nil {
			return nil, err
		}

		t := e.ledger.Tick(tick)
		capacity := t.Locked + t.Balance
		free := t.Balance - planned[tick]

		marginAll := option.RequiredMargin(spot, s, remaining)
		roomIV := bandTop(tick) - iv
		marginToTop := fpmath.MulDiv(capacity, roomIV, TickWidth, false)
		bound := fpmath.Min(free, marginToTop)

		if bound <= 0 {
			// Nothing to write here: jump to the next band.
			iv = bandTop(tick)
			continue
		}

		var segSize, margin int64
		if marginAll <= bound {
			segSize = remaining
			margin = marginAll
		} else {
			margin = bound
			segSize = fpmath.MulDiv(remaining, bound, marginAll, false)
			if segSize == 0 {
				// The tick's remaining capacity cannot fit a whole unit
				// of granularity; skip the sliver.
				iv = bandTop(tick)
				continue
			}
		}

		ivEnd := iv + ivMove(margin, capacity)
		if margin == marginToTop || ivEnd > bandTop(tick) {
			ivEnd = bandTop(tick)
		}

		perUnit, err := pricing.CalculatePrice2(spot, s.Strike, maturity, iv, ivEnd, s.IsPut, e.cfg.MinDelta)
		if err != nil {
			return nil, err
		}
		premium := segPremium(segSize, perUnit, false)

		plan.Segments = append(plan.Segments, Segment{
			Tick:    tick,
			Size:    segSize,
			Margin:  margin,
			IVStart: iv,
			IVEnd:   ivEnd,
			Premium: premium,
		})
		plan.RawPremium += premium
		planned[tick] += margin
		remaining -= segSize
		iv = ivEnd
	}

	plan.FinalIV = iv
	return plan, nil
}

// planSell walks the IV frontier downward, unwinding the pool's written
// positions tick by tick. The IV decrease per unit of released margin is
// damped by IVMoveDecreaseRatio. The walk fails if it runs off the bottom
// of the arena before the size is filled.
func (e *Engine) planSell(s option.Series, expiry option.Expiry, size, spot, now int64) (*Plan, error) {
	iv, err := e.curve.IV(s.ExpiryID)
	if err != nil {
		return nil, err
	}
	maturity := expiry.Timestamp - now

	plan := &Plan{SeriesID: s.SeriesID, ExpiryID: s.ExpiryID, IsSell: true, Size: size, Spot: spot}
	remaining := size

	for remaining > 0 {
		tick := sellTickFor(iv)
		if err := validWalkTick(tick); err != nil {
			return nil, err
		}

		written := e.vault.Written(tick, s.SeriesID)
		if written.Size == 0 {
			// Nothing was written from this tick; descend.
			iv = bandBottom(tick)
			continue
		}

		segSize := fpmath.Min(remaining, written.Size)
		margin := fpmath.MulDiv(written.Locked, segSize, written.Size, false)

		t := e.ledger.Tick(tick)
		capacity := t.Locked + t.Balance

		drop := fpmath.MulDiv(ivMove(margin, capacity), e.cfg.IVMoveDecreaseRatio, fpmath.RatioScale, false)
		ivEnd := fpmath.Max(iv-drop, bandBottom(tick))

		perUnit, err := pricing.CalculatePrice2(spot, s.Strike, maturity, ivEnd, iv, s.IsPut, e.cfg.MinDelta)
		if err != nil {
			return nil, err
		}
		premium := segPremium(segSize, perUnit, true)

		plan.Segments = append(plan.Segments, Segment{
			Tick:    tick,
			Size:    segSize,
			Margin:  margin,
			IVStart: iv,
			IVEnd:   ivEnd,
			Premium: premium,
		})
		plan.RawPremium += premium
		remaining -= segSize
		iv = ivEnd

		if remaining > 0 && segSize == written.Size {
			// This tick's book is exhausted; descend past its band.
			iv = bandBottom(tick)
		}
	}

	plan.FinalIV = iv
	return plan, nil
}
