package option

import (
	"errors"
	"sort"

	fpmath "OptionAMM/internal/math"
)

// marginRatio is the collateral buffer required per unit of written option
// on top of intrinsic value: 20% of spot (calls) or strike (puts).
const marginRatio int64 = 20_000_000 // 20% as a 1e8 ratio

var (
	ErrNotEnoughAmount = errors.New("AMM: msg.sender doesn't have enough amount")
	ErrHedgeNotNeutral = errors.New("OptionLib: hedge position must be neutral")
	ErrShortTooSmall   = errors.New("option: short position smaller than close size")
)

type positionKey struct {
	Tick     int32
	SeriesID int64
}

type longKey struct {
	Account  string
	SeriesID int64
}

// WrittenPosition is the pool's short book for one (tick, series) pair:
// options written out of that tick's liquidity, the collateral locked to
// back them, and the raw premium held against them until settlement.
type WrittenPosition struct {
	Size        int64 `json:"size"`         // 8 decimals
	Locked      int64 `json:"locked"`       // 6 decimals
	PremiumPool int64 `json:"premium_pool"` // 6 decimals
}

// Vault tracks series listings, written positions, trader long balances and
// the per-expiry hedge book. Not safe for concurrent use.
type Vault struct {
	expiries map[int64]*Expiry
	series   map[int64]*Series

	nextExpiryID int64
	nextSeriesID int64

	written map[positionKey]*WrittenPosition
	longs   map[longKey]int64
	hedge   map[int64]int64 // expiryID -> underlying hedge position, 8 decimals
}

func NewVault() *Vault {
	return &Vault{
		expiries: make(map[int64]*Expiry),
		series:   make(map[int64]*Series),
		written:  make(map[positionKey]*WrittenPosition),
		longs:    make(map[longKey]int64),
		hedge:    make(map[int64]int64),
	}
}

// ============================================================================
// Margin and payout
// ============================================================================

// RequiredMargin returns the collateral (6 decimals) needed to back size
// units of a written series at the current spot, rounded up.
func RequiredMargin(spot int64, s Series, size int64) int64 {
	var intrinsic, buffer int64
	if s.IsPut {
		intrinsic = fpmath.Max(0, s.Strike-spot)
		buffer = fpmath.MulDiv(s.Strike, marginRatio, fpmath.RatioScale, true)
	} else {
		intrinsic = fpmath.Max(0, spot-s.Strike)
		buffer = fpmath.MulDiv(spot, marginRatio, fpmath.RatioScale, true)
	}
	perUnit := intrinsic + buffer
	margin := fpmath.MulDiv(size, perUnit, fpmath.AmountScale, true)
	// 8 -> 6 decimals, rounding up so the position is never under-backed.
	return fpmath.MulDiv(margin, 1, 100, true)
}

// PayoutPerUnit returns the per-unit settlement value (8 decimals) of a
// series at the finalized expiry price.
func PayoutPerUnit(s Series, expiryPrice int64) int64 {
	if s.IsPut {
		return fpmath.Max(0, s.Strike-expiryPrice)
	}
	return fpmath.Max(0, expiryPrice-s.Strike)
}

// ============================================================================
// Written positions (pool short book)
// ============================================================================

// OpenShort records options written out of a tick along with the collateral
// locked and the raw premium retained against them.
func (v *Vault) OpenShort(tick int32, seriesID, size, locked, premium int64) {
	key := positionKey{tick, seriesID}
	p, ok := v.written[key]
	if !ok {
		p = &WrittenPosition{}
		v.written[key] = p
	}
	p.Size += size
	p.Locked += locked
	p.PremiumPool += premium
}

// CloseShort unwinds size units of a written position and releases the
// proportional locked collateral and premium.
func (v *Vault) CloseShort(tick int32, seriesID, size int64) (locked, premium int64, err error) {
	key := positionKey{tick, seriesID}
	p, ok := v.written[key]
	if !ok || p.Size < size {
		return 0, 0, ErrShortTooSmall
	}

	locked = fpmath.MulDiv(p.Locked, size, p.Size, false)
	premium = fpmath.MulDiv(p.PremiumPool, size, p.Size, false)

	p.Size -= size
	p.Locked -= locked
	p.PremiumPool -= premium
	if p.Size == 0 {
		delete(v.written, key)
	}
	return locked, premium, nil
}

// Written returns a copy of the short book entry for a (tick, series) pair.
func (v *Vault) Written(tick int32, seriesID int64) WrittenPosition {
	if p, ok := v.written[positionKey{tick, seriesID}]; ok {
		return *p
	}
	return WrittenPosition{}
}

// ShortSize returns the total written size across ticks for a series.
func (v *Vault) ShortSize(seriesID int64) int64 {
	var sum int64
	for key, p := range v.written {
		if key.SeriesID == seriesID {
			sum += p.Size
		}
	}
	return sum
}

// ============================================================================
// Trader long balances
// ============================================================================

// MintLong credits a trader's option balance after a buy.
func (v *Vault) MintLong(account string, seriesID, size int64) {
	v.longs[longKey{account, seriesID}] += size
}

// BurnLong debits a trader's option balance for a sell.
func (v *Vault) BurnLong(account string, seriesID, size int64) error {
	key := longKey{account, seriesID}
	if v.longs[key] < size {
		return ErrNotEnoughAmount
	}
	v.longs[key] -= size
	if v.longs[key] == 0 {
		delete(v.longs, key)
	}
	return nil
}

// LongBalance returns a trader's option balance for a series.
func (v *Vault) LongBalance(account string, seriesID int64) int64 {
	return v.longs[longKey{account, seriesID}]
}

// ============================================================================
// Hedge book
// ============================================================================

// AddHedge adjusts the underlying hedge position for an expiry. Positive is
// long underlying.
func (v *Vault) AddHedge(expiryID, delta int64) {
	v.hedge[expiryID] += delta
	if v.hedge[expiryID] == 0 {
		delete(v.hedge, expiryID)
	}
}

// HedgePosition returns the current hedge position for an expiry.
func (v *Vault) HedgePosition(expiryID int64) int64 {
	return v.hedge[expiryID]
}

// RequireNeutralHedge gates settlement: the hedge book must be fully
// unwound before an expiry can settle.
func (v *Vault) RequireNeutralHedge(expiryID int64) error {
	if v.hedge[expiryID] != 0 {
		return ErrHedgeNotNeutral
	}
	return nil
}

// CalculateVaultDelta returns the pool's net delta exposure (8 decimals) for
// an expiry: the short book's delta (negated, the pool wrote the options)
// plus the hedge position. deltaOf supplies the per-unit option delta for a
// series at current market conditions.
func (v *Vault) CalculateVaultDelta(expiryID int64, deltaOf func(s Series) int64) int64 {
	var total int64
	for key, p := range v.written {
		s, ok := v.series[key.SeriesID]
		if !ok || s.ExpiryID != expiryID {
			continue
		}
		perUnit := deltaOf(*s)
		total -= fpmath.MulDiv(p.Size, perUnit, fpmath.AmountScale, false)
	}
	return total + v.hedge[expiryID]
}

// ============================================================================
// Settlement
// ============================================================================

// TickRefund is the settlement result for one (tick, series) pair: the
// collateral flowing back to the tick after paying out option holders.
type TickRefund struct {
	Tick      int32
	SeriesID  int64
	Locked    int64 // 6 decimals released from the margin lock
	Refund    int64 // 6 decimals, never negative
	Payout    int64 // 6 decimals paid to holders, capped by position collateral
	Shortfall int64 // 6 decimals of payout demand the collateral could not cover
}

// SettleExpiry closes every written position under an expiry at the
// finalized price. Each position returns locked collateral plus retained
// premium minus the holders' payout. An insolvent position pays out at most
// the collateral backing it; the writer's refund floors at zero and the
// uncovered remainder is reported as Shortfall.
func (v *Vault) SettleExpiry(expiryID, expiryPrice int64) ([]TickRefund, error) {
	if _, ok := v.expiries[expiryID]; !ok {
		return nil, ErrUnknownExpiry
	}

	var refunds []TickRefund
	for key, p := range v.written {
		s, ok := v.series[key.SeriesID]
		if !ok || s.ExpiryID != expiryID {
			continue
		}

		perUnit := PayoutPerUnit(*s, expiryPrice)
		payout8 := fpmath.MulDiv(p.Size, perUnit, fpmath.AmountScale, true)
		payout := fpmath.MulDiv(payout8, 1, 100, true)

		available := p.Locked + p.PremiumPool
		var shortfall int64
		if payout > available {
			shortfall = payout - available
			payout = available
		}

		refunds = append(refunds, TickRefund{
			Tick:      key.Tick,
			SeriesID:  key.SeriesID,
			Locked:    p.Locked,
			Refund:    available - payout,
			Payout:    payout,
			Shortfall: shortfall,
		})
		delete(v.written, key)
	}

	// Map iteration order is random; settlement output must be stable.
	sort.Slice(refunds, func(i, j int) bool {
		if refunds[i].Tick != refunds[j].Tick {
			return refunds[i].Tick < refunds[j].Tick
		}
		return refunds[i].SeriesID < refunds[j].SeriesID
	})
	return refunds, nil
}
