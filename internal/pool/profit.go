package pool

import "errors"

var ErrAlreadySettled = errors.New("AMMLib: ticks are already settled")

type profitKey struct {
	Tick     int32
	ExpiryID int64
}

// ProfitState accumulates realized gains and losses attributable to one
// (tick, expiry) pair until settlement folds them into the tick balance.
// CumulativeFee holds the pool's share of trade fees (6 decimals).
// CumulativePayout is signed: positive means the pool owes option holders.
type ProfitState struct {
	CumulativeFee    int64
	CumulativePayout int64
}

// ProfitBook tracks ProfitState per (tick, expiry) and the terminal settled
// mark that guards against double settlement.
type ProfitBook struct {
	states  map[profitKey]*ProfitState
	settled map[profitKey]bool
}

func NewProfitBook() *ProfitBook {
	return &ProfitBook{
		states:  make(map[profitKey]*ProfitState),
		settled: make(map[profitKey]bool),
	}
}

func (b *ProfitBook) get(tick int32, expiryID int64) *ProfitState {
	key := profitKey{tick, expiryID}
	s, ok := b.states[key]
	if !ok {
		s = &ProfitState{}
		b.states[key] = s
	}
	return s
}

// State returns a copy of the profit state for a (tick, expiry) pair.
func (b *ProfitBook) State(tick int32, expiryID int64) ProfitState {
	if s, ok := b.states[profitKey{tick, expiryID}]; ok {
		return *s
	}
	return ProfitState{}
}

// Settled reports whether the (tick, expiry) pair has been settled.
func (b *ProfitBook) Settled(tick int32, expiryID int64) bool {
	return b.settled[profitKey{tick, expiryID}]
}

// AddFee accrues the pool's share of a trade fee. Fails if the pair is
// already settled; trades against a settled expiry are a routing bug.
func (b *ProfitBook) AddFee(tick int32, expiryID, fee int64) error {
	if b.settled[profitKey{tick, expiryID}] {
		return ErrAlreadySettled
	}
	b.get(tick, expiryID).CumulativeFee += fee
	return nil
}

// AddPayout accrues a signed settlement payout obligation.
func (b *ProfitBook) AddPayout(tick int32, expiryID, payout int64) error {
	if b.settled[profitKey{tick, expiryID}] {
		return ErrAlreadySettled
	}
	b.get(tick, expiryID).CumulativePayout += payout
	return nil
}

// Settle retires a (tick, expiry) pair, returning its accrued fee and payout
// for folding into the tick balance. The pair transitions to the terminal
// settled state; a second call fails.
func (b *ProfitBook) Settle(tick int32, expiryID int64) (fee, payout int64, err error) {
	key := profitKey{tick, expiryID}
	if b.settled[key] {
		return 0, 0, ErrAlreadySettled
	}
	b.settled[key] = true

	if s, ok := b.states[key]; ok {
		fee = s.CumulativeFee
		payout = s.CumulativePayout
		delete(b.states, key)
	}
	return fee, payout, nil
}

// UnsettledFee sums CumulativeFee over all unsettled pairs whose tick lies
// in [lower, upper). Used by the held-collateral invariant check.
func (b *ProfitBook) UnsettledFee(lower, upper int32) int64 {
	var sum int64
	for key, s := range b.states {
		if key.Tick >= lower && key.Tick < upper {
			sum += s.CumulativeFee
		}
	}
	return sum
}
