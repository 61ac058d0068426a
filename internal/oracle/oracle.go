// Package oracle implements the price-feed collaborator: spot rounds with
// monotonic IDs, expiry price finality gated by a dispute period, and the
// safety-period deviation clamp applied to quoting right after a spot move.
package oracle

import (
	"errors"

	fpmath "OptionAMM/internal/math"
)

const (
	// DisputePeriod is how long an expiry price stays challengeable before
	// it is considered finalized.
	DisputePeriod int64 = 2 * 60 * 60

	// SafetyPeriod bounds quoting right after a spot update: within this
	// window the quoting price may not deviate from the previous round's
	// price beyond SafetyDeviation in the trader-favorable direction.
	SafetyPeriod int64 = 10 * 60

	// SafetyDeviation is the bounded deviation ratio (1e8 == 100%).
	SafetyDeviation int64 = 5_000_000 // 5%
)

var (
	ErrNoRound        = errors.New("oracle: no price round recorded")
	ErrStaleRound     = errors.New("oracle: round id is not monotonic")
	ErrNotFinalized   = errors.New("oracle: expiry price is not finalized")
	ErrNoExpiryPrice  = errors.New("oracle: no price round at or after expiry")
	ErrInvalidPrice   = errors.New("oracle: price must be positive")
	ErrInvalidRoundTs = errors.New("oracle: round timestamp must not go backwards")
)

// Round is one recorded spot observation.
type Round struct {
	RoundID   int64 `json:"round_id"`
	Price     int64 `json:"price"` // 8 decimals
	Timestamp int64 `json:"timestamp"`
}

// Feed stores spot rounds in arrival order. Not safe for concurrent use.
type Feed struct {
	rounds []Round
}

func NewFeed() *Feed {
	return &Feed{}
}

// Record appends a spot round. Round IDs and timestamps must be monotonic;
// stale rounds are rejected, not reordered.
func (f *Feed) Record(roundID, price, timestamp int64) error {
	if price <= 0 {
		return ErrInvalidPrice
	}
	if n := len(f.rounds); n > 0 {
		last := f.rounds[n-1]
		if roundID <= last.RoundID {
			return ErrStaleRound
		}
		if timestamp < last.Timestamp {
			return ErrInvalidRoundTs
		}
	}
	f.rounds = append(f.rounds, Round{RoundID: roundID, Price: price, Timestamp: timestamp})
	return nil
}

// Latest returns the most recent round.
func (f *Feed) Latest() (Round, error) {
	if len(f.rounds) == 0 {
		return Round{}, ErrNoRound
	}
	return f.rounds[len(f.rounds)-1], nil
}

// GetExpiryPrice returns the first recorded price at or after the expiry
// timestamp along with whether its dispute period has elapsed at now.
func (f *Feed) GetExpiryPrice(expiry, now int64) (price int64, finalized bool, err error) {
	for _, r := range f.rounds {
		if r.Timestamp >= expiry {
			return r.Price, now >= r.Timestamp+DisputePeriod, nil
		}
	}
	return 0, false, ErrNoExpiryPrice
}

// QuotePrice returns the spot to use for quoting at now. Within the safety
// period after the latest round, the quote is clamped so it cannot move
// more than SafetyDeviation away from the previous round's price in the
// direction that favors the trader: buys quote no lower, sells no higher,
// than the clamped band allows.
func (f *Feed) QuotePrice(now int64, isSell bool) (int64, error) {
	latest, err := f.Latest()
	if err != nil {
		return 0, err
	}
	if len(f.rounds) < 2 || now >= latest.Timestamp+SafetyPeriod {
		return latest.Price, nil
	}

	prev := f.rounds[len(f.rounds)-2].Price
	band := fpmath.MulDiv(prev, SafetyDeviation, fpmath.RatioScale, false)

	if isSell {
		// Sellers must not benefit from a just-spiked price.
		return fpmath.Min(latest.Price, prev+band), nil
	}
	// Buyers must not benefit from a just-dropped price.
	return fpmath.Max(latest.Price, prev-band), nil
}

// ExportRounds returns a copy of the recorded rounds for a snapshot.
func (f *Feed) ExportRounds() []Round {
	return append([]Round(nil), f.rounds...)
}

// RestoreRounds replaces the feed contents with a previously exported set.
func (f *Feed) RestoreRounds(rounds []Round) {
	f.rounds = append([]Round(nil), rounds...)
}
