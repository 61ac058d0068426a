// Package amm implements the automated market maker core: the IV curve and
// premium walker that price trades against tick-indexed liquidity, the fee
// model, and the engine that serializes all state mutation.
package amm

import (
	"errors"

	fpmath "OptionAMM/internal/math"
	"OptionAMM/internal/pool"
)

// TickWidth is the IV band covered by one tick: 10% in 1e8 ratio units.
// Tick i spans [i*TickWidth, (i+1)*TickWidth), so IV 100% sits at the
// bottom of tick 10.
const TickWidth int64 = 10_000_000

var (
	ErrWalkTickTooLarge = errors.New("AMMLib: tick is too large")
	ErrWalkTickTooSmall = errors.New("AMMLib: tick is too small")
	ErrUnknownCurve     = errors.New("amm: no IV state for expiry")
)

// Curve holds the implied-volatility frontier per expiry. The scalar IV
// determines both the frontier tick (iv / TickWidth) and the filled
// fraction within that tick's band; ticks below the frontier are fully
// consumed, ticks above untouched.
type Curve struct {
	iv map[int64]int64
}

func NewCurve() *Curve {
	return &Curve{iv: make(map[int64]int64)}
}

// Init seeds the IV frontier for a new expiry.
func (c *Curve) Init(expiryID, iv int64) {
	c.iv[expiryID] = iv
}

// IV returns the current frontier IV for an expiry.
func (c *Curve) IV(expiryID int64) (int64, error) {
	iv, ok := c.iv[expiryID]
	if !ok {
		return 0, ErrUnknownCurve
	}
	return iv, nil
}

// Set moves the frontier after a committed trade.
func (c *Curve) Set(expiryID, iv int64) {
	c.iv[expiryID] = iv
}

// Drop removes the frontier state once an expiry settles; its curve is
// inert afterwards.
func (c *Curve) Drop(expiryID int64) {
	delete(c.iv, expiryID)
}

// buyTickFor returns the tick whose band contains iv when walking upward.
// An IV exactly on a band boundary belongs to the band above it.
func buyTickFor(iv int64) int32 {
	return int32(iv / TickWidth)
}

// sellTickFor returns the tick whose band contains iv when walking
// downward. An IV exactly on a boundary belongs to the band below it.
func sellTickFor(iv int64) int32 {
	if iv%TickWidth == 0 {
		return int32(iv/TickWidth) - 1
	}
	return int32(iv / TickWidth)
}

// bandTop and bandBottom bound a tick's IV band.
func bandTop(tick int32) int64    { return (int64(tick) + 1) * TickWidth }
func bandBottom(tick int32) int64 { return int64(tick) * TickWidth }

// validWalkTick checks a frontier tick is inside the arena while walking.
func validWalkTick(tick int32) error {
	if tick > pool.MaxTick {
		return ErrWalkTickTooLarge
	}
	if tick < pool.MinTick {
		return ErrWalkTickTooSmall
	}
	return nil
}

// ivMove converts locked-margin flow through a tick into IV displacement:
// consuming margin out of a tick with total capacity cap moves the frontier
// by TickWidth * margin / cap.
func ivMove(margin, capacity int64) int64 {
	if capacity == 0 {
		return 0
	}
	return fpmath.MulDiv(TickWidth, margin, capacity, false)
}
