package amm

import (
	"errors"

	"github.com/rs/zerolog"

	"OptionAMM/internal/option"
	"OptionAMM/internal/oracle"
	"OptionAMM/internal/pool"
)

// MinTradeSize is the smallest tradable option size: 0.01 units.
const MinTradeSize int64 = 1_000_000

var (
	ErrZeroAmount        = errors.New("AMM: amount must not be 0")
	ErrAmountTooSmall    = errors.New("AMM: amount is too small")
	ErrDepositExceedsMax = errors.New("AMM: amount deposited is greater than max")
	ErrDepositNotAllowed = errors.New("AMM: deposit not allowed")
	ErrFeeExceedsMax     = errors.New("AMM: total fee exceeds maxFeeAmount")
	ErrPremiumTooLow     = errors.New("AMM: premium is too low")
	ErrEmergencyMode     = errors.New("AMM: emergency mode")
	ErrNotOperator       = errors.New("AMM: caller must be operator")
)

// Engine owns all AMM state: the tick ledger, profit book, option vault,
// oracle feed and IV curve. Every method assumes single-goroutine access;
// the command loop serializes callers. Timestamps are always passed in, the
// engine never reads the wall clock.
type Engine struct {
	log zerolog.Logger

	ledger *pool.Ledger
	profit *pool.ProfitBook
	vault  *option.Vault
	feed   *oracle.Feed
	curve  *Curve
	cfg    Config

	operator  string
	bot       string
	emergency bool

	// depositAllowedUntil gates new deposits when non-zero.
	depositAllowedUntil int64
	skipLockup          map[string]bool

	// held is the collateral the pool itself custodies: free tick balances
	// plus unsettled fee accrual. Locked margin and raw premium sit in the
	// vault and are excluded.
	held         int64
	protocolFees int64
}

func NewEngine(log zerolog.Logger, operator string, cfg Config) *Engine {
	return &Engine{
		log:        log.With().Str("component", "engine").Logger(),
		ledger:     pool.NewLedger(),
		profit:     pool.NewProfitBook(),
		vault:      option.NewVault(),
		feed:       oracle.NewFeed(),
		curve:      NewCurve(),
		cfg:        cfg,
		operator:   operator,
		skipLockup: make(map[string]bool),
	}
}

// checkInvariant asserts the held-collateral identity after every mutation:
// sum of free tick balances plus unsettled cumulative fees must equal the
// collateral the pool holds. A violation is a bug, not an input error.
func (e *Engine) checkInvariant(op string) {
	balances := e.ledger.RangeBalance(pool.MinTick, pool.MaxTick+1)
	fees := e.profit.UnsettledFee(pool.MinTick, pool.MaxTick+1)
	if balances+fees != e.held {
		e.log.Panic().
			Str("op", op).
			Int64("balances", balances).
			Int64("unsettled_fees", fees).
			Int64("held", e.held).
			Msg("held-collateral invariant violated")
	}
}

func (e *Engine) requireOperator(caller string) error {
	if caller != e.operator {
		return ErrNotOperator
	}
	return nil
}

func (e *Engine) requireBot(caller string) error {
	if caller != e.bot && caller != e.operator {
		return ErrNotOperator
	}
	return nil
}

// ============================================================================
// Operator operations
// ============================================================================

// SetConfig updates a runtime parameter.
func (e *Engine) SetConfig(caller, key string, value int64) error {
	if err := e.requireOperator(caller); err != nil {
		return err
	}
	if err := e.cfg.Set(key, value); err != nil {
		return err
	}
	e.log.Info().Str("key", key).Int64("value", value).Msg("config updated")
	return nil
}

// GetConfig reads a runtime parameter.
func (e *Engine) GetConfig(key string) (int64, error) {
	return e.cfg.Get(key)
}

// ChangeState toggles emergency mode. While set, trades and deposits are
// rejected; withdrawals and settlement keep working.
func (e *Engine) ChangeState(caller string, emergency bool) error {
	if err := e.requireOperator(caller); err != nil {
		return err
	}
	e.emergency = emergency
	e.log.Warn().Bool("emergency", emergency).Msg("pool state changed")
	return nil
}

// SetBot designates the hedging bot account.
func (e *Engine) SetBot(caller, bot string) error {
	if err := e.requireOperator(caller); err != nil {
		return err
	}
	e.bot = bot
	return nil
}

// SetNewOperator transfers the operator role.
func (e *Engine) SetNewOperator(caller, operator string) error {
	if err := e.requireOperator(caller); err != nil {
		return err
	}
	e.operator = operator
	e.log.Info().Str("operator", operator).Msg("operator transferred")
	return nil
}

// SetDepositAllowedUntil closes the deposit window after a deadline.
// Zero reopens it indefinitely.
func (e *Engine) SetDepositAllowedUntil(caller string, until int64) error {
	if err := e.requireOperator(caller); err != nil {
		return err
	}
	e.depositAllowedUntil = until
	return nil
}

// SetSkipLockup manages the lockup exemption allow-list.
func (e *Engine) SetSkipLockup(caller, account string, skip bool) error {
	if err := e.requireOperator(caller); err != nil {
		return err
	}
	if skip {
		e.skipLockup[account] = true
	} else {
		delete(e.skipLockup, account)
	}
	return nil
}

// CreateExpiry lists a new expiry and seeds its IV frontier.
func (e *Engine) CreateExpiry(caller string, timestamp, initialIV int64) (int64, error) {
	if err := e.requireOperator(caller); err != nil {
		return 0, err
	}
	id := e.vault.CreateExpiry(timestamp)
	e.curve.Init(id, initialIV)
	e.log.Info().Int64("expiry_id", id).Int64("timestamp", timestamp).Int64("iv", initialIV).Msg("expiry created")
	return id, nil
}

// CreateSeries lists a strike under an expiry.
func (e *Engine) CreateSeries(caller string, expiryID, strike int64, isPut bool) (int64, error) {
	if err := e.requireOperator(caller); err != nil {
		return 0, err
	}
	return e.vault.CreateSeries(expiryID, strike, isPut)
}

// Hedge adjusts the underlying hedge book for an expiry. Restricted to the
// bot (or the operator directly).
func (e *Engine) Hedge(caller string, expiryID, delta int64) error {
	if err := e.requireBot(caller); err != nil {
		return err
	}
	e.vault.AddHedge(expiryID, delta)
	return nil
}

// RecordSpot ingests a spot price round from the feed.
func (e *Engine) RecordSpot(roundID, price, timestamp int64) error {
	return e.feed.Record(roundID, price, timestamp)
}

// ============================================================================
// Queries
// ============================================================================

// GetTicks returns the tick states in [lower, upper).
func (e *Engine) GetTicks(lower, upper int32) ([]pool.Tick, error) {
	return e.ledger.Ticks(lower, upper)
}

// GetMintAmount quotes the shares minted for a deposit.
func (e *Engine) GetMintAmount(lower, upper int32, depositAmount int64) (int64, error) {
	return e.ledger.GetMintAmount(lower, upper, depositAmount)
}

// GetWithdrawableAmount quotes the collateral a burn redeems.
func (e *Engine) GetWithdrawableAmount(lower, upper int32, burnShares int64) (int64, error) {
	return e.ledger.GetWithdrawableAmount(lower, upper, burnShares)
}

// GetProfitState returns the accrued profit for a (tick, expiry) pair.
func (e *Engine) GetProfitState(tick int32, expiryID int64) pool.ProfitState {
	return e.profit.State(tick, expiryID)
}

// GetSecondsPerLiquidity returns the time-weighted accumulator for a range.
func (e *Engine) GetSecondsPerLiquidity(lower, upper int32, now int64) (int64, error) {
	return e.ledger.GetSecondsPerLiquidity(lower, upper, now)
}

// GetLiveOptionSerieses lists unexpired expiries.
func (e *Engine) GetLiveOptionSerieses(now int64) []option.Expiry {
	return e.vault.GetLiveOptionSerieses(now)
}

// PositionOf returns an LP's range position.
func (e *Engine) PositionOf(account string, rangeID int32) pool.Position {
	return e.ledger.PositionOf(account, rangeID)
}

// LongBalance returns a trader's option balance for a series.
func (e *Engine) LongBalance(account string, seriesID int64) int64 {
	return e.vault.LongBalance(account, seriesID)
}

// HeldCollateral returns the pool-custodied collateral total.
func (e *Engine) HeldCollateral() int64 {
	return e.held
}

// ProtocolFees returns the accumulated protocol fee balance.
func (e *Engine) ProtocolFees() int64 {
	return e.protocolFees
}

// IV returns the current frontier IV for an expiry.
func (e *Engine) IV(expiryID int64) (int64, error) {
	return e.curve.IV(expiryID)
}
