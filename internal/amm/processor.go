package amm

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog"

	"OptionAMM/internal/event"
	"OptionAMM/internal/observability"
	"OptionAMM/internal/option"
	"OptionAMM/internal/pool"
)

// Output carries one committed envelope to the persistence and notification
// workers.
type Output struct {
	Envelope *event.Envelope
}

// Processor serializes all engine access on a single goroutine and emits an
// envelope per committed mutation. The persist channel uses a blocking send
// so backpressure stalls the processor rather than losing events; the
// notify channel is non-blocking and drops when full, subscribers can
// rebuild from the event log.
type Processor struct {
	log     zerolog.Logger
	engine  *Engine
	metrics *observability.Metrics
	hasher  *StateHasher

	sequence int64
	requests chan func()

	persistChan chan<- Output
	notifyChan  chan<- Output
}

func NewProcessor(
	log zerolog.Logger,
	engine *Engine,
	metrics *observability.Metrics,
	startSequence int64,
	persistChan, notifyChan chan<- Output,
) *Processor {
	return &Processor{
		log:         log.With().Str("component", "processor").Logger(),
		engine:      engine,
		metrics:     metrics,
		hasher:      NewStateHasher(),
		sequence:    startSequence,
		requests:    make(chan func(), 256),
		persistChan: persistChan,
		notifyChan:  notifyChan,
	}
}

// SnapshotState pairs exported engine state with its event log position.
type SnapshotState struct {
	Sequence  int64
	StateHash [32]byte
	Engine    EngineState
}

// SeedHashChain primes the hash chain tip when resuming from a snapshot.
// Must be called before Run.
func (p *Processor) SeedHashChain(tip [32]byte) {
	p.hasher.Seed(tip)
}

// Snapshot captures the engine state and chain position on the processor
// goroutine, consistent with the last emitted envelope.
func (p *Processor) Snapshot(ctx context.Context) (*SnapshotState, error) {
	var snap *SnapshotState
	doErr := p.do(ctx, func() {
		snap = &SnapshotState{
			Sequence:  p.sequence,
			StateHash: p.hasher.PrevHash(),
			Engine:    p.engine.ExportState(),
		}
	})
	if doErr != nil {
		return nil, doErr
	}
	return snap, nil
}

// Run drains the request queue until the context ends.
func (p *Processor) Run(ctx context.Context) error {
	p.log.Info().Int64("start_sequence", p.sequence).Msg("processor started")
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case fn := <-p.requests:
			fn()
		}
	}
}

// do runs fn on the processor goroutine and waits for completion.
func (p *Processor) do(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	select {
	case p.requests <- func() { fn(); close(done) }:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// emit appends one envelope to the log and forwards it downstream.
func (p *Processor) emit(t event.Type, account string, ts time.Time, payload interface{}) {
	start := time.Now()
	data, err := json.Marshal(payload)
	if err != nil {
		p.log.Panic().Err(err).Str("type", t.String()).Msg("payload marshal failed")
	}

	p.sequence++
	env := &event.Envelope{
		Sequence:  p.sequence,
		Type:      t,
		Account:   account,
		Timestamp: ts,
		Payload:   data,
		PrevHash:  p.hasher.PrevHash(),
	}
	env.StateHash = p.hasher.ComputeHash(p.sequence, data)

	out := Output{Envelope: env}
	if p.persistChan != nil {
		p.persistChan <- out
	}
	if p.notifyChan != nil {
		select {
		case p.notifyChan <- out:
		default:
			// Dropped; notification consumers catch up from the event log.
			if p.metrics != nil {
				p.metrics.EventsDropped.Inc()
			}
		}
	}

	if p.metrics != nil {
		p.metrics.EventsApplied.WithLabelValues(t.String()).Inc()
		p.metrics.EventDuration.WithLabelValues(t.String()).Observe(time.Since(start).Seconds())
		p.metrics.Sequence.Set(float64(p.sequence))
		p.metrics.HeldCollateral.Set(float64(p.engine.HeldCollateral()))
		p.metrics.ProtocolFees.Set(float64(p.engine.ProtocolFees()))
	}
}

// ============================================================================
// Liquidity operations
// ============================================================================

func (p *Processor) Deposit(ctx context.Context, account string, mintAmount, maxDeposit int64, lower, upper int32, now time.Time) (*DepositResult, error) {
	var res *DepositResult
	var err error
	doErr := p.do(ctx, func() {
		res, err = p.engine.Deposit(account, mintAmount, maxDeposit, lower, upper, now.Unix())
		if err != nil {
			return
		}
		p.emit(event.TypeDeposit, account, now, event.Deposit{
			Account:   res.Account,
			RangeID:   res.RangeID,
			Shares:    res.Shares,
			Deposited: res.Deposited,
		})
	})
	if doErr != nil {
		return nil, doErr
	}
	return res, err
}

func (p *Processor) Withdraw(ctx context.Context, account string, burnAmount, minAmount int64, rangeID int32, useReservation bool, now time.Time) (*WithdrawResult, error) {
	var res *WithdrawResult
	var err error
	doErr := p.do(ctx, func() {
		res, err = p.engine.Withdraw(account, burnAmount, minAmount, rangeID, useReservation, now.Unix())
		if err != nil {
			return
		}
		p.emit(event.TypeWithdrawal, account, now, event.Withdrawal{
			Account:        res.Account,
			RangeID:        res.RangeID,
			Shares:         res.Shares,
			Withdrawn:      res.Withdrawn,
			UseReservation: useReservation,
		})
	})
	if doErr != nil {
		return nil, doErr
	}
	return res, err
}

func (p *Processor) ReserveWithdrawal(ctx context.Context, account string, amount int64, rangeID int32, now time.Time) error {
	var err error
	doErr := p.do(ctx, func() {
		err = p.engine.ReserveWithdrawal(account, amount, rangeID, now.Unix())
		if err != nil {
			return
		}
		p.emit(event.TypeReservation, account, now, event.Reservation{
			Account: account,
			RangeID: rangeID,
			Shares:  amount,
		})
	})
	if doErr != nil {
		return doErr
	}
	return err
}

// ============================================================================
// Trading
// ============================================================================

func (p *Processor) Buy(ctx context.Context, account string, seriesID, amount, maxFee int64, now time.Time) (*TradeResult, error) {
	return p.trade(ctx, account, seriesID, amount, maxFee, false, now)
}

func (p *Processor) Sell(ctx context.Context, account string, seriesID, amount, minFee int64, now time.Time) (*TradeResult, error) {
	return p.trade(ctx, account, seriesID, amount, minFee, true, now)
}

func (p *Processor) trade(ctx context.Context, account string, seriesID, amount, feeBound int64, isSell bool, now time.Time) (*TradeResult, error) {
	var res *TradeResult
	var err error
	doErr := p.do(ctx, func() {
		if isSell {
			res, err = p.engine.Sell(account, seriesID, amount, feeBound, now.Unix())
		} else {
			res, err = p.engine.Buy(account, seriesID, amount, feeBound, now.Unix())
		}
		if err != nil {
			return
		}
		p.emit(event.TypeTrade, account, now, event.Trade{
			Account:     res.Account,
			SeriesID:    res.SeriesID,
			ExpiryID:    res.ExpiryID,
			IsSell:      res.IsSell,
			Size:        res.Size,
			Spot:        res.Spot,
			RawPremium:  res.RawPremium,
			BaseFee:     res.Fee.BaseFee,
			SpreadFee:   res.Fee.SpreadFee,
			ProtocolFee: res.Fee.ProtocolFee,
			Total:       res.Total,
			IVAfter:     res.IVAfter,
		})
		if p.metrics != nil {
			side := "buy"
			if isSell {
				side = "sell"
			}
			p.metrics.TradesTotal.WithLabelValues(side).Inc()
			p.metrics.TradePremium.WithLabelValues(side).Add(float64(res.RawPremium))
		}
	})
	if doErr != nil {
		return nil, doErr
	}
	return res, err
}

func (p *Processor) CalculatePremium(ctx context.Context, seriesID, amount int64, isSell bool, now time.Time) (int64, error) {
	var premium int64
	var err error
	doErr := p.do(ctx, func() {
		premium, err = p.engine.CalculatePremium(seriesID, amount, isSell, now.Unix())
	})
	if doErr != nil {
		return 0, doErr
	}
	return premium, err
}

// ============================================================================
// Settlement and feed
// ============================================================================

func (p *Processor) Settle(ctx context.Context, expiryID int64, now time.Time) (*SettlementResult, error) {
	var res *SettlementResult
	var err error
	doErr := p.do(ctx, func() {
		res, err = p.engine.Settle(expiryID, now.Unix())
		if err != nil {
			return
		}
		p.emit(event.TypeSettlement, "", now, event.Settlement{
			ExpiryID:       res.ExpiryID,
			Price:          res.ExpiryPrice,
			TotalPayout:    res.TotalPayout,
			TotalRefund:    res.TotalRefund,
			TotalShortfall: res.TotalShortfall,
			FeesFolded:     res.FeesFolded,
		})
		if p.metrics != nil {
			p.metrics.SettlementsTotal.Inc()
			p.metrics.SettlementPayout.Add(float64(res.TotalPayout))
		}
	})
	if doErr != nil {
		return nil, doErr
	}
	return res, err
}

func (p *Processor) RecordSpot(ctx context.Context, roundID, price int64, ts time.Time) error {
	var err error
	doErr := p.do(ctx, func() {
		err = p.engine.RecordSpot(roundID, price, ts.Unix())
		if err != nil {
			return
		}
		p.emit(event.TypeSpotPrice, "", ts, event.SpotPrice{
			RoundID:   roundID,
			Price:     price,
			Timestamp: ts.Unix(),
		})
		if p.metrics != nil {
			p.metrics.SpotPrice.Set(float64(price))
		}
	})
	if doErr != nil {
		return doErr
	}
	return err
}

// ============================================================================
// Operator operations
// ============================================================================

func (p *Processor) SetConfig(ctx context.Context, caller, key string, value int64, now time.Time) error {
	var err error
	doErr := p.do(ctx, func() {
		err = p.engine.SetConfig(caller, key, value)
		if err != nil {
			return
		}
		p.emit(event.TypeConfigUpdate, caller, now, event.ConfigUpdate{Key: key, Value: value})
	})
	if doErr != nil {
		return doErr
	}
	return err
}

func (p *Processor) ChangeState(ctx context.Context, caller string, emergency bool, now time.Time) error {
	var err error
	doErr := p.do(ctx, func() {
		err = p.engine.ChangeState(caller, emergency)
		if err != nil {
			return
		}
		p.emit(event.TypeStateChange, caller, now, event.StateChange{Emergency: emergency})
	})
	if doErr != nil {
		return doErr
	}
	return err
}

func (p *Processor) SetBot(ctx context.Context, caller, bot string, now time.Time) error {
	var err error
	doErr := p.do(ctx, func() {
		err = p.engine.SetBot(caller, bot)
		if err != nil {
			return
		}
		p.emit(event.TypeBotSet, caller, now, event.BotSet{Bot: bot})
	})
	if doErr != nil {
		return doErr
	}
	return err
}

func (p *Processor) SetNewOperator(ctx context.Context, caller, operator string, now time.Time) error {
	var err error
	doErr := p.do(ctx, func() {
		err = p.engine.SetNewOperator(caller, operator)
		if err != nil {
			return
		}
		p.emit(event.TypeOperatorSet, caller, now, event.OperatorSet{Operator: operator})
	})
	if doErr != nil {
		return doErr
	}
	return err
}

func (p *Processor) SetDepositAllowedUntil(ctx context.Context, caller string, until int64, now time.Time) error {
	var err error
	doErr := p.do(ctx, func() {
		err = p.engine.SetDepositAllowedUntil(caller, until)
		if err != nil {
			return
		}
		p.emit(event.TypeDepositWindowSet, caller, now, event.DepositWindowSet{Until: until})
	})
	if doErr != nil {
		return doErr
	}
	return err
}

func (p *Processor) SetSkipLockup(ctx context.Context, caller, account string, skip bool, now time.Time) error {
	var err error
	doErr := p.do(ctx, func() {
		err = p.engine.SetSkipLockup(caller, account, skip)
		if err != nil {
			return
		}
		p.emit(event.TypeLockupExemptionSet, caller, now, event.LockupExemptionSet{Account: account, Skip: skip})
	})
	if doErr != nil {
		return doErr
	}
	return err
}

func (p *Processor) CreateExpiry(ctx context.Context, caller string, timestamp, initialIV int64, now time.Time) (int64, error) {
	var id int64
	var err error
	doErr := p.do(ctx, func() {
		id, err = p.engine.CreateExpiry(caller, timestamp, initialIV)
		if err != nil {
			return
		}
		p.emit(event.TypeExpiryCreated, caller, now, event.ExpiryCreated{
			ExpiryID:  id,
			Timestamp: timestamp,
			InitialIV: initialIV,
		})
	})
	if doErr != nil {
		return 0, doErr
	}
	return id, err
}

func (p *Processor) CreateSeries(ctx context.Context, caller string, expiryID, strike int64, isPut bool, now time.Time) (int64, error) {
	var id int64
	var err error
	doErr := p.do(ctx, func() {
		id, err = p.engine.CreateSeries(caller, expiryID, strike, isPut)
		if err != nil {
			return
		}
		p.emit(event.TypeSeriesCreated, caller, now, event.SeriesCreated{
			SeriesID: id,
			ExpiryID: expiryID,
			Strike:   strike,
			IsPut:    isPut,
		})
	})
	if doErr != nil {
		return 0, doErr
	}
	return id, err
}

func (p *Processor) Hedge(ctx context.Context, caller string, expiryID, delta int64, now time.Time) error {
	var err error
	doErr := p.do(ctx, func() {
		err = p.engine.Hedge(caller, expiryID, delta)
		if err != nil {
			return
		}
		p.emit(event.TypeHedge, caller, now, event.Hedge{ExpiryID: expiryID, Delta: delta})
	})
	if doErr != nil {
		return doErr
	}
	return err
}

// ============================================================================
// Queries
// ============================================================================

func (p *Processor) GetTicks(ctx context.Context, lower, upper int32) ([]pool.Tick, error) {
	var ticks []pool.Tick
	var err error
	doErr := p.do(ctx, func() { ticks, err = p.engine.GetTicks(lower, upper) })
	if doErr != nil {
		return nil, doErr
	}
	return ticks, err
}

func (p *Processor) GetMintAmount(ctx context.Context, lower, upper int32, depositAmount int64) (int64, error) {
	var shares int64
	var err error
	doErr := p.do(ctx, func() { shares, err = p.engine.GetMintAmount(lower, upper, depositAmount) })
	if doErr != nil {
		return 0, doErr
	}
	return shares, err
}

func (p *Processor) GetWithdrawableAmount(ctx context.Context, lower, upper int32, burnShares int64) (int64, error) {
	var amount int64
	var err error
	doErr := p.do(ctx, func() { amount, err = p.engine.GetWithdrawableAmount(lower, upper, burnShares) })
	if doErr != nil {
		return 0, doErr
	}
	return amount, err
}

func (p *Processor) GetProfitState(ctx context.Context, tick int32, expiryID int64) (pool.ProfitState, error) {
	var state pool.ProfitState
	doErr := p.do(ctx, func() { state = p.engine.GetProfitState(tick, expiryID) })
	return state, doErr
}

func (p *Processor) GetSecondsPerLiquidity(ctx context.Context, lower, upper int32, now time.Time) (int64, error) {
	var value int64
	var err error
	doErr := p.do(ctx, func() { value, err = p.engine.GetSecondsPerLiquidity(lower, upper, now.Unix()) })
	if doErr != nil {
		return 0, doErr
	}
	return value, err
}

func (p *Processor) GetLiveOptionSerieses(ctx context.Context, now time.Time) ([]option.Expiry, error) {
	var expiries []option.Expiry
	doErr := p.do(ctx, func() { expiries = p.engine.GetLiveOptionSerieses(now.Unix()) })
	return expiries, doErr
}

func (p *Processor) GetConfig(ctx context.Context, key string) (int64, error) {
	var value int64
	var err error
	doErr := p.do(ctx, func() { value, err = p.engine.GetConfig(key) })
	if doErr != nil {
		return 0, doErr
	}
	return value, err
}

func (p *Processor) PositionOf(ctx context.Context, account string, rangeID int32) (pool.Position, error) {
	var pos pool.Position
	doErr := p.do(ctx, func() { pos = p.engine.PositionOf(account, rangeID) })
	return pos, doErr
}

func (p *Processor) LongBalance(ctx context.Context, account string, seriesID int64) (int64, error) {
	var balance int64
	doErr := p.do(ctx, func() { balance = p.engine.LongBalance(account, seriesID) })
	return balance, doErr
}

func (p *Processor) IV(ctx context.Context, expiryID int64) (int64, error) {
	var iv int64
	var err error
	doErr := p.do(ctx, func() { iv, err = p.engine.IV(expiryID) })
	if doErr != nil {
		return 0, doErr
	}
	return iv, err
}
