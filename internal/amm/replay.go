package amm

import (
	"encoding/json"
	"fmt"

	"OptionAMM/internal/event"
	"OptionAMM/internal/pool"
)

// Replay applies one logged envelope to the engine without re-emitting it.
// Recovery rolls state forward from a snapshot by replaying envelopes in
// sequence order; every operation is deterministic given its recorded inputs,
// so the replayed state matches the state that produced the log.
func (e *Engine) Replay(env *event.Envelope) error {
	var err error
	ts := env.Timestamp.Unix()

	switch env.Type {
	case event.TypeDeposit:
		var p event.Deposit
		if err = json.Unmarshal(env.Payload, &p); err != nil {
			break
		}
		var lower, upper int32
		if lower, upper, err = pool.ParseRangeID(p.RangeID); err != nil {
			break
		}
		_, err = e.Deposit(p.Account, p.Shares, p.Deposited, lower, upper, ts)

	case event.TypeWithdrawal:
		var p event.Withdrawal
		if err = json.Unmarshal(env.Payload, &p); err != nil {
			break
		}
		_, err = e.Withdraw(p.Account, p.Shares, p.Withdrawn, p.RangeID, p.UseReservation, ts)

	case event.TypeReservation:
		var p event.Reservation
		if err = json.Unmarshal(env.Payload, &p); err != nil {
			break
		}
		err = e.ReserveWithdrawal(p.Account, p.Shares, p.RangeID, ts)

	case event.TypeTrade:
		var p event.Trade
		if err = json.Unmarshal(env.Payload, &p); err != nil {
			break
		}
		// The recorded total is an exact bound in both directions.
		if p.IsSell {
			_, err = e.Sell(p.Account, p.SeriesID, p.Size, p.Total, ts)
		} else {
			_, err = e.Buy(p.Account, p.SeriesID, p.Size, p.Total, ts)
		}

	case event.TypeSettlement:
		var p event.Settlement
		if err = json.Unmarshal(env.Payload, &p); err != nil {
			break
		}
		_, err = e.Settle(p.ExpiryID, ts)

	case event.TypeSpotPrice:
		var p event.SpotPrice
		if err = json.Unmarshal(env.Payload, &p); err != nil {
			break
		}
		err = e.RecordSpot(p.RoundID, p.Price, p.Timestamp)

	case event.TypeConfigUpdate:
		var p event.ConfigUpdate
		if err = json.Unmarshal(env.Payload, &p); err != nil {
			break
		}
		err = e.SetConfig(env.Account, p.Key, p.Value)

	case event.TypeExpiryCreated:
		var p event.ExpiryCreated
		if err = json.Unmarshal(env.Payload, &p); err != nil {
			break
		}
		var id int64
		if id, err = e.CreateExpiry(env.Account, p.Timestamp, p.InitialIV); err != nil {
			break
		}
		if id != p.ExpiryID {
			err = fmt.Errorf("expiry id diverged: got %d, logged %d", id, p.ExpiryID)
		}

	case event.TypeSeriesCreated:
		var p event.SeriesCreated
		if err = json.Unmarshal(env.Payload, &p); err != nil {
			break
		}
		var id int64
		if id, err = e.CreateSeries(env.Account, p.ExpiryID, p.Strike, p.IsPut); err != nil {
			break
		}
		if id != p.SeriesID {
			err = fmt.Errorf("series id diverged: got %d, logged %d", id, p.SeriesID)
		}

	case event.TypeHedge:
		var p event.Hedge
		if err = json.Unmarshal(env.Payload, &p); err != nil {
			break
		}
		err = e.Hedge(env.Account, p.ExpiryID, p.Delta)

	case event.TypeStateChange:
		var p event.StateChange
		if err = json.Unmarshal(env.Payload, &p); err != nil {
			break
		}
		err = e.ChangeState(env.Account, p.Emergency)

	case event.TypeBotSet:
		var p event.BotSet
		if err = json.Unmarshal(env.Payload, &p); err != nil {
			break
		}
		err = e.SetBot(env.Account, p.Bot)

	case event.TypeOperatorSet:
		var p event.OperatorSet
		if err = json.Unmarshal(env.Payload, &p); err != nil {
			break
		}
		err = e.SetNewOperator(env.Account, p.Operator)

	case event.TypeDepositWindowSet:
		var p event.DepositWindowSet
		if err = json.Unmarshal(env.Payload, &p); err != nil {
			break
		}
		err = e.SetDepositAllowedUntil(env.Account, p.Until)

	case event.TypeLockupExemptionSet:
		var p event.LockupExemptionSet
		if err = json.Unmarshal(env.Payload, &p); err != nil {
			break
		}
		err = e.SetSkipLockup(env.Account, p.Account, p.Skip)

	default:
		err = fmt.Errorf("unknown event type %q", env.Type)
	}

	if err != nil {
		return fmt.Errorf("replay %s at sequence %d: %w", env.Type, env.Sequence, err)
	}
	return nil
}
