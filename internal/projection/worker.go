// Package projection folds the event log into Postgres read models: trade,
// liquidity and settlement history. Projections are derived state; they can
// fall behind the log (the notify channel drops under pressure) and are
// rebuilt from the log when they do.
package projection

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"

	"OptionAMM/internal/event"
	"OptionAMM/internal/observability"
	"OptionAMM/internal/persistence"
)

const workerID = "main"

// Worker consumes committed envelopes and updates the read models. Failures
// are logged and skipped rather than retried; a rebuild reconciles any gap.
type Worker struct {
	db        *sql.DB
	inputChan <-chan *event.Envelope
	metrics   *observability.Metrics
}

func NewWorker(db *sql.DB, inputChan <-chan *event.Envelope, metrics *observability.Metrics) *Worker {
	return &Worker{db: db, inputChan: inputChan, metrics: metrics}
}

// Run consumes envelopes until ctx is cancelled or the channel closes.
func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case env, ok := <-w.inputChan:
			if !ok {
				return nil
			}
			if err := w.apply(ctx, env); err != nil {
				log.Printf("ERROR: projection update failed at sequence %d: %v", env.Sequence, err)
				if w.metrics != nil {
					w.metrics.ProjectionErrors.Inc()
				}
				continue
			}
			if w.metrics != nil {
				w.metrics.ProjectionLastSequence.Set(float64(env.Sequence))
			}
		}
	}
}

// apply folds one envelope into the read models inside a transaction, moving
// the watermark in the same commit.
func (w *Worker) apply(ctx context.Context, env *event.Envelope) error {
	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := applyEnvelope(ctx, tx, env); err != nil {
		return err
	}
	if err := advanceWatermark(ctx, tx, env.Sequence); err != nil {
		return err
	}
	return tx.Commit()
}

func applyEnvelope(ctx context.Context, tx *sql.Tx, env *event.Envelope) error {
	switch env.Type {
	case event.TypeTrade:
		var p event.Trade
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return fmt.Errorf("unmarshal trade: %w", err)
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO projections.trade_history
				(sequence, account, series_id, expiry_id, is_sell, size, spot,
				 raw_premium, base_fee, spread_fee, protocol_fee, total, iv_after, traded_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
			ON CONFLICT (sequence) DO NOTHING`,
			env.Sequence, p.Account, p.SeriesID, p.ExpiryID, p.IsSell, p.Size, p.Spot,
			p.RawPremium, p.BaseFee, p.SpreadFee, p.ProtocolFee, p.Total, p.IVAfter, env.Timestamp,
		)
		return err

	case event.TypeDeposit:
		var p event.Deposit
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return fmt.Errorf("unmarshal deposit: %w", err)
		}
		return insertLiquidity(ctx, tx, env, p.Account, p.RangeID, "deposit", p.Shares, p.Deposited)

	case event.TypeWithdrawal:
		var p event.Withdrawal
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return fmt.Errorf("unmarshal withdrawal: %w", err)
		}
		return insertLiquidity(ctx, tx, env, p.Account, p.RangeID, "withdrawal", p.Shares, p.Withdrawn)

	case event.TypeReservation:
		var p event.Reservation
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return fmt.Errorf("unmarshal reservation: %w", err)
		}
		return insertLiquidity(ctx, tx, env, p.Account, p.RangeID, "reservation", p.Shares, 0)

	case event.TypeSettlement:
		var p event.Settlement
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return fmt.Errorf("unmarshal settlement: %w", err)
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO projections.settlement_history
				(sequence, expiry_id, price, total_payout, total_refund, total_shortfall, fees_folded, settled_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			ON CONFLICT (sequence) DO NOTHING`,
			env.Sequence, p.ExpiryID, p.Price, p.TotalPayout, p.TotalRefund, p.TotalShortfall, p.FeesFolded, env.Timestamp,
		)
		return err

	default:
		// Not projected; the watermark still advances past it.
		return nil
	}
}

func insertLiquidity(ctx context.Context, tx *sql.Tx, env *event.Envelope,
	account string, rangeID int32, kind string, shares, amount int64) error {

	_, err := tx.ExecContext(ctx, `
		INSERT INTO projections.liquidity_history
			(sequence, account, range_id, kind, shares, amount, changed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (sequence) DO NOTHING`,
		env.Sequence, account, rangeID, kind, shares, amount, env.Timestamp,
	)
	return err
}

func advanceWatermark(ctx context.Context, tx *sql.Tx, sequence int64) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO projections.watermark (worker_id, sequence, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (worker_id) DO UPDATE SET
			sequence = GREATEST(projections.watermark.sequence, EXCLUDED.sequence),
			updated_at = NOW()`,
		workerID, sequence,
	)
	return err
}

// Rebuild truncates the read models and refolds the entire event log. Used
// after notify-channel drops or schema changes.
func Rebuild(ctx context.Context, db *sql.DB) error {
	tables := []string{
		"projections.trade_history",
		"projections.liquidity_history",
		"projections.settlement_history",
		"projections.watermark",
	}
	for _, t := range tables {
		if _, err := db.ExecContext(ctx, "TRUNCATE "+t); err != nil {
			return fmt.Errorf("truncate %s: %w", t, err)
		}
	}

	manager := persistence.NewSnapshotManager(db)
	const pageSize = 1000
	var from int64
	var total int

	for {
		rows, err := manager.LoadEventsFrom(ctx, from, pageSize)
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			break
		}

		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		for _, r := range rows {
			if err := applyEnvelope(ctx, tx, r.Envelope()); err != nil {
				tx.Rollback()
				return fmt.Errorf("rebuild at sequence %d: %w", r.Sequence, err)
			}
		}
		last := rows[len(rows)-1].Sequence
		if err := advanceWatermark(ctx, tx, last); err != nil {
			tx.Rollback()
			return err
		}
		if err := tx.Commit(); err != nil {
			return err
		}

		total += len(rows)
		from = last
	}

	log.Printf("INFO: rebuilt projections from %d events", total)
	return nil
}
