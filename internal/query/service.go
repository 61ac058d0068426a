// Package query serves read requests from the Postgres read models and
// verifies event log integrity. It never touches engine state; everything it
// returns is derived from committed events.
package query

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"time"
)

// TradeRecord is one row of an account's trade history.
type TradeRecord struct {
	Sequence    int64     `json:"sequence"`
	Account     string    `json:"account"`
	SeriesID    int64     `json:"series_id"`
	ExpiryID    int64     `json:"expiry_id"`
	IsSell      bool      `json:"is_sell"`
	Size        int64     `json:"size"`
	Spot        int64     `json:"spot"`
	RawPremium  int64     `json:"raw_premium"`
	BaseFee     int64     `json:"base_fee"`
	SpreadFee   int64     `json:"spread_fee"`
	ProtocolFee int64     `json:"protocol_fee"`
	Total       int64     `json:"total"`
	IVAfter     int64     `json:"iv_after"`
	TradedAt    time.Time `json:"traded_at"`
}

// LiquidityRecord is one deposit, withdrawal or reservation.
type LiquidityRecord struct {
	Sequence  int64     `json:"sequence"`
	Account   string    `json:"account"`
	RangeID   int32     `json:"range_id"`
	Kind      string    `json:"kind"`
	Shares    int64     `json:"shares"`
	Amount    int64     `json:"amount"`
	ChangedAt time.Time `json:"changed_at"`
}

// SettlementRecord is one settled expiry.
type SettlementRecord struct {
	Sequence       int64     `json:"sequence"`
	ExpiryID       int64     `json:"expiry_id"`
	Price          int64     `json:"price"`
	TotalPayout    int64     `json:"total_payout"`
	TotalRefund    int64     `json:"total_refund"`
	TotalShortfall int64     `json:"total_shortfall"`
	FeesFolded     int64     `json:"fees_folded"`
	SettledAt      time.Time `json:"settled_at"`
}

// IntegrityReport is the outcome of a hash chain verification pass.
type IntegrityReport struct {
	EventsChecked int64  `json:"events_checked"`
	Valid         bool   `json:"valid"`
	FirstBadSeq   int64  `json:"first_bad_sequence,omitempty"`
	Detail        string `json:"detail,omitempty"`
}

// Service answers history queries against the projection schema.
type Service struct {
	db *sql.DB
}

func NewService(db *sql.DB) *Service {
	return &Service{db: db}
}

// Watermark returns the highest sequence folded into the read models.
func (s *Service) Watermark(ctx context.Context) (int64, error) {
	var seq sql.NullInt64
	err := s.db.QueryRowContext(ctx,
		`SELECT sequence FROM projections.watermark WHERE worker_id = 'main'`,
	).Scan(&seq)
	if err == sql.ErrNoRows || !seq.Valid {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read watermark: %w", err)
	}
	return seq.Int64, nil
}

// GetTradeHistory returns trades newest-first, optionally filtered by
// account. cursor is the sequence to continue below; 0 starts from the top.
func (s *Service) GetTradeHistory(ctx context.Context, account string, cursor int64, limit int) ([]TradeRecord, error) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}

	query := `SELECT sequence, account, series_id, expiry_id, is_sell, size, spot,
			raw_premium, base_fee, spread_fee, protocol_fee, total, iv_after, traded_at
		FROM projections.trade_history`
	var args []interface{}
	argIdx := 1
	var conds []string

	if account != "" {
		conds = append(conds, fmt.Sprintf("account = $%d", argIdx))
		args = append(args, account)
		argIdx++
	}
	if cursor > 0 {
		conds = append(conds, fmt.Sprintf("sequence < $%d", argIdx))
		args = append(args, cursor)
		argIdx++
	}
	for i, c := range conds {
		if i == 0 {
			query += " WHERE " + c
		} else {
			query += " AND " + c
		}
	}
	query += fmt.Sprintf(" ORDER BY sequence DESC LIMIT $%d", argIdx)
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query trade history: %w", err)
	}
	defer rows.Close()

	var out []TradeRecord
	for rows.Next() {
		var r TradeRecord
		if err := rows.Scan(&r.Sequence, &r.Account, &r.SeriesID, &r.ExpiryID, &r.IsSell,
			&r.Size, &r.Spot, &r.RawPremium, &r.BaseFee, &r.SpreadFee,
			&r.ProtocolFee, &r.Total, &r.IVAfter, &r.TradedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// GetLiquidityHistory returns liquidity changes newest-first, optionally
// filtered by account.
func (s *Service) GetLiquidityHistory(ctx context.Context, account string, cursor int64, limit int) ([]LiquidityRecord, error) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}

	query := `SELECT sequence, account, range_id, kind, shares, amount, changed_at
		FROM projections.liquidity_history`
	var args []interface{}
	argIdx := 1
	var conds []string

	if account != "" {
		conds = append(conds, fmt.Sprintf("account = $%d", argIdx))
		args = append(args, account)
		argIdx++
	}
	if cursor > 0 {
		conds = append(conds, fmt.Sprintf("sequence < $%d", argIdx))
		args = append(args, cursor)
		argIdx++
	}
	for i, c := range conds {
		if i == 0 {
			query += " WHERE " + c
		} else {
			query += " AND " + c
		}
	}
	query += fmt.Sprintf(" ORDER BY sequence DESC LIMIT $%d", argIdx)
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query liquidity history: %w", err)
	}
	defer rows.Close()

	var out []LiquidityRecord
	for rows.Next() {
		var r LiquidityRecord
		if err := rows.Scan(&r.Sequence, &r.Account, &r.RangeID, &r.Kind,
			&r.Shares, &r.Amount, &r.ChangedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// GetSettlementHistory returns settled expiries newest-first.
func (s *Service) GetSettlementHistory(ctx context.Context, cursor int64, limit int) ([]SettlementRecord, error) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}

	query := `SELECT sequence, expiry_id, price, total_payout, total_refund, total_shortfall, fees_folded, settled_at
		FROM projections.settlement_history`
	var args []interface{}
	argIdx := 1
	if cursor > 0 {
		query += fmt.Sprintf(" WHERE sequence < $%d", argIdx)
		args = append(args, cursor)
		argIdx++
	}
	query += fmt.Sprintf(" ORDER BY sequence DESC LIMIT $%d", argIdx)
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query settlement history: %w", err)
	}
	defer rows.Close()

	var out []SettlementRecord
	for rows.Next() {
		var r SettlementRecord
		if err := rows.Scan(&r.Sequence, &r.ExpiryID, &r.Price,
			&r.TotalPayout, &r.TotalRefund, &r.TotalShortfall, &r.FeesFolded, &r.SettledAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// VerifyIntegrity walks the event log checking that every event's prev_hash
// matches its predecessor's state_hash and that sequences are gapless.
func (s *Service) VerifyIntegrity(ctx context.Context) (*IntegrityReport, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT e.sequence, e.prev_hash, p.sequence, p.state_hash
		FROM event_log.events e
		LEFT JOIN event_log.events p ON p.sequence = e.sequence - 1
		ORDER BY e.sequence ASC`)
	if err != nil {
		return nil, fmt.Errorf("query event chain: %w", err)
	}
	defer rows.Close()

	report := &IntegrityReport{Valid: true}
	first := true
	for rows.Next() {
		var seq int64
		var prevHash []byte
		var parentSeq sql.NullInt64
		var parentHash []byte
		if err := rows.Scan(&seq, &prevHash, &parentSeq, &parentHash); err != nil {
			return nil, err
		}
		report.EventsChecked++

		if !parentSeq.Valid {
			// Only the first logged event may lack a predecessor.
			if !first {
				report.Valid = false
				report.FirstBadSeq = seq
				report.Detail = "sequence gap"
				return report, nil
			}
			first = false
			continue
		}
		first = false

		if !bytes.Equal(prevHash, parentHash) {
			report.Valid = false
			report.FirstBadSeq = seq
			report.Detail = "prev_hash does not match predecessor state_hash"
			return report, nil
		}
	}
	return report, rows.Err()
}
