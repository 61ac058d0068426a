// Package ingestion consumes external inputs over NATS JetStream: spot price
// rounds from the oracle feed and hedge requests from the hedging bot. It
// also publishes committed envelopes back out for downstream consumers.
package ingestion

import (
	"encoding/json"
	"fmt"
)

// SpotRound is the wire form of one oracle price round.
type SpotRound struct {
	RoundID     int64 `json:"round_id"`
	Price       int64 `json:"price"` // 8 decimals
	TimestampUs int64 `json:"timestamp_us"`
}

// HedgeRequest is the wire form of a bot hedge adjustment.
type HedgeRequest struct {
	Caller   string `json:"caller"`
	ExpiryID int64  `json:"expiry_id"`
	Delta    int64  `json:"delta"` // 8 decimals, signed
}

// ParseSpotRound decodes and validates a spot round message.
func ParseSpotRound(data []byte) (*SpotRound, error) {
	var r SpotRound
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("unmarshal spot round: %w", err)
	}
	if r.RoundID <= 0 {
		return nil, fmt.Errorf("spot round: round_id must be positive, got %d", r.RoundID)
	}
	if r.Price <= 0 {
		return nil, fmt.Errorf("spot round %d: price must be positive, got %d", r.RoundID, r.Price)
	}
	if r.TimestampUs <= 0 {
		return nil, fmt.Errorf("spot round %d: timestamp_us must be positive, got %d", r.RoundID, r.TimestampUs)
	}
	return &r, nil
}

// ParseHedgeRequest decodes and validates a hedge request message.
func ParseHedgeRequest(data []byte) (*HedgeRequest, error) {
	var r HedgeRequest
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("unmarshal hedge request: %w", err)
	}
	if r.Caller == "" {
		return nil, fmt.Errorf("hedge request: caller must not be empty")
	}
	if r.ExpiryID <= 0 {
		return nil, fmt.Errorf("hedge request: expiry_id must be positive, got %d", r.ExpiryID)
	}
	if r.Delta == 0 {
		return nil, fmt.Errorf("hedge request for expiry %d: delta must not be zero", r.ExpiryID)
	}
	return &r, nil
}
