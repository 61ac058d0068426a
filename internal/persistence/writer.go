// Package persistence owns the durable side of the pool: the append-only
// event log in Postgres, periodic state snapshots, and the worker that
// drains the processor's persist channel.
package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"OptionAMM/internal/event"
)

// EventRow is one row in event_log.events.
type EventRow struct {
	Sequence  int64
	EventType string
	Account   string
	Payload   []byte // JSON-encoded event payload
	StateHash []byte
	PrevHash  []byte
	Timestamp time.Time
}

// RowFromEnvelope converts a committed envelope into its storage row.
func RowFromEnvelope(env *event.Envelope) EventRow {
	return EventRow{
		Sequence:  env.Sequence,
		EventType: env.Type.String(),
		Account:   env.Account,
		Payload:   env.Payload,
		StateHash: env.StateHash[:],
		PrevHash:  env.PrevHash[:],
		Timestamp: env.Timestamp,
	}
}

// Envelope reconstructs the in-memory form of a stored row.
func (r EventRow) Envelope() *event.Envelope {
	env := &event.Envelope{
		Sequence:  r.Sequence,
		Type:      event.ParseType(r.EventType),
		Account:   r.Account,
		Timestamp: r.Timestamp,
		Payload:   r.Payload,
	}
	copy(env.StateHash[:], r.StateHash)
	copy(env.PrevHash[:], r.PrevHash)
	return env
}

// EventLogWriter appends envelopes to Postgres using multi-row INSERT.
// ON CONFLICT (sequence) DO NOTHING makes retried batches idempotent.
type EventLogWriter struct {
	db *sql.DB
}

func NewEventLogWriter(db *sql.DB) *EventLogWriter {
	return &EventLogWriter{db: db}
}

// WriteEventBatch appends a batch inside the caller's transaction.
func (w *EventLogWriter) WriteEventBatch(ctx context.Context, tx *sql.Tx, events []EventRow) error {
	if len(events) == 0 {
		return nil
	}

	query := `INSERT INTO event_log.events
		(sequence, event_type, account, payload, state_hash, prev_hash, timestamp)
		VALUES `

	values := make([]string, 0, len(events))
	args := make([]interface{}, 0, len(events)*7)

	for i, e := range events {
		base := i * 7
		values = append(values, fmt.Sprintf(
			"($%d, $%d, $%d, $%d, $%d, $%d, $%d)",
			base+1, base+2, base+3, base+4, base+5, base+6, base+7,
		))
		args = append(args,
			e.Sequence, e.EventType, e.Account,
			e.Payload, e.StateHash, e.PrevHash, e.Timestamp,
		)
	}

	query += strings.Join(values, ", ")
	query += " ON CONFLICT (sequence) DO NOTHING"

	_, err := tx.ExecContext(ctx, query, args...)
	return err
}
