package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// SnapshotFormatVersion is bumped whenever the snapshot state encoding
// changes incompatibly. Loads reject unknown versions.
const SnapshotFormatVersion = 1

var ErrNoSnapshot = errors.New("persistence: no verified snapshot")

// SnapshotRecord is one stored engine snapshot. State carries the
// JSON-encoded engine export; StateHash is the hash chain tip at Sequence.
type SnapshotRecord struct {
	SnapshotID    string
	Sequence      int64
	State         []byte
	StateHash     []byte
	FormatVersion int
	Verified      bool
	CreatedAt     time.Time
}

// SnapshotManager stores and retrieves engine snapshots. Snapshots are saved
// unverified; a verifier marks them after checking the state hash against the
// event log, and only verified snapshots are used for recovery.
type SnapshotManager struct {
	db *sql.DB
}

func NewSnapshotManager(db *sql.DB) *SnapshotManager {
	return &SnapshotManager{db: db}
}

// SaveSnapshot stores a snapshot, replacing any prior snapshot at the same
// sequence.
func (m *SnapshotManager) SaveSnapshot(ctx context.Context, sequence int64, stateHash, state []byte) (string, error) {
	snapshotID := uuid.New().String()

	_, err := m.db.ExecContext(ctx, `
		INSERT INTO event_log.snapshots
			(snapshot_id, sequence, state, state_hash, format_version, size_bytes, verified, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, FALSE, NOW())
		ON CONFLICT (sequence) DO UPDATE SET
			snapshot_id = EXCLUDED.snapshot_id,
			state = EXCLUDED.state,
			state_hash = EXCLUDED.state_hash,
			format_version = EXCLUDED.format_version,
			size_bytes = EXCLUDED.size_bytes,
			verified = FALSE,
			created_at = NOW()`,
		snapshotID, sequence, state, stateHash, SnapshotFormatVersion, len(state),
	)
	if err != nil {
		return "", fmt.Errorf("save snapshot at sequence %d: %w", sequence, err)
	}
	return snapshotID, nil
}

// LoadLatestSnapshot returns the highest-sequence verified snapshot, or
// ErrNoSnapshot when none exists.
func (m *SnapshotManager) LoadLatestSnapshot(ctx context.Context) (*SnapshotRecord, error) {
	rec := &SnapshotRecord{}
	err := m.db.QueryRowContext(ctx, `
		SELECT snapshot_id, sequence, state, state_hash, format_version, verified, created_at
		FROM event_log.snapshots
		WHERE verified = TRUE
		ORDER BY sequence DESC
		LIMIT 1`,
	).Scan(&rec.SnapshotID, &rec.Sequence, &rec.State, &rec.StateHash,
		&rec.FormatVersion, &rec.Verified, &rec.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoSnapshot
	}
	if err != nil {
		return nil, fmt.Errorf("load latest snapshot: %w", err)
	}
	if rec.FormatVersion != SnapshotFormatVersion {
		return nil, fmt.Errorf("snapshot %s has format version %d, want %d",
			rec.SnapshotID, rec.FormatVersion, SnapshotFormatVersion)
	}
	return rec, nil
}

// MarkVerified records that a snapshot's state hash matched the event log.
func (m *SnapshotManager) MarkVerified(ctx context.Context, snapshotID string) error {
	res, err := m.db.ExecContext(ctx,
		`UPDATE event_log.snapshots SET verified = TRUE WHERE snapshot_id = $1`,
		snapshotID,
	)
	if err != nil {
		return fmt.Errorf("mark snapshot %s verified: %w", snapshotID, err)
	}
	n, err := res.RowsAffected()
	if err == nil && n == 0 {
		return fmt.Errorf("snapshot %s not found", snapshotID)
	}
	return nil
}

// LoadEventsFrom returns up to limit events with sequence > fromSequence, in
// sequence order. Recovery pages through the log with repeated calls.
func (m *SnapshotManager) LoadEventsFrom(ctx context.Context, fromSequence int64, limit int) ([]EventRow, error) {
	rows, err := m.db.QueryContext(ctx, `
		SELECT sequence, event_type, account, payload, state_hash, prev_hash, timestamp
		FROM event_log.events
		WHERE sequence > $1
		ORDER BY sequence ASC
		LIMIT $2`,
		fromSequence, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("load events from sequence %d: %w", fromSequence, err)
	}
	defer rows.Close()

	var events []EventRow
	for rows.Next() {
		var e EventRow
		if err := rows.Scan(&e.Sequence, &e.EventType, &e.Account,
			&e.Payload, &e.StateHash, &e.PrevHash, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("scan event row: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// GetLatestSequence returns the highest sequence in the event log, or 0 when
// the log is empty.
func (m *SnapshotManager) GetLatestSequence(ctx context.Context) (int64, error) {
	var seq sql.NullInt64
	err := m.db.QueryRowContext(ctx,
		`SELECT MAX(sequence) FROM event_log.events`,
	).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("get latest sequence: %w", err)
	}
	if !seq.Valid {
		return 0, nil
	}
	return seq.Int64, nil
}
