package persistence_test

import (
	"bytes"
	"context"
	"crypto/sha256"
	"errors"
	"testing"
	"time"

	"OptionAMM/internal/event"
	"OptionAMM/internal/persistence"
	"OptionAMM/internal/testutil"
)

func testRows(n int) []persistence.EventRow {
	prev := sha256.Sum256([]byte("genesis"))
	rows := make([]persistence.EventRow, 0, n)
	for i := 1; i <= n; i++ {
		hash := sha256.Sum256([]byte{byte(i)})
		rows = append(rows, persistence.EventRow{
			Sequence:  int64(i),
			EventType: "Trade",
			Account:   "trader-1",
			Payload:   []byte(`{"size": 100000000}`),
			StateHash: hash[:],
			PrevHash:  prev[:],
			Timestamp: time.Now().UTC().Truncate(time.Microsecond),
		})
		prev = hash
	}
	return rows
}

// ============================================================================
// Event log round trip
// ============================================================================

func TestEventLog_WriteAndLoad(t *testing.T) {
	testutil.RequireIntegration(t)
	db := testutil.SetupTestDB(t)
	ctx := context.Background()

	writer := persistence.NewEventLogWriter(db)
	rows := testRows(3)

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := writer.WriteEventBatch(ctx, tx, rows); err != nil {
		t.Fatalf("write batch: %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatal(err)
	}

	// A retried batch must be a no-op.
	tx, err = db.BeginTx(ctx, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := writer.WriteEventBatch(ctx, tx, rows); err != nil {
		t.Fatalf("retried batch: %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatal(err)
	}

	manager := persistence.NewSnapshotManager(db)
	seq, err := manager.GetLatestSequence(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if seq != 3 {
		t.Errorf("latest sequence = %d, want 3", seq)
	}

	events, err := manager.LoadEventsFrom(ctx, 1, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 2 {
		t.Fatalf("loaded %d events past sequence 1, want 2", len(events))
	}
	if events[0].Sequence != 2 || events[1].Sequence != 3 {
		t.Errorf("events out of order: %d, %d", events[0].Sequence, events[1].Sequence)
	}

	env := events[0].Envelope()
	if env.Type != event.TypeTrade {
		t.Errorf("parsed type = %s, want Trade", env.Type)
	}
	if !bytes.Equal(env.StateHash[:], rows[1].StateHash) {
		t.Error("state hash did not survive the round trip")
	}
}

func TestEventLog_EmptyLog(t *testing.T) {
	testutil.RequireIntegration(t)
	db := testutil.SetupTestDB(t)
	ctx := context.Background()

	manager := persistence.NewSnapshotManager(db)
	seq, err := manager.GetLatestSequence(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if seq != 0 {
		t.Errorf("latest sequence on empty log = %d, want 0", seq)
	}
}

// ============================================================================
// Worker shutdown
// ============================================================================

func TestWorker_FlushesPendingBatchOnCancel(t *testing.T) {
	testutil.RequireIntegration(t)
	db := testutil.SetupTestDB(t)

	input := make(chan *event.Envelope, 8)
	// Large batch size and flush timeout keep everything pending until the
	// shutdown path runs.
	worker := persistence.NewWorker(db, input, 100, time.Hour, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- worker.Run(ctx) }()

	for _, row := range testRows(2) {
		input <- row.Envelope()
	}
	time.Sleep(100 * time.Millisecond)
	cancel()

	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Fatalf("worker exit: %v", err)
	}

	seq, err := persistence.NewSnapshotManager(db).GetLatestSequence(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if seq != 2 {
		t.Errorf("latest sequence after shutdown = %d, want 2", seq)
	}
}

// ============================================================================
// Snapshot lifecycle
// ============================================================================

func TestSnapshotManager_SaveVerifyLoad(t *testing.T) {
	testutil.RequireIntegration(t)
	db := testutil.SetupTestDB(t)
	ctx := context.Background()

	manager := persistence.NewSnapshotManager(db)
	hash := sha256.Sum256([]byte("state"))
	state := []byte(`{"held": 5000000000}`)

	id, err := manager.SaveSnapshot(ctx, 10, hash[:], state)
	if err != nil {
		t.Fatalf("save snapshot: %v", err)
	}

	// Unverified snapshots are invisible to recovery.
	if _, err := manager.LoadLatestSnapshot(ctx); !errors.Is(err, persistence.ErrNoSnapshot) {
		t.Fatalf("load before verify: %v, want ErrNoSnapshot", err)
	}

	if err := manager.MarkVerified(ctx, id); err != nil {
		t.Fatalf("mark verified: %v", err)
	}

	rec, err := manager.LoadLatestSnapshot(ctx)
	if err != nil {
		t.Fatalf("load after verify: %v", err)
	}
	if rec.Sequence != 10 || !bytes.Equal(rec.StateHash, hash[:]) || !bytes.Equal(rec.State, state) {
		t.Errorf("loaded snapshot does not match saved: %+v", rec)
	}

	// A re-save at the same sequence supersedes and resets verification.
	if _, err := manager.SaveSnapshot(ctx, 10, hash[:], state); err != nil {
		t.Fatalf("re-save snapshot: %v", err)
	}
	if _, err := manager.LoadLatestSnapshot(ctx); !errors.Is(err, persistence.ErrNoSnapshot) {
		t.Fatalf("load after re-save: %v, want ErrNoSnapshot", err)
	}
}

func TestSnapshotManager_MarkVerifiedUnknownID(t *testing.T) {
	testutil.RequireIntegration(t)
	db := testutil.SetupTestDB(t)

	manager := persistence.NewSnapshotManager(db)
	if err := manager.MarkVerified(context.Background(), "00000000-0000-0000-0000-000000000000"); err == nil {
		t.Error("marking an unknown snapshot succeeded")
	}
}
