package ingestion_test

import (
	"context"
	"testing"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog"

	"OptionAMM/internal/ingestion"
	"OptionAMM/internal/testutil"
)

// ============================================================================
// Subscriber shutdown
// ============================================================================

func TestSubscriber_StopUnblocksPendingDelivery(t *testing.T) {
	testutil.RequireIntegration(t)

	nc, err := ingestion.ConnectNATS(testutil.TestNATSURL())
	if err != nil {
		t.Skipf("NATS unreachable: %v", err)
	}
	defer nc.Close()

	js, err := jetstream.New(nc)
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := ingestion.EnsureStreams(ctx, js); err != nil {
		t.Fatal(err)
	}

	// An unbuffered output channel with no reader forces a delivery callback
	// to block mid-send; Stop must still return and release it.
	out := make(chan ingestion.RawMessage)
	sub := ingestion.NewSubscriber(zerolog.Nop(), js, out, nil)
	if err := sub.Subscribe(ctx, ingestion.DefaultSubjects()); err != nil {
		t.Fatal(err)
	}

	payload := []byte(`{"round_id": 1, "price": 100000000, "timestamp_us": 1}`)
	for i := 0; i < 3; i++ {
		if _, err := js.Publish(ctx, "amm.prices.spot.test", payload); err != nil {
			t.Fatal(err)
		}
	}
	time.Sleep(200 * time.Millisecond)

	stopped := make(chan struct{})
	go func() {
		sub.Stop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(5 * time.Second):
		t.Fatal("Stop did not return with a delivery in flight")
	}

	// A send racing Stop may still land one message; after that the channel
	// must fall silent with the remaining messages left unacked.
	deadline := time.After(time.Second)
	var delivered int
	for {
		select {
		case <-out:
			delivered++
			if delivered > 1 {
				t.Fatalf("got %d deliveries after Stop", delivered)
			}
		case <-deadline:
			return
		}
	}
}
