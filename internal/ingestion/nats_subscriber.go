package ingestion

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog"

	"OptionAMM/internal/observability"
)

const (
	// SubjectSpotPrices carries oracle spot rounds, one subject per asset.
	SubjectSpotPrices = "amm.prices.spot.>"
	// SubjectHedgeRequests carries hedge adjustments from the bot.
	SubjectHedgeRequests = "amm.hedge.requests.>"

	StreamPrices = "AMM_PRICES"
	StreamHedge  = "AMM_HEDGE"
)

// RawMessage is one consumed NATS message with its ack handles. The consumer
// loop acks after the processor commits, naks on transient failure so
// JetStream redelivers.
type RawMessage struct {
	Subject   string
	Data      []byte
	Timestamp time.Time
	Ack       func() error
	Nak       func() error
}

// SubjectConfig binds a subject filter to its stream and durable consumer.
type SubjectConfig struct {
	Subject string
	Stream  string
	Durable string
}

// DefaultSubjects returns the standard ingest bindings.
func DefaultSubjects() []SubjectConfig {
	return []SubjectConfig{
		{Subject: SubjectSpotPrices, Stream: StreamPrices, Durable: "amm-spot-rounds"},
		{Subject: SubjectHedgeRequests, Stream: StreamHedge, Durable: "amm-hedge-requests"},
	}
}

// ConnectNATS dials with unlimited reconnects; ingest must survive broker
// restarts.
func ConnectNATS(url string) (*nats.Conn, error) {
	nc, err := nats.Connect(url,
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.Timeout(10*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS at %s: %w", url, err)
	}
	return nc, nil
}

// EnsureStreams creates or updates the ingest streams.
func EnsureStreams(ctx context.Context, js jetstream.JetStream) error {
	streams := []jetstream.StreamConfig{
		{
			Name:      StreamPrices,
			Subjects:  []string{SubjectSpotPrices},
			Storage:   jetstream.FileStorage,
			Retention: jetstream.LimitsPolicy,
			MaxAge:    72 * time.Hour,
		},
		{
			Name:      StreamHedge,
			Subjects:  []string{SubjectHedgeRequests},
			Storage:   jetstream.FileStorage,
			Retention: jetstream.LimitsPolicy,
			MaxAge:    72 * time.Hour,
		},
	}
	for _, cfg := range streams {
		if _, err := js.CreateOrUpdateStream(ctx, cfg); err != nil {
			return fmt.Errorf("ensure stream %s: %w", cfg.Name, err)
		}
	}
	return nil
}

// Subscriber pulls messages off the ingest streams and forwards them to the
// consumer loop.
type Subscriber struct {
	log     zerolog.Logger
	js      jetstream.JetStream
	output  chan<- RawMessage
	metrics *observability.Metrics

	done        chan struct{}
	consumeCtxs []jetstream.ConsumeContext
}

func NewSubscriber(log zerolog.Logger, js jetstream.JetStream, output chan<- RawMessage, metrics *observability.Metrics) *Subscriber {
	return &Subscriber{
		log:     log.With().Str("component", "subscriber").Logger(),
		js:      js,
		output:  output,
		metrics: metrics,
		done:    make(chan struct{}),
	}
}

// Subscribe attaches a durable consumer per subject. Messages flow to the
// output channel until Stop.
func (s *Subscriber) Subscribe(ctx context.Context, subjects []SubjectConfig) error {
	for _, cfg := range subjects {
		cons, err := s.js.CreateOrUpdateConsumer(ctx, cfg.Stream, jetstream.ConsumerConfig{
			Durable:       cfg.Durable,
			FilterSubject: cfg.Subject,
			AckPolicy:     jetstream.AckExplicitPolicy,
			AckWait:       30 * time.Second,
			MaxDeliver:    5,
		})
		if err != nil {
			return fmt.Errorf("create consumer %s on %s: %w", cfg.Durable, cfg.Stream, err)
		}

		subject := cfg.Subject
		cc, err := cons.Consume(func(msg jetstream.Msg) {
			if s.metrics != nil {
				s.metrics.IngestMessages.WithLabelValues(subject).Inc()
			}
			select {
			case s.output <- RawMessage{
				Subject:   msg.Subject(),
				Data:      msg.Data(),
				Timestamp: time.Now(),
				Ack:       msg.Ack,
				Nak:       msg.Nak,
			}:
			case <-s.done:
				// Shutting down; the unacked message redelivers.
			}
		})
		if err != nil {
			return fmt.Errorf("consume %s: %w", cfg.Subject, err)
		}
		s.consumeCtxs = append(s.consumeCtxs, cc)
		s.log.Info().Str("subject", cfg.Subject).Str("durable", cfg.Durable).Msg("subscribed")
	}
	return nil
}

// Stop halts all consumers and unblocks any callback waiting on the output
// channel. In-flight unacked messages redeliver after the ack wait. Not safe
// to call concurrently with itself.
func (s *Subscriber) Stop() {
	for _, cc := range s.consumeCtxs {
		cc.Stop()
	}
	s.consumeCtxs = nil
	select {
	case <-s.done:
	default:
		close(s.done)
	}
}
