package ingestion

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog"

	"OptionAMM/internal/event"
)

const (
	// SubjectEvents is the outbound subject pattern; the event type is
	// lower-cased into the last token.
	SubjectEvents = "amm.events.>"

	StreamEvents = "AMM_EVENTS"
)

// outboundEvent is the wire form of a committed envelope.
type outboundEvent struct {
	Sequence  int64           `json:"sequence"`
	Type      string          `json:"type"`
	Account   string          `json:"account,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
	StateHash string          `json:"state_hash"`
	PrevHash  string          `json:"prev_hash"`
}

// EnsureOutboundStream creates or updates the outbound event stream.
func EnsureOutboundStream(ctx context.Context, js jetstream.JetStream) error {
	_, err := js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:      StreamEvents,
		Subjects:  []string{SubjectEvents},
		Storage:   jetstream.FileStorage,
		Retention: jetstream.LimitsPolicy,
		MaxAge:    72 * time.Hour,
	})
	if err != nil {
		return fmt.Errorf("ensure stream %s: %w", StreamEvents, err)
	}
	return nil
}

// OutboundPublisher mirrors committed envelopes onto NATS for external
// consumers. It feeds from the notify channel, which drops under pressure;
// consumers needing completeness read the event log instead.
type OutboundPublisher struct {
	log   zerolog.Logger
	js    jetstream.JetStream
	input <-chan *event.Envelope
}

func NewOutboundPublisher(log zerolog.Logger, js jetstream.JetStream, input <-chan *event.Envelope) *OutboundPublisher {
	return &OutboundPublisher{
		log:   log.With().Str("component", "publisher").Logger(),
		js:    js,
		input: input,
	}
}

// Run publishes envelopes until ctx is cancelled or the channel closes.
func (p *OutboundPublisher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case env, ok := <-p.input:
			if !ok {
				return nil
			}
			if err := p.publish(ctx, env); err != nil {
				p.log.Error().Err(err).Int64("sequence", env.Sequence).Msg("outbound publish failed")
			}
		}
	}
}

func (p *OutboundPublisher) publish(ctx context.Context, env *event.Envelope) error {
	data, err := json.Marshal(outboundEvent{
		Sequence:  env.Sequence,
		Type:      env.Type.String(),
		Account:   env.Account,
		Timestamp: env.Timestamp,
		Payload:   env.Payload,
		StateHash: hex.EncodeToString(env.StateHash[:]),
		PrevHash:  hex.EncodeToString(env.PrevHash[:]),
	})
	if err != nil {
		return fmt.Errorf("marshal outbound event: %w", err)
	}

	subject := "amm.events." + strings.ToLower(env.Type.String())
	if _, err := p.js.Publish(ctx, subject, data); err != nil {
		return fmt.Errorf("publish to %s: %w", subject, err)
	}
	return nil
}
