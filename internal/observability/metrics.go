package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the AMM.
type Metrics struct {
	// --- Event processing ---
	EventsApplied *prometheus.CounterVec
	EventDuration *prometheus.HistogramVec
	EventsDropped prometheus.Counter
	Sequence      prometheus.Gauge

	// --- Trading ---
	TradesTotal     *prometheus.CounterVec
	TradePremium    *prometheus.CounterVec
	TradesRejected  *prometheus.CounterVec
	TickUtilization *prometheus.GaugeVec

	// --- Pool state ---
	HeldCollateral prometheus.Gauge
	ProtocolFees   prometheus.Gauge
	SpotPrice      prometheus.Gauge

	// --- Settlement ---
	SettlementsTotal prometheus.Counter
	SettlementPayout prometheus.Counter

	// --- Persistence ---
	PersistEventsWritten prometheus.Counter
	PersistBatchDur      prometheus.Histogram
	PersistBatchSize     prometheus.Histogram
	PersistErrors        *prometheus.CounterVec
	PersistLastSequence  prometheus.Gauge

	// --- Projection ---
	ProjectionErrors       prometheus.Counter
	ProjectionLastSequence prometheus.Gauge

	// --- Ingestion ---
	IngestMessages *prometheus.CounterVec
	IngestErrors   *prometheus.CounterVec

	// --- API ---
	RPCRequests *prometheus.CounterVec
	RPCDuration *prometheus.HistogramVec
	RPCErrors   *prometheus.CounterVec
}

// NewMetrics creates and registers all Prometheus metrics.
func NewMetrics() *Metrics {
	durationBuckets := []float64{
		0.00001, 0.000025, 0.00005, 0.0001, 0.00025,
		0.0005, 0.001, 0.002, 0.005, 0.01, 0.05,
	}

	return &Metrics{
		EventsApplied: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "amm_events_applied_total",
			Help: "Committed state mutations by event type",
		}, []string{"type"}),
		EventDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "amm_event_duration_seconds",
			Help:    "Time to apply and emit one event",
			Buckets: durationBuckets,
		}, []string{"type"}),
		EventsDropped: promauto.NewCounter(prometheus.CounterOpts{
			Name: "amm_notify_events_dropped_total",
			Help: "Envelopes dropped from the full notification channel",
		}),
		Sequence: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "amm_sequence",
			Help: "Current event log sequence",
		}),

		TradesTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "amm_trades_total",
			Help: "Committed trades by side",
		}, []string{"side"}),
		TradePremium: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "amm_trade_premium_total",
			Help: "Raw premium volume in collateral units by side",
		}, []string{"side"}),
		TradesRejected: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "amm_trades_rejected_total",
			Help: "Rejected trades by reason",
		}, []string{"reason"}),
		TickUtilization: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "amm_tick_utilization_ratio",
			Help: "Locked over total collateral per tick",
		}, []string{"tick"}),

		HeldCollateral: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "amm_held_collateral",
			Help: "Pool-custodied collateral (free balances plus unsettled fees)",
		}),
		ProtocolFees: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "amm_protocol_fees",
			Help: "Accumulated protocol fee balance",
		}),
		SpotPrice: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "amm_spot_price",
			Help: "Latest ingested spot price (8 decimals)",
		}),

		SettlementsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "amm_settlements_total",
			Help: "Settled expiries",
		}),
		SettlementPayout: promauto.NewCounter(prometheus.CounterOpts{
			Name: "amm_settlement_payout_total",
			Help: "Collateral paid to option holders at settlement",
		}),

		PersistEventsWritten: promauto.NewCounter(prometheus.CounterOpts{
			Name: "amm_persist_events_written_total",
			Help: "Envelopes written to the event log",
		}),
		PersistBatchDur: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "amm_persist_batch_duration_seconds",
			Help:    "Event log batch write duration",
			Buckets: prometheus.DefBuckets,
		}),
		PersistBatchSize: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "amm_persist_batch_size",
			Help:    "Envelopes per event log batch",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250},
		}),
		PersistErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "amm_persist_errors_total",
			Help: "Event log write failures by stage",
		}, []string{"stage"}),
		PersistLastSequence: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "amm_persist_last_sequence",
			Help: "Highest sequence durably written",
		}),

		ProjectionErrors: promauto.NewCounter(prometheus.CounterOpts{
			Name: "amm_projection_errors_total",
			Help: "Read model update failures",
		}),
		ProjectionLastSequence: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "amm_projection_last_sequence",
			Help: "Highest sequence applied to the read model",
		}),

		IngestMessages: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "amm_ingest_messages_total",
			Help: "NATS messages consumed by subject",
		}, []string{"subject"}),
		IngestErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "amm_ingest_errors_total",
			Help: "NATS message failures by subject",
		}, []string{"subject"}),

		RPCRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "amm_rpc_requests_total",
			Help: "JSON-RPC requests by method",
		}, []string{"method"}),
		RPCDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "amm_rpc_duration_seconds",
			Help:    "JSON-RPC request duration by method",
			Buckets: durationBuckets,
		}, []string{"method"}),
		RPCErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "amm_rpc_errors_total",
			Help: "JSON-RPC errors by method",
		}, []string{"method"}),
	}
}
