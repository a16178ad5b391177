// Package observability exposes the launchpad Prometheus metrics.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the launchpad collectors.
type Metrics struct {
	// Engine metrics
	OperationsTotal    *prometheus.CounterVec
	OperationDuration  *prometheus.HistogramVec
	RejectionsTotal    *prometheus.CounterVec
	SwapVolume         *prometheus.CounterVec
	ScaledSwaps        prometheus.Counter
	ScalingDeactivated prometheus.Counter
	ArithmeticAnomaly  *prometheus.CounterVec

	// Reward metrics
	RewardDaysOpened prometheus.Counter
	RewardsPaid      prometheus.Counter
	RewardDaysClosed prometheus.Counter

	// Time series metrics
	CandlesAppended  prometheus.Counter
	ClockRegressions prometheus.Counter

	// Sink metrics
	SinkErrors *prometheus.CounterVec

	// Stream metrics
	StreamClients prometheus.Gauge
	StreamDropped prometheus.Counter

	// API metrics
	AuthRejections *prometheus.CounterVec

	// Latency metrics
	RPCCallLatency *prometheus.HistogramVec

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "launchpad"
	}

	return &Metrics{
		// Engine metrics
		OperationsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "operations_total",
			Help:      "Total number of engine operations by outcome",
		}, []string{"operation", "outcome"}),
		OperationDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "operation_duration_seconds",
			Help:      "Engine operation duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		RejectionsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "rejections_total",
			Help:      "Total number of rejected operations by category",
		}, []string{"operation", "category"}),
		SwapVolume: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "swap_input_volume_total",
			Help:      "Total swap input in smallest units by side",
		}, []string{"side"}),
		ScaledSwaps: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "scaled_swaps_total",
			Help:      "Total number of swaps priced by the liquidity scaling simulator",
		}),
		ScalingDeactivated: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "scaling_deactivated_total",
			Help:      "Total number of liquidity scaling plugins switched off",
		}),
		ArithmeticAnomaly: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "arithmetic_anomalies_total",
			Help:      "Decrements that a saturating subtraction would have clamped",
		}, []string{"field"}),

		// Reward metrics
		RewardDaysOpened: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "rewards",
			Name:      "days_opened_total",
			Help:      "Total number of pool reward-day records opened",
		}),
		RewardsPaid: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "rewards",
			Name:      "tokens_paid_total",
			Help:      "Total reward tokens paid to claimants",
		}),
		RewardDaysClosed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "rewards",
			Name:      "days_closed_total",
			Help:      "Total number of exhausted pool reward-day records closed",
		}),

		// Time series metrics
		CandlesAppended: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "timeseries",
			Name:      "candles_appended_total",
			Help:      "Total number of candles appended to price series",
		}),
		ClockRegressions: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "timeseries",
			Name:      "clock_regressions_total",
			Help:      "Trades whose wall clock fell behind the latest candle",
		}),

		// Sink metrics
		SinkErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sink",
			Name:      "errors_total",
			Help:      "Total number of post-commit sink failures",
		}, []string{"sink"}),

		// Stream metrics
		StreamClients: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "stream",
			Name:      "clients",
			Help:      "Number of connected websocket clients",
		}),
		StreamDropped: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "stream",
			Name:      "clients_dropped_total",
			Help:      "Websocket clients disconnected for falling behind",
		}),

		// API metrics
		AuthRejections: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "auth_rejections_total",
			Help:      "Signed requests rejected by reason",
		}, []string{"reason"}),

		// Latency metrics
		RPCCallLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "solana",
			Name:      "rpc_call_latency_seconds",
			Help:      "Latency of Solana JSON-RPC calls made to resolve transfer fees",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),

		// Database metrics
		DBQueryDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Duration of ledger, journal and candle store queries",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Failed ledger, journal and candle store queries",
		}, []string{"database", "operation"}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordOperation records the outcome and duration of an engine operation.
func RecordOperation(operation, outcome string, seconds float64) {
	DefaultMetrics.OperationsTotal.WithLabelValues(operation, outcome).Inc()
	DefaultMetrics.OperationDuration.WithLabelValues(operation).Observe(seconds)
}

// RecordRejection records a rejected operation.
func RecordRejection(operation, category string) {
	DefaultMetrics.RejectionsTotal.WithLabelValues(operation, category).Inc()
}

// RecordSwap records an executed swap.
func RecordSwap(side string, amountIn uint64, scaled bool) {
	DefaultMetrics.SwapVolume.WithLabelValues(side).Add(float64(amountIn))
	if scaled {
		DefaultMetrics.ScaledSwaps.Inc()
	}
}

// RecordScalingDeactivated records a liquidity scaling plugin switching off.
func RecordScalingDeactivated() {
	DefaultMetrics.ScalingDeactivated.Inc()
}

// RecordArithmeticAnomaly records a decrement that would have been clamped.
func RecordArithmeticAnomaly(field string) {
	DefaultMetrics.ArithmeticAnomaly.WithLabelValues(field).Inc()
}

// RecordRewardDayOpened records a new pool reward-day record.
func RecordRewardDayOpened() {
	DefaultMetrics.RewardDaysOpened.Inc()
}

// RecordRewardPaid records a claim payout.
func RecordRewardPaid(amount uint64, dayClosed bool) {
	DefaultMetrics.RewardsPaid.Add(float64(amount))
	if dayClosed {
		DefaultMetrics.RewardDaysClosed.Inc()
	}
}

// RecordCandleAppended records a new candle.
func RecordCandleAppended() {
	DefaultMetrics.CandlesAppended.Inc()
}

// RecordClockRegression records a trade timestamp clamped to the latest candle.
func RecordClockRegression() {
	DefaultMetrics.ClockRegressions.Inc()
}

// RecordStreamDropped records a websocket client dropped for a full buffer.
func RecordStreamDropped() {
	DefaultMetrics.StreamDropped.Inc()
}

// RecordAuthRejection records a rejected signed request.
func RecordAuthRejection(reason string) {
	DefaultMetrics.AuthRejections.WithLabelValues(reason).Inc()
}

// RecordSinkError records a failed post-commit sink.
func RecordSinkError(sink string) {
	DefaultMetrics.SinkErrors.WithLabelValues(sink).Inc()
}

// UpdateStreamClients sets the connected websocket client gauge.
func UpdateStreamClients(n int) {
	DefaultMetrics.StreamClients.Set(float64(n))
}

// RecordRPCLatency observes one JSON-RPC call, retries included.
func RecordRPCLatency(method string, seconds float64) {
	DefaultMetrics.RPCCallLatency.WithLabelValues(method).Observe(seconds)
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}
