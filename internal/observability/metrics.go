// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/chowpashing/flash-loan-project/internal/domain"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Operation metrics
	OperationsTotal  *prometheus.CounterVec
	OperationErrors  *prometheus.CounterVec
	OperationLatency *prometheus.HistogramVec

	// Lending metrics
	LoansIssued      prometheus.Counter
	LoansRepaid      prometheus.Counter
	LoanVolume       prometheus.Counter
	FeesCollected    prometheus.Counter
	ActiveLoans      prometheus.Gauge
	PoolsInitialized prometheus.Counter

	// Exchange metrics
	SwapsExecuted prometheus.Counter
	SwapVolumeIn  prometheus.Counter
	SwapVolumeOut prometheus.Counter

	// Arbitrage metrics
	ArbitrageRounds prometheus.Counter
	ArbitrageProfit prometheus.Gauge
	RejectedRounds  *prometheus.CounterVec

	// Feed metrics
	FeedClients     prometheus.Gauge
	EventsPublished prometheus.Counter
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "flash_loan"
	}

	return &Metrics{
		OperationsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "operations_total",
			Help:      "Total number of ledger operations by type and status",
		}, []string{"operation", "status"}),
		OperationErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "operation_errors_total",
			Help:      "Total number of rejected operations by error tag",
		}, []string{"operation", "error"}),
		OperationLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "operation_duration_seconds",
			Help:      "Ledger operation duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),

		LoansIssued: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pool",
			Name:      "loans_issued_total",
			Help:      "Total number of flash loans issued",
		}),
		LoansRepaid: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pool",
			Name:      "loans_repaid_total",
			Help:      "Total number of flash loans repaid",
		}),
		LoanVolume: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pool",
			Name:      "loan_volume_total",
			Help:      "Total principal lent across all flash loans",
		}),
		FeesCollected: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pool",
			Name:      "fees_collected_total",
			Help:      "Total loan fees collected on repayment",
		}),
		ActiveLoans: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "pool",
			Name:      "active_loans",
			Help:      "Number of currently outstanding flash loans",
		}),
		PoolsInitialized: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pool",
			Name:      "pools_initialized_total",
			Help:      "Total number of lending pools initialized",
		}),

		SwapsExecuted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "dex",
			Name:      "swaps_executed_total",
			Help:      "Total number of swaps executed",
		}),
		SwapVolumeIn: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "dex",
			Name:      "swap_volume_in_total",
			Help:      "Total input amount across all swaps",
		}),
		SwapVolumeOut: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "dex",
			Name:      "swap_volume_out_total",
			Help:      "Total output amount across all swaps",
		}),

		ArbitrageRounds: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "arbitrage",
			Name:      "rounds_total",
			Help:      "Total number of committed arbitrage rounds",
		}),
		ArbitrageProfit: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "arbitrage",
			Name:      "last_round_profit",
			Help:      "Net profit of the most recent arbitrage round",
		}),
		RejectedRounds: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "arbitrage",
			Name:      "rejected_rounds_total",
			Help:      "Total number of rejected arbitrage rounds by reason",
		}, []string{"reason"}),

		FeedClients: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "clients",
			Help:      "Number of connected websocket clients",
		}),
		EventsPublished: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "events_published_total",
			Help:      "Total number of events delivered to sinks",
		}),
	}
}

// DefaultMetrics is the global metrics instance.
var DefaultMetrics = NewMetrics("")

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordOperation records a completed ledger operation.
func RecordOperation(operation, status string, seconds float64) {
	DefaultMetrics.OperationsTotal.WithLabelValues(operation, status).Inc()
	DefaultMetrics.OperationLatency.WithLabelValues(operation).Observe(seconds)
}

// RecordOperationError records a rejected operation by error tag.
func RecordOperationError(operation, errorTag string) {
	DefaultMetrics.OperationErrors.WithLabelValues(operation, errorTag).Inc()
}

// RecordRejectedRound records a rejected arbitrage round.
func RecordRejectedRound(reason string) {
	DefaultMetrics.RejectedRounds.WithLabelValues(reason).Inc()
}

// UpdateFeedClients updates the connected client gauge.
func UpdateFeedClients(n int) {
	DefaultMetrics.FeedClients.Set(float64(n))
}

// EventSink is a ledger sink that mirrors committed events into metrics.
type EventSink struct {
	metrics *Metrics
}

// NewEventSink creates an EventSink. A nil metrics uses DefaultMetrics.
func NewEventSink(metrics *Metrics) *EventSink {
	if metrics == nil {
		metrics = DefaultMetrics
	}
	return &EventSink{metrics: metrics}
}

// Publish implements ledger.Sink.
func (s *EventSink) Publish(events []domain.LedgerEvent) {
	for _, e := range events {
		s.metrics.EventsPublished.Inc()

		switch e.Kind {
		case domain.EventPoolInitialized:
			s.metrics.PoolsInitialized.Inc()
		case domain.EventLoanIssued:
			s.metrics.LoansIssued.Inc()
			s.metrics.LoanVolume.Add(float64(e.Amount))
			s.metrics.ActiveLoans.Inc()
		case domain.EventLoanRepaid:
			s.metrics.LoansRepaid.Inc()
			s.metrics.FeesCollected.Add(float64(e.Fee))
			s.metrics.ActiveLoans.Dec()
		case domain.EventSwapExecuted:
			s.metrics.SwapsExecuted.Inc()
			s.metrics.SwapVolumeIn.Add(float64(e.Amount))
			s.metrics.SwapVolumeOut.Add(float64(e.AmountOut))
		case domain.EventArbitrageExecuted:
			s.metrics.ArbitrageRounds.Inc()
		}
	}
}
