// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Keeper metrics
	KeeperTicks        *prometheus.CounterVec
	KeeperItems        *prometheus.CounterVec
	KeeperTickDuration *prometheus.HistogramVec
	KeeperLeaseSkips   *prometheus.CounterVec

	// Ledger metrics
	RPCCallLatency    *prometheus.HistogramVec
	RPCCallErrors     *prometheus.CounterVec
	DecodeErrors      *prometheus.CounterVec
	TransactionsSent  *prometheus.CounterVec
	EventsObserved    *prometheus.CounterVec
	HighestSlotSeen   prometheus.Gauge
	BondNavPerShare   *prometheus.GaugeVec
	PendingDepositsUp prometheus.Gauge

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec

	// Health metrics
	LastSuccessfulTick *prometheus.GaugeVec
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "stablebond_keeper"
	}

	return &Metrics{
		KeeperTicks: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "keeper",
			Name:      "ticks_total",
			Help:      "Total number of keeper ticks by keeper and status",
		}, []string{"keeper", "status"}),
		KeeperItems: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "keeper",
			Name:      "items_total",
			Help:      "Total number of keeper items by keeper and outcome",
		}, []string{"keeper", "outcome"}),
		KeeperTickDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "keeper",
			Name:      "tick_duration_seconds",
			Help:      "Keeper tick duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		}, []string{"keeper"}),
		KeeperLeaseSkips: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "keeper",
			Name:      "lease_skips_total",
			Help:      "Ticks skipped because another replica held the lease",
		}, []string{"keeper"}),

		RPCCallLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "solana",
			Name:      "rpc_call_latency_seconds",
			Help:      "Solana RPC call latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		RPCCallErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "solana",
			Name:      "rpc_call_errors_total",
			Help:      "Total number of failed Solana RPC calls",
		}, []string{"method"}),
		DecodeErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "decode_errors_total",
			Help:      "Total number of account records that failed to decode",
		}, []string{"kind"}),
		TransactionsSent: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "solana",
			Name:      "transactions_sent_total",
			Help:      "Total number of transactions submitted by instruction and status",
		}, []string{"instruction", "status"}),
		EventsObserved: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "watcher",
			Name:      "events_observed_total",
			Help:      "Total number of program events decoded from logs",
		}, []string{"event"}),
		HighestSlotSeen: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "watcher",
			Name:      "highest_slot_seen",
			Help:      "Highest Solana slot number seen in program logs",
		}),
		BondNavPerShare: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "nav_per_share",
			Help:      "Last observed NAV per share (scaled by 1e6) by bond type",
		}, []string{"bond_type"}),
		PendingDepositsUp: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "keeper",
			Name:      "pending_deposits",
			Help:      "Pending deposits found by the last conversion scan",
		}),

		DBQueryDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),

		LastSuccessfulTick: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_tick_timestamp",
			Help:      "Unix timestamp of the last keeper tick that completed without a tick-level error",
		}, []string{"keeper"}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordKeeperTick records a finished keeper tick.
func RecordKeeperTick(keeper, status string, seconds float64, finishedUnix int64) {
	DefaultMetrics.KeeperTicks.WithLabelValues(keeper, status).Inc()
	DefaultMetrics.KeeperTickDuration.WithLabelValues(keeper).Observe(seconds)
	if status == "success" {
		DefaultMetrics.LastSuccessfulTick.WithLabelValues(keeper).Set(float64(finishedUnix))
	}
}

// RecordKeeperItem records the outcome of one keeper item.
func RecordKeeperItem(keeper, outcome string) {
	DefaultMetrics.KeeperItems.WithLabelValues(keeper, outcome).Inc()
}

// RecordLeaseSkip records a tick skipped for lack of the keeper lease.
func RecordLeaseSkip(keeper string) {
	DefaultMetrics.KeeperLeaseSkips.WithLabelValues(keeper).Inc()
}

// RecordRPCLatency records RPC call latency.
func RecordRPCLatency(method string, seconds float64, err error) {
	DefaultMetrics.RPCCallLatency.WithLabelValues(method).Observe(seconds)
	if err != nil {
		DefaultMetrics.RPCCallErrors.WithLabelValues(method).Inc()
	}
}

// RecordDecodeError records an account that could not be decoded.
func RecordDecodeError(kind string) {
	DefaultMetrics.DecodeErrors.WithLabelValues(kind).Inc()
}

// RecordTransaction records a submitted transaction.
func RecordTransaction(instruction string, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	DefaultMetrics.TransactionsSent.WithLabelValues(instruction, status).Inc()
}

// RecordEvent records a decoded program event.
func RecordEvent(name string) {
	DefaultMetrics.EventsObserved.WithLabelValues(name).Inc()
}

// UpdateHighestSlot updates the highest slot seen gauge.
func UpdateHighestSlot(slot int64) {
	DefaultMetrics.HighestSlotSeen.Set(float64(slot))
}

// UpdateNav sets the NAV gauge for a bond type.
func UpdateNav(bondType string, nav uint64) {
	DefaultMetrics.BondNavPerShare.WithLabelValues(bondType).Set(float64(nav))
}

// UpdatePendingDeposits sets the pending deposit gauge.
func UpdatePendingDeposits(n int) {
	DefaultMetrics.PendingDepositsUp.Set(float64(n))
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}
