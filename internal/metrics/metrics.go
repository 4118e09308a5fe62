// Package metrics exposes engine and outbox counters to prometheus. A nil
// *Metrics is valid and records nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "swapd"

// Metrics tracks offer lifecycle and transfer-out activity
type Metrics struct {
	OffersCreated    prometheus.Counter
	OffersCompleted  prometheus.Counter
	OffersCancelled  prometheus.Counter
	CreationsAborted *prometheus.CounterVec
	Notifications    *prometheus.CounterVec
	PendingCreations prometheus.Gauge
	OracleLatency    prometheus.Histogram

	TransfersEnqueued  *prometheus.CounterVec
	TransfersCompleted *prometheus.CounterVec
	TransferFailures   *prometheus.CounterVec
	OutboxDepth        prometheus.Gauge
}

// New creates the metrics and registers them with reg. A nil reg skips
// registration.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		OffersCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "offers",
			Name:      "created_total",
			Help:      "Offers materialized after a successful privilege check",
		}),
		OffersCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "offers",
			Name:      "completed_total",
			Help:      "Offers released after both sides deposited",
		}),
		OffersCancelled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "offers",
			Name:      "cancelled_total",
			Help:      "Offers cancelled by a participant or the admin",
		}),
		CreationsAborted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "offers",
			Name:      "creations_aborted_total",
			Help:      "Pending creations aborted, by result code",
		}, []string{"result"}),
		Notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "offers",
			Name:      "notifications_total",
			Help:      "Transfer notifications, by outcome",
		}, []string{"outcome"}),
		PendingCreations: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "offers",
			Name:      "pending_creations",
			Help:      "Creations waiting for the privilege oracle",
		}),
		OracleLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "oracle",
			Name:      "latency_seconds",
			Help:      "Privilege query latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}),
		TransfersEnqueued: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "outbox",
			Name:      "enqueued_total",
			Help:      "Transfer-out tasks enqueued, by kind",
		}, []string{"kind"}),
		TransfersCompleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "outbox",
			Name:      "completed_total",
			Help:      "Transfer-out tasks confirmed, by kind",
		}, []string{"kind"}),
		TransferFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "outbox",
			Name:      "failures_total",
			Help:      "Failed transfer-out attempts, by kind",
		}, []string{"kind"}),
		OutboxDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "outbox",
			Name:      "depth",
			Help:      "Tasks waiting in the outbox after the last drain",
		}),
	}

	if reg != nil {
		reg.MustRegister(
			m.OffersCreated,
			m.OffersCompleted,
			m.OffersCancelled,
			m.CreationsAborted,
			m.Notifications,
			m.PendingCreations,
			m.OracleLatency,
			m.TransfersEnqueued,
			m.TransfersCompleted,
			m.TransferFailures,
			m.OutboxDepth,
		)
	}
	return m
}

func (m *Metrics) OfferCreated() {
	if m != nil {
		m.OffersCreated.Inc()
	}
}

func (m *Metrics) OfferCompleted() {
	if m != nil {
		m.OffersCompleted.Inc()
	}
}

func (m *Metrics) OfferCancelled() {
	if m != nil {
		m.OffersCancelled.Inc()
	}
}

func (m *Metrics) CreationAborted(result string) {
	if m != nil {
		m.CreationsAborted.WithLabelValues(result).Inc()
	}
}

func (m *Metrics) Notification(outcome string) {
	if m != nil {
		m.Notifications.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) SetPending(n int) {
	if m != nil {
		m.PendingCreations.Set(float64(n))
	}
}

func (m *Metrics) ObserveOracle(d time.Duration) {
	if m != nil {
		m.OracleLatency.Observe(d.Seconds())
	}
}

func (m *Metrics) TransferEnqueued(kind string) {
	if m != nil {
		m.TransfersEnqueued.WithLabelValues(kind).Inc()
	}
}

func (m *Metrics) TransferCompleted(kind string) {
	if m != nil {
		m.TransfersCompleted.WithLabelValues(kind).Inc()
	}
}

func (m *Metrics) TransferFailed(kind string) {
	if m != nil {
		m.TransferFailures.WithLabelValues(kind).Inc()
	}
}

func (m *Metrics) SetOutboxDepth(n int) {
	if m != nil {
		m.OutboxDepth.Set(float64(n))
	}
}
