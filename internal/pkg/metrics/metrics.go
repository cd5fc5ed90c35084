package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds every Routepeer collector plus the Go runtime collectors.
var Registry = prometheus.NewRegistry()

// Driver agent metrics.
var (
	// AgentOnline is 1 while the agent believes the hub is reachable.
	AgentOnline = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "rpeer_agent_online",
			Help: "Connectivity of the driver agent to the hub (1=online, 0=offline).",
		},
	)

	SyncPassesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rpeer_agent_sync_passes_total",
			Help: "Sync passes by outcome.",
		},
		[]string{"result"}, // clean, partial, skipped
	)

	SyncItemsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rpeer_agent_sync_items_total",
			Help: "Pending items processed by sync passes.",
		},
		[]string{"kind", "result"}, // result: synced, failed, rejected, dropped
	)

	SyncDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "rpeer_agent_sync_duration_seconds",
			Help:    "Wall time of one sync pass.",
			Buckets: prometheus.DefBuckets,
		},
	)

	PendingItems = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "rpeer_agent_pending_items",
			Help: "Items waiting in the local queue.",
		},
		[]string{"kind"},
	)

	QueueWriteFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "rpeer_agent_queue_write_failures_total",
			Help: "Driver actions that could not be persisted to the local queue.",
		},
	)
)

// Hub metrics.
var (
	TransitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rpeer_hub_transitions_total",
			Help: "Accepted status transitions.",
		},
		[]string{"entity", "to"},
	)

	RejectedTransitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rpeer_hub_rejected_transitions_total",
			Help: "Status changes refused by the transition table.",
		},
		[]string{"entity"},
	)

	RateLimitedPingsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "rpeer_hub_rate_limited_pings_total",
			Help: "Location pings refused for arriving too soon after the previous one.",
		},
	)

	PhotoUploadsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "rpeer_hub_photo_uploads_total",
			Help: "Proof of delivery photos stored.",
		},
	)

	RequestLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "rpeer_http_request_duration_seconds",
			Help:    "Latency of API requests by route template.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "code"},
	)
)

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		AgentOnline,
		SyncPassesTotal,
		SyncItemsTotal,
		SyncDuration,
		PendingItems,
		QueueWriteFailuresTotal,
		TransitionsTotal,
		RejectedTransitionsTotal,
		RateLimitedPingsTotal,
		PhotoUploadsTotal,
		RequestLatency,
	)
}

// Handler serves Registry in the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}
