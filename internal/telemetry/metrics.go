package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// HTTPRequestDuration tracks HTTP request latency. Shared across all four services.
var HTTPRequestDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: "cmp",
		Subsystem: "api",
		Name:      "request_duration_seconds",
		Help:      "HTTP request duration in seconds.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"method", "path", "status"},
)

// ReservationsCreatedTotal counts authorize outcomes by allowed/denied.
var ReservationsCreatedTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "cmp",
		Subsystem: "wallet",
		Name:      "reservations_created_total",
		Help:      "Total reservations created by outcome.",
	},
	[]string{"outcome"}, // allowed, denied
)

// SettlementsTotal counts settle outcomes.
var SettlementsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "cmp",
		Subsystem: "wallet",
		Name:      "settlements_total",
		Help:      "Total settlements by outcome.",
	},
	[]string{"outcome"}, // settled, replayed
)

// ProvisioningOutcomesTotal counts provisioning/add-credits calls by kind and outcome.
var ProvisioningOutcomesTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "cmp",
		Subsystem: "provisioning",
		Name:      "outcomes_total",
		Help:      "Total provisioning outcomes by operation and result.",
	},
	[]string{"operation", "result"}, // provision_instance|add_credits, success|error
)

// ConnectorDispatchDuration tracks outbound tool-call latency by connector type.
var ConnectorDispatchDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: "cmp",
		Subsystem: "connector",
		Name:      "dispatch_duration_seconds",
		Help:      "Connector Gateway outbound dispatch duration in seconds.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"connector_type", "success"},
)

// NewMetricsRegistry creates a Prometheus registry with Go/process collectors,
// the shared HTTPRequestDuration metric, and any additional service-specific
// collectors passed as arguments.
func NewMetricsRegistry(extra...prometheus.Collector) *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		HTTPRequestDuration,
	)
	for _, c := range extra {
		reg.MustRegister(c)
	}
	return reg
}
