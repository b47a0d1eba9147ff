// Package metrics holds the collector's Prometheus instruments.
package metrics

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"monit-collector/internal/collector"
	"monit-collector/internal/monit"
)

var (
	ReportsReceived = promauto.NewCounter(prometheus.CounterOpts{
		Name: "monit_collector_reports_received_total",
		Help: "Total number of report bodies received on the collector endpoint",
	})
	ReportsMalformed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "monit_collector_reports_malformed_total",
		Help: "Total number of reports rejected as malformed",
	})
	ReportsRateLimited = promauto.NewCounter(prometheus.CounterOpts{
		Name: "monit_collector_reports_rate_limited_total",
		Help: "Total number of reports refused by the rate limiter",
	})
	DispatchFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "monit_collector_dispatch_failures_total",
		Help: "Total number of reports whose dispatch failed, by section",
	}, []string{"section"})
	DispatchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "monit_collector_dispatch_duration_seconds",
		Help:    "Time spent dispatching one report to every sink",
		Buckets: prometheus.DefBuckets,
	})
	ServicesObserved = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "monit_collector_services_observed_total",
		Help: "Total number of service snapshots received, by type and state",
	}, []string{"type", "state"})
	EventsReceived = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "monit_collector_events_total",
		Help: "Total number of Monit events received, by service type",
	}, []string{"type"})
	AgentRestarts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "monit_collector_agent_restarts_total",
		Help: "Total number of Monit restarts detected from a changed incarnation",
	})
	AgentsKnown = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "monit_collector_agents_known",
		Help: "Number of Monit instances currently held by the agent registry",
	})
	NATSPublishErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "monit_collector_nats_publish_errors_total",
		Help: "Total number of NATS publish errors",
	})
)

// Handlers counts services and events as they are dispatched.
func Handlers() collector.Handlers {
	return collector.Handlers{
		Service: func(_ context.Context, s monit.Service) error {
			kind, err := s.Type()
			if err != nil {
				return err
			}
			status, err := s.Status()
			if err != nil {
				return err
			}
			state := "ok"
			if status != 0 {
				state = "failing"
			}
			ServicesObserved.WithLabelValues(kind.String(), state).Inc()
			return nil
		},
		Event: func(_ context.Context, e monit.Event) error {
			kind, err := e.Type()
			if err != nil {
				return err
			}
			EventsReceived.WithLabelValues(kind.String()).Inc()
			return nil
		},
	}
}
