package observability

import (
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

type eventMetrics struct {
	emitted   *prometheus.CounterVec
	published *prometheus.CounterVec
}

var (
	eventMetricsOnce sync.Once
	eventRegistry    *eventMetrics
)

// Events returns the metrics registry tracking contract events and their
// delivery to external sinks.
func Events() *eventMetrics {
	eventMetricsOnce.Do(func() {
		eventRegistry = &eventMetrics{
			emitted: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "quark",
				Subsystem: "events",
				Name:      "emitted_total",
				Help:      "Count of committed contract events segmented by type.",
			}, []string{"type"}),
			published: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "quark",
				Subsystem: "events",
				Name:      "published_total",
				Help:      "Count of events handed to external sinks segmented by sink and result.",
			}, []string{"sink", "result"}),
		}
		prometheus.MustRegister(eventRegistry.emitted, eventRegistry.published)
	})
	return eventRegistry
}

// RecordEmitted increments the counter for a committed event type.
func (m *eventMetrics) RecordEmitted(eventType string) {
	if m == nil {
		return
	}
	normalized := strings.TrimSpace(eventType)
	if normalized == "" {
		normalized = "unknown"
	}
	m.emitted.WithLabelValues(normalized).Inc()
}

// RecordPublished counts a sink delivery attempt. result is "ok", "error" or
// "dropped".
func (m *eventMetrics) RecordPublished(sink, result string) {
	if m == nil {
		return
	}
	m.published.WithLabelValues(sink, result).Inc()
}
