package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sony/gobreaker/v2"

	"github.com/kirillkom/directory-console/internal/core/synccache"
)

// SyncMetrics observes the synchronization cache, the import monitor, the
// mutation coordinator and the resilience breakers.
type SyncMetrics struct {
	registry *prometheus.Registry
	service  string

	fetchTotal        *prometheus.CounterVec
	fetchDuration     *prometheus.HistogramVec
	fetchInFlight     *prometheus.GaugeVec
	responseDiscarded *prometheus.CounterVec
	subscribers       *prometheus.GaugeVec
	jobTransitions    *prometheus.CounterVec
	mutationTotal     *prometheus.CounterVec
	mutationDuration  *prometheus.HistogramVec
	breakerState      *prometheus.GaugeVec

	mu        sync.Mutex
	subsByKey map[synccache.Key]int
}

func NewSyncMetrics(service string) *SyncMetrics {
	registry := prometheus.NewRegistry()

	fetchTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "fetch_total",
			Help:      "Total cache fetches by resource kind and outcome.",
		},
		[]string{"service", "kind", "status"},
	)
	fetchDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "fetch_duration_seconds",
			Help:      "Cache fetch duration in seconds by resource kind.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "kind"},
	)
	fetchInFlight := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "fetch_in_flight",
			Help:      "Fetches currently running by resource kind.",
		},
		[]string{"service", "kind"},
	)
	responseDiscarded := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "responses_discarded_total",
			Help:      "Late responses dropped because a newer request was issued.",
		},
		[]string{"service", "kind"},
	)
	subscribers := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "subscribers",
			Help:      "Active cache subscriptions by resource kind.",
		},
		[]string{"service", "kind"},
	)
	jobTransitions := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "imports",
			Name:      "job_transitions_total",
			Help:      "Observed import job status transitions.",
		},
		[]string{"service", "from", "to"},
	)
	mutationTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "mutations",
			Name:      "total",
			Help:      "Submitted mutations by name and outcome.",
		},
		[]string{"service", "mutation", "status"},
	)
	mutationDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "mutations",
			Name:      "duration_seconds",
			Help:      "Mutation duration in seconds by name.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "mutation"},
	)
	breakerState := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "resilience",
			Name:      "breaker_state",
			Help:      "Circuit breaker state per operation (0 closed, 1 half-open, 2 open).",
		},
		[]string{"service", "operation"},
	)

	registry.MustRegister(
		fetchTotal, fetchDuration, fetchInFlight, responseDiscarded, subscribers,
		jobTransitions, mutationTotal, mutationDuration, breakerState,
	)

	return &SyncMetrics{
		registry:          registry,
		service:           service,
		fetchTotal:        fetchTotal,
		fetchDuration:     fetchDuration,
		fetchInFlight:     fetchInFlight,
		responseDiscarded: responseDiscarded,
		subscribers:       subscribers,
		jobTransitions:    jobTransitions,
		mutationTotal:     mutationTotal,
		mutationDuration:  mutationDuration,
		breakerState:      breakerState,
		subsByKey:         make(map[synccache.Key]int),
	}
}

// Registry exposes the registry so the HTTP metrics of the same process can share one endpoint.
func (m *SyncMetrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *SyncMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *SyncMetrics) FetchStarted(key synccache.Key) {
	m.fetchInFlight.WithLabelValues(m.service, string(key.Kind)).Inc()
}

func (m *SyncMetrics) FetchFinished(key synccache.Key, duration time.Duration, err error) {
	kind := string(key.Kind)
	status := "success"
	if err != nil {
		status = "error"
	}
	m.fetchInFlight.WithLabelValues(m.service, kind).Dec()
	m.fetchTotal.WithLabelValues(m.service, kind, status).Inc()
	m.fetchDuration.WithLabelValues(m.service, kind).Observe(duration.Seconds())
}

func (m *SyncMetrics) ResponseDiscarded(key synccache.Key) {
	m.responseDiscarded.WithLabelValues(m.service, string(key.Kind)).Inc()
}

func (m *SyncMetrics) SubscribersChanged(key synccache.Key, count int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if count <= 0 {
		delete(m.subsByKey, key)
	} else {
		m.subsByKey[key] = count
	}
	total := 0
	for k, n := range m.subsByKey {
		if k.Kind == key.Kind {
			total += n
		}
	}
	m.subscribers.WithLabelValues(m.service, string(key.Kind)).Set(float64(total))
}

func (m *SyncMetrics) RecordJobTransition(from, to string) {
	if from == "" {
		from = "none"
	}
	if to == "" {
		to = "unknown"
	}
	m.jobTransitions.WithLabelValues(m.service, from, to).Inc()
}

func (m *SyncMetrics) RecordMutation(name, status string, duration time.Duration) {
	if status == "" {
		status = "unknown"
	}
	m.mutationTotal.WithLabelValues(m.service, name, status).Inc()
	m.mutationDuration.WithLabelValues(m.service, name).Observe(duration.Seconds())
}

// RecordBreakerState matches resilience.StateListener.
func (m *SyncMetrics) RecordBreakerState(operation string, _, to gobreaker.State) {
	value := 0.0
	switch to {
	case gobreaker.StateHalfOpen:
		value = 1
	case gobreaker.StateOpen:
		value = 2
	}
	m.breakerState.WithLabelValues(m.service, operation).Set(value)
}
