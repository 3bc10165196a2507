package relaymonitor

import (
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/GMOnyx/Commandlessapp-sub000/relay/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// DefaultBufferSize es el número de eventos recientes que se conservan
const DefaultBufferSize = 200

// Record is one finished pipeline run.
type Record struct {
	Timestamp  time.Time        `json:"timestamp"`
	EventID    string           `json:"event_id"`
	BotID      string           `json:"bot_id"`
	Kind       domain.EventKind `json:"kind"`
	ChannelID  string           `json:"channel_id"`
	AuthorID   string           `json:"author_id"`
	Outcome    domain.Outcome   `json:"outcome"`
	Reason     string           `json:"reason,omitempty"`
	DurationMs int64            `json:"duration_ms"`
}

type Stats struct {
	TotalReceived int64    `json:"total_received"`
	TotalDropped  int64    `json:"total_dropped"`
	TotalBlocked  int64    `json:"total_blocked"`
	TotalSent     int64    `json:"total_sent"`
	TotalFailed   int64    `json:"total_failed"`
	TotalExecuted int64    `json:"total_executed"`
	InFlight      int64    `json:"in_flight"`
	RecentEvents  []Record `json:"recent_events"`
}

// QueueStatsFunc reports the send queue depth and drops for the gauges.
type QueueStatsFunc func() (depth int, dropped int64)

// Monitor observes the pipeline. It keeps a ring buffer of recent runs, atomic
// totals and Prometheus collectors on its own registry.
type Monitor struct {
	eventsMu sync.Mutex
	events   []Record
	idx      int
	count    int
	ttl      time.Duration
	now      func() time.Time

	totalReceived atomic.Int64
	totalDropped  atomic.Int64
	totalBlocked  atomic.Int64
	totalSent     atomic.Int64
	totalFailed   atomic.Int64
	totalExecuted atomic.Int64
	inFlight      atomic.Int64

	registry *prometheus.Registry
	received *prometheus.CounterVec
	outcomes *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

type Option func(*Monitor)

// WithTTL hides recent events older than ttl from Stats.
func WithTTL(ttl time.Duration) Option {
	return func(m *Monitor) { m.ttl = ttl }
}

func WithClock(now func() time.Time) Option {
	return func(m *Monitor) { m.now = now }
}

func New(size int, opts ...Option) *Monitor {
	if size <= 0 {
		size = DefaultBufferSize
	}
	m := &Monitor{
		events:   make([]Record, size),
		now:      time.Now,
		registry: prometheus.NewRegistry(),
		received: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "commandless",
			Subsystem: "relay",
			Name:      "events_received_total",
			Help:      "Events that entered the relay pipeline.",
		}, []string{"kind"}),
		outcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "commandless",
			Subsystem: "relay",
			Name:      "events_finished_total",
			Help:      "Pipeline runs by outcome.",
		}, []string{"kind", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "commandless",
			Subsystem: "relay",
			Name:      "pipeline_duration_seconds",
			Help:      "Time from event receipt to pipeline completion.",
			Buckets:   []float64{.005, .01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		}, []string{"outcome"}),
	}
	for _, opt := range opts {
		opt(m)
	}

	m.registry.MustRegister(
		m.received,
		m.outcomes,
		m.duration,
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "commandless",
			Subsystem: "relay",
			Name:      "events_in_flight",
			Help:      "Events currently inside the pipeline.",
		}, func() float64 { return float64(m.inFlight.Load()) }),
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// RegisterQueue exposes send queue depth and drops as gauges.
func (m *Monitor) RegisterQueue(stats QueueStatsFunc) error {
	depth := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: "commandless",
		Subsystem: "queue",
		Name:      "depth",
		Help:      "Jobs waiting in the send queue.",
	}, func() float64 {
		d, _ := stats()
		return float64(d)
	})
	dropped := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: "commandless",
		Subsystem: "queue",
		Name:      "dropped",
		Help:      "Jobs dropped by the send queue since start.",
	}, func() float64 {
		_, n := stats()
		return float64(n)
	})
	if err := m.registry.Register(depth); err != nil {
		return err
	}
	return m.registry.Register(dropped)
}

func (m *Monitor) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus text format.
func (m *Monitor) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Monitor) Received(ev domain.Event) {
	m.totalReceived.Add(1)
	m.inFlight.Add(1)
	m.received.WithLabelValues(string(ev.Kind)).Inc()
}

func (m *Monitor) Finished(ev domain.Event, outcome domain.Outcome, reason string, elapsed time.Duration) {
	m.inFlight.Add(-1)

	switch outcome {
	case domain.OutcomeDropped:
		m.totalDropped.Add(1)
	case domain.OutcomeBlocked:
		m.totalBlocked.Add(1)
	case domain.OutcomeFailed:
		// El envío se intentó aunque no hubo decisión
		m.totalSent.Add(1)
		m.totalFailed.Add(1)
	case domain.OutcomeExecuted:
		m.totalSent.Add(1)
		m.totalExecuted.Add(1)
	}
	m.outcomes.WithLabelValues(string(ev.Kind), string(outcome)).Inc()
	m.duration.WithLabelValues(string(outcome)).Observe(elapsed.Seconds())

	rec := Record{
		Timestamp:  m.now().UTC(),
		EventID:    ev.ID,
		BotID:      ev.BotID,
		Kind:       ev.Kind,
		ChannelID:  ev.ChannelID,
		AuthorID:   ev.AuthorID,
		Outcome:    outcome,
		Reason:     reason,
		DurationMs: elapsed.Milliseconds(),
	}

	m.eventsMu.Lock()
	m.events[m.idx] = rec
	m.idx = (m.idx + 1) % len(m.events)
	if m.count < len(m.events) {
		m.count++
	}
	m.eventsMu.Unlock()
}

// Stats returns the totals and the recent runs, oldest first.
func (m *Monitor) Stats() Stats {
	m.eventsMu.Lock()
	defer m.eventsMu.Unlock()

	res := make([]Record, 0, m.count)
	cutoff := time.Time{}
	if m.ttl > 0 {
		cutoff = m.now().UTC().Add(-m.ttl)
	}
	start := (m.idx - m.count) % len(m.events)
	if start < 0 {
		start += len(m.events)
	}
	for i := 0; i < m.count; i++ {
		e := m.events[(start+i)%len(m.events)]
		if !cutoff.IsZero() && e.Timestamp.Before(cutoff) {
			continue
		}
		res = append(res, e)
	}

	return Stats{
		TotalReceived: m.totalReceived.Load(),
		TotalDropped:  m.totalDropped.Load(),
		TotalBlocked:  m.totalBlocked.Load(),
		TotalSent:     m.totalSent.Load(),
		TotalFailed:   m.totalFailed.Load(),
		TotalExecuted: m.totalExecuted.Load(),
		InFlight:      m.inFlight.Load(),
		RecentEvents:  res,
	}
}

var _ domain.PipelineObserver = (*Monitor)(nil)
