// Package metrics instruments a pkg/core Runtime with Prometheus
// collectors by implementing core.Observer. It deliberately knows nothing
// about pkg/core's internals beyond that interface — the same separation
// pkg/core's own doc comments describe for Observer.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/ridecore/ride/pkg/core"
)

// Config configures the scheduler metrics collector.
type Config struct {
	// Namespace is the metrics namespace (default: "ride").
	Namespace string

	// Subsystem is the metrics subsystem (default: "scheduler").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for flush duration.
	// Default: prometheus.DefBuckets
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// Option configures a Config.
type Option func(*Config)

func WithNamespace(namespace string) Option {
	return func(c *Config) { c.Namespace = namespace }
}

func WithSubsystem(subsystem string) Option {
	return func(c *Config) { c.Subsystem = subsystem }
}

func WithConstLabels(labels prometheus.Labels) Option {
	return func(c *Config) { c.ConstLabels = labels }
}

func WithBuckets(buckets []float64) Option {
	return func(c *Config) { c.Buckets = buckets }
}

func WithRegistry(registry prometheus.Registerer) Option {
	return func(c *Config) { c.Registry = registry }
}

func defaultConfig() Config {
	return Config{
		Namespace: "ride",
		Subsystem: "scheduler",
		Buckets:   prometheus.DefBuckets,
		Registry:  prometheus.DefaultRegisterer,
	}
}

// SchedulerCollector is a core.Observer that records flush duration,
// ops-drained count, yield count, and errors reported.
type SchedulerCollector struct {
	core.NoopObserver

	flushDuration prometheus.Histogram
	flushTotal    *prometheus.CounterVec
	opsDrained    prometheus.Counter
	yields        prometheus.Counter
	errorsTotal   *prometheus.CounterVec

	mu        sync.Mutex
	lastBatch int
}

// New builds a SchedulerCollector and registers its collectors against
// cfg.Registry (or the default registerer).
func New(opts ...Option) *SchedulerCollector {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	factory := promauto.With(cfg.Registry)

	return &SchedulerCollector{
		flushDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   cfg.Namespace,
			Subsystem:   cfg.Subsystem,
			Name:        "flush_duration_seconds",
			Help:        "Duration of a single Scheduler.Flush call.",
			Buckets:     cfg.Buckets,
			ConstLabels: cfg.ConstLabels,
		}),
		flushTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   cfg.Namespace,
			Subsystem:   cfg.Subsystem,
			Name:        "flush_total",
			Help:        "Number of Scheduler.Flush calls, labeled by whether they yielded.",
			ConstLabels: cfg.ConstLabels,
		}, []string{"yielded"}),
		opsDrained: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   cfg.Namespace,
			Subsystem:   cfg.Subsystem,
			Name:        "ops_drained_total",
			Help:        "Number of ops dispatched to component effect handlers.",
			ConstLabels: cfg.ConstLabels,
		}),
		yields: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   cfg.Namespace,
			Subsystem:   cfg.Subsystem,
			Name:        "yields_total",
			Help:        "Number of times a flush yielded before exhausting its batch.",
			ConstLabels: cfg.ConstLabels,
		}),
		errorsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   cfg.Namespace,
			Subsystem:   cfg.Subsystem,
			Name:        "errors_total",
			Help:        "Number of errors reported through Runtime.ReportError, labeled by phase.",
			ConstLabels: cfg.ConstLabels,
		}, []string{"phase"}),
	}
}

func (s *SchedulerCollector) OnFlushStart(batchSize int) {
	s.mu.Lock()
	s.lastBatch = batchSize
	s.mu.Unlock()
}

func (s *SchedulerCollector) OnFlushEnd(d time.Duration, yielded bool) {
	s.flushDuration.Observe(d.Seconds())
	label := "false"
	if yielded {
		label = "true"
	}
	s.flushTotal.WithLabelValues(label).Inc()
}

func (s *SchedulerCollector) OnOpDrained(component *core.Component, op *core.Op) {
	s.opsDrained.Inc()
}

func (s *SchedulerCollector) OnYield(component *core.Component) {
	s.yields.Inc()
}

func (s *SchedulerCollector) OnError(err error, ctx core.ErrorContext) {
	s.errorsTotal.WithLabelValues(string(ctx.Phase)).Inc()
}

// LastBatchSize returns the size of the most recently started flush
// batch, mainly useful for tests.
func (s *SchedulerCollector) LastBatchSize() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastBatch
}
