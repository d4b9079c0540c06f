// Package metrics exports update cycle statistics to Prometheus.
//
// A Collector is a compose.Observer. Register it with a scheduler and serve
// the registry it writes to:
//
//	reg := prometheus.NewRegistry()
//	collector := metrics.New(metrics.WithRegistry(reg))
//	sched := compose.NewScheduler(root, compose.WithObserver(collector))
//	http.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/vango-dev/memo/pkg/compose"
)

// Config configures a Collector.
type Config struct {
	// Namespace is the metrics namespace (default: "memo").
	Namespace string

	// Subsystem is the metrics subsystem (default: "").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for cycle duration.
	// Default: prometheus.DefBuckets
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// Option configures a Collector.
type Option func(*Config)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) Option {
	return func(c *Config) {
		c.Namespace = namespace
	}
}

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(subsystem string) Option {
	return func(c *Config) {
		c.Subsystem = subsystem
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) Option {
	return func(c *Config) {
		c.ConstLabels = labels
	}
}

// WithBuckets sets the histogram buckets.
func WithBuckets(buckets []float64) Option {
	return func(c *Config) {
		c.Buckets = buckets
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) Option {
	return func(c *Config) {
		c.Registry = registry
	}
}

func defaultConfig() Config {
	return Config{
		Namespace: "memo",
		Buckets:   prometheus.DefBuckets,
		Registry:  prometheus.DefaultRegisterer,
	}
}

// Collector records cycle reports as Prometheus metrics.
type Collector struct {
	cyclesTotal   *prometheus.CounterVec
	cycleDuration prometheus.Histogram
	rendersTotal  *prometheus.CounterVec
	skipsTotal    *prometheus.CounterVec
	unmountsTotal prometheus.Counter
}

// New creates a Collector and registers its metrics.
// Registering two collectors with one registry panics.
func New(opts ...Option) *Collector {
	config := defaultConfig()
	for _, opt := range opts {
		opt(&config)
	}
	factory := promauto.With(config.Registry)

	return &Collector{
		cyclesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "cycles_total",
			Help:        "Total number of update cycles run",
			ConstLabels: config.ConstLabels,
		}, []string{"status"}),

		cycleDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "cycle_duration_seconds",
			Help:        "Update cycle duration in seconds",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}),

		rendersTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "renders_total",
			Help:        "Total number of component renders",
			ConstLabels: config.ConstLabels,
		}, []string{"component"}),

		skipsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "skips_total",
			Help:        "Total number of component renders skipped because props were unchanged",
			ConstLabels: config.ConstLabels,
		}, []string{"component"}),

		unmountsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "unmounts_total",
			Help:        "Total number of call sites removed from the tree",
			ConstLabels: config.ConstLabels,
		}),
	}
}

// ObserveCycle implements compose.Observer.
func (c *Collector) ObserveCycle(r compose.CycleReport) {
	status := "success"
	if r.Failed() {
		status = "error"
	}
	c.cyclesTotal.WithLabelValues(status).Inc()
	c.cycleDuration.Observe(r.Duration.Seconds())

	for _, site := range r.Rendered {
		c.rendersTotal.WithLabelValues(site.Component).Inc()
	}
	for _, site := range r.Skipped {
		c.skipsTotal.WithLabelValues(site.Component).Inc()
	}
	c.unmountsTotal.Add(float64(len(r.Unmounted)))
}
