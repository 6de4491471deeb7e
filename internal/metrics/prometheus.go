package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const defaultNamespace = "basket_splitter"

// Prometheus implements Collector on a dedicated Prometheus registry.
type Prometheus struct {
	registry *prometheus.Registry

	splits   *prometheus.CounterVec
	duration prometheus.Histogram
	nodes    prometheus.Histogram
	groups   prometheus.Histogram
}

var _ Collector = (*Prometheus)(nil)

// NewPrometheus creates a collector whose series live under namespace
// ("basket_splitter" when empty). Go runtime and process collectors are
// registered alongside.
func NewPrometheus(namespace string) *Prometheus {
	if namespace == "" {
		namespace = defaultNamespace
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	p := &Prometheus{
		registry: reg,
		splits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "splits_total",
			Help:      "Total basket split requests by outcome (ok,degraded,unfulfillable,error).",
		}, []string{"outcome"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "split_duration_seconds",
			Help:      "Time spent searching for a basket grouping.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 10), // 100µs .. ~26s
		}),
		nodes: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "search_nodes",
			Help:      "Search nodes visited per split.",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 12),
		}),
		groups: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "groups_per_split",
			Help:      "Delivery groups in the returned grouping.",
			Buckets:   prometheus.LinearBuckets(1, 1, 10),
		}),
	}
	reg.MustRegister(p.splits, p.duration, p.nodes, p.groups)

	return p
}

// RecordSplit records one split. Search statistics are only observed for
// outcomes that produced a grouping.
func (p *Prometheus) RecordSplit(outcome string, duration time.Duration, nodes int, groups int) {
	p.splits.WithLabelValues(outcome).Inc()
	if outcome != OutcomeOK && outcome != OutcomeDegraded {
		return
	}
	p.duration.Observe(duration.Seconds())
	p.nodes.Observe(float64(nodes))
	p.groups.Observe(float64(groups))
}

// Registry exposes the underlying registry.
func (p *Prometheus) Registry() *prometheus.Registry {
	return p.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (p *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{Registry: p.registry})
}
