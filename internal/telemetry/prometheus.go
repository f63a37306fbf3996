package telemetry

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PrometheusMetrics implements Metrics against a prometheus.Registry,
// grounded on consumer/metrics.metrics in the teacher's sibling go-coffee
// repo (counters/histograms/gauges registered via promauto, served through
// promhttp.Handler). Unlike that file's package-level vars fixed at compile
// time, recorded names here are only known at call time — tags map
// one-for-one onto an unordered "key, value, key, value, ..." label set, so
// vectors are registered lazily the first time a given name/label-key
// combination is seen and cached for reuse.
type PrometheusMetrics struct {
	registry *prometheus.Registry

	mu         sync.Mutex
	counters   map[string]*prometheus.CounterVec
	histograms map[string]*prometheus.HistogramVec
	gauges     map[string]*prometheus.GaugeVec
}

// NewPrometheusMetrics constructs a Metrics recorder backed by a fresh
// prometheus.Registry. Call Handler to mount the scrape endpoint.
func NewPrometheusMetrics() *PrometheusMetrics {
	return &PrometheusMetrics{
		registry:   prometheus.NewRegistry(),
		counters:   map[string]*prometheus.CounterVec{},
		histograms: map[string]*prometheus.HistogramVec{},
		gauges:     map[string]*prometheus.GaugeVec{},
	}
}

// Handler returns the /metrics scrape endpoint for this registry, matching
// the promhttp.Handler() wiring in main_metrics.go::mainWithMetrics.
func (m *PrometheusMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func tagKeys(tags []string) []string {
	keys := make([]string, 0, len(tags)/2)
	for i := 0; i < len(tags); i += 2 {
		keys = append(keys, sanitizeLabel(tags[i]))
	}
	return keys
}

func tagValues(tags []string) prometheus.Labels {
	labels := prometheus.Labels{}
	for i := 0; i < len(tags); i += 2 {
		v := ""
		if i+1 < len(tags) {
			v = tags[i+1]
		}
		labels[sanitizeLabel(tags[i])] = v
	}
	return labels
}

func sanitizeLabel(s string) string {
	return strings.ReplaceAll(s, ".", "_")
}

func (m *PrometheusMetrics) counterVec(name string, labelKeys []string) *prometheus.CounterVec {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := vecKey(name, labelKeys)
	if c, ok := m.counters[key]; ok {
		return c
	}
	c := prometheus.NewCounterVec(prometheus.CounterOpts{Name: name, Help: name}, labelKeys)
	m.registry.MustRegister(c)
	m.counters[key] = c
	return c
}

func (m *PrometheusMetrics) histogramVec(name string, labelKeys []string) *prometheus.HistogramVec {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := vecKey(name, labelKeys)
	if h, ok := m.histograms[key]; ok {
		return h
	}
	h := prometheus.NewHistogramVec(prometheus.HistogramOpts{Name: name, Help: name, Buckets: prometheus.DefBuckets}, labelKeys)
	m.registry.MustRegister(h)
	m.histograms[key] = h
	return h
}

func (m *PrometheusMetrics) gaugeVec(name string, labelKeys []string) *prometheus.GaugeVec {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := vecKey(name, labelKeys)
	if g, ok := m.gauges[key]; ok {
		return g
	}
	g := prometheus.NewGaugeVec(prometheus.GaugeOpts{Name: name, Help: name}, labelKeys)
	m.registry.MustRegister(g)
	m.gauges[key] = g
	return g
}

func vecKey(name string, labelKeys []string) string {
	return name + "|" + strings.Join(labelKeys, ",")
}

func (m *PrometheusMetrics) IncCounter(name string, value float64, tags ...string) {
	c := m.counterVec(name, tagKeys(tags))
	c.With(tagValues(tags)).Add(value)
}

func (m *PrometheusMetrics) RecordTimer(name string, duration time.Duration, tags ...string) {
	h := m.histogramVec(name, tagKeys(tags))
	h.With(tagValues(tags)).Observe(duration.Seconds())
}

func (m *PrometheusMetrics) RecordGauge(name string, value float64, tags ...string) {
	g := m.gaugeVec(name, tagKeys(tags))
	g.With(tagValues(tags)).Set(value)
}
