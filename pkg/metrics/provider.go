package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// ProviderMetrics records outbound calls to the fulfillment provider.
type ProviderMetrics struct {
	requests *prometheus.CounterVec
	retries  *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewProviderMetrics registers provider call metrics on the provided registerer.
func NewProviderMetrics(reg prometheus.Registerer) *ProviderMetrics {
	if reg == nil {
		return &ProviderMetrics{}
	}
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "provider_requests_total",
		Help:      "Fulfillment provider HTTP attempts by method and status.",
	}, []string{"method", "status"})
	retries := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "provider_retries_total",
		Help:      "Fulfillment provider attempts that were retried.",
	}, []string{"method"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "provider_request_duration_seconds",
		Help:      "Duration of a single fulfillment provider attempt.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method"})
	reg.MustRegister(requests, retries, duration)
	return &ProviderMetrics{requests: requests, retries: retries, duration: duration}
}

// ObserveAttempt records one HTTP attempt. status is 0 for transport failures.
func (p *ProviderMetrics) ObserveAttempt(method string, status int, duration time.Duration) {
	if p == nil || p.requests == nil {
		return
	}
	label := "error"
	if status > 0 {
		label = strconv.Itoa(status)
	}
	p.requests.WithLabelValues(normalizeLabel(method), label).Inc()
	p.duration.WithLabelValues(normalizeLabel(method)).Observe(duration.Seconds())
}

// IncRetry counts an attempt that will be retried.
func (p *ProviderMetrics) IncRetry(method string) {
	if p == nil || p.retries == nil {
		return
	}
	p.retries.WithLabelValues(normalizeLabel(method)).Inc()
}
