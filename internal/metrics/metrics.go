// Package metrics provides Prometheus metrics for the audit wrapper
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	StatusOK    = "ok"
	StatusError = "error"
)

// Metrics holds the collectors, each bound to its own registry.
type Metrics struct {
	registry *prometheus.Registry

	LLMRequestsTotal   *prometheus.CounterVec
	LLMRequestDuration *prometheus.HistogramVec
	LLMTokensTotal     *prometheus.CounterVec

	AuthRejectionsTotal *prometheus.CounterVec
	APIRequestsTotal    *prometheus.CounterVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		LLMRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "audit_llm_requests_total",
				Help: "Total number of chat completion calls",
			},
			[]string{"provider", "operation", "status"},
		),
		LLMRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "audit_llm_request_duration_seconds",
				Help:    "Duration of chat completion calls in seconds",
				Buckets: []float64{.25, .5, 1, 2.5, 5, 10, 20, 40, 80},
			},
			[]string{"provider", "operation"},
		),
		LLMTokensTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "audit_llm_tokens_total",
				Help: "Tokens reported by the completion service",
			},
			[]string{"provider", "kind"},
		),
		AuthRejectionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "audit_auth_rejections_total",
				Help: "Requests rejected by the token checks",
			},
			[]string{"transport"},
		),
		APIRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "audit_api_requests_total",
				Help: "Inbound API requests",
			},
			[]string{"transport", "operation", "status"},
		),
	}
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) RecordLLMCall(provider, operation string, err error, duration time.Duration) {
	if m == nil {
		return
	}
	status := StatusOK
	if err != nil {
		status = StatusError
	}
	m.LLMRequestsTotal.WithLabelValues(provider, operation, status).Inc()
	m.LLMRequestDuration.WithLabelValues(provider, operation).Observe(duration.Seconds())
}

func (m *Metrics) RecordTokens(provider string, prompt, completion int) {
	if m == nil {
		return
	}
	m.LLMTokensTotal.WithLabelValues(provider, "prompt").Add(float64(prompt))
	m.LLMTokensTotal.WithLabelValues(provider, "completion").Add(float64(completion))
}

func (m *Metrics) RecordAuthRejection(transport string) {
	if m == nil {
		return
	}
	m.AuthRejectionsTotal.WithLabelValues(transport).Inc()
}

func (m *Metrics) RecordAPIRequest(transport, operation string, err error) {
	if m == nil {
		return
	}
	status := StatusOK
	if err != nil {
		status = StatusError
	}
	m.APIRequestsTotal.WithLabelValues(transport, operation, status).Inc()
}
