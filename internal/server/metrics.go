package server

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"google.golang.org/grpc"
	"google.golang.org/grpc/status"
)

// Metrics holds the registry's Prometheus collectors on a private registry.
type Metrics struct {
	Registry     *prometheus.Registry
	Registered   *prometheus.CounterVec
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec
	RPCs         *prometheus.CounterVec
	Discovery    *prometheus.CounterVec
}

// NewMetrics creates and registers the collectors, plus the standard Go
// runtime and process collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		Registered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "appreg_applications_registered_total",
			Help: "Applications registered, by category.",
		}, []string{"category"}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "appreg_http_requests_total",
			Help: "HTTP requests served, by route and status code.",
		}, []string{"route", "code"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "appreg_http_request_duration_seconds",
			Help:    "HTTP request latency, by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
		RPCs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "appreg_grpc_requests_total",
			Help: "gRPC calls served, by method and status code.",
		}, []string{"method", "code"}),
		Discovery: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "appreg_discovery_runs_total",
			Help: "Discovery runs reported by agents, by agent.",
		}, []string{"agent"}),
	}
	m.Registry.MustRegister(
		m.Registered,
		m.HTTPRequests,
		m.HTTPDuration,
		m.RPCs,
		m.Discovery,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// UnaryInterceptor counts completed unary RPCs.
func (m *Metrics) UnaryInterceptor(
	ctx context.Context,
	req any,
	info *grpc.UnaryServerInfo,
	handler grpc.UnaryHandler,
) (any, error) {
	resp, err := handler(ctx, req)
	m.RPCs.WithLabelValues(info.FullMethod, status.Code(err).String()).Inc()
	return resp, err
}
