// Package metrics exposes Prometheus metrics of the relay on a dedicated listener.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/ruteri/signet-registry/interfaces"
)

// Result label values of registry_operations_total.
const (
	ResultOK               = "ok"
	ResultUnauthorized     = "unauthorized"
	ResultInvalidSignature = "invalid_signature"
	ResultStaleNonce       = "stale_nonce"
	ResultError            = "error"
)

type MetricsServer struct {
	registry   *prometheus.Registry
	operations *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	srv        *http.Server
}

func New(namespace, listenAddr string) (*MetricsServer, error) {
	reg := prometheus.NewRegistry()

	operations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "registry_operations_total",
		Help:      "Registry operations by registry, operation and result.",
	}, []string{"registry", "operation", "result"})

	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "registry_operation_duration_seconds",
		Help:      "Duration of registry operations including persistence.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"registry", "operation"})

	for _, c := range []prometheus.Collector{
		operations,
		duration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}

	m := &MetricsServer{
		registry:   reg,
		operations: operations,
		duration:   duration,
	}

	mux := chi.NewRouter()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))

	m.srv = &http.Server{
		Addr:              listenAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return m, nil
}

// RecordOperation counts one registry operation, classified by its error.
func (m *MetricsServer) RecordOperation(registry, operation string, took time.Duration, err error) {
	m.operations.WithLabelValues(registry, operation, ResultOf(err)).Inc()
	m.duration.WithLabelValues(registry, operation).Observe(took.Seconds())
}

// ResultOf maps an operation error to its result label.
func ResultOf(err error) string {
	switch {
	case err == nil:
		return ResultOK
	case errors.Is(err, interfaces.ErrUnauthorized):
		return ResultUnauthorized
	case errors.Is(err, interfaces.ErrInvalidSignature):
		return ResultInvalidSignature
	case errors.Is(err, interfaces.ErrStaleNonce):
		return ResultStaleNonce
	default:
		return ResultError
	}
}

// Handler serves the metrics of this server, for mounting on another router.
func (m *MetricsServer) Handler() http.Handler {
	return m.srv.Handler
}

func (m *MetricsServer) ListenAndServe() error {
	return m.srv.ListenAndServe()
}

func (m *MetricsServer) Shutdown(ctx context.Context) error {
	return m.srv.Shutdown(ctx)
}
