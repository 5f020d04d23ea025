package metrics

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	SearchRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sift_search_requests_total",
			Help: "Total number of search page requests sent to instances",
		},
		[]string{"instance", "status"},
	)

	SearchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sift_search_duration_seconds",
			Help:    "Duration of search page requests in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"instance"},
	)

	ResultsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sift_results_total",
			Help: "Total decoded search results across all pages",
		},
		[]string{"instance"},
	)

	TransportRetriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sift_transport_retries_total",
			Help: "Page sends repeated after a transport failure",
		},
		[]string{"instance"},
	)

	EmptyPagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sift_empty_pages_total",
			Help: "Page responses that arrived with an empty result list",
		},
		[]string{"instance"},
	)

	DecodeFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sift_decode_failures_total",
			Help: "Response payloads that failed to decode",
		},
		[]string{"instance", "kind"},
	)

	BlockPagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sift_block_pages_total",
			Help: "Failed responses recognized as block or rate-limit pages",
		},
		[]string{"instance", "source"},
	)

	ProxyFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sift_proxy_failures_total",
			Help: "Requests that failed while routed through a pool proxy",
		},
		[]string{"proxy"},
	)
)

// RecordSearch updates the per-request metrics for one page send.
func RecordSearch(instance, status string, duration time.Duration, results int) {
	SearchRequestsTotal.WithLabelValues(instance, status).Inc()
	SearchDuration.WithLabelValues(instance).Observe(duration.Seconds())
	if results > 0 {
		ResultsTotal.WithLabelValues(instance).Add(float64(results))
	}
}

// Server encapsulates an HTTP server for Prometheus metrics.
type Server struct {
	srv *http.Server
}

// Start begins listening on the specified port and exposes /metrics.
func Start(port int) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: mux,
	}

	go func() {
		// Suppress the error from intentional shutdown
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			fmt.Printf("metrics server failed: %v\n", err)
		}
	}()

	return &Server{srv: srv}
}

// Stop gracefully shuts down the metrics server.
func (s *Server) Stop(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return s.srv.Shutdown(ctx)
}
