// Package metrics exposes Prometheus counters for URL validation, link rewriting,
// primary source resolution, LLM calls and pipeline runs.
package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	ValidationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "a0_url_validations_total",
			Help: "URL validations by outcome reason",
		},
		[]string{"reason"},
	)

	ValidationLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "a0_url_validation_seconds",
			Help:    "Wall time of one URL validation including fallbacks",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 20, 40},
		},
	)

	LinksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "a0_outbound_links_total",
			Help: "Outbound links processed by action",
		},
		[]string{"action"}, // kept, removed, repaired
	)

	ResolutionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "a0_primary_source_resolutions_total",
			Help: "Primary source resolutions by terminal reason",
		},
		[]string{"reason"},
	)

	InternalLinksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "a0_internal_links_total",
			Help: "Internal link weaving outcomes",
		},
		[]string{"outcome"}, // inserted, skipped, fallback, llm
	)

	LLMRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "a0_llm_requests_total",
			Help: "LLM API requests by model and status",
		},
		[]string{"model", "status"}, // status: success, error, retry
	)

	ArticlesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "a0_pipeline_articles_total",
			Help: "Articles processed by the pipeline by status",
		},
		[]string{"status"}, // ok, unresolved, failed
	)
)

// ObserveValidation records one validation outcome.
func ObserveValidation(reasonClass string, elapsed time.Duration) {
	ValidationsTotal.WithLabelValues(reasonClass).Inc()
	ValidationLatency.Observe(elapsed.Seconds())
}

// Serve exposes /metrics on addr until ctx is cancelled.
func Serve(ctx context.Context, addr string, logger *slog.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("Serving metrics", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
