package observability

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Skip reasons recorded by the pipeline.
const (
	SkipDuplicate  = "duplicate"
	SkipExisting   = "existing"
	SkipRobots     = "robots"
	SkipFetch      = "fetch_error"
	SkipStatus     = "bad_status"
	SkipNotArticle = "not_article"
	SkipInvalid    = "invalid_record"
)

// Metrics holds the scrape counters on a private registry, so several
// instances can coexist in one process. All methods are safe on a nil
// receiver, which disables recording.
type Metrics struct {
	registry *prometheus.Registry

	runs          *prometheus.CounterVec
	candidates    *prometheus.CounterVec
	clicks        *prometheus.CounterVec
	fetches       *prometheus.CounterVec
	fetchDuration *prometheus.HistogramVec
	saved         *prometheus.CounterVec
	skipped       *prometheus.CounterVec
	nlpCalls      *prometheus.CounterVec

	logger *slog.Logger
}

// NewMetrics creates a Metrics instance with its own registry.
func NewMetrics(logger *slog.Logger) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "newsgoat_runs_total",
			Help: "Scrape runs by site and outcome",
		}, []string{"site", "outcome"}),
		candidates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "newsgoat_candidate_links_total",
			Help: "Candidate article links discovered on search pages",
		}, []string{"site"}),
		clicks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "newsgoat_show_more_clicks_total",
			Help: "Pagination control activations",
		}, []string{"site"}),
		fetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "newsgoat_article_fetches_total",
			Help: "Article page fetches by status code",
		}, []string{"site", "status"}),
		fetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "newsgoat_article_fetch_duration_seconds",
			Help:    "Duration of article page fetches",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
		}, []string{"site"}),
		saved: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "newsgoat_articles_saved_total",
			Help: "Article rows appended to storage",
		}, []string{"site"}),
		skipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "newsgoat_articles_skipped_total",
			Help: "Candidate articles skipped by reason",
		}, []string{"site", "reason"}),
		nlpCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "newsgoat_nlp_requests_total",
			Help: "Calls to the sentiment and summarization service",
		}, []string{"task", "outcome"}),
		logger: logger.With("component", "metrics"),
	}

	m.registry.MustRegister(
		m.runs, m.candidates, m.clicks, m.fetches,
		m.fetchDuration, m.saved, m.skipped, m.nlpCalls,
	)
	return m
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) RunFinished(site string, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.runs.WithLabelValues(site, outcome).Inc()
}

func (m *Metrics) CandidatesFound(site string, n int) {
	if m == nil {
		return
	}
	m.candidates.WithLabelValues(site).Add(float64(n))
}

func (m *Metrics) Clicked(site string, n int) {
	if m == nil {
		return
	}
	m.clicks.WithLabelValues(site).Add(float64(n))
}

// Fetched records one article fetch. A status of zero means a transport
// error.
func (m *Metrics) Fetched(site string, status int, d time.Duration) {
	if m == nil {
		return
	}
	label := "error"
	if status > 0 {
		label = fmt.Sprintf("%d", status)
	}
	m.fetches.WithLabelValues(site, label).Inc()
	m.fetchDuration.WithLabelValues(site).Observe(d.Seconds())
}

func (m *Metrics) Saved(site string) {
	if m == nil {
		return
	}
	m.saved.WithLabelValues(site).Inc()
}

func (m *Metrics) Skipped(site, reason string) {
	if m == nil {
		return
	}
	m.skipped.WithLabelValues(site, reason).Inc()
}

func (m *Metrics) NLPCall(task string, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.nlpCalls.WithLabelValues(task, outcome).Inc()
}

// Snapshot sums every counter family, keyed by metric name without the
// newsgoat_ prefix.
func (m *Metrics) Snapshot() map[string]float64 {
	out := make(map[string]float64)
	if m == nil {
		return out
	}
	families, err := m.registry.Gather()
	if err != nil {
		m.logger.Warn("gather metrics", "error", err)
		return out
	}
	for _, mf := range families {
		name := strings.TrimPrefix(mf.GetName(), "newsgoat_")
		for _, metric := range mf.GetMetric() {
			switch {
			case metric.GetCounter() != nil:
				out[name] += metric.GetCounter().GetValue()
			case metric.GetHistogram() != nil:
				out[name+"_count"] += float64(metric.GetHistogram().GetSampleCount())
			}
		}
	}
	return out
}

// Handler serves the registry in Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Server serves metrics and a health probe.
type Server struct {
	srv    *http.Server
	logger *slog.Logger
}

// StartServer starts the metrics HTTP server in the background.
func (m *Metrics) StartServer(port int, path string) *Server {
	mux := http.NewServeMux()
	mux.Handle(path, m.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "ok")
	})

	addr := fmt.Sprintf(":%d", port)
	s := &Server{
		srv:    &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second},
		logger: m.logger,
	}
	m.logger.Info("metrics server starting", "addr", addr, "path", path)

	go func() {
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("metrics server error", "error", err)
		}
	}()
	return s
}

// Stop gracefully shuts the server down.
func (s *Server) Stop(ctx context.Context) error {
	if s == nil || s.srv == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return s.srv.Shutdown(ctx)
}
