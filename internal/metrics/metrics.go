package metrics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/FranksOps/seedcorpus/internal/storage"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	TuplesSampled = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "seedcorpus_tuples_sampled_total",
			Help: "Total number of query tuples produced by the sampler",
		},
	)

	SearchRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "seedcorpus_search_requests_total",
			Help: "Search engine queries issued, by engine and outcome",
		},
		[]string{"engine", "outcome"},
	)

	SearchHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "seedcorpus_search_hits_total",
			Help: "Result URLs returned by the search engine",
		},
		[]string{"engine"},
	)

	PageFetches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "seedcorpus_page_fetches_total",
			Help: "Pages downloaded, by domain, status and corpus verdict",
		},
		[]string{"domain", "status", "accepted"},
	)

	FetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "seedcorpus_fetch_duration_seconds",
			Help:    "Duration of page downloads in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"domain"},
	)

	CorpusBytes = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "seedcorpus_corpus_bytes_total",
			Help: "Bytes of accepted pages added to the corpus",
		},
	)
)

// RecordSearch counts one search request and the hits it returned.
func RecordSearch(engine string, hits int, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	SearchRequests.WithLabelValues(engine, outcome).Inc()
	SearchHits.WithLabelValues(engine).Add(float64(hits))
}

// RecordPage updates the fetch metrics for a downloaded page.
func RecordPage(domain string, p *storage.Page) {
	if p == nil {
		return
	}

	status := strconv.Itoa(p.StatusCode)
	if p.Error != "" {
		status = "error"
	}

	PageFetches.WithLabelValues(domain, status, strconv.FormatBool(p.Accepted)).Inc()
	FetchDuration.WithLabelValues(domain).Observe(p.Duration.Seconds())
	if p.Accepted {
		CorpusBytes.Add(float64(len(p.Body)))
	}
}

// Server exposes /metrics over HTTP.
type Server struct {
	srv  *http.Server
	addr string
}

// Start listens on port (0 picks a free one) and serves /metrics in the
// background.
func Start(port int, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}

	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return nil, fmt.Errorf("metrics listen: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", "err", err)
		}
	}()

	return &Server{srv: srv, addr: ln.Addr().String()}, nil
}

// Addr is the bound listen address.
func (s *Server) Addr() string { return s.addr }

// Stop gracefully shuts down the metrics server.
func (s *Server) Stop(ctx context.Context) error {
	if s == nil || s.srv == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return s.srv.Shutdown(ctx)
}
