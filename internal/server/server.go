// Package server exposes probes over HTTP for load balancers and scrapers.
package server

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/BigKAA/dbprobe/dbprobe"
)

// DefaultParallelism bounds concurrent probes in GET /probes.
const DefaultParallelism = 4

// Server serves probe results. Every request runs fresh probes under the
// request context; nothing is cached between requests.
type Server struct {
	Logger      *zap.Logger
	Gatherer    prometheus.Gatherer
	Parallelism int

	mu        sync.RWMutex
	prober    *dbprobe.Prober
	endpoints []dbprobe.EndpointConfig
}

// New returns a server probing endpoints with p. A nil gatherer disables /metrics.
func New(l *zap.Logger, p *dbprobe.Prober, endpoints []dbprobe.EndpointConfig, g prometheus.Gatherer) *Server {
	return &Server{Logger: l, Gatherer: g, Parallelism: DefaultParallelism, prober: p, endpoints: endpoints}
}

// SetEndpoints replaces the probed endpoints. Requests already running keep
// the list they started with.
func (s *Server) SetEndpoints(endpoints []dbprobe.EndpointConfig) {
	s.mu.Lock()
	s.endpoints = endpoints
	s.mu.Unlock()
}

// Reload swaps the prober and the endpoint list together, so no request
// sees the new endpoints with the old probe settings.
func (s *Server) Reload(p *dbprobe.Prober, endpoints []dbprobe.EndpointConfig) {
	s.mu.Lock()
	s.prober = p
	s.endpoints = endpoints
	s.mu.Unlock()
}

// Endpoints returns the current endpoint list.
func (s *Server) Endpoints() []dbprobe.EndpointConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.endpoints
}

func (s *Server) snapshot() (*dbprobe.Prober, []dbprobe.EndpointConfig) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.prober, s.endpoints
}

// Router builds the chi handler.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.AllowAll().Handler)
	r.Use(s.logRequests)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/probes", s.handleProbeAll)
	r.Get("/probes/{name}", s.handleProbeOne)
	if s.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.Gatherer, promhttp.HandlerOpts{}))
	}
	return r
}

func (s *Server) handleProbeAll(w http.ResponseWriter, r *http.Request) {
	p, endpoints := s.snapshot()
	reports := make([]dbprobe.HealthReport, len(endpoints))

	g, ctx := errgroup.WithContext(r.Context())
	limit := s.Parallelism
	if limit <= 0 {
		limit = DefaultParallelism
	}
	g.SetLimit(limit)
	for i, ep := range endpoints {
		i, ep := i, ep // per-iteration copies; go.mod targets go 1.21
		g.Go(func() error {
			reports[i] = p.Check(ctx, ep)
			return nil
		})
	}
	_ = g.Wait()

	status := http.StatusOK
	for _, rep := range reports {
		if !rep.Success {
			status = http.StatusServiceUnavailable
			break
		}
	}
	writeJSON(w, status, reports)
}

func (s *Server) handleProbeOne(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	p, endpoints := s.snapshot()
	for _, ep := range endpoints {
		if ep.Name != name {
			continue
		}
		rep := p.Check(r.Context(), ep)
		status := http.StatusOK
		if !rep.Success {
			status = http.StatusServiceUnavailable
		}
		writeJSON(w, status, rep)
		return
	}
	writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown endpoint " + name})
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.Logger.Debug("http_request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
