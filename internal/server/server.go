// Package server serves a built visibility network over HTTP.
package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/matzehuels/intervis/pkg/export"
	"github.com/matzehuels/intervis/pkg/network"
	"github.com/matzehuels/intervis/pkg/observability/prom"
)

// Options configures a Server.
type Options struct {
	Logger   *log.Logger
	Gatherer prometheus.Gatherer // nil disables /metrics
	// Render overrides SVG rendering, mainly for tests.
	Render func(ctx context.Context, dot string) ([]byte, error)
}

// Server holds one read-only network and its derived views.
type Server struct {
	graph  *network.Graph
	lines  []export.LineFeature
	index  *export.Index
	opts   Options
	router chi.Router

	svgOnce sync.Once
	svg     []byte
	svgErr  error
}

// New prepares a server for g. g must not be modified afterwards.
func New(g *network.Graph, opts Options) (*Server, error) {
	if opts.Logger == nil {
		opts.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	if opts.Render == nil {
		opts.Render = export.RenderSVG
	}
	lines := export.Lines(g)
	index, err := export.NewIndex(lines)
	if err != nil {
		return nil, err
	}
	s := &Server{graph: g, lines: lines, index: index, opts: opts}
	s.router = s.routes()
	return s, nil
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/healthz", s.handleHealth)
	r.Get("/network.json", s.handleGraph)
	r.Get("/network.geojson", s.handleGeoJSON)
	r.Get("/network.dot", s.handleDOT)
	r.Get("/network.svg", s.handleSVG)
	r.Get("/edges/{from}/{to}", s.handleEdge)
	if s.opts.Gatherer != nil {
		r.Handle("/metrics", prom.Handler(s.opts.Gatherer))
	}
	return r
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	s.opts.Logger.Info("serving network", "addr", addr, "nodes", s.graph.NodeCount(), "edges", s.graph.EdgeCount())

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return ctx.Err()
	}
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.opts.Logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start))
	})
}

type healthResponse struct {
	Status    string  `json:"status"`
	Nodes     int     `json:"nodes"`
	Edges     int     `json:"edges"`
	TotalArea float64 `json:"total_area"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:    "ok",
		Nodes:     s.graph.NodeCount(),
		Edges:     s.graph.EdgeCount(),
		TotalArea: s.graph.TotalArea(),
	})
}

func (s *Server) handleGraph(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := network.WriteGraph(s.graph, w); err != nil {
		s.opts.Logger.Error("write graph", "err", err)
	}
}

// handleGeoJSON serves every line, or those intersecting ?bbox=minx,miny,maxx,maxy.
func (s *Server) handleGeoJSON(w http.ResponseWriter, r *http.Request) {
	lines := s.lines
	if q := r.URL.Query().Get("bbox"); q != "" {
		b, err := export.ParseBound(q)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		if lines, err = s.index.Within(b); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
	}
	var buf bytes.Buffer
	if err := export.WriteGeoJSON(&buf, lines); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.Header().Set("Content-Type", "application/geo+json")
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) handleDOT(w http.ResponseWriter, r *http.Request) {
	opts := export.DOTOptions{Detailed: r.URL.Query().Has("detailed")}
	w.Header().Set("Content-Type", "text/vnd.graphviz")
	_, _ = io.WriteString(w, export.ToDOT(s.graph, opts))
}

// handleSVG renders once and serves the cached result.
func (s *Server) handleSVG(w http.ResponseWriter, r *http.Request) {
	s.svgOnce.Do(func() {
		s.svg, s.svgErr = s.opts.Render(r.Context(), export.ToDOT(s.graph, export.DOTOptions{}))
	})
	if s.svgErr != nil {
		writeError(w, http.StatusInternalServerError, s.svgErr)
		return
	}
	w.Header().Set("Content-Type", "image/svg+xml")
	_, _ = w.Write(s.svg)
}

func (s *Server) handleEdge(w http.ResponseWriter, r *http.Request) {
	from, err1 := strconv.ParseInt(chi.URLParam(r, "from"), 10, 64)
	to, err2 := strconv.ParseInt(chi.URLParam(r, "to"), 10, 64)
	if err := errors.Join(err1, err2); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	e, ok := s.graph.Edge(from, to)
	if !ok {
		writeError(w, http.StatusNotFound, errors.New("no such edge"))
		return
	}
	writeJSON(w, http.StatusOK, export.LineFeature{From: e.From, To: e.To, Weight: e.Area, Origin: e.Origin, Dest: e.Dest})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
