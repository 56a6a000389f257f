package http

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/couchcryptid/spei-map/internal/domain"
)

// MapDocument is a rendered map that can be served.
type MapDocument interface {
	Render(w io.Writer) error
	Layers() []domain.Layer
}

// Server exposes health, readiness, metrics, and the rendered map over HTTP.
type Server struct {
	httpServer *http.Server
	doc        MapDocument
	logger     *slog.Logger
}

// NewServer creates an HTTP server with /healthz, /readyz, /metrics, /map, and /layers routes.
func NewServer(addr string, ready sharedobs.ReadinessChecker, doc MapDocument, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		doc:    doc,
		logger: logger,
	}

	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(ready))
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /map", s.handleMap)
	mux.HandleFunc("GET /layers", s.handleLayers)
	mux.Handle("GET /{$}", http.RedirectHandler("/map", http.StatusFound))

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func (s *Server) handleMap(w http.ResponseWriter, _ *http.Request) {
	var buf bytes.Buffer
	if err := s.doc.Render(&buf); err != nil {
		s.logger.Error("map render failed", "error", err)
		http.Error(w, "map render failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(buf.Bytes())
}

type layerSummary struct {
	Label    string           `json:"label"`
	Kind     domain.LayerKind `json:"kind"`
	Asset    string           `json:"asset,omitempty"`
	Year     int              `json:"year,omitempty"`
	TileURL  string           `json:"tile_url,omitempty"`
	Features int              `json:"features,omitempty"`
}

func (s *Server) handleLayers(w http.ResponseWriter, _ *http.Request) {
	layers := s.doc.Layers()
	out := make([]layerSummary, 0, len(layers))
	for _, l := range layers {
		sum := layerSummary{Label: l.Label, Kind: l.Kind, Features: len(l.Features)}
		if l.Raster != nil {
			sum.Asset = l.Raster.ID
			sum.Year = l.Raster.Year
			sum.TileURL = l.Raster.TileURL
		}
		out = append(out, sum)
	}
	sharedobs.WriteJSON(w, http.StatusOK, out)
}
