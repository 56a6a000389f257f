// Command speimap renders yearly SPEI drought rasters and an administrative boundary
// onto an interactive map.
//
// The map is written to OUTPUT_HTML, optionally streamed to Kafka as layer commands,
// and, when HTTP_ADDR is set, served until SIGINT or SIGTERM.
//
// Usage:
//
//	EE_TOKEN=$(gcloud auth print-access-token) \
//	BOUNDARY_SOURCE=data/gaul_level1.geojson \
//	  go run ./cmd/speimap
//
//	go run ./cmd/speimap -print
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/couchcryptid/spei-map/internal/adapter/earthengine"
	"github.com/couchcryptid/spei-map/internal/adapter/geojson"
	httpadapter "github.com/couchcryptid/spei-map/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/spei-map/internal/adapter/kafka"
	"github.com/couchcryptid/spei-map/internal/adapter/leaflet"
	"github.com/couchcryptid/spei-map/internal/config"
	"github.com/couchcryptid/spei-map/internal/observability"
	"github.com/couchcryptid/spei-map/internal/pipeline"
)

const (
	serviceName = "spei-map"
	mapTitle    = "SPEI Drought Map"
)

func main() {
	printPlan := flag.Bool("print", false, "print the render plan as JSON and exit")
	flag.Parse()

	os.Exit(run(*printPlan))
}

func run(printPlan bool) int {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		return 1
	}

	logger := observability.NewLogger(cfg)

	plan, err := pipeline.PlanFromConfig(cfg)
	if err != nil {
		logger.Error("invalid render plan", "error", err)
		return 1
	}
	if printPlan {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(plan); err != nil {
			logger.Error("print plan", "error", err)
			return 1
		}
		return 0
	}

	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := observability.SetupTracing(ctx, cfg.OTelEndpoint, serviceName)
	if err != nil {
		logger.Error("failed to set up tracing", "error", err)
		return 1
	}

	// Raster store (feature-flagged via EE_ENABLED / EE_TOKEN).
	var ee *earthengine.Client
	var rasters pipeline.RasterStore
	if cfg.EEEnabled {
		ee = earthengine.NewClient(cfg.EEToken, cfg.EEProject, cfg.EEBaseURL, cfg.EETimeout, metrics, logger)
		rasters = ee
		logger.Info("earth engine enabled", "project", cfg.EEProject, "timeout", cfg.EETimeout)
	} else {
		logger.Warn("earth engine disabled, raster layers will have no tiles")
	}

	boundaries := boundaryStore(cfg, ee, logger)

	doc := leaflet.NewDocument(mapTitle)
	surfaces := pipeline.Surfaces{doc}

	var writer *kafkaadapter.Writer
	if cfg.KafkaEnabled {
		writer = kafkaadapter.NewWriter(cfg, serviceName, logger)
		surfaces = append(surfaces, writer)
		logger.Info("kafka layer stream enabled", "topic", cfg.KafkaLayerTopic, "brokers", cfg.KafkaBrokers)
	}

	renderer := pipeline.New(rasters, boundaries, surfaces, logger, metrics)

	var srv *httpadapter.Server
	if cfg.HTTPAddr != "" {
		srv = httpadapter.NewServer(cfg.HTTPAddr, renderer, doc, logger)
		go func() {
			if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("http server error", "error", err)
			}
		}()
	}

	report, err := renderer.Run(ctx, plan)
	code := exitCode(report, err)
	switch {
	case err != nil:
		logger.Error("render interrupted", "error", err)
	case code != 0:
		logger.Error("no SPEI layers could be drawn", "missing_years", report.MissingYears, "failures", len(report.Failures))
	}

	if shouldWriteMap(err, cfg.OutputHTML) {
		if err := doc.WriteFile(cfg.OutputHTML); err != nil {
			logger.Error("failed to write map", "error", err)
			code = 1
		} else {
			logger.Info("map written", "path", cfg.OutputHTML, "layers", len(report.Layers))
		}
	}

	if srv != nil && ctx.Err() == nil {
		logger.Info("serving map until interrupted", "addr", cfg.HTTPAddr)
		<-ctx.Done()
	}
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if srv != nil {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("http server shutdown error", "error", err)
		}
	}
	if writer != nil {
		if err := writer.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		logger.Error("tracing shutdown error", "error", err)
	}

	logger.Info("shutdown complete")
	return code
}

// boundaryStore picks the boundary source: a GeoJSON file or URL when BOUNDARY_SOURCE is
// set, otherwise the Earth Engine catalog when a client is available. It returns nil when
// neither is configured, and the renderer then draws an empty overlay.
func boundaryStore(cfg *config.Config, ee *earthengine.Client, logger *slog.Logger) pipeline.BoundaryStore {
	switch {
	case cfg.BoundarySource != "":
		logger.Info("boundary source configured", "dataset", cfg.BoundaryDataset, "source", cfg.BoundarySource)
		return geojson.NewStore(cfg.BoundaryDataset, cfg.BoundarySource, cfg.BoundaryTimeout, logger)
	case ee != nil:
		logger.Info("boundary from earth engine catalog", "dataset", cfg.BoundaryDataset)
		return ee
	default:
		logger.Warn("no boundary source, overlay will be empty", "dataset", cfg.BoundaryDataset)
		return nil
	}
}

// exitCode is 1 when the run was interrupted or no SPEI layer made it onto the map.
func exitCode(report pipeline.Report, err error) int {
	if err != nil || report.RasterLayers == 0 {
		return 1
	}
	return 0
}

// shouldWriteMap reports whether the document is written; an interrupted run leaves
// any previous file in place.
func shouldWriteMap(err error, path string) bool {
	return err == nil && path != ""
}
