package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/couchcryptid/spei-map/internal/domain"
	"github.com/couchcryptid/spei-map/internal/observability"
)

// RasterStore resolves a lazy raster handle against the asset store.
// A missing or misnamed asset surfaces here, not when the collection is built.
type RasterStore interface {
	LoadRaster(ctx context.Context, r domain.Raster) (domain.Raster, error)
}

// Visualizer turns a raster and its value range and palette into a tile URL.
// Raster stores that can render implement it alongside RasterStore.
type Visualizer interface {
	Visualize(ctx context.Context, r domain.Raster, vis domain.VisParams) (string, error)
}

// BoundaryStore returns the vector features matching a query.
type BoundaryStore interface {
	Features(ctx context.Context, q domain.BoundaryQuery) ([]domain.Feature, error)
}

// MapSurface is an append-only layered map.
type MapSurface interface {
	AddLayer(ctx context.Context, layer domain.Layer) error
	SetCenter(ctx context.Context, v domain.Viewport) error
}

// ErrNoBoundaryStore is recorded when no boundary source is configured; the overlay is drawn empty.
var ErrNoBoundaryStore = errors.New("no boundary store configured")

// Failure stages recorded in reports and metrics.
const (
	StageLoad      = "load"
	StageVisualize = "visualize"
	StageDraw      = "draw"
	StageBoundary  = "boundary"
	StageViewport  = "viewport"
)

// LayerFailure records a layer that was skipped.
type LayerFailure struct {
	Label string `json:"label"`
	Stage string `json:"stage"`
	Err   string `json:"error"`
}

// Report summarises one render run.
type Report struct {
	Layers           []string       `json:"layers"`
	RasterLayers     int            `json:"raster_layers"`
	MissingYears     []int          `json:"missing_years,omitempty"`
	Failures         []LayerFailure `json:"failures,omitempty"`
	BoundaryFeatures int            `json:"boundary_features"`
	Centered         bool           `json:"centered"`
}

// Complete reports whether every requested year was drawn and nothing failed.
func (r Report) Complete() bool {
	return len(r.MissingYears) == 0 && len(r.Failures) == 0
}

// Renderer draws a Plan onto a MapSurface: SPEI layers in target-year order, then
// the boundary overlay, then the viewport. Per-layer failures are logged and skipped.
type Renderer struct {
	rasters    RasterStore
	boundaries BoundaryStore
	surface    MapSurface
	logger     *slog.Logger
	metrics    *observability.Metrics
	tracer     trace.Tracer
	ready      atomic.Bool
}

// New creates a Renderer. A nil raster store draws the lazy handles unresolved;
// a nil boundary store draws an empty overlay and records a boundary failure.
func New(rasters RasterStore, boundaries BoundaryStore, surface MapSurface, logger *slog.Logger, metrics *observability.Metrics) *Renderer {
	return &Renderer{
		rasters:    rasters,
		boundaries: boundaries,
		surface:    surface,
		logger:     logger,
		metrics:    metrics,
		tracer:     otel.Tracer("github.com/couchcryptid/spei-map/internal/pipeline"),
	}
}

// CheckReadiness returns nil once a render run has finished.
func (r *Renderer) CheckReadiness(_ context.Context) error {
	if !r.ready.Load() {
		return errors.New("map has not been rendered yet")
	}
	return nil
}

// Run renders the plan. It only returns an error when ctx is cancelled; every other
// failure is recorded in the report.
func (r *Renderer) Run(ctx context.Context, plan Plan) (Report, error) {
	start := time.Now()
	ctx, span := r.tracer.Start(ctx, "render", trace.WithAttributes(
		attribute.String("window", plan.Window.String()),
		attribute.Int("targets", len(plan.TargetYears)),
	))
	defer span.End()

	collection := domain.NewCollection(plan.ProjectPath, plan.Assets)
	r.logger.Info("render started",
		"rasters", collection.Len(),
		"target_years", plan.TargetYears,
		"window", plan.Window.String(),
	)

	report := Report{Layers: []string{}}
	for _, year := range plan.TargetYears {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		r.renderYear(ctx, plan, collection, year, &report)
	}

	if err := ctx.Err(); err != nil {
		return report, err
	}
	r.renderBoundary(ctx, plan, &report)

	if err := r.surface.SetCenter(ctx, plan.Viewport); err != nil {
		r.fail(ctx, &report, "viewport", StageViewport, err)
	} else {
		report.Centered = true
	}

	r.metrics.RenderDuration.Observe(time.Since(start).Seconds())
	if report.Complete() {
		r.metrics.LastRunSuccess.Set(1)
	} else {
		r.metrics.LastRunSuccess.Set(0)
		span.SetStatus(codes.Error, "render incomplete")
	}
	r.ready.Store(true)

	r.logger.Info("render finished",
		"layers", len(report.Layers),
		"missing_years", report.MissingYears,
		"failures", len(report.Failures),
		"duration", time.Since(start),
	)
	return report, nil
}

func (r *Renderer) renderYear(ctx context.Context, plan Plan, collection *domain.Collection, year int, report *Report) {
	label := domain.LayerLabel(plan.Window, plan.Month, year)

	raster, ok := collection.Filter(year)
	if !ok {
		r.logger.Warn("target year not in collection, skipping", "year", year, "label", label)
		r.metrics.MissingYears.Inc()
		report.MissingYears = append(report.MissingYears, year)
		return
	}

	ctx, span := r.tracer.Start(ctx, "render.layer", trace.WithAttributes(
		attribute.String("label", label),
		attribute.String("asset", raster.ID),
		attribute.Int("year", year),
	))
	defer span.End()

	if r.rasters != nil {
		loaded, err := r.rasters.LoadRaster(ctx, raster)
		if err != nil {
			r.fail(ctx, report, label, StageLoad, err, "asset", raster.ID)
			return
		}
		raster = loaded
	}

	if v, ok := r.rasters.(Visualizer); ok {
		url, err := v.Visualize(ctx, raster, plan.Vis)
		if err != nil {
			r.fail(ctx, report, label, StageVisualize, err, "asset", raster.ID)
			return
		}
		raster.TileURL = url
	}

	if err := r.surface.AddLayer(ctx, domain.RasterLayer(label, raster, plan.Vis)); err != nil {
		r.fail(ctx, report, label, StageDraw, err, "asset", raster.ID)
		return
	}

	r.metrics.LayersDrawn.WithLabelValues(string(domain.LayerRaster)).Inc()
	report.Layers = append(report.Layers, label)
	report.RasterLayers++
	r.logger.Debug("layer drawn", "label", label, "asset", raster.ID)
}

func (r *Renderer) renderBoundary(ctx context.Context, plan Plan, report *Report) {
	ctx, span := r.tracer.Start(ctx, "render.boundary", trace.WithAttributes(
		attribute.String("label", plan.BoundaryLabel),
		attribute.String("dataset", plan.Boundary.Dataset),
	))
	defer span.End()

	var features []domain.Feature
	switch {
	case r.boundaries == nil:
		r.fail(ctx, report, plan.BoundaryLabel, StageBoundary, ErrNoBoundaryStore, "dataset", plan.Boundary.Dataset)
	default:
		var err error
		features, err = r.boundaries.Features(ctx, plan.Boundary)
		if err != nil {
			r.fail(ctx, report, plan.BoundaryLabel, StageBoundary, err, "dataset", plan.Boundary.Dataset)
			features = nil
			break
		}
		switch len(features) {
		case 1:
		case 0:
			r.logger.Warn("boundary query matched no features, drawing empty overlay",
				"dataset", plan.Boundary.Dataset, "filters", plan.Boundary.Filters)
		default:
			r.logger.Warn("boundary query matched several features, drawing all",
				"dataset", plan.Boundary.Dataset, "filters", plan.Boundary.Filters, "matches", len(features))
		}
	}
	r.metrics.BoundaryFeatures.Set(float64(len(features)))
	report.BoundaryFeatures = len(features)

	layer := domain.VectorLayer(plan.BoundaryLabel, features, plan.BoundaryStyle)
	if err := r.surface.AddLayer(ctx, layer); err != nil {
		r.fail(ctx, report, plan.BoundaryLabel, StageDraw, err)
		return
	}

	r.metrics.LayersDrawn.WithLabelValues(string(domain.LayerVector)).Inc()
	report.Layers = append(report.Layers, plan.BoundaryLabel)
}

// fail logs a skipped layer, counts it, and records it in the report.
func (r *Renderer) fail(ctx context.Context, report *Report, label, stage string, err error, attrs ...any) {
	span := trace.SpanFromContext(ctx)
	span.RecordError(err)
	span.SetStatus(codes.Error, stage+" failed")

	args := append([]any{"label", label, "stage", stage, "error", err}, attrs...)
	r.logger.Warn("layer skipped", args...)
	r.metrics.LayerErrors.WithLabelValues(stage).Inc()
	report.Failures = append(report.Failures, LayerFailure{Label: label, Stage: stage, Err: err.Error()})
}
