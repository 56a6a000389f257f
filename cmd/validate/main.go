// Command validate checks a render plan against its data sources before a map is
// drawn: the published asset list against the naming scheme, target years against
// the collection, the boundary query against the GeoJSON source, and optionally
// every target asset and the boundary against Earth Engine.
//
// Configuration comes from the same environment variables as speimap.
//
// Usage:
//
//	go run ./cmd/validate -boundary data/gaul_level1.geojson
//	EE_TOKEN=$(gcloud auth print-access-token) go run ./cmd/validate -ee
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/couchcryptid/spei-map/internal/adapter/earthengine"
	"github.com/couchcryptid/spei-map/internal/adapter/geojson"
	"github.com/couchcryptid/spei-map/internal/config"
	"github.com/couchcryptid/spei-map/internal/domain"
	"github.com/couchcryptid/spei-map/internal/observability"
	"github.com/couchcryptid/spei-map/internal/pipeline"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name    string
	skipped bool
	errors  []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	boundary := flag.String("boundary", "", "GeoJSON boundary file or URL (defaults to BOUNDARY_SOURCE)")
	checkEE := flag.Bool("ee", false, "resolve every target asset against Earth Engine")
	flag.Parse()

	if code := run(os.Stdout, *boundary, *checkEE); code != 0 {
		os.Exit(code)
	}
}

func run(out io.Writer, boundarySource string, checkEE bool) int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load config: %v\n", err)
		return 1
	}
	plan, err := pipeline.PlanFromConfig(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: build plan: %v\n", err)
		return 1
	}
	if boundarySource == "" {
		boundarySource = cfg.BoundarySource
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	fmt.Fprintln(out, "=== SPEI Render Plan Validation ===")
	fmt.Fprintln(out)

	phases := []*phase{
		validateAssetNaming(plan),
		validateTargets(plan),
		validateStyling(plan),
	}

	var client *earthengine.Client
	if checkEE {
		if cfg.EEToken == "" {
			fmt.Fprintln(os.Stderr, "FATAL: -ee requires EE_TOKEN")
			return 1
		}
		client = earthengine.NewClient(cfg.EEToken, cfg.EEProject, cfg.EEBaseURL, cfg.EETimeout,
			observability.NewMetricsForTesting(), logger)
	}

	bp := &phase{name: "Boundary query matches one feature"}
	switch {
	case boundarySource != "":
		store := geojson.NewStore(plan.Boundary.Dataset, boundarySource, cfg.BoundaryTimeout, logger)
		bp = validateBoundary(ctx, store, plan)
	case client != nil:
		bp = validateBoundary(ctx, client, plan)
	default:
		bp.skipped = true
	}
	phases = append(phases, bp)

	ep := &phase{name: "Target assets resolve in Earth Engine"}
	if client != nil {
		ep = validateAssets(ctx, client, plan)
	} else {
		ep.skipped = true
	}
	phases = append(phases, ep)

	return report(out, plan, phases)
}

func report(out io.Writer, plan pipeline.Plan, phases []*phase) int {
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		switch {
		case p.skipped:
			status = "\033[33mSKIP\033[0m"
		case !p.passed():
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Fprintf(out, "  %-42s %s\n", p.name, status)
	}

	fmt.Fprintln(out)
	fmt.Fprintf(out, "Plan: %s %s, %d assets, %d target years, boundary %q\n",
		plan.Window, plan.Month, len(plan.Assets), len(plan.TargetYears), plan.BoundaryLabel)

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Fprintf(out, "\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Fprintf(out, "  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Fprintln(out, "\nAll validations passed.")
		return 0
	}
	fmt.Fprintln(out, "\nValidation FAILED.")
	return 1
}

// validateAssetNaming checks every asset name against the export naming scheme and
// that years are unique and ascending.
func validateAssetNaming(plan pipeline.Plan) *phase {
	p := &phase{name: "Asset names follow export scheme"}
	if len(plan.Assets) == 0 {
		p.errorf("plan has no assets")
		return p
	}

	seriesStart := plan.Assets[0].Year
	seen := make(map[string]bool, len(plan.Assets))
	for i, rec := range plan.Assets {
		want, err := domain.AssetName(plan.Window, seriesStart, rec.Year, plan.Month)
		if err != nil {
			p.errorf("asset %d (%s): %v", i, rec.Name, err)
			continue
		}
		if rec.Name != want {
			p.errorf("asset %d: year %d is %s, want %s", i, rec.Year, rec.Name, want)
		}
		if seen[rec.Name] {
			p.errorf("asset %d: duplicate name %s", i, rec.Name)
		}
		seen[rec.Name] = true
		if i > 0 && rec.Year <= plan.Assets[i-1].Year {
			p.errorf("asset %d: year %d does not follow %d", i, rec.Year, plan.Assets[i-1].Year)
		}
	}
	return p
}

// validateTargets checks that every target year has a raster in the collection.
func validateTargets(plan pipeline.Plan) *phase {
	p := &phase{name: "Target years present in collection"}
	collection := domain.NewCollection(plan.ProjectPath, plan.Assets)
	seen := make(map[int]bool, len(plan.TargetYears))
	for _, y := range plan.TargetYears {
		if seen[y] {
			p.errorf("target year %d listed twice", y)
		}
		seen[y] = true
		if _, ok := collection.Filter(y); !ok {
			p.errorf("target year %d has no raster (collection covers %d-%d)",
				y, plan.Assets[0].Year, plan.Assets[len(plan.Assets)-1].Year)
		}
	}
	return p
}

// validateStyling checks vis params, the palette midpoint, and the viewport.
func validateStyling(plan pipeline.Plan) *phase {
	p := &phase{name: "Vis params, palette, and viewport"}
	if err := plan.Vis.Validate(); err != nil {
		p.errorf("%v", err)
	}
	if n := len(plan.Vis.Palette); n%2 == 1 && plan.Vis.Palette[n/2] != domain.NearNormal {
		p.errorf("palette midpoint is %s, want %s", plan.Vis.Palette[n/2], domain.NearNormal)
	}
	if err := plan.Viewport.Validate(); err != nil {
		p.errorf("%v", err)
	}
	if plan.BoundaryStyle.FillOpacity() != 0 {
		p.errorf("boundary fill %s is not transparent", plan.BoundaryStyle.FillColor)
	}
	return p
}

// validateBoundary checks that the boundary query matches exactly one feature and
// that the map center falls inside it.
func validateBoundary(ctx context.Context, store pipeline.BoundaryStore, plan pipeline.Plan) *phase {
	p := &phase{name: "Boundary query matches one feature"}
	features, err := store.Features(ctx, plan.Boundary)
	if err != nil {
		p.errorf("query boundary: %v", err)
		return p
	}
	if len(features) != 1 {
		p.errorf("query %v matched %d features, want 1", plan.Boundary.Filters, len(features))
	}
	for _, f := range features {
		b := f.BBox
		v := plan.Viewport
		if v.Lon < b[0] || v.Lon > b[2] || v.Lat < b[1] || v.Lat > b[3] {
			p.errorf("feature %s bbox %v does not contain center (%g, %g)", f.ID, b, v.Lon, v.Lat)
		}
	}
	return p
}

// validateAssets resolves each target raster against the raster store.
func validateAssets(ctx context.Context, store pipeline.RasterStore, plan pipeline.Plan) *phase {
	p := &phase{name: "Target assets resolve in Earth Engine"}
	collection := domain.NewCollection(plan.ProjectPath, plan.Assets)
	for _, y := range plan.TargetYears {
		r, ok := collection.Filter(y)
		if !ok {
			continue
		}
		loaded, err := store.LoadRaster(ctx, r)
		if err != nil {
			p.errorf("year %d: %v", y, err)
			continue
		}
		if len(loaded.Bands) == 0 {
			p.errorf("year %d: %s has no bands", y, r.ID)
		}
	}
	return p
}
