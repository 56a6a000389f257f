package pipeline

import (
	"fmt"
	"time"

	"github.com/couchcryptid/spei-map/internal/config"
	"github.com/couchcryptid/spei-map/internal/domain"
)

// Plan is everything a render run draws: which rasters, how, and where the map looks.
type Plan struct {
	ProjectPath   string               `json:"project_path"`
	Window        domain.Window        `json:"window"`
	Month         time.Month           `json:"month"`
	Assets        []domain.AssetRecord `json:"assets"`
	TargetYears   []int                `json:"target_years"`
	Vis           domain.VisParams     `json:"vis"`
	Boundary      domain.BoundaryQuery `json:"boundary"`
	BoundaryLabel string               `json:"boundary_label"`
	BoundaryStyle domain.BoundaryStyle `json:"boundary_style"`
	Viewport      domain.Viewport      `json:"viewport"`
}

// DefaultPlan draws the January SPEI-1 rasters for five drought and wet years over
// Madhya Pradesh, outlines the state, and centers the map on it.
func DefaultPlan() Plan {
	records, err := domain.PairAssets(domain.JanuaryAssets, domain.Years(domain.SeriesStartYear, domain.SeriesEndYear))
	if err != nil {
		panic(err) // fixed lists, always the same length
	}
	return Plan{
		ProjectPath: "projects/cs5-pushkinmangla/assets",
		Window:      domain.WindowMonthly,
		Month:       time.January,
		Assets:      records,
		TargetYears: []int{2009, 2012, 2013, 2015, 2019},
		Vis:         domain.SPEIVisParams(),
		Boundary: domain.BoundaryQuery{
			Dataset: "FAO/GAUL_SIMPLIFIED_500m/2015/level1",
			Filters: []domain.PropertyFilter{{Property: "ADM1_NAME", Value: "Madhya Pradesh"}},
		},
		BoundaryLabel: "MP Boundary",
		BoundaryStyle: domain.DefaultBoundaryStyle(),
		Viewport:      domain.Viewport{Lon: 78.65, Lat: 23.5, Zoom: 6},
	}
}

// PlanFromConfig builds a plan for the configured window, month and year range.
// The January SPEI-1 series over 2004–2023 uses the fixed published asset list.
func PlanFromConfig(cfg *config.Config) (Plan, error) {
	window, err := domain.ParseWindow(fmt.Sprint(cfg.Window))
	if err != nil {
		return Plan{}, fmt.Errorf("SPEI_WINDOW: %w", err)
	}

	var records []domain.AssetRecord
	if window == domain.WindowMonthly && cfg.Month == time.January &&
		cfg.StartYear == domain.SeriesStartYear && cfg.EndYear == domain.SeriesEndYear {
		records, err = domain.PairAssets(domain.JanuaryAssets, domain.Years(cfg.StartYear, cfg.EndYear))
	} else {
		records, err = domain.BuildAssets(window, cfg.Month, cfg.StartYear, cfg.EndYear)
	}
	if err != nil {
		return Plan{}, fmt.Errorf("build assets: %w", err)
	}

	filters := []domain.PropertyFilter{{Property: cfg.BoundaryProperty, Value: cfg.BoundaryValue}}
	if cfg.BoundaryCountry != "" {
		filters = append(filters, domain.PropertyFilter{Property: "ADM0_NAME", Value: cfg.BoundaryCountry})
	}

	viewport := domain.Viewport{Lon: cfg.CenterLon, Lat: cfg.CenterLat, Zoom: cfg.Zoom}
	if err := viewport.Validate(); err != nil {
		return Plan{}, err
	}

	return Plan{
		ProjectPath:   cfg.ProjectPath,
		Window:        window,
		Month:         cfg.Month,
		Assets:        records,
		TargetYears:   append([]int(nil), cfg.TargetYears...),
		Vis:           domain.SPEIVisParams(),
		Boundary:      domain.BoundaryQuery{Dataset: cfg.BoundaryDataset, Filters: filters},
		BoundaryLabel: cfg.BoundaryLabel,
		BoundaryStyle: domain.DefaultBoundaryStyle(),
		Viewport:      viewport,
	}, nil
}
