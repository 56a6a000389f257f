package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
)

// VisParams controls how a raster's values map to colors.
type VisParams struct {
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
	Palette Palette `json:"palette"`
}

// SPEIVisParams is the diverging [-2, 2] scale used for every SPEI layer.
func SPEIVisParams() VisParams {
	return VisParams{Min: -2, Max: 2, Palette: slices.Clone(SPEIPalette)}
}

// Validate checks the range and palette colors.
func (v VisParams) Validate() error {
	if !(v.Max > v.Min) {
		return fmt.Errorf("vis params: max %g must exceed min %g", v.Max, v.Min)
	}
	if len(v.Palette) == 0 {
		return errors.New("vis params: empty palette")
	}
	for _, c := range v.Palette {
		if _, err := ParseHexColor(c); err != nil {
			return fmt.Errorf("vis params: %w", err)
		}
	}
	return nil
}

// BoundaryStyle draws vector features. FillColor is "rrggbbaa"; the default is fully transparent.
type BoundaryStyle struct {
	Color     string  `json:"color"`
	FillColor string  `json:"fillColor"`
	Width     float64 `json:"width"`
}

// DefaultBoundaryStyle is an unfilled black outline, two pixels wide.
func DefaultBoundaryStyle() BoundaryStyle {
	return BoundaryStyle{Color: "black", FillColor: "00000000", Width: 2}
}

// FillOpacity returns the alpha of FillColor in [0, 1]. Unparseable colors are treated as opaque.
func (s BoundaryStyle) FillOpacity() float64 {
	c, err := ParseHexColor(s.FillColor)
	if err != nil {
		return 1
	}
	return float64(c.A) / 255
}

// Feature is one vector feature. Geometry holds a GeoJSON geometry object.
type Feature struct {
	ID         string          `json:"id,omitempty"`
	Properties map[string]any  `json:"properties,omitempty"`
	Geometry   json.RawMessage `json:"geometry"`
	BBox       [4]float64      `json:"bbox"` // minLon, minLat, maxLon, maxLat
}

// PropertyFilter selects features whose property equals Value.
type PropertyFilter struct {
	Property string `json:"property"`
	Value    string `json:"value"`
}

// BoundaryQuery selects features from a named vector dataset; all filters must match.
type BoundaryQuery struct {
	Dataset string           `json:"dataset"`
	Filters []PropertyFilter `json:"filters"`
}

// LayerKind distinguishes raster layers from vector overlays.
type LayerKind string

const (
	LayerRaster LayerKind = "raster"
	LayerVector LayerKind = "vector"
)

// Layer is one labelled, renderable unit on the map.
type Layer struct {
	Label    string         `json:"label"`
	Kind     LayerKind      `json:"kind"`
	Raster   *Raster        `json:"raster,omitempty"`
	Vis      *VisParams     `json:"vis,omitempty"`
	Features []Feature      `json:"features,omitempty"`
	Style    *BoundaryStyle `json:"style,omitempty"`
}

// RasterLayer builds a raster layer. The palette is copied so layers never share it.
func RasterLayer(label string, r Raster, vis VisParams) Layer {
	vis.Palette = slices.Clone(vis.Palette)
	return Layer{Label: label, Kind: LayerRaster, Raster: &r, Vis: &vis}
}

// VectorLayer builds an outline layer. An empty feature list is allowed.
func VectorLayer(label string, features []Feature, style BoundaryStyle) Layer {
	return Layer{Label: label, Kind: LayerVector, Features: features, Style: &style}
}

// Viewport is the map center in WGS-84 and a web-map zoom level.
type Viewport struct {
	Lon  float64 `json:"lon"`
	Lat  float64 `json:"lat"`
	Zoom int     `json:"zoom"`
}

// Validate checks coordinate and zoom ranges.
func (v Viewport) Validate() error {
	if v.Lon < -180 || v.Lon > 180 {
		return fmt.Errorf("viewport: longitude %g out of range", v.Lon)
	}
	if v.Lat < -90 || v.Lat > 90 {
		return fmt.Errorf("viewport: latitude %g out of range", v.Lat)
	}
	if v.Zoom < 0 || v.Zoom > 24 {
		return fmt.Errorf("viewport: zoom %d out of range", v.Zoom)
	}
	return nil
}
