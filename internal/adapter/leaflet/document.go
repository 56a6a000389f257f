// Package leaflet renders map layers into a standalone Leaflet HTML page.
package leaflet

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/couchcryptid/spei-map/internal/domain"
)

//go:embed map.html.tmpl
var pageTemplate string

var page = template.Must(template.New("map").Parse(pageTemplate))

// DefaultViewport is used when no center has been set.
var DefaultViewport = domain.Viewport{Lon: 0, Lat: 0, Zoom: 2}

// Document is an in-memory map surface. Layers are kept in insertion order and never
// removed; Render can be called at any time.
type Document struct {
	mu       sync.Mutex
	title    string
	layers   []domain.Layer
	viewport *domain.Viewport
}

// NewDocument creates an empty map document.
func NewDocument(title string) *Document {
	return &Document{title: title}
}

// AddLayer appends a layer. Duplicate labels are kept as separate layers.
func (d *Document) AddLayer(_ context.Context, layer domain.Layer) error {
	if layer.Label == "" {
		return errors.New("layer label is required")
	}
	switch layer.Kind {
	case domain.LayerRaster:
		if layer.Raster == nil || layer.Vis == nil {
			return fmt.Errorf("raster layer %q: missing raster or vis params", layer.Label)
		}
	case domain.LayerVector:
		if layer.Style == nil {
			return fmt.Errorf("vector layer %q: missing style", layer.Label)
		}
	default:
		return fmt.Errorf("layer %q: unknown kind %q", layer.Label, layer.Kind)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.layers = append(d.layers, layer)
	return nil
}

// SetCenter sets the initial viewport; the last call wins.
func (d *Document) SetCenter(_ context.Context, v domain.Viewport) error {
	if err := v.Validate(); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.viewport = &v
	return nil
}

// Layers returns a copy of the layers in drawing order.
func (d *Document) Layers() []domain.Layer {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]domain.Layer, len(d.layers))
	copy(out, d.layers)
	return out
}

// Viewport returns the current viewport and whether one was set.
func (d *Document) Viewport() (domain.Viewport, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.viewport == nil {
		return DefaultViewport, false
	}
	return *d.viewport, true
}

// Render writes the HTML page.
func (d *Document) Render(w io.Writer) error {
	v, err := d.view()
	if err != nil {
		return err
	}
	if err := page.Execute(w, v); err != nil {
		return fmt.Errorf("render map: %w", err)
	}
	return nil
}

// WriteFile renders the page to path, replacing any existing file.
func (d *Document) WriteFile(path string) error {
	var buf bytes.Buffer
	if err := d.Render(&buf); err != nil {
		return err
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write map %s: %w", path, err)
	}
	return nil
}

type pageView struct {
	Title       string
	GeneratedAt string
	Center      [2]float64 // lat, lon as Leaflet expects
	Zoom        int
	Layers      []layerView
	Legend      *legendView
}

type layerView struct {
	Label   string          `json:"label"`
	Kind    string          `json:"kind"`
	TileURL string          `json:"tileUrl,omitempty"`
	Asset   string          `json:"asset,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
	Style   *styleView      `json:"style,omitempty"`
}

type styleView struct {
	Color       string  `json:"color"`
	Weight      float64 `json:"weight"`
	FillColor   string  `json:"fillColor"`
	FillOpacity float64 `json:"fillOpacity"`
}

type legendView struct {
	Min    float64  `json:"min"`
	Max    float64  `json:"max"`
	Colors []string `json:"colors"`
}

type featureCollection struct {
	Type     string        `json:"type"`
	Features []featureJSON `json:"features"`
}

type featureJSON struct {
	Type       string          `json:"type"`
	ID         string          `json:"id,omitempty"`
	Properties map[string]any  `json:"properties"`
	Geometry   json.RawMessage `json:"geometry"`
}

func (d *Document) view() (pageView, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	vp := DefaultViewport
	if d.viewport != nil {
		vp = *d.viewport
	}
	v := pageView{
		Title:       d.title,
		GeneratedAt: domain.Now().Format(time.RFC3339),
		Center:      [2]float64{vp.Lat, vp.Lon},
		Zoom:        vp.Zoom,
		Layers:      make([]layerView, 0, len(d.layers)),
	}

	for _, l := range d.layers {
		lv := layerView{Label: l.Label, Kind: string(l.Kind)}
		switch l.Kind {
		case domain.LayerRaster:
			lv.TileURL = l.Raster.TileURL
			lv.Asset = l.Raster.ID
			if v.Legend == nil {
				v.Legend = &legendView{Min: l.Vis.Min, Max: l.Vis.Max, Colors: l.Vis.Palette}
			}
		case domain.LayerVector:
			data, err := featureData(l.Features)
			if err != nil {
				return pageView{}, fmt.Errorf("layer %q: %w", l.Label, err)
			}
			lv.Data = data
			lv.Style = &styleView{
				Color:       l.Style.Color,
				Weight:      l.Style.Width,
				FillColor:   fillRGB(l.Style.FillColor),
				FillOpacity: l.Style.FillOpacity(),
			}
		}
		v.Layers = append(v.Layers, lv)
	}
	return v, nil
}

func featureData(features []domain.Feature) (json.RawMessage, error) {
	fc := featureCollection{Type: "FeatureCollection", Features: make([]featureJSON, 0, len(features))}
	for _, f := range features {
		geom := f.Geometry
		if len(geom) == 0 {
			geom = json.RawMessage("null")
		}
		props := f.Properties
		if props == nil {
			props = map[string]any{}
		}
		fc.Features = append(fc.Features, featureJSON{Type: "Feature", ID: f.ID, Properties: props, Geometry: geom})
	}
	return json.Marshal(fc)
}

// fillRGB turns an "rrggbbaa" fill into a CSS "#rrggbb"; alpha is carried separately.
func fillRGB(s string) string {
	s = strings.TrimPrefix(s, "#")
	if len(s) == 8 {
		s = s[:6]
	}
	return "#" + s
}
