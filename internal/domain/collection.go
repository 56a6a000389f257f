package domain

import (
	"strings"
	"time"
)

// Raster is a lazy handle to an image asset. Bands and StartTime are filled in
// once a raster store has resolved the asset; TileURL once it has been visualized.
type Raster struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Year      int       `json:"year"`
	Bands     []string  `json:"bands,omitempty"`
	StartTime time.Time `json:"start_time,omitzero"`
	TileURL   string    `json:"tile_url,omitempty"`
}

// AssetID joins a project path and an asset name into a fully-qualified asset id.
func AssetID(projectPath, name string) string {
	projectPath = strings.TrimRight(projectPath, "/")
	if projectPath == "" {
		return name
	}
	return projectPath + "/" + name
}

// Collection is an ordered set of year-tagged rasters.
type Collection struct {
	rasters []Raster
}

// NewCollection builds one handle per record, preserving record order. No asset is fetched.
func NewCollection(projectPath string, records []AssetRecord) *Collection {
	rasters := make([]Raster, len(records))
	for i, rec := range records {
		rasters[i] = Raster{
			ID:   AssetID(projectPath, rec.Name),
			Name: rec.Name,
			Year: rec.Year,
		}
	}
	return &Collection{rasters: rasters}
}

// Len returns the number of rasters.
func (c *Collection) Len() int { return len(c.rasters) }

// Rasters returns a copy of the handles in collection order.
func (c *Collection) Rasters() []Raster {
	out := make([]Raster, len(c.rasters))
	copy(out, c.rasters)
	return out
}

// Filter returns the first raster tagged with year.
func (c *Collection) Filter(year int) (Raster, bool) {
	for _, r := range c.rasters {
		if r.Year == year {
			return r, true
		}
	}
	return Raster{}, false
}
