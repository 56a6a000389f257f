// Package geojson serves administrative boundaries from a GeoJSON feature collection
// read from a local file or an http(s) URL.
package geojson

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/paulmach/orb/geojson"

	"github.com/couchcryptid/spei-map/internal/domain"
)

// maxBodyBytes caps remote boundary downloads.
const maxBodyBytes = 256 << 20

// Store implements pipeline.BoundaryStore over a single GeoJSON dataset.
type Store struct {
	dataset    string
	source     string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewStore creates a store that answers queries for dataset by reading source.
func NewStore(dataset, source string, timeout time.Duration, logger *slog.Logger) *Store {
	return &Store{
		dataset:    dataset,
		source:     source,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// Dataset returns the dataset name this store serves.
func (s *Store) Dataset() string { return s.dataset }

// Features returns every feature matching all of the query's filters, in file order.
func (s *Store) Features(ctx context.Context, q domain.BoundaryQuery) ([]domain.Feature, error) {
	if q.Dataset != s.dataset {
		return nil, fmt.Errorf("unknown dataset %q (store serves %q)", q.Dataset, s.dataset)
	}

	data, err := s.read(ctx)
	if err != nil {
		return nil, fmt.Errorf("read boundaries %s: %w", s.source, err)
	}
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("parse boundaries %s: %w", s.source, err)
	}

	var out []domain.Feature
	for i, f := range fc.Features {
		if !matches(f.Properties, q.Filters) {
			continue
		}
		feat, err := toDomain(f)
		if err != nil {
			return nil, fmt.Errorf("feature %d: %w", i, err)
		}
		out = append(out, feat)
	}

	s.logger.Debug("boundary query",
		"dataset", q.Dataset,
		"scanned", len(fc.Features),
		"matched", len(out),
	)
	return out, nil
}

func (s *Store) read(ctx context.Context) ([]byte, error) {
	if !strings.HasPrefix(s.source, "http://") && !strings.HasPrefix(s.source, "https://") {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return os.ReadFile(s.source)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.source, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/geo+json, application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
}

// matches reports whether props satisfies every filter. Values are compared by their
// string form so numeric codes can be matched too.
func matches(props geojson.Properties, filters []domain.PropertyFilter) bool {
	for _, f := range filters {
		v, ok := props[f.Property]
		if !ok || v == nil || fmt.Sprint(v) != f.Value {
			return false
		}
	}
	return true
}

// DecodeFeature parses one GeoJSON feature object.
func DecodeFeature(data []byte) (domain.Feature, error) {
	f, err := geojson.UnmarshalFeature(data)
	if err != nil {
		return domain.Feature{}, fmt.Errorf("parse feature: %w", err)
	}
	return toDomain(f)
}

func toDomain(f *geojson.Feature) (domain.Feature, error) {
	out := domain.Feature{
		Properties: map[string]any(f.Properties.Clone()),
		Geometry:   json.RawMessage("null"),
	}
	if f.ID != nil {
		out.ID = fmt.Sprint(f.ID)
	}
	if f.Geometry == nil {
		return out, nil
	}

	geom, err := geojson.NewGeometry(f.Geometry).MarshalJSON()
	if err != nil {
		return domain.Feature{}, fmt.Errorf("encode geometry: %w", err)
	}
	out.Geometry = geom

	b := f.Geometry.Bound()
	out.BBox = [4]float64{b.Min.Lon(), b.Min.Lat(), b.Max.Lon(), b.Max.Lat()}
	return out, nil
}
