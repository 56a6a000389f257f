package earthengine

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/couchcryptid/spei-map/internal/domain"
	"github.com/couchcryptid/spei-map/internal/observability"
)

// DefaultBaseURL is the Earth Engine REST API root.
const DefaultBaseURL = "https://earthengine.googleapis.com/v1"

// ErrAssetNotFound is returned when an asset id does not resolve.
var ErrAssetNotFound = errors.New("earth engine asset not found")

// Client implements pipeline.RasterStore, pipeline.Visualizer and pipeline.BoundaryStore
// using the Earth Engine REST API.
type Client struct {
	token      string
	project    string
	httpClient *http.Client
	baseURL    string
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates an Earth Engine client. project is the cloud project billed for map tiles.
func NewClient(token, project, baseURL string, timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		token:   token,
		project: project,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: strings.TrimRight(baseURL, "/"),
		metrics: metrics,
		logger:  logger,
	}
}

// LoadRaster resolves the asset behind a lazy handle and fills in its bands and start time.
func (c *Client) LoadRaster(ctx context.Context, r domain.Raster) (domain.Raster, error) {
	u := fmt.Sprintf("%s/%s", c.baseURL, escapePath(r.ID))

	var a asset
	if err := c.doRequest(ctx, http.MethodGet, u, nil, &a, "asset"); err != nil {
		return domain.Raster{}, fmt.Errorf("load %s: %w", r.ID, err)
	}
	if a.Type != "IMAGE" {
		return domain.Raster{}, fmt.Errorf("load %s: asset type is %q, want IMAGE", r.ID, a.Type)
	}

	r.Bands = make([]string, 0, len(a.Bands))
	for _, b := range a.Bands {
		r.Bands = append(r.Bands, b.ID)
	}
	if a.StartTime != "" {
		if t, err := time.Parse(time.RFC3339, a.StartTime); err == nil {
			r.StartTime = t.UTC()
		} else {
			c.logger.Debug("ignoring unparseable asset start time", "asset", r.ID, "start_time", a.StartTime)
		}
	}
	return r, nil
}

// Visualize creates a map for the raster with the given range and palette and returns
// its XYZ tile URL template.
func (c *Client) Visualize(ctx context.Context, r domain.Raster, vis domain.VisParams) (string, error) {
	if err := vis.Validate(); err != nil {
		return "", err
	}

	body := mapRequest{
		Expression: imageLoad(r.ID),
		FileFormat: "PNG",
		VisualizationOptions: visualizationOptions{
			Ranges:        []valueRange{{Min: vis.Min, Max: vis.Max}},
			PaletteColors: vis.Palette.Hex(),
		},
	}
	u := fmt.Sprintf("%s/projects/%s/maps", c.baseURL, url.PathEscape(c.project))

	var m mapResponse
	if err := c.doRequest(ctx, http.MethodPost, u, body, &m, "maps"); err != nil {
		return "", fmt.Errorf("visualize %s: %w", r.ID, err)
	}
	if m.Name == "" {
		return "", fmt.Errorf("visualize %s: response has no map name", r.ID)
	}
	return fmt.Sprintf("%s/%s/tiles/{z}/{x}/{y}", c.baseURL, m.Name), nil
}

func (c *Client) doRequest(ctx context.Context, method, fullURL string, in, out any, op string) error {
	var reqBody io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, reqBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	c.metrics.EEAPIDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	if err != nil {
		c.metrics.EERequests.WithLabelValues(op, "error").Inc()
		return fmt.Errorf("%s request: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound && op != "maps" {
		c.metrics.EERequests.WithLabelValues(op, "not_found").Inc()
		return ErrAssetNotFound
	}
	if resp.StatusCode != http.StatusOK {
		c.metrics.EERequests.WithLabelValues(op, "error").Inc()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("earth engine API error: status %d: %s", resp.StatusCode, body)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		c.metrics.EERequests.WithLabelValues(op, "error").Inc()
		return fmt.Errorf("decode response: %w", err)
	}
	c.metrics.EERequests.WithLabelValues(op, "success").Inc()
	return nil
}

// escapePath escapes each segment of an asset id, keeping the separators.
func escapePath(id string) string {
	parts := strings.Split(strings.Trim(id, "/"), "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return strings.Join(parts, "/")
}
