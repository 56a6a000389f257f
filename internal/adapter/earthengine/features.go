package earthengine

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/couchcryptid/spei-map/internal/adapter/geojson"
	"github.com/couchcryptid/spei-map/internal/domain"
)

const (
	// publicAssetRoot holds the Earth Engine public data catalog.
	publicAssetRoot  = "projects/earthengine-public/assets"
	featuresPageSize = 1000
	maxFeaturePages  = 50
)

type listFeaturesResponse struct {
	Type          string            `json:"type"`
	Features      []json.RawMessage `json:"features"`
	NextPageToken string            `json:"nextPageToken"`
}

// Features lists the features of a table asset that match every filter in q.
// Catalog ids such as "FAO/GAUL_SIMPLIFIED_500m/2015/level1" resolve under the public catalog.
func (c *Client) Features(ctx context.Context, q domain.BoundaryQuery) ([]domain.Feature, error) {
	base := fmt.Sprintf("%s/%s:listFeatures", c.baseURL, escapePath(tableAssetPath(q.Dataset)))

	params := url.Values{}
	params.Set("pageSize", strconv.Itoa(featuresPageSize))
	if f := featureFilter(q.Filters); f != "" {
		params.Set("filter", f)
	}

	var out []domain.Feature
	for page := 0; page < maxFeaturePages; page++ {
		var resp listFeaturesResponse
		if err := c.doRequest(ctx, http.MethodGet, base+"?"+params.Encode(), nil, &resp, "features"); err != nil {
			return nil, fmt.Errorf("list features %s: %w", q.Dataset, err)
		}
		for i, raw := range resp.Features {
			f, err := geojson.DecodeFeature(raw)
			if err != nil {
				return nil, fmt.Errorf("list features %s: feature %d: %w", q.Dataset, len(out)+i, err)
			}
			out = append(out, f)
		}
		if resp.NextPageToken == "" {
			c.logger.Debug("boundary query", "dataset", q.Dataset, "filter", params.Get("filter"), "matched", len(out))
			return out, nil
		}
		params.Set("pageToken", resp.NextPageToken)
	}
	return nil, fmt.Errorf("list features %s: more than %d pages", q.Dataset, maxFeaturePages)
}

func tableAssetPath(dataset string) string {
	dataset = strings.Trim(dataset, "/")
	if strings.HasPrefix(dataset, "projects/") {
		return dataset
	}
	return publicAssetRoot + "/" + dataset
}

// featureFilter builds a listFeatures filter, e.g. ADM1_NAME = "Madhya Pradesh" AND ADM0_NAME = "India".
func featureFilter(filters []domain.PropertyFilter) string {
	parts := make([]string, 0, len(filters))
	for _, f := range filters {
		parts = append(parts, f.Property+" = "+strconv.Quote(f.Value))
	}
	return strings.Join(parts, " AND ")
}
