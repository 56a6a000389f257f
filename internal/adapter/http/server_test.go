package http_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httpadapter "github.com/couchcryptid/spei-map/internal/adapter/http"
	"github.com/couchcryptid/spei-map/internal/domain"
)

type mockReadiness struct {
	err error
}

func (m *mockReadiness) CheckReadiness(_ context.Context) error { return m.err }

type stubDocument struct {
	layers    []domain.Layer
	renderErr error
}

func (d *stubDocument) Render(w io.Writer) error {
	if d.renderErr != nil {
		return d.renderErr
	}
	_, err := fmt.Fprintf(w, "<html>%d layers</html>", len(d.layers))
	return err
}

func (d *stubDocument) Layers() []domain.Layer { return d.layers }

func testDocument() *stubDocument {
	r := domain.Raster{ID: "projects/p/assets/SPEI1_097", Name: "SPEI1_097", Year: 2012, TileURL: "https://tiles/{z}/{x}/{y}"}
	return &stubDocument{layers: []domain.Layer{
		domain.RasterLayer("SPEI-1 Jan 2012", r, domain.SPEIVisParams()),
		domain.VectorLayer("MP Boundary", []domain.Feature{{ID: "1"}}, domain.DefaultBoundaryStyle()),
	}}
}

func newTestServer(readyErr error, doc httpadapter.MapDocument) *httpadapter.Server {
	return httpadapter.NewServer(":0", &mockReadiness{err: readyErr}, doc, slog.Default())
}

func serve(srv *httpadapter.Server, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestHealthzReturns200(t *testing.T) {
	rec := serve(newTestServer(nil, testDocument()), "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestReadyzReturns200WhenReady(t *testing.T) {
	rec := serve(newTestServer(nil, testDocument()), "/readyz")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestReadyzReturns503WhenNotReady(t *testing.T) {
	rec := serve(newTestServer(errors.New("map has not been rendered yet"), testDocument()), "/readyz")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	rec := serve(newTestServer(nil, testDocument()), "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestMapEndpoint(t *testing.T) {
	rec := serve(newTestServer(nil, testDocument()), "/map")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Equal(t, "<html>2 layers</html>", rec.Body.String())
}

func TestMapEndpointRenderError(t *testing.T) {
	rec := serve(newTestServer(nil, &stubDocument{renderErr: errors.New("boom")}), "/map")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "boom")
}

func TestLayersEndpoint(t *testing.T) {
	rec := serve(newTestServer(nil, testDocument()), "/layers")
	require.Equal(t, http.StatusOK, rec.Code)

	var body []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body, 2)

	assert.Equal(t, "SPEI-1 Jan 2012", body[0]["label"])
	assert.Equal(t, "raster", body[0]["kind"])
	assert.Equal(t, "projects/p/assets/SPEI1_097", body[0]["asset"])
	assert.InDelta(t, 2012, body[0]["year"], 0)

	assert.Equal(t, "MP Boundary", body[1]["label"])
	assert.Equal(t, "vector", body[1]["kind"])
	assert.InDelta(t, 1, body[1]["features"], 0)
}

func TestLayersEndpointEmpty(t *testing.T) {
	rec := serve(newTestServer(nil, &stubDocument{}), "/layers")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())
}

func TestRootRedirectsToMap(t *testing.T) {
	rec := serve(newTestServer(nil, testDocument()), "/")
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/map", rec.Header().Get("Location"))
}
