package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testEEToken = "ya29.test-token"

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "projects/cs5-pushkinmangla/assets", cfg.ProjectPath)
	assert.Equal(t, 1, cfg.Window)
	assert.Equal(t, time.January, cfg.Month)
	assert.Equal(t, 2004, cfg.StartYear)
	assert.Equal(t, 2023, cfg.EndYear)
	assert.Equal(t, []int{2009, 2012, 2013, 2015, 2019}, cfg.TargetYears)

	assert.Empty(t, cfg.BoundarySource)
	assert.Equal(t, "FAO/GAUL_SIMPLIFIED_500m/2015/level1", cfg.BoundaryDataset)
	assert.Equal(t, "ADM1_NAME", cfg.BoundaryProperty)
	assert.Equal(t, "Madhya Pradesh", cfg.BoundaryValue)
	assert.Empty(t, cfg.BoundaryCountry)
	assert.Equal(t, "MP Boundary", cfg.BoundaryLabel)
	assert.Equal(t, 30*time.Second, cfg.BoundaryTimeout)

	assert.Equal(t, 78.65, cfg.CenterLon)
	assert.Equal(t, 23.5, cfg.CenterLat)
	assert.Equal(t, 6, cfg.Zoom)

	assert.False(t, cfg.EEEnabled)
	assert.Empty(t, cfg.EEToken)
	assert.Equal(t, "cs5-pushkinmangla", cfg.EEProject)
	assert.Equal(t, "https://earthengine.googleapis.com/v1", cfg.EEBaseURL)
	assert.Equal(t, 10*time.Second, cfg.EETimeout)

	assert.Equal(t, "spei_map.html", cfg.OutputHTML)
	assert.False(t, cfg.KafkaEnabled)
	assert.Equal(t, []string{"localhost:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "spei-map-layers", cfg.KafkaLayerTopic)

	assert.Empty(t, cfg.HTTPAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.Empty(t, cfg.OTelEndpoint)
}

func TestLoad_CustomEnv(t *testing.T) {
	t.Setenv("SPEI_PROJECT_PATH", "projects/other/assets")
	t.Setenv("SPEI_WINDOW", "3")
	t.Setenv("SPEI_MONTH", "6")
	t.Setenv("SPEI_TARGET_YEARS", "2019, 2009")
	t.Setenv("BOUNDARY_SOURCE", "testdata/gaul.geojson")
	t.Setenv("BOUNDARY_VALUE", "Maharashtra")
	t.Setenv("BOUNDARY_COUNTRY", "India")
	t.Setenv("BOUNDARY_LABEL", "MH Boundary")
	t.Setenv("MAP_CENTER_LON", "75.7")
	t.Setenv("MAP_CENTER_LAT", "19.7")
	t.Setenv("MAP_ZOOM", "7")
	t.Setenv("EE_TOKEN", testEEToken)
	t.Setenv("EE_TIMEOUT", "3s")
	t.Setenv("KAFKA_ENABLED", "true")
	t.Setenv("KAFKA_BROKERS", "broker1:9092,broker2:9092")
	t.Setenv("KAFKA_LAYER_TOPIC", "layers")
	t.Setenv("HTTP_ADDR", ":8080")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "text")
	t.Setenv("SHUTDOWN_TIMEOUT", "30s")
	t.Setenv("OTEL_ENDPOINT", "http://localhost:4318")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "projects/other/assets", cfg.ProjectPath)
	assert.Equal(t, 3, cfg.Window)
	assert.Equal(t, time.June, cfg.Month)
	assert.Equal(t, []int{2019, 2009}, cfg.TargetYears, "target order is preserved")
	assert.Equal(t, "testdata/gaul.geojson", cfg.BoundarySource)
	assert.Equal(t, "Maharashtra", cfg.BoundaryValue)
	assert.Equal(t, "India", cfg.BoundaryCountry)
	assert.Equal(t, "MH Boundary", cfg.BoundaryLabel)
	assert.Equal(t, 75.7, cfg.CenterLon)
	assert.Equal(t, 19.7, cfg.CenterLat)
	assert.Equal(t, 7, cfg.Zoom)
	assert.True(t, cfg.EEEnabled)
	assert.Equal(t, testEEToken, cfg.EEToken)
	assert.Equal(t, 3*time.Second, cfg.EETimeout)
	assert.True(t, cfg.KafkaEnabled)
	assert.Equal(t, []string{"broker1:9092", "broker2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "layers", cfg.KafkaLayerTopic)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, "http://localhost:4318", cfg.OTelEndpoint)
}

func TestLoad_InvalidShutdownTimeout(t *testing.T) {
	t.Setenv("SHUTDOWN_TIMEOUT", "not-a-duration")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SHUTDOWN_TIMEOUT")
}

func TestLoad_InvalidEETimeout(t *testing.T) {
	t.Setenv("EE_TIMEOUT", "bad")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "EE_TIMEOUT")
}

func TestLoad_InvalidBoundaryTimeout(t *testing.T) {
	t.Setenv("BOUNDARY_TIMEOUT", "-1s")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BOUNDARY_TIMEOUT")
}

func TestLoad_InvalidWindow(t *testing.T) {
	t.Setenv("SPEI_WINDOW", "monthly")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SPEI_WINDOW")
}

func TestLoad_MonthOutOfRange(t *testing.T) {
	t.Setenv("SPEI_MONTH", "13")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SPEI_MONTH")
}

func TestLoad_EndBeforeStart(t *testing.T) {
	t.Setenv("SPEI_START_YEAR", "2020")
	t.Setenv("SPEI_END_YEAR", "2010")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SPEI_END_YEAR")
}

func TestLoad_InvalidTargetYear(t *testing.T) {
	t.Setenv("SPEI_TARGET_YEARS", "2009,twenty-twelve")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SPEI_TARGET_YEARS")
}

func TestLoad_EmptyTargetYears(t *testing.T) {
	t.Setenv("SPEI_TARGET_YEARS", " , ")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SPEI_TARGET_YEARS")
}

func TestLoad_InvalidCenter(t *testing.T) {
	t.Setenv("MAP_CENTER_LAT", "north")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MAP_CENTER_LAT")
}

func TestLoad_EEEnabledWithoutToken(t *testing.T) {
	t.Setenv("EE_ENABLED", "true")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "EE_TOKEN")
}

func TestLoad_EETokenImpliesEnabled(t *testing.T) {
	t.Setenv("EE_TOKEN", testEEToken)
	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.EEEnabled)
}

func TestLoad_EEExplicitlyDisabled(t *testing.T) {
	t.Setenv("EE_TOKEN", testEEToken)
	t.Setenv("EE_ENABLED", "false")
	cfg, err := Load()
	require.NoError(t, err)
	assert.False(t, cfg.EEEnabled)
}
