package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Config holds all renderer settings, populated from environment variables.
type Config struct {
	// SPEI raster selection.
	ProjectPath string
	Window      int
	Month       time.Month
	StartYear   int
	EndYear     int
	TargetYears []int

	// Boundary overlay.
	BoundarySource   string
	BoundaryDataset  string
	BoundaryProperty string
	BoundaryValue    string
	BoundaryCountry  string
	BoundaryLabel    string
	BoundaryTimeout  time.Duration

	// Viewport.
	CenterLon float64
	CenterLat float64
	Zoom      int

	// Earth Engine raster store.
	EEEnabled bool
	EEToken   string
	EEProject string
	EEBaseURL string
	EETimeout time.Duration

	// Map surfaces.
	OutputHTML      string
	KafkaEnabled    bool
	KafkaBrokers    []string
	KafkaLayerTopic string

	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration
	OTelEndpoint    string
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	eeTimeout, err := time.ParseDuration(sharedcfg.EnvOrDefault("EE_TIMEOUT", "10s"))
	if err != nil || eeTimeout <= 0 {
		return nil, errors.New("invalid EE_TIMEOUT")
	}

	boundaryTimeout, err := time.ParseDuration(sharedcfg.EnvOrDefault("BOUNDARY_TIMEOUT", "30s"))
	if err != nil || boundaryTimeout <= 0 {
		return nil, errors.New("invalid BOUNDARY_TIMEOUT")
	}

	window, err := parseInt("SPEI_WINDOW", "1")
	if err != nil {
		return nil, err
	}
	month, err := parseInt("SPEI_MONTH", "1")
	if err != nil {
		return nil, err
	}
	if month < 1 || month > 12 {
		return nil, errors.New("SPEI_MONTH must be between 1 and 12")
	}
	startYear, err := parseInt("SPEI_START_YEAR", "2004")
	if err != nil {
		return nil, err
	}
	endYear, err := parseInt("SPEI_END_YEAR", "2023")
	if err != nil {
		return nil, err
	}
	if endYear < startYear {
		return nil, errors.New("SPEI_END_YEAR must not precede SPEI_START_YEAR")
	}

	targetYears, err := parseYears(sharedcfg.EnvOrDefault("SPEI_TARGET_YEARS", "2009,2012,2013,2015,2019"))
	if err != nil {
		return nil, err
	}

	centerLon, err := parseFloat("MAP_CENTER_LON", "78.65")
	if err != nil {
		return nil, err
	}
	centerLat, err := parseFloat("MAP_CENTER_LAT", "23.5")
	if err != nil {
		return nil, err
	}
	zoom, err := parseInt("MAP_ZOOM", "6")
	if err != nil {
		return nil, err
	}

	eeToken := os.Getenv("EE_TOKEN")
	eeEnabled := eeToken != ""
	if v := os.Getenv("EE_ENABLED"); v != "" {
		eeEnabled = v == "true"
	}

	cfg := &Config{
		ProjectPath: sharedcfg.EnvOrDefault("SPEI_PROJECT_PATH", "projects/cs5-pushkinmangla/assets"),
		Window:      window,
		Month:       time.Month(month),
		StartYear:   startYear,
		EndYear:     endYear,
		TargetYears: targetYears,

		BoundarySource:   os.Getenv("BOUNDARY_SOURCE"),
		BoundaryDataset:  sharedcfg.EnvOrDefault("BOUNDARY_DATASET", "FAO/GAUL_SIMPLIFIED_500m/2015/level1"),
		BoundaryProperty: sharedcfg.EnvOrDefault("BOUNDARY_PROPERTY", "ADM1_NAME"),
		BoundaryValue:    sharedcfg.EnvOrDefault("BOUNDARY_VALUE", "Madhya Pradesh"),
		BoundaryCountry:  os.Getenv("BOUNDARY_COUNTRY"),
		BoundaryLabel:    sharedcfg.EnvOrDefault("BOUNDARY_LABEL", "MP Boundary"),
		BoundaryTimeout:  boundaryTimeout,

		CenterLon: centerLon,
		CenterLat: centerLat,
		Zoom:      zoom,

		EEEnabled: eeEnabled,
		EEToken:   eeToken,
		EEProject: sharedcfg.EnvOrDefault("EE_PROJECT", "cs5-pushkinmangla"),
		EEBaseURL: sharedcfg.EnvOrDefault("EE_BASE_URL", "https://earthengine.googleapis.com/v1"),
		EETimeout: eeTimeout,

		OutputHTML:      sharedcfg.EnvOrDefault("OUTPUT_HTML", "spei_map.html"),
		KafkaEnabled:    os.Getenv("KAFKA_ENABLED") == "true",
		KafkaBrokers:    sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaLayerTopic: sharedcfg.EnvOrDefault("KAFKA_LAYER_TOPIC", "spei-map-layers"),

		HTTPAddr:        os.Getenv("HTTP_ADDR"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,
		OTelEndpoint:    os.Getenv("OTEL_ENDPOINT"),
	}

	if len(cfg.TargetYears) == 0 {
		return nil, errors.New("SPEI_TARGET_YEARS is required")
	}
	if cfg.BoundaryValue == "" {
		return nil, errors.New("BOUNDARY_VALUE is required")
	}
	if cfg.EEEnabled && cfg.EEToken == "" {
		return nil, errors.New("EE_ENABLED is true but EE_TOKEN is not set")
	}
	if cfg.KafkaEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_BROKERS is required when KAFKA_ENABLED is true")
	}
	if cfg.KafkaEnabled && cfg.KafkaLayerTopic == "" {
		return nil, errors.New("KAFKA_LAYER_TOPIC is required when KAFKA_ENABLED is true")
	}

	return cfg, nil
}

func parseInt(key, def string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(sharedcfg.EnvOrDefault(key, def)))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func parseFloat(key, def string) (float64, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(sharedcfg.EnvOrDefault(key, def)), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return f, nil
}

// parseYears reads a comma-separated year list, keeping order and duplicates.
func parseYears(s string) ([]int, error) {
	var years []int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		y, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("invalid SPEI_TARGET_YEARS entry %q: %w", part, err)
		}
		years = append(years, y)
	}
	return years, nil
}
