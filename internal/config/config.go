package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds all pipeline settings, populated from environment variables
// (optionally seeded from a config file) with sensible defaults.
type Config struct {
	// Directory layout. Each stage reads the previous stage's directory and
	// writes to a fixed path under these roots.
	RawDir       string
	ProcessedDir string
	OutputsDir   string

	// Upstream data sources.
	IncidentsRecentURL     string // Socrata resource, 2022-2024 vintage
	IncidentsHistoricalURL string // Socrata resource, 2018-2021 vintage
	ResponseAreasURL       string // ArcGIS FeatureServer GeoJSON query
	FireStationsURL        string // ArcGIS FeatureServer GeoJSON query
	CensusAPIBase          string
	TractShapefileURL      string // TIGER zipped shapefile

	// Census geography. Defaults cover Travis County, TX for the 2022 ACS.
	CensusYear   int
	StateFIPS    string
	CountyFIPS   string
	Jurisdiction string // incident jurisdiction filter, e.g. "AFD"

	// Download behavior.
	HTTPTimeout time.Duration
	MaxRetries  int
	SocrataPage int // rows per Socrata page

	// Crosswalk tuning.
	UTMZone               int     // planar CRS zone for area math
	ConservationTolerance float64 // allowed relative error in allocated population
	UrbanCoreDensity      float64 // people per sq mi, inclusive lower bound
	InnerSuburbanDensity  float64

	// Observability.
	HTTPAddr        string // health/metrics endpoint for the runall binary
	ShutdownTimeout time.Duration
	LogLevel        string
	LogFormat       string
}

// Load reads configuration, applying defaults where unset. Environment
// variables (FIRE_ETL_*) override everything; a fire-etl.yaml in the working
// directory is honored when present but never required.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("fire-etl")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.SetEnvPrefix("FIRE_ETL")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	cfg := &Config{
		RawDir:       v.GetString("RAW_DIR"),
		ProcessedDir: v.GetString("PROCESSED_DIR"),
		OutputsDir:   v.GetString("OUTPUTS_DIR"),

		IncidentsRecentURL:     v.GetString("INCIDENTS_RECENT_URL"),
		IncidentsHistoricalURL: v.GetString("INCIDENTS_HISTORICAL_URL"),
		ResponseAreasURL:       v.GetString("RESPONSE_AREAS_URL"),
		FireStationsURL:        v.GetString("FIRE_STATIONS_URL"),
		CensusAPIBase:          v.GetString("CENSUS_API_BASE"),
		TractShapefileURL:      v.GetString("TRACT_SHAPEFILE_URL"),

		CensusYear:   v.GetInt("CENSUS_YEAR"),
		StateFIPS:    v.GetString("STATE_FIPS"),
		CountyFIPS:   v.GetString("COUNTY_FIPS"),
		Jurisdiction: v.GetString("JURISDICTION"),

		HTTPTimeout: v.GetDuration("HTTP_TIMEOUT"),
		MaxRetries:  v.GetInt("MAX_RETRIES"),
		SocrataPage: v.GetInt("SOCRATA_PAGE_SIZE"),

		UTMZone:               v.GetInt("UTM_ZONE"),
		ConservationTolerance: v.GetFloat64("CONSERVATION_TOLERANCE"),
		UrbanCoreDensity:      v.GetFloat64("URBAN_CORE_DENSITY"),
		InnerSuburbanDensity:  v.GetFloat64("INNER_SUBURBAN_DENSITY"),

		HTTPAddr:        v.GetString("HTTP_ADDR"),
		ShutdownTimeout: v.GetDuration("SHUTDOWN_TIMEOUT"),
		LogLevel:        v.GetString("LOG_LEVEL"),
		LogFormat:       v.GetString("LOG_FORMAT"),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("RAW_DIR", "data/raw")
	v.SetDefault("PROCESSED_DIR", "data/processed")
	v.SetDefault("OUTPUTS_DIR", "data/outputs")

	v.SetDefault("INCIDENTS_RECENT_URL", "https://data.austintexas.gov/resource/v5hh-nyr8.json")
	v.SetDefault("INCIDENTS_HISTORICAL_URL", "https://data.austintexas.gov/resource/j9w8-x2vu.json")
	v.SetDefault("RESPONSE_AREAS_URL", "https://services.arcgis.com/0L95CJ0VTaxqcmED/arcgis/rest/services/BOUNDARIES_afd_response_areas/FeatureServer/0/query?where=1=1&outFields=*&outSR=4326&f=geojson")
	v.SetDefault("FIRE_STATIONS_URL", "https://services.arcgis.com/0L95CJ0VTaxqcmED/arcgis/rest/services/LOCATION_fire_stations/FeatureServer/0/query?where=1=1&outFields=*&outSR=4326&f=geojson")
	v.SetDefault("CENSUS_API_BASE", "https://api.census.gov/data")
	v.SetDefault("TRACT_SHAPEFILE_URL", "https://www2.census.gov/geo/tiger/TIGER2023/TRACT/tl_2023_48_tract.zip")

	v.SetDefault("CENSUS_YEAR", 2022)
	v.SetDefault("STATE_FIPS", "48")
	v.SetDefault("COUNTY_FIPS", "453")
	v.SetDefault("JURISDICTION", "AFD")

	v.SetDefault("HTTP_TIMEOUT", "2m")
	v.SetDefault("MAX_RETRIES", 4)
	v.SetDefault("SOCRATA_PAGE_SIZE", 50000)

	v.SetDefault("UTM_ZONE", 14)
	v.SetDefault("CONSERVATION_TOLERANCE", 0.01)
	v.SetDefault("URBAN_CORE_DENSITY", 10000.0)
	v.SetDefault("INNER_SUBURBAN_DENSITY", 3000.0)

	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("SHUTDOWN_TIMEOUT", "10s")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
}

func (c *Config) validate() error {
	if c.RawDir == "" || c.ProcessedDir == "" || c.OutputsDir == "" {
		return errors.New("RAW_DIR, PROCESSED_DIR, and OUTPUTS_DIR are required")
	}
	if len(c.StateFIPS) != 2 {
		return fmt.Errorf("STATE_FIPS must be a 2-digit FIPS code, got %q", c.StateFIPS)
	}
	if len(c.CountyFIPS) != 3 {
		return fmt.Errorf("COUNTY_FIPS must be a 3-digit FIPS code, got %q", c.CountyFIPS)
	}
	if c.HTTPTimeout <= 0 {
		return errors.New("invalid HTTP_TIMEOUT")
	}
	if c.SocrataPage <= 0 {
		return errors.New("SOCRATA_PAGE_SIZE must be positive")
	}
	if c.ConservationTolerance <= 0 || c.ConservationTolerance >= 1 {
		return errors.New("CONSERVATION_TOLERANCE must be in (0, 1)")
	}
	if c.UrbanCoreDensity <= c.InnerSuburbanDensity {
		return errors.New("URBAN_CORE_DENSITY must exceed INNER_SUBURBAN_DENSITY")
	}
	if c.UTMZone < 1 || c.UTMZone > 60 {
		return fmt.Errorf("UTM_ZONE must be 1-60, got %d", c.UTMZone)
	}
	return nil
}
