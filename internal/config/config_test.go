package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "data/raw", cfg.RawDir)
	assert.Equal(t, "data/processed", cfg.ProcessedDir)
	assert.Equal(t, "data/outputs", cfg.OutputsDir)
	assert.Equal(t, 2022, cfg.CensusYear)
	assert.Equal(t, "48", cfg.StateFIPS)
	assert.Equal(t, "453", cfg.CountyFIPS)
	assert.Equal(t, "AFD", cfg.Jurisdiction)
	assert.Equal(t, 2*time.Minute, cfg.HTTPTimeout)
	assert.Equal(t, 4, cfg.MaxRetries)
	assert.Equal(t, 50000, cfg.SocrataPage)
	assert.Equal(t, 14, cfg.UTMZone)
	assert.Equal(t, 0.01, cfg.ConservationTolerance)
	assert.Equal(t, 10000.0, cfg.UrbanCoreDensity)
	assert.Equal(t, 3000.0, cfg.InnerSuburbanDensity)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
}

func TestLoad_CustomEnv(t *testing.T) {
	t.Setenv("FIRE_ETL_RAW_DIR", "/tmp/raw")
	t.Setenv("FIRE_ETL_CENSUS_YEAR", "2021")
	t.Setenv("FIRE_ETL_JURISDICTION", "ESD4")
	t.Setenv("FIRE_ETL_HTTP_TIMEOUT", "30s")
	t.Setenv("FIRE_ETL_SOCRATA_PAGE_SIZE", "1000")
	t.Setenv("FIRE_ETL_LOG_FORMAT", "text")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/tmp/raw", cfg.RawDir)
	assert.Equal(t, 2021, cfg.CensusYear)
	assert.Equal(t, "ESD4", cfg.Jurisdiction)
	assert.Equal(t, 30*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, 1000, cfg.SocrataPage)
	assert.Equal(t, "text", cfg.LogFormat)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"bad state FIPS", "FIRE_ETL_STATE_FIPS", "4"},
		{"bad county FIPS", "FIRE_ETL_COUNTY_FIPS", "45"},
		{"zero page size", "FIRE_ETL_SOCRATA_PAGE_SIZE", "0"},
		{"tolerance out of range", "FIRE_ETL_CONSERVATION_TOLERANCE", "1.5"},
		{"utm zone out of range", "FIRE_ETL_UTM_ZONE", "61"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			require.Error(t, err)
		})
	}
}

func TestLoad_ThresholdOrdering(t *testing.T) {
	t.Setenv("FIRE_ETL_URBAN_CORE_DENSITY", "2000")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "URBAN_CORE_DENSITY")
}
