package visualize

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atxcivic/fire-analysis-etl/internal/analyze"
	"github.com/atxcivic/fire-analysis-etl/internal/domain"
	"github.com/atxcivic/fire-analysis-etl/internal/geo"
)

func sampleAreas() []*analyze.MergedArea {
	mk := func(id, class string, pctSF, rate, pop float64) *analyze.MergedArea {
		return &analyze.MergedArea{
			AreaDemographics: domain.AreaDemographics{
				ResponseAreaID:  id,
				UrbanClass:      class,
				PctSingleFamily: pctSF,
				TractDemographics: domain.TractDemographics{
					Population: pop,
				},
			},
			IncidentsPer1000Pop:       rate,
			AnnualIncidentsPer1000Pop: rate / 3,
		}
	}
	return []*analyze.MergedArea{
		mk("A1", domain.UrbanCore, 20, 12, 8000),
		mk("A2", domain.UrbanCore, 30, 14, 9000),
		mk("A3", domain.InnerSuburban, 60, 20, 6000),
		mk("A4", domain.OuterSuburban, 90, 28, 4000),
		mk("A5", domain.OuterSuburban, 85, 26, 5000),
	}
}

func assertFileWritten(t *testing.T, path string) {
	t.Helper()
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Positive(t, info.Size())
}

func TestCharts(t *testing.T) {
	dir := t.TempDir()

	t.Run("urban comparison", func(t *testing.T) {
		summary := []*analyze.UrbanClassSummary{
			{UrbanClass: domain.UrbanCore, IncidentsPer1000Pop: 12},
			{UrbanClass: domain.InnerSuburban, IncidentsPer1000Pop: 20},
			{UrbanClass: domain.OuterSuburban, IncidentsPer1000Pop: 28},
		}
		dest := filepath.Join(dir, "urban.png")
		require.NoError(t, ChartUrbanComparison(summary, dest))
		assertFileWritten(t, dest)
	})

	t.Run("housing correlation", func(t *testing.T) {
		dest := filepath.Join(dir, "housing.png")
		require.NoError(t, ChartHousingCorrelation(sampleAreas(), dest))
		assertFileWritten(t, dest)
	})

	t.Run("housing correlation with no data fails", func(t *testing.T) {
		err := ChartHousingCorrelation(nil, filepath.Join(dir, "empty.png"))
		require.Error(t, err)
	})

	t.Run("incident types", func(t *testing.T) {
		summary := []*analyze.IncidentTypeSummary{
			{UrbanClass: domain.UrbanCore, StructureAnnualPer1000: 1.5, VehicleAnnualPer1000: 0.8},
			{UrbanClass: domain.OuterSuburban, StructureAnnualPer1000: 2.5, OutdoorAnnualPer1000: 1.9},
		}
		dest := filepath.Join(dir, "types.png")
		require.NoError(t, ChartIncidentTypes(summary, dest))
		assertFileWritten(t, dest)
	})

	t.Run("building age", func(t *testing.T) {
		summary := []*analyze.BuildingAgeSummary{
			{BuildingAge: analyze.AgeNewer, IncidentsPer1000Pop: 5, StructurePer1000Units: 1.1},
			{BuildingAge: analyze.AgeOlder, IncidentsPer1000Pop: 11, StructurePer1000Units: 3.4},
		}
		dest := filepath.Join(dir, "age.png")
		require.NoError(t, ChartBuildingAge(summary, dest))
		assertFileWritten(t, dest)
	})

	t.Run("time series", func(t *testing.T) {
		series := []*analyze.YearSummary{
			{Year: 2022, IncidentsPer1000: 9.1, StructurePer1000: 2.2},
			{Year: 2023, IncidentsPer1000: 9.8, StructurePer1000: 2.5},
			{Year: 2024, IncidentsPer1000: 10.4, StructurePer1000: 2.4},
		}
		dest := filepath.Join(dir, "series.png")
		require.NoError(t, ChartTimeSeries(series, dest))
		assertFileWritten(t, dest)
	})
}

func TestMaps(t *testing.T) {
	dir := t.TempDir()
	geoJSON := []byte(`{"type":"FeatureCollection","features":[{"type":"Feature",` +
		`"geometry":{"type":"Polygon","coordinates":[[[-97.8,30.2],[-97.7,30.2],[-97.7,30.3],[-97.8,30.3],[-97.8,30.2]]]},` +
		`"properties":{"response_area_id":"A1","urban_class":"urban_core","population":8000,` +
		`"annual_incidents_per_1000_pop":4.2}}]}`)

	t.Run("choropleth", func(t *testing.T) {
		dest := filepath.Join(dir, "percap.html")
		require.NoError(t, WriteChoroplethMap(geoJSON, sampleAreas(), dest))

		html, err := os.ReadFile(dest)
		require.NoError(t, err)
		assert.Contains(t, string(html), "leaflet")
		assert.Contains(t, string(html), "FeatureCollection")
		assert.Contains(t, string(html), "gradeColor")
		assert.Contains(t, string(html), "Annual incidents per 1,000 pop")
	})

	t.Run("classification", func(t *testing.T) {
		dest := filepath.Join(dir, "class.html")
		require.NoError(t, WriteClassificationMap(geoJSON, dest))

		html, err := os.ReadFile(dest)
		require.NoError(t, err)
		assert.Contains(t, string(html), "classColors")
		assert.Contains(t, string(html), "#d62728")
		assert.Contains(t, string(html), "Urban Core")
	})

	t.Run("housing typology", func(t *testing.T) {
		dest := filepath.Join(dir, "typology.html")
		require.NoError(t, WriteHousingTypologyMap(geoJSON, dest))

		html, err := os.ReadFile(dest)
		require.NoError(t, err)
		assert.Contains(t, string(html), "pct_single_family")
		assert.Contains(t, string(html), "Single-family share")
	})

	t.Run("building age", func(t *testing.T) {
		dest := filepath.Join(dir, "built.html")
		require.NoError(t, WriteBuildingAgeMap(geoJSON, dest))

		html, err := os.ReadFile(dest)
		require.NoError(t, err)
		assert.Contains(t, string(html), "pct_built_2010_plus")
		assert.Contains(t, string(html), "Units built 2010+")
	})

	t.Run("fire stations", func(t *testing.T) {
		stations := []geo.Point{
			{Location: orb.Point{-97.75, 30.25}, Props: map[string]interface{}{"NAME": "Station 1", "DEPARTMENT": "AFD"}},
			{Location: orb.Point{-97.72, 30.28}, Props: map[string]interface{}{"NAME": "Travis ESD 4", "DEPARTMENT": "TRAVIS COUNTY"}},
		}
		dest := filepath.Join(dir, "stations.html")
		require.NoError(t, WriteStationMap(geoJSON, sampleAreas(), stations, dest))

		html, err := os.ReadFile(dest)
		require.NoError(t, err)
		assert.Contains(t, string(html), "pop_density")
		assert.Contains(t, string(html), "circleMarker")
		assert.Contains(t, string(html), "Station 1")
		// AFD marker red, other departments blue.
		assert.Contains(t, string(html), "'#d62728'")
		assert.Contains(t, string(html), "'#1f77b4'")
	})

	t.Run("fire stations without station layer", func(t *testing.T) {
		dest := filepath.Join(dir, "stations_empty.html")
		require.NoError(t, WriteStationMap(geoJSON, sampleAreas(), nil, dest))

		html, err := os.ReadFile(dest)
		require.NoError(t, err)
		assert.NotContains(t, string(html), "circleMarker")
	})
}

func sampleJoined(area, class string, year int, category string, pctBuilt float64) *analyze.JoinedIncident {
	j := &analyze.JoinedIncident{
		UrbanClass:       class,
		PctBuilt2010Plus: pctBuilt,
	}
	j.ResponseArea = area
	j.CalendarYear = year
	j.Category = category
	return j
}

func TestYearlyCharts(t *testing.T) {
	dir := t.TempDir()
	areas := sampleAreas()
	incidents := []*analyze.JoinedIncident{
		sampleJoined("A1", domain.UrbanCore, 2022, domain.CategoryStructure, 60),
		sampleJoined("A1", domain.UrbanCore, 2023, domain.CategoryVehicle, 60),
		sampleJoined("A3", domain.InnerSuburban, 2023, domain.CategoryOutdoor, 30),
		sampleJoined("A4", domain.OuterSuburban, 2023, domain.CategoryStructure, 20),
		// Unassigned and year-less incidents must not panic the renderers.
		sampleJoined("", "", 2023, domain.CategoryOther, 0),
		sampleJoined("A1", domain.UrbanCore, 0, domain.CategoryTrash, 60),
	}

	t.Run("urban comparison", func(t *testing.T) {
		dest := filepath.Join(dir, "urban_yearly.png")
		require.NoError(t, ChartUrbanComparisonYearly(incidents, areas, dest))
		assertFileWritten(t, dest)
	})

	t.Run("incident types", func(t *testing.T) {
		dest := filepath.Join(dir, "types_yearly.png")
		require.NoError(t, ChartIncidentTypesYearly(incidents, areas, dest))
		assertFileWritten(t, dest)
	})

	t.Run("building age", func(t *testing.T) {
		dest := filepath.Join(dir, "age_yearly.png")
		require.NoError(t, ChartBuildingAgeYearly(incidents, areas, dest))
		assertFileWritten(t, dest)
	})
}

func TestIncidentYears(t *testing.T) {
	incidents := []*analyze.JoinedIncident{
		sampleJoined("A1", domain.UrbanCore, 2024, domain.CategoryOther, 0),
		sampleJoined("A1", domain.UrbanCore, 2022, domain.CategoryOther, 0),
		sampleJoined("A1", domain.UrbanCore, 2024, domain.CategoryOther, 0),
		sampleJoined("A1", domain.UrbanCore, 0, domain.CategoryOther, 0),
	}
	assert.Equal(t, []int{2022, 2024}, incidentYears(incidents))
}
