package analyze

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atxcivic/fire-analysis-etl/internal/domain"
	"github.com/atxcivic/fire-analysis-etl/internal/geo"
)

func square(minX, minY, maxX, maxY float64) orb.MultiPolygon {
	return orb.MultiPolygon{{{
		{minX, minY}, {maxX, minY}, {maxX, maxY}, {minX, maxY}, {minX, minY},
	}}}
}

func testAreas() []geo.Feature {
	return []geo.Feature{
		{ID: "A1", Geometry: square(-97.80, 30.20, -97.75, 30.30)},
		{ID: "A2", Geometry: square(-97.75, 30.20, -97.70, 30.30)},
	}
}

func TestAssignAreas(t *testing.T) {
	incidents := []*domain.Incident{
		{IncidentNumber: "1", ResponseArea: "A1"},
		{IncidentNumber: "2", ResponseArea: "B9", HasPoint: true, Latitude: 30.25, Longitude: -97.72},
		{IncidentNumber: "3", HasPoint: true, Latitude: 30.25, Longitude: -97.78},
		{IncidentNumber: "4", ResponseArea: "B9"},
		{IncidentNumber: "5", HasPoint: true, Latitude: 31.50, Longitude: -97.00},
	}

	stats := AssignAreas(incidents, testAreas())
	assert.Equal(t, 1, stats.ByCode)
	assert.Equal(t, 2, stats.BySpatial)
	assert.Equal(t, 2, stats.Unassigned)

	assert.Equal(t, "A1", incidents[0].ResponseArea)
	assert.Equal(t, "A2", incidents[1].ResponseArea, "bad code falls back to the point")
	assert.Equal(t, "A1", incidents[2].ResponseArea)
	assert.Empty(t, incidents[3].ResponseArea)
	assert.Empty(t, incidents[4].ResponseArea, "point outside every area stays unassigned")
}

func TestCountByArea(t *testing.T) {
	incidents := []*domain.Incident{
		{ResponseArea: "A1", Category: domain.CategoryStructure},
		{ResponseArea: "A1", Category: domain.CategoryStructure},
		{ResponseArea: "A1", Category: domain.CategoryVehicle},
		{ResponseArea: "A1", Category: domain.CategoryOther},
		{ResponseArea: "A2", Category: domain.CategoryTrash},
		{ResponseArea: "", Category: domain.CategoryOutdoor}, // unassigned, not counted
	}

	counts := CountByArea(incidents)
	require.Len(t, counts, 2)

	a1 := counts["A1"]
	assert.Equal(t, 4, a1.TotalIncidents)
	assert.Equal(t, 2, a1.StructureFires)
	assert.Equal(t, 1, a1.VehicleFires)
	assert.Equal(t, 1, a1.OtherFires)
	assert.Equal(t, 1, counts["A2"].TrashFires)
}

func TestYearSpan(t *testing.T) {
	incidents := []*domain.Incident{
		{CalendarYear: 2022}, {CalendarYear: 2023}, {CalendarYear: 2023},
		{CalendarYear: 2024}, {CalendarYear: 0},
	}
	assert.Equal(t, 3, YearSpan(incidents))
	assert.Equal(t, 1, YearSpan(nil), "empty data still annualizes safely")
}

func TestMerge(t *testing.T) {
	demo := []*domain.AreaDemographics{
		{
			ResponseAreaID: "A1",
			UrbanClass:     domain.UrbanCore,
			TractDemographics: domain.TractDemographics{
				Population: 2000,
				TotalUnits: 1000,
			},
		},
		{ResponseAreaID: "A2", UrbanClass: domain.OuterSuburban},
	}
	counts := map[string]*AreaIncidents{
		"A1": {TotalIncidents: 10, StructureFires: 4},
	}

	merged := Merge(demo, counts, 2)
	require.Len(t, merged, 2)

	a1 := merged[0]
	assert.Equal(t, "A1", a1.ResponseAreaID)
	assert.Equal(t, 10, a1.TotalIncidents)
	assert.InDelta(t, 5.0, a1.IncidentsPer1000Pop, 1e-9)
	assert.InDelta(t, 2.0, a1.StructureFiresPer1000Pop, 1e-9)
	assert.InDelta(t, 10.0, a1.IncidentsPer1000Units, 1e-9)
	assert.InDelta(t, 2.5, a1.AnnualIncidentsPer1000Pop, 1e-9)

	// Zero population and no incidents: rates stay zero, row still present.
	a2 := merged[1]
	assert.Zero(t, a2.TotalIncidents)
	assert.Zero(t, a2.IncidentsPer1000Pop)
}

func TestMerge_Idempotent(t *testing.T) {
	demo := []*domain.AreaDemographics{
		{ResponseAreaID: "A1", TractDemographics: domain.TractDemographics{Population: 1000}},
	}
	counts := map[string]*AreaIncidents{"A1": {TotalIncidents: 7}}

	first := Merge(demo, counts, 3)
	second := Merge(demo, counts, 3)
	require.Equal(t, first, second)
}
