package analyze

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atxcivic/fire-analysis-etl/internal/domain"
)

func mergedArea(id, class string, pop, units, sf float64, incidents, structure int) *MergedArea {
	m := &MergedArea{
		AreaDemographics: domain.AreaDemographics{
			ResponseAreaID: id,
			UrbanClass:     class,
			AreaSqMiles:    1,
			TractDemographics: domain.TractDemographics{
				Population:   pop,
				TotalUnits:   units,
				SingleFamily: sf,
			},
		},
		TotalIncidents: incidents,
		StructureFires: structure,
	}
	if units > 0 {
		m.PctSingleFamily = sf / units * 100
	}
	return m
}

func TestSummarizeByUrbanClass(t *testing.T) {
	areas := []*MergedArea{
		mergedArea("A1", domain.UrbanCore, 10000, 5000, 1000, 50, 20),
		mergedArea("A2", domain.UrbanCore, 10000, 5000, 1000, 30, 10),
		mergedArea("A3", domain.OuterSuburban, 4000, 2000, 1800, 40, 25),
		mergedArea("A4", domain.UnknownClass, 1000, 500, 100, 5, 2),
		mergedArea("A5", domain.InnerSuburban, 0, 0, 0, 0, 0), // unpopulated, dropped
	}

	got := SummarizeByUrbanClass(areas, 2)
	require.Len(t, got, 2)

	// Densest class comes first.
	core := got[0]
	assert.Equal(t, domain.UrbanCore, core.UrbanClass)
	assert.Equal(t, 2, core.NumResponseAreas)
	assert.InDelta(t, 20000, core.Population, 1e-9)
	assert.Equal(t, 80, core.TotalIncidents)
	assert.InDelta(t, 4.0, core.IncidentsPer1000Pop, 1e-9)
	assert.InDelta(t, 2.0, core.AnnualIncidentsPer1000Pop, 1e-9)
	assert.InDelta(t, 10000, core.PopDensity, 1e-9)

	outer := got[1]
	assert.Equal(t, domain.OuterSuburban, outer.UrbanClass)
	assert.InDelta(t, 10.0, outer.IncidentsPer1000Pop, 1e-9)
	assert.InDelta(t, 90.0, outer.PctSingleFamily, 1e-9)
}

func TestHousingBin(t *testing.T) {
	tests := []struct {
		pct  float64
		want string
	}{
		{0, "<25% SF"},
		{24.9, "<25% SF"},
		{25, "<25% SF"},
		{25.1, "25-50% SF"},
		{50, "25-50% SF"},
		{75, "50-75% SF"},
		{75.1, ">75% SF"},
		{100, ">75% SF"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, HousingBin(tt.pct), "pct=%v", tt.pct)
	}
}

func TestSummarizeByHousingType(t *testing.T) {
	areas := []*MergedArea{
		mergedArea("A1", domain.UrbanCore, 10000, 5000, 500, 50, 20),     // 10% SF
		mergedArea("A2", domain.OuterSuburban, 5000, 2000, 1900, 40, 25), // 95% SF
		mergedArea("A3", domain.OuterSuburban, 5000, 2000, 1800, 20, 10), // 90% SF
		mergedArea("A4", domain.UrbanCore, 0, 0, 0, 9, 9),                // no units, dropped
	}

	got := SummarizeByHousingType(areas)
	require.Len(t, got, 2)

	assert.Equal(t, "<25% SF", got[0].SFCategory)
	assert.Equal(t, 50, got[0].TotalIncidents)

	high := got[1]
	assert.Equal(t, ">75% SF", high.SFCategory)
	assert.Equal(t, 2, high.NumResponseAreas)
	assert.InDelta(t, 6.0, high.IncidentsPer1000Pop, 1e-9)
	assert.InDelta(t, 15.0, high.IncidentsPer1000Units, 1e-9)
}

func TestSummarizeByIncidentType(t *testing.T) {
	core := mergedArea("A1", domain.UrbanCore, 10000, 5000, 1000, 100, 0)
	core.StructureFires = 40
	core.VehicleFires = 30
	core.OutdoorFires = 20
	core.TrashFires = 5
	core.OtherFires = 5

	got := SummarizeByIncidentType([]*MergedArea{core}, 2)
	require.Len(t, got, 1)
	assert.InDelta(t, 4.0, got[0].StructurePer1000, 1e-9)
	assert.InDelta(t, 3.0, got[0].VehiclePer1000, 1e-9)
	assert.InDelta(t, 2.0, got[0].StructureAnnualPer1000, 1e-9)
}

func TestSummarizeByBuildingAge(t *testing.T) {
	newer := mergedArea("A1", domain.UrbanCore, 10000, 4000, 1000, 20, 8)
	newer.PctBuilt2010Plus = 60
	older := mergedArea("A2", domain.UrbanCore, 10000, 4000, 1000, 50, 30)
	older.PctBuilt2010Plus = 10
	olderOuter := mergedArea("A3", domain.OuterSuburban, 5000, 2000, 1800, 25, 15)
	olderOuter.PctBuilt2010Plus = 49.9

	summary, matrix := SummarizeByBuildingAge([]*MergedArea{newer, older, olderOuter})
	require.Len(t, summary, 2)

	// Sorted by label: Newer before Older.
	assert.Equal(t, AgeNewer, summary[0].BuildingAge)
	assert.Equal(t, 1, summary[0].NumAreas)
	assert.InDelta(t, 2.0, summary[0].IncidentsPer1000Pop, 1e-9)

	assert.Equal(t, AgeOlder, summary[1].BuildingAge)
	assert.Equal(t, 2, summary[1].NumAreas)
	assert.Equal(t, 75, summary[1].TotalIncidents)

	require.Len(t, matrix, 3)
	assert.Equal(t, domain.UrbanCore, matrix[0].UrbanClass)
	assert.Equal(t, domain.OuterSuburban, matrix[2].UrbanClass)
}

func TestSummarizeByYear(t *testing.T) {
	incidents := []*domain.Incident{
		{CalendarYear: 2022, Category: domain.CategoryStructure},
		{CalendarYear: 2022, Category: domain.CategoryVehicle},
		{CalendarYear: 2023, Category: domain.CategoryStructure},
		{CalendarYear: 0, Category: domain.CategoryOther}, // no year, excluded
	}

	got := SummarizeByYear(incidents, 1000)
	require.Len(t, got, 2)
	assert.Equal(t, 2022, got[0].Year)
	assert.Equal(t, 2, got[0].TotalIncidents)
	assert.Equal(t, 1, got[0].StructureFires)
	assert.InDelta(t, 2.0, got[0].IncidentsPer1000, 1e-9)
	assert.Equal(t, 2023, got[1].Year)
}

func TestSummarizeStationCoverage(t *testing.T) {
	areas := []*MergedArea{
		mergedArea("A1", domain.UrbanCore, 100000, 40000, 10000, 0, 0),
		mergedArea("A2", domain.OuterSuburban, 50000, 20000, 18000, 0, 0),
	}
	stationClasses := []string{domain.UrbanCore, domain.UrbanCore, domain.OuterSuburban, ""}

	got := SummarizeStationCoverage(areas, stationClasses)
	require.Len(t, got, 2)

	core := got[0]
	assert.Equal(t, 2, core.NumStations)
	assert.InDelta(t, 50000, core.PopPerStation, 1e-9)
	assert.InDelta(t, 2.0, core.StationsPer100K, 1e-9)

	outer := got[1]
	assert.Equal(t, 1, outer.NumStations)
	assert.InDelta(t, 2.0, outer.StationsPer100K, 1e-9)
}
