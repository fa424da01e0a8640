package analyze

import (
	"sort"

	"github.com/atxcivic/fire-analysis-etl/internal/domain"
)

// classOrder fixes the presentation order of urban classes, densest first.
var classOrder = map[string]int{
	domain.UrbanCore:     0,
	domain.InnerSuburban: 1,
	domain.OuterSuburban: 2,
}

// UrbanClassSummary is one row of the urban classification summary.
type UrbanClassSummary struct {
	UrbanClass       string  `csv:"urban_class"`
	NumResponseAreas int     `csv:"num_response_areas"`
	Population       float64 `csv:"population"`
	TotalUnits       float64 `csv:"total_units"`
	SingleFamily     float64 `csv:"single_family"`
	Multifamily      float64 `csv:"multifamily"`
	TotalIncidents   int     `csv:"total_incidents"`
	StructureFires   int     `csv:"structure_fires"`
	AreaSqMiles      float64 `csv:"area_sq_miles"`

	IncidentsPer1000Pop        float64 `csv:"incidents_per_1000_pop"`
	IncidentsPer1000Units      float64 `csv:"incidents_per_1000_units"`
	StructureFiresPer1000Units float64 `csv:"structure_fires_per_1000_units"`
	PopDensity                 float64 `csv:"pop_density"`
	PctSingleFamily            float64 `csv:"pct_single_family"`
	AnnualIncidentsPer1000Pop  float64 `csv:"annual_incidents_per_1000_pop"`
}

// SummarizeByUrbanClass aggregates populated, classified areas per urban
// class. Unknown-class and zero-population areas are excluded.
func SummarizeByUrbanClass(areas []*MergedArea, years int) []*UrbanClassSummary {
	byClass := make(map[string]*UrbanClassSummary)
	for _, a := range areas {
		if a.Population <= 0 || a.UrbanClass == domain.UnknownClass {
			continue
		}
		s, ok := byClass[a.UrbanClass]
		if !ok {
			s = &UrbanClassSummary{UrbanClass: a.UrbanClass}
			byClass[a.UrbanClass] = s
		}
		s.NumResponseAreas++
		s.Population += a.Population
		s.TotalUnits += a.TotalUnits
		s.SingleFamily += a.SingleFamily
		s.Multifamily += a.Multifamily
		s.TotalIncidents += a.TotalIncidents
		s.StructureFires += a.StructureFires
		s.AreaSqMiles += a.AreaSqMiles
	}

	out := make([]*UrbanClassSummary, 0, len(byClass))
	for _, s := range byClass {
		s.IncidentsPer1000Pop = per1000(float64(s.TotalIncidents), s.Population)
		s.IncidentsPer1000Units = per1000(float64(s.TotalIncidents), s.TotalUnits)
		s.StructureFiresPer1000Units = per1000(float64(s.StructureFires), s.TotalUnits)
		if s.AreaSqMiles > 0 {
			s.PopDensity = s.Population / s.AreaSqMiles
		}
		if s.TotalUnits > 0 {
			s.PctSingleFamily = s.SingleFamily / s.TotalUnits * 100
		}
		if years > 0 {
			s.AnnualIncidentsPer1000Pop = s.IncidentsPer1000Pop / float64(years)
		}
		out = append(out, s)
	}

	sort.Slice(out, func(i, j int) bool { return classOrder[out[i].UrbanClass] < classOrder[out[j].UrbanClass] })
	return out
}

// Housing typology bins by percent single-family, lower bound inclusive on
// the first bin, upper bound inclusive elsewhere.
var housingBins = []struct {
	label string
	max   float64
}{
	{"<25% SF", 25},
	{"25-50% SF", 50},
	{"50-75% SF", 75},
	{">75% SF", 100},
}

// HousingBin returns the typology label for a percent-single-family value.
func HousingBin(pctSF float64) string {
	for _, b := range housingBins {
		if pctSF <= b.max {
			return b.label
		}
	}
	return housingBins[len(housingBins)-1].label
}

// HousingTypeSummary is one row of the housing typology summary.
type HousingTypeSummary struct {
	SFCategory       string  `csv:"sf_category"`
	NumResponseAreas int     `csv:"num_response_areas"`
	Population       float64 `csv:"population"`
	TotalUnits       float64 `csv:"total_units"`
	TotalIncidents   int     `csv:"total_incidents"`
	StructureFires   int     `csv:"structure_fires"`

	IncidentsPer1000Pop        float64 `csv:"incidents_per_1000_pop"`
	IncidentsPer1000Units      float64 `csv:"incidents_per_1000_units"`
	StructureFiresPer1000Units float64 `csv:"structure_fires_per_1000_units"`
}

// SummarizeByHousingType buckets populated areas by percent single-family.
func SummarizeByHousingType(areas []*MergedArea) []*HousingTypeSummary {
	byBin := make(map[string]*HousingTypeSummary)
	for _, a := range areas {
		if a.Population <= 0 || a.TotalUnits <= 0 {
			continue
		}
		label := HousingBin(a.PctSingleFamily)
		s, ok := byBin[label]
		if !ok {
			s = &HousingTypeSummary{SFCategory: label}
			byBin[label] = s
		}
		s.NumResponseAreas++
		s.Population += a.Population
		s.TotalUnits += a.TotalUnits
		s.TotalIncidents += a.TotalIncidents
		s.StructureFires += a.StructureFires
	}

	out := make([]*HousingTypeSummary, 0, len(byBin))
	for _, b := range housingBins {
		s, ok := byBin[b.label]
		if !ok {
			continue
		}
		s.IncidentsPer1000Pop = per1000(float64(s.TotalIncidents), s.Population)
		s.IncidentsPer1000Units = per1000(float64(s.TotalIncidents), s.TotalUnits)
		s.StructureFiresPer1000Units = per1000(float64(s.StructureFires), s.TotalUnits)
		out = append(out, s)
	}
	return out
}

// IncidentTypeSummary cross-tabulates incident categories with urban class,
// as rates per 1,000 population.
type IncidentTypeSummary struct {
	UrbanClass string  `csv:"urban_class"`
	Population float64 `csv:"population"`

	Structure int `csv:"structure"`
	Vehicle   int `csv:"vehicle"`
	Outdoor   int `csv:"outdoor"`
	Trash     int `csv:"trash"`
	Other     int `csv:"other"`

	StructurePer1000 float64 `csv:"structure_per_1000"`
	VehiclePer1000   float64 `csv:"vehicle_per_1000"`
	OutdoorPer1000   float64 `csv:"outdoor_per_1000"`
	TrashPer1000     float64 `csv:"trash_per_1000"`
	OtherPer1000     float64 `csv:"other_per_1000"`

	StructureAnnualPer1000 float64 `csv:"structure_annual_per_1000"`
	VehicleAnnualPer1000   float64 `csv:"vehicle_annual_per_1000"`
	OutdoorAnnualPer1000   float64 `csv:"outdoor_annual_per_1000"`
	TrashAnnualPer1000     float64 `csv:"trash_annual_per_1000"`
	OtherAnnualPer1000     float64 `csv:"other_annual_per_1000"`
}

// SummarizeByIncidentType aggregates category counts per urban class.
func SummarizeByIncidentType(areas []*MergedArea, years int) []*IncidentTypeSummary {
	byClass := make(map[string]*IncidentTypeSummary)
	for _, a := range areas {
		if a.Population <= 0 || a.UrbanClass == domain.UnknownClass {
			continue
		}
		s, ok := byClass[a.UrbanClass]
		if !ok {
			s = &IncidentTypeSummary{UrbanClass: a.UrbanClass}
			byClass[a.UrbanClass] = s
		}
		s.Population += a.Population
		s.Structure += a.StructureFires
		s.Vehicle += a.VehicleFires
		s.Outdoor += a.OutdoorFires
		s.Trash += a.TrashFires
		s.Other += a.OtherFires
	}

	out := make([]*IncidentTypeSummary, 0, len(byClass))
	for _, s := range byClass {
		s.StructurePer1000 = per1000(float64(s.Structure), s.Population)
		s.VehiclePer1000 = per1000(float64(s.Vehicle), s.Population)
		s.OutdoorPer1000 = per1000(float64(s.Outdoor), s.Population)
		s.TrashPer1000 = per1000(float64(s.Trash), s.Population)
		s.OtherPer1000 = per1000(float64(s.Other), s.Population)
		if years > 0 {
			y := float64(years)
			s.StructureAnnualPer1000 = s.StructurePer1000 / y
			s.VehicleAnnualPer1000 = s.VehiclePer1000 / y
			s.OutdoorAnnualPer1000 = s.OutdoorPer1000 / y
			s.TrashAnnualPer1000 = s.TrashPer1000 / y
			s.OtherAnnualPer1000 = s.OtherPer1000 / y
		}
		out = append(out, s)
	}

	sort.Slice(out, func(i, j int) bool { return classOrder[out[i].UrbanClass] < classOrder[out[j].UrbanClass] })
	return out
}

// Building age class labels, split at 50% of units built 2010 or later.
const (
	AgeNewer = "Newer (50%+ post-2010)"
	AgeOlder = "Older (<50% post-2010)"
)

// AgeClass buckets an area by its share of post-2010 construction.
func AgeClass(pctBuilt2010Plus float64) string {
	if pctBuilt2010Plus >= 50 {
		return AgeNewer
	}
	return AgeOlder
}

// BuildingAgeSummary is one row of the building age summary.
type BuildingAgeSummary struct {
	BuildingAge    string  `csv:"building_age"`
	NumAreas       int     `csv:"num_areas"`
	Population     float64 `csv:"population"`
	TotalUnits     float64 `csv:"total_units"`
	TotalIncidents int     `csv:"total_incidents"`
	StructureFires int     `csv:"structure_fires"`

	IncidentsPer1000Pop   float64 `csv:"incidents_per_1000_pop"`
	StructurePer1000Units float64 `csv:"structure_per_1000_units"`
}

// AgeMatrixCell is one cell of the urban class x building age matrix.
type AgeMatrixCell struct {
	UrbanClass       string  `csv:"urban_class"`
	BuildingAge      string  `csv:"building_age"`
	Population       float64 `csv:"population"`
	TotalIncidents   int     `csv:"total_incidents"`
	StructureFires   int     `csv:"structure_fires"`
	IncidentsPer1000 float64 `csv:"incidents_per_1000"`
}

// SummarizeByBuildingAge splits populated, classified areas into newer and
// older construction and cross-tabulates against urban class.
func SummarizeByBuildingAge(areas []*MergedArea) ([]*BuildingAgeSummary, []*AgeMatrixCell) {
	byAge := make(map[string]*BuildingAgeSummary)
	type comboKey struct{ class, age string }
	byCombo := make(map[comboKey]*AgeMatrixCell)

	for _, a := range areas {
		if a.Population <= 0 || a.UrbanClass == domain.UnknownClass {
			continue
		}
		age := AgeClass(a.PctBuilt2010Plus)

		s, ok := byAge[age]
		if !ok {
			s = &BuildingAgeSummary{BuildingAge: age}
			byAge[age] = s
		}
		s.NumAreas++
		s.Population += a.Population
		s.TotalUnits += a.TotalUnits
		s.TotalIncidents += a.TotalIncidents
		s.StructureFires += a.StructureFires

		key := comboKey{a.UrbanClass, age}
		c, ok := byCombo[key]
		if !ok {
			c = &AgeMatrixCell{UrbanClass: a.UrbanClass, BuildingAge: age}
			byCombo[key] = c
		}
		c.Population += a.Population
		c.TotalIncidents += a.TotalIncidents
		c.StructureFires += a.StructureFires
	}

	summary := make([]*BuildingAgeSummary, 0, len(byAge))
	for _, s := range byAge {
		s.IncidentsPer1000Pop = per1000(float64(s.TotalIncidents), s.Population)
		s.StructurePer1000Units = per1000(float64(s.StructureFires), s.TotalUnits)
		summary = append(summary, s)
	}
	sort.Slice(summary, func(i, j int) bool { return summary[i].BuildingAge < summary[j].BuildingAge })

	matrix := make([]*AgeMatrixCell, 0, len(byCombo))
	for _, c := range byCombo {
		c.IncidentsPer1000 = per1000(float64(c.TotalIncidents), c.Population)
		matrix = append(matrix, c)
	}
	sort.Slice(matrix, func(i, j int) bool {
		if matrix[i].UrbanClass != matrix[j].UrbanClass {
			return classOrder[matrix[i].UrbanClass] < classOrder[matrix[j].UrbanClass]
		}
		return matrix[i].BuildingAge < matrix[j].BuildingAge
	})
	return summary, matrix
}

// YearSummary is one row of the time series output.
type YearSummary struct {
	Year           int `csv:"year"`
	TotalIncidents int `csv:"total_incidents"`
	StructureFires int `csv:"structure_fires"`
	VehicleFires   int `csv:"vehicle_fires"`
	OutdoorFires   int `csv:"outdoor_fires"`

	IncidentsPer1000 float64 `csv:"incidents_per_1000"`
	StructurePer1000 float64 `csv:"structure_per_1000"`
}

// SummarizeByYear counts incidents per calendar year against the total
// covered population. Incidents without a usable year are excluded.
func SummarizeByYear(incidents []*domain.Incident, totalPop float64) []*YearSummary {
	byYear := make(map[int]*YearSummary)
	for _, inc := range incidents {
		if inc.CalendarYear <= 0 {
			continue
		}
		s, ok := byYear[inc.CalendarYear]
		if !ok {
			s = &YearSummary{Year: inc.CalendarYear}
			byYear[inc.CalendarYear] = s
		}
		s.TotalIncidents++
		switch inc.Category {
		case domain.CategoryStructure:
			s.StructureFires++
		case domain.CategoryVehicle:
			s.VehicleFires++
		case domain.CategoryOutdoor:
			s.OutdoorFires++
		}
	}

	out := make([]*YearSummary, 0, len(byYear))
	for _, s := range byYear {
		s.IncidentsPer1000 = per1000(float64(s.TotalIncidents), totalPop)
		s.StructurePer1000 = per1000(float64(s.StructureFires), totalPop)
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Year < out[j].Year })
	return out
}

// StationCoverage is one row of the station coverage output.
type StationCoverage struct {
	UrbanClass  string  `csv:"urban_class"`
	Population  float64 `csv:"population"`
	AreaSqMiles float64 `csv:"area_sq_miles"`
	NumStations int     `csv:"num_stations"`

	// Zero stations leave the per-station figures at zero.
	PopPerStation     float64 `csv:"pop_per_station"`
	SqMilesPerStation float64 `csv:"sq_miles_per_station"`
	StationsPer100K   float64 `csv:"stations_per_100k"`
}

// SummarizeStationCoverage tallies fire stations per urban class. The
// stationClasses slice holds the urban class each station landed in, empty
// for stations outside every response area.
func SummarizeStationCoverage(areas []*MergedArea, stationClasses []string) []*StationCoverage {
	byClass := make(map[string]*StationCoverage)
	for _, a := range areas {
		if a.UrbanClass == domain.UnknownClass {
			continue
		}
		s, ok := byClass[a.UrbanClass]
		if !ok {
			s = &StationCoverage{UrbanClass: a.UrbanClass}
			byClass[a.UrbanClass] = s
		}
		s.Population += a.Population
		s.AreaSqMiles += a.AreaSqMiles
	}

	for _, class := range stationClasses {
		if s, ok := byClass[class]; ok {
			s.NumStations++
		}
	}

	out := make([]*StationCoverage, 0, len(byClass))
	for _, s := range byClass {
		if s.NumStations > 0 {
			s.PopPerStation = s.Population / float64(s.NumStations)
			s.SqMilesPerStation = s.AreaSqMiles / float64(s.NumStations)
		}
		s.StationsPer100K = per1000(float64(s.NumStations), s.Population) * 100
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return classOrder[out[i].UrbanClass] < classOrder[out[j].UrbanClass] })
	return out
}
