package analyze

import (
	"sort"
	"strconv"

	"github.com/atxcivic/fire-analysis-etl/internal/domain"
)

// StructureFireHousingTrend is one (year, housing typology) cell of the
// structure-fire trend. Population and units cover the whole typology so the
// rate denominator is stable across years.
type StructureFireHousingTrend struct {
	Year              int     `csv:"year"`
	HousingType       string  `csv:"housing_type"`
	Fires             int     `csv:"fires"`
	Population        float64 `csv:"population"`
	TotalUnits        float64 `csv:"total_units"`
	FiresPer1000Units float64 `csv:"fires_per_1000_units"`
}

// StructureFireUrbanTrend is one (year, urban class) cell of the
// structure-fire trend.
type StructureFireUrbanTrend struct {
	Year              int     `csv:"year"`
	UrbanClass        string  `csv:"urban_class"`
	Fires             int     `csv:"fires"`
	Population        float64 `csv:"population"`
	TotalUnits        float64 `csv:"total_units"`
	FiresPer1000Units float64 `csv:"fires_per_1000_units"`
}

// StructureFireTrends tallies structure fires by calendar year crossed with
// housing typology and with urban class. Non-structure incidents are
// excluded, as are incidents without an assigned area or a parsed year.
// Typology grouping follows HousingBin over areas with housing units; the
// urban grouping skips unknown-class areas.
func StructureFireTrends(incidents []*domain.Incident, areas []*MergedArea) ([]*StructureFireHousingTrend, []*StructureFireUrbanTrend) {
	binByArea := make(map[string]string, len(areas))
	classByArea := make(map[string]string, len(areas))
	binPop := make(map[string]float64)
	binUnits := make(map[string]float64)
	classPop := make(map[string]float64)
	classUnits := make(map[string]float64)

	for _, a := range areas {
		if a.TotalUnits > 0 {
			bin := HousingBin(a.PctSingleFamily)
			binByArea[a.ResponseAreaID] = bin
			binPop[bin] += a.Population
			binUnits[bin] += a.TotalUnits
		}
		if a.UrbanClass != domain.UnknownClass {
			classByArea[a.ResponseAreaID] = a.UrbanClass
			classPop[a.UrbanClass] += a.Population
			classUnits[a.UrbanClass] += a.TotalUnits
		}
	}

	type cell struct {
		year  int
		group string
	}
	housingFires := make(map[cell]int)
	urbanFires := make(map[cell]int)

	for _, inc := range incidents {
		if !inc.IsStructure() || inc.CalendarYear <= 0 || inc.ResponseArea == "" {
			continue
		}
		if bin, ok := binByArea[inc.ResponseArea]; ok {
			housingFires[cell{inc.CalendarYear, bin}]++
		}
		if class, ok := classByArea[inc.ResponseArea]; ok {
			urbanFires[cell{inc.CalendarYear, class}]++
		}
	}

	housing := make([]*StructureFireHousingTrend, 0, len(housingFires))
	for c, fires := range housingFires {
		housing = append(housing, &StructureFireHousingTrend{
			Year:              c.year,
			HousingType:       c.group,
			Fires:             fires,
			Population:        binPop[c.group],
			TotalUnits:        binUnits[c.group],
			FiresPer1000Units: per1000(float64(fires), binUnits[c.group]),
		})
	}
	sort.Slice(housing, func(i, j int) bool {
		if housing[i].Year != housing[j].Year {
			return housing[i].Year < housing[j].Year
		}
		return housingBinIndex(housing[i].HousingType) < housingBinIndex(housing[j].HousingType)
	})

	urban := make([]*StructureFireUrbanTrend, 0, len(urbanFires))
	for c, fires := range urbanFires {
		urban = append(urban, &StructureFireUrbanTrend{
			Year:              c.year,
			UrbanClass:        c.group,
			Fires:             fires,
			Population:        classPop[c.group],
			TotalUnits:        classUnits[c.group],
			FiresPer1000Units: per1000(float64(fires), classUnits[c.group]),
		})
	}
	sort.Slice(urban, func(i, j int) bool {
		if urban[i].Year != urban[j].Year {
			return urban[i].Year < urban[j].Year
		}
		return classOrder[urban[i].UrbanClass] < classOrder[urban[j].UrbanClass]
	})

	return housing, urban
}

func housingBinIndex(label string) int {
	for i, b := range housingBins {
		if b.label == label {
			return i
		}
	}
	return len(housingBins)
}

// PivotHousingRates lays the housing trend out as a typology-by-year grid of
// structure fires per 1,000 units, one row per typology in bin order.
func PivotHousingRates(trend []*StructureFireHousingTrend) [][]string {
	cells := make(map[string]map[int]float64)
	years := make(map[int]bool)
	for _, t := range trend {
		if cells[t.HousingType] == nil {
			cells[t.HousingType] = make(map[int]float64)
		}
		cells[t.HousingType][t.Year] = t.FiresPer1000Units
		years[t.Year] = true
	}

	var order []string
	for _, b := range housingBins {
		if cells[b.label] != nil {
			order = append(order, b.label)
		}
	}
	return pivotGrid("housing_type", order, cells, years)
}

// PivotUrbanRates lays the urban trend out as a class-by-year grid of
// structure fires per 1,000 units, densest class first.
func PivotUrbanRates(trend []*StructureFireUrbanTrend) [][]string {
	cells := make(map[string]map[int]float64)
	years := make(map[int]bool)
	for _, t := range trend {
		if cells[t.UrbanClass] == nil {
			cells[t.UrbanClass] = make(map[int]float64)
		}
		cells[t.UrbanClass][t.Year] = t.FiresPer1000Units
		years[t.Year] = true
	}

	var order []string
	for _, class := range []string{domain.UrbanCore, domain.InnerSuburban, domain.OuterSuburban} {
		if cells[class] != nil {
			order = append(order, class)
		}
	}
	return pivotGrid("urban_class", order, cells, years)
}

func pivotGrid(rowHeader string, rowOrder []string, cells map[string]map[int]float64, yearSet map[int]bool) [][]string {
	years := make([]int, 0, len(yearSet))
	for y := range yearSet {
		years = append(years, y)
	}
	sort.Ints(years)

	header := make([]string, 0, len(years)+1)
	header = append(header, rowHeader)
	for _, y := range years {
		header = append(header, strconv.Itoa(y))
	}

	grid := [][]string{header}
	for _, row := range rowOrder {
		line := make([]string, 0, len(years)+1)
		line = append(line, row)
		for _, y := range years {
			line = append(line, strconv.FormatFloat(cells[row][y], 'f', -1, 64))
		}
		grid = append(grid, line)
	}
	return grid
}
