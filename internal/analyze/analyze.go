// Package analyze implements the fourth pipeline stage: joining cleaned
// incidents to response areas, computing per-capita and per-unit incident
// rates, and running the statistical comparisons across urban classes.
package analyze

import (
	"sort"

	"github.com/paulmach/orb"

	"github.com/atxcivic/fire-analysis-etl/internal/domain"
	"github.com/atxcivic/fire-analysis-etl/internal/geo"
)

// JoinStats tallies how incidents were matched to response areas.
type JoinStats struct {
	ByCode     int
	BySpatial  int
	Unassigned int
}

// AssignAreas resolves a response area for every incident. The incident's
// own response-area code wins when it names a known area; otherwise the
// incident point is located in the layer. Incidents with neither stay
// unassigned and are excluded from area aggregates.
func AssignAreas(incidents []*domain.Incident, areas []geo.Feature) JoinStats {
	known := make(map[string]bool, len(areas))
	for _, a := range areas {
		known[a.ID] = true
	}

	var stats JoinStats
	for _, inc := range incidents {
		if inc.ResponseArea != "" && known[inc.ResponseArea] {
			stats.ByCode++
			continue
		}
		if inc.HasPoint {
			if id := locate(areas, orb.Point{inc.Longitude, inc.Latitude}); id != "" {
				inc.ResponseArea = id
				stats.BySpatial++
				continue
			}
		}
		inc.ResponseArea = ""
		stats.Unassigned++
	}
	return stats
}

func locate(areas []geo.Feature, pt orb.Point) string {
	for _, a := range areas {
		if geo.ContainsPoint(a.Geometry, pt) {
			return a.ID
		}
	}
	return ""
}

// AreaIncidents is the per-response-area incident tally.
type AreaIncidents struct {
	TotalIncidents int
	StructureFires int
	VehicleFires   int
	OutdoorFires   int
	TrashFires     int
	OtherFires     int
}

// CountByArea tallies assigned incidents per response area and category.
func CountByArea(incidents []*domain.Incident) map[string]*AreaIncidents {
	counts := make(map[string]*AreaIncidents)
	for _, inc := range incidents {
		if inc.ResponseArea == "" {
			continue
		}
		c, ok := counts[inc.ResponseArea]
		if !ok {
			c = &AreaIncidents{}
			counts[inc.ResponseArea] = c
		}
		c.TotalIncidents++
		switch inc.Category {
		case domain.CategoryStructure:
			c.StructureFires++
		case domain.CategoryVehicle:
			c.VehicleFires++
		case domain.CategoryOutdoor:
			c.OutdoorFires++
		case domain.CategoryTrash:
			c.TrashFires++
		default:
			c.OtherFires++
		}
	}
	return counts
}

// YearSpan returns the number of distinct calendar years in the data. Years
// that failed to parse during cleaning (zero) do not count. Returns at least
// 1 so annualized rates never divide by zero.
func YearSpan(incidents []*domain.Incident) int {
	years := make(map[int]bool)
	for _, inc := range incidents {
		if inc.CalendarYear > 0 {
			years[inc.CalendarYear] = true
		}
	}
	if len(years) == 0 {
		return 1
	}
	return len(years)
}

// MergedArea is one response area with demographics, incident counts, and
// derived rates. This is the unit of observation for all summaries and
// statistical tests.
type MergedArea struct {
	domain.AreaDemographics

	TotalIncidents int `csv:"total_incidents"`
	StructureFires int `csv:"structure_fires"`
	VehicleFires   int `csv:"vehicle_fires"`
	OutdoorFires   int `csv:"outdoor_fires"`
	TrashFires     int `csv:"trash_fires"`
	OtherFires     int `csv:"other_fires"`
	YearsOfData    int `csv:"years_of_data"`

	// Rates are zero when the denominator is zero.
	IncidentsPer1000Pop         float64 `csv:"incidents_per_1000_pop"`
	StructureFiresPer1000Pop    float64 `csv:"structure_fires_per_1000_pop"`
	IncidentsPer1000Units       float64 `csv:"incidents_per_1000_units"`
	StructureFiresPer1000Units  float64 `csv:"structure_fires_per_1000_units"`
	AnnualIncidentsPer1000Pop   float64 `csv:"annual_incidents_per_1000_pop"`
	AnnualIncidentsPer1000Units float64 `csv:"annual_incidents_per_1000_units"`
}

// Merge combines the demographics with the incident tallies and fills the
// rate fields. Areas with no incidents get zero counts so every response
// area appears in the output.
func Merge(demo []*domain.AreaDemographics, counts map[string]*AreaIncidents, years int) []*MergedArea {
	out := make([]*MergedArea, 0, len(demo))
	for _, d := range demo {
		m := &MergedArea{AreaDemographics: *d, YearsOfData: years}
		if c, ok := counts[d.ResponseAreaID]; ok {
			m.TotalIncidents = c.TotalIncidents
			m.StructureFires = c.StructureFires
			m.VehicleFires = c.VehicleFires
			m.OutdoorFires = c.OutdoorFires
			m.TrashFires = c.TrashFires
			m.OtherFires = c.OtherFires
		}

		m.IncidentsPer1000Pop = per1000(float64(m.TotalIncidents), m.Population)
		m.StructureFiresPer1000Pop = per1000(float64(m.StructureFires), m.Population)
		m.IncidentsPer1000Units = per1000(float64(m.TotalIncidents), m.TotalUnits)
		m.StructureFiresPer1000Units = per1000(float64(m.StructureFires), m.TotalUnits)
		if years > 0 {
			m.AnnualIncidentsPer1000Pop = m.IncidentsPer1000Pop / float64(years)
			m.AnnualIncidentsPer1000Units = m.IncidentsPer1000Units / float64(years)
		}
		out = append(out, m)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].ResponseAreaID < out[j].ResponseAreaID })
	return out
}

func per1000(count, base float64) float64 {
	if base <= 0 {
		return 0
	}
	return count / base * 1000
}
