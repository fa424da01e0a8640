package domain

import (
	"regexp"
	"strconv"
	"strings"
)

// Incident category labels, in classification priority order.
const (
	CategoryStructure = "Structure Fire"
	CategoryVehicle   = "Vehicle Fire"
	CategoryOutdoor   = "Outdoor/Vegetation Fire"
	CategoryTrash     = "Trash/Dumpster Fire"
	CategoryOther     = "Other"
)

// Plausibility window for parsed incident coordinates. Anything outside is
// treated as a malformed location, not a distant incident.
const (
	MinLat = 29.0
	MaxLat = 32.0
	MinLon = -99.0
	MaxLon = -96.0
)

// locationRe extracts the two members of a "(<a>, <b>)" location string.
var locationRe = regexp.MustCompile(`\(([^,()]+),\s*([^()]+)\)`)

// RawIncident is one record as fetched from the Socrata resource API. Both
// vintages flatten to these fields; columns a vintage lacks stay empty.
type RawIncident struct {
	IncidentNumber string `json:"incident_number" csv:"incident_number"`
	CalendarYear   string `json:"calendar_year" csv:"calendar_year"`
	Problem        string `json:"problem" csv:"problem"`
	Jurisdiction   string `json:"jurisdiction" csv:"jurisdiction"`
	ResponseArea   string `json:"response_area" csv:"response_area"`
	Location       string `json:"location" csv:"location"`
}

// Incident is the cleaned record written by the clean stage and consumed by
// the analysis stage.
type Incident struct {
	IncidentNumber string  `csv:"incident_number"`
	CalendarYear   int     `csv:"calendar_year"`
	Problem        string  `csv:"problem"`
	Jurisdiction   string  `csv:"jurisdiction"`
	ResponseArea   string  `csv:"response_area"`
	Latitude       float64 `csv:"latitude"`
	Longitude      float64 `csv:"longitude"`
	HasPoint       bool    `csv:"has_point"`
	Category       string  `csv:"category"`
}

// ParseLocation extracts a lat/lon pair from a "(<a>, <b>)" location string.
// The pair order varies by vintage; the negative member is taken as longitude.
// Returns ok=false for strings that do not parse or fall outside the
// plausibility window.
func ParseLocation(location string) (lat, lon float64, ok bool) {
	m := locationRe.FindStringSubmatch(location)
	if len(m) != 3 {
		return 0, 0, false
	}

	a, errA := strconv.ParseFloat(strings.TrimSpace(m[1]), 64)
	b, errB := strconv.ParseFloat(strings.TrimSpace(m[2]), 64)
	if errA != nil || errB != nil {
		return 0, 0, false
	}

	if a < 0 {
		lon, lat = a, b
	} else {
		lat, lon = a, b
	}

	if lat < MinLat || lat > MaxLat || lon < MinLon || lon > MaxLon {
		return 0, 0, false
	}
	return lat, lon, true
}

var (
	structureKeywords = []string{
		"STRUCTURE", "BOX", "APARTMENT", "HOUSE", "RESIDENTIAL",
		"COMMERCIAL", "BUILDING", "HIGHRISE", "HIGH RISE",
	}
	vehicleKeywords = []string{"VEHICLE", "AUTO", "CAR", "TRUCK"}
	outdoorKeywords = []string{"GRASS", "BRUSH", "WILDLAND", "OUTSIDE"}
	trashKeywords   = []string{"TRASH", "DUMP", "RUBBISH"}
)

// Categorize buckets a free-form problem string into one of the five incident
// categories. Matching is case-insensitive substring search; the first
// matching keyword group in priority order wins.
func Categorize(problem string) string {
	p := strings.ToUpper(problem)

	switch {
	case containsAny(p, structureKeywords):
		return CategoryStructure
	case containsAny(p, vehicleKeywords):
		return CategoryVehicle
	case containsAny(p, outdoorKeywords):
		return CategoryOutdoor
	case containsAny(p, trashKeywords):
		return CategoryTrash
	default:
		return CategoryOther
	}
}

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}

// IsStructure reports whether the incident's category is a structure fire.
func (i Incident) IsStructure() bool { return i.Category == CategoryStructure }

// IsVehicle reports whether the incident's category is a vehicle fire.
func (i Incident) IsVehicle() bool { return i.Category == CategoryVehicle }

// IsOutdoor reports whether the incident's category is an outdoor or
// vegetation fire.
func (i Incident) IsOutdoor() bool { return i.Category == CategoryOutdoor }

// IsTrash reports whether the incident's category is a trash or dumpster fire.
func (i Incident) IsTrash() bool { return i.Category == CategoryTrash }
